package ports

import (
	"context"
	"time"

	"ecash-billing-engine/internal/core/domain"

	"github.com/google/uuid"
)

// ProofRecord is a proof as persisted: tagged with its mint and the ledger
// snapshot (provenance) that produced it.
type ProofRecord struct {
	MintURL    string
	Provenance string
	Proof      domain.Proof
}

// ProofChange is one atomic ledger write. Deletes run before upserts; an
// upsert of an existing proof re-tags its provenance.
type ProofChange struct {
	Delete []domain.ProofKey
	Put    []ProofRecord
}

// ProofRepository persists the unspent proof set of one identity.
type ProofRepository interface {
	List(ctx context.Context) ([]ProofRecord, error)
	ApplyChange(ctx context.Context, change ProofChange) error
}

// InvoiceRepository persists stored invoices of one identity.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *domain.StoredInvoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.StoredInvoice, error)
	GetByQuote(ctx context.Context, mintURL, quoteID string) (*domain.StoredInvoice, error)
	List(ctx context.Context) ([]domain.StoredInvoice, error)
	// Update writes inv only if the stored state still equals expected, so two
	// writers can never regress a state. It returns false when the guard failed.
	Update(ctx context.Context, inv *domain.StoredInvoice, expected domain.InvoiceState) (bool, error)
	// Upsert stores a merged copy from the backup mirror; it never lowers the
	// stored state rank.
	Upsert(ctx context.Context, inv *domain.StoredInvoice) error
	Delete(ctx context.Context, ids []uuid.UUID) error
}

// HistoryRepository is the append-only transaction history of one identity.
type HistoryRepository interface {
	// Append inserts the entry; an entry whose id already exists is ignored.
	Append(ctx context.Context, entry *domain.HistoryEntry) error
	List(ctx context.Context, params HistoryListParams) ([]domain.HistoryEntry, int64, error)
	GetStats(ctx context.Context, since *time.Time) (*HistoryStats, error)
}

// HistoryListParams holds filter + pagination for listing history.
type HistoryListParams struct {
	Type     *domain.HistoryType
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// HistoryStats holds aggregated totals for the wallet summary.
type HistoryStats struct {
	Entries       int64
	TotalMinted   int64
	TotalMelted   int64
	TotalSent     int64
	TotalReceived int64
	TotalSpent    int64 // paid inference
	TotalRefunded int64
	TotalFees     int64
}

// WalletRepository persists the WalletState record of one identity.
type WalletRepository interface {
	Get(ctx context.Context) (*domain.WalletState, error)
	Save(ctx context.Context, w *domain.WalletState) error
}

// AuditRepository persists audit logs.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

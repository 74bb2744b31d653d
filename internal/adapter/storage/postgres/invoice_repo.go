package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ecash-billing-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const invoiceColumns = `id, kind, mint_url, quote_id, payment_request, amount, state, fee,
	created_at, expires_at, checked_at, paid_at, issued_at, updated_at, change_outputs`

// supersedes mirrors domain.StoredInvoice.NewerThan: the incoming row wins
// only when its state lies ahead of the stored one, or when both share a state
// and the incoming row is more recent.
const supersedes = `(invoices.state = EXCLUDED.state AND invoices.updated_at < EXCLUDED.updated_at)
	OR (invoices.state = 'UNPAID' AND EXCLUDED.state IN ('PAID', 'EXPIRED'))
	OR (invoices.state IN ('UNPAID', 'PAID') AND EXCLUDED.state = 'ISSUED' AND invoices.kind = 'mint')`

// InvoiceRepo implements ports.InvoiceRepository for one owner.
type InvoiceRepo struct {
	pool  Pool
	owner string
}

// NewInvoiceRepo creates a new InvoiceRepo scoped to owner.
func NewInvoiceRepo(pool Pool, owner string) *InvoiceRepo {
	return &InvoiceRepo{pool: pool, owner: owner}
}

// Create inserts a new invoice.
func (r *InvoiceRepo) Create(ctx context.Context, inv *domain.StoredInvoice) error {
	query := `INSERT INTO invoices (owner, ` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.pool.Exec(ctx, query, r.args(inv)...)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetByID fetches an invoice by its UUID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.StoredInvoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE owner = $1 AND id = $2`
	return scanInvoice(r.pool.QueryRow(ctx, query, r.owner, id))
}

// GetByQuote fetches the invoice of a mint quote.
func (r *InvoiceRepo) GetByQuote(ctx context.Context, mintURL, quoteID string) (*domain.StoredInvoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE owner = $1 AND mint_url = $2 AND quote_id = $3`
	return scanInvoice(r.pool.QueryRow(ctx, query, r.owner, mintURL, quoteID))
}

// List returns every invoice of the owner, oldest first.
func (r *InvoiceRepo) List(ctx context.Context) ([]domain.StoredInvoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE owner = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, r.owner)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoice rows: %w", err)
	}
	return out, nil
}

// Update overwrites inv only while the stored state is still expected.
func (r *InvoiceRepo) Update(ctx context.Context, inv *domain.StoredInvoice, expected domain.InvoiceState) (bool, error) {
	query := `UPDATE invoices SET state = $1, fee = $2, expires_at = $3, checked_at = $4,
		paid_at = $5, issued_at = $6, updated_at = $7, change_outputs = $8
		WHERE owner = $9 AND id = $10 AND state = $11`

	tag, err := r.pool.Exec(ctx, query,
		inv.State, inv.Fee, inv.ExpiresAt, inv.CheckedAt,
		inv.PaidAt, inv.IssuedAt, inv.UpdatedAt, encodeBlanks(inv.ChangeOutputs),
		r.owner, inv.ID, expected,
	)
	if err != nil {
		return false, fmt.Errorf("update invoice: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Upsert stores a merged copy. A stored row is only replaced by a copy that
// supersedes it, so a stale or diverging copy never rewinds the lifecycle.
func (r *InvoiceRepo) Upsert(ctx context.Context, inv *domain.StoredInvoice) error {
	query := `INSERT INTO invoices (owner, ` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state, fee = EXCLUDED.fee, expires_at = EXCLUDED.expires_at,
			checked_at = EXCLUDED.checked_at, paid_at = EXCLUDED.paid_at,
			issued_at = EXCLUDED.issued_at, updated_at = EXCLUDED.updated_at,
			change_outputs = EXCLUDED.change_outputs
		WHERE invoices.owner = EXCLUDED.owner AND (` + supersedes + `)`

	if _, err := r.pool.Exec(ctx, query, r.args(inv)...); err != nil {
		return fmt.Errorf("upsert invoice: %w", err)
	}
	return nil
}

// Delete removes invoices by id.
func (r *InvoiceRepo) Delete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE owner = $1 AND id = ANY($2)`, r.owner, ids); err != nil {
		return fmt.Errorf("delete invoices: %w", err)
	}
	return nil
}

func (r *InvoiceRepo) args(inv *domain.StoredInvoice) []any {
	return []any{
		r.owner, inv.ID, inv.Kind, inv.MintURL, inv.QuoteID, inv.PaymentRequest,
		inv.Amount, inv.State, inv.Fee, inv.CreatedAt, inv.ExpiresAt,
		inv.CheckedAt, inv.PaidAt, inv.IssuedAt, inv.UpdatedAt, encodeBlanks(inv.ChangeOutputs),
	}
}

// encodeBlanks stores no change outputs as NULL.
func encodeBlanks(blanks []domain.BlankOutput) []byte {
	if len(blanks) == 0 {
		return nil
	}
	raw, _ := json.Marshal(blanks)
	return raw
}

func scanInvoice(row pgx.Row) (*domain.StoredInvoice, error) {
	inv := &domain.StoredInvoice{}
	var blanks []byte
	err := row.Scan(
		&inv.ID, &inv.Kind, &inv.MintURL, &inv.QuoteID, &inv.PaymentRequest,
		&inv.Amount, &inv.State, &inv.Fee, &inv.CreatedAt, &inv.ExpiresAt,
		&inv.CheckedAt, &inv.PaidAt, &inv.IssuedAt, &inv.UpdatedAt, &blanks,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	if len(blanks) > 0 {
		if err := json.Unmarshal(blanks, &inv.ChangeOutputs); err != nil {
			return nil, fmt.Errorf("decode change outputs of invoice %s: %w", inv.ID, err)
		}
	}
	return inv, nil
}

package ports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ecash-billing-engine/internal/core/domain"

	"github.com/google/uuid"
)

// --- External collaborators ---

// QuoteState is the mint's view of a mint or melt quote.
type QuoteState string

const (
	QuoteStateUnpaid  QuoteState = "UNPAID"
	QuoteStatePending QuoteState = "PENDING"
	QuoteStatePaid    QuoteState = "PAID"
	QuoteStateIssued  QuoteState = "ISSUED"
)

// MintQuote is a mint's reservation for an incoming Lightning payment.
type MintQuote struct {
	QuoteID        string
	PaymentRequest string
	Amount         int64
	State          QuoteState
	Expiry         *time.Time
}

// MeltQuote is a mint's reservation for paying an outgoing Lightning invoice.
type MeltQuote struct {
	QuoteID    string
	Amount     int64
	FeeReserve int64
	State      QuoteState
	Expiry     *time.Time
}

// MeltResult is the outcome of a melt; Change returns the unused fee reserve.
// A melt left pending carries the blank outputs its change will be signed on.
type MeltResult struct {
	State    QuoteState
	Preimage string
	Change   domain.Proofs
	Blanks   []domain.BlankOutput
}

// SwapResult splits swapped value into a part to hand out and a part to keep.
type SwapResult struct {
	Send domain.Proofs
	Keep domain.Proofs
}

// MintGateway is the call contract of a remote Cashu mint. Every method is a
// network call and honours ctx cancellation.
type MintGateway interface {
	GetKeysets(ctx context.Context, mintURL string) ([]domain.Keyset, error)
	CreateMintQuote(ctx context.Context, mintURL string, amount int64) (*MintQuote, error)
	CheckMintQuote(ctx context.Context, mintURL, quoteID string) (*MintQuote, error)
	MintProofs(ctx context.Context, mintURL, quoteID string, amount int64) (domain.Proofs, error)
	CreateMeltQuote(ctx context.Context, mintURL, paymentRequest string) (*MeltQuote, error)
	CheckMeltQuote(ctx context.Context, mintURL, quoteID string) (*MeltQuote, error)
	MeltProofs(ctx context.Context, mintURL, quoteID string, inputs domain.Proofs) (*MeltResult, error)
	// MeltChange re-reads a melt quote and unblinds the change the mint
	// signed on blanks once the melt settled.
	MeltChange(ctx context.Context, mintURL, quoteID string, blanks []domain.BlankOutput) (*MeltResult, error)
	// Swap redeems inputs for fresh proofs: send worth exactly sendAmount and
	// keep worth the remainder after input fees.
	Swap(ctx context.Context, mintURL string, inputs domain.Proofs, sendAmount int64) (*SwapResult, error)
	CheckProofStates(ctx context.Context, mintURL string, proofs domain.Proofs) ([]domain.ProofStatus, error)
}

// ChatMessage is one turn of a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of an inference call.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

// ChatResponse is a completed inference call. For streamed calls Content is
// the concatenated deltas and Raw is empty.
type ChatResponse struct {
	RequestID string
	Model     string
	Content   string
	Usage     domain.Usage
	Raw       json.RawMessage
}

// DeltaFunc receives each raw event-stream chunk as it arrives.
type DeltaFunc func(chunk []byte) error

// ProviderError is a non-success HTTP status from an inference provider.
type ProviderError struct {
	StatusCode int
	RequestID  string
	Body       string
}

func (e *ProviderError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("provider returned status %d (request %s)", e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("provider returned status %d", e.StatusCode)
}

// InferenceProvider is a pay-per-request inference endpoint that accepts an
// ecash token as bearer credential.
type InferenceProvider interface {
	Complete(ctx context.Context, baseURL, token string, req ChatRequest, onDelta DeltaFunc) (*ChatResponse, error)
	// Refund returns a fresh token for the unconsumed part of token, or ""
	// when nothing is left.
	Refund(ctx context.Context, baseURL, token string) (string, error)
	Models(ctx context.Context, baseURL string) ([]domain.ModelPricing, error)
}

// BackupBlob is an encrypted snapshot stored on the backup channel.
type BackupBlob struct {
	Ciphertext []byte
	UpdatedAt  time.Time
}

// BackupChannel stores the latest encrypted snapshot per logical name.
type BackupChannel interface {
	Put(ctx context.Context, name string, blob BackupBlob) error
	// Get returns nil when nothing was stored under name.
	Get(ctx context.Context, name string) (*BackupBlob, error)
}

// Cipher seals backup snapshots.
type Cipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(ciphertext []byte) ([]byte, error)
}

// TokenCache holds the outstanding pre-allocated token per provider endpoint
// so it survives restarts and can still be refunded.
type TokenCache interface {
	// Get returns "" when no token is cached.
	Get(ctx context.Context, endpoint string) (string, error)
	Set(ctx context.Context, endpoint, token string, ttl time.Duration) error
	Delete(ctx context.Context, endpoint string) error
}

// CheckLocker is a cross-process re-entrancy guard for invoice checks.
type CheckLocker interface {
	// Acquire returns true if the caller now holds the lock for key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// EventPublisher receives domain events from the engine.
type EventPublisher interface {
	Publish(event domain.Event)
}

// EventSubscriber hands out event streams. The returned func unsubscribes and
// closes the channel.
type EventSubscriber interface {
	Subscribe() (<-chan domain.Event, func())
}

// --- Service ports ---

// TokenService issues and checks session tokens.
type TokenService interface {
	Generate(identity, sessionID string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed session token.
type TokenClaims struct {
	Identity  string
	SessionID string
	ExpiresAt time.Time
}

// AuditService records financial events and errors.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// WalletBalance is the derived balance of a wallet.
type WalletBalance struct {
	Total  int64            `json:"total"`
	ByMint map[string]int64 `json:"by_mint"`
	Unit   string           `json:"unit"`
}

// WalletService is the single authority over one identity's ledger.
type WalletService interface {
	Balance(ctx context.Context) (*WalletBalance, error)
	Mints(ctx context.Context) []string
	AddMint(ctx context.Context, mintURL string) error
	CreateToken(ctx context.Context, mintURL string, amount int64) (string, error)
	Receive(ctx context.Context, encoded string) (int64, error)
	Reconcile(ctx context.Context, mintURL string) (int64, error)
}

// InvoiceService drives the invoice lifecycle.
type InvoiceService interface {
	CreateMintInvoice(ctx context.Context, mintURL string, amount int64) (*domain.StoredInvoice, error)
	CreateMeltInvoice(ctx context.Context, mintURL, paymentRequest string) (*domain.StoredInvoice, error)
	PayMeltInvoice(ctx context.Context, id uuid.UUID) (*domain.StoredInvoice, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.StoredInvoice, error)
	List(ctx context.Context) ([]domain.StoredInvoice, error)
	Check(ctx context.Context, id uuid.UUID) (*domain.StoredInvoice, error)
	// Claim retries issuing proofs for a paid mint invoice.
	Claim(ctx context.Context, id uuid.UUID) (*domain.StoredInvoice, error)
	Watch(id uuid.UUID) error
	Unwatch(id uuid.UUID)
}

// BillingRequest is one inference call to fund.
type BillingRequest struct {
	Endpoint string // provider base URL
	Chat     ChatRequest
}

// BillingResult is a funded and reconciled inference call.
type BillingResult struct {
	Response     *ChatResponse
	PreAllocated int64
	Refunded     int64
	Spent        int64
	Warnings     []string
}

// BillingService funds inference calls and reconciles their cost.
type BillingService interface {
	Complete(ctx context.Context, req BillingRequest, onDelta DeltaFunc) (*BillingResult, error)
}

// ReportingService exposes history and totals.
type ReportingService interface {
	ListHistory(ctx context.Context, params HistoryListParams) ([]domain.HistoryEntry, int64, error)
	GetSummary(ctx context.Context, period string) (*HistoryStats, error)
}

// Session is the explicit store set of one logged-in identity.
type Session interface {
	ID() string
	Identity() string
	Wallet() WalletService
	Invoices() InvoiceService
	Billing() BillingService
	Reporting() ReportingService
	Events() EventSubscriber
}

// SessionManager creates and tears down per-identity sessions.
type SessionManager interface {
	Login(ctx context.Context, identity string) (string, time.Time, error)
	Logout(ctx context.Context, identity string) error
	Get(identity string) (Session, error)
}

// HealthChecker is a dependency checked by GET /health.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}

package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/internal/service"
	"ecash-billing-engine/pkg/apperror"

	"github.com/google/uuid"
)

// --- In-Memory Stores ---

// inMemoryStores hands out one store set per owner and keeps it across
// logins, like the postgres tables do.
type inMemoryStores struct {
	mu     sync.Mutex
	owners map[string]*ownerStores
	tokens func(owner string) ports.TokenCache
}

type ownerStores struct {
	proofs   *inMemoryProofRepo
	invoices *inMemoryInvoiceRepo
	history  *inMemoryHistoryRepo
	wallets  *inMemoryWalletRepo
}

func newInMemoryStores(tokens func(owner string) ports.TokenCache) *inMemoryStores {
	return &inMemoryStores{owners: make(map[string]*ownerStores), tokens: tokens}
}

func (s *inMemoryStores) factory(owner string) service.Stores {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.owners[owner]
	if !ok {
		o = &ownerStores{
			proofs:   newInMemoryProofRepo(),
			invoices: newInMemoryInvoiceRepo(),
			history:  &inMemoryHistoryRepo{},
			wallets:  &inMemoryWalletRepo{},
		}
		s.owners[owner] = o
	}
	return service.Stores{
		Proofs:   o.proofs,
		Invoices: o.invoices,
		History:  o.history,
		Wallets:  o.wallets,
		Tokens:   s.tokens(owner),
	}
}

// wipeLedger drops everything of owner except the wallet record, as if the
// engine was started on a new device holding the same wallet key.
func (s *inMemoryStores) wipeLedger(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.owners[owner]; ok {
		o.proofs = newInMemoryProofRepo()
		o.invoices = newInMemoryInvoiceRepo()
		o.history = &inMemoryHistoryRepo{}
	}
}

// --- In-Memory Proof Repo ---

type inMemoryProofRepo struct {
	mu      sync.RWMutex
	records map[domain.ProofKey]ports.ProofRecord
}

func newInMemoryProofRepo() *inMemoryProofRepo {
	return &inMemoryProofRepo{records: make(map[domain.ProofKey]ports.ProofRecord)}
}

func (r *inMemoryProofRepo) List(ctx context.Context) ([]ports.ProofRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ports.ProofRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, nil
}

func (r *inMemoryProofRepo) ApplyChange(ctx context.Context, change ports.ProofChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range change.Delete {
		delete(r.records, k)
	}
	for _, rec := range change.Put {
		r.records[rec.Proof.Key()] = rec
	}
	return nil
}

// --- In-Memory Invoice Repo ---

type inMemoryInvoiceRepo struct {
	mu       sync.RWMutex
	invoices map[uuid.UUID]domain.StoredInvoice
}

func newInMemoryInvoiceRepo() *inMemoryInvoiceRepo {
	return &inMemoryInvoiceRepo{invoices: make(map[uuid.UUID]domain.StoredInvoice)}
}

func (r *inMemoryInvoiceRepo) Create(ctx context.Context, inv *domain.StoredInvoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.invoices {
		if existing.MintURL == inv.MintURL && existing.QuoteID == inv.QuoteID {
			return fmt.Errorf("quote already exists")
		}
	}
	r.invoices[inv.ID] = *inv
	return nil
}

func (r *inMemoryInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.StoredInvoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r *inMemoryInvoiceRepo) GetByQuote(ctx context.Context, mintURL, quoteID string) (*domain.StoredInvoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inv := range r.invoices {
		if inv.MintURL == mintURL && inv.QuoteID == quoteID {
			out := inv
			return &out, nil
		}
	}
	return nil, nil
}

func (r *inMemoryInvoiceRepo) List(ctx context.Context) ([]domain.StoredInvoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.StoredInvoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemoryInvoiceRepo) Update(ctx context.Context, inv *domain.StoredInvoice, expected domain.InvoiceState) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.invoices[inv.ID]
	if !ok || cur.State != expected {
		return false, nil
	}
	r.invoices[inv.ID] = *inv
	return true, nil
}

func (r *inMemoryInvoiceRepo) Upsert(ctx context.Context, inv *domain.StoredInvoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.invoices[inv.ID]; ok && !inv.NewerThan(&cur) {
		return nil
	}
	r.invoices[inv.ID] = *inv
	return nil
}

func (r *inMemoryInvoiceRepo) Delete(ctx context.Context, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.invoices, id)
	}
	return nil
}

// --- In-Memory History Repo ---

type inMemoryHistoryRepo struct {
	mu      sync.RWMutex
	entries []domain.HistoryEntry
}

func (r *inMemoryHistoryRepo) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == entry.ID {
			return nil
		}
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *inMemoryHistoryRepo) List(ctx context.Context, params ports.HistoryListParams) ([]domain.HistoryEntry, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var filtered []domain.HistoryEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if params.Type != nil && e.Type != *params.Type {
			continue
		}
		if params.From != nil && e.Timestamp.Before(*params.From) {
			continue
		}
		if params.To != nil && e.Timestamp.After(*params.To) {
			continue
		}
		filtered = append(filtered, e)
	}

	total := int64(len(filtered))
	start := (params.Page - 1) * params.PageSize
	if start < 0 || start >= len(filtered) {
		return []domain.HistoryEntry{}, total, nil
	}
	end := start + params.PageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], total, nil
}

func (r *inMemoryHistoryRepo) GetStats(ctx context.Context, since *time.Time) (*ports.HistoryStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &ports.HistoryStats{}
	for _, e := range r.entries {
		if since != nil && e.Timestamp.Before(*since) {
			continue
		}
		stats.Entries++
		stats.TotalFees += e.Fee
		switch e.Type {
		case domain.HistoryTypeMint:
			stats.TotalMinted += e.Amount
		case domain.HistoryTypeMelt:
			stats.TotalMelted += e.Amount
		case domain.HistoryTypeSend:
			stats.TotalSent += e.Amount
		case domain.HistoryTypeReceive:
			stats.TotalReceived += e.Amount
		case domain.HistoryTypeSpent:
			stats.TotalSpent += e.Amount
		case domain.HistoryTypeRefund:
			stats.TotalRefunded += e.Amount
		}
	}
	return stats, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu    sync.RWMutex
	state *domain.WalletState
}

func (r *inMemoryWalletRepo) Get(ctx context.Context) (*domain.WalletState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state == nil {
		return nil, nil
	}
	s := *r.state
	s.Mints = append([]string(nil), r.state.Mints...)
	return &s, nil
}

func (r *inMemoryWalletRepo) Save(ctx context.Context, w *domain.WalletState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := *w
	s.Mints = append([]string(nil), w.Mints...)
	r.state = &s
	return nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.RWMutex
	entries []domain.AuditLog
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *inMemoryAuditRepo) count(action domain.AuditAction) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

// --- Fake Mint ---

const testKeyset = "00ad268c4d1f5826"

type fakeQuote struct {
	amount int64
	state  ports.QuoteState
	expiry time.Time
	pr     string
}

// fakeMint is an in-process, fee-free mint. Proofs carry random secrets and
// the mint tracks which ones were spent.
type fakeMint struct {
	mu         sync.Mutex
	spent      map[string]bool
	mintQuotes map[string]*fakeQuote
	meltQuotes map[string]*fakeQuote
}

func newFakeMint() *fakeMint {
	return &fakeMint{
		spent:      make(map[string]bool),
		mintQuotes: make(map[string]*fakeQuote),
		meltQuotes: make(map[string]*fakeQuote),
	}
}

// issue must be called with mu held.
func (m *fakeMint) issue(amount int64) domain.Proofs {
	var out domain.Proofs
	for _, a := range domain.SplitAmount(amount) {
		secret := uuid.NewString()
		m.spent[secret] = false
		out = append(out, domain.Proof{ID: testKeyset, Amount: a, Secret: secret, C: "02" + secret[:8]})
	}
	return out
}

// issueToken mints fresh proofs outside of any wallet, e.g. for a provider
// refund.
func (m *fakeMint) issueToken(mintURL string, amount int64) (string, error) {
	m.mu.Lock()
	proofs := m.issue(amount)
	m.mu.Unlock()
	return domain.Token{MintURL: mintURL, Unit: "sat", Proofs: proofs}.Encode()
}

// redeem spends every proof of an encoded token and returns its value.
func (m *fakeMint) redeem(encoded string) (int64, error) {
	tok, err := domain.DecodeToken(encoded)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.spend(tok.Proofs); err != nil {
		return 0, err
	}
	return tok.Amount(), nil
}

func (m *fakeMint) pay(quoteID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.mintQuotes[quoteID]; ok {
		q.state = ports.QuoteStatePaid
	}
}

func (m *fakeMint) spend(inputs domain.Proofs) error {
	for _, p := range inputs {
		spent, ok := m.spent[p.Secret]
		if !ok {
			return apperror.ErrMintRejected("unknown proof")
		}
		if spent {
			return apperror.ErrAlreadySpent(fmt.Errorf("proof %s", p.Secret[:8]))
		}
	}
	for _, p := range inputs {
		m.spent[p.Secret] = true
	}
	return nil
}

func (m *fakeMint) GetKeysets(ctx context.Context, mintURL string) ([]domain.Keyset, error) {
	return []domain.Keyset{{ID: testKeyset, Unit: "sat", Active: true}}, nil
}

func (m *fakeMint) CreateMintQuote(ctx context.Context, mintURL string, amount int64) (*ports.MintQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	q := &fakeQuote{amount: amount, state: ports.QuoteStateUnpaid, expiry: time.Now().Add(time.Hour), pr: fmt.Sprintf("lnbc%dn1fake", amount)}
	m.mintQuotes[id] = q
	return &ports.MintQuote{QuoteID: id, PaymentRequest: q.pr, Amount: amount, State: q.state, Expiry: &q.expiry}, nil
}

func (m *fakeMint) CheckMintQuote(ctx context.Context, mintURL, quoteID string) (*ports.MintQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.mintQuotes[quoteID]
	if !ok {
		return nil, apperror.ErrMintRejected("unknown quote")
	}
	return &ports.MintQuote{QuoteID: quoteID, PaymentRequest: q.pr, Amount: q.amount, State: q.state, Expiry: &q.expiry}, nil
}

func (m *fakeMint) MintProofs(ctx context.Context, mintURL, quoteID string, amount int64) (domain.Proofs, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.mintQuotes[quoteID]
	if !ok {
		return nil, apperror.ErrMintRejected("unknown quote")
	}
	switch q.state {
	case ports.QuoteStateIssued:
		return nil, apperror.ErrQuoteAlreadyIssued()
	case ports.QuoteStatePaid:
	default:
		return nil, apperror.ErrQuoteNotPaid()
	}
	q.state = ports.QuoteStateIssued
	return m.issue(amount), nil
}

func (m *fakeMint) CreateMeltQuote(ctx context.Context, mintURL, paymentRequest string) (*ports.MeltQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var amount int64
	if _, err := fmt.Sscanf(paymentRequest, "lnbc%dn", &amount); err != nil || amount <= 0 {
		return nil, apperror.ErrMintRejected("bad payment request")
	}
	id := uuid.NewString()
	q := &fakeQuote{amount: amount, state: ports.QuoteStateUnpaid, expiry: time.Now().Add(time.Hour), pr: paymentRequest}
	m.meltQuotes[id] = q
	return &ports.MeltQuote{QuoteID: id, Amount: amount, State: q.state, Expiry: &q.expiry}, nil
}

func (m *fakeMint) CheckMeltQuote(ctx context.Context, mintURL, quoteID string) (*ports.MeltQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.meltQuotes[quoteID]
	if !ok {
		return nil, apperror.ErrMintRejected("unknown quote")
	}
	return &ports.MeltQuote{QuoteID: quoteID, Amount: q.amount, State: q.state, Expiry: &q.expiry}, nil
}

func (m *fakeMint) MeltProofs(ctx context.Context, mintURL, quoteID string, inputs domain.Proofs) (*ports.MeltResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.meltQuotes[quoteID]
	if !ok {
		return nil, apperror.ErrMintRejected("unknown quote")
	}
	if inputs.Sum() < q.amount {
		return nil, apperror.ErrMintRejected("inputs do not cover quote")
	}
	if err := m.spend(inputs); err != nil {
		return nil, err
	}
	q.state = ports.QuoteStatePaid
	return &ports.MeltResult{State: ports.QuoteStatePaid, Preimage: "00ff", Change: m.issue(inputs.Sum() - q.amount)}, nil
}

// MeltChange has nothing to collect: melts here settle at once and return
// their change directly.
func (m *fakeMint) MeltChange(ctx context.Context, mintURL, quoteID string, blanks []domain.BlankOutput) (*ports.MeltResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.meltQuotes[quoteID]
	if !ok {
		return nil, apperror.ErrMintRejected("unknown quote")
	}
	return &ports.MeltResult{State: q.state}, nil
}

func (m *fakeMint) Swap(ctx context.Context, mintURL string, inputs domain.Proofs, sendAmount int64) (*ports.SwapResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inputs.Sum() < sendAmount {
		return nil, apperror.ErrMintRejected("inputs do not cover outputs")
	}
	if err := m.spend(inputs); err != nil {
		return nil, err
	}
	return &ports.SwapResult{Send: m.issue(sendAmount), Keep: m.issue(inputs.Sum() - sendAmount)}, nil
}

func (m *fakeMint) CheckProofStates(ctx context.Context, mintURL string, proofs domain.Proofs) ([]domain.ProofStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ProofStatus, 0, len(proofs))
	for _, p := range proofs {
		st := domain.ProofStateUnspent
		if m.spent[p.Secret] {
			st = domain.ProofStateSpent
		}
		out = append(out, domain.ProofStatus{Proof: p, State: st})
	}
	return out, nil
}

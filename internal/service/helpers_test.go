package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testMint   = "https://mint.test"
	testKeyset = "00ad268c4d1f5826"
)

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// ---- in-memory repositories ----

type memProofRepo struct {
	mu      sync.Mutex
	records map[domain.ProofKey]ports.ProofRecord
	failErr error
	writes  int
}

func newMemProofRepo() *memProofRepo {
	return &memProofRepo{records: make(map[domain.ProofKey]ports.ProofRecord)}
}

func (r *memProofRepo) List(_ context.Context) ([]ports.ProofRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.ProofRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, nil
}

func (r *memProofRepo) ApplyChange(ctx context.Context, change ports.ProofChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.failErr != nil {
		return r.failErr
	}
	r.writes++
	for _, k := range change.Delete {
		delete(r.records, k)
	}
	for _, rec := range change.Put {
		r.records[rec.Proof.Key()] = rec
	}
	return nil
}

func (r *memProofRepo) sum() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, rec := range r.records {
		total += rec.Proof.Amount
	}
	return total
}

type memInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]domain.StoredInvoice
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{invoices: make(map[uuid.UUID]domain.StoredInvoice)}
}

func (r *memInvoiceRepo) Create(_ context.Context, inv *domain.StoredInvoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[inv.ID]; ok {
		return fmt.Errorf("duplicate invoice %s", inv.ID)
	}
	r.invoices[inv.ID] = *inv
	return nil
}

func (r *memInvoiceRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.StoredInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r *memInvoiceRepo) GetByQuote(_ context.Context, mintURL, quoteID string) (*domain.StoredInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.MintURL == mintURL && inv.QuoteID == quoteID {
			out := inv
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memInvoiceRepo) List(_ context.Context) ([]domain.StoredInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.StoredInvoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memInvoiceRepo) Update(_ context.Context, inv *domain.StoredInvoice, expected domain.InvoiceState) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.invoices[inv.ID]
	if !ok || cur.State != expected {
		return false, nil
	}
	r.invoices[inv.ID] = *inv
	return true, nil
}

func (r *memInvoiceRepo) Upsert(_ context.Context, inv *domain.StoredInvoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.invoices[inv.ID]; ok && !inv.NewerThan(&cur) {
		return nil
	}
	r.invoices[inv.ID] = *inv
	return nil
}

func (r *memInvoiceRepo) Delete(_ context.Context, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.invoices, id)
	}
	return nil
}

func (r *memInvoiceRepo) put(inv domain.StoredInvoice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[inv.ID] = inv
}

func (r *memInvoiceRepo) state(id uuid.UUID) domain.InvoiceState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invoices[id].State
}

type memHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
}

func (r *memHistoryRepo) Append(_ context.Context, entry *domain.HistoryEntry) error {
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

func (r *memHistoryRepo) List(_ context.Context, params ports.HistoryListParams) ([]domain.HistoryEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.HistoryEntry
	for _, e := range r.entries {
		if params.Type != nil && e.Type != *params.Type {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (r *memHistoryRepo) GetStats(_ context.Context, _ *time.Time) (*ports.HistoryStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &ports.HistoryStats{Entries: int64(len(r.entries))}
	for _, e := range r.entries {
		stats.TotalFees += e.Fee
	}
	return stats, nil
}

func (r *memHistoryRepo) ofType(t domain.HistoryType) []domain.HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.HistoryEntry
	for _, e := range r.entries {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type memWalletRepo struct {
	mu    sync.Mutex
	state *domain.WalletState
}

func (r *memWalletRepo) Get(_ context.Context) (*domain.WalletState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return nil, nil
	}
	s := *r.state
	s.Mints = append([]string(nil), r.state.Mints...)
	return &s, nil
}

func (r *memWalletRepo) Save(_ context.Context, w *domain.WalletState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := *w
	s.Mints = append([]string(nil), w.Mints...)
	r.state = &s
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(e domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) ofType(t domain.EventType) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

// ---- fake mint ----

type fakeQuote struct {
	amount  int64
	reserve int64
	state   ports.QuoteState
	expiry  *time.Time
	pr      string

	// pending melts
	owed   int64
	blanks int
	change domain.Proofs
}

// fakeMint is an in-process mint: it issues proofs with random secrets,
// tracks their spent state and charges input fees per its keyset.
type fakeMint struct {
	mu          sync.Mutex
	ppk         int64
	meltFee     int64 // actual Lightning fee charged out of the reserve
	meltPending bool
	unreachable bool
	spent       map[string]domain.ProofState
	mintQuotes  map[string]*fakeQuote
	meltQuotes  map[string]*fakeQuote
	swaps       int
	checks      int
}

func newFakeMint(ppk int64) *fakeMint {
	return &fakeMint{
		ppk:        ppk,
		spent:      make(map[string]domain.ProofState),
		mintQuotes: make(map[string]*fakeQuote),
		meltQuotes: make(map[string]*fakeQuote),
	}
}

func (m *fakeMint) issue(amounts ...int64) domain.Proofs {
	out := make(domain.Proofs, 0, len(amounts))
	for _, a := range amounts {
		secret := uuid.NewString()
		m.spent[secret] = domain.ProofStateUnspent
		out = append(out, domain.Proof{ID: testKeyset, Amount: a, Secret: secret, C: "02" + secret[:8]})
	}
	return out
}

func (m *fakeMint) issueSplit(amount int64) domain.Proofs {
	return m.issue(domain.SplitAmount(amount)...)
}

func (m *fakeMint) inputFee(ps domain.Proofs) int64 {
	return (int64(len(ps))*m.ppk + 999) / 1000
}

func (m *fakeMint) spend(inputs domain.Proofs) error {
	for _, p := range inputs {
		st, ok := m.spent[p.Secret]
		if !ok {
			return apperror.ErrMintRejected("unknown proof")
		}
		if st != domain.ProofStateUnspent {
			return apperror.ErrAlreadySpent(fmt.Errorf("proof %s", prefix(p.Secret)))
		}
	}
	for _, p := range inputs {
		m.spent[p.Secret] = domain.ProofStateSpent
	}
	return nil
}

func (m *fakeMint) markSpent(ps domain.Proofs) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range ps {
		m.spent[p.Secret] = domain.ProofStateSpent
	}
}

func (m *fakeMint) pay(quoteID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.mintQuotes[quoteID]; ok {
		q.state = ports.QuoteStatePaid
	}
	if q, ok := m.meltQuotes[quoteID]; ok {
		q.state = ports.QuoteStatePaid
	}
}

func (m *fakeMint) setUnreachable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unreachable = v
}

func (m *fakeMint) down() error {
	if m.unreachable {
		return apperror.ErrMintUnavailable(fmt.Errorf("connection refused"))
	}
	return nil
}

func (m *fakeMint) GetKeysets(_ context.Context, _ string) ([]domain.Keyset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	return []domain.Keyset{{ID: testKeyset, Unit: "sat", Active: true, InputFeePpk: m.ppk}}, nil
}

func (m *fakeMint) CreateMintQuote(_ context.Context, _ string, amount int64) (*ports.MintQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	expiry := time.Now().Add(time.Hour)
	q := &fakeQuote{amount: amount, state: ports.QuoteStateUnpaid, expiry: &expiry, pr: fmt.Sprintf("lnbc%dn1test", amount)}
	m.mintQuotes[id] = q
	return &ports.MintQuote{QuoteID: id, PaymentRequest: q.pr, Amount: amount, State: q.state, Expiry: q.expiry}, nil
}

func (m *fakeMint) CheckMintQuote(_ context.Context, _, quoteID string) (*ports.MintQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks++
	if err := m.down(); err != nil {
		return nil, err
	}
	q, ok := m.mintQuotes[quoteID]
	if !ok {
		return nil, apperror.ErrMintRejected("unknown quote")
	}
	return &ports.MintQuote{QuoteID: quoteID, PaymentRequest: q.pr, Amount: q.amount, State: q.state, Expiry: q.expiry}, nil
}

func (m *fakeMint) MintProofs(_ context.Context, _, quoteID string, amount int64) (domain.Proofs, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
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
	return m.issueSplit(amount), nil
}

func (m *fakeMint) CreateMeltQuote(_ context.Context, _, paymentRequest string) (*ports.MeltQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	var amount int64
	if _, err := fmt.Sscanf(paymentRequest, "lnbc%d", &amount); err != nil || amount <= 0 {
		return nil, apperror.ErrMintRejected("bad payment request")
	}
	id := uuid.NewString()
	expiry := time.Now().Add(time.Hour)
	q := &fakeQuote{amount: amount, reserve: 2, state: ports.QuoteStateUnpaid, expiry: &expiry, pr: paymentRequest}
	m.meltQuotes[id] = q
	return &ports.MeltQuote{QuoteID: id, Amount: amount, FeeReserve: q.reserve, State: q.state, Expiry: q.expiry}, nil
}

func (m *fakeMint) CheckMeltQuote(_ context.Context, _, quoteID string) (*ports.MeltQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks++
	if err := m.down(); err != nil {
		return nil, err
	}
	q, ok := m.meltQuotes[quoteID]
	if !ok {
		return nil, apperror.ErrMintRejected("unknown quote")
	}
	return &ports.MeltQuote{QuoteID: quoteID, Amount: q.amount, FeeReserve: q.reserve, State: q.state, Expiry: q.expiry}, nil
}

func (m *fakeMint) MeltProofs(_ context.Context, _, quoteID string, inputs domain.Proofs) (*ports.MeltResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	q, ok := m.meltQuotes[quoteID]
	if !ok {
		return nil, apperror.ErrMintRejected("unknown quote")
	}
	if q.state == ports.QuoteStatePaid {
		return nil, apperror.ErrMintRejected("quote already paid")
	}
	if inputs.Sum()-m.inputFee(inputs) < q.amount+q.reserve {
		return nil, apperror.ErrMintRejected("inputs do not cover quote")
	}
	if m.meltPending {
		for _, p := range inputs {
			if m.spent[p.Secret] != domain.ProofStateUnspent {
				return nil, apperror.ErrAlreadySpent(fmt.Errorf("proof %s", prefix(p.Secret)))
			}
			m.spent[p.Secret] = domain.ProofStatePending
		}
		q.state = ports.QuoteStatePending
		q.owed = inputs.Sum() - m.inputFee(inputs) - q.amount - m.meltFee
		blanks := make([]domain.BlankOutput, 0, 4)
		for i := 0; i < 4; i++ {
			blanks = append(blanks, domain.BlankOutput{KeysetID: testKeyset, Secret: uuid.NewString(), R: "01"})
		}
		q.blanks = len(blanks)
		return &ports.MeltResult{State: ports.QuoteStatePending, Blanks: blanks}, nil
	}
	if err := m.spend(inputs); err != nil {
		return nil, err
	}
	q.state = ports.QuoteStatePaid
	change := inputs.Sum() - m.inputFee(inputs) - q.amount - m.meltFee
	return &ports.MeltResult{State: ports.QuoteStatePaid, Preimage: "00ff", Change: m.issueSplit(change)}, nil
}

// settleMelt completes a pending melt and signs its change.
func (m *fakeMint) settleMelt(quoteID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for s, st := range m.spent {
		if st == domain.ProofStatePending {
			m.spent[s] = domain.ProofStateSpent
		}
	}
	q := m.meltQuotes[quoteID]
	q.state = ports.QuoteStatePaid
	if q.owed > 0 {
		q.change = m.issueSplit(q.owed)
	}
}

// MeltChange returns the same change on every call once the melt settled.
func (m *fakeMint) MeltChange(_ context.Context, _, quoteID string, blanks []domain.BlankOutput) (*ports.MeltResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	q, ok := m.meltQuotes[quoteID]
	if !ok {
		return nil, apperror.ErrMintRejected("unknown quote")
	}
	if q.state != ports.QuoteStatePaid {
		return &ports.MeltResult{State: q.state}, nil
	}
	if len(blanks) != q.blanks {
		return nil, apperror.ErrMintRejected("blank outputs do not match")
	}
	return &ports.MeltResult{State: ports.QuoteStatePaid, Preimage: "00ff", Change: append(domain.Proofs{}, q.change...)}, nil
}

func (m *fakeMint) Swap(_ context.Context, _ string, inputs domain.Proofs, sendAmount int64) (*ports.SwapResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	total := inputs.Sum() - m.inputFee(inputs)
	if total < sendAmount {
		return nil, apperror.ErrMintRejected("inputs do not cover outputs")
	}
	if err := m.spend(inputs); err != nil {
		return nil, err
	}
	m.swaps++
	return &ports.SwapResult{Send: m.issueSplit(sendAmount), Keep: m.issueSplit(total - sendAmount)}, nil
}

func (m *fakeMint) CheckProofStates(_ context.Context, _ string, proofs domain.Proofs) ([]domain.ProofStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.down(); err != nil {
		return nil, err
	}
	out := make([]domain.ProofStatus, 0, len(proofs))
	for _, p := range proofs {
		st, ok := m.spent[p.Secret]
		if !ok {
			st = domain.ProofStateUnspent
		}
		out = append(out, domain.ProofStatus{Proof: p, State: st})
	}
	return out, nil
}

// hangUpMint cancels the caller's context as soon as the mint has moved
// value, like a client disconnecting mid-request.
type hangUpMint struct {
	*fakeMint
	cancel context.CancelFunc
}

func (m *hangUpMint) MintProofs(ctx context.Context, mintURL, quoteID string, amount int64) (domain.Proofs, error) {
	proofs, err := m.fakeMint.MintProofs(ctx, mintURL, quoteID, amount)
	m.cancel()
	return proofs, err
}

func (m *hangUpMint) MeltProofs(ctx context.Context, mintURL, quoteID string, inputs domain.Proofs) (*ports.MeltResult, error) {
	res, err := m.fakeMint.MeltProofs(ctx, mintURL, quoteID, inputs)
	m.cancel()
	return res, err
}

// ---- wiring ----

type walletFixture struct {
	wallet  *WalletService
	ledger  *ProofLedger
	mint    *fakeMint
	proofs  *memProofRepo
	history *memHistoryRepo
	wallets *memWalletRepo
	events  *recordingPublisher
}

func newWalletFixture(t *testing.T, ppk int64) *walletFixture {
	t.Helper()
	f := &walletFixture{
		mint:    newFakeMint(ppk),
		proofs:  newMemProofRepo(),
		history: &memHistoryRepo{},
		wallets: &memWalletRepo{},
		events:  &recordingPublisher{},
	}
	f.ledger = NewProofLedger(f.proofs, newTestLogger())
	f.wallet = NewWalletService(
		"alice",
		WalletConfig{Unit: "sat", DefaultMint: testMint},
		f.ledger,
		NewSelector(100, 100_000),
		f.mint,
		f.history,
		f.wallets,
		f.events,
		nil,
		newTestLogger(),
	)
	require.NoError(t, f.wallet.Load(context.Background()))
	return f
}

// fund puts freshly issued proofs of the given amounts into the ledger.
func (f *walletFixture) fund(t *testing.T, amounts ...int64) domain.Proofs {
	t.Helper()
	f.mint.mu.Lock()
	proofs := f.mint.issue(amounts...)
	f.mint.mu.Unlock()
	_, err := f.ledger.AddProofs(context.Background(), testMint, proofs, uuid.NewString())
	require.NoError(t, err)
	return proofs
}

func amountsOf(ps domain.Proofs) []int64 {
	out := make([]int64, 0, len(ps))
	for _, p := range ps.SortedByAmount() {
		out = append(out, p.Amount)
	}
	return out
}

func proofsOf(amounts ...int64) domain.Proofs {
	out := make(domain.Proofs, 0, len(amounts))
	for i, a := range amounts {
		out = append(out, domain.Proof{ID: testKeyset, Amount: a, Secret: fmt.Sprintf("s%03d", i), C: "02c"})
	}
	return out
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const cleanupTaskKey = "invoice-cleanup"

// InvoiceConfig holds polling, retention and recovery settings.
type InvoiceConfig struct {
	PollInterval     time.Duration
	FastPollInterval time.Duration
	MaxBackoff       time.Duration
	CheckLockTTL     time.Duration
	CleanupInterval  time.Duration
	RecoveryWorkers  int
	Retention        domain.Retention
}

// InvoiceService is the lifecycle manager of one identity's invoices. An
// invoice is persisted UNPAID before anything else happens, and PAID is
// persisted before proofs are claimed, so recovery can always resume.
type InvoiceService struct {
	owner  string
	cfg    InvoiceConfig
	repo   ports.InvoiceRepository
	mint   ports.MintGateway
	wallet *WalletService
	locker ports.CheckLocker
	events ports.EventPublisher
	audit  ports.AuditService
	sched  *Scheduler
	retry  RetryPolicy // polls never give up; only the delay grows
	flight singleflight.Group
	log    zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	watched  map[uuid.UUID]struct{}
	failures map[uuid.UUID]int
	onChange func()
}

// NewInvoiceService wires the lifecycle manager. locker may be nil when only
// one process serves the identity.
func NewInvoiceService(
	owner string,
	cfg InvoiceConfig,
	repo ports.InvoiceRepository,
	mint ports.MintGateway,
	wallet *WalletService,
	locker ports.CheckLocker,
	events ports.EventPublisher,
	audit ports.AuditService,
	log zerolog.Logger,
) *InvoiceService {
	if cfg.RecoveryWorkers <= 0 {
		cfg.RecoveryWorkers = 4
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Minute
	}
	return &InvoiceService{
		owner:    owner,
		cfg:      cfg,
		repo:     repo,
		mint:     mint,
		wallet:   wallet,
		locker:   locker,
		events:   events,
		audit:    audit,
		sched:    NewScheduler(log),
		retry:    RetryPolicy{Backoff: ExponentialBackoff(pollBackoffBase, cfg.MaxBackoff)},
		log:      log,
		now:      time.Now,
		watched:  make(map[uuid.UUID]struct{}),
		failures: make(map[uuid.UUID]int),
	}
}

// OnChange registers a hook run after every durable invoice change, used to
// trigger the backup mirror.
func (s *InvoiceService) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Start recovers pending invoices and schedules periodic cleanup.
func (s *InvoiceService) Start(ctx context.Context) error {
	if err := s.Recover(ctx); err != nil {
		return err
	}
	if s.cfg.CleanupInterval > 0 {
		s.sched.Schedule(cleanupTaskKey, s.cfg.CleanupInterval, func(ctx context.Context) (time.Duration, bool) {
			if _, err := s.Cleanup(ctx); err != nil {
				s.log.Warn().Err(err).Msg("invoice cleanup failed")
			}
			return s.cfg.CleanupInterval, false
		})
	}
	return nil
}

// Close cancels every polling task.
func (s *InvoiceService) Close() {
	s.sched.Close()
}

// CreateMintInvoice requests a mint quote and persists it UNPAID before
// returning the payment request.
func (s *InvoiceService) CreateMintInvoice(ctx context.Context, mintURL string, amount int64) (*domain.StoredInvoice, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	mintURL, err := s.wallet.resolveMint(mintURL)
	if err != nil {
		return nil, err
	}

	quote, err := s.mint.CreateMintQuote(ctx, mintURL, amount)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	inv := &domain.StoredInvoice{
		ID:             uuid.New(),
		Kind:           domain.InvoiceKindMint,
		MintURL:        mintURL,
		QuoteID:        quote.QuoteID,
		PaymentRequest: quote.PaymentRequest,
		Amount:         amount,
		State:          domain.InvoiceStateUnpaid,
		CreatedAt:      now,
		ExpiresAt:      quote.Expiry,
		UpdatedAt:      now,
	}
	if err := s.create(ctx, inv); err != nil {
		return nil, err
	}

	s.log.Info().Str("invoice_id", inv.ID.String()).Str("quote_id", inv.QuoteID).Int64("amount", amount).Msg("mint invoice created")
	s.schedule(inv, s.cfg.PollInterval)
	return inv, nil
}

// CreateMeltInvoice requests a melt quote for an outgoing payment and
// persists it UNPAID. Nothing is spent until PayMeltInvoice.
func (s *InvoiceService) CreateMeltInvoice(ctx context.Context, mintURL, paymentRequest string) (*domain.StoredInvoice, error) {
	if paymentRequest == "" {
		return nil, apperror.Validation("payment request is required")
	}
	mintURL, err := s.wallet.resolveMint(mintURL)
	if err != nil {
		return nil, err
	}

	quote, err := s.mint.CreateMeltQuote(ctx, mintURL, paymentRequest)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	reserve := quote.FeeReserve
	inv := &domain.StoredInvoice{
		ID:             uuid.New(),
		Kind:           domain.InvoiceKindMelt,
		MintURL:        mintURL,
		QuoteID:        quote.QuoteID,
		PaymentRequest: paymentRequest,
		Amount:         quote.Amount,
		State:          domain.InvoiceStateUnpaid,
		Fee:            &reserve,
		CreatedAt:      now,
		ExpiresAt:      quote.Expiry,
		UpdatedAt:      now,
	}
	if err := s.create(ctx, inv); err != nil {
		return nil, err
	}

	s.log.Info().Str("invoice_id", inv.ID.String()).Str("quote_id", inv.QuoteID).Int64("amount", inv.Amount).Msg("melt invoice created")
	return inv, nil
}

// PayMeltInvoice pays a melt invoice from the ledger. Paying an invoice that
// is already PAID is a no-op.
func (s *InvoiceService) PayMeltInvoice(ctx context.Context, id uuid.UUID) (*domain.StoredInvoice, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Kind != domain.InvoiceKindMelt {
		return nil, apperror.Validation("invoice is not a melt invoice")
	}
	switch inv.State {
	case domain.InvoiceStatePaid:
		return inv, nil
	case domain.InvoiceStateExpired:
		return nil, apperror.ErrQuoteExpired()
	}

	// The mint is asked before the local clock: a crash after the mint
	// settled but before PAID was stored leaves the quote paid there, and
	// such a quote is neither expired nor paid twice.
	q, qerr := s.mint.CheckMeltQuote(ctx, inv.MintURL, inv.QuoteID)
	if qerr == nil {
		switch q.State {
		case ports.QuoteStatePaid:
			return s.settleMelt(ctx, inv)
		case ports.QuoteStatePending:
			s.watchMelt(inv)
			return inv, nil
		}
	}
	if inv.IsExpired(s.now()) {
		if qerr == nil && q.State == ports.QuoteStateUnpaid {
			if _, err := s.advance(ctx, inv, domain.InvoiceStateExpired); err != nil {
				return nil, err
			}
		}
		return nil, apperror.ErrQuoteExpired()
	}

	var reserve int64
	if inv.Fee != nil {
		reserve = *inv.Fee
	}
	outcome, err := s.wallet.PayMelt(ctx, inv.MintURL, &ports.MeltQuote{
		QuoteID:    inv.QuoteID,
		Amount:     inv.Amount,
		FeeReserve: reserve,
	})
	if err != nil {
		s.auditLog(ctx, domain.AuditActionMelt, inv, map[string]any{"error": err.Error()})
		return nil, err
	}

	if outcome.State != ports.QuoteStatePaid {
		s.log.Info().Str("invoice_id", inv.ID.String()).Str("state", string(outcome.State)).Msg("melt pending at mint")
		if len(outcome.Blanks) > 0 {
			// Without these the change of the reserve is unrecoverable.
			prev := inv.State
			inv.ChangeOutputs = outcome.Blanks
			inv.UpdatedAt = s.now().UTC()
			if _, err := s.repo.Update(context.WithoutCancel(ctx), inv, prev); err != nil {
				s.log.Error().Err(err).Str("invoice_id", inv.ID.String()).Msg("storing melt change outputs failed")
			} else {
				s.changed()
			}
		}
		s.watchMelt(inv)
		return inv, nil
	}

	fee := outcome.Fee
	inv.Fee = &fee
	return s.advance(context.WithoutCancel(ctx), inv, domain.InvoiceStatePaid)
}

// settleMelt credits a melt the mint reports paid, then stores it PAID. The
// invoice stays UNPAID while its change cannot be collected, so polling
// retries the settlement.
func (s *InvoiceService) settleMelt(ctx context.Context, inv *domain.StoredInvoice) (*domain.StoredInvoice, error) {
	fee, settled, err := s.wallet.SettlePendingMelt(ctx, inv)
	if err != nil {
		s.log.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("settling melt failed")
		return inv, err
	}
	if settled {
		inv.Fee = &fee
	}
	return s.advance(context.WithoutCancel(ctx), inv, domain.InvoiceStatePaid)
}

// watchMelt polls a melt the payer is waiting on at the fast interval.
func (s *InvoiceService) watchMelt(inv *domain.StoredInvoice) {
	s.mu.Lock()
	s.watched[inv.ID] = struct{}{}
	s.mu.Unlock()
	s.schedule(inv, s.cfg.FastPollInterval)
}

// Get returns one invoice.
func (s *InvoiceService) Get(ctx context.Context, id uuid.UUID) (*domain.StoredInvoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if inv == nil {
		return nil, apperror.ErrInvoiceNotFound(id.String())
	}
	return inv, nil
}

// List returns every stored invoice. Malformed records are skipped.
func (s *InvoiceService) List(ctx context.Context) ([]domain.StoredInvoice, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	out := make([]domain.StoredInvoice, 0, len(all))
	for i := range all {
		if err := all[i].Validate(); err != nil {
			s.log.Warn().Err(err).Str("invoice_id", all[i].ID.String()).Msg("discarding malformed invoice")
			continue
		}
		out = append(out, all[i])
	}
	return out, nil
}

// Check queries the mint for one invoice now and applies any transition.
func (s *InvoiceService) Check(ctx context.Context, id uuid.UUID) (*domain.StoredInvoice, error) {
	return s.checkInvoice(ctx, id)
}

// Claim retries issuing proofs for a PAID mint invoice.
func (s *InvoiceService) Claim(ctx context.Context, id uuid.UUID) (*domain.StoredInvoice, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.State == domain.InvoiceStateIssued {
		return inv, nil
	}
	if !inv.NeedsClaim() {
		return nil, apperror.ErrQuoteNotPaid()
	}
	return s.claim(ctx, inv)
}

// Watch polls id at the fast interval until Unwatch.
func (s *InvoiceService) Watch(id uuid.UUID) error {
	inv, err := s.Get(context.Background(), id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.watched[id] = struct{}{}
	s.mu.Unlock()

	if inv.IsTerminal() {
		return nil
	}
	if !s.schedule(inv, 0) {
		s.sched.Wake(id.String())
	}
	return nil
}

// Unwatch returns id to the baseline interval.
func (s *InvoiceService) Unwatch(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watched, id)
}

// Recover re-checks every non-terminal invoice, claims paid ones, expires
// lapsed ones and resumes polling for the rest. Running it twice changes
// nothing the second time.
func (s *InvoiceService) Recover(ctx context.Context) error {
	all, err := s.List(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.RecoveryWorkers)
	pending := 0
	for i := range all {
		inv := all[i]
		if inv.IsTerminal() {
			continue
		}
		pending++
		g.Go(func() error {
			checked, err := s.checkInvoice(gctx, inv.ID)
			if err != nil {
				s.log.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("recovery check failed, will poll")
				checked = &inv
			}
			if !checked.IsTerminal() {
				s.schedule(checked, s.cfg.PollInterval)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info().Int("invoices", len(all)).Int("pending", pending).Msg("invoice recovery finished")
	return nil
}

// Cleanup purges invoices past their retention window and returns how many
// were removed.
func (s *InvoiceService) Cleanup(ctx context.Context) (int, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return 0, apperror.ErrDatabaseError(err)
	}

	now := s.now()
	var ids []uuid.UUID
	for i := range all {
		if all[i].Validate() != nil {
			ids = append(ids, all[i].ID)
			continue
		}
		if at, ok := all[i].PurgeAfter(s.cfg.Retention, now); ok && now.After(at) {
			ids = append(ids, all[i].ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.repo.Delete(ctx, ids); err != nil {
		return 0, apperror.ErrDatabaseError(err)
	}
	for _, id := range ids {
		s.sched.Cancel(id.String())
	}

	s.log.Info().Int("purged", len(ids)).Msg("invoices purged")
	s.changed()
	return len(ids), nil
}

// MergeRemote folds invoices from the backup mirror into the local store. A
// remote copy wins only if it is newer and never lowers a state.
func (s *InvoiceService) MergeRemote(ctx context.Context, remote []domain.StoredInvoice) (int, error) {
	merged := 0
	for i := range remote {
		r := remote[i]
		if err := r.Validate(); err != nil {
			s.log.Warn().Err(err).Msg("discarding malformed remote invoice")
			continue
		}
		if at, ok := r.PurgeAfter(s.cfg.Retention, s.now()); ok && s.now().After(at) {
			continue
		}
		local, err := s.repo.GetByID(ctx, r.ID)
		if err != nil {
			return merged, apperror.ErrDatabaseError(err)
		}
		if local != nil && !r.NewerThan(local) {
			continue
		}
		if err := s.repo.Upsert(ctx, &r); err != nil {
			return merged, apperror.ErrDatabaseError(err)
		}
		merged++
		if !r.IsTerminal() {
			s.schedule(&r, s.cfg.PollInterval)
		}
	}
	if merged > 0 {
		s.log.Info().Int("merged", merged).Msg("remote invoices merged")
	}
	return merged, nil
}

// checkInvoice runs at most one check per invoice at a time: concurrent
// callers in this process share the in-flight result, and the optional
// locker keeps other processes out. The shared check runs detached from the
// caller that started it; a caller giving up only stops waiting.
func (s *InvoiceService) checkInvoice(ctx context.Context, id uuid.UUID) (*domain.StoredInvoice, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(id.String(), func() (interface{}, error) {
		ctx := detached
		if s.locker != nil {
			ok, err := s.locker.Acquire(ctx, id.String(), s.cfg.CheckLockTTL)
			if err != nil {
				s.log.Warn().Err(err).Str("invoice_id", id.String()).Msg("check lock unavailable, checking anyway")
			} else if !ok {
				return s.Get(ctx, id)
			} else {
				defer func() {
					if err := s.locker.Release(context.Background(), id.String()); err != nil {
						s.log.Warn().Err(err).Str("invoice_id", id.String()).Msg("check lock release failed")
					}
				}()
			}
		}
		return s.checkOnce(ctx, id)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.StoredInvoice), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *InvoiceService) checkOnce(ctx context.Context, id uuid.UUID) (*domain.StoredInvoice, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.IsTerminal() {
		return inv, nil
	}
	if inv.NeedsClaim() {
		return s.claim(ctx, inv)
	}

	var state ports.QuoteState
	switch inv.Kind {
	case domain.InvoiceKindMint:
		q, err := s.mint.CheckMintQuote(ctx, inv.MintURL, inv.QuoteID)
		if err != nil {
			return inv, err
		}
		state = q.State
	case domain.InvoiceKindMelt:
		q, err := s.mint.CheckMeltQuote(ctx, inv.MintURL, inv.QuoteID)
		if err != nil {
			return inv, err
		}
		state = q.State
	}

	switch {
	case state == ports.QuoteStatePaid && inv.Kind == domain.InvoiceKindMelt:
		return s.settleMelt(ctx, inv)
	case state == ports.QuoteStatePaid || state == ports.QuoteStateIssued:
		paid, err := s.advance(ctx, inv, domain.InvoiceStatePaid)
		if err != nil {
			return nil, err
		}
		if paid.NeedsClaim() {
			return s.claim(ctx, paid)
		}
		return paid, nil
	case state == ports.QuoteStateUnpaid && inv.IsExpired(s.now()):
		return s.advance(ctx, inv, domain.InvoiceStateExpired)
	}

	prev := inv.State
	inv.MarkChecked(s.now().UTC())
	if _, err := s.repo.Update(ctx, inv, prev); err != nil {
		s.log.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("recording check time failed")
	}
	return inv, nil
}

// claim issues proofs for a PAID mint invoice. A mint answering "already
// issued" means a previous claim succeeded; the ledger dedupes proofs, so
// either way the invoice ends ISSUED without duplicating value.
func (s *InvoiceService) claim(ctx context.Context, inv *domain.StoredInvoice) (*domain.StoredInvoice, error) {
	added, err := s.wallet.Claim(ctx, inv.MintURL, inv.QuoteID, inv.Amount)
	switch {
	case err == nil:
	case apperror.HasCode(err, apperror.CodeQuoteAlreadyIssued):
		s.log.Info().Str("invoice_id", inv.ID.String()).Str("quote_id", inv.QuoteID).Msg("quote already issued, treating claim as done")
	default:
		s.log.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("claim failed, invoice stays PAID")
		s.auditLog(ctx, domain.AuditActionMint, inv, map[string]any{"error": err.Error()})
		return inv, err
	}

	issued, err := s.advance(ctx, inv, domain.InvoiceStateIssued)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("invoice_id", inv.ID.String()).Int64("added", added).Msg("invoice issued")
	return issued, nil
}

// advance durably moves inv to state to. If another writer moved it first
// the stored copy is returned unchanged.
func (s *InvoiceService) advance(ctx context.Context, inv *domain.StoredInvoice, to domain.InvoiceState) (*domain.StoredInvoice, error) {
	from := inv.State
	next := *inv
	if err := next.Transition(to, s.now().UTC()); err != nil {
		return nil, apperror.ErrInvalidTransition(string(from), string(to))
	}

	ok, err := s.repo.Update(ctx, &next, from)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if !ok {
		current, err := s.Get(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		s.log.Debug().Str("invoice_id", inv.ID.String()).Str("state", string(current.State)).Msg("invoice moved concurrently")
		return current, nil
	}

	s.log.Info().
		Str("invoice_id", next.ID.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("invoice state changed")
	if s.events != nil {
		s.events.Publish(domain.InvoiceStateChanged{
			InvoiceID: next.ID,
			QuoteID:   next.QuoteID,
			Kind:      next.Kind,
			From:      from,
			To:        to,
		})
	}
	if next.IsTerminal() {
		s.sched.Cancel(next.ID.String())
		s.mu.Lock()
		delete(s.watched, next.ID)
		delete(s.failures, next.ID)
		s.mu.Unlock()
	}
	s.changed()
	return &next, nil
}

func (s *InvoiceService) create(ctx context.Context, inv *domain.StoredInvoice) error {
	existing, err := s.repo.GetByQuote(ctx, inv.MintURL, inv.QuoteID)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	if existing != nil {
		return apperror.ErrDuplicateQuote(inv.QuoteID)
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return apperror.ErrDatabaseError(err)
	}
	s.changed()
	return nil
}

// schedule starts polling inv unless it is already polled.
func (s *InvoiceService) schedule(inv *domain.StoredInvoice, delay time.Duration) bool {
	id := inv.ID
	return s.sched.Schedule(id.String(), delay, func(ctx context.Context) (time.Duration, bool) {
		checked, err := s.checkInvoice(ctx, id)
		if err != nil {
			// Only the scheduler's own cancellation ends the task.
			if ctx.Err() != nil {
				return 0, true
			}
			if apperror.HasCode(err, apperror.CodeInvoiceNotFound) {
				return 0, true
			}
			n := s.recordFailure(id)
			delay := s.retry.Delay(n)
			s.log.Warn().Err(err).Str("invoice_id", id.String()).Int("failures", n).Dur("retry_in", delay).Msg("invoice check failed")
			return delay, false
		}
		s.resetFailures(id)
		if checked.IsTerminal() {
			return 0, true
		}
		return s.nextInterval(checked), false
	})
}

func (s *InvoiceService) nextInterval(inv *domain.StoredInvoice) time.Duration {
	s.mu.Lock()
	_, fast := s.watched[inv.ID]
	s.mu.Unlock()

	interval := s.cfg.PollInterval
	if fast {
		interval = s.cfg.FastPollInterval
	}
	if inv.ExpiresAt != nil {
		if until := inv.ExpiresAt.Sub(s.now()); until > 0 && until < interval {
			interval = until + time.Second
		}
	}
	return interval
}

func (s *InvoiceService) recordFailure(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id]++
	return s.failures[id]
}

func (s *InvoiceService) resetFailures(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, id)
}

func (s *InvoiceService) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *InvoiceService) auditLog(ctx context.Context, action domain.AuditAction, inv *domain.StoredInvoice, details map[string]any) {
	if s.audit == nil {
		return
	}
	details["quote_id"] = inv.QuoteID
	details["mint"] = inv.MintURL
	raw, err := json.Marshal(details)
	if err != nil {
		raw = []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	s.audit.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		Owner:        s.owner,
		Action:       action,
		ResourceType: "invoice",
		ResourceID:   inv.ID.String(),
		Details:      string(raw),
		CreatedAt:    s.now().UTC(),
	})
}

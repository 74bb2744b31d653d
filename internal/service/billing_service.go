package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BillingConfig holds the billing settings of one session.
type BillingConfig struct {
	DefaultMaxCost int64
	RefundTimeout  time.Duration
	AllocationTTL  time.Duration
	PricingTTL     time.Duration
	Tolerance      map[string]decimal.Decimal // keyed by unit
	Retry          RetryPolicy
}

// allocation is the outstanding token for one provider endpoint. It is shared
// by every request that runs against the endpoint while it is open. ready is
// closed once token is filled in.
type allocation struct {
	ready   chan struct{}
	token   string
	amount  int64
	fee     int64
	refs    int
	users   int
	settled bool
}

type pricingEntry struct {
	models    []domain.ModelPricing
	fetchedAt time.Time
}

// BillingService funds inference calls from the wallet and reconciles what
// the provider actually charged.
type BillingService struct {
	owner    string
	cfg      BillingConfig
	wallet   *WalletService
	provider ports.InferenceProvider
	cache    ports.TokenCache
	events   ports.EventPublisher
	audit    ports.AuditService
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	allocs  map[string]*allocation
	priceMu sync.Mutex
	prices  map[string]pricingEntry
}

// NewBillingService wires the billing orchestrator for owner.
func NewBillingService(
	owner string,
	cfg BillingConfig,
	wallet *WalletService,
	provider ports.InferenceProvider,
	cache ports.TokenCache,
	events ports.EventPublisher,
	audit ports.AuditService,
	log zerolog.Logger,
) *BillingService {
	if cfg.DefaultMaxCost <= 0 {
		cfg.DefaultMaxCost = 50
	}
	if cfg.RefundTimeout <= 0 {
		cfg.RefundTimeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = NewBoundedRetry(1)
	}
	return &BillingService{
		owner:    owner,
		cfg:      cfg,
		wallet:   wallet,
		provider: provider,
		cache:    cache,
		events:   events,
		audit:    audit,
		log:      log,
		now:      time.Now,
		allocs:   make(map[string]*allocation),
		prices:   make(map[string]pricingEntry),
	}
}

// Complete implements ports.BillingService.
func (s *BillingService) Complete(ctx context.Context, req ports.BillingRequest, onDelta ports.DeltaFunc) (*ports.BillingResult, error) {
	if req.Endpoint == "" {
		return nil, apperror.Validation("provider endpoint is required")
	}
	if req.Chat.Model == "" {
		return nil, apperror.Validation("model is required")
	}

	pricing := s.pricingFor(ctx, req.Endpoint, req.Chat.Model)
	amount := pricing.MaxCost
	if amount <= 0 {
		amount = s.cfg.DefaultMaxCost
	}

	var lastErr error
	for attempt := 1; s.cfg.Retry.Allows(attempt); attempt++ {
		a, err := s.acquire(ctx, req.Endpoint, amount)
		if err != nil {
			return nil, err
		}

		resp, err := s.provider.Complete(ctx, req.Endpoint, a.token, req.Chat, onDelta)
		if err == nil {
			return s.reconcile(ctx, req, pricing, a, resp), nil
		}

		retry, err := s.handleFailure(ctx, req, a, err)
		if !retry {
			return nil, err
		}
		lastErr = err
		if s.cfg.Retry.Allows(attempt + 1) {
			s.log.Warn().Err(err).Str("provider", req.Endpoint).Str("model", req.Chat.Model).Int("attempt", attempt).Msg("retrying inference with a fresh allocation")
		}
	}
	return nil, lastErr
}

// acquire returns the open allocation for endpoint, reopening a cached token
// after a restart or carving a new one from the wallet. The endpoint is
// reserved under the lock and funded outside it; concurrent requests for the
// same endpoint wait for that one allocation.
func (s *BillingService) acquire(ctx context.Context, endpoint string, amount int64) (*allocation, error) {
	s.mu.Lock()
	for {
		a, ok := s.allocs[endpoint]
		if !ok {
			break
		}
		select {
		case <-a.ready:
			a.refs++
			a.users++
			s.mu.Unlock()
			return a, nil
		default:
		}
		s.mu.Unlock()
		select {
		case <-a.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		s.mu.Lock()
	}
	a := &allocation{ready: make(chan struct{}), refs: 1, users: 1}
	s.allocs[endpoint] = a
	s.mu.Unlock()
	defer close(a.ready)

	if token, tokAmount, ok := s.cachedAllocation(ctx, endpoint); ok {
		a.token, a.amount = token, tokAmount
		return a, nil
	}

	token, fee, err := s.wallet.IssueToken(ctx, "", amount)
	if err != nil {
		s.mu.Lock()
		if s.allocs[endpoint] == a {
			delete(s.allocs, endpoint)
		}
		s.mu.Unlock()
		return nil, err
	}
	a.token, a.amount, a.fee = token, amount, fee

	if s.cache != nil {
		if err := s.cache.Set(ctx, endpoint, token, s.cfg.AllocationTTL); err != nil {
			s.log.Warn().Err(err).Str("provider", endpoint).Msg("failed to cache allocation")
		}
	}
	s.log.Debug().Str("provider", endpoint).Int64("amount", amount).Int64("fee", fee).Msg("allocated token")
	return a, nil
}

func (s *BillingService) cachedAllocation(ctx context.Context, endpoint string) (string, int64, bool) {
	if s.cache == nil {
		return "", 0, false
	}
	token, err := s.cache.Get(ctx, endpoint)
	if err != nil {
		s.log.Warn().Err(err).Str("provider", endpoint).Msg("failed to read cached allocation")
		return "", 0, false
	}
	if token == "" {
		return "", 0, false
	}
	tok, err := domain.DecodeToken(token)
	if err != nil {
		s.log.Warn().Err(err).Str("provider", endpoint).Msg("dropping undecodable cached allocation")
		_ = s.cache.Delete(ctx, endpoint)
		return "", 0, false
	}
	s.log.Info().Str("provider", endpoint).Int64("amount", tok.Amount()).Msg("reusing cached allocation")
	return token, tok.Amount(), true
}

// release drops one reference. It returns true when the caller was the last
// user and now owns settlement.
func (s *BillingService) release(endpoint string, a *allocation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.refs--
	if a.refs > 0 || a.settled {
		return false
	}
	a.settled = true
	if s.allocs[endpoint] == a {
		delete(s.allocs, endpoint)
	}
	return true
}

// discard closes a for new requests regardless of other users and reports
// whether the caller now owns settlement.
func (s *BillingService) discard(endpoint string, a *allocation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.refs--
	if s.allocs[endpoint] == a {
		delete(s.allocs, endpoint)
	}
	if a.settled {
		return false
	}
	a.settled = true
	return true
}

func (s *BillingService) handleFailure(ctx context.Context, req ports.BillingRequest, a *allocation, callErr error) (bool, error) {
	endpoint := req.Endpoint

	var perr *ports.ProviderError
	if !errors.As(callErr, &perr) {
		if s.release(endpoint, a) {
			s.settle(ctx, req, a, "", nil)
		}
		if errors.Is(callErr, context.Canceled) {
			return false, callErr
		}
		return false, apperror.ErrProviderUnavailable(endpoint, callErr)
	}

	log := s.log.With().Str("provider", endpoint).Str("model", req.Chat.Model).Str("request_id", perr.RequestID).Int("status", perr.StatusCode).Logger()

	switch perr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		log.Warn().Msg("provider rejected token")
		if err := s.discardAndRefund(ctx, req, a, perr.RequestID); err != nil {
			return false, apperror.ErrRefundFailed(endpoint, err)
		}
		return true, apperror.ErrProviderAuth(endpoint, perr.RequestID)

	case http.StatusPaymentRequired:
		log.Warn().Int64("allocated", a.amount).Msg("allocation insufficient for request")
		// A failed refund does not block the retry.
		_ = s.discardAndRefund(ctx, req, a, perr.RequestID)
		return true, apperror.ErrProviderInsufficient(endpoint, perr.RequestID)

	case http.StatusRequestEntityTooLarge:
		log.Warn().Msg("provider rejected payload size")
		if err := s.discardAndRefund(ctx, req, a, perr.RequestID); err != nil {
			return false, apperror.ErrRefundFailed(endpoint, err)
		}
		return true, apperror.ErrPayloadTooLarge(endpoint, perr.RequestID)
	}

	log.Error().Str("body", truncate(perr.Body, 256)).Msg("provider returned error status")
	if s.release(endpoint, a) {
		s.settle(ctx, req, a, perr.RequestID, nil)
	}
	return false, apperror.ErrProviderStatus(endpoint, perr.RequestID, perr.StatusCode)
}

// discardAndRefund clears the stale token and refunds it if no other request
// did so first. The cache entry is removed even when the refund fails.
func (s *BillingService) discardAndRefund(ctx context.Context, req ports.BillingRequest, a *allocation, requestID string) error {
	if !s.discard(req.Endpoint, a) {
		return nil
	}
	_, err := s.settle(ctx, req, a, requestID, nil)
	return err
}

// reconcile settles a successful call and compares the charge against the
// declared prices.
func (s *BillingService) reconcile(ctx context.Context, req ports.BillingRequest, pricing domain.ModelPricing, a *allocation, resp *ports.ChatResponse) *ports.BillingResult {
	result := &ports.BillingResult{Response: resp, PreAllocated: a.amount}
	if !s.release(req.Endpoint, a) {
		s.log.Debug().Str("provider", req.Endpoint).Str("request_id", resp.RequestID).Msg("allocation still in use, settlement deferred")
		return result
	}

	st, err := s.settle(ctx, req, a, resp.RequestID, &resp.Usage)
	result.Refunded = st.refunded
	result.Spent = st.spent
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("refund failed: %v", err))
		return result
	}

	if a.users > 1 || !resp.Usage.HasCounters() || !pricing.HasTokenPrices() {
		return result
	}
	expected := pricing.ExpectedCost(resp.Usage)
	over := decimal.NewFromInt(st.spent).Sub(expected)
	if over.GreaterThan(s.tolerance()) {
		msg := fmt.Sprintf("charged %d %s, expected %s for %d prompt and %d completion tokens",
			st.spent, s.wallet.Unit(), expected.StringFixed(3), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		s.warn(ctx, req, resp.RequestID, msg)
		result.Warnings = append(result.Warnings, msg)
	}
	return result
}

type settlement struct {
	refunded int64
	spent    int64
}

// settle refunds the unconsumed part of a and records the spend. It runs on
// a context detached from the caller so an abandoned request cannot strand
// the refund.
func (s *BillingService) settle(ctx context.Context, req ports.BillingRequest, a *allocation, requestID string, usage *domain.Usage) (settlement, error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RefundTimeout)
	defer cancel()

	if s.cache != nil {
		if err := s.cache.Delete(rctx, req.Endpoint); err != nil {
			s.log.Warn().Err(err).Str("provider", req.Endpoint).Msg("failed to clear cached allocation")
		}
	}

	refunded, refundFee, err := s.refund(rctx, req.Endpoint, a.token)
	if err != nil {
		s.log.Error().Err(err).Str("provider", req.Endpoint).Str("request_id", requestID).Int64("allocated", a.amount).
			Str("token", a.token).Msg("refund failed, allocation counted as spent")
		s.auditLog(rctx, domain.AuditActionRefundFailed, req.Endpoint, map[string]any{
			"request_id": requestID,
			"model":      req.Chat.Model,
			"allocated":  a.amount,
			"error":      err.Error(),
		})
		s.warn(rctx, req, requestID, fmt.Sprintf("refund of %d %s failed", a.amount, s.wallet.Unit()))
	}

	st := settlement{refunded: refunded, spent: a.amount - refunded}
	if st.spent == 0 && a.fee+refundFee == 0 {
		return st, err
	}

	entry := &domain.HistoryEntry{
		Type:      domain.HistoryTypeSpent,
		Amount:    st.spent,
		Fee:       a.fee + refundFee,
		Status:    domain.HistoryStatusSuccess,
		Provider:  req.Endpoint,
		Model:     req.Chat.Model,
		RequestID: requestID,
	}
	switch {
	case err != nil:
		entry.Message = "refund failed"
	case a.users > 1:
		entry.Message = fmt.Sprintf("shared by %d requests", a.users)
	case usage == nil:
		entry.Message = "request failed"
	}
	s.wallet.Record(rctx, entry)
	s.auditLog(rctx, domain.AuditActionBilling, req.Endpoint, map[string]any{
		"request_id": requestID,
		"model":      req.Chat.Model,
		"allocated":  a.amount,
		"refunded":   refunded,
		"spent":      st.spent,
	})
	return st, err
}

// refund asks the provider for the unconsumed remainder of token and redeems
// it. It returns the value the provider handed back and the redeem fee.
func (s *BillingService) refund(ctx context.Context, endpoint, token string) (int64, int64, error) {
	fresh, err := s.provider.Refund(ctx, endpoint, token)
	if err != nil {
		return 0, 0, err
	}
	if fresh == "" {
		return 0, 0, nil
	}
	tok, err := domain.DecodeToken(fresh)
	if err != nil {
		s.log.Error().Err(err).Str("provider", endpoint).Str("token", fresh).Msg("provider returned undecodable refund")
		return 0, 0, apperror.ErrInvalidToken(err)
	}
	_, fee, err := s.wallet.Redeem(ctx, tok)
	if err != nil {
		s.log.Error().Err(err).Str("provider", endpoint).Str("token", fresh).Msg("failed to redeem refund")
		return 0, 0, err
	}
	return tok.Amount(), fee, nil
}

// pricingFor returns the declared pricing of model at endpoint. Lookup
// failures fall back to an undeclared price so the default cap applies.
func (s *BillingService) pricingFor(ctx context.Context, endpoint, model string) domain.ModelPricing {
	s.priceMu.Lock()
	entry, ok := s.prices[endpoint]
	s.priceMu.Unlock()

	if !ok || (s.cfg.PricingTTL > 0 && s.now().Sub(entry.fetchedAt) > s.cfg.PricingTTL) {
		models, err := s.provider.Models(ctx, endpoint)
		if err != nil {
			s.log.Warn().Err(err).Str("provider", endpoint).Msg("failed to fetch model pricing, using default cap")
			return domain.ModelPricing{ID: model}
		}
		entry = pricingEntry{models: models, fetchedAt: s.now()}
		s.priceMu.Lock()
		s.prices[endpoint] = entry
		s.priceMu.Unlock()
	}

	for _, m := range entry.models {
		if m.ID == model {
			return m
		}
	}
	return domain.ModelPricing{ID: model}
}

func (s *BillingService) tolerance() decimal.Decimal {
	if t, ok := s.cfg.Tolerance[s.wallet.Unit()]; ok {
		return t
	}
	return decimal.NewFromInt(1)
}

func (s *BillingService) warn(ctx context.Context, req ports.BillingRequest, requestID, msg string) {
	s.log.Warn().Str("provider", req.Endpoint).Str("model", req.Chat.Model).Str("request_id", requestID).Msg(msg)
	if s.events != nil {
		s.events.Publish(domain.BillingWarning{
			Provider:  req.Endpoint,
			Model:     req.Chat.Model,
			RequestID: requestID,
			Message:   msg,
			At:        s.now().UTC(),
		})
	}
}

func (s *BillingService) auditLog(ctx context.Context, action domain.AuditAction, endpoint string, details map[string]any) {
	if s.audit == nil {
		return
	}
	raw, _ := json.Marshal(details)
	s.audit.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		Owner:        s.owner,
		Action:       action,
		ResourceType: "provider",
		ResourceID:   endpoint,
		Details:      string(raw),
		CreatedAt:    s.now().UTC(),
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/apperror"
	"ecash-billing-engine/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var identityPattern = regexp.MustCompile(`^[A-Za-z0-9_.:@-]{1,128}$`)

// Stores is the persistence of one identity.
type Stores struct {
	Proofs   ports.ProofRepository
	Invoices ports.InvoiceRepository
	History  ports.HistoryRepository
	Wallets  ports.WalletRepository
	Tokens   ports.TokenCache
}

// StoreFactory opens the stores of owner.
type StoreFactory func(owner string) Stores

// SessionConfig holds the per-session settings shared by every identity.
type SessionConfig struct {
	Wallet           WalletConfig
	MaxFeeIterations int
	MaxDPAmount      int64
	Invoice          InvoiceConfig
	Billing          BillingConfig
	Backup           BackupConfig
	BackupEnabled    bool
	EventBuffer      int
}

// SessionDeps are the collaborators shared by every session.
type SessionDeps struct {
	Stores   StoreFactory
	Mint     ports.MintGateway
	Provider ports.InferenceProvider
	Locker   ports.CheckLocker
	Backup   ports.BackupChannel
	Audit    ports.AuditService
	Tokens   ports.TokenService
}

// session is the explicit store set of one logged-in identity.
type session struct {
	id        string
	identity  string
	bus       *EventBus
	wallet    *WalletService
	invoices  *InvoiceService
	billing   *BillingService
	reporting ports.ReportingService
	backup    *BackupService
	unfollow  func()
}

func (s *session) ID() string                        { return s.id }
func (s *session) Identity() string                  { return s.identity }
func (s *session) Wallet() ports.WalletService       { return s.wallet }
func (s *session) Invoices() ports.InvoiceService    { return s.invoices }
func (s *session) Billing() ports.BillingService     { return s.billing }
func (s *session) Reporting() ports.ReportingService { return s.reporting }
func (s *session) Events() ports.EventSubscriber     { return s.bus }

// SessionManagerImpl implements ports.SessionManager. Each identity gets its
// own ledger, invoice manager, billing orchestrator and mirror, created at
// login and torn down at logout.
type SessionManagerImpl struct {
	cfg  SessionConfig
	deps SessionDeps
	log  zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionManager creates a session manager.
func NewSessionManager(cfg SessionConfig, deps SessionDeps, log zerolog.Logger) *SessionManagerImpl {
	return &SessionManagerImpl{
		cfg:      cfg,
		deps:     deps,
		log:      log,
		sessions: make(map[string]*session),
	}
}

// Login opens the session of identity, or reuses the open one, and returns a
// session token for it.
func (m *SessionManagerImpl) Login(ctx context.Context, identity string) (string, time.Time, error) {
	if !identityPattern.MatchString(identity) {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[identity]
	if !ok {
		var err error
		if s, err = m.open(ctx, identity); err != nil {
			return "", time.Time{}, err
		}
		m.sessions[identity] = s
		m.auditLog(ctx, domain.AuditActionLogin, identity)
	}

	token, expiresAt, err := m.deps.Tokens.Generate(identity, s.id)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate session token: %w", err))
	}
	return token, expiresAt, nil
}

func (m *SessionManagerImpl) open(ctx context.Context, identity string) (*session, error) {
	log := logger.Component(m.log, "session", identity)
	stores := m.deps.Stores(identity)

	bus := NewEventBus(m.cfg.EventBuffer, logger.Component(m.log, "events", identity))
	ledger := NewProofLedger(stores.Proofs, logger.Component(m.log, "ledger", identity))
	wallet := NewWalletService(
		identity,
		m.cfg.Wallet,
		ledger,
		NewSelector(m.cfg.MaxFeeIterations, m.cfg.MaxDPAmount),
		m.deps.Mint,
		stores.History,
		stores.Wallets,
		bus,
		m.deps.Audit,
		logger.Component(m.log, "wallet", identity),
	)
	if err := wallet.Load(ctx); err != nil {
		bus.Close()
		return nil, err
	}

	invoices := NewInvoiceService(identity, m.cfg.Invoice, stores.Invoices, m.deps.Mint, wallet, m.deps.Locker, bus, m.deps.Audit,
		logger.Component(m.log, "invoices", identity))
	billing := NewBillingService(identity, m.cfg.Billing, wallet, m.deps.Provider, stores.Tokens, bus, m.deps.Audit,
		logger.Component(m.log, "billing", identity))
	s := &session{
		id:        uuid.NewString(),
		identity:  identity,
		bus:       bus,
		wallet:    wallet,
		invoices:  invoices,
		billing:   billing,
		reporting: NewReportingService(stores.History),
	}

	if m.cfg.BackupEnabled && m.deps.Backup != nil {
		if err := m.openBackup(ctx, s, stores, logger.Component(m.log, "backup", identity)); err != nil {
			log.Warn().Err(err).Msg("backup mirror disabled for session")
		}
	}

	if err := invoices.Start(ctx); err != nil {
		m.teardown(context.WithoutCancel(ctx), s)
		return nil, err
	}
	log.Info().Int64("balance", ledger.Balance()).Msg("session opened")
	return s, nil
}

func (m *SessionManagerImpl) openBackup(ctx context.Context, s *session, stores Stores, log zerolog.Logger) error {
	cipher, err := NewBackupCipher(s.wallet.State().PrivateKey)
	if err != nil {
		return err
	}
	backup := NewBackupService(s.identity, m.cfg.Backup, m.deps.Backup, cipher, s.wallet, s.invoices, stores.History, m.deps.Audit, log)
	if err := backup.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("restoring backup failed, continuing with local state")
	}

	events, unsubscribe := s.bus.Subscribe()
	go backup.Follow(events)
	s.invoices.OnChange(backup.Notify)
	s.backup = backup
	s.unfollow = unsubscribe
	return nil
}

// Logout closes the session of identity: scheduled checks stop and pending
// mirror writes are flushed.
func (m *SessionManagerImpl) Logout(ctx context.Context, identity string) error {
	m.mu.Lock()
	s, ok := m.sessions[identity]
	delete(m.sessions, identity)
	m.mu.Unlock()
	if !ok {
		return apperror.ErrSessionNotFound()
	}

	m.teardown(ctx, s)
	m.auditLog(ctx, domain.AuditActionLogout, identity)
	m.log.Info().Str("identity", identity).Msg("session closed")
	return nil
}

// Get returns the open session of identity.
func (m *SessionManagerImpl) Get(identity string) (ports.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[identity]
	if !ok {
		return nil, apperror.ErrSessionNotFound()
	}
	return s, nil
}

// Close logs every identity out.
func (m *SessionManagerImpl) Close(ctx context.Context) {
	m.mu.Lock()
	open := make([]*session, 0, len(m.sessions))
	for id, s := range m.sessions {
		open = append(open, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range open {
		m.teardown(ctx, s)
	}
}

func (m *SessionManagerImpl) teardown(ctx context.Context, s *session) {
	s.invoices.Close()
	if s.backup != nil {
		if err := s.backup.Close(ctx); err != nil {
			m.log.Error().Err(err).Str("identity", s.identity).Msg("final backup write failed")
		}
	}
	if s.unfollow != nil {
		s.unfollow()
	}
	s.bus.Close()
}

func (m *SessionManagerImpl) auditLog(ctx context.Context, action domain.AuditAction, identity string) {
	if m.deps.Audit == nil {
		return
	}
	raw, _ := json.Marshal(map[string]any{"identity": identity})
	m.deps.Audit.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		Owner:        identity,
		Action:       action,
		ResourceType: "session",
		ResourceID:   identity,
		Details:      string(raw),
		CreatedAt:    time.Now().UTC(),
	})
}

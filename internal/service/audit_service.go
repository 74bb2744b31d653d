package service

import (
	"context"
	"sync"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const auditQueueSize = 256

// AuditService implements ports.AuditService. Entries are logged at once and
// persisted by a single background writer. When the queue is full the
// caller persists inline, so no entry is dropped.
type AuditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger

	queue chan *domain.AuditLog
	done  chan struct{}
	once  sync.Once
	mu    sync.RWMutex
	shut  bool
}

// NewAuditService starts the audit writer. A nil repo only logs.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditService {
	s := &AuditService{
		repo:  repo,
		log:   log,
		queue: make(chan *domain.AuditLog, auditQueueSize),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

// Log records entry. It never blocks on the database unless the queue is
// full.
func (s *AuditService) Log(ctx context.Context, entry *domain.AuditLog) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	event := s.log.Info()
	if isFailure(entry.Action) {
		event = s.log.Warn()
	}
	event.
		Str("owner", entry.Owner).
		Str("action", string(entry.Action)).
		Str("resource_type", entry.ResourceType).
		Str("resource_id", entry.ResourceID).
		Str("details", entry.Details).
		Msg("audit")

	if s.repo == nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.shut {
		select {
		case s.queue <- entry:
			return
		default:
		}
	}
	s.persist(context.WithoutCancel(ctx), entry)
}

// Close stops the writer after draining queued entries, or when ctx ends.
func (s *AuditService) Close(ctx context.Context) {
	s.once.Do(func() {
		s.mu.Lock()
		s.shut = true
		close(s.queue)
		s.mu.Unlock()
	})
	select {
	case <-s.done:
	case <-ctx.Done():
		s.log.Warn().Int("pending", len(s.queue)).Msg("audit queue not drained before shutdown")
	}
}

func (s *AuditService) run() {
	defer close(s.done)
	for entry := range s.queue {
		s.persist(context.Background(), entry)
	}
}

func (s *AuditService) persist(ctx context.Context, entry *domain.AuditLog) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Error().Err(err).
			Str("action", string(entry.Action)).
			Str("audit_id", entry.ID.String()).
			Msg("failed to persist audit log")
	}
}

func isFailure(a domain.AuditAction) bool {
	switch a {
	case domain.AuditActionRefundFailed, domain.AuditActionBackupError, domain.AuditActionRejected:
		return true
	}
	return false
}

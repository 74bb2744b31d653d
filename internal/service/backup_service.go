package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Data classes mirrored to the backup channel.
const (
	BackupClassInvoices = "invoices"
	BackupClassWallet   = "wallet"
	BackupClassHistory  = "history"
	BackupClassTokens   = "tokens"
)

const (
	backupVersion      = 1
	backupHistoryLimit = 1000
)

// BackupConfig holds the mirror settings of one session.
type BackupConfig struct {
	Debounce time.Duration
}

type backupEnvelope struct {
	Version   int             `json:"version"`
	Owner     string          `json:"owner"`
	Class     string          `json:"class"`
	UpdatedAt time.Time       `json:"updated_at"`
	Data      json.RawMessage `json:"data"`
}

// BackupService mirrors the session's state, encrypted, to the backup
// channel. Local changes are coalesced into one write per debounce window.
// Loading merges each remote record with its local counterpart.
type BackupService struct {
	owner    string
	cfg      BackupConfig
	channel  ports.BackupChannel
	cipher   ports.Cipher
	wallet   *WalletService
	invoices *InvoiceService
	history  ports.HistoryRepository
	audit    ports.AuditService
	log      zerolog.Logger
	now      func() time.Time

	mu     sync.Mutex
	timer  *time.Timer
	dirty  bool
	closed bool
	flush  sync.Mutex
}

// NewBackupService wires the mirror for owner.
func NewBackupService(
	owner string,
	cfg BackupConfig,
	channel ports.BackupChannel,
	cipher ports.Cipher,
	wallet *WalletService,
	invoices *InvoiceService,
	history ports.HistoryRepository,
	audit ports.AuditService,
	log zerolog.Logger,
) *BackupService {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 5 * time.Second
	}
	return &BackupService{
		owner:    owner,
		cfg:      cfg,
		channel:  channel,
		cipher:   cipher,
		wallet:   wallet,
		invoices: invoices,
		history:  history,
		audit:    audit,
		log:      log,
		now:      time.Now,
	}
}

// Follow marks the mirror dirty for every event that changes mirrored state.
// It returns when events is closed.
func (b *BackupService) Follow(events <-chan domain.Event) {
	for ev := range events {
		switch ev.Type() {
		case domain.EventProofsChanged, domain.EventInvoiceStateChanged, domain.EventTransactionRecorded:
			b.Notify()
		}
	}
}

// Notify schedules a write. Calls within one debounce window share it.
func (b *BackupService) Notify() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.dirty = true
	if b.timer != nil {
		return
	}
	b.timer = time.AfterFunc(b.cfg.Debounce, func() {
		b.mu.Lock()
		b.timer = nil
		b.mu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_ = b.Flush(ctx)
	})
}

// Flush writes every data class now if anything changed since the last write.
func (b *BackupService) Flush(ctx context.Context) error {
	b.flush.Lock()
	defer b.flush.Unlock()

	b.mu.Lock()
	dirty := b.dirty
	b.dirty = false
	b.mu.Unlock()
	if !dirty {
		return nil
	}

	if err := b.writeAll(ctx); err != nil {
		b.mu.Lock()
		b.dirty = true
		b.mu.Unlock()
		b.log.Error().Err(err).Str("owner", b.owner).Msg("backup write failed")
		b.auditLog(ctx, "write", err)
		return err
	}
	return nil
}

func (b *BackupService) writeAll(ctx context.Context) error {
	invoices, err := b.invoices.List(ctx)
	if err != nil {
		return fmt.Errorf("listing invoices: %w", err)
	}
	entries, _, err := b.history.List(ctx, ports.HistoryListParams{Page: 1, PageSize: backupHistoryLimit})
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}

	payloads := map[string]any{
		BackupClassInvoices: invoices,
		BackupClassWallet:   b.wallet.State(),
		BackupClassHistory:  entries,
		BackupClassTokens:   b.wallet.Snapshots(),
	}
	for _, class := range []string{BackupClassWallet, BackupClassTokens, BackupClassInvoices, BackupClassHistory} {
		if err := b.put(ctx, class, payloads[class]); err != nil {
			return err
		}
	}
	b.log.Debug().Str("owner", b.owner).Int("invoices", len(invoices)).Int("history", len(entries)).Msg("backup written")
	return nil
}

func (b *BackupService) put(ctx context.Context, class string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", class, err)
	}
	now := b.now().UTC()
	raw, err := json.Marshal(backupEnvelope{
		Version:   backupVersion,
		Owner:     b.owner,
		Class:     class,
		UpdatedAt: now,
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("encoding %s envelope: %w", class, err)
	}
	sealed, err := b.cipher.Seal(raw)
	if err != nil {
		return fmt.Errorf("sealing %s: %w", class, err)
	}
	if err := b.channel.Put(ctx, b.name(class), ports.BackupBlob{Ciphertext: sealed, UpdatedAt: now}); err != nil {
		return fmt.Errorf("storing %s: %w", class, err)
	}
	return nil
}

// Restore merges the mirrored state into the local stores. A class that is
// missing, unreadable or written by another owner counts as no remote copy.
// The wallet record goes first so snapshots from its mints are accepted.
func (b *BackupService) Restore(ctx context.Context) error {
	var state domain.WalletState
	if ok := b.load(ctx, BackupClassWallet, &state); ok {
		if err := b.wallet.MergeState(ctx, state); err != nil {
			return fmt.Errorf("merging wallet: %w", err)
		}
	}

	var snaps []Snapshot
	if ok := b.load(ctx, BackupClassTokens, &snaps); ok {
		n, err := b.wallet.MergeSnapshots(ctx, snaps)
		if err != nil {
			return fmt.Errorf("merging tokens: %w", err)
		}
		b.log.Info().Int("applied", n).Int("remote", len(snaps)).Msg("merged remote proof snapshots")
	}

	var invoices []domain.StoredInvoice
	if ok := b.load(ctx, BackupClassInvoices, &invoices); ok {
		n, err := b.invoices.MergeRemote(ctx, invoices)
		if err != nil {
			return fmt.Errorf("merging invoices: %w", err)
		}
		b.log.Info().Int("merged", n).Int("remote", len(invoices)).Msg("merged remote invoices")
	}

	var entries []domain.HistoryEntry
	if ok := b.load(ctx, BackupClassHistory, &entries); ok {
		for i := range entries {
			if entries[i].ID == uuid.Nil {
				continue
			}
			if err := b.history.Append(ctx, &entries[i]); err != nil {
				return fmt.Errorf("merging history: %w", err)
			}
		}
	}
	return nil
}

func (b *BackupService) load(ctx context.Context, class string, out any) bool {
	blob, err := b.channel.Get(ctx, b.name(class))
	if err != nil {
		b.log.Warn().Err(err).Str("class", class).Msg("backup read failed, continuing without remote copy")
		return false
	}
	if blob == nil {
		return false
	}

	raw, err := b.cipher.Open(blob.Ciphertext)
	if err != nil {
		b.log.Warn().Err(err).Str("class", class).Msg("backup not readable with this wallet key, ignoring")
		b.auditLog(ctx, "decrypt "+class, err)
		return false
	}
	var env backupEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		b.log.Warn().Err(err).Str("class", class).Msg("malformed backup envelope, ignoring")
		return false
	}
	if env.Owner != b.owner || env.Class != class {
		b.log.Warn().Str("class", class).Str("envelope_owner", env.Owner).Str("envelope_class", env.Class).Msg("backup envelope mismatch, ignoring")
		return false
	}
	if env.Version > backupVersion {
		b.log.Warn().Int("version", env.Version).Str("class", class).Msg("backup written by a newer version, ignoring")
		return false
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		b.log.Warn().Err(err).Str("class", class).Msg("malformed backup payload, ignoring")
		return false
	}
	return true
}

// Close stops the debounce timer and writes a final copy.
func (b *BackupService) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.dirty = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	if err := b.Flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (b *BackupService) name(class string) string {
	return b.owner + "/" + class
}

func (b *BackupService) auditLog(ctx context.Context, op string, cause error) {
	if b.audit == nil {
		return
	}
	raw, _ := json.Marshal(map[string]any{"op": op, "error": cause.Error()})
	b.audit.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		Owner:        b.owner,
		Action:       domain.AuditActionBackupError,
		ResourceType: "backup",
		ResourceID:   b.owner,
		Details:      string(raw),
		CreatedAt:    b.now().UTC(),
	})
}

package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/apperror"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WalletConfig holds the wallet settings of one session.
type WalletConfig struct {
	Unit        string
	DefaultMint string
}

// MeltOutcome is the result of paying a melt quote. A pending melt carries
// the blank outputs its change will be signed on.
type MeltOutcome struct {
	State    ports.QuoteState
	Fee      int64
	Preimage string
	Blanks   []domain.BlankOutput
}

// WalletService is the single authority over one identity's ledger. Every
// ledger mutation runs under opMu so a selection cannot race another spend.
type WalletService struct {
	owner    string
	cfg      WalletConfig
	ledger   *ProofLedger
	selector *Selector
	mint     ports.MintGateway
	history  ports.HistoryRepository
	wallets  ports.WalletRepository
	events   ports.EventPublisher
	audit    ports.AuditService
	log      zerolog.Logger

	opMu    sync.Mutex
	stateMu sync.RWMutex
	state   *domain.WalletState
	now     func() time.Time
}

// NewWalletService wires a wallet for owner.
func NewWalletService(
	owner string,
	cfg WalletConfig,
	ledger *ProofLedger,
	selector *Selector,
	mint ports.MintGateway,
	history ports.HistoryRepository,
	wallets ports.WalletRepository,
	events ports.EventPublisher,
	audit ports.AuditService,
	log zerolog.Logger,
) *WalletService {
	return &WalletService{
		owner:    owner,
		cfg:      cfg,
		ledger:   ledger,
		selector: selector,
		mint:     mint,
		history:  history,
		wallets:  wallets,
		events:   events,
		audit:    audit,
		log:      log,
		now:      time.Now,
	}
}

// Load restores the wallet record and the proof set, creating the wallet
// record with a fresh key on first use.
func (w *WalletService) Load(ctx context.Context) error {
	state, err := w.wallets.Get(ctx)
	if err != nil {
		return fmt.Errorf("load wallet state: %w", err)
	}
	if state == nil {
		key, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return fmt.Errorf("generate wallet key: %w", err)
		}
		now := w.now().UTC()
		state = &domain.WalletState{
			Owner:      w.owner,
			PrivateKey: hex.EncodeToString(key.Serialize()),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if w.cfg.DefaultMint != "" {
			state.AddMint(w.cfg.DefaultMint, now)
		}
		if err := w.wallets.Save(ctx, state); err != nil {
			return fmt.Errorf("create wallet state: %w", err)
		}
		w.log.Info().Msg("wallet created")
	}

	w.stateMu.Lock()
	w.state = state
	w.stateMu.Unlock()

	return w.ledger.Load(ctx)
}

// State returns a copy of the wallet record.
func (w *WalletService) State() domain.WalletState {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	if w.state == nil {
		return domain.WalletState{Owner: w.owner}
	}
	s := *w.state
	s.Mints = append([]string(nil), w.state.Mints...)
	return s
}

// Balance implements ports.WalletService.
func (w *WalletService) Balance(_ context.Context) (*ports.WalletBalance, error) {
	return &ports.WalletBalance{
		Total:  w.ledger.Balance(),
		ByMint: w.ledger.BalanceByMint(),
		Unit:   w.cfg.Unit,
	}, nil
}

// Unit returns the currency unit the wallet holds.
func (w *WalletService) Unit() string {
	return w.cfg.Unit
}

// Mints implements ports.WalletService.
func (w *WalletService) Mints(_ context.Context) []string {
	return w.State().Mints
}

// AddMint verifies the mint is reachable and trusts it.
func (w *WalletService) AddMint(ctx context.Context, mintURL string) error {
	mintURL = domain.NormalizeMintURL(mintURL)
	if mintURL == "" {
		return apperror.Validation("mint url is required")
	}
	if _, err := w.mint.GetKeysets(ctx, mintURL); err != nil {
		return err
	}
	return w.trustMint(ctx, mintURL)
}

func (w *WalletService) trustMint(ctx context.Context, mintURL string) error {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	if w.state == nil {
		return apperror.ErrSessionNotFound()
	}
	if !w.state.AddMint(mintURL, w.now().UTC()) {
		return nil
	}
	if err := w.wallets.Save(ctx, w.state); err != nil {
		return apperror.ErrDatabaseError(err)
	}
	w.log.Info().Str("mint", mintURL).Msg("mint added")
	return nil
}

// MergeState folds a remote wallet record into the local one: mints are
// united and the older record's key wins, since proofs may be locked to it.
func (w *WalletService) MergeState(ctx context.Context, remote domain.WalletState) error {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	if w.state == nil {
		return apperror.ErrSessionNotFound()
	}

	changed := false
	now := w.now().UTC()
	for _, m := range remote.Mints {
		if w.state.AddMint(m, now) {
			changed = true
		}
	}
	if remote.PrivateKey != "" && remote.PrivateKey != w.state.PrivateKey && !remote.CreatedAt.IsZero() && remote.CreatedAt.Before(w.state.CreatedAt) {
		w.state.PrivateKey = remote.PrivateKey
		w.state.CreatedAt = remote.CreatedAt
		w.state.UpdatedAt = now
		changed = true
	}
	if !changed {
		return nil
	}
	if err := w.wallets.Save(ctx, w.state); err != nil {
		return apperror.ErrDatabaseError(err)
	}
	return nil
}

// CreateToken carves a token worth amount plus the fee the recipient pays to
// redeem it, and records the send.
func (w *WalletService) CreateToken(ctx context.Context, mintURL string, amount int64) (string, error) {
	encoded, fee, err := w.IssueToken(ctx, mintURL, amount)
	if err != nil {
		return "", err
	}
	w.record(ctx, &domain.HistoryEntry{
		Type:    domain.HistoryTypeSend,
		Amount:  amount,
		Fee:     fee,
		Status:  domain.HistoryStatusSuccess,
		MintURL: domain.NormalizeMintURL(mintURL),
	})
	return encoded, nil
}

// IssueToken removes proofs worth amount plus their redeem fee from the
// ledger and returns them encoded, with the fee paid. It records no history;
// callers that spend the token on their own terms record it themselves. An
// already-spent answer from the mint triggers one reconciliation and one
// retry.
func (w *WalletService) IssueToken(ctx context.Context, mintURL string, amount int64) (string, int64, error) {
	if amount <= 0 {
		return "", 0, apperror.ErrInvalidAmount()
	}
	mintURL, err := w.resolveMint(mintURL)
	if err != nil {
		return "", 0, err
	}

	w.opMu.Lock()
	defer w.opMu.Unlock()

	var encoded string
	var fee int64
	err = w.withReconcile(ctx, mintURL, func() error {
		proofs, f, err := w.prepareExactLocked(ctx, mintURL, amount)
		if err != nil {
			return err
		}
		if _, err := w.ledger.Commit(ctx, Mutation{MintURL: mintURL, Remove: proofs}); err != nil {
			return apperror.ErrDatabaseError(err)
		}
		tok := domain.Token{MintURL: mintURL, Unit: w.cfg.Unit, Proofs: proofs}
		encoded, err = tok.Encode()
		if err != nil {
			// The proofs left the ledger; keep them reachable through the log.
			w.log.Error().Err(err).Str("mint", mintURL).Int64("amount", proofs.Sum()).Msg("encoding sent token failed")
			return apperror.InternalError(err)
		}
		fee = f
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	w.publishBalance(mintURL)
	return encoded, fee, nil
}

// Receive redeems an encoded token from a trusted mint into fresh proofs.
func (w *WalletService) Receive(ctx context.Context, encoded string) (int64, error) {
	tok, err := domain.DecodeToken(encoded)
	if err != nil {
		return 0, apperror.ErrInvalidToken(err)
	}
	tok.MintURL = domain.NormalizeMintURL(tok.MintURL)
	if !w.State().HasMint(tok.MintURL) {
		return 0, apperror.ErrUnknownMint(tok.MintURL)
	}
	received, _, err := w.ReceiveToken(ctx, tok, domain.HistoryTypeReceive, nil)
	return received, err
}

// ReceiveToken redeems tok and records the movement as kind. It returns the
// amount received and the swap fee.
func (w *WalletService) ReceiveToken(ctx context.Context, tok domain.Token, kind domain.HistoryType, annotate func(*domain.HistoryEntry)) (int64, int64, error) {
	received, fee, err := w.Redeem(ctx, tok)
	if err != nil {
		return 0, 0, err
	}
	entry := &domain.HistoryEntry{
		Type:    kind,
		Amount:  received,
		Fee:     fee,
		Status:  domain.HistoryStatusSuccess,
		MintURL: domain.NormalizeMintURL(tok.MintURL),
	}
	if annotate != nil {
		annotate(entry)
	}
	w.record(ctx, entry)
	return received, fee, nil
}

// Redeem swaps tok into fresh proofs without recording history. Tokens from
// the engine's own flows (refunds) may come from a mint not yet trusted; the
// mint is then added so the value is never dropped.
func (w *WalletService) Redeem(ctx context.Context, tok domain.Token) (int64, int64, error) {
	if len(tok.Proofs) == 0 {
		return 0, 0, apperror.ErrInvalidToken(fmt.Errorf("no proofs"))
	}
	mintURL := domain.NormalizeMintURL(tok.MintURL)
	if !w.State().HasMint(mintURL) {
		if err := w.trustMint(ctx, mintURL); err != nil {
			return 0, 0, err
		}
	}

	w.opMu.Lock()
	defer w.opMu.Unlock()

	res, err := w.mint.Swap(ctx, mintURL, tok.Proofs, 0)
	if err != nil {
		return 0, 0, err
	}
	// The token is spent at the mint now; storing its replacement must not
	// depend on the caller still waiting.
	durable := context.WithoutCancel(ctx)
	fresh := append(append(domain.Proofs{}, res.Keep...), res.Send...)
	if _, err := w.ledger.Commit(durable, Mutation{MintURL: mintURL, Add: fresh}); err != nil {
		w.lostValue(durable, mintURL, fresh, err)
		return 0, 0, apperror.ErrDatabaseError(err)
	}

	w.publishBalance(mintURL)
	received := fresh.Sum()
	return received, tok.Amount() - received, nil
}

// Record appends a history entry stamped with the current balance.
func (w *WalletService) Record(ctx context.Context, entry *domain.HistoryEntry) {
	w.record(ctx, entry)
}

// Reconcile asks the mint for the state of every held proof and drops the
// ones it reports spent. It returns the value dropped.
func (w *WalletService) Reconcile(ctx context.Context, mintURL string) (int64, error) {
	mintURL, err := w.resolveMint(mintURL)
	if err != nil {
		return 0, err
	}
	w.opMu.Lock()
	defer w.opMu.Unlock()
	return w.reconcileLocked(ctx, mintURL)
}

func (w *WalletService) reconcileLocked(ctx context.Context, mintURL string) (int64, error) {
	held := w.ledger.Proofs(mintURL)
	if len(held) == 0 {
		return 0, nil
	}
	states, err := w.mint.CheckProofStates(ctx, mintURL, held)
	if err != nil {
		return 0, err
	}

	var spent domain.Proofs
	for _, st := range states {
		if st.State == domain.ProofStateSpent {
			spent = append(spent, st.Proof)
		}
	}
	if len(spent) == 0 {
		return 0, nil
	}
	if _, err := w.ledger.Commit(ctx, Mutation{MintURL: mintURL, Remove: spent}); err != nil {
		return 0, apperror.ErrDatabaseError(err)
	}

	dropped := spent.Sum()
	w.log.Warn().Str("mint", mintURL).Int("proofs", len(spent)).Int64("amount", dropped).Msg("dropped proofs spent elsewhere")
	w.auditLog(ctx, domain.AuditActionReconcile, "mint", mintURL, map[string]any{"dropped": dropped, "proofs": len(spent)})
	w.publishBalance(mintURL)
	return dropped, nil
}

// Claim mints the proofs of a paid quote into the ledger. Proofs already held
// are ignored, so a repeated claim adds nothing.
func (w *WalletService) Claim(ctx context.Context, mintURL, quoteID string, amount int64) (int64, error) {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	proofs, err := w.mint.MintProofs(ctx, mintURL, quoteID, amount)
	if err != nil {
		return 0, err
	}
	// The mint will not issue this quote again.
	durable := context.WithoutCancel(ctx)
	added, err := w.ledger.AddProofs(durable, mintURL, proofs, uuid.NewString())
	if err != nil {
		w.lostValue(durable, mintURL, proofs, err)
		return 0, apperror.ErrDatabaseError(err)
	}
	if added == 0 {
		return 0, nil
	}

	w.record(durable, &domain.HistoryEntry{
		Type:    domain.HistoryTypeMint,
		Amount:  added,
		Status:  domain.HistoryStatusSuccess,
		MintURL: mintURL,
		Message: quoteID,
	})
	w.publishBalance(mintURL)
	return added, nil
}

// PayMelt spends proofs worth the quote amount plus fee reserve (plus input
// fees) to pay a Lightning invoice. Unused reserve comes back as change.
func (w *WalletService) PayMelt(ctx context.Context, mintURL string, quote *ports.MeltQuote) (*MeltOutcome, error) {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	target := quote.Amount + quote.FeeReserve
	durable := context.WithoutCancel(ctx)
	var outcome *MeltOutcome
	err := w.withReconcile(ctx, mintURL, func() error {
		inputs, prepFee, err := w.prepareExactLocked(ctx, mintURL, target)
		if err != nil {
			return err
		}
		res, err := w.mint.MeltProofs(ctx, mintURL, quote.QuoteID, inputs)
		if err != nil {
			return err
		}
		if res.State != ports.QuoteStatePaid {
			// Inputs stay held; the mint reports them pending until it settles.
			outcome = &MeltOutcome{State: res.State, Blanks: res.Blanks}
			return nil
		}
		if _, err := w.ledger.Commit(durable, Mutation{MintURL: mintURL, Remove: inputs, Add: res.Change}); err != nil {
			w.lostValue(durable, mintURL, res.Change, err)
			return apperror.ErrDatabaseError(err)
		}
		outcome = &MeltOutcome{
			State:    res.State,
			Fee:      quote.FeeReserve + prepFee - res.Change.Sum(),
			Preimage: res.Preimage,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome.State == ports.QuoteStatePaid {
		w.record(durable, &domain.HistoryEntry{
			Type:    domain.HistoryTypeMelt,
			Amount:  quote.Amount,
			Fee:     outcome.Fee,
			Status:  domain.HistoryStatusSuccess,
			MintURL: mintURL,
			Message: quote.QuoteID,
		})
		w.publishBalance(mintURL)
	}
	return outcome, nil
}

// Snapshots exposes the live ledger snapshots for the backup mirror.
func (w *WalletService) Snapshots() []Snapshot {
	return w.ledger.Snapshots()
}

// MergeSnapshots applies snapshots written by another device. Snapshots that
// are known locally, or superseded by another remote snapshot, are skipped.
// Touched mints are reconciled afterwards since a remote snapshot may hold
// proofs this device already spent.
func (w *WalletService) MergeSnapshots(ctx context.Context, remote []Snapshot) (int, error) {
	superseded := make(map[string]struct{})
	for _, s := range remote {
		for _, id := range s.Supersedes {
			superseded[id] = struct{}{}
		}
	}

	w.opMu.Lock()
	defer w.opMu.Unlock()

	applied := 0
	mints := make(map[string]struct{})
	for _, s := range remote {
		if _, gone := superseded[s.Provenance]; gone || w.ledger.HasProvenance(s.Provenance) || len(s.Token.Proofs) == 0 {
			continue
		}
		mintURL := domain.NormalizeMintURL(s.Token.MintURL)
		if !w.State().HasMint(mintURL) {
			w.log.Warn().Str("mint", mintURL).Str("provenance", s.Provenance).Msg("skipping remote snapshot from untrusted mint")
			continue
		}
		if _, err := w.ledger.ApplyReplacement(ctx, Replacement{
			Provenance: s.Provenance,
			MintURL:    mintURL,
			Proofs:     s.Token.Proofs,
			Supersedes: s.Supersedes,
			Consumed:   s.Consumed,
		}); err != nil {
			return applied, apperror.ErrDatabaseError(err)
		}
		applied++
		mints[mintURL] = struct{}{}
	}

	for m := range mints {
		if _, err := w.reconcileLocked(ctx, m); err != nil {
			w.log.Warn().Err(err).Str("mint", m).Msg("reconcile after merge failed")
		}
		w.publishBalance(m)
	}
	return applied, nil
}

// prepareExactLocked returns held proofs summing exactly to target plus the
// input fee to spend them. Without an exact selection it swaps a covering set
// at the mint and commits the swapped proofs before returning the send part.
// The returned fee includes any swap fee already paid.
func (w *WalletService) prepareExactLocked(ctx context.Context, mintURL string, target int64) (domain.Proofs, int64, error) {
	keysets, err := w.mint.GetKeysets(ctx, mintURL)
	if err != nil {
		return nil, 0, err
	}
	fees := domain.NewFeeSchedule(keysets)
	held := w.ledger.Proofs(mintURL)

	selected, fee, err := w.selector.SelectWithFees(held, target, fees.InputFee)
	if err == nil {
		return selected, fee, nil
	}
	if !apperror.HasCode(err, apperror.CodeNoExactChange) && !apperror.HasCode(err, apperror.CodeFeeNotConverged) {
		return nil, 0, err
	}

	var ppk int64
	if active, ok := domain.ActiveKeyset(keysets, w.cfg.Unit); ok {
		ppk = active.InputFeePpk
	}
	send := grossUp(target, ppk, w.selector.maxFeeIterations)
	inputs, err := w.selector.SelectCovering(held, send, fees.InputFee)
	if err != nil {
		return nil, 0, err
	}

	w.log.Debug().Str("mint", mintURL).Int64("target", target).Int64("send", send).Int("inputs", len(inputs)).Msg("no exact change, swapping")
	res, err := w.mint.Swap(ctx, mintURL, inputs, send)
	if err != nil {
		return nil, 0, err
	}
	durable := context.WithoutCancel(ctx)
	fresh := append(append(domain.Proofs{}, res.Send...), res.Keep...)
	if _, err := w.ledger.Commit(durable, Mutation{MintURL: mintURL, Remove: inputs, Add: fresh}); err != nil {
		w.lostValue(durable, mintURL, fresh, err)
		return nil, 0, apperror.ErrDatabaseError(err)
	}
	return res.Send, send - target + inputs.Sum() - fresh.Sum(), nil
}

// grossUp returns an amount whose own power-of-two split pays its redeem fee
// on top of target. It only ever grows, so it stops at the first amount that
// covers its fee.
func grossUp(target, ppk int64, maxIterations int) int64 {
	amount := target
	for i := 0; i < maxIterations && ppk > 0; i++ {
		need := target + (int64(len(domain.SplitAmount(amount)))*ppk+999)/1000
		if need <= amount {
			break
		}
		amount = need
	}
	return amount
}

func (w *WalletService) withReconcile(ctx context.Context, mintURL string, op func() error) error {
	err := op()
	if err == nil || !apperror.HasCode(err, apperror.CodeAlreadySpent) {
		return err
	}
	w.log.Warn().Err(err).Str("mint", mintURL).Msg("proofs already spent, reconciling and retrying once")
	if _, rerr := w.reconcileLocked(ctx, mintURL); rerr != nil {
		w.log.Warn().Err(rerr).Str("mint", mintURL).Msg("reconcile failed")
		return err
	}
	return op()
}

func (w *WalletService) resolveMint(mintURL string) (string, error) {
	mintURL = domain.NormalizeMintURL(mintURL)
	state := w.State()
	if mintURL == "" {
		if len(state.Mints) == 0 {
			return "", apperror.Validation("no mint configured")
		}
		return state.Mints[0], nil
	}
	if !state.HasMint(mintURL) {
		return "", apperror.ErrUnknownMint(mintURL)
	}
	return mintURL, nil
}

func (w *WalletService) record(ctx context.Context, entry *domain.HistoryEntry) {
	entry.ID = uuid.New()
	entry.Timestamp = w.now().UTC()
	entry.BalanceAfter = w.ledger.Balance()
	if err := w.history.Append(ctx, entry); err != nil {
		w.log.Error().Err(err).Str("type", string(entry.Type)).Int64("amount", entry.Amount).Msg("failed to append history")
		w.auditLog(ctx, domain.AuditActionBilling, "history", entry.ID.String(), map[string]any{"error": err.Error(), "type": entry.Type, "amount": entry.Amount})
	}
	if w.events != nil {
		w.events.Publish(domain.TransactionRecorded{Entry: *entry})
	}
}

func (w *WalletService) publishBalance(mintURL string) {
	if w.events != nil {
		w.events.Publish(domain.ProofsChanged{MintURL: mintURL, Balance: w.ledger.Balance()})
	}
}

// lostValue reports proofs that the mint issued but the ledger failed to
// store. The encoded token is logged so the value can be recovered by hand.
func (w *WalletService) lostValue(ctx context.Context, mintURL string, proofs domain.Proofs, cause error) {
	encoded, _ := domain.Token{MintURL: mintURL, Unit: w.cfg.Unit, Proofs: proofs}.Encode()
	w.log.Error().Err(cause).Str("mint", mintURL).Int64("amount", proofs.Sum()).Str("token", encoded).Msg("failed to store issued proofs")
	w.auditLog(ctx, domain.AuditActionReconcile, "mint", mintURL, map[string]any{"error": cause.Error(), "amount": proofs.Sum()})
}

func (w *WalletService) auditLog(ctx context.Context, action domain.AuditAction, resourceType, resourceID string, details map[string]any) {
	if w.audit == nil {
		return
	}
	raw, _ := json.Marshal(details)
	w.audit.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		Owner:        w.owner,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      string(raw),
		CreatedAt:    w.now().UTC(),
	})
}

// SettlePendingMelt finishes a melt the mint has settled after reporting it
// pending: the change signed on the invoice's blank outputs is unblinded into
// the ledger, the spent inputs are dropped and the melt is recorded. It
// returns the fee actually paid and whether the ledger moved; a rerun after a
// crash adds nothing twice and records nothing.
func (w *WalletService) SettlePendingMelt(ctx context.Context, inv *domain.StoredInvoice) (int64, bool, error) {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	var change domain.Proofs
	if len(inv.ChangeOutputs) > 0 {
		res, err := w.mint.MeltChange(ctx, inv.MintURL, inv.QuoteID, inv.ChangeOutputs)
		if err != nil {
			return 0, false, err
		}
		if res.State != ports.QuoteStatePaid {
			return 0, false, apperror.ErrQuoteNotPaid()
		}
		change = res.Change
	}

	durable := context.WithoutCancel(ctx)
	var added int64
	if len(change) > 0 {
		var err error
		added, err = w.ledger.AddProofs(durable, inv.MintURL, change, uuid.NewString())
		if err != nil {
			w.lostValue(durable, inv.MintURL, change, err)
			return 0, false, apperror.ErrDatabaseError(err)
		}
	}
	dropped, err := w.reconcileLocked(durable, inv.MintURL)
	if err != nil {
		return 0, false, err
	}
	if dropped == 0 && added == 0 {
		return 0, false, nil
	}

	fee := max(dropped-inv.Amount-added, 0)
	w.record(durable, &domain.HistoryEntry{
		Type:    domain.HistoryTypeMelt,
		Amount:  inv.Amount,
		Fee:     fee,
		Status:  domain.HistoryStatusSuccess,
		MintURL: inv.MintURL,
		Message: inv.QuoteID,
	})
	w.publishBalance(inv.MintURL)
	return fee, true, nil
}

package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ledgerEntry struct {
	proof      domain.Proof
	mintURL    string
	provenance string
}

// Mutation removes spent proofs and adds new ones at one mint.
type Mutation struct {
	MintURL string
	Remove  domain.Proofs
	Add     domain.Proofs
}

// Replacement is a new snapshot declaring the snapshots it supersedes and the
// proofs it consumed. Proofs of a superseded snapshot that were not consumed
// and not re-issued survive under the new snapshot.
type Replacement struct {
	Provenance string
	MintURL    string
	Proofs     domain.Proofs
	Supersedes []string
	Consumed   []domain.ProofKey
}

// Snapshot is one live ledger snapshot: the proofs it currently holds plus
// what it replaced when it was created.
type Snapshot struct {
	Provenance string            `json:"provenance"`
	Token      domain.Token      `json:"token"`
	Supersedes []string          `json:"supersedes,omitempty"`
	Consumed   []domain.ProofKey `json:"consumed,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

type snapshotMeta struct {
	mintURL    string
	supersedes []string
	consumed   []domain.ProofKey
	createdAt  time.Time
}

// ProofLedger is the authoritative set of unspent proofs of one identity.
// Writes persist first and then update memory, one writer at a time. Balance
// is always derived from the set.
type ProofLedger struct {
	mu         sync.RWMutex
	repo       ports.ProofRepository
	proofs     map[domain.ProofKey]ledgerEntry
	provenance map[string]map[domain.ProofKey]struct{}
	meta       map[string]snapshotMeta
	log        zerolog.Logger
}

// NewProofLedger creates an empty ledger backed by repo.
func NewProofLedger(repo ports.ProofRepository, log zerolog.Logger) *ProofLedger {
	return &ProofLedger{
		repo:       repo,
		proofs:     make(map[domain.ProofKey]ledgerEntry),
		provenance: make(map[string]map[domain.ProofKey]struct{}),
		meta:       make(map[string]snapshotMeta),
		log:        log,
	}
}

// Load replaces the in-memory set with the persisted one. Malformed records
// are skipped.
func (l *ProofLedger) Load(ctx context.Context) error {
	records, err := l.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load proofs: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.proofs = make(map[domain.ProofKey]ledgerEntry, len(records))
	l.provenance = make(map[string]map[domain.ProofKey]struct{})
	l.meta = make(map[string]snapshotMeta)
	for _, rec := range records {
		if err := rec.Proof.Validate(); err != nil || rec.MintURL == "" || rec.Provenance == "" {
			l.log.Warn().Err(err).Str("secret_prefix", prefix(rec.Proof.Secret)).Msg("discarding malformed proof record")
			continue
		}
		l.insertLocked(ledgerEntry{proof: rec.Proof, mintURL: rec.MintURL, provenance: rec.Provenance})
		if _, ok := l.meta[rec.Provenance]; !ok {
			l.meta[rec.Provenance] = snapshotMeta{mintURL: rec.MintURL}
		}
	}
	l.log.Info().Int("proofs", len(l.proofs)).Int64("balance", l.balanceLocked()).Msg("ledger loaded")
	return nil
}

// AddProofs inserts proofs under provenanceID. Proofs already held are
// ignored, so replaying a claim never duplicates value. It returns the amount
// actually added.
func (l *ProofLedger) AddProofs(ctx context.Context, mintURL string, proofs domain.Proofs, provenanceID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var fresh []ports.ProofRecord
	var added int64
	for _, p := range proofs.Dedupe() {
		if _, held := l.proofs[p.Key()]; held {
			continue
		}
		fresh = append(fresh, ports.ProofRecord{MintURL: mintURL, Provenance: provenanceID, Proof: p})
		added += p.Amount
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := l.repo.ApplyChange(ctx, ports.ProofChange{Put: fresh}); err != nil {
		return 0, fmt.Errorf("persist added proofs: %w", err)
	}
	for _, rec := range fresh {
		l.insertLocked(ledgerEntry{proof: rec.Proof, mintURL: rec.MintURL, provenance: rec.Provenance})
	}
	if _, ok := l.meta[provenanceID]; !ok {
		l.meta[provenanceID] = snapshotMeta{mintURL: mintURL, createdAt: time.Now()}
	}
	return added, nil
}

// RemoveProofs deletes proofs by identity. Proofs not held are a no-op.
func (l *ProofLedger) RemoveProofs(ctx context.Context, proofs domain.Proofs) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var keys []domain.ProofKey
	for _, p := range proofs {
		if _, held := l.proofs[p.Key()]; held {
			keys = append(keys, p.Key())
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := l.repo.ApplyChange(ctx, ports.ProofChange{Delete: keys}); err != nil {
		return fmt.Errorf("persist removed proofs: %w", err)
	}
	for _, k := range keys {
		l.deleteLocked(k)
	}
	return nil
}

// ProofsByProvenance returns the proofs currently held under a snapshot.
func (l *ProofLedger) ProofsByProvenance(id string) domain.Proofs {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := l.provenance[id]
	out := make(domain.Proofs, 0, len(keys))
	for k := range keys {
		out = append(out, l.proofs[k].proof)
	}
	return out.SortedByAmount()
}

// ProvenanceOf returns the snapshot holding proof.
func (l *ProofLedger) ProvenanceOf(proof domain.Proof) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.proofs[proof.Key()]
	return e.provenance, ok
}

// Commit applies a mutation with the roll-over pattern: a new snapshot
// receives the added proofs plus the unspent remainder of every snapshot the
// removed proofs came from, and those snapshots are superseded.
func (l *ProofLedger) Commit(ctx context.Context, m Mutation) (*Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	touched := make(map[string]struct{})
	consumed := make([]domain.ProofKey, 0, len(m.Remove))
	for _, p := range m.Remove {
		consumed = append(consumed, p.Key())
		if e, held := l.proofs[p.Key()]; held {
			touched[e.provenance] = struct{}{}
		}
	}
	supersedes := make([]string, 0, len(touched))
	for id := range touched {
		supersedes = append(supersedes, id)
	}
	sort.Strings(supersedes)

	return l.applyLocked(ctx, Replacement{
		Provenance: uuid.NewString(),
		MintURL:    m.MintURL,
		Proofs:     m.Add,
		Supersedes: supersedes,
		Consumed:   consumed,
	})
}

// ApplyReplacement applies a snapshot produced elsewhere, e.g. by another
// device. Unconsumed proofs of superseded snapshots are folded into the new
// snapshot before the old ones are dropped.
func (l *ProofLedger) ApplyReplacement(ctx context.Context, r Replacement) (*Snapshot, error) {
	if r.Provenance == "" {
		return nil, fmt.Errorf("apply replacement: missing provenance")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.applyLocked(ctx, r)
}

func (l *ProofLedger) applyLocked(ctx context.Context, r Replacement) (*Snapshot, error) {
	consumed := make(map[domain.ProofKey]struct{}, len(r.Consumed))
	for _, k := range r.Consumed {
		consumed[k] = struct{}{}
	}

	var puts []ports.ProofRecord
	issued := make(map[domain.ProofKey]struct{}, len(r.Proofs))
	for _, p := range r.Proofs.Dedupe() {
		if _, spent := consumed[p.Key()]; spent {
			continue
		}
		issued[p.Key()] = struct{}{}
		puts = append(puts, ports.ProofRecord{MintURL: r.MintURL, Provenance: r.Provenance, Proof: p})
	}

	// keep = oldProofs - consumed, minus what the replacement re-issued itself
	for _, old := range r.Supersedes {
		for k := range l.provenance[old] {
			if _, spent := consumed[k]; spent {
				continue
			}
			if _, reissued := issued[k]; reissued {
				continue
			}
			e := l.proofs[k]
			puts = append(puts, ports.ProofRecord{MintURL: e.mintURL, Provenance: r.Provenance, Proof: e.proof})
		}
	}

	var deletes []domain.ProofKey
	for k := range consumed {
		if _, held := l.proofs[k]; held {
			deletes = append(deletes, k)
		}
	}

	if len(puts) > 0 || len(deletes) > 0 {
		if err := l.repo.ApplyChange(ctx, ports.ProofChange{Delete: deletes, Put: puts}); err != nil {
			return nil, fmt.Errorf("persist snapshot %s: %w", r.Provenance, err)
		}
	}

	for _, k := range deletes {
		l.deleteLocked(k)
	}
	for _, rec := range puts {
		if old, held := l.proofs[rec.Proof.Key()]; held {
			l.deleteLocked(rec.Proof.Key())
			rec.MintURL = old.mintURL
		}
		l.insertLocked(ledgerEntry{proof: rec.Proof, mintURL: rec.MintURL, provenance: rec.Provenance})
	}
	for _, old := range r.Supersedes {
		if old == r.Provenance {
			continue
		}
		if len(l.provenance[old]) > 0 {
			// Only reachable if a proof was concurrently re-tagged; never drop value.
			l.log.Error().Str("provenance", old).Int("remaining", len(l.provenance[old])).Msg("superseded snapshot still holds proofs")
			continue
		}
		delete(l.provenance, old)
		delete(l.meta, old)
	}

	meta := snapshotMeta{
		mintURL:    r.MintURL,
		supersedes: r.Supersedes,
		consumed:   r.Consumed,
		createdAt:  time.Now(),
	}
	// A snapshot that spent everything holds nothing and is not tracked.
	if len(l.provenance[r.Provenance]) > 0 {
		l.meta[r.Provenance] = meta
	}

	l.log.Debug().
		Str("provenance", r.Provenance).
		Strs("supersedes", r.Supersedes).
		Int("consumed", len(deletes)).
		Int("held", len(l.provenance[r.Provenance])).
		Msg("ledger snapshot committed")

	snap := l.snapshotLocked(r.Provenance)
	snap.Token.MintURL = meta.mintURL
	snap.Token.Supersedes = meta.supersedes
	snap.Supersedes = meta.supersedes
	snap.Consumed = meta.consumed
	snap.CreatedAt = meta.createdAt
	return snap, nil
}

// Snapshots returns every live snapshot, oldest first.
func (l *ProofLedger) Snapshots() []Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Snapshot, 0, len(l.provenance))
	for id := range l.provenance {
		out = append(out, *l.snapshotLocked(id))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Provenance < out[j].Provenance
	})
	return out
}

// HasProvenance reports whether a snapshot is live in this ledger.
func (l *ProofLedger) HasProvenance(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.provenance[id]
	return ok
}

// Proofs returns the proofs held for mintURL.
func (l *ProofLedger) Proofs(mintURL string) domain.Proofs {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out domain.Proofs
	for _, e := range l.proofs {
		if e.mintURL == mintURL {
			out = append(out, e.proof)
		}
	}
	return out.SortedByAmount()
}

// Contains reports whether proof is held.
func (l *ProofLedger) Contains(proof domain.Proof) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.proofs[proof.Key()]
	return ok
}

// Balance returns the sum of all unspent proofs.
func (l *ProofLedger) Balance() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceLocked()
}

// BalanceByMint returns the unspent sum per mint.
func (l *ProofLedger) BalanceByMint() map[string]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]int64)
	for _, e := range l.proofs {
		out[e.mintURL] += e.proof.Amount
	}
	return out
}

func (l *ProofLedger) balanceLocked() int64 {
	var total int64
	for _, e := range l.proofs {
		total += e.proof.Amount
	}
	return total
}

func (l *ProofLedger) snapshotLocked(id string) *Snapshot {
	meta := l.meta[id]
	proofs := make(domain.Proofs, 0, len(l.provenance[id]))
	for k := range l.provenance[id] {
		proofs = append(proofs, l.proofs[k].proof)
	}
	return &Snapshot{
		Provenance: id,
		Token: domain.Token{
			MintURL:    meta.mintURL,
			Proofs:     proofs.SortedByAmount(),
			Supersedes: meta.supersedes,
		},
		Supersedes: meta.supersedes,
		Consumed:   meta.consumed,
		CreatedAt:  meta.createdAt,
	}
}

func (l *ProofLedger) insertLocked(e ledgerEntry) {
	k := e.proof.Key()
	l.proofs[k] = e
	set, ok := l.provenance[e.provenance]
	if !ok {
		set = make(map[domain.ProofKey]struct{})
		l.provenance[e.provenance] = set
	}
	set[k] = struct{}{}
}

func (l *ProofLedger) deleteLocked(k domain.ProofKey) {
	e, ok := l.proofs[k]
	if !ok {
		return
	}
	delete(l.proofs, k)
	if set, ok := l.provenance[e.provenance]; ok {
		delete(set, k)
		if len(set) == 0 {
			delete(l.provenance, e.provenance)
			delete(l.meta, e.provenance)
		}
	}
}

func prefix(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

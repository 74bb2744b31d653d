package domain

import (
	"errors"
	"sort"
)

// Proof is a single unspent ecash note signed by a mint. Proofs are value
// objects: they are never mutated after issuance.
type Proof struct {
	ID     string `json:"id"` // keyset id
	Amount int64  `json:"amount"`
	Secret string `json:"secret"`
	C      string `json:"C"` // unblinded mint signature
}

// BlankOutput is a NUT-08 change output sent with a melt. The secret and
// blinding factor must outlive a pending melt, or the change the mint signs
// later cannot be unblinded.
type BlankOutput struct {
	KeysetID string `json:"id"`
	Secret   string `json:"secret"`
	R        string `json:"r"` // hex blinding factor
}

// ProofKey is the identity of a proof. Two proofs with the same keyset id and
// secret are the same note regardless of any other field.
type ProofKey struct {
	ID     string
	Secret string
}

// Key returns the identity of the proof.
func (p Proof) Key() ProofKey {
	return ProofKey{ID: p.ID, Secret: p.Secret}
}

// Validate rejects records that cannot represent a spendable note.
func (p Proof) Validate() error {
	switch {
	case p.ID == "":
		return errors.New("proof: missing keyset id")
	case p.Secret == "":
		return errors.New("proof: missing secret")
	case p.C == "":
		return errors.New("proof: missing signature")
	case p.Amount <= 0:
		return errors.New("proof: non-positive amount")
	}
	return nil
}

// Proofs is an ordered collection of proofs.
type Proofs []Proof

// Sum returns the total face value.
func (ps Proofs) Sum() int64 {
	var total int64
	for _, p := range ps {
		total += p.Amount
	}
	return total
}

// KeySet returns the identities of all proofs.
func (ps Proofs) KeySet() map[ProofKey]struct{} {
	keys := make(map[ProofKey]struct{}, len(ps))
	for _, p := range ps {
		keys[p.Key()] = struct{}{}
	}
	return keys
}

// Without returns the proofs whose identity is not in exclude.
func (ps Proofs) Without(exclude map[ProofKey]struct{}) Proofs {
	out := make(Proofs, 0, len(ps))
	for _, p := range ps {
		if _, skip := exclude[p.Key()]; !skip {
			out = append(out, p)
		}
	}
	return out
}

// Dedupe drops repeated identities, keeping the first occurrence.
func (ps Proofs) Dedupe() Proofs {
	seen := make(map[ProofKey]struct{}, len(ps))
	out := make(Proofs, 0, len(ps))
	for _, p := range ps {
		if _, dup := seen[p.Key()]; dup {
			continue
		}
		seen[p.Key()] = struct{}{}
		out = append(out, p)
	}
	return out
}

// SortedByAmount returns a copy ordered by amount, then secret, so selection
// results are deterministic for a given input set.
func (ps Proofs) SortedByAmount() Proofs {
	out := make(Proofs, len(ps))
	copy(out, ps)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount < out[j].Amount
		}
		return out[i].Secret < out[j].Secret
	})
	return out
}

// SplitAmount decomposes amount into power-of-two output denominations,
// smallest first.
func SplitAmount(amount int64) []int64 {
	var out []int64
	for bit := int64(1); amount > 0; bit <<= 1 {
		if amount&bit != 0 {
			out = append(out, bit)
			amount &^= bit
		}
	}
	return out
}

// ProofState is the mint's view of a proof (NUT-07).
type ProofState string

const (
	ProofStateUnspent ProofState = "UNSPENT"
	ProofStatePending ProofState = "PENDING"
	ProofStateSpent   ProofState = "SPENT"
)

// ProofStatus pairs a proof with its state at the mint.
type ProofStatus struct {
	Proof Proof
	State ProofState
}

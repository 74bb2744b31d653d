package domain

// Keyset is a versioned signing-key group at a mint.
type Keyset struct {
	ID          string `json:"id"`
	Unit        string `json:"unit"`
	Active      bool   `json:"active"`
	InputFeePpk int64  `json:"input_fee_ppk"` // parts per thousand, per input proof
}

// FeeSchedule maps keyset id to its per-input fee in parts per thousand.
type FeeSchedule map[string]int64

// NewFeeSchedule indexes keysets by id.
func NewFeeSchedule(keysets []Keyset) FeeSchedule {
	fs := make(FeeSchedule, len(keysets))
	for _, k := range keysets {
		fs[k.ID] = k.InputFeePpk
	}
	return fs
}

// InputFee returns the fee the mint charges to spend proofs as inputs:
// ceil(sum(ppk) / 1000). Unknown keysets are charged nothing.
func (fs FeeSchedule) InputFee(proofs Proofs) int64 {
	var ppk int64
	for _, p := range proofs {
		ppk += fs[p.ID]
	}
	return (ppk + 999) / 1000
}

// ActiveKeyset returns the first active keyset for unit.
func ActiveKeyset(keysets []Keyset, unit string) (Keyset, bool) {
	for _, k := range keysets {
		if k.Active && k.Unit == unit {
			return k, true
		}
	}
	return Keyset{}, false
}

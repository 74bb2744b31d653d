package domain

import (
	"strings"
	"time"
)

// WalletState is the per-identity wallet record. It is created at first
// login, mutated when mints are added and never deleted.
type WalletState struct {
	Owner      string    `json:"owner"`
	PrivateKey string    `json:"private_key"` // hex, unlocks proofs locked to the owner
	Mints      []string  `json:"mints"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NormalizeMintURL trims whitespace and trailing slashes so the same mint is
// never tracked under two keys.
func NormalizeMintURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// HasMint reports whether the wallet trusts the mint.
func (w WalletState) HasMint(mintURL string) bool {
	mintURL = NormalizeMintURL(mintURL)
	for _, m := range w.Mints {
		if m == mintURL {
			return true
		}
	}
	return false
}

// AddMint registers a mint. It reports false when the mint was already known.
func (w *WalletState) AddMint(mintURL string, now time.Time) bool {
	if w.HasMint(mintURL) {
		return false
	}
	w.Mints = append(w.Mints, NormalizeMintURL(mintURL))
	w.UpdatedAt = now
	return true
}

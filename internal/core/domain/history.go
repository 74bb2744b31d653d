package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryType is the kind of value movement recorded in history.
type HistoryType string

const (
	HistoryTypeMint    HistoryType = "mint"
	HistoryTypeMelt    HistoryType = "melt"
	HistoryTypeSend    HistoryType = "send"
	HistoryTypeReceive HistoryType = "receive"
	HistoryTypeSpent   HistoryType = "spent" // paid inference
	HistoryTypeRefund  HistoryType = "refund"
)

// Valid reports whether t is a known history type.
func (t HistoryType) Valid() bool {
	switch t {
	case HistoryTypeMint, HistoryTypeMelt, HistoryTypeSend, HistoryTypeReceive, HistoryTypeSpent, HistoryTypeRefund:
		return true
	}
	return false
}

// HistoryStatus is the outcome of the recorded movement.
type HistoryStatus string

const (
	HistoryStatusSuccess HistoryStatus = "success"
	HistoryStatusFailed  HistoryStatus = "failed"
)

// HistoryEntry is an append-only record of one value movement. Entries are
// never mutated after they are written.
type HistoryEntry struct {
	ID           uuid.UUID     `json:"id"`
	Type         HistoryType   `json:"type"`
	Amount       int64         `json:"amount"`
	Fee          int64         `json:"fee,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
	Status       HistoryStatus `json:"status"`
	BalanceAfter int64         `json:"balance_after"`
	MintURL      string        `json:"mint_url,omitempty"`
	Provider     string        `json:"provider,omitempty"`
	Model        string        `json:"model,omitempty"`
	RequestID    string        `json:"request_id,omitempty"`
	Message      string        `json:"message,omitempty"`
}

// IsDebit returns true if the entry reduced the balance.
func (h *HistoryEntry) IsDebit() bool {
	switch h.Type {
	case HistoryTypeMelt, HistoryTypeSend, HistoryTypeSpent:
		return true
	}
	return false
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a domain event emitted by the engine.
type EventType string

const (
	EventProofsChanged       EventType = "proofs_changed"
	EventInvoiceStateChanged EventType = "invoice_state_changed"
	EventTransactionRecorded EventType = "transaction_recorded"
	EventBillingWarning      EventType = "billing_warning"
)

// Event is implemented by every domain event.
type Event interface {
	Type() EventType
}

// ProofsChanged is emitted after any ledger mutation.
type ProofsChanged struct {
	MintURL string `json:"mint_url"`
	Balance int64  `json:"balance"`
}

func (ProofsChanged) Type() EventType { return EventProofsChanged }

// InvoiceStateChanged is emitted after a durable invoice transition.
type InvoiceStateChanged struct {
	InvoiceID uuid.UUID    `json:"invoice_id"`
	QuoteID   string       `json:"quote_id"`
	Kind      InvoiceKind  `json:"kind"`
	From      InvoiceState `json:"from"`
	To        InvoiceState `json:"to"`
}

func (InvoiceStateChanged) Type() EventType { return EventInvoiceStateChanged }

// TransactionRecorded is emitted after a history entry is appended.
type TransactionRecorded struct {
	Entry HistoryEntry `json:"entry"`
}

func (TransactionRecorded) Type() EventType { return EventTransactionRecorded }

// BillingWarning surfaces a financial anomaly to the user, such as an
// overcharge or a failed refund.
type BillingWarning struct {
	Provider  string    `json:"provider"`
	Model     string    `json:"model,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

func (BillingWarning) Type() EventType { return EventBillingWarning }

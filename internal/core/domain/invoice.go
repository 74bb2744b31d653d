package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InvoiceKind distinguishes incoming (mint) from outgoing (melt) settlements.
type InvoiceKind string

const (
	InvoiceKindMint InvoiceKind = "mint"
	InvoiceKindMelt InvoiceKind = "melt"
)

// InvoiceState is the lifecycle state of a stored invoice.
type InvoiceState string

const (
	InvoiceStateUnpaid  InvoiceState = "UNPAID"
	InvoiceStatePaid    InvoiceState = "PAID"
	InvoiceStateIssued  InvoiceState = "ISSUED"
	InvoiceStateExpired InvoiceState = "EXPIRED"
)

// ErrInvalidTransition is returned when a state change would break the
// lifecycle order.
var ErrInvalidTransition = errors.New("invalid invoice state transition")

// Valid reports whether s is a known state.
func (s InvoiceState) Valid() bool {
	switch s {
	case InvoiceStateUnpaid, InvoiceStatePaid, InvoiceStateIssued, InvoiceStateExpired:
		return true
	}
	return false
}

// StoredInvoice is one Lightning settlement attempt. It is persisted as UNPAID
// as soon as the mint hands out a quote.
type StoredInvoice struct {
	ID             uuid.UUID    `json:"id"`
	Kind           InvoiceKind  `json:"kind"`
	MintURL        string       `json:"mint_url"`
	QuoteID        string       `json:"quote_id"`
	PaymentRequest string       `json:"payment_request"`
	Amount         int64        `json:"amount"`
	State          InvoiceState `json:"state"`
	Fee            *int64       `json:"fee,omitempty"` // melt fee reserve, then actual fee
	CreatedAt      time.Time    `json:"created_at"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
	CheckedAt      *time.Time   `json:"checked_at,omitempty"`
	PaidAt         *time.Time   `json:"paid_at,omitempty"`
	IssuedAt       *time.Time   `json:"issued_at,omitempty"`
	UpdatedAt      time.Time    `json:"updated_at"`

	// ChangeOutputs of a melt the mint left pending, kept until it settles.
	ChangeOutputs []BlankOutput `json:"change_outputs,omitempty"`
}

// Validate rejects records the loader must discard.
func (i *StoredInvoice) Validate() error {
	switch {
	case i.ID == uuid.Nil:
		return errors.New("invoice: missing id")
	case i.Kind != InvoiceKindMint && i.Kind != InvoiceKindMelt:
		return fmt.Errorf("invoice: unknown kind %q", i.Kind)
	case i.QuoteID == "":
		return errors.New("invoice: missing quote id")
	case i.MintURL == "":
		return errors.New("invoice: missing mint url")
	case !i.State.Valid():
		return fmt.Errorf("invoice: unknown state %q", i.State)
	case i.Amount <= 0:
		return errors.New("invoice: non-positive amount")
	}
	return nil
}

// IsTerminal returns true if the invoice will never change state again. A
// melt invoice ends at PAID.
func (i *StoredInvoice) IsTerminal() bool {
	switch i.State {
	case InvoiceStateIssued, InvoiceStateExpired:
		return true
	case InvoiceStatePaid:
		return i.Kind == InvoiceKindMelt
	}
	return false
}

// NeedsClaim returns true for a paid mint invoice whose proofs were not yet
// issued.
func (i *StoredInvoice) NeedsClaim() bool {
	return i.Kind == InvoiceKindMint && i.State == InvoiceStatePaid
}

// IsExpired returns true if the quote expiry has passed.
func (i *StoredInvoice) IsExpired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// CanTransition reports whether kind allows moving from one state to another.
func CanTransition(kind InvoiceKind, from, to InvoiceState) bool {
	switch from {
	case InvoiceStateUnpaid:
		return to == InvoiceStatePaid || to == InvoiceStateExpired
	case InvoiceStatePaid:
		return kind == InvoiceKindMint && to == InvoiceStateIssued
	}
	return false
}

// CanReach reports whether to lies strictly ahead of from on kind's lifecycle,
// possibly several transitions away. EXPIRED and PAID sit on separate branches
// and never reach each other.
func CanReach(kind InvoiceKind, from, to InvoiceState) bool {
	if CanTransition(kind, from, to) {
		return true
	}
	return from == InvoiceStateUnpaid && CanTransition(kind, InvoiceStatePaid, to)
}

// Transition moves the invoice to state to, stamping the matching timestamp.
func (i *StoredInvoice) Transition(to InvoiceState, now time.Time) error {
	if !CanTransition(i.Kind, i.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, i.State, to)
	}
	i.State = to
	i.UpdatedAt = now
	switch to {
	case InvoiceStatePaid:
		i.PaidAt = &now
	case InvoiceStateIssued:
		i.IssuedAt = &now
	}
	return nil
}

// MarkChecked records a completed poll.
func (i *StoredInvoice) MarkChecked(now time.Time) {
	i.CheckedAt = &now
	i.UpdatedAt = now
}

// Retention holds how long invoices are kept after reaching each class of
// state.
type Retention struct {
	Issued time.Duration // completed: ISSUED mint or PAID melt
	Paid   time.Duration // PAID mint invoice whose proofs were never claimed
	Other  time.Duration
}

// PurgeAfter returns the instant after which the invoice may be deleted. An
// unexpired UNPAID invoice is never purgeable and returns false.
func (i *StoredInvoice) PurgeAfter(r Retention, now time.Time) (time.Time, bool) {
	switch {
	case i.State == InvoiceStateIssued:
		return stamp(i.IssuedAt, i.UpdatedAt).Add(r.Issued), true
	case i.State == InvoiceStatePaid && i.Kind == InvoiceKindMelt:
		return stamp(i.PaidAt, i.UpdatedAt).Add(r.Issued), true
	case i.State == InvoiceStatePaid:
		return stamp(i.PaidAt, i.UpdatedAt).Add(r.Paid), true
	case i.State == InvoiceStateExpired:
		return i.UpdatedAt.Add(r.Other), true
	case i.State == InvoiceStateUnpaid && i.IsExpired(now):
		return i.ExpiresAt.Add(r.Other), true
	case i.State == InvoiceStateUnpaid && i.ExpiresAt == nil:
		return i.CreatedAt.Add(r.Other), true
	}
	return time.Time{}, false
}

// NewerThan decides whether i replaces other in a merge of two copies of the
// same invoice. It wins when its state lies ahead of other's, or when both
// share a state and i was updated later.
func (i *StoredInvoice) NewerThan(other *StoredInvoice) bool {
	if i.State == other.State {
		return i.UpdatedAt.After(other.UpdatedAt)
	}
	return CanReach(other.Kind, other.State, i.State)
}

func stamp(t *time.Time, fallback time.Time) time.Time {
	if t != nil {
		return *t
	}
	return fallback
}

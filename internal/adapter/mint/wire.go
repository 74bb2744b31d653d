package mint

import (
	"encoding/hex"
	"fmt"
	"math/bits"
	"strings"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/elnosh/gonuts/cashu"
)

// Request and response bodies of the bolt11 quote endpoints. Quote states
// are decoded as strings so mints on older NUT revisions, which only send
// "paid", still map onto ports.QuoteState.

type keysetsResponse struct {
	Keysets []struct {
		ID          string `json:"id"`
		Unit        string `json:"unit"`
		Active      bool   `json:"active"`
		InputFeePpk int64  `json:"input_fee_ppk"`
	} `json:"keysets"`
}

type keysResponse struct {
	Keysets []struct {
		ID   string            `json:"id"`
		Unit string            `json:"unit"`
		Keys map[uint64]string `json:"keys"`
	} `json:"keysets"`
}

type mintQuoteRequest struct {
	Amount uint64 `json:"amount"`
	Unit   string `json:"unit"`
}

type mintQuoteResponse struct {
	Quote   string `json:"quote"`
	Request string `json:"request"`
	Amount  uint64 `json:"amount,omitempty"`
	State   string `json:"state"`
	Paid    *bool  `json:"paid,omitempty"`
	Expiry  *int64 `json:"expiry"`
}

func (r mintQuoteResponse) toPort() *ports.MintQuote {
	return &ports.MintQuote{
		QuoteID:        r.Quote,
		PaymentRequest: r.Request,
		Amount:         int64(r.Amount),
		State:          quoteState(r.State, r.Paid),
		Expiry:         unixTime(r.Expiry),
	}
}

type mintRequest struct {
	Quote   string                `json:"quote"`
	Outputs cashu.BlindedMessages `json:"outputs"`
}

type signaturesResponse struct {
	Signatures cashu.BlindedSignatures `json:"signatures"`
}

type meltQuoteRequest struct {
	Request string `json:"request"`
	Unit    string `json:"unit"`
}

type meltQuoteResponse struct {
	Quote      string                  `json:"quote"`
	Amount     uint64                  `json:"amount"`
	FeeReserve uint64                  `json:"fee_reserve"`
	State      string                  `json:"state"`
	Paid       *bool                   `json:"paid,omitempty"`
	Expiry     *int64                  `json:"expiry"`
	Preimage   *string                 `json:"payment_preimage,omitempty"`
	Change     cashu.BlindedSignatures `json:"change,omitempty"`
}

func (r meltQuoteResponse) state() ports.QuoteState {
	return quoteState(r.State, r.Paid)
}

func (r meltQuoteResponse) toPort() *ports.MeltQuote {
	return &ports.MeltQuote{
		QuoteID:    r.Quote,
		Amount:     int64(r.Amount),
		FeeReserve: int64(r.FeeReserve),
		State:      r.state(),
		Expiry:     unixTime(r.Expiry),
	}
}

type meltRequest struct {
	Quote   string                `json:"quote"`
	Inputs  cashu.Proofs          `json:"inputs"`
	Outputs cashu.BlindedMessages `json:"outputs,omitempty"`
}

type swapRequest struct {
	Inputs  cashu.Proofs          `json:"inputs"`
	Outputs cashu.BlindedMessages `json:"outputs"`
}

type checkStateRequest struct {
	Ys []string `json:"Ys"`
}

type checkStateResponse struct {
	States []struct {
		Y     string `json:"Y"`
		State string `json:"state"`
	} `json:"states"`
}

func quoteState(state string, paid *bool) ports.QuoteState {
	switch s := ports.QuoteState(strings.ToUpper(state)); s {
	case ports.QuoteStateUnpaid, ports.QuoteStatePending, ports.QuoteStatePaid, ports.QuoteStateIssued:
		return s
	}
	if paid != nil && *paid {
		return ports.QuoteStatePaid
	}
	return ports.QuoteStateUnpaid
}

func unixTime(sec *int64) *time.Time {
	if sec == nil || *sec <= 0 {
		return nil
	}
	t := time.Unix(*sec, 0).UTC()
	return &t
}

// outputSet keeps the blinding data of a request's outputs in request order;
// the mint answers with signatures in the same order.
type outputSet []*blindedOutput

func newOutputs(amounts []int64, keysetID string) (outputSet, error) {
	set := make(outputSet, 0, len(amounts))
	for _, a := range amounts {
		out, err := blind(uint64(a), keysetID)
		if err != nil {
			return nil, err
		}
		set = append(set, out)
	}
	return set, nil
}

func (s outputSet) messages() cashu.BlindedMessages {
	msgs := make(cashu.BlindedMessages, len(s))
	for i, o := range s {
		msgs[i] = cashu.BlindedMessage{
			Amount: o.Amount,
			B_:     hexPoint(o.B),
			Id:     o.KeysetID,
		}
	}
	return msgs
}

// blanks exports the blinding data of s so the change of a pending melt can
// be unblinded after a restart.
func (s outputSet) blanks() []domain.BlankOutput {
	out := make([]domain.BlankOutput, len(s))
	for i, o := range s {
		out[i] = domain.BlankOutput{
			KeysetID: o.KeysetID,
			Secret:   o.Secret,
			R:        hex.EncodeToString(o.R.Serialize()),
		}
	}
	return out
}

// outputsFromBlanks rebuilds the blinding data of stored blank outputs. The
// blinded points are not needed to unblind and are left unset.
func outputsFromBlanks(blanks []domain.BlankOutput) (outputSet, error) {
	set := make(outputSet, 0, len(blanks))
	for i, b := range blanks {
		raw, err := hex.DecodeString(b.R)
		if err != nil || len(raw) != 32 {
			return nil, fmt.Errorf("blank output %d: invalid blinding factor", i)
		}
		set = append(set, &blindedOutput{
			Amount:   1,
			KeysetID: b.KeysetID,
			Secret:   b.Secret,
			R:        secp256k1.PrivKeyFromBytes(raw),
		})
	}
	return set, nil
}

// blankAmounts sizes the NUT-08 blank outputs for returning up to overpaid
// as change. The mint assigns the real amounts.
func blankAmounts(overpaid int64) []int64 {
	n := bits.Len64(uint64(overpaid))
	if n == 0 {
		n = 1
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func toCashuProofs(ps domain.Proofs) cashu.Proofs {
	out := make(cashu.Proofs, len(ps))
	for i, p := range ps {
		out[i] = cashu.Proof{
			Amount: uint64(p.Amount),
			Id:     p.ID,
			Secret: p.Secret,
			C:      p.C,
		}
	}
	return out
}

func hexPoint(pk *secp256k1.PublicKey) string {
	return hex.EncodeToString(pk.SerializeCompressed())
}

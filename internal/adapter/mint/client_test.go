package mint

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/apperror"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/elnosh/gonuts/cashu"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeysetID = "00ad268c4d1f5826"

// testMint is a minimal Cashu mint: one sat keyset, bolt11 quotes paid on
// demand, and real blind signatures.
type testMint struct {
	t     *testing.T
	ppk   int64
	privs map[uint64]*secp256k1.PrivateKey

	mu         sync.Mutex
	spent      map[string]bool
	mintQuotes map[string]string
	meltQuotes map[string]uint64
	keyFetches int

	meltPending bool
	pending     map[string]*pendingMelt
}

// pendingMelt is a melt held back until settle signs its change.
type pendingMelt struct {
	outputs  cashu.BlindedMessages
	overpaid uint64
	change   cashu.BlindedSignatures
	paid     bool
}

func newTestMint(t *testing.T, ppk int64) (*testMint, *httptest.Server) {
	t.Helper()
	m := &testMint{
		t:          t,
		ppk:        ppk,
		privs:      make(map[uint64]*secp256k1.PrivateKey),
		spent:      make(map[string]bool),
		mintQuotes: make(map[string]string),
		meltQuotes: make(map[string]uint64),
		pending:    make(map[string]*pendingMelt),
	}
	for a := uint64(1); a <= 1<<12; a <<= 1 {
		k, err := secp256k1.GeneratePrivateKey()
		require.NoError(t, err)
		m.privs[a] = k
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/keysets", m.handleKeysets)
	mux.HandleFunc("GET /v1/keys/{id}", m.handleKeys)
	mux.HandleFunc("POST /v1/mint/quote/bolt11", m.handleMintQuote)
	mux.HandleFunc("GET /v1/mint/quote/bolt11/{id}", m.handleCheckMintQuote)
	mux.HandleFunc("POST /v1/mint/bolt11", m.handleMint)
	mux.HandleFunc("POST /v1/melt/quote/bolt11", m.handleMeltQuote)
	mux.HandleFunc("POST /v1/melt/bolt11", m.handleMelt)
	mux.HandleFunc("GET /v1/melt/quote/bolt11/{id}", m.handleCheckMeltQuote)
	mux.HandleFunc("POST /v1/swap", m.handleSwap)
	mux.HandleFunc("POST /v1/checkstate", m.handleCheckState)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return m, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeCashuError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, http.StatusBadRequest, cashu.Error{Detail: detail, Code: cashu.CashuErrCode(code)})
}

func (m *testMint) handleKeysets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"keysets": []map[string]any{
		{"id": testKeysetID, "unit": "sat", "active": true, "input_fee_ppk": m.ppk},
		{"id": "00deadbeef000000", "unit": "sat", "active": false, "input_fee_ppk": 0},
	}})
}

func (m *testMint) handleKeys(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.keyFetches++
	m.mu.Unlock()
	keys := make(map[uint64]string, len(m.privs))
	for a, k := range m.privs {
		keys[a] = hex.EncodeToString(k.PubKey().SerializeCompressed())
	}
	writeJSON(w, http.StatusOK, map[string]any{"keysets": []map[string]any{
		{"id": r.PathValue("id"), "unit": "sat", "keys": keys},
	}})
}

func (m *testMint) handleMintQuote(w http.ResponseWriter, r *http.Request) {
	var req mintQuoteRequest
	require.NoError(m.t, json.NewDecoder(r.Body).Decode(&req))
	m.mu.Lock()
	id := "mq" + string(rune('a'+len(m.mintQuotes)))
	m.mintQuotes[id] = "UNPAID"
	m.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"quote":   id,
		"request": "lnbc1test",
		"state":   "UNPAID",
		"expiry":  time.Now().Add(time.Hour).Unix(),
	})
}

func (m *testMint) handleCheckMintQuote(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	state, ok := m.mintQuotes[r.PathValue("id")]
	m.mu.Unlock()
	if !ok {
		writeCashuError(w, 20004, "quote not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quote": r.PathValue("id"), "request": "lnbc1test", "state": state})
}

func (m *testMint) pay(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mintQuotes[id] = "PAID"
}

func (m *testMint) sign(outputs cashu.BlindedMessages, amounts []uint64) cashu.BlindedSignatures {
	sigs := make(cashu.BlindedSignatures, len(amounts))
	for i, a := range amounts {
		b, err := parsePoint(outputs[i].B_)
		require.NoError(m.t, err)
		sigs[i] = cashu.BlindedSignature{Amount: a, C_: hexPoint(mulPoint(m.privs[a], b)), Id: testKeysetID}
	}
	return sigs
}

func (m *testMint) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	require.NoError(m.t, json.NewDecoder(r.Body).Decode(&req))
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.mintQuotes[req.Quote] {
	case "UNPAID":
		writeCashuError(w, errCodeQuoteNotPaid, "quote not paid")
		return
	case "ISSUED":
		writeCashuError(w, errCodeQuoteIssued, "tokens already issued for this quote")
		return
	}
	m.mintQuotes[req.Quote] = "ISSUED"
	amounts := make([]uint64, len(req.Outputs))
	for i, o := range req.Outputs {
		amounts[i] = o.Amount
	}
	writeJSON(w, http.StatusOK, signaturesResponse{Signatures: m.sign(req.Outputs, amounts)})
}

// verify checks the mint signature on each input and marks them spent.
func (m *testMint) redeem(inputs cashu.Proofs) (uint64, int) {
	var total uint64
	for _, p := range inputs {
		if m.spent[p.Secret] {
			return 0, errCodeProofSpent
		}
		y, err := HashToCurve([]byte(p.Secret))
		require.NoError(m.t, err)
		c, err := parsePoint(p.C)
		require.NoError(m.t, err)
		if !c.IsEqual(mulPoint(m.privs[p.Amount], y)) {
			return 0, 10003
		}
		total += p.Amount
	}
	for _, p := range inputs {
		m.spent[p.Secret] = true
	}
	return total, 0
}

func (m *testMint) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	require.NoError(m.t, json.NewDecoder(r.Body).Decode(&req))
	m.mu.Lock()
	defer m.mu.Unlock()

	var out uint64
	amounts := make([]uint64, len(req.Outputs))
	for i, o := range req.Outputs {
		out += o.Amount
		amounts[i] = o.Amount
	}
	fee := (uint64(len(req.Inputs))*uint64(m.ppk) + 999) / 1000
	var in uint64
	for _, p := range req.Inputs {
		in += p.Amount
	}
	if in != out+fee {
		writeCashuError(w, 11002, "transaction is not balanced")
		return
	}
	if _, code := m.redeem(req.Inputs); code != 0 {
		writeCashuError(w, code, "token already spent")
		return
	}
	writeJSON(w, http.StatusOK, signaturesResponse{Signatures: m.sign(req.Outputs, amounts)})
}

func (m *testMint) handleMeltQuote(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	id := "melt" + string(rune('a'+len(m.meltQuotes)))
	m.meltQuotes[id] = 5
	m.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"quote": id, "amount": 5, "fee_reserve": 2, "state": "UNPAID"})
}

func (m *testMint) handleMelt(w http.ResponseWriter, r *http.Request) {
	var req meltRequest
	require.NoError(m.t, json.NewDecoder(r.Body).Decode(&req))
	m.mu.Lock()
	defer m.mu.Unlock()

	total, code := m.redeem(req.Inputs)
	if code != 0 {
		writeCashuError(w, code, "token already spent")
		return
	}
	overpaid := total - m.meltQuotes[req.Quote]
	if m.meltPending {
		m.pending[req.Quote] = &pendingMelt{outputs: req.Outputs, overpaid: overpaid}
		writeJSON(w, http.StatusOK, map[string]any{"quote": req.Quote, "amount": 5, "fee_reserve": 2, "state": "PENDING"})
		return
	}
	var amounts []uint64
	for _, a := range domain.SplitAmount(int64(overpaid)) {
		amounts = append(amounts, uint64(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"quote":            req.Quote,
		"amount":           5,
		"fee_reserve":      2,
		"state":            "PAID",
		"payment_preimage": "00ff",
		"change":           m.sign(req.Outputs, amounts),
	})
}

// settle pays a pending melt and signs its change on the stored outputs.
func (m *testMint) settle(quote string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pending[quote]
	var amounts []uint64
	for _, a := range domain.SplitAmount(int64(p.overpaid)) {
		amounts = append(amounts, uint64(a))
	}
	p.change = m.sign(p.outputs, amounts)
	p.paid = true
}

func (m *testMint) handleCheckMeltQuote(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := r.PathValue("id")
	body := map[string]any{"quote": id, "amount": 5, "fee_reserve": 2, "state": "UNPAID"}
	if p, ok := m.pending[id]; ok {
		body["state"] = "PENDING"
		if p.paid {
			body["state"] = "PAID"
			body["payment_preimage"] = "00ff"
			body["change"] = p.change
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (m *testMint) handleCheckState(w http.ResponseWriter, r *http.Request) {
	var req checkStateRequest
	require.NoError(m.t, json.NewDecoder(r.Body).Decode(&req))
	m.mu.Lock()
	defer m.mu.Unlock()

	spentY := make(map[string]bool)
	for secret := range m.spent {
		y, err := proofY(secret)
		require.NoError(m.t, err)
		spentY[y] = true
	}
	states := make([]map[string]string, len(req.Ys))
	for i, y := range req.Ys {
		state := "UNSPENT"
		if spentY[y] {
			state = "SPENT"
		}
		states[i] = map[string]string{"Y": y, "state": state}
	}
	writeJSON(w, http.StatusOK, map[string]any{"states": states})
}

func newTestClient() *Client {
	return NewClient(nil, Config{Unit: "sat", Timeout: 5 * time.Second}, zerolog.Nop())
}

func mintFunded(t *testing.T, c *Client, m *testMint, url string, amount int64) domain.Proofs {
	t.Helper()
	ctx := context.Background()
	q, err := c.CreateMintQuote(ctx, url, amount)
	require.NoError(t, err)
	m.pay(q.QuoteID)
	proofs, err := c.MintProofs(ctx, url, q.QuoteID, amount)
	require.NoError(t, err)
	return proofs
}

func TestClient_GetKeysets(t *testing.T) {
	_, srv := newTestMint(t, 100)
	c := newTestClient()

	keysets, err := c.GetKeysets(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, keysets, 2)
	assert.Equal(t, domain.Keyset{ID: testKeysetID, Unit: "sat", Active: true, InputFeePpk: 100}, keysets[0])
	assert.False(t, keysets[1].Active)
}

func TestClient_MintQuoteLifecycle(t *testing.T) {
	m, srv := newTestMint(t, 0)
	c := newTestClient()
	ctx := context.Background()

	q, err := c.CreateMintQuote(ctx, srv.URL, 13)
	require.NoError(t, err)
	assert.Equal(t, ports.QuoteStateUnpaid, q.State)
	assert.Equal(t, int64(13), q.Amount)
	assert.Equal(t, "lnbc1test", q.PaymentRequest)
	require.NotNil(t, q.Expiry)

	_, err = c.MintProofs(ctx, srv.URL, q.QuoteID, 13)
	assert.True(t, apperror.HasCode(err, apperror.CodeQuoteNotPaid))

	m.pay(q.QuoteID)
	checked, err := c.CheckMintQuote(ctx, srv.URL, q.QuoteID)
	require.NoError(t, err)
	assert.Equal(t, ports.QuoteStatePaid, checked.State)

	proofs, err := c.MintProofs(ctx, srv.URL, q.QuoteID, 13)
	require.NoError(t, err)
	assert.Equal(t, int64(13), proofs.Sum())
	assert.Len(t, proofs, 3)
	for _, p := range proofs {
		assert.NoError(t, p.Validate())
		assert.Equal(t, testKeysetID, p.ID)
	}

	_, err = c.MintProofs(ctx, srv.URL, q.QuoteID, 13)
	assert.True(t, apperror.HasCode(err, apperror.CodeQuoteAlreadyIssued))
}

func TestClient_Swap(t *testing.T) {
	m, srv := newTestMint(t, 100)
	c := newTestClient()
	ctx := context.Background()
	inputs := mintFunded(t, c, m, srv.URL, 13)

	res, err := c.Swap(ctx, srv.URL, inputs, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Send.Sum())
	assert.Equal(t, int64(7), res.Keep.Sum()) // 13 - 5 - fee of 3 inputs at 100 ppk

	_, err = c.Swap(ctx, srv.URL, inputs, 5)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadySpent))

	again, err := c.Swap(ctx, srv.URL, res.Send, 0)
	require.NoError(t, err)
	assert.Empty(t, again.Send)
	assert.Equal(t, int64(4), again.Keep.Sum())
}

func TestClient_Swap_RejectsOverdraw(t *testing.T) {
	m, srv := newTestMint(t, 0)
	c := newTestClient()
	inputs := mintFunded(t, c, m, srv.URL, 4)

	_, err := c.Swap(context.Background(), srv.URL, inputs, 5)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientFunds))
}

func TestClient_CheckProofStates(t *testing.T) {
	m, srv := newTestMint(t, 0)
	c := newTestClient()
	ctx := context.Background()
	inputs := mintFunded(t, c, m, srv.URL, 6)

	res, err := c.Swap(ctx, srv.URL, inputs, 2)
	require.NoError(t, err)

	states, err := c.CheckProofStates(ctx, srv.URL, append(inputs, res.Send...))
	require.NoError(t, err)
	require.Len(t, states, 3)
	for _, st := range states[:2] {
		assert.Equal(t, domain.ProofStateSpent, st.State)
	}
	assert.Equal(t, domain.ProofStateUnspent, states[2].State)
	assert.Equal(t, res.Send[0], states[2].Proof)

	empty, err := c.CheckProofStates(ctx, srv.URL, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestClient_MeltReturnsChange(t *testing.T) {
	m, srv := newTestMint(t, 0)
	c := newTestClient()
	ctx := context.Background()
	inputs := mintFunded(t, c, m, srv.URL, 8)

	q, err := c.CreateMeltQuote(ctx, srv.URL, "lnbc50n1dest")
	require.NoError(t, err)
	assert.Equal(t, int64(5), q.Amount)
	assert.Equal(t, int64(2), q.FeeReserve)

	res, err := c.MeltProofs(ctx, srv.URL, q.QuoteID, inputs)
	require.NoError(t, err)
	assert.Equal(t, ports.QuoteStatePaid, res.State)
	assert.Equal(t, "00ff", res.Preimage)
	assert.Equal(t, int64(3), res.Change.Sum())

	// Change proofs are spendable.
	_, err = c.Swap(ctx, srv.URL, res.Change, 3)
	assert.NoError(t, err)
}

func TestClient_PendingMeltChangeAfterSettle(t *testing.T) {
	m, srv := newTestMint(t, 0)
	c := newTestClient()
	ctx := context.Background()
	inputs := mintFunded(t, c, m, srv.URL, 8)
	m.meltPending = true

	q, err := c.CreateMeltQuote(ctx, srv.URL, "lnbc50n1dest")
	require.NoError(t, err)
	res, err := c.MeltProofs(ctx, srv.URL, q.QuoteID, inputs)
	require.NoError(t, err)
	assert.Equal(t, ports.QuoteStatePending, res.State)
	assert.Empty(t, res.Change)
	require.NotEmpty(t, res.Blanks)

	// The blanks survive a round trip through storage.
	raw, err := json.Marshal(res.Blanks)
	require.NoError(t, err)
	var stored []domain.BlankOutput
	require.NoError(t, json.Unmarshal(raw, &stored))

	before, err := c.MeltChange(ctx, srv.URL, q.QuoteID, stored)
	require.NoError(t, err)
	assert.Equal(t, ports.QuoteStatePending, before.State)
	assert.Empty(t, before.Change)

	m.settle(q.QuoteID)

	after, err := c.MeltChange(ctx, srv.URL, q.QuoteID, stored)
	require.NoError(t, err)
	assert.Equal(t, ports.QuoteStatePaid, after.State)
	assert.Equal(t, "00ff", after.Preimage)
	assert.Equal(t, int64(3), after.Change.Sum())

	_, err = c.Swap(ctx, srv.URL, after.Change, 3)
	assert.NoError(t, err)
}

func TestClient_MeltChange_BadBlank(t *testing.T) {
	m, srv := newTestMint(t, 0)
	c := newTestClient()
	ctx := context.Background()
	inputs := mintFunded(t, c, m, srv.URL, 8)
	m.meltPending = true

	q, err := c.CreateMeltQuote(ctx, srv.URL, "lnbc50n1dest")
	require.NoError(t, err)
	_, err = c.MeltProofs(ctx, srv.URL, q.QuoteID, inputs)
	require.NoError(t, err)
	m.settle(q.QuoteID)

	_, err = c.MeltChange(ctx, srv.URL, q.QuoteID, []domain.BlankOutput{{KeysetID: testKeysetID, Secret: "s", R: "zz"}})
	assert.True(t, apperror.HasCode(err, "SYS_001"))
}

func TestClient_CachesKeys(t *testing.T) {
	m, srv := newTestMint(t, 0)
	c := newTestClient()

	mintFunded(t, c, m, srv.URL, 3)
	mintFunded(t, c, m, srv.URL, 5)

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, 1, m.keyFetches)
}

func TestClient_Unreachable(t *testing.T) {
	_, srv := newTestMint(t, 0)
	srv.Close()
	c := newTestClient()

	_, err := c.CheckMintQuote(context.Background(), srv.URL, "q1")
	assert.True(t, apperror.HasCode(err, apperror.CodeMintUnavailable))
}

func TestMapMintError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{"spent by code", 400, `{"detail":"proofs spent","code":11001}`, apperror.CodeAlreadySpent},
		{"spent by detail", 400, `{"detail":"Token already spent."}`, apperror.CodeAlreadySpent},
		{"issued", 400, `{"detail":"x","code":20002}`, apperror.CodeQuoteAlreadyIssued},
		{"not paid", 400, `{"detail":"x","code":20001}`, apperror.CodeQuoteNotPaid},
		{"expired", 400, `{"detail":"quote expired","code":20007}`, apperror.CodeQuoteExpired},
		{"outputs signed", 400, `{"detail":"x","code":10002}`, apperror.CodeMintOutputsConflict},
		{"other", 400, `{"detail":"unit not supported","code":11005}`, apperror.CodeMintRejected},
		{"gateway html", 502, `<html>bad gateway</html>`, apperror.CodeMintUnavailable},
		{"empty 4xx", 404, ``, apperror.CodeMintRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapMintError(tt.status, []byte(tt.body))
			assert.True(t, apperror.HasCode(err, tt.code), err)
		})
	}
}

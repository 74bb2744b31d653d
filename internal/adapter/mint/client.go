package mint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
	"ecash-billing-engine/pkg/apperror"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/elnosh/gonuts/cashu"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the gateway settings.
type Config struct {
	Unit    string
	Timeout time.Duration
}

// Client speaks the Cashu REST API of any number of mints. Keysets and keys
// are cached per mint; keys never change for a keyset id.
type Client struct {
	http HTTPClient
	unit string
	log  zerolog.Logger

	mu      sync.RWMutex
	keysets map[string][]domain.Keyset
	keys    map[string]map[uint64]*secp256k1.PublicKey
	group   singleflight.Group
}

var _ ports.MintGateway = (*Client)(nil)

// NewClient creates a mint gateway. A nil httpClient gets a default client
// bounded by cfg.Timeout.
func NewClient(httpClient HTTPClient, cfg Config, log zerolog.Logger) *Client {
	if cfg.Unit == "" {
		cfg.Unit = "sat"
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		http:    httpClient,
		unit:    cfg.Unit,
		log:     log,
		keysets: make(map[string][]domain.Keyset),
		keys:    make(map[string]map[uint64]*secp256k1.PublicKey),
	}
}

// GetKeysets fetches the keysets of mintURL and refreshes the cache.
func (c *Client) GetKeysets(ctx context.Context, mintURL string) ([]domain.Keyset, error) {
	var resp keysetsResponse
	if err := c.do(ctx, http.MethodGet, mintURL, "/v1/keysets", nil, &resp); err != nil {
		return nil, err
	}
	keysets := make([]domain.Keyset, 0, len(resp.Keysets))
	for _, k := range resp.Keysets {
		keysets = append(keysets, domain.Keyset{
			ID:          k.ID,
			Unit:        k.Unit,
			Active:      k.Active,
			InputFeePpk: k.InputFeePpk,
		})
	}

	c.mu.Lock()
	c.keysets[domain.NormalizeMintURL(mintURL)] = keysets
	c.mu.Unlock()
	return keysets, nil
}

func (c *Client) CreateMintQuote(ctx context.Context, mintURL string, amount int64) (*ports.MintQuote, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	var resp mintQuoteResponse
	req := mintQuoteRequest{Amount: uint64(amount), Unit: c.unit}
	if err := c.do(ctx, http.MethodPost, mintURL, "/v1/mint/quote/bolt11", req, &resp); err != nil {
		return nil, err
	}
	q := resp.toPort()
	if q.Amount == 0 {
		q.Amount = amount
	}
	return q, nil
}

func (c *Client) CheckMintQuote(ctx context.Context, mintURL, quoteID string) (*ports.MintQuote, error) {
	var resp mintQuoteResponse
	if err := c.do(ctx, http.MethodGet, mintURL, "/v1/mint/quote/bolt11/"+url.PathEscape(quoteID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.toPort(), nil
}

// MintProofs claims the proofs of a paid mint quote.
func (c *Client) MintProofs(ctx context.Context, mintURL, quoteID string, amount int64) (domain.Proofs, error) {
	keyset, err := c.activeKeyset(ctx, mintURL)
	if err != nil {
		return nil, err
	}
	outputs, err := newOutputs(domain.SplitAmount(amount), keyset.ID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	var resp signaturesResponse
	req := mintRequest{Quote: quoteID, Outputs: outputs.messages()}
	if err := c.do(ctx, http.MethodPost, mintURL, "/v1/mint/bolt11", req, &resp); err != nil {
		return nil, err
	}
	return c.unblindAll(ctx, mintURL, outputs, resp.Signatures)
}

func (c *Client) CreateMeltQuote(ctx context.Context, mintURL, paymentRequest string) (*ports.MeltQuote, error) {
	var resp meltQuoteResponse
	req := meltQuoteRequest{Request: paymentRequest, Unit: c.unit}
	if err := c.do(ctx, http.MethodPost, mintURL, "/v1/melt/quote/bolt11", req, &resp); err != nil {
		return nil, err
	}
	return resp.toPort(), nil
}

func (c *Client) CheckMeltQuote(ctx context.Context, mintURL, quoteID string) (*ports.MeltQuote, error) {
	var resp meltQuoteResponse
	if err := c.do(ctx, http.MethodGet, mintURL, "/v1/melt/quote/bolt11/"+url.PathEscape(quoteID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.toPort(), nil
}

// MeltProofs pays a melt quote with inputs. Blank outputs let the mint return
// the unused fee reserve as change.
func (c *Client) MeltProofs(ctx context.Context, mintURL, quoteID string, inputs domain.Proofs) (*ports.MeltResult, error) {
	keyset, err := c.activeKeyset(ctx, mintURL)
	if err != nil {
		return nil, err
	}
	blanks, err := newOutputs(blankAmounts(inputs.Sum()), keyset.ID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	var resp meltQuoteResponse
	req := meltRequest{Quote: quoteID, Inputs: toCashuProofs(inputs), Outputs: blanks.messages()}
	if err := c.do(ctx, http.MethodPost, mintURL, "/v1/melt/bolt11", req, &resp); err != nil {
		return nil, err
	}

	result := &ports.MeltResult{State: resp.state()}
	if resp.Preimage != nil {
		result.Preimage = *resp.Preimage
	}
	if len(resp.Change) > 0 {
		change, err := c.unblindAll(ctx, mintURL, blanks, resp.Change)
		if err != nil {
			c.log.Error().Err(err).Str("mint", mintURL).Str("quote", quoteID).Msg("melt change could not be unblinded")
		} else {
			result.Change = change
		}
	}
	if result.State != ports.QuoteStatePaid {
		result.Blanks = blanks.blanks()
	}
	return result, nil
}

// MeltChange re-reads a melt quote and unblinds the change signed on blanks,
// the outputs kept from a melt the mint left pending.
func (c *Client) MeltChange(ctx context.Context, mintURL, quoteID string, blanks []domain.BlankOutput) (*ports.MeltResult, error) {
	var resp meltQuoteResponse
	if err := c.do(ctx, http.MethodGet, mintURL, "/v1/melt/quote/bolt11/"+url.PathEscape(quoteID), nil, &resp); err != nil {
		return nil, err
	}

	result := &ports.MeltResult{State: resp.state()}
	if resp.Preimage != nil {
		result.Preimage = *resp.Preimage
	}
	if len(resp.Change) == 0 {
		return result, nil
	}
	outputs, err := outputsFromBlanks(blanks)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	change, err := c.unblindAll(ctx, mintURL, outputs, resp.Change)
	if err != nil {
		return nil, err
	}
	result.Change = change
	return result, nil
}

// Swap exchanges inputs for new proofs: send worth sendAmount and keep worth
// the inputs minus fees minus sendAmount.
func (c *Client) Swap(ctx context.Context, mintURL string, inputs domain.Proofs, sendAmount int64) (*ports.SwapResult, error) {
	keyset, err := c.activeKeyset(ctx, mintURL)
	if err != nil {
		return nil, err
	}
	fee, err := c.inputFee(ctx, mintURL, inputs)
	if err != nil {
		return nil, err
	}
	keepAmount := inputs.Sum() - fee - sendAmount
	if sendAmount < 0 || keepAmount < 0 {
		return nil, apperror.ErrInsufficientFunds()
	}

	sendAmounts := domain.SplitAmount(sendAmount)
	outputs, err := newOutputs(append(sendAmounts, domain.SplitAmount(keepAmount)...), keyset.ID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	var resp signaturesResponse
	req := swapRequest{Inputs: toCashuProofs(inputs), Outputs: outputs.messages()}
	if err := c.do(ctx, http.MethodPost, mintURL, "/v1/swap", req, &resp); err != nil {
		return nil, err
	}
	proofs, err := c.unblindAll(ctx, mintURL, outputs, resp.Signatures)
	if err != nil {
		return nil, err
	}
	return &ports.SwapResult{
		Send: proofs[:len(sendAmounts)],
		Keep: proofs[len(sendAmounts):],
	}, nil
}

// CheckProofStates asks the mint which of proofs are spent.
func (c *Client) CheckProofStates(ctx context.Context, mintURL string, proofs domain.Proofs) ([]domain.ProofStatus, error) {
	if len(proofs) == 0 {
		return nil, nil
	}
	ys := make([]string, len(proofs))
	byY := make(map[string]domain.Proof, len(proofs))
	for i, p := range proofs {
		y, err := proofY(p.Secret)
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		ys[i] = y
		byY[y] = p
	}

	var resp checkStateResponse
	if err := c.do(ctx, http.MethodPost, mintURL, "/v1/checkstate", checkStateRequest{Ys: ys}, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.ProofStatus, 0, len(resp.States))
	for _, st := range resp.States {
		p, ok := byY[st.Y]
		if !ok {
			continue
		}
		out = append(out, domain.ProofStatus{Proof: p, State: domain.ProofState(strings.ToUpper(st.State))})
	}
	return out, nil
}

func (c *Client) activeKeyset(ctx context.Context, mintURL string) (domain.Keyset, error) {
	keysets, err := c.cachedKeysets(ctx, mintURL)
	if err != nil {
		return domain.Keyset{}, err
	}
	ks, ok := domain.ActiveKeyset(keysets, c.unit)
	if !ok {
		return domain.Keyset{}, apperror.ErrMintRejected(fmt.Sprintf("no active keyset for unit %s", c.unit))
	}
	return ks, nil
}

func (c *Client) cachedKeysets(ctx context.Context, mintURL string) ([]domain.Keyset, error) {
	c.mu.RLock()
	keysets, ok := c.keysets[domain.NormalizeMintURL(mintURL)]
	c.mu.RUnlock()
	if ok {
		return keysets, nil
	}
	return c.GetKeysets(ctx, mintURL)
}

func (c *Client) inputFee(ctx context.Context, mintURL string, inputs domain.Proofs) (int64, error) {
	keysets, err := c.cachedKeysets(ctx, mintURL)
	if err != nil {
		return 0, err
	}
	fees := domain.NewFeeSchedule(keysets)
	for _, p := range inputs {
		if _, known := fees[p.ID]; !known {
			// Inputs from a keyset we have not seen: refresh once.
			if keysets, err = c.GetKeysets(ctx, mintURL); err != nil {
				return 0, err
			}
			fees = domain.NewFeeSchedule(keysets)
			break
		}
	}
	return fees.InputFee(inputs), nil
}

// mintKeys returns the public keys of keysetID, fetching them once.
func (c *Client) mintKeys(ctx context.Context, mintURL, keysetID string) (map[uint64]*secp256k1.PublicKey, error) {
	c.mu.RLock()
	keys, ok := c.keys[keysetID]
	c.mu.RUnlock()
	if ok {
		return keys, nil
	}

	v, err, _ := c.group.Do(keysetID, func() (any, error) {
		var resp keysResponse
		if err := c.do(ctx, http.MethodGet, mintURL, "/v1/keys/"+url.PathEscape(keysetID), nil, &resp); err != nil {
			return nil, err
		}
		for _, ks := range resp.Keysets {
			if ks.ID != keysetID {
				continue
			}
			parsed := make(map[uint64]*secp256k1.PublicKey, len(ks.Keys))
			for amount, hexKey := range ks.Keys {
				pk, err := parsePoint(hexKey)
				if err != nil {
					return nil, apperror.ErrMintRejected(fmt.Sprintf("invalid key for amount %d: %v", amount, err))
				}
				parsed[amount] = pk
			}
			c.mu.Lock()
			c.keys[keysetID] = parsed
			c.mu.Unlock()
			return parsed, nil
		}
		return nil, apperror.ErrMintRejected("keyset " + keysetID + " not served")
	})
	if err != nil {
		return nil, err
	}
	return v.(map[uint64]*secp256k1.PublicKey), nil
}

func (c *Client) unblindAll(ctx context.Context, mintURL string, outputs outputSet, sigs cashu.BlindedSignatures) (domain.Proofs, error) {
	if len(sigs) > len(outputs) {
		return nil, apperror.ErrMintRejected(fmt.Sprintf("mint returned %d signatures for %d outputs", len(sigs), len(outputs)))
	}
	proofs := make(domain.Proofs, 0, len(sigs))
	for i, sig := range sigs {
		out := outputs[i]
		keys, err := c.mintKeys(ctx, mintURL, sig.Id)
		if err != nil {
			return nil, err
		}
		k, ok := keys[sig.Amount]
		if !ok {
			return nil, apperror.ErrMintRejected(fmt.Sprintf("no key for amount %d in keyset %s", sig.Amount, sig.Id))
		}
		blinded, err := parsePoint(sig.C_)
		if err != nil {
			return nil, apperror.ErrMintRejected(err.Error())
		}
		proofs = append(proofs, domain.Proof{
			ID:     sig.Id,
			Amount: int64(sig.Amount),
			Secret: out.Secret,
			C:      hexPoint(unblind(blinded, out.R, k)),
		})
	}
	return proofs, nil
}

func (c *Client) do(ctx context.Context, method, mintURL, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("encode mint request: %w", err))
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, domain.NormalizeMintURL(mintURL)+path, reader)
	if err != nil {
		return apperror.ErrMintUnavailable(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return apperror.ErrMintUnavailable(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return apperror.ErrMintUnavailable(fmt.Errorf("read response: %w", err))
	}
	c.log.Debug().
		Str("method", method).
		Str("mint", mintURL).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("mint request")

	if resp.StatusCode >= 300 {
		return mapMintError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperror.ErrMintRejected(fmt.Sprintf("malformed response: %v", err))
	}
	return nil
}

// NUT error codes the engine reacts to.
const (
	errCodeOutputsSigned = 10002
	errCodeProofSpent    = 11001
	errCodeQuoteNotPaid  = 20001
	errCodeQuoteIssued   = 20002
	errCodeQuoteExpired  = 20007
)

func mapMintError(status int, raw []byte) error {
	var cerr cashu.Error
	if err := json.Unmarshal(raw, &cerr); err != nil || (cerr.Detail == "" && cerr.Code == 0) {
		if status >= 500 {
			return apperror.ErrMintUnavailable(fmt.Errorf("mint returned status %d", status))
		}
		return apperror.ErrMintRejected(fmt.Sprintf("status %d", status))
	}

	detail := strings.ToLower(cerr.Detail)
	switch {
	case int(cerr.Code) == errCodeProofSpent || strings.Contains(detail, "already spent"):
		return apperror.ErrAlreadySpent(errors.New(cerr.Detail))
	case int(cerr.Code) == errCodeQuoteIssued || strings.Contains(detail, "already issued"):
		return apperror.ErrQuoteAlreadyIssued()
	case int(cerr.Code) == errCodeQuoteNotPaid || strings.Contains(detail, "not paid"):
		return apperror.ErrQuoteNotPaid()
	case int(cerr.Code) == errCodeQuoteExpired || strings.Contains(detail, "expired"):
		return apperror.ErrQuoteExpired()
	case int(cerr.Code) == errCodeOutputsSigned || strings.Contains(detail, "already signed"):
		return apperror.ErrMintOutputsConflict()
	case status >= 500 && cerr.Code == 0:
		return apperror.ErrMintUnavailable(errors.New(cerr.Detail))
	}
	return apperror.ErrMintRejected(cerr.Detail)
}

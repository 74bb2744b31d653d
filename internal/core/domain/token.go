package domain

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

const (
	tokenPrefixV3 = "cashuA"
	tokenPrefixV4 = "cashuB"
)

// ErrMalformedToken is returned when a serialized token cannot be decoded.
var ErrMalformedToken = errors.New("malformed ecash token")

// Token is a bundle of proofs from one mint plus the ledger snapshots it
// replaces. A token is produced by every ledger mutation; serialized it is a
// bearer credential.
type Token struct {
	MintURL    string   `json:"mint"`
	Unit       string   `json:"unit,omitempty"`
	Memo       string   `json:"memo,omitempty"`
	Proofs     Proofs   `json:"proofs"`
	Supersedes []string `json:"-"`
}

// Amount returns the face value of the token.
func (t Token) Amount() int64 {
	return t.Proofs.Sum()
}

type tokenV3 struct {
	Token []tokenV3Entry `json:"token"`
	Unit  string         `json:"unit,omitempty"`
	Memo  string         `json:"memo,omitempty"`
}

type tokenV3Entry struct {
	Mint   string `json:"mint"`
	Proofs Proofs `json:"proofs"`
}

// Encode serializes the token in the V3 (cashuA) format.
func (t Token) Encode() (string, error) {
	if len(t.Proofs) == 0 {
		return "", fmt.Errorf("encode token: %w", errors.New("no proofs"))
	}
	raw, err := json.Marshal(tokenV3{
		Token: []tokenV3Entry{{Mint: t.MintURL, Proofs: t.Proofs}},
		Unit:  t.Unit,
		Memo:  t.Memo,
	})
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return tokenPrefixV3 + base64.URLEncoding.EncodeToString(raw), nil
}

type tokenV4 struct {
	Mint  string         `cbor:"m"`
	Unit  string         `cbor:"u"`
	Memo  string         `cbor:"d,omitempty"`
	Token []tokenV4Entry `cbor:"t"`
}

type tokenV4Entry struct {
	KeysetID []byte         `cbor:"i"`
	Proofs   []tokenV4Proof `cbor:"p"`
}

type tokenV4Proof struct {
	Amount uint64 `cbor:"a"`
	Secret string `cbor:"s"`
	C      []byte `cbor:"c"`
}

// EncodeV4 serializes the token in the compact CBOR (cashuB) format.
func (t Token) EncodeV4() (string, error) {
	if len(t.Proofs) == 0 {
		return "", fmt.Errorf("encode token: %w", errors.New("no proofs"))
	}
	v4 := tokenV4{Mint: t.MintURL, Unit: t.Unit, Memo: t.Memo}
	index := make(map[string]int)
	for _, p := range t.Proofs {
		c, err := hex.DecodeString(p.C)
		if err != nil {
			return "", fmt.Errorf("encode token: signature: %w", err)
		}
		i, ok := index[p.ID]
		if !ok {
			id, err := hex.DecodeString(p.ID)
			if err != nil {
				return "", fmt.Errorf("encode token: keyset id: %w", err)
			}
			i = len(v4.Token)
			index[p.ID] = i
			v4.Token = append(v4.Token, tokenV4Entry{KeysetID: id})
		}
		v4.Token[i].Proofs = append(v4.Token[i].Proofs, tokenV4Proof{
			Amount: uint64(p.Amount),
			Secret: p.Secret,
			C:      c,
		})
	}
	raw, err := cbor.Marshal(v4)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return tokenPrefixV4 + base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeToken parses a cashuA or cashuB token. Tokens spanning several mints
// are rejected; the wallet receives from one mint at a time.
func DecodeToken(s string) (Token, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "cashu:")
	switch {
	case strings.HasPrefix(s, tokenPrefixV3):
		return decodeV3(strings.TrimPrefix(s, tokenPrefixV3))
	case strings.HasPrefix(s, tokenPrefixV4):
		return decodeV4(strings.TrimPrefix(s, tokenPrefixV4))
	default:
		return Token{}, fmt.Errorf("%w: unknown prefix", ErrMalformedToken)
	}
}

func decodeV3(payload string) (Token, error) {
	raw, err := decodeBase64(payload)
	if err != nil {
		return Token{}, err
	}
	var v3 tokenV3
	if err := json.Unmarshal(raw, &v3); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if len(v3.Token) == 0 {
		return Token{}, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}
	tok := Token{MintURL: v3.Token[0].Mint, Unit: v3.Unit, Memo: v3.Memo}
	for _, entry := range v3.Token {
		if entry.Mint != tok.MintURL {
			return Token{}, fmt.Errorf("%w: multiple mints", ErrMalformedToken)
		}
		tok.Proofs = append(tok.Proofs, entry.Proofs...)
	}
	return tok, validateDecoded(tok)
}

func decodeV4(payload string) (Token, error) {
	raw, err := decodeBase64(payload)
	if err != nil {
		return Token{}, err
	}
	var v4 tokenV4
	if err := cbor.Unmarshal(raw, &v4); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	tok := Token{MintURL: v4.Mint, Unit: v4.Unit, Memo: v4.Memo}
	for _, entry := range v4.Token {
		id := hex.EncodeToString(entry.KeysetID)
		for _, p := range entry.Proofs {
			tok.Proofs = append(tok.Proofs, Proof{
				ID:     id,
				Amount: int64(p.Amount),
				Secret: p.Secret,
				C:      hex.EncodeToString(p.C),
			})
		}
	}
	return tok, validateDecoded(tok)
}

func validateDecoded(tok Token) error {
	if tok.MintURL == "" {
		return fmt.Errorf("%w: missing mint", ErrMalformedToken)
	}
	if len(tok.Proofs) == 0 {
		return fmt.Errorf("%w: no proofs", ErrMalformedToken)
	}
	for _, p := range tok.Proofs {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}
	return nil
}

// decodeBase64 accepts both alphabets, padded or not; wallets in the wild
// emit all four variants.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if raw, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	raw, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return raw, nil
}

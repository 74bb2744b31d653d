package mint

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const hashToCurveDomain = "Secp256k1_HashToCurve_Cashu_"

var errNoCurvePoint = errors.New("no valid curve point for message")

// HashToCurve maps message to a secp256k1 point: Y = PublicKey('02' ||
// SHA256(SHA256(domain || message) || counter)) for the first counter that
// yields a valid point.
func HashToCurve(message []byte) (*secp256k1.PublicKey, error) {
	msgHash := sha256.Sum256(append([]byte(hashToCurveDomain), message...))
	var counter [4]byte
	for i := uint32(0); i < 1<<16; i++ {
		binary.LittleEndian.PutUint32(counter[:], i)
		h := sha256.Sum256(append(msgHash[:], counter[:]...))
		pk, err := secp256k1.ParsePubKey(append([]byte{0x02}, h[:]...))
		if err == nil {
			return pk, nil
		}
	}
	return nil, errNoCurvePoint
}

// blindedOutput is one output the wallet asks the mint to sign, with the
// secret and blinding factor needed to unblind the signature.
type blindedOutput struct {
	Amount   uint64
	KeysetID string
	Secret   string
	R        *secp256k1.PrivateKey
	B        *secp256k1.PublicKey
}

// blind creates an output of amount on keyset: B_ = Y + rG.
func blind(amount uint64, keysetID string) (*blindedOutput, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	secret := hex.EncodeToString(raw)

	r, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate blinding factor: %w", err)
	}
	b, err := blindWith(secret, r)
	if err != nil {
		return nil, err
	}
	return &blindedOutput{Amount: amount, KeysetID: keysetID, Secret: secret, R: r, B: b}, nil
}

func blindWith(secret string, r *secp256k1.PrivateKey) (*secp256k1.PublicKey, error) {
	y, err := HashToCurve([]byte(secret))
	if err != nil {
		return nil, err
	}
	var yj, rg, out secp256k1.JacobianPoint
	y.AsJacobian(&yj)
	secp256k1.ScalarBaseMultNonConst(&r.Key, &rg)
	secp256k1.AddNonConst(&yj, &rg, &out)
	out.ToAffine()
	return secp256k1.NewPublicKey(&out.X, &out.Y), nil
}

// unblind removes the blinding factor from a mint signature: C = C_ - rK.
func unblind(signature *secp256k1.PublicKey, r *secp256k1.PrivateKey, mintKey *secp256k1.PublicKey) *secp256k1.PublicKey {
	var cj, kj, rk, out secp256k1.JacobianPoint
	signature.AsJacobian(&cj)
	mintKey.AsJacobian(&kj)
	secp256k1.ScalarMultNonConst(&r.Key, &kj, &rk)
	rk.ToAffine()
	rk.Y.Negate(1).Normalize()
	secp256k1.AddNonConst(&cj, &rk, &out)
	out.ToAffine()
	return secp256k1.NewPublicKey(&out.X, &out.Y)
}

// proofY returns the hex-encoded Y of a secret, the identifier NUT-07 uses
// for proof state checks.
func proofY(secret string) (string, error) {
	y, err := HashToCurve([]byte(secret))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(y.SerializeCompressed()), nil
}

func parsePoint(s string) (*secp256k1.PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode point: %w", err)
	}
	pk, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("parse point: %w", err)
	}
	return pk, nil
}

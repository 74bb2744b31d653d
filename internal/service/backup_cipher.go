package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const backupKeyInfo = "ecash-billing-engine/backup/v1"

// BackupCipher implements ports.Cipher with XChaCha20-Poly1305. The key is
// derived from the wallet private key, so only the owner can read snapshots.
type BackupCipher struct {
	key []byte
}

// NewBackupCipher derives the backup key from a hex-encoded wallet key.
func NewBackupCipher(hexWalletKey string) (*BackupCipher, error) {
	secret, err := hex.DecodeString(hexWalletKey)
	if err != nil {
		return nil, fmt.Errorf("decoding wallet key: %w", err)
	}
	if len(secret) != 32 {
		return nil, fmt.Errorf("wallet key must be 32 bytes, got %d", len(secret))
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(backupKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("deriving backup key: %w", err)
	}
	return &BackupCipher{key: key}, nil
}

// Seal encrypts plaintext. Output layout: nonce(24) + ciphertext.
func (c *BackupCipher) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a sealed snapshot.
func (c *BackupCipher) Open(ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	nonceSize := aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	return plaintext, nil
}

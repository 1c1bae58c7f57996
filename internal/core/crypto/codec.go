package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidKey        = errors.New("encryption key must be 32 bytes of hex")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// BalanceCodec encrypts wallet balances on write and decrypts them on read.
// AES-256-GCM with a random nonce prepended to the ciphertext, encoded as
// base64. The codec belongs to the storage layer: services never see
// ciphertext, columns never see plaintext.
type BalanceCodec struct {
	aead cipher.AEAD
}

// NewBalanceCodec builds a codec from a hex-encoded 32-byte key.
func NewBalanceCodec(hexKey string) (*BalanceCodec, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	return &BalanceCodec{aead: aead}, nil
}

// Encrypt seals a balance for storage.
func (c *BalanceCodec) Encrypt(balance decimal.Decimal) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(balance.String()), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a stored balance.
func (c *BalanceCodec) Decrypt(ciphertext string) (decimal.Decimal, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return decimal.Zero, ErrInvalidCiphertext
	}
	if len(raw) < c.aead.NonceSize() {
		return decimal.Zero, ErrInvalidCiphertext
	}

	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return decimal.Zero, ErrInvalidCiphertext
	}

	balance, err := decimal.NewFromString(string(plain))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decrypted balance: %w", err)
	}
	return balance, nil
}

package crypto

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestNewBalanceCodecRejectsBadKeys(t *testing.T) {
	_, err := NewBalanceCodec("")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewBalanceCodec("abcd")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewBalanceCodec(strings.Repeat("zz", 32))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestEncryptDecrypt(t *testing.T) {
	codec, err := NewBalanceCodec(testKey)
	require.NoError(t, err)

	balance := decimal.RequireFromString("12345.67")
	ciphertext, err := codec.Encrypt(balance)
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "12345.67")

	got, err := codec.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.True(t, balance.Equal(got))
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	codec, err := NewBalanceCodec(testKey)
	require.NoError(t, err)

	balance := decimal.NewFromInt(100)
	first, err := codec.Encrypt(balance)
	require.NoError(t, err)
	second, err := codec.Encrypt(balance)
	require.NoError(t, err)

	// Equal balances must not produce equal ciphertexts.
	assert.NotEqual(t, first, second)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	codec, err := NewBalanceCodec(testKey)
	require.NoError(t, err)

	ciphertext, err := codec.Encrypt(decimal.NewFromInt(500))
	require.NoError(t, err)

	otherKey := strings.Repeat("ab", 32)
	other, err := NewBalanceCodec(otherKey)
	require.NoError(t, err)

	_, err = other.Decrypt(ciphertext)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	codec, err := NewBalanceCodec(testKey)
	require.NoError(t, err)

	_, err = codec.Decrypt("not base64!!!")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = codec.Decrypt("c2hvcnQ=")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

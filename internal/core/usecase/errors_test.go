package usecase_test

import (
	"fmt"
	"testing"

	"github.com/aileana/walletcore/internal/core/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInconsistencyErrorRedactsBalances(t *testing.T) {
	err := &usecase.InconsistencyError{
		WalletID: "3f1c2a9e-0000-0000-0000-000000000000",
		Expected: decimal.NewFromInt(123457),
		Actual:   decimal.NewFromInt(123456),
	}

	msg := err.Error()
	assert.Contains(t, msg, err.WalletID)
	assert.NotContains(t, msg, "123456")
	assert.NotContains(t, msg, "123457")

	// wrapped form, as it reaches log fields
	wrapped := fmt.Errorf("credit failed: %w", err)
	assert.NotContains(t, wrapped.Error(), "123456")
	assert.True(t, usecase.IsInconsistency(wrapped))

	// the figures stay available for programmatic handling
	assert.True(t, err.Expected.Equal(decimal.NewFromInt(123457)))
	assert.True(t, err.Actual.Equal(decimal.NewFromInt(123456)))
}

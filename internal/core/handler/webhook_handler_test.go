package handler_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookCreditsWalletOnce(t *testing.T) {
	h := newAPIHarness(t)
	wallet := h.seedWallet(decimal.Zero)

	event := map[string]any{
		"userReference":     wallet.UserID.String(),
		"amount":            "5000",
		"providerReference": "MNFY-EVT-001",
	}

	rec := h.do(t, http.MethodPost, "/api/v1/webhooks/provider", event)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "webhook processed successfully")

	// at-least-once delivery: the redelivery must not credit again
	rec = h.do(t, http.MethodPost, "/api/v1/webhooks/provider", event)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "already processed")

	rec = h.do(t, http.MethodGet, "/api/v1/users/"+wallet.UserID.String()+"/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "5000.00")

	assert.Len(t, h.store.EntriesFor(wallet.ID), 1)
}

func TestWebhookValidation(t *testing.T) {
	h := newAPIHarness(t)
	wallet := h.seedWallet(decimal.Zero)

	rec := h.do(t, http.MethodPost, "/api/v1/webhooks/provider", map[string]any{
		"amount":            "5000",
		"providerReference": "MNFY-EVT-002",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/webhooks/provider", map[string]any{
		"userReference": wallet.UserID.String(),
		"amount":        "5000",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/webhooks/provider", map[string]any{
		"userReference":     uuid.NewString(),
		"amount":            "5000",
		"providerReference": "MNFY-EVT-003",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// zero amount rejected before any mutation
	rec = h.do(t, http.MethodPost, "/api/v1/webhooks/provider", map[string]any{
		"userReference":     wallet.UserID.String(),
		"amount":            "0",
		"providerReference": "MNFY-EVT-004",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, h.store.EntriesFor(wallet.ID))
}

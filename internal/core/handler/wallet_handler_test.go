package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aileana/walletcore/internal/core/activity"
	"github.com/aileana/walletcore/internal/core/handler"
	"github.com/aileana/walletcore/internal/core/logger"
	"github.com/aileana/walletcore/internal/core/models"
	"github.com/aileana/walletcore/internal/core/provider"
	"github.com/aileana/walletcore/internal/core/usecase"
	"github.com/aileana/walletcore/internal/testutil"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOpener struct {
	err error
}

func (o *stubOpener) OpenVirtualAccount(_ context.Context, _ provider.AccountProfile) (*provider.VirtualAccount, error) {
	if o.err != nil {
		return nil, o.err
	}
	return &provider.VirtualAccount{AccountNumber: "0123456789", BankCode: "035", BankName: "Wema Bank"}, nil
}

type apiHarness struct {
	store  *testutil.MemStore
	router *mux.Router
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	log := logger.NewNop()
	store := testutil.NewMemStore()
	ledger := usecase.NewLedgerService(store, log)
	txs := usecase.NewTransactionService(store, log)
	notifier := activity.NewNotifier(64, log)
	t.Cleanup(notifier.Close)
	wallets := usecase.NewWalletService(store, ledger, txs, &stubOpener{}, notifier, log)

	router := mux.NewRouter()
	handler.NewWalletHandler(wallets, ledger, log).RegisterRoutes(router)
	handler.NewWebhookHandler(wallets, txs, log).RegisterRoutes(router)
	return &apiHarness{store: store, router: router}
}

func (h *apiHarness) seedWallet(balance decimal.Decimal) *models.Wallet {
	wallet := &models.Wallet{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Balance:  balance,
		Currency: "NGN",
		Status:   models.WalletActive,
	}
	h.store.SeedWallet(wallet)
	if !balance.IsZero() {
		h.store.SeedEntry(&models.LedgerEntry{
			ID:            uuid.New(),
			WalletID:      wallet.ID,
			TransactionID: uuid.New(),
			Credit:        balance,
			CurrBalance:   balance,
			CreatedAt:     time.Now(),
		})
	}
	return wallet
}

func (h *apiHarness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestCreditEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	wallet := h.seedWallet(decimal.Zero)

	rec := h.do(t, http.MethodPost, "/api/v1/wallets/"+wallet.ID.String()+"/credit", map[string]any{
		"amount":    "10000",
		"reference": "DEP-API-001",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got models.Wallet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(10000)))

	// replay of the same reference conflicts
	rec = h.do(t, http.MethodPost, "/api/v1/wallets/"+wallet.ID.String()+"/credit", map[string]any{
		"amount":    "10000",
		"reference": "DEP-API-001",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDebitEndpointInsufficientFunds(t *testing.T) {
	h := newAPIHarness(t)
	wallet := h.seedWallet(decimal.NewFromInt(10000))

	rec := h.do(t, http.MethodPost, "/api/v1/wallets/"+wallet.ID.String()+"/debit", map[string]any{
		"amount":    "15000",
		"reference": "WD-API-001",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient funds")
}

func TestMutationEndpointValidation(t *testing.T) {
	h := newAPIHarness(t)
	wallet := h.seedWallet(decimal.Zero)

	rec := h.do(t, http.MethodPost, "/api/v1/wallets/not-a-uuid/credit", map[string]any{
		"amount":    "10",
		"reference": "DEP-API-002",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/wallets/"+wallet.ID.String()+"/credit", map[string]any{
		"amount": "10",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/wallets/"+uuid.NewString()+"/credit", map[string]any{
		"amount":    "10",
		"reference": "DEP-API-003",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBalanceEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	wallet := h.seedWallet(decimal.NewFromInt(1250))

	rec := h.do(t, http.MethodGet, "/api/v1/users/"+wallet.UserID.String()+"/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "1250.00", body["balance"])

	rec = h.do(t, http.MethodGet, "/api/v1/users/"+uuid.NewString()+"/balance", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateWalletEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	userID := uuid.New()

	payload := map[string]any{
		"userId":      userID.String(),
		"accountName": "Ada Obi",
		"email":       "ada@example.com",
	}
	rec := h.do(t, http.MethodPost, "/api/v1/wallets", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var wallet models.Wallet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wallet))
	assert.Equal(t, "NGN", wallet.Currency)
	assert.Equal(t, "0123456789", wallet.AccountNumber)

	rec = h.do(t, http.MethodPost, "/api/v1/wallets", payload)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTransferEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	from := h.seedWallet(decimal.NewFromInt(1000))
	to := h.seedWallet(decimal.NewFromInt(0))

	rec := h.do(t, http.MethodPost, "/api/v1/transfers", map[string]any{
		"fromWalletId": from.ID.String(),
		"toWalletId":   to.ID.String(),
		"amount":       "400",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var receipt usecase.TransferReceipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.True(t, receipt.FromBalance.Equal(decimal.NewFromInt(600)))
	assert.True(t, receipt.ToBalance.Equal(decimal.NewFromInt(400)))

	rec = h.do(t, http.MethodPost, "/api/v1/transfers", map[string]any{
		"fromWalletId": from.ID.String(),
		"toWalletId":   from.ID.String(),
		"amount":       "10",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFreezeEndpointBlocksMutation(t *testing.T) {
	h := newAPIHarness(t)
	wallet := h.seedWallet(decimal.NewFromInt(100))

	rec := h.do(t, http.MethodPost, "/api/v1/wallets/"+wallet.ID.String()+"/freeze", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/wallets/"+wallet.ID.String()+"/credit", map[string]any{
		"amount":    "10",
		"reference": "DEP-API-004",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/wallets/"+wallet.ID.String()+"/unfreeze", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/wallets/"+wallet.ID.String()+"/credit", map[string]any{
		"amount":    "10",
		"reference": "DEP-API-004",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLedgerEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	wallet := h.seedWallet(decimal.Zero)

	for i := 0; i < 3; i++ {
		rec := h.do(t, http.MethodPost, "/api/v1/wallets/"+wallet.ID.String()+"/credit", map[string]any{
			"amount":    "10",
			"reference": fmt.Sprintf("DEP-LED-%d", i),
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := h.do(t, http.MethodGet, "/api/v1/wallets/"+wallet.ID.String()+"/ledger?page=1&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []models.LedgerEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)
}

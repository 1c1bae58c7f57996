package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aileana/walletcore/internal/core/logger"
	"github.com/aileana/walletcore/internal/core/usecase"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// WebhookHandler processes provider payment notifications. Signature
// verification happens at the gateway in front of this service; by the time
// a request reaches here it carries a verified (userReference, amount,
// providerReference) tuple.
type WebhookHandler struct {
	wallets      *usecase.WalletService
	transactions *usecase.TransactionService
	log          logger.Logger
}

func NewWebhookHandler(wallets *usecase.WalletService, transactions *usecase.TransactionService, log logger.Logger) *WebhookHandler {
	return &WebhookHandler{wallets: wallets, transactions: transactions, log: log}
}

func (h *WebhookHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/webhooks/provider", h.HandleProviderEvent).Methods("POST")
}

type providerEvent struct {
	UserReference     uuid.UUID       `json:"userReference"`
	Amount            decimal.Decimal `json:"amount"`
	ProviderReference string          `json:"providerReference"`
}

// HandleProviderEvent credits the user's wallet for a confirmed inbound
// payment. Provider deliveries are at-least-once: a reference that was
// already processed short-circuits to success without re-crediting.
func (h *WebhookHandler) HandleProviderEvent(w http.ResponseWriter, r *http.Request) {
	var event providerEvent
	if err := decodeBody(w, r, &event); err != nil {
		h.log.Warn("Failed to decode webhook payload", logger.ErrorField("error", err))
		respondError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}
	if event.UserReference == uuid.Nil || event.ProviderReference == "" {
		respondError(w, http.StatusBadRequest, "userReference and providerReference are required")
		return
	}

	if existing, err := h.transactions.ByReference(r.Context(), event.ProviderReference); err == nil {
		h.log.Info("Webhook event already processed",
			logger.StringField("reference", event.ProviderReference),
			logger.StringField("status", string(existing.Status)))
		respondJSON(w, http.StatusOK, map[string]string{"msg": "already processed"})
		return
	} else if !errors.Is(err, usecase.ErrTransactionNotFound) {
		h.log.Error("Webhook reference lookup failed", logger.ErrorField("error", err))
		respondError(w, http.StatusInternalServerError, "failed to process webhook")
		return
	}

	wallet, err := h.wallets.FindByUserID(r.Context(), event.UserReference)
	if err != nil {
		h.respondWebhookError(w, event.ProviderReference, err)
		return
	}

	_, err = h.wallets.Credit(r.Context(), usecase.OperationParams{
		WalletID:    wallet.ID,
		Amount:      event.Amount,
		Reference:   event.ProviderReference,
		Description: "Provider deposit",
		Metadata:    map[string]string{"source": "provider_webhook"},
	})
	if err != nil {
		h.respondWebhookError(w, event.ProviderReference, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"msg": "webhook processed successfully"})
}

func (h *WebhookHandler) respondWebhookError(w http.ResponseWriter, reference string, err error) {
	// A concurrent delivery of the same event can win the race between the
	// lookup and the credit; that is still a success for this delivery.
	if errors.Is(err, usecase.ErrDuplicateReference) {
		respondJSON(w, http.StatusOK, map[string]string{"msg": "already processed"})
		return
	}

	h.log.Error("Webhook processing failed",
		logger.StringField("reference", reference),
		logger.ErrorField("error", err))

	switch {
	case errors.Is(err, usecase.ErrWalletNotFound), errors.Is(err, usecase.ErrWalletNotActive):
		respondError(w, http.StatusNotFound, "wallet not found")
	case errors.Is(err, usecase.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid amount")
	default:
		respondError(w, http.StatusInternalServerError, "failed to process webhook")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

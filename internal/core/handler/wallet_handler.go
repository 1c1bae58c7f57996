package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aileana/walletcore/internal/core/logger"
	"github.com/aileana/walletcore/internal/core/models"
	"github.com/aileana/walletcore/internal/core/provider"
	"github.com/aileana/walletcore/internal/core/usecase"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// WalletHandler exposes the accounting core over HTTP. Authentication and
// webhook signature verification happen upstream; this layer only decodes,
// validates and maps service errors to responses.
type WalletHandler struct {
	wallets *usecase.WalletService
	ledger  *usecase.LedgerService
	log     logger.Logger
}

func NewWalletHandler(wallets *usecase.WalletService, ledger *usecase.LedgerService, log logger.Logger) *WalletHandler {
	return &WalletHandler{wallets: wallets, ledger: ledger, log: log}
}

func (h *WalletHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/wallets", h.CreateWallet).Methods("POST")
	router.HandleFunc("/api/v1/users/{user_id}/balance", h.GetBalance).Methods("GET")
	router.HandleFunc("/api/v1/wallets/{wallet_id}/credit", h.Credit).Methods("POST")
	router.HandleFunc("/api/v1/wallets/{wallet_id}/debit", h.Debit).Methods("POST")
	router.HandleFunc("/api/v1/wallets/{wallet_id}/freeze", h.Freeze).Methods("POST")
	router.HandleFunc("/api/v1/wallets/{wallet_id}/unfreeze", h.Unfreeze).Methods("POST")
	router.HandleFunc("/api/v1/wallets/{wallet_id}/ledger", h.LedgerEntries).Methods("GET")
	router.HandleFunc("/api/v1/transfers", h.Transfer).Methods("POST")
}

type createWalletRequest struct {
	UserID      uuid.UUID `json:"userId"`
	Currency    string    `json:"currency"`
	AccountName string    `json:"accountName"`
	Email       string    `json:"email"`
}

type operationRequest struct {
	Amount      decimal.Decimal   `json:"amount"`
	Fees        decimal.Decimal   `json:"fees"`
	Reference   string            `json:"reference"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
}

type transferRequest struct {
	FromWalletID uuid.UUID       `json:"fromWalletId"`
	ToWalletID   uuid.UUID       `json:"toWalletId"`
	Amount       decimal.Decimal `json:"amount"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.UserID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "userId is required")
		return
	}

	wallet, err := h.wallets.CreateWallet(r.Context(), req.UserID, req.Currency, provider.AccountProfile{
		AccountName:   req.AccountName,
		CustomerEmail: req.Email,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, wallet)
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "user_id")
	if !ok {
		return
	}

	balance, err := h.wallets.GetBalance(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"balance": balance.StringFixedBank(2)})
}

func (h *WalletHandler) Credit(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, h.wallets.Credit)
}

func (h *WalletHandler) Debit(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, h.wallets.Debit)
}

func (h *WalletHandler) operate(w http.ResponseWriter, r *http.Request, op func(context.Context, usecase.OperationParams) (*models.Wallet, error)) {
	walletID, ok := pathUUID(w, r, "wallet_id")
	if !ok {
		return
	}
	var req operationRequest
	if !h.decode(w, r, &req) {
		return
	}

	wallet, err := op(r.Context(), usecase.OperationParams{
		WalletID:    walletID,
		Amount:      req.Amount,
		Fees:        req.Fees,
		Reference:   req.Reference,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, wallet)
}

func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.FromWalletID == uuid.Nil || req.ToWalletID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "fromWalletId and toWalletId are required")
		return
	}

	receipt, err := h.wallets.Transfer(r.Context(), req.FromWalletID, req.ToWalletID, req.Amount)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}

func (h *WalletHandler) Freeze(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.wallets.Freeze)
}

func (h *WalletHandler) Unfreeze(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.wallets.Unfreeze)
}

func (h *WalletHandler) setStatus(w http.ResponseWriter, r *http.Request, change func(context.Context, uuid.UUID) error) {
	walletID, ok := pathUUID(w, r, "wallet_id")
	if !ok {
		return
	}
	if err := change(r.Context(), walletID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WalletHandler) LedgerEntries(w http.ResponseWriter, r *http.Request) {
	walletID, ok := pathUUID(w, r, "wallet_id")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.ledger.Entries(r.Context(), walletID, page, limit)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *WalletHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.log.Warn("Failed to decode request body", logger.ErrorField("error", err))
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

func (h *WalletHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrWalletNotFound), errors.Is(err, usecase.ErrTransactionNotFound):
		respondError(w, http.StatusNotFound, "wallet not found")
	case errors.Is(err, usecase.ErrWalletExists):
		respondError(w, http.StatusConflict, "wallet already exists")
	case errors.Is(err, usecase.ErrDuplicateReference):
		respondError(w, http.StatusConflict, "duplicate transaction reference")
	case errors.Is(err, usecase.ErrInsufficientFunds):
		respondError(w, http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, usecase.ErrInvalidAmount),
		errors.Is(err, usecase.ErrMissingReference),
		errors.Is(err, usecase.ErrWalletNotActive),
		errors.Is(err, usecase.ErrSameWalletTransfer):
		respondError(w, http.StatusBadRequest, err.Error())
	case usecase.IsInconsistency(err):
		h.log.Error("Operation rejected on ledger inconsistency", logger.ErrorField("error", err))
		respondError(w, http.StatusConflict, "ledger inconsistency detected, wallet flagged for review")
	default:
		h.log.Error("Failed to process operation", logger.ErrorField("error", err))
		respondError(w, http.StatusInternalServerError, "failed to process operation")
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, errorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

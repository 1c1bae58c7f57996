package usecase

import (
	"context"

	"github.com/aileana/walletcore/internal/core/logger"
	"github.com/aileana/walletcore/internal/core/models"
	"github.com/aileana/walletcore/internal/core/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateTransactionParams describes one requested monetary operation.
type CreateTransactionParams struct {
	UserID               uuid.UUID
	WalletID             uuid.UUID
	Type                 models.TransactionType
	Flow                 models.TransactionFlow
	Amount               decimal.Decimal
	Fees                 decimal.Decimal
	Reference            string
	Status               models.TransactionStatus
	Description          string
	RelatedTransactionID *uuid.UUID
	Metadata             map[string]string
}

// TransactionService creates and finalizes transaction records. References
// are idempotency keys: a lookup-before-insert runs inside the same unit of
// work as the insert, and the store's unique index closes the race between
// two concurrent submissions that both pass the lookup.
type TransactionService struct {
	store repository.Store
	log   logger.Logger
}

func NewTransactionService(store repository.Store, log logger.Logger) *TransactionService {
	return &TransactionService{store: store, log: log}
}

// Create validates and persists a transaction record inside the given unit
// of work. TotalAmount is the amount adjusted by fees per flow direction.
func (s *TransactionService) Create(ctx context.Context, tx repository.Tx, params CreateTransactionParams) (*models.Transaction, error) {
	if params.WalletID == uuid.Nil || params.UserID == uuid.Nil {
		return nil, ErrWalletNotFound
	}
	if params.Reference == "" {
		return nil, ErrMissingReference
	}

	switch params.Flow {
	case models.FlowCredit, models.FlowDebit:
	default:
		return nil, ErrInvalidFlow
	}
	switch params.Type {
	case models.TransactionDeposit, models.TransactionWithdrawal, models.TransactionTransfer:
	default:
		return nil, ErrInvalidType
	}

	var total decimal.Decimal
	if params.Flow == models.FlowCredit {
		total = params.Amount.Sub(params.Fees)
	} else {
		total = params.Amount.Add(params.Fees)
	}
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	if _, err := tx.Transactions().GetByReference(ctx, params.Reference); err == nil {
		return nil, ErrDuplicateReference
	} else if err != repository.ErrTransactionNotFound {
		return nil, err
	}

	status := params.Status
	if status == "" {
		status = models.StatusPending
	}

	record := &models.Transaction{
		ID:                   uuid.New(),
		UserID:               params.UserID,
		WalletID:             params.WalletID,
		Type:                 params.Type,
		Flow:                 params.Flow,
		Amount:               params.Amount,
		Fees:                 params.Fees,
		TotalAmount:          total,
		Reference:            params.Reference,
		Status:               status,
		Description:          params.Description,
		RelatedTransactionID: params.RelatedTransactionID,
		Metadata:             params.Metadata,
	}
	if err := tx.Transactions().Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateStatus finalizes a pending transaction. Only PENDING -> SUCCESSFUL
// and PENDING -> FAILED are permitted.
func (s *TransactionService) UpdateStatus(ctx context.Context, tx repository.Tx, transactionID uuid.UUID, status models.TransactionStatus) (*models.Transaction, error) {
	if status != models.StatusSuccessful && status != models.StatusFailed {
		return nil, ErrInvalidStatus
	}

	record, err := tx.Transactions().GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if record.Status != models.StatusPending {
		s.log.Warn("Rejected transaction status transition",
			logger.StringField("transaction_id", transactionID.String()),
			logger.StringField("from", string(record.Status)),
			logger.StringField("to", string(status)))
		return nil, ErrInvalidStatus
	}

	if err := tx.Transactions().UpdateStatus(ctx, transactionID, status); err != nil {
		return nil, err
	}
	record.Status = status
	return record, nil
}

// ByReference looks a transaction up by its idempotency key. The webhook
// path uses it to detect already-processed provider events and
// short-circuit without re-crediting.
func (s *TransactionService) ByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	if reference == "" {
		return nil, ErrMissingReference
	}
	return s.store.Transactions().GetByReference(ctx, reference)
}

package usecase

import (
	"context"
	"fmt"

	"github.com/aileana/walletcore/internal/core/logger"
	"github.com/aileana/walletcore/internal/core/models"
	"github.com/aileana/walletcore/internal/core/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultLedgerPage  = 1
	defaultLedgerLimit = 10
	maxLedgerLimit     = 100
)

// LedgerService writes the append-only audit trail and reconciles it
// against stored balances. Reconciliation runs before and after every
// mutating wallet operation so a corrupting operation is caught
// immediately instead of silently compounding.
type LedgerService struct {
	store repository.Store
	log   logger.Logger
}

func NewLedgerService(store repository.Store, log logger.Logger) *LedgerService {
	return &LedgerService{store: store, log: log}
}

// LogCreditEntry appends a credit entry inside the given unit of work.
// Idempotent per transaction: a pre-existing entry for the transaction is
// returned unchanged instead of being duplicated.
func (s *LedgerService) LogCreditEntry(ctx context.Context, tx repository.Tx, walletID, transactionID uuid.UUID, credit, prevBalance, currBalance decimal.Decimal) (*models.LedgerEntry, error) {
	return s.logEntry(ctx, tx, walletID, transactionID, credit, prevBalance, currBalance, models.FlowCredit)
}

// LogDebitEntry is the debit counterpart of LogCreditEntry.
func (s *LedgerService) LogDebitEntry(ctx context.Context, tx repository.Tx, walletID, transactionID uuid.UUID, debit, prevBalance, currBalance decimal.Decimal) (*models.LedgerEntry, error) {
	return s.logEntry(ctx, tx, walletID, transactionID, debit, prevBalance, currBalance, models.FlowDebit)
}

func (s *LedgerService) logEntry(ctx context.Context, tx repository.Tx, walletID, transactionID uuid.UUID, amount, prevBalance, currBalance decimal.Decimal, flow models.TransactionFlow) (*models.LedgerEntry, error) {
	if walletID == uuid.Nil || transactionID == uuid.Nil {
		return nil, fmt.Errorf("%w: wallet and transaction ids are required", ErrInvalidAmount)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	existing, err := tx.Ledger().GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	entry := &models.LedgerEntry{
		ID:            uuid.New(),
		WalletID:      walletID,
		TransactionID: transactionID,
		PrevBalance:   prevBalance,
		CurrBalance:   currBalance,
	}
	switch flow {
	case models.FlowCredit:
		entry.Credit = amount
	case models.FlowDebit:
		entry.Debit = amount
	default:
		return nil, ErrInvalidFlow
	}

	if err := tx.Ledger().Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ValidateConsistency recomputes sum(credit) - sum(debit) over the wallet's
// non-deleted ledger entries and compares it to the stored balance the
// caller read under lock.
func (s *LedgerService) ValidateConsistency(ctx context.Context, tx repository.Tx, walletID uuid.UUID, storedBalance decimal.Decimal) (models.LedgerValidation, error) {
	credits, debits, err := tx.Ledger().Sum(ctx, walletID)
	if err != nil {
		return models.LedgerValidation{}, err
	}

	expected := credits.Sub(debits)
	validation := models.LedgerValidation{
		Valid:           expected.Equal(storedBalance),
		ExpectedBalance: expected,
		ActualBalance:   storedBalance,
	}
	if !validation.Valid {
		s.log.Error("Ledger inconsistency detected",
			logger.StringField("wallet_id", walletID.String()))
	}
	return validation, nil
}

// Entries returns a page of the wallet's ledger history, newest first.
// Read-only; used for audit and display.
func (s *LedgerService) Entries(ctx context.Context, walletID uuid.UUID, page, limit int) ([]models.LedgerEntry, error) {
	if walletID == uuid.Nil {
		return nil, ErrWalletNotFound
	}
	if page <= 0 {
		page = defaultLedgerPage
	}
	if limit <= 0 {
		limit = defaultLedgerLimit
	}
	if limit > maxLedgerLimit {
		limit = maxLedgerLimit
	}
	return s.store.Ledger().List(ctx, walletID, page, limit)
}

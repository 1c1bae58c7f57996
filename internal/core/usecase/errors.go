package usecase

import (
	"errors"
	"fmt"

	"github.com/aileana/walletcore/internal/core/repository"
	"github.com/shopspring/decimal"
)

// Failure taxonomy of the accounting core. Store-level errors are converted
// to one of these at the service boundary; callers never see raw SQL
// errors, stack traces, or decrypted balances.
var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrMissingReference    = errors.New("transaction reference is required")
	ErrInvalidFlow         = errors.New("invalid transaction flow")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidStatus       = errors.New("invalid status transition")
	ErrWalletNotActive     = errors.New("wallet is not active")
	ErrSameWalletTransfer  = errors.New("cannot transfer to the same wallet")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrProviderFailure     = errors.New("virtual account provider failure")
	ErrWalletNotFound      = repository.ErrWalletNotFound
	ErrWalletExists        = repository.ErrWalletExists
	ErrTransactionNotFound = repository.ErrTransactionNotFound
	ErrDuplicateReference  = repository.ErrDuplicateReference
)

// InconsistencyError reports a reconciliation break: the wallet's stored
// balance does not match the sum of its ledger entries. The enclosing
// operation must be rejected and the wallet flagged for manual review;
// auto-correcting the balance is never the right response.
//
// Expected and Actual are available to callers that need the figures; the
// error string carries only the wallet id, since errors end up in logs and
// balances are never logged in plaintext.
type InconsistencyError struct {
	WalletID string
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("ledger inconsistency for wallet %s: stored balance does not match ledger total", e.WalletID)
}

// IsInconsistency reports whether err is a ledger inconsistency.
func IsInconsistency(err error) bool {
	var target *InconsistencyError
	return errors.As(err, &target)
}

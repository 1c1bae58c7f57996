package repository

import (
	"context"
	"errors"

	"github.com/aileana/walletcore/internal/core/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletExists        = errors.New("wallet already exists")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateReference  = errors.New("transaction reference already used")
)

// WalletStore reads and mutates wallet rows. Implementations must encrypt
// the balance on write and decrypt it on read; callers only ever see
// decimal values.
type WalletStore interface {
	Create(ctx context.Context, wallet *models.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	// GetForUpdate acquires an exclusive row lock on the wallet for the
	// duration of the enclosing unit of work. Only valid inside Tx.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.WalletStatus) error
}

// TransactionStore persists requested monetary operations. Reference
// uniqueness is enforced by the store itself (unique index), not merely by
// a pre-check.
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error
	SetRelated(ctx context.Context, id, relatedID uuid.UUID) error
}

// LedgerStore is the append-only record of balance-affecting entries.
type LedgerStore interface {
	Append(ctx context.Context, entry *models.LedgerEntry) error
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.LedgerEntry, error)
	// Sum returns total credits and total debits over all non-deleted
	// entries for the wallet.
	Sum(ctx context.Context, walletID uuid.UUID) (credits, debits decimal.Decimal, err error)
	List(ctx context.Context, walletID uuid.UUID, page, limit int) ([]models.LedgerEntry, error)
}

// Tx bundles store handles bound to one transaction.
type Tx interface {
	Wallets() WalletStore
	Transactions() TransactionStore
	Ledger() LedgerStore
}

// Store is the root persistence handle: pool-backed store access plus the
// unit of work. Everything done inside RunInTx commits or rolls back
// together.
type Store interface {
	Tx
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies the requested monetary operation.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTransfer   TransactionType = "TRANSFER"
)

// TransactionFlow is the balance direction of a transaction.
type TransactionFlow string

const (
	FlowCredit TransactionFlow = "CREDIT"
	FlowDebit  TransactionFlow = "DEBIT"
)

// TransactionStatus is the lifecycle state of a transaction. Transitions are
// one-way: PENDING -> SUCCESSFUL or PENDING -> FAILED.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "PENDING"
	StatusSuccessful TransactionStatus = "SUCCESSFUL"
	StatusFailed     TransactionStatus = "FAILED"
)

// Transaction records one requested monetary operation against a wallet.
// The reference is a globally unique idempotency key: resubmitting an
// operation with a reference that was already used must be rejected.
// TotalAmount is the amount adjusted by fees per flow direction
// (credit: amount - fees, debit: amount + fees).
type Transaction struct {
	ID                   uuid.UUID         `json:"id" db:"id"`
	UserID               uuid.UUID         `json:"userId" db:"user_id"`
	WalletID             uuid.UUID         `json:"walletId" db:"wallet_id"`
	Type                 TransactionType   `json:"type" db:"type"`
	Flow                 TransactionFlow   `json:"flow" db:"flow"`
	Amount               decimal.Decimal   `json:"amount" db:"amount"`
	Fees                 decimal.Decimal   `json:"fees" db:"fees"`
	TotalAmount          decimal.Decimal   `json:"totalAmount" db:"total_amount"`
	Reference            string            `json:"reference" db:"reference"`
	Status               TransactionStatus `json:"status" db:"status"`
	Description          string            `json:"description" db:"description"`
	RelatedTransactionID *uuid.UUID        `json:"relatedTransactionId,omitempty" db:"related_transaction_id"`
	Metadata             map[string]string `json:"metadata,omitempty" db:"-"`
	IsDeleted            bool              `json:"-" db:"is_deleted"`
	CreatedAt            time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time         `json:"updatedAt" db:"updated_at"`
}

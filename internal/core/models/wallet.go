package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletStatus is the lifecycle state of a wallet.
type WalletStatus string

const (
	WalletActive WalletStatus = "ACTIVE"
	WalletFrozen WalletStatus = "FROZEN"
	WalletClosed WalletStatus = "CLOSED"
)

// Wallet holds the current balance snapshot for a user. The balance is a
// derived value: after every committed operation it must equal the sum of
// credits minus the sum of debits over the wallet's non-deleted ledger
// entries. It is stored encrypted and only decrypted inside the store.
type Wallet struct {
	ID            uuid.UUID       `json:"walletId" db:"id"`
	UserID        uuid.UUID       `json:"userId" db:"user_id"`
	Balance       decimal.Decimal `json:"balance" db:"-"`
	Currency      string          `json:"currency" db:"currency"`
	Status        WalletStatus    `json:"status" db:"status"`
	AccountNumber string          `json:"accountNumber" db:"account_number"`
	BankCode      string          `json:"-" db:"bank_code"`
	BankName      string          `json:"bankName" db:"bank_name"`
	IsDeleted     bool            `json:"-" db:"is_deleted"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// Mutable reports whether balance operations are allowed on the wallet.
func (w *Wallet) Mutable() bool {
	return w != nil && !w.IsDeleted && w.Status == WalletActive
}

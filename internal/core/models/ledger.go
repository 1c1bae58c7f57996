package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntry is one immutable double-entry record affecting a wallet
// balance. Exactly one of Credit and Debit is non-zero. PrevBalance and
// CurrBalance snapshot the wallet balance around the mutation. Entries are
// append-only and one-to-one with the transaction that produced them.
type LedgerEntry struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	WalletID      uuid.UUID       `json:"walletId" db:"wallet_id"`
	TransactionID uuid.UUID       `json:"transactionId" db:"transaction_id"`
	Credit        decimal.Decimal `json:"credit" db:"credit"`
	Debit         decimal.Decimal `json:"debit" db:"debit"`
	PrevBalance   decimal.Decimal `json:"prevBalance" db:"prev_balance"`
	CurrBalance   decimal.Decimal `json:"currBalance" db:"curr_balance"`
	IsDeleted     bool            `json:"-" db:"is_deleted"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// LedgerValidation is the result of reconciling a wallet's ledger history
// against its stored balance.
type LedgerValidation struct {
	Valid           bool            `json:"valid"`
	ExpectedBalance decimal.Decimal `json:"expectedBalance"`
	ActualBalance   decimal.Decimal `json:"actualBalance"`
}

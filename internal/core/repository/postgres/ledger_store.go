package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aileana/walletcore/internal/core/logger"
	"github.com/aileana/walletcore/internal/core/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type ledgerStore struct {
	q   queryer
	log logger.Logger
}

const ledgerColumns = `id, wallet_id, transaction_id, credit, debit, prev_balance, curr_balance, is_deleted, created_at`

func (s *ledgerStore) Append(ctx context.Context, entry *models.LedgerEntry) error {
	const query = `
		INSERT INTO ledger_entries (id, wallet_id, transaction_id, credit, debit, prev_balance, curr_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := sqlx.GetContext(ctx, s.q, entry, query,
		entry.ID,
		entry.WalletID,
		entry.TransactionID,
		entry.Credit,
		entry.Debit,
		entry.PrevBalance,
		entry.CurrBalance,
	)
	if err != nil {
		s.log.Error("Failed to append ledger entry",
			logger.StringField("wallet_id", entry.WalletID.String()),
			logger.StringField("transaction_id", entry.TransactionID.String()),
			logger.ErrorField("error", err))
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func (s *ledgerStore) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.LedgerEntry, error) {
	const query = `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE transaction_id = $1 AND is_deleted = false`

	var entry models.LedgerEntry
	if err := sqlx.GetContext(ctx, s.q, &entry, query, transactionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return &entry, nil
}

func (s *ledgerStore) Sum(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(credit), 0) AS credits, COALESCE(SUM(debit), 0) AS debits
		FROM ledger_entries
		WHERE wallet_id = $1 AND is_deleted = false`

	var sums struct {
		Credits decimal.Decimal `db:"credits"`
		Debits  decimal.Decimal `db:"debits"`
	}
	if err := sqlx.GetContext(ctx, s.q, &sums, query, walletID); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("sum ledger entries: %w", err)
	}
	return sums.Credits, sums.Debits, nil
}

func (s *ledgerStore) List(ctx context.Context, walletID uuid.UUID, page, limit int) ([]models.LedgerEntry, error) {
	const query = `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE wallet_id = $1 AND is_deleted = false
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	offset := (page - 1) * limit
	entries := make([]models.LedgerEntry, 0, limit)
	if err := sqlx.SelectContext(ctx, s.q, &entries, query, walletID, limit, offset); err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aileana/walletcore/internal/core/crypto"
	"github.com/aileana/walletcore/internal/core/logger"
	"github.com/aileana/walletcore/internal/core/models"
	"github.com/aileana/walletcore/internal/core/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type walletStore struct {
	q     queryer
	codec *crypto.BalanceCodec
	log   logger.Logger
}

// walletRow carries the raw encrypted balance between the database and the
// codec. It never leaves this package.
type walletRow struct {
	ID            uuid.UUID `db:"id"`
	UserID        uuid.UUID `db:"user_id"`
	Balance       string    `db:"balance"`
	Currency      string    `db:"currency"`
	Status        string    `db:"status"`
	AccountNumber string    `db:"account_number"`
	BankCode      string    `db:"bank_code"`
	BankName      string    `db:"bank_name"`
	IsDeleted     bool      `db:"is_deleted"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

const walletColumns = `id, user_id, balance, currency, status, account_number, bank_code, bank_name, is_deleted, created_at, updated_at`

func (s *walletStore) decode(row *walletRow) (*models.Wallet, error) {
	balance, err := s.codec.Decrypt(row.Balance)
	if err != nil {
		return nil, fmt.Errorf("decrypt balance for wallet %s: %w", row.ID, err)
	}
	return &models.Wallet{
		ID:            row.ID,
		UserID:        row.UserID,
		Balance:       balance,
		Currency:      row.Currency,
		Status:        models.WalletStatus(row.Status),
		AccountNumber: row.AccountNumber,
		BankCode:      row.BankCode,
		BankName:      row.BankName,
		IsDeleted:     row.IsDeleted,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

func (s *walletStore) Create(ctx context.Context, wallet *models.Wallet) error {
	encrypted, err := s.codec.Encrypt(wallet.Balance)
	if err != nil {
		return fmt.Errorf("encrypt balance: %w", err)
	}

	const query = `
		INSERT INTO wallets (id, user_id, balance, currency, status, account_number, bank_code, bank_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err = sqlx.GetContext(ctx, s.q, wallet, query,
		wallet.ID,
		wallet.UserID,
		encrypted,
		wallet.Currency,
		wallet.Status,
		wallet.AccountNumber,
		wallet.BankCode,
		wallet.BankName,
	)
	if err != nil {
		if isUniqueViolation(err, "wallets_user_id_active_key") {
			return repository.ErrWalletExists
		}
		s.log.Error("Failed to create wallet",
			logger.StringField("wallet_id", wallet.ID.String()),
			logger.ErrorField("error", err))
		return fmt.Errorf("create wallet: %w", err)
	}
	return nil
}

func (s *walletStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	return s.getOne(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 AND is_deleted = false`, id)
}

func (s *walletStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return s.getOne(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 AND is_deleted = false`, userID)
}

// GetForUpdate serializes concurrent operations on the same wallet: a
// second unit of work blocks here until the first commits or rolls back.
func (s *walletStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	return s.getOne(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 AND is_deleted = false FOR UPDATE`, id)
}

func (s *walletStore) getOne(ctx context.Context, query string, arg any) (*models.Wallet, error) {
	var row walletRow
	if err := sqlx.GetContext(ctx, s.q, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrWalletNotFound
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return s.decode(&row)
}

func (s *walletStore) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	encrypted, err := s.codec.Encrypt(balance)
	if err != nil {
		return fmt.Errorf("encrypt balance: %w", err)
	}

	const query = `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2 AND is_deleted = false`
	res, err := s.q.ExecContext(ctx, query, encrypted, id)
	if err != nil {
		s.log.Error("Failed to update wallet balance",
			logger.StringField("wallet_id", id.String()),
			logger.ErrorField("error", err))
		return fmt.Errorf("update balance: %w", err)
	}
	return requireOneRow(res, repository.ErrWalletNotFound)
}

func (s *walletStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.WalletStatus) error {
	const query = `UPDATE wallets SET status = $1, updated_at = NOW() WHERE id = $2 AND is_deleted = false`
	res, err := s.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update wallet status: %w", err)
	}
	return requireOneRow(res, repository.ErrWalletNotFound)
}

func requireOneRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return missing
	}
	return nil
}

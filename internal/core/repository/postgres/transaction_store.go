package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aileana/walletcore/internal/core/logger"
	"github.com/aileana/walletcore/internal/core/models"
	"github.com/aileana/walletcore/internal/core/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type transactionStore struct {
	q   queryer
	log logger.Logger
}

type transactionRow struct {
	ID                   uuid.UUID       `db:"id"`
	UserID               uuid.UUID       `db:"user_id"`
	WalletID             uuid.UUID       `db:"wallet_id"`
	Type                 string          `db:"type"`
	Flow                 string          `db:"flow"`
	Amount               decimal.Decimal `db:"amount"`
	Fees                 decimal.Decimal `db:"fees"`
	TotalAmount          decimal.Decimal `db:"total_amount"`
	Reference            string          `db:"reference"`
	Status               string          `db:"status"`
	Description          sql.NullString  `db:"description"`
	RelatedTransactionID uuid.NullUUID   `db:"related_transaction_id"`
	Metadata             []byte          `db:"metadata"`
	IsDeleted            bool            `db:"is_deleted"`
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

const transactionColumns = `id, user_id, wallet_id, type, flow, amount, fees, total_amount, reference, status, description, related_transaction_id, metadata, is_deleted, created_at, updated_at`

func decodeTransaction(row *transactionRow) (*models.Transaction, error) {
	tx := &models.Transaction{
		ID:          row.ID,
		UserID:      row.UserID,
		WalletID:    row.WalletID,
		Type:        models.TransactionType(row.Type),
		Flow:        models.TransactionFlow(row.Flow),
		Amount:      row.Amount,
		Fees:        row.Fees,
		TotalAmount: row.TotalAmount,
		Reference:   row.Reference,
		Status:      models.TransactionStatus(row.Status),
		Description: row.Description.String,
		IsDeleted:   row.IsDeleted,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.RelatedTransactionID.Valid {
		related := row.RelatedTransactionID.UUID
		tx.RelatedTransactionID = &related
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &tx.Metadata); err != nil {
			return nil, fmt.Errorf("decode transaction metadata: %w", err)
		}
	}
	return tx, nil
}

func (s *transactionStore) Create(ctx context.Context, tx *models.Transaction) error {
	var metadata []byte
	if len(tx.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(tx.Metadata)
		if err != nil {
			return fmt.Errorf("encode transaction metadata: %w", err)
		}
	}

	var related uuid.NullUUID
	if tx.RelatedTransactionID != nil {
		related = uuid.NullUUID{UUID: *tx.RelatedTransactionID, Valid: true}
	}

	const query = `
		INSERT INTO transactions (id, user_id, wallet_id, type, flow, amount, fees, total_amount, reference, status, description, related_transaction_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13)
		RETURNING created_at, updated_at`

	err := sqlx.GetContext(ctx, s.q, tx, query,
		tx.ID,
		tx.UserID,
		tx.WalletID,
		tx.Type,
		tx.Flow,
		tx.Amount,
		tx.Fees,
		tx.TotalAmount,
		tx.Reference,
		tx.Status,
		tx.Description,
		related,
		metadata,
	)
	if err != nil {
		if isUniqueViolation(err, "transactions_reference_key") {
			return repository.ErrDuplicateReference
		}
		s.log.Error("Failed to create transaction",
			logger.StringField("reference", tx.Reference),
			logger.ErrorField("error", err))
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (s *transactionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return s.getOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND is_deleted = false`, id)
}

func (s *transactionStore) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return s.getOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE reference = $1 AND is_deleted = false`, reference)
}

func (s *transactionStore) getOne(ctx context.Context, query string, arg any) (*models.Transaction, error) {
	var row transactionRow
	if err := sqlx.GetContext(ctx, s.q, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return decodeTransaction(&row)
}

func (s *transactionStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error {
	const query = `UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2 AND is_deleted = false`
	res, err := s.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	return requireOneRow(res, repository.ErrTransactionNotFound)
}

func (s *transactionStore) SetRelated(ctx context.Context, id, relatedID uuid.UUID) error {
	const query = `UPDATE transactions SET related_transaction_id = $1, updated_at = NOW() WHERE id = $2 AND is_deleted = false`
	res, err := s.q.ExecContext(ctx, query, relatedID, id)
	if err != nil {
		return fmt.Errorf("set related transaction: %w", err)
	}
	return requireOneRow(res, repository.ErrTransactionNotFound)
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aileana/walletcore/internal/core/crypto"
	"github.com/aileana/walletcore/internal/core/logger"
	"github.com/aileana/walletcore/internal/core/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const defaultTxTimeout = 15 * time.Second

const maxTxRetries = 3

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx, so the same store
// code serves pool-backed reads and transaction-scoped work.
type queryer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

// Store is the Postgres implementation of repository.Store. The wallet
// balance column is encrypted through the codec; no plaintext balance ever
// reaches the database or the logs.
type Store struct {
	db        *sqlx.DB
	codec     *crypto.BalanceCodec
	log       logger.Logger
	txTimeout time.Duration
}

func NewStore(db *sqlx.DB, codec *crypto.BalanceCodec, log logger.Logger) *Store {
	return &Store{
		db:        db,
		codec:     codec,
		log:       log,
		txTimeout: defaultTxTimeout,
	}
}

// SetTxTimeout overrides the unit-of-work deadline.
func (s *Store) SetTxTimeout(d time.Duration) {
	if d > 0 {
		s.txTimeout = d
	}
}

func (s *Store) Wallets() repository.WalletStore {
	return &walletStore{q: s.db, codec: s.codec, log: s.log}
}

func (s *Store) Transactions() repository.TransactionStore {
	return &transactionStore{q: s.db, log: s.log}
}

func (s *Store) Ledger() repository.LedgerStore {
	return &ledgerStore{q: s.db, log: s.log}
}

type storeTx struct {
	tx    *sqlx.Tx
	codec *crypto.BalanceCodec
	log   logger.Logger
}

func (t *storeTx) Wallets() repository.WalletStore {
	return &walletStore{q: t.tx, codec: t.codec, log: t.log}
}

func (t *storeTx) Transactions() repository.TransactionStore {
	return &transactionStore{q: t.tx, log: t.log}
}

func (t *storeTx) Ledger() repository.LedgerStore {
	return &ledgerStore{q: t.tx, log: t.log}
}

// RunInTx executes fn inside one serializable transaction with a bounded
// deadline. On serialization failure or deadlock the whole closure is
// retried from a clean transaction; any other error rolls everything back.
func (s *Store) RunInTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= maxTxRetries; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}

		s.log.Warn("Retrying unit of work",
			logger.IntField("attempt", attempt),
			logger.ErrorField("error", err))
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("unit of work timed out: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}

	return fmt.Errorf("unit of work failed after %d attempts: %w", maxTxRetries, lastErr)
}

func (s *Store) runOnce(ctx context.Context, fn func(tx repository.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.log.Error("Transaction rollback failed", logger.ErrorField("error", rbErr))
		}
	}()

	if err = fn(&storeTx{tx: tx, codec: s.codec, log: s.log}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	committed = true
	return nil
}

// 40001 - serialization failure, 40P01 - deadlock detected
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == constraint
	}
	return false
}

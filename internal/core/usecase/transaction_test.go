package usecase_test

import (
	"context"
	"testing"

	"github.com/aileana/walletcore/internal/core/logger"
	"github.com/aileana/walletcore/internal/core/models"
	"github.com/aileana/walletcore/internal/core/repository"
	"github.com/aileana/walletcore/internal/core/usecase"
	"github.com/aileana/walletcore/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransactionService(t *testing.T) (*usecase.TransactionService, *testutil.MemStore) {
	t.Helper()
	store := testutil.NewMemStore()
	return usecase.NewTransactionService(store, logger.NewNop()), store
}

func validParams() usecase.CreateTransactionParams {
	return usecase.CreateTransactionParams{
		UserID:    uuid.New(),
		WalletID:  uuid.New(),
		Type:      models.TransactionDeposit,
		Flow:      models.FlowCredit,
		Amount:    decimal.NewFromInt(100),
		Reference: "REF-001",
	}
}

func TestCreateComputesTotalAmount(t *testing.T) {
	svc, store := newTransactionService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		flow   models.TransactionFlow
		txType models.TransactionType
		amount int64
		fees   int64
		total  int64
	}{
		{"credit nets out fees", models.FlowCredit, models.TransactionDeposit, 100, 10, 90},
		{"debit adds fees", models.FlowDebit, models.TransactionWithdrawal, 100, 10, 110},
		{"no fees", models.FlowCredit, models.TransactionDeposit, 100, 0, 100},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.RunInTx(ctx, func(tx repository.Tx) error {
				params := validParams()
				params.Flow = tc.flow
				params.Type = tc.txType
				params.Amount = decimal.NewFromInt(tc.amount)
				params.Fees = decimal.NewFromInt(tc.fees)
				params.Reference = params.Reference + string(rune('A'+i))

				record, err := svc.Create(ctx, tx, params)
				require.NoError(t, err)
				assert.True(t, record.TotalAmount.Equal(decimal.NewFromInt(tc.total)),
					"got %s want %d", record.TotalAmount, tc.total)
				assert.Equal(t, models.StatusPending, record.Status)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestCreateValidation(t *testing.T) {
	svc, store := newTransactionService(t)
	ctx := context.Background()

	err := store.RunInTx(ctx, func(tx repository.Tx) error {
		params := validParams()
		params.WalletID = uuid.Nil
		_, err := svc.Create(ctx, tx, params)
		assert.ErrorIs(t, err, usecase.ErrWalletNotFound)

		params = validParams()
		params.Reference = ""
		_, err = svc.Create(ctx, tx, params)
		assert.ErrorIs(t, err, usecase.ErrMissingReference)

		params = validParams()
		params.Flow = "SIDEWAYS"
		_, err = svc.Create(ctx, tx, params)
		assert.ErrorIs(t, err, usecase.ErrInvalidFlow)

		params = validParams()
		params.Type = "GIFT"
		_, err = svc.Create(ctx, tx, params)
		assert.ErrorIs(t, err, usecase.ErrInvalidType)

		// credit where fees consume the full amount
		params = validParams()
		params.Fees = params.Amount
		_, err = svc.Create(ctx, tx, params)
		assert.ErrorIs(t, err, usecase.ErrInvalidAmount)
		return nil
	})
	require.NoError(t, err)
}

func TestCreateRejectsReusedReference(t *testing.T) {
	svc, store := newTransactionService(t)
	ctx := context.Background()

	err := store.RunInTx(ctx, func(tx repository.Tx) error {
		params := validParams()
		_, err := svc.Create(ctx, tx, params)
		require.NoError(t, err)

		_, err = svc.Create(ctx, tx, params)
		assert.ErrorIs(t, err, usecase.ErrDuplicateReference)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateStatusIsOneWay(t *testing.T) {
	svc, store := newTransactionService(t)
	ctx := context.Background()

	var id uuid.UUID
	err := store.RunInTx(ctx, func(tx repository.Tx) error {
		record, err := svc.Create(ctx, tx, validParams())
		require.NoError(t, err)
		id = record.ID

		updated, err := svc.UpdateStatus(ctx, tx, id, models.StatusSuccessful)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSuccessful, updated.Status)

		// terminal states never change
		_, err = svc.UpdateStatus(ctx, tx, id, models.StatusFailed)
		assert.ErrorIs(t, err, usecase.ErrInvalidStatus)

		// PENDING is not a valid target
		_, err = svc.UpdateStatus(ctx, tx, id, models.StatusPending)
		assert.ErrorIs(t, err, usecase.ErrInvalidStatus)
		return nil
	})
	require.NoError(t, err)
}

func TestByReference(t *testing.T) {
	svc, store := newTransactionService(t)
	ctx := context.Background()

	params := validParams()
	err := store.RunInTx(ctx, func(tx repository.Tx) error {
		_, err := svc.Create(ctx, tx, params)
		return err
	})
	require.NoError(t, err)

	record, err := svc.ByReference(ctx, params.Reference)
	require.NoError(t, err)
	assert.Equal(t, params.Reference, record.Reference)

	_, err = svc.ByReference(ctx, "REF-MISSING")
	assert.ErrorIs(t, err, usecase.ErrTransactionNotFound)

	_, err = svc.ByReference(ctx, "")
	assert.ErrorIs(t, err, usecase.ErrMissingReference)
}

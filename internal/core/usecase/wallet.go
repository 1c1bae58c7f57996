package usecase

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aileana/walletcore/internal/core/activity"
	"github.com/aileana/walletcore/internal/core/logger"
	"github.com/aileana/walletcore/internal/core/models"
	"github.com/aileana/walletcore/internal/core/provider"
	"github.com/aileana/walletcore/internal/core/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperationParams describes one credit or debit request.
type OperationParams struct {
	WalletID    uuid.UUID
	Amount      decimal.Decimal
	Fees        decimal.Decimal
	Reference   string
	Description string
	Metadata    map[string]string
}

// TransferReceipt reports the two legs of a completed transfer.
type TransferReceipt struct {
	DebitTransaction  *models.Transaction `json:"debitTransaction"`
	CreditTransaction *models.Transaction `json:"creditTransaction"`
	FromBalance       decimal.Decimal     `json:"fromBalance"`
	ToBalance         decimal.Decimal     `json:"toBalance"`
}

// WalletService orchestrates balance mutation. Every credit, debit and
// transfer runs as one unit of work: wallet row locked, ledger validated
// before and after, transaction record created pending and finalized only
// when the post-mutation reconciliation passes. Balance change, ledger
// entry and transaction row commit together or not at all.
type WalletService struct {
	store    repository.Store
	ledger   *LedgerService
	txs      *TransactionService
	accounts provider.AccountOpener
	notifier *activity.Notifier
	log      logger.Logger
}

func NewWalletService(store repository.Store, ledger *LedgerService, txs *TransactionService, accounts provider.AccountOpener, notifier *activity.Notifier, log logger.Logger) *WalletService {
	return &WalletService{
		store:    store,
		ledger:   ledger,
		txs:      txs,
		accounts: accounts,
		notifier: notifier,
		log:      log,
	}
}

// CreateWallet opens a provider virtual account and creates an active
// wallet bound to it. One active wallet per user.
func (s *WalletService) CreateWallet(ctx context.Context, userID uuid.UUID, currency string, profile provider.AccountProfile) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, ErrWalletNotFound
	}
	if currency == "" {
		currency = "NGN"
	}

	if _, err := s.store.Wallets().GetByUserID(ctx, userID); err == nil {
		return nil, ErrWalletExists
	} else if err != repository.ErrWalletNotFound {
		return nil, err
	}

	profile.CurrencyCode = currency
	if profile.AccountReference == "" {
		profile.AccountReference = "AILEANA_" + userID.String()
	}
	account, err := s.accounts.OpenVirtualAccount(ctx, profile)
	if err != nil {
		s.log.Error("Could not open virtual account",
			logger.StringField("user_id", userID.String()),
			logger.ErrorField("error", err))
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}

	wallet := &models.Wallet{
		ID:            uuid.New(),
		UserID:        userID,
		Balance:       decimal.Zero,
		Currency:      currency,
		Status:        models.WalletActive,
		AccountNumber: account.AccountNumber,
		BankCode:      account.BankCode,
		BankName:      account.BankName,
	}
	if err := s.store.Wallets().Create(ctx, wallet); err != nil {
		return nil, err
	}

	s.notifier.Notify(activity.Event{
		UserID:   userID,
		WalletID: wallet.ID,
		Action:   "wallet_created",
	})
	return wallet, nil
}

// FindByUserID returns the user's active wallet.
func (s *WalletService) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.store.Wallets().GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !wallet.Mutable() {
		return nil, ErrWalletNotActive
	}
	return wallet, nil
}

// GetBalance returns the user's current balance.
func (s *WalletService) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	wallet, err := s.store.Wallets().GetByUserID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return wallet.Balance, nil
}

// Credit increases the wallet balance by amount minus fees.
func (s *WalletService) Credit(ctx context.Context, params OperationParams) (wallet *models.Wallet, err error) {
	defer func() { observeOperation("credit", err) }()

	wallet, err = s.mutate(ctx, params, models.FlowCredit, models.TransactionDeposit)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(activity.Event{
		UserID:    wallet.UserID,
		WalletID:  wallet.ID,
		Action:    "wallet_credited",
		Reference: params.Reference,
	})
	return wallet, nil
}

// Debit decreases the wallet balance by amount plus fees. The resulting
// balance must not go negative.
func (s *WalletService) Debit(ctx context.Context, params OperationParams) (wallet *models.Wallet, err error) {
	defer func() { observeOperation("debit", err) }()

	wallet, err = s.mutate(ctx, params, models.FlowDebit, models.TransactionWithdrawal)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(activity.Event{
		UserID:    wallet.UserID,
		WalletID:  wallet.ID,
		Action:    "wallet_debited",
		Reference: params.Reference,
	})
	return wallet, nil
}

func (s *WalletService) mutate(ctx context.Context, params OperationParams, flow models.TransactionFlow, txType models.TransactionType) (*models.Wallet, error) {
	if params.Amount.LessThanOrEqual(decimal.Zero) || params.Fees.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if params.Reference == "" {
		return nil, ErrMissingReference
	}

	var (
		updated       *models.Wallet
		failedAttempt *CreateTransactionParams
	)
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		wallet, err := tx.Wallets().GetForUpdate(ctx, params.WalletID)
		if err != nil {
			return err
		}
		if !wallet.Mutable() {
			return ErrWalletNotActive
		}

		pre, err := s.ledger.ValidateConsistency(ctx, tx, wallet.ID, wallet.Balance)
		if err != nil {
			return err
		}
		if !pre.Valid {
			return &InconsistencyError{WalletID: wallet.ID.String(), Expected: pre.ExpectedBalance, Actual: pre.ActualBalance}
		}

		txParams := CreateTransactionParams{
			UserID:      wallet.UserID,
			WalletID:    wallet.ID,
			Type:        txType,
			Flow:        flow,
			Amount:      params.Amount,
			Fees:        params.Fees,
			Reference:   params.Reference,
			Description: params.Description,
			Metadata:    params.Metadata,
		}
		record, err := s.txs.Create(ctx, tx, txParams)
		if err != nil {
			return err
		}

		prevBalance := wallet.Balance
		var newBalance decimal.Decimal
		if flow == models.FlowCredit {
			newBalance = prevBalance.Add(record.TotalAmount)
		} else {
			newBalance = prevBalance.Sub(record.TotalAmount)
			if newBalance.IsNegative() {
				return ErrInsufficientFunds
			}
		}

		if err := tx.Wallets().UpdateBalance(ctx, wallet.ID, newBalance); err != nil {
			return err
		}

		if flow == models.FlowCredit {
			_, err = s.ledger.LogCreditEntry(ctx, tx, wallet.ID, record.ID, record.TotalAmount, prevBalance, newBalance)
		} else {
			_, err = s.ledger.LogDebitEntry(ctx, tx, wallet.ID, record.ID, record.TotalAmount, prevBalance, newBalance)
		}
		if err != nil {
			return err
		}

		post, err := s.ledger.ValidateConsistency(ctx, tx, wallet.ID, newBalance)
		if err != nil {
			return err
		}
		if !post.Valid {
			// Roll the mutation back, but keep an audit record of the
			// rejected attempt (written after the rollback, see below).
			failed := txParams
			failedAttempt = &failed
			return &InconsistencyError{WalletID: wallet.ID.String(), Expected: post.ExpectedBalance, Actual: post.ActualBalance}
		}

		if _, err := s.txs.UpdateStatus(ctx, tx, record.ID, models.StatusSuccessful); err != nil {
			return err
		}

		wallet.Balance = newBalance
		updated = wallet
		return nil
	})
	if err != nil {
		if failedAttempt != nil && IsInconsistency(err) {
			s.recordFailedAttempt(ctx, *failedAttempt)
		}
		return nil, err
	}
	return updated, nil
}

// recordFailedAttempt persists a FAILED transaction for an operation whose
// unit of work was rolled back on a reconciliation break, so the audit
// trail shows the attempted-but-rejected operation.
func (s *WalletService) recordFailedAttempt(ctx context.Context, params CreateTransactionParams) {
	params.Status = models.StatusFailed
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		_, createErr := s.txs.Create(ctx, tx, params)
		return createErr
	})
	if err != nil {
		s.log.Error("Could not record failed transaction attempt",
			logger.StringField("reference", params.Reference),
			logger.ErrorField("error", err))
	}
}

// Transfer moves amount from one wallet to another as one unit of work.
// Both wallets are locked in ascending id order so two opposite-direction
// transfers cannot deadlock; both legs commit together or roll back
// together.
func (s *WalletService) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal) (receipt *TransferReceipt, err error) {
	defer func() { observeOperation("transfer", err) }()

	if fromID == toID {
		return nil, ErrSameWalletTransfer
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	reference := "TRF-" + uuid.NewString()

	var failedLegs []CreateTransactionParams
	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		from, to, lockErr := lockPair(ctx, tx, fromID, toID)
		if lockErr != nil {
			return lockErr
		}
		if !from.Mutable() || !to.Mutable() {
			return ErrWalletNotActive
		}

		for _, w := range []*models.Wallet{from, to} {
			pre, vErr := s.ledger.ValidateConsistency(ctx, tx, w.ID, w.Balance)
			if vErr != nil {
				return vErr
			}
			if !pre.Valid {
				return &InconsistencyError{WalletID: w.ID.String(), Expected: pre.ExpectedBalance, Actual: pre.ActualBalance}
			}
		}

		debitParams := CreateTransactionParams{
			UserID:      from.UserID,
			WalletID:    from.ID,
			Type:        models.TransactionTransfer,
			Flow:        models.FlowDebit,
			Amount:      amount,
			Reference:   reference + "-DEBIT",
			Description: "Transfer to wallet " + to.ID.String(),
		}
		debitRecord, cErr := s.txs.Create(ctx, tx, debitParams)
		if cErr != nil {
			return cErr
		}

		newFrom := from.Balance.Sub(debitRecord.TotalAmount)
		if newFrom.IsNegative() {
			return ErrInsufficientFunds
		}

		creditParams := CreateTransactionParams{
			UserID:               to.UserID,
			WalletID:             to.ID,
			Type:                 models.TransactionTransfer,
			Flow:                 models.FlowCredit,
			Amount:               amount,
			Reference:            reference + "-CREDIT",
			Description:          "Transfer from wallet " + from.ID.String(),
			RelatedTransactionID: &debitRecord.ID,
		}
		creditRecord, cErr := s.txs.Create(ctx, tx, creditParams)
		if cErr != nil {
			return cErr
		}
		if rErr := tx.Transactions().SetRelated(ctx, debitRecord.ID, creditRecord.ID); rErr != nil {
			return rErr
		}
		newTo := to.Balance.Add(creditRecord.TotalAmount)

		if uErr := tx.Wallets().UpdateBalance(ctx, from.ID, newFrom); uErr != nil {
			return uErr
		}
		if _, lErr := s.ledger.LogDebitEntry(ctx, tx, from.ID, debitRecord.ID, debitRecord.TotalAmount, from.Balance, newFrom); lErr != nil {
			return lErr
		}

		if uErr := tx.Wallets().UpdateBalance(ctx, to.ID, newTo); uErr != nil {
			return uErr
		}
		if _, lErr := s.ledger.LogCreditEntry(ctx, tx, to.ID, creditRecord.ID, creditRecord.TotalAmount, to.Balance, newTo); lErr != nil {
			return lErr
		}

		for _, check := range []struct {
			id      uuid.UUID
			balance decimal.Decimal
		}{{from.ID, newFrom}, {to.ID, newTo}} {
			post, vErr := s.ledger.ValidateConsistency(ctx, tx, check.id, check.balance)
			if vErr != nil {
				return vErr
			}
			if !post.Valid {
				failedLegs = []CreateTransactionParams{debitParams, creditParams}
				return &InconsistencyError{WalletID: check.id.String(), Expected: post.ExpectedBalance, Actual: post.ActualBalance}
			}
		}

		debitDone, uErr := s.txs.UpdateStatus(ctx, tx, debitRecord.ID, models.StatusSuccessful)
		if uErr != nil {
			return uErr
		}
		creditDone, uErr := s.txs.UpdateStatus(ctx, tx, creditRecord.ID, models.StatusSuccessful)
		if uErr != nil {
			return uErr
		}

		receipt = &TransferReceipt{
			DebitTransaction:  debitDone,
			CreditTransaction: creditDone,
			FromBalance:       newFrom,
			ToBalance:         newTo,
		}
		return nil
	})
	if err != nil {
		if len(failedLegs) > 0 && IsInconsistency(err) {
			for _, leg := range failedLegs {
				// the leg it pointed at rolled back with the unit of work
				leg.RelatedTransactionID = nil
				s.recordFailedAttempt(ctx, leg)
			}
		}
		return nil, err
	}

	s.notifier.Notify(activity.Event{
		WalletID:  fromID,
		Action:    "transfer_completed",
		Reference: reference,
		Detail:    "to wallet " + toID.String(),
	})
	return receipt, nil
}

// lockPair acquires row locks on both wallets in ascending id order,
// regardless of transfer direction.
func lockPair(ctx context.Context, tx repository.Tx, fromID, toID uuid.UUID) (*models.Wallet, *models.Wallet, error) {
	first, second := fromID, toID
	if bytes.Compare(toID[:], fromID[:]) < 0 {
		first, second = toID, fromID
	}

	locked := make(map[uuid.UUID]*models.Wallet, 2)
	for _, id := range []uuid.UUID{first, second} {
		w, err := tx.Wallets().GetForUpdate(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		locked[id] = w
	}
	return locked[fromID], locked[toID], nil
}

// Freeze blocks all balance operations on the wallet.
func (s *WalletService) Freeze(ctx context.Context, walletID uuid.UUID) error {
	return s.store.Wallets().UpdateStatus(ctx, walletID, models.WalletFrozen)
}

// Unfreeze re-enables balance operations.
func (s *WalletService) Unfreeze(ctx context.Context, walletID uuid.UUID) error {
	return s.store.Wallets().UpdateStatus(ctx, walletID, models.WalletActive)
}

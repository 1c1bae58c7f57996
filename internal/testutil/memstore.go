// Package testutil provides test doubles and database scaffolding shared by
// the service and handler tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aileana/walletcore/internal/core/models"
	"github.com/aileana/walletcore/internal/core/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memState struct {
	wallets      map[uuid.UUID]*models.Wallet
	transactions map[uuid.UUID]*models.Transaction
	entries      []*models.LedgerEntry
}

func (s *memState) clone() *memState {
	next := &memState{
		wallets:      make(map[uuid.UUID]*models.Wallet, len(s.wallets)),
		transactions: make(map[uuid.UUID]*models.Transaction, len(s.transactions)),
		entries:      make([]*models.LedgerEntry, len(s.entries)),
	}
	for id, w := range s.wallets {
		cp := *w
		next.wallets[id] = &cp
	}
	for id, t := range s.transactions {
		cp := *t
		next.transactions[id] = &cp
	}
	for i, e := range s.entries {
		cp := *e
		next.entries[i] = &cp
	}
	return next
}

// MemStore is an in-memory repository.Store with transactional semantics:
// RunInTx works on a snapshot that only replaces the live state on success,
// so rollback behavior matches the real store. A single mutex serializes
// units of work, standing in for the wallet row lock.
type MemStore struct {
	mu    sync.Mutex
	state *memState

	// AfterLedgerAppend, when set, runs on the in-flight snapshot right
	// after an entry is appended inside a unit of work. Tests use it to
	// corrupt the ledger between the mutation and the post-check.
	AfterLedgerAppend func(*LedgerTamper)
}

// LedgerTamper gives a test controlled access to the uncommitted state.
type LedgerTamper struct {
	state *memState
}

// SkewLastEntry changes the amount on the most recent entry so the
// post-mutation reconciliation fails.
func (t *LedgerTamper) SkewLastEntry(delta decimal.Decimal) {
	if len(t.state.entries) == 0 {
		return
	}
	last := t.state.entries[len(t.state.entries)-1]
	if !last.Credit.IsZero() {
		last.Credit = last.Credit.Add(delta)
	} else {
		last.Debit = last.Debit.Add(delta)
	}
}

func NewMemStore() *MemStore {
	return &MemStore{state: &memState{
		wallets:      make(map[uuid.UUID]*models.Wallet),
		transactions: make(map[uuid.UUID]*models.Transaction),
	}}
}

// SeedWallet installs a wallet without going through the service layer.
func (m *MemStore) SeedWallet(w *models.Wallet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.state.wallets[w.ID] = &cp
}

// SeedEntry installs a ledger entry directly, bypassing validation. Tests
// use it to construct inconsistent histories.
func (m *MemStore) SeedEntry(e *models.LedgerEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.state.entries = append(m.state.entries, &cp)
}

func (m *MemStore) RunInTx(_ context.Context, fn func(tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	tx := &memTx{store: m, state: snapshot}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = snapshot
	return nil
}

func (m *MemStore) Wallets() repository.WalletStore {
	return &memWallets{access: m.locked()}
}

func (m *MemStore) Transactions() repository.TransactionStore {
	return &memTransactions{access: m.locked()}
}

func (m *MemStore) Ledger() repository.LedgerStore {
	return &memLedger{access: m.locked()}
}

// locked yields pool-style access: every call takes the store mutex.
func (m *MemStore) locked() func(func(*memState) error) error {
	return func(fn func(*memState) error) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		return fn(m.state)
	}
}

type memTx struct {
	store *MemStore
	state *memState
}

// direct yields tx-style access: the unit of work already holds the lock.
func (t *memTx) direct() func(func(*memState) error) error {
	return func(fn func(*memState) error) error {
		return fn(t.state)
	}
}

func (t *memTx) Wallets() repository.WalletStore {
	return &memWallets{access: t.direct()}
}

func (t *memTx) Transactions() repository.TransactionStore {
	return &memTransactions{access: t.direct()}
}

func (t *memTx) Ledger() repository.LedgerStore {
	return &memLedger{access: t.direct(), afterAppend: func(s *memState) {
		if t.store.AfterLedgerAppend != nil {
			t.store.AfterLedgerAppend(&LedgerTamper{state: s})
		}
	}}
}

type memWallets struct {
	access func(func(*memState) error) error
}

func (w *memWallets) Create(_ context.Context, wallet *models.Wallet) error {
	return w.access(func(s *memState) error {
		for _, existing := range s.wallets {
			if existing.UserID == wallet.UserID && !existing.IsDeleted {
				return repository.ErrWalletExists
			}
		}
		cp := *wallet
		s.wallets[wallet.ID] = &cp
		return nil
	})
}

func (w *memWallets) GetByID(_ context.Context, id uuid.UUID) (*models.Wallet, error) {
	return w.find(func(wallet *models.Wallet) bool { return wallet.ID == id })
}

func (w *memWallets) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return w.find(func(wallet *models.Wallet) bool { return wallet.UserID == userID })
}

func (w *memWallets) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	return w.GetByID(ctx, id)
}

func (w *memWallets) find(match func(*models.Wallet) bool) (*models.Wallet, error) {
	var found *models.Wallet
	err := w.access(func(s *memState) error {
		for _, wallet := range s.wallets {
			if !wallet.IsDeleted && match(wallet) {
				cp := *wallet
				found = &cp
				return nil
			}
		}
		return repository.ErrWalletNotFound
	})
	return found, err
}

func (w *memWallets) UpdateBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal) error {
	return w.access(func(s *memState) error {
		wallet, ok := s.wallets[id]
		if !ok || wallet.IsDeleted {
			return repository.ErrWalletNotFound
		}
		wallet.Balance = balance
		return nil
	})
}

func (w *memWallets) UpdateStatus(_ context.Context, id uuid.UUID, status models.WalletStatus) error {
	return w.access(func(s *memState) error {
		wallet, ok := s.wallets[id]
		if !ok || wallet.IsDeleted {
			return repository.ErrWalletNotFound
		}
		wallet.Status = status
		return nil
	})
}

type memTransactions struct {
	access func(func(*memState) error) error
}

func (t *memTransactions) Create(_ context.Context, tx *models.Transaction) error {
	return t.access(func(s *memState) error {
		for _, existing := range s.transactions {
			if existing.Reference == tx.Reference && !existing.IsDeleted {
				return repository.ErrDuplicateReference
			}
		}
		cp := *tx
		s.transactions[tx.ID] = &cp
		return nil
	})
}

func (t *memTransactions) GetByID(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	return t.find(func(tx *models.Transaction) bool { return tx.ID == id })
}

func (t *memTransactions) GetByReference(_ context.Context, reference string) (*models.Transaction, error) {
	return t.find(func(tx *models.Transaction) bool { return tx.Reference == reference })
}

func (t *memTransactions) find(match func(*models.Transaction) bool) (*models.Transaction, error) {
	var found *models.Transaction
	err := t.access(func(s *memState) error {
		for _, tx := range s.transactions {
			if !tx.IsDeleted && match(tx) {
				cp := *tx
				found = &cp
				return nil
			}
		}
		return repository.ErrTransactionNotFound
	})
	return found, err
}

func (t *memTransactions) UpdateStatus(_ context.Context, id uuid.UUID, status models.TransactionStatus) error {
	return t.access(func(s *memState) error {
		tx, ok := s.transactions[id]
		if !ok || tx.IsDeleted {
			return repository.ErrTransactionNotFound
		}
		tx.Status = status
		return nil
	})
}

func (t *memTransactions) SetRelated(_ context.Context, id, relatedID uuid.UUID) error {
	return t.access(func(s *memState) error {
		tx, ok := s.transactions[id]
		if !ok || tx.IsDeleted {
			return repository.ErrTransactionNotFound
		}
		related := relatedID
		tx.RelatedTransactionID = &related
		return nil
	})
}

type memLedger struct {
	access      func(func(*memState) error) error
	afterAppend func(*memState)
}

func (l *memLedger) Append(_ context.Context, entry *models.LedgerEntry) error {
	return l.access(func(s *memState) error {
		cp := *entry
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = time.Now()
		}
		entry.CreatedAt = cp.CreatedAt
		s.entries = append(s.entries, &cp)
		if l.afterAppend != nil {
			l.afterAppend(s)
		}
		return nil
	})
}

func (l *memLedger) GetByTransactionID(_ context.Context, transactionID uuid.UUID) (*models.LedgerEntry, error) {
	var found *models.LedgerEntry
	err := l.access(func(s *memState) error {
		for _, entry := range s.entries {
			if entry.TransactionID == transactionID && !entry.IsDeleted {
				cp := *entry
				found = &cp
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (l *memLedger) Sum(_ context.Context, walletID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	credits, debits := decimal.Zero, decimal.Zero
	err := l.access(func(s *memState) error {
		for _, entry := range s.entries {
			if entry.WalletID != walletID || entry.IsDeleted {
				continue
			}
			credits = credits.Add(entry.Credit)
			debits = debits.Add(entry.Debit)
		}
		return nil
	})
	return credits, debits, err
}

func (l *memLedger) List(_ context.Context, walletID uuid.UUID, page, limit int) ([]models.LedgerEntry, error) {
	var matched []models.LedgerEntry
	err := l.access(func(s *memState) error {
		for _, entry := range s.entries {
			if entry.WalletID == walletID && !entry.IsDeleted {
				matched = append(matched, *entry)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	start := (page - 1) * limit
	if start >= len(matched) {
		return []models.LedgerEntry{}, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

// EntriesFor returns committed entries for assertions.
func (m *MemStore) EntriesFor(walletID uuid.UUID) []models.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LedgerEntry
	for _, entry := range m.state.entries {
		if entry.WalletID == walletID && !entry.IsDeleted {
			out = append(out, *entry)
		}
	}
	return out
}

// TransactionsFor returns committed transactions for assertions.
func (m *MemStore) TransactionsFor(walletID uuid.UUID) []models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, tx := range m.state.transactions {
		if tx.WalletID == walletID && !tx.IsDeleted {
			out = append(out, *tx)
		}
	}
	return out
}

// Package memory implements the ledger store in process memory. It is the
// default backend for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"findash/internal/core"
)

// Store holds transactions in insertion order behind a single mutex:
// exclusive-write, snapshot reads.
type Store struct {
	mu       sync.Mutex
	txs      []core.Transaction
	accounts []core.Account
	nextTxID int64
	nextAcID int64
}

func New() *Store {
	return &Store{nextTxID: 1, nextAcID: 1}
}

// CreateTransaction implements ledger.TransactionWriter.
func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	tx.ID = s.nextTxID
	s.nextTxID++
	tx.CreatedAt = now
	if tx.Date.IsZero() {
		tx.Date = now
	}
	s.txs = append(s.txs, tx)
	return tx, nil
}

// GetTransaction implements ledger.TransactionReader.
func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range s.txs {
		if tx.ID == id {
			return tx, nil
		}
	}
	return core.Transaction{}, &core.NotFoundError{ID: id}
}

// ListTransactions implements ledger.TransactionReader.
func (s *Store) ListTransactions(_ context.Context, skip, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if skip < 0 {
		skip = 0
	}
	if skip >= len(s.txs) {
		return []core.Transaction{}, nil
	}
	end := len(s.txs)
	if limit >= 0 && skip+limit < end {
		end = skip + limit
	}
	out := make([]core.Transaction, end-skip)
	copy(out, s.txs[skip:end])
	return out, nil
}

// AllTransactions implements ledger.TransactionReader.
func (s *Store) AllTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Transaction, len(s.txs))
	copy(out, s.txs)
	return out, nil
}

// DeleteTransaction implements ledger.TransactionDeleter.
func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, tx := range s.txs {
		if tx.ID == id {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return nil
		}
	}
	return &core.NotFoundError{ID: id}
}

// CreateAccount implements ledger.AccountStore.
func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	a.ID = s.nextAcID
	s.nextAcID++
	a.CreatedAt = now
	a.UpdatedAt = now
	s.accounts = append(s.accounts, a)
	return a, nil
}

// ListAccounts implements ledger.AccountStore.
func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Account, len(s.accounts))
	copy(out, s.accounts)
	return out, nil
}

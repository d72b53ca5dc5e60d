// Package services orchestrates store mutations with transaction event
// publishing. The store write is authoritative; event publishing is
// best-effort and never fails the caller.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"findash/internal/amqp"
	"findash/internal/core"
	"findash/internal/ledger"
	"findash/internal/log"
)

// EventPublisher is the outbound port for transaction lifecycle events.
// *amqp.Client satisfies it; a nil publisher disables eventing.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, id int64, action string) error
	Close() error
}

// TransactionService implements ledger.Store on top of a concrete store,
// adding event publication on every mutation.
type TransactionService struct {
	store     ledger.Store
	publisher EventPublisher
	cleanup   func() error
}

// New wires a service over a store. publisher may be nil. cleanup, when not
// nil, is invoked by Close after the publisher (backend-owned resources).
func New(store ledger.Store, publisher EventPublisher, cleanup func() error) *TransactionService {
	return &TransactionService{store: store, publisher: publisher, cleanup: cleanup}
}

// CreateTransaction implements ledger.TransactionWriter.
func (s *TransactionService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}

	if err := s.publish(ctx, created.ID, amqp.ActionCreated); err != nil {
		slog.ErrorContext(ctx, "Failed to publish created event",
			log.FieldTxID, created.ID, log.FieldError, err)
		// Don't fail the request; the transaction is stored
	}

	return created, nil
}

// DeleteTransaction implements ledger.TransactionDeleter.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	if err := s.publish(ctx, id, amqp.ActionDeleted); err != nil {
		slog.ErrorContext(ctx, "Failed to publish deleted event",
			log.FieldTxID, id, log.FieldError, err)
	}

	return nil
}

// GetTransaction implements ledger.TransactionReader.
func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// ListTransactions implements ledger.TransactionReader.
func (s *TransactionService) ListTransactions(ctx context.Context, skip, limit int) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, skip, limit)
}

// AllTransactions implements ledger.TransactionReader.
func (s *TransactionService) AllTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.store.AllTransactions(ctx)
}

// CreateAccount implements ledger.AccountStore.
func (s *TransactionService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	return s.store.CreateAccount(ctx, a)
}

// ListAccounts implements ledger.AccountStore.
func (s *TransactionService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.store.ListAccounts(ctx)
}

func (s *TransactionService) publish(ctx context.Context, id int64, action string) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.PublishTransactionEvent(ctx, id, action)
}

// Close releases the publisher and backend resources.
func (s *TransactionService) Close() error {
	var errs []error

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if s.cleanup != nil {
		if err := s.cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("backend: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}
	return nil
}

var _ ledger.Store = (*TransactionService)(nil)

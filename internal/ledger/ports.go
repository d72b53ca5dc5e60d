// Package ledger defines the ports the rest of the application talks to the
// transaction store through. Implementations live in ledger/memory and
// storage (SQLite).
package ledger

import (
	"context"

	"findash/internal/core"
)

type (
	TransactionWriter interface {
		// CreateTransaction validates tx, assigns a new unique id and
		// appends it preserving insertion order. A zero Date is replaced
		// with the current time.
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	}

	TransactionReader interface {
		// GetTransaction returns a single transaction by id, or
		// *core.NotFoundError when absent.
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)

		// ListTransactions returns up to limit transactions after skipping
		// skip, in insertion order. The store never sorts.
		ListTransactions(ctx context.Context, skip, limit int) ([]core.Transaction, error)

		// AllTransactions returns a point-in-time snapshot of the whole
		// collection for aggregation.
		AllTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	TransactionDeleter interface {
		// DeleteTransaction removes a transaction; *core.NotFoundError
		// when the id is absent. A repeated delete reports not-found.
		DeleteTransaction(ctx context.Context, id int64) error
	}

	AccountStore interface {
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		ListAccounts(ctx context.Context) ([]core.Account, error)
	}

	// Store is the full transaction store contract.
	Store interface {
		TransactionWriter
		TransactionReader
		TransactionDeleter
		AccountStore
	}
)

// Package storage implements the ledger store on SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"findash/internal/core"
	"findash/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateTransaction implements ledger.TransactionWriter.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	now := time.Now().UTC()
	tx.CreatedAt = now
	if tx.Date.IsZero() {
		tx.Date = now
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (amount_cents, description, category, transaction_type, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tx.Amount.Cents, tx.Description, string(tx.Category), string(tx.Type), tx.Date, tx.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}
	tx.ID = id

	slog.InfoContext(ctx, "Transaction saved",
		log.FieldTxID, tx.ID,
		"description", tx.Description,
		log.FieldAmountCents, tx.Amount.Cents,
		log.FieldCategory, tx.Category,
		log.FieldTxType, tx.Type)

	return tx, nil
}

// GetTransaction implements ledger.TransactionReader.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, amount_cents, description, category, transaction_type, date, created_at
		 FROM transactions WHERE id = ?`, id)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, &core.NotFoundError{ID: id}
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// ListTransactions implements ledger.TransactionReader. Order is insertion
// order (ascending id); pagination via skip/limit.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, skip, limit int) ([]core.Transaction, error) {
	if skip < 0 {
		skip = 0
	}
	if limit < 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount_cents, description, category, transaction_type, date, created_at
		 FROM transactions ORDER BY id LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// AllTransactions implements ledger.TransactionReader.
func (r *SQLiteRepository) AllTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount_cents, description, category, transaction_type, date, created_at
		 FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// DeleteTransaction implements ledger.TransactionDeleter.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return &core.NotFoundError{ID: id}
	}

	slog.InfoContext(ctx, "Transaction deleted", log.FieldTxID, id)
	return nil
}

// CreateAccount implements ledger.AccountStore.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (name, account_type, balance_cents, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a.Name, a.AccountType, a.Balance.Cents, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("last insert id: %w", err)
	}
	a.ID = id

	slog.InfoContext(ctx, "Account created", "id", a.ID, "name", a.Name)
	return a, nil
}

// ListAccounts implements ledger.AccountStore.
func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, account_type, balance_cents, created_at, updated_at
		 FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.AccountType, &a.Balance.Cents, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var tx core.Transaction
	var category, txType string
	if err := row.Scan(&tx.ID, &tx.Amount.Cents, &tx.Description, &category, &txType, &tx.Date, &tx.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	tx.Category = core.Category(category)
	tx.Type = core.TransactionType(txType)
	return tx, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	out := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

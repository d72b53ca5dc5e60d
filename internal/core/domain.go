package core

import (
	"fmt"
	"strings"
	"time"
)

type (
	Money struct {
		Cents int64
	}

	// Transaction is a single recorded money movement. The store assigns
	// ID and CreatedAt on creation; transactions are immutable afterwards.
	Transaction struct {
		ID          int64
		Amount      Money
		Description string
		Category    Category
		Type        TransactionType
		Date        time.Time
		CreatedAt   time.Time
	}

	// Account is a named holding with a running balance.
	Account struct {
		ID          int64
		Name        string
		AccountType string
		Balance     Money
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
)

// ValidationError reports a rejected field value. The Field name is part of
// the contract: callers surface it verbatim to the user.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// NotFoundError reports a transaction id that is not in the store.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transaction %d not found", e.ID)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns the difference of two amounts. The result may be negative.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// Validate checks every field invariant a transaction must satisfy before it
// may be persisted. Both manual creation and CSV import go through here.
func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if len(t.Description) > 255 {
		return &ValidationError{Field: "description", Reason: "too long (max 255 characters)"}
	}
	if _, ok := GroupOf(t.Category); !ok {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", t.Category)}
	}
	if !t.Type.IsValid() {
		return &ValidationError{Field: "transaction_type", Reason: fmt.Sprintf("unknown transaction type %q", t.Type)}
	}
	if !IsValidPair(t.Category, t.Type) {
		return &ValidationError{
			Field:  "transaction_type",
			Reason: fmt.Sprintf("type %q is not valid for category %q", t.Type, t.Category),
		}
	}
	return nil
}

func (a Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len(a.Name) > 100 {
		return &ValidationError{Field: "name", Reason: "too long (max 100 characters)"}
	}
	if len(strings.TrimSpace(a.AccountType)) == 0 {
		return &ValidationError{Field: "account_type", Reason: "must not be empty"}
	}
	if len(a.AccountType) > 50 {
		return &ValidationError{Field: "account_type", Reason: "too long (max 50 characters)"}
	}
	return nil
}

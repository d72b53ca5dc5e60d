package core

import "strings"

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

const (
	// Income categories
	Salary      Category = "salary"
	Freelance   Category = "freelance"
	Investment  Category = "investment"
	OtherIncome Category = "other_income"

	// Expense categories
	Food          Category = "food"
	Transport     Category = "transport"
	Entertainment Category = "entertainment"
	Utilities     Category = "utilities"
	Rent          Category = "rent"
	Shopping      Category = "shopping"
	Healthcare    Category = "healthcare"
	Education     Category = "education"
	OtherExpense  Category = "other_expense"

	// Transfer category
	Transfer Category = "transfer"
)

type (
	TransactionType string

	Category string
)

// taxonomy is the single source of truth for category grouping. Every
// category/type consistency check goes through this table.
var taxonomy = map[Category]TransactionType{
	Salary:      TypeIncome,
	Freelance:   TypeIncome,
	Investment:  TypeIncome,
	OtherIncome: TypeIncome,

	Food:          TypeExpense,
	Transport:     TypeExpense,
	Entertainment: TypeExpense,
	Utilities:     TypeExpense,
	Rent:          TypeExpense,
	Shopping:      TypeExpense,
	Healthcare:    TypeExpense,
	Education:     TypeExpense,
	OtherExpense:  TypeExpense,

	Transfer: TypeTransfer,
}

// orderedCategories fixes a stable listing order for the taxonomy.
var orderedCategories = []Category{
	Salary, Freelance, Investment, OtherIncome,
	Food, Transport, Entertainment, Utilities, Rent,
	Shopping, Healthcare, Education, OtherExpense,
	Transfer,
}

// GroupOf returns the transaction type a category belongs to.
// The second return value is false for unknown categories.
func GroupOf(c Category) (TransactionType, bool) {
	t, ok := taxonomy[c]
	return t, ok
}

// IsValidPair reports whether a category may be combined with a transaction
// type. Unknown categories are never valid.
func IsValidPair(c Category, t TransactionType) bool {
	group, ok := taxonomy[c]
	return ok && group == t
}

// IsValid reports whether t is one of the known transaction types.
func (t TransactionType) IsValid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

// CategoriesByType returns all categories belonging to the given type,
// in a stable order.
func CategoriesByType(t TransactionType) []Category {
	var out []Category
	for _, c := range orderedCategories {
		if taxonomy[c] == t {
			out = append(out, c)
		}
	}
	return out
}

// Label returns the display form of a category: underscores replaced with
// spaces and each word capitalized ("other_expense" -> "Other Expense").
// This is the single normalization shared by the aggregation breakdown and
// the presentation layer.
func (c Category) Label() string {
	words := strings.Split(strings.ReplaceAll(string(c), "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

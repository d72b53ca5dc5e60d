package core

// Summary is the derived aggregate view of a transaction set at a point in
// time. It is recomputed on demand, never stored.
type Summary struct {
	TotalIncome      Money
	TotalExpenses    Money
	NetWorth         Money
	TransactionCount int
}

// Summarize computes the dashboard summary in a single pass.
//
// Transfers net to zero by policy: they are excluded from both totals but
// still counted in TransactionCount. Cents arithmetic makes the result
// independent of input order.
func Summarize(txs []Transaction) Summary {
	var income, expenses int64
	for _, t := range txs {
		switch t.Type {
		case TypeIncome:
			income += t.Amount.Cents
		case TypeExpense:
			expenses += t.Amount.Cents
		}
	}
	return Summary{
		TotalIncome:      Money{Cents: income},
		TotalExpenses:    Money{Cents: expenses},
		NetWorth:         Money{Cents: income - expenses},
		TransactionCount: len(txs),
	}
}

// CategoryBreakdown sums expense transactions per category, keyed by the
// normalized display label. Income and transfer transactions are ignored.
func CategoryBreakdown(txs []Transaction) map[string]Money {
	out := make(map[string]Money)
	for _, t := range txs {
		if t.Type != TypeExpense {
			continue
		}
		label := t.Category.Label()
		out[label] = out[label].Add(t.Amount)
	}
	return out
}

// TopExpenseCategory returns the label of the category with the highest
// summed expenses. Ties break alphabetically so the result is deterministic.
// ok is false when there are no expense transactions.
func TopExpenseCategory(txs []Transaction) (string, bool) {
	breakdown := CategoryBreakdown(txs)
	var best string
	var bestCents int64
	found := false
	for l, m := range breakdown {
		if !found || m.Cents > bestCents || (m.Cents == bestCents && l < best) {
			best, bestCents, found = l, m.Cents, true
		}
	}
	return best, found
}

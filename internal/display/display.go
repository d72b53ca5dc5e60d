// Package display translates domain values into display-ready strings and
// provides the filter predicates used by the list surface. Everything here
// is pure; it is the boundary to the excluded rendering/chart layer.
package display

import (
	"strconv"
	"strings"
	"time"

	"findash/internal/core"
)

// DefaultCurrencySymbol is used when no symbol is configured.
const DefaultCurrencySymbol = "$"

// FormatCurrency renders an amount with two decimal places, thousands
// separators and a currency symbol: FormatCurrency(Money{123456789}, "$")
// -> "$1,234,567.89". Negative amounts get a leading minus.
func FormatCurrency(m core.Money, symbol string) string {
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}

	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(symbol)
	for i, d := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	b.WriteByte('.')
	rem := cents % 100
	if rem < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(rem, 10))
	return b.String()
}

// FormatDateShort renders a compact date: "Mar 1, 2025".
func FormatDateShort(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

// FormatDateLong renders a full date with time: "March 1, 2025 14:30".
func FormatDateLong(t time.Time) string {
	return t.Format("January 2, 2006 15:04")
}

// CategoryLabel returns the display label for a category. Normalization is
// delegated to the taxonomy so the chart breakdown and this layer can never
// diverge.
func CategoryLabel(c core.Category) string {
	return c.Label()
}

// Matches reports whether a transaction passes the list filters. searchTerm
// matches case-insensitively as a substring of the description; categoryFilter
// is exact-match-or-unset. Empty filters match everything.
func Matches(tx core.Transaction, searchTerm, categoryFilter string) bool {
	if searchTerm != "" &&
		!strings.Contains(strings.ToLower(tx.Description), strings.ToLower(searchTerm)) {
		return false
	}
	if categoryFilter != "" && string(tx.Category) != categoryFilter {
		return false
	}
	return true
}

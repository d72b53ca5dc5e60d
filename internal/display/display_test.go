package display

import (
	"testing"
	"time"

	"findash/internal/core"
)

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		cents  int64
		symbol string
		want   string
	}{
		{5000, "$", "$50.00"},
		{1, "$", "$0.01"},
		{123456, "$", "$1,234.56"},
		{123456789, "$", "$1,234,567.89"},
		{100000000, "€", "€1,000,000.00"},
		{-310, "$", "-$3.10"},
		{0, "", "$0.00"},
	}
	for i, tc := range cases {
		if got := FormatCurrency(core.Money{Cents: tc.cents}, tc.symbol); got != tc.want {
			t.Fatalf("case %d expected %q, got %q", i, tc.want, got)
		}
	}
}

func TestFormatDates(t *testing.T) {
	d := time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)
	if got := FormatDateShort(d); got != "Mar 1, 2025" {
		t.Fatalf("short: got %q", got)
	}
	if got := FormatDateLong(d); got != "March 1, 2025 14:30" {
		t.Fatalf("long: got %q", got)
	}
}

func TestCategoryLabelSharedWithBreakdown(t *testing.T) {
	// the adapter must agree with the aggregation breakdown labels
	txs := []core.Transaction{{
		Amount:   core.Money{Cents: 100},
		Category: core.OtherExpense,
		Type:     core.TypeExpense,
	}}
	breakdown := core.CategoryBreakdown(txs)
	label := CategoryLabel(core.OtherExpense)
	if _, ok := breakdown[label]; !ok {
		t.Fatalf("label %q not found in breakdown keys %v", label, breakdown)
	}
}

func TestMatches(t *testing.T) {
	tx := core.Transaction{
		Description: "Weekly Groceries",
		Category:    core.Food,
		Type:        core.TypeExpense,
		Amount:      core.Money{Cents: 100},
	}
	cases := []struct {
		search   string
		category string
		want     bool
	}{
		{"", "", true},
		{"groceries", "", true},
		{"GROCER", "", true},
		{"fuel", "", false},
		{"", "food", true},
		{"", "transport", false},
		{"weekly", "food", true},
		{"weekly", "transport", false},
	}
	for i, tc := range cases {
		if got := Matches(tx, tc.search, tc.category); got != tc.want {
			t.Fatalf("case %d (%q, %q) expected %v, got %v", i, tc.search, tc.category, tc.want, got)
		}
	}
}

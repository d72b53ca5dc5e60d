package core

import "testing"

func TestGroupOf(t *testing.T) {
	cases := []struct {
		c     Category
		group TransactionType
		known bool
	}{
		{Salary, TypeIncome, true},
		{Freelance, TypeIncome, true},
		{Food, TypeExpense, true},
		{Rent, TypeExpense, true},
		{OtherExpense, TypeExpense, true},
		{Transfer, TypeTransfer, true},
		{"crypto", "", false},
		{"", "", false},
	}
	for i, tc := range cases {
		group, ok := GroupOf(tc.c)
		if ok != tc.known {
			t.Fatalf("case %d expected known=%v, got %v", i, tc.known, ok)
		}
		if ok && group != tc.group {
			t.Fatalf("case %d expected group %q, got %q", i, tc.group, group)
		}
	}
}

func TestIsValidPair(t *testing.T) {
	cases := []struct {
		c  Category
		ty TransactionType
		ok bool
	}{
		{Food, TypeExpense, true},
		{Salary, TypeIncome, true},
		{Transfer, TypeTransfer, true},
		{Food, TypeIncome, false},
		{Salary, TypeExpense, false},
		{Transfer, TypeExpense, false},
		{"unknown", TypeExpense, false},
	}
	for i, tc := range cases {
		if got := IsValidPair(tc.c, tc.ty); got != tc.ok {
			t.Fatalf("case %d (%s, %s) expected %v, got %v", i, tc.c, tc.ty, tc.ok, got)
		}
	}
}

func TestEveryCategoryTypePair(t *testing.T) {
	types := []TransactionType{TypeIncome, TypeExpense, TypeTransfer}
	for _, c := range orderedCategories {
		group, ok := GroupOf(c)
		if !ok {
			t.Fatalf("category %q missing from taxonomy", c)
		}
		for _, ty := range types {
			valid := ty == group
			if got := IsValidPair(c, ty); got != valid {
				t.Fatalf("pair (%s, %s) expected %v, got %v", c, ty, valid, got)
			}

			tx := Transaction{
				Amount:      Money{Cents: 100},
				Description: "t",
				Category:    c,
				Type:        ty,
			}
			err := tx.Validate()
			if valid && err != nil {
				t.Fatalf("pair (%s, %s) expected valid, got %v", c, ty, err)
			}
			if !valid && err == nil {
				t.Fatalf("pair (%s, %s) expected validation failure", c, ty)
			}
		}
	}
}

func TestCategoriesByType(t *testing.T) {
	if n := len(CategoriesByType(TypeIncome)); n != 4 {
		t.Fatalf("expected 4 income categories, got %d", n)
	}
	if n := len(CategoriesByType(TypeExpense)); n != 9 {
		t.Fatalf("expected 9 expense categories, got %d", n)
	}
	transfer := CategoriesByType(TypeTransfer)
	if len(transfer) != 1 || transfer[0] != Transfer {
		t.Fatalf("expected single transfer category, got %v", transfer)
	}
}

func TestCategoryLabel(t *testing.T) {
	cases := []struct {
		c    Category
		want string
	}{
		{Food, "Food"},
		{OtherExpense, "Other Expense"},
		{OtherIncome, "Other Income"},
		{Transport, "Transport"},
	}
	for i, tc := range cases {
		if got := tc.c.Label(); got != tc.want {
			t.Fatalf("case %d expected %q, got %q", i, tc.want, got)
		}
	}
}

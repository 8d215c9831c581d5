package core

import (
	"errors"
	"testing"
	"time"
)

func TestCheckPlannedExpense(t *testing.T) {
	limit := Money{Cents: 50000}

	if err := CheckPlannedExpense(limit, Money{Cents: 30000}, Money{Cents: 20000}); err != nil {
		t.Errorf("exactly at limit should be admissible, got %v", err)
	}
	if err := CheckPlannedExpense(limit, Money{Cents: 30000}, Money{Cents: 20001}); !errors.Is(err, ErrAccountLimitReached) {
		t.Errorf("one cent over limit: got %v, want ErrAccountLimitReached", err)
	}
}

func TestCheckTransactionOrder(t *testing.T) {
	limit := Money{Cents: 50000} // 500
	ceiling := Money{Cents: 10000}

	// limit 500, prior total 480, amount 30 -> rejected before any other check
	err := CheckTransaction(limit, Money{Cents: 48000}, nil, Money{}, Money{Cents: 3000})
	if !errors.Is(err, ErrAccountLimitReached) {
		t.Errorf("overall cap must be checked first: got %v", err)
	}

	// Unknown category rejected even though overall cap passes.
	err = CheckTransaction(limit, Money{Cents: 1000}, nil, Money{}, Money{Cents: 3000})
	if !errors.Is(err, ErrNoPlannedCategory) {
		t.Errorf("missing planned category: got %v, want ErrNoPlannedCategory", err)
	}

	// Category cap.
	err = CheckTransaction(limit, Money{Cents: 1000}, &ceiling, Money{Cents: 9000}, Money{Cents: 1001})
	if !errors.Is(err, ErrCategoryLimitReached) {
		t.Errorf("category cap: got %v, want ErrCategoryLimitReached", err)
	}

	// All checks pass.
	err = CheckTransaction(limit, Money{Cents: 1000}, &ceiling, Money{Cents: 9000}, Money{Cents: 1000})
	if err != nil {
		t.Errorf("admissible transaction rejected: %v", err)
	}
}

func TestIsPast(t *testing.T) {
	now := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		year, month int
		want        bool
	}{
		{2023, 12, true},
		{2024, 5, true},
		{2024, 6, false}, // current month is not past
		{2024, 7, false},
		{2025, 1, false},
	}
	for _, c := range cases {
		if got := IsPast(c.year, c.month, now); got != c.want {
			t.Errorf("IsPast(%d, %d) = %v, want %v", c.year, c.month, got, c.want)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{Month: 6, Year: 2024, AccountLimit: Money{Cents: 50000}}
	if err := b.Validate(); err != nil {
		t.Fatalf("valid budget rejected: %v", err)
	}
	b.Month = 13
	if err := b.Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("month 13: got %v, want ErrInvalidMonth", err)
	}
	b.Month = 6
	b.AccountLimit = Money{}
	if err := b.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero limit: got %v, want ErrInvalidAmount", err)
	}
}

func TestMonthName(t *testing.T) {
	if got := MonthName(1); got != "January" {
		t.Errorf("MonthName(1) = %q", got)
	}
	if got := MonthName(12); got != "December" {
		t.Errorf("MonthName(12) = %q", got)
	}
	if got := MonthName(0); got != "N/A" {
		t.Errorf("MonthName(0) = %q", got)
	}
}

func TestCapitalize(t *testing.T) {
	cases := map[string]string{
		"groceries": "Groceries",
		"TRAVEL":    "Travel",
		"":          "",
		"a":         "A",
	}
	for in, want := range cases {
		if got := Capitalize(in); got != want {
			t.Errorf("Capitalize(%q) = %q, want %q", in, got, want)
		}
	}
}

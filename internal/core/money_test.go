package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		cents   int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{" 500 ", 50000, false},
		{"0.005", 1, false}, // rounds half-up
		{"0.004", 0, true},  // rounds to zero, rejected
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"12.3.4", 0, true},
	}
	for _, c := range cases {
		m, err := ParseAmount(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q): expected error, got %d cents", c.in, m.Cents)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): unexpected error: %v", c.in, err)
			continue
		}
		if m.Cents != c.cents {
			t.Errorf("ParseAmount(%q) = %d cents, want %d", c.in, m.Cents, c.cents)
		}
	}
}

func TestMoneyAmount(t *testing.T) {
	if got := (Money{Cents: 1234}).Amount(); got != "12.34" {
		t.Errorf("Amount() = %q, want 12.34", got)
	}
	if got := (Money{Cents: 5}).Amount(); got != "0.05" {
		t.Errorf("Amount() = %q, want 0.05", got)
	}
	if got := (Money{Cents: -260}).Amount(); got != "-2.60" {
		t.Errorf("Amount() = %q, want -2.60", got)
	}
	if got := (Money{Cents: 260}).String(); got != "$2.60" {
		t.Errorf("String() = %q, want $2.60", got)
	}
}

func TestRewardFor(t *testing.T) {
	// accountLimit=200, total=150 -> 0.10 + 5% of 50.00 = 2.60
	got := RewardFor(Money{Cents: 20000}, Money{Cents: 15000})
	if got.Cents != 260 {
		t.Errorf("RewardFor(200, 150) = %d cents, want 260", got.Cents)
	}

	// Spent exactly the limit: flat base plus 5% of zero.
	got = RewardFor(Money{Cents: 20000}, Money{Cents: 20000})
	if got.Cents != 10 {
		t.Errorf("RewardFor(200, 200) = %d cents, want 10", got.Cents)
	}

	// Over the limit: base only, no under-spend bonus.
	got = RewardFor(Money{Cents: 20000}, Money{Cents: 25000})
	if got.Cents != 10 {
		t.Errorf("RewardFor(200, 250) = %d cents, want 10", got.Cents)
	}

	// Fractional bonus rounds half-up to whole cents: 5% of 0.30 = 0.015.
	got = RewardFor(Money{Cents: 30}, Money{Cents: 0})
	if got.Cents != 12 {
		t.Errorf("RewardFor(0.30, 0) = %d cents, want 12", got.Cents)
	}
}

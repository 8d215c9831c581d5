// Package core holds the budgeting domain model: money handling, admission
// checks for planned expenses and transactions, and the reward rule.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a currency amount in whole cents. All arithmetic happens on
// cents; decimals only appear at parse and display boundaries.
type Money struct {
	Cents int64
}

var (
	hundred    = decimal.NewFromInt(100)
	rewardBase = decimal.NewFromInt(10)             // flat 10 cents
	rewardRate = decimal.RequireFromString("0.05")  // 5% of under-spend
)

// ParseAmount converts a user-entered decimal string to Money. Both dot and
// comma decimal separators are accepted; sub-cent digits round half-up.
// Zero, negative, and malformed values are rejected.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.Sign() <= 0 {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0).IntPart()
	if cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents}, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Amount returns the value as a display string with two decimals, e.g.
// "12.34". Calculations stay on cents; this is for templates and mail only.
func (m Money) Amount() string {
	neg := m.Cents < 0
	c := m.Cents
	if neg {
		c = -c
	}
	s := fmt.Sprintf("%d.%02d", c/100, c%100)
	if neg {
		return "-" + s
	}
	return s
}

func (m Money) String() string {
	return "$" + m.Amount()
}

// RewardFor computes the cashback for a closed budget period: a flat 10
// cents, plus 5% of the unused limit (rounded half-up to whole cents) when
// total spend stayed at or under the account limit.
func RewardFor(limit, total Money) Money {
	reward := rewardBase
	if total.Cents <= limit.Cents {
		unused := decimal.NewFromInt(limit.Cents - total.Cents)
		reward = reward.Add(unused.Mul(rewardRate).Round(0))
	}
	return Money{Cents: reward.IntPart()}
}

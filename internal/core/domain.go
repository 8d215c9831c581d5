package core

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

type (
	// User is a registered account holder.
	User struct {
		ID           int64
		Username     string
		Email        string
		FirstName    string
		LastName     string
		AccountType  string
		PasswordHash string
	}

	// Budget is a (month, year) scoped spending plan with an overall
	// account limit. TotalTransactions is a denormalized cache of the
	// summed transaction amounts, maintained in the same transaction as
	// every insert.
	Budget struct {
		ID                int64
		UserID            int64
		AccountLimit      Money
		Month             int
		Year              int
		Income            Money
		TotalTransactions Money
	}

	// PlannedExpense is a planned per-category spending ceiling within a
	// budget, not an actual purchase.
	PlannedExpense struct {
		ID       int64
		BudgetID int64
		Category string
		Amount   Money
	}

	// Transaction is an actual recorded spend event against a budget.
	Transaction struct {
		ID          int64
		BudgetID    int64
		Category    string
		Amount      Money
		Date        time.Time
		Description string
	}

	// Reward is a one-time cashback credit for a closed budget period,
	// keyed by (budget, user).
	Reward struct {
		BudgetID int64
		UserID   int64
		Amount   Money
	}

	// CategoryAmount pairs a category with a summed amount, used by the
	// dashboard and chart views.
	CategoryAmount struct {
		Category string
		Amount   Money
	}
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidMonth         = errors.New("invalid month")
	ErrInvalidYear          = errors.New("invalid year")
	ErrEmptyCategory        = errors.New("empty category")
	ErrAccountLimitReached  = errors.New("account limit would be exceeded")
	ErrNoPlannedCategory    = errors.New("no planned expense for category")
	ErrCategoryLimitReached = errors.New("category limit would be exceeded")
)

func (b Budget) Validate() error {
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidMonth
	}
	if b.Year < 1970 || b.Year > 9999 {
		return ErrInvalidYear
	}
	if b.AccountLimit.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (p PlannedExpense) Validate() error {
	if strings.TrimSpace(p.Category) == "" {
		return ErrEmptyCategory
	}
	return p.Amount.Validate()
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// CheckPlannedExpense decides whether a new planned ceiling is admissible.
// The sum of planned ceilings is capped by the overall account limit; the
// check deliberately reads planned allocations, not actual spend.
func CheckPlannedExpense(limit, plannedTotal, amount Money) error {
	if plannedTotal.Cents+amount.Cents > limit.Cents {
		return ErrAccountLimitReached
	}
	return nil
}

// CheckTransaction decides whether a spend event is admissible. Checks run
// in strict order and the first failure wins: overall cap, category
// existence, category cap. ceiling is nil when no planned expense exists
// for the transaction's category.
func CheckTransaction(limit, overallTotal Money, ceiling *Money, categoryTotal, amount Money) error {
	if overallTotal.Cents+amount.Cents > limit.Cents {
		return ErrAccountLimitReached
	}
	if ceiling == nil {
		return ErrNoPlannedCategory
	}
	if categoryTotal.Cents+amount.Cents > ceiling.Cents {
		return ErrCategoryLimitReached
	}
	return nil
}

// IsPast reports whether the (year, month) period is strictly before now's
// month. The current month is not past.
func IsPast(year, month int, now time.Time) bool {
	if year != now.Year() {
		return year < now.Year()
	}
	return month < int(now.Month())
}

// MonthName returns the English month name for 1..12, "N/A" otherwise.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return "N/A"
	}
	return time.Month(month).String()
}

// Capitalize uppercases the first rune and lowercases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"smartexpense/internal/core"

	_ "modernc.org/sqlite"
)

var ErrBudgetNotFound = errors.New("budget not found")

const dateLayout = "2006-01-02"

// Repository is the SQLite persistence accessor. The pool hands one
// connection to each operation and releases it when the operation ends;
// admission checks and their inserts share a single transaction.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single pooled connection keeps the
	// check-then-insert transactions serialized instead of failing busy.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// -- users --

func (r *Repository) CreateUser(ctx context.Context, u core.User) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, first_name, last_name, account_type)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.AccountType)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user insert id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id, "username", u.Username)
	return id, nil
}

func (r *Repository) UserByUsername(ctx context.Context, username string) (*core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, first_name, last_name, account_type
		FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.AccountType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user by username: %w", err)
	}
	return &u, nil
}

// UserContact returns the email and first name for a user, used by the
// notification worker to address mail.
func (r *Repository) UserContact(ctx context.Context, userID int64) (email, firstName string, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT email, first_name FROM users WHERE id = ?`, userID).
		Scan(&email, &firstName)
	if err != nil {
		return "", "", fmt.Errorf("user contact: %w", err)
	}
	return email, firstName, nil
}

func (r *Repository) UserExists(ctx context.Context, username, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ? OR email = ?`, username, email).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return n > 0, nil
}

// -- budgets --

// CreateBudgetWithPlan inserts the budget row and every planned category
// ceiling in one transaction. Any failure rolls the whole create back.
func (r *Repository) CreateBudgetWithPlan(ctx context.Context, b core.Budget, plan []core.PlannedExpense) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create budget: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO budgets (user_id, account_limit_cents, month, year, income_cents)
		VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.AccountLimit.Cents, b.Month, b.Year, b.Income.Cents)
	if err != nil {
		return 0, fmt.Errorf("insert budget: %w", err)
	}
	budgetID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("budget insert id: %w", err)
	}

	for _, p := range plan {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO planned_expenses (budget_id, category, amount_cents)
			VALUES (?, ?, ?)`,
			budgetID, p.Category, p.Amount.Cents); err != nil {
			return 0, fmt.Errorf("insert planned expense %q: %w", p.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget created",
		"budget_id", budgetID,
		"user_id", b.UserID,
		"month", b.Month,
		"year", b.Year,
		"planned_categories", len(plan))
	return budgetID, nil
}

const budgetColumns = `id, user_id, account_limit_cents, month, year, income_cents, total_transactions_cents`

func scanBudget(row *sql.Row) (*core.Budget, error) {
	var b core.Budget
	err := row.Scan(&b.ID, &b.UserID, &b.AccountLimit.Cents, &b.Month, &b.Year,
		&b.Income.Cents, &b.TotalTransactions.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// LatestBudget returns the user's budget with the greatest (year, month),
// id as tie-break, or nil when the user has none.
func (r *Repository) LatestBudget(ctx context.Context, userID int64) (*core.Budget, error) {
	b, err := scanBudget(r.db.QueryRowContext(ctx, `
		SELECT `+budgetColumns+` FROM budgets
		WHERE user_id = ?
		ORDER BY year DESC, month DESC, id DESC
		LIMIT 1`, userID))
	if err != nil {
		return nil, fmt.Errorf("latest budget: %w", err)
	}
	return b, nil
}

// BudgetForUser returns the budget only when it belongs to the user.
func (r *Repository) BudgetForUser(ctx context.Context, budgetID, userID int64) (*core.Budget, error) {
	b, err := scanBudget(r.db.QueryRowContext(ctx, `
		SELECT `+budgetColumns+` FROM budgets
		WHERE id = ? AND user_id = ?`, budgetID, userID))
	if err != nil {
		return nil, fmt.Errorf("budget for user: %w", err)
	}
	return b, nil
}

// -- planned expenses --

// AddPlannedExpense admits a new category ceiling when the planned total
// stays within the account limit, checking and inserting in one transaction.
func (r *Repository) AddPlannedExpense(ctx context.Context, budgetID int64, p core.PlannedExpense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add planned expense: %w", err)
	}
	defer tx.Rollback()

	var limit int64
	err = tx.QueryRowContext(ctx,
		`SELECT account_limit_cents FROM budgets WHERE id = ?`, budgetID).Scan(&limit)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBudgetNotFound
	}
	if err != nil {
		return fmt.Errorf("budget limit: %w", err)
	}

	var plannedTotal int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM planned_expenses WHERE budget_id = ?`,
		budgetID).Scan(&plannedTotal)
	if err != nil {
		return fmt.Errorf("planned total: %w", err)
	}

	if err := core.CheckPlannedExpense(core.Money{Cents: limit}, core.Money{Cents: plannedTotal}, p.Amount); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO planned_expenses (budget_id, category, amount_cents)
		VALUES (?, ?, ?)`,
		budgetID, p.Category, p.Amount.Cents); err != nil {
		return fmt.Errorf("insert planned expense: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit planned expense: %w", err)
	}

	slog.InfoContext(ctx, "Planned expense added",
		"budget_id", budgetID,
		"category", p.Category,
		"amount_cents", p.Amount.Cents)
	return nil
}

func (r *Repository) PlannedByBudget(ctx context.Context, budgetID int64) ([]core.PlannedExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, budget_id, category, amount_cents
		FROM planned_expenses WHERE budget_id = ?
		ORDER BY id`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("planned by budget: %w", err)
	}
	defer rows.Close()

	var planned []core.PlannedExpense
	for rows.Next() {
		var p core.PlannedExpense
		if err := rows.Scan(&p.ID, &p.BudgetID, &p.Category, &p.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan planned expense: %w", err)
		}
		planned = append(planned, p)
	}
	return planned, rows.Err()
}

func (r *Repository) DistinctCategories(ctx context.Context, budgetID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT category FROM planned_expenses
		WHERE budget_id = ? ORDER BY category`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *Repository) categorySums(ctx context.Context, table string, budgetID int64) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount_cents) FROM `+table+`
		WHERE budget_id = ? GROUP BY category ORDER BY category`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("category sums from %s: %w", table, err)
	}
	defer rows.Close()

	var sums []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Category, &ca.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		sums = append(sums, ca)
	}
	return sums, rows.Err()
}

// CategoryPlannedSums sums planned ceilings per category (dashboard view).
func (r *Repository) CategoryPlannedSums(ctx context.Context, budgetID int64) ([]core.CategoryAmount, error) {
	return r.categorySums(ctx, "planned_expenses", budgetID)
}

// CategorySpentSums sums actual transactions per category (bar chart).
func (r *Repository) CategorySpentSums(ctx context.Context, budgetID int64) ([]core.CategoryAmount, error) {
	return r.categorySums(ctx, "transactions", budgetID)
}

// -- transactions --

// AddTransaction runs the admission checks, inserts the transaction, and
// refreshes the budget's cached total, all inside a single transaction so
// the cache can never drift from the rows it summarizes.
func (r *Repository) AddTransaction(ctx context.Context, t core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add transaction: %w", err)
	}
	defer tx.Rollback()

	var limit int64
	err = tx.QueryRowContext(ctx,
		`SELECT account_limit_cents FROM budgets WHERE id = ?`, t.BudgetID).Scan(&limit)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBudgetNotFound
	}
	if err != nil {
		return fmt.Errorf("budget limit: %w", err)
	}

	var overallTotal int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE budget_id = ?`,
		t.BudgetID).Scan(&overallTotal)
	if err != nil {
		return fmt.Errorf("overall total: %w", err)
	}

	var ceiling *core.Money
	var ceilingCents int64
	err = tx.QueryRowContext(ctx, `
		SELECT amount_cents FROM planned_expenses
		WHERE budget_id = ? AND category = ? LIMIT 1`,
		t.BudgetID, t.Category).Scan(&ceilingCents)
	if err == nil {
		ceiling = &core.Money{Cents: ceilingCents}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("category ceiling: %w", err)
	}

	var categoryTotal int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE budget_id = ? AND category = ?`,
		t.BudgetID, t.Category).Scan(&categoryTotal)
	if err != nil {
		return fmt.Errorf("category total: %w", err)
	}

	if err := core.CheckTransaction(
		core.Money{Cents: limit},
		core.Money{Cents: overallTotal},
		ceiling,
		core.Money{Cents: categoryTotal},
		t.Amount,
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (budget_id, category, amount_cents, tx_date, description)
		VALUES (?, ?, ?, ?, ?)`,
		t.BudgetID, t.Category, t.Amount.Cents, t.Date.Format(dateLayout), t.Description); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE budgets SET total_transactions_cents = (
			SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE budget_id = ?
		) WHERE id = ?`,
		t.BudgetID, t.BudgetID); err != nil {
		return fmt.Errorf("refresh cached total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"budget_id", t.BudgetID,
		"category", t.Category,
		"amount_cents", t.Amount.Cents)
	return nil
}

func (r *Repository) TransactionsNewestFirst(ctx context.Context, budgetID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, budget_id, category, amount_cents, tx_date, description
		FROM transactions WHERE budget_id = ?
		ORDER BY tx_date DESC, id DESC`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var date string
		if err := rows.Scan(&t.ID, &t.BudgetID, &t.Category, &t.Amount.Cents, &date, &t.Description); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parse transaction date %q: %w", date, err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// -- rewards --

func (r *Repository) RewardExists(ctx context.Context, budgetID, userID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rewards WHERE budget_id = ? AND user_id = ?`,
		budgetID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("reward exists: %w", err)
	}
	return n > 0, nil
}

// GrantReward inserts the reward if none exists yet for (budget, user) and
// reports whether a row was actually inserted. INSERT OR IGNORE against the
// primary key makes concurrent grants collapse to one.
func (r *Repository) GrantReward(ctx context.Context, reward core.Reward) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO rewards (budget_id, user_id, amount_cents)
		VALUES (?, ?, ?)`,
		reward.BudgetID, reward.UserID, reward.Amount.Cents)
	if err != nil {
		return false, fmt.Errorf("grant reward: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("grant reward rows: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Reward granted",
			"budget_id", reward.BudgetID,
			"user_id", reward.UserID,
			"amount_cents", reward.Amount.Cents)
	}
	return n > 0, nil
}

func (r *Repository) TotalRewards(ctx context.Context, userID int64) (core.Money, error) {
	var total core.Money
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM rewards WHERE user_id = ?`,
		userID).Scan(&total.Cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("total rewards: %w", err)
	}
	return total, nil
}

// -- history --

// BudgetSummary is a history row: a budget with its summed transactions.
type BudgetSummary struct {
	ID           int64
	Month        int
	Year         int
	AccountLimit core.Money
	Spent        core.Money
}

// BudgetHistory lists all of a user's budgets with summed transactions,
// newest (year, month) first.
func (r *Repository) BudgetHistory(ctx context.Context, userID int64) ([]BudgetSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.month, b.year, b.account_limit_cents,
		       COALESCE(SUM(t.amount_cents), 0)
		FROM budgets b
		LEFT JOIN transactions t ON t.budget_id = b.id
		WHERE b.user_id = ?
		GROUP BY b.id
		ORDER BY b.year DESC, b.month DESC, b.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("budget history: %w", err)
	}
	defer rows.Close()

	var history []BudgetSummary
	for rows.Next() {
		var s BudgetSummary
		if err := rows.Scan(&s.ID, &s.Month, &s.Year, &s.AccountLimit.Cents, &s.Spent.Cents); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		history = append(history, s)
	}
	return history, rows.Err()
}

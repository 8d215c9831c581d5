package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"smartexpense/internal/auth"
	"smartexpense/internal/core"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	d, err := s.budgets.Dashboard(r.Context(), p.ID, time.Now())
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard load failed", "error", err, "user_id", p.ID)
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "dashboard.html", struct {
		FirstName    string
		Budget       *core.Budget
		Transactions []core.Transaction
		Planned      []core.PlannedExpense
		Categories   []string
		PlannedSums  []core.CategoryAmount
		RewardTotal  core.Money
		Flashes      []flash
	}{
		FirstName:    p.FirstName,
		Budget:       d.Budget,
		Transactions: d.Transactions,
		Planned:      d.Planned,
		Categories:   d.Categories,
		PlannedSums:  d.PlannedSums,
		RewardTotal:  d.RewardTotal,
		Flashes:      s.sessions.flashes(w, r),
	})
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	if r.Method == http.MethodGet {
		now := time.Now()
		s.render(w, r, "create_budget.html", struct {
			Month   int
			Year    int
			Flashes []flash
		}{
			Month:   int(now.Month()),
			Year:    now.Year(),
			Flashes: s.sessions.flashes(w, r),
		})
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		s.sessions.addFlash(w, r, "error", "Invalid form submission")
		http.Redirect(w, r, "/create_budget", http.StatusSeeOther)
		return
	}

	limit, err := core.ParseAmount(r.Form.Get("account_limit"))
	if err != nil {
		s.sessions.addFlash(w, r, "error", "Account limit must be a positive amount")
		http.Redirect(w, r, "/create_budget", http.StatusSeeOther)
		return
	}
	month, err := strconv.Atoi(strings.TrimSpace(r.Form.Get("month")))
	if err != nil {
		s.sessions.addFlash(w, r, "error", "Month must be a number")
		http.Redirect(w, r, "/create_budget", http.StatusSeeOther)
		return
	}
	year, err := strconv.Atoi(strings.TrimSpace(r.Form.Get("year")))
	if err != nil {
		s.sessions.addFlash(w, r, "error", "Year must be a number")
		http.Redirect(w, r, "/create_budget", http.StatusSeeOther)
		return
	}

	var income core.Money
	if v := strings.TrimSpace(r.Form.Get("income")); v != "" {
		if income, err = core.ParseAmount(v); err != nil {
			s.sessions.addFlash(w, r, "error", "Income must be a positive amount")
			http.Redirect(w, r, "/create_budget", http.StatusSeeOther)
			return
		}
	}

	plan, err := parsePlannedRows(r)
	if err != nil {
		s.sessions.addFlash(w, r, "error", err.Error())
		http.Redirect(w, r, "/create_budget", http.StatusSeeOther)
		return
	}

	budget := core.Budget{
		UserID:       p.ID,
		AccountLimit: limit,
		Month:        month,
		Year:         year,
		Income:       income,
	}
	if _, err := s.budgets.CreateBudget(r.Context(), budget, plan); err != nil {
		slog.WarnContext(r.Context(), "Budget creation rejected", "error", err, "user_id", p.ID)
		s.sessions.addFlash(w, r, "error", budgetErrorMessage(err))
		http.Redirect(w, r, "/create_budget", http.StatusSeeOther)
		return
	}

	slog.InfoContext(r.Context(), "Budget created",
		"user_id", p.ID, "month", month, "year", year, "limit_cents", limit.Cents)
	s.sessions.addFlash(w, r, "success", "Budget created")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// parsePlannedRows reads the numbered Category{i}/expense_amount_{i} pairs
// from the create-budget form. A row with an empty category is skipped; a
// bad amount aborts the whole submission naming the offending category.
func parsePlannedRows(r *http.Request) ([]core.PlannedExpense, error) {
	total, err := strconv.Atoi(strings.TrimSpace(r.Form.Get("total_expenses")))
	if err != nil || total < 0 {
		total = 0
	}

	var plan []core.PlannedExpense
	for i := 1; i <= total; i++ {
		category := sanitizeInput(r.Form.Get("Category" + strconv.Itoa(i)))
		if category == "" {
			continue
		}
		amount, err := core.ParseAmount(r.Form.Get("expense_amount_" + strconv.Itoa(i)))
		if err != nil {
			return nil, fmt.Errorf("invalid amount for category %q", category)
		}
		plan = append(plan, core.PlannedExpense{Category: category, Amount: amount})
	}
	return plan, nil
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.sessions.addFlash(w, r, "error", "Invalid form submission")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	budgetID, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("budget_id")), 10, 64)
	if err != nil {
		s.sessions.addFlash(w, r, "error", "Unknown budget")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	category := sanitizeInput(r.Form.Get("category"))
	if category == "Other" {
		category = sanitizeInput(r.Form.Get("other_category"))
	}
	amount, err := core.ParseAmount(r.Form.Get("amount"))
	if err != nil {
		s.sessions.addFlash(w, r, "error", "Amount must be a positive number")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	expense := core.PlannedExpense{BudgetID: budgetID, Category: category, Amount: amount}
	if err := s.budgets.AddPlannedExpense(r.Context(), budgetID, expense); err != nil {
		slog.WarnContext(r.Context(), "Planned expense rejected",
			"error", err, "user_id", p.ID, "budget_id", budgetID, "category", category)
		s.sessions.addFlash(w, r, "warning", budgetErrorMessage(err))
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	s.sessions.addFlash(w, r, "success",
		fmt.Sprintf("Planned expense for %s added", core.Capitalize(category)))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.sessions.addFlash(w, r, "error", "Invalid form submission")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	budgetID, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("budget_id")), 10, 64)
	if err != nil {
		s.sessions.addFlash(w, r, "error", "Unknown budget")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	amount, err := core.ParseAmount(r.Form.Get("amount"))
	if err != nil {
		s.sessions.addFlash(w, r, "error", "Amount must be a positive number")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	date, err := parseDate(r.Form.Get("date"), time.Now())
	if err != nil {
		s.sessions.addFlash(w, r, "error", "Date must be in YYYY-MM-DD format")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	t := core.Transaction{
		BudgetID:    budgetID,
		Category:    sanitizeInput(r.Form.Get("category")),
		Amount:      amount,
		Date:        date,
		Description: sanitizeInput(r.Form.Get("description")),
	}
	if err := s.budgets.AddTransaction(r.Context(), p.ID, t); err != nil {
		slog.WarnContext(r.Context(), "Transaction rejected",
			"error", err, "user_id", p.ID, "budget_id", budgetID,
			"category", t.Category, "amount_cents", amount.Cents)
		s.sessions.addFlash(w, r, "warning", transactionErrorMessage(err, t.Category))
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	slog.InfoContext(r.Context(), "Transaction recorded",
		"user_id", p.ID, "budget_id", budgetID, "category", t.Category, "amount_cents", amount.Cents)
	s.sessions.addFlash(w, r, "success", "Transaction recorded")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func budgetErrorMessage(err error) string {
	switch {
	case isOneOf(err, core.ErrAccountLimitReached):
		return "Planned expenses would exceed your account limit"
	case isOneOf(err, core.ErrInvalidAmount, core.ErrInvalidMonth, core.ErrInvalidYear, core.ErrEmptyCategory):
		return capitalizeSentence(err.Error())
	default:
		return "Something went wrong. Please try again."
	}
}

func transactionErrorMessage(err error, category string) string {
	switch {
	case isOneOf(err, core.ErrAccountLimitReached):
		return "This transaction would exceed your account limit"
	case isOneOf(err, core.ErrNoPlannedCategory):
		return fmt.Sprintf("No planned expense defined for category %s", core.Capitalize(category))
	case isOneOf(err, core.ErrCategoryLimitReached):
		return fmt.Sprintf("This transaction would exceed the limit for %s", core.Capitalize(category))
	default:
		return "Something went wrong. Please try again."
	}
}

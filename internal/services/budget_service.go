// Package services orchestrates storage and event publishing for the
// budgeting operations behind the HTTP handlers.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"smartexpense/internal/amqp"
	"smartexpense/internal/core"
	"smartexpense/internal/storage"
)

// BudgetService wires the repository to the event queue. A nil AMQP client
// disables publishing; the database remains the source of truth and a
// publish failure never fails the request.
type BudgetService struct {
	storage    *storage.Repository
	amqpClient *amqp.Client
}

func NewBudgetService(storage *storage.Repository, amqpClient *amqp.Client) *BudgetService {
	return &BudgetService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// Dashboard is everything the dashboard template renders for one user.
type Dashboard struct {
	Budget       *core.Budget
	Transactions []core.Transaction
	Planned      []core.PlannedExpense
	Categories   []string
	PlannedSums  []core.CategoryAmount
	RewardTotal  core.Money
}

// BudgetDetail feeds the per-budget chart view: planned ceilings for the
// pie breakdown and per-category spend for the bars.
type BudgetDetail struct {
	Budget    *core.Budget
	Planned   []core.PlannedExpense
	SpentSums []core.CategoryAmount
}

// CreateBudget inserts the budget and its planned rows all-or-nothing.
func (s *BudgetService) CreateBudget(ctx context.Context, b core.Budget, plan []core.PlannedExpense) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	for _, p := range plan {
		if err := p.Validate(); err != nil {
			return 0, fmt.Errorf("planned expense %q: %w", p.Category, err)
		}
	}
	return s.storage.CreateBudgetWithPlan(ctx, b, plan)
}

// AddPlannedExpense admits a new category ceiling against the account limit.
func (s *BudgetService) AddPlannedExpense(ctx context.Context, budgetID int64, p core.PlannedExpense) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.storage.AddPlannedExpense(ctx, budgetID, p)
}

// AddTransaction records a spend event after the ordered admission checks
// and publishes a transaction.recorded event on success.
func (s *BudgetService) AddTransaction(ctx context.Context, userID int64, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.storage.AddTransaction(ctx, t); err != nil {
		return err
	}

	s.publish(ctx, amqp.NewTransactionRecorded(userID, t.BudgetID, t.Amount.Cents, t.Category))
	return nil
}

// Dashboard loads the latest budget view and, as a side effect, accrues the
// reward for a budget period that has closed. The rewards primary key makes
// the accrual idempotent no matter how often the dashboard is viewed.
func (s *BudgetService) Dashboard(ctx context.Context, userID int64, now time.Time) (Dashboard, error) {
	var d Dashboard

	budget, err := s.storage.LatestBudget(ctx, userID)
	if err != nil {
		return d, fmt.Errorf("latest budget: %w", err)
	}
	d.Budget = budget

	if budget != nil {
		if d.Transactions, err = s.storage.TransactionsNewestFirst(ctx, budget.ID); err != nil {
			return d, fmt.Errorf("transactions: %w", err)
		}

		var total core.Money
		for _, t := range d.Transactions {
			total.Cents += t.Amount.Cents
		}
		budget.TotalTransactions = total

		s.accrueReward(ctx, userID, budget, total, now)

		if d.Planned, err = s.storage.PlannedByBudget(ctx, budget.ID); err != nil {
			return d, fmt.Errorf("planned expenses: %w", err)
		}

		raw, err := s.storage.DistinctCategories(ctx, budget.ID)
		if err != nil {
			return d, fmt.Errorf("categories: %w", err)
		}
		for _, c := range raw {
			d.Categories = append(d.Categories, core.Capitalize(c))
		}

		if d.PlannedSums, err = s.storage.CategoryPlannedSums(ctx, budget.ID); err != nil {
			return d, fmt.Errorf("planned sums: %w", err)
		}
	}

	if d.RewardTotal, err = s.storage.TotalRewards(ctx, userID); err != nil {
		return d, fmt.Errorf("reward total: %w", err)
	}

	return d, nil
}

// accrueReward grants the cashback for a strictly-past budget period.
// Failures are logged and swallowed: the dashboard must render regardless.
func (s *BudgetService) accrueReward(ctx context.Context, userID int64, budget *core.Budget, total core.Money, now time.Time) {
	if !core.IsPast(budget.Year, budget.Month, now) {
		return
	}

	exists, err := s.storage.RewardExists(ctx, budget.ID, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Reward existence check failed",
			"error", err, "budget_id", budget.ID, "user_id", userID)
		return
	}
	if exists {
		return
	}

	reward := core.Reward{
		BudgetID: budget.ID,
		UserID:   userID,
		Amount:   core.RewardFor(budget.AccountLimit, total),
	}
	inserted, err := s.storage.GrantReward(ctx, reward)
	if err != nil {
		slog.ErrorContext(ctx, "Reward grant failed",
			"error", err, "budget_id", budget.ID, "user_id", userID)
		return
	}
	if inserted {
		s.publish(ctx, amqp.NewRewardGranted(userID, budget.ID, reward.Amount.Cents))
	}
}

// History lists the user's budgets with summed spend, newest period first.
func (s *BudgetService) History(ctx context.Context, userID int64) ([]storage.BudgetSummary, error) {
	return s.storage.BudgetHistory(ctx, userID)
}

// BudgetDetail loads the chart data for one budget, scoped to its owner.
func (s *BudgetService) BudgetDetail(ctx context.Context, userID, budgetID int64) (BudgetDetail, error) {
	var d BudgetDetail

	budget, err := s.storage.BudgetForUser(ctx, budgetID, userID)
	if err != nil {
		return d, fmt.Errorf("budget: %w", err)
	}
	if budget == nil {
		return d, storage.ErrBudgetNotFound
	}
	d.Budget = budget

	if d.Planned, err = s.storage.PlannedByBudget(ctx, budgetID); err != nil {
		return d, fmt.Errorf("planned expenses: %w", err)
	}
	if d.SpentSums, err = s.storage.CategorySpentSums(ctx, budgetID); err != nil {
		return d, fmt.Errorf("spent sums: %w", err)
	}
	return d, nil
}

func (s *BudgetService) publish(ctx context.Context, ev *amqp.BudgetEvent) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishBudgetEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget event",
			"error", err, "event_kind", ev.Kind, "budget_id", ev.BudgetID)
	}
}

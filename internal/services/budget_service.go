package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finbook/internal/core"
)

const (
	AlertNone     AlertLevel = ""
	AlertWarning  AlertLevel = "warning"
	AlertDanger   AlertLevel = "danger"
	AlertExceeded AlertLevel = "exceeded"
)

// AlertLevel classifies budget utilization. Only warning and above surface as
// alerts.
type AlertLevel string

// AlertThresholds come from configuration, not per-budget state: changing them
// changes classification on the very next evaluation.
type AlertThresholds struct {
	Warning float64 // percent, default 80
	Danger  float64 // percent, default 90
}

func DefaultThresholds() AlertThresholds {
	return AlertThresholds{Warning: 80, Danger: 90}
}

// Classify maps a utilization percentage to an alert level.
func (t AlertThresholds) Classify(percentage float64) AlertLevel {
	switch {
	case percentage >= 100:
		return AlertExceeded
	case percentage >= t.Danger:
		return AlertDanger
	case percentage >= t.Warning:
		return AlertWarning
	default:
		return AlertNone
	}
}

// BudgetAlert is one surfaced over-threshold budget.
type BudgetAlert struct {
	BudgetID     int64
	CategoryID   int64
	CategoryName string
	BudgetCents  int64
	SpentCents   int64
	Percentage   float64
	Level        AlertLevel
}

// BudgetStore is the persistence surface of the budget service.
type BudgetStore interface {
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	ListBudgetsByCategory(ctx context.Context, categoryID int64) ([]core.Budget, error)
	ListActiveBudgets(ctx context.Context, ref time.Time) ([]core.Budget, error)
	DeleteBudget(ctx context.Context, id int64) error
	SumExpensesByCategory(ctx context.Context, categoryID int64, from, to time.Time) (int64, error)
}

// BudgetService owns budget CRUD invariants and the stateless alert
// evaluation.
type BudgetService struct {
	store      BudgetStore
	clock      Clock
	thresholds AlertThresholds
}

func NewBudgetService(store BudgetStore, clock Clock, thresholds AlertThresholds) *BudgetService {
	return &BudgetService{store: store, clock: clock, thresholds: thresholds}
}

// CreateBudget enforces the overlap invariant: no two budgets for the same
// category may have intersecting [startDate, endDate) windows.
func (s *BudgetService) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.StartDate = core.DayOf(b.StartDate)
	if !b.EndDate.IsZero() {
		b.EndDate = core.DayOf(b.EndDate)
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}

	category, err := s.store.GetCategory(ctx, b.CategoryID)
	if err != nil {
		return core.Budget{}, err
	}
	if category.Type != core.CategoryExpense {
		return core.Budget{}, fmt.Errorf("%w: category %q is not an expense category", core.ErrInvalidArgument, category.Name)
	}

	existing, err := s.store.ListBudgetsByCategory(ctx, b.CategoryID)
	if err != nil {
		return core.Budget{}, err
	}
	for _, other := range existing {
		if b.Overlaps(other) {
			return core.Budget{}, fmt.Errorf("budget window overlaps budget %d: %w", other.ID, core.ErrAlreadyExists)
		}
	}

	created, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}
	slog.InfoContext(ctx, "Budget created",
		"budget_id", created.ID,
		"category_id", created.CategoryID,
		"amount_cents", created.Amount.Cents,
		"period", created.Period)
	return created, nil
}

func (s *BudgetService) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx)
}

func (s *BudgetService) DeleteBudget(ctx context.Context, id int64) error {
	return s.store.DeleteBudget(ctx, id)
}

// EvaluateAlerts computes utilization for every budget active at the
// reference date and returns those at warning level or above. Evaluation is
// stateless; nothing is persisted.
func (s *BudgetService) EvaluateAlerts(ctx context.Context, ref time.Time) ([]BudgetAlert, error) {
	today := core.DayOf(ref)
	budgets, err := s.store.ListActiveBudgets(ctx, today)
	if err != nil {
		return nil, err
	}

	var alerts []BudgetAlert
	for _, budget := range budgets {
		alert, err := s.evaluate(ctx, budget, today)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to evaluate budget",
				"budget_id", budget.ID, "error", err)
			continue
		}
		if alert.Level == AlertNone {
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func (s *BudgetService) evaluate(ctx context.Context, budget core.Budget, today time.Time) (BudgetAlert, error) {
	from, to := budget.PeriodWindow(today)
	spent, err := s.store.SumExpensesByCategory(ctx, budget.CategoryID, from, to)
	if err != nil {
		return BudgetAlert{}, err
	}

	percentage := float64(spent) / float64(budget.Amount.Cents) * 100

	alert := BudgetAlert{
		BudgetID:    budget.ID,
		CategoryID:  budget.CategoryID,
		BudgetCents: budget.Amount.Cents,
		SpentCents:  spent,
		Percentage:  percentage,
		Level:       s.thresholds.Classify(percentage),
	}
	if category, err := s.store.GetCategory(ctx, budget.CategoryID); err == nil {
		alert.CategoryName = category.Name
	}
	return alert, nil
}

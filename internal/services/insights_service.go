package services

import (
	"context"
	"fmt"
	"time"

	"finbook/internal/core"
)

// trendStabilityBand is the month-over-month change (percent) below which a
// category counts as stable rather than rising or falling.
const trendStabilityBand = 5.0

// CategoryTrend compares one category's spend against the previous month.
type CategoryTrend struct {
	CategoryID    int64
	Name          string
	CurrentCents  int64
	PreviousCents int64
	ChangePercent float64
	Direction     string // "up", "down", "stable"
}

// Insights is the on-demand analytics read model. It derives everything from
// historical aggregates and holds no state of its own.
type Insights struct {
	Year            int
	Month           int
	TotalCents      int64
	TopCategories   []core.CategoryAmount
	Trends          []CategoryTrend
	DailyAverage    int64 // cents per day so far this month
	MonthProjection int64 // projected month-end total in cents
	Recommendations []string
}

// InsightsStore is the aggregate read surface of the insights service.
type InsightsStore interface {
	MonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error)
}

type InsightsService struct {
	store   InsightsStore
	budgets *BudgetService
	clock   Clock
}

func NewInsightsService(store InsightsStore, budgets *BudgetService, clock Clock) *InsightsService {
	return &InsightsService{store: store, budgets: budgets, clock: clock}
}

// Compute builds the insights for the month containing now.
func (s *InsightsService) Compute(ctx context.Context, now time.Time) (Insights, error) {
	today := core.DayOf(now)
	year, month := today.Year(), int(today.Month())

	current, err := s.store.MonthOverview(ctx, year, month)
	if err != nil {
		return Insights{}, err
	}
	prevDate := core.NewDate(year, month, 1).AddDate(0, -1, 0)
	previous, err := s.store.MonthOverview(ctx, prevDate.Year(), int(prevDate.Month()))
	if err != nil {
		return Insights{}, err
	}

	insights := Insights{
		Year:          year,
		Month:         month,
		TotalCents:    current.Total.Cents,
		TopCategories: topCategories(current.ByCategory, 5),
		Trends:        categoryTrends(current.ByCategory, previous.ByCategory),
	}

	elapsed := int64(today.Day())
	daysInMonth := int64(core.NewDate(year, month, 1).AddDate(0, 1, -1).Day())
	insights.DailyAverage = current.Total.Cents / elapsed
	insights.MonthProjection = insights.DailyAverage * daysInMonth

	insights.Recommendations = s.recommendations(ctx, today, insights.Trends)
	return insights, nil
}

func topCategories(byCategory []core.CategoryAmount, limit int) []core.CategoryAmount {
	if len(byCategory) <= limit {
		return byCategory
	}
	return byCategory[:limit] // overview rows arrive ordered by total descending
}

func categoryTrends(current, previous []core.CategoryAmount) []CategoryTrend {
	prevByID := make(map[int64]core.CategoryAmount, len(previous))
	for _, ca := range previous {
		prevByID[ca.CategoryID] = ca
	}

	var trends []CategoryTrend
	for _, ca := range current {
		prev := prevByID[ca.CategoryID]
		trend := CategoryTrend{
			CategoryID:    ca.CategoryID,
			Name:          ca.Name,
			CurrentCents:  ca.Amount.Cents,
			PreviousCents: prev.Amount.Cents,
			Direction:     "stable",
		}
		switch {
		case prev.Amount.Cents == 0:
			trend.ChangePercent = 100
			trend.Direction = "up"
		default:
			change := float64(ca.Amount.Cents-prev.Amount.Cents) / float64(prev.Amount.Cents) * 100
			trend.ChangePercent = change
			if change > trendStabilityBand {
				trend.Direction = "up"
			} else if change < -trendStabilityBand {
				trend.Direction = "down"
			}
		}
		trends = append(trends, trend)
	}
	return trends
}

func (s *InsightsService) recommendations(ctx context.Context, today time.Time, trends []CategoryTrend) []string {
	var recs []string

	alerts, err := s.budgets.EvaluateAlerts(ctx, today)
	if err == nil {
		for _, alert := range alerts {
			switch alert.Level {
			case AlertExceeded:
				recs = append(recs, fmt.Sprintf("Budget for %s is exhausted (%.0f%% used); pause discretionary spending there.", alert.CategoryName, alert.Percentage))
			case AlertDanger, AlertWarning:
				recs = append(recs, fmt.Sprintf("Budget for %s is at %.0f%%; review upcoming purchases.", alert.CategoryName, alert.Percentage))
			}
		}
	}

	for _, trend := range trends {
		if trend.Direction == "up" && trend.PreviousCents > 0 && trend.ChangePercent >= 25 {
			recs = append(recs, fmt.Sprintf("Spending on %s rose %.0f%% versus last month.", trend.Name, trend.ChangePercent))
		}
	}
	return recs
}

package services

import (
	"context"
	"fmt"
	"time"

	"finbook/internal/core"
)

// TransactionStore is the persistence surface of the transaction service.
type TransactionStore interface {
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error)
	MonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error)
}

type TransactionService struct {
	store TransactionStore
	clock Clock
}

func NewTransactionService(store TransactionStore, clock Clock) *TransactionService {
	return &TransactionService{store: store, clock: clock}
}

type CreateTransactionParams struct {
	CategoryID       int64
	AmountCents      int64
	Description      string
	Date             time.Time
	IsRecurring      bool
	RecurringEvery   core.Frequency
	RecurringEndDate time.Time
}

func (s *TransactionService) Create(ctx context.Context, params CreateTransactionParams) (core.Transaction, error) {
	tx := core.Transaction{
		CategoryID:       params.CategoryID,
		Amount:           core.Money{Cents: params.AmountCents},
		Description:      params.Description,
		Date:             core.DayOf(params.Date),
		IsRecurring:      params.IsRecurring,
		RecurringEvery:   params.RecurringEvery,
		RecurringEndDate: params.RecurringEndDate,
	}
	if tx.Date.IsZero() || params.Date.IsZero() {
		tx.Date = core.DayOf(s.clock.Now())
	}
	if !params.RecurringEndDate.IsZero() {
		tx.RecurringEndDate = core.DayOf(params.RecurringEndDate)
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}
	if _, err := s.store.GetCategory(ctx, tx.CategoryID); err != nil {
		return core.Transaction{}, fmt.Errorf("lookup category %d: %w", tx.CategoryID, err)
	}
	return s.store.CreateTransaction(ctx, tx)
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *TransactionService) ListByMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d out of range", core.ErrInvalidArgument, month)
	}
	return s.store.ListTransactionsByMonth(ctx, year, month)
}

func (s *TransactionService) Overview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	if month < 1 || month > 12 {
		return core.MonthOverview{}, fmt.Errorf("%w: month %d out of range", core.ErrInvalidArgument, month)
	}
	return s.store.MonthOverview(ctx, year, month)
}

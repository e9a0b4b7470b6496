// Package services implements the business logic on top of the storage layer:
// the bill lifecycle, the recurring transaction projector, the auto-payment
// matcher, budget alert evaluation and derived insights.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finbook/internal/core"
)

// BillStore is the persistence surface the bill lifecycle needs.
type BillStore interface {
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	CreateBill(ctx context.Context, b core.Bill) (core.Bill, error)
	GetBill(ctx context.Context, id int64) (core.Bill, error)
	ListBills(ctx context.Context) ([]core.Bill, error)
	DeleteBill(ctx context.Context, id int64) error
	MarkBillPaid(ctx context.Context, billID int64, p core.BillPayment, lastPaid, nextDue time.Time) (core.BillPayment, error)
	SweepOverdue(ctx context.Context, ref time.Time) (int64, error)
	ListBillsForReminder(ctx context.Context) ([]core.Bill, error)
}

// BillService owns bill status transitions: pending to paid on payment,
// pending to overdue in the daily sweep, and the next-due-date advance.
type BillService struct {
	store BillStore
	clock Clock
}

func NewBillService(store BillStore, clock Clock) *BillService {
	return &BillService{store: store, clock: clock}
}

// CreateBillParams carries the already type-checked create request.
type CreateBillParams struct {
	Name           string
	Amount         core.Money
	CategoryID     int64
	DueDate        time.Time
	Frequency      core.Frequency
	AutoPayEnabled bool
	ReminderDays   int
}

// CreateBill validates the request, resolves the category (which must be an
// expense category) and computes the initial next due date by catching the
// anchor up to today.
func (s *BillService) CreateBill(ctx context.Context, params CreateBillParams) (core.Bill, error) {
	bill := core.Bill{
		Name:           params.Name,
		Amount:         params.Amount,
		CategoryID:     params.CategoryID,
		DueDate:        core.DayOf(params.DueDate),
		Frequency:      params.Frequency,
		Status:         core.BillPending,
		AutoPayEnabled: params.AutoPayEnabled,
		ReminderDays:   params.ReminderDays,
	}
	if err := bill.Validate(); err != nil {
		return core.Bill{}, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}

	category, err := s.store.GetCategory(ctx, params.CategoryID)
	if err != nil {
		return core.Bill{}, err
	}
	if category.Type != core.CategoryExpense {
		return core.Bill{}, fmt.Errorf("%w: category %q is not an expense category", core.ErrInvalidArgument, category.Name)
	}

	today := core.DayOf(s.clock.Now())
	bill.NextDueDate = core.NextDueDate(bill.DueDate, bill.Frequency, today)

	created, err := s.store.CreateBill(ctx, bill)
	if err != nil {
		return core.Bill{}, err
	}

	slog.InfoContext(ctx, "Bill created",
		"bill_id", created.ID,
		"name", created.Name,
		"amount_cents", created.Amount.Cents,
		"frequency", created.Frequency,
		"next_due_date", created.NextDueDate.Format("2006-01-02"))
	return created, nil
}

// MarkPaidParams carries the optional overrides of a manual payment.
type MarkPaidParams struct {
	AmountCents   int64 // zero means the bill's configured amount
	PaidDate      time.Time
	TransactionID int64
	Notes         string
}

// PaymentResult is returned by MarkBillPaid.
type PaymentResult struct {
	Payment     core.BillPayment
	NextDueDate time.Time
}

// MarkBillPaid records a payment and advances the bill by exactly one period
// of its own frequency, counted from the current next due date. The payment
// insert and the bill update happen in one storage transaction. Calling it
// twice records two payments and advances twice; manual payments carry no
// deduplication.
func (s *BillService) MarkBillPaid(ctx context.Context, billID int64, params MarkPaidParams) (PaymentResult, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return PaymentResult{}, err
	}

	amount := core.Money{Cents: params.AmountCents}
	if amount.Cents == 0 {
		amount = bill.Amount
	}
	if err := amount.Validate(); err != nil {
		return PaymentResult{}, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}

	paidDate := core.DayOf(params.PaidDate)
	if params.PaidDate.IsZero() {
		paidDate = core.DayOf(s.clock.Now())
	}

	if params.TransactionID != 0 {
		if _, err := s.store.GetTransaction(ctx, params.TransactionID); err != nil {
			return PaymentResult{}, err
		}
	}

	nextDue := core.AddPeriod(bill.NextDueDate, bill.Frequency)
	payment := core.BillPayment{
		BillID:        bill.ID,
		TransactionID: params.TransactionID,
		Amount:        amount,
		PaidDate:      paidDate,
		Notes:         params.Notes,
	}

	payment, err = s.store.MarkBillPaid(ctx, bill.ID, payment, paidDate, nextDue)
	if err != nil {
		return PaymentResult{}, err
	}
	return PaymentResult{Payment: payment, NextDueDate: nextDue}, nil
}

// SweepOverdue moves pending bills past their due date to overdue. Idempotent:
// a second run for the same reference date changes nothing.
func (s *BillService) SweepOverdue(ctx context.Context, ref time.Time) (int64, error) {
	n, err := s.store.SweepOverdue(ctx, core.DayOf(ref))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.InfoContext(ctx, "Bills marked overdue", "count", n, "reference_date", core.DayOf(ref).Format("2006-01-02"))
	}
	return n, nil
}

// ComputeReminders returns a reminder for every pending or overdue bill whose
// next due date falls within its reminder lookahead, and for every bill
// already past due.
func (s *BillService) ComputeReminders(ctx context.Context, ref time.Time) ([]core.BillReminder, error) {
	bills, err := s.store.ListBillsForReminder(ctx)
	if err != nil {
		return nil, err
	}

	today := core.DayOf(ref)
	var reminders []core.BillReminder
	for _, bill := range bills {
		daysUntil := int(bill.NextDueDate.Sub(today) / (24 * time.Hour))
		overdue := daysUntil < 0 || bill.Status == core.BillOverdue
		if !overdue && daysUntil > bill.ReminderDays {
			continue
		}
		reminders = append(reminders, core.BillReminder{
			BillID:       bill.ID,
			Name:         bill.Name,
			Amount:       bill.Amount,
			NextDueDate:  bill.NextDueDate,
			DaysUntilDue: daysUntil,
			IsOverdue:    daysUntil < 0,
		})
	}
	return reminders, nil
}

func (s *BillService) GetBill(ctx context.Context, id int64) (core.Bill, error) {
	return s.store.GetBill(ctx, id)
}

func (s *BillService) ListBills(ctx context.Context) ([]core.Bill, error) {
	return s.store.ListBills(ctx)
}

// DeleteBill removes a bill and, by cascade, its payment history.
func (s *BillService) DeleteBill(ctx context.Context, id int64) error {
	if err := s.store.DeleteBill(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Bill deleted", "bill_id", id)
	return nil
}

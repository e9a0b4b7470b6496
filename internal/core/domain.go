package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const (
	BillPending BillStatus = "pending"
	BillPaid    BillStatus = "paid"
	BillOverdue BillStatus = "overdue"
)

const (
	CategoryExpense CategoryType = "expense"
	CategoryIncome  CategoryType = "income"
)

const (
	BudgetMonthly BudgetPeriod = "monthly"
	BudgetYearly  BudgetPeriod = "yearly"
)

// MaxAmountCents caps every monetary amount at 999,999,999.99.
const MaxAmountCents int64 = 99_999_999_999

// MaxNameLength bounds bill names and transaction descriptions.
const MaxNameLength = 255

// MaxReminderDays bounds the bill reminder lookahead.
const MaxReminderDays = 30

type (
	Frequency    string
	BillStatus   string
	CategoryType string
	BudgetPeriod string

	Money struct {
		Cents int64
	}

	Category struct {
		ID   int64
		Name string
		Type CategoryType
	}

	// Transaction is a ledger row. When IsRecurring is set the row doubles as a
	// template: the projector materializes additional non-recurring rows for
	// later occurrences and never mutates the template itself.
	Transaction struct {
		ID               int64
		Description      string
		Amount           Money
		CategoryID       int64
		Date             time.Time
		IsRecurring      bool
		RecurringEvery   Frequency // empty unless IsRecurring
		RecurringEndDate time.Time // zero means open-ended
		CreatedAt        time.Time
	}

	// Bill is a recurring payment obligation. NextDueDate is always present:
	// derived from DueDate/Frequency at creation, then advanced one period per
	// payment.
	Bill struct {
		ID             int64
		Name           string
		Amount         Money
		CategoryID     int64
		DueDate        time.Time // originally scheduled due date (series anchor)
		Frequency      Frequency
		Status         BillStatus
		AutoPayEnabled bool
		ReminderDays   int
		LastPaidDate   time.Time // zero until first payment
		NextDueDate    time.Time
		CreatedAt      time.Time
	}

	// BillPayment is an immutable payment record. Rows are created by manual
	// payment or auto-detection and removed only by cascade from bill deletion.
	BillPayment struct {
		ID             int64
		BillID         int64
		TransactionID  int64 // zero means no ledger link
		Amount         Money
		PaidDate       time.Time
		IsAutoDetected bool
		Notes          string
	}

	Budget struct {
		ID         int64
		CategoryID int64
		Amount     Money
		Period     BudgetPeriod
		StartDate  time.Time
		EndDate    time.Time // zero means open-ended
	}

	// BillReminder is the read model produced by the reminder computation.
	BillReminder struct {
		BillID       int64
		Name         string
		Amount       Money
		NextDueDate  time.Time
		DaysUntilDue int
		IsOverdue    bool
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrEmptyName        = errors.New("empty name")
)

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (p BudgetPeriod) Valid() bool {
	return p == BudgetMonthly || p == BudgetYearly
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

// NewDate returns midnight UTC for the given calendar day. All schedule
// arithmetic operates on day granularity in UTC.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// DayOf truncates t to midnight UTC of its calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyName
	}
	if len(t.Description) > MaxNameLength {
		return errors.New("description too long (max 255 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if t.IsRecurring {
		if !t.RecurringEvery.Valid() {
			return ErrInvalidFrequency
		}
		if !t.RecurringEndDate.IsZero() && !t.RecurringEndDate.After(t.Date) {
			return errors.New("recurring end date must be after start date")
		}
	}
	return nil
}

func (b Bill) Validate() error {
	if len(strings.TrimSpace(b.Name)) == 0 {
		return ErrEmptyName
	}
	if len(b.Name) > MaxNameLength {
		return errors.New("name too long (max 255 characters)")
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.DueDate.IsZero() {
		return errors.New("due date cannot be zero")
	}
	if !b.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if b.ReminderDays < 0 || b.ReminderDays > MaxReminderDays {
		return errors.New("reminder days out of range (0-30)")
	}
	return nil
}

func (b Budget) Validate() error {
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if !b.Period.Valid() {
		return errors.New("invalid budget period")
	}
	if b.StartDate.IsZero() {
		return errors.New("start date cannot be zero")
	}
	if !b.EndDate.IsZero() && !b.EndDate.After(b.StartDate) {
		return errors.New("end date must be after start date")
	}
	return nil
}

// PeriodWindow returns the inclusive [from, to] day range to aggregate spend
// over when evaluating the budget at ref: the calendar month or year
// containing ref, trimmed to the budget's own [StartDate, EndDate) window.
func (b Budget) PeriodWindow(ref time.Time) (time.Time, time.Time) {
	ref = DayOf(ref)
	var from, to time.Time
	if b.Period == BudgetYearly {
		from = NewDate(ref.Year(), 1, 1)
		to = NewDate(ref.Year(), 12, 31)
	} else {
		from = NewDate(ref.Year(), int(ref.Month()), 1)
		to = from.AddDate(0, 1, -1)
	}
	if b.StartDate.After(from) {
		from = b.StartDate
	}
	if !b.EndDate.IsZero() {
		if last := b.EndDate.AddDate(0, 0, -1); last.Before(to) {
			to = last
		}
	}
	return from, to
}

// Overlaps reports whether two [StartDate, EndDate) windows intersect. A zero
// end date is open-ended and overlaps everything after its start.
func (b Budget) Overlaps(other Budget) bool {
	if !b.EndDate.IsZero() && !b.EndDate.After(other.StartDate) {
		return false
	}
	if !other.EndDate.IsZero() && !other.EndDate.After(b.StartDate) {
		return false
	}
	return true
}

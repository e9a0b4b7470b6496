package services

import (
	"context"
	"log/slog"
	"time"

	"finbook/internal/amqp"
)

// NotificationPublisher is the outbound message sink. *amqp.Client satisfies
// it, including as a nil pointer, which publishes nothing.
type NotificationPublisher interface {
	PublishBillReminder(ctx context.Context, msg *amqp.BillReminderMessage) error
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// Notifier pushes computed reminders and alerts to the message broker. It
// holds no state; every run recomputes from current data.
type Notifier struct {
	bills     *BillService
	budgets   *BudgetService
	publisher NotificationPublisher
}

func NewNotifier(bills *BillService, budgets *BudgetService, publisher NotificationPublisher) *Notifier {
	return &Notifier{bills: bills, budgets: budgets, publisher: publisher}
}

// NotifyBillReminders publishes one message per due reminder. Publish
// failures are logged per message and do not stop the run.
func (n *Notifier) NotifyBillReminders(ctx context.Context, now time.Time) error {
	reminders, err := n.bills.ComputeReminders(ctx, now)
	if err != nil {
		return err
	}

	for _, r := range reminders {
		msg := &amqp.BillReminderMessage{
			BillID:       r.BillID,
			Name:         r.Name,
			AmountCents:  r.Amount.Cents,
			NextDueDate:  r.NextDueDate.Format("2006-01-02"),
			DaysUntilDue: r.DaysUntilDue,
			IsOverdue:    r.IsOverdue,
		}
		if err := n.publisher.PublishBillReminder(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish bill reminder",
				"bill_id", r.BillID, "error", err)
		}
	}
	return nil
}

// NotifyBudgetAlerts publishes one message per budget at warning level or
// above.
func (n *Notifier) NotifyBudgetAlerts(ctx context.Context, now time.Time) error {
	alerts, err := n.budgets.EvaluateAlerts(ctx, now)
	if err != nil {
		return err
	}

	for _, a := range alerts {
		msg := &amqp.BudgetAlertMessage{
			BudgetID:     a.BudgetID,
			CategoryID:   a.CategoryID,
			CategoryName: a.CategoryName,
			BudgetCents:  a.BudgetCents,
			SpentCents:   a.SpentCents,
			Percentage:   a.Percentage,
			Level:        string(a.Level),
		}
		if err := n.publisher.PublishBudgetAlert(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish budget alert",
				"budget_id", a.BudgetID, "error", err)
		}
	}
	return nil
}

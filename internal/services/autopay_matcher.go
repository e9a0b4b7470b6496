package services

import (
	"context"
	"log/slog"
	"time"

	"finbook/internal/core"
)

// autoPayWindowDays is the trailing search window: a bill qualifies when its
// next due date lies within this many days before today, and only ledger rows
// dated inside the same window are considered.
const autoPayWindowDays = 7

// AutoPayStore is the persistence surface of the matcher.
type AutoPayStore interface {
	ListAutoPayCandidates(ctx context.Context, from, to time.Time) ([]core.Bill, error)
	ListUnmatchedTransactions(ctx context.Context, categoryID, amountCents int64, from, to time.Time) ([]core.Transaction, error)
	MarkBillPaid(ctx context.Context, billID int64, p core.BillPayment, lastPaid, nextDue time.Time) (core.BillPayment, error)
}

// AutoPayMatcher pairs pending auto-pay bills with ledger transactions of the
// same category and exact amount. Each run matches at most one transaction per
// bill, and a transaction already linked to a payment is never matched again.
type AutoPayMatcher struct {
	store AutoPayStore
}

func NewAutoPayMatcher(store AutoPayStore) *AutoPayMatcher {
	return &AutoPayMatcher{store: store}
}

// Run scans the trailing window ending at now. On a match it records an
// auto-detected payment linking the transaction and advances the bill by one
// period of the bill's own frequency, all in one storage transaction.
// Failures on one bill are logged and do not stop the run.
func (m *AutoPayMatcher) Run(ctx context.Context, now time.Time) (int, error) {
	today := core.DayOf(now)
	from := today.AddDate(0, 0, -autoPayWindowDays)

	bills, err := m.store.ListAutoPayCandidates(ctx, from, today)
	if err != nil {
		return 0, err
	}

	matched := 0
	for _, bill := range bills {
		candidates, err := m.store.ListUnmatchedTransactions(ctx, bill.CategoryID, bill.Amount.Cents, from, today)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load auto-pay candidates",
				"bill_id", bill.ID, "error", err)
			continue
		}
		if len(candidates) == 0 {
			continue
		}

		best := closestTo(candidates, bill.NextDueDate)
		nextDue := core.AddPeriod(bill.NextDueDate, bill.Frequency)
		payment := core.BillPayment{
			BillID:         bill.ID,
			TransactionID:  best.ID,
			Amount:         bill.Amount,
			PaidDate:       best.Date,
			IsAutoDetected: true,
		}

		if _, err := m.store.MarkBillPaid(ctx, bill.ID, payment, best.Date, nextDue); err != nil {
			slog.ErrorContext(ctx, "Failed to record auto-detected payment",
				"bill_id", bill.ID,
				"transaction_id", best.ID,
				"error", err)
			continue
		}

		matched++
		slog.InfoContext(ctx, "Auto-detected bill payment",
			"bill_id", bill.ID,
			"bill_name", bill.Name,
			"transaction_id", best.ID,
			"paid_date", best.Date.Format("2006-01-02"),
			"next_due_date", nextDue.Format("2006-01-02"))
	}

	if matched > 0 || len(bills) > 0 {
		slog.InfoContext(ctx, "Auto-pay matching complete",
			"bills_checked", len(bills),
			"matched", matched)
	}
	return matched, nil
}

// closestTo picks the transaction dated nearest to target by absolute
// difference. Ties keep the earlier transaction.
func closestTo(txs []core.Transaction, target time.Time) core.Transaction {
	best := txs[0]
	bestDiff := absDuration(best.Date.Sub(target))
	for _, tx := range txs[1:] {
		if diff := absDuration(tx.Date.Sub(target)); diff < bestDiff {
			best = tx
			bestDiff = diff
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

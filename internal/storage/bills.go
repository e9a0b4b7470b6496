package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finbook/internal/core"
)

const billColumns = `id, name, amount_cents, category_id, due_date, frequency,
	status, auto_pay_enabled, reminder_days, last_paid_date, next_due_date, created_at`

func scanBill(row interface{ Scan(...any) error }) (core.Bill, error) {
	var (
		b        core.Bill
		dueDate  string
		lastPaid sql.NullString
		nextDue  string
	)
	err := row.Scan(&b.ID, &b.Name, &b.Amount.Cents, &b.CategoryID, &dueDate, &b.Frequency,
		&b.Status, &b.AutoPayEnabled, &b.ReminderDays, &lastPaid, &nextDue, &b.CreatedAt)
	if err != nil {
		return core.Bill{}, err
	}
	b.DueDate = parseDate(dueDate)
	b.LastPaidDate = dateOrZero(lastPaid)
	b.NextDueDate = parseDate(nextDue)
	return b, nil
}

func (r *SQLiteRepository) CreateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (name, amount_cents, category_id, due_date, frequency,
			status, auto_pay_enabled, reminder_days, next_due_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Name, b.Amount.Cents, b.CategoryID, fmtDate(b.DueDate), b.Frequency,
		b.Status, b.AutoPayEnabled, b.ReminderDays, fmtDate(b.NextDueDate))
	if err != nil {
		return core.Bill{}, fmt.Errorf("create bill: %w", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return core.Bill{}, fmt.Errorf("bill insert id: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) GetBill(ctx context.Context, id int64) (core.Bill, error) {
	b, err := scanBill(r.db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, fmt.Errorf("bill %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBills(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+billColumns+` FROM bills ORDER BY next_due_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return collectBills(rows)
}

// DeleteBill removes a bill; its payment history goes with it via the
// ON DELETE CASCADE constraint.
func (r *SQLiteRepository) DeleteBill(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bill %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// SweepOverdue flips pending bills whose next due date has passed to overdue
// and returns how many rows changed. Running it twice changes nothing more.
func (r *SQLiteRepository) SweepOverdue(ctx context.Context, ref time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bills SET status = 'overdue'
		 WHERE status = 'pending' AND next_due_date < ?`,
		fmtDate(ref))
	if err != nil {
		return 0, fmt.Errorf("sweep overdue bills: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep rows affected: %w", err)
	}
	return n, nil
}

// ListBillsForReminder returns bills that can produce reminders: anything
// pending or overdue.
func (r *SQLiteRepository) ListBillsForReminder(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+billColumns+` FROM bills
		 WHERE status IN ('pending', 'overdue')
		 ORDER BY next_due_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list bills for reminder: %w", err)
	}
	return collectBills(rows)
}

// ListAutoPayCandidates returns pending auto-pay bills with a next due date
// inside [from, to].
func (r *SQLiteRepository) ListAutoPayCandidates(ctx context.Context, from, to time.Time) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+billColumns+` FROM bills
		 WHERE status = 'pending' AND auto_pay_enabled = 1
		   AND next_due_date >= ? AND next_due_date <= ?
		 ORDER BY next_due_date, id`,
		fmtDate(from), fmtDate(to))
	if err != nil {
		return nil, fmt.Errorf("list auto-pay candidates: %w", err)
	}
	return collectBills(rows)
}

// MarkBillPaid atomically records a payment and advances the bill. The payment
// insert and the bill update either both happen or neither does.
func (r *SQLiteRepository) MarkBillPaid(ctx context.Context, billID int64, p core.BillPayment, lastPaid, nextDue time.Time) (core.BillPayment, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO bill_payments (bill_id, transaction_id, amount_cents,
				paid_date, is_auto_detected, notes)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			p.BillID, nullID(p.TransactionID), p.Amount.Cents,
			fmtDate(p.PaidDate), p.IsAutoDetected, p.Notes)
		if err != nil {
			return fmt.Errorf("insert bill payment: %w", err)
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("bill payment insert id: %w", err)
		}

		res, err = tx.ExecContext(ctx,
			`UPDATE bills SET status = 'paid', last_paid_date = ?, next_due_date = ?
			 WHERE id = ?`,
			fmtDate(lastPaid), fmtDate(nextDue), billID)
		if err != nil {
			return fmt.Errorf("update paid bill: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("bill %d: %w", billID, core.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return core.BillPayment{}, err
	}

	slog.InfoContext(ctx, "Bill payment recorded",
		"bill_id", billID,
		"payment_id", p.ID,
		"amount_cents", p.Amount.Cents,
		"auto_detected", p.IsAutoDetected,
		"next_due_date", fmtDate(nextDue))
	return p, nil
}

func (r *SQLiteRepository) ListBillPayments(ctx context.Context, billID int64) ([]core.BillPayment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, bill_id, transaction_id, amount_cents, paid_date, is_auto_detected, notes
		 FROM bill_payments WHERE bill_id = ? ORDER BY paid_date, id`, billID)
	if err != nil {
		return nil, fmt.Errorf("list bill payments: %w", err)
	}
	defer rows.Close()

	var out []core.BillPayment
	for rows.Next() {
		var (
			p        core.BillPayment
			txID     sql.NullInt64
			paidDate string
		)
		if err := rows.Scan(&p.ID, &p.BillID, &txID, &p.Amount.Cents, &paidDate, &p.IsAutoDetected, &p.Notes); err != nil {
			return nil, fmt.Errorf("scan bill payment: %w", err)
		}
		p.TransactionID = txID.Int64
		p.PaidDate = parseDate(paidDate)
		out = append(out, p)
	}
	return out, rows.Err()
}

func collectBills(rows *sql.Rows) ([]core.Bill, error) {
	defer rows.Close()
	var out []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

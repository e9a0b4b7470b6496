package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finbook/internal/core"
)

const transactionColumns = `id, description, amount_cents, category_id, date,
	is_recurring, recurring_frequency, recurring_end_date, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t       core.Transaction
		date    string
		freq    sql.NullString
		endDate sql.NullString
	)
	err := row.Scan(&t.ID, &t.Description, &t.Amount.Cents, &t.CategoryID, &date,
		&t.IsRecurring, &freq, &endDate, &t.CreatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Date = parseDate(date)
	if freq.Valid {
		t.RecurringEvery = core.Frequency(freq.String)
	}
	t.RecurringEndDate = dateOrZero(endDate)
	return t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var freq sql.NullString
	if t.IsRecurring {
		freq = sql.NullString{String: string(t.RecurringEvery), Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (description, amount_cents, category_id, date,
			is_recurring, recurring_frequency, recurring_end_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Description, t.Amount.Cents, t.CategoryID, fmtDate(t.Date),
		t.IsRecurring, freq, nullDate(t.RecurringEndDate))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	from := core.NewDate(year, month, 1)
	to := from.AddDate(0, 1, 0)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE date >= ? AND date < ? ORDER BY date, id`,
		fmtDate(from), fmtDate(to))
	if err != nil {
		return nil, fmt.Errorf("list transactions by month: %w", err)
	}
	return collectTransactions(rows)
}

// ListRecurringTemplates returns active recurring templates: end date unset or
// not before the reference day.
func (r *SQLiteRepository) ListRecurringTemplates(ctx context.Context, ref time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE is_recurring = 1
		   AND (recurring_end_date IS NULL OR recurring_end_date >= ?)
		 ORDER BY id`,
		fmtDate(ref))
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	return collectTransactions(rows)
}

// HasMaterializedTransaction reports whether a non-recurring ledger row with
// the exact same description, category, amount and date already exists. This
// is the projector's duplicate guard.
func (r *SQLiteRepository) HasMaterializedTransaction(ctx context.Context, description string, categoryID, amountCents int64, date time.Time) (bool, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions
		 WHERE is_recurring = 0 AND description = ? AND category_id = ?
		   AND amount_cents = ? AND date = ?`,
		description, categoryID, amountCents, fmtDate(date)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check materialized transaction: %w", err)
	}
	return n > 0, nil
}

// ListUnmatchedTransactions returns ledger rows in the category with the exact
// amount inside [from, to] that are not yet linked to any bill payment.
func (r *SQLiteRepository) ListUnmatchedTransactions(ctx context.Context, categoryID, amountCents int64, from, to time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE category_id = ? AND amount_cents = ?
		   AND date >= ? AND date <= ?
		   AND id NOT IN (
		       SELECT transaction_id FROM bill_payments WHERE transaction_id IS NOT NULL
		   )
		 ORDER BY date, id`,
		categoryID, amountCents, fmtDate(from), fmtDate(to))
	if err != nil {
		return nil, fmt.Errorf("list unmatched transactions: %w", err)
	}
	return collectTransactions(rows)
}

// SumExpensesByCategory sums transaction amounts for a category with dates in
// [from, to] inclusive.
func (r *SQLiteRepository) SumExpensesByCategory(ctx context.Context, categoryID int64, from, to time.Time) (int64, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(amount_cents) FROM transactions
		 WHERE category_id = ? AND date >= ? AND date <= ?`,
		categoryID, fmtDate(from), fmtDate(to)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum category expenses: %w", err)
	}
	return total.Int64, nil
}

// MonthOverview aggregates expense totals for a calendar month, overall and
// per category.
func (r *SQLiteRepository) MonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	overview := core.MonthOverview{Year: year, Month: month}
	from := core.NewDate(year, month, 1)
	to := from.AddDate(0, 1, 0)

	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.name, SUM(t.amount_cents) AS total
		 FROM transactions t
		 JOIN categories c ON c.id = t.category_id
		 WHERE c.type = 'expense' AND t.date >= ? AND t.date < ?
		 GROUP BY c.id, c.name
		 ORDER BY total DESC`,
		fmtDate(from), fmtDate(to))
	if err != nil {
		return overview, fmt.Errorf("month overview: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.CategoryID, &ca.Name, &ca.Amount.Cents); err != nil {
			return overview, fmt.Errorf("scan category sum: %w", err)
		}
		overview.ByCategory = append(overview.ByCategory, ca)
		overview.Total.Cents += ca.Amount.Cents
	}
	return overview, rows.Err()
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

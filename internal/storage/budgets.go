package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"finbook/internal/core"
)

const budgetColumns = `id, category_id, amount_cents, period, start_date, end_date`

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var (
		b       core.Budget
		start   string
		endDate sql.NullString
	)
	err := row.Scan(&b.ID, &b.CategoryID, &b.Amount.Cents, &b.Period, &start, &endDate)
	if err != nil {
		return core.Budget{}, err
	}
	b.StartDate = parseDate(start)
	b.EndDate = dateOrZero(endDate)
	return b, nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (category_id, amount_cents, period, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?)`,
		b.CategoryID, b.Amount.Cents, b.Period, fmtDate(b.StartDate), nullDate(b.EndDate))
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget insert id: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets ORDER BY category_id, start_date`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return collectBudgets(rows)
}

func (r *SQLiteRepository) ListBudgetsByCategory(ctx context.Context, categoryID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE category_id = ? ORDER BY start_date`,
		categoryID)
	if err != nil {
		return nil, fmt.Errorf("list budgets by category: %w", err)
	}
	return collectBudgets(rows)
}

// ListActiveBudgets returns budgets whose [start_date, end_date) window
// contains the reference day.
func (r *SQLiteRepository) ListActiveBudgets(ctx context.Context, ref time.Time) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets
		 WHERE start_date <= ? AND (end_date IS NULL OR end_date > ?)
		 ORDER BY category_id, start_date`,
		fmtDate(ref), fmtDate(ref))
	if err != nil {
		return nil, fmt.Errorf("list active budgets: %w", err)
	}
	return collectBudgets(rows)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func collectBudgets(rows *sql.Rows) ([]core.Budget, error) {
	defer rows.Close()
	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

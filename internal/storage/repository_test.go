package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"finbook/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "finbook.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// categoryID resolves a seeded category by name.
func categoryID(t *testing.T, repo *SQLiteRepository, name string) int64 {
	t.Helper()
	categories, err := repo.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	for _, c := range categories {
		if c.Name == name {
			return c.ID
		}
	}
	t.Fatalf("seeded category %q not found", name)
	return 0
}

func TestMigrationsSeedCategories(t *testing.T) {
	repo := newTestRepo(t)

	categories, err := repo.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(categories) == 0 {
		t.Fatal("no seeded categories")
	}

	var expenses, incomes int
	for _, c := range categories {
		switch c.Type {
		case core.CategoryExpense:
			expenses++
		case core.CategoryIncome:
			incomes++
		}
	}
	if expenses == 0 || incomes == 0 {
		t.Errorf("seed has %d expense and %d income categories, want both present", expenses, incomes)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateCategory(ctx, core.Category{Name: "Pets", Type: core.CategoryExpense})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	if _, err := repo.CreateCategory(ctx, core.Category{Name: "Pets", Type: core.CategoryExpense}); !errors.Is(err, core.ErrAlreadyExists) {
		t.Errorf("duplicate name error = %v, want ErrAlreadyExists", err)
	}

	// A category with existing transactions cannot be deleted.
	_, err = repo.CreateTransaction(ctx, core.Transaction{
		Description: "Vet", Amount: core.Money{Cents: 5000},
		CategoryID: created.ID, Date: core.NewDate(2024, 4, 1),
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if err := repo.DeleteCategory(ctx, created.ID); !errors.Is(err, core.ErrFailedPrecondition) {
		t.Errorf("DeleteCategory() error = %v, want ErrFailedPrecondition", err)
	}

	if err := repo.DeleteCategory(ctx, 99999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteCategory(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestBillRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	housing := categoryID(t, repo, "Housing")

	created, err := repo.CreateBill(ctx, core.Bill{
		Name:        "Rent",
		Amount:      core.Money{Cents: 120000},
		CategoryID:  housing,
		DueDate:     core.NewDate(2024, 1, 15),
		Frequency:   core.Monthly,
		Status:      core.BillPending,
		NextDueDate: core.NewDate(2024, 4, 15),
		ReminderDays: 7,
	})
	if err != nil {
		t.Fatalf("CreateBill() error = %v", err)
	}

	got, err := repo.GetBill(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetBill() error = %v", err)
	}
	if got.Name != "Rent" || got.Amount.Cents != 120000 || got.Frequency != core.Monthly {
		t.Errorf("GetBill() = %+v, want stored values", got)
	}
	if !got.DueDate.Equal(core.NewDate(2024, 1, 15)) || !got.NextDueDate.Equal(core.NewDate(2024, 4, 15)) {
		t.Errorf("dates = %s / %s, want 2024-01-15 / 2024-04-15",
			got.DueDate.Format(dateLayout), got.NextDueDate.Format(dateLayout))
	}
	if !got.LastPaidDate.IsZero() {
		t.Errorf("LastPaidDate = %v, want zero before first payment", got.LastPaidDate)
	}

	if _, err := repo.GetBill(ctx, 99999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetBill(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestSweepOverdueSQL(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	housing := categoryID(t, repo, "Housing")

	mustCreateBill := func(name string, status core.BillStatus, nextDue string) int64 {
		t.Helper()
		due := parseDate(nextDue)
		b, err := repo.CreateBill(ctx, core.Bill{
			Name: name, Amount: core.Money{Cents: 1000}, CategoryID: housing,
			DueDate: due, Frequency: core.Monthly, Status: status, NextDueDate: due,
		})
		if err != nil {
			t.Fatalf("CreateBill(%s) error = %v", name, err)
		}
		return b.ID
	}

	past := mustCreateBill("past", core.BillPending, "2024-04-10")
	today := mustCreateBill("today", core.BillPending, "2024-04-20")
	paid := mustCreateBill("paid", core.BillPaid, "2024-04-01")

	ref := core.NewDate(2024, 4, 20)
	n, err := repo.SweepOverdue(ctx, ref)
	if err != nil {
		t.Fatalf("SweepOverdue() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("first sweep affected %d rows, want 1", n)
	}

	// A second sweep with the same reference date is a no-op.
	n, err = repo.SweepOverdue(ctx, ref)
	if err != nil {
		t.Fatalf("second SweepOverdue() error = %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep affected %d rows, want 0", n)
	}

	for _, tc := range []struct {
		id   int64
		want core.BillStatus
	}{
		{past, core.BillOverdue},
		{today, core.BillPending},
		{paid, core.BillPaid},
	} {
		b, err := repo.GetBill(ctx, tc.id)
		if err != nil {
			t.Fatalf("GetBill(%d) error = %v", tc.id, err)
		}
		if b.Status != tc.want {
			t.Errorf("bill %d status = %s, want %s", tc.id, b.Status, tc.want)
		}
	}
}

func TestMarkBillPaidPersistsAtomically(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	housing := categoryID(t, repo, "Housing")

	bill, err := repo.CreateBill(ctx, core.Bill{
		Name: "Rent", Amount: core.Money{Cents: 120000}, CategoryID: housing,
		DueDate: core.NewDate(2024, 4, 15), Frequency: core.Monthly,
		Status: core.BillPending, NextDueDate: core.NewDate(2024, 4, 15),
	})
	if err != nil {
		t.Fatalf("CreateBill() error = %v", err)
	}

	paidDate := core.NewDate(2024, 4, 16)
	nextDue := core.NewDate(2024, 5, 15)
	payment, err := repo.MarkBillPaid(ctx, bill.ID, core.BillPayment{
		BillID: bill.ID, Amount: core.Money{Cents: 120000}, PaidDate: paidDate,
	}, paidDate, nextDue)
	if err != nil {
		t.Fatalf("MarkBillPaid() error = %v", err)
	}
	if payment.ID == 0 {
		t.Error("payment ID not assigned")
	}

	got, err := repo.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetBill() error = %v", err)
	}
	if got.Status != core.BillPaid || !got.NextDueDate.Equal(nextDue) || !got.LastPaidDate.Equal(paidDate) {
		t.Errorf("bill after payment = %+v, want paid, advanced and stamped", got)
	}

	payments, err := repo.ListBillPayments(ctx, bill.ID)
	if err != nil {
		t.Fatalf("ListBillPayments() error = %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(payments))
	}
}

func TestMarkBillPaidRollsBackOnFailedUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	housing := categoryID(t, repo, "Housing")

	bill, err := repo.CreateBill(ctx, core.Bill{
		Name: "Rent", Amount: core.Money{Cents: 120000}, CategoryID: housing,
		DueDate: core.NewDate(2024, 4, 15), Frequency: core.Monthly,
		Status: core.BillPending, NextDueDate: core.NewDate(2024, 4, 15),
	})
	if err != nil {
		t.Fatalf("CreateBill() error = %v", err)
	}

	// The payment insert targets an existing bill but the status update is
	// keyed on a bill that does not exist, so the whole transaction must
	// roll back and leave no payment row behind.
	_, err = repo.MarkBillPaid(ctx, 99999, core.BillPayment{
		BillID: bill.ID, Amount: core.Money{Cents: 120000}, PaidDate: core.NewDate(2024, 4, 16),
	}, core.NewDate(2024, 4, 16), core.NewDate(2024, 5, 15))
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("MarkBillPaid() error = %v, want ErrNotFound", err)
	}

	payments, err := repo.ListBillPayments(ctx, bill.ID)
	if err != nil {
		t.Fatalf("ListBillPayments() error = %v", err)
	}
	if len(payments) != 0 {
		t.Errorf("payments = %d after rollback, want 0", len(payments))
	}

	got, err := repo.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetBill() error = %v", err)
	}
	if got.Status != core.BillPending {
		t.Errorf("bill status = %s after rollback, want pending", got.Status)
	}
}

func TestDeleteBillCascadesPayments(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	housing := categoryID(t, repo, "Housing")

	bill, err := repo.CreateBill(ctx, core.Bill{
		Name: "Rent", Amount: core.Money{Cents: 120000}, CategoryID: housing,
		DueDate: core.NewDate(2024, 4, 15), Frequency: core.Monthly,
		Status: core.BillPending, NextDueDate: core.NewDate(2024, 4, 15),
	})
	if err != nil {
		t.Fatalf("CreateBill() error = %v", err)
	}
	if _, err := repo.MarkBillPaid(ctx, bill.ID, core.BillPayment{
		BillID: bill.ID, Amount: core.Money{Cents: 120000}, PaidDate: core.NewDate(2024, 4, 16),
	}, core.NewDate(2024, 4, 16), core.NewDate(2024, 5, 15)); err != nil {
		t.Fatalf("MarkBillPaid() error = %v", err)
	}

	if err := repo.DeleteBill(ctx, bill.ID); err != nil {
		t.Fatalf("DeleteBill() error = %v", err)
	}

	payments, err := repo.ListBillPayments(ctx, bill.ID)
	if err != nil {
		t.Fatalf("ListBillPayments() error = %v", err)
	}
	if len(payments) != 0 {
		t.Errorf("payments = %d after bill deletion, want 0 (cascade)", len(payments))
	}
}

func TestListUnmatchedTransactionsExcludesLinked(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	utilities := categoryID(t, repo, "Utilities")

	mustCreateTx := func(date string) core.Transaction {
		t.Helper()
		d := parseDate(date)
		tx, err := repo.CreateTransaction(ctx, core.Transaction{
			Description: "Electricity", Amount: core.Money{Cents: 8500},
			CategoryID: utilities, Date: d,
		})
		if err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
		return tx
	}

	linked := mustCreateTx("2024-04-14")
	free := mustCreateTx("2024-04-16")

	bill, err := repo.CreateBill(ctx, core.Bill{
		Name: "Electricity", Amount: core.Money{Cents: 8500}, CategoryID: utilities,
		DueDate: core.NewDate(2024, 4, 15), Frequency: core.Monthly,
		Status: core.BillPending, NextDueDate: core.NewDate(2024, 4, 15), AutoPayEnabled: true,
	})
	if err != nil {
		t.Fatalf("CreateBill() error = %v", err)
	}
	if _, err := repo.MarkBillPaid(ctx, bill.ID, core.BillPayment{
		BillID: bill.ID, TransactionID: linked.ID, Amount: core.Money{Cents: 8500},
		PaidDate: linked.Date, IsAutoDetected: true,
	}, linked.Date, core.NewDate(2024, 5, 15)); err != nil {
		t.Fatalf("MarkBillPaid() error = %v", err)
	}

	from := core.NewDate(2024, 4, 13)
	to := core.NewDate(2024, 4, 20)
	unmatched, err := repo.ListUnmatchedTransactions(ctx, utilities, 8500, from, to)
	if err != nil {
		t.Fatalf("ListUnmatchedTransactions() error = %v", err)
	}
	if len(unmatched) != 1 || unmatched[0].ID != free.ID {
		t.Errorf("unmatched = %+v, want only the unlinked transaction %d", unmatched, free.ID)
	}
}

func TestRecurringTemplateQueries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	subs := categoryID(t, repo, "Subscriptions")

	_, err := repo.CreateTransaction(ctx, core.Transaction{
		Description: "Netflix", Amount: core.Money{Cents: 1299}, CategoryID: subs,
		Date: core.NewDate(2024, 1, 1), IsRecurring: true, RecurringEvery: core.Monthly,
	})
	if err != nil {
		t.Fatalf("create template error = %v", err)
	}
	_, err = repo.CreateTransaction(ctx, core.Transaction{
		Description: "Old sub", Amount: core.Money{Cents: 999}, CategoryID: subs,
		Date: core.NewDate(2023, 1, 1), IsRecurring: true, RecurringEvery: core.Monthly,
		RecurringEndDate: core.NewDate(2023, 6, 1),
	})
	if err != nil {
		t.Fatalf("create expired template error = %v", err)
	}

	templates, err := repo.ListRecurringTemplates(ctx, core.NewDate(2024, 3, 20))
	if err != nil {
		t.Fatalf("ListRecurringTemplates() error = %v", err)
	}
	if len(templates) != 1 || templates[0].Description != "Netflix" {
		t.Fatalf("templates = %+v, want only the active one", templates)
	}

	occurrence := core.NewDate(2024, 3, 1)
	exists, err := repo.HasMaterializedTransaction(ctx, "Netflix", subs, 1299, occurrence)
	if err != nil {
		t.Fatalf("HasMaterializedTransaction() error = %v", err)
	}
	if exists {
		t.Error("materialized row reported before creation")
	}

	if _, err := repo.CreateTransaction(ctx, core.Transaction{
		Description: "Netflix", Amount: core.Money{Cents: 1299}, CategoryID: subs,
		Date: occurrence,
	}); err != nil {
		t.Fatalf("materialize error = %v", err)
	}

	exists, err = repo.HasMaterializedTransaction(ctx, "Netflix", subs, 1299, occurrence)
	if err != nil {
		t.Fatalf("HasMaterializedTransaction() error = %v", err)
	}
	if !exists {
		t.Error("materialized row not reported after creation")
	}
}

func TestAggregates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	groceries := categoryID(t, repo, "Groceries")
	transport := categoryID(t, repo, "Transport")
	salary := categoryID(t, repo, "Salary")

	mustCreateTx := func(categoryID int64, cents int64, date string) {
		t.Helper()
		d := parseDate(date)
		if _, err := repo.CreateTransaction(ctx, core.Transaction{
			Description: "row", Amount: core.Money{Cents: cents},
			CategoryID: categoryID, Date: d,
		}); err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
	}

	mustCreateTx(groceries, 10000, "2024-04-05")
	mustCreateTx(groceries, 5000, "2024-04-25")
	mustCreateTx(transport, 3000, "2024-04-10")
	mustCreateTx(groceries, 7000, "2024-03-15") // previous month
	mustCreateTx(salary, 250000, "2024-04-01")  // income, excluded from overview

	sum, err := repo.SumExpensesByCategory(ctx, groceries, core.NewDate(2024, 4, 1), core.NewDate(2024, 4, 30))
	if err != nil {
		t.Fatalf("SumExpensesByCategory() error = %v", err)
	}
	if sum != 15000 {
		t.Errorf("sum = %d, want 15000", sum)
	}

	overview, err := repo.MonthOverview(ctx, 2024, 4)
	if err != nil {
		t.Fatalf("MonthOverview() error = %v", err)
	}
	if overview.Total.Cents != 18000 {
		t.Errorf("overview total = %d, want 18000 (expenses only)", overview.Total.Cents)
	}
	if len(overview.ByCategory) != 2 {
		t.Fatalf("overview categories = %d, want 2", len(overview.ByCategory))
	}
	// Ordered by amount descending.
	if overview.ByCategory[0].Amount.Cents != 15000 {
		t.Errorf("top category = %d cents, want 15000", overview.ByCategory[0].Amount.Cents)
	}
}

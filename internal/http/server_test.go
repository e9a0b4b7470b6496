package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finbook/internal/core"
	"finbook/internal/services"
)

// memStore is an in-memory store backing every service for handler tests.
type memStore struct {
	categories   map[int64]core.Category
	transactions map[int64]core.Transaction
	bills        map[int64]core.Bill
	budgets      []core.Budget
	payments     []core.BillPayment
	nextID       int64
}

func newMemStore() *memStore {
	return &memStore{
		categories:   map[int64]core.Category{},
		transactions: map[int64]core.Transaction{},
		bills:        map[int64]core.Bill{},
	}
}

func (m *memStore) id() int64 { m.nextID++; return m.nextID }

func (m *memStore) GetCategory(_ context.Context, id int64) (core.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (m *memStore) ListCategories(_ context.Context) ([]core.Category, error) {
	var out []core.Category
	for _, c := range m.categories {
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	c.ID = m.id()
	m.categories[c.ID] = c
	return c, nil
}

func (m *memStore) DeleteCategory(_ context.Context, id int64) error {
	if _, ok := m.categories[id]; !ok {
		return core.ErrNotFound
	}
	for _, tx := range m.transactions {
		if tx.CategoryID == id {
			return core.ErrFailedPrecondition
		}
	}
	delete(m.categories, id)
	return nil
}

func (m *memStore) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = m.id()
	m.transactions[t.ID] = t
	return t, nil
}

func (m *memStore) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	t, ok := m.transactions[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (m *memStore) ListTransactionsByMonth(_ context.Context, year, month int) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range m.transactions {
		if t.Date.Year() == year && int(t.Date.Month()) == month {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListRecurringTemplates(_ context.Context, ref time.Time) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range m.transactions {
		if !t.IsRecurring {
			continue
		}
		if !t.RecurringEndDate.IsZero() && t.RecurringEndDate.Before(ref) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) HasMaterializedTransaction(_ context.Context, description string, categoryID, amountCents int64, date time.Time) (bool, error) {
	for _, t := range m.transactions {
		if !t.IsRecurring && t.Description == description && t.CategoryID == categoryID &&
			t.Amount.Cents == amountCents && t.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListUnmatchedTransactions(_ context.Context, categoryID, amountCents int64, from, to time.Time) ([]core.Transaction, error) {
	matched := map[int64]bool{}
	for _, p := range m.payments {
		if p.TransactionID != 0 {
			matched[p.TransactionID] = true
		}
	}
	var out []core.Transaction
	for _, t := range m.transactions {
		if matched[t.ID] || t.CategoryID != categoryID || t.Amount.Cents != amountCents {
			continue
		}
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) SumExpensesByCategory(_ context.Context, categoryID int64, from, to time.Time) (int64, error) {
	var sum int64
	for _, t := range m.transactions {
		if t.CategoryID != categoryID || t.IsRecurring {
			continue
		}
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		sum += t.Amount.Cents
	}
	return sum, nil
}

func (m *memStore) MonthOverview(_ context.Context, year, month int) (core.MonthOverview, error) {
	overview := core.MonthOverview{Year: year, Month: month}
	byCat := map[int64]int64{}
	for _, t := range m.transactions {
		if t.IsRecurring || t.Date.Year() != year || int(t.Date.Month()) != month {
			continue
		}
		cat, ok := m.categories[t.CategoryID]
		if !ok || cat.Type != core.CategoryExpense {
			continue
		}
		byCat[t.CategoryID] += t.Amount.Cents
		overview.Total.Cents += t.Amount.Cents
	}
	for id, cents := range byCat {
		overview.ByCategory = append(overview.ByCategory, core.CategoryAmount{
			CategoryID: id,
			Name:       m.categories[id].Name,
			Amount:     core.Money{Cents: cents},
		})
	}
	return overview, nil
}

func (m *memStore) CreateBill(_ context.Context, b core.Bill) (core.Bill, error) {
	b.ID = m.id()
	m.bills[b.ID] = b
	return b, nil
}

func (m *memStore) GetBill(_ context.Context, id int64) (core.Bill, error) {
	b, ok := m.bills[id]
	if !ok {
		return core.Bill{}, core.ErrNotFound
	}
	return b, nil
}

func (m *memStore) ListBills(_ context.Context) ([]core.Bill, error) {
	var out []core.Bill
	for _, b := range m.bills {
		out = append(out, b)
	}
	return out, nil
}

func (m *memStore) DeleteBill(_ context.Context, id int64) error {
	if _, ok := m.bills[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.bills, id)
	return nil
}

func (m *memStore) MarkBillPaid(_ context.Context, billID int64, p core.BillPayment, lastPaid, nextDue time.Time) (core.BillPayment, error) {
	b, ok := m.bills[billID]
	if !ok {
		return core.BillPayment{}, core.ErrNotFound
	}
	p.ID = m.id()
	m.payments = append(m.payments, p)
	b.Status = core.BillPaid
	b.LastPaidDate = lastPaid
	b.NextDueDate = nextDue
	m.bills[billID] = b
	return p, nil
}

func (m *memStore) SweepOverdue(_ context.Context, ref time.Time) (int64, error) {
	var n int64
	for id, b := range m.bills {
		if b.Status == core.BillPending && b.NextDueDate.Before(ref) {
			b.Status = core.BillOverdue
			m.bills[id] = b
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListBillsForReminder(_ context.Context) ([]core.Bill, error) {
	var out []core.Bill
	for _, b := range m.bills {
		if b.Status == core.BillPending || b.Status == core.BillOverdue {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) ListAutoPayCandidates(_ context.Context, from, to time.Time) ([]core.Bill, error) {
	var out []core.Bill
	for _, b := range m.bills {
		if b.Status != core.BillPending || !b.AutoPayEnabled {
			continue
		}
		if b.NextDueDate.Before(from) || b.NextDueDate.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *memStore) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	b.ID = m.id()
	m.budgets = append(m.budgets, b)
	return b, nil
}

func (m *memStore) ListBudgets(_ context.Context) ([]core.Budget, error) {
	return m.budgets, nil
}

func (m *memStore) ListBudgetsByCategory(_ context.Context, categoryID int64) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range m.budgets {
		if b.CategoryID == categoryID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveBudgets(_ context.Context, ref time.Time) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range m.budgets {
		if b.StartDate.After(ref) {
			continue
		}
		if !b.EndDate.IsZero() && !b.EndDate.After(ref) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *memStore) DeleteBudget(_ context.Context, id int64) error {
	for i, b := range m.budgets {
		if b.ID == id {
			m.budgets = append(m.budgets[:i], m.budgets[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) Ping(context.Context) error { return nil }

func newTestServer(t *testing.T, today time.Time) (*Server, *memStore) {
	t.Helper()

	prev := timeNow
	timeNow = func() time.Time { return today }
	t.Cleanup(func() { timeNow = prev })

	store := newMemStore()
	store.categories[1] = core.Category{ID: 1, Name: "Housing", Type: core.CategoryExpense}
	store.categories[2] = core.Category{ID: 2, Name: "Salary", Type: core.CategoryIncome}
	store.nextID = 10

	clock := services.FixedClock{T: today}
	bills := services.NewBillService(store, clock)
	budgets := services.NewBudgetService(store, clock, services.DefaultThresholds())
	srv := NewServer(":0", Deps{
		Bills:        bills,
		Transactions: services.NewTransactionService(store, clock),
		Budgets:      budgets,
		Insights:     services.NewInsightsService(store, budgets, clock),
		Processor:    services.NewRecurringProcessor(store),
		Matcher:      services.NewAutoPayMatcher(store),
		Categories:   store,
		Pinger:       store,
	})
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, core.NewDate(2024, 4, 20))
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

func TestCreateBillEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, core.NewDate(2024, 3, 10))

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "valid bill",
			body:       `{"name":"Rent","amount":"1200.00","category_id":1,"due_date":"2024-01-15","frequency":"monthly"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid amount",
			body:       `{"name":"Rent","amount":"abc","category_id":1,"due_date":"2024-01-15","frequency":"monthly"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "bad date format",
			body:       `{"name":"Rent","amount":"10.00","category_id":1,"due_date":"15/01/2024","frequency":"monthly"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown frequency",
			body:       `{"name":"Rent","amount":"10.00","category_id":1,"due_date":"2024-01-15","frequency":"fortnightly"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown category",
			body:       `{"name":"Rent","amount":"10.00","category_id":99,"due_date":"2024-01-15","frequency":"monthly"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "income category",
			body:       `{"name":"Rent","amount":"10.00","category_id":2,"due_date":"2024-01-15","frequency":"monthly"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodPost, "/api/bills", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantStatus != http.StatusCreated {
				return
			}
			var resp billResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.NextDueDate != "2024-03-15" {
				t.Errorf("next_due_date = %s, want the caught-up occurrence 2024-03-15", resp.NextDueDate)
			}
			if resp.AmountCents != 120000 {
				t.Errorf("amount_cents = %d, want 120000", resp.AmountCents)
			}
		})
	}
}

func TestMarkBillPaidEndpoint(t *testing.T) {
	today := core.NewDate(2024, 4, 20)
	srv, store := newTestServer(t, today)
	store.bills[1] = core.Bill{
		ID: 1, Name: "Rent", Amount: core.Money{Cents: 120000},
		CategoryID: 1, Frequency: core.Monthly, Status: core.BillOverdue,
		NextDueDate: core.NewDate(2024, 4, 15),
	}

	rr := doJSON(t, srv, http.MethodPost, "/api/bills/1/pay", `{}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}
	var resp paymentResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.NextDueDate != "2024-05-15" {
		t.Errorf("next_due_date = %s, want 2024-05-15", resp.NextDueDate)
	}
	if resp.AmountCents != 120000 {
		t.Errorf("amount_cents = %d, want the bill amount", resp.AmountCents)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/bills/99/pay", `{}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown bill status = %d, want 404", rr.Code)
	}
}

func TestRemindersEndpoint(t *testing.T) {
	today := core.NewDate(2024, 4, 20)
	srv, store := newTestServer(t, today)
	store.bills[1] = core.Bill{
		ID: 1, Name: "Internet", Amount: core.Money{Cents: 4500},
		CategoryID: 1, Frequency: core.Monthly, Status: core.BillPending,
		NextDueDate: core.NewDate(2024, 4, 23), ReminderDays: 7,
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/bills/reminders", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp []reminderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].DaysUntilDue != 3 {
		t.Errorf("reminders = %+v, want one reminder 3 days out", resp)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	today := core.NewDate(2024, 4, 20)
	srv, store := newTestServer(t, today)

	rr := doJSON(t, srv, http.MethodPost, "/api/budgets",
		`{"category_id":1,"amount":"500.00","period":"monthly","start_date":"2024-01-01"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201; body: %s", rr.Code, rr.Body.String())
	}

	// Overlapping window for the same category conflicts.
	rr = doJSON(t, srv, http.MethodPost, "/api/budgets",
		`{"category_id":1,"amount":"300.00","period":"monthly","start_date":"2024-03-01"}`)
	if rr.Code != http.StatusConflict {
		t.Errorf("overlap status = %d, want 409", rr.Code)
	}

	// 450 of 500 spent puts the budget at danger level.
	store.transactions[100] = core.Transaction{
		ID: 100, CategoryID: 1, Amount: core.Money{Cents: 45000},
		Date: core.NewDate(2024, 4, 5),
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/budgets/alerts", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("alerts status = %d, want 200", rr.Code)
	}
	var alerts []alertResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &alerts); err != nil {
		t.Fatalf("decode alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Level != "danger" {
		t.Errorf("alerts = %+v, want one danger alert", alerts)
	}
}

func TestTransactionEndpoints(t *testing.T) {
	today := core.NewDate(2024, 4, 20)
	srv, _ := newTestServer(t, today)

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Groceries","amount":"54.30","category_id":1,"date":"2024-04-18"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201; body: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/transactions?year=2024&month=4", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rr.Code)
	}
	var txs []transactionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(txs) != 1 || txs[0].AmountCents != 5430 {
		t.Errorf("transactions = %+v, want one row of 5430 cents", txs)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/overview?year=2024&month=4", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("overview status = %d, want 200", rr.Code)
	}
	var overview overviewResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &overview); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if overview.TotalCents != 5430 {
		t.Errorf("overview total = %d, want 5430", overview.TotalCents)
	}
}

func TestAdminEndpoints(t *testing.T) {
	today := core.NewDate(2024, 1, 22)
	srv, store := newTestServer(t, today)
	store.transactions[50] = core.Transaction{
		ID: 50, Description: "Netflix", Amount: core.Money{Cents: 1299},
		CategoryID: 1, Date: core.NewDate(2024, 1, 1),
		IsRecurring: true, RecurringEvery: core.Weekly,
	}

	rr := doJSON(t, srv, http.MethodPost, "/api/admin/recurring/process", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("process status = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}
	var result map[string]int
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result["created"] != 1 {
		t.Errorf("created = %d, want 1", result["created"])
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/admin/autopay/detect", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("detect status = %d, want 200", rr.Code)
	}
}

func TestDeleteCategoryWithTransactionsConflicts(t *testing.T) {
	today := core.NewDate(2024, 4, 20)
	srv, store := newTestServer(t, today)
	store.transactions[60] = core.Transaction{
		ID: 60, CategoryID: 1, Amount: core.Money{Cents: 100}, Date: today,
	}

	rr := doJSON(t, srv, http.MethodDelete, "/api/categories/1", "")
	if rr.Code != http.StatusConflict {
		t.Errorf("delete status = %d, want 409 while transactions reference it", rr.Code)
	}
}

package http

import (
	"net/http"

	"finbook/internal/core"
)

type budgetResponse struct {
	ID          int64  `json:"id"`
	CategoryID  int64  `json:"category_id"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Period      string `json:"period"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:          b.ID,
		CategoryID:  b.CategoryID,
		AmountCents: b.Amount.Cents,
		Amount:      b.Amount.String(),
		Period:      string(b.Period),
		StartDate:   fmtDate(b.StartDate),
		EndDate:     fmtDate(b.EndDate),
	}
}

type createBudgetRequest struct {
	CategoryID int64  `json:"category_id"`
	Amount     string `json:"amount"` // decimal
	Period     string `json:"period"` // monthly or yearly
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date,omitempty"`
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		respondError(w, r, err)
		return
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		respondError(w, r, err)
		return
	}

	budget := core.Budget{
		CategoryID: req.CategoryID,
		Amount:     core.Money{Cents: cents},
		Period:     core.BudgetPeriod(req.Period),
		StartDate:  startDate,
	}
	if req.EndDate != "" {
		endDate, err := parseDate(req.EndDate)
		if err != nil {
			respondError(w, r, err)
			return
		}
		budget.EndDate = endDate
	}

	created, err := s.budgets.CreateBudget(r.Context(), budget)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toBudgetResponse(created))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.budgets.ListBudgets(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.budgets.DeleteBudget(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type alertResponse struct {
	BudgetID     int64   `json:"budget_id"`
	CategoryID   int64   `json:"category_id"`
	CategoryName string  `json:"category_name"`
	BudgetCents  int64   `json:"budget_cents"`
	SpentCents   int64   `json:"spent_cents"`
	Percentage   float64 `json:"percentage"`
	Level        string  `json:"level"`
}

func (s *Server) handleBudgetAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.budgets.EvaluateAlerts(r.Context(), timeNow())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertResponse{
			BudgetID:     a.BudgetID,
			CategoryID:   a.CategoryID,
			CategoryName: a.CategoryName,
			BudgetCents:  a.BudgetCents,
			SpentCents:   a.SpentCents,
			Percentage:   a.Percentage,
			Level:        string(a.Level),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

package http

import (
	"net/http"

	"finbook/internal/core"
	"finbook/internal/services"
)

type transactionResponse struct {
	ID               int64  `json:"id"`
	Description      string `json:"description"`
	AmountCents      int64  `json:"amount_cents"`
	Amount           string `json:"amount"`
	CategoryID       int64  `json:"category_id"`
	Date             string `json:"date"`
	IsRecurring      bool   `json:"is_recurring"`
	RecurringEvery   string `json:"recurring_frequency,omitempty"`
	RecurringEndDate string `json:"recurring_end_date,omitempty"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:               t.ID,
		Description:      t.Description,
		AmountCents:      t.Amount.Cents,
		Amount:           t.Amount.String(),
		CategoryID:       t.CategoryID,
		Date:             fmtDate(t.Date),
		IsRecurring:      t.IsRecurring,
		RecurringEvery:   string(t.RecurringEvery),
		RecurringEndDate: fmtDate(t.RecurringEndDate),
	}
}

type createTransactionRequest struct {
	Description      string `json:"description"`
	Amount           string `json:"amount"` // decimal, e.g. "12.34"
	CategoryID       int64  `json:"category_id"`
	Date             string `json:"date,omitempty"` // YYYY-MM-DD, default today
	IsRecurring      bool   `json:"is_recurring,omitempty"`
	RecurringEvery   string `json:"recurring_frequency,omitempty"`
	RecurringEndDate string `json:"recurring_end_date,omitempty"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		respondError(w, r, err)
		return
	}

	params := services.CreateTransactionParams{
		Description:    sanitizeInput(req.Description),
		AmountCents:    cents,
		CategoryID:     req.CategoryID,
		IsRecurring:    req.IsRecurring,
		RecurringEvery: core.Frequency(req.RecurringEvery),
	}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			respondError(w, r, err)
			return
		}
		params.Date = date
	}
	if req.RecurringEndDate != "" {
		endDate, err := parseDate(req.RecurringEndDate)
		if err != nil {
			respondError(w, r, err)
			return
		}
		params.RecurringEndDate = endDate
	}

	tx, err := s.transactions.Create(r.Context(), params)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	txs, err := s.transactions.ListByMonth(r.Context(), year, month)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	respondJSON(w, http.StatusOK, out)
}

type overviewResponse struct {
	Year       int                     `json:"year"`
	Month      int                     `json:"month"`
	TotalCents int64                   `json:"total_cents"`
	Total      string                  `json:"total"`
	ByCategory []overviewCategoryEntry `json:"by_category"`
}

type overviewCategoryEntry struct {
	CategoryID  int64  `json:"category_id"`
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
}

func (s *Server) handleMonthOverview(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	overview, err := s.transactions.Overview(r.Context(), year, month)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := overviewResponse{
		Year:       overview.Year,
		Month:      overview.Month,
		TotalCents: overview.Total.Cents,
		Total:      overview.Total.String(),
		ByCategory: make([]overviewCategoryEntry, 0, len(overview.ByCategory)),
	}
	for _, ca := range overview.ByCategory {
		resp.ByCategory = append(resp.ByCategory, overviewCategoryEntry{
			CategoryID:  ca.CategoryID,
			Name:        ca.Name,
			AmountCents: ca.Amount.Cents,
			Amount:      ca.Amount.String(),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

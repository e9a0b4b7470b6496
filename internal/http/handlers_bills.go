package http

import (
	"net/http"

	"finbook/internal/core"
	"finbook/internal/services"
)

type billResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	AmountCents    int64  `json:"amount_cents"`
	Amount         string `json:"amount"`
	CategoryID     int64  `json:"category_id"`
	DueDate        string `json:"due_date"`
	Frequency      string `json:"frequency"`
	Status         string `json:"status"`
	AutoPayEnabled bool   `json:"auto_pay_enabled"`
	ReminderDays   int    `json:"reminder_days"`
	LastPaidDate   string `json:"last_paid_date,omitempty"`
	NextDueDate    string `json:"next_due_date"`
}

func toBillResponse(b core.Bill) billResponse {
	return billResponse{
		ID:             b.ID,
		Name:           b.Name,
		AmountCents:    b.Amount.Cents,
		Amount:         b.Amount.String(),
		CategoryID:     b.CategoryID,
		DueDate:        fmtDate(b.DueDate),
		Frequency:      string(b.Frequency),
		Status:         string(b.Status),
		AutoPayEnabled: b.AutoPayEnabled,
		ReminderDays:   b.ReminderDays,
		LastPaidDate:   fmtDate(b.LastPaidDate),
		NextDueDate:    fmtDate(b.NextDueDate),
	}
}

type createBillRequest struct {
	Name           string `json:"name"`
	Amount         string `json:"amount"` // decimal, e.g. "45.00"
	CategoryID     int64  `json:"category_id"`
	DueDate        string `json:"due_date"` // YYYY-MM-DD
	Frequency      string `json:"frequency"`
	AutoPayEnabled bool   `json:"auto_pay_enabled"`
	ReminderDays   int    `json:"reminder_days"`
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req createBillRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		respondError(w, r, err)
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		respondError(w, r, err)
		return
	}

	bill, err := s.bills.CreateBill(r.Context(), services.CreateBillParams{
		Name:           sanitizeInput(req.Name),
		Amount:         core.Money{Cents: cents},
		CategoryID:     req.CategoryID,
		DueDate:        dueDate,
		Frequency:      core.Frequency(req.Frequency),
		AutoPayEnabled: req.AutoPayEnabled,
		ReminderDays:   req.ReminderDays,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toBillResponse(bill))
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.bills.ListBills(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]billResponse, 0, len(bills))
	for _, b := range bills {
		out = append(out, toBillResponse(b))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	bill, err := s.bills.GetBill(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toBillResponse(bill))
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.bills.DeleteBill(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type markPaidRequest struct {
	Amount        string `json:"amount,omitempty"`    // decimal override
	PaidDate      string `json:"paid_date,omitempty"` // YYYY-MM-DD, default today
	TransactionID int64  `json:"transaction_id,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type paymentResponse struct {
	PaymentID      int64  `json:"payment_id"`
	BillID         int64  `json:"bill_id"`
	TransactionID  int64  `json:"transaction_id,omitempty"`
	AmountCents    int64  `json:"amount_cents"`
	PaidDate       string `json:"paid_date"`
	IsAutoDetected bool   `json:"is_auto_detected"`
	Notes          string `json:"notes,omitempty"`
	NextDueDate    string `json:"next_due_date"`
}

func (s *Server) handleMarkBillPaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req markPaidRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	params := services.MarkPaidParams{
		TransactionID: req.TransactionID,
		Notes:         sanitizeInput(req.Notes),
	}
	if req.Amount != "" {
		cents, err := core.ParseDecimalToCents(req.Amount)
		if err != nil {
			respondError(w, r, err)
			return
		}
		params.AmountCents = cents
	}
	if req.PaidDate != "" {
		paidDate, err := parseDate(req.PaidDate)
		if err != nil {
			respondError(w, r, err)
			return
		}
		params.PaidDate = paidDate
	}

	result, err := s.bills.MarkBillPaid(r.Context(), id, params)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, paymentResponse{
		PaymentID:      result.Payment.ID,
		BillID:         result.Payment.BillID,
		TransactionID:  result.Payment.TransactionID,
		AmountCents:    result.Payment.Amount.Cents,
		PaidDate:       fmtDate(result.Payment.PaidDate),
		IsAutoDetected: result.Payment.IsAutoDetected,
		Notes:          result.Payment.Notes,
		NextDueDate:    fmtDate(result.NextDueDate),
	})
}

type reminderResponse struct {
	BillID       int64  `json:"bill_id"`
	Name         string `json:"name"`
	AmountCents  int64  `json:"amount_cents"`
	NextDueDate  string `json:"next_due_date"`
	DaysUntilDue int    `json:"days_until_due"`
	IsOverdue    bool   `json:"is_overdue"`
}

func (s *Server) handleBillReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.bills.ComputeReminders(r.Context(), timeNow())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]reminderResponse, 0, len(reminders))
	for _, rem := range reminders {
		out = append(out, reminderResponse{
			BillID:       rem.BillID,
			Name:         rem.Name,
			AmountCents:  rem.Amount.Cents,
			NextDueDate:  fmtDate(rem.NextDueDate),
			DaysUntilDue: rem.DaysUntilDue,
			IsOverdue:    rem.IsOverdue,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

package amqp

import (
	"encoding/json"
	"time"
)

// BillReminderMessage notifies downstream consumers about an upcoming or
// overdue bill. It carries the full reminder so consumers need no database
// access.
type BillReminderMessage struct {
	BillID       int64     `json:"bill_id"`
	Name         string    `json:"name"`
	AmountCents  int64     `json:"amount_cents"`
	NextDueDate  string    `json:"next_due_date"` // YYYY-MM-DD
	DaysUntilDue int       `json:"days_until_due"`
	IsOverdue    bool      `json:"is_overdue"`
	Timestamp    time.Time `json:"timestamp"`
}

// BudgetAlertMessage notifies downstream consumers that a budget crossed one
// of the alert thresholds.
type BudgetAlertMessage struct {
	BudgetID     int64     `json:"budget_id"`
	CategoryID   int64     `json:"category_id"`
	CategoryName string    `json:"category_name"`
	BudgetCents  int64     `json:"budget_cents"`
	SpentCents   int64     `json:"spent_cents"`
	Percentage   float64   `json:"percentage"`
	Level        string    `json:"level"`
	Timestamp    time.Time `json:"timestamp"`
}

func (m *BillReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BillReminderMessageFromJSON(data []byte) (*BillReminderMessage, error) {
	var msg BillReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

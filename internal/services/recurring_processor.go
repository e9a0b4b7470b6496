package services

import (
	"context"
	"log/slog"
	"time"

	"finbook/internal/core"
)

// RecurringStore is the persistence surface of the projector.
type RecurringStore interface {
	ListRecurringTemplates(ctx context.Context, ref time.Time) ([]core.Transaction, error)
	HasMaterializedTransaction(ctx context.Context, description string, categoryID, amountCents int64, date time.Time) (bool, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
}

// RecurringProcessor materializes concrete ledger rows from recurring
// transaction templates. The template itself is never mutated; each run
// creates at most one non-recurring row per template, for the most recent
// elapsed occurrence.
type RecurringProcessor struct {
	store RecurringStore
}

func NewRecurringProcessor(store RecurringStore) *RecurringProcessor {
	return &RecurringProcessor{store: store}
}

// ProcessResult reports one projector run.
type ProcessResult struct {
	Processed int // templates examined
	Created   int // ledger rows materialized
}

// ProcessDue walks every active template and materializes the occurrence that
// is due, unless an identical non-recurring row already exists. Duplicate
// avoidance is by exact value equality (description, category, amount, date),
// so repeated runs for the same day create nothing new. Failures on one
// template are logged and do not stop the run.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (ProcessResult, error) {
	today := core.DayOf(now)

	templates, err := p.store.ListRecurringTemplates(ctx, today)
	if err != nil {
		return ProcessResult{}, err
	}

	result := ProcessResult{Processed: len(templates)}
	slog.InfoContext(ctx, "Processing recurring templates",
		"total_active", len(templates),
		"processing_date", today.Format("2006-01-02"))

	for _, template := range templates {
		occurrence, ok := core.LatestDueOccurrence(template.Date, template.RecurringEvery, today)
		if !ok {
			continue
		}

		exists, err := p.store.HasMaterializedTransaction(ctx,
			template.Description, template.CategoryID, template.Amount.Cents, occurrence)
		if err != nil {
			slog.ErrorContext(ctx, "Failed duplicate check for recurring template",
				"template_id", template.ID, "error", err)
			continue
		}
		if exists {
			continue
		}

		_, err = p.store.CreateTransaction(ctx, core.Transaction{
			Description: template.Description,
			Amount:      template.Amount,
			CategoryID:  template.CategoryID,
			Date:        occurrence,
			IsRecurring: false,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to materialize recurring transaction",
				"template_id", template.ID,
				"occurrence", occurrence.Format("2006-01-02"),
				"error", err)
			continue
		}

		result.Created++
		slog.InfoContext(ctx, "Materialized recurring transaction",
			"template_id", template.ID,
			"description", template.Description,
			"amount_cents", template.Amount.Cents,
			"occurrence", occurrence.Format("2006-01-02"))
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"processed", result.Processed,
		"created", result.Created)
	return result, nil
}

package http

import (
	"net/http"
)

type trendResponse struct {
	CategoryID    int64   `json:"category_id"`
	Name          string  `json:"name"`
	CurrentCents  int64   `json:"current_cents"`
	PreviousCents int64   `json:"previous_cents"`
	ChangePercent float64 `json:"change_percent"`
	Direction     string  `json:"direction"`
}

type insightsResponse struct {
	Year            int                     `json:"year"`
	Month           int                     `json:"month"`
	TotalCents      int64                   `json:"total_cents"`
	TopCategories   []overviewCategoryEntry `json:"top_categories"`
	Trends          []trendResponse         `json:"trends"`
	DailyAverage    int64                   `json:"daily_average_cents"`
	MonthProjection int64                   `json:"month_projection_cents"`
	Recommendations []string                `json:"recommendations"`
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := s.insights.Compute(r.Context(), timeNow())
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := insightsResponse{
		Year:            insights.Year,
		Month:           insights.Month,
		TotalCents:      insights.TotalCents,
		TopCategories:   make([]overviewCategoryEntry, 0, len(insights.TopCategories)),
		Trends:          make([]trendResponse, 0, len(insights.Trends)),
		DailyAverage:    insights.DailyAverage,
		MonthProjection: insights.MonthProjection,
		Recommendations: insights.Recommendations,
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []string{}
	}
	for _, ca := range insights.TopCategories {
		resp.TopCategories = append(resp.TopCategories, overviewCategoryEntry{
			CategoryID:  ca.CategoryID,
			Name:        ca.Name,
			AmountCents: ca.Amount.Cents,
			Amount:      ca.Amount.String(),
		})
	}
	for _, tr := range insights.Trends {
		resp.Trends = append(resp.Trends, trendResponse{
			CategoryID:    tr.CategoryID,
			Name:          tr.Name,
			CurrentCents:  tr.CurrentCents,
			PreviousCents: tr.PreviousCents,
			ChangePercent: tr.ChangePercent,
			Direction:     tr.Direction,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

package http

import (
	"net/http"

	"finbook/internal/core"
)

func (s *Server) handleProcessRecurring(w http.ResponseWriter, r *http.Request) {
	result, err := s.processor.ProcessDue(r.Context(), timeNow())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{
		"processed": result.Processed,
		"created":   result.Created,
	})
}

func (s *Server) handleDetectAutoPay(w http.ResponseWriter, r *http.Request) {
	matched, err := s.matcher.Run(r.Context(), timeNow())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"matched": matched})
}

type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name, Type: string(c.Type)})
	}
	respondJSON(w, http.StatusOK, out)
}

type createCategoryRequest struct {
	Name string `json:"name"`
	Type string `json:"type"` // expense or income
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	created, err := s.categories.CreateCategory(r.Context(), core.Category{
		Name: sanitizeInput(req.Name),
		Type: core.CategoryType(req.Type),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, categoryResponse{
		ID: created.ID, Name: created.Name, Type: string(created.Type),
	})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.categories.DeleteCategory(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

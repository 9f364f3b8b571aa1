// Package handler exposes the pattern catalog over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/hearthfin/hearth/internal/domain/common"
	"github.com/hearthfin/hearth/internal/domain/patterns"
	patternservice "github.com/hearthfin/hearth/internal/domain/patterns/service"
	"github.com/hearthfin/hearth/pkg/middleware"
)

// PatternHandler handles pattern catalog endpoints.
type PatternHandler struct {
	svc    *patternservice.PatternService
	logger *slog.Logger
}

// NewPatternHandler constructs the pattern handler.
func NewPatternHandler(svc *patternservice.PatternService, logger *slog.Logger) *PatternHandler {
	return &PatternHandler{svc: svc, logger: logger}
}

// List handles GET /v1/patterns.
func (h *PatternHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID, ok := middleware.GetHouseholdID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	catalog, err := h.svc.List(r.Context(), householdID)
	if err != nil {
		h.logger.Error("failed to list patterns", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "failed to list patterns")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"patterns": catalog,
		"count":    len(catalog),
	})
}

// Feedback handles POST /v1/patterns/feedback.
func (h *PatternHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	householdID, ok := middleware.GetHouseholdID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		PatternID uuid.UUID         `json:"pattern_id"`
		Feedback  patterns.Feedback `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.Feedback {
	case patterns.FeedbackCorrect, patterns.FeedbackIncorrect, patterns.FeedbackPartial:
	default:
		middleware.WriteError(w, http.StatusBadRequest, "feedback must be correct, incorrect, or partial")
		return
	}

	p, err := h.svc.Feedback(r.Context(), householdID, req.PatternID, req.Feedback)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "pattern not found")
			return
		}
		h.logger.Error("failed to apply feedback", "pattern_id", req.PatternID, "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "failed to apply feedback")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, p)
}

// Merge handles POST /v1/patterns/merge.
func (h *PatternHandler) Merge(w http.ResponseWriter, r *http.Request) {
	householdID, ok := middleware.GetHouseholdID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		PatternA uuid.UUID `json:"pattern_a"`
		PatternB uuid.UUID `json:"pattern_b"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PatternA == req.PatternB {
		middleware.WriteError(w, http.StatusBadRequest, "cannot merge a pattern with itself")
		return
	}

	merged, err := h.svc.MergePatterns(r.Context(), householdID, req.PatternA, req.PatternB)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			middleware.WriteError(w, http.StatusNotFound, "pattern not found")
		case errors.Is(err, common.ErrBadRequest):
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to merge patterns", "error", err)
			middleware.WriteError(w, http.StatusInternalServerError, "failed to merge patterns")
		}
		return
	}

	middleware.WriteJSON(w, http.StatusOK, merged)
}

// Delete handles DELETE /v1/patterns/{id}.
func (h *PatternHandler) Delete(w http.ResponseWriter, r *http.Request) {
	householdID, ok := middleware.GetHouseholdID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid pattern id")
		return
	}

	if err := h.svc.DeletePattern(r.Context(), householdID, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "pattern not found")
			return
		}
		h.logger.Error("failed to delete pattern", "pattern_id", id, "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "failed to delete pattern")
		return
	}

	middleware.WriteJSON(w, http.StatusNoContent, nil)
}

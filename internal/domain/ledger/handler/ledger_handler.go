// Package handler exposes transaction queries and classification over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/hearthfin/hearth/internal/domain/common"
	"github.com/hearthfin/hearth/internal/domain/ledger"
	ledgerservice "github.com/hearthfin/hearth/internal/domain/ledger/service"
	"github.com/hearthfin/hearth/internal/domain/patterns"
	"github.com/hearthfin/hearth/pkg/middleware"
)

// LedgerHandler handles transaction endpoints.
type LedgerHandler struct {
	svc    *ledgerservice.LedgerService
	logger *slog.Logger
}

// NewLedgerHandler constructs the transaction handler.
func NewLedgerHandler(svc *ledgerservice.LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, logger: logger}
}

// ListTransactions handles GET /v1/transactions.
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	householdID, ok := middleware.GetHouseholdID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	txs, err := h.svc.ListTransactions(r.Context(), householdID)
	if err != nil {
		h.logger.Error("failed to list transactions", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if txs == nil {
		txs = []*ledger.Transaction{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"count":        len(txs),
	})
}

// Classify handles POST /v1/transactions/{id}/classify: apply a user
// correction and feed it into the pattern learner.
func (h *LedgerHandler) Classify(w http.ResponseWriter, r *http.Request) {
	householdID, ok := middleware.GetHouseholdID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var c patterns.Classification
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !ledger.ValidType(c.Type) {
		middleware.WriteError(w, http.StatusBadRequest, "invalid transaction type")
		return
	}
	if c.Category == "" {
		middleware.WriteError(w, http.StatusBadRequest, "category is required")
		return
	}

	tx, err := h.svc.Classify(r.Context(), householdID, id, c)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "transaction not found")
			return
		}
		h.logger.Error("failed to classify transaction", "transaction_id", id, "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "failed to classify transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /v1/transactions/{id}.
func (h *LedgerHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	householdID, ok := middleware.GetHouseholdID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := h.svc.DeleteTransaction(r.Context(), householdID, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "transaction not found")
			return
		}
		h.logger.Error("failed to delete transaction", "transaction_id", id, "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusNoContent, nil)
}

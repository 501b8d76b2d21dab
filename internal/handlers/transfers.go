package handlers

import (
	"encoding/json"
	"net/http"

	"bankbot/internal/middleware"
	"bankbot/internal/money"

	"github.com/go-chi/chi/v5"
)

type proposeTransferRequest struct {
	RecipientID int64  `json:"recipient_id"`
	Amount      string `json:"amount"`
}

func (h *Handler) ProposeTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req proposeTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amountMinor, err := money.ParseMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	proposed, err := h.engine.ProposeTransfer(r.Context(), userID, req.RecipientID, amountMinor)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"transfer_id":  proposed.ID,
		"recipient_id": proposed.RecipientID,
		"amount":       money.FormatMinor(proposed.AmountMinor),
		"fee":          money.FormatMinor(proposed.FeeMinor),
		"total":        money.FormatMinor(proposed.TotalMinor),
		"expires_at":   proposed.ExpiresAt,
	})
}

func (h *Handler) ConfirmTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	result, err := h.engine.ConfirmTransfer(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transfer_id":  result.ID,
		"recipient_id": result.RecipientID,
		"amount":       money.FormatMinor(result.AmountMinor),
		"fee":          money.FormatMinor(result.FeeMinor),
		"balance":      money.FormatMinor(result.SenderBalanceMinor),
	})
}

func (h *Handler) CancelTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	cancelled, err := h.engine.CancelTransfer(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transfer_id": cancelled.ID,
		"status":      cancelled.Status,
	})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"bankbot/internal/middleware"
	"bankbot/internal/money"

	"bankbot/internal/store"
)

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	balance, err := h.engine.Balance(r.Context(), userID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"balance": money.FormatMinor(balance),
	})
}

func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	history, err := h.engine.History(r.Context(), userID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, historyToMaps(history))
}

func historyToMaps(history []store.Transaction) []map[string]any {
	rows := make([]map[string]any, 0, len(history))
	for _, record := range history {
		details := json.RawMessage(record.Details)
		if record.Details == "" {
			details = json.RawMessage("{}")
		}
		rows = append(rows, map[string]any{
			"id":         record.ID,
			"kind":       record.Kind,
			"amount":     money.FormatMinor(record.AmountMinor),
			"details":    details,
			"created_at": record.CreatedAt,
		})
	}
	return rows
}

func (h *Handler) PoolStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.PoolStats(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"liquidity":             money.FormatMinor(stats.LiquidityMinor),
		"total_user_balance":    money.FormatMinor(stats.TotalUserBalanceMinor),
		"hourly_change_percent": stats.HourlyChangePercent,
	})
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	result, err := h.engine.Reconcile(r.Context(), userID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":    result.UserID,
		"balance":    money.FormatMinor(result.BalanceMinor),
		"logged_sum": money.FormatMinor(result.LoggedSumMinor),
		"consistent": result.Consistent,
	})
}

type adjustPoolRequest struct {
	Delta string `json:"delta"`
}

func (h *Handler) AdjustPool(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req adjustPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	delta, err := money.ParseMinor(req.Delta)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	amount, err := h.engine.AdjustPool(r.Context(), userID, delta)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"liquidity": money.FormatMinor(amount),
	})
}

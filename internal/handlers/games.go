package handlers

import (
	"encoding/json"
	"net/http"

	"bankbot/internal/middleware"
	"bankbot/internal/money"
)

func (h *Handler) ClaimGift(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	result, err := h.engine.ClaimGift(r.Context(), userID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"amount":  money.FormatMinor(result.AmountMinor),
		"balance": money.FormatMinor(result.BalanceMinor),
	})
}

type playWagerRequest struct {
	Bet string `json:"bet"`
}

func (h *Handler) PlayWager(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req playWagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	betMinor, err := money.ParseMinor(req.Bet)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_bet")
		return
	}
	result, err := h.engine.PlayWager(r.Context(), userID, betMinor)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"won":         result.Won,
		"pool_capped": result.PoolCapped,
		"bet":         money.FormatMinor(result.BetMinor),
		"payout":      money.FormatMinor(result.PayoutMinor),
		"net":         money.FormatMinor(result.NetMinor),
		"balance":     money.FormatMinor(result.BalanceMinor),
	})
}

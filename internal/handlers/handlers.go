package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"bankbot/internal/config"
	"bankbot/internal/services"
	"bankbot/internal/websocket"
)

type Handler struct {
	cfg    config.Config
	engine Engine
	hub    *websocket.Hub
}

func New(cfg config.Config, engine Engine, hub *websocket.Hub) *Handler {
	return &Handler{cfg: cfg, engine: engine, hub: hub}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondEngineError maps the engine taxonomy onto HTTP statuses.
func respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, services.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrAlreadyFinal):
		respondError(w, http.StatusConflict, "already_final")
	case errors.Is(err, services.ErrCooldownActive):
		respondError(w, http.StatusTooManyRequests, "cooldown_active")
	case errors.Is(err, services.ErrInsufficientFunds):
		respondError(w, http.StatusBadRequest, "insufficient_funds")
	case errors.Is(err, services.ErrInsufficientPoolFunds):
		respondError(w, http.StatusBadRequest, "insufficient_pool_funds")
	case errors.Is(err, services.ErrInsufficientCollateral):
		respondError(w, http.StatusBadRequest, "insufficient_collateral")
	case errors.Is(err, services.ErrInvalidBet):
		respondError(w, http.StatusBadRequest, "invalid_bet")
	case errors.Is(err, services.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid_amount")
	case errors.Is(err, services.ErrSelfTransfer):
		respondError(w, http.StatusBadRequest, "self_transfer")
	default:
		respondError(w, http.StatusInternalServerError, "storage_error")
	}
}

package handlers

import (
	"net/http"

	"bankbot/internal/auth"
	"bankbot/internal/websocket"
)

// WSBalances upgrades to a websocket pushing balance updates for the user
// identified by the token query parameter (browsers cannot set headers on
// websocket dials).
func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	userID, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, userID)
}

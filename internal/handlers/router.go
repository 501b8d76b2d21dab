package handlers

import (
	"net/http"

	"bankbot/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	auth := middleware.Auth(h.cfg.JWTSecret)
	router.Group(func(r chi.Router) {
		r.Use(auth)
		r.Get("/balance", h.GetBalance)
		r.Get("/history", h.ListHistory)
		r.Get("/pool", h.PoolStats)
		r.Get("/reconcile", h.Reconcile)
		r.Post("/pool/adjust", h.AdjustPool)
		r.Post("/transfers", h.ProposeTransfer)
		r.Post("/transfers/{id}/confirm", h.ConfirmTransfer)
		r.Post("/transfers/{id}/cancel", h.CancelTransfer)
		r.Post("/gift/claim", h.ClaimGift)
		r.Post("/wagers", h.PlayWager)
		r.Post("/loans", h.IssueLoan)
		r.Get("/loans", h.ListLoans)
		r.Post("/loans/{id}/repay", h.RepayLoan)
	})
	router.Get("/ws/balances", h.WSBalances)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}

package handlers

import (
	"encoding/json"
	"net/http"

	"bankbot/internal/middleware"
	"bankbot/internal/money"

	"github.com/go-chi/chi/v5"
)

type issueLoanRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) IssueLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req issueLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amountMinor, err := money.ParseMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	result, err := h.engine.IssueLoan(r.Context(), userID, amountMinor)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"loan_id":   result.Loan.ID,
		"principal": money.FormatMinor(result.Loan.PrincipalMinor),
		"interest":  money.FormatMinor(result.Loan.InterestMinor),
		"total_due": money.FormatMinor(result.Loan.TotalDueMinor),
		"balance":   money.FormatMinor(result.BalanceMinor),
	})
}

func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	loans, err := h.engine.OutstandingLoans(r.Context(), userID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	rows := make([]map[string]any, 0, len(loans))
	for _, loan := range loans {
		rows = append(rows, map[string]any{
			"loan_id":   loan.ID,
			"principal": money.FormatMinor(loan.PrincipalMinor),
			"interest":  money.FormatMinor(loan.InterestMinor),
			"total_due": money.FormatMinor(loan.TotalDueMinor),
			"issued_at": loan.IssuedAt,
		})
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) RepayLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	result, err := h.engine.RepayLoan(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"loan_id": result.LoanID,
		"paid":    money.FormatMinor(result.PaidMinor),
		"balance": money.FormatMinor(result.BalanceMinor),
	})
}

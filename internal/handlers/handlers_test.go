package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bankbot/internal/services"
	"bankbot/internal/store"

	"github.com/go-chi/chi/v5"
)

func TestGetBalance(t *testing.T) {
	handler := newTestHandler(stubEngine{
		balanceFn: func(_ context.Context, userID int64) (int64, error) {
			if userID != 42 {
				t.Fatalf("unexpected user id: %d", userID)
			}
			return 5100, nil
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/balance", nil)
	rr := authedRequest(t, handler.GetBalance, req, 42)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["balance"] != "51.00" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestGetBalanceUnauthorized(t *testing.T) {
	handler := newTestHandler(stubEngine{})
	req := httptest.NewRequest(http.MethodGet, "/balance", nil)
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rr.Code)
	}
}

func TestProposeTransferParsesAmount(t *testing.T) {
	handler := newTestHandler(stubEngine{
		proposeTransferFn: func(_ context.Context, senderID, recipientID, amountMinor int64) (services.ProposedTransfer, error) {
			if senderID != 42 || recipientID != 7 || amountMinor != 5000 {
				t.Fatalf("unexpected args: %d %d %d", senderID, recipientID, amountMinor)
			}
			return services.ProposedTransfer{ID: "req-1", RecipientID: 7, AmountMinor: 5000, FeeMinor: 100, TotalMinor: 5100}, nil
		},
	})
	body := strings.NewReader(`{"recipient_id":7,"amount":"50.00"}`)
	req := httptest.NewRequest(http.MethodPost, "/transfers", body)
	rr := authedRequest(t, handler.ProposeTransfer, req, 42)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["fee"] != "1.00" || payload["total"] != "51.00" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestProposeTransferRejectsBadAmount(t *testing.T) {
	handler := newTestHandler(stubEngine{
		proposeTransferFn: func(context.Context, int64, int64, int64) (services.ProposedTransfer, error) {
			t.Fatal("engine must not be called")
			return services.ProposedTransfer{}, nil
		},
	})
	body := strings.NewReader(`{"recipient_id":7,"amount":"50.001"}`)
	req := httptest.NewRequest(http.MethodPost, "/transfers", body)
	rr := authedRequest(t, handler.ProposeTransfer, req, 42)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestConfirmTransferErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrAlreadyFinal, http.StatusConflict},
		{services.ErrInsufficientFunds, http.StatusBadRequest},
		{services.ErrStorage, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		handler := newTestHandler(stubEngine{
			confirmTransferFn: func(context.Context, string, int64) (services.TransferResult, error) {
				return services.TransferResult{}, tc.err
			},
		})
		router := chi.NewRouter()
		router.Post("/transfers/{id}/confirm", handler.ConfirmTransfer)
		req := httptest.NewRequest(http.MethodPost, "/transfers/req-1/confirm", nil)
		rr := authedRequest(t, router.ServeHTTP, req, 42)
		if rr.Code != tc.code {
			t.Errorf("error %v: expected %d, got %d", tc.err, tc.code, rr.Code)
		}
	}
}

func TestClaimGiftCooldownStatus(t *testing.T) {
	handler := newTestHandler(stubEngine{
		claimGiftFn: func(context.Context, int64) (services.GiftResult, error) {
			return services.GiftResult{}, services.ErrCooldownActive
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/gift/claim", nil)
	rr := authedRequest(t, handler.ClaimGift, req, 42)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["error"] != "cooldown_active" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestPlayWagerRendersOutcome(t *testing.T) {
	handler := newTestHandler(stubEngine{
		playWagerFn: func(_ context.Context, userID, betMinor int64) (services.WagerResult, error) {
			if betMinor != 1000 {
				t.Fatalf("unexpected bet: %d", betMinor)
			}
			return services.WagerResult{Won: true, BetMinor: 1000, PayoutMinor: 2000, NetMinor: 1000, BalanceMinor: 11000}, nil
		},
	})
	body := strings.NewReader(`{"bet":"10.00"}`)
	req := httptest.NewRequest(http.MethodPost, "/wagers", body)
	rr := authedRequest(t, handler.PlayWager, req, 42)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["won"] != true || payload["payout"] != "20.00" || payload["balance"] != "110.00" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestListHistoryRendersDetails(t *testing.T) {
	handler := newTestHandler(stubEngine{
		historyFn: func(context.Context, int64) ([]store.Transaction, error) {
			return []store.Transaction{
				{ID: "tx-1", Kind: store.KindTransferOut, AmountMinor: -5100, Details: `{"transfer_id":"req-1"}`},
				{ID: "tx-2", Kind: store.KindDailyGift, AmountMinor: 75},
			}, nil
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	rr := authedRequest(t, handler.ListHistory, req, 42)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload []map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(payload) != 2 {
		t.Fatalf("unexpected payload: %#v", payload)
	}
	if payload[0]["amount"] != "-51.00" {
		t.Fatalf("unexpected amount: %#v", payload[0])
	}
	details, ok := payload[0]["details"].(map[string]any)
	if !ok || details["transfer_id"] != "req-1" {
		t.Fatalf("details must stay structured JSON: %#v", payload[0]["details"])
	}
}

func TestRepayLoanRoute(t *testing.T) {
	handler := newTestHandler(stubEngine{
		repayLoanFn: func(_ context.Context, loanID string, userID int64) (services.RepaymentResult, error) {
			if loanID != "loan-1" || userID != 42 {
				t.Fatalf("unexpected args: %q %d", loanID, userID)
			}
			return services.RepaymentResult{LoanID: "loan-1", PaidMinor: 3125, BalanceMinor: 1625}, nil
		},
	})
	router := chi.NewRouter()
	router.Post("/loans/{id}/repay", handler.RepayLoan)
	req := httptest.NewRequest(http.MethodPost, "/loans/loan-1/repay", nil)
	rr := authedRequest(t, router.ServeHTTP, req, 42)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["paid"] != "31.25" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(stubEngine{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

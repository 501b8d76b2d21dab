package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bankbot/internal/auth"
	"bankbot/internal/config"
	"bankbot/internal/middleware"
	"bankbot/internal/services"
	"bankbot/internal/store"
	"bankbot/internal/websocket"
)

type stubEngine struct {
	balanceFn          func(ctx context.Context, userID int64) (int64, error)
	historyFn          func(ctx context.Context, userID int64) ([]store.Transaction, error)
	poolStatsFn        func(ctx context.Context) (services.PoolStats, error)
	reconcileFn        func(ctx context.Context, userID int64) (services.ReconcileResult, error)
	adjustPoolFn       func(ctx context.Context, actorID, deltaMinor int64) (int64, error)
	proposeTransferFn  func(ctx context.Context, senderID, recipientID, amountMinor int64) (services.ProposedTransfer, error)
	confirmTransferFn  func(ctx context.Context, transferID string, requestingUserID int64) (services.TransferResult, error)
	cancelTransferFn   func(ctx context.Context, transferID string, requestingUserID int64) (store.TransferRequest, error)
	claimGiftFn        func(ctx context.Context, userID int64) (services.GiftResult, error)
	playWagerFn        func(ctx context.Context, userID, betMinor int64) (services.WagerResult, error)
	issueLoanFn        func(ctx context.Context, userID, amountMinor int64) (services.LoanResult, error)
	repayLoanFn        func(ctx context.Context, loanID string, userID int64) (services.RepaymentResult, error)
	outstandingLoansFn func(ctx context.Context, userID int64) ([]store.Loan, error)
}

func (s stubEngine) Balance(ctx context.Context, userID int64) (int64, error) {
	if s.balanceFn == nil {
		return 0, nil
	}
	return s.balanceFn(ctx, userID)
}

func (s stubEngine) History(ctx context.Context, userID int64) ([]store.Transaction, error) {
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(ctx, userID)
}

func (s stubEngine) PoolStats(ctx context.Context) (services.PoolStats, error) {
	if s.poolStatsFn == nil {
		return services.PoolStats{}, nil
	}
	return s.poolStatsFn(ctx)
}

func (s stubEngine) Reconcile(ctx context.Context, userID int64) (services.ReconcileResult, error) {
	if s.reconcileFn == nil {
		return services.ReconcileResult{}, nil
	}
	return s.reconcileFn(ctx, userID)
}

func (s stubEngine) AdjustPool(ctx context.Context, actorID, deltaMinor int64) (int64, error) {
	if s.adjustPoolFn == nil {
		return 0, nil
	}
	return s.adjustPoolFn(ctx, actorID, deltaMinor)
}

func (s stubEngine) ProposeTransfer(ctx context.Context, senderID, recipientID, amountMinor int64) (services.ProposedTransfer, error) {
	if s.proposeTransferFn == nil {
		return services.ProposedTransfer{}, nil
	}
	return s.proposeTransferFn(ctx, senderID, recipientID, amountMinor)
}

func (s stubEngine) ConfirmTransfer(ctx context.Context, transferID string, requestingUserID int64) (services.TransferResult, error) {
	if s.confirmTransferFn == nil {
		return services.TransferResult{}, nil
	}
	return s.confirmTransferFn(ctx, transferID, requestingUserID)
}

func (s stubEngine) CancelTransfer(ctx context.Context, transferID string, requestingUserID int64) (store.TransferRequest, error) {
	if s.cancelTransferFn == nil {
		return store.TransferRequest{}, nil
	}
	return s.cancelTransferFn(ctx, transferID, requestingUserID)
}

func (s stubEngine) ClaimGift(ctx context.Context, userID int64) (services.GiftResult, error) {
	if s.claimGiftFn == nil {
		return services.GiftResult{}, nil
	}
	return s.claimGiftFn(ctx, userID)
}

func (s stubEngine) PlayWager(ctx context.Context, userID, betMinor int64) (services.WagerResult, error) {
	if s.playWagerFn == nil {
		return services.WagerResult{}, nil
	}
	return s.playWagerFn(ctx, userID, betMinor)
}

func (s stubEngine) IssueLoan(ctx context.Context, userID, amountMinor int64) (services.LoanResult, error) {
	if s.issueLoanFn == nil {
		return services.LoanResult{}, nil
	}
	return s.issueLoanFn(ctx, userID, amountMinor)
}

func (s stubEngine) RepayLoan(ctx context.Context, loanID string, userID int64) (services.RepaymentResult, error) {
	if s.repayLoanFn == nil {
		return services.RepaymentResult{}, nil
	}
	return s.repayLoanFn(ctx, loanID, userID)
}

func (s stubEngine) OutstandingLoans(ctx context.Context, userID int64) ([]store.Loan, error) {
	if s.outstandingLoansFn == nil {
		return nil, nil
	}
	return s.outstandingLoansFn(ctx, userID)
}

func newTestHandler(engine Engine) *Handler {
	cfg := config.Config{JWTSecret: "secret", AllowedOrigins: "*"}
	return New(cfg, engine, websocket.NewHub())
}

// authedRequest runs the request through the real auth middleware with a
// token for the given user.
func authedRequest(t *testing.T, handlerFn http.HandlerFunc, req *http.Request, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.IssueToken("secret", userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	middleware.Auth("secret")(handlerFn).ServeHTTP(rr, req)
	return rr
}

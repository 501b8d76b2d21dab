package handlers

import (
	"context"

	"bankbot/internal/services"
	"bankbot/internal/store"
)

// Engine is the ledger core the HTTP surface renders. The front-end owns
// formatting and status codes only; all validation and atomicity live behind
// this interface.
type Engine interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	History(ctx context.Context, userID int64) ([]store.Transaction, error)
	PoolStats(ctx context.Context) (services.PoolStats, error)
	Reconcile(ctx context.Context, userID int64) (services.ReconcileResult, error)
	AdjustPool(ctx context.Context, actorID, deltaMinor int64) (int64, error)
	ProposeTransfer(ctx context.Context, senderID, recipientID, amountMinor int64) (services.ProposedTransfer, error)
	ConfirmTransfer(ctx context.Context, transferID string, requestingUserID int64) (services.TransferResult, error)
	CancelTransfer(ctx context.Context, transferID string, requestingUserID int64) (store.TransferRequest, error)
	ClaimGift(ctx context.Context, userID int64) (services.GiftResult, error)
	PlayWager(ctx context.Context, userID, betMinor int64) (services.WagerResult, error)
	IssueLoan(ctx context.Context, userID, amountMinor int64) (services.LoanResult, error)
	RepayLoan(ctx context.Context, loanID string, userID int64) (services.RepaymentResult, error)
	OutstandingLoans(ctx context.Context, userID int64) ([]store.Loan, error)
}

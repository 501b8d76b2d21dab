package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"bankbot/internal/money"
	"bankbot/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type LoanResult struct {
	Loan         store.Loan
	BalanceMinor int64
}

type RepaymentResult struct {
	LoanID       string
	PaidMinor    int64
	BalanceMinor int64
}

// IssueLoan checks collateral against the current balance, credits the
// principal immediately and records the unpaid loan. A user may hold several
// unpaid loans at once.
func (e *Engine) IssueLoan(ctx context.Context, userID, amountMinor int64) (LoanResult, error) {
	if amountMinor <= 0 {
		return LoanResult{}, ErrInvalidAmount
	}
	required := money.RateOf(amountMinor, e.policy.LoanCollateralRate)
	interest := money.RateOf(amountMinor, e.policy.LoanInterestRate)

	var result LoanResult
	err := e.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		now := e.clock.Now()
		var current int64
		account, err := e.accounts.GetForUpdate(ctx, tx, userID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if err == nil {
			current = account.Balance
		}
		if current < required {
			return ErrInsufficientCollateral
		}
		loan := store.Loan{
			ID:             uuid.NewString(),
			BorrowerID:     userID,
			PrincipalMinor: amountMinor,
			InterestMinor:  interest,
			TotalDueMinor:  amountMinor + interest,
			IssuedAt:       now,
		}
		if err := e.loans.Create(ctx, tx, loan); err != nil {
			return err
		}
		balance, err := e.accounts.Credit(ctx, tx, userID, amountMinor)
		if err != nil {
			return err
		}
		details, _ := json.Marshal(map[string]string{"loan_id": loan.ID})
		if _, err := e.txLog.Append(ctx, tx, store.TransactionInput{
			UserID:      userID,
			Kind:        store.KindLoanIssue,
			AmountMinor: amountMinor,
			Details:     string(details),
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		result = LoanResult{Loan: loan, BalanceMinor: balance}
		return nil
	})
	if err != nil {
		return LoanResult{}, asEngineError(err)
	}
	e.broadcastBalance(userID, result.BalanceMinor)
	return result, nil
}

// RepayLoan settles an unpaid loan in full: debit principal+interest, flip
// paid, append the repayment record.
func (e *Engine) RepayLoan(ctx context.Context, loanID string, userID int64) (RepaymentResult, error) {
	var result RepaymentResult
	err := e.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		now := e.clock.Now()
		loan, err := e.loans.GetUnpaidForUpdate(ctx, tx, loanID, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		balance, err := e.accounts.Debit(ctx, tx, userID, loan.TotalDueMinor)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrInsufficientFunds
			}
			return err
		}
		rows, err := e.loans.MarkPaid(ctx, tx, loan.ID, userID)
		if err != nil {
			return err
		}
		if rows != 1 {
			return ErrNotFound
		}
		details, _ := json.Marshal(map[string]string{"loan_id": loan.ID})
		if _, err := e.txLog.Append(ctx, tx, store.TransactionInput{
			UserID:      userID,
			Kind:        store.KindLoanRepayment,
			AmountMinor: -loan.TotalDueMinor,
			Details:     string(details),
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		result = RepaymentResult{LoanID: loan.ID, PaidMinor: loan.TotalDueMinor, BalanceMinor: balance}
		return nil
	})
	if err != nil {
		return RepaymentResult{}, asEngineError(err)
	}
	e.broadcastBalance(userID, result.BalanceMinor)
	return result, nil
}

// OutstandingLoans lists the user's unpaid loans, oldest first.
func (e *Engine) OutstandingLoans(ctx context.Context, userID int64) ([]store.Loan, error) {
	loans, err := e.loans.ListOutstanding(ctx, userID)
	if err != nil {
		return nil, storageError(err)
	}
	return loans, nil
}

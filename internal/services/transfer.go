package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"bankbot/internal/money"
	"bankbot/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ProposedTransfer struct {
	ID          string
	SenderID    int64
	RecipientID int64
	AmountMinor int64
	FeeMinor    int64
	TotalMinor  int64
	ExpiresAt   time.Time
}

type TransferResult struct {
	ID                    string
	SenderID              int64
	RecipientID           int64
	AmountMinor           int64
	FeeMinor              int64
	SenderBalanceMinor    int64
	RecipientBalanceMinor int64
}

// ProposeTransfer creates a pending transfer request. The balance check here
// is advisory; settlement re-validates under lock because time passes between
// proposal and confirmation.
func (e *Engine) ProposeTransfer(ctx context.Context, senderID, recipientID, amountMinor int64) (ProposedTransfer, error) {
	if amountMinor <= 0 {
		return ProposedTransfer{}, ErrInvalidAmount
	}
	if recipientID == senderID {
		return ProposedTransfer{}, ErrSelfTransfer
	}
	fee := money.RateOf(amountMinor, e.policy.TransferFeeRate)
	total := amountMinor + fee
	balance, err := e.accounts.Balance(ctx, senderID)
	if err != nil {
		return ProposedTransfer{}, storageError(err)
	}
	if balance < total {
		return ProposedTransfer{}, ErrInsufficientFunds
	}
	now := e.clock.Now()
	req := store.TransferRequest{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: recipientID,
		AmountMinor: amountMinor,
		FeeMinor:    fee,
		Status:      store.TransferPending,
		CreatedAt:   now,
	}
	if err := e.transfers.Create(ctx, req); err != nil {
		return ProposedTransfer{}, storageError(err)
	}
	return ProposedTransfer{
		ID:          req.ID,
		SenderID:    senderID,
		RecipientID: recipientID,
		AmountMinor: amountMinor,
		FeeMinor:    fee,
		TotalMinor:  total,
		ExpiresAt:   now.Add(e.policy.TransferTTL),
	}, nil
}

// ConfirmTransfer settles a pending request as one atomic unit: debit sender
// by amount+fee, credit recipient by amount, credit pool by fee, append the
// transfer_out/transfer_in pair sharing the transfer id, mark settled. A
// request whose sender can no longer cover amount+fee is closed as cancelled
// instead of being left pending.
func (e *Engine) ConfirmTransfer(ctx context.Context, transferID string, requestingUserID int64) (TransferResult, error) {
	var result TransferResult
	var outcome error
	err := e.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		outcome = nil
		req, err := e.transfers.GetForUpdate(ctx, tx, transferID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if req.SenderID != requestingUserID {
			return ErrForbidden
		}
		if req.Status != store.TransferPending {
			return ErrAlreadyFinal
		}
		now := e.clock.Now()
		if now.Sub(req.CreatedAt) > e.policy.TransferTTL {
			if _, err := e.transfers.MarkTerminal(ctx, tx, req.ID, store.TransferExpired); err != nil {
				return err
			}
			outcome = ErrAlreadyFinal
			return nil
		}

		total := req.AmountMinor + req.FeeMinor
		senderBalance, err := e.accounts.Debit(ctx, tx, req.SenderID, total)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Balance drifted since proposal: close the request so it
				// cannot be retried against a stale fee quote.
				if _, err := e.transfers.MarkTerminal(ctx, tx, req.ID, store.TransferCancelled); err != nil {
					return err
				}
				outcome = ErrInsufficientFunds
				return nil
			}
			return err
		}
		recipientBalance, err := e.accounts.Credit(ctx, tx, req.RecipientID, req.AmountMinor)
		if err != nil {
			return err
		}
		if _, err := e.pool.Adjust(ctx, tx, req.FeeMinor, false, now); err != nil {
			return err
		}
		outDetails, _ := json.Marshal(map[string]any{
			"transfer_id":  req.ID,
			"recipient_id": req.RecipientID,
			"fee_minor":    req.FeeMinor,
		})
		if _, err := e.txLog.Append(ctx, tx, store.TransactionInput{
			UserID:      req.SenderID,
			Kind:        store.KindTransferOut,
			AmountMinor: -total,
			Details:     string(outDetails),
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		inDetails, _ := json.Marshal(map[string]any{
			"transfer_id": req.ID,
			"sender_id":   req.SenderID,
		})
		if _, err := e.txLog.Append(ctx, tx, store.TransactionInput{
			UserID:      req.RecipientID,
			Kind:        store.KindTransferIn,
			AmountMinor: req.AmountMinor,
			Details:     string(inDetails),
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		rows, err := e.transfers.MarkTerminal(ctx, tx, req.ID, store.TransferSettled)
		if err != nil {
			return err
		}
		if rows != 1 {
			return ErrAlreadyFinal
		}
		result = TransferResult{
			ID:                    req.ID,
			SenderID:              req.SenderID,
			RecipientID:           req.RecipientID,
			AmountMinor:           req.AmountMinor,
			FeeMinor:              req.FeeMinor,
			SenderBalanceMinor:    senderBalance,
			RecipientBalanceMinor: recipientBalance,
		}
		return nil
	})
	if err != nil {
		return TransferResult{}, asEngineError(err)
	}
	if outcome != nil {
		return TransferResult{}, outcome
	}
	e.broadcastBalance(result.SenderID, result.SenderBalanceMinor)
	e.broadcastBalance(result.RecipientID, result.RecipientBalanceMinor)
	return result, nil
}

// CancelTransfer closes a pending request. A request past its TTL is marked
// expired instead; either way a second close attempt reports ErrAlreadyFinal
// and changes nothing.
func (e *Engine) CancelTransfer(ctx context.Context, transferID string, requestingUserID int64) (store.TransferRequest, error) {
	var cancelled store.TransferRequest
	var outcome error
	err := e.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		outcome = nil
		req, err := e.transfers.GetForUpdate(ctx, tx, transferID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if req.SenderID != requestingUserID {
			return ErrForbidden
		}
		if req.Status != store.TransferPending {
			return ErrAlreadyFinal
		}
		status := store.TransferCancelled
		if e.clock.Now().Sub(req.CreatedAt) > e.policy.TransferTTL {
			status = store.TransferExpired
		}
		rows, err := e.transfers.MarkTerminal(ctx, tx, req.ID, status)
		if err != nil {
			return err
		}
		if rows != 1 {
			return ErrAlreadyFinal
		}
		if status == store.TransferExpired {
			outcome = ErrAlreadyFinal
			return nil
		}
		req.Status = status
		cancelled = req
		return nil
	})
	if err != nil {
		return store.TransferRequest{}, asEngineError(err)
	}
	if outcome != nil {
		return store.TransferRequest{}, outcome
	}
	return cancelled, nil
}

package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"bankbot/internal/store"

	"github.com/jmoiron/sqlx"
)

// poolOwnerID is the reserved owner of pool_adjust records. It is never a
// platform user id, so per-user log/balance reconciliation is unaffected.
const poolOwnerID int64 = 0

type PoolStats struct {
	LiquidityMinor        int64
	TotalUserBalanceMinor int64
	HourlyChangePercent   float64
}

type ReconcileResult struct {
	UserID         int64
	BalanceMinor   int64
	LoggedSumMinor int64
	Consistent     bool
}

// Balance reports the user's current balance; unknown users hold 0.
func (e *Engine) Balance(ctx context.Context, userID int64) (int64, error) {
	balance, err := e.accounts.Balance(ctx, userID)
	if err != nil {
		return 0, storageError(err)
	}
	return balance, nil
}

// History returns the user's transaction log in insertion order.
func (e *Engine) History(ctx context.Context, userID int64) ([]store.Transaction, error) {
	history, err := e.txLog.HistoryFor(ctx, userID)
	if err != nil {
		return nil, storageError(err)
	}
	return history, nil
}

// PoolStats reports pool liquidity, the sum of user balances and the pool's
// change over the last hour. Reporting only; nothing gates on these numbers.
func (e *Engine) PoolStats(ctx context.Context) (PoolStats, error) {
	liquidity, err := e.pool.Amount(ctx)
	if err != nil {
		return PoolStats{}, storageError(err)
	}
	total, err := e.accounts.TotalBalance(ctx)
	if err != nil {
		return PoolStats{}, storageError(err)
	}
	stats := PoolStats{LiquidityMinor: liquidity, TotalUserBalanceMinor: total}

	cutoff := e.clock.Now().Add(-time.Hour)
	hasBaseline, err := e.pool.HasSampleBefore(ctx, cutoff)
	if err != nil {
		return PoolStats{}, storageError(err)
	}
	if hasBaseline {
		recent, err := e.pool.DeltaSince(ctx, cutoff)
		if err != nil {
			return PoolStats{}, storageError(err)
		}
		past := liquidity - recent
		if past != 0 {
			stats.HourlyChangePercent = float64(liquidity-past) / float64(past) * 100
		}
	}
	return stats, nil
}

// Reconcile replays the user's logged amounts and compares them against the
// stored balance.
func (e *Engine) Reconcile(ctx context.Context, userID int64) (ReconcileResult, error) {
	balance, err := e.accounts.Balance(ctx, userID)
	if err != nil {
		return ReconcileResult{}, storageError(err)
	}
	sum, err := e.txLog.SumFor(ctx, userID)
	if err != nil {
		return ReconcileResult{}, storageError(err)
	}
	return ReconcileResult{
		UserID:         userID,
		BalanceMinor:   balance,
		LoggedSumMinor: sum,
		Consistent:     balance == sum,
	}, nil
}

// AdjustPool applies an operator adjustment to the pool and logs it. Negative
// deltas are payout-class: they may not drive the pool below zero.
func (e *Engine) AdjustPool(ctx context.Context, actorID, deltaMinor int64) (int64, error) {
	if deltaMinor == 0 {
		return 0, ErrInvalidAmount
	}
	var amount int64
	err := e.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		now := e.clock.Now()
		adjusted, err := e.pool.Adjust(ctx, tx, deltaMinor, deltaMinor < 0, now)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrInsufficientPoolFunds
			}
			return err
		}
		details, _ := json.Marshal(map[string]int64{"actor_id": actorID, "pool_after_minor": adjusted})
		// Owned by the reserved pool id so user reconciliation stays exact.
		if _, err := e.txLog.Append(ctx, tx, store.TransactionInput{
			UserID:      poolOwnerID,
			Kind:        store.KindPoolAdjust,
			AmountMinor: deltaMinor,
			Details:     string(details),
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		amount = adjusted
		return nil
	})
	if err != nil {
		return 0, asEngineError(err)
	}
	return amount, nil
}

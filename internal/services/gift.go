package services

import (
	"context"
	"database/sql"
	"errors"

	"bankbot/internal/store"

	"github.com/jmoiron/sqlx"
)

type GiftResult struct {
	AmountMinor  int64
	BalanceMinor int64
}

// ClaimGift credits a random gift once per rolling cooldown window. The
// credit, the cooldown stamp and the log append are one atomic unit; the
// cooldown guard lives in the upsert itself so two racing claims cannot both
// pass.
func (e *Engine) ClaimGift(ctx context.Context, userID int64) (GiftResult, error) {
	amount := e.policy.GiftMinMinor
	if span := e.policy.GiftMaxMinor - e.policy.GiftMinMinor; span > 0 {
		amount += e.rng.Int63n(span + 1)
	}
	var result GiftResult
	err := e.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		now := e.clock.Now()
		balance, err := e.accounts.ClaimGift(ctx, tx, userID, amount, now, now.Add(-e.policy.GiftCooldown))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCooldownActive
			}
			return err
		}
		if _, err := e.txLog.Append(ctx, tx, store.TransactionInput{
			UserID:      userID,
			Kind:        store.KindDailyGift,
			AmountMinor: amount,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		result = GiftResult{AmountMinor: amount, BalanceMinor: balance}
		return nil
	})
	if err != nil {
		return GiftResult{}, asEngineError(err)
	}
	e.broadcastBalance(userID, result.BalanceMinor)
	return result, nil
}

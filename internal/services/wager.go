package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"bankbot/internal/store"

	"github.com/jmoiron/sqlx"
)

type WagerResult struct {
	Won          bool
	PoolCapped   bool
	BetMinor     int64
	PayoutMinor  int64
	NetMinor     int64
	BalanceMinor int64
}

// PlayWager resolves a bet against pool liquidity. A winning draw whose 2x
// payout exceeds the current pool is deterministically overridden to a loss
// (PoolCapped); the pool never goes negative and there is no second draw.
func (e *Engine) PlayWager(ctx context.Context, userID, betMinor int64) (WagerResult, error) {
	if betMinor < e.policy.WagerMinMinor || betMinor > e.policy.WagerMaxMinor {
		return WagerResult{}, ErrInvalidBet
	}
	// Drawn outside the transaction so a serialization retry replays the
	// same outcome.
	drewWin := e.rng.Intn(100) < e.policy.WagerWinPercent

	var result WagerResult
	err := e.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		now := e.clock.Now()
		balance, err := e.accounts.Debit(ctx, tx, userID, betMinor)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrInsufficientFunds
			}
			return err
		}
		poolAmount, err := e.pool.AmountForUpdate(ctx, tx)
		if err != nil {
			return err
		}
		payout := 2 * betMinor
		won := drewWin
		capped := false
		if won && payout > poolAmount {
			won = false
			capped = true
		}
		if won {
			balance, err = e.accounts.Credit(ctx, tx, userID, payout)
			if err != nil {
				return err
			}
			if _, err := e.pool.Adjust(ctx, tx, -betMinor, true, now); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrInsufficientPoolFunds
				}
				return err
			}
			details, _ := json.Marshal(map[string]int64{"bet_minor": betMinor, "payout_minor": payout})
			if _, err := e.txLog.Append(ctx, tx, store.TransactionInput{
				UserID:      userID,
				Kind:        store.KindWagerWin,
				AmountMinor: betMinor,
				Details:     string(details),
				CreatedAt:   now,
			}); err != nil {
				return err
			}
			result = WagerResult{Won: true, BetMinor: betMinor, PayoutMinor: payout, NetMinor: betMinor, BalanceMinor: balance}
			return nil
		}
		if _, err := e.pool.Adjust(ctx, tx, betMinor, false, now); err != nil {
			return err
		}
		details, _ := json.Marshal(map[string]int64{"bet_minor": betMinor})
		if _, err := e.txLog.Append(ctx, tx, store.TransactionInput{
			UserID:      userID,
			Kind:        store.KindWagerLoss,
			AmountMinor: -betMinor,
			Details:     string(details),
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		result = WagerResult{Won: false, PoolCapped: capped, BetMinor: betMinor, NetMinor: -betMinor, BalanceMinor: balance}
		return nil
	})
	if err != nil {
		return WagerResult{}, asEngineError(err)
	}
	e.broadcastBalance(userID, result.BalanceMinor)
	return result, nil
}

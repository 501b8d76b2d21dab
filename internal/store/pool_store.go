package store

import (
	"context"
	"time"
)

// PoolStore owns the singleton liquidity pool. The pool row is seeded by the
// initial migration; every adjustment appends a history sample used for
// point-in-time reporting only.
type PoolStore struct {
	db DB
}

func NewPoolStore(db DB) *PoolStore {
	return &PoolStore{db: db}
}

func (s *PoolStore) Amount(ctx context.Context) (int64, error) {
	var amount int64
	err := s.db.GetContext(ctx, &amount, `SELECT amount_minor FROM pool WHERE id = 1`)
	return amount, err
}

func (s *PoolStore) AmountForUpdate(ctx context.Context, tx Getter) (int64, error) {
	var amount int64
	err := tx.GetContext(ctx, &amount, `SELECT amount_minor FROM pool WHERE id = 1 FOR UPDATE`)
	return amount, err
}

// Adjust applies deltaMinor to the pool and records a history sample. Payout
// adjustments carry a solvency guard: the statement affects no rows when the
// pool would go negative, surfacing as sql.ErrNoRows.
func (s *PoolStore) Adjust(ctx context.Context, tx Tx, deltaMinor int64, payout bool, at time.Time) (int64, error) {
	var amount int64
	err := tx.GetContext(ctx, &amount, `
		UPDATE pool
		SET amount_minor = amount_minor + $1
		WHERE id = 1 AND (NOT $2 OR amount_minor + $1 >= 0)
		RETURNING amount_minor
	`, deltaMinor, payout)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pool_history (delta_minor, created_at) VALUES ($1, $2)
	`, deltaMinor, at); err != nil {
		return 0, err
	}
	return amount, nil
}

// DeltaSince sums the pool movement strictly after cutoff.
func (s *PoolStore) DeltaSince(ctx context.Context, cutoff time.Time) (int64, error) {
	var delta int64
	err := s.db.GetContext(ctx, &delta, `
		SELECT COALESCE(SUM(delta_minor), 0) FROM pool_history WHERE created_at > $1
	`, cutoff)
	return delta, err
}

// HasSampleBefore reports whether any history exists at or before cutoff,
// i.e. whether a change percentage has a baseline at all.
func (s *PoolStore) HasSampleBefore(ctx context.Context, cutoff time.Time) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM pool_history WHERE created_at <= $1)
	`, cutoff)
	return exists, err
}

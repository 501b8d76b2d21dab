package store

import (
	"context"
	"time"
)

// AccountStore owns per-user balances. Accounts are created implicitly on the
// first credit (upsert) and every mutating statement carries its own
// non-negative-balance guard, so a check never races its mutation.
type AccountStore struct {
	db DB
}

type Account struct {
	UserID     int64      `db:"user_id"`
	Balance    int64      `db:"balance"`
	LastGiftAt *time.Time `db:"last_gift_at"`
	CreatedAt  time.Time  `db:"created_at"`
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

// Balance returns 0 for users that have never held funds.
func (s *AccountStore) Balance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := s.db.GetContext(ctx, &balance, `
		SELECT COALESCE((SELECT balance FROM accounts WHERE user_id = $1), 0)
	`, userID)
	return balance, err
}

func (s *AccountStore) Get(ctx context.Context, userID int64) (Account, error) {
	var row Account
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, balance, last_gift_at, created_at
		FROM accounts
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, userID int64) (Account, error) {
	var row Account
	err := tx.GetContext(ctx, &row, `
		SELECT user_id, balance, last_gift_at, created_at
		FROM accounts
		WHERE user_id = $1
		FOR UPDATE
	`, userID)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

// Credit upserts the account and returns the new balance.
func (s *AccountStore) Credit(ctx context.Context, tx Tx, userID, amountMinor int64) (int64, error) {
	var balance int64
	err := tx.GetContext(ctx, &balance, `
		INSERT INTO accounts (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = accounts.balance + EXCLUDED.balance, updated_at = NOW()
		RETURNING balance
	`, userID, amountMinor)
	return balance, err
}

// Debit subtracts amountMinor and returns the new balance. The statement
// affects no rows when the balance would go negative or the account does not
// exist; callers see that as sql.ErrNoRows.
func (s *AccountStore) Debit(ctx context.Context, tx Tx, userID, amountMinor int64) (int64, error) {
	var balance int64
	err := tx.GetContext(ctx, &balance, `
		UPDATE accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance - $2 >= 0
		RETURNING balance
	`, userID, amountMinor)
	return balance, err
}

// ClaimGift credits amountMinor and stamps last_gift_at in one statement.
// No rows are affected when the previous stamp is after cutoff, so two racing
// claims cannot both succeed.
func (s *AccountStore) ClaimGift(ctx context.Context, tx Tx, userID, amountMinor int64, at, cutoff time.Time) (int64, error) {
	var balance int64
	err := tx.GetContext(ctx, &balance, `
		INSERT INTO accounts (user_id, balance, last_gift_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = accounts.balance + EXCLUDED.balance,
		    last_gift_at = EXCLUDED.last_gift_at,
		    updated_at = NOW()
		WHERE accounts.last_gift_at IS NULL OR accounts.last_gift_at <= $4
		RETURNING balance
	`, userID, amountMinor, at, cutoff)
	return balance, err
}

// TotalBalance sums every account. Reporting only.
func (s *AccountStore) TotalBalance(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(balance), 0) FROM accounts
	`)
	return total, err
}

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Transaction kinds. Amounts are signed from the owner's perspective.
const (
	KindTransferOut   = "transfer_out"
	KindTransferIn    = "transfer_in"
	KindDailyGift     = "daily_gift"
	KindWagerWin      = "wager_win"
	KindWagerLoss     = "wager_loss"
	KindLoanIssue     = "loan_issue"
	KindLoanRepayment = "loan_repayment"
	KindPoolAdjust    = "pool_adjust"
)

// TransactionStore is the append-only audit log. There is no update or delete;
// insertion order (seq) is the canonical per-owner history order.
type TransactionStore struct {
	db DB
}

type Transaction struct {
	Seq         int64     `db:"seq"`
	ID          string    `db:"id"`
	UserID      int64     `db:"user_id"`
	Kind        string    `db:"kind"`
	AmountMinor int64     `db:"amount_minor"`
	Details     string    `db:"details"`
	CreatedAt   time.Time `db:"created_at"`
}

type TransactionInput struct {
	ID          string
	UserID      int64
	Kind        string
	AmountMinor int64
	Details     string
	CreatedAt   time.Time
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// Append persists one immutable record, assigning an id when the caller has
// not supplied one, and returns the id.
func (s *TransactionStore) Append(ctx context.Context, tx Execer, input TransactionInput) (string, error) {
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	details := input.Details
	if details == "" {
		details = "{}"
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, kind, amount_minor, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, input.ID, input.UserID, input.Kind, input.AmountMinor, details, input.CreatedAt)
	if err != nil {
		return "", err
	}
	return input.ID, nil
}

func (s *TransactionStore) HistoryFor(ctx context.Context, userID int64) ([]Transaction, error) {
	var rows []Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT seq, id, user_id, kind, amount_minor, details, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY seq ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) GetByID(ctx context.Context, id string) (Transaction, error) {
	var row Transaction
	err := s.db.GetContext(ctx, &row, `
		SELECT seq, id, user_id, kind, amount_minor, details, created_at
		FROM transactions
		WHERE id = $1
	`, id)
	if err != nil {
		return Transaction{}, err
	}
	return row, nil
}

// SumFor replays a user's logged amounts; used by the reconciliation check.
func (s *TransactionStore) SumFor(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount_minor), 0)
		FROM transactions
		WHERE user_id = $1
	`, userID)
	return sum, err
}

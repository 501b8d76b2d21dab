package store

import (
	"context"
	"time"
)

// Transfer request statuses. pending is the only non-terminal state.
const (
	TransferPending   = "pending"
	TransferSettled   = "settled"
	TransferCancelled = "cancelled"
	TransferExpired   = "expired"
)

type TransferStore struct {
	db DB
}

type TransferRequest struct {
	ID          string    `db:"id"`
	SenderID    int64     `db:"sender_id"`
	RecipientID int64     `db:"recipient_id"`
	AmountMinor int64     `db:"amount_minor"`
	FeeMinor    int64     `db:"fee_minor"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}

func NewTransferStore(db DB) *TransferStore {
	return &TransferStore{db: db}
}

func (s *TransferStore) Create(ctx context.Context, req TransferRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transfer_requests (id, sender_id, recipient_id, amount_minor, fee_minor, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, req.ID, req.SenderID, req.RecipientID, req.AmountMinor, req.FeeMinor, req.Status, req.CreatedAt)
	return err
}

func (s *TransferStore) Get(ctx context.Context, id string) (TransferRequest, error) {
	var row TransferRequest
	err := s.db.GetContext(ctx, &row, `
		SELECT id, sender_id, recipient_id, amount_minor, fee_minor, status, created_at
		FROM transfer_requests
		WHERE id = $1
	`, id)
	if err != nil {
		return TransferRequest{}, err
	}
	return row, nil
}

func (s *TransferStore) GetForUpdate(ctx context.Context, tx Getter, id string) (TransferRequest, error) {
	var row TransferRequest
	err := tx.GetContext(ctx, &row, `
		SELECT id, sender_id, recipient_id, amount_minor, fee_minor, status, created_at
		FROM transfer_requests
		WHERE id = $1
		FOR UPDATE
	`, id)
	if err != nil {
		return TransferRequest{}, err
	}
	return row, nil
}

// MarkTerminal moves a pending request to a terminal status. The pending
// guard in the statement means at most one terminal transition ever wins;
// the returned row count is 0 when the request was already final.
func (s *TransferStore) MarkTerminal(ctx context.Context, tx Execer, id, status string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE transfer_requests
		SET status = $2
		WHERE id = $1 AND status = 'pending'
	`, id, status)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package store

import (
	"context"
	"time"
)

type LoanStore struct {
	db DB
}

type Loan struct {
	ID             string    `db:"id"`
	BorrowerID     int64     `db:"borrower_id"`
	PrincipalMinor int64     `db:"principal_minor"`
	InterestMinor  int64     `db:"interest_minor"`
	TotalDueMinor  int64     `db:"total_due_minor"`
	Paid           bool      `db:"paid"`
	IssuedAt       time.Time `db:"issued_at"`
}

func NewLoanStore(db DB) *LoanStore {
	return &LoanStore{db: db}
}

func (s *LoanStore) Create(ctx context.Context, tx Execer, loan Loan) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO loans (id, borrower_id, principal_minor, interest_minor, total_due_minor, paid, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, loan.ID, loan.BorrowerID, loan.PrincipalMinor, loan.InterestMinor, loan.TotalDueMinor, loan.Paid, loan.IssuedAt)
	return err
}

// GetUnpaidForUpdate locks the borrower's unpaid loan for repayment. A paid
// or foreign loan surfaces as sql.ErrNoRows.
func (s *LoanStore) GetUnpaidForUpdate(ctx context.Context, tx Getter, id string, borrowerID int64) (Loan, error) {
	var row Loan
	err := tx.GetContext(ctx, &row, `
		SELECT id, borrower_id, principal_minor, interest_minor, total_due_minor, paid, issued_at
		FROM loans
		WHERE id = $1 AND borrower_id = $2 AND NOT paid
		FOR UPDATE
	`, id, borrowerID)
	if err != nil {
		return Loan{}, err
	}
	return row, nil
}

// MarkPaid flips paid exactly once; 0 rows means the loan was already repaid.
func (s *LoanStore) MarkPaid(ctx context.Context, tx Execer, id string, borrowerID int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE loans
		SET paid = TRUE
		WHERE id = $1 AND borrower_id = $2 AND NOT paid
	`, id, borrowerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *LoanStore) ListOutstanding(ctx context.Context, borrowerID int64) ([]Loan, error) {
	var rows []Loan
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, borrower_id, principal_minor, interest_minor, total_due_minor, paid, issued_at
		FROM loans
		WHERE borrower_id = $1 AND NOT paid
		ORDER BY issued_at ASC
	`, borrowerID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"
)

func TestLoanStoreCreate(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO loans") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 7 {
				t.Fatalf("expected 7 args, got %d", len(args))
			}
			if args[1] != int64(7) || args[2] != int64(2500) || args[3] != int64(625) || args[4] != int64(3125) || args[5] != false {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewLoanStore(stubDB{})
	err := store.Create(ctx, execer, Loan{
		ID: "loan-1", BorrowerID: 7,
		PrincipalMinor: 2500, InterestMinor: 625, TotalDueMinor: 3125,
		IssuedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoanStoreGetUnpaidForUpdateScopesBorrower(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "borrower_id = $2 AND NOT paid") || !strings.Contains(query, "FOR UPDATE") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 2 || args[0] != "loan-1" || args[1] != int64(7) {
				t.Fatalf("unexpected args: %#v", args)
			}
			return sql.ErrNoRows
		},
	}
	store := NewLoanStore(stubDB{})
	if _, err := store.GetUnpaidForUpdate(ctx, getter, "loan-1", 7); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows for a foreign or paid loan, got %v", err)
	}
}

func TestLoanStoreMarkPaidOnce(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "SET paid = TRUE") || !strings.Contains(query, "NOT paid") {
				t.Fatalf("unexpected query: %s", query)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewLoanStore(stubDB{})
	rows, err := store.MarkPaid(ctx, execer, "loan-1", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected exactly one transition, got %d", rows)
	}
}

func TestLoanStoreListOutstanding(t *testing.T) {
	ctx := context.Background()
	store := NewLoanStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "NOT paid") || !strings.Contains(query, "ORDER BY issued_at ASC") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*[]Loan) = []Loan{{ID: "loan-1"}}
			return nil
		},
	})
	rows, err := store.ListOutstanding(ctx, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "loan-1" {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

package services

import (
	"context"
	"math/rand"
	"time"

	"bankbot/internal/clock"
	"bankbot/internal/db"
	"bankbot/internal/money"
	"bankbot/internal/store"
	"bankbot/internal/websocket"

	"github.com/shopspring/decimal"
)

// Engine is the ledger and transfer core. Every operation validates against
// current state, mutates balances/pool/log as one atomic unit through the
// serializable TxRunner and returns either a result value or one taxonomy
// error.
type Engine struct {
	txRunner  db.TxRunner
	accounts  AccountStore
	pool      PoolStore
	txLog     TransactionStore
	transfers TransferStore
	loans     LoanStore
	hub       BalanceHub
	clock     clock.Clock
	rng       Rand
	policy    Policy
}

type AccountStore interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	GetForUpdate(ctx context.Context, tx store.Getter, userID int64) (store.Account, error)
	Credit(ctx context.Context, tx store.Tx, userID, amountMinor int64) (int64, error)
	Debit(ctx context.Context, tx store.Tx, userID, amountMinor int64) (int64, error)
	ClaimGift(ctx context.Context, tx store.Tx, userID, amountMinor int64, at, cutoff time.Time) (int64, error)
	TotalBalance(ctx context.Context) (int64, error)
}

type PoolStore interface {
	Amount(ctx context.Context) (int64, error)
	AmountForUpdate(ctx context.Context, tx store.Getter) (int64, error)
	Adjust(ctx context.Context, tx store.Tx, deltaMinor int64, payout bool, at time.Time) (int64, error)
	DeltaSince(ctx context.Context, cutoff time.Time) (int64, error)
	HasSampleBefore(ctx context.Context, cutoff time.Time) (bool, error)
}

type TransactionStore interface {
	Append(ctx context.Context, tx store.Execer, input store.TransactionInput) (string, error)
	HistoryFor(ctx context.Context, userID int64) ([]store.Transaction, error)
	SumFor(ctx context.Context, userID int64) (int64, error)
}

type TransferStore interface {
	Create(ctx context.Context, req store.TransferRequest) error
	Get(ctx context.Context, id string) (store.TransferRequest, error)
	GetForUpdate(ctx context.Context, tx store.Getter, id string) (store.TransferRequest, error)
	MarkTerminal(ctx context.Context, tx store.Execer, id, status string) (int64, error)
}

type LoanStore interface {
	Create(ctx context.Context, tx store.Execer, loan store.Loan) error
	GetUnpaidForUpdate(ctx context.Context, tx store.Getter, id string, borrowerID int64) (store.Loan, error)
	MarkPaid(ctx context.Context, tx store.Execer, id string, borrowerID int64) (int64, error)
	ListOutstanding(ctx context.Context, borrowerID int64) ([]store.Loan, error)
}

type BalanceHub interface {
	BroadcastBalance(userID int64, update websocket.BalanceUpdate)
}

// Rand is the randomness source for gift amounts and wager draws.
type Rand interface {
	Intn(n int) int
	Int63n(n int64) int64
}

type systemRand struct{}

func (systemRand) Intn(n int) int       { return rand.Intn(n) }
func (systemRand) Int63n(n int64) int64 { return rand.Int63n(n) }

// SystemRand returns the shared, lock-protected math/rand source.
func SystemRand() Rand { return systemRand{} }

// Policy carries the fixed rates and configurable limits of the engine.
type Policy struct {
	TransferFeeRate    decimal.Decimal
	TransferTTL        time.Duration
	GiftCooldown       time.Duration
	GiftMinMinor       int64
	GiftMaxMinor       int64
	WagerMinMinor      int64
	WagerMaxMinor      int64
	WagerWinPercent    int
	LoanInterestRate   decimal.Decimal
	LoanCollateralRate decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		TransferFeeRate:    decimal.RequireFromString("0.02"),
		TransferTTL:        15 * time.Minute,
		GiftCooldown:       24 * time.Hour,
		GiftMinMinor:       50,
		GiftMaxMinor:       100,
		WagerMinMinor:      100,
		WagerMaxMinor:      100000,
		WagerWinPercent:    25,
		LoanInterestRate:   decimal.RequireFromString("0.25"),
		LoanCollateralRate: decimal.RequireFromString("0.9"),
	}
}

func NewEngine(txRunner db.TxRunner, accounts AccountStore, pool PoolStore, txLog TransactionStore, transfers TransferStore, loans LoanStore, hub BalanceHub, clk clock.Clock, rng Rand, policy Policy) *Engine {
	return &Engine{
		txRunner:  txRunner,
		accounts:  accounts,
		pool:      pool,
		txLog:     txLog,
		transfers: transfers,
		loans:     loans,
		hub:       hub,
		clock:     clk,
		rng:       rng,
		policy:    policy,
	}
}

func (e *Engine) broadcastBalance(userID, balanceMinor int64) {
	e.hub.BroadcastBalance(userID, websocket.BalanceUpdate{
		UserID:  userID,
		Balance: money.FormatMinor(balanceMinor),
	})
}

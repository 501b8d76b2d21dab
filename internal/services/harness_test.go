package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"bankbot/internal/clock"
	"bankbot/internal/store"
	"bankbot/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// memState is a single-process stand-in for the database. The runner holds
// the mutex for the whole closure and rolls the state back on error, which
// mirrors what the serializable transaction gives the real engine. Store
// methods that take a tx argument are only ever called under the runner and
// must not lock again.
type memState struct {
	mu        sync.Mutex
	balances  map[int64]int64
	lastGift  map[int64]time.Time
	pool      int64
	history   []poolSample
	log       []store.Transaction
	transfers map[string]store.TransferRequest
	loans     map[string]store.Loan
	seq       int64
}

type poolSample struct {
	delta int64
	at    time.Time
}

func newMemState() *memState {
	return &memState{
		balances:  make(map[int64]int64),
		lastGift:  make(map[int64]time.Time),
		transfers: make(map[string]store.TransferRequest),
		loans:     make(map[string]store.Loan),
	}
}

type memSnapshot struct {
	balances  map[int64]int64
	lastGift  map[int64]time.Time
	pool      int64
	history   []poolSample
	log       []store.Transaction
	transfers map[string]store.TransferRequest
	loans     map[string]store.Loan
	seq       int64
}

func (s *memState) snapshot() memSnapshot {
	snap := memSnapshot{
		balances:  make(map[int64]int64, len(s.balances)),
		lastGift:  make(map[int64]time.Time, len(s.lastGift)),
		pool:      s.pool,
		history:   append([]poolSample(nil), s.history...),
		log:       append([]store.Transaction(nil), s.log...),
		transfers: make(map[string]store.TransferRequest, len(s.transfers)),
		loans:     make(map[string]store.Loan, len(s.loans)),
		seq:       s.seq,
	}
	for k, v := range s.balances {
		snap.balances[k] = v
	}
	for k, v := range s.lastGift {
		snap.lastGift[k] = v
	}
	for k, v := range s.transfers {
		snap.transfers[k] = v
	}
	for k, v := range s.loans {
		snap.loans[k] = v
	}
	return snap
}

func (s *memState) restore(snap memSnapshot) {
	s.balances = snap.balances
	s.lastGift = snap.lastGift
	s.pool = snap.pool
	s.history = snap.history
	s.log = snap.log
	s.transfers = snap.transfers
	s.loans = snap.loans
	s.seq = snap.seq
}

type memTxRunner struct {
	state *memState
}

func (r memTxRunner) WithTx(_ context.Context, fn func(*sqlx.Tx) error) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	snap := r.state.snapshot()
	if err := fn(nil); err != nil {
		r.state.restore(snap)
		return err
	}
	return nil
}

type memAccounts struct{ state *memState }

func (m memAccounts) Balance(_ context.Context, userID int64) (int64, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	return m.state.balances[userID], nil
}

func (m memAccounts) GetForUpdate(_ context.Context, _ store.Getter, userID int64) (store.Account, error) {
	balance, ok := m.state.balances[userID]
	if !ok {
		return store.Account{}, sql.ErrNoRows
	}
	account := store.Account{UserID: userID, Balance: balance}
	if last, ok := m.state.lastGift[userID]; ok {
		account.LastGiftAt = &last
	}
	return account, nil
}

func (m memAccounts) Credit(_ context.Context, _ store.Tx, userID, amountMinor int64) (int64, error) {
	m.state.balances[userID] += amountMinor
	return m.state.balances[userID], nil
}

func (m memAccounts) Debit(_ context.Context, _ store.Tx, userID, amountMinor int64) (int64, error) {
	balance, ok := m.state.balances[userID]
	if !ok || balance-amountMinor < 0 {
		return 0, sql.ErrNoRows
	}
	m.state.balances[userID] = balance - amountMinor
	return m.state.balances[userID], nil
}

func (m memAccounts) ClaimGift(_ context.Context, _ store.Tx, userID, amountMinor int64, at, cutoff time.Time) (int64, error) {
	if last, ok := m.state.lastGift[userID]; ok && last.After(cutoff) {
		return 0, sql.ErrNoRows
	}
	m.state.balances[userID] += amountMinor
	m.state.lastGift[userID] = at
	return m.state.balances[userID], nil
}

func (m memAccounts) TotalBalance(_ context.Context) (int64, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	var total int64
	for _, balance := range m.state.balances {
		total += balance
	}
	return total, nil
}

type memPool struct{ state *memState }

func (m memPool) Amount(_ context.Context) (int64, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	return m.state.pool, nil
}

func (m memPool) AmountForUpdate(_ context.Context, _ store.Getter) (int64, error) {
	return m.state.pool, nil
}

func (m memPool) Adjust(_ context.Context, _ store.Tx, deltaMinor int64, payout bool, at time.Time) (int64, error) {
	if payout && m.state.pool+deltaMinor < 0 {
		return 0, sql.ErrNoRows
	}
	m.state.pool += deltaMinor
	m.state.history = append(m.state.history, poolSample{delta: deltaMinor, at: at})
	return m.state.pool, nil
}

func (m memPool) DeltaSince(_ context.Context, cutoff time.Time) (int64, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	var delta int64
	for _, sample := range m.state.history {
		if sample.at.After(cutoff) {
			delta += sample.delta
		}
	}
	return delta, nil
}

func (m memPool) HasSampleBefore(_ context.Context, cutoff time.Time) (bool, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	for _, sample := range m.state.history {
		if !sample.at.After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

type memLog struct{ state *memState }

func (m memLog) Append(_ context.Context, _ store.Execer, input store.TransactionInput) (string, error) {
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.Details == "" {
		input.Details = "{}"
	}
	m.state.seq++
	m.state.log = append(m.state.log, store.Transaction{
		Seq:         m.state.seq,
		ID:          input.ID,
		UserID:      input.UserID,
		Kind:        input.Kind,
		AmountMinor: input.AmountMinor,
		Details:     input.Details,
		CreatedAt:   input.CreatedAt,
	})
	return input.ID, nil
}

func (m memLog) HistoryFor(_ context.Context, userID int64) ([]store.Transaction, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	var rows []store.Transaction
	for _, entry := range m.state.log {
		if entry.UserID == userID {
			rows = append(rows, entry)
		}
	}
	return rows, nil
}

func (m memLog) SumFor(_ context.Context, userID int64) (int64, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	var sum int64
	for _, entry := range m.state.log {
		if entry.UserID == userID {
			sum += entry.AmountMinor
		}
	}
	return sum, nil
}

type memTransfers struct{ state *memState }

func (m memTransfers) Create(_ context.Context, req store.TransferRequest) error {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	m.state.transfers[req.ID] = req
	return nil
}

func (m memTransfers) Get(_ context.Context, id string) (store.TransferRequest, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	req, ok := m.state.transfers[id]
	if !ok {
		return store.TransferRequest{}, sql.ErrNoRows
	}
	return req, nil
}

func (m memTransfers) GetForUpdate(_ context.Context, _ store.Getter, id string) (store.TransferRequest, error) {
	req, ok := m.state.transfers[id]
	if !ok {
		return store.TransferRequest{}, sql.ErrNoRows
	}
	return req, nil
}

func (m memTransfers) MarkTerminal(_ context.Context, _ store.Execer, id, status string) (int64, error) {
	req, ok := m.state.transfers[id]
	if !ok || req.Status != store.TransferPending {
		return 0, nil
	}
	req.Status = status
	m.state.transfers[id] = req
	return 1, nil
}

type memLoans struct{ state *memState }

func (m memLoans) Create(_ context.Context, _ store.Execer, loan store.Loan) error {
	m.state.loans[loan.ID] = loan
	return nil
}

func (m memLoans) GetUnpaidForUpdate(_ context.Context, _ store.Getter, id string, borrowerID int64) (store.Loan, error) {
	loan, ok := m.state.loans[id]
	if !ok || loan.BorrowerID != borrowerID || loan.Paid {
		return store.Loan{}, sql.ErrNoRows
	}
	return loan, nil
}

func (m memLoans) MarkPaid(_ context.Context, _ store.Execer, id string, borrowerID int64) (int64, error) {
	loan, ok := m.state.loans[id]
	if !ok || loan.BorrowerID != borrowerID || loan.Paid {
		return 0, nil
	}
	loan.Paid = true
	m.state.loans[id] = loan
	return 1, nil
}

func (m memLoans) ListOutstanding(_ context.Context, borrowerID int64) ([]store.Loan, error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	var rows []store.Loan
	for _, loan := range m.state.loans {
		if loan.BorrowerID == borrowerID && !loan.Paid {
			rows = append(rows, loan)
		}
	}
	return rows, nil
}

type stubHub struct {
	mu    sync.Mutex
	calls []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(_ int64, update websocket.BalanceUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, update)
}

type stubRand struct {
	intnFn   func(n int) int
	int63nFn func(n int64) int64
}

func (s stubRand) Intn(n int) int {
	if s.intnFn == nil {
		return 0
	}
	return s.intnFn(n)
}

func (s stubRand) Int63n(n int64) int64 {
	if s.int63nFn == nil {
		return 0
	}
	return s.int63nFn(n)
}

type testEngine struct {
	engine *Engine
	state  *memState
	clock  *clock.Fixed
	rng    *stubRand
	hub    *stubHub
}

func newTestEngine() *testEngine {
	state := newMemState()
	clk := clock.NewFixed(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	rng := &stubRand{}
	hub := &stubHub{}
	engine := NewEngine(
		memTxRunner{state: state},
		memAccounts{state: state},
		memPool{state: state},
		memLog{state: state},
		memTransfers{state: state},
		memLoans{state: state},
		hub, clk, rng, DefaultPolicy(),
	)
	return &testEngine{engine: engine, state: state, clock: clk, rng: rng, hub: hub}
}

// fund seeds a balance directly, bypassing the log. Reconciliation tests must
// fund through engine operations instead.
func (te *testEngine) fund(userID, amountMinor int64) {
	te.state.mu.Lock()
	defer te.state.mu.Unlock()
	te.state.balances[userID] = amountMinor
}

func (te *testEngine) balance(userID int64) int64 {
	te.state.mu.Lock()
	defer te.state.mu.Unlock()
	return te.state.balances[userID]
}

func (te *testEngine) poolAmount() int64 {
	te.state.mu.Lock()
	defer te.state.mu.Unlock()
	return te.state.pool
}

func (te *testEngine) seedPool(amountMinor int64) {
	te.state.mu.Lock()
	defer te.state.mu.Unlock()
	te.state.pool = amountMinor
}

func (te *testEngine) transferStatus(id string) string {
	te.state.mu.Lock()
	defer te.state.mu.Unlock()
	return te.state.transfers[id].Status
}

func (te *testEngine) logFor(userID int64) []store.Transaction {
	te.state.mu.Lock()
	defer te.state.mu.Unlock()
	var rows []store.Transaction
	for _, entry := range te.state.log {
		if entry.UserID == userID {
			rows = append(rows, entry)
		}
	}
	return rows
}

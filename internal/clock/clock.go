package clock

import (
	"sync"
	"time"
)

// Clock supplies wall-clock timestamps for cooldowns, expiry and audit records.
type Clock interface {
	Now() time.Time
}

// System reads the OS clock in a fixed zone and never goes backwards, even if
// the underlying wall clock is adjusted between reads.
type System struct {
	mu   sync.Mutex
	loc  *time.Location
	last time.Time
}

func NewSystem(timezone string) (*System, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &System{loc: loc}, nil
}

func (c *System) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().In(c.loc)
	if now.Before(c.last) {
		now = c.last
	}
	c.last = now
	return now
}

// Fixed is a manually advanced clock for tests.
type Fixed struct {
	mu      sync.Mutex
	current time.Time
}

func NewFixed(at time.Time) *Fixed {
	return &Fixed{current: at}
}

func (c *Fixed) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Fixed) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

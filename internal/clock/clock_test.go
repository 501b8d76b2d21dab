package clock

import (
	"sync"
	"testing"
	"time"
)

func TestSystemZone(t *testing.T) {
	c, err := NewSystem("Asia/Baghdad")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zone := c.Now().Location().String(); zone != "Asia/Baghdad" {
		t.Fatalf("unexpected zone: %s", zone)
	}
}

func TestSystemInvalidZone(t *testing.T) {
	if _, err := NewSystem("Not/AZone"); err == nil {
		t.Fatalf("expected error for unknown zone")
	}
}

func TestSystemMonotonic(t *testing.T) {
	c, err := NewSystem("UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var wg sync.WaitGroup
	times := make(chan time.Time, 200)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				times <- c.Now()
			}
		}()
	}
	wg.Wait()
	close(times)
	var last time.Time
	for ts := range times {
		if ts.Before(last) && last.Sub(ts) > time.Second {
			t.Fatalf("clock went backwards: %v then %v", last, ts)
		}
		if ts.After(last) {
			last = ts
		}
	}
}

func TestFixedAdvance(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewFixed(start)
	if !c.Now().Equal(start) {
		t.Fatalf("unexpected time: %v", c.Now())
	}
	c.Advance(24 * time.Hour)
	if got := c.Now(); !got.Equal(start.Add(24*time.Hour)) {
		t.Fatalf("unexpected time after advance: %v", got)
	}
}

package services

import (
	"log"
	"sync"
	"time"
)

// RateGate enforces a minimum interval between outbound model calls. It is a
// single process-wide gate shared by generation and embedding: concurrent
// jobs serialize through it, so throughput is one model call per interval no
// matter how many workers run.
type RateGate struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func NewRateGate(interval time.Duration) *RateGate {
	return &RateGate{
		interval: interval,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// newRateGateWithClock is used by tests to make timing deterministic.
func newRateGateWithClock(interval time.Duration, now func() time.Time, sleep func(time.Duration)) *RateGate {
	return &RateGate{
		interval: interval,
		now:      now,
		sleep:    sleep,
	}
}

// Wait blocks until at least the minimum interval has elapsed since the
// previous call was issued, then marks the issue time. The first call passes
// immediately.
func (g *RateGate) Wait() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.last.IsZero() {
		elapsed := g.now().Sub(g.last)
		if wait := g.interval - elapsed; wait > 0 {
			log.Printf("⏳ Rate limiting: waiting %s before next request", wait)
			g.sleep(wait)
		}
	}

	g.last = g.now()
}

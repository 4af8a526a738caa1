package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Pacer is the sequential specialization of Window: a fixed delay between
// consecutive calls, computed from a safe requests-per-second rate. Used by
// single-caller pipelines where a full sliding window is overkill.
type Pacer struct {
	delay time.Duration

	mu   sync.Mutex
	last time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer from a safe rate in requests per second.
func NewPacer(safeRate float64) *Pacer {
	if safeRate <= 0 {
		safeRate = 1
	}
	return &Pacer{
		delay: time.Duration(float64(time.Second) / safeRate),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Acquire blocks until the fixed inter-call delay has elapsed since the
// previous dispatch, then records the new dispatch time.
func (p *Pacer) Acquire(ctx context.Context) error {
	p.mu.Lock()
	now := p.now()
	var wait time.Duration
	if !p.last.IsZero() {
		if elapsed := now.Sub(p.last); elapsed < p.delay {
			wait = p.delay - elapsed
		}
	}
	p.last = now.Add(wait)
	p.mu.Unlock()

	if wait > 0 {
		return p.sleep(ctx, wait)
	}
	return nil
}

// Delay returns the configured inter-call delay.
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

// Package ratelimit bounds outbound API call rates. Window enforces a
// sliding-window ceiling shared by concurrent workers, Pacer spaces out
// strictly sequential callers, and Adaptive self-tunes a token bucket from
// 429 feedback.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window enforces "at most limit dispatches per trailing period",
// independent of how many workers share it. Workers call Acquire before each
// dispatch; the call blocks until a slot is free.
//
// A headroom margin keeps the observed count below the hard ceiling so a
// provider-side clock skew never tips a run over quota.
type Window struct {
	limit    int
	period   time.Duration
	headroom int

	mu     sync.Mutex
	stamps []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultHeadroom is the number of slots left unused below the ceiling.
const DefaultHeadroom = 10

// NewWindow creates a sliding-window limiter. Headroom is clamped so at
// least one slot remains usable.
func NewWindow(limit int, period time.Duration, headroom int) *Window {
	if headroom >= limit {
		headroom = limit - 1
	}
	if headroom < 0 {
		headroom = 0
	}
	return &Window{
		limit:    limit,
		period:   period,
		headroom: headroom,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Acquire blocks until a dispatch slot is available, then records the
// dispatch timestamp. Slot accounting and window pruning happen under one
// lock, so two workers can never claim the same slot.
func (w *Window) Acquire(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := w.now()
		w.prune(now)

		if len(w.stamps) < w.limit-w.headroom {
			w.stamps = append(w.stamps, now)
			w.mu.Unlock()
			return nil
		}

		// Full: wait for the oldest entry to exit the window.
		wait := w.period - now.Sub(w.stamps[0])
		w.mu.Unlock()

		if wait <= 0 {
			continue
		}
		if err := w.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// InFlight returns the number of dispatches recorded in the trailing period.
func (w *Window) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	return len(w.stamps)
}

// prune drops timestamps older than the trailing period. Callers hold w.mu.
func (w *Window) prune(now time.Time) {
	cut := 0
	for cut < len(w.stamps) && now.Sub(w.stamps[cut]) >= w.period {
		cut++
	}
	if cut > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[cut:]...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

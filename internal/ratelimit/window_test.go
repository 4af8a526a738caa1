package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock advances only when sleep is called, so window behavior is
// tested without wall-clock waits.
type fakeClock struct {
	mu  sync.Mutex
	t   time.Time
	log []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	c.log = append(c.log, d)
	return nil
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestWindow(limit int, period time.Duration, headroom int) (*Window, *fakeClock) {
	clock := newFakeClock()
	w := NewWindow(limit, period, headroom)
	w.now = clock.now
	w.sleep = clock.sleep
	return w, clock
}

func TestWindow_AllowsUpToEffectiveLimit(t *testing.T) {
	w, clock := newTestWindow(5, 10*time.Second, 2)

	for i := 0; i < 3; i++ {
		if err := w.Acquire(context.Background()); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if got := w.InFlight(); got != 3 {
		t.Errorf("expected 3 in flight, got %d", got)
	}
	if len(clock.log) != 0 {
		t.Errorf("expected no sleeps below the effective limit, got %v", clock.log)
	}
}

func TestWindow_BlocksAtCeilingThenAdmits(t *testing.T) {
	w, clock := newTestWindow(3, 10*time.Second, 0)

	for i := 0; i < 3; i++ {
		if err := w.Acquire(context.Background()); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}

	// The fourth acquire must wait until the oldest stamp ages out.
	if err := w.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire over ceiling: %v", err)
	}
	if len(clock.log) == 0 {
		t.Fatal("expected a sleep before the over-ceiling acquire")
	}
	if clock.log[0] != 10*time.Second {
		t.Errorf("expected 10s wait, got %v", clock.log[0])
	}
}

func TestWindow_SlotsFreeAsTimePasses(t *testing.T) {
	w, clock := newTestWindow(2, 10*time.Second, 0)

	_ = w.Acquire(context.Background())
	_ = w.Acquire(context.Background())

	clock.advance(11 * time.Second)
	if got := w.InFlight(); got != 0 {
		t.Errorf("expected pruned window, got %d in flight", got)
	}

	if err := w.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after prune: %v", err)
	}
	if len(clock.log) != 0 {
		t.Errorf("expected no sleep after prune, got %v", clock.log)
	}
}

func TestWindow_CancelledContext(t *testing.T) {
	w, _ := newTestWindow(1, 10*time.Second, 0)
	w.sleep = sleepCtx // real sleep so cancellation is exercised

	_ = w.Acquire(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Acquire(ctx); err == nil {
		t.Fatal("expected context error when window is full")
	}
}

func TestWindow_HeadroomClamped(t *testing.T) {
	w, _ := newTestWindow(2, time.Second, 5)
	// Headroom larger than the limit still leaves one usable slot.
	if err := w.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
}

func TestWindow_ConcurrentAcquires(t *testing.T) {
	w := NewWindow(100, time.Second, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Acquire(context.Background())
		}()
	}
	wg.Wait()

	if got := w.InFlight(); got != 50 {
		t.Errorf("expected 50 recorded dispatches, got %d", got)
	}
}

package enrich

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func newTestExecutor(p Policy) *Executor {
	e := NewExecutor(p)
	e.sleep = noSleep
	return e
}

func TestExecutor_SuccessFirstAttempt(t *testing.T) {
	e := newTestExecutor(Policy{})

	var calls int
	out := e.Run(context.Background(), "acme.com", func(_ context.Context, _ string) (map[string]string, error) {
		calls++
		return map[string]string{"score": "90"}, nil
	})

	if out.Status != StatusSuccess {
		t.Fatalf("expected success, got %s", out.Status)
	}
	if calls != 1 || out.Attempts != 1 {
		t.Errorf("expected 1 attempt, got calls=%d attempts=%d", calls, out.Attempts)
	}
	if out.Payload["score"] != "90" {
		t.Errorf("payload lost: %v", out.Payload)
	}
}

func TestExecutor_RetriesTransientThenSucceeds(t *testing.T) {
	e := newTestExecutor(Policy{MaxAttempts: 3})

	var calls int
	out := e.Run(context.Background(), "acme.com", func(_ context.Context, _ string) (map[string]string, error) {
		calls++
		if calls < 3 {
			return nil, NewStatusError(http.StatusTooManyRequests, "")
		}
		return map[string]string{}, nil
	})

	if out.Status != StatusSuccess {
		t.Fatalf("expected success after retries, got %s", out.Status)
	}
	if calls != 3 || out.Attempts != 3 {
		t.Errorf("expected 3 attempts, got calls=%d attempts=%d", calls, out.Attempts)
	}
}

func TestExecutor_PermanentStopsImmediately(t *testing.T) {
	e := newTestExecutor(Policy{MaxAttempts: 3})

	var calls int
	out := e.Run(context.Background(), "acme.com", func(_ context.Context, _ string) (map[string]string, error) {
		calls++
		return nil, NewStatusError(http.StatusNotFound, "")
	})

	if out.Status != StatusPermanent || out.Kind != KindInvalid {
		t.Fatalf("expected permanent/invalid, got %s/%s", out.Status, out.Kind)
	}
	if calls != 1 {
		t.Errorf("permanent failure must not retry, got %d calls", calls)
	}
}

func TestExecutor_NotFoundStopsImmediately(t *testing.T) {
	e := newTestExecutor(Policy{MaxAttempts: 3})

	var calls int
	out := e.Run(context.Background(), "acme.com", func(_ context.Context, _ string) (map[string]string, error) {
		calls++
		return nil, ErrNotFound
	})

	if out.Status != StatusNotFound {
		t.Fatalf("expected not_found, got %s", out.Status)
	}
	if calls != 1 {
		t.Errorf("not_found must not retry, got %d calls", calls)
	}
}

func TestExecutor_ExhaustionBecomesPermanentKeepingKind(t *testing.T) {
	e := newTestExecutor(Policy{MaxAttempts: 2})

	out := e.Run(context.Background(), "acme.com", func(_ context.Context, _ string) (map[string]string, error) {
		return nil, NewStatusError(http.StatusServiceUnavailable, "")
	})

	if out.Status != StatusPermanent {
		t.Fatalf("expected permanent after exhaustion, got %s", out.Status)
	}
	if out.Kind != KindServerError {
		t.Errorf("kind must survive exhaustion, got %s", out.Kind)
	}
	if out.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", out.Attempts)
	}
}

func TestExecutor_CancelledContextStopsRetrying(t *testing.T) {
	e := NewExecutor(Policy{MaxAttempts: 5, InitialBackoff: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	out := e.Run(ctx, "acme.com", func(_ context.Context, _ string) (map[string]string, error) {
		calls++
		cancel()
		return nil, errors.New("flaky")
	})

	if out.Status != StatusPermanent {
		t.Fatalf("expected permanent after cancel, got %s", out.Status)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancel took effect, got %d", calls)
	}
}

func TestExecutor_PanicBecomesPermanent(t *testing.T) {
	e := newTestExecutor(Policy{MaxAttempts: 3})

	out := e.Run(context.Background(), "acme.com", func(_ context.Context, _ string) (map[string]string, error) {
		panic("boom")
	})

	if out.Status != StatusPermanent || out.Kind != KindUnknown {
		t.Fatalf("expected permanent/unknown after panic, got %s/%s", out.Status, out.Kind)
	}
}

func TestExecutor_RateLimitBackoffBase(t *testing.T) {
	e := NewExecutor(Policy{
		MaxAttempts:      3,
		RateLimitBackoff: 8 * time.Second,
		JitterFraction:   0,
	})

	var slept []time.Duration
	e.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	_ = e.Run(context.Background(), "acme.com", func(_ context.Context, _ string) (map[string]string, error) {
		return nil, NewStatusError(http.StatusTooManyRequests, "")
	})

	if len(slept) != 2 {
		t.Fatalf("expected 2 backoffs, got %v", slept)
	}
	if slept[0] != 8*time.Second || slept[1] != 16*time.Second {
		t.Errorf("expected doubling from the rate-limit base, got %v", slept)
	}
}

func TestExecutor_TimeoutGrowsPerAttempt(t *testing.T) {
	e := newTestExecutor(Policy{
		MaxAttempts:   3,
		Timeout:       10 * time.Second,
		TimeoutGrowth: 1.5,
	})

	var timeouts []time.Duration
	_ = e.Run(context.Background(), "slow.example.com", func(ctx context.Context, _ string) (map[string]string, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			t.Fatal("attempt context has no deadline")
		}
		timeouts = append(timeouts, time.Until(deadline))
		return nil, NewStatusError(http.StatusGatewayTimeout, "")
	})

	want := []time.Duration{10 * time.Second, 15 * time.Second, 20 * time.Second}
	if len(timeouts) != len(want) {
		t.Fatalf("expected %d attempts, got %d", len(want), len(timeouts))
	}
	for i, w := range want {
		if timeouts[i] > w || timeouts[i] < w-time.Second {
			t.Errorf("attempt %d: expected ~%v timeout, got %v", i+1, w, timeouts[i])
		}
	}

	fixed := newTestExecutor(Policy{Timeout: 4 * time.Second})
	if got := fixed.attemptTimeout(3); got != 4*time.Second {
		t.Errorf("without growth every attempt keeps the base timeout, got %v", got)
	}
}

func TestPolicy_Defaults(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", p.MaxAttempts)
	}
	if p.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", p.Timeout)
	}
	if p.RateLimitBackoff != p.InitialBackoff {
		t.Errorf("rate-limit backoff should default to the initial backoff")
	}
}

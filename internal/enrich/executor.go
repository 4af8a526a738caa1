package enrich

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// CallFunc performs one external provider call for a lookup key and returns
// the annotation fields to merge onto the record. Not-found is signalled via
// ErrNotFound; other failures are classified by Classify.
type CallFunc func(ctx context.Context, key string) (map[string]string, error)

// Policy controls retry behavior for one provider.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Default: 3.
	MaxAttempts int

	// Timeout applies per attempt. Default: 10s.
	Timeout time.Duration

	// InitialBackoff is the base delay before the first retry; it doubles
	// per attempt up to MaxBackoff. Default: 2s.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff delay. Default: 30s.
	MaxBackoff time.Duration

	// RateLimitBackoff is the base delay after a 429, typically tied to
	// the provider's documented reset window. Default: InitialBackoff.
	RateLimitBackoff time.Duration

	// JitterFraction adds random jitter as a fraction of the computed
	// delay. Default: 0.25.
	JitterFraction float64

	// TimeoutGrowth stretches the per-attempt timeout on each retry
	// (1.5 means 10s, 15s, 20s). Default: 1 (fixed timeout).
	TimeoutGrowth float64
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.Timeout <= 0 {
		p.Timeout = 10 * time.Second
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 2 * time.Second
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 30 * time.Second
	}
	if p.RateLimitBackoff <= 0 {
		p.RateLimitBackoff = p.InitialBackoff
	}
	if p.JitterFraction < 0 {
		p.JitterFraction = 0
	}
	if p.TimeoutGrowth < 1 {
		p.TimeoutGrowth = 1
	}
	return p
}

// DefaultPolicy returns the retry policy used when a provider does not
// override it.
func DefaultPolicy() Policy {
	return Policy{}.withDefaults()
}

// Executor performs one external call per key, applying the retry policy
// until the outcome is terminal. It never lets an error escape: every call
// path resolves to a terminal Outcome.
type Executor struct {
	policy Policy
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor with the given policy.
func NewExecutor(policy Policy) *Executor {
	return &Executor{
		policy: policy.withDefaults(),
		sleep:  sleepCtx,
	}
}

// Run executes call for key, retrying transient failures with exponential
// backoff until success, a permanent failure, or the attempt budget runs
// out. The returned outcome is always terminal.
func (e *Executor) Run(ctx context.Context, key string, call CallFunc) Outcome {
	var last Outcome

	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		last = e.attempt(ctx, key, call, e.attemptTimeout(attempt), attempt)
		if last.Terminal() {
			return last
		}

		// Budget exhausted: the transient failure becomes permanent,
		// keeping its kind so the cause stays visible per record.
		if attempt == e.policy.MaxAttempts || ctx.Err() != nil {
			last.Status = StatusPermanent
			return last
		}

		delay := e.backoff(attempt, last.Kind)
		zap.L().Debug("retrying call",
			zap.String("key", key),
			zap.Int("attempt", attempt),
			zap.String("kind", string(last.Kind)),
			zap.Duration("backoff", delay),
		)
		if err := e.sleep(ctx, delay); err != nil {
			last.Status = StatusPermanent
			return last
		}
	}
	return last
}

// attemptTimeout stretches the per-attempt timeout linearly from the base,
// so slow sites get more room on each retry instead of failing the same way
// three times.
func (e *Executor) attemptTimeout(attempt int) time.Duration {
	grow := 1 + float64(attempt-1)*(e.policy.TimeoutGrowth-1)
	return time.Duration(float64(e.policy.Timeout) * grow)
}

// attempt runs a single call with a per-attempt timeout, recovering panics
// into a permanent outcome so one bad record cannot take down the pool.
func (e *Executor) attempt(ctx context.Context, key string, call CallFunc, timeout time.Duration, attempt int) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("call panicked",
				zap.String("key", key),
				zap.Any("panic", r),
			)
			out = Outcome{Status: StatusPermanent, Kind: KindUnknown, Attempts: attempt}
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := call(callCtx, key)
	status, kind := Classify(err)
	return Outcome{
		Status:   status,
		Kind:     kind,
		Payload:  payload,
		Attempts: attempt,
		Err:      err,
	}
}

func (e *Executor) backoff(attempt int, kind Kind) time.Duration {
	base := e.policy.InitialBackoff
	if kind == KindRateLimited {
		base = e.policy.RateLimitBackoff
	}

	delay := float64(base) * math.Pow(2, float64(attempt-1))
	if delay > float64(e.policy.MaxBackoff) {
		delay = float64(e.policy.MaxBackoff)
	}
	if e.policy.JitterFraction > 0 {
		jitterRange := delay * e.policy.JitterFraction
		delay += (rand.Float64()*2 - 1) * jitterRange
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
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

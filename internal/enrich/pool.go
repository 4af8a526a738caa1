package enrich

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadflow-cli/internal/lead"
)

// WorkItem is one eligible record queued for enrichment: the normalized
// lookup key plus a back-reference to the record by input index. Immutable
// after creation.
type WorkItem struct {
	Index  int
	Key    string
	Record *lead.Record
}

// Result pairs a work item's input index with its terminal outcome.
type Result struct {
	Index   int
	Key     string
	Outcome Outcome
}

// Limiter gates dispatch of individual calls.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Pool dispatches executor calls over the work items under a fixed
// concurrency cap. Each slot acquires a rate-limit token before calling;
// results arrive on the completion channel in finish order, not submission
// order. One item's failure never aborts its siblings.
type Pool struct {
	Concurrency   int
	Limiter       Limiter
	Executor      *Executor
	ProgressEvery int
}

// NewPool creates a worker pool. A nil limiter disables rate gating.
func NewPool(concurrency int, limiter Limiter, exec *Executor) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if exec == nil {
		exec = NewExecutor(DefaultPolicy())
	}
	return &Pool{
		Concurrency:   concurrency,
		Limiter:       limiter,
		Executor:      exec,
		ProgressEvery: 20,
	}
}

// Run processes all work items and returns their terminal results, in
// arbitrary order. It only returns early if ctx is cancelled; even then
// every started item resolves to a terminal outcome.
func (p *Pool) Run(ctx context.Context, items []WorkItem, call CallFunc) []Result {
	if len(items) == 0 {
		return nil
	}

	done := make(chan Result, len(items))
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Concurrency)

	for _, item := range items {
		g.Go(func() error {
			if p.Limiter != nil {
				if err := p.Limiter.Acquire(gctx); err != nil {
					done <- Result{
						Index:   item.Index,
						Key:     item.Key,
						Outcome: Outcome{Status: StatusPermanent, Kind: KindUnknown, Err: err},
					}
					return nil
				}
			}

			out := p.Executor.Run(gctx, item.Key, call)
			done <- Result{Index: item.Index, Key: item.Key, Outcome: out}

			if n := completed.Add(1); p.ProgressEvery > 0 && (n%int64(p.ProgressEvery) == 0 || n == int64(len(items))) {
				zap.L().Info("progress",
					zap.Int64("completed", n),
					zap.Int("total", len(items)),
				)
			}
			return nil // individual failures are captured, never propagated
		})
	}

	_ = g.Wait()
	close(done)

	results := make([]Result, 0, len(items))
	for r := range done {
		results = append(results, r)
	}
	return results
}

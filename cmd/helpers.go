package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow-cli/internal/dataset"
	"github.com/sells-group/leadflow-cli/internal/enrich"
	"github.com/sells-group/leadflow-cli/internal/history"
	"github.com/sells-group/leadflow-cli/internal/lead"
)

// pipelineFlags are the flags shared by every enrichment command.
type pipelineFlags struct {
	input       string
	output      string
	limit       int
	concurrency int
	timeout     int
	yes         bool
}

// registerPipelineFlags adds the shared flag set to an enrichment command.
func registerPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("input", "i", "", "input lead file (.json, .csv, or .xlsx)")
	cmd.Flags().StringP("output", "o", "", "output file (default: input name with command suffix)")
	cmd.Flags().Int("limit", 0, "max number of leads to process (0 = all)")
	cmd.Flags().Int("concurrency", 0, "worker pool size (default from config)")
	cmd.Flags().Int("timeout", 0, "per-call timeout in seconds (default from config)")
	cmd.Flags().Bool("yes", false, "skip cost confirmation prompts")
	_ = cmd.MarkFlagRequired("input")
}

func getPipelineFlags(cmd *cobra.Command) pipelineFlags {
	var f pipelineFlags
	f.input, _ = cmd.Flags().GetString("input")
	f.output, _ = cmd.Flags().GetString("output")
	f.limit, _ = cmd.Flags().GetInt("limit")
	f.concurrency, _ = cmd.Flags().GetInt("concurrency")
	f.timeout, _ = cmd.Flags().GetInt("timeout")
	f.yes, _ = cmd.Flags().GetBool("yes")

	if f.concurrency <= 0 {
		f.concurrency = cfg.Pipeline.Concurrency
	}
	if f.timeout <= 0 {
		f.timeout = cfg.Pipeline.TimeoutSecs
	}
	return f
}

// derivedOutput builds the default output path: the input name with a
// command-specific suffix before the extension.
func derivedOutput(input, suffix string) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	return base + "_" + suffix + ext
}

// loadInput reads the lead file and applies --limit. An empty collection is
// fatal: it almost always means the wrong file was passed.
func loadInput(f pipelineFlags) ([]*lead.Record, error) {
	records, err := dataset.Load(f.input)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, eris.Errorf("no leads found in %s", f.input)
	}
	if f.limit > 0 && len(records) > f.limit {
		records = records[:f.limit]
	}
	zap.L().Info("loaded leads",
		zap.String("input", f.input),
		zap.Int("count", len(records)),
	)
	return records, nil
}

// requireCreds fails fast when a paid provider's credentials are missing,
// before any leads are partitioned or prompts shown.
func requireCreds(creds map[string]string) error {
	for envVar, value := range creds {
		if strings.TrimSpace(value) == "" {
			return eris.Errorf("missing credential: set %s", envVar)
		}
	}
	return nil
}

// pipelineRun bundles everything executePipeline needs beyond the flags.
type pipelineRun struct {
	command       string
	statusKey     string
	ineligibleTag string
	limiter       enrich.Limiter
	policy        enrich.Policy
	call          enrich.CallFunc
	annotate      enrich.Annotator
	costUSD       float64
}

// payloadAnnotator merges the outcome payload onto the record. Commands that
// need conditional writes wrap it.
func payloadAnnotator(rec *lead.Record, out enrich.Outcome) {
	for k, v := range out.Payload {
		rec.Set(k, v)
	}
}

// executePipeline runs the worker pool over the partition, aggregates the
// outcomes back onto the records, writes the output file, and records the
// run in history. It returns the annotated records and final stats so
// commands can post-process (cross-tabs, restated tags).
func executePipeline(ctx context.Context, f pipelineFlags, records []*lead.Record, part enrich.Partition, run pipelineRun) ([]*lead.Record, *enrich.Stats, error) {
	zap.L().Info("starting run",
		zap.String("command", run.command),
		zap.Int("total", len(records)),
		zap.Int("eligible", len(part.Items)),
		zap.Int("ineligible", len(part.Ineligible)),
		zap.Int("concurrency", f.concurrency),
	)

	start := time.Now()
	pool := enrich.NewPool(f.concurrency, run.limiter, enrich.NewExecutor(run.policy))
	results := pool.Run(ctx, part.Items, run.call)

	annotate := run.annotate
	if annotate == nil {
		annotate = payloadAnnotator
	}
	out, stats := enrich.Aggregate(records, part, results, run.statusKey, run.ineligibleTag, annotate)

	output := f.output
	if output == "" {
		output = derivedOutput(f.input, run.command)
	}
	if err := dataset.Save(output, out); err != nil {
		return nil, nil, err
	}
	zap.L().Info("wrote output", zap.String("output", output))

	recordRun(ctx, run, f.input, stats, len(part.Items), time.Since(start))
	return out, stats, nil
}

// recordRun persists the run summary. History is best effort: a broken local
// database should never fail an otherwise successful run.
func recordRun(ctx context.Context, run pipelineRun, input string, stats *enrich.Stats, eligible int, elapsed time.Duration) {
	st, err := history.Open(cfg.History.Path)
	if err != nil {
		zap.L().Warn("run history unavailable", zap.Error(err))
		return
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(ctx); err != nil {
		zap.L().Warn("run history migrate failed", zap.Error(err))
		return
	}
	id, err := st.Record(ctx, history.Run{
		Command:    run.command,
		Input:      input,
		Total:      stats.Total,
		Eligible:   eligible,
		Counts:     stats.Counts,
		CostUSD:    run.costUSD,
		DurationMS: elapsed.Milliseconds(),
		StartedAt:  time.Now().Add(-elapsed),
	})
	if err != nil {
		zap.L().Warn("run history insert failed", zap.Error(err))
		return
	}
	zap.L().Info("run recorded", zap.String("run_id", id))
}

// printSummary writes the status histogram to stdout.
func printSummary(stats *enrich.Stats) {
	fmt.Fprint(os.Stdout, stats.Summary())
}

// providerPolicy overlays the loaded policy file, if any, onto a command's
// compiled-in retry policy.
func providerPolicy(provider string, base enrich.Policy) enrich.Policy {
	p := policyFile.For(provider)
	if p.MaxAttempts > 0 {
		base.MaxAttempts = p.MaxAttempts
	}
	if p.TimeoutSecs > 0 {
		base.Timeout = time.Duration(p.TimeoutSecs) * time.Second
	}
	if p.TimeoutGrowth > 0 {
		base.TimeoutGrowth = p.TimeoutGrowth
	}
	if p.BackoffSecs > 0 {
		base.InitialBackoff = time.Duration(p.BackoffSecs) * time.Second
	}
	return base
}

// chainLimiter acquires from each limiter in order, so a pacer and a
// sliding window can both gate the same pool.
type chainLimiter []enrich.Limiter

func (c chainLimiter) Acquire(ctx context.Context) error {
	for _, l := range c {
		if err := l.Acquire(ctx); err != nil {
			return err
		}
	}
	return nil
}

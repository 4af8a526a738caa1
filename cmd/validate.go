package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadflow-cli/internal/enrich"
	"github.com/sells-group/leadflow-cli/internal/lead"
	"github.com/sells-group/leadflow-cli/internal/ratelimit"
	"github.com/sells-group/leadflow-cli/pkg/webcheck"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check lead websites for reachability",
	Long:  "Probes each lead's website and tags the record with the outcome: success, not_found, timeout, blocked, ssl_error, or no_website.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f := getPipelineFlags(cmd)
		records, err := loadInput(f)
		if err != nil {
			return err
		}

		resolver := lead.DefaultResolver()
		part := enrich.PartitionRecords(records, func(rec *lead.Record) (string, bool) {
			return resolver.Website(rec)
		})

		ratePerSec := cfg.Webcheck.RatePerSec
		if p := policyFile.For("webcheck"); p.SafeRate > 0 {
			ratePerSec = p.SafeRate
		}
		// Self-tuning throttle: probed sites sit behind arbitrary CDNs, so
		// back off when they start returning 429s and creep back up after.
		throttle := ratelimit.NewAdaptive(rate.Limit(ratePerSec), f.concurrency)

		client := webcheck.NewClient(webcheck.WithUserAgent(cfg.Webcheck.UserAgent))
		call := func(ctx context.Context, key string) (map[string]string, error) {
			res, err := client.Check(ctx, key)
			if err != nil {
				if rateSignal(err) {
					throttle.OnRateLimit()
				}
				return nil, err
			}
			throttle.OnSuccess()
			return res.Fields(), nil
		}

		_, stats, err := executePipeline(ctx, f, records, part, pipelineRun{
			command:       "validate",
			statusKey:     "website_status",
			ineligibleTag: "no_website",
			limiter:       throttle,
			policy: providerPolicy("webcheck", enrich.Policy{
				MaxAttempts: cfg.Pipeline.MaxAttempts,
				Timeout:     time.Duration(f.timeout) * time.Second,
				// Slow sites get a longer leash on each retry: 10s, 15s, 20s.
				TimeoutGrowth: 1.5,
			}),
			call: call,
		})
		if err != nil {
			return err
		}

		printSummary(stats)
		return nil
	},
}

func init() {
	registerPipelineFlags(validateCmd)
	rootCmd.AddCommand(validateCmd)
}

// rateSignal reports whether a probe failure was a 429, whether it arrived
// bare or wrapped as a CDN edge block.
func rateSignal(err error) bool {
	if _, kind := enrich.Classify(err); kind == enrich.KindRateLimited {
		return true
	}
	var blocked *enrich.BlockedError
	return errors.As(err, &blocked) && blocked.Code == http.StatusTooManyRequests
}

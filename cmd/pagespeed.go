package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow-cli/internal/enrich"
	"github.com/sells-group/leadflow-cli/internal/lead"
	"github.com/sells-group/leadflow-cli/internal/ratelimit"
	"github.com/sells-group/leadflow-cli/pkg/pagespeed"
)

var pagespeedCmd = &cobra.Command{
	Use:   "pagespeed",
	Short: "Pull PageSpeed Insights scores for lead websites",
	Long:  "Runs each lead's website through the PageSpeed Insights API and records the mobile performance and SEO scores, pacing calls to stay inside the API quota window.",
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

		if len(part.Items) > cfg.PageSpeed.DailyQuota {
			zap.L().Warn("eligible leads exceed the daily API quota; later calls will fail",
				zap.Int("eligible", len(part.Items)),
				zap.Int("daily_quota", cfg.PageSpeed.DailyQuota),
			)
		}
		safeRate := cfg.PageSpeed.SafeRate
		windowLimit := cfg.PageSpeed.WindowLimit
		windowSecs := cfg.PageSpeed.WindowSecs
		headroom := cfg.PageSpeed.WindowHeadroom
		if p := policyFile.For("pagespeed"); p.RateLimit > 0 {
			windowLimit = p.RateLimit
			if p.RateWindowSecs > 0 {
				windowSecs = p.RateWindowSecs
			}
			if p.RateHeadroom > 0 {
				headroom = p.RateHeadroom
			}
			if p.SafeRate > 0 {
				safeRate = p.SafeRate
			}
		}
		pacer := ratelimit.NewPacer(safeRate)
		window := ratelimit.NewWindow(windowLimit, time.Duration(windowSecs)*time.Second, headroom)
		zap.L().Info("pagespeed run plan",
			zap.Int("eligible", len(part.Items)),
			zap.Duration("estimated_time", time.Duration(float64(len(part.Items))/safeRate)*time.Second),
		)

		client := pagespeed.NewClient(cfg.PageSpeed.Key,
			pagespeed.WithBaseURL(cfg.PageSpeed.BaseURL),
			pagespeed.WithStrategy(cfg.PageSpeed.Strategy),
		)
		call := func(ctx context.Context, key string) (map[string]string, error) {
			res, err := client.Analyze(ctx, key)
			if err != nil {
				return nil, err
			}
			return res.Fields(), nil
		}

		timeout := f.timeout
		if !cmd.Flags().Changed("timeout") {
			timeout = cfg.PageSpeed.TimeoutSecs
		}

		_, stats, err := executePipeline(ctx, f, records, part, pipelineRun{
			command:       "pagespeed",
			statusKey:     "pagespeed_status",
			ineligibleTag: "no_website",
			limiter:       chainLimiter{pacer, window},
			policy: providerPolicy("pagespeed", enrich.Policy{
				MaxAttempts:      cfg.Pipeline.MaxAttempts,
				Timeout:          time.Duration(timeout) * time.Second,
				RateLimitBackoff: time.Duration(cfg.PageSpeed.RateResetSecs) * time.Second,
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
	registerPipelineFlags(pagespeedCmd)
	rootCmd.AddCommand(pagespeedCmd)
}

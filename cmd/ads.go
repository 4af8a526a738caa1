package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadflow-cli/internal/cost"
	"github.com/sells-group/leadflow-cli/internal/enrich"
	"github.com/sells-group/leadflow-cli/internal/lead"
	"github.com/sells-group/leadflow-cli/pkg/dataforseo"
)

var adsCmd = &cobra.Command{
	Use:   "ads",
	Short: "Check which leads run Google Ads",
	Long:  "Posts a DataForSEO ads-advertisers task per lead domain and polls for the result. Each task costs money, so the run is gated on a cost confirmation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := requireCreds(map[string]string{
			"LEADFLOW_DATAFORSEO_LOGIN":    cfg.DataForSEO.Login,
			"LEADFLOW_DATAFORSEO_PASSWORD": cfg.DataForSEO.Password,
		}); err != nil {
			return err
		}

		f := getPipelineFlags(cmd)
		records, err := loadInput(f)
		if err != nil {
			return err
		}

		resolver := lead.DefaultResolver()
		part := enrich.PartitionRecords(records, func(rec *lead.Record) (string, bool) {
			return resolver.Domain(rec)
		})

		est := cost.Estimate{
			Provider: "DataForSEO",
			Items:    len(part.Items),
			PerCall:  cfg.DataForSEO.CostPerTask,
			Unit:     "USD",
		}
		ok, err := cost.Gate(est, confirmer(f))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		client := dataforseo.NewClient(cfg.DataForSEO.Login, cfg.DataForSEO.Password,
			dataforseo.WithBaseURL(cfg.DataForSEO.BaseURL),
			dataforseo.WithLocation(cfg.DataForSEO.Location),
			dataforseo.WithPollBudget(time.Duration(cfg.DataForSEO.PollMaxSecs)*time.Second),
		)
		call := func(ctx context.Context, key string) (map[string]string, error) {
			res, err := client.Lookup(ctx, key)
			if err != nil {
				return nil, err
			}
			return res.Fields(), nil
		}

		// The per-attempt timeout has to outlive the full poll budget.
		timeout := time.Duration(cfg.DataForSEO.PollMaxSecs+30) * time.Second

		_, stats, err := executePipeline(ctx, f, records, part, pipelineRun{
			command:       "ads",
			statusKey:     "ads_check_status",
			ineligibleTag: "no_website",
			policy: providerPolicy("dataforseo", enrich.Policy{
				MaxAttempts: cfg.Pipeline.MaxAttempts,
				Timeout:     timeout,
			}),
			call:    call,
			costUSD: est.Total(),
		})
		if err != nil {
			return err
		}

		printSummary(stats)
		return nil
	},
}

func init() {
	registerPipelineFlags(adsCmd)
	rootCmd.AddCommand(adsCmd)
}

// confirmer picks auto-approval for --yes runs, interactive prompt otherwise.
func confirmer(f pipelineFlags) cost.Confirmer {
	if f.yes {
		return cost.AutoApprove{}
	}
	return &cost.TerminalConfirmer{In: os.Stdin, Out: os.Stderr}
}

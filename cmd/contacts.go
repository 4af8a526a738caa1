package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadflow-cli/internal/cost"
	"github.com/sells-group/leadflow-cli/internal/enrich"
	"github.com/sells-group/leadflow-cli/internal/lead"
	"github.com/sells-group/leadflow-cli/pkg/outscraper"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Scrape company contact details via Outscraper",
	Long:  "Pulls emails, phone numbers, and social profiles for each lead's company domain. Each domain costs credits, so the run is gated on a cost confirmation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := requireCreds(map[string]string{
			"LEADFLOW_OUTSCRAPER_KEY": cfg.Outscraper.Key,
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
			Provider: "Outscraper",
			Items:    len(part.Items),
			PerCall:  outscraper.CostPerDomain,
			Unit:     "credits",
		}
		ok, err := cost.Gate(est, confirmer(f))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		client := outscraper.NewClient(cfg.Outscraper.Key,
			outscraper.WithBaseURL(cfg.Outscraper.BaseURL))
		call := func(ctx context.Context, key string) (map[string]string, error) {
			res, err := client.Contacts(ctx, key)
			if err != nil {
				return nil, err
			}
			return res.Fields(), nil
		}

		_, stats, err := executePipeline(ctx, f, records, part, pipelineRun{
			command:       "contacts",
			statusKey:     "contacts_status",
			ineligibleTag: "skipped_no_domain",
			policy: providerPolicy("outscraper", enrich.Policy{
				MaxAttempts: cfg.Pipeline.MaxAttempts,
				Timeout:     time.Duration(f.timeout) * time.Second,
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
	registerPipelineFlags(contactsCmd)
	rootCmd.AddCommand(contactsCmd)
}

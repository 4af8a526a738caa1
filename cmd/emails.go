package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow-cli/internal/cost"
	"github.com/sells-group/leadflow-cli/internal/enrich"
	"github.com/sells-group/leadflow-cli/internal/lead"
	"github.com/sells-group/leadflow-cli/pkg/anymailfinder"
)

var emailsCmd = &cobra.Command{
	Use:   "emails",
	Short: "Find work emails for leads via AnyMailFinder",
	Long:  "Looks up each lead's work email by first name, last name, and company domain. Leads that already carry an email are skipped, as are leads missing name or domain fields.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := requireCreds(map[string]string{
			"LEADFLOW_ANYMAILFINDER_KEY": cfg.AnyMailFinder.Key,
		}); err != nil {
			return err
		}

		f := getPipelineFlags(cmd)
		records, err := loadInput(f)
		if err != nil {
			return err
		}

		resolver := lead.DefaultResolver()
		part, skipped := partitionForEmail(records, resolver)
		if skipped > 0 {
			zap.L().Info("skipping leads that already have an email", zap.Int("count", skipped))
		}

		est := cost.Estimate{
			Provider: "AnyMailFinder",
			Items:    len(part.Items),
			PerCall:  anymailfinder.CostPerMatch,
			Unit:     "credits",
		}
		ok, err := cost.Gate(est, confirmer(f))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		client := anymailfinder.NewClient(cfg.AnyMailFinder.Key,
			anymailfinder.WithBaseURL(cfg.AnyMailFinder.BaseURL))
		call := func(ctx context.Context, key string) (map[string]string, error) {
			first, last, domain, err := splitEmailKey(key)
			if err != nil {
				return nil, err
			}
			res, err := client.FindPerson(ctx, first, last, domain)
			if err != nil {
				return nil, err
			}
			return res.Fields(), nil
		}

		_, stats, err := executePipeline(ctx, f, records, part, pipelineRun{
			command:       "emails",
			statusKey:     "email_status",
			ineligibleTag: "skipped_missing_fields",
			policy: providerPolicy("anymailfinder", enrich.Policy{
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
	registerPipelineFlags(emailsCmd)
	rootCmd.AddCommand(emailsCmd)
}

// partitionForEmail builds the work queue for the email lookup. Records
// that already carry an email get tagged skipped_existing up front and stay
// out of the partition entirely, so they consume no credits and keep their
// tag through aggregation. Records missing a name or domain go into the
// ineligible bucket.
func partitionForEmail(records []*lead.Record, resolver *lead.Resolver) (enrich.Partition, int) {
	var part enrich.Partition
	skipped := 0
	for i, rec := range records {
		if email, ok := resolver.Resolve(rec, lead.AttrEmail); ok && email != "" {
			rec.Set("email_status", "skipped_existing")
			skipped++
			continue
		}
		first, okFirst := resolver.Resolve(rec, lead.AttrFirstName)
		last, okLast := resolver.Resolve(rec, lead.AttrLastName)
		domain, okDomain := resolver.Domain(rec)
		if !okFirst || !okLast || !okDomain {
			part.Ineligible = append(part.Ineligible, i)
			continue
		}
		part.Items = append(part.Items, enrich.WorkItem{
			Index:  i,
			Key:    emailKey(first, last, domain),
			Record: rec,
		})
	}
	return part, skipped
}

// emailKey packs the lookup parameters into the work-item key. The record
// separator cannot appear in names or domains.
func emailKey(first, last, domain string) string {
	return strings.Join([]string{first, last, domain}, "\x1f")
}

func splitEmailKey(key string) (first, last, domain string, err error) {
	parts := strings.Split(key, "\x1f")
	if len(parts) != 3 {
		return "", "", "", eris.Errorf("malformed email lookup key %q", key)
	}
	return parts[0], parts[1], parts[2], nil
}

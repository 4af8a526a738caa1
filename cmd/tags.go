package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadflow-cli/internal/enrich"
	"github.com/sells-group/leadflow-cli/internal/lead"
	"github.com/sells-group/leadflow-cli/pkg/tagdetect"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Detect GTM and Google Ads tags on lead websites",
	Long:  "Fetches each lead's homepage and detects Google Tag Manager containers, Google Ads accounts, conversion tracking, and remarketing tags, then cross-tabulates sales opportunities.",
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

		insecure := cfg.Tagdetect.InsecureFallback
		if p := policyFile.For("tagdetect"); p.InsecureFallback != nil {
			insecure = *p.InsecureFallback
		}
		client := tagdetect.NewClient(
			tagdetect.WithUserAgent(cfg.Tagdetect.UserAgent),
			tagdetect.WithInsecureFallback(insecure),
		)
		call := func(ctx context.Context, key string) (map[string]string, error) {
			res, err := client.Analyze(ctx, key)
			if err != nil {
				return nil, err
			}
			return res.Fields(), nil
		}

		out, stats, err := executePipeline(ctx, f, records, part, pipelineRun{
			command:       "tags",
			statusKey:     "tag_check_status",
			ineligibleTag: "no_website",
			policy: providerPolicy("tagdetect", enrich.Policy{
				MaxAttempts: cfg.Pipeline.MaxAttempts,
				Timeout:     time.Duration(f.timeout) * time.Second,
			}),
			call: call,
		})
		if err != nil {
			return err
		}

		printSummary(stats)
		printOpportunities(out)
		return nil
	},
}

func init() {
	registerPipelineFlags(tagsCmd)
	rootCmd.AddCommand(tagsCmd)
}

// opportunityTabs classifies successfully analyzed sites by what tracking
// they run, which is what the sales team actually pitches against.
func opportunityTabs() []enrich.CrossTab {
	analyzed := func(rec *lead.Record) bool {
		tag, _ := rec.Get("tag_check_status")
		return tag == "success"
	}
	isTrue := func(rec *lead.Record, key string) bool {
		v, _ := rec.Get(key)
		return v == "TRUE"
	}
	return []enrich.CrossTab{
		{Name: "gtm_only", Match: func(rec *lead.Record) bool {
			return analyzed(rec) && isTrue(rec, "gtm_installed") && !isTrue(rec, "google_ads_detected")
		}},
		{Name: "ads_no_conversion", Match: func(rec *lead.Record) bool {
			return analyzed(rec) && isTrue(rec, "google_ads_detected") && !isTrue(rec, "conversion_tracking")
		}},
		{Name: "no_tracking", Match: func(rec *lead.Record) bool {
			return analyzed(rec) && !isTrue(rec, "gtm_installed") && !isTrue(rec, "google_ads_detected")
		}},
		{Name: "full_setup", Match: func(rec *lead.Record) bool {
			return analyzed(rec) && isTrue(rec, "gtm_installed") &&
				isTrue(rec, "google_ads_detected") && isTrue(rec, "conversion_tracking")
		}},
	}
}

func printOpportunities(records []*lead.Record) {
	counts := enrich.CrossTabulate(records, opportunityTabs())

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nOPPORTUNITY\tCOUNT")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%d\n", name, counts[name])
	}
	_ = w.Flush()
}

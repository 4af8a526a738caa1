package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow-cli/internal/config"
)

var (
	cfg        *config.Config
	policyFile *config.PolicyFile
	verbose    bool
	policyPath string
)

var rootCmd = &cobra.Command{
	Use:   "leadflow-cli",
	Short: "Lead enrichment pipeline",
	Long:  "Validates lead websites, detects GTM/Google Ads instrumentation, pulls PageSpeed scores, checks ad spend, and finds contact emails, writing annotated lead files back out.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if verbose {
			cfg.Log.Level = "debug"
		}
		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if policyPath != "" {
			pf, err := config.LoadPolicy(policyPath)
			if err != nil {
				return fmt.Errorf("load policy: %w", err)
			}
			policyFile = pf
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "per-provider retry/rate policy overlay file (YAML)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

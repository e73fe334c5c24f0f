package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runDryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one discovery cycle and exit",
	Long:  "Runs a single cycle: discover, filter, deduplicate, notify, and mark the batch as delivered.",
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "notify but do not mark postings as delivered")
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg, runDryRun, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer p.close()

	res := p.poller.Poll(ctx)
	for key, err := range res.SourceErrors {
		logger.Warn("source failed", "key", key.String(), "error", err)
	}
	if res.Err != nil {
		return fmt.Errorf("cycle %s: %w", res.ID, res.Err)
	}

	logger.Info("cycle complete", "cycle", res.ID, "new", len(res.Batch), "delivered", res.Delivered)
	return nil
}

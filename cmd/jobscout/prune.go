package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var pruneOlderThan time.Duration

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old seen-link records",
	Long: `Deletes seen-link records first seen before the retention window (store.retention, or --older-than).

Pruned links count as new again: a posting a source still lists is delivered a second time.`,
	RunE:  runPrune,
}

func init() {
	pruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0, "retention window (default: store.retention)")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	olderThan := pruneOlderThan
	if olderThan == 0 {
		olderThan = cfg.Store.Retention
	}
	if olderThan <= 0 {
		logger.Error("no retention window: set store.retention or pass --older-than")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	linkStore, err := setupStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer linkStore.Close()

	n, err := linkStore.Cleanup(ctx, olderThan)
	if err != nil {
		logger.Error("prune failed", "error", err)
		os.Exit(1)
	}
	logger.Info("pruned seen links", "removed", n, "older_than", olderThan.String())
	return nil
}

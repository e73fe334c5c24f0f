package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/dedup"
	"github.com/amishk599/jobscout/internal/dispatch"
	"github.com/amishk599/jobscout/internal/notifier"
)

var checkFresh bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Discover once, print matches, exit",
	Long:  "One-shot cycle: fetches every source, logs the batch that would be sent, exits. Reads the store but never writes to it.",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkFresh, "fresh", false, "ignore delivery history so every relevant link counts as new")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("check mode: no links will be marked as delivered")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	linkStore, err := openReadStore(ctx, cfg.Store, checkFresh, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer linkStore.Close()

	httpClient := newHTTPClient(cfg)
	sources, err := buildSources(cfg, httpClient, logger)
	if err != nil {
		logger.Error("failed to build sources", "error", err)
		os.Exit(1)
	}

	gate := dedup.New(linkStore)
	res := newAggregator(cfg, cfg.Profiles, sources, logger).Run(ctx, gate)
	for key, err := range res.SourceErrors {
		logger.Warn("source failed", "key", key.String(), "error", err)
	}

	controller := dispatch.NewController(notifier.NewLogNotifier(logger), true, logger)
	if err := controller.Dispatch(ctx, res.Batch, gate); err != nil {
		logger.Error("printing batch failed", "error", err)
	}

	logger.Info("check complete",
		"new", len(res.Batch),
		"fetched", res.Fetched,
		"irrelevant", res.Irrelevant,
		"duplicates", res.Duplicates,
		"source_errors", len(res.SourceErrors),
	)
	return nil
}

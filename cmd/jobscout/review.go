package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/dedup"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/review"
)

var reviewFresh bool

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse a dry-run batch interactively (TUI)",
	Long:  "Shows the profile picker, runs a dry-run cycle for the choice, then launches the split-pane review view. Nothing is sent or marked as delivered.",
	RunE:  runReviewCmd,
}

func init() {
	reviewCmd.Flags().BoolVar(&reviewFresh, "fresh", false, "ignore delivery history so every relevant link counts as new")
	rootCmd.AddCommand(reviewCmd)
}

func runReviewCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Any log output once the TUI starts corrupts the display.
	silentLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	linkStore, err := openReadStore(context.Background(), cfg.Store, reviewFresh, silentLogger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer linkStore.Close()

	httpClient := newHTTPClient(cfg)
	sources, err := buildSources(cfg, httpClient, silentLogger)
	if err != nil {
		logger.Error("failed to build sources", "error", err)
		os.Exit(1)
	}

	for {
		choice, ok, err := review.RunProfilePicker(cfg.Profiles)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return nil
		}
		if !ok {
			return nil
		}

		profiles, label := cfg.Profiles, "all profiles"
		if choice != review.AllProfiles {
			profiles = []model.SearchProfile{cfg.Profiles[choice]}
			label = cfg.Profiles[choice].Name
		}

		agg := newAggregator(cfg, profiles, sources, silentLogger)
		res, err := review.RunLoader(label, 2*time.Minute, func(ctx context.Context) model.CycleResult {
			gate := dedup.New(linkStore)
			defer gate.Discard()
			return agg.Run(ctx, gate)
		})
		if err != nil {
			fmt.Printf("Discovery error: %v\n", err)
			continue
		}

		if err := review.Run(res); err != nil {
			fmt.Printf("TUI error: %v\n", err)
			return nil
		}
	}
}

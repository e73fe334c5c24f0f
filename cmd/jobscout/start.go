package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobscout/internal/scheduler"
	"github.com/amishk599/jobscout/internal/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the discovery daemon",
	Long:  "Start the scheduler daemon (and the HTTP control surface when server.enabled is set); blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"schedule", cfg.Schedule,
		"profiles", len(cfg.Profiles),
		"sources", len(cfg.EnabledSources()),
		"batch_cap", cfg.BatchCap,
		"store", cfg.Store.Driver,
		"notification", cfg.Notification.Type,
	)

	schedule, err := scheduler.ParseSchedule(cfg.Schedule)
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg, false, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer p.close()

	sched := scheduler.NewScheduler(schedule, p.poller.Poll, cfg.RunOnStart, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	if cfg.Server.Enabled {
		srv := server.NewServer(cfg.Server.Addr, sched, logger)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("daemon error", "error", err)
		return err
	}

	logger.Info("goodbye")
	return nil
}

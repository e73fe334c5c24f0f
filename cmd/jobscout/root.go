package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobscout/internal/adapter"
	"github.com/amishk599/jobscout/internal/config"
	"github.com/amishk599/jobscout/internal/discovery"
	"github.com/amishk599/jobscout/internal/dispatch"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/notifier"
	"github.com/amishk599/jobscout/internal/poller"
	"github.com/amishk599/jobscout/internal/ratelimit"
	"github.com/amishk599/jobscout/internal/retry"
	"github.com/amishk599/jobscout/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobscout",
	Short: "Job discovery and alerting",
	Long:  "jobscout searches job boards and APIs on a schedule and sends new relevant postings to Slack, Telegram, email, or the log.",
	// Default to `start` so that `jobscout` with no args runs the daemon.
	RunE:         runStart,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSCOUT_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig(path string) (*config.Config, error) {
	return config.Load(config.ResolvePath(path))
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (model.LinkStore, error) {
	switch cfg.Driver {
	case "sqlite":
		return store.NewSQLiteStore(cfg.Path)
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.DSN)
	case "redis":
		rdb, err := store.NewRedisClient(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store.NewRedisStore(rdb, cfg.Prefix), nil
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating storage client: %w", err)
		}
		return store.NewGCSStore(client, cfg.Bucket, cfg.Prefix, logger), nil
	case "file":
		return store.NewFileStore(cfg.Path)
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// openReadStore opens the configured store for commands that never commit.
// With fresh set it returns a NopStore, so no link counts as delivered.
func openReadStore(ctx context.Context, cfg config.StoreConfig, fresh bool, logger *slog.Logger) (model.LinkStore, error) {
	if fresh {
		return store.NewNopStore(), nil
	}
	return setupStore(ctx, cfg, logger)
}

func setupNotifier(ctx context.Context, cfg config.NotificationConfig, httpClient *http.Client, logger *slog.Logger) (model.Notifier, error) {
	switch cfg.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.WebhookURL, httpClient, logger), nil
	case "telegram":
		logger.Info("using telegram notifier", "chat_id", cfg.TelegramChatID)
		return notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, httpClient, logger), nil
	case "email":
		provider, err := setupEmailProvider(ctx, cfg.Email, httpClient, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("using email notifier", "provider", cfg.Email.Provider, "to", cfg.Email.To)
		return notifier.NewEmailNotifier(provider, cfg.Email.To, logger), nil
	default:
		return notifier.NewLogNotifier(logger), nil
	}
}

func setupEmailProvider(ctx context.Context, cfg config.EmailConfig, httpClient *http.Client, logger *slog.Logger) (notifier.EmailProvider, error) {
	switch cfg.Provider {
	case "gmail":
		svc, err := notifier.NewGmailService(ctx, cfg.CredentialsJSON)
		if err != nil {
			return nil, err
		}
		return notifier.NewGmailProvider(svc, logger), nil
	case "mock":
		return notifier.NewMockProvider(logger), nil
	default:
		return notifier.NewBrevoProvider(cfg.APIKey, cfg.From, cfg.FromName, httpClient, logger), nil
	}
}

func createSource(sc config.SourceConfig, httpClient *http.Client) (model.Source, error) {
	switch sc.Type {
	case "html":
		sel := adapter.Selectors{
			Listing:     sc.Selectors.Listing,
			Title:       sc.Selectors.Title,
			Link:        sc.Selectors.Link,
			Description: sc.Selectors.Description,
			Location:    sc.Selectors.Location,
		}
		return adapter.NewHTMLAdapter(sc.Name, sc.URL, sel, httpClient), nil
	case "jobsapi":
		return adapter.NewJobsAPIAdapter(sc.Name, sc.APIKey, httpClient), nil
	case "adzuna":
		return adapter.NewAdzunaAdapter(sc.Name, sc.AppID, sc.APIKey, sc.Country, httpClient), nil
	case "greenhouse":
		return adapter.NewGreenhouseAdapter(sc.Name, sc.BoardToken, httpClient), nil
	case "lever":
		return adapter.NewLeverAdapter(sc.Name, sc.CompanySlug, httpClient), nil
	default:
		return nil, fmt.Errorf("unsupported source type %q", sc.Type)
	}
}

// buildSources creates every enabled source, rate limited per host and
// retried on transient failures. Sources on the same host share a limiter.
func buildSources(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) ([]model.Source, error) {
	limiters := make(map[string]*ratelimit.HostLimiter)

	var sources []model.Source
	for _, sc := range cfg.EnabledSources() {
		src, err := createSource(sc, httpClient)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", sc.Name, err)
		}

		host := adapter.Host(sc.Type, sc.URL)
		limiter, ok := limiters[host]
		if !ok {
			limiter = ratelimit.NewHostLimiter(cfg.RateLimit.MinDelayFor(host))
			limiters[host] = limiter
		}

		src = ratelimit.NewSource(src, limiter, host)
		src = retry.NewSource(src, cfg.Retry.Attempts-1, cfg.Retry.Delay, logger)
		sources = append(sources, src)
		logger.Info("registered source", "name", sc.Name, "type", sc.Type, "host", host)
	}
	return sources, nil
}

func newAggregator(cfg *config.Config, profiles []model.SearchProfile, sources []model.Source, logger *slog.Logger) *discovery.Aggregator {
	return discovery.NewAggregator(profiles, sources, discovery.Options{
		BatchCap:     cfg.BatchCap,
		FetchTimeout: cfg.FetchTimeout,
		Concurrency:  cfg.Concurrency,
	}, logger)
}

// newHTTPClient returns the client shared by sources and notifiers. Its
// timeout follows fetch_timeout so the client never cuts a fetch short.
func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.FetchTimeout}
}

// pipeline holds everything a cycle needs. close releases the store.
type pipeline struct {
	cfg    *config.Config
	store  model.LinkStore
	poller *poller.Poller
}

func (p *pipeline) close() {
	p.store.Close()
}

// buildPipeline wires store, sources, notifier, and poller from cfg. When
// dryRun is set the batch is notified but never committed.
func buildPipeline(ctx context.Context, cfg *config.Config, dryRun bool, logger *slog.Logger) (*pipeline, error) {
	httpClient := newHTTPClient(cfg)

	linkStore, err := setupStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}

	sources, err := buildSources(cfg, httpClient, logger)
	if err != nil {
		linkStore.Close()
		return nil, err
	}

	n, err := setupNotifier(ctx, cfg.Notification, httpClient, logger)
	if err != nil {
		linkStore.Close()
		return nil, err
	}

	retention := cfg.Store.Retention
	dryRun = dryRun || cfg.DryRun
	if dryRun {
		logger.Info("dry-run mode enabled, no links will be marked as delivered")
		retention = 0
	}

	p := poller.NewPoller(
		newAggregator(cfg, cfg.Profiles, sources, logger),
		dispatch.NewController(n, dryRun, logger),
		linkStore,
		retention,
		logger,
	)
	return &pipeline{cfg: cfg, store: linkStore, poller: p}, nil
}

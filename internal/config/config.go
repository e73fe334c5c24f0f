package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobscout/internal/filter"
	"github.com/amishk599/jobscout/internal/model"
)

// EnvConfigPath names the environment variable consulted when no --config
// flag is given.
const EnvConfigPath = "JOBSCOUT_CONFIG"

const defaultConfigPath = "config.yaml"

// Config is the root configuration for jobscout.
type Config struct {
	Schedule     string
	RunOnStart   bool
	BatchCap     int
	FetchTimeout time.Duration
	Concurrency  int
	DryRun       bool
	Retry        RetryConfig
	RateLimit    RateLimitConfig
	Store        StoreConfig
	Notification NotificationConfig
	Server       ServerConfig
	Profiles     []model.SearchProfile
	Sources      []SourceConfig
}

// RetryConfig controls how often a failed source fetch is retried.
type RetryConfig struct {
	Attempts int           // total attempts including the first
	Delay    time.Duration // base backoff delay
}

// RateLimitConfig controls per-host request spacing.
type RateLimitConfig struct {
	MinDelay      time.Duration            // minimum gap between requests to the same host
	HostOverrides map[string]time.Duration // per-host overrides, keyed by hostname
}

// MinDelayFor returns the configured delay for host, falling back to MinDelay.
func (r RateLimitConfig) MinDelayFor(host string) time.Duration {
	if d, ok := r.HostOverrides[host]; ok {
		return d
	}
	return r.MinDelay
}

// StoreConfig selects and configures the seen-link store.
type StoreConfig struct {
	Driver    string // sqlite, postgres, redis, gcs, or file
	DSN       string // postgres connection string or redis URL
	Path      string // sqlite database or JSON file
	Bucket    string
	Prefix    string
	// Retention bounds how long delivered links are remembered. 0 keeps them
	// forever. A pruned link that a source still lists is delivered again.
	Retention time.Duration
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type           string      `yaml:"type"` // log, slack, telegram, or email
	WebhookURL     string      `yaml:"webhook_url"`
	TelegramToken  string      `yaml:"telegram_token"`
	TelegramChatID string      `yaml:"telegram_chat_id"`
	Email          EmailConfig `yaml:"email"`
}

// EmailConfig configures the digest email channel.
type EmailConfig struct {
	Provider        string `yaml:"provider"` // brevo, gmail, or mock
	APIKey          string `yaml:"api_key"`
	From            string `yaml:"from"`
	FromName        string `yaml:"from_name"`
	To              string `yaml:"to"`
	CredentialsJSON string `yaml:"credentials_json"`
}

// ServerConfig controls the HTTP control surface.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// SourceConfig describes one configured source.
type SourceConfig struct {
	Name        string         `yaml:"name"`
	Type        string         `yaml:"type"` // html, jobsapi, adzuna, greenhouse, or lever
	Enabled     bool           `yaml:"enabled"`
	URL         string         `yaml:"url"`
	Selectors   SelectorConfig `yaml:"selectors"`
	APIKey      string         `yaml:"api_key"`
	AppID       string         `yaml:"app_id"`
	Country     string         `yaml:"country"`
	BoardToken  string         `yaml:"board_token"`
	CompanySlug string         `yaml:"company_slug"`
}

// SelectorConfig overrides the CSS selectors of an html source.
type SelectorConfig struct {
	Listing     string `yaml:"listing"`
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	Description string `yaml:"description"`
	Location    string `yaml:"location"`
}

// EnabledSources returns the sources with enabled: true, in configured order.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Schedule     string             `yaml:"schedule"`
	RunOnStart   *bool              `yaml:"run_on_start"`
	BatchCap     int                `yaml:"batch_cap"`
	FetchTimeout string             `yaml:"fetch_timeout"`
	Concurrency  int                `yaml:"concurrency"`
	DryRun       bool               `yaml:"dry_run"`
	Retry        rawRetryConfig     `yaml:"retry"`
	RateLimit    rawRateLimitConfig `yaml:"rate_limit"`
	Store        rawStoreConfig     `yaml:"store"`
	Notification NotificationConfig `yaml:"notification"`
	Server       ServerConfig       `yaml:"server"`
	Profiles     []rawProfile       `yaml:"profiles"`
	Sources      []SourceConfig     `yaml:"sources"`
}

type rawRetryConfig struct {
	Attempts int    `yaml:"attempts"`
	Delay    string `yaml:"delay"`
}

type rawRateLimitConfig struct {
	MinDelay      string            `yaml:"min_delay"`
	HostOverrides map[string]string `yaml:"host_overrides"`
}

type rawStoreConfig struct {
	Driver    string `yaml:"driver"`
	DSN       string `yaml:"dsn"`
	Path      string `yaml:"path"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Retention string `yaml:"retention"`
}

type rawProfile struct {
	Name         string            `yaml:"name"`
	Query        string            `yaml:"query"`
	Location     string            `yaml:"location"`
	Keywords     []string          `yaml:"keywords"`
	DenyKeywords *[]string         `yaml:"deny_keywords"` // nil means use the defaults
	Filters      map[string]string `yaml:"filters"`
}

// ResolvePath picks the config file path.
// Priority: explicit path arg > JOBSCOUT_CONFIG env var > "./config.yaml"
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return defaultConfigPath
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
// A .env file next to the config (or in the working directory) is loaded
// first so ${VAR} references can point at secrets kept out of the YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env"); err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := raw.build()
	if err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDotEnv loads the first .env file that exists. Variables already set in
// the environment win.
func loadDotEnv(paths ...string) error {
	for _, p := range paths {
		err := godotenv.Load(p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func (raw rawConfig) build() (*Config, error) {
	fetchTimeout, err := durationOr(raw.FetchTimeout, 30*time.Second, "fetch_timeout")
	if err != nil {
		return nil, err
	}
	retryDelay, err := durationOr(raw.Retry.Delay, 2*time.Second, "retry.delay")
	if err != nil {
		return nil, err
	}
	minDelay, err := durationOr(raw.RateLimit.MinDelay, time.Second, "rate_limit.min_delay")
	if err != nil {
		return nil, err
	}
	retention, err := durationOr(raw.Store.Retention, 0, "store.retention")
	if err != nil {
		return nil, err
	}

	hostOverrides := make(map[string]time.Duration)
	for host, v := range raw.RateLimit.HostOverrides {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.host_overrides[%q]: %w", host, err)
		}
		hostOverrides[host] = d
	}

	cfg := &Config{
		Schedule:     orDefault(raw.Schedule, "@every 30m"),
		RunOnStart:   raw.RunOnStart == nil || *raw.RunOnStart,
		BatchCap:     intOr(raw.BatchCap, 10),
		FetchTimeout: fetchTimeout,
		Concurrency:  intOr(raw.Concurrency, 4),
		DryRun:       raw.DryRun,
		Retry: RetryConfig{
			Attempts: intOr(raw.Retry.Attempts, 3),
			Delay:    retryDelay,
		},
		RateLimit: RateLimitConfig{
			MinDelay:      minDelay,
			HostOverrides: hostOverrides,
		},
		Store: StoreConfig{
			Driver:    orDefault(raw.Store.Driver, "sqlite"),
			DSN:       raw.Store.DSN,
			Path:      raw.Store.Path,
			Bucket:    raw.Store.Bucket,
			Prefix:    raw.Store.Prefix,
			Retention: retention,
		},
		Notification: raw.Notification,
		Server:       raw.Server,
		Sources:      raw.Sources,
	}

	if cfg.Store.Path == "" {
		switch cfg.Store.Driver {
		case "sqlite":
			cfg.Store.Path = "jobscout.db"
		case "file":
			cfg.Store.Path = "sent_jobs.json"
		}
	}
	cfg.Notification.Type = orDefault(cfg.Notification.Type, "log")
	cfg.Notification.Email.Provider = orDefault(cfg.Notification.Email.Provider, "brevo")
	cfg.Server.Addr = orDefault(cfg.Server.Addr, ":8080")

	for i := range cfg.Sources {
		s := &cfg.Sources[i]
		s.Type = strings.ToLower(s.Type)
		if s.Name == "" {
			s.Name = defaultSourceName(*s)
		}
	}

	for _, p := range raw.Profiles {
		deny := slices.Clone(filter.DefaultDenyKeywords)
		if p.DenyKeywords != nil {
			deny = *p.DenyKeywords
		}
		cfg.Profiles = append(cfg.Profiles, model.SearchProfile{
			Name:         p.Name,
			Query:        p.Query,
			Location:     p.Location,
			Keywords:     p.Keywords,
			DenyKeywords: deny,
			Filters:      p.Filters,
		})
	}

	return cfg, nil
}

// defaultSourceName tags html sources with their site hostname and the rest
// with their type.
func defaultSourceName(s SourceConfig) string {
	if s.Type == "html" {
		if u, err := url.Parse(s.URL); err == nil && u.Hostname() != "" {
			return strings.TrimPrefix(u.Hostname(), "www.")
		}
	}
	return s.Type
}

func validate(cfg *Config) error {
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.BatchCap <= 0 {
		return fmt.Errorf("batch_cap must be positive, got %d", cfg.BatchCap)
	}
	if cfg.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", cfg.Concurrency)
	}
	if cfg.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive, got %v", cfg.FetchTimeout)
	}
	if cfg.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1, got %d", cfg.Retry.Attempts)
	}

	if len(cfg.Profiles) == 0 {
		return fmt.Errorf("at least one profile is required")
	}
	profileNames := make(map[string]bool)
	for i, p := range cfg.Profiles {
		if p.Name == "" {
			return fmt.Errorf("profiles[%d]: name is required", i)
		}
		if profileNames[p.Name] {
			return fmt.Errorf("profiles[%d]: duplicate name %q", i, p.Name)
		}
		profileNames[p.Name] = true
	}

	if len(cfg.EnabledSources()) == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}
	sourceNames := make(map[string]bool)
	for i, s := range cfg.EnabledSources() {
		if err := validateSource(s); err != nil {
			return fmt.Errorf("sources[%d] (%s): %w", i, s.Name, err)
		}
		if sourceNames[s.Name] {
			return fmt.Errorf("sources[%d]: duplicate name %q", i, s.Name)
		}
		sourceNames[s.Name] = true
	}

	if err := validateStore(cfg.Store); err != nil {
		return err
	}
	return validateNotification(cfg.Notification)
}

func validateSource(s SourceConfig) error {
	switch s.Type {
	case "html":
		if s.URL == "" {
			return fmt.Errorf("url is required for html sources")
		}
	case "jobsapi":
		if s.APIKey == "" {
			return fmt.Errorf("api_key is required for jobsapi sources")
		}
	case "adzuna":
		if s.AppID == "" || s.APIKey == "" {
			return fmt.Errorf("app_id and api_key are required for adzuna sources")
		}
	case "greenhouse":
		if s.BoardToken == "" {
			return fmt.Errorf("board_token is required for greenhouse sources")
		}
	case "lever":
		if s.CompanySlug == "" {
			return fmt.Errorf("company_slug is required for lever sources")
		}
	default:
		return fmt.Errorf("unknown source type %q", s.Type)
	}
	return nil
}

func validateStore(s StoreConfig) error {
	switch s.Driver {
	case "sqlite", "file", "memory":
	case "postgres", "redis":
		if s.DSN == "" {
			return fmt.Errorf("store.dsn is required when driver is %q", s.Driver)
		}
	case "gcs":
		if s.Bucket == "" {
			return fmt.Errorf("store.bucket is required when driver is \"gcs\"")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", s.Driver)
	}
	if s.Retention < 0 {
		return fmt.Errorf("store.retention must not be negative, got %v", s.Retention)
	}
	return nil
}

func validateNotification(n NotificationConfig) error {
	switch n.Type {
	case "log":
	case "slack":
		if n.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(n.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	case "telegram":
		if n.TelegramToken == "" || n.TelegramChatID == "" {
			return fmt.Errorf("notification.telegram_token and telegram_chat_id are required when type is \"telegram\"")
		}
	case "email":
		if n.Email.To == "" {
			return fmt.Errorf("notification.email.to is required when type is \"email\"")
		}
		switch n.Email.Provider {
		case "brevo":
			if n.Email.APIKey == "" || n.Email.From == "" {
				return fmt.Errorf("notification.email.api_key and from are required for brevo")
			}
		case "gmail", "mock":
		default:
			return fmt.Errorf("unknown notification.email.provider %q", n.Email.Provider)
		}
	default:
		return fmt.Errorf("unknown notification.type %q", n.Type)
	}
	return nil
}

func durationOr(s string, def time.Duration, field string) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return d, nil
}

func intOr(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Package config provides configuration management for the digest job.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/biolume/mlbio-digest/internal/domain"
)

// Config holds all configuration for the digest job.
type Config struct {
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains run-metrics settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Fetch contains HTTP fetcher settings shared by all API clients.
	Fetch FetchConfig `mapstructure:"fetch"`
	// Crossref contains the journal-metadata source settings.
	Crossref CrossrefConfig `mapstructure:"crossref"`
	// ArXiv contains the preprint source settings.
	ArXiv ArXivConfig `mapstructure:"arxiv"`
	// Altmetric contains the attention-score API settings.
	Altmetric AltmetricConfig `mapstructure:"altmetric"`
	// Enrichment contains worker pool settings for attention fan-out.
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	// Digest contains formatting settings for the delivered payload.
	Digest DigestConfig `mapstructure:"digest"`
	// Slack contains webhook delivery settings.
	Slack SlackConfig `mapstructure:"slack"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds run-metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and the end-of-run summary.
	Enabled bool `mapstructure:"enabled"`
	// PushURL is an optional Pushgateway address; empty disables pushing.
	PushURL string `mapstructure:"push_url" validate:"omitempty,url"`
	// Job is the Pushgateway job name.
	Job string `mapstructure:"job"`
}

// FetchConfig holds HTTP fetcher configuration shared by the API clients.
type FetchConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxTries is the total number of attempts per GET.
	MaxTries int `mapstructure:"max_tries" validate:"min=1"`
	// RetryBackoff is the base delay between tries; attempt n waits n times this.
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	// RateLimit is the maximum requests per second per client.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gt=0"`
	// BurstSize is the maximum burst of requests allowed.
	BurstSize int `mapstructure:"burst_size" validate:"min=1"`
	// UserAgent is the User-Agent header sent with requests.
	UserAgent string `mapstructure:"user_agent"`
}

// CrossrefConfig holds the journal-metadata source configuration.
type CrossrefConfig struct {
	// BaseURL is the Crossref API base URL.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// Venues is the journal allow-list; one works query is issued per venue.
	Venues []string `mapstructure:"venues" validate:"min=1"`
	// IncludeKeywords must match title+abstract at least once for a record to survive.
	IncludeKeywords []string `mapstructure:"include_keywords" validate:"min=1"`
	// ExcludeKeywords veto a record on any match.
	ExcludeKeywords []string `mapstructure:"exclude_keywords"`
	// Rows is the per-venue page size requested from the API.
	Rows int `mapstructure:"rows" validate:"min=1"`
	// MaxCandidates caps the pool before enrichment fan-out.
	MaxCandidates int `mapstructure:"max_candidates" validate:"min=1"`
	// TopN is the number of items this source contributes to the digest.
	TopN int `mapstructure:"top_n" validate:"min=1"`
}

// ArXivConfig holds the preprint source configuration.
type ArXivConfig struct {
	// BaseURL is the arXiv export API base URL.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// Query is the topic-restricted search query.
	Query string `mapstructure:"query" validate:"required"`
	// MaxResults is the feed page size requested from the API.
	MaxResults int `mapstructure:"max_results" validate:"min=1"`
	// RecentN is how many of the freshest entries are enriched.
	RecentN int `mapstructure:"recent_n" validate:"min=1"`
	// TopN is the number of items this source contributes to the digest.
	TopN int `mapstructure:"top_n" validate:"min=1"`
}

// AltmetricConfig holds the attention-score API configuration.
type AltmetricConfig struct {
	// BaseURL is the Altmetric API base URL.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

// EnrichmentConfig holds worker pool configuration for attention fan-out.
type EnrichmentConfig struct {
	// Workers is the fixed pool size for concurrent attention lookups.
	Workers int `mapstructure:"workers" validate:"min=1"`
}

// DigestConfig holds formatting configuration.
type DigestConfig struct {
	// HeaderTitle is the fixed title of the notification header block.
	HeaderTitle string `mapstructure:"header_title" validate:"required"`
	// WindowDays is the trailing freshness window in calendar days.
	WindowDays int `mapstructure:"window_days" validate:"min=1"`
}

// SlackConfig holds webhook delivery configuration.
type SlackConfig struct {
	// WebhookURL is the delivery endpoint. Loaded exclusively from the
	// MLBIO_SLACK_WEBHOOK_URL environment variable; absence aborts the run
	// before any network activity.
	WebhookURL string `mapstructure:"-"`
	// Timeout is the delivery request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// Window returns the freshness window as a duration.
func (c *DigestConfig) Window() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("MLBIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/mlbio-digest")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Slack.WebhookURL = os.Getenv("MLBIO_SLACK_WEBHOOK_URL")
}

// setDefaults sets default configuration values. The fetch, selection, and
// formatting defaults are the documented pipeline constants.
func setDefaults(v *viper.Viper) {
	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.push_url", "")
	v.SetDefault("metrics.job", "mlbio_digest")

	// Fetch defaults
	v.SetDefault("fetch.timeout", "25s")
	v.SetDefault("fetch.max_tries", 3)
	v.SetDefault("fetch.retry_backoff", "1200ms")
	v.SetDefault("fetch.rate_limit", 10.0)
	v.SetDefault("fetch.burst_size", 10)
	v.SetDefault("fetch.user_agent", "mlbio-digest/1.0")

	// Crossref defaults
	v.SetDefault("crossref.base_url", "https://api.crossref.org")
	v.SetDefault("crossref.venues", []string{
		"Nature", "Nature Medicine", "Nature Biotechnology", "Nature Methods",
		"Nature Genetics", "Nature Chemical Biology", "Nature Machine Intelligence",
		"Nature Communications", "Nature Aging", "Nature Computational Science",
		"Cell", "Cell Reports", "Cell Systems", "Immunity", "Cancer Cell",
		"Molecular Cell", "Cell Genomics", "Cell Host & Microbe",
	})
	v.SetDefault("crossref.include_keywords", []string{
		"machine learning", "deep learning", "artificial intelligence",
		"neural network", "genomics", "proteomics",
	})
	v.SetDefault("crossref.exclude_keywords", []string{
		"erratum", "corrigendum", "retraction", "publisher correction",
	})
	v.SetDefault("crossref.rows", 200)
	v.SetDefault("crossref.max_candidates", 30)
	v.SetDefault("crossref.top_n", 5)

	// arXiv defaults
	v.SetDefault("arxiv.base_url", "https://export.arxiv.org")
	v.SetDefault("arxiv.query",
		`((ti:"biology" OR ti:"biomedical" OR ti:"genomics" OR ti:"proteomics" OR ti:"protein" OR ti:"immunology" OR ti:"cancer" OR abs:"biology" OR abs:"genomics" OR abs:"proteomics")) AND (cat:cs.LG OR cat:stat.ML OR cat:q-bio.BM OR cat:q-bio.QM OR ti:"machine learning" OR ti:"deep learning")`)
	v.SetDefault("arxiv.max_results", 100)
	v.SetDefault("arxiv.recent_n", 10)
	v.SetDefault("arxiv.top_n", 2)

	// Altmetric defaults
	v.SetDefault("altmetric.base_url", "https://api.altmetric.com")

	// Enrichment defaults
	v.SetDefault("enrichment.workers", 5)

	// Digest defaults
	v.SetDefault("digest.header_title", "ML ↔ Biology: Last 30 Days (Top 5 + 2 arXiv)")
	v.SetDefault("digest.window_days", 30)

	// Slack defaults
	v.SetDefault("slack.timeout", "20s")
}

// Validate checks the configuration for consistency. A missing webhook URL
// is reported as domain.ErrConfigMissing so the caller can map it to the
// dedicated exit code before any network call is made.
func (c *Config) Validate() error {
	if c.Slack.WebhookURL == "" {
		return fmt.Errorf("MLBIO_SLACK_WEBHOOK_URL is not set: %w", domain.ErrConfigMissing)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.Fetch.RetryBackoff <= 0 {
		return fmt.Errorf("fetch retry backoff must be positive")
	}
	if c.Slack.Timeout <= 0 {
		return fmt.Errorf("slack timeout must be positive")
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

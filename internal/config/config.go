// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	DB      DBConfig      `mapstructure:"db"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN            string `mapstructure:"dsn"`
	MaxConns       int    `mapstructure:"max_conns"`
	MinConns       int    `mapstructure:"min_conns"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
}

// FetchConfig governs the retrieval strategy chain.
type FetchConfig struct {
	PremiumAPIKey         string         `mapstructure:"premium_api_key"`
	PremiumEndpoint       string         `mapstructure:"premium_endpoint"`
	PremiumTimeoutSeconds int            `mapstructure:"premium_timeout_seconds"`
	PremiumMaxRetries     int            `mapstructure:"premium_max_retries"`
	DirectTimeoutSeconds  int            `mapstructure:"direct_timeout_seconds"`
	RelayTimeoutSeconds   int            `mapstructure:"relay_timeout_seconds"`
	Headless              HeadlessConfig `mapstructure:"headless"`
}

// HeadlessConfig configures the headless rendering fallback.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// ScraperConfig governs run orchestration.
type ScraperConfig struct {
	BatchSize        int `mapstructure:"batch_size"`
	MaxSources       int `mapstructure:"max_sources"`
	RecencyHours     int `mapstructure:"recency_hours"`
	BatchDelayMs     int `mapstructure:"batch_delay_ms"`
	PersistThreshold int `mapstructure:"persist_threshold"`
}

// PubSubConfig holds metadata for run-completion notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ArchiveConfig sets where raw fetched HTML is kept.
type ArchiveConfig struct {
	Backend string `mapstructure:"backend"` // gcs, local, memory, or empty to disable
	Bucket  string `mapstructure:"bucket"`
	BaseDir string `mapstructure:"base_dir"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 600)
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("fetch.premium_timeout_seconds", 60)
	v.SetDefault("fetch.premium_max_retries", 2)
	v.SetDefault("fetch.direct_timeout_seconds", 15)
	v.SetDefault("fetch.relay_timeout_seconds", 10)
	v.SetDefault("fetch.headless.enabled", false)
	v.SetDefault("fetch.headless.max_parallel", 1)
	v.SetDefault("fetch.headless.nav_timeout_seconds", 45)
	v.SetDefault("scraper.batch_size", 5)
	v.SetDefault("scraper.max_sources", 10)
	v.SetDefault("scraper.recency_hours", 12)
	v.SetDefault("scraper.batch_delay_ms", 1000)
	v.SetDefault("scraper.persist_threshold", 8)
	v.SetDefault("pubsub.topic", "scrape-runs")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set")
	}
	if c.Scraper.BatchSize <= 0 {
		return fmt.Errorf("scraper.batch_size must be > 0")
	}
	if c.Scraper.MaxSources <= 0 {
		return fmt.Errorf("scraper.max_sources must be > 0")
	}
	if c.Fetch.Headless.Enabled && c.Fetch.Headless.MaxParallel <= 0 {
		return fmt.Errorf("fetch.headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Archive.Backend {
	case "", "memory", "local", "gcs":
	default:
		return fmt.Errorf("archive.backend must be one of gcs, local, memory")
	}
	if c.Archive.Backend == "gcs" && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket must be set for the gcs backend")
	}
	if c.Archive.Backend == "local" && c.Archive.BaseDir == "" {
		return fmt.Errorf("archive.base_dir must be set for the local backend")
	}
	return nil
}

// ServerTimeout converts the configured request limit into a duration.
func (c Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// BatchDelay converts the configured inter-batch pause into a duration.
func (c ScraperConfig) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMs) * time.Millisecond
}

// RecencyWindow converts the configured skip horizon into a duration.
func (c ScraperConfig) RecencyWindow() time.Duration {
	return time.Duration(c.RecencyHours) * time.Hour
}

// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	DB       DBConfig       `mapstructure:"db"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Publish  PublishConfig  `mapstructure:"publish"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
	ScrapeTimeoutSeconds  int `mapstructure:"scrape_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// ScraperConfig governs the harvest pipeline.
type ScraperConfig struct {
	UserAgent         string `mapstructure:"user_agent"`
	Headless          bool   `mapstructure:"headless"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	LinkCap           int    `mapstructure:"link_cap"`
	MinLinkLength     int    `mapstructure:"min_link_length"`
	DelayMinMs        int    `mapstructure:"delay_min_ms"`
	DelayJitterMs     int    `mapstructure:"delay_jitter_ms"`
	DefaultURL        string `mapstructure:"default_url"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory catalog store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// SnapshotConfig selects where rendered page snapshots are archived.
// Provider is one of "none", "memory", "local", or "gcs".
type SnapshotConfig struct {
	Provider string `mapstructure:"provider"`
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// PublishConfig selects the ingest-event publisher.
// Provider is one of "none", "memory", or "pubsub".
type PublishConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SHELFSCOUT")
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
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("server.scrape_timeout_seconds", 300)
	v.SetDefault("scraper.user_agent",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("scraper.headless", true)
	v.SetDefault("scraper.nav_timeout_seconds", 45)
	v.SetDefault("scraper.link_cap", 5)
	v.SetDefault("scraper.min_link_length", 30)
	v.SetDefault("scraper.delay_min_ms", 1000)
	v.SetDefault("scraper.delay_jitter_ms", 2000)
	v.SetDefault("scraper.default_url", "https://books.toscrape.com/")
	v.SetDefault("snapshot.provider", "none")
	v.SetDefault("snapshot.prefix", "snapshots")
	v.SetDefault("publish.provider", "none")
	v.SetDefault("publish.topic", "catalog-ingest")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.ScrapeTimeoutSeconds <= 0 {
		return fmt.Errorf("server.scrape_timeout_seconds must be > 0")
	}
	if c.Scraper.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.nav_timeout_seconds must be > 0")
	}
	if c.Scraper.LinkCap <= 0 {
		return fmt.Errorf("scraper.link_cap must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Snapshot.Provider {
	case "", "none", "memory":
	case "local":
		if c.Snapshot.BaseDir == "" {
			return fmt.Errorf("snapshot.base_dir must be set for the local provider")
		}
	case "gcs":
		if c.Snapshot.Bucket == "" {
			return fmt.Errorf("snapshot.bucket must be set for the gcs provider")
		}
	default:
		return fmt.Errorf("unknown snapshot.provider %q", c.Snapshot.Provider)
	}
	switch c.Publish.Provider {
	case "", "none", "memory":
	case "pubsub":
		if c.Publish.ProjectID == "" {
			return fmt.Errorf("publish.project_id must be set for the pubsub provider")
		}
	default:
		return fmt.Errorf("unknown publish.provider %q", c.Publish.Provider)
	}
	return nil
}

// ScrapeTimeout returns the per-request scrape budget as a duration.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Server.ScrapeTimeoutSeconds) * time.Second
}

// RequestTimeout returns the general HTTP request budget as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ScraperSettings converts the scraper knobs into pipeline durations.
func (c Config) ScraperSettings() (userAgent string, navTimeout, delayMin, delayJitter time.Duration) {
	return c.Scraper.UserAgent,
		time.Duration(c.Scraper.NavTimeoutSeconds) * time.Second,
		time.Duration(c.Scraper.DelayMinMs) * time.Millisecond,
		time.Duration(c.Scraper.DelayJitterMs) * time.Millisecond
}

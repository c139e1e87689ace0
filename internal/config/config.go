// Package config loads application configuration from file and
// environment, with sane defaults for everything.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Searcher   SearcherConfig   `mapstructure:"searcher"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Indexers   []IndexerConfig  `mapstructure:"indexers"`
	Downloader DownloaderConfig `mapstructure:"downloader"`
}

// IndexerConfig describes one newznab/torznab endpoint.
type IndexerConfig struct {
	Name       string `mapstructure:"name"`
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api_key"`
	Protocol   string `mapstructure:"protocol"`
	Categories []int  `mapstructure:"categories"`
}

// DownloaderConfig holds the blackhole directories.
type DownloaderConfig struct {
	WatchDir string `mapstructure:"watch_dir"`
	DoneDir  string `mapstructure:"done_dir"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// SearcherConfig holds the search pipeline's filters and policies.
type SearcherConfig struct {
	// RequiredWords are "word1&word2" sets; a release must match at
	// least one set when any are configured.
	RequiredWords []string `mapstructure:"required_words"`
	// IgnoredWords are word sets that reject a release outright.
	IgnoredWords []string `mapstructure:"ignored_words"`
	// PreferredWords boost a release's score without affecting filtering.
	PreferredWords []string `mapstructure:"preferred_words"`
	// RetentionDays rejects usenet releases older than this. 0 disables.
	RetentionDays int `mapstructure:"retention_days"`
	// PreferredProtocol breaks score ties ("usenet" or "torrent").
	PreferredProtocol string `mapstructure:"preferred_protocol"`
	// AlwaysSearch bypasses the release-date gate on profile tiers.
	AlwaysSearch bool `mapstructure:"always_search"`
	// NextOnFailed starts a fresh search when a download fails.
	NextOnFailed bool `mapstructure:"next_on_failed"`
	// Concurrency bounds parallel provider queries per tier.
	Concurrency int `mapstructure:"concurrency"`
	// Retries is how often a failing provider query is retried.
	Retries uint `mapstructure:"retries"`
}

// ScheduleConfig holds the cron expressions and stale windows for the
// background jobs.
type ScheduleConfig struct {
	SearchCron string `mapstructure:"search_cron"`
	CheckCron  string `mapstructure:"check_cron"`
	CleanCron  string `mapstructure:"clean_cron"`
	// StaleAvailable is how long an unrefreshed available release is kept.
	StaleAvailable time.Duration `mapstructure:"stale_available"`
	// StaleAbandoned is how long an untouched snatched or downloaded
	// release is kept before being demoted to ignored.
	StaleAbandoned time.Duration `mapstructure:"stale_abandoned"`
}

// Default returns a Config with default values.
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.fetcharr")
	}

	// Environment variable settings
	v.SetEnvPrefix("FETCHARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	// Unmarshal into struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "./data/fetcharr.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "./data/logs")

	// Searcher defaults
	v.SetDefault("searcher.required_words", []string{})
	v.SetDefault("searcher.ignored_words", []string{})
	v.SetDefault("searcher.preferred_words", []string{})
	v.SetDefault("searcher.retention_days", 0)
	v.SetDefault("searcher.preferred_protocol", "torrent")
	v.SetDefault("searcher.always_search", false)
	v.SetDefault("searcher.next_on_failed", true)
	v.SetDefault("searcher.concurrency", 4)
	v.SetDefault("searcher.retries", 2)

	// Downloader defaults
	v.SetDefault("downloader.watch_dir", "./data/watch")
	v.SetDefault("downloader.done_dir", "./data/done")

	// Schedule defaults
	v.SetDefault("schedule.search_cron", "0 */6 * * *")
	v.SetDefault("schedule.check_cron", "*/5 * * * *")
	v.SetDefault("schedule.clean_cron", "0 4 * * *")
	v.SetDefault("schedule.stale_available", 7*24*time.Hour)
	v.SetDefault("schedule.stale_abandoned", 7*24*time.Hour)
}

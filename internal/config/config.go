package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	DatabasePath string `koanf:"database_path"` // empty means the XDG data default
	LogLevel     string `koanf:"log_level"`     // "debug", "info", "warn", "error"

	// Streaming provider credentials (enables catalog and playlist access
	// when configured)
	Provider ProviderConfig `koanf:"provider"`

	// Last.fm scrobbling (enables play counting and loved sync when
	// configured)
	Lastfm LastfmConfig `koanf:"lastfm"`

	// Sync queue behavior
	Sync SyncConfig `koanf:"sync"`
}

// ProviderConfig holds streaming provider API configuration.
type ProviderConfig struct {
	BaseURL      string `koanf:"base_url"` // e.g., "https://api.provider.example"
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
}

// LastfmConfig holds Last.fm scrobbling configuration.
type LastfmConfig struct {
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
}

// SyncConfig holds retry sweep configuration.
type SyncConfig struct {
	SweepIntervalSeconds int `koanf:"sweep_interval_seconds"` // cadence of the retry sweep (default: 60)
	MaxAttempts          int `koanf:"max_attempts"`           // retries per queued item before it is parked (default: 10)
	PurgeAfterDays       int `koanf:"purge_after_days"`       // age at which parked items are dropped (default: 30)
	StatusTTLSeconds     int `koanf:"status_ttl_seconds"`     // connection-health memoization window (default: 30)
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	configPaths := getConfigPaths()

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	// Expand ~ in database_path
	if cfg.DatabasePath != "" {
		cfg.DatabasePath = expandPath(cfg.DatabasePath)
	}

	// Normalize provider URL (remove trailing slash)
	cfg.Provider.BaseURL = strings.TrimSuffix(cfg.Provider.BaseURL, "/")

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/curator/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "curator", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasProviderConfig returns true if the streaming provider is configured.
func (c *Config) HasProviderConfig() bool {
	return c.Provider.BaseURL != "" && c.Provider.ClientID != "" && c.Provider.ClientSecret != ""
}

// HasLastfmConfig returns true if Last.fm scrobbling is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

// GetSyncConfig returns the sync configuration with defaults applied.
func (c *Config) GetSyncConfig() SyncConfig {
	cfg := c.Sync

	// Apply defaults
	if cfg.SweepIntervalSeconds <= 0 {
		cfg.SweepIntervalSeconds = 60
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.PurgeAfterDays <= 0 {
		cfg.PurgeAfterDays = 30
	}
	if cfg.StatusTTLSeconds <= 0 {
		cfg.StatusTTLSeconds = 30
	}

	return cfg
}

//nolint:goconst // test cases intentionally repeat strings for readability
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tilde expands to home",
			input:    "~/curator.db",
			expected: filepath.Join(home, "curator.db"),
		},
		{
			name:     "tilde with nested path",
			input:    "~/data/curator/state.db",
			expected: filepath.Join(home, "data", "curator", "state.db"),
		},
		{
			name:     "absolute path unchanged",
			input:    "/var/lib/curator.db",
			expected: "/var/lib/curator.db",
		},
		{
			name:     "relative path unchanged",
			input:    "data/curator.db",
			expected: "data/curator.db",
		},
		{
			name:     "empty string unchanged",
			input:    "",
			expected: "",
		},
		{
			name:     "tilde only",
			input:    "~",
			expected: home,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			if result != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := getConfigPaths()

	if len(paths) == 0 {
		t.Error("getConfigPaths() returned empty slice")
	}

	// Last path should be local config.toml
	lastPath := paths[len(paths)-1]
	if lastPath != "config.toml" {
		t.Errorf("last config path = %q, want %q", lastPath, "config.toml")
	}

	// If we have home dir, first path should be ~/.config/curator/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		expectedFirst := filepath.Join(home, ".config", "curator", "config.toml")
		if paths[0] != expectedFirst {
			t.Errorf("first config path = %q, want %q", paths[0], expectedFirst)
		}
	}
}

func TestHasProviderConfig(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name: "all fields set",
			config: Config{
				Provider: ProviderConfig{
					BaseURL:      "https://api.provider.example",
					ClientID:     "my-client-id",
					ClientSecret: "my-client-secret",
				},
			},
			expected: true,
		},
		{
			name: "missing secret",
			config: Config{
				Provider: ProviderConfig{
					BaseURL:  "https://api.provider.example",
					ClientID: "my-client-id",
				},
			},
			expected: false,
		},
		{
			name: "missing base URL",
			config: Config{
				Provider: ProviderConfig{
					ClientID:     "my-client-id",
					ClientSecret: "my-client-secret",
				},
			},
			expected: false,
		},
		{
			name:     "nothing set",
			config:   Config{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.HasProviderConfig()
			if result != tt.expected {
				t.Errorf("HasProviderConfig() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestHasLastfmConfig(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name: "both APIKey and APISecret set",
			config: Config{
				Lastfm: LastfmConfig{
					APIKey:    "my-api-key",
					APISecret: "my-api-secret",
				},
			},
			expected: true,
		},
		{
			name: "only APIKey set",
			config: Config{
				Lastfm: LastfmConfig{
					APIKey: "my-api-key",
				},
			},
			expected: false,
		},
		{
			name: "only APISecret set",
			config: Config{
				Lastfm: LastfmConfig{
					APISecret: "my-api-secret",
				},
			},
			expected: false,
		},
		{
			name:     "neither set",
			config:   Config{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.HasLastfmConfig()
			if result != tt.expected {
				t.Errorf("HasLastfmConfig() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestGetSyncConfig_Defaults(t *testing.T) {
	cfg := Config{}
	sync := cfg.GetSyncConfig()

	if sync.SweepIntervalSeconds != 60 {
		t.Errorf("SweepIntervalSeconds = %d, want 60", sync.SweepIntervalSeconds)
	}
	if sync.MaxAttempts != 10 {
		t.Errorf("MaxAttempts = %d, want 10", sync.MaxAttempts)
	}
	if sync.PurgeAfterDays != 30 {
		t.Errorf("PurgeAfterDays = %d, want 30", sync.PurgeAfterDays)
	}
	if sync.StatusTTLSeconds != 30 {
		t.Errorf("StatusTTLSeconds = %d, want 30", sync.StatusTTLSeconds)
	}
}

func TestGetSyncConfig_CustomValues(t *testing.T) {
	cfg := Config{
		Sync: SyncConfig{
			SweepIntervalSeconds: 120,
			MaxAttempts:          3,
			PurgeAfterDays:       7,
			StatusTTLSeconds:     10,
		},
	}

	sync := cfg.GetSyncConfig()

	if sync.SweepIntervalSeconds != 120 {
		t.Errorf("SweepIntervalSeconds = %d, want 120", sync.SweepIntervalSeconds)
	}
	if sync.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", sync.MaxAttempts)
	}
	if sync.PurgeAfterDays != 7 {
		t.Errorf("PurgeAfterDays = %d, want 7", sync.PurgeAfterDays)
	}
	if sync.StatusTTLSeconds != 10 {
		t.Errorf("StatusTTLSeconds = %d, want 10", sync.StatusTTLSeconds)
	}
}

func TestGetSyncConfig_InvalidValues(t *testing.T) {
	cfg := Config{
		Sync: SyncConfig{
			SweepIntervalSeconds: -5,
			MaxAttempts:          0,
			PurgeAfterDays:       -1,
			StatusTTLSeconds:     0,
		},
	}

	sync := cfg.GetSyncConfig()

	if sync.SweepIntervalSeconds != 60 {
		t.Errorf("SweepIntervalSeconds with invalid value = %d, want 60", sync.SweepIntervalSeconds)
	}
	if sync.MaxAttempts != 10 {
		t.Errorf("MaxAttempts with invalid value = %d, want 10", sync.MaxAttempts)
	}
	if sync.PurgeAfterDays != 30 {
		t.Errorf("PurgeAfterDays with invalid value = %d, want 30", sync.PurgeAfterDays)
	}
	if sync.StatusTTLSeconds != 30 {
		t.Errorf("StatusTTLSeconds with invalid value = %d, want 30", sync.StatusTTLSeconds)
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	tmpDir := t.TempDir()
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("could not get working directory: %v", err)
	}

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("could not change to temp directory: %v", err)
	}
	defer func() {
		_ = os.Chdir(originalWd)
	}()

	if err := os.WriteFile("config.toml", []byte(""), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}

	// Load should succeed even with empty config
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}
}

func TestLoad_BasicConfig(t *testing.T) {
	tmpDir := t.TempDir()
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("could not get working directory: %v", err)
	}

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("could not change to temp directory: %v", err)
	}
	defer func() {
		_ = os.Chdir(originalWd)
	}()

	configContent := `
log_level = "debug"
database_path = "~/curator.db"

[provider]
base_url = "https://api.provider.example/"
client_id = "test-id"
client_secret = "test-secret"

[lastfm]
api_key = "lfm-key"
api_secret = "lfm-secret"
`
	if err := os.WriteFile("config.toml", []byte(configContent), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}

	// Check that URL trailing slash is removed
	if cfg.Provider.BaseURL != "https://api.provider.example" {
		t.Errorf("Provider.BaseURL = %q, want %q", cfg.Provider.BaseURL, "https://api.provider.example")
	}

	if !cfg.HasProviderConfig() {
		t.Error("HasProviderConfig() = false, want true")
	}
	if !cfg.HasLastfmConfig() {
		t.Error("HasLastfmConfig() = false, want true")
	}

	// database_path should have ~ expanded
	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, "curator.db")
	if cfg.DatabasePath != expected {
		t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, expected)
	}
}

func TestLoad_InvalidToml(t *testing.T) {
	tmpDir := t.TempDir()
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("could not get working directory: %v", err)
	}

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("could not change to temp directory: %v", err)
	}
	defer func() {
		_ = os.Chdir(originalWd)
	}()

	if err := os.WriteFile("config.toml", []byte("invalid = [[["), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}

	_, err = Load()
	if err == nil {
		t.Error("Load() expected error for invalid TOML, got nil")
	}
}

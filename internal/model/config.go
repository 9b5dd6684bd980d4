package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// APIConfig describes the remote admin API.
type APIConfig struct {
	// BaseURL is the current API origin (e.g., https://api.example.com).
	// Attachment links are rewritten against it.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// StreamConfig names one notification-producing resource.
type StreamConfig struct {
	Resource string `mapstructure:"resource" yaml:"resource"`
	Kind     string `mapstructure:"kind" yaml:"kind"`
}

// SyncConfig controls background polling.
type SyncConfig struct {
	ReportIntervalSec       int            `mapstructure:"report_interval_sec" yaml:"report_interval_sec"`
	NotificationIntervalSec int            `mapstructure:"notification_interval_sec" yaml:"notification_interval_sec"`
	RetryAttempts           int            `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	Streams                 []StreamConfig `mapstructure:"streams" yaml:"streams"`
}

// StorageConfig locates the local state database.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// DefaultConfigDir returns ~/.config/ecotrack.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "ecotrack")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/ecotrack/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultStreams are the notification streams polled when none are
// configured.
func DefaultStreams() []StreamConfig {
	return []StreamConfig{
		{Resource: "new-users", Kind: string(SourceKindUser)},
		{Resource: "new-reports", Kind: string(SourceKindReport)},
	}
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://localhost:3000",
			TimeoutSec: 30,
		},
		Sync: SyncConfig{
			ReportIntervalSec:       60,
			NotificationIntervalSec: 30,
			RetryAttempts:           3,
			Streams:                 DefaultStreams(),
		},
		Storage: StorageConfig{
			DBPath: filepath.Join(DefaultConfigDir(), "state.db"),
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(DefaultConfigDir(), "ecotrack.log"),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
// ECOTRACK_* environment variables override file values
// (e.g., ECOTRACK_API_BASE_URL).
func LoadConfig(path string) (*AppConfig, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ecotrack")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout_sec", def.API.TimeoutSec)
	v.SetDefault("sync.report_interval_sec", def.Sync.ReportIntervalSec)
	v.SetDefault("sync.notification_interval_sec", def.Sync.NotificationIntervalSec)
	v.SetDefault("sync.retry_attempts", def.Sync.RetryAttempts)
	v.SetDefault("storage.db_path", def.Storage.DBPath)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.file", def.Log.File)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if _, ok := err.(*os.PathError); !ok && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if len(cfg.Sync.Streams) == 0 {
		cfg.Sync.Streams = DefaultStreams()
	}
	if cfg.Sync.ReportIntervalSec <= 0 {
		cfg.Sync.ReportIntervalSec = def.Sync.ReportIntervalSec
	}
	if cfg.Sync.NotificationIntervalSec <= 0 {
		cfg.Sync.NotificationIntervalSec = def.Sync.NotificationIntervalSec
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("sync", cfg.Sync)
	v.Set("storage", cfg.Storage)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

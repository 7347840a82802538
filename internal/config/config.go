// Package config loads the preload simulator configuration from file and
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the complete simulator configuration.
//
// Precedence, highest first:
//  1. Environment variables (LISTPRELOAD_*)
//  2. Configuration file
//  3. Defaults
type Config struct {
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging" json:"logging"`
	Preload     PreloadConfig     `mapstructure:"preload" yaml:"preload" json:"preload"`
	Loader      LoaderConfig      `mapstructure:"loader" yaml:"loader" json:"loader"`
	Fingerprint FingerprintConfig `mapstructure:"fingerprint" yaml:"fingerprint" json:"fingerprint"`
	Store       StoreConfig       `mapstructure:"store" yaml:"store" json:"store"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
	Catalog     CatalogConfig     `mapstructure:"catalog" yaml:"catalog" json:"catalog"`
	Scroll      ScrollConfig      `mapstructure:"scroll" yaml:"scroll" json:"scroll"`
}

type LoggingConfig struct {
	// Level is the minimum log level to output
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level" json:"level"`

	// Format is the log output format: text or json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format" json:"format"`

	// Backend selects the logging library behind the preloader's logger
	Backend string `mapstructure:"backend" validate:"required,oneof=zap logrus slog" yaml:"backend" json:"backend"`
}

type PreloadConfig struct {
	// MaxPreload is how many positions ahead of the visible range are loaded
	MaxPreload int `mapstructure:"max_preload" validate:"min=1" yaml:"max_preload" json:"max_preload"`

	// Width and Height are the fixed view size every item is loaded at
	Width  int `mapstructure:"width" validate:"min=1" yaml:"width" json:"width"`
	Height int `mapstructure:"height" validate:"min=1" yaml:"height" json:"height"`
}

type LoaderConfig struct {
	Workers      int `mapstructure:"workers" validate:"min=1" yaml:"workers" json:"workers"`
	QueueSize    int `mapstructure:"queue_size" validate:"min=1" yaml:"queue_size" json:"queue_size"`
	CacheEntries int `mapstructure:"cache_entries" validate:"min=16" yaml:"cache_entries" json:"cache_entries"`
}

type FingerprintConfig struct {
	Enabled   bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Workers   int  `mapstructure:"workers" validate:"min=1" yaml:"workers" json:"workers"`
	QueueSize int  `mapstructure:"queue_size" validate:"min=1" yaml:"queue_size" json:"queue_size"`
}

type StoreConfig struct {
	// Path is the fingerprint database directory
	Path     string `mapstructure:"path" validate:"required_without=InMemory" yaml:"path" json:"path"`
	InMemory bool   `mapstructure:"in_memory" yaml:"in_memory" json:"in_memory"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true" yaml:"addr" json:"addr"`
}

// CatalogConfig selects the items scrolled over. Dir and URLs are combined;
// when both are empty Synthetic generated images are used.
type CatalogConfig struct {
	Dir       string   `mapstructure:"dir" yaml:"dir" json:"dir"`
	URLs      []string `mapstructure:"urls" validate:"dive,url" yaml:"urls" json:"urls"`
	Synthetic int      `mapstructure:"synthetic" validate:"min=0" yaml:"synthetic" json:"synthetic"`
}

type ScrollConfig struct {
	// VisibleCount is the number of items on screen at once
	VisibleCount int `mapstructure:"visible_count" validate:"min=1" yaml:"visible_count" json:"visible_count"`

	// Step is how many positions each scroll event moves
	Step int `mapstructure:"step" validate:"min=1" yaml:"step" json:"step"`

	// Sweeps is the number of passes down and back up the list
	Sweeps int `mapstructure:"sweeps" validate:"min=1" yaml:"sweeps" json:"sweeps"`

	// Interval is the pause between scroll events
	Interval time.Duration `mapstructure:"interval" validate:"min=0" yaml:"interval" json:"interval"`
}

// Load loads configuration from file and environment variables. An empty
// configPath searches the default location; a missing file means defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	setupViper(v, configPath)
	setDefaults(v, GetDefaultConfig())

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration against its validate tags.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// SaveConfig writes cfg as YAML to path, creating parent directories.
func SaveConfig(cfg *Config, path string) error {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use yaml.Marshal directly to respect yaml tags
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use LISTPRELOAD_ prefix and underscores
	// Example: LISTPRELOAD_PRELOAD_MAX_PRELOAD=8
	v.SetEnvPrefix("LISTPRELOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(GetConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// setDefaults registers every key so environment variables apply even when
// no config file exists.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.backend", cfg.Logging.Backend)

	v.SetDefault("preload.max_preload", cfg.Preload.MaxPreload)
	v.SetDefault("preload.width", cfg.Preload.Width)
	v.SetDefault("preload.height", cfg.Preload.Height)

	v.SetDefault("loader.workers", cfg.Loader.Workers)
	v.SetDefault("loader.queue_size", cfg.Loader.QueueSize)
	v.SetDefault("loader.cache_entries", cfg.Loader.CacheEntries)

	v.SetDefault("fingerprint.enabled", cfg.Fingerprint.Enabled)
	v.SetDefault("fingerprint.workers", cfg.Fingerprint.Workers)
	v.SetDefault("fingerprint.queue_size", cfg.Fingerprint.QueueSize)

	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("store.in_memory", cfg.Store.InMemory)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)

	v.SetDefault("catalog.dir", cfg.Catalog.Dir)
	v.SetDefault("catalog.urls", cfg.Catalog.URLs)
	v.SetDefault("catalog.synthetic", cfg.Catalog.Synthetic)

	v.SetDefault("scroll.visible_count", cfg.Scroll.VisibleCount)
	v.SetDefault("scroll.step", cfg.Scroll.Step)
	v.SetDefault("scroll.sweeps", cfg.Scroll.Sweeps)
	v.SetDefault("scroll.interval", cfg.Scroll.Interval)
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		// Check if error is "config file not found"
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		// Also check for os.PathError when explicit config file doesn't exist
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// GetConfigDir returns $XDG_CONFIG_HOME/listpreload, falling back to
// ~/.config/listpreload.
func GetConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "listpreload")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "listpreload")
}

// GetDefaultConfigPath returns the config file path used when none is given.
func GetDefaultConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

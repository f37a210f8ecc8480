package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration for a cuemap
// process: the engine's own tuning knobs plus the ambient REST/rate-limit/
// logging layers that front it.
type Config struct {
	Profile       string              `mapstructure:"profile"`
	Engine        EngineConfig        `mapstructure:"engine"`
	Snapshot      SnapshotConfig      `mapstructure:"snapshot"`
	Consolidation ConsolidationConfig `mapstructure:"consolidation"`
	Tenancy       TenancyConfig       `mapstructure:"tenancy"`
	RestAPI       RestAPIConfig       `mapstructure:"rest_api"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// EngineConfig holds recall-engine and background-worker tuning knobs.
type EngineConfig struct {
	DefaultRecallLimit int `mapstructure:"default_recall_limit"`
	JobQueueCapacity   int `mapstructure:"job_queue_capacity"`
	JobQueueWorkers    int `mapstructure:"job_queue_workers"`
}

// SnapshotConfig controls where and how often periodic snapshots land
// (§4.6 — snapshot is the only persisted state).
type SnapshotConfig struct {
	DataDir  string        `mapstructure:"data_dir"`
	Interval time.Duration `mapstructure:"interval"`
}

// ConsolidationConfig controls the background gist-creation sweep (§4.5).
type ConsolidationConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// TenancyConfig controls multi-tenant routing (§9).
type TenancyConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// RestAPIConfig holds REST API server configuration.
type RestAPIConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	AutoPort     bool     `mapstructure:"auto_port"`
	Port         int      `mapstructure:"port"`
	Host         string   `mapstructure:"host"`
	CORS         bool     `mapstructure:"cors"`
	APIKey       string   `mapstructure:"api_key"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// RateLimitConfig mirrors internal/ratelimit.Config's shape so it can be
// populated straight off this tree instead of hand-assembled.
type RateLimitConfig struct {
	Enabled bool                 `mapstructure:"enabled"`
	Global  RateLimitRule        `mapstructure:"global"`
	Routes  []RateLimitRouteRule `mapstructure:"routes"`
}

// RateLimitRule is a requests-per-second/burst pair.
type RateLimitRule struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// RateLimitRouteRule names a specific route's limit.
type RateLimitRouteRule struct {
	Name              string  `mapstructure:"name"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// DefaultConfig returns configuration with sane defaults for a single
// developer machine or a lightly loaded single-tenant deployment.
func DefaultConfig() *Config {
	return &Config{
		Profile: "default",
		Engine: EngineConfig{
			DefaultRecallLimit: 10,
			JobQueueCapacity:   1000,
			JobQueueWorkers:    4,
		},
		Snapshot: SnapshotConfig{
			DataDir:  DataPath(),
			Interval: 5 * time.Minute,
		},
		Consolidation: ConsolidationConfig{
			Enabled:  true,
			Interval: time.Hour,
		},
		Tenancy: TenancyConfig{
			Enabled: false,
		},
		RestAPI: RestAPIConfig{
			Enabled:  true,
			AutoPort: true,
			Port:     8089,
			Host:     "localhost",
			CORS:     true,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Global: RateLimitRule{
				RequestsPerSecond: 100,
				BurstSize:         200,
			},
			Routes: []RateLimitRouteRule{
				{Name: "recall", RequestsPerSecond: 50, BurstSize: 100},
				{Name: "remember", RequestsPerSecond: 30, BurstSize: 60},
				{Name: "reinforce", RequestsPerSecond: 30, BurstSize: 60},
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file with fallback to defaults.
// Searches in multiple locations:
//  1. ./config.yaml (current directory)
//  2. ~/.cuemap/config.yaml (user home)
//  3. /etc/cuemap/config.yaml (system-wide)
//
// When a config file is found, any key that has a default or appears in
// the file can also be set via a CUEMAP_-prefixed environment variable,
// with underscores standing in for each '.' (e.g. CUEMAP_REST_API_PORT).
// When no config file is found, Load returns DefaultConfig() as is and
// reads no environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	homeDir, _ := os.UserHomeDir()
	v.AddConfigPath(filepath.Join(homeDir, ".cuemap"))
	v.AddConfigPath("/etc/cuemap")

	v.SetEnvPrefix("cuemap")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in Viper.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("profile", d.Profile)

	v.SetDefault("engine.default_recall_limit", d.Engine.DefaultRecallLimit)
	v.SetDefault("engine.job_queue_capacity", d.Engine.JobQueueCapacity)
	v.SetDefault("engine.job_queue_workers", d.Engine.JobQueueWorkers)

	v.SetDefault("snapshot.data_dir", d.Snapshot.DataDir)
	v.SetDefault("snapshot.interval", d.Snapshot.Interval.String())

	v.SetDefault("consolidation.enabled", d.Consolidation.Enabled)
	v.SetDefault("consolidation.interval", d.Consolidation.Interval.String())

	v.SetDefault("tenancy.enabled", d.Tenancy.Enabled)

	v.SetDefault("rest_api.enabled", d.RestAPI.Enabled)
	v.SetDefault("rest_api.auto_port", d.RestAPI.AutoPort)
	v.SetDefault("rest_api.port", d.RestAPI.Port)
	v.SetDefault("rest_api.host", d.RestAPI.Host)
	v.SetDefault("rest_api.cors", d.RestAPI.CORS)

	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.global.requests_per_second", d.RateLimit.Global.RequestsPerSecond)
	v.SetDefault("rate_limit.global.burst_size", d.RateLimit.Global.BurstSize)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Snapshot.DataDir == "" {
		return fmt.Errorf("snapshot.data_dir is required")
	}

	if c.RestAPI.Enabled {
		if c.RestAPI.Port < 1 || c.RestAPI.Port > 65535 {
			return fmt.Errorf("rest_api.port must be between 1 and 65535")
		}
		if c.RestAPI.Host == "" {
			return fmt.Errorf("rest_api.host is required when REST API is enabled")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: console, json")
	}

	return nil
}

// EnsureDataDir creates the snapshot data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.Snapshot.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// ConfigPath returns the path to the configuration directory.
func ConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".cuemap")
}

// DataPath returns the default snapshot data directory.
func DataPath() string {
	return filepath.Join(ConfigPath(), "data")
}

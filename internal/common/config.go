package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"`
	Logging     LoggingConfig    `toml:"logging"`
	Storage     StorageConfig    `toml:"storage"`
	Advisor     AdvisorConfig    `toml:"advisor"`
	Engine      EngineConfig     `toml:"engine"`
	Proxy       ProxyConfig      `toml:"proxy"`
	Inspection  InspectionConfig `toml:"inspection"`
	Scheduler   SchedulerConfig  `toml:"scheduler"`
	Targets     TargetsDirConfig `toml:"targets"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// AdvisorConfig configures the external LLM advisor. An empty APIKey puts
// the bridge into offline fallback mode.
type AdvisorConfig struct {
	Provider    string  `toml:"provider" validate:"omitempty,oneof=claude gemini offline"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens" validate:"omitempty,gt=0"`
	Temperature float32 `toml:"temperature" validate:"gte=0,lte=1"`
	Timeout     string  `toml:"timeout"`   // e.g. "30s"
	CacheTTL    string  `toml:"cache_ttl"` // e.g. "5m"
}

// EngineConfig configures the per-target crawl loop.
type EngineConfig struct {
	RequestTimeoutMs int      `toml:"request_timeout_ms" validate:"omitempty,gt=0"`
	RecentWindow     int      `toml:"recent_window" validate:"omitempty,gt=0"`
	ExplorePaths     []string `toml:"explore_paths"`
	EnableBrowser    bool     `toml:"enable_browser"`
	BrowserPoolSize  int      `toml:"browser_pool_size" validate:"omitempty,gt=0,lte=20"`
}

// ProxyConfig configures the optional SOCKS upstream for outbound traffic.
type ProxyConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type" validate:"omitempty,oneof=socks5"`
	Host    string `toml:"host"`
	Port    int    `toml:"port" validate:"omitempty,gt=0,lte=65535"`
}

// InspectionConfig configures the optional cooperating traffic-inspection
// proxy. When a host is set, TLS verification is disabled for outbound
// requests so the inspection proxy can terminate TLS.
type InspectionConfig struct {
	Host   string `toml:"host"`
	Port   int    `toml:"port" validate:"omitempty,gt=0,lte=65535"`
	APIKey string `toml:"api_key"`
}

type SchedulerConfig struct {
	Enabled    bool   `toml:"enabled"`
	GCSchedule string `toml:"gc_schedule"` // cron expression for storage maintenance
}

// TargetsDirConfig points at the directory of target seed files (TOML).
type TargetsDirConfig struct {
	Dir string `toml:"dir"`
}

// DefaultConfig returns the built-in defaults applied before any config
// file or environment override.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{Path: "./data/chameleon"},
		},
		Advisor: AdvisorConfig{
			Provider:    "claude",
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   4096,
			Temperature: 0.3,
			Timeout:     "30s",
			CacheTTL:    "5m",
		},
		Engine: EngineConfig{
			RequestTimeoutMs: 15000,
			RecentWindow:     20,
			ExplorePaths:     []string{"/", "/blog", "/about", "/contact"},
			BrowserPoolSize:  2,
		},
		Scheduler: SchedulerConfig{
			Enabled:    true,
			GCSchedule: "@every 5m",
		},
		Targets: TargetsDirConfig{Dir: "./targets"},
	}
}

// LoadFromFiles loads configuration by layering defaults, then each config
// file in order (later files override earlier ones), then environment
// variables. The merged result is validated before being returned.
func LoadFromFiles(defaults *Config, paths ...string) (*Config, error) {
	config := defaults
	if config == nil {
		config = DefaultConfig()
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against its declared constraints.
func Validate(config *Config) error {
	v := validator.New()
	if err := v.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if config.Advisor.Timeout != "" {
		if _, err := time.ParseDuration(config.Advisor.Timeout); err != nil {
			return fmt.Errorf("invalid advisor timeout %q: %w", config.Advisor.Timeout, err)
		}
	}
	if config.Advisor.CacheTTL != "" {
		if _, err := time.ParseDuration(config.Advisor.CacheTTL); err != nil {
			return fmt.Errorf("invalid advisor cache_ttl %q: %w", config.Advisor.CacheTTL, err)
		}
	}
	if config.Proxy.Enabled && config.Proxy.Host == "" {
		return fmt.Errorf("invalid configuration: proxy enabled without a host")
	}
	return nil
}

// AdvisorTimeout returns the parsed advisor call deadline.
func (c *Config) AdvisorTimeout() time.Duration {
	d, err := time.ParseDuration(c.Advisor.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// AdvisorCacheTTL returns the parsed advisor response cache TTL.
func (c *Config) AdvisorCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Advisor.CacheTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// RequestTimeout returns the per-request HTTP deadline.
func (c *Config) RequestTimeout() time.Duration {
	if c.Engine.RequestTimeoutMs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Engine.RequestTimeoutMs) * time.Millisecond
}

// applyEnvOverrides applies CHAMELEON_* environment variables on top of
// the loaded configuration.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("CHAMELEON_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("CHAMELEON_BADGER_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("CHAMELEON_ADVISOR_PROVIDER"); v != "" {
		config.Advisor.Provider = v
	}
	if v := os.Getenv("CHAMELEON_ADVISOR_API_KEY"); v != "" {
		config.Advisor.APIKey = v
	}
	if v := os.Getenv("CHAMELEON_ADVISOR_MODEL"); v != "" {
		config.Advisor.Model = v
	}
	if v := os.Getenv("CHAMELEON_PROXY_HOST"); v != "" {
		config.Proxy.Host = v
		config.Proxy.Enabled = true
	}
	if v := os.Getenv("CHAMELEON_PROXY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Proxy.Port = port
		}
	}
	if v := os.Getenv("CHAMELEON_INSPECTION_HOST"); v != "" {
		config.Inspection.Host = v
	}
	if v := os.Getenv("CHAMELEON_INSPECTION_API_KEY"); v != "" {
		config.Inspection.APIKey = v
	}
}

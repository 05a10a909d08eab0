// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Scenario ScenarioConfig `mapstructure:"scenario" yaml:"scenario"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the browser processes launched per session.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	ExecPath        string         `mapstructure:"exec_path" yaml:"exec_path"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	DisableCache    bool           `mapstructure:"disable_cache" yaml:"disable_cache"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        map[string]int `mapstructure:"viewport" yaml:"viewport"`
	// SlowMo delays every dispatched user action by this much.
	SlowMo        time.Duration `mapstructure:"slow_mo" yaml:"slow_mo"`
	LaunchTimeout time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	// NavigationTimeout bounds the wait for the main document on navigate.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// ScenarioConfig configures how scenarios are executed.
type ScenarioConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Timeout bounds one whole scenario run. Zero disables the bound.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// AssertTimeout is used by waits that do not name their own timeout.
	AssertTimeout time.Duration `mapstructure:"assert_timeout" yaml:"assert_timeout"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// OutputDir is prepended to relative artifact paths.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	FullPage  bool   `mapstructure:"full_page" yaml:"full_page"`
}

// ReportConfig controls the outcome report written after a run.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// DatabaseConfig holds the connection details for the optional run history store.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "uiverify")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.disable_cache", true)
	v.SetDefault("browser.viewport.width", 1280)
	v.SetDefault("browser.viewport.height", 720)
	v.SetDefault("browser.slow_mo", "0s")
	v.SetDefault("browser.launch_timeout", "60s")
	v.SetDefault("browser.navigation_timeout", "30s")

	// -- Scenario --
	v.SetDefault("scenario.base_url", "http://localhost:3000")
	v.SetDefault("scenario.timeout", "2m")
	v.SetDefault("scenario.assert_timeout", "5s")
	v.SetDefault("scenario.poll_interval", "50ms")
	v.SetDefault("scenario.output_dir", ".")
	v.SetDefault("scenario.full_page", false)

	// -- Report --
	v.SetDefault("report.format", "text")
	v.SetDefault("report.output", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The history store is opt-in and its URL usually carries a password.
	_ = v.BindEnv("database.url", "UIVERIFY_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values the harness cannot run with.
func (c *Config) Validate() error {
	if c.Scenario.BaseURL != "" {
		u, err := url.Parse(c.Scenario.BaseURL)
		if err != nil {
			return fmt.Errorf("scenario.base_url is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("scenario.base_url must be http or https, got %q", c.Scenario.BaseURL)
		}
	}
	if c.Scenario.AssertTimeout < 0 {
		return fmt.Errorf("scenario.assert_timeout must not be negative")
	}
	if c.Scenario.PollInterval <= 0 {
		return fmt.Errorf("scenario.poll_interval must be positive")
	}
	if c.Scenario.AssertTimeout > 0 && c.Scenario.PollInterval >= c.Scenario.AssertTimeout {
		return fmt.Errorf("scenario.poll_interval (%v) must be shorter than scenario.assert_timeout (%v)",
			c.Scenario.PollInterval, c.Scenario.AssertTimeout)
	}
	if c.Browser.SlowMo < 0 {
		return fmt.Errorf("browser.slow_mo must not be negative")
	}
	switch strings.ToLower(c.Report.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("report.format must be 'text' or 'json', got %q", c.Report.Format)
	}
	return nil
}

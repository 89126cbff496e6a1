// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the browser process. The viewport
// dimensions are what the reasoning service's screenshots are rendered at;
// the service's normalized coordinates are translated against the live
// viewport, so these are a starting size, not an invariant.
type BrowserConfig struct {
	Headless       bool     `mapstructure:"headless" yaml:"headless"`
	ViewportWidth  int      `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int      `mapstructure:"viewport_height" yaml:"viewport_height"`
	Args           []string `mapstructure:"args" yaml:"args"`
}

// NetworkConfig tunes navigation and settling behavior.
type NetworkConfig struct {
	// NavigationTimeout bounds a full page navigation.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// LoadStateTimeout bounds the post-action wait for the page load state.
	LoadStateTimeout time.Duration `mapstructure:"load_state_timeout" yaml:"load_state_timeout"`
	// SettleDelay is the fixed pause after each state-changing action so the
	// next screenshot observes a rendered page.
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// AgentConfig holds settings for the turn loop and the reasoning service.
type AgentConfig struct {
	Model  string `mapstructure:"model" yaml:"model"`
	APIKey string `mapstructure:"api_key" yaml:"-"`
	// Endpoint overrides the default generateContent URL (used in tests).
	Endpoint   string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	// TurnTimeout bounds one full reasoning call including retries.
	TurnTimeout time.Duration `mapstructure:"turn_timeout" yaml:"turn_timeout"`
	MaxTurns    int           `mapstructure:"max_turns" yaml:"max_turns"`
	// MaxWait clamps the Wait action duration.
	MaxWait time.Duration `mapstructure:"max_wait" yaml:"max_wait"`
	// MaxTypableChars caps the sanitized Type payload length.
	MaxTypableChars int `mapstructure:"max_typable_chars" yaml:"max_typable_chars"`
	// HistoryTail is how many recent turn records are sent to the service in
	// addition to the seed record.
	HistoryTail int `mapstructure:"history_tail" yaml:"history_tail"`
	// ScreenshotTail is how many of those records keep their screenshot.
	ScreenshotTail int `mapstructure:"screenshot_tail" yaml:"screenshot_tail"`
	// RequestsPerMinute rate-limits reasoning service calls; 0 disables.
	RequestsPerMinute float64 `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	StartURL          string  `mapstructure:"start_url" yaml:"start_url"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "computer-use")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	// Screen dimensions the Computer Use tool was trained against.
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.viewport_width", 1440)
	v.SetDefault("browser.viewport_height", 900)

	// -- Network --
	v.SetDefault("network.navigation_timeout", 30*time.Second)
	v.SetDefault("network.load_state_timeout", 5*time.Second)
	v.SetDefault("network.settle_delay", time.Second)

	// -- Agent --
	v.SetDefault("agent.model", "gemini-2.5-computer-use-preview-10-2025")
	v.SetDefault("agent.api_timeout", 60*time.Second)
	v.SetDefault("agent.turn_timeout", 2*time.Minute)
	v.SetDefault("agent.max_turns", 25)
	v.SetDefault("agent.max_wait", 30*time.Second)
	v.SetDefault("agent.max_typable_chars", 1024)
	v.SetDefault("agent.history_tail", 8)
	v.SetDefault("agent.screenshot_tail", 3)
	v.SetDefault("agent.requests_per_minute", 0)
	v.SetDefault("agent.start_url", "about:blank")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults only.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The API key is sensitive and comes from the environment only.
	v.BindEnv("agent.api_key", "GEMINI_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if cfg.Agent.APIKey == "" {
		cfg.Agent.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser.viewport_width and browser.viewport_height must be positive")
	}
	if c.Agent.MaxTurns <= 0 {
		return fmt.Errorf("agent.max_turns must be a positive integer")
	}
	if c.Agent.Model == "" {
		return fmt.Errorf("agent.model is a required configuration field")
	}
	if c.Agent.HistoryTail < 1 {
		return fmt.Errorf("agent.history_tail must be at least 1")
	}
	if c.Agent.ScreenshotTail < 1 {
		return fmt.Errorf("agent.screenshot_tail must be at least 1")
	}
	if c.Agent.MaxTypableChars <= 0 {
		return fmt.Errorf("agent.max_typable_chars must be positive")
	}
	if c.Agent.MaxWait <= 0 {
		return fmt.Errorf("agent.max_wait must be a positive duration")
	}
	return nil
}

// internal/config/config_test.go
package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TechNavii/computer-use-demo/internal/config"
)

func TestDefaults(t *testing.T) {
	cfg := config.NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "computer-use", cfg.Logger.ServiceName)

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 1440, cfg.Browser.ViewportWidth)
	assert.Equal(t, 900, cfg.Browser.ViewportHeight)

	assert.Equal(t, 30*time.Second, cfg.Network.NavigationTimeout)
	assert.Equal(t, 5*time.Second, cfg.Network.LoadStateTimeout)
	assert.Equal(t, time.Second, cfg.Network.SettleDelay)

	assert.Equal(t, "gemini-2.5-computer-use-preview-10-2025", cfg.Agent.Model)
	assert.Equal(t, 25, cfg.Agent.MaxTurns)
	assert.Equal(t, 30*time.Second, cfg.Agent.MaxWait)
	assert.Equal(t, 1024, cfg.Agent.MaxTypableChars)
	assert.Equal(t, 8, cfg.Agent.HistoryTail)
	assert.Equal(t, 3, cfg.Agent.ScreenshotTail)

	require.NoError(t, cfg.Validate())
}

func TestNewConfigFromViperReadsAPIKeyEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key-from-env")

	v := viper.New()
	config.SetDefaults(v)

	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "key-from-env", cfg.Agent.APIKey)
}

func TestNewConfigFromViperOverrides(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("browser.headless", true)
	v.Set("agent.max_turns", 7)
	v.Set("agent.start_url", "https://news.ycombinator.com/")

	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 7, cfg.Agent.MaxTurns)
	assert.Equal(t, "https://news.ycombinator.com/", cfg.Agent.StartURL)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"zero viewport", func(c *config.Config) { c.Browser.ViewportWidth = 0 }, "viewport_width"},
		{"negative viewport height", func(c *config.Config) { c.Browser.ViewportHeight = -1 }, "viewport_height"},
		{"zero max turns", func(c *config.Config) { c.Agent.MaxTurns = 0 }, "max_turns"},
		{"empty model", func(c *config.Config) { c.Agent.Model = "" }, "agent.model"},
		{"zero history tail", func(c *config.Config) { c.Agent.HistoryTail = 0 }, "history_tail"},
		{"zero screenshot tail", func(c *config.Config) { c.Agent.ScreenshotTail = 0 }, "screenshot_tail"},
		{"zero typable chars", func(c *config.Config) { c.Agent.MaxTypableChars = 0 }, "max_typable_chars"},
		{"zero max wait", func(c *config.Config) { c.Agent.MaxWait = 0 }, "max_wait"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

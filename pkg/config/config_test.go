package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, 1024, cfg.RecorderBuffer)
	assert.Equal(t, 6, cfg.CodeLength)
	assert.Equal(t, 0, cfg.FreeLinkLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.ResolveTimeout())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KOMPI_PORT", "9090")
	t.Setenv("KOMPI_BASE_URL", "https://kmp.to")
	t.Setenv("KOMPI_RECORDER_BUFFER", "256")
	t.Setenv("KOMPI_FREE_LINK_LIMIT", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://kmp.to", cfg.BaseURL)
	assert.Equal(t, 256, cfg.RecorderBuffer)
	assert.Equal(t, 25, cfg.FreeLinkLimit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults pass", func(*Config) {}, true},
		{"zero buffer", func(c *Config) { c.RecorderBuffer = 0 }, false},
		{"zero workers", func(c *Config) { c.RecorderWorkers = 0 }, false},
		{"code too short", func(c *Config) { c.CodeLength = 2 }, false},
		{"no attempts", func(c *Config) { c.CodeMaxAttempts = 0 }, false},
		{"missing base url", func(c *Config) { c.BaseURL = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

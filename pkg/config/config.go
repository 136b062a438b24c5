// Package config loads engine configuration from defaults, an optional
// YAML file, and KOMPI_-prefixed environment variables, in that order of
// precedence (env highest). A local .env file is honored for development.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "KOMPI_CONFIG"

// DefaultConfigPaths lists where a config file is searched, first hit wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/kompi/config.yaml",
}

type Config struct {
	Port        string `koanf:"port"`
	BaseURL     string `koanf:"base_url"`
	DatabaseURL string `koanf:"database_url"`
	AppEnv      string `koanf:"app_env"`
	JWTSecret   string `koanf:"jwt_secret"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"` // json or console

	// Recorder tuning. BufferSize bounds the in-flight click queue; events
	// beyond it are dropped rather than delaying redirects.
	RecorderBuffer  int `koanf:"recorder_buffer"`
	RecorderWorkers int `koanf:"recorder_workers"`
	RecorderRetries int `koanf:"recorder_retries"`

	// Code generation.
	CodeLength       int `koanf:"code_length"`
	CodeMaxAttempts  int `koanf:"code_max_attempts"`
	FreeLinkLimit    int `koanf:"free_link_limit"` // 0 = unlimited
	ResolveTimeoutMS int `koanf:"resolve_timeout_ms"`
}

func defaultConfig() *Config {
	return &Config{
		Port:             "8080",
		BaseURL:          "http://localhost:8080",
		DatabaseURL:      "file:kompi.sqlite",
		AppEnv:           "local",
		JWTSecret:        "secret",
		LogLevel:         "info",
		LogFormat:        "console",
		RecorderBuffer:   1024,
		RecorderWorkers:  4,
		RecorderRetries:  2,
		CodeLength:       6,
		CodeMaxAttempts:  5,
		FreeLinkLimit:    0,
		ResolveTimeoutMS: 500,
	}
}

// Load builds the configuration: defaults, then config file, then env.
func Load() (*Config, error) {
	_ = godotenv.Load() // ignore error if .env not found (e.g. prod)

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// KOMPI_DATABASE_URL -> database_url
	envProvider := env.Provider("KOMPI_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "KOMPI_"))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.RecorderBuffer < 1 {
		return fmt.Errorf("recorder_buffer must be positive, got %d", c.RecorderBuffer)
	}
	if c.RecorderWorkers < 1 {
		return fmt.Errorf("recorder_workers must be positive, got %d", c.RecorderWorkers)
	}
	if c.CodeLength < 3 {
		return fmt.Errorf("code_length must be at least 3, got %d", c.CodeLength)
	}
	if c.CodeMaxAttempts < 1 {
		return fmt.Errorf("code_max_attempts must be positive, got %d", c.CodeMaxAttempts)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	return nil
}

// ResolveTimeout returns the registry lookup timeout for public resolution.
func (c *Config) ResolveTimeout() time.Duration {
	return time.Duration(c.ResolveTimeoutMS) * time.Millisecond
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// envOverrides are applied on top of the YAML file so deployments can inject
// settings (the shared secret in particular) without touching the file.
type envOverrides struct {
	Listen        string        `env:"WEBHOOKD_LISTEN"`
	SharedSecret  string        `env:"WEBHOOKD_SHARED_SECRET"`
	StorePath     string        `env:"WEBHOOKD_STORE_PATH"`
	LogLevel      string        `env:"WEBHOOKD_LOG_LEVEL"`
	DrainInterval time.Duration `env:"WEBHOOKD_DRAIN_INTERVAL"`
}

// Load reads configuration from an optional YAML file, applies environment
// overrides, and validates the result. An empty path loads defaults plus
// environment only.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if configPath != "" {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
		}
		data, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("config file not found: %s", absPath)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", absPath, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return err
	}

	if o.Listen != "" {
		cfg.Webhook.Listen = o.Listen
	}
	if o.SharedSecret != "" {
		cfg.Webhook.SharedSecret = o.SharedSecret
	}
	if o.StorePath != "" {
		cfg.Store.Path = o.StorePath
	}
	if o.LogLevel != "" {
		cfg.Service.LogLevel = o.LogLevel
	}
	if o.DrainInterval > 0 {
		cfg.Retry.DrainInterval = o.DrainInterval
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.Webhook.Listen == "" {
		return fmt.Errorf("webhook.listen is required")
	}
	if cfg.Webhook.SharedSecret == "" {
		return fmt.Errorf("webhook.shared_secret is required (set WEBHOOKD_SHARED_SECRET)")
	}
	if cfg.Webhook.MaxBodySize <= 0 {
		return fmt.Errorf("webhook.max_body_size must be positive")
	}
	if cfg.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if cfg.Retry.DrainEnabled && cfg.Retry.DrainInterval <= 0 {
		return fmt.Errorf("retry.drain_interval must be positive when draining is enabled")
	}
	return nil
}

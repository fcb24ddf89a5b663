package config

import "time"

// Config represents the complete webhookd configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Store   StoreConfig   `yaml:"store"`
	Webhook WebhookConfig `yaml:"webhook"`
	Retry   RetryConfig   `yaml:"retry"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
}

// StoreConfig defines durable store settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// WebhookConfig defines the ingestion endpoint settings.
type WebhookConfig struct {
	Listen string `yaml:"listen"`

	// SharedSecret is the HMAC secret shared with the platform. Prefer the
	// WEBHOOKD_SHARED_SECRET environment variable over committing it here.
	SharedSecret string `yaml:"shared_secret,omitempty"`

	MaxBodySize int64 `yaml:"max_body_size,omitempty"`
}

// RetryConfig defines retry drain settings. Disabling the drain loop leaves
// retry entries in place for an external worker.
type RetryConfig struct {
	DrainEnabled  bool          `yaml:"drain_enabled"`
	DrainInterval time.Duration `yaml:"drain_interval"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "webhookd",
			LogLevel: "info",
		},
		Store: StoreConfig{
			Path: "./data/webhookd.db",
		},
		Webhook: WebhookConfig{
			Listen:      "127.0.0.1:8080",
			MaxBodySize: 1048576,
		},
		Retry: RetryConfig{
			DrainEnabled:  true,
			DrainInterval: 5 * time.Second,
		},
	}
}

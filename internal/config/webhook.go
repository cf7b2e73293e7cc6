package config

import "time"

// Webhook configures inbound gateway deliveries and outbound tenant notifications
type Webhook struct {
	// ReplayTTL is how long a processed gateway delivery is remembered
	ReplayTTL          time.Duration `mapstructure:"replay_ttl"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" validate:"min=0"`

	// outbound notifications
	Enabled bool                           `mapstructure:"enabled"`
	Topic   string                         `mapstructure:"topic"`
	Tenants map[string]TenantWebhookConfig `mapstructure:"tenants"`

	// delivery retries of the notification router
	MaxRetries      int           `mapstructure:"max_retries" validate:"min=0"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

// TenantWebhookConfig represents webhook configuration for a specific tenant
type TenantWebhookConfig struct {
	Endpoint       string            `mapstructure:"endpoint"`
	Headers        map[string]string `mapstructure:"headers"`
	Enabled        bool              `mapstructure:"enabled"`
	ExcludedEvents []string          `mapstructure:"excluded_events"`
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/paysync/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Server         ServerConfig         `mapstructure:"server" validate:"required"`
	Logging        LoggingConfig        `mapstructure:"logging" validate:"required"`
	Postgres       PostgresConfig       `mapstructure:"postgres" validate:"required"`
	Auth           AuthConfig           `mapstructure:"auth" validate:"required"`
	Gateway        GatewayConfig        `mapstructure:"gateway" validate:"required"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation" validate:"required"`
	Webhook        Webhook              `mapstructure:"webhook"`
	Sentry         SentryConfig         `mapstructure:"sentry"`
	Plans          []PlanConfig         `mapstructure:"plans" validate:"dive"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host" validate:"required"`
	Port                   int    `mapstructure:"port" validate:"required"`
	User                   string `mapstructure:"user" validate:"required"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname" validate:"required"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
}

type AuthConfig struct {
	// Secret verifies the HS256 tokens issued by the identity service
	Secret string `mapstructure:"secret" validate:"required"`
}

// GatewayConfig is injected into the gateway client and webhook verifier
type GatewayConfig struct {
	BaseURL         string        `mapstructure:"base_url" validate:"required,url"`
	SecretKey       string        `mapstructure:"secret_key" validate:"required"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"required"`
	RetryMax        int           `mapstructure:"retry_max" validate:"min=0,max=10"`
	DefaultCurrency string        `mapstructure:"default_currency" validate:"required,len=3"`
	CallbackURL     string        `mapstructure:"callback_url" validate:"omitempty,url"`
	SignatureHeader string        `mapstructure:"signature_header" validate:"required"`
}

// ReconciliationConfig bounds the storage retry loop of the reconciliation engine
type ReconciliationConfig struct {
	MaxRetries     uint64        `mapstructure:"max_retries" validate:"min=1"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"min=0,max=1"`
}

// PlanConfig overrides an entry of the built-in plan catalog
type PlanConfig struct {
	ID           string `mapstructure:"id" validate:"required"`
	Name         string `mapstructure:"name"`
	MonthlyPrice string `mapstructure:"monthly_price" validate:"required,numeric"`
	YearlyPrice  string `mapstructure:"yearly_price" validate:"required,numeric"`
	Currency     string `mapstructure:"currency"`
}

func NewConfig() (*Configuration, error) {
	// a local .env feeds the PAYSYNC_ overrides below; absent in deployed envs
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paysync")

	// PAYSYNC_GATEWAY_SECRET_KEY overrides gateway.secret_key
	v.SetEnvPrefix("PAYSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 20)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 30)
	v.SetDefault("gateway.base_url", "https://api.paystack.co")
	v.SetDefault("gateway.timeout", 10*time.Second)
	v.SetDefault("gateway.retry_max", 2)
	v.SetDefault("gateway.default_currency", types.DefaultCurrency)
	v.SetDefault("gateway.signature_header", "x-paystack-signature")
	v.SetDefault("reconciliation.max_retries", 5)
	v.SetDefault("reconciliation.initial_backoff", 50*time.Millisecond)
	v.SetDefault("reconciliation.max_backoff", 2*time.Second)
	v.SetDefault("webhook.topic", "tenant_notifications")
	v.SetDefault("webhook.replay_ttl", 24*time.Hour)
	v.SetDefault("webhook.rate_limit_per_minute", 600)
	v.SetDefault("webhook.max_retries", 3)
	v.SetDefault("webhook.initial_interval", time.Second)
	v.SetDefault("webhook.max_interval", 10*time.Second)
	v.SetDefault("webhook.multiplier", 2.0)
	v.SetDefault("webhook.max_elapsed_time", 2*time.Minute)
	v.SetDefault("sentry.sample_rate", 1.0)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a configuration for tests and local tooling
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Server:  ServerConfig{Address: ":8080", ShutdownTimeout: 15 * time.Second},
		Logging: LoggingConfig{Level: types.LogLevelDebug},
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "paysync",
			DBName:  "paysync",
			SSLMode: "disable",
		},
		Auth: AuthConfig{Secret: "local-secret"},
		Gateway: GatewayConfig{
			BaseURL:         "https://api.paystack.co",
			SecretKey:       "sk_test_local",
			Timeout:         10 * time.Second,
			RetryMax:        0,
			DefaultCurrency: types.DefaultCurrency,
			SignatureHeader: "x-paystack-signature",
		},
		Reconciliation: ReconciliationConfig{
			MaxRetries:     5,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     10 * time.Millisecond,
		},
		Webhook: Webhook{
			Topic:              "tenant_notifications",
			ReplayTTL:          24 * time.Hour,
			RateLimitPerMinute: 600,
			MaxRetries:         1,
			InitialInterval:    time.Millisecond,
			MaxInterval:        10 * time.Millisecond,
			Multiplier:         2,
			MaxElapsedTime:     time.Second,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

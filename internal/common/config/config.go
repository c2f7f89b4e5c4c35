// Package config provides configuration management for the auth engine
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Service identification
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
	Port        int    `mapstructure:"port"`
	LogLevel    string `mapstructure:"log_level"`

	// Storage connections
	RedisURL         string `mapstructure:"redis_url"`
	DatabaseURL      string `mapstructure:"database_url"`
	ElasticsearchURL string `mapstructure:"elasticsearch_url"`

	// Security settings
	JWTSecret          string `mapstructure:"jwt_secret"`
	CORSAllowedOrigins string `mapstructure:"cors_allowed_origins"`

	// Challenge verification (Cloudflare Turnstile)
	TurnstileSecret    string `mapstructure:"turnstile_secret"`
	TurnstileVerifyURL string `mapstructure:"turnstile_verify_url"`

	// Rate limiting
	EnableRateLimit   bool `mapstructure:"enable_rate_limit"`
	RateLimitRequests int  `mapstructure:"rate_limit_requests"`
	RateLimitWindow   int  `mapstructure:"rate_limit_window"`

	// Risk scoring weight overrides; zero values fall back to defaults
	Risk RiskConfig `mapstructure:"risk"`
}

// RiskConfig holds optional overrides for the composite risk weights
type RiskConfig struct {
	BruteForceWeight         float64 `mapstructure:"brute_force_weight"`
	CredentialStuffingWeight float64 `mapstructure:"credential_stuffing_weight"`
	GeoVelocityWeight        float64 `mapstructure:"geo_velocity_weight"`
	AnomalyWeight            float64 `mapstructure:"anomaly_weight"`
	DeviceReputationWeight   float64 `mapstructure:"device_reputation_weight"`
}

// Load reads configuration from file and environment variables
func Load(serviceName string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/authengine")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("AUTHENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.ServiceName = serviceName

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("port", 8080)

	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("database_url", "")
	v.SetDefault("elasticsearch_url", "")

	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("turnstile_verify_url", "https://challenges.cloudflare.com/turnstile/v0/siteverify")

	v.SetDefault("enable_rate_limit", true)
	v.SetDefault("rate_limit_requests", 100)
	v.SetDefault("rate_limit_window", 60)
}

// bindEnvVars supports common non-prefixed environment variables
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("redis_url", "AUTHENGINE_REDIS_URL", "REDIS_URL")
	_ = v.BindEnv("database_url", "AUTHENGINE_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("elasticsearch_url", "AUTHENGINE_ELASTICSEARCH_URL", "ELASTICSEARCH_URL")
	_ = v.BindEnv("jwt_secret", "AUTHENGINE_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("turnstile_secret", "AUTHENGINE_TURNSTILE_SECRET", "TURNSTILE_SECRET")
	_ = v.BindEnv("environment", "AUTHENGINE_ENVIRONMENT", "APP_ENV")
	_ = v.BindEnv("log_level", "AUTHENGINE_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("port", "AUTHENGINE_PORT", "PORT")
}

func validate(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}

	if cfg.RedisURL == "" {
		return fmt.Errorf("redis_url is required")
	}

	if cfg.IsProduction() {
		if cfg.JWTSecret == "" {
			return fmt.Errorf("jwt_secret is required in production")
		}
		if len(cfg.JWTSecret) < 32 {
			return fmt.Errorf("jwt_secret must be at least 32 characters in production")
		}
		if cfg.TurnstileSecret == "" {
			return fmt.Errorf("turnstile_secret is required in production")
		}
	}

	return nil
}

// IsProduction reports whether the service runs in a production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Google identity provider configuration
	Google GoogleConfig `mapstructure:"google"`

	// JWT configuration
	JWT JWTConfig `mapstructure:"jwt"`

	// CORS configuration
	CORS CORSConfig `mapstructure:"cors"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Monitoring configuration
	Monitoring MonitoringConfig `mapstructure:"monitoring"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`

	// Environment: development, staging or production
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// GoogleConfig holds Google identity provider configuration
type GoogleConfig struct {
	ClientID string `mapstructure:"client_id"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	TokenTTL  int    `mapstructure:"token_ttl"` // seconds
	Issuer    string `mapstructure:"issuer"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigin string `mapstructure:"allowed_origin"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	AuthRequests    int  `mapstructure:"auth_requests"`
	AuthWindowSec   int  `mapstructure:"auth_window_sec"`
	GeneralRequests int  `mapstructure:"general_requests"`
	GeneralWindow   int  `mapstructure:"general_window_sec"`
	CleanupInterval int  `mapstructure:"cleanup_interval"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Port        int    `mapstructure:"port"`
	MetricsPath string `mapstructure:"metrics_path"`
	HealthPath  string `mapstructure:"health_path"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/medibridge")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideWithEnv(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// IsProduction reports whether the app runs with production hardening
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.idle_timeout", 120)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "medibridge")
	viper.SetDefault("database.user", "medibridge")
	viper.SetDefault("database.ssl_mode", "require")
	viper.SetDefault("database.max_open_conns", 20)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)

	// JWT defaults: 7 day sessions
	viper.SetDefault("jwt.token_ttl", 7*24*3600)
	viper.SetDefault("jwt.issuer", "medibridge-backend")

	// CORS defaults
	viper.SetDefault("cors.allowed_origin", "http://localhost:3000")

	// Rate limiting defaults: 5 auth attempts and 100 general requests per 15 minutes
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.auth_requests", 5)
	viper.SetDefault("rate_limit.auth_window_sec", 900)
	viper.SetDefault("rate_limit.general_requests", 100)
	viper.SetDefault("rate_limit.general_window_sec", 900)
	viper.SetDefault("rate_limit.cleanup_interval", 60)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.port", 9090)
	viper.SetDefault("monitoring.metrics_path", "/metrics")
	viper.SetDefault("monitoring.health_path", "/health")

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("environment", "development")
}

// overrideWithEnv overrides configuration with well-known environment variables
func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		config.JWT.SecretKey = jwtSecret
	}

	if clientID := os.Getenv("GOOGLE_CLIENT_ID"); clientID != "" {
		config.Google.ClientID = clientID
	}

	if origin := os.Getenv("FRONTEND_URL"); origin != "" {
		config.CORS.AllowedOrigin = origin
	}

	if env := os.Getenv("NODE_ENV"); env != "" {
		config.Environment = env
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		config.Environment = env
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}
}

// validate validates the configuration
func validate(config *Config) error {
	if config.JWT.SecretKey == "" {
		return fmt.Errorf("JWT secret key is required")
	}

	if config.Google.ClientID == "" {
		return fmt.Errorf("Google client ID is required")
	}

	if config.Database.Password == "" {
		return fmt.Errorf("database password is required")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.JWT.TokenTTL <= 0 {
		return fmt.Errorf("invalid JWT token TTL: %d", config.JWT.TokenTTL)
	}

	return nil
}

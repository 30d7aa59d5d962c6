package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	AWS      AWSConfig      `mapstructure:"aws"`
	Identity IdentityConfig `mapstructure:"identity"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Email    EmailConfig    `mapstructure:"email"`
	Portal   PortalConfig   `mapstructure:"portal"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// AWSConfig holds the shared AWS client configuration. Credentials may also
// come from the default provider chain (environment, instance profile).
type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// IdentityConfig holds the user pool configuration.
type IdentityConfig struct {
	// Mode selects the provider.
	// "cognito" - AWS Cognito user pool (production)
	// "dev"     - in-memory pool for local development
	Mode     string `mapstructure:"mode"`
	PoolID   string `mapstructure:"pool_id"`
	ClientID string `mapstructure:"client_id"`
}

// StorageConfig holds the icon object storage configuration.
type StorageConfig struct {
	// Mode selects the backend: "s3" or "memory".
	Mode   string `mapstructure:"mode"`
	Bucket string `mapstructure:"bucket"`
}

// EmailConfig holds outgoing mail configuration.
type EmailConfig struct {
	// Mode selects the mailer: "ses" or "log".
	Mode   string `mapstructure:"mode"`
	Sender string `mapstructure:"sender"`
	// ReviewAddress receives app submission notifications.
	ReviewAddress string `mapstructure:"review_address"`
}

// PortalConfig holds portal-wide settings.
type PortalConfig struct {
	// BaseURL is the externally visible URL, used in invitation links and
	// the OpenAPI document.
	BaseURL string `mapstructure:"base_url"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("database.dsn", "./data/devportal.db")
	v.SetDefault("aws.region", "eu-central-1")
	v.SetDefault("identity.mode", "dev")
	v.SetDefault("identity.pool_id", "")
	v.SetDefault("identity.client_id", "")
	v.SetDefault("storage.mode", "memory")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("email.mode", "log")
	v.SetDefault("email.sender", "noreply@localhost")
	v.SetDefault("email.review_address", "review@localhost")
	v.SetDefault("portal.base_url", "http://localhost:8000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("DEVPORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate rejects mode combinations that cannot start.
func (c *Config) Validate() error {
	switch c.Identity.Mode {
	case "cognito":
		if c.Identity.PoolID == "" || c.Identity.ClientID == "" {
			return fmt.Errorf("identity.pool_id and identity.client_id are required in cognito mode")
		}
	case "dev":
	default:
		return fmt.Errorf("identity.mode must be cognito or dev, got %q", c.Identity.Mode)
	}

	switch c.Storage.Mode {
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required in s3 mode")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.mode must be s3 or memory, got %q", c.Storage.Mode)
	}

	switch c.Email.Mode {
	case "ses", "log":
	default:
		return fmt.Errorf("email.mode must be ses or log, got %q", c.Email.Mode)
	}

	return nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

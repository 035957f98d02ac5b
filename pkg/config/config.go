package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/consoleworks/authcore/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	URL         string        `yaml:"url"`
	MaxConns    int           `yaml:"max_conns"`
	MinConns    int           `yaml:"min_conns"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`

	// InstanceID identifies this serving instance in session rows.
	// Defaults to the hostname.
	InstanceID string `yaml:"instance_id"`
}

// SecurityConfig holds credential-handling configuration
type SecurityConfig struct {
	// CredentialSecret keys the reversible credential-encryption scheme.
	CredentialSecret string `yaml:"credential_secret"`

	// SessionRetention is how long an idle session row is kept before the
	// sweeper removes it.
	SessionRetention time.Duration `yaml:"session_retention"`

	// SweepSchedule is the cron schedule for the session sweeper.
	SweepSchedule string `yaml:"sweep_schedule"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Database:      loadDatabaseConfig(),
		Security:      loadSecurityConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigFile loads configuration from a YAML file, with environment
// variables filling anything the file leaves unset.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{
		Database:      loadDatabaseConfig(),
		Security:      loadSecurityConfig(),
		Observability: loadObservabilityConfig(),
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadDatabaseConfig loads database configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	instanceID := getEnv("AUTHCORE_INSTANCE_ID", "")
	if instanceID == "" {
		if host, err := os.Hostname(); err == nil {
			instanceID = host
		} else {
			instanceID = "unknown"
		}
	}

	return DatabaseConfig{
		URL:         getEnv("AUTHCORE_POSTGRES_URL", "postgres://localhost/authcore?sslmode=disable"),
		MaxConns:    getEnvInt("AUTHCORE_POSTGRES_MAX_CONNS", 25),
		MinConns:    getEnvInt("AUTHCORE_POSTGRES_MIN_CONNS", 5),
		Timeout:     getEnvDuration("AUTHCORE_POSTGRES_TIMEOUT", 10*time.Second),
		MaxLifetime: getEnvDuration("AUTHCORE_POSTGRES_MAX_LIFETIME", 30*time.Minute),
		InstanceID:  instanceID,
	}
}

// loadSecurityConfig loads credential configuration from environment
func loadSecurityConfig() SecurityConfig {
	return SecurityConfig{
		CredentialSecret: getEnv("AUTHCORE_CREDENTIAL_SECRET", ""),
		SessionRetention: getEnvDuration("AUTHCORE_SESSION_RETENTION", 7*24*time.Hour),
		SweepSchedule:    getEnv("AUTHCORE_SWEEP_SCHEDULE", "30 0 * * *"),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       getEnv("AUTHCORE_LOG_LEVEL", "info"),
		MetricsEnabled: getEnvBool("AUTHCORE_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must not be lower than min_conns (%d)",
			c.Database.MaxConns, c.Database.MinConns)
	}
	if c.Security.SessionRetention <= 0 {
		return fmt.Errorf("session retention must be positive")
	}
	return nil
}

// LogLevel returns the parsed observability log level
func (c *Config) LogLevel() observability.LogLevel {
	return observability.ParseLogLevel(c.Observability.LogLevel)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

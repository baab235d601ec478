package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"statadvisor/internal/errors"
)

// Catalog sources
const (
	CatalogSourceBundled  = "bundled"
	CatalogSourceFile     = "file"
	CatalogSourcePostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Catalog   CatalogConfig
	Database  DatabaseConfig
	ChecksAPI ChecksAPIConfig
	Session   SessionConfig
	Scoring   ScoringConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

// CatalogConfig selects where the test catalog comes from
type CatalogConfig struct {
	Source string
	Path   string
	Name   string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// ChecksAPIConfig points at the statistics backend that runs assumption checks
type ChecksAPIConfig struct {
	URL        string
	Timeout    time.Duration
	ResultPath string

	// APIKey is sent in APIKeyHeader on every request when set
	APIKey       string
	APIKeyHeader string
}

// Enabled reports whether a backend URL is configured
func (c ChecksAPIConfig) Enabled() bool {
	return c.URL != ""
}

// Headers returns the extra request headers for the backend, or nil
func (c ChecksAPIConfig) Headers() map[string]string {
	if c.APIKey == "" {
		return nil
	}
	return map[string]string{c.APIKeyHeader: c.APIKey}
}

// SessionConfig controls in-memory session lifetime
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// ScoringConfig holds scoring engine settings
type ScoringConfig struct {
	MemoCapacity  int
	MinConfidence int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("PORT", "8080"),
			ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "INFO"),
		},
		Catalog:   loadCatalogConfig(),
		Database:  DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		ChecksAPI: loadChecksAPIConfig(),
		Session: SessionConfig{
			TTL:           getEnvDurationOrDefault("SESSION_TTL", 2*time.Hour),
			SweepInterval: getEnvDurationOrDefault("SESSION_SWEEP_INTERVAL", time.Minute),
		},
		Scoring: ScoringConfig{
			MemoCapacity:  getEnvIntOrDefault("MEMO_CAPACITY", 256),
			MinConfidence: getEnvIntOrDefault("MIN_CONFIDENCE", 0),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadCatalogConfig() CatalogConfig {
	path := getEnvOrDefault("CATALOG_PATH", "")
	source := strings.ToLower(getEnvOrDefault("CATALOG_SOURCE", ""))
	if source == "" {
		source = CatalogSourceBundled
		if path != "" {
			source = CatalogSourceFile
		}
	}
	return CatalogConfig{
		Source: source,
		Path:   path,
		Name:   getEnvOrDefault("CATALOG_NAME", "default"),
	}
}

func loadChecksAPIConfig() ChecksAPIConfig {
	return ChecksAPIConfig{
		URL:        strings.TrimRight(getEnvOrDefault("CHECKS_API_URL", ""), "/"),
		Timeout:    getEnvDurationOrDefault("CHECKS_API_TIMEOUT", 10*time.Second),
		ResultPath: getEnvOrDefault("CHECKS_API_RESULT_PATH", "assumptions"),

		APIKey:       getEnvOrDefault("CHECKS_API_KEY", ""),
		APIKeyHeader: getEnvOrDefault("CHECKS_API_KEY_HEADER", "X-API-Key"),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	switch config.Catalog.Source {
	case CatalogSourceBundled:
	case CatalogSourceFile:
		if config.Catalog.Path == "" {
			return errors.ConfigInvalid("CATALOG_PATH is required when CATALOG_SOURCE=file")
		}
	case CatalogSourcePostgres:
		if config.Database.URL == "" {
			return errors.ConfigInvalid("DATABASE_URL is required when CATALOG_SOURCE=postgres")
		}
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown CATALOG_SOURCE %q", config.Catalog.Source))
	}
	if config.Session.TTL <= 0 {
		return errors.ConfigInvalid("SESSION_TTL must be positive")
	}
	if config.Session.SweepInterval <= 0 {
		return errors.ConfigInvalid("SESSION_SWEEP_INTERVAL must be positive")
	}
	if config.Scoring.MinConfidence < 0 || config.Scoring.MinConfidence > 100 {
		return errors.ConfigInvalid("MIN_CONFIDENCE must be between 0 and 100")
	}
	if config.ChecksAPI.Enabled() && config.ChecksAPI.Timeout <= 0 {
		return errors.ConfigInvalid("CHECKS_API_TIMEOUT must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

package config

import (
	"os"
	"strconv"
	"time"

	"episens/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Archive  ArchiveConfig
	Runner   RunnerConfig
}

// ServerConfig holds report server settings
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds the optional Postgres archive settings. When URL is
// empty the file archive is used instead.
type DatabaseConfig struct {
	URL string
}

// ArchiveConfig holds file archive settings
type ArchiveConfig struct {
	Dir string
}

// RunnerConfig holds experiment runner tuning knobs
type RunnerConfig struct {
	Workers     int
	CellTimeout time.Duration
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Archive: ArchiveConfig{
			Dir: getEnvOrDefault("ARCHIVE_DIR", "./experiments"),
		},
		Runner: RunnerConfig{
			Workers:     getEnvIntOrDefault("RUNNER_WORKERS", 8),
			CellTimeout: getEnvDurationOrDefault("CELL_TIMEOUT", 30*time.Second),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" && config.Archive.Dir == "" {
		return errors.ConfigInvalid("either DATABASE_URL or ARCHIVE_DIR is required")
	}
	if config.Runner.Workers < 1 {
		return errors.ConfigInvalid("RUNNER_WORKERS must be >= 1")
	}
	if config.Runner.CellTimeout <= 0 {
		return errors.ConfigInvalid("CELL_TIMEOUT must be positive")
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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/krywicki/discord-sounboard-bot/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port        string
	DBPath      string
	AudioDir    string
	PoolSize    int
	PageSize    int
	SearchLimit int
	LogLevel    string
	LogFormat   string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", constants.DefaultPort),
		DBPath:      getEnv("DB_PATH", constants.DefaultDBPath),
		AudioDir:    getEnv("AUDIO_DIR", constants.DefaultAudioDir),
		PoolSize:    getEnvInt("POOL_SIZE", constants.DefaultPoolSize),
		PageSize:    getEnvInt("PAGE_SIZE", constants.DefaultPageSize),
		SearchLimit: getEnvInt("SEARCH_LIMIT", constants.DefaultSearchLimit),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	// Validate Port
	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.AudioDir == "" {
		errors = append(errors, "AUDIO_DIR cannot be empty")
	}

	if c.PoolSize < 1 {
		errors = append(errors, fmt.Sprintf("POOL_SIZE must be a positive number, got: %d", c.PoolSize))
	}

	if c.PageSize < 1 {
		errors = append(errors, fmt.Sprintf("PAGE_SIZE must be a positive number, got: %d", c.PageSize))
	}

	if c.SearchLimit < 1 {
		errors = append(errors, fmt.Sprintf("SEARCH_LIMIT must be a positive number, got: %d", c.SearchLimit))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable. Unparsable values
// yield 0 so that Validate reports them.
func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
}

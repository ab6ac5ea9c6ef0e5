// Package common provides shared utilities for Kosha
package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/rbhatta/kosha/internal/interfaces"
)

// Config holds all configuration for Kosha
type Config struct {
	Environment string          `toml:"environment"`
	Currency    string          `toml:"currency"` // default currency code for new accounts, default "INR"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Clients     ClientsConfig   `toml:"clients"`
	Ingest      IngestConfig    `toml:"ingest"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Auth        AuthConfig      `toml:"auth"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds SurrealDB connection configuration.
type StorageConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Gmail  GmailConfig  `toml:"gmail"`
	Gemini GeminiConfig `toml:"gemini"`
	Yahoo  YahooConfig  `toml:"yahoo"`
}

// GmailConfig holds Gmail API OAuth client configuration.
// Per-user access/refresh tokens live in the internal store, not here.
type GmailConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RateLimit    int    `toml:"rate_limit"`
	Timeout      string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *GmailConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// YahooConfig holds quote API configuration
type YahooConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// IngestConfig holds mail ingestion pipeline configuration.
type IngestConfig struct {
	Lookback     string `toml:"lookback"`      // how far back to search for unread mail, default "24h"
	MaxMessages  int    `toml:"max_messages"`  // result cap per run, default 50
	BodyBudget   int    `toml:"body_budget"`   // chars of body sent to the model, default 2000
	PollInterval string `toml:"poll_interval"` // trigger watcher poll interval, default "5s"
}

// GetLookback parses and returns the lookback window.
func (c *IngestConfig) GetLookback() time.Duration {
	d, err := time.ParseDuration(c.Lookback)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// GetPollInterval parses and returns the trigger poll interval.
func (c *IngestConfig) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// SchedulerConfig holds the investment price updater schedule.
type SchedulerConfig struct {
	PriceUpdateTime string `toml:"price_update_time"` // "HH:MM" local to Timezone, weekdays only
	Timezone        string `toml:"timezone"`
}

// AuthConfig holds JWT authentication configuration.
type AuthConfig struct {
	JWTSecret   string `toml:"jwt_secret"`
	TokenExpiry string `toml:"token_expiry"` // duration string, default "24h"
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string `toml:"level"`
	FilePath string `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Currency:    "INR",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Address:   "ws://localhost:8000",
			Namespace: "kosha",
			Database:  "kosha",
			Username:  "root",
			Password:  "root",
		},
		Clients: ClientsConfig{
			Gmail: GmailConfig{
				RateLimit: 5,
				Timeout:   "30s",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.5-flash-lite",
			},
			Yahoo: YahooConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 2,
				Timeout:   "30s",
			},
		},
		Ingest: IngestConfig{
			Lookback:     "24h",
			MaxMessages:  50,
			BodyBudget:   2000,
			PollInterval: "5s",
		},
		Scheduler: SchedulerConfig{
			PriceUpdateTime: "09:00",
			Timezone:        "Asia/Kolkata",
		},
		Auth: AuthConfig{
			JWTSecret:   "dev-jwt-secret-change-in-production",
			TokenExpiry: "24h",
		},
		Logging: LoggingConfig{
			Level:    "info",
			FilePath: "./logs/kosha.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	validateCurrency(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("KOSHA_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("KOSHA_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("KOSHA_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("KOSHA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if addr := os.Getenv("KOSHA_STORAGE_ADDRESS"); addr != "" {
		config.Storage.Address = addr
	}
	if ns := os.Getenv("KOSHA_STORAGE_NAMESPACE"); ns != "" {
		config.Storage.Namespace = ns
	}
	if db := os.Getenv("KOSHA_STORAGE_DATABASE"); db != "" {
		config.Storage.Database = db
	}

	if cur := os.Getenv("KOSHA_CURRENCY"); cur != "" {
		config.Currency = strings.ToUpper(cur)
	}

	if v := os.Getenv("KOSHA_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("KOSHA_AUTH_TOKEN_EXPIRY"); v != "" {
		config.Auth.TokenExpiry = v
	}

	if v := os.Getenv("KOSHA_GMAIL_CLIENT_ID"); v != "" {
		config.Clients.Gmail.ClientID = v
	}
	if v := os.Getenv("KOSHA_GMAIL_CLIENT_SECRET"); v != "" {
		config.Clients.Gmail.ClientSecret = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Clients.Gemini.APIKey = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment, the system KV store, or fallback
func ResolveAPIKey(ctx context.Context, store interfaces.InternalStore, name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key": {"GEMINI_API_KEY", "KOSHA_GEMINI_API_KEY", "GOOGLE_API_KEY"},
	}

	// Environment variables win
	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	// Then the system KV store
	if store != nil {
		apiKey, err := store.GetSystemKV(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or store", name)
}

// validateCurrency ensures Currency is a 3-letter code, defaulting to "INR".
func validateCurrency(config *Config) {
	cur := strings.ToUpper(strings.TrimSpace(config.Currency))
	if len(cur) != 3 {
		cur = "INR"
	}
	config.Currency = cur
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	MarketData MarketDataConfig
	FX         FXConfig
	Sweep      SweepConfig
	CORS       CORSConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// MarketDataConfig holds market-data feed configuration
type MarketDataConfig struct {
	BaseURL string
	// FetchConcurrency bounds the parallel per-symbol price fetches against
	// the upstream feed. Unbounded fan-out trips provider rate limits.
	FetchConcurrency int
}

// FXConfig holds exchange-rate provider configuration
type FXConfig struct {
	BaseURL  string
	CacheTTL time.Duration
}

// SweepConfig holds the scheduled reconciliation sweep configuration
type SweepConfig struct {
	Enabled  bool
	Schedule string // cron expression
	// LookbackDays is the trailing window each sweep run reconciles.
	LookbackDays int
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/valuations.db"),
		},
		MarketData: MarketDataConfig{
			BaseURL:          getEnv("MARKET_DATA_BASE_URL", "https://query1.finance.yahoo.com"),
			FetchConcurrency: getEnvInt("PRICE_FETCH_CONCURRENCY", 4),
		},
		FX: FXConfig{
			BaseURL:  getEnv("FX_BASE_URL", "https://open.er-api.com/v6"),
			CacheTTL: getEnvDuration("FX_CACHE_TTL", time.Hour),
		},
		Sweep: SweepConfig{
			Enabled:      getEnvBool("SWEEP_ENABLED", true),
			Schedule:     getEnv("SWEEP_SCHEDULE", "30 2 * * *"),
			LookbackDays: getEnvInt("SWEEP_LOOKBACK_DAYS", 7),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost",
			},
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getEnvDuration gets a duration environment variable or returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

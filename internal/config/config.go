// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	Analytics AnalyticsConfig
	Prices    PriceConfig
	R2        R2Config
}

// AnalyticsConfig holds the defaults for risk and simulation
type AnalyticsConfig struct {
	RiskFreeRate         float64 // annual
	Simulations          int
	HorizonDays          int
	MaxSimulationDraws   int    // paths × horizon days allowed per simulation
	Benchmark            string // empty disables benchmark-relative metrics
	ArchiveRetentionDays int
}

// PriceConfig controls market-data fetching
type PriceConfig struct {
	Period          string
	FetchWorkers    int
	RatePerMinute   int // 0 disables rate limiting
	RefreshSchedule string
}

// R2Config holds Cloudflare R2 credentials for the report archive
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
}

// Enabled reports whether every R2 credential is set
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.BucketName != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		Analytics: AnalyticsConfig{
			RiskFreeRate:         getEnvAsFloat("RISK_FREE_RATE", 0.02),
			Simulations:          getEnvAsInt("MC_SIMULATIONS", 1000),
			HorizonDays:          getEnvAsInt("MC_HORIZON_DAYS", 252),
			MaxSimulationDraws:   getEnvAsInt("MC_MAX_DRAWS", 10000000),
			Benchmark:            getEnv("BENCHMARK_SYMBOL", "SPY"),
			ArchiveRetentionDays: getEnvAsInt("ARCHIVE_RETENTION_DAYS", 90),
		},
		Prices: PriceConfig{
			Period:          getEnv("PRICE_PERIOD", "1y"),
			FetchWorkers:    getEnvAsInt("PRICE_FETCH_WORKERS", 4),
			RatePerMinute:   getEnvAsInt("PRICE_RATE_PER_MINUTE", 60),
			RefreshSchedule: getEnv("PRICE_REFRESH_SCHEDULE", "0 30 22 * * MON-FRI"),
		},
		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", ""),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.Analytics.Simulations <= 0 {
		return fmt.Errorf("MC_SIMULATIONS must be positive, got %d", c.Analytics.Simulations)
	}
	if c.Analytics.HorizonDays <= 0 {
		return fmt.Errorf("MC_HORIZON_DAYS must be positive, got %d", c.Analytics.HorizonDays)
	}
	if c.Analytics.MaxSimulationDraws <= 0 {
		return fmt.Errorf("MC_MAX_DRAWS must be positive, got %d", c.Analytics.MaxSimulationDraws)
	}
	if c.Analytics.Simulations > c.Analytics.MaxSimulationDraws/c.Analytics.HorizonDays {
		return fmt.Errorf("MC_SIMULATIONS × MC_HORIZON_DAYS exceeds MC_MAX_DRAWS (%d)", c.Analytics.MaxSimulationDraws)
	}
	if c.Prices.FetchWorkers <= 0 {
		return fmt.Errorf("PRICE_FETCH_WORKERS must be positive, got %d", c.Prices.FetchWorkers)
	}
	if c.Prices.RatePerMinute < 0 {
		return fmt.Errorf("PRICE_RATE_PER_MINUTE cannot be negative, got %d", c.Prices.RatePerMinute)
	}

	// Partial R2 credentials are almost always a typo
	r2 := c.R2
	anySet := r2.AccountID != "" || r2.AccessKeyID != "" || r2.SecretAccessKey != "" || r2.BucketName != ""
	if anySet && !r2.Enabled() {
		return fmt.Errorf("incomplete R2 configuration: R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME are all required")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

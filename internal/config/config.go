/**
 * Configuration for the electoral roll worker
 *
 * Loads configuration from environment variables, optionally seeded from a
 * .env file in the working directory.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Queue backends
const (
	BackendRedis = "redis"
	BackendAsynq = "asynq"
)

// Config holds worker configuration
type Config struct {
	// Redis configuration
	RedisURL string

	// PostgreSQL configuration
	DatabaseURL string

	// Queue configuration
	QueueBackend string
	QueueName    string

	// Worker configuration
	WorkerConcurrency int
	ProcessingTimeout int // milliseconds

	// Rendering
	PDFToPPMPath  string
	RenderDPI     int
	ContrastBoost float64

	// Table pages of a whole roll: [TableFirstPage, pages-TableTrailingPages]
	TableFirstPage     int
	TableTrailingPages int

	// Tesseract language packs
	HindiLang   string
	EnglishLang string

	// Directories
	TempDir   string
	OutputDir string

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables. A missing .env
// file is not an error.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		RedisURL:           getEnvOrDefault("REDIS_URL", "redis://nexus-redis:6379"),
		DatabaseURL:        getEnvOrDefault("DATABASE_URL", ""),
		QueueBackend:       strings.ToLower(getEnvOrDefault("QUEUE_BACKEND", BackendAsynq)),
		QueueName:          getEnvOrDefault("QUEUE_NAME", "electoralroll"),
		WorkerConcurrency:  getEnvAsIntOrDefault("WORKER_CONCURRENCY", 4),
		ProcessingTimeout:  getEnvAsIntOrDefault("PROCESSING_TIMEOUT", 300000), // 5 minutes
		PDFToPPMPath:       getEnvOrDefault("PDFTOPPM_PATH", "pdftoppm"),
		RenderDPI:          getEnvAsIntOrDefault("RENDER_DPI", 300),
		ContrastBoost:      getEnvAsFloatOrDefault("CONTRAST_BOOST", 0),
		TableFirstPage:     getEnvAsIntOrDefault("TABLE_FIRST_PAGE", 3),
		TableTrailingPages: getEnvAsIntOrDefault("TABLE_TRAILING_PAGES", 1),
		HindiLang:          getEnvOrDefault("HINDI_LANG", "hin"),
		EnglishLang:        getEnvOrDefault("ENGLISH_LANG", "eng"),
		TempDir:            getEnvOrDefault("TEMP_DIR", "/tmp/electoralroll"),
		OutputDir:          getEnvOrDefault("OUTPUT_DIR", "output"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks settings every command needs
func (c *Config) Validate() error {
	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.RenderDPI < 72 || c.RenderDPI > 1200 {
		return fmt.Errorf("RENDER_DPI must be between 72 and 1200, got %d", c.RenderDPI)
	}

	if c.ContrastBoost < 0 || c.ContrastBoost > 100 {
		return fmt.Errorf("CONTRAST_BOOST must be between 0 and 100, got %v", c.ContrastBoost)
	}

	if c.TableFirstPage < 1 {
		return fmt.Errorf("TABLE_FIRST_PAGE must be at least 1, got %d", c.TableFirstPage)
	}

	if c.TableTrailingPages < 0 {
		return fmt.Errorf("TABLE_TRAILING_PAGES must not be negative, got %d", c.TableTrailingPages)
	}

	if c.ProcessingTimeout < 1000 {
		return fmt.Errorf("PROCESSING_TIMEOUT must be at least 1000ms, got %d", c.ProcessingTimeout)
	}

	return nil
}

// ValidateWorker checks the settings a queue worker needs on top of Validate.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.QueueBackend != BackendRedis && c.QueueBackend != BackendAsynq {
		return fmt.Errorf("QUEUE_BACKEND must be %q or %q, got %q", BackendRedis, BackendAsynq, c.QueueBackend)
	}

	if c.QueueName == "" {
		return fmt.Errorf("QUEUE_NAME is required")
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsFloatOrDefault gets environment variable as float64 or returns default
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the ingest runtime
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Env string // development, staging, production

	// Storage
	Store StoreConfig

	// External APIs
	KIS  KISConfig
	DART DARTConfig

	// HTTP behavior shared by provider clients
	HTTP HTTPConfig

	// Ingest tuning
	Ingest IngestConfig

	// API server (serve command)
	Port string

	// Logging
	LogLevel  string
	LogFormat string
}

// StoreConfig holds the sqlite store configuration
type StoreConfig struct {
	Path string
}

// KISConfig holds KIS (한국투자증권) open API configuration
type KISConfig struct {
	AppKey        string
	AppSecret     string
	AccountNo     string
	BaseURL       string
	MaxPricePages int
}

// DARTConfig holds DART (전자공시) API configuration
type DARTConfig struct {
	APIKey  string
	BaseURL string
}

// HTTPConfig holds shared HTTP client configuration
type HTTPConfig struct {
	Timeout        time.Duration
	MaxRetries     int
	RequestsPerSec float64
}

// IngestConfig holds orchestrator tuning knobs
type IngestConfig struct {
	Workers int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		Store: StoreConfig{
			Path: getEnv("STOCKFINDER_DB_PATH", defaultStorePath()),
		},

		KIS: KISConfig{
			AppKey:        getEnv("KIS_APP_KEY", ""),
			AppSecret:     getEnv("KIS_APP_SECRET", ""),
			AccountNo:     getEnv("KIS_ACCOUNT_NO", ""),
			BaseURL:       getEnv("KIS_BASE_URL", "https://openapi.koreainvestment.com:9443"),
			MaxPricePages: getEnvAsInt("KIS_MAX_PRICE_PAGES", 3),
		},

		DART: DARTConfig{
			APIKey:  getEnv("DART_API_KEY", ""),
			BaseURL: getEnv("DART_BASE_URL", "https://opendart.fss.or.kr/api"),
		},

		HTTP: HTTPConfig{
			Timeout:        getEnvAsDuration("HTTP_TIMEOUT", "20s"),
			MaxRetries:     getEnvAsInt("HTTP_MAX_RETRIES", 3),
			RequestsPerSec: getEnvAsFloat("HTTP_REQUESTS_PER_SEC", 15),
		},

		Ingest: IngestConfig{
			Workers: getEnvAsInt("INGEST_WORKERS", 1),
		},

		Port: getEnv("PORT", "8099"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("STOCKFINDER_DB_PATH must not be empty")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Ingest.Workers < 1 {
		return fmt.Errorf("INGEST_WORKERS must be >= 1")
	}

	return nil
}

// defaultStorePath resolves the default sqlite file under the user home
func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "stockfinder.db"
	}
	return filepath.Join(home, ".stockfinder", "data", "stockfinder.db")
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Engines
	Screener  ScreenerConfig
	Aggregate AggregateConfig
	Summary   SummaryConfig

	// Optional YAML file that extends the built-in metric catalog
	MetricCatalogPath string

	// API
	API APIConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ScreenerConfig holds indicator screening settings
type ScreenerConfig struct {
	LookbackDays int // trailing calendar window for indicator series
}

// AggregateConfig holds aggregation engine settings
type AggregateConfig struct {
	BatchSize   int
	Parallelism int
	Timeout     time.Duration
}

// SummaryConfig holds the nightly summary crunch settings
type SummaryConfig struct {
	CacheTTL time.Duration
	Schedule string // cron expression with seconds
}

// APIConfig holds HTTP surface settings
type APIConfig struct {
	RateLimit     float64 // requests per second, 0 disables limiting
	RateBurst     int
	AllowedOrigin string

	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// WriteSlack is added to the aggregation timeout so a slow summary still gets its 504
	WriteSlack time.Duration
}

// WriteTimeout bounds one response: the longest aggregation plus slack
func (c *Config) WriteTimeout() time.Duration {
	return c.Aggregate.Timeout + c.API.WriteSlack
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Screener: ScreenerConfig{
			LookbackDays: getEnvAsInt("SCREENER_LOOKBACK_DAYS", 200),
		},

		Aggregate: AggregateConfig{
			BatchSize:   getEnvAsInt("AGGREGATE_BATCH_SIZE", 50),
			Parallelism: getEnvAsInt("AGGREGATE_PARALLELISM", 1),
			Timeout:     getEnvAsDuration("AGGREGATE_TIMEOUT", "2m"),
		},

		Summary: SummaryConfig{
			CacheTTL: getEnvAsDuration("SUMMARY_CACHE_TTL", "1h"),
			Schedule: getEnv("SUMMARY_SCHEDULE", "0 30 18 * * *"),
		},

		MetricCatalogPath: getEnv("METRIC_CATALOG_PATH", ""),

		API: APIConfig{
			RateLimit:     getEnvAsFloat("API_RATE_LIMIT", 20),
			RateBurst:     getEnvAsInt("API_RATE_BURST", 40),
			AllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),

			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", "15s"),
			IdleTimeout:     getEnvAsDuration("HTTP_IDLE_TIMEOUT", "60s"),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", "30s"),
			WriteSlack:      getEnvAsDuration("HTTP_WRITE_SLACK", "15s"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Screener.LookbackDays <= 0 {
		return fmt.Errorf("SCREENER_LOOKBACK_DAYS must be positive")
	}

	if c.Aggregate.BatchSize <= 0 {
		return fmt.Errorf("AGGREGATE_BATCH_SIZE must be positive")
	}

	if c.Aggregate.Parallelism <= 0 {
		return fmt.Errorf("AGGREGATE_PARALLELISM must be positive")
	}

	if c.Aggregate.Timeout <= 0 {
		return fmt.Errorf("AGGREGATE_TIMEOUT must be positive")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
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

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ErrConfiguration marks missing credentials or invalid settings. It is fatal
// at startup and never retried.
var ErrConfiguration = errors.New("configuration error")

// Store drivers
const (
	StoreRedis  = "redis"
	StoreFile   = "file"
	StoreMemory = "memory"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port" validate:"required,numeric"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout" validate:"gt=0"`

	// Upstream services
	NewsAPIKey          string        `json:"-"`
	NewsAPIURL          string        `json:"news_api_url" validate:"required,url"`
	NewsAPIRetryCount   int           `json:"news_api_retry_count" validate:"min=-1,max=10"`
	NewsAPIRetryWait    time.Duration `json:"news_api_retry_wait" validate:"gte=0"`
	FirecrawlAPIKey     string        `json:"-"`
	FirecrawlAPIURL     string        `json:"firecrawl_api_url" validate:"required,url"`
	ExtractHTMLFallback bool          `json:"extract_html_fallback"`
	ExtractCacheTTL     time.Duration `json:"extract_cache_ttl"`
	GeminiAPIKey        string        `json:"-"`
	GeminiModel         string        `json:"gemini_model" validate:"required"`
	AITimeout           time.Duration `json:"ai_timeout" validate:"gt=0"`

	// Storage
	StoreDriver string `json:"store_driver" validate:"oneof=redis file memory"`
	RedisURL    string `json:"redis_url"`
	RedisPrefix string `json:"redis_prefix"`
	StoragePath string `json:"storage_path"`

	// CloudFlare R2 archive, disabled when the endpoint is empty
	R2Endpoint  string `json:"r2_endpoint"`
	R2AccessKey string `json:"-"`
	R2SecretKey string `json:"-"`
	R2Bucket    string `json:"r2_bucket"`
	R2Region    string `json:"r2_region"`

	// Digest pipeline
	Cooldown           time.Duration `json:"cooldown" validate:"gt=0"`
	ArticleConcurrency int           `json:"article_concurrency" validate:"min=1,max=20"`
	BatchConcurrency   int           `json:"batch_concurrency" validate:"min=1,max=50"`
	ManualTimeout      time.Duration `json:"manual_timeout" validate:"gt=0"`
	BatchTimeout       time.Duration `json:"batch_timeout" validate:"gt=0"`
	DigestSchedule     string        `json:"digest_schedule" validate:"required"`
	DigestTimezone     string        `json:"digest_timezone" validate:"required"`
	HistoryDays        int           `json:"history_days" validate:"min=1,max=30"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Security
	JWTSecret   string `json:"-"`
	AdminAPIKey string `json:"-"`
}

// Load loads configuration from environment variables and validates it
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := FromEnv()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// FromEnv reads the environment without validating.
func FromEnv() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		NewsAPIKey:          getEnv("NEWS_API_KEY", ""),
		NewsAPIURL:          getEnv("NEWS_API_URL", "https://newsapi.org"),
		NewsAPIRetryCount:   getEnvAsInt("NEWS_API_RETRY_COUNT", 3),
		NewsAPIRetryWait:    getEnvAsDuration("NEWS_API_RETRY_WAIT", 2*time.Second),
		FirecrawlAPIKey:     getEnv("FIRECRAWL_API_KEY", ""),
		FirecrawlAPIURL:     getEnv("FIRECRAWL_API_URL", "https://api.firecrawl.dev"),
		ExtractHTMLFallback: getEnvAsBool("EXTRACT_HTML_FALLBACK", true),
		ExtractCacheTTL:     getEnvAsDuration("EXTRACT_CACHE_TTL", 24*time.Hour),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash-lite"),
		AITimeout:           getEnvAsDuration("AI_TIMEOUT", 60*time.Second),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreRedis)),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix: getEnv("REDIS_PREFIX", "newsdigest:"),
		StoragePath: getEnv("STORAGE_PATH", "./data"),

		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", "digests"),
		R2Region:    getEnv("R2_REGION", "auto"),

		Cooldown:           getEnvAsDuration("COOLDOWN", 15*time.Minute),
		ArticleConcurrency: getEnvAsInt("ARTICLE_CONCURRENCY", 5),
		BatchConcurrency:   getEnvAsInt("BATCH_CONCURRENCY", 3),
		ManualTimeout:      getEnvAsDuration("MANUAL_TIMEOUT", 5*time.Minute),
		BatchTimeout:       getEnvAsDuration("BATCH_TIMEOUT", 9*time.Minute),
		DigestSchedule:     getEnv("DIGEST_SCHEDULE", "0 5 * * *"),
		DigestTimezone:     getEnv("DIGEST_TIMEZONE", "America/Edmonton"),
		HistoryDays:        getEnvAsInt("DIGEST_HISTORY_DAYS", 7),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}
}

// Validate checks required credentials and value ranges. Every failure wraps
// ErrConfiguration.
func (c *Config) Validate() error {
	var missing []string
	for name, value := range map[string]string{
		"NEWS_API_KEY":      c.NewsAPIKey,
		"FIRECRAWL_API_KEY": c.FirecrawlAPIKey,
		"GEMINI_API_KEY":    c.GeminiAPIKey,
		"JWT_SECRET":        c.JWTSecret,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: missing %s", ErrConfiguration, strings.Join(missing, ", "))
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	if _, err := time.LoadLocation(c.DigestTimezone); err != nil {
		return fmt.Errorf("%w: DIGEST_TIMEZONE %q: %v", ErrConfiguration, c.DigestTimezone, err)
	}

	if c.R2Endpoint != "" && (c.R2AccessKey == "" || c.R2SecretKey == "") {
		return fmt.Errorf("%w: R2_ENDPOINT set without R2 credentials", ErrConfiguration)
	}

	return nil
}

// Location returns the scheduler time zone, UTC if it cannot be resolved.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DigestTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ArchiveEnabled reports whether digests are mirrored to R2.
func (c *Config) ArchiveEnabled() bool {
	return c.R2Endpoint != ""
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %t", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}

package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Cache  CacheConfig
	LLM    LLMConfig
	Resil  ResilienceConfig
	OCR    OCRConfig
	Upload UploadConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	HTTPAddr string
}

// StoreConfig holds the extraction-history database configuration.
type StoreConfig struct {
	DBPath string
}

// CacheConfig holds result-cache configuration.
type CacheConfig struct {
	Backend   string // "sqlite" or "postgres"
	DSN       string // postgres only
	TTL       time.Duration
	OpTimeout time.Duration
}

// LLMConfig holds the AI completion client configuration.
type LLMConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// ResilienceConfig holds circuit breaker and retry tuning.
type ResilienceConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
	MaxAttempts      int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
}

// OCRConfig holds text-extraction tool configuration.
type OCRConfig struct {
	Pdftotext     string
	Tesseract     string
	TesseractLang string
}

// UploadConfig holds upload handling limits.
type UploadConfig struct {
	MaxFileSizeMB int64
	TmpDir        string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		Store: StoreConfig{
			DBPath: getEnv("DB_PATH", "./invoices.db"),
		},
		Cache: CacheConfig{
			Backend:   getEnv("CACHE_BACKEND", "sqlite"),
			DSN:       getEnv("CACHE_DSN", ""),
			TTL:       getEnvAsDuration("CACHE_TTL", 24*time.Hour),
			OpTimeout: getEnvAsDuration("CACHE_OP_TIMEOUT", 5*time.Second),
		},
		LLM: LLMConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.5-pro"),
			BaseURL: getEnv("GEMINI_BASE_URL", ""),
			Timeout: getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		},
		Resil: ResilienceConfig{
			FailureThreshold: getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
			Cooldown:         getEnvAsDuration("BREAKER_COOLDOWN", 60*time.Second),
			MaxAttempts:      getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:        getEnvAsDuration("RETRY_BASE_DELAY", 4*time.Second),
			MaxDelay:         getEnvAsDuration("RETRY_MAX_DELAY", 10*time.Second),
		},
		OCR: OCRConfig{
			Pdftotext:     getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
		},
		Upload: UploadConfig{
			MaxFileSizeMB: int64(getEnvAsInt("MAX_FILE_SIZE_MB", 10)),
			TmpDir:        getEnv("TMP_DIR", ""),
		},
	}
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", nil)
	}
	if c.Cache.Backend != "sqlite" && c.Cache.Backend != "postgres" {
		return NewAppError("CONFIG_ERROR", "CACHE_BACKEND must be sqlite or postgres", nil)
	}
	if c.Cache.Backend == "postgres" && c.Cache.DSN == "" {
		return NewAppError("CONFIG_ERROR", "CACHE_DSN is required for the postgres cache backend", nil)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", nil)
	}
	return nil
}

// Helper functions for environment variable parsing.
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

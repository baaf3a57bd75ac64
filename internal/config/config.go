package config

import (
	"os"
	"strconv"
)

type Config struct {
	APIPort   string
	LogLevel  string
	LogFormat string

	PostgresDSN string

	NATSURL           string
	NATSNoticeSubject string

	StoragePath     string
	SlotCatalogPath string

	FormCacheSize      int
	MaxUploadBytes     int64
	PreviewConcurrency int

	TransferDelayMS        int
	TransferTimeoutSeconds int

	APIRateLimitRPS   float64
	APIRateLimitBurst int
	APIMaxInFlight    int
	BreakerEnabled    bool

	WorkerMetricsPort string
}

// Load reads the environment. Empty POSTGRES_DSN or NATS_URL disables the
// matching adapter.
func Load() Config {
	return Config{
		APIPort:   mustEnv("API_PORT", "8080"),
		LogLevel:  mustEnv("LOG_LEVEL", "info"),
		LogFormat: mustEnv("LOG_FORMAT", "json"),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:           mustEnv("NATS_URL", ""),
		NATSNoticeSubject: mustEnv("NATS_NOTICE_SUBJECT", "intake.notices"),

		StoragePath:     mustEnv("STORAGE_PATH", "./data/staging"),
		SlotCatalogPath: mustEnv("SLOT_CATALOG_PATH", ""),

		FormCacheSize:      mustEnvInt("FORM_CACHE_SIZE", 1024),
		MaxUploadBytes:     mustEnvInt64("MAX_UPLOAD_BYTES", 64<<20),
		PreviewConcurrency: mustEnvInt("PREVIEW_CONCURRENCY", 4),

		TransferDelayMS:        mustEnvInt("TRANSFER_DELAY_MS", 1500),
		TransferTimeoutSeconds: mustEnvInt("TRANSFER_TIMEOUT_SECONDS", 30),

		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 40),
		APIMaxInFlight:    mustEnvInt("API_MAX_IN_FLIGHT", 64),
		BreakerEnabled:    mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

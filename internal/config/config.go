package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application, read from
// environment variables.
type Config struct {
	Port string

	// DatabaseURL selects the Postgres backend when set; otherwise work
	// items live in a file store under DataDir.
	DatabaseURL string
	DataDir     string

	// RedisURL enables the outbound notification queue and the per-tenant
	// rate limiter when set.
	RedisURL      string
	NotifyWorkers int

	RateLimitMax    int
	RateLimitWindow time.Duration

	PresetID   string
	PresetPath string

	DedupeWindowSeconds int

	TenantsPath       string
	TenantCacheMaxAge time.Duration
	// DevAllowAllTenants disables tenant-key verification. Development
	// only; main logs loudly when it is on.
	DevAllowAllTenants bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DataDir:             getEnv("DATA_DIR", "data"),
		RedisURL:            getEnv("REDIS_URL", ""),
		NotifyWorkers:       getEnvInt("NOTIFY_WORKERS", 4),
		RateLimitMax:        getEnvInt("RATE_LIMIT_MAX", 60),
		RateLimitWindow:     getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		PresetID:            getEnv("PRESET_ID", "it_support.v1"),
		PresetPath:          getEnv("PRESET_PATH", ""),
		DedupeWindowSeconds: getEnvInt("DEDUPE_WINDOW_SECONDS", 3600),
		TenantsPath:         getEnv("TENANTS_PATH", ""),
		TenantCacheMaxAge:   getEnvDuration("TENANT_CACHE_MAX_AGE", 30*time.Second),
		DevAllowAllTenants:  getEnvBool("DEV_ALLOW_ALL_TENANTS", false),
	}

	if cfg.DedupeWindowSeconds <= 0 {
		return nil, fmt.Errorf("DEDUPE_WINDOW_SECONDS must be positive")
	}
	if cfg.TenantsPath == "" && !cfg.DevAllowAllTenants {
		return nil, fmt.Errorf("TENANTS_PATH is required unless DEV_ALLOW_ALL_TENANTS is set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}

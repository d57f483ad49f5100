package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL    string
	HTTPListenAddr string
	LogLevel       string
	ServiceName    string

	// Object store (S3-compatible) connection.
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string

	// Collection scheduling.
	CollectInterval     time.Duration
	BillingInterval     time.Duration
	InitialCollectDelay time.Duration
	// TenantTimeout bounds one tenant's collection so an unreachable
	// endpoint cannot stall the whole pass.
	TenantTimeout      time.Duration
	CollectParallelism int

	// Pricing, in integer minor units (cents).
	StoragePricePerGBCents   int64
	BandwidthPricePerGBCents int64
	RequestsPricePer1KCents  int64
	MinimumMonthlyCents      int64
	TaxPercent               float64

	// Notification de-duplication windows, per notification family.
	QuotaAlertDedupWindow   time.Duration
	BillingAlertDedupWindow time.Duration

	DefaultStorageQuotaGB int
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		HTTPListenAddr: getEnv("HTTP_LISTEN_ADDR", ":8090"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ServiceName:    getEnv("SERVICE_NAME", "metering"),

		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),

		CollectInterval:     getEnvDuration("COLLECT_INTERVAL", time.Hour),
		BillingInterval:     getEnvDuration("BILLING_INTERVAL", 24*time.Hour),
		InitialCollectDelay: getEnvDuration("INITIAL_COLLECT_DELAY", 30*time.Second),
		TenantTimeout:       getEnvDuration("TENANT_TIMEOUT", 5*time.Minute),
		CollectParallelism:  getEnvInt("COLLECT_PARALLELISM", 1),

		StoragePricePerGBCents:   getEnvInt64("STORAGE_PRICE_PER_GB_CENTS", 2),
		BandwidthPricePerGBCents: getEnvInt64("BANDWIDTH_PRICE_PER_GB_CENTS", 1),
		RequestsPricePer1KCents:  getEnvInt64("REQUESTS_PRICE_PER_1K_CENTS", 1),
		MinimumMonthlyCents:      getEnvInt64("MINIMUM_MONTHLY_CENTS", 500),
		TaxPercent:               getEnvFloat("TAX_PERCENT", 0),

		QuotaAlertDedupWindow:   getEnvDuration("QUOTA_ALERT_DEDUP_WINDOW", time.Hour),
		BillingAlertDedupWindow: getEnvDuration("BILLING_ALERT_DEDUP_WINDOW", 24*time.Hour),

		DefaultStorageQuotaGB: getEnvInt("DEFAULT_STORAGE_QUOTA_GB", 100),
	}

	return cfg, nil
}

// Validate checks that the settings required by the given role are present.
func (c *Config) Validate(role string) error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s: DATABASE_URL is required", role)
	}
	if c.S3Endpoint == "" {
		return fmt.Errorf("%s: S3_ENDPOINT is required", role)
	}
	if c.S3AccessKey == "" || c.S3SecretKey == "" {
		return fmt.Errorf("%s: S3_ACCESS_KEY and S3_SECRET_KEY are required", role)
	}
	if c.CollectParallelism < 1 {
		return fmt.Errorf("%s: COLLECT_PARALLELISM must be >= 1", role)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

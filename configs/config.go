package config

import (
	"crypto/sha256"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Browser struct {
	MaxSessions int
	Headless    bool
	UserAgent   string
}

type Config struct {
	Port                    string
	PostgresURI             string
	RedisURI                string
	SecretKey               string
	EncryptionKey           string
	CookieName              string
	PlatformsFile           string
	ScheduleTimezone        string
	DrainInterval           time.Duration
	DrainBatchSize          int
	WorkerConcurrency       int
	CircuitFailureThreshold int
	CircuitRecoveryTimeout  time.Duration
	KeepaliveSchedule       string
	RetrySweepMaxAge        time.Duration
	RetrySweepSchedule      string
	Browser                 Browser
	R2                      R2
}

func LoadConfig() *Config {
	return &Config{
		Port:                    getEnv("PORT", "3000"),
		PostgresURI:             getEnv("POSTGRES_URI", ""),
		RedisURI:                getEnv("REDIS_URI", ""),
		SecretKey:               getEnv("SECRET_KEY", ""),
		EncryptionKey:           getEnv("ENCRYPTION_KEY", ""),
		CookieName:              getEnv("COOKIE_NAME", "crosspost_token"),
		PlatformsFile:           getEnv("PLATFORMS_FILE", ""),
		ScheduleTimezone:        getEnv("SCHEDULE_TIMEZONE", "UTC"),
		DrainInterval:           time.Duration(getEnvInt("DRAIN_INTERVAL_SECONDS", 30)) * time.Second,
		DrainBatchSize:          getEnvInt("DRAIN_BATCH_SIZE", 50),
		WorkerConcurrency:       getEnvInt("WORKER_CONCURRENCY", 5),
		CircuitFailureThreshold: getEnvInt("CIRCUIT_FAILURE_THRESHOLD", 5),
		CircuitRecoveryTimeout:  time.Duration(getEnvInt("CIRCUIT_RECOVERY_SECONDS", 300)) * time.Second,
		KeepaliveSchedule:       getEnv("KEEPALIVE_SCHEDULE", "@every 00h15m00s"),
		RetrySweepMaxAge:        time.Duration(getEnvInt("RETRY_SWEEP_MAX_AGE_HOURS", 0)) * time.Hour,
		RetrySweepSchedule:      getEnv("RETRY_SWEEP_SCHEDULE", "@every 01h00m00s"),
		Browser: Browser{
			MaxSessions: getEnvInt("MAX_BROWSER_SESSIONS", 3),
			Headless:    getEnvBool("BROWSER_HEADLESS", true),
			UserAgent:   getEnv("BROWSER_USER_AGENT", ""),
		},
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
	}
}

// Location resolves ScheduleTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ScheduleTimezone)
	if err != nil {
		slog.Warn("unknown schedule timezone, using UTC", "timezone", c.ScheduleTimezone)
		return time.UTC
	}
	return loc
}

// CredentialKey derives the AES-256 key for stored platform credentials from
// ENCRYPTION_KEY, or from SECRET_KEY when that is unset.
func (c *Config) CredentialKey() []byte {
	secret := c.EncryptionKey
	if secret == "" {
		secret = c.SecretKey
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("invalid boolean in environment", "key", key, "value", value)
		return defaultValue
	}
	return b
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	RunMigrations      bool
	DBMaxConns         int
	DBMinConns         int

	VoucherValidityMonths int
	VoucherCacheTTL       time.Duration
	SweepCron             string
	SweepLocation         *time.Location
	SweepLockTTL          time.Duration
	RateLimitCart         string
	WorkerConcurrency     int

	KafkaBrokers      []string
	KafkaVoucherTopic string

	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	EnablePrometheus bool
	EnableTracing    bool
	OTLPEndpoint     string
	TracingRatio     float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		RunMigrations:      parseBool(k.String("RUN_MIGRATIONS"), true),
		DBMaxConns:         parseInt(k.String("DB_MAX_CONNS"), 10),
		DBMinConns:         parseInt(k.String("DB_MIN_CONNS"), 0),

		VoucherValidityMonths: parseInt(k.String("VOUCHER_VALIDITY_MONTHS"), 2),
		VoucherCacheTTL:       parseDuration(k.String("VOUCHER_CACHE_TTL"), "5m"),
		SweepCron:             valueOrDefault(k.String("VOUCHER_SWEEP_CRON"), "0 0 * * *"),
		SweepLockTTL:          parseDuration(k.String("VOUCHER_SWEEP_LOCK_TTL"), "10m"),
		RateLimitCart:         valueOrDefault(k.String("RATE_LIMIT_CART"), "60-M"),
		WorkerConcurrency:     parseInt(k.String("WORKER_CONCURRENCY"), 2),

		KafkaBrokers:      splitAndTrim(k.String("KAFKA_BROKERS")),
		KafkaVoucherTopic: valueOrDefault(k.String("KAFKA_VOUCHER_TOPIC"), "voucher-events"),

		LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "voucher"),
		EnablePrometheus: parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
		EnableTracing:    parseBool(k.String("OBS_ENABLE_TRACING"), false),
		OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingRatio:     parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
	}

	loc, err := time.LoadLocation(valueOrDefault(k.String("VOUCHER_SWEEP_TIMEZONE"), "UTC"))
	if err != nil {
		return nil, fmt.Errorf("VOUCHER_SWEEP_TIMEZONE: %w", err)
	}
	cfg.SweepLocation = loc

	if cfg.VoucherValidityMonths <= 0 {
		return nil, errors.New("VOUCHER_VALIDITY_MONTHS must be positive")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return nil, errors.New("DB_MIN_CONNS must not exceed DB_MAX_CONNS")
	}

	return cfg, nil
}

// RequireRedis fails when REDIS_URL is unset. The worker cannot run without it.
func (c *Config) RequireRedis() error {
	if c.RedisURL == "" {
		return errors.New("REDIS_URL is required")
	}
	return nil
}

// RequireDatabase fails when DATABASE_URL is unset. Processes whose writes
// must outlive them cannot fall back to the in-memory store.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}

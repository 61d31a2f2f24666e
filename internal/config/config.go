package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Email    EmailConfig
	Redis    RedisConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	RunMigrations     bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
}

type AuthConfig struct {
	BcryptCost     int
	AccessTokenTTL time.Duration
	ResetTokenTTL  time.Duration

	RateLimitEnabled bool
	RateLimitWindow  time.Duration
	RateLimitMax     int

	LockoutEnabled   bool
	LockoutThreshold int
	LockoutDuration  time.Duration
	LockoutLookback  time.Duration

	AttemptRetentionDays int
	CleanupInterval      time.Duration
}

type EmailConfig struct {
	Enabled     bool
	AWSRegion   string
	FromAddress string
}

// RedisConfig is only consulted when Addr is set; the in-memory rate
// limiter is the default for single-process deployments.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	var err error

	cfg.Database, err = loadDatabase()
	if err != nil {
		return nil, err
	}

	cfg.Server = ServerConfig{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: splitAndTrim(getEnv("ALLOWED_ORIGINS", "")),
		TrustedProxies: splitAndTrim(getEnv("TRUSTED_PROXIES", "")),
	}

	cfg.Auth, err = loadAuth()
	if err != nil {
		return nil, err
	}

	cfg.Email = EmailConfig{
		AWSRegion:   getEnv("AWS_SES_REGION", ""),
		FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
	}
	cfg.Email.Enabled = cfg.Email.AWSRegion != "" && cfg.Email.FromAddress != ""

	redisDB, err := getEnvAsInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	cfg.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	return cfg, nil
}

func loadDatabase() (DatabaseConfig, error) {
	port, err := getEnvAsInt("DB_PORT", 5432)
	if err != nil {
		return DatabaseConfig{}, err
	}
	maxConns, err := getEnvAsInt("DB_MAX_CONNS", 25)
	if err != nil {
		return DatabaseConfig{}, err
	}
	minConns, err := getEnvAsInt("DB_MIN_CONNS", 5)
	if err != nil {
		return DatabaseConfig{}, err
	}
	maxLifetime, err := getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute)
	if err != nil {
		return DatabaseConfig{}, err
	}
	maxIdle, err := getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute)
	if err != nil {
		return DatabaseConfig{}, err
	}
	healthPeriod, err := getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute)
	if err != nil {
		return DatabaseConfig{}, err
	}
	runMigrations, err := getEnvAsBool("DB_RUN_MIGRATIONS", false)
	if err != nil {
		return DatabaseConfig{}, err
	}

	return DatabaseConfig{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              port,
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "authkit"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(maxConns),
		MinConns:          int32(minConns),
		MaxConnLifetime:   maxLifetime,
		MaxConnIdleTime:   maxIdle,
		HealthCheckPeriod: healthPeriod,
		RunMigrations:     runMigrations,
	}, nil
}

func loadAuth() (AuthConfig, error) {
	bcryptCost, err := getEnvAsInt("BCRYPT_COST", 12)
	if err != nil {
		return AuthConfig{}, err
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return AuthConfig{}, fmt.Errorf("BCRYPT_COST must be between %d and %d (got %d)",
			bcrypt.MinCost, bcrypt.MaxCost, bcryptCost)
	}

	accessMinutes, err := getEnvAsInt("ACCESS_TOKEN_TTL_MINUTES", 60)
	if err != nil {
		return AuthConfig{}, err
	}
	resetMinutes, err := getEnvAsInt("RESET_TOKEN_TTL_MINUTES", 24*60)
	if err != nil {
		return AuthConfig{}, err
	}
	if resetMinutes <= accessMinutes {
		return AuthConfig{}, fmt.Errorf(
			"RESET_TOKEN_TTL_MINUTES (%d) must be greater than ACCESS_TOKEN_TTL_MINUTES (%d)",
			resetMinutes, accessMinutes)
	}

	rateLimitEnabled, err := getEnvAsBool("AUTH_RATE_LIMIT_ENABLED", true)
	if err != nil {
		return AuthConfig{}, err
	}
	rateLimitWindow, err := getEnvAsMillis("AUTH_RATE_LIMIT_WINDOW_MS", time.Minute)
	if err != nil {
		return AuthConfig{}, err
	}
	rateLimitMax, err := getEnvAsInt("AUTH_RATE_LIMIT_MAX", 10)
	if err != nil {
		return AuthConfig{}, err
	}
	if rateLimitMax < 1 {
		return AuthConfig{}, fmt.Errorf("AUTH_RATE_LIMIT_MAX must be at least 1 (got %d)", rateLimitMax)
	}

	lockoutEnabled, err := getEnvAsBool("AUTH_LOCKOUT_ENABLED", true)
	if err != nil {
		return AuthConfig{}, err
	}
	lockoutThreshold, err := getEnvAsInt("AUTH_LOCKOUT_THRESHOLD", 5)
	if err != nil {
		return AuthConfig{}, err
	}
	if lockoutThreshold < 1 {
		return AuthConfig{}, fmt.Errorf("AUTH_LOCKOUT_THRESHOLD must be at least 1 (got %d)", lockoutThreshold)
	}
	lockoutDuration, err := getEnvAsMillis("AUTH_LOCKOUT_DURATION_MS", 15*time.Minute)
	if err != nil {
		return AuthConfig{}, err
	}
	// The lookback window defaults to the lockout duration but is tunable
	// independently.
	lockoutLookback, err := getEnvAsMillis("AUTH_LOCKOUT_LOOKBACK_MS", lockoutDuration)
	if err != nil {
		return AuthConfig{}, err
	}

	retentionDays, err := getEnvAsInt("ATTEMPT_RETENTION_DAYS", 30)
	if err != nil {
		return AuthConfig{}, err
	}
	cleanupInterval, err := getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour)
	if err != nil {
		return AuthConfig{}, err
	}

	return AuthConfig{
		BcryptCost:           bcryptCost,
		AccessTokenTTL:       time.Duration(accessMinutes) * time.Minute,
		ResetTokenTTL:        time.Duration(resetMinutes) * time.Minute,
		RateLimitEnabled:     rateLimitEnabled,
		RateLimitWindow:      rateLimitWindow,
		RateLimitMax:         rateLimitMax,
		LockoutEnabled:       lockoutEnabled,
		LockoutThreshold:     lockoutThreshold,
		LockoutDuration:      lockoutDuration,
		LockoutLookback:      lockoutLookback,
		AttemptRetentionDays: retentionDays,
		CleanupInterval:      cleanupInterval,
	}, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

// Numeric and boolean tunables fail fast on malformed values rather than
// silently falling back to defaults.
func getEnvAsInt(key string, defaultVal int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got %q)", key, value)
	}
	return intVal, nil
}

func getEnvAsBool(key string, defaultVal bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean (got %q)", key, value)
	}
	return boolVal, nil
}

func getEnvAsDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 30s or 5m (got %q)", key, value)
	}
	return duration, nil
}

func getEnvAsMillis(key string, defaultVal time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("%s must be a non-negative millisecond count (got %q)", key, value)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Cache        CacheConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr               string
	Password           string
	DB                 int
	PoolSize           int
	DialTimeoutSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Format      string
	Development bool
}

// AuthConfig defines bearer token verification and credential sealing.
type AuthConfig struct {
	JWTSecret     string
	JWTIssuer     string
	CredentialKey string
}

// NotificationConfig controls outbound delivery.
type NotificationConfig struct {
	Workers             int
	QueueSize           int
	SMTPTimeoutSeconds  int
	SlackTimeoutSeconds int
	SubjectPrefix       string
}

// CacheConfig controls the tenant settings cache.
type CacheConfig struct {
	SettingsTTLSeconds int
	KeyPrefix          string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "itsm-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:               getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:           os.Getenv("REDIS_PASSWORD"),
			DB:                 redisDB,
			PoolSize:           getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeoutSeconds: getEnvAsInt("REDIS_DIAL_TIMEOUT_SECONDS", 5),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Format:      getEnv("LOG_FORMAT", "json"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("AUTH_JWT_SECRET", "dev-secret"),
			JWTIssuer:     os.Getenv("AUTH_JWT_ISSUER"),
			CredentialKey: os.Getenv("AUTH_CREDENTIAL_KEY"),
		},
		Notification: NotificationConfig{
			Workers:             getEnvAsInt("NOTIFY_WORKERS", 4),
			QueueSize:           getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
			SMTPTimeoutSeconds:  getEnvAsInt("NOTIFY_SMTP_TIMEOUT_SECONDS", 15),
			SlackTimeoutSeconds: getEnvAsInt("NOTIFY_SLACK_TIMEOUT_SECONDS", 10),
			SubjectPrefix:       getEnv("NOTIFY_SUBJECT_PREFIX", "[ITSM]"),
		},
		Cache: CacheConfig{
			SettingsTTLSeconds: getEnvAsInt("SETTINGS_CACHE_TTL_SECONDS", 300),
			KeyPrefix:          getEnv("SETTINGS_CACHE_PREFIX", "itsm:settings:"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Notification.Workers <= 0 {
		return errors.New("NOTIFY_WORKERS must be positive")
	}
	if c.Notification.QueueSize < 0 {
		return errors.New("NOTIFY_QUEUE_SIZE must not be negative")
	}
	if c.Auth.CredentialKey == "" && !c.App.IsDevelopment() {
		return errors.New("AUTH_CREDENTIAL_KEY is required outside development")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsDevelopment reports whether the service runs in a development environment.
func (a AppConfig) IsDevelopment() bool {
	return a.Env == "development" || a.Env == "test"
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// DialTimeout returns the Redis connect timeout.
func (r RedisConfig) DialTimeout() time.Duration {
	return seconds(r.DialTimeoutSeconds, 5)
}

// SMTPTimeout returns the dial and session timeout for SMTP delivery.
func (n NotificationConfig) SMTPTimeout() time.Duration {
	return seconds(n.SMTPTimeoutSeconds, 15)
}

// SlackTimeout returns the request timeout for Slack webhooks.
func (n NotificationConfig) SlackTimeout() time.Duration {
	return seconds(n.SlackTimeoutSeconds, 10)
}

// SettingsTTL returns how long tenant settings stay cached.
func (c CacheConfig) SettingsTTL() time.Duration {
	return seconds(c.SettingsTTLSeconds, 300)
}

func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Counter backends for ticket sequence numbers.
const (
	CounterBackendPostgres = "postgres"
	CounterBackendRedis    = "redis"
	CounterBackendMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Tracker      TrackerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	MetricsEnabled        bool
}

// PostgresConfig holds DB connection values. An empty DSN selects in-memory storage.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Format is "json" or "console".
	Format string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// NotificationConfig holds notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// TrackerConfig holds ticket workflow settings.
type TrackerConfig struct {
	DirectoryPath     string
	AllowReopen       bool
	CounterBackend    string
	ChangeFeedChannel string
}

// Load reads configuration from the environment (and a .env file when one is
// present). Malformed values are reported together rather than replaced by
// defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := &envReader{}
	cfg := &Config{
		App: AppConfig{
			Name:                  env.str("APP_NAME", "rm-tracker"),
			Env:                   env.str("APP_ENV", "development"),
			Host:                  env.str("APP_HOST", "0.0.0.0"),
			Port:                  env.str("APP_PORT", "8080"),
			Version:               env.str("APP_VERSION", "dev"),
			RequestTimeoutSeconds: env.integer("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			MetricsEnabled:        env.boolean("METRICS_ENABLED", true),
		},
		Postgres: PostgresConfig{
			DSN:            env.str("POSTGRES_DSN", ""),
			MaxConns:       int32(env.integer("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(env.integer("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  env.boolean("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(env.integer("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(env.integer("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     env.str("REDIS_ADDR", ""),
			Password: env.str("REDIS_PASSWORD", ""),
			DB:       env.integer("REDIS_DB", 0),
		},
		Logger: LoggerConfig{
			Level:  env.str("LOG_LEVEL", "info"),
			Format: strings.ToLower(env.str("LOG_FORMAT", "json")),
		},
		Auth: AuthConfig{
			JWTSecret:             env.str("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: env.integer("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60*12),
		},
		Notification: NotificationConfig{
			EmailFrom:  env.str("NOTIFY_EMAIL_FROM", "noreply@dossaniparadise.com"),
			WebhookURL: env.str("NOTIFY_WEBHOOK_URL", ""),
		},
		Tracker: TrackerConfig{
			DirectoryPath:     env.str("DIRECTORY_PATH", ""),
			AllowReopen:       env.boolean("LIFECYCLE_ALLOW_REOPEN", false),
			CounterBackend:    strings.ToLower(env.str("COUNTER_BACKEND", CounterBackendPostgres)),
			ChangeFeedChannel: env.str("CHANGE_FEED_CHANNEL", "rmtracker:tickets"),
		},
	}

	if err := errors.Join(append(env.errs, cfg.validate()...)...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	switch c.Tracker.CounterBackend {
	case CounterBackendPostgres, CounterBackendRedis, CounterBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid COUNTER_BACKEND %q", c.Tracker.CounterBackend))
	}
	if c.Tracker.CounterBackend == CounterBackendRedis && c.Redis.Addr == "" {
		errs = append(errs, errors.New("COUNTER_BACKEND=redis requires REDIS_ADDR"))
	}
	// Tickets in Postgres outlive the process; a memory counter would restart at 1
	// and collide with stored ids.
	if c.Tracker.CounterBackend == CounterBackendMemory && c.Postgres.DSN != "" {
		errs = append(errs, errors.New("COUNTER_BACKEND=memory cannot be used with POSTGRES_DSN"))
	}
	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		errs = append(errs, fmt.Errorf("invalid LOG_FORMAT %q", c.Logger.Format))
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_TTL_MINUTES must be positive"))
	}
	if c.Postgres.MinConns > c.Postgres.MaxConns {
		errs = append(errs, errors.New("POSTGRES_MIN_CONNS exceeds POSTGRES_MAX_CONNS"))
	}
	return errs
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// envReader looks up variables and remembers every value it could not parse.
type envReader struct {
	errs []error
}

func (r *envReader) str(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func (r *envReader) integer(key string, fallback int) int {
	val := r.str(key, "")
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return parsed
}

func (r *envReader) boolean(key string, fallback bool) bool {
	val := r.str(key, "")
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return parsed
}

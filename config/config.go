package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreMemory = "memory"
	StoreRedis  = "redis"

	UserStoreMemory   = "memory"
	UserStoreSQLite   = "sqlite3"
	UserStorePostgres = "postgres"
	UserStoreMySQL    = "mysql"
)

// DefaultSessionSecret matches the demo secret the app has always shipped with.
// Override SESS_SECRET outside of local development.
const DefaultSessionSecret = "Secret for the session cookie! @2019"

var ErrInvalidConfig = errors.New("invalid config")

// Config holds all runtime settings, read from the environment.
type Config struct {
	Port string
	Env  string

	Store         string
	SessionName   string
	SessionSecret string
	SessionTTL    time.Duration
	// CookieSecure is nil unless COOKIE_SECURE is set explicitly.
	CookieSecure *bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	UserStore   string
	DatabaseDSN string

	LookupTimeout time.Duration
	LogLevel      string
}

// Load reads the configuration from environment variables, applying defaults
// for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          envOrDefault("PORT", "3001"),
		Env:           envOrDefault("NODE_ENV", EnvDevelopment),
		Store:         envOrDefault("STORE", StoreMemory),
		SessionName:   envOrDefault("SESS_NAME", "sid"),
		SessionSecret: envOrDefault("SESS_SECRET", DefaultSessionSecret),
		RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		UserStore:     envOrDefault("USER_STORE", UserStoreMemory),
		DatabaseDSN:   envOrDefault("DATABASE_DSN", "./users.db"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.SessionTTL, err = durationEnv("SESS_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LookupTimeout, err = durationEnv("LOOKUP_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: REDIS_DB: %v", ErrInvalidConfig, err)
		}
		cfg.RedisDB = db
	}

	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: COOKIE_SECURE: %v", ErrInvalidConfig, err)
		}
		cfg.CookieSecure = &secure
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings and required values.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("%w: NODE_ENV must be %q or %q, got %q", ErrInvalidConfig, EnvDevelopment, EnvProduction, c.Env)
	}

	switch c.Store {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("%w: STORE must be %q or %q, got %q", ErrInvalidConfig, StoreMemory, StoreRedis, c.Store)
	}

	switch c.UserStore {
	case UserStoreMemory, UserStoreSQLite, UserStorePostgres, UserStoreMySQL:
	default:
		return fmt.Errorf("%w: unsupported USER_STORE %q", ErrInvalidConfig, c.UserStore)
	}

	if c.Port == "" {
		return fmt.Errorf("%w: PORT is empty", ErrInvalidConfig)
	}
	if c.SessionName == "" {
		return fmt.Errorf("%w: SESS_NAME is empty", ErrInvalidConfig)
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("%w: SESS_SECRET is empty", ErrInvalidConfig)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: SESS_TTL must be positive", ErrInvalidConfig)
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("%w: LOOKUP_TIMEOUT must be positive", ErrInvalidConfig)
	}
	return nil
}

// InProduction reports whether NODE_ENV is production.
func (c *Config) InProduction() bool {
	return c.Env == EnvProduction
}

// SecureCookies is the Secure flag for the session cookie: on in production
// unless COOKIE_SECURE says otherwise.
func (c *Config) SecureCookies() bool {
	if c.CookieSecure != nil {
		return *c.CookieSecure
	}
	return c.InProduction()
}

// UsesSQLRegistry reports whether users live in a SQL database.
func (c *Config) UsesSQLRegistry() bool {
	return c.UserStore != UserStoreMemory
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func durationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return d, nil
}

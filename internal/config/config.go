// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env       string // application environment (dev, test, prod)
	Port      string // HTTP port to listen on
	Store     string // "mysql" or "memory"
	LogLevel  string // debug, info, warn, error
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	Migrate   bool   // apply the embedded schema at startup
	JWTSecret string // secret used to verify access tokens

	RabbitURL     string // broker URL; empty disables lifecycle messages
	AuditConsumer bool   // run the audit-log consumer in this process

	// ValidationPolicy is "reject" (fail closed) or "allow".
	ValidationPolicy string
}

// LoadEnvFile reads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set.  A missing file is not an
// error so deployments can rely on the real environment alone.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration values from the environment.  Every missing
// required variable is reported in a single error.  The database variables
// are only required when the store is mysql.
func Load() (Config, error) {
	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:              getenv("APP_ENV", "dev"),
		Port:             getenv("APP_PORT", "8080"),
		Store:            strings.ToLower(getenv("STORE", "mysql")),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		DBPass:           os.Getenv("DB_PASS"),
		Migrate:          envBool("DB_MIGRATE", false),
		JWTSecret:        must("JWT_SECRET"),
		RabbitURL:        firstEnv("RABBITMQ_URL", "AMQP_URL"),
		AuditConsumer:    envBool("AUDIT_CONSUMER_ENABLED", false),
		ValidationPolicy: getenv("VALIDATION_ON_UNCERTAINTY", "reject"),
	}
	if cfg.Store == "mysql" {
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return cfg, cfg.Validate()
}

// Validate checks values that flags may have overridden after Load.
func (c Config) Validate() error {
	switch c.Store {
	case "mysql", "memory":
	default:
		return fmt.Errorf("invalid STORE %q: want mysql or memory", c.Store)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid APP_PORT %q", c.Port)
	}
	return nil
}

// IsProd reports whether the service runs in production.
func (c Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Package config reads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

const devSecret = "dev-secret-change-me"

// Driver names accepted by DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Migration modes accepted by MIGRATIONS.
const (
	MigrateAuto = "auto"
	MigrateSQL  = "sql"
	MigrateOff  = "off"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Auth     AuthConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port         string `env:"PORT" envDefault:"8080"`
	ReadTimeout  int    `env:"SERVER_READ_TIMEOUT" envDefault:"15"`
	WriteTimeout int    `env:"SERVER_WRITE_TIMEOUT" envDefault:"15"`
	IdleTimeout  int    `env:"SERVER_IDLE_TIMEOUT" envDefault:"60"`
}

type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
	// URL wins over the discrete parts when set. For sqlite it is the file path.
	URL      string `env:"DATABASE_DSN"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName   string `env:"DB_NAME" envDefault:"crm"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	SQLitePath    string `env:"SQLITE_PATH" envDefault:"crm.db"`
	Migrations    string `env:"MIGRATIONS" envDefault:"auto"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	Debug         bool   `env:"DB_DEBUG"`
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Driver == DriverSQLite {
		return d.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// PostgresURL is the URL form golang-migrate expects.
func (d DatabaseConfig) PostgresURL() string {
	if d.URL != "" && strings.Contains(d.URL, "://") {
		return d.URL
	}
	if d.URL != "" {
		return ToURLDSN(d.URL)
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

type AppConfig struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Seed bool   `env:"DB_SEED" envDefault:"true"`
}

// Dev reports whether the app runs outside production.
func (a AppConfig) Dev() bool { return a.Env != "production" }

type AuthConfig struct {
	// Required is a bool; empty means true in production and false elsewhere.
	Required      string `env:"AUTH_REQUIRED"`
	SessionSecret string `env:"SESSION_SECRET" envDefault:"dev-secret-change-me"`
	DemoEmail     string `env:"DEMO_EMAIL" envDefault:"admin@example.com"`
	DemoPassword  string `env:"DEMO_PASSWORD" envDefault:"Admin1234"`
}

type LogConfig struct {
	Level      string `env:"LOG_LEVEL"`
	KeepPII    bool   `env:"LOG_KEEP_PII"`
	OTelStdout bool   `env:"OTEL_STDOUT"`
}

// AuthRequired resolves AUTH_REQUIRED against the environment default.
func (c Config) AuthRequired() bool {
	if on, err := strconv.ParseBool(strings.TrimSpace(c.Auth.Required)); err == nil {
		return on
	}
	return !c.App.Dev()
}

// Load parses the environment. Call godotenv.Load first to honour a .env file.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Database.Migrations = strings.ToLower(strings.TrimSpace(cfg.Database.Migrations))
	cfg.Database.URL = NormalizeDSN(cfg.Database.URL)
	return cfg, cfg.Validate()
}

// Validate rejects unknown enum values and unsafe production settings.
func (c Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unknown driver %q", c.Database.Driver))
	}
	switch c.Database.Migrations {
	case MigrateAuto, MigrateSQL, MigrateOff:
	default:
		errs = append(errs, fmt.Errorf("MIGRATIONS: unknown mode %q", c.Database.Migrations))
	}
	if v := strings.TrimSpace(c.Auth.Required); v != "" {
		if _, err := strconv.ParseBool(v); err != nil {
			errs = append(errs, fmt.Errorf("AUTH_REQUIRED: %w", err))
		}
	}
	if !c.App.Dev() && (c.Auth.SessionSecret == "" || c.Auth.SessionSecret == devSecret) {
		errs = append(errs, errors.New("SESSION_SECRET must be set in production"))
	}
	return errors.Join(errs...)
}

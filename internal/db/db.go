// Package db opens the configured storage backend and prepares its schema.
package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/diewo77/go-crm/internal/config"
	"github.com/diewo77/go-crm/internal/platform/logger"
	"github.com/diewo77/go-crm/internal/store"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	connectAttempts = 10
	connectBackoff  = 2 * time.Second
)

var passwordRe = regexp.MustCompile(`(password=)([^\s]+)|(://[^:/@]+:)([^@]+)(@)`)

// MaskDSN hides the password of a key=value or URL DSN.
func MaskDSN(dsn string) string {
	return passwordRe.ReplaceAllStringFunc(dsn, func(m string) string {
		if strings.HasPrefix(m, "password=") {
			return "password=***"
		}
		sub := passwordRe.FindStringSubmatch(m)
		return sub[3] + "***" + sub[5]
	})
}

// Open builds the store backend selected by cfg.Driver, applying migrations
// according to cfg.Migrations for the SQL drivers.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger, opts ...store.Option) (store.Backend, error) {
	if cfg.Driver == config.DriverMemory {
		log.Info("using in-memory store; data is lost on exit")
		return store.NewMemoryStore(opts...), nil
	}
	gdb, err := Connect(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := Prepare(gdb, cfg, log); err != nil {
		closeDB(gdb)
		return nil, err
	}
	return store.NewGormStore(gdb, opts...), nil
}

// Connect opens a gorm connection, retrying while Postgres starts up.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*gorm.DB, error) {
	level := gormlogger.Silent
	if cfg.Debug {
		level = gormlogger.Info
	}
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(level)}

	var dialector gorm.Dialector
	attempts := 1
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.DSN()))
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
		attempts = connectAttempts
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	log.Info("connecting to database", "driver", cfg.Driver, "target", MaskDSN(cfg.DSN()))

	gdb, err := openWithRetry(ctx, attempts, connectBackoff, log,
		func() (*gorm.DB, error) { return gorm.Open(dialector, gcfg) },
		func(gdb *gorm.DB) error { return gdb.WithContext(ctx).Exec("SELECT 1").Error },
	)
	if err != nil {
		return nil, fmt.Errorf("connect %s after %d attempt(s): %w", cfg.Driver, attempts, err)
	}
	if cfg.Driver == config.DriverSQLite {
		// SQLite serialises writers anyway; one connection avoids "database is locked".
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	return gdb, nil
}

// openWithRetry calls open until check passes. A pool whose check failed is
// closed before the next attempt.
func openWithRetry(ctx context.Context, attempts int, backoff time.Duration, log *logger.Logger,
	open func() (*gorm.DB, error), check func(*gorm.DB) error) (*gorm.DB, error) {
	var err error
	for i := 1; i <= attempts; i++ {
		var gdb *gorm.DB
		if gdb, err = open(); err == nil {
			if err = check(gdb); err == nil {
				return gdb, nil
			}
			closeDB(gdb)
		}
		if i == attempts {
			break
		}
		log.Warn("database not ready, retrying", "attempt", i, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, err
}

func closeDB(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// sqliteDSN turns on foreign key enforcement for mattn/go-sqlite3.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

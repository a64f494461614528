package db

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/diewo77/go-crm/internal/config"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/platform/logger"
	migrate "github.com/golang-migrate/migrate/v4"
	// Register the postgres driver and the file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

// Tables the application cannot run without.
var requiredTables = []string{"clients", "quotes", "follow_ups", "users"}

// Prepare brings the schema up to date according to cfg.Migrations.
func Prepare(gdb *gorm.DB, cfg config.DatabaseConfig, log *logger.Logger) error {
	switch cfg.Migrations {
	case config.MigrateOff:
		log.Info("migrations disabled")
	case config.MigrateSQL:
		if cfg.Driver != config.DriverPostgres {
			log.Warn("sql migrations target postgres only; falling back to AutoMigrate", "driver", cfg.Driver)
			if err := Migrate(gdb); err != nil {
				return err
			}
			break
		}
		if err := RunSQLMigrations(cfg.PostgresURL(), cfg.MigrationsDir); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Info("sql migrations applied", "dir", cfg.MigrationsDir)
	default:
		if err := Migrate(gdb); err != nil {
			return err
		}
		log.Info("schema auto-migrated")
	}
	for _, table := range requiredTables {
		if !gdb.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// Migrate creates or updates the tables with gorm's AutoMigrate, parents first.
func Migrate(gdb *gorm.DB) error {
	for _, m := range []any{&models.User{}, &models.Client{}, &models.Quote{}, &models.FollowUp{}} {
		if err := gdb.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// RunSQLMigrations applies dir/*.up.sql with golang-migrate.
func RunSQLMigrations(databaseURL, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	m, err := migrate.New("file://"+filepath.ToSlash(abs), databaseURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

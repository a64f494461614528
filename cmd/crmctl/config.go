package main

import (
	"fmt"

	"github.com/diewo77/go-crm/internal/config"
	"github.com/diewo77/go-crm/internal/platform/logger"
)

const (
	cfgKeyConfig   = "config"
	cfgKeyDriver   = "driver"
	cfgKeyDSN      = "dsn"
	cfgKeyLogLevel = "log_level"
	cfgKeyJSON     = "json"
)

// load layers flags over the optional config file over the environment.
func (c *cli) load() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	_ = c.v.BindEnv(cfgKeyDriver, "DB_DRIVER")
	_ = c.v.BindEnv(cfgKeyDSN, "DATABASE_DSN")
	if path := c.v.GetString(cfgKeyConfig); path != "" {
		c.v.SetConfigFile(path)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if d := c.v.GetString(cfgKeyDriver); d != "" {
		cfg.Database.Driver = d
	}
	if dsn := c.v.GetString(cfgKeyDSN); dsn != "" {
		cfg.Database.URL = dsn
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(logger.Options{Mode: "development", Level: c.v.GetString(cfgKeyLogLevel), KeepPII: cfg.Log.KeepPII})
	if err != nil {
		return err
	}
	c.cfg, c.log = cfg, log
	return nil
}

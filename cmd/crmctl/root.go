package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/diewo77/go-crm/internal/config"
	"github.com/diewo77/go-crm/internal/db"
	"github.com/diewo77/go-crm/internal/platform/logger"
	"github.com/diewo77/go-crm/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli carries what PersistentPreRunE resolved for the subcommands.
type cli struct {
	v   *viper.Viper
	cfg config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "crmctl",
		Short:         "crmctl manages the CRM database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "optional YAML file with driver, dsn and log_level keys")
	pf.String("driver", "", "store driver: sqlite, postgres or memory (env DB_DRIVER)")
	pf.String("dsn", "", "database DSN or sqlite path (env DATABASE_DSN)")
	pf.String("log-level", "warn", "log level")
	pf.Bool("json", false, "output as JSON")

	_ = c.v.BindPFlag(cfgKeyConfig, pf.Lookup("config"))
	_ = c.v.BindPFlag(cfgKeyDriver, pf.Lookup("driver"))
	_ = c.v.BindPFlag(cfgKeyDSN, pf.Lookup("dsn"))
	_ = c.v.BindPFlag(cfgKeyLogLevel, pf.Lookup("log-level"))
	_ = c.v.BindPFlag(cfgKeyJSON, pf.Lookup("json"))

	root.AddCommand(
		newMigrateCmd(c),
		newSeedCmd(c),
		newStatsCmd(c),
		newPendingCmd(c),
		newDeleteClientCmd(c),
	)
	return root
}

// openStore opens the configured backend. The caller closes it.
func (c *cli) openStore(cmd *cobra.Command) (store.Backend, error) {
	b, err := db.Open(cmd.Context(), c.cfg.Database, c.log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return b, nil
}

func (c *cli) jsonOutput() bool { return c.v.GetBool(cfgKeyJSON) }

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/diewo77/go-crm/internal/db"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/stats"
	"github.com/spf13/cobra"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// db.Open runs the migrations selected by MIGRATIONS.
			b, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			defer b.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (driver=%s, migrations=%s)\n", c.cfg.Database.Driver, c.cfg.Database.Migrations)
			return nil
		},
	}
}

func newSeedCmd(c *cli) *cobra.Command {
	var samples bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account and, with --samples, demo data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			defer b.Close()
			opts := db.SeedOptions{
				AdminEmail:    c.cfg.Auth.DemoEmail,
				AdminPassword: c.cfg.Auth.DemoPassword,
				SampleData:    samples,
			}
			if err := db.Seed(cmd.Context(), b, opts, c.log); err != nil {
				return err
			}
			counts, err := b.Counts(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), counts)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "clients=%d quotes=%d follow-ups=%d\n", counts.Clients, counts.Quotes, counts.FollowUps)
			return nil
		},
	}
	cmd.Flags().BoolVar(&samples, "samples", false, "add sample clients and quotes to an empty store")
	return cmd
}

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the dashboard figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			defer b.Close()
			d, err := stats.New(b).Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), d)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "clients\t%d\n", d.Clients)
			fmt.Fprintf(w, "quotes\t%d\n", d.Total)
			for _, st := range models.QuoteStatuses {
				fmt.Fprintf(w, "  %s\t%d\n", st, d.ByStatus[st])
			}
			fmt.Fprintf(w, "conversion\t%.2f%%\n", d.ConversionRate)
			fmt.Fprintf(w, "average amount\t%.2f\n", d.AverageAmount)
			fmt.Fprintf(w, "pending follow-ups\t%d\n", d.PendingFollowUps)
			for _, bucket := range d.FollowUpConversion {
				fmt.Fprintf(w, "  %s\t%d/%d (%.2f%%)\n", bucket.Label, bucket.Accepted, bucket.Quotes, bucket.Rate)
			}
			return w.Flush()
		},
	}
}

func newPendingCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List open quotes due for a follow-up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			defer b.Close()
			quotes, err := stats.New(b).PendingFollowUps(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), quotes)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tREFERENCE\tSTATUS\tSENT\tAMOUNT")
			for _, q := range quotes {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", q.ID, q.Reference, q.Status, q.SentDate, q.Amount)
			}
			return w.Flush()
		},
	}
}

func newDeleteClientCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-client <id>",
		Short: "Delete a client with all its quotes and follow-ups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid client id %q", args[0])
			}
			b, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			defer b.Close()
			deleted, err := b.DeleteClientWithData(cmd.Context(), uint(id))
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("client %d not found", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted client %d\n", id)
			return nil
		},
	}
}

package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"jordanella.com/reward-pinger/internal/config"
	"jordanella.com/reward-pinger/internal/database"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the run journal",
	RunE:  requireSubcommand,
}

var journalStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print row counts and per-account totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Journal.Path == "" {
			return fmt.Errorf("journal.path is not set in %s", configPath)
		}

		db, err := database.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.RunMigrations(); err != nil {
			return err
		}

		return printJournalStats(cmd.OutOrStdout(), db)
	},
}

func init() {
	journalCmd.AddCommand(journalStatsCmd)
}

func printJournalStats(w io.Writer, db *database.DB) error {
	stats, err := db.GetStats()
	if err != nil {
		return err
	}
	tables := make([]string, 0, len(stats))
	for table := range stats {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	fmt.Fprintf(w, "Journal %s\n", db.Path())
	for _, table := range tables {
		fmt.Fprintf(w, "  %-15s %d\n", table, stats[table])
	}

	totals, err := db.GetAccountTotals()
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		return nil
	}

	fmt.Fprintf(w, "\n  %-4s %7s %7s %7s %10s  %s\n", "ACCT", "PINGS", "OK", "CLAIMS", "POINTS", "LAST PING")
	for _, t := range totals {
		last := "-"
		if t.LastPingAt.Valid {
			last = t.LastPingAt.Time.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "  %02d   %7d %7d %7d %10.2f  %s\n",
			t.AccountIndex, t.Pings, t.SuccessfulPings, t.Claims, t.EarnedPoints, last)
	}
	return nil
}

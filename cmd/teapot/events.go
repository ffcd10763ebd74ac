package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zerotobillion/teapot-server/adapters/sqlite"
	"github.com/zerotobillion/teapot-server/config"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recent brew events from the audit log",
	Long: `List recent brew events from the audit log.

Requires database.dsn to be configured; the serve command records
every start/stop decision there.

Examples:
  teapot events
  teapot events --limit 50`,
	RunE: runEvents,
}

var eventsLimit int

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 20, "maximum number of events to show")
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("no database configured: set database.dsn or TEAPOT_DATABASE_DSN")
	}

	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	store := sqlite.NewEventStore(db)
	events, err := store.ListRecent(context.Background(), eventsLimit)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	if len(events) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCLIENT\tVARIANT\tACTION\tOUTCOME\tTRAFFIC")
	for _, e := range events {
		traffic := ""
		if e.Threshold > 0 {
			traffic = fmt.Sprintf("%d/%d", e.Count, e.Threshold)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.RFC3339), e.ClientAddr, e.Variant, e.Action, e.Outcome, traffic)
	}
	return w.Flush()
}

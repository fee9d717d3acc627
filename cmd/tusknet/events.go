package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandevgo/tusknet/internal/service/ui"
	"github.com/sandevgo/tusknet/internal/storage/sqlite"
)

var (
	eventsDevice string
	eventsLimit  int
)

var eventsCmd = &cobra.Command{
	Use:          "events",
	Short:        "Show recent session events from the journal",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		appCfg, _, err := loadConfig(ctx)
		if err != nil {
			return err
		}

		db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
		if err != nil {
			return err
		}
		defer db.Close()

		events, err := sqlite.NewJournal(db).Recent(ctx, eventsDevice, eventsLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, ui.DescStyle.Render("no session events recorded"))
			return nil
		}
		for _, ev := range events {
			line := fmt.Sprintf("%s  %-12s %-16s %s %s",
				ev.CreatedAt.Local().Format(time.DateTime),
				ui.State(string(ev.State)), ev.DeviceID, ev.Host, ev.DeviceType)
			if ev.ErrorKind != "" {
				line += "  " + ui.FailStyle.Render(string(ev.ErrorKind)) + " " + ev.Message
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().StringVar(&eventsDevice, "device", "", "only show events for this device id")
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 50, "maximum number of events")
	rootCmd.AddCommand(eventsCmd)
}

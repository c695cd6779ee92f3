package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ndegwamoche/calendar-sync-scraper/internal/calendar"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/match"
)

var (
	flagSeason     int
	flagDryRun     bool
	flagInsertOnly bool
	flagICSPath    string
)

// newSyncCmd builds the batch season sync command: every pool of a season is
// scraped and synced in one run, sharing a single browser.
func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Scrape a whole season and sync its matches to the calendar",
		RunE:  runSync,
	}

	cmd.Flags().IntVar(&flagSeason, "season", 0, "Season value to sync (required)")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Log what would be synced without writing to the calendar")
	cmd.Flags().BoolVar(&flagInsertOnly, "insert-only", false, "Always insert events instead of updating by match number")
	cmd.Flags().StringVar(&flagICSPath, "ics", "", "Also write the synced matches to an .ics file at this path")

	cmd.MarkFlagRequired("season")

	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	a.client.DryRun = flagDryRun
	a.client.InsertOnly = flagInsertOnly

	state, err := a.orch.RunSeason(cmd.Context(), flagSeason)
	if err != nil {
		return fmt.Errorf("running season sync: %w", err)
	}

	if flagICSPath != "" {
		if err := writeICS(flagICSPath, state.Matches, a); err != nil {
			return fmt.Errorf("writing ics file: %w", err)
		}
	}

	return WriteSyncResult(os.Stdout, state, format, flagVerbose)
}

// writeICS renders the run's matches as an iCalendar file. Matches whose
// time cannot be parsed are left out, same as in the calendar sync.
func writeICS(path string, matches []match.Match, a *app) error {
	evCtx := calendar.Context{
		PortalBaseURL: a.cfg.PortalBaseURL,
		Timezone:      a.cfg.Timezone,
		EventOffset:   a.cfg.EventOffset,
	}

	var events []calendar.Event
	for _, m := range sortedByStart(matches) {
		ev, err := calendar.BuildEvent(m, evCtx)
		if err != nil {
			continue
		}
		events = append(events, ev)
	}

	return os.WriteFile(path, []byte(calendar.GenerateICS(events)), 0644)
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ndegwamoche/calendar-sync-scraper/internal/calendar"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/config"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/logger"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/pipeline"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/refdata"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/scrapecache"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/session"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagFormat  string
	flagVerbose bool
)

// NewRootCmd creates the root command and mounts all subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar-sync-scraper",
		Short: "Sync table tennis match schedules into a calendar",
		Long: `Scrapes match schedules from the table tennis portal, filters them to
home matches, deduplicates across pools and pushes them onto a calendar.
Configuration is read from the environment (see .env.example).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newPoolsCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCacheCmd())

	return cmd
}

// app bundles everything a command needs after setup.
type app struct {
	cfg      *config.Config
	ref      *refdata.Store
	cache    *scrapecache.Cache
	orch     *pipeline.Orchestrator
	client   *calendar.Client
	recorder *session.SQLiteRecorder
}

// setup loads configuration and wires the pipeline. Every command goes
// through here so they all see the same stack.
func setup() (*app, error) {
	if flagVerbose {
		logger.SetDefault(logger.New(logger.LevelDebug, os.Stderr))
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	cache, err := scrapecache.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing scrape cache: %w", err)
	}

	store, err := session.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing session store: %w", err)
	}

	dataDir := store.Dir()
	recorder, err := session.NewSQLiteRecorder(filepath.Join(dataDir, "sessions.db"))
	if err != nil {
		return nil, fmt.Errorf("initializing session log: %w", err)
	}

	ref, err := refdata.Open(filepath.Join(dataDir, "refdata.db"))
	if err != nil {
		return nil, fmt.Errorf("opening reference data: %w", err)
	}

	client := calendar.NewClient(cfg.CalendarURL, cfg.CalendarToken)
	tracker := session.NewTracker(store, recorder)
	orch := pipeline.New(cfg, ref, cache, tracker, calendar.NewSyncer(client))

	return &app{cfg: cfg, ref: ref, cache: cache, orch: orch, client: client, recorder: recorder}, nil
}

func (a *app) close() {
	a.ref.Close()
	a.recorder.Close()
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}

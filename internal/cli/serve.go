package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ndegwamoche/calendar-sync-scraper/internal/logger"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/server"
)

var flagListenAddr string

// newServeCmd runs the HTTP API that browser-driven clients poll to advance
// a scrape session one pool at a time.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scrape HTTP API",
		RunE:  runServe,
	}

	cmd.Flags().StringVar(&flagListenAddr, "listen", "", "Listen address (defaults to LISTEN_ADDR)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	addr := flagListenAddr
	if addr == "" {
		addr = a.cfg.ListenAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting http server", logger.Fields{"addr": addr})
	return server.New(addr, a.orch).ListenAndServe(ctx)
}

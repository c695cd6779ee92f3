package calendar

import (
	"context"
	"fmt"

	"github.com/ndegwamoche/calendar-sync-scraper/internal/logger"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/match"
)

// Writer is the part of the client the syncer needs.
type Writer interface {
	Upsert(ctx context.Context, ev Event) error
}

// Syncer pushes batches of matches onto the calendar.
type Syncer struct {
	writer Writer
}

// NewSyncer creates a syncer writing through the given client.
func NewSyncer(w Writer) *Syncer {
	return &Syncer{writer: w}
}

// Result summarizes one sync batch. SkippedMatches carries one human-readable
// line per skipped match so callers can surface them to the user.
type Result struct {
	Synced         int
	Skipped        int
	SkippedMatches []string
}

// Sync writes one event per match, best effort: a match with a free-text or
// otherwise unparsable time is logged and skipped, a backend failure is
// logged and the batch continues. The batch as a whole never fails.
func (s *Syncer) Sync(ctx context.Context, matches []match.Match, evCtx Context) Result {
	var res Result

	for _, m := range matches {
		ev, err := BuildEvent(m, evCtx)
		if err != nil {
			logger.Warn("skipping match with unparsable time", logger.Fields{
				"no":   m.No,
				"time": m.TimeText,
			})
			logger.IncrCounter("calendar.matches.skipped")
			res.Skipped++
			res.SkippedMatches = append(res.SkippedMatches, fmt.Sprintf("%s (unparsable time %q)", m.No, m.TimeText))
			continue
		}

		if err := s.writer.Upsert(ctx, ev); err != nil {
			logger.Error("syncing match to calendar", logger.Fields{"no": m.No}, err)
			res.Skipped++
			res.SkippedMatches = append(res.SkippedMatches, fmt.Sprintf("%s (%v)", m.No, err))
			continue
		}
		res.Synced++
	}

	logger.Info("calendar batch synced", logger.Fields{
		"synced":  res.Synced,
		"skipped": res.Skipped,
	})
	return res
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ndegwamoche/calendar-sync-scraper/internal/match"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/refdata"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/session"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func parseFormat(raw string) (OutputFormat, error) {
	format := OutputFormat(raw)
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", raw)
	}
	return format, nil
}

// SyncResult is what the sync command reports when a season run finishes.
type SyncResult struct {
	SessionID    string        `json:"session_id"`
	Status       string        `json:"status"`
	SeasonValue  int           `json:"season_value"`
	TotalTargets int           `json:"total_targets"`
	TotalMatches int           `json:"total_matches"`
	FinishedAt   time.Time     `json:"finished_at"`
	Matches      []match.Match `json:"matches,omitempty"`
}

// WriteSyncResult writes a season run summary in the requested format. In
// verbose text mode every synced match is listed chronologically.
func WriteSyncResult(w io.Writer, state *session.State, format OutputFormat, verbose bool) error {
	result := &SyncResult{
		SessionID:    state.ID,
		Status:       string(state.Status),
		SeasonValue:  state.SeasonValue,
		TotalTargets: state.TotalTargets,
		TotalMatches: state.TotalMatches,
		FinishedAt:   state.UpdatedAt,
	}
	if verbose || format == FormatJSON {
		result.Matches = sortedByStart(state.Matches)
	}

	if format == FormatJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	fmt.Fprintf(w, "Session %s %s: %d matches across %d pools\n",
		result.SessionID, result.Status, result.TotalMatches, result.TotalTargets)
	if verbose {
		for _, m := range result.Matches {
			fmt.Fprintf(w, "  %s  %s  %s - %s", m.No, m.TimeText, m.HomeTeam, m.AwayTeam)
			if m.Result != "" {
				fmt.Fprintf(w, "  (%s)", m.Result)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

// WritePools lists the pools a scrape of the given selection would cover.
func WritePools(w io.Writer, pools []refdata.Pool, format OutputFormat) error {
	if format == FormatJSON {
		type poolOut struct {
			Value         int    `json:"value"`
			Name          string `json:"name"`
			LevelValue    int    `json:"level_value"`
			SeasonValue   int    `json:"season_value"`
			RegionValue   int    `json:"region_value"`
			AgeGroupValue int    `json:"age_group_value"`
		}
		out := make([]poolOut, 0, len(pools))
		for _, p := range pools {
			out = append(out, poolOut(p))
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	if len(pools) == 0 {
		fmt.Fprintln(w, "No pools found.")
		return nil
	}
	for _, p := range pools {
		fmt.Fprintf(w, "%d\t%s (season %d, region %d, group %d)\n",
			p.Value, p.Name, p.SeasonValue, p.RegionValue, p.AgeGroupValue)
	}
	fmt.Fprintf(w, "\nTotal: %d pools\n", len(pools))
	return nil
}

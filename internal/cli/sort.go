package cli

import (
	"sort"
	"time"

	"github.com/ndegwamoche/calendar-sync-scraper/internal/match"
)

// sortedByStart returns the matches ordered chronologically. Matches whose
// time is free text sort last, by match number.
func sortedByStart(matches []match.Match) []match.Match {
	out := append([]match.Match(nil), matches...)
	sort.SliceStable(out, func(i, j int) bool {
		return compareByStart(out[i], out[j])
	})
	return out
}

// compareByStart reports whether match i starts before match j.
func compareByStart(i, j match.Match) bool {
	ti, errI := match.ParseStart(i.TimeText, time.UTC)
	tj, errJ := match.ParseStart(j.TimeText, time.UTC)

	if errI == nil && errJ == nil {
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return i.No < j.No
	}
	if errI == nil {
		return true
	}
	if errJ == nil {
		return false
	}
	return i.No < j.No
}

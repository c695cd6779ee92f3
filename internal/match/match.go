package match

// Match is a single scheduled (or played) table-tennis match as it appears
// in the portal's results table for one venue.
//
// No is the portal's match number and is the match's identity: it is unique
// across the pools of a venue search, so seeing the same No twice means the
// same match surfaced through two pool listings (for example a cross-listed
// playoff pool). TimeText is kept raw; parsing happens at calendar-sync time
// so that one unparsable date only ever skips that one match.
type Match struct {
	No         string `json:"no"`
	TimeText   string `json:"time_text"`
	HomeTeam   string `json:"home_team"`
	HomeTeamID string `json:"home_team_id,omitempty"`
	AwayTeam   string `json:"away_team"`
	AwayTeamID string `json:"away_team_id,omitempty"`
	Venue      string `json:"venue"`
	Result     string `json:"result,omitempty"`
	Points     string `json:"points,omitempty"`
}

// Merge combines matches from one more pool scrape into the accumulated set.
// The first-seen match per No wins; later duplicates are dropped. The order
// of accumulated is preserved and new uniques are appended in encounter
// order, so the result is deterministic for a given scrape order.
func Merge(accumulated, incoming []Match) []Match {
	seen := make(map[string]bool, len(accumulated))
	for _, m := range accumulated {
		seen[m.No] = true
	}

	merged := accumulated
	for _, m := range incoming {
		if seen[m.No] {
			continue
		}
		seen[m.No] = true
		merged = append(merged, m)
	}

	return merged
}

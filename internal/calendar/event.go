// Package calendar converts deduplicated matches into calendar events and
// upserts them against the backing calendar, one event per match.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/ndegwamoche/calendar-sync-scraper/internal/match"
)

// DefaultColorID is used for pools without an assigned color.
const DefaultColorID = 1

// DefaultEventOffset is the default match duration on the calendar.
const DefaultEventOffset = 3 * time.Hour

// Event is one calendar entry derived from a match. Key is the match number
// and doubles as the upsert dedup key: syncing the same match twice must
// update the existing event, not create a second one.
type Event struct {
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location"`
	ColorID     int       `json:"color_id"`
}

// Context carries the pool/season surroundings a match was scraped in,
// needed to build titles, colors and deep links.
type Context struct {
	SeasonValue   int
	RegionValue   int
	AgeGroupValue int
	PoolValue     int
	PoolName      string
	LevelValue    int
	ColorID       int // 0 means unassigned
	PortalBaseURL string
	Timezone      *time.Location
	EventOffset   time.Duration
}

// BuildEvent derives the calendar event for one match. The only way this
// fails is an unparsable match time; the caller skips that match and keeps
// going.
func BuildEvent(m match.Match, ctx Context) (Event, error) {
	loc := ctx.Timezone
	if loc == nil {
		loc = time.UTC
	}

	start, err := match.ParseStart(m.TimeText, loc)
	if err != nil {
		return Event{}, err
	}

	offset := ctx.EventOffset
	if offset <= 0 {
		offset = DefaultEventOffset
	}

	colorID := ctx.ColorID
	if colorID == 0 {
		colorID = DefaultColorID
	}

	return Event{
		Key:         m.No,
		Title:       fmt.Sprintf("%s - %s", m.HomeTeam, m.AwayTeam),
		Description: buildDescription(m, ctx),
		Start:       start,
		End:         match.EndTime(start, offset),
		Location:    m.Venue,
		ColorID:     colorID,
	}, nil
}

// buildDescription renders the deterministic event body: pool context, the
// raw result and points text verbatim, and deep links back to the portal.
func buildDescription(m match.Match, ctx Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Kamp %s: %s - %s\n", m.No, m.HomeTeam, m.AwayTeam)
	if ctx.PoolName != "" {
		fmt.Fprintf(&b, "Pulje: %s\n", ctx.PoolName)
	}
	if m.Result != "" {
		fmt.Fprintf(&b, "Resultat: %s\n", m.Result)
	}
	if m.Points != "" {
		fmt.Fprintf(&b, "Point: %s\n", m.Points)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Stilling: %s\n", StandingsURL(ctx))
	if m.HomeTeamID != "" {
		fmt.Fprintf(&b, "Hjemmehold: %s\n", TeamURL(ctx, m.HomeTeamID))
	}
	fmt.Fprintf(&b, "Kampdetaljer: %s\n", MatchURL(ctx, m.No))

	return b.String()
}

// StandingsURL is the deep link to the pool's standings page.
func StandingsURL(ctx Context) string {
	return fmt.Sprintf("%s/standings?season=%d&region=%d&group=%d&pool=%d",
		strings.TrimRight(ctx.PortalBaseURL, "/"),
		ctx.SeasonValue, ctx.RegionValue, ctx.AgeGroupValue, ctx.PoolValue)
}

// TeamURL is the deep link to a team's portal page.
func TeamURL(ctx Context, teamID string) string {
	return fmt.Sprintf("%s/team?id=%s&season=%d",
		strings.TrimRight(ctx.PortalBaseURL, "/"), teamID, ctx.SeasonValue)
}

// MatchURL is the deep link to the match detail page.
func MatchURL(ctx Context, matchNo string) string {
	return fmt.Sprintf("%s/match?no=%s&season=%d",
		strings.TrimRight(ctx.PortalBaseURL, "/"), matchNo, ctx.SeasonValue)
}

package match

import (
	"fmt"
	"strings"
	"time"
)

// weekdayPrefixes are the Danish weekday abbreviations the portal sometimes
// puts in front of the date ("Ma 02-09-2025 19:30"). The list is fixed; an
// unknown prefix is left in place and fails the parse below, which is what
// we want: a format we don't recognize must not silently produce a date.
var weekdayPrefixes = []string{"Ma", "Ti", "On", "To", "Fr", "Lø", "Sø"}

// timeLayouts are tried in order against the stripped text.
var timeLayouts = []string{
	"02-01-2006 15:04",
	"2-1-2006 15:04",
}

// ParseStart parses the portal's raw date-time text into a timestamp in the
// venue's timezone. The text is day-month-year hour:minute, optionally
// prefixed with a weekday abbreviation.
func ParseStart(raw string, loc *time.Location) (time.Time, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return time.Time{}, fmt.Errorf("empty match time")
	}

	text = stripWeekday(text)

	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, text, loc)
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized match time %q", raw)
}

// EndTime returns start plus offset, clamped to 23:59:59 of the start day.
// Matches never span midnight in the calendar, so an offset that would roll
// into the next day is cut off instead.
func EndTime(start time.Time, offset time.Duration) time.Time {
	end := start.Add(offset)
	if end.Day() == start.Day() && end.Month() == start.Month() && end.Year() == start.Year() {
		return end
	}
	return time.Date(start.Year(), start.Month(), start.Day(), 23, 59, 59, 0, start.Location())
}

// stripWeekday removes a leading weekday abbreviation (with or without a
// trailing dot) from the text.
func stripWeekday(text string) string {
	first, rest, found := strings.Cut(text, " ")
	if !found {
		return text
	}
	first = strings.TrimSuffix(first, ".")
	for _, wd := range weekdayPrefixes {
		if strings.EqualFold(first, wd) {
			return strings.TrimSpace(rest)
		}
	}
	return text
}

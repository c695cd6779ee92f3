package calendar

import (
	"fmt"
	"strings"
	"time"
)

// GenerateICS renders events as an iCalendar (.ics) document, one VEVENT per
// match. Times are emitted in UTC.
func GenerateICS(events []Event) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//calendar-sync-scraper//bordtennis//DA\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")

	now := time.Now().UTC()
	for _, ev := range events {
		ics.WriteString("BEGIN:VEVENT\r\n")
		ics.WriteString(fmt.Sprintf("UID:%s@bordtennisportalen.dk\r\n", ev.Key))
		ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICSTime(now)))
		ics.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICSTime(ev.Start)))
		ics.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICSTime(ev.End)))
		ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICS(ev.Title)))
		ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICS(ev.Description)))
		if ev.Location != "" {
			ics.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICS(ev.Location)))
		}
		ics.WriteString("STATUS:CONFIRMED\r\n")
		ics.WriteString("TRANSP:OPAQUE\r\n")
		ics.WriteString("END:VEVENT\r\n")
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters according to RFC 5545
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

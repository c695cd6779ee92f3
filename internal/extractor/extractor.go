// Package extractor turns the portal's rendered results page into structured
// match records. It is a pure parser: no I/O, no browser, just HTML in and
// matches out, which keeps it trivially testable against fixture documents.
package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/match"
)

// teamIDPattern matches the portal's team click handler, a fixed
// six-argument call like
//
//	ShowTeam('TeamInfo', 4, 2025, 1, 4, 10393)
//
// where the sixth argument is the team id.
var teamIDPattern = regexp.MustCompile(`\w+\(\s*'[^']*'\s*(?:,\s*[^,()]+){4},\s*(\d+)\s*\)`)

// Extract parses the rendered results page and returns the matches whose
// venue equals venue (case-insensitive, whitespace-trimmed on both sides).
//
// A page without a results table yields (nil, nil): the pool simply has no
// data, which is not a failure. Rows for other venues are silently dropped;
// this is the single filter point of the whole pipeline.
func Extract(html, venue string) ([]match.Match, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	table := findResultsTable(doc)
	if table == nil {
		return nil, nil
	}

	columns := headerIndex(table)
	if len(columns) == 0 {
		return nil, nil
	}

	wantVenue := strings.TrimSpace(venue)

	var matches []match.Match
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return // header or spacer row
		}

		m := rowToMatch(cells, columns)
		if !strings.EqualFold(strings.TrimSpace(m.Venue), wantVenue) {
			return
		}
		matches = append(matches, m)
	})

	return matches, nil
}

// findResultsTable locates the match table: the first table whose header row
// contains a match-number column. The portal renders exactly one per page.
func findResultsTable(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(i int, table *goquery.Selection) bool {
		ok := false
		table.Find("th").Each(func(j int, th *goquery.Selection) {
			if normalizeHeader(th.Text()) == "no" {
				ok = true
			}
		})
		if ok {
			found = table
			return false
		}
		return true
	})
	return found
}

// headerIndex maps normalized column names to cell positions.
func headerIndex(table *goquery.Selection) map[string]int {
	columns := make(map[string]int)
	table.Find("th").Each(func(i int, th *goquery.Selection) {
		name := normalizeHeader(th.Text())
		if name != "" {
			columns[name] = i
		}
	})
	return columns
}

// normalizeHeader lowercases a header cell and strips its spaces; the
// literal "#" column is the match number.
func normalizeHeader(text string) string {
	name := strings.ToLower(strings.TrimSpace(text))
	name = strings.ReplaceAll(name, " ", "")
	if name == "#" {
		return "no"
	}
	return name
}

func rowToMatch(cells *goquery.Selection, columns map[string]int) match.Match {
	cell := func(name string) *goquery.Selection {
		idx, ok := columns[name]
		if !ok || idx >= cells.Length() {
			return nil
		}
		return cells.Eq(idx)
	}
	text := func(name string) string {
		sel := cell(name)
		if sel == nil {
			return ""
		}
		return strings.TrimSpace(sel.Text())
	}

	m := match.Match{
		No:       text("no"),
		TimeText: text("tid"),
		HomeTeam: text("hjemmehold"),
		AwayTeam: text("udehold"),
		Venue:    text("spillested"),
		Result:   text("resultat"),
		Points:   text("point"),
	}

	m.HomeTeamID = teamID(cell("hjemmehold"))
	m.AwayTeamID = teamID(cell("udehold"))

	return m
}

// teamID pulls the numeric team identifier out of the cell's click handler.
// Returns "" when the cell has no handler or the handler doesn't match the
// expected signature.
func teamID(sel *goquery.Selection) string {
	if sel == nil {
		return ""
	}

	attr, ok := sel.Attr("onclick")
	if !ok {
		// The handler sometimes sits on an anchor inside the cell.
		attr, ok = sel.Find("a").First().Attr("onclick")
		if !ok {
			return ""
		}
	}

	groups := teamIDPattern.FindStringSubmatch(attr)
	if groups == nil {
		return ""
	}
	return groups[1]
}

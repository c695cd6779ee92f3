package extractor

import (
	"fmt"
	"testing"
)

const pageTemplate = `<html><body>
<div id="results">
<table class="matchlist">
<tr>
  <th>#</th><th>Tid</th><th>Hjemmehold</th><th>Udehold</th><th>Spillested</th><th>Resultat</th><th>Point</th>
</tr>
%s
</table>
</div>
</body></html>`

func row(no, tid, home, homeID, away, awayID, venue, result, points string) string {
	return fmt.Sprintf(`<tr>
  <td>%s</td>
  <td>%s</td>
  <td onclick="ShowTeam('TeamInfo', 4, 2025, 1, 4, %s)">%s</td>
  <td onclick="ShowTeam('TeamInfo', 4, 2025, 1, 4, %s)">%s</td>
  <td>%s</td>
  <td>%s</td>
  <td>%s</td>
</tr>`, no, tid, homeID, home, awayID, away, venue, result, points)
}

func TestExtract(t *testing.T) {
	t.Run("parses rows for the requested venue", func(t *testing.T) {
		html := fmt.Sprintf(pageTemplate,
			row("1001", "Ti 02-09-2025 19:30", "BTK København 1", "10393", "Hillerød GIK 2", "10417", "Grøndal MultiCenter", "8-2", "2")+
				row("1002", "On 03-09-2025 18:00", "Amager BTK 1", "10401", "Roskilde BTK 3", "10455", "Roskildehallen", "3-7", "0"))

		matches, err := Extract(html, "Grøndal MultiCenter")
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("expected 1 match, got %d", len(matches))
		}

		m := matches[0]
		if m.No != "1001" {
			t.Errorf("No = %q, want 1001", m.No)
		}
		if m.TimeText != "Ti 02-09-2025 19:30" {
			t.Errorf("TimeText = %q", m.TimeText)
		}
		if m.HomeTeam != "BTK København 1" || m.HomeTeamID != "10393" {
			t.Errorf("home = %q/%q", m.HomeTeam, m.HomeTeamID)
		}
		if m.AwayTeam != "Hillerød GIK 2" || m.AwayTeamID != "10417" {
			t.Errorf("away = %q/%q", m.AwayTeam, m.AwayTeamID)
		}
		if m.Result != "8-2" || m.Points != "2" {
			t.Errorf("result = %q, points = %q", m.Result, m.Points)
		}
	})

	t.Run("venue filter is case-insensitive and trims", func(t *testing.T) {
		html := fmt.Sprintf(pageTemplate,
			row("1001", "Ti 02-09-2025 19:30", "BTK København 1", "10393", "Hillerød GIK 2", "10417", "  Grøndal MultiCenter ", "", ""))

		matches, err := Extract(html, "grøndal multicenter")
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("expected 1 match, got %d", len(matches))
		}
	})

	t.Run("no results table yields empty without error", func(t *testing.T) {
		matches, err := Extract("<html><body><p>Ingen kampe fundet</p></body></html>", "Grøndal MultiCenter")
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if len(matches) != 0 {
			t.Fatalf("expected no matches, got %d", len(matches))
		}
	})

	t.Run("table with zero venue rows yields empty without error", func(t *testing.T) {
		html := fmt.Sprintf(pageTemplate,
			row("1002", "On 03-09-2025 18:00", "Amager BTK 1", "10401", "Roskilde BTK 3", "10455", "Roskildehallen", "", ""))

		matches, err := Extract(html, "Grøndal MultiCenter")
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if len(matches) != 0 {
			t.Fatalf("expected no matches, got %d", len(matches))
		}
	})

	t.Run("missing click handler leaves team id empty", func(t *testing.T) {
		html := fmt.Sprintf(pageTemplate, `<tr>
  <td>1003</td>
  <td>Fr 05-09-2025 19:00</td>
  <td>BTK København 2</td>
  <td>Virum BTK 1</td>
  <td>Grøndal MultiCenter</td>
  <td></td>
  <td></td>
</tr>`)

		matches, err := Extract(html, "Grøndal MultiCenter")
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("expected 1 match, got %d", len(matches))
		}
		if matches[0].HomeTeamID != "" || matches[0].AwayTeamID != "" {
			t.Errorf("expected empty team ids, got %q/%q", matches[0].HomeTeamID, matches[0].AwayTeamID)
		}
	})

	t.Run("handler on nested anchor", func(t *testing.T) {
		html := fmt.Sprintf(pageTemplate, `<tr>
  <td>1004</td>
  <td>Fr 05-09-2025 19:00</td>
  <td><a href="#" onclick="ShowTeam('TeamInfo', 4, 2025, 1, 4, 10999)">Virum BTK 1</a></td>
  <td>BTK København 2</td>
  <td>Grøndal MultiCenter</td>
  <td></td>
  <td></td>
</tr>`)

		matches, err := Extract(html, "Grøndal MultiCenter")
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("expected 1 match, got %d", len(matches))
		}
		if matches[0].HomeTeamID != "10999" {
			t.Errorf("HomeTeamID = %q, want 10999", matches[0].HomeTeamID)
		}
	})
}

func TestTeamIDPattern(t *testing.T) {
	tests := []struct {
		attr string
		want string
	}{
		{`ShowTeam('TeamInfo', 4, 2025, 1, 4, 10393)`, "10393"},
		{`ShowTeam('TeamInfo',4,2025,1,4,7)`, "7"},
		{`ShowTeam('TeamInfo', 4, 2025, 1, 4)`, ""},   // five args
		{`ShowTeam('TeamInfo', 4, 2025, 1, 4, abc)`, ""}, // non-numeric id
	}

	for _, tt := range tests {
		groups := teamIDPattern.FindStringSubmatch(tt.attr)
		got := ""
		if groups != nil {
			got = groups[1]
		}
		if got != tt.want {
			t.Errorf("pattern on %q = %q, want %q", tt.attr, got, tt.want)
		}
	}
}

package match

import (
	"testing"
	"time"
)

func TestMerge(t *testing.T) {
	m1 := Match{No: "1001", HomeTeam: "BTK København 1", Venue: "Grøndal MultiCenter"}
	m2 := Match{No: "1002", HomeTeam: "Hillerød GIK 2", Venue: "Grøndal MultiCenter"}
	m3 := Match{No: "1003", HomeTeam: "Amager BTK 1", Venue: "Grøndal MultiCenter"}

	t.Run("appends new uniques in encounter order", func(t *testing.T) {
		merged := Merge([]Match{m1}, []Match{m2, m3})
		if len(merged) != 3 {
			t.Fatalf("expected 3 matches, got %d", len(merged))
		}
		if merged[0].No != "1001" || merged[1].No != "1002" || merged[2].No != "1003" {
			t.Errorf("unexpected order: %v %v %v", merged[0].No, merged[1].No, merged[2].No)
		}
	})

	t.Run("keeps first-seen copy on duplicate no", func(t *testing.T) {
		dup := Match{No: "1001", HomeTeam: "Changed name"}
		merged := Merge([]Match{m1, m2}, []Match{dup, m3})
		if len(merged) != 3 {
			t.Fatalf("expected 3 matches, got %d", len(merged))
		}
		if merged[0].HomeTeam != "BTK København 1" {
			t.Errorf("duplicate overwrote first-seen copy: %q", merged[0].HomeTeam)
		}
	})

	t.Run("duplicates within incoming are dropped", func(t *testing.T) {
		merged := Merge(nil, []Match{m1, m1, m2})
		if len(merged) != 2 {
			t.Fatalf("expected 2 matches, got %d", len(merged))
		}
	})

	t.Run("empty incoming leaves accumulated untouched", func(t *testing.T) {
		merged := Merge([]Match{m1, m2}, nil)
		if len(merged) != 2 {
			t.Fatalf("expected 2 matches, got %d", len(merged))
		}
	})
}

func TestParseStart(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Copenhagen")
	if err != nil {
		t.Fatalf("loading location: %v", err)
	}

	tests := []struct {
		name string
		raw  string
		want time.Time
		fail bool
	}{
		{name: "plain date", raw: "02-09-2025 19:30", want: time.Date(2025, 9, 2, 19, 30, 0, 0, loc)},
		{name: "weekday prefix", raw: "Ti 02-09-2025 19:30", want: time.Date(2025, 9, 2, 19, 30, 0, 0, loc)},
		{name: "weekday with dot", raw: "Lø. 06-12-2025 10:00", want: time.Date(2025, 12, 6, 10, 0, 0, 0, loc)},
		{name: "short form", raw: "2-9-2025 19:30", want: time.Date(2025, 9, 2, 19, 30, 0, 0, loc)},
		{name: "free text fails", raw: "må ikke matche", fail: true},
		{name: "empty", raw: "", fail: true},
		{name: "time only", raw: "19:30", fail: true},
		{name: "unknown weekday stays and fails", raw: "Xy 02-09-2025 19:30", fail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStart(tt.raw, loc)
			if tt.fail {
				if err == nil {
					t.Fatalf("expected error for %q, got %v", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStart(%q): %v", tt.raw, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseStart(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestEndTime(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Copenhagen")

	t.Run("normal offset", func(t *testing.T) {
		start := time.Date(2025, 9, 2, 19, 30, 0, 0, loc)
		end := EndTime(start, 3*time.Hour)
		want := time.Date(2025, 9, 2, 22, 30, 0, 0, loc)
		if !end.Equal(want) {
			t.Errorf("EndTime = %v, want %v", end, want)
		}
	})

	t.Run("clamped at midnight", func(t *testing.T) {
		start := time.Date(2025, 9, 2, 22, 0, 0, 0, loc)
		end := EndTime(start, 3*time.Hour)
		want := time.Date(2025, 9, 2, 23, 59, 59, 0, loc)
		if !end.Equal(want) {
			t.Errorf("EndTime = %v, want %v", end, want)
		}
	})
}

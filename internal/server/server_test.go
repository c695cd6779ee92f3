package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ndegwamoche/calendar-sync-scraper/internal/calendar"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/config"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/pipeline"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/refdata"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/scrapecache"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/session"
)

type stubFetcher struct {
	pages map[string]string
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.pages[url], nil
}

func (f *stubFetcher) Quit() {}

func newTestServer(t *testing.T) (*httptest.Server, *config.Config) {
	t.Helper()

	cfg := &config.Config{
		URLTemplate:   "https://example.dk/schedule?season={season}&region={region}&group={group}&pool={pool}",
		Venue:         "Grøndal MultiCenter",
		PortalBaseURL: "https://example.dk",
		Timezone:      time.UTC,
		EventOffset:   3 * time.Hour,
	}

	ref, err := refdata.Open(":memory:")
	if err != nil {
		t.Fatalf("opening refdata: %v", err)
	}
	t.Cleanup(func() { ref.Close() })
	stmts := []string{
		`INSERT INTO pools (value, name, level_value, season_value, region_value, age_group_value) VALUES
			(101, 'Pulje 1', 1, 2025, 1, 4),
			(102, 'Pulje 2', 1, 2025, 1, 4)`,
	}
	for _, stmt := range stmts {
		if _, err := ref.DB().Exec(stmt); err != nil {
			t.Fatalf("seeding refdata: %v", err)
		}
	}

	cache, err := scrapecache.New(t.TempDir())
	if err != nil {
		t.Fatalf("creating cache: %v", err)
	}

	tracker := session.NewTracker(session.NewMemStore(), nil)

	client := calendar.NewClient("http://calendar.invalid", "")
	client.DryRun = true

	page := `<html><body><table>
<tr><th>No</th><th>Tid</th><th>Hjemmehold</th><th>Udehold</th><th>Spillested</th><th>Resultat</th><th>Point</th></tr>
<tr><td>1001</td><td>12-09-2025 19:00</td><td>A</td><td>B</td><td>Grøndal MultiCenter</td><td></td><td></td></tr>
</table></body></html>`

	orch := pipeline.New(cfg, ref, cache, tracker, calendar.NewSyncer(client))
	orch.NewFetcher = func(ctx context.Context) (pipeline.PageFetcher, error) {
		return &stubFetcher{pages: map[string]string{
			cfg.TargetURL(2025, 1, 4, 101): page,
			cfg.TargetURL(2025, 1, 4, 102): page,
		}}, nil
	}

	srv := httptest.NewServer(New("", orch).Router())
	t.Cleanup(srv.Close)
	return srv, cfg
}

func postJSON(t *testing.T, url string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp, env
}

func dataField(t *testing.T, env envelope, key string) interface{} {
	t.Helper()
	data, ok := env.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data is not an object: %#v", env.Data)
	}
	return data[key]
}

func TestScrapeEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)

	// First request opens the session and processes the first target.
	resp, env := postJSON(t, srv.URL+"/api/v1/scrape", scrapeRequest{
		SeasonValue: 2025, RegionValue: 1, AgeGroupValue: 4,
	})
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("first scrape: status %d, success %v", resp.StatusCode, env.Success)
	}

	sessionID, _ := dataField(t, env, "session_id").(string)
	if sessionID == "" {
		t.Fatal("no session_id in response")
	}
	if got := dataField(t, env, "status"); got != string(session.StatusRunning) {
		t.Errorf("status after first target = %v, want running", got)
	}
	if got := dataField(t, env, "request_count").(float64); got != 1 {
		t.Errorf("request_count = %v, want 1", got)
	}

	// Second request resumes the same session and finishes it.
	resp, env = postJSON(t, srv.URL+"/api/v1/scrape", scrapeRequest{SessionID: sessionID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second scrape: status %d", resp.StatusCode)
	}
	if got := dataField(t, env, "status"); got != string(session.StatusCompleted) {
		t.Errorf("status after second target = %v, want completed", got)
	}
	if got := dataField(t, env, "total_matches").(float64); got != 1 {
		t.Errorf("total_matches = %v, want 1 (same match in both pools)", got)
	}

	// Progress polling sees the terminal state.
	pollResp, err := http.Get(fmt.Sprintf("%s/api/v1/scrape/progress?session_id=%s", srv.URL, sessionID))
	if err != nil {
		t.Fatalf("GET progress: %v", err)
	}
	defer pollResp.Body.Close()
	var pollEnv envelope
	if err := json.NewDecoder(pollResp.Body).Decode(&pollEnv); err != nil {
		t.Fatalf("decoding progress: %v", err)
	}
	if got := dataField(t, pollEnv, "percent").(float64); got != 100 {
		t.Errorf("percent = %v, want 100", got)
	}
}

func TestScrapeClose(t *testing.T) {
	srv, _ := newTestServer(t)

	_, env := postJSON(t, srv.URL+"/api/v1/scrape", scrapeRequest{
		SeasonValue: 2025, RegionValue: 1, AgeGroupValue: 4,
	})
	sessionID, _ := dataField(t, env, "session_id").(string)

	resp, env := postJSON(t, srv.URL+"/api/v1/scrape/close", scrapeRequest{SessionID: sessionID})
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("close: status %d, success %v", resp.StatusCode, env.Success)
	}
	if got := dataField(t, env, "status"); got != string(session.StatusCompleted) {
		t.Errorf("status after close = %v, want completed", got)
	}
}

func TestScrapeUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, env := postJSON(t, srv.URL+"/api/v1/scrape", scrapeRequest{SessionID: "missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if env.Success {
		t.Error("success = true for unknown session")
	}
}

func TestProgressRequiresSessionID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/scrape/progress")
	if err != nil {
		t.Fatalf("GET progress: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

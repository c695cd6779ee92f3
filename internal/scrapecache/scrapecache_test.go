package scrapecache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ndegwamoche/calendar-sync-scraper/internal/match"
)

func testMatches() []match.Match {
	return []match.Match{
		{No: "1001", HomeTeam: "BTK København 1", AwayTeam: "Hillerød GIK 2", Venue: "Grøndal MultiCenter"},
		{No: "1002", HomeTeam: "Amager BTK 1", AwayTeam: "Virum BTK 1", Venue: "Grøndal MultiCenter"},
	}
}

func TestFingerprint(t *testing.T) {
	fp1 := Fingerprint("https://portal.example/result?pool=4", "Grøndal MultiCenter")
	fp2 := Fingerprint("https://portal.example/result?pool=4", "grøndal multicenter")
	fp3 := Fingerprint("https://portal.example/result?pool=5", "Grøndal MultiCenter")

	if fp1 != fp2 {
		t.Error("fingerprint should not depend on venue case")
	}
	if fp1 == fp3 {
		t.Error("different urls must yield different fingerprints")
	}
	if len(fp1) != 40 {
		t.Errorf("expected sha1 hex fingerprint, got %q", fp1)
	}
}

func TestCache_PutGet(t *testing.T) {
	cache, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fp := Fingerprint("https://portal.example/result?pool=4", "Grøndal MultiCenter")

	if _, ok := cache.Get(fp); ok {
		t.Fatal("expected miss on empty cache")
	}

	if err := cache.Put(fp, testMatches()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := cache.Get(fp)
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if len(got) != 2 || got[0].No != "1001" || got[1].No != "1002" {
		t.Errorf("cached matches differ: %+v", got)
	}
}

func TestCache_ExpiredEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	cache, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fp := Fingerprint("https://portal.example/result?pool=4", "Grøndal MultiCenter")
	if err := cache.Put(fp, testMatches()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Rewrite the entry with an expiry in the past.
	path := filepath.Join(dir, fp+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading entry: %v", err)
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("parsing entry: %v", err)
	}
	e.ExpiresAt = time.Now().Add(-time.Minute)
	data, _ = json.Marshal(e)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("rewriting entry: %v", err)
	}

	if _, ok := cache.Get(fp); ok {
		t.Error("expired entry must be a miss")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expired entry should be removed on read")
	}
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	cache, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fp := Fingerprint("https://portal.example/result?pool=4", "Grøndal MultiCenter")
	if err := os.WriteFile(filepath.Join(dir, fp+".json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("writing corrupt entry: %v", err)
	}

	if _, ok := cache.Get(fp); ok {
		t.Error("corrupt entry must be a miss")
	}
}

func TestCache_CleanExpired(t *testing.T) {
	dir := t.TempDir()
	cache, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fresh := Fingerprint("https://portal.example/result?pool=4", "Grøndal MultiCenter")
	stale := Fingerprint("https://portal.example/result?pool=5", "Grøndal MultiCenter")

	if err := cache.Put(fresh, testMatches()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	staleEntry, _ := json.Marshal(entry{
		Fingerprint: stale,
		Matches:     testMatches(),
		ExpiresAt:   time.Now().Add(-time.Hour),
	})
	if err := os.WriteFile(filepath.Join(dir, stale+".json"), staleEntry, 0644); err != nil {
		t.Fatalf("writing stale entry: %v", err)
	}

	if removed := cache.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired = %d, want 1", removed)
	}
	if _, ok := cache.Get(fresh); !ok {
		t.Error("fresh entry should survive CleanExpired")
	}
}

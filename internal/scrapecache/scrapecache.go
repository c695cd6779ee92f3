// Package scrapecache caches extracted match lists per scrape target so that
// repeating a venue search within a day never re-renders pages in the
// browser. Only successful extractions are stored; a transient fetch failure
// must never be pinned into the cache for 24 hours.
package scrapecache

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ndegwamoche/calendar-sync-scraper/internal/match"
)

// DefaultTTL is how long a cached match list stays valid.
const DefaultTTL = 24 * time.Hour

// entry is a cached match list with its expiry. Entries are replaced
// wholesale, never partially updated.
type entry struct {
	Fingerprint string        `json:"fingerprint"`
	Matches     []match.Match `json:"matches"`
	ExpiresAt   time.Time     `json:"expires_at"`
}

// Cache stores match lists as one JSON file per fingerprint under a data
// directory. Concurrent writers for the same fingerprint are fine:
// last-write-wins, and readers always see a complete file because writes go
// through a rename.
type Cache struct {
	dataDir string
	ttl     time.Duration
}

// New creates a cache rooted at dataDir, creating it when missing.
// A leading ~/ is expanded to the user's home directory.
func New(dataDir string) (*Cache, error) {
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	return &Cache{dataDir: dataDir, ttl: DefaultTTL}, nil
}

// Fingerprint derives the cache key for a (url, venue) target. The venue is
// part of the key because the same page filtered for two venues yields two
// different match lists.
func Fingerprint(url, venue string) string {
	normalized := strings.TrimSpace(url) + "|" + strings.ToLower(strings.TrimSpace(venue))
	h := sha1.New()
	h.Write([]byte(normalized))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Get returns the cached match list for fingerprint, or (nil, false) on a
// miss. An expired entry is a miss even when the file is present; it is
// removed on the way out.
func (c *Cache) Get(fingerprint string) ([]match.Match, bool) {
	path := c.entryPath(fingerprint)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		// A corrupt entry is treated as a miss and cleared so the next
		// scrape rewrites it.
		os.Remove(path)
		return nil, false
	}

	if time.Now().After(e.ExpiresAt) {
		os.Remove(path)
		return nil, false
	}

	return e.Matches, true
}

// Put stores matches under fingerprint with the cache's TTL, replacing any
// previous entry wholesale.
func (c *Cache) Put(fingerprint string, matches []match.Match) error {
	e := entry{
		Fingerprint: fingerprint,
		Matches:     matches,
		ExpiresAt:   time.Now().Add(c.ttl),
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	path := c.entryPath(fingerprint)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing cache entry: %w", err)
	}

	return nil
}

// CleanExpired removes expired entries and returns how many were removed.
func (c *Cache) CleanExpired() int {
	removed := 0
	now := time.Now()

	entries, err := os.ReadDir(c.dataDir)
	if err != nil {
		return 0
	}

	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		path := filepath.Join(c.dataDir, de.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil || now.After(e.ExpiresAt) {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}

	return removed
}

func (c *Cache) entryPath(fingerprint string) string {
	return filepath.Join(c.dataDir, fingerprint+".json")
}

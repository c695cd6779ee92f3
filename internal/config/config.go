// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Placeholders the schedule URL template must contain. Each is replaced with
// the numeric value of the selected target.
var requiredPlaceholders = []string{"{season}", "{region}", "{group}", "{pool}"}

// Config holds everything the scraper and sync pipeline need at runtime.
type Config struct {
	// URLTemplate is the schedule page URL with {season}, {region},
	// {group} and {pool} placeholders.
	URLTemplate string

	// Venue filters the schedule down to home matches at that venue.
	Venue string

	// PortalBaseURL is used for deep links in event descriptions.
	PortalBaseURL string

	CalendarURL   string
	CalendarToken string

	// DataDir holds the scrape cache, session blobs and the reference
	// database. Supports ~/ expansion.
	DataDir string

	// Timezone the schedule's local times are interpreted in.
	Timezone *time.Location

	EventOffset time.Duration

	// SyncBatchSize is how many processed targets accumulate before the
	// pending matches are flushed to the calendar. 1 flushes after every
	// target.
	SyncBatchSize int

	ListenAddr string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		URLTemplate:   os.Getenv("SCRAPER_URL_TEMPLATE"),
		Venue:         getEnv("SCRAPER_VENUE", "Grøndal MultiCenter"),
		PortalBaseURL: getEnv("PORTAL_BASE_URL", "https://bordtennisportalen.dk"),
		CalendarURL:   os.Getenv("CALENDAR_API_URL"),
		CalendarToken: os.Getenv("CALENDAR_API_TOKEN"),
		DataDir:       getEnv("SCRAPER_DATA_DIR", "~/.calendar-sync-scraper"),
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
	}

	if cfg.URLTemplate == "" {
		return nil, fmt.Errorf("SCRAPER_URL_TEMPLATE is required")
	}
	if err := ValidateTemplate(cfg.URLTemplate); err != nil {
		return nil, fmt.Errorf("validating SCRAPER_URL_TEMPLATE: %w", err)
	}

	tzName := getEnv("SCRAPER_TIMEZONE", "Europe/Copenhagen")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", tzName, err)
	}
	cfg.Timezone = loc

	offset := getEnv("EVENT_OFFSET", "3h")
	cfg.EventOffset, err = time.ParseDuration(offset)
	if err != nil {
		return nil, fmt.Errorf("parsing EVENT_OFFSET %q: %w", offset, err)
	}

	batch := getEnv("SYNC_BATCH_SIZE", "1")
	cfg.SyncBatchSize, err = strconv.Atoi(batch)
	if err != nil {
		return nil, fmt.Errorf("parsing SYNC_BATCH_SIZE %q: %w", batch, err)
	}
	if cfg.SyncBatchSize < 1 {
		return nil, fmt.Errorf("SYNC_BATCH_SIZE must be at least 1, got %d", cfg.SyncBatchSize)
	}

	return cfg, nil
}

// ValidateTemplate checks a schedule URL template for the four required
// placeholders.
func ValidateTemplate(template string) error {
	var missing []string
	for _, p := range requiredPlaceholders {
		if !strings.Contains(template, p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("template missing placeholders: %s", strings.Join(missing, ", "))
	}
	return nil
}

// TargetURL expands the template for one scrape target.
func (c *Config) TargetURL(seasonValue, regionValue, ageGroupValue, poolValue int) string {
	r := strings.NewReplacer(
		"{season}", fmt.Sprint(seasonValue),
		"{region}", fmt.Sprint(regionValue),
		"{group}", fmt.Sprint(ageGroupValue),
		"{pool}", fmt.Sprint(poolValue),
	)
	return r.Replace(c.URLTemplate)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

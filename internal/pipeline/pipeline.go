// Package pipeline orchestrates the scrape-deduplicate-sync flow: resolving
// pools to schedule URLs, fetching and extracting matches, tracking session
// progress and pushing new matches onto the calendar.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ndegwamoche/calendar-sync-scraper/internal/calendar"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/config"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/extractor"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/fetcher"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/logger"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/match"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/refdata"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/scrapecache"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/session"
)

// PageFetcher is the browser-backed page loader the pipeline drives. It is
// an interface so tests can run without a browser.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Quit()
}

// Syncer pushes a batch of matches onto the calendar.
type Syncer interface {
	Sync(ctx context.Context, matches []match.Match, evCtx calendar.Context) calendar.Result
}

// Orchestrator wires the scrape pipeline together. One orchestrator serves
// both the interactive per-target flow and the batch per-season flow.
type Orchestrator struct {
	cfg     *config.Config
	ref     *refdata.Store
	cache   *scrapecache.Cache
	tracker *session.Tracker
	syncer  Syncer

	// NewFetcher creates the browser handle. Overridable in tests.
	NewFetcher func(ctx context.Context) (PageFetcher, error)
}

// New creates an orchestrator over the given collaborators.
func New(cfg *config.Config, ref *refdata.Store, cache *scrapecache.Cache, tracker *session.Tracker, syncer Syncer) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		ref:     ref,
		cache:   cache,
		tracker: tracker,
		syncer:  syncer,
		NewFetcher: func(ctx context.Context) (PageFetcher, error) {
			return fetcher.New(ctx)
		},
	}
}

// Open starts an interactive session covering every pool in the selected
// season/region/age group combination. The returned state carries the
// session id the caller polls and drives targets with.
func (o *Orchestrator) Open(ctx context.Context, seasonValue, regionValue, ageGroupValue int) (*session.State, []refdata.Pool, error) {
	pools, err := o.ref.Pools(ctx, seasonValue, regionValue, ageGroupValue)
	if err != nil {
		return nil, nil, fmt.Errorf("listing pools: %w", err)
	}
	if len(pools) == 0 {
		return nil, nil, fmt.Errorf("no pools for season %d region %d group %d", seasonValue, regionValue, ageGroupValue)
	}

	state, err := o.tracker.Start(seasonValue, regionValue, ageGroupValue, len(pools))
	if err != nil {
		return nil, nil, err
	}

	logger.Info("session opened", logger.Fields{
		"session_id": state.ID,
		"targets":    len(pools),
	})
	return state, pools, nil
}

// RunTarget scrapes one pool inside an interactive session, records the
// outcome and syncs any newly seen matches. A scrape failure is recorded on
// the session and does not fail the call; the session keeps advancing.
func (o *Orchestrator) RunTarget(ctx context.Context, sessionID string, pool refdata.Pool) (session.Progress, error) {
	state, err := o.tracker.Load(sessionID)
	if err != nil {
		return session.Progress{}, err
	}
	if state.IsDone() {
		return state.Progress(state.ExpectedTotalMatches()), nil
	}

	matches, targetErr := o.scrapePool(ctx, nil, pool)

	if err := o.tracker.RecordTarget(state, pool.Name, matches, targetErr); err != nil {
		return session.Progress{}, err
	}

	if o.shouldFlush(state) {
		if err := o.flushPending(ctx, state, pool); err != nil {
			return session.Progress{}, err
		}
	}

	if state.IsDone() {
		if err := o.tracker.Complete(state); err != nil {
			return session.Progress{}, err
		}
	}

	progress := state.Progress(state.ExpectedTotalMatches())
	logger.SetGauge("session.progress", float64(progress.Percent))
	return progress, nil
}

// Advance runs the session's next unprocessed target, resolved from the
// session's own request count. This is what lets a scrape survive across
// separate HTTP requests: each call picks up exactly where the last left off.
func (o *Orchestrator) Advance(ctx context.Context, sessionID string) (session.Progress, error) {
	state, err := o.tracker.Load(sessionID)
	if err != nil {
		return session.Progress{}, err
	}
	if state.IsDone() {
		return state.Progress(state.ExpectedTotalMatches()), nil
	}

	pools, err := o.ref.Pools(ctx, state.SeasonValue, state.RegionValue, state.AgeGroupValue)
	if err != nil {
		err = fmt.Errorf("listing pools: %w", err)
		if failErr := o.tracker.Fail(state, err); failErr != nil {
			return session.Progress{}, failErr
		}
		return session.Progress{}, err
	}
	if state.RequestCount >= len(pools) {
		if err := o.tracker.Complete(state); err != nil {
			return session.Progress{}, err
		}
		return state.Progress(state.ExpectedTotalMatches()), nil
	}

	return o.RunTarget(ctx, sessionID, pools[state.RequestCount])
}

// Progress reports the current state of a session for polling callers.
func (o *Orchestrator) Progress(sessionID string) (session.Progress, error) {
	state, err := o.tracker.Load(sessionID)
	if err != nil {
		return session.Progress{}, err
	}
	return state.Progress(state.ExpectedTotalMatches()), nil
}

// Close finishes a session early. Matches already recorded stay synced; the
// session is marked completed so further target runs become no-ops.
func (o *Orchestrator) Close(sessionID string) (session.Progress, error) {
	state, err := o.tracker.Load(sessionID)
	if err != nil {
		return session.Progress{}, err
	}
	if state.Status == session.StatusRunning {
		if err := o.tracker.Complete(state); err != nil {
			return session.Progress{}, err
		}
	}
	return state.Progress(state.ExpectedTotalMatches()), nil
}

// RunSeason scrapes every pool of a season in one go, sharing a single
// browser handle across all targets. The handle is released on every exit
// path, including scrape errors and context cancellation.
func (o *Orchestrator) RunSeason(ctx context.Context, seasonValue int) (*session.State, error) {
	pools, err := o.ref.AllPools(ctx, seasonValue)
	if err != nil {
		return nil, fmt.Errorf("listing pools: %w", err)
	}
	if len(pools) == 0 {
		return nil, fmt.Errorf("no pools for season %d", seasonValue)
	}

	state, err := o.tracker.Start(seasonValue, 0, 0, len(pools))
	if err != nil {
		return nil, err
	}

	var browser PageFetcher
	defer func() {
		if browser != nil {
			browser.Quit()
		}
	}()

	for _, pool := range pools {
		if ctx.Err() != nil {
			if failErr := o.tracker.Fail(state, ctx.Err()); failErr != nil {
				return state, failErr
			}
			return state, ctx.Err()
		}

		url := o.targetURL(pool)
		fp := scrapecache.Fingerprint(url, o.cfg.Venue)
		matches, hit := o.cache.Get(fp)
		var targetErr error
		if !hit {
			if browser == nil {
				browser, targetErr = o.NewFetcher(ctx)
			}
			if targetErr == nil {
				matches, targetErr = o.fetchAndExtract(ctx, browser, url, fp)
			}
		} else {
			logger.IncrCounter("pipeline.cache.hits")
		}

		if err := o.tracker.RecordTarget(state, pool.Name, matches, targetErr); err != nil {
			return state, err
		}
		if o.shouldFlush(state) {
			if err := o.flushPending(ctx, state, pool); err != nil {
				return state, err
			}
		}
	}

	if err := o.tracker.Complete(state); err != nil {
		return state, err
	}

	logger.Info("season run finished", logger.Fields{
		"session_id":    state.ID,
		"total_matches": state.TotalMatches,
		"targets":       state.TotalTargets,
	})
	return state, nil
}

// scrapePool fetches one pool's schedule, going through the cache first.
// When browser is nil a fetcher is created for just this target and released
// before returning.
func (o *Orchestrator) scrapePool(ctx context.Context, browser PageFetcher, pool refdata.Pool) ([]match.Match, error) {
	url := o.targetURL(pool)
	fp := scrapecache.Fingerprint(url, o.cfg.Venue)

	if matches, ok := o.cache.Get(fp); ok {
		logger.IncrCounter("pipeline.cache.hits")
		return matches, nil
	}

	if browser == nil {
		var err error
		browser, err = o.NewFetcher(ctx)
		if err != nil {
			return nil, fmt.Errorf("starting browser: %w", err)
		}
		defer browser.Quit()
	}

	return o.fetchAndExtract(ctx, browser, url, fp)
}

// fetchAndExtract loads one schedule page and extracts its venue matches. A
// fetch timeout still yields whatever the page held at the deadline; only a
// complete fetch is written back to the cache.
func (o *Orchestrator) fetchAndExtract(ctx context.Context, browser PageFetcher, url, fp string) ([]match.Match, error) {
	html, fetchErr := browser.Fetch(ctx, url)
	if fetchErr != nil && !errors.Is(fetchErr, fetcher.ErrTimeout) {
		return nil, fetchErr
	}

	matches, err := extractor.Extract(html, o.cfg.Venue)
	if err != nil {
		return nil, err
	}

	if fetchErr == nil {
		if err := o.cache.Put(fp, matches); err != nil {
			logger.Warn("writing scrape cache", logger.Fields{"error": err.Error()})
		}
		return matches, nil
	}

	// A timed-out page that still rendered rows is usable, it just is not
	// cached. A timed-out page with no rows counts as a failed target.
	if len(matches) > 0 {
		logger.Warn("page load timed out, using partial page", logger.Fields{
			"url":     url,
			"matches": len(matches),
		})
		return matches, nil
	}
	return nil, fetchErr
}

// shouldFlush reports whether the session has accumulated a full batch of
// processed targets, or has no further targets to wait for.
func (o *Orchestrator) shouldFlush(state *session.State) bool {
	return state.RequestCount%o.batchSize() == 0 || state.IsDone()
}

func (o *Orchestrator) batchSize() int {
	if o.cfg.SyncBatchSize < 1 {
		return 1
	}
	return o.cfg.SyncBatchSize
}

// flushPending syncs the session's newly seen matches onto the calendar.
// The batch carries the context of the target that triggered the flush.
// Matches the syncer had to skip are noted on the session trail so a polling
// caller sees them, not just the server log.
func (o *Orchestrator) flushPending(ctx context.Context, state *session.State, pool refdata.Pool) error {
	pending, err := o.tracker.TakePending(state)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	res := o.syncer.Sync(ctx, pending, o.eventContext(ctx, pool))
	if res.Skipped > 0 {
		note := fmt.Sprintf("%s: %d skipped: %s", pool.Name, res.Skipped, strings.Join(res.SkippedMatches, "; "))
		if err := o.tracker.Note(state, note); err != nil {
			return err
		}
	}
	return nil
}

// eventContext assembles the calendar context for one pool, including its
// assigned color when one exists.
func (o *Orchestrator) eventContext(ctx context.Context, pool refdata.Pool) calendar.Context {
	colorID := 0
	if id, ok, err := o.ref.ColorFor(ctx, pool); err != nil {
		logger.Warn("looking up pool color", logger.Fields{
			"pool":  pool.Value,
			"error": err.Error(),
		})
	} else if ok {
		colorID = id
	}

	return calendar.Context{
		SeasonValue:   pool.SeasonValue,
		RegionValue:   pool.RegionValue,
		AgeGroupValue: pool.AgeGroupValue,
		PoolValue:     pool.Value,
		PoolName:      pool.Name,
		LevelValue:    pool.LevelValue,
		ColorID:       colorID,
		PortalBaseURL: o.cfg.PortalBaseURL,
		Timezone:      o.cfg.Timezone,
		EventOffset:   o.cfg.EventOffset,
	}
}

func (o *Orchestrator) targetURL(pool refdata.Pool) string {
	return o.cfg.TargetURL(pool.SeasonValue, pool.RegionValue, pool.AgeGroupValue, pool.Value)
}

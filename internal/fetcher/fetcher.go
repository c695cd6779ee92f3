// Package fetcher drives a headless Chrome instance to render the portal's
// results pages. The results table is built client-side and lazy-loads rows
// as the page scrolls, so a plain HTTP GET returns an empty shell; the
// fetcher scrolls the page until the table settles and then reads the
// rendered source.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ndegwamoche/calendar-sync-scraper/internal/logger"
)

// Sentinel errors for the caller's retry policy. The fetcher itself never
// retries; one call is one attempt.
var (
	ErrDriverUnavailable = errors.New("browser driver unavailable")
	ErrTimeout           = errors.New("timed out waiting for results rows")
	ErrEmptyResponse     = errors.New("empty page source")
)

const (
	// rowSelector identifies a rendered data row in the results table.
	rowSelector = "table tr td"

	rowWaitTimeout  = 15 * time.Second
	scrollPasses    = 2
	scrollSettle    = 200 * time.Millisecond
	navigateTimeout = 30 * time.Second
)

// Fetcher owns one headless browser session. The session is held open across
// Fetch calls so a multi-pool crawl pays the Chrome startup cost once; the
// owner must call Quit when done, on every exit path.
type Fetcher struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc
}

// New starts a headless browser session.
func New(ctx context.Context) (*Fetcher, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Start the browser now so a missing Chrome binary surfaces as a
	// driver error here, not as a confusing navigation failure later.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", ErrDriverUnavailable, err)
	}

	return &Fetcher{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		cancel:      cancel,
	}, nil
}

// Fetch navigates to url and returns the rendered page source.
//
// On ErrTimeout whatever source could be read is still returned alongside
// the error, so a caller that tolerates partial tables can keep it.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	started := time.Now()
	defer func() {
		logger.RecordTiming("fetch.page", time.Since(started))
	}()

	navCtx, cancel := context.WithTimeout(f.browserCtx, navigateTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return "", fmt.Errorf("navigating to %s: %w", url, err)
	}

	f.scrollUntilSettled(navCtx)

	timedOut := false
	waitCtx, waitCancel := context.WithTimeout(f.browserCtx, rowWaitTimeout)
	err := chromedp.Run(waitCtx, chromedp.WaitVisible(rowSelector, chromedp.ByQuery))
	waitCancel()
	if err != nil {
		// No data row appeared. Still read the source: the caller
		// distinguishes "no table" from "fetch failed".
		timedOut = true
	}

	html, err := f.readSource()
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(html) == "" || strings.TrimSpace(html) == "<html><head></head><body></body></html>" {
		return "", ErrEmptyResponse
	}
	if timedOut {
		return html, ErrTimeout
	}
	return html, nil
}

// Quit tears the browser session down. Safe to call more than once.
func (f *Fetcher) Quit() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	if f.allocCancel != nil {
		f.allocCancel()
		f.allocCancel = nil
	}
}

// scrollUntilSettled scrolls to the bottom of the page to trigger the
// virtualized table's lazy rendering, stopping early once a data row is
// present or the scroll height stops growing.
func (f *Fetcher) scrollUntilSettled(ctx context.Context) {
	lastHeight := -1
	for pass := 0; pass < scrollPasses; pass++ {
		var height int
		var hasRow bool
		err := chromedp.Run(ctx,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight); document.body.scrollHeight`, &height),
			chromedp.Sleep(scrollSettle),
			chromedp.Evaluate(fmt.Sprintf(`document.querySelector(%q) !== null`, rowSelector), &hasRow),
		)
		if err != nil {
			return
		}
		if hasRow || height == lastHeight {
			return
		}
		lastHeight = height
	}
}

// readSource reads the rendered document. A JavaScript alert firing while we
// read aborts the evaluation, so one dialog is dismissed and the read retried
// once.
func (f *Fetcher) readSource() (string, error) {
	var html string
	err := chromedp.Run(f.browserCtx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err == nil {
		return html, nil
	}

	// Dismiss a blocking dialog and retry the read once.
	dismissCtx, cancel := context.WithTimeout(f.browserCtx, 5*time.Second)
	defer cancel()
	dismissErr := chromedp.Run(dismissCtx,
		chromedp.Evaluate(`window.alert = function(){}; window.confirm = function(){ return true; };`, nil),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if dismissErr != nil {
		return "", fmt.Errorf("reading page source: %w", err)
	}
	return html, nil
}

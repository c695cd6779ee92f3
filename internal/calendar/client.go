package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ndegwamoche/calendar-sync-scraper/internal/logger"
)

// Client talks to the calendar backend over HTTP. Events are addressed by
// their dedup key so repeated syncs update in place instead of inserting
// duplicates.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	// InsertOnly disables the lookup-then-update step and always inserts.
	InsertOnly bool
	// DryRun logs what would be written without calling the backend.
	DryRun bool
}

// NewClient creates a calendar client for the given backend URL and API token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type eventResponse struct {
	ID string `json:"id"`
}

type listResponse struct {
	Events []eventResponse `json:"events"`
}

// Upsert writes an event to the calendar. In the default mode it looks the
// event up by key and updates the existing entry when one is found; in
// insert-only mode it inserts unconditionally.
func (c *Client) Upsert(ctx context.Context, ev Event) error {
	if c.DryRun {
		logger.Info("dry run, skipping calendar write", logger.Fields{
			"key":   ev.Key,
			"title": ev.Title,
			"start": ev.Start.Format(time.RFC3339),
		})
		return nil
	}

	if !c.InsertOnly {
		id, found, err := c.findByKey(ctx, ev.Key)
		if err != nil {
			return fmt.Errorf("looking up event %s: %w", ev.Key, err)
		}
		if found {
			if err := c.update(ctx, id, ev); err != nil {
				return fmt.Errorf("updating event %s: %w", ev.Key, err)
			}
			logger.IncrCounter("calendar.events.updated")
			return nil
		}
	}

	if err := c.insert(ctx, ev); err != nil {
		return fmt.Errorf("inserting event %s: %w", ev.Key, err)
	}
	logger.IncrCounter("calendar.events.inserted")
	return nil
}

func (c *Client) findByKey(ctx context.Context, key string) (string, bool, error) {
	endpoint := fmt.Sprintf("%s/events?key=%s", c.baseURL, url.QueryEscape(key))

	var list listResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &list); err != nil {
		return "", false, err
	}
	if len(list.Events) == 0 {
		return "", false, nil
	}
	return list.Events[0].ID, true, nil
}

func (c *Client) insert(ctx context.Context, ev Event) error {
	return c.do(ctx, http.MethodPost, c.baseURL+"/events", ev, nil)
}

func (c *Client) update(ctx context.Context, id string, ev Event) error {
	return c.do(ctx, http.MethodPut, c.baseURL+"/events/"+url.PathEscape(id), ev, nil)
}

// do sends one request with retries. Server-side errors are retried with
// exponential backoff; client-side errors fail immediately.
func (c *Client) do(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling payload: %w", err)
		}
	}

	attempt := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("calendar backend returned %d: %s", resp.StatusCode, respBody)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("calendar backend returned %d: %s", resp.StatusCode, respBody))
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return backoff.Permanent(fmt.Errorf("decoding response: %w", err))
			}
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(attempt, policy)
}

package etl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/BartekS5/eventsync/pkg/logger"
	"github.com/BartekS5/eventsync/pkg/models"
	"github.com/BartekS5/eventsync/pkg/utils"
)

// APIError is a non-2xx response from the events API.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the server asked us to slow down.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

type eventsPage struct {
	Results []models.Event `json:"results"`
	Next    *string        `json:"next"`
}

// FetcherOptions configure a PostHogFetcher.
type FetcherOptions struct {
	// EventsURL is the first-page URL, e.g. https://us.i.posthog.com/api/projects/1/events/.
	EventsURL        string
	APIKey           string
	PageLimit        int
	Timeout          time.Duration
	MaxRetries       int
	RateLimitBackoff time.Duration
	ErrorBackoff     time.Duration
	Sleep            Sleeper
	Client           *http.Client
}

// PostHogFetcher pages through the PostHog events API.
type PostHogFetcher struct {
	eventsURL string
	apiKey    string
	pageLimit int
	client    *http.Client
	retry     RetryPolicy
}

func NewPostHogFetcher(opts FetcherOptions) *PostHogFetcher {
	if opts.PageLimit <= 0 {
		opts.PageLimit = 1000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	rateLimit, errBackoff := opts.RateLimitBackoff, opts.ErrorBackoff
	return &PostHogFetcher{
		eventsURL: opts.EventsURL,
		apiKey:    opts.APIKey,
		pageLimit: opts.PageLimit,
		client:    client,
		retry: RetryPolicy{
			MaxAttempts: opts.MaxRetries,
			Sleep:       opts.Sleep,
			Backoff: func(err error) time.Duration {
				var apiErr *APIError
				if errors.As(err, &apiErr) && apiErr.RateLimited() {
					return rateLimit
				}
				return errBackoff
			},
		},
	}
}

// FirstPageURL returns the events URL parameterized for w.
func (f *PostHogFetcher) FirstPageURL(w models.Window) string {
	q := url.Values{}
	q.Set("after", utils.ISO(w.From))
	q.Set("before", utils.ISO(w.To))
	q.Set("limit", strconv.Itoa(f.pageLimit))
	return f.eventsURL + "?" + q.Encode()
}

// Fetch follows the next links until the server stops returning one. When a
// page keeps failing after every retry, the pages collected so far are
// returned without an error. Only context cancellation is reported.
func (f *PostHogFetcher) Fetch(ctx context.Context, w models.Window) ([]models.Event, error) {
	var events []models.Event
	next := f.FirstPageURL(w)

	for page := 1; next != ""; page++ {
		var resp eventsPage
		err := f.retry.Do(ctx, func(attempt int) error {
			r, err := f.getPage(ctx, next)
			if err != nil {
				var apiErr *APIError
				if errors.As(err, &apiErr) && apiErr.RateLimited() {
					logger.Warnf("Rate limited by PostHog on page %d (try %d)", page, attempt)
				} else {
					logger.Warnf("Error fetching PostHog events page %d (try %d): %v", page, attempt, err)
				}
				return err
			}
			resp = r
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return events, ctx.Err()
			}
			logger.Errorf("Skipping remaining pages after %d failed attempts: %v", f.retry.MaxAttempts, err)
			break
		}

		events = append(events, resp.Results...)
		logger.Debugf("Fetched page %d with %d events", page, len(resp.Results))

		next = ""
		if resp.Next != nil {
			next = *resp.Next
		}
	}
	return events, nil
}

func (f *PostHogFetcher) getPage(ctx context.Context, pageURL string) (eventsPage, error) {
	var page eventsPage

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return page, err
	}
	req.Header.Set("Authorization", "Bearer "+f.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return page, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return page, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > 512 {
			body = body[:512]
		}
		return page, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&page); err != nil {
		return page, fmt.Errorf("failed to decode events page: %w", err)
	}
	return page, nil
}

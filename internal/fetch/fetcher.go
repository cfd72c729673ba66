// Package fetch retrieves operationally-available capacity reports from the
// upstream posting site.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/OlsenJo/data-extract-app/internal/retry"
	"github.com/OlsenJo/data-extract-app/internal/run"
)

// ErrEmptyBody marks a 200 response with no content; the posting site does
// this transiently, so it is retried like any other fetch failure.
var ErrEmptyBody = errors.New("empty response body")

// Payload is one retrieved report plus its source metadata.
type Payload struct {
	Unit        run.Unit
	Body        []byte
	RetrievedAt time.Time
	URL         string
	SpoolPath   string // empty when spooling is disabled or the write failed
}

// FetchError wraps a retrieval failure with the unit it belongs to.
type FetchError struct {
	Unit run.Unit
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Unit, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPError is a non-success response from the posting site.
type HTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// DelayHint reports the server-requested retry delay, if any.
func (e *HTTPError) DelayHint() (time.Duration, bool) {
	if e.RetryAfter > 0 {
		return e.RetryAfter, true
	}
	return 0, false
}

// Client fetches report payloads with bounded retries.
type Client struct {
	http    *http.Client
	baseURL string
	policy  retry.Policy
	spool   *Spool
	logger  *log.Logger
	now     func() time.Time
}

// NewClient creates a fetch client. spool may be nil to disable payload
// retention entirely.
func NewClient(baseURL string, timeout time.Duration, policy retry.Policy, spool *Spool, logger *log.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		policy:  policy,
		spool:   spool,
		logger:  logger,
		now:     time.Now,
	}
}

// BuildURL returns the report URL for a unit. The gas day is formatted the
// way the posting site expects (MM/DD/YYYY).
func (c *Client) BuildURL(u run.Unit) string {
	q := url.Values{}
	q.Set("f", "csv")
	q.Set("extension", "csv")
	q.Set("asset", "TW")
	q.Set("searchType", "NOM")
	q.Set("searchString", "")
	q.Set("locType", "ALL")
	q.Set("locZone", "ALL")
	q.Set("gasDay", u.GasDay.Format("01/02/2006"))
	q.Set("cycle", strconv.Itoa(u.Cycle))
	return c.baseURL + "?" + q.Encode()
}

// Fetch retrieves the payload for a unit, retrying transient failures per the
// client's policy. On success the body is spooled for the retention policy; a
// spool failure only logs a warning and never fails the fetch.
func (c *Client) Fetch(ctx context.Context, u run.Unit) (Payload, error) {
	if u.GasDay.After(run.Day(c.now())) {
		return Payload{}, &FetchError{
			Unit: u,
			Err:  fmt.Errorf("gas day %s is in the future", u.GasDay.Format("2006-01-02")),
		}
	}

	reportURL := c.BuildURL(u)

	var body []byte
	err := c.policy.Do(ctx, c.isRetryable, func(ctx context.Context) error {
		var err error
		body, err = c.fetchOnce(ctx, reportURL)
		return err
	})
	if err != nil {
		return Payload{}, &FetchError{Unit: u, URL: reportURL, Err: err}
	}

	p := Payload{Unit: u, Body: body, RetrievedAt: c.now(), URL: reportURL}
	if c.spool != nil {
		path, err := c.spool.Write(u, body)
		if err != nil {
			c.logger.Printf("WARNING: could not spool payload for %s: %v", u, err)
		} else {
			p.SpoolPath = path
		}
	}
	return p, nil
}

// fetchOnce performs a single GET against the report URL.
func (c *Client) fetchOnce(ctx context.Context, reportURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reportURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request error: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a bounded error body for logging.
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(bodyBytes)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body error: %w", err)
	}
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return body, nil
}

// isRetryable checks if a fetch failure is worth another attempt. Transport
// errors, timeouts, empty bodies, 429 and 5xx responses are transient; other
// statuses and a canceled run are permanent.
func (c *Client) isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		// Network errors and empty bodies are retryable.
		return true
	}

	if httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode == http.StatusServiceUnavailable {
		return true
	}
	return httpErr.StatusCode >= 500
}

// parseRetryAfter parses a Retry-After header given in seconds.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

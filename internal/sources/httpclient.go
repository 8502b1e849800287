package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/biolume/mlbio-digest/internal/domain"
)

// maxBodyBytes caps how much of an upstream response body is read.
const maxBodyBytes = 10 << 20

// HTTPClientConfig configures the HTTP fetcher.
type HTTPClientConfig struct {
	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxTries is the total number of attempts per GET, including the first.
	MaxTries int

	// RetryBackoff is the base delay between tries; the wait after attempt n
	// is n times this value.
	RetryBackoff time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string
}

// HTTPClient is a bounded-retry GET fetcher with rate limiting.
// It is safe for concurrent use.
//
// Any transport error or non-200 status triggers a retry with a linear
// backoff (RetryBackoff times the attempt number); a Retry-After header, when
// present, overrides the computed delay. Exhausting all tries yields a
// *domain.FetchError, which callers treat as "source unavailable" for that
// call site rather than a run-fatal condition.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a new HTTP fetcher with rate limiting.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	// Apply defaults
	if cfg.Timeout == 0 {
		cfg.Timeout = 25 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 1200 * time.Millisecond
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "mlbio-digest/1.0"
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
	}
}

// GetJSON fetches url and decodes the 200 response body into v.
// Extra headers may be nil; Accept defaults to application/json.
func (c *HTTPClient) GetJSON(ctx context.Context, url string, headers map[string]string, v any) error {
	if headers == nil {
		headers = map[string]string{"Accept": "application/json"}
	}

	resp, err := c.get(ctx, url, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}

// GetText fetches url and returns the raw 200 response body.
func (c *HTTPClient) GetText(ctx context.Context, url string) (string, error) {
	resp, err := c.get(ctx, url, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading response from %s: %w", url, err)
	}
	return string(body), nil
}

// GetRaw fetches url and returns the open 200 response.
// The caller owns the body and must close it.
func (c *HTTPClient) GetRaw(ctx context.Context, url string) (*http.Response, error) {
	return c.get(ctx, url, nil)
}

// get runs the retry loop. It only ever returns a 200 response; every other
// outcome becomes an error, terminally a *domain.FetchError.
func (c *HTTPClient) get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.config.MaxTries; attempt++ {
		// Wait for rate limiter
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = err
			if attempt < c.config.MaxTries {
				if err := c.waitForRetry(ctx, c.backoff(attempt, nil)); err != nil {
					return nil, err
				}
			}
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
		delay := c.backoff(attempt, resp)

		// Drain and close so the connection can be reused before the retry.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()

		if attempt < c.config.MaxTries {
			if err := c.waitForRetry(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	return nil, domain.NewFetchError(url, lastErr)
}

// backoff computes the wait before the next try: the linear schedule, unless
// the response carries a usable Retry-After header.
func (c *HTTPClient) backoff(attempt int, resp *http.Response) time.Duration {
	linear := time.Duration(attempt) * c.config.RetryBackoff

	if resp == nil {
		return linear
	}
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return linear
	}

	// Try to parse as seconds
	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return linear
	}

	// Try to parse as HTTP date
	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return linear
}

// waitForRetry waits for the specified duration, respecting context cancellation.
func (c *HTTPClient) waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

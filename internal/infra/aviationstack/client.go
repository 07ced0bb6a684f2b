// Package aviationstack is the API-client core: a resilient HTTP fetch layer
// over the Aviationstack REST API. It normalizes the provider's ad-hoc
// response shapes into a stable {meta, items, raw} schema, classifies
// provider errors into a single ErrorPayload shape, and applies a bounded
// exponential retry/backoff policy for transient and rate-limited failures.
package aviationstack

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Resource names accepted by Fetch. Callers (the MCP dispatch layer) are
// responsible for rejecting unknown names before calling in.
const (
	ResourceFlights   = "flights"
	ResourceAirports  = "airports"
	ResourceAirlines  = "airlines"
	ResourceRoutes    = "routes"
	ResourceAirplanes = "airplanes"
)

// accessKeyParam is the query parameter carrying the API credential.
const accessKeyParam = "access_key"

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultBaseURL    = "http://api.aviationstack.com/v1/"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 2
	DefaultBackoff    = 500 * time.Millisecond
)

// Config holds the immutable per-client settings. Constructed once (usually
// from env via the config package) and reused across calls.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration // per-attempt HTTP timeout
	MaxRetries int           // retries after the first attempt
	Backoff    time.Duration // base delay; doubles on each retry, no cap
}

// Client is a thin Aviationstack client with retry, timeout and error
// mapping. Safe for concurrent use: all state is set at construction.
type Client struct {
	cfg        Config
	httpClient *http.Client

	// sleep is the backoff delay; replaced in tests to observe delays
	// without waiting them out.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Client, applying defaults for unset Config fields.
// A missing API key fails immediately with a missing_api_key APIError;
// no network calls are made.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		code := CodeMissingAPIKey
		return nil, &APIError{Payload: ErrorPayload{
			Provider: providerName,
			Code:     &code,
			Message:  "AVIATIONSTACK_API_KEY environment variable is not set",
		}}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		sleep:      sleepContext,
	}, nil
}

// Fetch retrieves a named Aviationstack resource (e.g. "flights") with the
// given query parameters and returns the normalized payload. The caller's
// params map is never mutated; the credential is merged into a copy and
// overrides any caller-supplied access_key.
//
// Transient failures (network faults, 5xx, rate limiting) are retried up to
// MaxRetries times with exponential backoff: Backoff * 2^attempt, no jitter,
// no cap. Every terminal failure is an *APIError carrying the last observed
// ErrorPayload.
func (c *Client) Fetch(ctx context.Context, resource string, params map[string]any) (*Result, error) {
	query := url.Values{}
	for k, v := range params {
		if s, ok := queryValue(v); ok {
			query.Set(k, s)
		}
	}
	query.Set(accessKeyParam, c.cfg.APIKey)

	attempt := 0
	var lastErr *APIError

	for {
		res, apiErr := c.attempt(ctx, resource, query)
		if apiErr == nil {
			return res, nil
		}
		if !c.shouldRetry(apiErr.Payload, attempt) {
			return nil, apiErr
		}
		lastErr = apiErr

		attempt++
		if attempt > c.cfg.MaxRetries {
			// Safety check; shouldRetry already bounds the attempt
			// counter, so this branch is unreachable in practice.
			if lastErr == nil {
				code := CodeMaxRetriesExceeded
				lastErr = &APIError{Payload: ErrorPayload{
					Provider: providerName,
					Code:     &code,
					Message:  "Maximum retry attempts exceeded while calling Aviationstack",
				}}
			}
			return nil, lastErr
		}

		// Exponential backoff: base, 2*base, 4*base, ...
		delay := c.cfg.Backoff * time.Duration(1<<(attempt-1))
		if err := c.sleep(ctx, delay); err != nil {
			// Caller cancelled mid-backoff; surface the last
			// classified error rather than a synthetic one.
			return nil, lastErr
		}
	}
}

// attempt performs one HTTP GET and classifies the outcome. A nil *APIError
// means the body decoded cleanly with no embedded provider error.
func (c *Client) attempt(ctx context.Context, resource string, query url.Values) (*Result, *APIError) {
	reqURL := c.cfg.BaseURL + resource + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, networkError(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorFromStatus(resp.StatusCode, resp.Header, body)
	}

	// The provider embeds errors inside 200 payloads in some cases.
	if bodyErr, ok := embeddedError(body); ok {
		return nil, errorFromBody(bodyErr, resp.StatusCode)
	}

	return Normalize(resource, body), nil
}

// shouldRetry decides whether a classified failure is worth another attempt.
// Rate-limited errors retry regardless of their retryable flag; everything
// else retries only when flagged retryable. The attempt counter is bounded
// by MaxRetries.
func (c *Client) shouldRetry(p ErrorPayload, attempt int) bool {
	if attempt >= c.cfg.MaxRetries {
		return false
	}
	return p.RateLimited || p.Retryable
}

// queryValue stringifies a scalar query parameter. Nil values are dropped
// (never sent), matching how the original client serialized params.
func queryValue(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	default:
		return "", false
	}
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

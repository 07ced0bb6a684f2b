package aviationstack

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Error codes produced by this package (the provider emits its own codes,
// e.g. "rate_limit" or "usage_limit_reached", which pass through unchanged).
const (
	CodeMissingAPIKey      = "missing_api_key"
	CodeNetworkError       = "network_error"
	CodeMaxRetriesExceeded = "max_retries_exceeded"
)

// ErrorPayload is the single error shape used everywhere: it is carried by
// APIError and serialized verbatim to MCP clients. Nullable fields are
// pointers and are always emitted (null, not omitted) to keep the wire
// contract stable.
type ErrorPayload struct {
	Provider          string   `json:"provider"`
	Code              *string  `json:"code"`
	Message           string   `json:"message"`
	StatusCode        *int     `json:"status_code"`
	Retryable         bool     `json:"retryable"`
	RateLimited       bool     `json:"rate_limited"`
	RetryAfterSeconds *float64 `json:"retry_after_seconds"`
}

// APIError wraps an ErrorPayload as a Go error. Every terminal failure of
// Fetch is an *APIError; callers unwrap with errors.As.
type APIError struct {
	Payload ErrorPayload
}

func (e *APIError) Error() string {
	if e.Payload.Message != "" {
		return e.Payload.Message
	}
	return "aviationstack API error"
}

// rate-limit-like provider codes embedded in response bodies.
var rateLimitCodes = map[string]bool{
	"rate_limit":    true,
	"quota_reached": true,
}

// errorFromBody classifies a provider-embedded error block ({code, message}
// under the top-level "error" key, seen on 200 and non-200 responses alike).
// Embedded errors are retried only when they look like rate limiting; generic
// provider faults reported this way are considered terminal.
func errorFromBody(bodyErr gjson.Result, statusCode int) *APIError {
	message := bodyErr.Get("message").String()
	if message == "" {
		message = "Aviationstack reported an error"
	}

	var code *string
	if c := bodyErr.Get("code"); c.Exists() && c.Type != gjson.Null {
		v := c.String()
		code = &v
	}

	rateLimited := false
	if code != nil && rateLimitCodes[strings.ToLower(*code)] {
		rateLimited = true
	}
	if strings.Contains(strings.ToLower(message), "rate limit") {
		rateLimited = true
	}

	status := statusCode
	return &APIError{Payload: ErrorPayload{
		Provider:    providerName,
		Code:        code,
		Message:     message,
		StatusCode:  &status,
		Retryable:   rateLimited,
		RateLimited: rateLimited,
	}}
}

// errorFromStatus classifies a non-2xx HTTP response. Retryability follows
// the status code alone (429 or 5xx); a structured {error: {code, message}}
// body only improves the reported text, never the classification.
func errorFromStatus(status int, header http.Header, body []byte) *APIError {
	message := fmt.Sprintf("HTTP %d from Aviationstack", status)

	var code *string
	if bodyErr := gjson.GetBytes(body, "error"); bodyErr.IsObject() {
		if m := bodyErr.Get("message"); m.Exists() && m.String() != "" {
			message = m.String()
		}
		if c := bodyErr.Get("code"); c.Exists() && c.Type != gjson.Null {
			v := c.String()
			code = &v
		}
	}

	rateLimited := status == http.StatusTooManyRequests

	var retryAfter *float64
	if rateLimited {
		if raw := header.Get("Retry-After"); raw != "" {
			if secs, err := strconv.ParseFloat(raw, 64); err == nil {
				retryAfter = &secs
			}
		}
	}

	statusCopy := status
	return &APIError{Payload: ErrorPayload{
		Provider:          providerName,
		Code:              code,
		Message:           message,
		StatusCode:        &statusCopy,
		Retryable:         rateLimited || (status >= 500 && status < 600),
		RateLimited:       rateLimited,
		RetryAfterSeconds: retryAfter,
	}}
}

// networkError wraps a transport-level failure (connection refused, timeout).
// Always retryable, never rate-limited, no HTTP status.
func networkError(err error) *APIError {
	code := CodeNetworkError
	return &APIError{Payload: ErrorPayload{
		Provider:  providerName,
		Code:      &code,
		Message:   fmt.Sprintf("Network error while calling Aviationstack: %v", err),
		Retryable: true,
	}}
}

// embeddedError reports whether the decoded body carries a non-empty
// top-level "error" field. The provider embeds errors inside 200 payloads in
// some cases, so status codes alone are not sufficient. Empty objects,
// empty strings, null and false do not count (matching the provider's
// loose "error present" convention).
func embeddedError(body []byte) (gjson.Result, bool) {
	e := gjson.GetBytes(body, "error")
	if !e.Exists() || e.Type == gjson.Null || e.Type == gjson.False {
		return e, false
	}
	if e.IsObject() && len(e.Map()) == 0 {
		return e, false
	}
	if e.Type == gjson.String && e.Str == "" {
		return e, false
	}
	if e.Type == gjson.Number && e.Num == 0 {
		return e, false
	}
	return e, true
}

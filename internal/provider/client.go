// Package provider is the HTTP client for the upstream blockchain-data API.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/MintFaced/timeline/internal/domain"
	"github.com/MintFaced/timeline/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 4
	DefaultRetryDelay  = 500 * time.Millisecond

	maxErrorBody = 2048
)

// Client talks to the upstream provider. Transient failures (429, 5xx,
// transport errors) are retried on the same request with linearly
// increasing delay; everything else fails with *domain.UpstreamError.
type Client struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxAttempts int
	retryDelay  time.Duration
	limiter     *rate.Limiter
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxAttempts sets the attempt ceiling per request (including the first).
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the delay unit; attempt n waits (n-1)*d.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithAPIKey sets the key sent in the x-api-key header.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithRateLimit paces outbound requests. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a provider client rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: DefaultTimeout},
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsTransientStatus reports whether an HTTP status is worth retrying.
func IsTransientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Fetch issues a single GET to an absolute URL and decodes the JSON body.
// It never retries; callers that iterate over alternatives (the identity
// resolver) move on to the next candidate instead. The URL belongs to a
// third party, so the provider API key is not sent.
func (c *Client) Fetch(ctx context.Context, endpoint, rawURL string, out any) error {
	start := time.Now()
	_, err := c.attempt(ctx, http.MethodGet, rawURL, nil, out, false)
	observability.RecordProviderRequest(endpoint, time.Since(start).Seconds(), err != nil)
	return err
}

// call performs a request against the provider with bounded retries.
func (c *Client) call(ctx context.Context, endpoint, method, path string, payload any, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	rawURL := c.baseURL + path
	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * c.retryDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		retry, err := c.attempt(ctx, method, rawURL, body, out, true)
		if err == nil {
			observability.RecordProviderRequest(endpoint, time.Since(start).Seconds(), false)
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
		observability.RecordProviderRetry(endpoint, retryReason(err))
	}

	observability.RecordProviderRequest(endpoint, time.Since(start).Seconds(), true)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var upErr *domain.UpstreamError
	if errors.As(lastErr, &upErr) {
		return upErr
	}
	return &domain.UpstreamError{Body: lastErr.Error(), URL: rawURL}
}

// attempt performs one HTTP exchange. withKey adds the provider API key.
// The bool result reports whether the failure is transient.
func (c *Client) attempt(ctx context.Context, method, rawURL string, body []byte, out any, withKey bool) (bool, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, err
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withKey && c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, fmt.Errorf("http request: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return IsTransientStatus(resp.StatusCode), &domain.UpstreamError{
			Status: resp.StatusCode,
			Body:   truncate(string(respBody), maxErrorBody),
			URL:    rawURL,
		}
	}

	if out == nil {
		return false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(respBody))
	// Token ids routinely exceed float64 precision.
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return false, &domain.UpstreamError{
			Status: resp.StatusCode,
			Body:   fmt.Sprintf("decode response: %v", err),
			URL:    rawURL,
		}
	}
	return false, nil
}

func retryReason(err error) string {
	var upErr *domain.UpstreamError
	if errors.As(err, &upErr) {
		if upErr.Status == http.StatusTooManyRequests {
			return "rate_limited"
		}
		return "server_error"
	}
	return "network_error"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

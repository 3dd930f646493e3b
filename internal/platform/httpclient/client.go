// Package httpclient provides the HTTP client shared by collectors: bounded
// retries on transient statuses, token-bucket rate limiting and a body cap.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"argus/internal/platform/errors"
	"argus/internal/platform/logx"
)

// Client wraps http.Client with retries, rate limiting and status mapping.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      logx.Logger
	config      Config
	sleep       func(ctx context.Context, d time.Duration) error
}

// Config holds the configuration for the HTTP client.
type Config struct {
	// Timeout is the per-request timeout.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRetries is the number of extra attempts on 429/5xx or network errors.
	// Collectors are already wrapped in a retrying decorator, so keep this low.
	// Default: 1
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled per attempt.
	// Default: 500ms
	RetryBackoff time.Duration

	// MaxRetryBackoff caps the backoff.
	// Default: 10 seconds
	MaxRetryBackoff time.Duration

	// UserAgent is the User-Agent header value.
	// Default: "Argus/1.0 (+osint)"
	UserAgent string

	// RateLimit is the maximum requests per second. 0 disables limiting.
	RateLimit float64

	// RateLimitBurst is the burst size for rate limiting.
	// Default: 1
	RateLimitBurst int

	// MaxBodyBytes caps how much of a response body is read.
	// Default: 5 MiB
	MaxBodyBytes int64

	// Transport overrides the underlying round tripper (tests, proxies).
	Transport http.RoundTripper
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		MaxRetries:      1,
		RetryBackoff:    500 * time.Millisecond,
		MaxRetryBackoff: 10 * time.Second,
		UserAgent:       "Argus/1.0 (+osint)",
		RateLimitBurst:  1,
		MaxBodyBytes:    5 << 20,
	}
}

// New creates a new HTTP client with the given configuration.
func New(config Config, logger logx.Logger) *Client {
	d := DefaultConfig()
	if config.Timeout == 0 {
		config.Timeout = d.Timeout
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = d.RetryBackoff
	}
	if config.MaxRetryBackoff == 0 {
		config.MaxRetryBackoff = d.MaxRetryBackoff
	}
	if config.UserAgent == "" {
		config.UserAgent = d.UserAgent
	}
	if config.RateLimitBurst == 0 {
		config.RateLimitBurst = 1
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = d.MaxBodyBytes
	}
	if logger == nil {
		logger = logx.NewSilent()
	}

	httpClient := &http.Client{
		Timeout:   config.Timeout,
		Transport: config.Transport,
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimitBurst)
	}

	return &Client{
		httpClient:  httpClient,
		rateLimiter: limiter,
		logger:      logger.With("component", "httpclient"),
		config:      config,
		sleep:       sleepCtx,
	}
}

// Request performs an HTTP request with retry logic and rate limiting.
// The body, if any, must be re-readable across attempts, so only nil bodies
// are retried.
func (c *Client) Request(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	var lastErr error

	maxRetries := c.config.MaxRetries
	if body != nil {
		maxRetries = 0
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return nil, errors.Wrap(err, "rate limit wait failed")
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "build request %s %s: %v", method, url, err)
		}

		req.Header.Set("User-Agent", c.config.UserAgent)
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		duration := time.Since(start)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Debug("HTTP request failed",
				"method", method,
				"url", url,
				"attempt", attempt+1,
				"error", err.Error(),
				"duration_ms", duration.Milliseconds(),
			)
			lastErr = errors.Wrap(errors.ErrConnectionFailed, err.Error())
		} else {
			c.logger.Debug("HTTP response received",
				"method", method,
				"url", url,
				"status", resp.StatusCode,
				"duration_ms", duration.Milliseconds(),
			)

			if !isRetryableStatus(resp.StatusCode) {
				return resp, nil
			}

			resp.Body.Close()
			lastErr = errors.Wrapf(errors.FromHTTPStatus(resp.StatusCode), "HTTP %d", resp.StatusCode)
		}

		if attempt == maxRetries {
			break
		}
		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			return nil, err
		}
	}

	return nil, errors.Wrapf(lastErr, "request failed after %d attempts", maxRetries+1)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	return c.Request(ctx, http.MethodGet, url, nil, headers)
}

// Head performs a HEAD request.
func (c *Client) Head(ctx context.Context, url string) (*http.Response, error) {
	return c.Request(ctx, http.MethodHead, url, nil, nil)
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	return c.Request(ctx, http.MethodPost, url, body, headers)
}

// GetJSON fetches url and decodes a 2xx JSON body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.Fetch(ctx, url, map[string]string{"Accept": "application/json, application/rdap+json"})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrapf(errors.ErrInvalidResponse, "decode %s: %v", url, err)
	}
	return nil
}

// Fetch performs a GET and returns the capped body of a 2xx response.
func (c *Client) Fetch(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	resp, err := c.Get(ctx, url, headers)
	if err != nil {
		return nil, err
	}

	if err := CheckStatus(resp); err != nil {
		resp.Body.Close()
		return nil, errors.Wrapf(err, "request to %s failed", url)
	}

	return c.ReadBody(resp)
}

// ReadBody reads at most MaxBodyBytes and closes the body.
func (c *Client) ReadBody(resp *http.Response) ([]byte, error) {
	if resp == nil {
		return nil, errors.New("response is nil")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	return body, nil
}

// CheckStatus maps a non-2xx status onto the platform error sentinels.
func CheckStatus(resp *http.Response) error {
	if resp == nil {
		return errors.New("response is nil")
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return errors.Wrapf(errors.FromHTTPStatus(resp.StatusCode), "HTTP %d", resp.StatusCode)
}

// SetRateLimit updates the rate limit dynamically.
func (c *Client) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		c.rateLimiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}

	if c.rateLimiter == nil {
		c.rateLimiter = rate.NewLimiter(rate.Limit(rps), burst)
	} else {
		c.rateLimiter.SetLimit(rate.Limit(rps))
		c.rateLimiter.SetBurst(burst)
	}
	c.config.RateLimit = rps
	c.config.RateLimitBurst = burst
}

// String returns a human-readable representation of the client configuration.
func (c *Client) String() string {
	return fmt.Sprintf("HTTPClient{timeout=%s, max_retries=%d, rate_limit=%.1f/s}",
		c.config.Timeout,
		c.config.MaxRetries,
		c.config.RateLimit,
	)
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// backoff is RetryBackoff * 2^attempt, capped.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.config.RetryBackoff << attempt
	if d <= 0 || d > c.config.MaxRetryBackoff {
		d = c.config.MaxRetryBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Package retryhttp is the HTTP client used by tools that call upstream
// services. Idempotent requests are retried at a fixed interval when the
// upstream answers with a retryable status or the connection fails.
package retryhttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/lestrrat-go/backoff/v2"
	"go.uber.org/zap"
)

const DefaultUserAgent = "agentflow/1.0"

// DefaultRetryStatuses are the upstream statuses worth retrying.
var DefaultRetryStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// StatusError is returned when the upstream answered with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: upstream returned status %d", e.Method, e.URL, e.StatusCode)
}

// Config holds client settings. Zero values fall back to defaults, except
// Retries where zero disables retrying.
type Config struct {
	Retries       int
	Backoff       time.Duration
	RetryStatuses []int
	UserAgent     string
	Timeout       time.Duration
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Client wraps an http.Client with a retry policy.
type Client struct {
	http          *http.Client
	retries       int
	backoff       time.Duration
	retryStatuses []int
	userAgent     string
	logger        *zap.Logger
}

// New creates a client from cfg.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 600 * time.Millisecond
	}
	if cfg.RetryStatuses == nil {
		cfg.RetryStatuses = DefaultRetryStatuses
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		http:          httpClient,
		retries:       cfg.Retries,
		backoff:       cfg.Backoff,
		retryStatuses: slices.Clone(cfg.RetryStatuses),
		userAgent:     cfg.UserAgent,
		logger:        cfg.Logger,
	}
}

// Do sends req. GET and HEAD requests are retried; other methods are sent
// once. When retries are exhausted the last response is returned as is, so
// callers must still check the status.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "*/*")
	}

	if c.retries == 0 || !idempotent(req.Method) {
		return c.http.Do(req)
	}

	// The controller lives only for the retry loop. Requests carry the
	// caller's context so the returned body stays readable after Do returns.
	ctrlCtx, stop := context.WithCancel(req.Context())
	defer stop()

	policy := backoff.Constant(
		backoff.WithInterval(c.backoff),
		backoff.WithMaxRetries(c.retries+1),
	)
	ctrl := policy.Start(ctrlCtx)

	var (
		resp    *http.Response
		err     error
		attempt int
	)
	for backoff.Continue(ctrl) {
		resp, err = c.http.Do(req.Clone(req.Context()))
		if !c.shouldRetry(resp, err) || attempt >= c.retries {
			break
		}
		attempt++

		fields := []zap.Field{
			zap.String("method", req.Method),
			zap.String("url", req.URL.Redacted()),
			zap.Int("attempt", attempt),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		} else {
			fields = append(fields, zap.Int("status", resp.StatusCode))
			drain(resp)
		}
		c.logger.Debug("Retrying upstream request", fields...)
		resp, err = nil, nil
	}

	if resp == nil && err == nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.New("retries exhausted without a response")
	}
	return resp, err
}

// Get fetches url and returns the body of a 2xx response. Non-2xx answers
// are reported as *StatusError.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: http.MethodGet, URL: req.URL.Redacted(), StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (c *Client) shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return slices.Contains(c.retryStatuses, resp.StatusCode)
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

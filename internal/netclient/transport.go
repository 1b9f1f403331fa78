// Package netclient provides the outbound HTTP client used for identity and
// push traffic: per-attempt timeouts, bounded retries on server errors and an
// optional connectivity check.
package netclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"eduportal/internal/metrics"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// OnlineFunc reports whether the network is reachable
type OnlineFunc func(ctx context.Context) bool

// Options configures a Transport. Zero values select the defaults.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Online     OnlineFunc
	Base       http.RoundTripper
}

// Transport is an http.RoundTripper that retries server errors and transport
// failures with linear backoff. Client errors, timeouts and offline checks are
// never retried. On the last attempt a 5xx response is returned as is.
type Transport struct {
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	online     OnlineFunc
	base       http.RoundTripper
}

// NewTransport creates a Transport from opts
func NewTransport(opts Options) *Transport {
	t := &Transport{
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		online:     opts.Online,
		base:       opts.Base,
	}
	if t.timeout <= 0 {
		t.timeout = DefaultTimeout
	}
	if t.maxRetries < 0 {
		t.maxRetries = 0
	}
	if t.retryDelay <= 0 {
		t.retryDelay = DefaultRetryDelay
	}
	if t.base == nil {
		t.base = http.DefaultTransport
	}
	return t
}

// NewClient returns an http.Client backed by a Transport
func NewClient(opts Options) *http.Client {
	return &http.Client{Transport: NewTransport(opts)}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if t.online != nil && !t.online(ctx) {
		metrics.HTTPAttempts.WithLabelValues("offline").Inc()
		return nil, &NetworkError{
			Message:   "No internet connection. Please check your network settings.",
			Code:      CodeOffline,
			IsOffline: true,
		}
	}

	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			if err := t.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		attemptReq, err := rewind(req, attempt)
		if err != nil {
			return nil, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, t.timeout)
		resp, err := t.base.RoundTrip(attemptReq.WithContext(attemptCtx))
		if err != nil {
			cancel()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
				metrics.HTTPAttempts.WithLabelValues("timeout").Inc()
				return nil, &NetworkError{
					Message:   fmt.Sprintf("request to %s timed out", req.URL.Redacted()),
					Code:      CodeTimeout,
					IsTimeout: true,
					Err:       err,
				}
			}
			lastErr = err
			metrics.HTTPAttempts.WithLabelValues("retry").Inc()
			slog.Warn("request failed", "url", req.URL.Redacted(), "attempt", attempt+1, "error", err)
			continue
		}

		if resp.StatusCode >= 500 && attempt < t.maxRetries {
			drain(resp.Body)
			cancel()
			metrics.HTTPAttempts.WithLabelValues("retry").Inc()
			slog.Warn("server error, retrying", "url", req.URL.Redacted(), "status", resp.StatusCode, "attempt", attempt+1)
			continue
		}

		metrics.HTTPAttempts.WithLabelValues("ok").Inc()
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}

	metrics.HTTPAttempts.WithLabelValues("failed").Inc()
	return nil, &NetworkError{
		Message:        fmt.Sprintf("request to %s failed", req.URL.Redacted()),
		Code:           CodeNetwork,
		IsNetworkError: true,
		Err:            lastErr,
	}
}

func (t *Transport) backoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(t.retryDelay * time.Duration(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// rewind returns a request whose body can be sent again
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 0 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("cannot retry request to %s: body is not rewindable", req.URL.Redacted())
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to rewind request body: %w", err)
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

// cancelOnClose releases the per-attempt context once the body is consumed
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// HostReachable returns an OnlineFunc that dials addr ("host:port")
func HostReachable(addr string, timeout time.Duration) OnlineFunc {
	return func(ctx context.Context) bool {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}
}

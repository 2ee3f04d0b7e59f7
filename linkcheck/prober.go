// Package linkcheck validates that every externally-referenced URL
// across all rules is reachable. Probing is concurrent over a bounded
// worker pool; failures are aggregated, never fatal to sibling checks.
package linkcheck

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Config tunes the prober and the worker pool.
type Config struct {
	// Workers bounds concurrent probes. The bound respects third-party
	// rate limits while keeping wall-clock time bounded for large
	// reference sets.
	Workers int
	// Timeout cancels one in-flight request; a timeout surfaces as a
	// retryable transport error, never a hang.
	Timeout time.Duration
	// MaxAttempts is the per-URL retry budget, first attempt included.
	MaxAttempts int
	// RetryDelay is the base of the linearly increasing backoff:
	// attempt n waits n*RetryDelay before retrying.
	RetryDelay time.Duration
	// RatePerSecond caps the request rate across all workers; zero
	// disables the limiter.
	RatePerSecond float64
	// UserAgent identifies the checker to remote servers.
	UserAgent string
}

// DefaultConfig returns the standard probing configuration.
func DefaultConfig() Config {
	return Config{
		Workers:       5,
		Timeout:       10 * time.Second,
		MaxAttempts:   3,
		RetryDelay:    time.Second,
		RatePerSecond: 8,
		UserAgent:     "praxis-linkcheck/1.0",
	}
}

// Result is the terminal state of one probed URL.
type Result struct {
	URL        string
	Reachable  bool
	Attempts   int
	StatusCode int
	// Err retains the last observed error message after retry
	// exhaustion.
	Err string
}

// prober issues reachability probes with the configured client.
type prober struct {
	client    *http.Client
	userAgent string
}

// newProber builds an HTTP client with explicit connection and header
// timeouts so a stalled remote cannot hold a worker.
func newProber(cfg Config) *prober {
	dialer := &net.Dialer{
		Timeout:   cfg.Timeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConns:          cfg.Workers * 2,
		IdleConnTimeout:       90 * time.Second,
	}
	return &prober{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
	}
}

// probe issues a lightweight HEAD request, falling back to GET when the
// server rejects the method. The returned status is terminal for this
// attempt; ok means the URL counts as reachable.
func (p *prober) probe(ctx context.Context, url string) (status int, ok bool, err error) {
	status, err = p.request(ctx, http.MethodHead, url)
	if err != nil {
		return 0, false, err
	}
	if status == http.StatusMethodNotAllowed {
		status, err = p.request(ctx, http.MethodGet, url)
		if err != nil {
			return 0, false, err
		}
	}
	return status, acceptable(status), nil
}

func (p *prober) request(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	// Drain a small amount so the connection can be reused.
	_, _ = io.CopyN(io.Discard, resp.Body, 512)
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

// acceptable reports whether a status counts as reachable. Success and
// redirect classes pass; 429 passes as optimistic tolerance, since
// throttling is indistinguishable from true unreachability here.
func acceptable(status int) bool {
	if status >= 200 && status < 400 {
		return true
	}
	return status == http.StatusTooManyRequests
}

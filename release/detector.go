package release

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/praxisdev/praxis/registry"
	"github.com/praxisdev/praxis/report"
)

// Direction names which way an observed baseline drifted.
type Direction string

// Drift directions. Forward means the assumed baseline is stale;
// backward means the expected baseline is not actually present on the
// release page.
const (
	DriftForward  Direction = "forward"
	DriftBackward Direction = "backward"
)

// Config tunes the detector's fetch policy. It mirrors the link
// checker's retry semantics; checks run sequentially since registries
// hold only a handful of entries.
type Config struct {
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	UserAgent   string
	// MaxContentSize bounds a fetched page body.
	MaxContentSize int64
}

// DefaultConfig returns the standard fetch policy.
func DefaultConfig() Config {
	return Config{
		Timeout:        15 * time.Second,
		MaxAttempts:    3,
		RetryDelay:     time.Second,
		UserAgent:      "praxis-release-watch/1.0",
		MaxContentSize: 4 << 20,
	}
}

// Detector runs the configured release watch checks.
type Detector struct {
	cfg       Config
	client    *http.Client
	converter *Converter
	logger    *slog.Logger
}

// NewDetector creates a release-watch detector. A nil logger falls back
// to slog.Default().
func NewDetector(cfg Config, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.MaxContentSize <= 0 {
		cfg.MaxContentSize = DefaultConfig().MaxContentSize
	}
	return &Detector{
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		converter: NewConverter(),
		logger:    logger,
	}
}

// Run executes every check sequentially. Per-check failures are
// aggregated; no failure aborts a sibling check.
func (d *Detector) Run(ctx context.Context, checks []registry.ReleaseCheck) []report.Finding {
	var findings []report.Finding
	for i := range checks {
		if f := d.check(ctx, &checks[i]); f != nil {
			findings = append(findings, *f)
		}
	}
	return findings
}

// check fetches one release page and compares the observed latest
// version to the registry's expected baseline. Equality is the only
// success.
func (d *Detector) check(ctx context.Context, c *registry.ReleaseCheck) *report.Finding {
	body, contentType, err := d.fetch(ctx, c.URL)
	if err != nil {
		return &report.Finding{
			Kind:    report.KindNetwork,
			Check:   "release-watch",
			File:    c.ID,
			Message: fmt.Sprintf("fetch %s: %v", c.URL, err),
		}
	}

	text, title := d.converter.Convert(body, contentType)
	versions := FilterValid(c.ExtractVersions(text))
	if len(versions) == 0 {
		return &report.Finding{
			Kind:    report.KindDrift,
			Check:   "release-watch",
			File:    c.ID,
			Message: fmt.Sprintf("no versions matched on %s", c.URL),
		}
	}

	observed := MaxVersion(versions)
	d.logger.Debug("release page scanned",
		"check", c.ID,
		"page_title", title,
		"candidates", len(versions),
		"observed", observed)

	switch cmp := CompareVersions(observed, c.ExpectedLatest); {
	case cmp > 0:
		return &report.Finding{
			Kind:  report.KindDrift,
			Check: "release-watch",
			File:  c.ID,
			Message: fmt.Sprintf("%s drift: observed latest %s is newer than expected %s (baseline is stale)",
				DriftForward, observed, c.ExpectedLatest),
		}
	case cmp < 0:
		return &report.Finding{
			Kind:  report.KindDrift,
			Check: "release-watch",
			File:  c.ID,
			Message: fmt.Sprintf("%s drift: expected %s not present, observed latest is %s",
				DriftBackward, c.ExpectedLatest, observed),
		}
	}
	return nil
}

// fetch retrieves a page with the retry policy: linearly increasing
// delay, last error retained.
func (d *Detector) fetch(ctx context.Context, url string) (body []byte, contentType string, err error) {
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		body, contentType, err = d.fetchOnce(ctx, url)
		if err == nil {
			return body, contentType, nil
		}
		d.logger.Debug("release fetch failed", "url", url, "attempt", attempt, "error", err)
		if attempt < d.cfg.MaxAttempts {
			timer := time.NewTimer(time.Duration(attempt) * d.cfg.RetryDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, "", err
			}
		}
	}
	return nil, "", err
}

func (d *Detector) fetchOnce(ctx context.Context, url string) ([]byte, string, error) {
	reqCtx := ctx
	var cancel context.CancelFunc
	if d.cfg.Timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	limited := io.LimitReader(resp.Body, d.cfg.MaxContentSize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > d.cfg.MaxContentSize {
		return nil, "", fmt.Errorf("content too large (exceeds %d bytes)", d.cfg.MaxContentSize)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

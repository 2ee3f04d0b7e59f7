package linkcheck

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/praxisdev/praxis/report"
	"github.com/praxisdev/praxis/rule"
)

// Checker probes a set of URLs with a bounded worker pool.
type Checker struct {
	cfg     Config
	prober  *prober
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewChecker creates a link checker. A nil logger falls back to
// slog.Default().
func NewChecker(cfg Config, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Workers)
	}

	return &Checker{
		cfg:     cfg,
		prober:  newProber(cfg),
		limiter: limiter,
		logger:  logger,
	}
}

// Run probes every URL and returns one result per URL. Workers pull
// from a shared cursor, so no URL is processed twice and assignment
// order is deterministic even though completion order is not. Results
// are returned sorted by URL.
func (c *Checker) Run(ctx context.Context, urls []string) []Result {
	if len(urls) == 0 {
		return nil
	}

	var (
		cursor  atomic.Int64
		mu      sync.Mutex
		results []Result
	)

	workers := c.cfg.Workers
	if workers > len(urls) {
		workers = len(urls)
	}

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				idx := cursor.Add(1) - 1
				if idx >= int64(len(urls)) {
					return nil
				}
				res := c.checkURL(ctx, urls[idx])
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		})
	}
	// Workers only return nil; the group exists for lifecycle management.
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].URL < results[j].URL })
	return results
}

// checkURL probes one URL with the retry budget, waiting a linearly
// increasing delay between attempts.
func (c *Checker) checkURL(ctx context.Context, url string) Result {
	res := Result{URL: url}

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		res.Attempts = attempt

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				res.Err = err.Error()
				return res
			}
		}

		reqCtx := ctx
		var cancel context.CancelFunc
		if c.cfg.Timeout > 0 {
			reqCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		}
		status, ok, err := c.prober.probe(reqCtx, url)
		if cancel != nil {
			cancel()
		}

		switch {
		case err != nil:
			res.Err = err.Error()
		case ok:
			res.Reachable = true
			res.StatusCode = status
			res.Err = ""
			return res
		default:
			res.StatusCode = status
			res.Err = fmt.Sprintf("unexpected status %d", status)
		}

		c.logger.Debug("probe failed",
			"url", url,
			"attempt", attempt,
			"error", res.Err)

		if attempt < c.cfg.MaxAttempts {
			if !sleepCtx(ctx, time.Duration(attempt)*c.cfg.RetryDelay) {
				return res
			}
		}
	}

	return res
}

// sleepCtx waits for d or until the context is done; it reports whether
// the full delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Index builds the unique URL set across rules plus the reverse index
// from URL to referencing files, used for diagnostics. The URL list is
// sorted so worker assignment order is deterministic.
func Index(rules []*rule.Rule) (urls []string, referencers map[string][]string) {
	referencers = make(map[string][]string)
	for _, r := range rules {
		for _, ref := range r.References {
			referencers[ref] = append(referencers[ref], r.Path)
		}
	}
	for u, files := range referencers {
		sort.Strings(files)
		referencers[u] = files
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls, referencers
}

// Findings converts failed results into network findings, one per
// failing URL, each listing every file that references it.
func Findings(results []Result, referencers map[string][]string) []report.Finding {
	var findings []report.Finding
	for _, res := range results {
		if res.Reachable {
			continue
		}
		files := referencers[res.URL]
		for _, file := range files {
			findings = append(findings, report.Finding{
				Kind:    report.KindNetwork,
				Check:   "link-health",
				File:    file,
				Message: fmt.Sprintf("unreachable %s after %d attempt(s): %s", res.URL, res.Attempts, res.Err),
			})
		}
		if len(files) == 0 {
			findings = append(findings, report.Finding{
				Kind:    report.KindNetwork,
				Check:   "link-health",
				Message: fmt.Sprintf("unreachable %s after %d attempt(s): %s", res.URL, res.Attempts, res.Err),
			})
		}
	}
	return findings
}

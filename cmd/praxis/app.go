package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/praxisdev/praxis/compile"
	"github.com/praxisdev/praxis/config"
	"github.com/praxisdev/praxis/extract"
	"github.com/praxisdev/praxis/linkcheck"
	"github.com/praxisdev/praxis/registry"
	"github.com/praxisdev/praxis/release"
	"github.com/praxisdev/praxis/report"
	"github.com/praxisdev/praxis/rule"
	"github.com/praxisdev/praxis/validate"
	"github.com/praxisdev/praxis/watch"
)

// App wires the pipeline stages together over one loaded configuration.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewApp creates the application with a validated configuration.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger}
}

// resolveSkills returns the requested skills, or every skill under the
// skills directory when none were named.
func (a *App) resolveSkills(requested []string) ([]string, error) {
	available, err := rule.ListSkills(a.cfg.Skills.Dir)
	if err != nil {
		return nil, err
	}
	if len(requested) == 0 {
		return available, nil
	}

	known := make(map[string]bool, len(available))
	for _, s := range available {
		known[s] = true
	}
	for _, s := range requested {
		if !known[s] {
			return nil, fmt.Errorf("unknown skill %q (available: %v)", s, available)
		}
	}
	return requested, nil
}

// loadSkill parses a skill's rule documents. Documents that fail to
// parse become findings; the remaining rules flow on.
func (a *App) loadSkill(skill string, rep *report.Report) (*rule.LoadResult, error) {
	result, err := rule.LoadSkill(a.cfg.Skills.Dir, skill)
	if err != nil {
		return nil, err
	}
	for _, pe := range result.Failed {
		rep.Add(report.Finding{
			Kind:    report.KindParse,
			Check:   "parser",
			File:    pe.Path,
			Message: pe.Error(),
		})
	}
	a.logger.Debug("Loaded skill",
		slog.String("skill", skill),
		slog.Int("rules", len(result.Rules)),
		slog.Int("failed", len(result.Failed)))
	return result, nil
}

// Build parses, validates, assembles, and writes one output document
// per skill. Skills with structural findings still assemble; parse and
// assembly failures surface as findings rather than aborting the run.
func (a *App) Build(ctx context.Context, skills []string, rep *report.Report) error {
	sections, err := registry.LoadSections(a.cfg.Registry.Sections)
	if err != nil {
		return err
	}

	for _, skill := range skills {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := a.loadSkill(skill, rep)
		if err != nil {
			return err
		}
		rep.Add(validate.StructuralAll(result.Rules)...)

		skillSections, ok := sections.Skills[skill]
		if !ok {
			rep.Add(report.Finding{
				Kind:    report.KindStructural,
				Check:   "assembly",
				Message: fmt.Sprintf("skill %q has no section registry entry", skill),
			})
			continue
		}

		doc, err := compile.Assemble(skill, result.Rules, &skillSections)
		if err != nil {
			rep.Add(report.Finding{
				Kind:    report.KindStructural,
				Check:   "assembly",
				Message: err.Error(),
			})
			continue
		}

		outPath := filepath.Join(a.cfg.Skills.OutputDir, skill+".md")
		if err := os.MkdirAll(a.cfg.Skills.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		if err := os.WriteFile(outPath, []byte(compile.Render(doc)), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}

		a.logger.Info("Assembled skill document",
			slog.String("skill", skill),
			slog.String("path", outPath),
			slog.Int("rules", doc.RuleCount()))
	}
	return nil
}

// Check runs the offline validations: structural checks plus the
// registry-driven version-claim guard, path rules, and invariants.
func (a *App) Check(ctx context.Context, skills []string, rep *report.Report) error {
	checks, err := registry.LoadChecks(a.cfg.Registry.Checks)
	if err != nil {
		return err
	}
	checker := validate.NewChecker(checks)
	invariants := validate.NewInvariants(checks)

	// Invariants may target files in any skill, so they run once over
	// the combined corpus after every skill has loaded.
	var corpus []*rule.Rule
	for _, skill := range skills {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := a.loadSkill(skill, rep)
		if err != nil {
			return err
		}
		rep.Add(validate.StructuralAll(result.Rules)...)
		rep.Add(checker.Run(result.Rules)...)
		corpus = append(corpus, result.Rules...)
	}
	rep.Add(invariants.Run(corpus)...)
	return nil
}

// Links probes every outbound reference across the given skills with
// the bounded worker pool and reports unreachable URLs per referencing
// file.
func (a *App) Links(ctx context.Context, skills []string, rep *report.Report) error {
	var all []*rule.Rule
	for _, skill := range skills {
		result, err := a.loadSkill(skill, rep)
		if err != nil {
			return err
		}
		all = append(all, result.Rules...)
	}

	urls, referencers := linkcheck.Index(all)
	if len(urls) == 0 {
		a.logger.Info("No outbound references to check")
		return nil
	}

	lcfg := linkcheck.DefaultConfig()
	lcfg.Workers = a.cfg.Links.Workers
	lcfg.Timeout = a.cfg.Links.Timeout
	lcfg.MaxAttempts = a.cfg.Links.MaxAttempts
	lcfg.RetryDelay = a.cfg.Links.RetryDelay
	lcfg.RatePerSecond = a.cfg.Links.RatePerSecond

	checker := linkcheck.NewChecker(lcfg, a.logger)
	results := checker.Run(ctx, urls)
	rep.Add(linkcheck.Findings(results, referencers)...)

	a.logger.Info("Link health check complete",
		slog.Int("urls", len(urls)),
		slog.Int("findings", len(rep.Findings)))
	return nil
}

// Releases compares each registered release page's newest version
// against the recorded baseline and reports drift in either direction.
func (a *App) Releases(ctx context.Context, rep *report.Report) error {
	releases, err := registry.LoadReleases(a.cfg.Registry.Releases)
	if err != nil {
		return err
	}
	if len(releases.Checks) == 0 {
		a.logger.Info("No release checks registered")
		return nil
	}

	rcfg := release.DefaultConfig()
	rcfg.Timeout = a.cfg.Releases.Timeout
	rcfg.MaxAttempts = a.cfg.Releases.MaxAttempts
	rcfg.RetryDelay = a.cfg.Releases.RetryDelay

	detector := release.NewDetector(rcfg, a.logger)
	rep.Add(detector.Run(ctx, releases.Checks)...)
	return nil
}

// Extract writes every classified example into a standalone snippet
// file, syntax checking the languages with a registered grammar.
func (a *App) Extract(ctx context.Context, skills []string, rep *report.Report) error {
	extractor := extract.New(extract.Config{
		OutputDir:   a.cfg.Extract.OutputDir,
		SyntaxCheck: a.cfg.Extract.SyntaxCheckEnabled(),
	}, a.logger)

	for _, skill := range skills {
		result, err := a.loadSkill(skill, rep)
		if err != nil {
			return err
		}
		snippets, findings, err := extractor.Run(ctx, skill, result.Rules)
		if err != nil {
			return err
		}
		rep.Add(findings...)
		a.logger.Info("Extracted snippets",
			slog.String("skill", skill),
			slog.Int("count", len(snippets)))
	}
	return nil
}

// Watch rebuilds and re-checks on every debounced change under the
// skills directory and the registries. It runs until ctx is cancelled.
func (a *App) Watch(ctx context.Context) error {
	roots := []string{a.cfg.Skills.Dir}
	if dir := filepath.Dir(a.cfg.Registry.Sections); dir != "." {
		roots = append(roots, dir)
	}
	roots = dedupe(roots)

	w, err := watch.New(watch.DefaultConfig(), roots, a.logger)
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Start(ctx); err != nil {
		return err
	}

	// Initial pass before the first change arrives.
	a.rebuild(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events():
			if !ok {
				return nil
			}
			a.logger.Info("Change detected, rebuilding",
				slog.Int("files", len(event.Paths)))
			a.rebuild(ctx)
		}
	}
}

// rebuild runs the offline pipeline once and prints the report. Watch
// mode keeps going regardless of findings.
func (a *App) rebuild(ctx context.Context) {
	rep := report.New()

	skills, err := a.resolveSkills(nil)
	if err != nil {
		a.logger.Error("Failed to list skills", slog.String("error", err.Error()))
		return
	}
	if err := a.Build(ctx, skills, rep); err != nil {
		a.logger.Error("Build failed", slog.String("error", err.Error()))
		return
	}
	if err := a.Check(ctx, skills, rep); err != nil {
		a.logger.Error("Check failed", slog.String("error", err.Error()))
		return
	}

	rep.Write(os.Stderr)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

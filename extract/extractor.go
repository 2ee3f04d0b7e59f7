// Package extract pulls the classified code examples out of rule
// documents into standalone snippet files, one file per example, so
// they can be linted, grepped, and diffed outside their markdown
// context. Snippets in a language with a registered grammar also get a
// syntax sanity check.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/praxisdev/praxis/report"
	"github.com/praxisdev/praxis/rule"
)

// Config controls snippet extraction.
type Config struct {
	// OutputDir is the root directory snippet files are written under.
	OutputDir string

	// SyntaxCheck enables the tree-sitter parse check for languages
	// with a registered grammar.
	SyntaxCheck bool
}

// Snippet describes one extracted example file.
type Snippet struct {
	// RulePath is the source document the example came from.
	RulePath string

	// Label is the example's original label text.
	Label string

	// Class is the label's good/bad classification.
	Class rule.Class

	// Language is the fence info string.
	Language string

	// Path is where the snippet file was written.
	Path string
}

// Extractor writes example snippets for one skill at a time.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Extractor. A nil logger falls back to slog.Default.
func New(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, logger: logger}
}

// Run extracts every code-bearing example of the given rules into
// <output>/<skill>/. Syntax problems are reported as findings, not
// errors; an error means extraction itself could not proceed.
func (e *Extractor) Run(ctx context.Context, skill string, rules []*rule.Rule) ([]Snippet, []report.Finding, error) {
	dir := filepath.Join(e.cfg.OutputDir, skill)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create snippet dir: %w", err)
	}

	var snippets []Snippet
	var findings []report.Finding

	for _, r := range rules {
		for i, ex := range r.ClassifiedExamples() {
			class := rule.Classify(ex.Label)
			name := fmt.Sprintf("%s-%02d-%s%s", r.ID(), i+1, class, extensionFor(ex.Language))
			path := filepath.Join(dir, name)

			if err := os.WriteFile(path, []byte(ex.Code), 0o644); err != nil {
				return nil, nil, fmt.Errorf("write snippet %s: %w", name, err)
			}

			snippets = append(snippets, Snippet{
				RulePath: r.Path,
				Label:    ex.Label,
				Class:    class,
				Language: ex.Language,
				Path:     path,
			})

			if !e.cfg.SyntaxCheck || !checkable(ex.Language) {
				continue
			}
			if err := checkSyntax(ctx, ex.Language, ex.Code); err != nil {
				findings = append(findings, report.Finding{
					Kind:    report.KindContent,
					Check:   "example-syntax",
					File:    r.Path,
					Message: fmt.Sprintf("example %q: %v", ex.Label, err),
				})
			}
		}
	}

	e.logger.Debug("Extracted snippets",
		slog.String("skill", skill),
		slog.Int("snippets", len(snippets)),
		slog.Int("findings", len(findings)))

	return snippets, findings, nil
}

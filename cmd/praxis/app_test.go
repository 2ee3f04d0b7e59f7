package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/praxisdev/praxis/config"
	"github.com/praxisdev/praxis/report"
)

const validRuleDoc = `---
impact: HIGH
impactDescription: Loses failure context in production logs
tags: [errors, logging]
---
# Wrap Errors With Context

Returning a bare error discards the call site that produced it. Wrap
with the operation name so failures can be traced.

**Incorrect:**

` + "```go" + `
if err != nil {
	return err
}
` + "```" + `

**Correct:**

` + "```go" + `
if err != nil {
	return fmt.Errorf("load config: %w", err)
}
` + "```" + `

Reference: https://go.dev/blog/go1.13-errors
`

const sectionsYAML = `
skills:
  go:
    title: "Go Development Rules"
    sections:
      fundamental:
        number: 1
        title: "Fundamental Practices"
        impact: "CRITICAL"
`

const checksYAML = `
version_claims:
  enabled: false
`

// newTestApp lays out a workspace with one skill, one valid rule, and
// minimal registries, and returns an App rooted there.
func newTestApp(t *testing.T) (*App, string) {
	t.Helper()
	dir := t.TempDir()

	rulesDir := filepath.Join(dir, "skills", "go", "rules")
	if err := os.MkdirAll(rulesDir, 0o755); err != nil {
		t.Fatalf("failed to create rules dir: %v", err)
	}
	registryDir := filepath.Join(dir, "registry")
	if err := os.MkdirAll(registryDir, 0o755); err != nil {
		t.Fatalf("failed to create registry dir: %v", err)
	}

	files := map[string]string{
		filepath.Join(rulesDir, "fundamental-error-wrapping.md"): validRuleDoc,
		filepath.Join(registryDir, "sections.yaml"):              sectionsYAML,
		filepath.Join(registryDir, "checks.yaml"):                checksYAML,
		filepath.Join(registryDir, "releases.yaml"):              "checks: []\n",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.Skills.Dir = filepath.Join(dir, "skills")
	cfg.Skills.OutputDir = filepath.Join(dir, "build")
	cfg.Registry.Sections = filepath.Join(registryDir, "sections.yaml")
	cfg.Registry.Checks = filepath.Join(registryDir, "checks.yaml")
	cfg.Registry.Releases = filepath.Join(registryDir, "releases.yaml")
	cfg.Extract.OutputDir = filepath.Join(dir, "build", "examples")

	return NewApp(cfg, nil), dir
}

func TestAppBuildValidSkill(t *testing.T) {
	app, dir := newTestApp(t)

	rep := report.New()
	if err := app.Build(context.Background(), []string{"go"}, rep); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if rep.Failed() {
		t.Fatalf("expected clean build, got findings: %v", rep.Findings)
	}

	out, err := os.ReadFile(filepath.Join(dir, "build", "go.md"))
	if err != nil {
		t.Fatalf("expected assembled document: %v", err)
	}
	doc := string(out)
	if !strings.Contains(doc, "# Go Development Rules") {
		t.Error("assembled document missing skill title")
	}
	if !strings.Contains(doc, "## 1. Fundamental Practices") {
		t.Error("assembled document missing section heading")
	}
	if !strings.Contains(doc, "Wrap Errors With Context") {
		t.Error("assembled document missing rule title")
	}
}

func TestAppCheckValidSkill(t *testing.T) {
	app, _ := newTestApp(t)

	rep := report.New()
	if err := app.Check(context.Background(), []string{"go"}, rep); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if rep.Failed() {
		t.Errorf("expected clean check, got findings: %v", rep.Findings)
	}
}

func TestAppCheckInvariantSpansSkills(t *testing.T) {
	app, dir := newTestApp(t)

	// Second skill with its own valid rule.
	rustDir := filepath.Join(dir, "skills", "rust", "rules")
	if err := os.MkdirAll(rustDir, 0o755); err != nil {
		t.Fatalf("failed to create rules dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(rustDir, "fundamental-ownership.md"), []byte(validRuleDoc), 0o644); err != nil {
		t.Fatalf("failed to write rule: %v", err)
	}

	// Invariant pinned to a file that only the first skill provides.
	checks := checksYAML + `
invariants:
  - file: fundamental-error-wrapping.md
    phrases:
      - "Wrap Errors With Context"
`
	if err := os.WriteFile(app.cfg.Registry.Checks, []byte(checks), 0o644); err != nil {
		t.Fatalf("failed to write checks registry: %v", err)
	}

	rep := report.New()
	if err := app.Check(context.Background(), []string{"go", "rust"}, rep); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if rep.Failed() {
		t.Errorf("invariant satisfied by one skill should not fail the others: %v", rep.Findings)
	}
}

func TestAppBuildReportsBrokenRule(t *testing.T) {
	app, dir := newTestApp(t)

	// No metadata header, no examples.
	broken := "# Orphan Rule\n\nProse only.\n"
	path := filepath.Join(dir, "skills", "go", "rules", "fundamental-orphan.md")
	if err := os.WriteFile(path, []byte(broken), 0o644); err != nil {
		t.Fatalf("failed to write broken rule: %v", err)
	}

	rep := report.New()
	if err := app.Build(context.Background(), []string{"go"}, rep); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !rep.Failed() {
		t.Fatal("expected findings for broken rule")
	}
	counts := rep.CountByKind()
	if counts[report.KindParse] != 1 {
		t.Errorf("expected 1 parse finding, got %d", counts[report.KindParse])
	}

	// The valid rule still assembles.
	if _, err := os.Stat(filepath.Join(dir, "build", "go.md")); err != nil {
		t.Errorf("expected assembled document despite broken sibling: %v", err)
	}
}

func TestAppResolveSkills(t *testing.T) {
	app, _ := newTestApp(t)

	skills, err := app.resolveSkills(nil)
	if err != nil {
		t.Fatalf("resolveSkills() error = %v", err)
	}
	if len(skills) != 1 || skills[0] != "go" {
		t.Errorf("unexpected skills %v", skills)
	}

	if _, err := app.resolveSkills([]string{"rust"}); err == nil {
		t.Error("expected error for unknown skill")
	}
}

func TestAppExtractWritesSnippets(t *testing.T) {
	app, dir := newTestApp(t)

	rep := report.New()
	if err := app.Extract(context.Background(), []string{"go"}, rep); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if rep.Failed() {
		t.Errorf("expected clean extract, got findings: %v", rep.Findings)
	}

	snippet := filepath.Join(dir, "build", "examples", "go", "fundamental-error-wrapping-01-bad.go")
	if _, err := os.Stat(snippet); err != nil {
		t.Errorf("expected snippet file: %v", err)
	}
}

func TestRootCmdWiring(t *testing.T) {
	cmd := rootCmd()

	want := []string{"build", "check", "links", "releases", "extract", "watch", "init", "version"}
	have := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		have[strings.Fields(sub.Use)[0]] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing subcommand %s", name)
		}
	}
}

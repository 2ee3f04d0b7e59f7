package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/praxisdev/praxis/rule"
)

func testRule(path string, examples ...rule.Example) *rule.Rule {
	return &rule.Rule{
		Path:     path,
		Title:    "Test Rule",
		Examples: examples,
	}
}

func TestRunWritesSnippets(t *testing.T) {
	dir := t.TempDir()
	e := New(Config{OutputDir: dir}, nil)

	rules := []*rule.Rule{
		testRule("skills/go/rules/error-handling.md",
			rule.Example{Label: "Incorrect", Code: "panic(err)\n", Language: "go"},
			rule.Example{Label: "Correct", Code: "return fmt.Errorf(\"load: %w\", err)\n", Language: "go"},
		),
		testRule("skills/go/rules/retry-backoff.md",
			rule.Example{Label: "Schema", Code: "SELECT 1;\n", Language: "sql"},
		),
	}

	snippets, findings, err := e.Run(context.Background(), "go", rules)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("expected no findings, got %v", findings)
	}
	if len(snippets) != 3 {
		t.Fatalf("expected 3 snippets, got %d", len(snippets))
	}

	wantFiles := []string{
		"error-handling-01-bad.go",
		"error-handling-02-good.go",
		"retry-backoff-01-neutral.txt",
	}
	for _, name := range wantFiles {
		path := filepath.Join(dir, "go", name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected snippet %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "go", "error-handling-01-bad.go"))
	if err != nil {
		t.Fatalf("failed to read snippet: %v", err)
	}
	if string(data) != "panic(err)\n" {
		t.Errorf("snippet body altered: %q", string(data))
	}
}

func TestSyntaxCheckAcceptsFragments(t *testing.T) {
	e := New(Config{OutputDir: t.TempDir(), SyntaxCheck: true}, nil)

	rules := []*rule.Rule{
		testRule("skills/go/rules/error-handling.md",
			rule.Example{
				Label:    "Correct",
				Code:     "if err != nil {\n\treturn err\n}\n",
				Language: "go",
			},
		),
	}

	_, findings, err := e.Run(context.Background(), "go", rules)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("fragment flagged as syntax error: %v", findings)
	}
}

func TestSyntaxCheckFlagsBrokenCode(t *testing.T) {
	e := New(Config{OutputDir: t.TempDir(), SyntaxCheck: true}, nil)

	rules := []*rule.Rule{
		testRule("skills/go/rules/error-handling.md",
			rule.Example{
				Label:    "Correct",
				Code:     "func ((({ nope",
				Language: "go",
			},
		),
	}

	_, findings, err := e.Run(context.Background(), "go", rules)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %v", findings)
	}
	f := findings[0]
	if f.Check != "example-syntax" || f.File != "skills/go/rules/error-handling.md" {
		t.Errorf("unexpected finding %+v", f)
	}
	if !strings.Contains(f.Message, "Correct") {
		t.Errorf("finding should name the example label: %s", f.Message)
	}
}

func TestSyntaxCheckSkipsUnknownLanguage(t *testing.T) {
	e := New(Config{OutputDir: t.TempDir(), SyntaxCheck: true}, nil)

	rules := []*rule.Rule{
		testRule("skills/go/rules/retry-backoff.md",
			rule.Example{Label: "Example", Code: ")(*&^ not code", Language: "mermaid"},
		),
	}

	_, findings, err := e.Run(context.Background(), "go", rules)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("unknown language should not be syntax checked: %v", findings)
	}
}

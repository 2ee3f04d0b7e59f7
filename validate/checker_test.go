package validate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/praxisdev/praxis/registry"
	"github.com/praxisdev/praxis/report"
	"github.com/praxisdev/praxis/rule"
)

func loadChecks(t *testing.T, yaml string) *registry.ChecksFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checks.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	checks, err := registry.LoadChecks(path)
	if err != nil {
		t.Fatalf("LoadChecks: %v", err)
	}
	return checks
}

const checkerYAML = `
version_claims:
  enabled: true
  content_paths:
    - "skills/**/rules/*.md"
  claim_pattern: 'Product v\d+\.\d+'
  official_pattern: 'https://docs\.example\.com'
  message: "version claim without official reference"
path_rules:
  - path: "skills/go/**"
    requires:
      - pattern: '(?m)^# '
        message: "rule needs a title heading"
    prohibits:
      - pattern: 'TODO'
        message: "unfinished rule content"
`

func contentRule(path, raw string) *rule.Rule {
	return &rule.Rule{Path: path, Raw: raw}
}

func TestVersionClaimGuard(t *testing.T) {
	checker := NewChecker(loadChecks(t, checkerYAML))

	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"claim without reference", "# T\nRequires Product v8.2 or later.\n", 1},
		{"claim with reference", "# T\nProduct v8.2, see https://docs.example.com/x\n", 0},
		{"no claim", "# T\nNothing versioned here.\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := contentRule("skills/go/rules/fundamental-x.md", tt.raw)
			got := checker.checkVersionClaim(r)
			if len(got) != tt.want {
				t.Errorf("findings = %d, want %d: %v", len(got), tt.want, got)
			}
		})
	}
}

func TestVersionClaimExactlyOneRegardlessOfPathRules(t *testing.T) {
	checker := NewChecker(loadChecks(t, checkerYAML))

	// The file violates the claim guard and both path rules; the claim
	// guard must still contribute exactly one finding.
	r := contentRule("skills/go/rules/fundamental-x.md", "Product v8.2\nTODO finish\n")
	findings := checker.Run([]*rule.Rule{r})

	claims := 0
	for _, f := range findings {
		if f.Check == CheckVersionClaim {
			claims++
		}
	}
	if claims != 1 {
		t.Errorf("version-claim findings = %d, want exactly 1 (got %v)", claims, findings)
	}
	if len(findings) != 3 {
		t.Errorf("total findings = %d, want 3 (claim + missing title + TODO)", len(findings))
	}
}

func TestVersionClaimScopedToContentPaths(t *testing.T) {
	checker := NewChecker(loadChecks(t, checkerYAML))
	r := contentRule("scripts/install.md", "Product v8.2 with no reference")
	if got := checker.checkVersionClaim(r); len(got) != 0 {
		t.Errorf("claim guard must only govern content paths, got %v", got)
	}
}

func TestVersionClaimDisabled(t *testing.T) {
	disabled := loadChecks(t, `
version_claims:
  enabled: false
`)
	checker := NewChecker(disabled)
	r := contentRule("skills/go/rules/fundamental-x.md", "Product v8.2")
	if got := checker.Run([]*rule.Rule{r}); len(got) != 0 {
		t.Errorf("disabled guard must emit nothing, got %v", got)
	}
}

func TestPathRulesContinuePastFailures(t *testing.T) {
	checker := NewChecker(loadChecks(t, checkerYAML))
	rules := []*rule.Rule{
		contentRule("skills/go/rules/fundamental-a.md", "TODO one\n"),
		contentRule("skills/go/rules/fundamental-b.md", "TODO two\n"),
	}
	findings := checker.Run(rules)

	files := make(map[string]bool)
	for _, f := range findings {
		if f.Kind != report.KindContent {
			t.Errorf("unexpected kind %q", f.Kind)
		}
		files[f.File] = true
	}
	if len(files) != 2 {
		t.Errorf("engine must report every failing file, covered %d", len(files))
	}
}

func TestInvalidRegistryPatternIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checks.yaml")
	bad := `
path_rules:
  - path: "skills/**"
    requires:
      - pattern: "(unclosed"
`
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := registry.LoadChecks(path); err == nil {
		t.Fatal("invalid registry regex must abort the load")
	}
}

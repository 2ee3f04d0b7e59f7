package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

const sectionsYAML = `
skills:
  go:
    title: "Go Development Rules"
    sections:
      fundamental:
        number: 1
        title: "Fundamental Practices"
        impact: "CRITICAL"
      concurrency:
        number: 2
        title: "Concurrency"
    split:
      category: concurrency
      subsections:
        1:
          number: 3
          title: "Concurrency Basics"
        2:
          number: 4
          title: "Advanced Concurrency"
`

func TestLoadSections(t *testing.T) {
	path := writeRegistry(t, "sections.yaml", sectionsYAML)

	file, err := LoadSections(path)
	require.NoError(t, err)

	goSkill, ok := file.Skills["go"]
	require.True(t, ok, "expected go skill")
	assert.Equal(t, "Go Development Rules", goSkill.Title)

	sec := goSkill.Sections["fundamental"]
	assert.Equal(t, 1, sec.Number)
	assert.Equal(t, "CRITICAL", sec.Impact)

	require.NotNil(t, goSkill.Split)
	assert.Equal(t, "concurrency", goSkill.Split.Category)
	assert.Equal(t, 4, goSkill.Split.Subsections[2].Number)
}

func TestLoadSectionsRejectsEmptySkill(t *testing.T) {
	path := writeRegistry(t, "sections.yaml", "skills:\n  go:\n    title: Go\n    sections: {}\n")

	_, err := LoadSections(path)
	if err == nil {
		t.Fatal("expected error for skill with no sections")
	}
	var regErr *Error
	if !errors.As(err, &regErr) {
		t.Errorf("expected *Error, got %T", err)
	}
}

func TestLoadSectionsRejectsDanglingSplit(t *testing.T) {
	content := `
skills:
  go:
    sections:
      fundamental:
        number: 1
        title: Fundamentals
    split:
      category: concurrency
      subsections:
        1: {number: 2, title: Basics}
        2: {number: 3, title: Advanced}
`
	path := writeRegistry(t, "sections.yaml", content)

	if _, err := LoadSections(path); err == nil {
		t.Fatal("expected error for split referencing unknown category")
	}
}

func TestLoadSectionsMissingFile(t *testing.T) {
	_, err := LoadSections(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing registry file")
	}
}

func TestLoadReleases(t *testing.T) {
	content := `
checks:
  - id: product-stable
    url: "https://example.com/releases"
    version_pattern: 'Product ([0-9]+\.[0-9]+\.[0-9]+)'
    expected_latest: "8.2.5"
`
	path := writeRegistry(t, "releases.yaml", content)

	file, err := LoadReleases(path)
	require.NoError(t, err)
	require.Len(t, file.Checks, 1)

	check := &file.Checks[0]
	got := check.ExtractVersions("Product 8.2.3 then Product 8.2.5 shipped")
	assert.Equal(t, []string{"8.2.3", "8.2.5"}, got)
}

func TestLoadReleasesWholeMatchWithoutGroup(t *testing.T) {
	content := `
checks:
  - id: raw
    url: "https://example.com/releases"
    version_pattern: '[0-9]+\.[0-9]+\.[0-9]+'
    expected_latest: "1.0.0"
`
	path := writeRegistry(t, "releases.yaml", content)

	file, err := LoadReleases(path)
	if err != nil {
		t.Fatalf("LoadReleases() error = %v", err)
	}
	got := file.Checks[0].ExtractVersions("versions 1.2.3 and 2.0.0")
	if len(got) != 2 || got[0] != "1.2.3" {
		t.Errorf("unexpected versions %v", got)
	}
}

func TestLoadReleasesInvalidPattern(t *testing.T) {
	content := `
checks:
  - id: broken
    url: "https://example.com/releases"
    version_pattern: '(['
    expected_latest: "1.0.0"
`
	path := writeRegistry(t, "releases.yaml", content)

	if _, err := LoadReleases(path); err == nil {
		t.Fatal("expected error for invalid version pattern")
	}
}

func TestLoadReleasesRequiresIDAndURL(t *testing.T) {
	content := "checks:\n  - version_pattern: 'x'\n    expected_latest: '1.0.0'\n"
	path := writeRegistry(t, "releases.yaml", content)

	if _, err := LoadReleases(path); err == nil {
		t.Fatal("expected error for check without id and url")
	}
}

func TestVersionClaimsScoping(t *testing.T) {
	v := VersionClaims{
		Enabled:      true,
		ContentPaths: []string{"skills/go/**"},
	}

	if !v.AppliesTo("skills/go/rules/error-handling.md") {
		t.Error("expected go rules to be in scope")
	}
	if v.AppliesTo("skills/python/rules/typing.md") {
		t.Error("expected python rules to be out of scope")
	}
}

func TestVersionClaimsScopingAbsolutePaths(t *testing.T) {
	// Loader-anchored configs hand the pipeline absolute rule paths;
	// relative globs still govern them.
	v := VersionClaims{
		Enabled:      true,
		ContentPaths: []string{"skills/go/**"},
	}

	if !v.AppliesTo("/home/dev/kb/skills/go/rules/error-handling.md") {
		t.Error("expected anchored go rule path to be in scope")
	}
	if v.AppliesTo("/home/dev/kb/skills/python/rules/typing.md") {
		t.Error("expected anchored python rule path to be out of scope")
	}
}

func TestPathRuleMatchesAbsolutePaths(t *testing.T) {
	pr := PathRule{Path: "skills/**/rules/*.md"}

	if !pr.MatchesPath("skills/go/rules/retry.md") {
		t.Error("expected relative rule path to match")
	}
	if !pr.MatchesPath("/home/dev/kb/skills/go/rules/retry.md") {
		t.Error("expected anchored rule path to match")
	}
	if pr.MatchesPath("/home/dev/kb/docs/retry.md") {
		t.Error("expected non-rule path not to match")
	}
}

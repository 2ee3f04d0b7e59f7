// Package registry loads the declarative registries that drive the
// pipeline: section maps for the assembler, version-claim and semantic
// invariant checks for the validators, and release watch entries.
//
// Registries are loaded fresh at every run and carry no state between
// invocations. Adding a new check is a registry edit, not a code change.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/praxisdev/praxis/rule"
)

// Error describes a malformed registry. It is fatal to the whole run:
// with a broken registry the checking contract itself is broken.
type Error struct {
	File   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registry %s: %s: %v", e.File, e.Detail, e.Err)
	}
	return fmt.Sprintf("registry %s: %s", e.File, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// SectionEntry maps one category prefix to a numbered section.
type SectionEntry struct {
	Number int    `yaml:"number"`
	Title  string `yaml:"title"`
	Impact string `yaml:"impact,omitempty"`
}

// SubsectionEntry names one of the sibling sections a split category
// divides into.
type SubsectionEntry struct {
	Number int    `yaml:"number"`
	Title  string `yaml:"title"`
}

// Split declares the one category whose rules divide into sibling
// sections by their subsection value.
type Split struct {
	Category    string                  `yaml:"category"`
	Subsections map[int]SubsectionEntry `yaml:"subsections"`
}

// SkillSections is the category-prefix registry for one skill.
type SkillSections struct {
	Title    string                  `yaml:"title"`
	Sections map[string]SectionEntry `yaml:"sections"`
	Split    *Split                  `yaml:"split,omitempty"`
}

// SectionsFile is the full sections.yaml shape, keyed by skill.
type SectionsFile struct {
	Skills map[string]SkillSections `yaml:"skills"`
}

// LoadSections reads and validates the section registry.
func LoadSections(path string) (*SectionsFile, error) {
	var file SectionsFile
	if err := loadYAML(path, &file); err != nil {
		return nil, err
	}
	for skill, s := range file.Skills {
		if len(s.Sections) == 0 {
			return nil, &Error{File: path, Detail: fmt.Sprintf("skill %s has no sections", skill)}
		}
		if s.Split != nil {
			if _, ok := s.Sections[s.Split.Category]; !ok {
				return nil, &Error{File: path, Detail: fmt.Sprintf("skill %s split references unknown category %q", skill, s.Split.Category)}
			}
			if len(s.Split.Subsections) < 2 {
				return nil, &Error{File: path, Detail: fmt.Sprintf("skill %s split needs at least two subsections", skill)}
			}
		}
	}
	return &file, nil
}

// PatternCheck is the shared pattern/message primitive of the checker
// engines. A requirement fails when the pattern does NOT match the
// target content; a prohibition fails when it DOES.
type PatternCheck struct {
	Pattern string `yaml:"pattern"`
	Message string `yaml:"message"`

	re *regexp.Regexp
}

// Matches reports whether the compiled pattern matches the content.
func (c *PatternCheck) Matches(content string) bool {
	return c.re.MatchString(content)
}

// compile parses the pattern, turning a bad regex into a registry Error.
func (c *PatternCheck) compile(file, context string) error {
	re, err := regexp.Compile(c.Pattern)
	if err != nil {
		return &Error{File: file, Detail: fmt.Sprintf("%s: invalid pattern %q", context, c.Pattern), Err: err}
	}
	c.re = re
	return nil
}

// VersionClaims is the global version-claim guard configuration.
type VersionClaims struct {
	Enabled bool `yaml:"enabled"`
	// ContentPaths are doublestar globs selecting content-bearing files.
	ContentPaths []string `yaml:"content_paths"`
	// ClaimPattern recognizes a product-version shaped claim in a body.
	ClaimPattern string `yaml:"claim_pattern"`
	// OfficialPattern recognizes a link to the authoritative docs domain.
	OfficialPattern string `yaml:"official_pattern"`
	Message         string `yaml:"message"`

	claimRe    *regexp.Regexp
	officialRe *regexp.Regexp
}

// HasClaim reports whether content makes a version claim.
func (v *VersionClaims) HasClaim(content string) bool {
	return v.claimRe != nil && v.claimRe.MatchString(content)
}

// HasOfficialReference reports whether content cites the official docs.
func (v *VersionClaims) HasOfficialReference(content string) bool {
	return v.officialRe != nil && v.officialRe.MatchString(content)
}

// AppliesTo reports whether a path is under the content-bearing globs.
func (v *VersionClaims) AppliesTo(path string) bool {
	for _, glob := range v.ContentPaths {
		if matchPath(glob, path) {
			return true
		}
	}
	return false
}

// PathRule scopes requirement/prohibition lists to files matching a
// doublestar path pattern.
type PathRule struct {
	Path      string         `yaml:"path"`
	Requires  []PatternCheck `yaml:"requires,omitempty"`
	Prohibits []PatternCheck `yaml:"prohibits,omitempty"`
}

// MatchesPath reports whether the rule governs the given file path.
func (p *PathRule) MatchesPath(path string) bool {
	return matchPath(p.Path, path)
}

// matchPath matches a registry glob against a file path. Globs are
// written project-relative; when the pipeline hands us an absolute
// path a relative glob also matches the path's trailing segments, so
// `skills/**/rules/*.md` governs the same files however the skills
// directory was anchored.
func matchPath(glob, path string) bool {
	path = filepath.ToSlash(path)
	if ok, _ := doublestar.Match(glob, path); ok {
		return true
	}
	if !strings.HasPrefix(glob, "/") && filepath.IsAbs(path) {
		ok, _ := doublestar.Match("**/"+glob, path)
		return ok
	}
	return false
}

// ExampleAssertion requires one example of a class to contain all tokens.
type ExampleAssertion struct {
	Class   rule.Class `yaml:"class"`
	Tokens  []string   `yaml:"tokens"`
	Message string     `yaml:"message"`
}

// Invariant is a semantic invariant pinned to one target file.
type Invariant struct {
	File     string             `yaml:"file"`
	Headings []string           `yaml:"headings,omitempty"`
	Phrases  []string           `yaml:"phrases,omitempty"`
	Examples []ExampleAssertion `yaml:"examples,omitempty"`
}

// ChecksFile is the full checks.yaml shape.
type ChecksFile struct {
	VersionClaims VersionClaims `yaml:"version_claims"`
	PathRules     []PathRule    `yaml:"path_rules,omitempty"`
	Invariants    []Invariant   `yaml:"invariants,omitempty"`
}

// LoadChecks reads checks.yaml and compiles every pattern it declares.
// Any invalid regex or glob aborts the load.
func LoadChecks(path string) (*ChecksFile, error) {
	var file ChecksFile
	if err := loadYAML(path, &file); err != nil {
		return nil, err
	}

	vc := &file.VersionClaims
	if vc.Enabled {
		var err error
		if vc.claimRe, err = regexp.Compile(vc.ClaimPattern); err != nil {
			return nil, &Error{File: path, Detail: fmt.Sprintf("version_claims: invalid claim pattern %q", vc.ClaimPattern), Err: err}
		}
		if vc.officialRe, err = regexp.Compile(vc.OfficialPattern); err != nil {
			return nil, &Error{File: path, Detail: fmt.Sprintf("version_claims: invalid official pattern %q", vc.OfficialPattern), Err: err}
		}
		for _, glob := range vc.ContentPaths {
			if !doublestar.ValidatePattern(glob) {
				return nil, &Error{File: path, Detail: fmt.Sprintf("version_claims: invalid content path glob %q", glob)}
			}
		}
	}

	for i := range file.PathRules {
		pr := &file.PathRules[i]
		if !doublestar.ValidatePattern(pr.Path) {
			return nil, &Error{File: path, Detail: fmt.Sprintf("path_rules[%d]: invalid path glob %q", i, pr.Path)}
		}
		for j := range pr.Requires {
			if err := pr.Requires[j].compile(path, fmt.Sprintf("path_rules[%d].requires[%d]", i, j)); err != nil {
				return nil, err
			}
		}
		for j := range pr.Prohibits {
			if err := pr.Prohibits[j].compile(path, fmt.Sprintf("path_rules[%d].prohibits[%d]", i, j)); err != nil {
				return nil, err
			}
		}
	}

	for i := range file.Invariants {
		inv := &file.Invariants[i]
		if inv.File == "" {
			return nil, &Error{File: path, Detail: fmt.Sprintf("invariants[%d]: missing target file", i)}
		}
		for j, a := range inv.Examples {
			switch a.Class {
			case rule.ClassGood, rule.ClassBad, rule.ClassAny:
			default:
				return nil, &Error{File: path, Detail: fmt.Sprintf("invariants[%d].examples[%d]: unknown class %q", i, j, a.Class)}
			}
			if len(a.Tokens) == 0 {
				return nil, &Error{File: path, Detail: fmt.Sprintf("invariants[%d].examples[%d]: empty token list", i, j)}
			}
		}
	}

	return &file, nil
}

// ReleaseCheck is one release-watch registry entry.
type ReleaseCheck struct {
	ID string `yaml:"id"`
	// URL is the authoritative release page to fetch.
	URL string `yaml:"url"`
	// VersionPattern extracts candidate version strings; the first
	// capture group is used when present, else the whole match.
	VersionPattern string `yaml:"version_pattern"`
	// ExpectedLatest is the knowledge base's assumed baseline.
	ExpectedLatest string `yaml:"expected_latest"`

	re *regexp.Regexp
}

// ExtractVersions returns every candidate version string in content.
func (c *ReleaseCheck) ExtractVersions(content string) []string {
	var out []string
	for _, m := range c.re.FindAllStringSubmatch(content, -1) {
		if len(m) > 1 && m[1] != "" {
			out = append(out, m[1])
		} else {
			out = append(out, m[0])
		}
	}
	return out
}

// ReleasesFile is the full releases.yaml shape.
type ReleasesFile struct {
	Checks []ReleaseCheck `yaml:"checks"`
}

// LoadReleases reads releases.yaml and compiles the version patterns.
func LoadReleases(path string) (*ReleasesFile, error) {
	var file ReleasesFile
	if err := loadYAML(path, &file); err != nil {
		return nil, err
	}
	for i := range file.Checks {
		c := &file.Checks[i]
		if c.ID == "" || c.URL == "" {
			return nil, &Error{File: path, Detail: fmt.Sprintf("checks[%d]: id and url are required", i)}
		}
		re, err := regexp.Compile(c.VersionPattern)
		if err != nil {
			return nil, &Error{File: path, Detail: fmt.Sprintf("checks[%d]: invalid version pattern %q", i, c.VersionPattern), Err: err}
		}
		c.re = re
	}
	return &file, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{File: path, Detail: "read registry", Err: err}
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return &Error{File: path, Detail: "parse registry", Err: err}
	}
	return nil
}

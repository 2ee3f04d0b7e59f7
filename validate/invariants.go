package validate

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/praxisdev/praxis/registry"
	"github.com/praxisdev/praxis/report"
	"github.com/praxisdev/praxis/rule"
)

// Invariant check names.
const (
	CheckHeading          = "required-heading"
	CheckPhrase           = "required-phrase"
	CheckExampleAssertion = "example-assertion"
	CheckTarget           = "invariant-target"
)

// Invariants verifies the semantic invariants pinned to explicitly named
// target files: required second-level headings, required literal
// phrases, and example assertions evaluated with the shared example
// classification.
type Invariants struct {
	checks *registry.ChecksFile
}

// NewInvariants creates the invariant checker over a loaded registry.
func NewInvariants(checks *registry.ChecksFile) *Invariants {
	return &Invariants{checks: checks}
}

// Run evaluates every invariant against the parsed rules. A target file
// that was never parsed is itself a finding; engines continue past every
// failure.
func (v *Invariants) Run(rules []*rule.Rule) []report.Finding {
	byPath := make(map[string]*rule.Rule, len(rules))
	for _, r := range rules {
		byPath[r.Path] = r
		// Also index by base name so registries may name just the file.
		byPath[filepath.Base(r.Path)] = r
	}

	var findings []report.Finding
	for i := range v.checks.Invariants {
		inv := &v.checks.Invariants[i]
		target, ok := byPath[inv.File]
		if !ok {
			findings = append(findings, report.Finding{
				Kind:    report.KindContent,
				Check:   CheckTarget,
				File:    inv.File,
				Message: "invariant target file was not parsed",
			})
			continue
		}
		findings = append(findings, v.checkOne(inv, target)...)
	}
	return findings
}

func (v *Invariants) checkOne(inv *registry.Invariant, r *rule.Rule) []report.Finding {
	var findings []report.Finding

	add := func(check, msg string) {
		findings = append(findings, report.Finding{
			Kind:    report.KindContent,
			Check:   check,
			File:    r.Path,
			Message: msg,
		})
	}

	for _, heading := range inv.Headings {
		if !hasHeading(r.Raw, heading) {
			add(CheckHeading, fmt.Sprintf("missing required heading %q", heading))
		}
	}

	for _, phrase := range inv.Phrases {
		if !strings.Contains(r.Raw, phrase) {
			add(CheckPhrase, fmt.Sprintf("missing required phrase %q", phrase))
		}
	}

	for _, a := range inv.Examples {
		if msg := checkExampleAssertion(r, a); msg != "" {
			add(CheckExampleAssertion, msg)
		}
	}

	return findings
}

// hasHeading reports whether the content contains the exact second-level
// heading string on its own line.
func hasHeading(content, heading string) bool {
	want := "## " + heading
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimRight(line, " \t\r") == want {
			return true
		}
	}
	return false
}

// checkExampleAssertion looks for at least one example of the asserted
// class whose code contains every required token. It returns an empty
// string on success, else a descriptive message naming what is missing.
func checkExampleAssertion(r *rule.Rule, a registry.ExampleAssertion) string {
	candidates := 0
	var bestMissing []string

	for _, ex := range r.ClassifiedExamples() {
		if !rule.MatchesClass(ex.Label, a.Class) {
			continue
		}
		candidates++

		var missing []string
		for _, tok := range a.Tokens {
			if !strings.Contains(ex.Code, tok) {
				missing = append(missing, tok)
			}
		}
		if len(missing) == 0 {
			return ""
		}
		if bestMissing == nil || len(missing) < len(bestMissing) {
			bestMissing = missing
		}
	}

	prefix := a.Message
	if prefix == "" {
		prefix = fmt.Sprintf("no %s example satisfies the assertion", a.Class)
	}
	if candidates == 0 {
		return fmt.Sprintf("%s: no example of class %q with code", prefix, a.Class)
	}
	return fmt.Sprintf("%s: missing tokens %s", prefix, strings.Join(bestMissing, ", "))
}

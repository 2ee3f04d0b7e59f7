// Package validate enforces rule well-formedness: intrinsic structural
// checks plus the two registry-driven checker engines (version-claim
// guard and semantic invariants).
package validate

import (
	"fmt"

	"github.com/praxisdev/praxis/report"
	"github.com/praxisdev/praxis/rule"
)

// Structural check names, used as the Check field of findings.
const (
	CheckTitle      = "title"
	CheckExplain    = "explanation"
	CheckImpact     = "impact"
	CheckExamples   = "examples"
	CheckClassified = "classified-example"
)

// Structural validates the intrinsic shape of one parsed rule. Checks
// are independent and all-reported; one rule may yield several findings.
func Structural(r *rule.Rule) []report.Finding {
	var findings []report.Finding

	add := func(check, msg string) {
		findings = append(findings, report.Finding{
			Kind:    report.KindStructural,
			Check:   check,
			File:    r.Path,
			Message: msg,
		})
	}

	if r.Title == "" {
		add(CheckTitle, "rule has no title heading")
	}
	if r.Explanation == "" {
		add(CheckExplain, "rule has no explanation prose")
	}
	if !r.Impact.Valid() {
		add(CheckImpact, fmt.Sprintf("impact %q is not a known level", r.Impact))
	}

	classified := r.ClassifiedExamples()
	if len(classified) == 0 {
		add(CheckExamples, "rule has no example with non-empty code")
		return findings
	}

	// At least one example must classify good or bad; either class alone
	// is accepted.
	found := false
	for _, ex := range classified {
		if rule.IsGood(ex.Label) || rule.IsBad(ex.Label) {
			found = true
			break
		}
	}
	if !found {
		add(CheckClassified, "no example label classifies as good or bad")
	}

	return findings
}

// StructuralAll validates a slice of rules, concatenating findings.
func StructuralAll(rules []*rule.Rule) []report.Finding {
	var findings []report.Finding
	for _, r := range rules {
		findings = append(findings, Structural(r)...)
	}
	return findings
}

package validate

import (
	"fmt"

	"github.com/praxisdev/praxis/registry"
	"github.com/praxisdev/praxis/report"
	"github.com/praxisdev/praxis/rule"
)

// Checker check names.
const (
	CheckVersionClaim = "version-claim"
	CheckPathRequire  = "path-require"
	CheckPathProhibit = "path-prohibit"
)

// Checker applies the registry-driven pattern checks to parsed rules.
// The engine knows nothing about domain specifics; every assertion it
// evaluates comes from the loaded registry.
type Checker struct {
	checks *registry.ChecksFile
}

// NewChecker creates a checker over a loaded registry.
func NewChecker(checks *registry.ChecksFile) *Checker {
	return &Checker{checks: checks}
}

// Run applies the version-claim guard and every path-scoped rule to all
// parsed rules. It never stops at the first failing file; findings for
// the whole corpus are reported together.
func (c *Checker) Run(rules []*rule.Rule) []report.Finding {
	var findings []report.Finding
	for _, r := range rules {
		findings = append(findings, c.checkVersionClaim(r)...)
		findings = append(findings, c.checkPathRules(r)...)
	}
	return findings
}

// checkVersionClaim emits exactly one finding for a content-bearing file
// that makes a version claim without citing the official reference.
func (c *Checker) checkVersionClaim(r *rule.Rule) []report.Finding {
	vc := &c.checks.VersionClaims
	if !vc.Enabled || !vc.AppliesTo(r.Path) {
		return nil
	}
	if !vc.HasClaim(r.Raw) || vc.HasOfficialReference(r.Raw) {
		return nil
	}

	msg := vc.Message
	if msg == "" {
		msg = "version claim without a link to the official documentation"
	}
	return []report.Finding{{
		Kind:    report.KindContent,
		Check:   CheckVersionClaim,
		File:    r.Path,
		Message: msg,
	}}
}

// checkPathRules applies every requirement and prohibition whose path
// pattern matches the rule's source path.
func (c *Checker) checkPathRules(r *rule.Rule) []report.Finding {
	var findings []report.Finding
	for i := range c.checks.PathRules {
		pr := &c.checks.PathRules[i]
		if !pr.MatchesPath(r.Path) {
			continue
		}
		for j := range pr.Requires {
			req := &pr.Requires[j]
			if !req.Matches(r.Raw) {
				findings = append(findings, report.Finding{
					Kind:    report.KindContent,
					Check:   CheckPathRequire,
					File:    r.Path,
					Message: requirementMessage(req.Message, req.Pattern, true),
				})
			}
		}
		for j := range pr.Prohibits {
			pro := &pr.Prohibits[j]
			if pro.Matches(r.Raw) {
				findings = append(findings, report.Finding{
					Kind:    report.KindContent,
					Check:   CheckPathProhibit,
					File:    r.Path,
					Message: requirementMessage(pro.Message, pro.Pattern, false),
				})
			}
		}
	}
	return findings
}

func requirementMessage(msg, pattern string, required bool) string {
	if msg != "" {
		return msg
	}
	if required {
		return fmt.Sprintf("required pattern %q not found", pattern)
	}
	return fmt.Sprintf("prohibited pattern %q found", pattern)
}

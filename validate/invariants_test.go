package validate

import (
	"strings"
	"testing"

	"github.com/praxisdev/praxis/rule"
)

const invariantsYAML = `
invariants:
  - file: skills/go/rules/retry-budget.md
    headings:
      - Examples
    phrases:
      - exponential backoff
    examples:
      - class: good
        tokens: ["time.Sleep", "attempt"]
        message: "good example must show delay growth"
      - class: bad
        tokens: ["for {"]
`

func invariantTarget() *rule.Rule {
	return &rule.Rule{
		Path: "skills/go/rules/retry-budget.md",
		Raw:  "# Retry budgets\n\nUse exponential backoff.\n\n## Examples\n",
		Examples: []rule.Example{
			{Label: "Incorrect (unbounded)", Code: "for {\n\tcall()\n}", Language: "go"},
			{Label: "Correct (budgeted)", Code: "for attempt := 1; attempt <= 3; attempt++ {\n\ttime.Sleep(d)\n}", Language: "go"},
		},
	}
}

func TestInvariantsPass(t *testing.T) {
	inv := NewInvariants(loadChecks(t, invariantsYAML))
	findings := inv.Run([]*rule.Rule{invariantTarget()})
	if len(findings) != 0 {
		t.Errorf("satisfied invariants produced findings: %v", findings)
	}
}

func TestInvariantsMissingHeading(t *testing.T) {
	inv := NewInvariants(loadChecks(t, invariantsYAML))
	target := invariantTarget()
	target.Raw = strings.ReplaceAll(target.Raw, "## Examples", "## Samples")
	findings := inv.Run([]*rule.Rule{target})
	if len(findings) != 1 || findings[0].Check != CheckHeading {
		t.Fatalf("want one %s finding, got %v", CheckHeading, findings)
	}
	if !strings.Contains(findings[0].Message, "Examples") {
		t.Errorf("finding should name the heading: %s", findings[0].Message)
	}
}

func TestInvariantsHeadingMustBeSecondLevel(t *testing.T) {
	inv := NewInvariants(loadChecks(t, invariantsYAML))
	target := invariantTarget()
	target.Raw = strings.ReplaceAll(target.Raw, "## Examples", "### Examples")
	findings := inv.Run([]*rule.Rule{target})
	if len(findings) != 1 {
		t.Errorf("third-level heading must not satisfy a second-level requirement, got %v", findings)
	}
}

func TestInvariantsMissingPhrase(t *testing.T) {
	inv := NewInvariants(loadChecks(t, invariantsYAML))
	target := invariantTarget()
	target.Raw = strings.ReplaceAll(target.Raw, "exponential backoff", "linear delays")
	findings := inv.Run([]*rule.Rule{target})
	if len(findings) != 1 || findings[0].Check != CheckPhrase {
		t.Fatalf("want one %s finding, got %v", CheckPhrase, findings)
	}
}

func TestInvariantsExampleAssertionNamesMissingTokens(t *testing.T) {
	inv := NewInvariants(loadChecks(t, invariantsYAML))
	target := invariantTarget()
	target.Examples[1].Code = "for attempt := 1; attempt <= 3; attempt++ {}"
	findings := inv.Run([]*rule.Rule{target})
	if len(findings) != 1 || findings[0].Check != CheckExampleAssertion {
		t.Fatalf("want one %s finding, got %v", CheckExampleAssertion, findings)
	}
	if !strings.Contains(findings[0].Message, "time.Sleep") {
		t.Errorf("finding must name the missing token, got %s", findings[0].Message)
	}
	if !strings.Contains(findings[0].Message, "delay growth") {
		t.Errorf("finding should carry the registry message, got %s", findings[0].Message)
	}
}

func TestInvariantsNoExampleOfClass(t *testing.T) {
	inv := NewInvariants(loadChecks(t, invariantsYAML))
	target := invariantTarget()
	target.Examples = target.Examples[:1] // drop the good example
	findings := inv.Run([]*rule.Rule{target})
	if len(findings) != 1 {
		t.Fatalf("want one finding, got %v", findings)
	}
	if !strings.Contains(findings[0].Message, `class "good"`) {
		t.Errorf("finding should name the missing class, got %s", findings[0].Message)
	}
}

func TestInvariantsUnknownTarget(t *testing.T) {
	inv := NewInvariants(loadChecks(t, invariantsYAML))
	findings := inv.Run(nil)
	if len(findings) != 1 || findings[0].Check != CheckTarget {
		t.Fatalf("unparsed target must be reported, got %v", findings)
	}
}

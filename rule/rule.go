// Package rule provides the typed model for best-practice rule documents
// and the parser that builds it from markdown source.
package rule

import (
	"path/filepath"
	"sort"
	"strings"
)

// Impact describes how much following a rule matters.
type Impact string

// Impact levels, highest first.
const (
	ImpactCritical   Impact = "CRITICAL"
	ImpactHigh       Impact = "HIGH"
	ImpactMediumHigh Impact = "MEDIUM-HIGH"
	ImpactMedium     Impact = "MEDIUM"
	ImpactLowMedium  Impact = "LOW-MEDIUM"
	ImpactLow        Impact = "LOW"
)

// Impacts lists every valid impact level.
var Impacts = []Impact{
	ImpactCritical,
	ImpactHigh,
	ImpactMediumHigh,
	ImpactMedium,
	ImpactLowMedium,
	ImpactLow,
}

// Valid reports whether the impact is a known level.
func (i Impact) Valid() bool {
	for _, v := range Impacts {
		if i == v {
			return true
		}
	}
	return false
}

// ParseImpact normalizes a raw metadata value into an Impact.
// Returns false if the value does not name a known level.
func ParseImpact(s string) (Impact, bool) {
	norm := Impact(strings.ToUpper(strings.TrimSpace(s)))
	return norm, norm.Valid()
}

// Example is one labeled code block within a rule document.
type Example struct {
	// Label is the free-text label preceding the fence, e.g.
	// "Incorrect (sequential execution)".
	Label string `json:"label"`

	// Description is prose between the label and the fence, if any.
	Description string `json:"description,omitempty"`

	// Code is the fenced block body. Examples with empty code are
	// excluded from classification and extraction.
	Code string `json:"code"`

	// Language is the fence info string, defaulting to "text".
	Language string `json:"language"`

	// AdditionalText is trailing prose up to the next labeled block.
	AdditionalText string `json:"additional_text,omitempty"`
}

// HasCode reports whether the example carries a non-empty code body.
func (e Example) HasCode() bool {
	return strings.TrimSpace(e.Code) != ""
}

// Rule is one atomic guidance item parsed from a single document.
// Identity derives from the source filename and is stable across rebuilds.
type Rule struct {
	// Path is the source file path the rule was parsed from.
	Path string `json:"path"`

	// Title is the first-level heading of the body.
	Title string `json:"title"`

	// Section and Subsection are assigned by the assembler; Subsection
	// may come from metadata for categories with a registered split.
	Section    int `json:"section,omitempty"`
	Subsection int `json:"subsection,omitempty"`

	Impact            Impact `json:"impact"`
	ImpactDescription string `json:"impact_description,omitempty"`

	// Explanation is the freeform prose preceding the first labeled block.
	Explanation string `json:"explanation"`

	// Examples preserves document order.
	Examples []Example `json:"examples"`

	// References holds unique outbound URLs found anywhere in the body,
	// sorted for determinism.
	References []string `json:"references,omitempty"`

	// Tags holds unique metadata tags, sorted.
	Tags []string `json:"tags,omitempty"`

	// Raw is the full document body, kept for registry-driven checks.
	Raw string `json:"-"`
}

// ID returns the rule's stable identity: the source filename without
// its extension.
func (r *Rule) ID() string {
	base := filepath.Base(r.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Category returns the leading token of the source filename, used to
// assign section grouping (e.g. "retry" for retry-backoff.md).
func (r *Rule) Category() string {
	id := r.ID()
	if i := strings.Index(id, "-"); i > 0 {
		return id[:i]
	}
	return id
}

// ClassifiedExamples returns the examples with non-empty code.
func (r *Rule) ClassifiedExamples() []Example {
	var out []Example
	for _, ex := range r.Examples {
		if ex.HasCode() {
			out = append(out, ex)
		}
	}
	return out
}

// sortedSet deduplicates and sorts a string slice.
func sortedSet(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Package compile assembles parsed rules into one compiled reference
// document per skill: rules grouped into numbered sections with dotted
// identifiers, ordered deterministically for diffable output.
package compile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/praxisdev/praxis/registry"
	"github.com/praxisdev/praxis/rule"
)

// Section is one numbered group of rules in the compiled document.
type Section struct {
	Number int
	Title  string
	Impact rule.Impact
	Rules  []*rule.Rule
}

// Document is the assembled output for one skill.
type Document struct {
	Skill    string
	Title    string
	Sections []Section
}

// RuleCount returns the total number of rules across all sections.
func (d *Document) RuleCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Rules)
	}
	return n
}

// Assemble groups the rules of one skill by their category prefix using
// the section registry. A rule whose category has no mapping entry fails
// the whole assembly: the compiled output must account for every rule.
//
// A category with a registered split divides its rules into sibling
// sections by subsection value before ordinal assignment. Ordering is
// stable: section number ascending, then original discovery order.
func Assemble(skill string, rules []*rule.Rule, sections *registry.SkillSections) (*Document, error) {
	bySection := make(map[int]*Section)

	place := func(num int, title string, impact rule.Impact, r *rule.Rule) {
		s, ok := bySection[num]
		if !ok {
			s = &Section{Number: num, Title: title, Impact: impact}
			bySection[num] = s
		}
		r.Section = num
		s.Rules = append(s.Rules, r)
	}

	for _, r := range rules {
		cat := r.Category()
		entry, ok := sections.Sections[cat]
		if !ok {
			return nil, fmt.Errorf("skill %s: rule %s has unmapped category prefix %q", skill, r.ID(), cat)
		}

		if sections.Split != nil && sections.Split.Category == cat {
			sub := r.Subsection
			if sub == 0 {
				sub = 1
			}
			se, ok := sections.Split.Subsections[sub]
			if !ok {
				return nil, fmt.Errorf("skill %s: rule %s has unmapped subsection %d for split category %q", skill, r.ID(), sub, cat)
			}
			place(se.Number, se.Title, rule.Impact(entry.Impact), r)
			continue
		}

		place(entry.Number, entry.Title, rule.Impact(entry.Impact), r)
	}

	doc := &Document{Skill: skill, Title: sections.Title}
	for _, s := range bySection {
		doc.Sections = append(doc.Sections, *s)
	}
	sort.SliceStable(doc.Sections, func(i, j int) bool {
		return doc.Sections[i].Number < doc.Sections[j].Number
	})
	return doc, nil
}

// Render produces the compiled markdown document. Output is a pure
// function of the assembled input and is fully regenerated each run.
func Render(doc *Document) string {
	var b strings.Builder

	title := doc.Title
	if title == "" {
		title = doc.Skill
	}
	fmt.Fprintf(&b, "# %s\n", title)

	for _, s := range doc.Sections {
		fmt.Fprintf(&b, "\n## %d. %s\n", s.Number, s.Title)
		if s.Impact != "" {
			fmt.Fprintf(&b, "\nImpact: %s\n", s.Impact)
		}

		for i, r := range s.Rules {
			ordinal := i + 1
			fmt.Fprintf(&b, "\n### %d.%d %s\n", s.Number, ordinal, r.Title)
			if r.Impact != "" {
				fmt.Fprintf(&b, "\n**Impact: %s**", r.Impact)
				if r.ImpactDescription != "" {
					fmt.Fprintf(&b, " — %s", r.ImpactDescription)
				}
				b.WriteString("\n")
			}
			if r.Explanation != "" {
				fmt.Fprintf(&b, "\n%s\n", r.Explanation)
			}
			for _, ex := range r.Examples {
				fmt.Fprintf(&b, "\n**%s:**\n", ex.Label)
				if ex.Description != "" {
					fmt.Fprintf(&b, "\n%s\n", ex.Description)
				}
				fmt.Fprintf(&b, "\n```%s\n%s\n```\n", ex.Language, ex.Code)
				if ex.AdditionalText != "" {
					fmt.Fprintf(&b, "\n%s\n", ex.AdditionalText)
				}
			}
			if len(r.References) > 0 {
				b.WriteString("\nReferences:\n")
				for _, ref := range r.References {
					fmt.Fprintf(&b, "- %s\n", ref)
				}
			}
		}
	}

	return b.String()
}

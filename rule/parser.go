package rule

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseError describes a malformed rule document. It is fatal to that
// one file only; downstream checks skip the file but the run continues.
type ParseError struct {
	Path      string
	Construct string
	Err       error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Construct, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Construct)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DefaultLanguage is used for fenced blocks with no info string.
const DefaultLanguage = "text"

// Pre-compiled patterns for document scanning.
var (
	// titleRe matches the first-level heading line.
	titleRe = regexp.MustCompile(`(?m)^#\s+(.+?)\s*$`)
	// labelBoldRe matches a bold label line, optional trailing colon
	// inside or outside the asterisks.
	labelBoldRe = regexp.MustCompile(`^\*\*(.+?):?\*\*:?\s*$`)
	// labelHeadingRe matches a third-level heading used as a label.
	labelHeadingRe = regexp.MustCompile(`^###\s+(.+?)\s*$`)
	// fenceRe matches an opening or closing code fence.
	fenceRe = regexp.MustCompile("^```([A-Za-z0-9_+-]*)\\s*$")
	// markdownLinkRe captures markdown hyperlink targets.
	markdownLinkRe = regexp.MustCompile(`\[[^\]]*\]\((https?://[^)\s]+)\)`)
	// bareURLRe captures bare URLs, e.g. on "Reference:" citation lines.
	bareURLRe = regexp.MustCompile(`https?://[^\s)\]>"']+`)
)

// metadata is the typed shape of the leading key-value block.
type metadata struct {
	Title             string `yaml:"title"`
	Impact            string `yaml:"impact"`
	ImpactDescription string `yaml:"impactDescription"`
	Subsection        int    `yaml:"subsection"`
	Tags              tags   `yaml:"tags"`
}

// tags accepts either a YAML sequence or a comma-separated scalar.
type tags []string

func (t *tags) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*t = list
	case yaml.ScalarNode:
		var raw string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		for _, part := range strings.Split(raw, ",") {
			if p := strings.TrimSpace(part); p != "" {
				*t = append(*t, p)
			}
		}
	default:
		return fmt.Errorf("tags must be a list or comma-separated string")
	}
	return nil
}

// Parse converts one rule document into a Rule. The path is recorded for
// identity and diagnostics; content is the raw document text.
//
// A document with zero labeled blocks still parses with empty Examples;
// structural correctness is checked separately so partial documents can
// be inspected.
func Parse(path string, content []byte) (*Rule, error) {
	meta, body, err := splitMetadata(string(content))
	if err != nil {
		return nil, &ParseError{Path: path, Construct: "metadata header", Err: err}
	}

	r := &Rule{
		Path:              path,
		ImpactDescription: strings.TrimSpace(meta.ImpactDescription),
		Subsection:        meta.Subsection,
		Tags:              sortedSet(meta.Tags),
		Raw:               body,
	}

	if meta.Impact != "" {
		impact, ok := ParseImpact(meta.Impact)
		if !ok {
			return nil, &ParseError{
				Path:      path,
				Construct: "impact value",
				Err:       fmt.Errorf("%q is not a known impact level", meta.Impact),
			}
		}
		r.Impact = impact
	}

	// Title: first-level heading wins; metadata title is the fallback.
	if m := titleRe.FindStringSubmatch(body); m != nil {
		r.Title = m[1]
	} else {
		r.Title = strings.TrimSpace(meta.Title)
	}

	if err := scanBody(r, body); err != nil {
		return nil, &ParseError{Path: path, Construct: "labeled example block", Err: err}
	}

	r.References = collectReferences(body)
	return r, nil
}

// splitMetadata separates the leading key-value block from the body.
// The block is delimited by "---" lines, YAML frontmatter style.
func splitMetadata(content string) (*metadata, string, error) {
	trimmed := strings.TrimPrefix(content, "\ufeff")
	if !strings.HasPrefix(trimmed, "---\n") && !strings.HasPrefix(trimmed, "---\r\n") {
		return nil, "", fmt.Errorf("missing metadata header")
	}

	rest := trimmed[strings.Index(trimmed, "\n")+1:]
	closeIdx := strings.Index(rest, "\n---")
	if strings.HasPrefix(rest, "---") {
		closeIdx = 0
	}
	if closeIdx == -1 {
		return nil, "", fmt.Errorf("unterminated metadata header")
	}

	var yamlPart, body string
	if closeIdx == 0 && strings.HasPrefix(rest, "---") {
		yamlPart = ""
		body = rest
	} else {
		yamlPart = rest[:closeIdx]
		body = rest[closeIdx+1:]
	}
	if nl := strings.Index(body, "\n"); nl != -1 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	body = strings.TrimLeft(body, "\r\n")

	var meta metadata
	if err := yaml.Unmarshal([]byte(yamlPart), &meta); err != nil {
		return nil, "", fmt.Errorf("parse metadata: %w", err)
	}
	return &meta, body, nil
}

// scanBody walks the body line by line, extracting the explanation and
// the labeled fenced blocks in document order.
func scanBody(r *Rule, body string) error {
	lines := strings.Split(body, "\n")

	var (
		explanation []string
		pending     *Example // label seen, fence not yet opened
		current     *Example // inside an open fence
		codeLines   []string
		trailing    []string // prose after a closed fence
		sawLabel    bool
		inAnon      bool // inside an unlabeled fence, kept as prose
	)

	flushTrailing := func() {
		if len(r.Examples) == 0 || len(trailing) == 0 {
			trailing = nil
			return
		}
		last := &r.Examples[len(r.Examples)-1]
		last.AdditionalText = strings.TrimSpace(strings.Join(trailing, "\n"))
		trailing = nil
	}

	for _, line := range lines {
		stripped := strings.TrimSpace(line)

		if current != nil {
			if fenceRe.MatchString(stripped) {
				current.Code = strings.Join(codeLines, "\n")
				r.Examples = append(r.Examples, *current)
				current = nil
				codeLines = nil
				continue
			}
			codeLines = append(codeLines, line)
			continue
		}

		if inAnon {
			if fenceRe.MatchString(stripped) {
				inAnon = false
			}
			if !sawLabel {
				explanation = append(explanation, line)
			} else {
				trailing = append(trailing, line)
			}
			continue
		}

		if m := fenceRe.FindStringSubmatch(stripped); m != nil {
			if pending == nil {
				// Unlabeled fence: not an example, kept as prose context.
				inAnon = true
				if !sawLabel {
					explanation = append(explanation, line)
				} else {
					trailing = append(trailing, line)
				}
				continue
			}
			lang := m[1]
			if lang == "" {
				lang = DefaultLanguage
			}
			pending.Language = lang
			current = pending
			pending = nil
			codeLines = nil
			continue
		}

		label := matchLabel(stripped)
		if label != "" {
			flushTrailing()
			sawLabel = true
			if pending != nil {
				return fmt.Errorf("label %q has no code fence", pending.Label)
			}
			pending = &Example{Label: label}
			continue
		}

		switch {
		case pending != nil:
			if stripped != "" {
				if pending.Description != "" {
					pending.Description += "\n"
				}
				pending.Description += stripped
			}
		case !sawLabel:
			// Everything before the first label, minus the title heading,
			// belongs to the explanation.
			if titleRe.MatchString(line) && r.Title != "" && strings.Contains(line, r.Title) {
				continue
			}
			explanation = append(explanation, line)
		default:
			trailing = append(trailing, line)
		}
	}

	if current != nil {
		return fmt.Errorf("unterminated code fence under label %q", current.Label)
	}
	if pending != nil {
		return fmt.Errorf("label %q has no code fence", pending.Label)
	}
	flushTrailing()

	r.Explanation = strings.TrimSpace(strings.Join(explanation, "\n"))
	return nil
}

// matchLabel returns the label text if the line is a bold or heading
// label, else empty. Whitespace and trailing colons never affect the
// downstream classification, which is substring based.
func matchLabel(line string) string {
	if m := labelBoldRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := labelHeadingRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// collectReferences gathers every outbound hyperlink target in the body:
// markdown link destinations plus bare URLs on citation lines.
func collectReferences(body string) []string {
	var refs []string
	for _, m := range markdownLinkRe.FindAllStringSubmatch(body, -1) {
		refs = append(refs, strings.TrimRight(m[1], ".,;"))
	}
	// Bare URLs outside markdown links, e.g. "Reference: https://...".
	stripped := markdownLinkRe.ReplaceAllString(body, "")
	for _, m := range bareURLRe.FindAllString(stripped, -1) {
		refs = append(refs, strings.TrimRight(m, ".,;"))
	}
	return sortedSet(refs)
}

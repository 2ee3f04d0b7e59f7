package release

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

// Pre-compiled regexes; script and style bodies would otherwise leak
// version-shaped strings into the scan.
var (
	scriptRe         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	excessiveLinesRe = regexp.MustCompile(`\n{4,}`)
)

// Converter reduces a fetched release page to scannable markdown text,
// so version patterns match rendered content rather than markup
// attributes.
type Converter struct {
	converter *md.Converter
}

// NewConverter creates the HTML to markdown converter.
func NewConverter() *Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Converter{converter: converter}
}

// Convert transforms HTML content to markdown text plus the page title
// for diagnostics. Non-HTML content passes through unchanged.
func (c *Converter) Convert(body []byte, contentType string) (text, title string) {
	if !strings.Contains(contentType, "html") {
		return string(body), ""
	}

	title = extractTitle(body)

	cleaned := scriptRe.ReplaceAllString(string(body), "")
	cleaned = styleRe.ReplaceAllString(cleaned, "")

	markdown, err := c.converter.ConvertString(cleaned)
	if err != nil {
		// Fall back to the cleaned raw text; scanning still works.
		return cleaned, title
	}
	markdown = excessiveLinesRe.ReplaceAllString(markdown, "\n\n\n")
	return markdown, title
}

// extractTitle pulls the <title> element from an HTML document.
func extractTitle(content []byte) string {
	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			if title == "" {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return title
}

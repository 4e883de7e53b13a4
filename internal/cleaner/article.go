package cleaner

import (
	"bytes"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/yosssi/gohtml"
)

// ArticleCleaner keeps only the main content block of a page, as found by
// go-readability, rendered as plain text. Pages readability cannot score
// (short admin screens, bare forms) fall back to the full body text.
type ArticleCleaner struct {
	parser   readability.Parser
	fallback *TextCleaner
}

// NewArticle creates a new article cleaner.
func NewArticle() *ArticleCleaner {
	parser := readability.NewParser()
	// Admin screens are short; the default threshold of 500 rejects most.
	parser.CharThresholds = 100
	return &ArticleCleaner{
		parser:   parser,
		fallback: NewText(),
	}
}

// Clean extracts the main content as text.
func (c *ArticleCleaner) Clean(html string) (string, error) {
	article, err := c.parser.Parse(strings.NewReader(html), nil)
	if err != nil || article.Node == nil {
		return c.fallback.Clean(html)
	}

	var buf bytes.Buffer
	if err := article.RenderText(&buf); err != nil {
		return c.fallback.Clean(html)
	}
	text := strings.Join(strings.Fields(buf.String()), " ")
	if text == "" {
		return c.fallback.Clean(html)
	}
	return text, nil
}

// Name returns the cleaner type.
func (c *ArticleCleaner) Name() string {
	return "article"
}

// HTMLCleaner pretty-prints the page HTML with one element per line.
type HTMLCleaner struct{}

// NewHTML creates a new HTML formatting cleaner.
func NewHTML() *HTMLCleaner {
	return &HTMLCleaner{}
}

// Clean indents html. Malformed input is formatted as far as it parses.
func (c *HTMLCleaner) Clean(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	return gohtml.Format(html), nil
}

// Name returns the cleaner type.
func (c *HTMLCleaner) Name() string {
	return "html"
}

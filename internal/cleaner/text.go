package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TextCleaner extracts whitespace-normalized body text.
type TextCleaner struct{}

// NewText creates a new text cleaner.
func NewText() *TextCleaner {
	return &TextCleaner{}
}

// Clean strips scripts, styles and markup, returning the visible body text.
func (c *TextCleaner) Clean(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, iframe, svg, template").Remove()

	var parts []string
	doc.Find("body").Each(func(_ int, s *goquery.Selection) {
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n"), nil
}

// Name returns the cleaner type.
func (c *TextCleaner) Name() string {
	return "text"
}

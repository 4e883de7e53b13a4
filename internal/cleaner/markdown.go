package cleaner

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// MarkdownCleaner converts HTML to Markdown using html-to-markdown.
type MarkdownCleaner struct{}

// NewMarkdown creates a new Markdown cleaner.
func NewMarkdown() *MarkdownCleaner {
	return &MarkdownCleaner{}
}

// Clean converts HTML to Markdown.
func (c *MarkdownCleaner) Clean(html string) (string, error) {
	markdown, err := md.ConvertString(html)
	if err != nil {
		return "", err
	}
	return collapseBlankLines(markdown), nil
}

// Name returns the cleaner type.
func (c *MarkdownCleaner) Name() string {
	return "markdown"
}

// collapseBlankLines keeps at most one blank line between content lines.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	result := make([]string, 0, len(lines))
	blank := 0

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
			if blank <= 1 {
				result = append(result, "")
			}
			continue
		}
		blank = 0
		result = append(result, line)
	}

	return strings.TrimSpace(strings.Join(result, "\n"))
}

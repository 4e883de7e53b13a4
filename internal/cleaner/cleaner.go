// Package cleaner turns fetched HTML into the textual content recorded for
// each page.
package cleaner

import "fmt"

// Cleaner transforms HTML content into a cleaner format.
type Cleaner interface {
	// Clean transforms the input HTML into a cleaned format.
	Clean(html string) (string, error)

	// Name returns the cleaner type for logging/debugging.
	Name() string
}

// Format names a cleaner.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatRaw      Format = "raw"
	FormatArticle  Format = "article"
	FormatHTML     Format = "html"
)

// New returns the cleaner for format.
func New(format Format) (Cleaner, error) {
	switch format {
	case FormatMarkdown, "":
		return NewMarkdown(), nil
	case FormatText:
		return NewText(), nil
	case FormatRaw:
		return NewNoop(), nil
	case FormatArticle:
		return NewArticle(), nil
	case FormatHTML:
		return NewHTML(), nil
	default:
		return nil, fmt.Errorf("unknown content format: %s (use markdown, text, article, html or raw)", format)
	}
}

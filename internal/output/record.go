package output

import (
	"net/url"
	"time"

	"github.com/jmylchreest/authcrawl/internal/fetcher"
)

// DefaultExcerptLength is the excerpt bound in runes.
const DefaultExcerptLength = 500

// Record is one output line: a summary of a fetched page.
type Record struct {
	URL            string              `json:"url" yaml:"url"`
	Status         *int                `json:"status" yaml:"status"` // nil when the session could not observe it
	Title          string              `json:"title" yaml:"title"`
	Excerpt        string              `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	Meta           map[string]string   `json:"meta" yaml:"meta"`
	Params         map[string][]string `json:"params" yaml:"params"`
	HasForm        bool                `json:"has_form" yaml:"has_form"`
	ResponseTimeMS float64             `json:"response_time_ms" yaml:"response_time_ms"`
	ResponseSize   int                 `json:"response_size" yaml:"response_size"`
	RedirectedURL  string              `json:"redirected_url,omitempty" yaml:"redirected_url,omitempty"`
	Depth          int                 `json:"depth" yaml:"depth"`
}

// NewRecord builds the record for page, fetched at depth. The excerpt is the
// first excerptLen runes of the cleaned content; excerptLen <= 0 uses
// DefaultExcerptLength.
func NewRecord(page *fetcher.Page, depth, excerptLen int) Record {
	if excerptLen <= 0 {
		excerptLen = DefaultExcerptLength
	}
	rec := Record{
		URL:            page.URL,
		Title:          page.Title,
		Excerpt:        Excerpt(page.Content, excerptLen),
		Meta:           page.Meta,
		Params:         queryParams(page.URL),
		HasForm:        page.HasForm,
		ResponseTimeMS: milliseconds(page.ResponseTime),
		ResponseSize:   page.ResponseSize,
		Depth:          depth,
	}
	if page.Status != 0 {
		status := page.Status
		rec.Status = &status
	}
	if page.FinalURL != "" && page.FinalURL != page.URL {
		rec.RedirectedURL = page.FinalURL
	}
	if rec.Meta == nil {
		rec.Meta = map[string]string{}
	}
	return rec
}

// Excerpt returns the first n runes of s.
func Excerpt(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func queryParams(raw string) map[string][]string {
	params := map[string][]string{}
	u, err := url.Parse(raw)
	if err != nil {
		return params
	}
	for k, v := range u.Query() {
		params[k] = v
	}
	return params
}

func milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

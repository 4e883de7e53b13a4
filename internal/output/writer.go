// Package output writes crawl records, one per fetched page.
package output

import (
	"fmt"
	"io"
)

// Format represents output format types.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// Writer serializes records to an underlying stream. Every Write is flushed
// before it returns.
type Writer interface {
	// Write outputs a single record.
	Write(rec Record) error

	// Flush ensures all data is written.
	Flush() error
}

// ParseFormat validates a format name. An empty name means JSONL.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSONL, "":
		return FormatJSONL, nil
	case FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s (use jsonl or yaml)", s)
	}
}

// NewWriter creates a writer for the specified format. An empty format means
// JSONL.
func NewWriter(w io.Writer, format Format) (Writer, error) {
	f, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	if f == FormatYAML {
		return NewYAMLWriter(w), nil
	}
	return NewJSONLWriter(w), nil
}

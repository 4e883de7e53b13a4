// Package export converts a crawl output file into CSV for downstream
// tokenization and clustering jobs.
package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jmylchreest/authcrawl/internal/logger"
)

// Columns is the CSV header.
var Columns = []string{"id", "url", "title", "excerpt", "status", "response_time_ms", "has_form"}

// maxLine bounds a single JSONL line; excerpts are short but titles and URLs
// are not.
const maxLine = 16 * 1024 * 1024

// Result summarizes a conversion.
type Result struct {
	Rows    int
	Skipped int
}

// field is one column: its key and the cell used when the key is missing.
type field struct {
	key     string
	missing string
}

var fields = []field{
	{"url", ""},
	{"title", ""},
	{"excerpt", ""},
	{"status", "-1"},
	{"response_time_ms", "0.0"},
}

// CSV reads JSONL records from r and writes one CSV row per parseable line.
// The id column is the 0-based input line number, so skipped lines leave gaps.
func CSV(r io.Reader, w io.Writer) (Result, error) {
	var res Result
	out := csv.NewWriter(w)
	if err := out.Write(Columns); err != nil {
		return res, err
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for id := 0; sc.Scan(); id++ {
		obj, err := decodeLine(sc.Bytes())
		if err != nil {
			logger.Debug("skipping unparseable line", "line", id, "error", err)
			res.Skipped++
			continue
		}
		if err := out.Write(row(id, obj)); err != nil {
			return res, err
		}
		res.Rows++
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("failed to read input: %w", err)
	}

	out.Flush()
	return res, out.Error()
}

// ConvertFile converts the JSONL file at in to a CSV file at out, creating
// out's parent directories.
func ConvertFile(in, out string) (Result, error) {
	src, err := os.Open(in)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open input: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	dst, err := os.Create(out)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create output: %w", err)
	}

	res, err := CSV(src, dst)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	return res, err
}

func decodeLine(line []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("not an object")
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after object")
	}
	return obj, nil
}

func row(id int, obj map[string]any) []string {
	cells := make([]string, 0, len(Columns))
	cells = append(cells, strconv.Itoa(id))
	for _, f := range fields {
		v, ok := obj[f.key]
		if !ok {
			cells = append(cells, f.missing)
			continue
		}
		cells = append(cells, cell(v))
	}
	return append(cells, hasForm(obj["has_form"]))
}

// cell renders a JSON value. null is an empty cell; numbers keep their
// original text.
func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// hasForm is 1 for any truthy value, else 0.
func hasForm(v any) string {
	truthy := false
	switch x := v.(type) {
	case bool:
		truthy = x
	case string:
		truthy = x != ""
	case json.Number:
		f, err := x.Float64()
		truthy = err != nil || f != 0
	case []any:
		truthy = len(x) > 0
	case map[string]any:
		truthy = len(x) > 0
	}
	if truthy {
		return "1"
	}
	return "0"
}

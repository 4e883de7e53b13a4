package output

import (
	"bufio"
	"encoding/json"
	"io"
)

// JSONLWriter writes newline-delimited JSON (JSONL).
type JSONLWriter struct {
	dst io.Writer
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{dst: w, w: bw, enc: enc}
}

// Write writes a single record as a JSON line. A failed record is dropped
// whole; the next Write starts on a clean buffer.
func (w *JSONLWriter) Write(rec Record) error {
	// Encode appends the newline.
	err := w.enc.Encode(rec)
	if err == nil {
		err = w.w.Flush()
	}
	if err != nil {
		w.w.Reset(w.dst)
	}
	return err
}

// Flush flushes the buffer.
func (w *JSONLWriter) Flush() error {
	return w.w.Flush()
}

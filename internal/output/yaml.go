package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter writes one YAML document per record.
type YAMLWriter struct {
	dst io.Writer
	w   *bufio.Writer
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{dst: w, w: bufio.NewWriter(w)}
}

// Write writes rec as a "---" prefixed document. A failed record is dropped
// whole; the next Write starts on a clean buffer.
func (w *YAMLWriter) Write(rec Record) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return err
	}
	if err := w.write(data); err != nil {
		w.w.Reset(w.dst)
		return err
	}
	return nil
}

func (w *YAMLWriter) write(data []byte) error {
	if _, err := w.w.WriteString("---\n"); err != nil {
		return err
	}
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	return w.w.Flush()
}

// Flush flushes the buffer.
func (w *YAMLWriter) Flush() error {
	return w.w.Flush()
}

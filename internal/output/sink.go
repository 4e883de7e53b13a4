package output

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSink appends records to one file for the whole run.
type FileSink struct {
	path    string
	file    *os.File
	writer  Writer
	written int
}

// Create makes the parent directories of path, truncates or creates the file
// and returns a sink writing format to it.
func Create(path string, format Format) (*FileSink, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	w, err := NewWriter(f, format)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &FileSink{path: path, file: f, writer: w}, nil
}

// Write appends one record and flushes it to the file.
func (s *FileSink) Write(rec Record) error {
	if err := s.writer.Write(rec); err != nil {
		return fmt.Errorf("failed to write record for %s: %w", rec.URL, err)
	}
	s.written++
	return nil
}

// Path returns the output file path.
func (s *FileSink) Path() string {
	return s.path
}

// Written returns the number of records written.
func (s *FileSink) Written() int {
	return s.written
}

// Close flushes and closes the file.
func (s *FileSink) Close() error {
	flushErr := s.writer.Flush()
	if err := s.file.Close(); err != nil {
		return err
	}
	return flushErr
}

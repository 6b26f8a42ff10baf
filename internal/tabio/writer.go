package tabio

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Writer appends delimited rows to one destination file. The file is created
// (truncated) on construction and all writes go through a single handle, so
// there is exactly one writer per output for the lifetime of a run.
type Writer struct {
	path string
	f    *os.File
	w    *csv.Writer
}

// NewWriter creates path fresh and returns a Writer using delim as the field
// separator. Parent directories must already exist.
func NewWriter(path string, delim rune) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	w.Comma = delim
	return &Writer{path: path, f: f, w: w}, nil
}

// WriteRow appends one row.
func (w *Writer) WriteRow(cells []string) error {
	if err := w.w.Write(cells); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	return nil
}

// Flush forces buffered rows to disk.
func (w *Writer) Flush() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", w.path, err)
	}
	return nil
}

// Close flushes and closes the underlying file. The first error wins.
func (w *Writer) Close() error {
	flushErr := w.Flush()
	closeErr := w.f.Close()
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", w.path, closeErr)
	}
	return nil
}

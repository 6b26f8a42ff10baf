// Package sink provides destinations for combined rows. The merge phase is
// strictly sequential and single-writer: one sink is opened for the run,
// receives the header at most once, then row batches, then Close.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"concat/internal/tabio"
)

// RowSink consumes the merged output. WriteHeader is called exactly once,
// before any rows. Implementations are not required to be concurrency-safe;
// the merger is the only writer.
type RowSink interface {
	WriteHeader(ctx context.Context, columns []string) error
	WriteRows(ctx context.Context, rows [][]string) error
	Close() error
}

// Text writes the combined output as one delimited text file.
type Text struct {
	w           *tabio.Writer
	writeHeader bool
}

// NewText creates path fresh (with parent directories) and returns a text
// sink using delim. When writeHeader is false, WriteHeader becomes a no-op
// and the output starts directly with data rows.
func NewText(path string, delim rune, writeHeader bool) (*Text, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	w, err := tabio.NewWriter(path, delim)
	if err != nil {
		return nil, err
	}
	return &Text{w: w, writeHeader: writeHeader}, nil
}

// WriteHeader writes the combined header row, unless headers are disabled.
func (t *Text) WriteHeader(_ context.Context, columns []string) error {
	if !t.writeHeader {
		return nil
	}
	return t.w.WriteRow(columns)
}

// WriteRows appends one chunk of rows.
func (t *Text) WriteRows(_ context.Context, rows [][]string) error {
	for _, row := range rows {
		if err := t.w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the output file.
func (t *Text) Close() error {
	return t.w.Close()
}

// Package tabio provides chunked, streaming readers and writers for
// single-character-delimited text files (CSV, TSV, and friends).
//
// The reader is deliberately permissive:
//   - variable field counts are accepted (projection happens downstream)
//   - LazyQuotes tolerates stray quote characters inside fields
//   - ill-formed UTF-8 is replaced rather than surfaced as an error
//
// All values are treated as text; no type inference happens at this layer.
package tabio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Chunk is one bounded batch of rows read from a delimited file.
//
// Columns is the header row as read (trimmed, BOM stripped); it is the same
// slice for every chunk emitted from one file. Rows never exceeds the chunk
// size requested by the caller, which bounds peak memory independent of file
// size.
type Chunk struct {
	Columns []string
	Rows    [][]string
	Index   int // 0-based chunk ordinal within the file
}

// permissiveReader wraps r so ill-formed UTF-8 is replaced with U+FFFD
// instead of propagating as a read error. Inputs in the wild carry stray
// bytes; combining must not die on them.
func permissiveReader(r io.Reader) io.Reader {
	return transform.NewReader(r, runes.ReplaceIllFormed())
}

func newDelimReader(r io.Reader, delim rune) *csv.Reader {
	cr := csv.NewReader(permissiveReader(r))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// readHeader consumes records until the first row with at least one
// non-blank cell and returns it trimmed. Returns nil at EOF without such a
// row.
func readHeader(cr *csv.Reader) ([]string, error) {
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if allBlank(rec) {
			continue
		}
		out := make([]string, len(rec))
		for i, c := range rec {
			c = strings.TrimSpace(c)
			if i == 0 {
				c = strings.TrimPrefix(c, "\uFEFF")
			}
			out[i] = c
		}
		return out, nil
	}
}

// PeekHeader returns the first non-blank row of the file split by delim,
// with each cell trimmed. It returns an empty slice when the file contains
// no such row.
func PeekHeader(path string, delim rune) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	hdr, err := readHeader(newDelimReader(f, delim))
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	return hdr, nil
}

// StreamChunks reads path with the given delimiter and calls fn once per
// chunk of at most chunkSize data rows. The header row is read once and
// shared by every chunk via Chunk.Columns.
//
// Cancellation is checked between chunks, never inside one: an in-flight
// chunk is always delivered whole or not at all.
func StreamChunks(ctx context.Context, path string, delim rune, chunkSize int, fn func(Chunk) error) error {
	if chunkSize <= 0 {
		return fmt.Errorf("stream %s: chunk size must be positive, got %d", path, chunkSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := newDelimReader(f, delim)

	header, err := readHeader(cr)
	if err != nil {
		return fmt.Errorf("read header %s: %w", path, err)
	}
	if header == nil {
		return nil
	}

	var (
		rows  = make([][]string, 0, chunkSize)
		index int
	)

	emit := func() error {
		if len(rows) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(Chunk{Columns: header, Rows: rows, Index: index}); err != nil {
			return err
		}
		index++
		rows = make([][]string, 0, chunkSize)
		return nil
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return emit()
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		// cr reuses its record buffer, so retain a copy.
		row := make([]string, len(rec))
		copy(row, rec)
		rows = append(rows, row)

		if len(rows) == chunkSize {
			if err := emit(); err != nil {
				return err
			}
		}
	}
}

package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLite writes the combined output into one table of a SQLite database
// file instead of a delimited text file.
//
// All columns get TEXT affinity: the combiner treats every value as text
// end-to-end, so no type mapping happens here. Empty cells (including cells
// synthesized for columns a file did not have) are stored as NULL.
type SQLite struct {
	db    *sql.DB
	table string
	cols  []string
}

// maxBindParams bounds the flattened placeholder count per INSERT. SQLite's
// historical variable limit is 32766; staying well under it keeps the sink
// working against older builds too.
const maxBindParams = 16000

// NewSQLite opens (creating parent directories) the database at path. The
// table is created fresh for the run: an existing table of the same name is
// dropped, matching the text sink's truncate-on-create behavior.
func NewSQLite(ctx context.Context, path, table string) (*SQLite, error) {
	if table == "" {
		return nil, fmt.Errorf("sqlite sink: table name is empty")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &SQLite{db: db, table: table}, nil
}

// WriteHeader creates the destination table with one TEXT column per schema
// column. Must be called before WriteRows; the column order fixes the insert
// order for the rest of the run.
func (s *SQLite) WriteHeader(ctx context.Context, columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("sqlite sink: no columns")
	}
	s.cols = append([]string(nil), columns...)

	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlIdent(s.table)); err != nil {
		return fmt.Errorf("drop table %s: %w", s.table, err)
	}

	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = sqlIdent(c) + " TEXT"
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", sqlIdent(s.table), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// WriteRows bulk-inserts one chunk inside a transaction, splitting into
// sub-batches that respect the bind-parameter limit.
func (s *SQLite) WriteRows(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if s.cols == nil {
		return fmt.Errorf("sqlite sink: WriteRows before WriteHeader")
	}

	perBatch := maxBindParams / len(s.cols)
	if perBatch < 1 {
		perBatch = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", s.table, err)
	}

	for start := 0; start < len(rows); start += perBatch {
		end := start + perBatch
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.insertBatch(ctx, tx, rows[start:end]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert into %s: %w", s.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert into %s: %w", s.table, err)
	}
	return nil
}

func (s *SQLite) insertBatch(ctx context.Context, tx *sql.Tx, rows [][]string) error {
	idents := make([]string, len(s.cols))
	for i, c := range s.cols {
		idents[i] = sqlIdent(c)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(s.table))
	b.WriteString(" (")
	b.WriteString(strings.Join(idents, ", "))
	b.WriteString(") VALUES ")

	rowPh := "(" + strings.TrimRight(strings.Repeat("?,", len(s.cols)), ",") + ")"
	args := make([]any, 0, len(rows)*len(s.cols))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(rowPh)
		for c := range s.cols {
			var v any
			if c < len(row) && row[c] != "" {
				v = row[c]
			}
			args = append(args, v)
		}
	}

	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

// Close closes the database handle.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// TableNameFor derives a usable table name from an output path when none was
// supplied: the file stem with non-alphanumerics folded to underscores.
func TableNameFor(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "t_" + out
	}
	return out
}

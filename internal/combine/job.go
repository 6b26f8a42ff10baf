package combine

import (
	"context"
	"fmt"
	"os"

	"concat/internal/sink"
)

// Job is the full configuration of one combine run. It is assembled by the
// CLI, validated up front, and not mutated afterwards. The job owns the
// scratch workspace lifecycle: created lazily when normalization needs it,
// removed unconditionally when the run ends.
type Job struct {
	// Input selection; exactly one of the three must be set.
	Directory string
	Globs     []string
	Inputs    []string

	// Extension filter; inferred from the inputs when empty.
	Extension string

	// SampleRows bounds the delimiter-sniffing sample per file.
	SampleRows int

	// NormalizeTo, when non-zero, is the delimiter mixed inputs are
	// rewritten to. When zero, mixed delimiters are fatal.
	NormalizeTo rune
	// Workers bounds the normalization pool.
	Workers int

	// Reconciled mode.
	Policy Policy

	// Requested mode; a non-empty Columns list overrides Policy.
	Columns         []string
	CaseInsensitive bool
	Missing         MissingPolicy

	// Source column injection.
	AddSource    bool
	SourceColumn string
	SourceMode   SourceMode

	ChunkSize int

	// Text output target; ignored when NewSink is set.
	OutPath  string
	OutDelim rune
	Header   bool

	// DryRun validates and summarizes without creating any output.
	DryRun bool

	// NewSink overrides the output destination (e.g. the SQLite sink).
	NewSink func(ctx context.Context) (sink.RowSink, error)

	// Logf receives verbose progress lines. Nil disables them.
	Logf func(format string, args ...any)
}

// Summary reports what a run did (or, for a dry run, would do).
type Summary struct {
	Files       []SourceFile
	Extension   string
	Schema      []string
	ColumnsMode bool
	Skipped     map[string][]string // path -> missing columns (skip policy)
	Normalized  bool
	Rows        int64
}

func (j *Job) validate() error {
	sources := 0
	if j.Directory != "" {
		sources++
	}
	if len(j.Globs) > 0 {
		sources++
	}
	if len(j.Inputs) > 0 {
		sources++
	}
	if sources != 1 {
		return fmt.Errorf("exactly one input source required (directory, globs, or files), got %d", sources)
	}
	if !j.DryRun && j.NewSink == nil && j.OutPath == "" {
		return fmt.Errorf("output path required")
	}
	return nil
}

// Run executes the full pipeline: discovery, sniffing, optional
// normalization, reconciliation, and the streaming merge.
//
// The scratch workspace is removed on every exit path, including
// cancellation; interruption surfaces as the context error after cleanup.
func (j *Job) Run(ctx context.Context) (*Summary, error) {
	if err := j.validate(); err != nil {
		return nil, err
	}

	logf := j.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	sampleRows := j.SampleRows
	if sampleRows <= 0 {
		sampleRows = 50
	}
	chunkSize := j.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 200_000
	}

	paths, err := CollectPaths(j.Directory, j.Globs, j.Inputs)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &NoInputError{}
	}

	ext, err := EnsureExtension(paths, j.Extension)
	if err != nil {
		return nil, err
	}
	paths, err = FilterExtension(paths, ext)
	if err != nil {
		return nil, err
	}
	logf("[input] %d files (.%s)", len(paths), ext)

	files, err := DiscoverSources(paths, sampleRows)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		logf("[sniff] %s: delim=%s header=%v", f.Path, DelimName(f.Delim), f.Header)
	}

	var scratch string
	defer func() {
		if scratch != "" {
			_ = os.RemoveAll(scratch)
		}
	}()

	normalized := false
	if delims := DistinctDelims(files); len(delims) > 1 {
		if j.NormalizeTo == 0 {
			return nil, &DelimiterConflictError{Delims: delims}
		}

		scratch, err = os.MkdirTemp("", "concat_norm_")
		if err != nil {
			return nil, fmt.Errorf("create scratch workspace: %w", err)
		}
		logf("[normalize] mixed delimiters -> rewriting all inputs as %s", DelimName(j.NormalizeTo))

		files, err = NormalizeFiles(ctx, files, scratch, j.NormalizeTo, chunkSize, j.Workers)
		if err != nil {
			return nil, err
		}
		normalized = true
	}

	if err := ValidateHeaders(files); err != nil {
		return nil, err
	}

	var (
		schema []string
		sel    *Selection
	)
	sum := &Summary{Extension: ext, Normalized: normalized}

	if len(j.Columns) > 0 {
		sel, err = SelectColumns(files, j.Columns, j.CaseInsensitive, j.Missing)
		if err != nil {
			return nil, err
		}
		files = sel.Files
		schema = sel.Schema
		sum.ColumnsMode = true
		sum.Skipped = sel.Skipped
		for p, missing := range sel.Skipped {
			logf("[columns] skipping %s: missing %v", p, missing)
		}
	} else {
		schema, err = BuildSchema(files, j.Policy)
		if err != nil {
			return nil, err
		}
		logf("[schema] policy=%s -> %d columns", j.Policy, len(schema))
	}

	sum.Files = files
	sum.Schema = schema

	if j.DryRun {
		return sum, nil
	}

	newSink := j.NewSink
	if newSink == nil {
		newSink = func(context.Context) (sink.RowSink, error) {
			return sink.NewText(j.OutPath, j.OutDelim, j.Header)
		}
	}
	dst, err := newSink(ctx)
	if err != nil {
		return nil, err
	}

	rows, mergeErr := MergeFiles(ctx, files, dst, MergeOptions{
		Schema:       schema,
		Selection:    sel,
		ChunkSize:    chunkSize,
		AddSource:    j.AddSource,
		SourceColumn: j.SourceColumn,
		SourceMode:   j.SourceMode,
		Logf:         j.Logf,
	})
	closeErr := dst.Close()
	if mergeErr != nil {
		return nil, mergeErr
	}
	if closeErr != nil {
		return nil, closeErr
	}

	sum.Rows = rows
	logf("[done] wrote %d rows", rows)
	return sum, nil
}

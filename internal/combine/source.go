package combine

import (
	"path/filepath"
	"strings"
)

// SourceFile is an immutable per-file record built during discovery. When
// normalization rewrites a file, a new SourceFile pointing at the scratch
// copy replaces this one; existing records are never mutated in place.
type SourceFile struct {
	Path   string
	Delim  rune
	Header []string
}

// SourceMode selects what a source column records about a row's origin file.
type SourceMode string

const (
	SourceName SourceMode = "name" // filename with extension
	SourceStem SourceMode = "stem" // filename without extension
	SourcePath SourceMode = "path" // full path
)

// SourceValue derives the source-column value for path under mode. Every row
// of one file carries the same value.
func SourceValue(path string, mode SourceMode) string {
	switch mode {
	case SourceStem:
		base := filepath.Base(path)
		return strings.TrimSuffix(base, filepath.Ext(base))
	case SourcePath:
		return path
	default:
		return filepath.Base(path)
	}
}

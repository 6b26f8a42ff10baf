package combine

import (
	"sort"

	"concat/internal/tabio"
)

// DiscoverSources sniffs each path's delimiter and reads its header,
// returning one immutable SourceFile record per path, in input order.
// Discovery is sequential; it is cheap and shares no state across files.
func DiscoverSources(paths []string, sampleRows int) ([]SourceFile, error) {
	files := make([]SourceFile, 0, len(paths))
	for _, p := range paths {
		delim, err := SniffDelimiter(p, sampleRows)
		if err != nil {
			return nil, err
		}
		header, err := tabio.PeekHeader(p, delim)
		if err != nil {
			return nil, err
		}
		files = append(files, SourceFile{Path: p, Delim: delim, Header: header})
	}
	return files, nil
}

// DistinctDelims returns the set of delimiters observed across files.
func DistinctDelims(files []SourceFile) []rune {
	set := make(map[rune]struct{})
	for _, f := range files {
		set[f.Delim] = struct{}{}
	}
	out := make([]rune, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ValidateHeaders collects every file whose header came back empty into a
// single HeaderError, so the operator gets the complete list in one run
// instead of one failure at a time.
func ValidateHeaders(files []SourceFile) error {
	var empty []string
	for _, f := range files {
		if len(f.Header) == 0 {
			empty = append(empty, f.Path)
		}
	}
	if len(empty) > 0 {
		return &HeaderError{Files: empty}
	}
	return nil
}

package combine

import (
	"fmt"
	"sort"
	"strings"
)

// The error types below form the fatal-failure taxonomy of a combine run.
// Each one aborts the run; none are swallowed. Callers that care about the
// class (exit codes, tests) match with errors.As.

// DiscoveryError reports explicitly named input paths that do not exist.
type DiscoveryError struct {
	Missing []string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("missing input files: %s", strings.Join(e.Missing, ", "))
}

// ExtensionConflictError reports mixed input extensions when no extension
// filter was requested.
type ExtensionConflictError struct {
	Extensions []string
}

func (e *ExtensionConflictError) Error() string {
	exts := append([]string(nil), e.Extensions...)
	sort.Strings(exts)
	return fmt.Sprintf(
		"inconsistent extensions detected: %s (pass an extension filter to enforce one)",
		strings.Join(exts, ", "),
	)
}

// NoInputError reports an empty input set after discovery and filtering.
type NoInputError struct {
	Extension string
}

func (e *NoInputError) Error() string {
	if e.Extension != "" {
		return fmt.Sprintf("no *.%s input files after filtering", e.Extension)
	}
	return "no input files found"
}

// HeaderError aggregates every file whose header row could not be read, so
// the operator sees the complete picture instead of the first failure.
type HeaderError struct {
	Files []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf(
		"could not read a header row from: %s (empty or malformed?)",
		strings.Join(e.Files, ", "),
	)
}

// DelimiterConflictError reports mixed delimiters when no normalization
// target was supplied.
type DelimiterConflictError struct {
	Delims []rune
}

func (e *DelimiterConflictError) Error() string {
	names := make([]string, 0, len(e.Delims))
	for _, d := range e.Delims {
		names = append(names, DelimName(d))
	}
	sort.Strings(names)
	return fmt.Sprintf(
		"inconsistent delimiters detected: %s (request normalization to one target delimiter)",
		strings.Join(names, ", "),
	)
}

// SchemaMismatchError reports the first file whose header set diverges from
// the base header under the strict policy.
type SchemaMismatchError struct {
	File  string
	Base  []string
	Other []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf(
		"schema mismatch under strict policy in %s\nbase:  %v\nother: %v",
		e.File, e.Base, e.Other,
	)
}

// EmptyIntersectionError reports that no column is shared by every file.
type EmptyIntersectionError struct{}

func (e *EmptyIntersectionError) Error() string {
	return "no shared columns under intersection policy"
}

// MissingColumnsError reports requested columns absent from a file under the
// error missing-policy.
type MissingColumnsError struct {
	File    string
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("file %s is missing requested columns: %s",
		e.File, strings.Join(e.Missing, ", "))
}

// NoUsableFilesError reports that the skip missing-policy excluded every
// input file.
type NoUsableFilesError struct{}

func (e *NoUsableFilesError) Error() string {
	return "no files left after skipping those with missing columns"
}

package combine

import (
	"fmt"
	"strings"
)

// Policy is the rule for deriving one output column set from several files'
// differing headers.
type Policy string

const (
	PolicyStrict       Policy = "strict"
	PolicyUnion        Policy = "union"
	PolicyIntersection Policy = "intersection"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyStrict, PolicyUnion, PolicyIntersection:
		return p, nil
	default:
		return "", fmt.Errorf("unknown schema policy %q (strict, union, intersection)", s)
	}
}

// BuildSchema computes the output column list from the files' headers.
//
//   - strict: every header must be set-equal to the first file's header;
//     output order is the first file's order.
//   - union: every column seen anywhere, in first-seen order across files.
//   - intersection: columns present in every file, ordered per the first
//     file's header.
//
// The files slice must be non-empty and every header non-empty; discovery
// guarantees both before this runs.
func BuildSchema(files []SourceFile, policy Policy) ([]string, error) {
	base := files[0].Header

	switch policy {
	case PolicyStrict:
		baseSet := headerSet(base)
		for _, f := range files[1:] {
			if !sameSet(baseSet, headerSet(f.Header)) {
				return nil, &SchemaMismatchError{File: f.Path, Base: base, Other: f.Header}
			}
		}
		return append([]string(nil), base...), nil

	case PolicyUnion:
		seen := make(map[string]struct{})
		var out []string
		for _, f := range files {
			for _, h := range f.Header {
				if _, ok := seen[h]; ok {
					continue
				}
				seen[h] = struct{}{}
				out = append(out, h)
			}
		}
		return out, nil

	case PolicyIntersection:
		shared := headerSet(base)
		for _, f := range files[1:] {
			next := make(map[string]struct{})
			fs := headerSet(f.Header)
			for h := range shared {
				if _, ok := fs[h]; ok {
					next[h] = struct{}{}
				}
			}
			shared = next
		}
		if len(shared) == 0 {
			return nil, &EmptyIntersectionError{}
		}
		out := make([]string, 0, len(shared))
		for _, h := range base {
			if _, ok := shared[h]; ok {
				out = append(out, h)
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown schema policy %q", policy)
	}
}

func headerSet(h []string) map[string]struct{} {
	set := make(map[string]struct{}, len(h))
	for _, c := range h {
		set[c] = struct{}{}
	}
	return set
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// MissingPolicy decides what happens when a file lacks requested columns.
type MissingPolicy string

const (
	MissingError  MissingPolicy = "error"  // abort the whole run
	MissingSkip   MissingPolicy = "skip"   // exclude the file from the merge
	MissingFillNA MissingPolicy = "fillna" // include the file, synthesize nulls
)

// ParseMissingPolicy validates a missing-policy name.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch p := MissingPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case MissingError, MissingSkip, MissingFillNA:
		return p, nil
	default:
		return "", fmt.Errorf("unknown missing policy %q (error, skip, fillna)", s)
	}
}

// Selection is the outcome of requested-column resolution: the usable files,
// their header lookup maps, and the output schema (the requested list
// verbatim, in the given order).
type Selection struct {
	Schema          []string
	Files           []SourceFile
	Maps            map[string]map[string]string // path -> lookup key -> actual header name
	Skipped         map[string][]string          // path -> missing columns (skip policy)
	CaseInsensitive bool
}

// Resolve maps one requested/schema column name to the actual column name in
// the file at path, or "" when the file lacks it.
func (s *Selection) Resolve(path, column string) string {
	hmap := s.Maps[path]
	if hmap == nil {
		return ""
	}
	return hmap[lookupKey(column, s.CaseInsensitive)]
}

// SelectColumns validates a user-requested column list against every file
// and applies the missing-policy per file.
func SelectColumns(files []SourceFile, requested []string, caseInsensitive bool, policy MissingPolicy) (*Selection, error) {
	sel := &Selection{
		Schema:          append([]string(nil), requested...),
		Maps:            make(map[string]map[string]string, len(files)),
		Skipped:         make(map[string][]string),
		CaseInsensitive: caseInsensitive,
	}

	for _, f := range files {
		hmap := headerMap(f.Header, caseInsensitive)
		missing := missingColumns(requested, hmap, caseInsensitive)

		if len(missing) > 0 {
			switch policy {
			case MissingError:
				return nil, &MissingColumnsError{File: f.Path, Missing: missing}
			case MissingSkip:
				sel.Skipped[f.Path] = missing
				continue
			case MissingFillNA:
				// keep the file; absence becomes nulls at merge time
			}
		}

		sel.Maps[f.Path] = hmap
		sel.Files = append(sel.Files, f)
	}

	if len(sel.Files) == 0 {
		return nil, &NoUsableFilesError{}
	}
	return sel, nil
}

// headerMap builds the lookup map from (optionally case-folded) name to the
// actual header name as it appears in the file.
func headerMap(header []string, caseInsensitive bool) map[string]string {
	m := make(map[string]string, len(header))
	for _, h := range header {
		m[lookupKey(h, caseInsensitive)] = h
	}
	return m
}

func missingColumns(requested []string, hmap map[string]string, caseInsensitive bool) []string {
	var missing []string
	for _, r := range requested {
		if _, ok := hmap[lookupKey(r, caseInsensitive)]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

func lookupKey(name string, caseInsensitive bool) string {
	if caseInsensitive {
		return strings.ToLower(name)
	}
	return name
}

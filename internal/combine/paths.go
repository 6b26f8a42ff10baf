package combine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// CollectPaths turns one input source (directory, glob patterns, or an
// explicit file list; mutually exclusive) into a deduplicated, sorted list
// of absolute paths to existing regular files.
//
// Glob entries that already exist as literal paths are taken verbatim; this
// keeps shell-expanded arguments working. Explicitly named paths that do not
// exist are a DiscoveryError.
func CollectPaths(directory string, globPatterns, inputFiles []string) ([]string, error) {
	var paths []string

	switch {
	case directory != "":
		entries, err := os.ReadDir(directory)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", directory, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			paths = append(paths, filepath.Join(directory, e.Name()))
		}

	case len(globPatterns) > 0:
		for _, pattern := range globPatterns {
			if _, err := os.Stat(pattern); err == nil {
				paths = append(paths, pattern)
				continue
			}
			hits, err := doublestar.FilepathGlob(pattern)
			if err != nil {
				return nil, fmt.Errorf("glob %q: %w", pattern, err)
			}
			paths = append(paths, hits...)
		}

	case len(inputFiles) > 0:
		paths = append(paths, inputFiles...)
	}

	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &DiscoveryError{Missing: missing}
	}

	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	sort.Strings(out)
	return out, nil
}

// EnsureExtension returns the lowercased extension (without dot) the run
// should operate on. When userExt is empty, all inputs must already agree on
// one extension; mixing is an ExtensionConflictError.
func EnsureExtension(paths []string, userExt string) (string, error) {
	if userExt != "" {
		return strings.ToLower(strings.TrimPrefix(userExt, ".")), nil
	}

	set := make(map[string]struct{})
	for _, p := range paths {
		set[pathExt(p)] = struct{}{}
	}
	if len(set) != 1 {
		exts := make([]string, 0, len(set))
		for e := range set {
			exts = append(exts, e)
		}
		return "", &ExtensionConflictError{Extensions: exts}
	}
	for e := range set {
		return e, nil
	}
	return "", &NoInputError{}
}

// FilterExtension keeps only paths carrying ext. An empty result is a
// NoInputError.
func FilterExtension(paths []string, ext string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if pathExt(p) == ext {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, &NoInputError{Extension: ext}
	}
	return out, nil
}

func pathExt(p string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(p), "."))
}

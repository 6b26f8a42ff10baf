package combine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"concat/internal/tabio"
)

// NormalizeFiles rewrites every file into scratchDir using the target
// delimiter, then returns fresh SourceFile records pointing at the rewritten
// copies (sorted by path, all sharing the target delimiter).
//
// Rewrites run concurrently on a bounded pool: each worker owns one whole
// file and writes to a distinct destination, so no locking is needed. The
// errgroup is the barrier; the first failure cancels the remaining workers
// and propagates.
func NormalizeFiles(ctx context.Context, files []SourceFile, scratchDir string, target rune, chunkSize, workers int) ([]SourceFile, error) {
	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	dsts := make([]string, len(files))
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			dst := filepath.Join(scratchDir, filepath.Base(f.Path))
			dsts[i] = dst
			if err := normalizeOne(ctx, f, dst, target, chunkSize); err != nil {
				return fmt.Errorf("normalize %s: %w", f.Path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Rebuild the per-file records from scratch rather than patching the old
	// ones; stale delimiter/header state aliasing the originals is how merge
	// bugs happen.
	sort.Strings(dsts)
	out := make([]SourceFile, 0, len(dsts))
	for _, dst := range dsts {
		header, err := tabio.PeekHeader(dst, target)
		if err != nil {
			return nil, err
		}
		out = append(out, SourceFile{Path: dst, Delim: target, Header: header})
	}
	return out, nil
}

// normalizeOne streams src in bounded chunks and rewrites it to dst with the
// target delimiter. The header is written exactly once, before any rows, so
// even a data-less file round-trips with its header intact.
func normalizeOne(ctx context.Context, src SourceFile, dst string, target rune, chunkSize int) error {
	w, err := tabio.NewWriter(dst, target)
	if err != nil {
		return err
	}

	if len(src.Header) > 0 {
		if err := w.WriteRow(src.Header); err != nil {
			_ = w.Close()
			return err
		}
	}

	err = tabio.StreamChunks(ctx, src.Path, src.Delim, chunkSize, func(ch tabio.Chunk) error {
		for _, row := range ch.Rows {
			if err := w.WriteRow(row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

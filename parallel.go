package granary

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEachChunk runs fn over every chunk matched by filter, using up to
// parallelism goroutines (0 means no limit). One chunk per task is the
// expected unit of read-only parallelism; fn must not mutate storage or the
// world's shape. The first error cancels scheduling of remaining chunks.
func (w *World) ForEachChunk(ctx context.Context, filter Filter, parallelism int, fn func(*Chunk) error) error {
	cursor := newCursor(filter, w)
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for ch := range cursor.Chunks() {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(ch)
		})
	}
	return g.Wait()
}

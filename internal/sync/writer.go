package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/IchiThe2nd/aidivalogger/internal/influx"
)

// batchWriter pushes points to the store in fixed-size, time-ordered batches
// with a throttling delay between batches. The store needs processing time
// between writes of this volume; the delay is backpressure, not correctness.
type batchWriter struct {
	store      PointStore
	batchSize  int
	batchDelay time.Duration
}

// write sorts the points ascending by timestamp and writes them batch by
// batch, strictly sequentially. It returns the number of points written,
// which on error counts only the batches that made it to the store.
func (w *batchWriter) write(ctx context.Context, points []influx.Point) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	influx.SortByTime(points)

	written := 0
	for start := 0; start < len(points); start += w.batchSize {
		end := start + w.batchSize
		if end > len(points) {
			end = len(points)
		}

		if err := w.store.WritePoints(ctx, points[start:end]); err != nil {
			return written, fmt.Errorf("failed to write batch of %d points: %w", end-start, err)
		}
		written += end - start

		if end < len(points) {
			if err := sleepCtx(ctx, w.batchDelay); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

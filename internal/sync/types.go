// Package sync reconciles the controller's retained history with what the
// time-series store already holds: it measures coverage of a historical
// window, backfills anything newer than the store's cutoff, and replays a
// recent window on startup to heal gaps. Every writer here is idempotent at
// the point level; the store's dedup on tag set plus timestamp is the only
// coordination between this package and the live poll loop.
package sync

import (
	"context"
	"time"

	"github.com/IchiThe2nd/aidivalogger/internal/controller"
	"github.com/IchiThe2nd/aidivalogger/internal/influx"
)

// RecordSource produces controller records for a time range.
type RecordSource interface {
	FetchCurrent(ctx context.Context, minimal bool) (*controller.Snapshot, error)
	FetchProbeHistory(ctx context.Context, start time.Time, spanDays int) ([]controller.Record, error)
	FetchOutletHistory(ctx context.Context, start time.Time, spanDays int) ([]controller.OutletRecord, error)
}

// PointStore accepts point batches and answers bounded timestamp queries.
type PointStore interface {
	WritePoints(ctx context.Context, points []influx.Point) error
	QueryTimestamps(ctx context.Context, q influx.TimestampQuery) ([]time.Time, error)
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

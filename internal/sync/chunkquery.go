package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/IchiThe2nd/aidivalogger/internal/influx"
)

// The chunked queries exist because the store caps how many Parquet files a
// single query may scan. Splitting the lookback into day-sized sub-ranges
// keeps each query under the cap at the cost of a bounded horizon: a point
// older than the lookback window is invisible here even if the store holds
// it. That trade is deliberate and configurable (SYNC_QUERY_CHUNK_DAYS,
// SYNC_QUERY_LOOKBACK_DAYS).

// NewestTimestamp finds the most recent timestamp of the measurement within
// the lookback window, searching most-recent chunks first. ok is false when
// every chunk is empty, which callers treat as first-run semantics. A chunk
// rejected by the scan ceiling is logged and skipped; only when every single
// chunk was scan-limited does the error surface, since at that point the
// result says nothing about the store's content.
func NewestTimestamp(ctx context.Context, store PointStore, measurement string, chunkDays, lookbackDays int) (time.Time, bool, error) {
	now := time.Now()
	chunks, scanLimited := 0, 0
	var lastErr error

	for offset := 0; offset < lookbackDays; offset += chunkDays {
		span := chunkDays
		if remaining := lookbackDays - offset; remaining < span {
			span = remaining
		}
		end := now.AddDate(0, 0, -offset)
		start := end.AddDate(0, 0, -span)
		chunks++

		ts, ok, err := queryOne(ctx, store, measurement, start, end, true)
		if err != nil {
			if errors.Is(err, influx.ErrScanLimit) {
				log.Printf("Store scan limit hit querying %s (%s..%s), trying older chunk: %v",
					measurement, start.Format("2006-01-02"), end.Format("2006-01-02"), err)
				scanLimited++
				lastErr = err
				continue
			}
			return time.Time{}, false, err
		}
		if ok {
			return ts, true, nil
		}
	}

	if chunks > 0 && scanLimited == chunks {
		return time.Time{}, false, fmt.Errorf("every query chunk was rejected by the scan ceiling: %w", lastErr)
	}
	return time.Time{}, false, nil
}

// OldestTimestamp is the mirror search: oldest chunks first, ascending order
// inside each chunk.
func OldestTimestamp(ctx context.Context, store PointStore, measurement string, chunkDays, lookbackDays int) (time.Time, bool, error) {
	now := time.Now()
	chunks, scanLimited := 0, 0
	var lastErr error

	for offset := lookbackDays; offset > 0; offset -= chunkDays {
		span := chunkDays
		if offset < span {
			span = offset
		}
		start := now.AddDate(0, 0, -offset)
		end := start.AddDate(0, 0, span)
		chunks++

		ts, ok, err := queryOne(ctx, store, measurement, start, end, false)
		if err != nil {
			if errors.Is(err, influx.ErrScanLimit) {
				log.Printf("Store scan limit hit querying %s (%s..%s), trying newer chunk: %v",
					measurement, start.Format("2006-01-02"), end.Format("2006-01-02"), err)
				scanLimited++
				lastErr = err
				continue
			}
			return time.Time{}, false, err
		}
		if ok {
			return ts, true, nil
		}
	}

	if chunks > 0 && scanLimited == chunks {
		return time.Time{}, false, fmt.Errorf("every query chunk was rejected by the scan ceiling: %w", lastErr)
	}
	return time.Time{}, false, nil
}

func queryOne(ctx context.Context, store PointStore, measurement string, start, end time.Time, descending bool) (time.Time, bool, error) {
	timestamps, err := store.QueryTimestamps(ctx, influx.TimestampQuery{
		Measurement: measurement,
		Start:       start,
		End:         end,
		Descending:  descending,
		Limit:       1,
	})
	if err != nil {
		return time.Time{}, false, err
	}
	if len(timestamps) == 0 {
		return time.Time{}, false, nil
	}
	return timestamps[0], true, nil
}

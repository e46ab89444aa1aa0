package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/IchiThe2nd/aidivalogger/internal/mapping"
	"github.com/IchiThe2nd/aidivalogger/pkg/config"
)

// Backfill unconditionally re-fetches and rewrites a fixed recent window of
// probe readings and outlet state on startup, healing whatever gap a crash
// or downtime left. It compares nothing: safety rests entirely on the
// store deduplicating points with identical tags and timestamp.
type Backfill struct {
	src   RecordSource
	store PointStore
	host  string
	cfg   config.SyncConfig
}

// NewBackfill creates a backfill runner for one controller host.
func NewBackfill(src RecordSource, store PointStore, host string, cfg config.SyncConfig) *Backfill {
	return &Backfill{src: src, store: store, host: host, cfg: cfg}
}

// Run replays the last BackfillDays of both record streams. The two streams
// are independent: a failure or empty result in one does not stop the
// other. The first error is returned so the caller can log it, but callers
// must not treat it as fatal to startup.
func (b *Backfill) Run(ctx context.Context) error {
	start := time.Now().AddDate(0, 0, -b.cfg.BackfillDays)
	writer := &batchWriter{store: b.store, batchSize: b.cfg.BatchSize, batchDelay: b.cfg.BatchDelay}

	fmt.Printf("Backfilling the last %d day(s) from %s...\n",
		b.cfg.BackfillDays, start.Format("2006-01-02"))

	var firstErr error

	records, err := b.src.FetchProbeHistory(ctx, start, b.cfg.BackfillDays)
	switch {
	case err != nil:
		log.Printf("Backfill probe fetch failed: %v", err)
		firstErr = err
	case len(records) == 0:
		fmt.Println("Backfill: no probe records found in window")
	default:
		n, err := writer.write(ctx, mapping.RecordPoints(records, b.host))
		if err != nil {
			log.Printf("Backfill probe write failed after %d points: %v", n, err)
			if firstErr == nil {
				firstErr = err
			}
		} else {
			fmt.Printf("Backfill: rewrote %d probe points from %d records\n", n, len(records))
		}
	}

	outlets, err := b.src.FetchOutletHistory(ctx, start, b.cfg.BackfillDays)
	switch {
	case err != nil:
		log.Printf("Backfill outlet fetch failed: %v", err)
		if firstErr == nil {
			firstErr = err
		}
	case len(outlets) == 0:
		fmt.Println("Backfill: no outlet records found in window")
	default:
		n, err := writer.write(ctx, mapping.OutletPoints(outlets, b.host))
		if err != nil {
			log.Printf("Backfill outlet write failed after %d points: %v", n, err)
			if firstErr == nil {
				firstErr = err
			}
		} else {
			fmt.Printf("Backfill: rewrote %d outlet points from %d records\n", n, len(outlets))
		}
	}

	return firstErr
}

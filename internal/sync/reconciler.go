package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/IchiThe2nd/aidivalogger/internal/controller"
	"github.com/IchiThe2nd/aidivalogger/internal/influx"
	"github.com/IchiThe2nd/aidivalogger/internal/mapping"
	"github.com/IchiThe2nd/aidivalogger/internal/status"
	"github.com/IchiThe2nd/aidivalogger/pkg/config"
)

// upToDateTolerance is the signed lag within which controller and store are
// reported as in sync. The controller logs at minute granularity, so
// anything tighter just flaps.
const upToDateTolerance = time.Minute

// StatusRecorder persists reconciliation summaries.
type StatusRecorder interface {
	RecordSync(ctx context.Context, st status.SyncStatus) error
}

// LagNotifier is told when the database has fallen further behind the
// controller than the operator wants to tolerate.
type LagNotifier interface {
	SendLagAlert(host string, lag time.Duration) error
}

// Reconciler runs one end-to-end "are we caught up, and if not, catch up"
// pass against the store.
type Reconciler struct {
	src   RecordSource
	store PointStore
	host  string
	cfg   config.SyncConfig

	// Optional collaborators, wired by the caller when configured.
	Status   StatusRecorder
	Notifier LagNotifier
	MaxLag   time.Duration
}

// NewReconciler creates a reconciler for one controller host.
func NewReconciler(src RecordSource, store PointStore, host string, cfg config.SyncConfig) *Reconciler {
	return &Reconciler{src: src, store: store, host: host, cfg: cfg}
}

// Run executes one reconciliation pass. It never returns an error: the pass
// runs as a detached background task and nothing it hits may crash or block
// the live polling loop. A scan-ceiling rejection gets remediation guidance;
// everything else is logged and dropped.
func (r *Reconciler) Run(ctx context.Context) {
	runID := uuid.New().String()[:8]

	err := r.run(ctx, runID)
	if err == nil {
		return
	}

	if errors.Is(err, influx.ErrScanLimit) {
		fmt.Printf("\n--- Sync aborted [%s]: store scan limit ---\n", runID)
		fmt.Printf("The store rejected the history queries because the requested time range\n")
		fmt.Printf("touches more Parquet files than one query may scan. To recover:\n")
		fmt.Printf("  - reduce SYNC_QUERY_LOOKBACK_DAYS and/or SYNC_QUERY_CHUNK_DAYS\n")
		fmt.Printf("  - run compaction on the store to merge small Parquet files\n")
		fmt.Printf("Live polling continues unaffected.\n")
		fmt.Printf("-------------------------------------------\n\n")
		return
	}

	log.Printf("[sync %s] reconciliation pass failed: %v", runID, err)
}

func (r *Reconciler) run(ctx context.Context, runID string) error {
	startedAt := time.Now()

	snap, err := r.src.FetchCurrent(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to fetch current records: %w", err)
	}
	latest, ok := snap.Latest()
	if !ok {
		fmt.Printf("[sync %s] controller returned no records, nothing to reconcile\n", runID)
		return nil
	}

	// The cutoff is captured once and held fixed for the whole pass. Live
	// polling keeps pushing the store's true newest timestamp forward while
	// we scan; re-reading it mid-pass would make later chunks skip records
	// the earlier chunks were still writing.
	cutoff, haveCutoff, err := NewestTimestamp(ctx, r.store, mapping.MeasurementProbes,
		r.cfg.QueryChunkDays, r.cfg.QueryLookbackDays)
	if err != nil {
		return err
	}

	switch {
	case !haveCutoff:
		fmt.Printf("[sync %s] no existing data within lookback, importing full window\n", runID)
	case r.cfg.ForceFullSync:
		fmt.Printf("[sync %s] force full sync enabled, rewriting window regardless of cutoff %s\n",
			runID, cutoff.Format(time.RFC3339))
	default:
		fmt.Printf("[sync %s] store cutoff is %s, importing newer records\n",
			runID, cutoff.Format(time.RFC3339))
	}

	writer := &batchWriter{store: r.store, batchSize: r.cfg.BatchSize, batchDelay: r.cfg.BatchDelay}
	written, skipped := 0, 0

	sink := func(ctx context.Context, records []controller.Record) error {
		fresh := records
		if haveCutoff && !r.cfg.ForceFullSync {
			fresh = make([]controller.Record, 0, len(records))
			for _, rec := range records {
				if rec.Time.After(cutoff) {
					fresh = append(fresh, rec)
				} else {
					skipped++
				}
			}
		}

		n, err := writer.write(ctx, mapping.RecordPoints(fresh, r.host))
		written += n
		if err != nil {
			return err
		}

		// Longer pause after each chunk so the store can absorb the write
		// fanout before the next one lands.
		return sleepCtx(ctx, r.cfg.ChunkDelay)
	}

	scanner := NewScanner(r.src, r.cfg.WindowDays, r.cfg.ChunkDays)
	cov, err := scanner.Scan(ctx, sink)
	if err != nil {
		return err
	}

	newest, haveNewest, err := NewestTimestamp(ctx, r.store, mapping.MeasurementProbes,
		r.cfg.QueryChunkDays, r.cfg.QueryLookbackDays)
	if err != nil {
		return err
	}
	oldest, haveOldest, err := OldestTimestamp(ctx, r.store, mapping.MeasurementProbes,
		r.cfg.QueryChunkDays, r.cfg.QueryLookbackDays)
	if err != nil {
		return err
	}

	state, lag := syncState(latest.Time, newest, haveNewest)

	fmt.Printf("\n--- Sync Status [%s] ---\n", runID)
	fmt.Printf("Controller latest: %s\n", latest.Time.Format(time.RFC3339))
	if haveNewest {
		fmt.Printf("Database newest:   %s\n", newest.Format(time.RFC3339))
	}
	if haveOldest {
		fmt.Printf("Database oldest:   %s\n", oldest.Format(time.RFC3339))
	}
	fmt.Printf("State: %s\n", state)
	fmt.Printf("Coverage: %.2f%% (%d of %d days, %d useful records)\n",
		cov.Percent, cov.DaysWithData, cov.DaysScanned, cov.UsefulRecords)
	fmt.Printf("Points written: %d | Records skipped (at or before cutoff): %d\n", written, skipped)
	fmt.Printf("------------------------\n\n")

	if r.Status != nil {
		st := status.SyncStatus{
			RunID:           runID,
			Host:            r.host,
			StartedAt:       startedAt,
			FinishedAt:      time.Now(),
			State:           state,
			Lag:             lag,
			CoveragePercent: cov.Percent,
			PointsWritten:   written,
			RecordsSkipped:  skipped,
		}
		if err := r.Status.RecordSync(ctx, st); err != nil {
			log.Printf("[sync %s] failed to record sync status: %v", runID, err)
		}
	}

	if r.Notifier != nil && r.MaxLag > 0 && lag > r.MaxLag {
		if err := r.Notifier.SendLagAlert(r.host, lag); err != nil {
			log.Printf("[sync %s] failed to send lag alert: %v", runID, err)
		}
	}

	return nil
}

// syncState classifies the signed difference between the source's latest
// record and the store's newest point.
func syncState(sourceLatest, storeNewest time.Time, haveNewest bool) (string, time.Duration) {
	if !haveNewest {
		return "database empty within lookback window", 0
	}

	diff := sourceLatest.Sub(storeNewest)
	switch {
	case diff > upToDateTolerance:
		return fmt.Sprintf("database behind by %s", diff.Round(time.Second)), diff
	case diff < -upToDateTolerance:
		return fmt.Sprintf("database ahead by %s", (-diff).Round(time.Second)), diff
	default:
		return "up to date", diff
	}
}

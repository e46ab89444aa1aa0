package sync

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/IchiThe2nd/aidivalogger/internal/controller"
)

// Coverage summarizes one full historical scan.
type Coverage struct {
	TotalRecords  int
	UsefulRecords int
	OldestDate    string
	NewestDate    string
	DaysWithData  int
	DaysScanned   int
	Percent       float64
}

// ChunkFunc receives one chunk's full, unfiltered record set. The scanner
// awaits each call before fetching the next chunk, so a sink never sees
// chunks out of order or concurrently.
type ChunkFunc func(ctx context.Context, records []controller.Record) error

// Scanner walks a fixed historical window in day-sized chunks, one source
// fetch per chunk. Chunking bounds both the request count against the
// controller and the payload per request; some firmware rejects or truncates
// unbounded range queries.
type Scanner struct {
	src        RecordSource
	windowDays int
	chunkDays  int
}

// NewScanner creates a scanner over the last windowDays, fetched chunkDays
// at a time.
func NewScanner(src RecordSource, windowDays, chunkDays int) *Scanner {
	return &Scanner{src: src, windowDays: windowDays, chunkDays: chunkDays}
}

// Scan visits chunks oldest to newest and produces coverage statistics
// without retaining record bodies. A failed chunk fetch is logged and
// skipped; partial coverage beats no coverage. Sink errors and context
// cancellation do propagate.
func (s *Scanner) Scan(ctx context.Context, onChunk ChunkFunc) (*Coverage, error) {
	cov := &Coverage{DaysScanned: s.windowDays}
	days := make(map[string]struct{})

	var oldestTime, newestTime time.Time
	windowStart := time.Now().AddDate(0, 0, -s.windowDays)

	for offset := 0; offset < s.windowDays; offset += s.chunkDays {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		span := s.chunkDays
		if remaining := s.windowDays - offset; remaining < span {
			span = remaining
		}
		chunkStart := windowStart.AddDate(0, 0, offset)

		records, err := s.src.FetchProbeHistory(ctx, chunkStart, span)
		if err != nil {
			log.Printf("History chunk fetch failed (start=%s, days=%d), skipping: %v",
				chunkStart.Format("2006-01-02"), span, err)
			continue
		}

		cov.TotalRecords += len(records)

		useful := 0
		for i := range records {
			rec := &records[i]
			if !rec.HasUsefulReading() {
				continue
			}
			useful++
			if oldestTime.IsZero() || rec.Time.Before(oldestTime) {
				oldestTime = rec.Time
				cov.OldestDate = rec.Date
			}
			if rec.Time.After(newestTime) {
				newestTime = rec.Time
				cov.NewestDate = rec.Date
			}
			days[rec.Day()] = struct{}{}
		}
		cov.UsefulRecords += useful

		if useful > 0 && onChunk != nil {
			if err := onChunk(ctx, records); err != nil {
				return nil, err
			}
		}
	}

	cov.DaysWithData = len(days)
	if cov.UsefulRecords == 0 {
		cov.OldestDate = ""
		cov.NewestDate = ""
		cov.Percent = 0
		return cov, nil
	}
	cov.Percent = roundPercent(cov.DaysWithData, cov.DaysScanned)
	return cov, nil
}

// roundPercent computes days/scanned as a percentage rounded to two
// decimals, clamped to [0, 100].
func roundPercent(daysWithData, daysScanned int) float64 {
	if daysScanned <= 0 {
		return 0
	}
	pct := math.Round(float64(daysWithData)/float64(daysScanned)*100*100) / 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

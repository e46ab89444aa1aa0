package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	gosync "sync"
	"time"

	"github.com/IchiThe2nd/aidivalogger/internal/controller"
	"github.com/IchiThe2nd/aidivalogger/internal/influx"
)

// fakeSource serves canned records filtered by the requested range.
type fakeSource struct {
	records  []controller.Record
	outlets  []controller.OutletRecord
	snapshot *controller.Snapshot

	currentErr error
	probeErr   error
	outletErr  error
	// failStarts makes FetchProbeHistory fail for chunks starting on these
	// dates (format 2006-01-02).
	failStarts map[string]bool

	probeCalls []fetchCall
}

type fetchCall struct {
	start time.Time
	days  int
}

func (f *fakeSource) FetchCurrent(ctx context.Context, minimal bool) (*controller.Snapshot, error) {
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	if f.snapshot == nil {
		return &controller.Snapshot{}, nil
	}
	return f.snapshot, nil
}

func (f *fakeSource) FetchProbeHistory(ctx context.Context, start time.Time, spanDays int) ([]controller.Record, error) {
	f.probeCalls = append(f.probeCalls, fetchCall{start: start, days: spanDays})

	if f.probeErr != nil {
		return nil, f.probeErr
	}
	if f.failStarts[start.Format("2006-01-02")] {
		return nil, fmt.Errorf("controller returned HTTP 500 for /api/datalog")
	}

	end := start.AddDate(0, 0, spanDays)
	var out []controller.Record
	for _, rec := range f.records {
		if !rec.Time.Before(start) && rec.Time.Before(end) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeSource) FetchOutletHistory(ctx context.Context, start time.Time, spanDays int) ([]controller.OutletRecord, error) {
	if f.outletErr != nil {
		return nil, f.outletErr
	}
	end := start.AddDate(0, 0, spanDays)
	var out []controller.OutletRecord
	for _, rec := range f.outlets {
		if !rec.Time.Before(start) && rec.Time.Before(end) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// fakeStore models the two store behaviors the core depends on: per-point
// dedup keyed by measurement+tags+timestamp, and a scan ceiling that
// rejects queries spanning too many days.
type fakeStore struct {
	mu     gosync.Mutex
	points map[string]influx.Point
	writes [][]influx.Point

	writeErr error
	// scanCeilingDays rejects any query spanning more days than this with
	// a scan-limit error. Zero means no ceiling.
	scanCeilingDays int
	// queryHook, when set, runs before each query and may inject errors.
	queryHook func(q influx.TimestampQuery) error

	queryCount int
}

func newFakeStore() *fakeStore {
	return &fakeStore{points: make(map[string]influx.Point)}
}

func pointKey(p influx.Point) string {
	tagKeys := make([]string, 0, len(p.Tags))
	for k := range p.Tags {
		tagKeys = append(tagKeys, k)
	}
	sort.Strings(tagKeys)

	var sb strings.Builder
	sb.WriteString(p.Measurement)
	for _, k := range tagKeys {
		sb.WriteString("|")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(p.Tags[k])
	}
	sb.WriteString(fmt.Sprintf("|%d", p.Time.Unix()))
	return sb.String()
}

func (s *fakeStore) WritePoints(ctx context.Context, points []influx.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}
	if len(points) == 0 {
		return nil
	}

	batch := make([]influx.Point, len(points))
	copy(batch, points)
	s.writes = append(s.writes, batch)

	for _, p := range points {
		s.points[pointKey(p)] = p
	}
	return nil
}

func (s *fakeStore) QueryTimestamps(ctx context.Context, q influx.TimestampQuery) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queryCount++

	if s.queryHook != nil {
		if err := s.queryHook(q); err != nil {
			return nil, err
		}
	}
	if s.scanCeilingDays > 0 && q.End.Sub(q.Start) > time.Duration(s.scanCeilingDays)*24*time.Hour {
		return nil, fmt.Errorf("query would exceed the Parquet files limit: %w", influx.ErrScanLimit)
	}

	var matches []time.Time
	for _, p := range s.points {
		if p.Measurement != q.Measurement {
			continue
		}
		if p.Time.After(q.Start) && !p.Time.After(q.End) {
			matches = append(matches, p.Time)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if q.Descending {
			return matches[i].After(matches[j])
		}
		return matches[i].Before(matches[j])
	})
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points)
}

func (s *fakeStore) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

// makeRecord builds a probe record at ts with the given readings.
func makeRecord(ts time.Time, values map[string]float64) controller.Record {
	rec := controller.Record{
		Date: ts.Format(controller.DateLayout),
		Time: ts,
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rec.Readings = append(rec.Readings, controller.Reading{
			Name:  name,
			Type:  "probe",
			Value: controller.Value(values[name]),
		})
	}
	return rec
}

// probePoint builds the point makeRecord's readings map to, letting tests
// pre-seed the store with exactly what the mapper would write.
func probePoint(ts time.Time, host, probe string, value float64) influx.Point {
	return influx.Point{
		Measurement: "probes",
		Tags:        map[string]string{"host": host, "probe": probe, "type": "probe"},
		Fields:      map[string]interface{}{"value": value},
		Time:        ts,
	}
}

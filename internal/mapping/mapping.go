// Package mapping converts controller records into store points. All
// transforms are pure; the same record always yields the same points, which
// is what lets the store's dedup absorb repeated writes.
package mapping

import (
	"time"

	"github.com/IchiThe2nd/aidivalogger/internal/controller"
	"github.com/IchiThe2nd/aidivalogger/internal/influx"
)

// MeasurementProbes is the measurement probe readings are written to, both
// from the datalog and from live polling.
const MeasurementProbes = "probes"

// MeasurementOutlets is the measurement outlet state changes are written to.
const MeasurementOutlets = "outlets"

// ProbePoints maps a datalog record to one point per finite reading.
// Non-finite readings are dropped here so NaN never reaches the wire.
func ProbePoints(rec controller.Record, host string) []influx.Point {
	points := make([]influx.Point, 0, len(rec.Readings))
	for _, rd := range rec.Readings {
		if !rd.Value.Finite() {
			continue
		}
		points = append(points, influx.Point{
			Measurement: MeasurementProbes,
			Tags: map[string]string{
				"host":  host,
				"probe": rd.Name,
				"type":  rd.Type,
			},
			Fields: map[string]interface{}{
				"value": float64(rd.Value),
			},
			Time: rec.Time,
		})
	}
	return points
}

// RecordPoints maps a slice of datalog records, preserving record order.
func RecordPoints(records []controller.Record, host string) []influx.Point {
	var points []influx.Point
	for _, rec := range records {
		points = append(points, ProbePoints(rec, host)...)
	}
	return points
}

// OutletPoints maps switch-log rows to outlet state points.
func OutletPoints(records []controller.OutletRecord, host string) []influx.Point {
	points := make([]influx.Point, 0, len(records))
	for _, rec := range records {
		points = append(points, influx.Point{
			Measurement: MeasurementOutlets,
			Tags: map[string]string{
				"host":   host,
				"outlet": rec.Name,
			},
			Fields: map[string]interface{}{
				"state": rec.State,
			},
			Time: rec.Time,
		})
	}
	return points
}

// SnapshotPoints maps a live status snapshot. Outlet entries in a snapshot
// have no per-entry time, so every point shares the caller-supplied
// timestamp.
func SnapshotPoints(snap *controller.Snapshot, host string, ts time.Time) []influx.Point {
	var points []influx.Point
	for _, rec := range snap.Records {
		for _, rd := range rec.Readings {
			if !rd.Value.Finite() {
				continue
			}
			points = append(points, influx.Point{
				Measurement: MeasurementProbes,
				Tags: map[string]string{
					"host":  host,
					"probe": rd.Name,
					"type":  rd.Type,
				},
				Fields: map[string]interface{}{
					"value": float64(rd.Value),
				},
				Time: ts,
			})
		}
	}
	for _, out := range snap.Outlets {
		points = append(points, influx.Point{
			Measurement: MeasurementOutlets,
			Tags: map[string]string{
				"host":   host,
				"outlet": out.Name,
			},
			Fields: map[string]interface{}{
				"state": out.State,
			},
			Time: ts,
		})
	}
	return points
}

package controller

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the timestamp format the controller uses in every payload.
// It carries no zone information; the controller's configured UTC offset
// decides what instant it names.
const DateLayout = "2006-01-02 15:04:05"

// Value is a probe value as the controller reports it. Disconnected probes
// come through as "NaN", some firmware versions send "Infinity" for
// out-of-range readings, and nulls show up after probe calibration.
type Value float64

// UnmarshalJSON accepts numbers, quoted numbers and the controller's
// non-finite spellings. Anything unreadable decodes to NaN rather than
// failing the whole record.
func (v *Value) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*v = Value(math.NaN())
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*v = Value(math.NaN())
		return nil
	}

	*v = Value(f)
	return nil
}

// MarshalJSON writes finite values as numbers and non-finite ones in the
// controller's own "NaN" spelling, so snapshots round-trip.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Finite() {
		return []byte(`"NaN"`), nil
	}
	return []byte(strconv.FormatFloat(float64(v), 'f', -1, 64)), nil
}

// Finite reports whether the value is a real number (not NaN, not ±Inf).
func (v Value) Finite() bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Reading is one probe or sensor channel inside a record.
type Reading struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value Value  `json:"value"`
}

// Record is one datalog row: every probe sampled at one controller-local
// instant.
type Record struct {
	Date     string    `json:"date"`
	Readings []Reading `json:"probes"`

	// Time is the parsed absolute instant, stamped by the client after
	// decoding using the controller's UTC offset.
	Time time.Time `json:"-"`
}

// Day returns the calendar-date portion of the source date string.
func (r *Record) Day() string {
	if len(r.Date) < 10 {
		return r.Date
	}
	return r.Date[:10]
}

// HasUsefulReading reports whether at least one reading carries a finite
// value. Records where every probe reads NaN (controller rebooting, probes
// unplugged) are not worth persisting.
func (r *Record) HasUsefulReading() bool {
	for _, rd := range r.Readings {
		if rd.Value.Finite() {
			return true
		}
	}
	return false
}

// OutletRecord is one switch-log row: an outlet/output changing state.
type OutletRecord struct {
	Date  string `json:"date"`
	Name  string `json:"name"`
	State int    `json:"state"`

	Time time.Time `json:"-"`
}

// Snapshot is the controller's live status: the most recent datalog rows
// plus the current outlet states. Outlet entries carry no timestamp of
// their own; the snapshot is valid as of the moment it was fetched.
type Snapshot struct {
	Date    string         `json:"date"`
	Records []Record       `json:"records"`
	Outlets []OutletRecord `json:"outlets"`
}

// Latest returns the newest record in the snapshot, or false when the
// snapshot holds no records.
func (s *Snapshot) Latest() (Record, bool) {
	if len(s.Records) == 0 {
		return Record{}, false
	}

	latest := s.Records[0]
	for _, rec := range s.Records[1:] {
		if rec.Time.After(latest.Time) {
			latest = rec
		}
	}
	return latest, true
}

// parseRecordTimes stamps Time on each record, interpreting the source date
// string in the controller's zone.
func parseRecordTimes(records []Record, loc *time.Location) error {
	for i := range records {
		ts, err := time.ParseInLocation(DateLayout, records[i].Date, loc)
		if err != nil {
			return fmt.Errorf("invalid record date %q: %w", records[i].Date, err)
		}
		records[i].Time = ts
	}
	return nil
}

func parseOutletTimes(records []OutletRecord, loc *time.Location) error {
	for i := range records {
		ts, err := time.ParseInLocation(DateLayout, records[i].Date, loc)
		if err != nil {
			return fmt.Errorf("invalid outlet date %q: %w", records[i].Date, err)
		}
		records[i].Time = ts
	}
	return nil
}

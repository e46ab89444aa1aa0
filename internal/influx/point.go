package influx

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Point is one write unit: measurement, tags, fields and a timestamp.
// The store deduplicates on the full tag set plus timestamp, which is what
// makes every writer in this system safe to repeat.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]interface{}
	Time        time.Time
}

// EncodeLine renders the point as a line-protocol line at second precision.
// Non-finite float fields are dropped; ok is false when no fields survive,
// in which case the point must be skipped entirely.
func (p *Point) EncodeLine() (string, bool) {
	var sb strings.Builder
	sb.WriteString(escapeMeasurement(p.Measurement))

	tagKeys := make([]string, 0, len(p.Tags))
	for k := range p.Tags {
		tagKeys = append(tagKeys, k)
	}
	sort.Strings(tagKeys)
	for _, k := range tagKeys {
		sb.WriteByte(',')
		sb.WriteString(escapeTag(k))
		sb.WriteByte('=')
		sb.WriteString(escapeTag(p.Tags[k]))
	}

	fieldKeys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		fieldKeys = append(fieldKeys, k)
	}
	sort.Strings(fieldKeys)

	wrote := false
	for _, k := range fieldKeys {
		val, ok := formatField(p.Fields[k])
		if !ok {
			continue
		}
		if wrote {
			sb.WriteByte(',')
		} else {
			sb.WriteByte(' ')
		}
		sb.WriteString(escapeTag(k))
		sb.WriteByte('=')
		sb.WriteString(val)
		wrote = true
	}
	if !wrote {
		return "", false
	}

	sb.WriteByte(' ')
	sb.WriteString(strconv.FormatInt(p.Time.Unix(), 10))
	return sb.String(), true
}

func formatField(v interface{}) (string, bool) {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return "", false
		}
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val) + "i", true
	case int64:
		return strconv.FormatInt(val, 10) + "i", true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

func escapeMeasurement(s string) string {
	s = strings.ReplaceAll(s, ",", `\,`)
	return strings.ReplaceAll(s, " ", `\ `)
}

func escapeTag(s string) string {
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "=", `\=`)
	return strings.ReplaceAll(s, " ", `\ `)
}

// SortByTime orders points chronologically ascending. The write path sorts
// every batch before sending so the store always sees time-ordered input.
func SortByTime(points []Point) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
}

// Package timeparse normalizes the heterogeneous timestamp encodings seen in
// listing-API payloads (ISO-8601 with or without a zone, epoch seconds, epoch
// milliseconds, numeric strings) into canonical UTC instants.
package timeparse

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Magnitude thresholds for the epoch heuristic: values above epochMillisMin
// are read as milliseconds, values above epochSecondsMin as seconds. Anything
// smaller is not a plausible timestamp.
const (
	epochMillisMin  = 1e12
	epochSecondsMin = 1e9
)

// isoLayouts are the string layouts tried in order after RFC3339.
var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize converts raw into a UTC instant. It accepts native times,
// numeric epoch values, numeric strings, and ISO-8601 strings; a string
// without a zone designator is read as UTC, never as local time. It is pure
// and total: it never panics and reports ok=false for anything it cannot
// interpret, so callers can skip unparseable records without aborting a
// batch.
func Normalize(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v.UTC(), true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return Normalize(*v)
	case json.Number:
		return normalizeString(v.String())
	case string:
		return normalizeString(v)
	case float64:
		return fromEpoch(v)
	case float32:
		return fromEpoch(float64(v))
	case int:
		return fromEpoch(float64(v))
	case int32:
		return fromEpoch(float64(v))
	case int64:
		return fromEpoch(float64(v))
	case uint64:
		return fromEpoch(float64(v))
	default:
		return time.Time{}, false
	}
}

func normalizeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// Numeric strings get the same epoch heuristic as numbers.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpoch(f)
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			// Layouts without a zone designator are read as UTC.
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func fromEpoch(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	abs := math.Abs(f)
	switch {
	case abs > epochMillisMin:
		return time.UnixMilli(int64(f)).UTC(), true
	case abs > epochSecondsMin:
		return time.Unix(int64(f), 0).UTC(), true
	default:
		return time.Time{}, false
	}
}

package domain

import (
	"fmt"
	"time"
)

// windowLayouts are the accepted wall-clock formats for window bounds, tried
// in order.
var windowLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
}

// TimeWindow is a half-open UTC interval [Start, End). Start is inclusive and
// End is exclusive so adjacent windows never both claim the boundary instant.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// NewTimeWindow converts a local wall-clock start/end pair in the given IANA
// zone into a UTC TimeWindow. It returns ErrInvalidWindow when end <= start
// after conversion. All downstream comparisons operate on the UTC instants
// only; this is the single place local-time semantics are pinned down.
func NewTimeWindow(startLocal, endLocal string, loc *time.Location) (TimeWindow, error) {
	if loc == nil {
		loc = time.UTC
	}

	start, err := parseLocal(startLocal, loc)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("domain: window start %q: %w", startLocal, ErrInvalidWindow)
	}
	end, err := parseLocal(endLocal, loc)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("domain: window end %q: %w", endLocal, ErrInvalidWindow)
	}

	w := TimeWindow{Start: start.UTC(), End: end.UTC()}
	if !w.End.After(w.Start) {
		return TimeWindow{}, fmt.Errorf("domain: end %s <= start %s: %w",
			w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339), ErrInvalidWindow)
	}
	return w, nil
}

// WindowEndingAt builds a lookback window [end-d, end). It returns
// ErrInvalidWindow for non-positive durations.
func WindowEndingAt(end time.Time, d time.Duration) (TimeWindow, error) {
	if d <= 0 {
		return TimeWindow{}, fmt.Errorf("domain: lookback %s: %w", d, ErrInvalidWindow)
	}
	end = end.UTC()
	return TimeWindow{Start: end.Add(-d), End: end}, nil
}

// Contains reports whether t lies inside the half-open interval.
func (w TimeWindow) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(w.Start) && t.Before(w.End)
}

func parseLocal(s string, loc *time.Location) (time.Time, error) {
	var lastErr error
	for _, layout := range windowLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

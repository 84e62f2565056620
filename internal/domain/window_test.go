package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewTimeWindow_ConvertsToUTC(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	// CET (UTC+1) in January.
	w, err := NewTimeWindow("2024-01-01 10:00", "2024-01-01 10:05", madrid)
	if err != nil {
		t.Fatalf("NewTimeWindow: %v", err)
	}

	wantStart := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 1, 1, 9, 5, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) || !w.End.Equal(wantEnd) {
		t.Fatalf("window = [%s, %s), want [%s, %s)", w.Start, w.End, wantStart, wantEnd)
	}
}

func TestNewTimeWindow_Invalid(t *testing.T) {
	cases := []struct{ start, end string }{
		{"2024-01-01 10:05", "2024-01-01 10:00"}, // end before start
		{"2024-01-01 10:00", "2024-01-01 10:00"}, // empty interval
		{"garbage", "2024-01-01 10:00"},
		{"2024-01-01 10:00", "garbage"},
	}
	for _, c := range cases {
		if _, err := NewTimeWindow(c.start, c.end, time.UTC); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("NewTimeWindow(%q, %q): err = %v, want ErrInvalidWindow", c.start, c.end, err)
		}
	}
}

func TestTimeWindow_HalfOpen(t *testing.T) {
	w, err := NewTimeWindow("2024-01-01 00:00", "2024-01-01 00:05", time.UTC)
	if err != nil {
		t.Fatalf("NewTimeWindow: %v", err)
	}

	if !w.Contains(w.Start) {
		t.Fatal("start instant must be included")
	}
	if w.Contains(w.End) {
		t.Fatal("end instant must be excluded")
	}
	if !w.Contains(w.End.Add(-time.Second)) {
		t.Fatal("instant just before end must be included")
	}
	if w.Contains(w.Start.Add(-time.Second)) {
		t.Fatal("instant before start must be excluded")
	}
}

func TestWindowEndingAt(t *testing.T) {
	end := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	w, err := WindowEndingAt(end, 6*time.Hour)
	if err != nil {
		t.Fatalf("WindowEndingAt: %v", err)
	}
	if !w.Start.Equal(end.Add(-6 * time.Hour)) || !w.End.Equal(end) {
		t.Fatalf("unexpected window [%s, %s)", w.Start, w.End)
	}

	if _, err := WindowEndingAt(end, 0); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("zero lookback: err = %v, want ErrInvalidWindow", err)
	}
}

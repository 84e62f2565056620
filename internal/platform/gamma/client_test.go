package gamma

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/slotclaim/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustWindow(t *testing.T, start, end string) domain.TimeWindow {
	t.Helper()
	w, err := domain.NewTimeWindow(start, end, time.UTC)
	if err != nil {
		t.Fatalf("NewTimeWindow: %v", err)
	}
	return w
}

func marketJSON(slug, start string) string {
	return fmt.Sprintf(`{
		"slug": %q,
		"question": "Will it go up?",
		"startDate": %q,
		"closed": "true",
		"conditionId": "0x1111111111111111111111111111111111111111111111111111111111111111",
		"outcomes": "[\"Up\",\"Down\"]",
		"clobTokenIds": "[\"101\",\"102\"]"
	}`, slug, start)
}

func TestListMarketsInWindow_FiltersHalfOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" {
			fmt.Fprint(w, "[]")
			return
		}
		fmt.Fprintf(w, "[%s,%s,%s,%s,%s]",
			marketJSON("btc-updown-5m-a", "2023-12-31T23:55:00Z"), // before window
			marketJSON("btc-updown-5m-b", "2024-01-01T00:00:00Z"), // start inclusive
			marketJSON("btc-updown-5m-c", "2024-01-01T00:04:59Z"), // inside
			marketJSON("btc-updown-5m-d", "2024-01-01T00:05:00Z"), // end exclusive
			marketJSON("eth-updown-5m-x", "2024-01-01T00:01:00Z"), // wrong prefix
		)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	window := mustWindow(t, "2024-01-01 00:00", "2024-01-01 00:05")

	got, err := client.ListMarketsInWindow(context.Background(), window, ListParams{
		SlugPrefix: "btc-updown-5m-",
	})
	if err != nil {
		t.Fatalf("ListMarketsInWindow: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("matched %d markets, want 2: %+v", len(got), got)
	}
	if got[0].Slug != "btc-updown-5m-b" || got[1].Slug != "btc-updown-5m-c" {
		t.Fatalf("unexpected slugs: %q, %q", got[0].Slug, got[1].Slug)
	}
}

func TestListMarketsInWindow_SkipsUnparseableSlotStart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" {
			fmt.Fprint(w, "[]")
			return
		}
		fmt.Fprintf(w, "[%s,%s]",
			marketJSON("btc-updown-5m-bad", "not-a-timestamp"),
			marketJSON("btc-updown-5m-ok", "2024-01-01T00:01:00Z"),
		)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	window := mustWindow(t, "2024-01-01 00:00", "2024-01-01 00:05")

	got, err := client.ListMarketsInWindow(context.Background(), window, ListParams{})
	if err != nil {
		t.Fatalf("ListMarketsInWindow: %v", err)
	}
	if len(got) != 1 || got[0].Slug != "btc-updown-5m-ok" {
		t.Fatalf("got %+v, want only the parseable market", got)
	}
}

func TestListMarketsInWindow_PaginatesUntilShortPage(t *testing.T) {
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		requests = append(requests, offset)
		switch offset {
		case "0":
			fmt.Fprintf(w, "[%s,%s]",
				marketJSON("btc-updown-5m-a", "2024-01-01T00:00:00Z"),
				marketJSON("btc-updown-5m-b", "2024-01-01T00:01:00Z"))
		case "2":
			// Short page, one record with limit 2, ends pagination.
			fmt.Fprintf(w, "[%s]",
				marketJSON("btc-updown-5m-c", "2024-01-01T00:02:00Z"))
		default:
			t.Errorf("unexpected offset %s", offset)
			fmt.Fprint(w, "[]")
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	window := mustWindow(t, "2024-01-01 00:00", "2024-01-01 00:05")

	got, err := client.ListMarketsInWindow(context.Background(), window, ListParams{PageSize: 2})
	if err != nil {
		t.Fatalf("ListMarketsInWindow: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("matched %d markets, want 3", len(got))
	}
	if len(requests) != 2 {
		t.Fatalf("made %d requests, want 2 (offsets %v)", len(requests), requests)
	}
}

func TestListMarketsInWindow_StopsAtMaxRecords(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		// Always serve a full page; only MaxRecords can stop the loop.
		fmt.Fprintf(w, "[%s,%s]",
			marketJSON("btc-updown-5m-a", "2024-01-01T00:00:00Z"),
			marketJSON("btc-updown-5m-b", "2024-01-01T00:01:00Z"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	window := mustWindow(t, "2024-01-01 00:00", "2024-01-01 00:05")

	if _, err := client.ListMarketsInWindow(context.Background(), window, ListParams{
		PageSize:   2,
		MaxRecords: 6,
	}); err != nil {
		t.Fatalf("ListMarketsInWindow: %v", err)
	}
	if requests != 3 {
		t.Fatalf("made %d requests, want 3", requests)
	}
}

func TestListMarketsInWindow_ShortCircuitsPastWindowEnd(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprintf(w, "[%s,%s]",
			marketJSON("btc-updown-5m-a", "2024-01-01T00:01:00Z"),
			marketJSON("btc-updown-5m-b", "2024-01-01T00:10:00Z")) // past window end
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	window := mustWindow(t, "2024-01-01 00:00", "2024-01-01 00:05")

	got, err := client.ListMarketsInWindow(context.Background(), window, ListParams{
		PageSize:         2,
		ServerTimeFilter: true,
	})
	if err != nil {
		t.Fatalf("ListMarketsInWindow: %v", err)
	}
	if len(got) != 1 || got[0].Slug != "btc-updown-5m-a" {
		t.Fatalf("got %+v, want only the in-window market", got)
	}
	if requests != 1 {
		t.Fatalf("made %d requests, want 1 (ascending short-circuit)", requests)
	}
}

func TestListMarketsInWindow_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	window := mustWindow(t, "2024-01-01 00:00", "2024-01-01 00:05")

	_, err := client.ListMarketsInWindow(context.Background(), window, ListParams{})
	if !errors.Is(err, domain.ErrListingUnavailable) {
		t.Fatalf("err = %v, want ErrListingUnavailable", err)
	}
}

func TestListMarketsInWindow_NonListBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": "unexpected shape"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	window := mustWindow(t, "2024-01-01 00:00", "2024-01-01 00:05")

	_, err := client.ListMarketsInWindow(context.Background(), window, ListParams{})
	if !errors.Is(err, domain.ErrListingUnavailable) {
		t.Fatalf("err = %v, want ErrListingUnavailable", err)
	}
}

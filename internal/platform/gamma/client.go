// Package gamma lists Polymarket markets through the Gamma REST API and
// filters them down to the slot markets a settlement run cares about.
package gamma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/slotclaim/internal/domain"
)

const (
	defaultPageSize   = 200
	defaultMaxRecords = 2000
	requestTimeout    = 30 * time.Second
)

// ListParams controls a ListMarketsInWindow call.
type ListParams struct {
	// SlugPrefix keeps only markets whose slug starts with this prefix.
	// Empty keeps everything.
	SlugPrefix string
	// PageSize is the per-request limit. Zero uses the default.
	PageSize int
	// MaxRecords bounds the total records fetched across pages. Zero uses
	// the default.
	MaxRecords int
	// ServerTimeFilter sends start_date_min/max so the API narrows results
	// before pagination. It also enables the ascending short-circuit: once
	// a page yields a market starting at or after the window end, later
	// pages cannot contain matches. The short-circuit is trusted only when
	// the time filter is in force; a prefix-only listing pages through
	// unrelated series whose ordering says nothing about the window, so it
	// terminates via short page or MaxRecords instead.
	ServerTimeFilter bool
}

// Client is a minimal Gamma API client for market listing.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a Gamma client against the given host, e.g.
// "https://gamma-api.polymarket.com".
func NewClient(host string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(host, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger.With(slog.String("component", "gamma")),
	}
}

// ListMarketsInWindow fetches markets page by page, ordered ascending by
// slot start, and returns those whose slot start lies inside window (half
// open, start inclusive). Records without a parseable slot start are skipped.
// Transport failures, non-2xx responses, and bodies that are not a JSON list
// wrap domain.ErrListingUnavailable and fail the whole call.
func (c *Client) ListMarketsInWindow(ctx context.Context, window domain.TimeWindow, params ListParams) ([]domain.MarketInstance, error) {
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	maxRecords := params.MaxRecords
	if maxRecords <= 0 {
		maxRecords = defaultMaxRecords
	}

	var (
		out     []domain.MarketInstance
		fetched int
		skipped int
	)

	for offset := 0; fetched < maxRecords; offset += pageSize {
		page, err := c.fetchPage(ctx, window, params, pageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		fetched += len(page)

		pastWindow := false
		for i := range page {
			m := page[i].ToMarketInstance()
			if params.SlugPrefix != "" && !strings.HasPrefix(m.Slug, params.SlugPrefix) {
				continue
			}
			if m.SlotStart == nil {
				skipped++
				c.logger.Warn("skipping market with unparseable slot start", slog.String("slug", m.Slug))
				continue
			}
			if params.ServerTimeFilter && !m.SlotStart.Before(window.End) {
				// Ascending order: everything after this is outside too.
				pastWindow = true
				break
			}
			if !window.Contains(*m.SlotStart) {
				continue
			}
			out = append(out, m)
		}
		if pastWindow || len(page) < pageSize {
			break
		}
	}

	c.logger.Debug("listing complete",
		slog.Int("fetched", fetched),
		slog.Int("matched", len(out)),
		slog.Int("skipped", skipped))
	return out, nil
}

// fetchPage performs one paginated GET /markets request.
func (c *Client) fetchPage(ctx context.Context, window domain.TimeWindow, params ListParams, limit, offset int) ([]APIMarket, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("order", "startDate")
	q.Set("ascending", "true")
	q.Set("archived", "false")
	if params.ServerTimeFilter {
		q.Set("start_date_min", window.Start.UTC().Format(time.RFC3339))
		q.Set("start_date_max", window.End.UTC().Format(time.RFC3339))
	}

	reqURL := c.baseURL + "/markets?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("gamma: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gamma: request markets: %v: %w", err, domain.ErrListingUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("gamma: markets returned %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(body)), domain.ErrListingUnavailable)
	}

	var page []APIMarket
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("gamma: decode markets response: %v: %w", err, domain.ErrListingUnavailable)
	}
	return page, nil
}

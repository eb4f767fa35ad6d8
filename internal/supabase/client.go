// Package supabase talks to the upstream PostgREST row store. It is a
// read-only client: bounded single-page fetches and exact counts, no
// retries, no pagination.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"resort-insights-mcp/internal/apperrors"
	"resort-insights-mcp/internal/config"
	"resort-insights-mcp/internal/logging"
	"resort-insights-mcp/internal/query"
)

// Upstream table names.
const (
	TableMembers          = "fact_member"
	TableResorts          = "fact_resort"
	TableFeedback         = "fact_feedback"
	TableEvents           = "fact_event"
	TableMemberAggregates = "fact_member_aggregated"
	TableResortAggregates = "fact_resort_aggregated"
)

// KnownTables lists the tables callers may query by name.
var KnownTables = []string{
	TableMembers,
	TableResorts,
	TableFeedback,
	TableEvents,
	TableMemberAggregates,
	TableResortAggregates,
}

// IsKnownTable reports whether callers may address the table.
func IsKnownTable(name string) bool {
	for _, t := range KnownTables {
		if t == name {
			return true
		}
	}
	return false
}

// Options shape one fetch: page size, ordering, and column projection.
// Zero values mean upstream defaults (limit falls back to the
// configured bound).
type Options struct {
	Limit  int
	Order  string
	Select string
}

// Client is the HTTP client for the row store.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	defaultLimit int
	logger       logging.Logger
}

// NewClient builds a client from configuration.
func NewClient(cfg config.SupabaseConfig, logger logging.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		defaultLimit: cfg.FetchLimit,
		logger:       logger,
	}
}

// Fetch retrieves one bounded page of rows from a table. Every call is
// capped: when the caller gives no limit, the configured default
// applies.
func (c *Client) Fetch(ctx context.Context, table string, params query.Params, opts Options) ([]Row, error) {
	merged := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			merged.Add(k, v)
		}
	}
	sel := opts.Select
	if sel == "" {
		sel = "*"
	}
	merged.Set("select", sel)
	if opts.Order != "" {
		merged.Set("order", opts.Order)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = c.defaultLimit
	}
	merged.Set("limit", strconv.Itoa(limit))

	reqURL := c.baseURL + "/" + table + "?" + merged.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperrors.WrapUpstream(err, "building request for "+table)
	}
	c.setHeaders(req)
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.WrapUpstream(err, "fetching "+table)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.NewUpstream(resp.StatusCode,
			fmt.Sprintf("fetching %s: %s", table, strings.TrimSpace(string(body))))
	}

	var rows []Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, apperrors.WrapUpstream(err, "decoding "+table+" response")
	}

	c.logger.Debug("fetched rows", "table", table, "count", len(rows))
	return rows, nil
}

// Count returns the exact row count for a predicate set. It issues a
// HEAD request with Prefer: count=exact and reads the Content-Range
// tail; when anything about that path fails it falls back to fetching
// the page and counting it.
func (c *Client) Count(ctx context.Context, table string, params query.Params) (int, error) {
	merged := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			merged.Add(k, v)
		}
	}
	merged.Set("select", "*")

	reqURL := c.baseURL + "/" + table + "?" + merged.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, reqURL, nil)
	if err != nil {
		return 0, apperrors.WrapUpstream(err, "building count request for "+table)
	}
	c.setHeaders(req)
	req.Header.Set("Prefer", "count=exact")

	resp, err := c.httpClient.Do(req)
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if n, ok := parseContentRangeTotal(resp.Header.Get("Content-Range")); ok {
				return n, nil
			}
		}
	}

	c.logger.Debug("exact count unavailable, falling back to fetch", "table", table)
	rows, err := c.Fetch(ctx, table, params, Options{})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

// parseContentRangeTotal reads the total from a "0-24/3573" style
// header value. A "*" total means the upstream declined to count.
func parseContentRangeTotal(header string) (int, bool) {
	idx := strings.LastIndex(header, "/")
	if idx < 0 {
		return 0, false
	}
	tail := header[idx+1:]
	if tail == "" || tail == "*" {
		return 0, false
	}
	n, err := strconv.Atoi(tail)
	if err != nil {
		return 0, false
	}
	return n, true
}

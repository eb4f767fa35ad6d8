// Package eventsearch queries an external web search index for
// real-world events (weather, festivals, local news) that the insight
// engines surface as context.
package eventsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"resort-insights-mcp/internal/apperrors"
	"resort-insights-mcp/internal/config"
	"resort-insights-mcp/internal/logging"
)

// Request describes one event search. Count and Country fall back to
// configured defaults when zero.
type Request struct {
	Query     string
	StartDate string
	EndDate   string
	Count     int
	Country   string
}

// Client calls the search index.
type Client struct {
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	defaultCount   int
	defaultCountry string
	logger         logging.Logger
}

// NewClient builds a client from configuration.
func NewClient(cfg config.EventSearchConfig, logger logging.Logger) *Client {
	return &Client{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		httpClient:     &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		defaultCount:   cfg.DefaultCount,
		defaultCountry: cfg.DefaultCountry,
		logger:         logger,
	}
}

// Search runs the query and returns the raw decoded response body.
// The index's result shape is passed through untouched so callers see
// exactly what the provider returned.
func (c *Client) Search(ctx context.Context, req Request) (map[string]interface{}, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, apperrors.NewValidation("query parameter is required")
	}

	count := req.Count
	if count <= 0 {
		count = c.defaultCount
	}
	country := req.Country
	if country == "" {
		country = c.defaultCountry
	}

	params := url.Values{}
	params.Set("query", req.Query)
	params.Set("count", strconv.Itoa(count))
	params.Set("safesearch", "strict")
	params.Set("livecrawl", "all")
	if country != "" {
		params.Set("country", country)
	}
	if freshness := freshnessRange(req.StartDate, req.EndDate); freshness != "" {
		params.Set("freshness", freshness)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, apperrors.WrapUpstream(err, "building event search request")
	}
	httpReq.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.WrapUpstream(err, "event search request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.NewUpstream(resp.StatusCode,
			"event search: "+strings.TrimSpace(string(body)))
	}

	var data map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, apperrors.WrapUpstream(err, "decoding event search response")
	}

	c.logger.Debug("event search completed", "query", req.Query, "count", count)
	return data, nil
}

// freshnessRange builds the "YYYY-MM-DDtoYYYY-MM-DD" freshness value.
// A single supplied date bounds both ends.
func freshnessRange(start, end string) string {
	switch {
	case start != "" && end != "":
		return start + "to" + end
	case start != "":
		return start + "to" + start
	case end != "":
		return end + "to" + end
	default:
		return ""
	}
}

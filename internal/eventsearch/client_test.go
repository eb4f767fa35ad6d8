package eventsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resort-insights-mcp/internal/apperrors"
	"resort-insights-mcp/internal/config"
	"resort-insights-mcp/internal/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.EventSearchConfig{
		BaseURL:        srv.URL,
		APIKey:         "search-key",
		DefaultCount:   5,
		DefaultCountry: "IN",
		TimeoutSeconds: 5,
	}, logging.NewNoop())
}

func TestSearch(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		w.Write([]byte(`{"hits":[{"title":"Cyclone warning for coastal Goa"}]}`))
	})

	data, err := c.Search(context.Background(), Request{
		Query:     "weather events in goa",
		StartDate: "2024-03-01",
		EndDate:   "2024-03-31",
	})
	require.NoError(t, err)
	assert.Contains(t, data, "hits")

	q := got.URL.Query()
	assert.Equal(t, "weather events in goa", q.Get("query"))
	assert.Equal(t, "5", q.Get("count"), "default count applies")
	assert.Equal(t, "strict", q.Get("safesearch"))
	assert.Equal(t, "all", q.Get("livecrawl"))
	assert.Equal(t, "IN", q.Get("country"))
	assert.Equal(t, "2024-03-01to2024-03-31", q.Get("freshness"))
	assert.Equal(t, "search-key", got.Header.Get("X-API-Key"))
}

func TestSearchEmptyQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := c.Search(context.Background(), Request{Query: "  "})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestSearchUpstreamFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	_, err := c.Search(context.Background(), Request{Query: "festivals in kerala"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
}

func TestFreshnessRange(t *testing.T) {
	assert.Equal(t, "2024-01-01to2024-01-31", freshnessRange("2024-01-01", "2024-01-31"))
	assert.Equal(t, "2024-01-01to2024-01-01", freshnessRange("2024-01-01", ""))
	assert.Equal(t, "2024-01-31to2024-01-31", freshnessRange("", "2024-01-31"))
	assert.Equal(t, "", freshnessRange("", ""))
}

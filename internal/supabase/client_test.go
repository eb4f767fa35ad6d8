package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resort-insights-mcp/internal/apperrors"
	"resort-insights-mcp/internal/config"
	"resort-insights-mcp/internal/logging"
	"resort-insights-mcp/internal/query"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(config.SupabaseConfig{
		URL:            srv.URL,
		APIKey:         "test-key",
		TimeoutSeconds: 5,
		FetchLimit:     10000,
	}, logging.NewNoop())
	return c, srv
}

func TestFetchSendsAuthAndLimit(t *testing.T) {
	var gotReq *http.Request
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(r.Context())
		json.NewEncoder(w).Encode([]Row{{"id": float64(1)}})
	}))

	rows, err := c.Fetch(context.Background(), TableMembers, query.Params{}, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "/fact_member", gotReq.URL.Path)
	assert.Equal(t, "test-key", gotReq.Header.Get("apikey"))
	assert.Equal(t, "Bearer test-key", gotReq.Header.Get("Authorization"))
	assert.Equal(t, "return=representation", gotReq.Header.Get("Prefer"))
	assert.Equal(t, "10000", gotReq.URL.Query().Get("limit"))
	assert.Equal(t, "*", gotReq.URL.Query().Get("select"))
}

func TestFetchOptions(t *testing.T) {
	var gotQuery string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode([]Row{})
	}))

	_, err := c.Fetch(context.Background(), TableResorts, query.Params{}, Options{
		Limit:  50,
		Order:  "total_revenue.desc",
		Select: "resort_name,total_revenue",
	})
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "limit=50")
	assert.Contains(t, gotQuery, "order=total_revenue.desc")
	assert.Contains(t, gotQuery, "select=resort_name%2Ctotal_revenue")
}

func TestFetchUpstreamError(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"permission denied"}`, http.StatusUnauthorized)
	}))

	_, err := c.Fetch(context.Background(), TableMembers, query.Params{}, Options{})
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))

	var ue *apperrors.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusUnauthorized, ue.Status)
	assert.Contains(t, ue.Message, "permission denied")
}

func TestCountFromContentRange(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		w.Header().Set("Content-Range", "0-24/3573")
		w.WriteHeader(http.StatusOK)
	}))

	n, err := c.Count(context.Background(), TableFeedback, query.Params{})
	require.NoError(t, err)
	assert.Equal(t, 3573, n)
}

func TestCountFallsBackToFetch(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			// No Content-Range header at all.
			w.WriteHeader(http.StatusOK)
			return
		}
		json.NewEncoder(w).Encode([]Row{{"id": float64(1)}, {"id": float64(2)}})
	}))

	n, err := c.Count(context.Background(), TableFeedback, query.Params{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestParseContentRangeTotal(t *testing.T) {
	tests := []struct {
		header string
		want   int
		ok     bool
	}{
		{"0-24/3573", 3573, true},
		{"*/0", 0, true},
		{"0-9/*", 0, false},
		{"", 0, false},
		{"garbage", 0, false},
	}
	for _, tt := range tests {
		n, ok := parseContentRangeTotal(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, n, tt.header)
	}
}

// fakeUpstream evaluates the predicate grammar against seeded rows so
// compiled filters can be verified end to end.
type fakeUpstream struct {
	tables map[string][]Row
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	table := strings.TrimPrefix(r.URL.Path, "/")
	rows := f.tables[table]

	var matched []Row
	for _, row := range rows {
		if f.matches(row, r.URL.Query()) {
			matched = append(matched, row)
		}
	}

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Range", fmt.Sprintf("0-%d/%d", len(matched), len(matched)))
		w.WriteHeader(http.StatusOK)
		return
	}
	if matched == nil {
		matched = []Row{}
	}
	json.NewEncoder(w).Encode(matched)
}

func (f *fakeUpstream) matches(row Row, params map[string][]string) bool {
	for field, preds := range params {
		if field == "select" || field == "order" || field == "limit" {
			continue
		}
		for _, pred := range preds {
			if !f.matchPredicate(row, field, pred) {
				return false
			}
		}
	}
	return true
}

func (f *fakeUpstream) matchPredicate(row Row, field, pred string) bool {
	dot := strings.Index(pred, ".")
	if dot < 0 {
		return false
	}
	op, operand := pred[:dot], pred[dot+1:]

	switch op {
	case "eq":
		return fmt.Sprintf("%v", row[field]) == operand
	case "neq":
		return fmt.Sprintf("%v", row[field]) != operand
	case "gt", "gte", "lt", "lte":
		want, err := strconv.ParseFloat(operand, 64)
		if err != nil {
			// Date bounds compare lexically.
			s := row.Str(field)
			switch op {
			case "gt":
				return s > operand
			case "gte":
				return s >= operand
			case "lt":
				return s < operand
			default:
				return s <= operand
			}
		}
		got := row.Num(field)
		switch op {
		case "gt":
			return got > want
		case "gte":
			return got >= want
		case "lt":
			return got < want
		default:
			return got <= want
		}
	case "ilike":
		needle := strings.ToLower(strings.Trim(operand, "%"))
		return strings.Contains(strings.ToLower(row.Str(field)), needle)
	case "like":
		needle := strings.Trim(operand, "%")
		return strings.Contains(row.Str(field), needle)
	case "is":
		if operand == "null" {
			return !row.Has(field)
		}
		return fmt.Sprintf("%v", row[field]) == operand
	case "in":
		list := strings.Trim(operand, "()")
		for _, item := range strings.Split(list, ",") {
			item = strings.Trim(item, `"`)
			if fmt.Sprintf("%v", row[field]) == item {
				return true
			}
		}
		return false
	}
	return false
}

func TestFilterRoundTrip(t *testing.T) {
	upstream := &fakeUpstream{tables: map[string][]Row{
		TableMembers: {
			{"member_id": "M1", "membership_status": "Active", "lifetime_value_inr": float64(250000), "home_region": "Goa"},
			{"member_id": "M2", "membership_status": "Active", "lifetime_value_inr": float64(900000), "home_region": "Kerala"},
			{"member_id": "M3", "membership_status": "Inactive", "lifetime_value_inr": float64(120000), "home_region": "Goa"},
		},
		TableResorts: {
			{"resort_name": "Acacia Palms", "region": "South Goa", "check_in_date": "2024-03-05"},
			{"resort_name": "Emerald Bay", "region": "Kerala", "check_in_date": "2024-01-20"},
		},
	}}
	c, _ := testClient(t, upstream)
	ctx := context.Background()

	t.Run("eq literal", func(t *testing.T) {
		filters, err := query.ParseFilters(map[string]interface{}{"membership_status": "Active"})
		require.NoError(t, err)
		rows, err := c.Fetch(ctx, TableMembers, filters.Compile(), Options{})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("gte operator", func(t *testing.T) {
		filters, err := query.ParseFilters(map[string]interface{}{
			"lifetime_value_inr": map[string]interface{}{"operator": "gte", "value": float64(300000)},
		})
		require.NoError(t, err)
		rows, err := c.Fetch(ctx, TableMembers, filters.Compile(), Options{})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "M2", rows[0].Str("member_id"))
	})

	t.Run("in list", func(t *testing.T) {
		filters, err := query.ParseFilters(map[string]interface{}{
			"home_region": map[string]interface{}{
				"operator": "in",
				"value":    []interface{}{"Goa", "Kerala"},
			},
		})
		require.NoError(t, err)
		rows, err := c.Fetch(ctx, TableMembers, filters.Compile(), Options{})
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("ilike pattern", func(t *testing.T) {
		filters, err := query.ParseFilters(map[string]interface{}{
			"resort_name": map[string]interface{}{"operator": "ilike", "value": "acacia"},
		})
		require.NoError(t, err)
		rows, err := c.Fetch(ctx, TableResorts, filters.Compile(), Options{})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Acacia Palms", rows[0].Str("resort_name"))
	})

	t.Run("date range repeated keys", func(t *testing.T) {
		filters, err := query.ParseFilters(map[string]interface{}{
			"check_in_date": map[string]interface{}{"gte": "2024-03-01", "lte": "2024-03-31"},
		})
		require.NoError(t, err)
		rows, err := c.Fetch(ctx, TableResorts, filters.Compile(), Options{})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Acacia Palms", rows[0].Str("resort_name"))
	})

	t.Run("count through predicates", func(t *testing.T) {
		filters, err := query.ParseFilters(map[string]interface{}{"membership_status": "Inactive"})
		require.NoError(t, err)
		n, err := c.Count(ctx, TableMembers, filters.Compile())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestRowAccessors(t *testing.T) {
	r := Row{
		"resort_name":        "Acacia Palms",
		"total_revenue_inr":  float64(500000),
		"occupancy_rate_perc": float64(72.5),
		"nps":                "8",
		"csat":               nil,
	}

	assert.Equal(t, "Acacia Palms", r.Str("resort_name"))
	assert.Equal(t, float64(500000), r.Revenue(), "synonym resolution")
	assert.Equal(t, 72.5, r.Occupancy())
	assert.Equal(t, float64(8), r.Num("nps"), "numeric strings parse")
	assert.Equal(t, float64(0), r.Num("csat"), "nil is 0")
	assert.Equal(t, float64(0), r.Num("missing"))
	assert.False(t, r.Has("csat"))
}

package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resort-insights-mcp/internal/apperrors"
	"resort-insights-mcp/internal/config"
	"resort-insights-mcp/internal/eventsearch"
	"resort-insights-mcp/internal/insights"
	"resort-insights-mcp/internal/logging"
	"resort-insights-mcp/internal/query"
	"resort-insights-mcp/internal/supabase"
)

type stubStore struct {
	rows map[string][]supabase.Row
}

func (s *stubStore) Fetch(_ context.Context, table string, _ query.Params, _ supabase.Options) ([]supabase.Row, error) {
	return s.rows[table], nil
}

func (s *stubStore) Count(_ context.Context, table string, _ query.Params) (int, error) {
	return len(s.rows[table]), nil
}

func newTestServer(rows map[string][]supabase.Row) *InsightServer {
	cfg := config.DefaultConfig()
	logger := logging.NewNoop()
	engine := insights.NewEngine(&stubStore{rows: rows}, logger)
	events := eventsearch.NewClient(cfg.EventSearch, logger)
	return newInsightServer(cfg, engine, events, logger)
}

func TestServerConstruction(t *testing.T) {
	is := newTestServer(nil)
	require.NotNil(t, is.GetMCPServer())
	require.NotNil(t, is.Engine())
	require.NotNil(t, is.EventSearch())
	assert.Len(t, is.ToolNames(), 33)
}

func TestSessionRegistry(t *testing.T) {
	r := newSessionRegistry()
	assert.Equal(t, 0, r.Count())

	id1 := r.Open()
	id2 := r.Open()
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, r.Count())

	r.Close(id1)
	assert.Equal(t, 1, r.Count())
	r.Close(id1)
	assert.Equal(t, 1, r.Count())
}

func TestDecodeArgsWeakTyping(t *testing.T) {
	var a struct {
		Limit int    `mapstructure:"limit"`
		Order string `mapstructure:"order"`
	}
	// JSON numbers decode as float64.
	err := decodeArgs(map[string]interface{}{"limit": float64(25), "order": "id.asc"}, &a)
	require.NoError(t, err)
	assert.Equal(t, 25, a.Limit)
	assert.Equal(t, "id.asc", a.Order)
}

func TestTableHandler(t *testing.T) {
	is := newTestServer(map[string][]supabase.Row{
		supabase.TableMembers: {
			{"member_id": "M1"},
			{"member_id": "M2"},
		},
	})

	h := is.makeTableHandler(supabase.TableMembers)
	out, err := h(context.Background(), map[string]interface{}{})
	require.NoError(t, err)

	result, ok := out.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 2, result["count"])
}

func TestHandlerValidation(t *testing.T) {
	is := newTestServer(nil)

	_, err := is.handleSalesRootCause(context.Background(), map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = is.handleResortFeedbackAnalysis(context.Background(), map[string]interface{}{
		"start_date": "2025-01-01", "end_date": "2025-01-31",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = is.handleAnalyzeData(context.Background(), map[string]interface{}{
		"table": "no_such_table", "operation": "count",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestChurnHandlerThroughEngine(t *testing.T) {
	is := newTestServer(map[string][]supabase.Row{
		supabase.TableMembers: {
			{"member_id": "M1", "is_active": false, "lifetime_value_inr": 100000.0,
				"annual_fee_collection_status": "Due"},
		},
	})

	out, err := is.handleMemberChurnRisk(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	res, ok := out.(*insights.ChurnRiskResult)
	require.True(t, ok)
	require.Len(t, res.AtRiskMembers, 1)
	assert.Equal(t, "high", res.AtRiskMembers[0].RiskLevel)
}

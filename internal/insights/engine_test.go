package insights

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resort-insights-mcp/internal/apperrors"
	"resort-insights-mcp/internal/logging"
	"resort-insights-mcp/internal/query"
	"resort-insights-mcp/internal/supabase"
)

// fakeStore evaluates compiled predicates against seeded rows so the
// engines exercise the same filter grammar they send upstream.
type fakeStore struct {
	tables map[string][]supabase.Row
}

func (s *fakeStore) Fetch(_ context.Context, table string, params query.Params, opts supabase.Options) ([]supabase.Row, error) {
	var out []supabase.Row
	for _, row := range s.tables[table] {
		if matchesAll(row, params) {
			out = append(out, row)
		}
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *fakeStore) Count(ctx context.Context, table string, params query.Params) (int, error) {
	rows, err := s.Fetch(ctx, table, params, supabase.Options{})
	return len(rows), err
}

func matchesAll(row supabase.Row, params query.Params) bool {
	for field, predicates := range params {
		for _, pred := range predicates {
			op, operand, found := strings.Cut(pred, ".")
			if !found {
				return false
			}
			if !matchPredicate(row, field, op, operand) {
				return false
			}
		}
	}
	return true
}

func matchPredicate(row supabase.Row, field, op, operand string) bool {
	raw, present := row[field]
	switch op {
	case "eq":
		return present && scalarString(raw) == operand
	case "neq":
		return !present || scalarString(raw) != operand
	case "gt", "gte", "lt", "lte":
		if !present {
			return false
		}
		return compareOrdered(scalarString(raw), operand, op)
	case "ilike":
		needle := strings.ToLower(strings.Trim(operand, "%"))
		return present && strings.Contains(strings.ToLower(scalarString(raw)), needle)
	case "in":
		list := strings.Trim(operand, "()")
		for _, item := range strings.Split(list, ",") {
			if strings.Trim(item, `"`) == scalarString(raw) {
				return true
			}
		}
		return false
	case "is":
		if operand == "null" {
			return !present || raw == nil
		}
		return false
	default:
		return false
	}
}

func compareOrdered(a, b, op string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch op {
		case "gt":
			return fa > fb
		case "gte":
			return fa >= fb
		case "lt":
			return fa < fb
		}
		return fa <= fb
	}
	// Dates compare lexically.
	switch op {
	case "gt":
		return a > b
	case "gte":
		return a >= b
	case "lt":
		return a < b
	}
	return a <= b
}

func scalarString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

func newTestEngine(tables map[string][]supabase.Row) *Engine {
	e := NewEngine(&fakeStore{tables: tables}, logging.NewNoop())
	e.now = func() time.Time { return time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC) }
	return e
}

func resortRow(name, region, date string, revenue, occupancy float64) supabase.Row {
	return supabase.Row{
		"resort_name":         name,
		"resort_region":       region,
		"activity_date":       date,
		"total_revenue":       revenue,
		"occupied_percentage": occupancy,
		"member_rooms_booked": 10.0,
	}
}

func TestSentimentRules(t *testing.T) {
	negative := supabase.Row{"sentiment": "Negative", "nps_score": 9.0, "csat_score": 5.0}
	assert.True(t, isNegativeFeedback(negative))

	lowNPS := supabase.Row{"nps_score": 4.0, "csat_score": 5.0}
	assert.True(t, isNegativeFeedback(lowNPS))
	assert.True(t, isPositiveFeedback(lowNPS))
	assert.False(t, isStrictNegative(lowNPS))

	unscored := supabase.Row{"issue_details_text": "pool closed"}
	assert.True(t, isNegativeFeedback(unscored))

	happy := supabase.Row{"sentiment": "positive", "nps_score": 10.0, "csat_score": 5.0}
	assert.False(t, isStrictNegative(happy))
	assert.True(t, isLoosePositive(happy))
	assert.False(t, isLooseNegative(happy))

	grumbling := supabase.Row{"nps_score": 6.0}
	assert.True(t, isLooseNegative(grumbling))
}

func TestMonthlySalesComparison(t *testing.T) {
	e := newTestEngine(map[string][]supabase.Row{
		supabase.TableResorts: {
			resortRow("Acacia Palms", "Goa", "2025-05-10", 100000, 80),
			resortRow("Acacia Palms", "Goa", "2025-06-10", 50000, 70),
			resortRow("Banyan Bay", "Kerala", "2025-05-12", 40000, 60),
			resortRow("Banyan Bay", "Kerala", "2025-06-12", 60000, 65),
		},
	})

	res, err := e.MonthlySalesComparison(context.Background(), "2025-05", "2025-06")
	require.NoError(t, err)

	require.Len(t, res.ResortsWithLowSales, 1)
	decline := res.ResortsWithLowSales[0]
	assert.Equal(t, "Acacia Palms", decline.ResortName)
	assert.Equal(t, float64(-50000), decline.RevenueDeltaINR)
	assert.Equal(t, -50.0, decline.PercentageChange)

	require.Len(t, res.ResortsWithIncreasedSales, 1)
	assert.Equal(t, "Banyan Bay", res.ResortsWithIncreasedSales[0].ResortName)
	assert.Equal(t, 50.0, res.ResortsWithIncreasedSales[0].PercentageChange)

	require.NotNil(t, res.Summary.LargestDecline)
	assert.Equal(t, "Acacia Palms", res.Summary.LargestDecline.ResortName)
	assert.Equal(t, 1, res.Summary.TotalResortsWithDecline)
}

func TestSurgeForecastAdmitsGrowingResort(t *testing.T) {
	e := newTestEngine(map[string][]supabase.Row{
		supabase.TableResorts: {
			resortRow("Cedar Cove", "Goa", "2025-05-10", 100000, 60),
			resortRow("Cedar Cove", "Goa", "2025-06-10", 120000, 65),
		},
	})

	res, err := e.SurgeForecast(context.Background(), "2025-07")
	require.NoError(t, err)

	require.Len(t, res.Forecast, 1)
	entry := res.Forecast[0]
	assert.Equal(t, "Cedar Cove", entry.ResortName)
	assert.True(t, entry.ExpectedSurge)
	assert.Equal(t, 20.0, entry.Drivers.TrendRevenuePct)
	assert.Contains(t, strings.Join(entry.Drivers.KeyDrivers, "; "), "Revenue growth of 20.0%")
	require.NotNil(t, res.Summary.TopForecasted)
	assert.Equal(t, "Cedar Cove", res.Summary.TopForecasted.ResortName)
}

func TestSurgeForecastRejectsSteepDecline(t *testing.T) {
	e := newTestEngine(map[string][]supabase.Row{
		supabase.TableResorts: {
			resortRow("Dune Retreat", "Goa", "2025-05-10", 100000, 80),
			resortRow("Dune Retreat", "Goa", "2025-06-10", 50000, 60),
		},
	})

	res, err := e.SurgeForecast(context.Background(), "2025-07")
	require.NoError(t, err)
	assert.Empty(t, res.Forecast)
	assert.Equal(t, 0, res.Summary.TotalResortsForecasted)
}

func TestFeedbackDrag(t *testing.T) {
	e := newTestEngine(map[string][]supabase.Row{
		supabase.TableResorts: {
			resortRow("Acacia Palms", "Goa", "2025-05-10", 100000, 80),
			resortRow("Acacia Palms", "Goa", "2025-06-10", 40000, 55),
		},
		supabase.TableFeedback: {
			{"resort_name": "Acacia Palms", "log_date": "2025-05-20", "nps_score": 3.0, "issue_details_text": "dirty pool area"},
			{"resort_name": "Acacia Palms", "log_date": "2025-05-22", "nps_score": 2.0, "issue_details_text": "pool maintenance pending"},
		},
	})

	res, err := e.FeedbackDrag(context.Background(), "2025-06")
	require.NoError(t, err)

	require.Len(t, res.Impacted, 1)
	entry := res.Impacted[0]
	assert.Equal(t, "Acacia Palms", entry.ResortName)
	assert.Equal(t, -60.0, entry.ChangePct)
	assert.Equal(t, 2, entry.NegativeFeedbackCount)
	require.NotEmpty(t, entry.Themes)
	assert.Equal(t, "pool", entry.Themes[0].Word)
}

func TestMemberChurnRisk(t *testing.T) {
	e := newTestEngine(map[string][]supabase.Row{
		supabase.TableMembers: {
			{
				"member_id": "M1", "membership_tier": "Silver", "home_region": "North",
				"lifetime_value_inr": 100000.0, "is_active": false,
				"last_feedback_nps": 3.0, "annual_fee_collection_status": "Due",
				"last_holiday_date": "2024-06-01", "date_joined": "2020-01-01",
			},
			{
				"member_id": "M2", "membership_tier": "Platinum", "home_region": "South",
				"lifetime_value_inr": 900000.0, "is_active": true,
				"last_feedback_nps": 9.0, "annual_fee_collection_status": "Paid",
				"last_holiday_date": "2025-06-01", "date_joined": "2022-01-01",
			},
		},
	})

	res, err := e.MemberChurnRisk(context.Background(), "")
	require.NoError(t, err)

	require.NotNil(t, res.Summary)
	assert.Equal(t, 2, res.Summary.TotalMembers)
	assert.Equal(t, 1, res.Summary.HighRisk)
	assert.Equal(t, 1, res.Summary.LowRisk)

	require.Len(t, res.AtRiskMembers, 2)
	worst := res.AtRiskMembers[0]
	assert.Equal(t, "M1", worst.MemberID)
	// inactive 30 + low ltv 20 + poor feedback 15 + fee due 25 +
	// stale holiday 10 + long tenure with low value 10.
	assert.Equal(t, 110, worst.RiskScore)
	assert.Equal(t, "high", worst.RiskLevel)
	assert.ElementsMatch(t, []string{"inactive", "low_ltv", "poor_feedback", "payment_due", "no_recent_holiday", "low_engagement"}, worst.RiskFactors)

	highOnly, err := e.MemberChurnRisk(context.Background(), "high")
	require.NoError(t, err)
	require.Len(t, highOnly.AtRiskMembers, 1)
	assert.Equal(t, "M1", highOnly.AtRiskMembers[0].MemberID)
}

func TestMemberLifetimeValue(t *testing.T) {
	e := newTestEngine(map[string][]supabase.Row{
		supabase.TableMembers: {
			{
				"member_id": "M1", "membership_tier": "Silver", "home_region": "North",
				"lifetime_value_inr": 100000.0, "is_active": false,
				"last_feedback_nps": 3.0, "annual_fee_collection_status": "Due",
			},
			{
				"member_id": "M2", "membership_tier": "Gold", "home_region": "North",
				"lifetime_value_inr": 400000.0, "is_active": true,
				"last_feedback_nps": 8.0, "annual_fee_collection_status": "Paid",
				"last_holiday_date": "2025-06-01",
			},
			{
				"member_id": "M3", "membership_tier": "Platinum", "home_region": "South",
				"lifetime_value_inr": 700000.0, "is_active": true,
				"last_feedback_nps": 9.0, "annual_fee_collection_status": "Paid",
				"last_holiday_date": "2025-07-01",
			},
		},
	})

	res, err := e.MemberLifetimeValue(context.Background(), "", "", "", "")
	require.NoError(t, err)

	require.NotNil(t, res.LTVStatistics)
	assert.Equal(t, 3, res.LTVStatistics.TotalMembers)
	assert.Equal(t, 400000.0, res.LTVStatistics.AverageLTV)
	assert.Equal(t, 400000.0, res.LTVStatistics.MedianLTV)
	assert.Equal(t, 100000.0, res.LTVStatistics.MinLTV)
	assert.Equal(t, 700000.0, res.LTVStatistics.MaxLTV)

	require.NotNil(t, res.HighestTier)
	assert.Equal(t, "Platinum", res.HighestTier.Key)
	require.NotNil(t, res.LowestTier)
	assert.Equal(t, "Silver", res.LowestTier.Key)

	require.Len(t, res.AtRiskMembers, 1)
	m1 := res.AtRiskMembers[0]
	assert.Equal(t, "M1", m1.MemberID)
	assert.Contains(t, m1.RiskFactors, "inactive")
	assert.Contains(t, m1.RiskFactors, "low_ltv")
	assert.Contains(t, m1.RiskFactors, "payment_due")
	assert.Contains(t, m1.RiskFactors, "no_recent_holiday")
}

func TestRegionalPerformance(t *testing.T) {
	e := newTestEngine(map[string][]supabase.Row{
		supabase.TableResorts: {
			resortRow("Acacia Palms", "Goa", "2025-06-01", 100000, 80),
			resortRow("Sunset Shores", "Goa", "2025-06-02", 50000, 60),
			resortRow("Banyan Bay", "Kerala", "2025-06-03", 60000, 70),
		},
	})

	res, err := e.RegionalPerformance(context.Background(), "", "")
	require.NoError(t, err)

	require.Len(t, res.Areas, 2)
	goa := res.Areas[0]
	assert.Equal(t, "Goa", goa.Key)
	assert.Equal(t, 150000.0, goa.TotalRevenue)
	assert.Equal(t, 70.0, goa.AverageOccupancy)
	assert.Equal(t, 2, goa.ResortCount)
	assert.Equal(t, 75000.0, goa.AverageRevenuePerResort)
	assert.Equal(t, "Kerala", res.Areas[1].Key)
}

func TestRegionalPerformanceEmpty(t *testing.T) {
	e := newTestEngine(map[string][]supabase.Row{})
	res, err := e.RegionalPerformance(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "No resort data found", res.Message)
}

func TestRevenueStreamAnalysis(t *testing.T) {
	row := resortRow("Acacia Palms", "Goa", "2025-06-01", 100000, 80)
	row["activity_revenue"] = 20000.0
	row["restaurant_revenue"] = 30000.0
	e := newTestEngine(map[string][]supabase.Row{
		supabase.TableResorts: {row},
	})

	res, err := e.RevenueStreamAnalysis(context.Background(), "", "", "", "")
	require.NoError(t, err)

	require.NotNil(t, res.Overall)
	assert.Equal(t, 100000.0, res.Overall.TotalRevenue)
	assert.Equal(t, 20.0, res.Overall.AncillaryPercentage)
	assert.Equal(t, 30.0, res.Overall.RestaurantPercentage)
	require.Len(t, res.ByResort, 1)
	assert.Equal(t, "Acacia Palms", res.ByResort[0].Name)
}

func TestResortPerformanceRanking(t *testing.T) {
	e := newTestEngine(map[string][]supabase.Row{
		supabase.TableResorts: {
			resortRow("Acacia Palms", "Goa", "2025-06-01", 100000, 80),
			resortRow("Banyan Bay", "Kerala", "2025-06-02", 50000, 40),
		},
		supabase.TableFeedback: {
			{"resort_name_fk": "Acacia Palms", "nps_score": 8.0},
			{"resort_name_fk": "Acacia Palms", "nps_score": 10.0},
		},
	})

	res, err := e.ResortPerformanceRanking(context.Background(), "", "", "")
	require.NoError(t, err)

	assert.Equal(t, "overall_score", res.RankedBy)
	require.Len(t, res.Rankings, 2)

	top := res.Rankings[0]
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, "Acacia Palms", top.ResortName)
	assert.Equal(t, 100.0, top.RevenueScore)
	assert.Equal(t, 100.0, top.OccupancyScore)
	assert.Equal(t, 100.0, top.NPSScore)
	assert.Equal(t, 4.0, top.FeedbackScore)
	assert.Equal(t, 9.0, top.Metrics.AverageNPS)
	// 100*0.4 + 100*0.3 + 4*0.1 + 100*0.2
	assert.Equal(t, 90.4, top.OverallScore)

	second := res.Rankings[1]
	assert.Equal(t, 2, second.Rank)
	assert.Equal(t, 50.0, second.RevenueScore)
	assert.Equal(t, 0.0, second.FeedbackScore)

	byOcc, err := e.ResortPerformanceRanking(context.Background(), "occupancy", "", "")
	require.NoError(t, err)
	assert.Equal(t, "occupancy", byOcc.RankedBy)
	assert.Equal(t, "Acacia Palms", byOcc.Rankings[0].ResortName)
}

func TestSeasonalTrends(t *testing.T) {
	e := newTestEngine(map[string][]supabase.Row{
		supabase.TableResorts: {
			resortRow("Acacia Palms", "Goa", "2025-01-10", 30000, 50),
			resortRow("Acacia Palms", "Goa", "2025-06-10", 90000, 85),
			resortRow("Acacia Palms", "Goa", "2025-03-10", 60000, 70),
		},
	})

	res, err := e.SeasonalTrends(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "2025", res.Year)
	require.Len(t, res.MonthlyTrends, 3)
	assert.Equal(t, "2025-01", res.MonthlyTrends[0].Month)
	assert.Equal(t, "2025-03", res.MonthlyTrends[1].Month)
	assert.Equal(t, "2025-06", res.MonthlyTrends[2].Month)

	require.NotEmpty(t, res.PeakMonths)
	assert.Equal(t, "2025-06", res.PeakMonths[0].Month)
	require.NotEmpty(t, res.LowMonths)
	assert.Equal(t, "2025-01", res.LowMonths[0].Month)

	require.NotNil(t, res.Summary)
	assert.Equal(t, 180000.0, res.Summary.TotalRevenue)
	assert.Equal(t, 60000.0, res.Summary.AverageMonthlyRevenue)
	assert.Equal(t, "2025-06", res.Summary.PeakMonth)
	assert.Equal(t, "2025-01", res.Summary.LowMonth)
}

func TestAnalyzeDataValidation(t *testing.T) {
	e := newTestEngine(map[string][]supabase.Row{})

	_, err := e.AnalyzeData(context.Background(), "", "count", "", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = e.AnalyzeData(context.Background(), "no_such_table", "count", "", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = e.AnalyzeData(context.Background(), supabase.TableMembers, "aggregate", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Field is required for aggregate operation")

	_, err = e.AnalyzeData(context.Background(), supabase.TableMembers, "aggregate", "lifetime_value_inr", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No data to aggregate")
}

func TestAnalyzeDataAggregate(t *testing.T) {
	e := newTestEngine(map[string][]supabase.Row{
		supabase.TableMembers: {
			{"member_id": "M1", "lifetime_value_inr": 100000.0},
			{"member_id": "M2", "lifetime_value_inr": 300000.0},
			{"member_id": "M3", "membership_tier": "Gold"},
		},
	})

	out, err := e.AnalyzeData(context.Background(), supabase.TableMembers, "aggregate", "lifetime_value_inr", nil)
	require.NoError(t, err)
	agg, ok := out.(*AggregateResult)
	require.True(t, ok)
	assert.Equal(t, 2, agg.Count)
	assert.Equal(t, 100000.0, agg.Min)
	assert.Equal(t, 300000.0, agg.Max)
	assert.Equal(t, 400000.0, agg.Sum)
	assert.Equal(t, 200000.0, agg.Avg)

	out, err = e.AnalyzeData(context.Background(), supabase.TableMembers, "count", "", map[string]interface{}{
		"lifetime_value_inr": map[string]interface{}{"operator": "gte", "value": 200000},
	})
	require.NoError(t, err)
	count, ok := out.(*CountResult)
	require.True(t, ok)
	assert.Equal(t, 1, count.Count)
}

func TestQueryTableRejectsAggregationArgs(t *testing.T) {
	e := newTestEngine(map[string][]supabase.Row{})

	_, err := e.QueryTable(context.Background(), QueryTableArgs{
		Table:   supabase.TableFeedback,
		GroupBy: []interface{}{"gender"},
		Metrics: []interface{}{"count"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "insights_feedback_demographics")

	_, err = e.QueryTable(context.Background(), QueryTableArgs{
		Table:   supabase.TableResorts,
		GroupBy: []interface{}{"resort_region"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyze_data")

	_, err = e.QueryTable(context.Background(), QueryTableArgs{
		Table:   supabase.TableMembers,
		Columns: []interface{}{"member_id"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Use 'select' parameter in 'get_*' tools")

	_, err = e.QueryTable(context.Background(), QueryTableArgs{
		Table:   supabase.TableMembers,
		Filters: []interface{}{[]interface{}{"status", "eq", "Active"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an array")
}

func TestQueryTableFetches(t *testing.T) {
	e := newTestEngine(map[string][]supabase.Row{
		supabase.TableMembers: {
			{"member_id": "M1", "membership_tier": "Gold"},
			{"member_id": "M2", "membership_tier": "Silver"},
		},
	})

	rows, err := e.QueryTable(context.Background(), QueryTableArgs{
		TableNm: supabase.TableMembers,
		Filters: map[string]interface{}{"membership_tier": "Gold"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "M1", rows[0].Str("member_id"))
}

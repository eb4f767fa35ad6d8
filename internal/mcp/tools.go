package mcp

import (
	mcp "github.com/fredcamaral/gomcp-sdk"

	"resort-insights-mcp/internal/supabase"
)

// Schema fragments shared by most tools.
func dateRangeProps() map[string]interface{} {
	return map[string]interface{}{
		"start_date": map[string]interface{}{"type": "string", "description": "YYYY-MM-DD (inclusive)"},
		"end_date":   map[string]interface{}{"type": "string", "description": "YYYY-MM-DD (inclusive)"},
	}
}

func monthProp() map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": "YYYY-MM (e.g. '2025-09')"}
}

func fetchProps() map[string]interface{} {
	return map[string]interface{}{
		"limit":  map[string]interface{}{"type": "number", "description": "Maximum number of records to return"},
		"order":  map[string]interface{}{"type": "string", "description": "Order by field (e.g. 'id.asc', 'activity_date.desc')"},
		"select": map[string]interface{}{"type": "string", "description": "Comma-separated list of fields to select"},
	}
}

// ToolNames lists every registered tool.
func (is *InsightServer) ToolNames() []string {
	return []string{
		"get_members", "get_resorts", "get_feedback", "get_member_aggregated",
		"get_resort_aggregated", "get_events", "analyze_data", "query_table",
		"insights_sales_root_cause", "insights_events_impact", "insights_feedback_drag",
		"insights_surge_forecast", "insights_red_tier_attraction",
		"insights_red_tier_poor_feedback", "insights_blue_tier_feedback",
		"insights_resort_feedback_analysis", "insights_member_lifetime_value",
		"insights_regional_performance", "insights_resort_theme_analysis",
		"insights_revenue_stream_analysis", "insights_competitor_impact",
		"insights_weather_impact", "insights_platform_issue_analysis",
		"insights_issue_type_trends", "insights_member_churn_risk",
		"insights_resort_performance_ranking", "insights_seasonal_trends",
		"insights_monthly_sales_comparison", "insights_resort_revenue_reasons",
		"insights_revenue_feedback_correlation", "insights_unpaid_asf_feedback",
		"insights_resort_event_decline", "insights_feedback_demographics",
	}
}

func (is *InsightServer) registerTools() {
	is.registerTableTools()
	is.registerRawTools()
	is.registerInsightTools()
}

func (is *InsightServer) registerTableTools() {
	tables := []struct {
		tool  string
		table string
		desc  string
	}{
		{"get_members", supabase.TableMembers,
			"Retrieve member records from the fact_member table. Columns include date_joined, is_active, membership_tier, member_region, lifetime_value, last_feedback_nps, annual_fee_collection_status, last_holiday_date. Use analyze_data for counts and aggregations."},
		{"get_resorts", supabase.TableResorts,
			"Retrieve resort activity records from the fact_resort table. Columns include activity_date, resort_name, resort_theme, resort_region, total_revenue, restaurant_revenue, activity_revenue, occupied_percentage, member_rooms_booked, total_rooms_available. Use query_table for filtered queries and analyze_data for counts."},
		{"get_feedback", supabase.TableFeedback,
			"Retrieve guest feedback records from the fact_feedback table. Columns include feedback_date, resort_name, member_id_fk, nps_score, csat_score, sentiment, platform, issue_type, issue_details_text. Use analyze_data for counts."},
		{"get_member_aggregated", supabase.TableMemberAggregates,
			"Retrieve pre-aggregated member metrics from the fact_member_aggregated table."},
		{"get_resort_aggregated", supabase.TableResortAggregates,
			"Retrieve pre-aggregated resort metrics from the fact_resort_aggregated table."},
	}
	for _, t := range tables {
		table := t.table
		is.mcpServer.AddTool(mcp.NewTool(
			t.tool, t.desc,
			mcp.ObjectSchema("Fetch parameters", fetchProps(), nil),
		), is.logToolCall(t.tool, is.makeTableHandler(table)))
	}

	is.mcpServer.AddTool(mcp.NewTool(
		"get_events",
		"Search for real-time events via the YDC search API. Use for questions about weather events, news, or happenings in specific locations, e.g. 'serious weather events in pune'. Returns titles, descriptions, URLs, and metadata.",
		mcp.ObjectSchema("Event search parameters", map[string]interface{}{
			"query":      map[string]interface{}{"type": "string", "description": "Search query, e.g. 'weather events in goa'"},
			"start_date": map[string]interface{}{"type": "string", "description": "YYYY-MM-DD"},
			"end_date":   map[string]interface{}{"type": "string", "description": "YYYY-MM-DD"},
			"count":      map[string]interface{}{"type": "number", "description": "Number of results (default 5)"},
			"country":    map[string]interface{}{"type": "string", "description": "ISO country code (default 'IN')"},
		}, []string{"query"}),
	), is.logToolCall("get_events", is.handleEventSearch))
}

func (is *InsightServer) registerRawTools() {
	is.mcpServer.AddTool(mcp.NewTool(
		"analyze_data",
		"Run count, list, or aggregate operations over one table. Use this for ALL counting questions. Aggregate returns min/max/sum/avg of a numeric field; pass the field via 'field' or 'column'. Filters map field names to values or {operator, value} objects.",
		mcp.ObjectSchema("Analysis parameters", map[string]interface{}{
			"table":     map[string]interface{}{"type": "string", "description": "Table name, e.g. 'fact_member'"},
			"operation": map[string]interface{}{"type": "string", "enum": []string{"count", "list", "aggregate"}},
			"field":     map[string]interface{}{"type": "string", "description": "Numeric field to aggregate"},
			"column":    map[string]interface{}{"type": "string", "description": "Alias for 'field'"},
			"filters": map[string]interface{}{
				"type":                 "object",
				"additionalProperties": true,
				"description":          "Field filters: literal values, {operator, value} pairs, or {gte/lte} ranges",
			},
		}, []string{"table", "operation"}),
	), is.logToolCall("analyze_data", is.handleAnalyzeData))

	is.mcpServer.AddTool(mcp.NewTool(
		"query_table",
		"Fetch raw rows from one table with filters, ordering, and a limit. Does NOT support group_by, metrics, joins, or column projections; use analyze_data for aggregations and insights_feedback_demographics for demographic breakdowns.",
		mcp.ObjectSchema("Query parameters", map[string]interface{}{
			"table":      map[string]interface{}{"type": "string", "description": "Table name"},
			"table_name": map[string]interface{}{"type": "string", "description": "Alias for 'table'"},
			"filters": map[string]interface{}{
				"type":                 "object",
				"additionalProperties": true,
				"description":          "Field filters: literal values, {operator, value} pairs, or {gte/lte} ranges",
			},
			"limit": map[string]interface{}{"type": "number"},
			"order": map[string]interface{}{"type": "string", "description": "e.g. 'activity_date.desc'"},
		}, []string{}),
	), is.logToolCall("query_table", is.handleQueryTable))
}

func (is *InsightServer) registerInsightTools() {
	is.mcpServer.AddTool(mcp.NewTool(
		"insights_sales_root_cause",
		"Explain WHY sales were low for a month and/or a resort by combining resort performance, events, and recent feedback. Output: deltas vs previous month, key drivers (weather, competitor promos, local events), occupancy, and feedback themes.",
		mcp.ObjectSchema("Root cause parameters", map[string]interface{}{
			"month":       monthProp(),
			"resort_name": map[string]interface{}{"type": "string"},
			"region":      map[string]interface{}{"type": "string"},
		}, []string{"month"}),
	), is.logToolCall("insights_sales_root_cause", is.handleSalesRootCause))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_events_impact",
		"Find which resorts' sales were affected by external events within a date range. Returns 'impacted' (confirmed revenue drop) and 'potentially_affected' (resorts in event regions), with all negative events per region.",
		mcp.ObjectSchema("Events impact parameters", dateRangeProps(), []string{"start_date", "end_date"}),
	), is.logToolCall("insights_events_impact", is.handleEventsImpact))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_feedback_drag",
		"Find resorts whose revenue dropped in a month following negative feedback logged in the prior two months. Output: decliners with negative feedback counts and recurring themes.",
		mcp.ObjectSchema("Feedback drag parameters", map[string]interface{}{
			"month": monthProp(),
		}, []string{"month"}),
	), is.logToolCall("insights_feedback_drag", is.handleFeedbackDrag))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_surge_forecast",
		"Forecast which resorts are likely to see a demand surge in a month, from the revenue and occupancy trend across the two preceding months plus feedback sentiment and scheduled events.",
		mcp.ObjectSchema("Surge forecast parameters", map[string]interface{}{
			"month": monthProp(),
		}, []string{"month"}),
	), is.logToolCall("insights_surge_forecast", is.handleSurgeForecast))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_red_tier_attraction",
		"Rank resorts by how much feedback interaction they get from Red tier members. Use for 'which resorts attract Red tier customers'. Optional date range.",
		mcp.ObjectSchema("Tier attraction parameters", dateRangeProps(), nil),
	), is.logToolCall("insights_red_tier_attraction", is.makeTierAttractionHandler("Red")))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_red_tier_poor_feedback",
		"Per-resort negative feedback from Red tier members: counts, sample quotes, and recurring themes. Optional date range.",
		mcp.ObjectSchema("Tier feedback parameters", dateRangeProps(), nil),
	), is.logToolCall("insights_red_tier_poor_feedback", is.makeTierFeedbackHandler("Red", false)))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_blue_tier_feedback",
		"Per-resort feedback from Blue tier members with totals, negative counts, negative percentage, sample quotes, and themes. Optional date range.",
		mcp.ObjectSchema("Tier feedback parameters", dateRangeProps(), nil),
	), is.logToolCall("insights_blue_tier_feedback", is.makeTierFeedbackHandler("Blue", true)))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_resort_feedback_analysis",
		"Full sentiment picture for one resort in a window: positive/negative split, average NPS and CSAT, themes, platform and issue-type breakdowns, sample quotes, and same-window regional events.",
		mcp.ObjectSchema("Feedback analysis parameters", map[string]interface{}{
			"resort_name": map[string]interface{}{"type": "string"},
			"start_date":  map[string]interface{}{"type": "string", "description": "YYYY-MM-DD"},
			"end_date":    map[string]interface{}{"type": "string", "description": "YYYY-MM-DD"},
		}, []string{"resort_name", "start_date", "end_date"}),
	), is.logToolCall("insights_resort_feedback_analysis", is.handleResortFeedbackAnalysis))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_member_lifetime_value",
		"Analyze member lifetime value: distribution statistics (average, median, min, max), breakdown by region and tier, highest/lowest value tiers, and an at-risk member list. Optional region, tier, and join-date range filters.",
		mcp.ObjectSchema("Lifetime value parameters", map[string]interface{}{
			"region":     map[string]interface{}{"type": "string", "description": "Filter by home region"},
			"tier":       map[string]interface{}{"type": "string", "description": "Filter by membership tier"},
			"start_date": map[string]interface{}{"type": "string", "description": "date_joined lower bound"},
			"end_date":   map[string]interface{}{"type": "string", "description": "date_joined upper bound"},
		}, nil),
	), is.logToolCall("insights_member_lifetime_value", is.handleMemberLifetimeValue))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_regional_performance",
		"Compare regions on total revenue, average occupancy, rooms booked, distinct resort counts, and revenue per resort. Optional date range.",
		mcp.ObjectSchema("Regional performance parameters", dateRangeProps(), nil),
	), is.logToolCall("insights_regional_performance", is.handleRegionalPerformance))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_resort_theme_analysis",
		"Compare resort themes (Beach, Hill Station, Waterpark, ...) on revenue, occupancy, bookings, and revenue per resort. Optional date range.",
		mcp.ObjectSchema("Theme analysis parameters", dateRangeProps(), nil),
	), is.logToolCall("insights_resort_theme_analysis", is.handleResortThemeAnalysis))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_revenue_stream_analysis",
		"Break revenue into ancillary and restaurant streams, overall and per resort, with percentage contributions. Optional resort, region, and date filters.",
		mcp.ObjectSchema("Revenue stream parameters", map[string]interface{}{
			"resort_name": map[string]interface{}{"type": "string"},
			"region":      map[string]interface{}{"type": "string"},
			"start_date":  map[string]interface{}{"type": "string"},
			"end_date":    map[string]interface{}{"type": "string"},
		}, nil),
	), is.logToolCall("insights_revenue_stream_analysis", is.handleRevenueStreamAnalysis))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_competitor_impact",
		"Find resorts whose revenue dropped while competitor promotions ran in their region. Optional date range (defaults to the recent window).",
		mcp.ObjectSchema("Competitor impact parameters", dateRangeProps(), nil),
	), is.logToolCall("insights_competitor_impact", is.handleCompetitorImpact))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_weather_impact",
		"Find resorts whose revenue and occupancy dropped during weather events in their region. Optional date range (defaults to the recent window).",
		mcp.ObjectSchema("Weather impact parameters", dateRangeProps(), nil),
	), is.logToolCall("insights_weather_impact", is.handleWeatherImpact))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_platform_issue_analysis",
		"Compare feedback platforms on volume, average NPS/CSAT, negative rate, and top issue types, sorted by negative percentage. Optional date range.",
		mcp.ObjectSchema("Platform analysis parameters", dateRangeProps(), nil),
	), is.logToolCall("insights_platform_issue_analysis", is.handlePlatformIssueAnalysis))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_issue_type_trends",
		"Issue-type totals, percentages, and average NPS across feedback, with per-resort issue breakdowns. Optional resort and date filters.",
		mcp.ObjectSchema("Issue trend parameters", map[string]interface{}{
			"resort_name": map[string]interface{}{"type": "string"},
			"start_date":  map[string]interface{}{"type": "string"},
			"end_date":    map[string]interface{}{"type": "string"},
		}, nil),
	), is.logToolCall("insights_issue_type_trends", is.handleIssueTypeTrends))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_member_churn_risk",
		"Identify members at risk of churning based on inactivity, low lifetime value, poor feedback, payment issues, and lack of recent holidays. Output: at-risk members with risk scores, factors, and summary counts.",
		mcp.ObjectSchema("Churn risk parameters", map[string]interface{}{
			"risk_level": map[string]interface{}{"type": "string", "enum": []string{"high", "medium", "low"}, "description": "Filter by risk level"},
		}, nil),
	), is.logToolCall("insights_member_churn_risk", is.handleMemberChurnRisk))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_resort_performance_ranking",
		"Rank resorts by a composite of revenue, occupancy, feedback volume, and member satisfaction, or by a single metric. Optional date range.",
		mcp.ObjectSchema("Ranking parameters", map[string]interface{}{
			"start_date": map[string]interface{}{"type": "string"},
			"end_date":   map[string]interface{}{"type": "string"},
			"metric":     map[string]interface{}{"type": "string", "enum": []string{"revenue", "occupancy", "feedback", "overall"}, "description": "Primary ranking metric"},
		}, nil),
	), is.logToolCall("insights_resort_performance_ranking", is.handleResortPerformanceRanking))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_seasonal_trends",
		"Identify seasonal patterns in bookings, revenue, and feedback: month-over-month trends, top-3 peak and low months, and a summary. Optional year (defaults to 2025).",
		mcp.ObjectSchema("Seasonal trend parameters", map[string]interface{}{
			"year": map[string]interface{}{"type": "string", "description": "Year to analyze (e.g. '2025')"},
		}, nil),
	), is.logToolCall("insights_seasonal_trends", is.handleSeasonalTrends))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_monthly_sales_comparison",
		"Compare per-resort revenue between two months: decliners and gainers with deltas, percent change, formatted INR amounts, and the largest mover each way.",
		mcp.ObjectSchema("Comparison parameters", map[string]interface{}{
			"month1": monthProp(),
			"month2": monthProp(),
		}, []string{"month1", "month2"}),
	), is.logToolCall("insights_monthly_sales_comparison", is.handleMonthlySalesComparison))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_resort_revenue_reasons",
		"Explain one resort's revenue move for a month vs the previous month: events (weather, competitor, local), feedback sentiment, and occupancy shifts, split into negative and positive reasons.",
		mcp.ObjectSchema("Revenue reasons parameters", map[string]interface{}{
			"resort_name": map[string]interface{}{"type": "string"},
			"month":       monthProp(),
		}, []string{"resort_name", "month"}),
	), is.logToolCall("insights_resort_revenue_reasons", is.handleResortRevenueReasons))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_revenue_feedback_correlation",
		"Correlate revenue declines in a month with negative feedback from the previous month, rating each correlation Strong/Moderate/Weak/Potential and sorting by biggest decline.",
		mcp.ObjectSchema("Correlation parameters", map[string]interface{}{
			"month": monthProp(),
		}, []string{"month"}),
	), is.logToolCall("insights_revenue_feedback_correlation", is.handleRevenueFeedbackCorrelation))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_unpaid_asf_feedback",
		"Feedback from members who have missed more than two years of annual subscription fees, split into negative and other feedback. Returns field diagnostics when no such members are found.",
		mcp.ObjectSchema("Unpaid ASF parameters", map[string]interface{}{}, nil),
	), is.logToolCall("insights_unpaid_asf_feedback", is.handleUnpaidASFFeedback))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_resort_event_decline",
		"Month-over-month revenue declines across one resort's full activity range, paired with same-month events in its region. Optional month narrows the report and lists all events for that month.",
		mcp.ObjectSchema("Event decline parameters", map[string]interface{}{
			"resort_name": map[string]interface{}{"type": "string"},
			"month":       monthProp(),
		}, []string{"resort_name"}),
	), is.logToolCall("insights_resort_event_decline", is.handleResortEventDecline))

	is.mcpServer.AddTool(mcp.NewTool(
		"insights_feedback_demographics",
		"Analyze feedback by demographic dimensions (gender, region, age group) and sentiment, joining feedback with member data. Use for questions like 'which gender gives the most positive feedback'.",
		mcp.ObjectSchema("Demographics parameters", map[string]interface{}{
			"sentiment": map[string]interface{}{"type": "string", "enum": []string{"positive", "negative", "neutral"}, "description": "Filter feedback by sentiment (optional)"},
			"dimension": map[string]interface{}{"type": "string", "enum": []string{"gender", "member_region", "age_group"}, "description": "Single dimension to break down by (omit for all)"},
			"start_date": map[string]interface{}{"type": "string"},
			"end_date":   map[string]interface{}{"type": "string"},
		}, nil),
	), is.logToolCall("insights_feedback_demographics", is.handleFeedbackDemographics))
}

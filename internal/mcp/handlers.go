package mcp

import (
	"context"

	"resort-insights-mcp/internal/apperrors"
	"resort-insights-mcp/internal/eventsearch"
	"resort-insights-mcp/internal/insights"
	"resort-insights-mcp/internal/supabase"
)

type dateRangeArgs struct {
	StartDate string `mapstructure:"start_date"`
	EndDate   string `mapstructure:"end_date"`
}

type monthArgs struct {
	Month string `mapstructure:"month"`
}

type resortMonthArgs struct {
	ResortName string `mapstructure:"resort_name"`
	Month      string `mapstructure:"month"`
}

func (is *InsightServer) makeTableHandler(table string) func(context.Context, map[string]interface{}) (interface{}, error) {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		var a struct {
			Limit  int    `mapstructure:"limit"`
			Order  string `mapstructure:"order"`
			Select string `mapstructure:"select"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		rows, err := is.engine.FetchTable(ctx, table, nil, supabase.Options{
			Limit:  a.Limit,
			Order:  a.Order,
			Select: a.Select,
		})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"data": rows, "count": len(rows)}, nil
	}
}

func (is *InsightServer) handleEventSearch(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a struct {
		Query     string `mapstructure:"query"`
		StartDate string `mapstructure:"start_date"`
		EndDate   string `mapstructure:"end_date"`
		Count     int    `mapstructure:"count"`
		Country   string `mapstructure:"country"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.events.Search(ctx, eventsearch.Request{
		Query:     a.Query,
		StartDate: a.StartDate,
		EndDate:   a.EndDate,
		Count:     a.Count,
		Country:   a.Country,
	})
}

func (is *InsightServer) handleAnalyzeData(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a struct {
		Table     string      `mapstructure:"table"`
		Operation string      `mapstructure:"operation"`
		Field     string      `mapstructure:"field"`
		Column    string      `mapstructure:"column"`
		Filters   interface{} `mapstructure:"filters"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	field := a.Field
	if field == "" {
		field = a.Column
	}
	return is.engine.AnalyzeData(ctx, a.Table, a.Operation, field, a.Filters)
}

func (is *InsightServer) handleQueryTable(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a insights.QueryTableArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	rows, err := is.engine.QueryTable(ctx, a)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"data": rows, "count": len(rows)}, nil
}

func (is *InsightServer) handleSalesRootCause(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a struct {
		Month      string `mapstructure:"month"`
		ResortName string `mapstructure:"resort_name"`
		Region     string `mapstructure:"region"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Month == "" {
		return nil, apperrors.NewValidation("'month' parameter is required (YYYY-MM)")
	}
	return is.engine.SalesRootCause(ctx, a.Month, a.ResortName, a.Region)
}

func (is *InsightServer) handleEventsImpact(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a dateRangeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.StartDate == "" || a.EndDate == "" {
		return nil, apperrors.NewValidation("'start_date' and 'end_date' parameters are required (YYYY-MM-DD)")
	}
	return is.engine.EventsImpact(ctx, a.StartDate, a.EndDate)
}

func (is *InsightServer) handleFeedbackDrag(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a monthArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.engine.FeedbackDrag(ctx, a.Month)
}

func (is *InsightServer) handleSurgeForecast(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a monthArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.engine.SurgeForecast(ctx, a.Month)
}

func (is *InsightServer) makeTierAttractionHandler(tier string) func(context.Context, map[string]interface{}) (interface{}, error) {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		var a dateRangeArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return is.engine.TierAttraction(ctx, tier, a.StartDate, a.EndDate)
	}
}

func (is *InsightServer) makeTierFeedbackHandler(tier string, includeTotals bool) func(context.Context, map[string]interface{}) (interface{}, error) {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		var a dateRangeArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		if includeTotals {
			return is.engine.TierFeedback(ctx, tier, a.StartDate, a.EndDate)
		}
		return is.engine.TierPoorFeedback(ctx, tier, a.StartDate, a.EndDate)
	}
}

func (is *InsightServer) handleResortFeedbackAnalysis(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a struct {
		ResortName string `mapstructure:"resort_name"`
		StartDate  string `mapstructure:"start_date"`
		EndDate    string `mapstructure:"end_date"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ResortName == "" {
		return nil, apperrors.NewValidation("'resort_name' parameter is required")
	}
	return is.engine.ResortFeedbackAnalysis(ctx, a.ResortName, a.StartDate, a.EndDate)
}

func (is *InsightServer) handleMemberLifetimeValue(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a struct {
		Region    string `mapstructure:"region"`
		Tier      string `mapstructure:"tier"`
		StartDate string `mapstructure:"start_date"`
		EndDate   string `mapstructure:"end_date"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.engine.MemberLifetimeValue(ctx, a.Region, a.Tier, a.StartDate, a.EndDate)
}

func (is *InsightServer) handleRegionalPerformance(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a dateRangeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.engine.RegionalPerformance(ctx, a.StartDate, a.EndDate)
}

func (is *InsightServer) handleResortThemeAnalysis(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a dateRangeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.engine.ResortThemeAnalysis(ctx, a.StartDate, a.EndDate)
}

func (is *InsightServer) handleRevenueStreamAnalysis(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a struct {
		ResortName string `mapstructure:"resort_name"`
		Region     string `mapstructure:"region"`
		StartDate  string `mapstructure:"start_date"`
		EndDate    string `mapstructure:"end_date"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.engine.RevenueStreamAnalysis(ctx, a.ResortName, a.Region, a.StartDate, a.EndDate)
}

func (is *InsightServer) handleCompetitorImpact(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a dateRangeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.engine.CompetitorImpact(ctx, a.StartDate, a.EndDate)
}

func (is *InsightServer) handleWeatherImpact(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a dateRangeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.engine.WeatherImpact(ctx, a.StartDate, a.EndDate)
}

func (is *InsightServer) handlePlatformIssueAnalysis(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a dateRangeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.engine.PlatformIssueAnalysis(ctx, a.StartDate, a.EndDate)
}

func (is *InsightServer) handleIssueTypeTrends(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a struct {
		ResortName string `mapstructure:"resort_name"`
		StartDate  string `mapstructure:"start_date"`
		EndDate    string `mapstructure:"end_date"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.engine.IssueTypeTrends(ctx, a.ResortName, a.StartDate, a.EndDate)
}

func (is *InsightServer) handleMemberChurnRisk(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a struct {
		RiskLevel string `mapstructure:"risk_level"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.engine.MemberChurnRisk(ctx, a.RiskLevel)
}

func (is *InsightServer) handleResortPerformanceRanking(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a struct {
		StartDate string `mapstructure:"start_date"`
		EndDate   string `mapstructure:"end_date"`
		Metric    string `mapstructure:"metric"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.engine.ResortPerformanceRanking(ctx, a.Metric, a.StartDate, a.EndDate)
}

func (is *InsightServer) handleSeasonalTrends(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a struct {
		Year string `mapstructure:"year"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.engine.SeasonalTrends(ctx, a.Year)
}

func (is *InsightServer) handleMonthlySalesComparison(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a struct {
		Month1 string `mapstructure:"month1"`
		Month2 string `mapstructure:"month2"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.engine.MonthlySalesComparison(ctx, a.Month1, a.Month2)
}

func (is *InsightServer) handleResortRevenueReasons(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a resortMonthArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ResortName == "" {
		return nil, apperrors.NewValidation("'resort_name' parameter is required")
	}
	return is.engine.ResortRevenueReasons(ctx, a.ResortName, a.Month)
}

func (is *InsightServer) handleRevenueFeedbackCorrelation(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a monthArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.engine.RevenueFeedbackCorrelation(ctx, a.Month)
}

func (is *InsightServer) handleUnpaidASFFeedback(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	return is.engine.UnpaidASFFeedback(ctx)
}

func (is *InsightServer) handleResortEventDecline(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a resortMonthArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ResortName == "" {
		return nil, apperrors.NewValidation("'resort_name' parameter is required")
	}
	return is.engine.ResortEventDecline(ctx, a.ResortName, a.Month)
}

func (is *InsightServer) handleFeedbackDemographics(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var a struct {
		Sentiment string `mapstructure:"sentiment"`
		Dimension string `mapstructure:"dimension"`
		StartDate string `mapstructure:"start_date"`
		EndDate   string `mapstructure:"end_date"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return is.engine.FeedbackDemographics(ctx, a.Sentiment, a.Dimension, a.StartDate, a.EndDate)
}

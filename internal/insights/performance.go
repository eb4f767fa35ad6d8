package insights

import (
	"context"
	"sort"

	"resort-insights-mcp/internal/analytics"
	"resort-insights-mcp/internal/query"
	"resort-insights-mcp/internal/supabase"
)

// AreaPerformance is a revenue and occupancy rollup for one region or theme.
type AreaPerformance struct {
	Key                     string  `json:"key"`
	TotalRevenue            float64 `json:"total_revenue"`
	AverageOccupancy        float64 `json:"average_occupancy"`
	TotalBookings           float64 `json:"total_bookings"`
	ResortCount             int     `json:"resort_count"`
	AverageRevenuePerResort float64 `json:"average_revenue_per_resort"`
}

// AreaPerformanceResult groups resort activity by region or theme.
type AreaPerformanceResult struct {
	Message string            `json:"message,omitempty"`
	Areas   []AreaPerformance `json:"areas,omitempty"`
}

// RegionalPerformance rolls resort activity up by region, sorted by
// total revenue descending.
func (e *Engine) RegionalPerformance(ctx context.Context, startDate, endDate string) (*AreaPerformanceResult, error) {
	return e.areaPerformance(ctx, "resort_region", startDate, endDate)
}

// ResortThemeAnalysis rolls resort activity up by theme, sorted by
// total revenue descending.
func (e *Engine) ResortThemeAnalysis(ctx context.Context, startDate, endDate string) (*AreaPerformanceResult, error) {
	return e.areaPerformance(ctx, "resort_theme", startDate, endDate)
}

func (e *Engine) areaPerformance(ctx context.Context, groupField, startDate, endDate string) (*AreaPerformanceResult, error) {
	filters := query.Filters{}
	if startDate != "" || endDate != "" {
		filters["activity_date"] = query.DateRange(startDate, endDate)
	}
	rows, err := e.fetch(ctx, supabase.TableResorts, filters)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &AreaPerformanceResult{Message: "No resort data found"}, nil
	}

	grouped := analytics.GroupBy(rows, func(r supabase.Row) string { return orUnknown(r.Str(groupField)) })
	areas := make([]AreaPerformance, 0, len(grouped.Keys))
	for _, key := range grouped.Keys {
		arr := grouped.Groups[key]
		var revenue, occupancy, bookings float64
		resorts := map[string]struct{}{}
		for _, r := range arr {
			revenue += r.Revenue()
			occupancy += r.Occupancy()
			bookings += r.Num("member_rooms_booked")
			if name := r.Str("resort_name"); name != "" {
				resorts[name] = struct{}{}
			}
		}
		count := len(resorts)
		perResort := 0.0
		if count > 0 {
			perResort = revenue / float64(count)
		}
		areas = append(areas, AreaPerformance{
			Key:                     key,
			TotalRevenue:            revenue,
			AverageOccupancy:        round1(occupancy / float64(len(arr))),
			TotalBookings:           bookings,
			ResortCount:             count,
			AverageRevenuePerResort: round1(perResort),
		})
	}
	sort.SliceStable(areas, func(i, j int) bool { return areas[i].TotalRevenue > areas[j].TotalRevenue })
	return &AreaPerformanceResult{Areas: areas}, nil
}

// RevenueStreams splits revenue into ancillary and restaurant components.
type RevenueStreams struct {
	Name                 string  `json:"name,omitempty"`
	TotalRevenue         float64 `json:"total_revenue"`
	AncillaryRevenue     float64 `json:"ancillary_revenue"`
	RestaurantRevenue    float64 `json:"restaurant_revenue"`
	AncillaryPercentage  float64 `json:"ancillary_percentage"`
	RestaurantPercentage float64 `json:"restaurant_percentage"`
}

// RevenueStreamResult breaks revenue composition down overall and per resort.
type RevenueStreamResult struct {
	Message  string           `json:"message,omitempty"`
	Overall  *RevenueStreams  `json:"overall,omitempty"`
	ByResort []RevenueStreams `json:"by_resort,omitempty"`
}

// RevenueStreamAnalysis reports how ancillary and restaurant revenue
// contribute to each resort's total.
func (e *Engine) RevenueStreamAnalysis(ctx context.Context, resortName, region, startDate, endDate string) (*RevenueStreamResult, error) {
	filters := query.Filters{}
	if resortName != "" {
		filters["resort_name"] = query.ILike(resortName)
	}
	if region != "" {
		filters["resort_region"] = query.ILike(region)
	}
	if startDate != "" || endDate != "" {
		filters["activity_date"] = query.DateRange(startDate, endDate)
	}
	rows, err := e.fetch(ctx, supabase.TableResorts, filters)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &RevenueStreamResult{Message: "No resort data found"}, nil
	}

	streams := func(arr []supabase.Row) RevenueStreams {
		var total, ancillary, restaurant float64
		for _, r := range arr {
			total += r.Revenue()
			ancillary += r.AncillaryRevenue()
			restaurant += r.RestaurantRevenue()
		}
		s := RevenueStreams{TotalRevenue: total, AncillaryRevenue: ancillary, RestaurantRevenue: restaurant}
		if total > 0 {
			s.AncillaryPercentage = round1(ancillary / total * 100)
			s.RestaurantPercentage = round1(restaurant / total * 100)
		}
		return s
	}

	overall := streams(rows)
	grouped := analytics.GroupBy(rows, func(r supabase.Row) string { return orUnknown(r.Str("resort_name")) })
	byResort := make([]RevenueStreams, 0, len(grouped.Keys))
	for _, key := range grouped.Keys {
		s := streams(grouped.Groups[key])
		s.Name = key
		byResort = append(byResort, s)
	}
	sort.SliceStable(byResort, func(i, j int) bool { return byResort[i].TotalRevenue > byResort[j].TotalRevenue })
	return &RevenueStreamResult{Overall: &overall, ByResort: byResort}, nil
}

// ResortRankMetrics are the raw per-resort figures behind a ranking.
type ResortRankMetrics struct {
	TotalRevenue     float64 `json:"total_revenue"`
	AverageOccupancy float64 `json:"average_occupancy"`
	TotalBookings    float64 `json:"total_bookings"`
	FeedbackCount    int     `json:"feedback_count"`
	AverageNPS       float64 `json:"average_nps"`
}

// RankedResort is one resort's composite score and its components.
type RankedResort struct {
	Rank           int               `json:"rank"`
	ResortName     string            `json:"resort_name"`
	Region         string            `json:"region"`
	Metrics        ResortRankMetrics `json:"metrics"`
	RevenueScore   float64           `json:"revenue_score"`
	OccupancyScore float64           `json:"occupancy_score"`
	FeedbackScore  float64           `json:"feedback_score"`
	NPSScore       float64           `json:"nps_score"`
	OverallScore   float64           `json:"overall_score"`
}

// RankingResult orders resorts by the requested metric.
type RankingResult struct {
	Message  string         `json:"message,omitempty"`
	RankedBy string         `json:"ranked_by,omitempty"`
	Rankings []RankedResort `json:"rankings,omitempty"`
}

// ResortPerformanceRanking scores each resort against the best performer
// on revenue, occupancy, feedback volume, and NPS, then ranks by the
// chosen metric. The composite weights revenue 40%, occupancy 30%,
// NPS 20%, and feedback volume 10%.
func (e *Engine) ResortPerformanceRanking(ctx context.Context, metric, startDate, endDate string) (*RankingResult, error) {
	filters := query.Filters{}
	if startDate != "" || endDate != "" {
		filters["activity_date"] = query.DateRange(startDate, endDate)
	}
	resorts, err := e.fetch(ctx, supabase.TableResorts, filters)
	if err != nil {
		return nil, err
	}
	if len(resorts) == 0 {
		return &RankingResult{Message: "No resort data found"}, nil
	}
	feedback := e.enrichmentFetch(ctx, supabase.TableFeedback, query.Filters{})
	fbByResort := map[string][]supabase.Row{}
	for _, f := range feedback {
		name := f.Str("resort_name_fk")
		if name == "" {
			continue
		}
		fbByResort[name] = append(fbByResort[name], f)
	}

	stats, names := rollResorts(resorts)
	ranked := make([]RankedResort, 0, len(names))
	var maxRevenue, maxOccupancy, maxNPS float64
	for _, name := range names {
		s := stats[name]
		fb := fbByResort[name]
		m := ResortRankMetrics{
			TotalRevenue:     s.Revenue,
			AverageOccupancy: s.OccupancyAvg,
			TotalBookings:    s.MemberRooms,
			FeedbackCount:    len(fb),
			AverageNPS:       averagePositive(fb, "nps_score"),
		}
		if m.TotalRevenue > maxRevenue {
			maxRevenue = m.TotalRevenue
		}
		if m.AverageOccupancy > maxOccupancy {
			maxOccupancy = m.AverageOccupancy
		}
		if m.AverageNPS > maxNPS {
			maxNPS = m.AverageNPS
		}
		ranked = append(ranked, RankedResort{ResortName: name, Region: s.Region, Metrics: m})
	}

	pctOfMax := func(v, max float64) float64 {
		if max <= 0 {
			return 0
		}
		return round1(v / max * 100)
	}
	for i := range ranked {
		r := &ranked[i]
		r.RevenueScore = pctOfMax(r.Metrics.TotalRevenue, maxRevenue)
		r.OccupancyScore = pctOfMax(r.Metrics.AverageOccupancy, maxOccupancy)
		r.NPSScore = pctOfMax(r.Metrics.AverageNPS, maxNPS)
		r.FeedbackScore = float64(r.Metrics.FeedbackCount * 2)
		if r.FeedbackScore > 100 {
			r.FeedbackScore = 100
		}
		r.OverallScore = round1(r.RevenueScore*0.4 + r.OccupancyScore*0.3 + r.FeedbackScore*0.1 + r.NPSScore*0.2)
	}

	rankedBy := "overall_score"
	sortKey := func(r RankedResort) float64 { return r.OverallScore }
	switch metric {
	case "revenue":
		rankedBy = "revenue"
		sortKey = func(r RankedResort) float64 { return r.Metrics.TotalRevenue }
	case "occupancy":
		rankedBy = "occupancy"
		sortKey = func(r RankedResort) float64 { return r.Metrics.AverageOccupancy }
	case "feedback":
		rankedBy = "feedback"
		sortKey = func(r RankedResort) float64 { return float64(r.Metrics.FeedbackCount) }
	}
	sort.SliceStable(ranked, func(i, j int) bool { return sortKey(ranked[i]) > sortKey(ranked[j]) })
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return &RankingResult{RankedBy: rankedBy, Rankings: ranked}, nil
}

// MonthlyTrend is one month's activity and feedback rollup.
type MonthlyTrend struct {
	Month            string  `json:"month"`
	TotalRevenue     float64 `json:"total_revenue"`
	AverageOccupancy float64 `json:"average_occupancy"`
	TotalBookings    float64 `json:"total_bookings"`
	FeedbackCount    int     `json:"feedback_count"`
	AverageNPS       float64 `json:"average_nps"`
}

// SeasonalSummary condenses a year of trends into headline figures.
type SeasonalSummary struct {
	TotalRevenue          float64 `json:"total_revenue"`
	AverageMonthlyRevenue float64 `json:"average_monthly_revenue"`
	PeakMonth             string  `json:"peak_month"`
	LowMonth              string  `json:"low_month"`
}

// SeasonalTrendsResult lays out a year of monthly trends with peak and
// low seasons highlighted.
type SeasonalTrendsResult struct {
	Message       string           `json:"message,omitempty"`
	Year          string           `json:"year,omitempty"`
	MonthlyTrends []MonthlyTrend   `json:"monthly_trends,omitempty"`
	PeakMonths    []MonthlyTrend   `json:"peak_months,omitempty"`
	LowMonths     []MonthlyTrend   `json:"low_months,omitempty"`
	Summary       *SeasonalSummary `json:"summary,omitempty"`
}

// SeasonalTrends buckets a calendar year of activity and feedback by
// month. Monthly trends stay in calendar order; peak and low months are
// the top and bottom three by revenue.
func (e *Engine) SeasonalTrends(ctx context.Context, year string) (*SeasonalTrendsResult, error) {
	if year == "" {
		year = "2025"
	}
	start := year + "-01-01"
	end := year + "-12-31"
	resorts, err := e.fetch(ctx, supabase.TableResorts, query.Filters{
		"activity_date": query.DateRange(start, end),
	})
	if err != nil {
		return nil, err
	}
	if len(resorts) == 0 {
		return &SeasonalTrendsResult{Message: "No resort data found for year " + year}, nil
	}
	feedback := e.enrichmentFetch(ctx, supabase.TableFeedback, query.Filters{
		"feedback_date": query.DateRange(start, end),
	})

	monthKey := func(date string) string {
		if len(date) >= 7 {
			return date[:7]
		}
		return ""
	}
	resortsByMonth := analytics.GroupBy(resorts, func(r supabase.Row) string { return monthKey(r.Str("activity_date")) })
	fbByMonth := map[string][]supabase.Row{}
	for _, f := range feedback {
		if m := monthKey(f.Str("feedback_date")); m != "" {
			fbByMonth[m] = append(fbByMonth[m], f)
		}
	}

	months := make([]string, 0, len(resortsByMonth.Keys))
	for _, m := range resortsByMonth.Keys {
		if m != "" {
			months = append(months, m)
		}
	}
	sort.Strings(months)

	trends := make([]MonthlyTrend, 0, len(months))
	var totalRevenue float64
	for _, m := range months {
		arr := resortsByMonth.Groups[m]
		var revenue, occupancy, bookings float64
		for _, r := range arr {
			revenue += r.Revenue()
			occupancy += r.Occupancy()
			bookings += r.Num("member_rooms_booked")
		}
		fb := fbByMonth[m]
		trends = append(trends, MonthlyTrend{
			Month:            m,
			TotalRevenue:     revenue,
			AverageOccupancy: round1(occupancy / float64(len(arr))),
			TotalBookings:    bookings,
			FeedbackCount:    len(fb),
			AverageNPS:       averagePositive(fb, "nps_score"),
		})
		totalRevenue += revenue
	}

	byRevenue := make([]MonthlyTrend, len(trends))
	copy(byRevenue, trends)
	sort.SliceStable(byRevenue, func(i, j int) bool { return byRevenue[i].TotalRevenue > byRevenue[j].TotalRevenue })
	top := func(arr []MonthlyTrend, n int) []MonthlyTrend {
		if len(arr) < n {
			n = len(arr)
		}
		out := make([]MonthlyTrend, n)
		copy(out, arr[:n])
		return out
	}
	peaks := top(byRevenue, 3)
	reversed := make([]MonthlyTrend, len(byRevenue))
	for i, t := range byRevenue {
		reversed[len(byRevenue)-1-i] = t
	}
	lows := top(reversed, 3)

	summary := &SeasonalSummary{
		TotalRevenue:          totalRevenue,
		AverageMonthlyRevenue: round1(totalRevenue / float64(len(trends))),
	}
	if len(peaks) > 0 {
		summary.PeakMonth = peaks[0].Month
	}
	if len(lows) > 0 {
		summary.LowMonth = lows[0].Month
	}
	return &SeasonalTrendsResult{
		Year:          year,
		MonthlyTrends: trends,
		PeakMonths:    peaks,
		LowMonths:     lows,
		Summary:       summary,
	}, nil
}

package insights

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"resort-insights-mcp/internal/analytics"
	"resort-insights-mcp/internal/query"
	"resort-insights-mcp/internal/supabase"
)

// EventSample is an event row trimmed to the fields the reports show.
type EventSample struct {
	EventType        string      `json:"event_type,omitempty"`
	Date             string      `json:"date,omitempty"`
	WeatherCondition string      `json:"weather_condition,omitempty"`
	CompetitorName   string      `json:"competitor_name,omitempty"`
	Details          string      `json:"details,omitempty"`
	RelevanceScore   interface{} `json:"relevance_score,omitempty"`
}

func eventSample(e supabase.Row) EventSample {
	return EventSample{
		EventType:        e.Str("event_type"),
		Date:             e.Str("event_date"),
		WeatherCondition: e.Str("weather_condition"),
		CompetitorName:   e.Str("competitor_name"),
		Details:          e.EventDetails(),
		RelevanceScore:   e["relevance_score"],
	}
}

// SalesRootCauseEntry diagnoses one resort's month-over-month move.
type SalesRootCauseEntry struct {
	ResortName          string  `json:"resort_name"`
	Month               string  `json:"month"`
	Region              string  `json:"region"`
	RevenueCurrentINR   float64 `json:"revenue_current_inr"`
	RevenuePrevINR      float64 `json:"revenue_prev_inr"`
	RevenueDeltaINR     float64 `json:"revenue_delta_inr"`
	OccupancyCurrent    float64 `json:"occupancy_current_perc"`
	OccupancyPrev       float64 `json:"occupancy_prev_perc"`
	OccupancyDelta      float64 `json:"occupancy_delta_perc"`
	LikelyDrivers       SalesRootCauseDrivers `json:"likely_drivers"`
}

// SalesRootCauseDrivers holds the contextual evidence for an entry.
type SalesRootCauseDrivers struct {
	EventsCount            int                 `json:"events_count"`
	EventSamples           []EventSample       `json:"event_samples"`
	NegativeFeedbackCount  int                 `json:"negative_feedback_count"`
	NegativeFeedbackThemes []analytics.Keyword `json:"negative_feedback_themes"`
}

// SalesRootCauseResult is the full diagnosis for a month.
type SalesRootCauseResult struct {
	Summary []SalesRootCauseEntry `json:"summary"`
}

// SalesRootCause compares each resort's revenue and occupancy against
// the previous month, then attaches same-region events from the
// current month and negative feedback themes from the two months
// before it.
func (e *Engine) SalesRootCause(ctx context.Context, month, resortName, region string) (*SalesRootCauseResult, error) {
	curr, err := analytics.MonthRange(month)
	if err != nil {
		return nil, err
	}
	prevYm, err := analytics.PreviousMonth(month)
	if err != nil {
		return nil, err
	}
	prev, _ := analytics.MonthRange(prevYm)
	prev2Ym, _ := analytics.PreviousMonth(prevYm)
	prev2, _ := analytics.MonthRange(prev2Ym)

	resortFilters := func(w analytics.Window) query.Filters {
		f := query.Filters{"activity_date": query.DateRange(w.Start, w.End)}
		if resortName != "" {
			f["resort_name"] = query.ILike(resortName)
		}
		if region != "" {
			f["resort_region"] = query.ILike(region)
		}
		return f
	}

	var resortsCurr, resortsPrev []supabase.Row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		resortsCurr, err = e.fetch(gctx, supabase.TableResorts, resortFilters(curr))
		return err
	})
	g.Go(func() (err error) {
		resortsPrev, err = e.fetch(gctx, supabase.TableResorts, resortFilters(prev))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	currStats, currKeys := rollResorts(resortsCurr)
	prevStats, _ := rollResorts(resortsPrev)

	var regions []string
	seen := map[string]bool{}
	for _, name := range currKeys {
		if r := currStats[name].Region; r != "" && !seen[r] {
			seen[r] = true
			regions = append(regions, r)
		}
	}

	eventFilters := query.Filters{"event_date": query.DateRange(curr.Start, curr.End)}
	if len(regions) > 0 {
		eventFilters["impact_region"] = query.InStrings(regions)
	}
	events := e.enrichmentFetch(ctx, supabase.TableEvents, eventFilters)

	fbFilters := query.Filters{"feedback_date": query.DateRange(prev2.Start, prev.End)}
	if resortName != "" {
		fbFilters["resort_name"] = query.ILike(resortName)
	}
	feedback := e.enrichmentFetch(ctx, supabase.TableFeedback, fbFilters)

	eventsByRegion := analytics.GroupBy(events, func(r supabase.Row) string {
		if reg := r.Str("impact_region"); reg != "" {
			return reg
		}
		return "Unknown"
	})
	fbByResort := analytics.GroupBy(feedback, func(r supabase.Row) string {
		if name := r.Str("resort_name"); name != "" {
			return name
		}
		return "Unknown"
	})

	result := &SalesRootCauseResult{Summary: []SalesRootCauseEntry{}}
	for _, name := range currKeys {
		cur := currStats[name]
		prevv := prevStats[name]
		regionKey := regionOrUnknown(cur)
		evts := eventsByRegion.Groups[regionKey]
		neg := filterRows(fbByResort.Groups[name], isNegativeFeedback)

		samples := make([]EventSample, 0, 5)
		for i, ev := range evts {
			if i == 5 {
				break
			}
			samples = append(samples, eventSample(ev))
		}

		result.Summary = append(result.Summary, SalesRootCauseEntry{
			ResortName:        name,
			Month:             month,
			Region:            regionKey,
			RevenueCurrentINR: cur.Revenue,
			RevenuePrevINR:    prevv.Revenue,
			RevenueDeltaINR:   cur.Revenue - prevv.Revenue,
			OccupancyCurrent:  cur.OccupancyAvg,
			OccupancyPrev:     prevv.OccupancyAvg,
			OccupancyDelta:    cur.OccupancyAvg - prevv.OccupancyAvg,
			LikelyDrivers: SalesRootCauseDrivers{
				EventsCount:            len(evts),
				EventSamples:           samples,
				NegativeFeedbackCount:  len(neg),
				NegativeFeedbackThemes: analytics.TopKeywords(feedbackTexts(neg), 6),
			},
		})
	}
	return result, nil
}

// MonthlyComparisonEntry is one resort's move between the two months.
type MonthlyComparisonEntry struct {
	ResortName             string  `json:"resort_name"`
	Month1RevenueINR       float64 `json:"month1_revenue_inr"`
	Month2RevenueINR       float64 `json:"month2_revenue_inr"`
	RevenueDeltaINR        float64 `json:"revenue_delta_inr"`
	PercentageChange       float64 `json:"percentage_change"`
	Region                 string  `json:"region,omitempty"`
	RevenueDeltaFormatted  string  `json:"revenue_delta_formatted"`
	Month1RevenueFormatted string  `json:"month1_revenue_formatted"`
	Month2RevenueFormatted string  `json:"month2_revenue_formatted"`
}

// MonthlySalesComparisonResult splits resorts into decliners and
// gainers between two months.
type MonthlySalesComparisonResult struct {
	Month1                    string                   `json:"month1"`
	Month2                    string                   `json:"month2"`
	ResortsWithLowSales       []MonthlyComparisonEntry `json:"resorts_with_low_sales"`
	ResortsWithIncreasedSales []MonthlyComparisonEntry `json:"resorts_with_increased_sales"`
	Summary                   MonthlyComparisonSummary `json:"summary"`
}

// MonthlyComparisonSummary names the largest mover each way.
type MonthlyComparisonSummary struct {
	TotalResortsWithDecline  int                     `json:"total_resorts_with_decline"`
	TotalResortsWithIncrease int                     `json:"total_resorts_with_increase"`
	LargestDecline           *MonthlyComparisonEntry `json:"largest_decline"`
	LargestIncrease          *MonthlyComparisonEntry `json:"largest_increase"`
}

// MonthlySalesComparison compares per-resort revenue between two
// months. Unchanged resorts appear in neither list.
func (e *Engine) MonthlySalesComparison(ctx context.Context, month1, month2 string) (*MonthlySalesComparisonResult, error) {
	r1, err := analytics.MonthRange(month1)
	if err != nil {
		return nil, err
	}
	r2, err := analytics.MonthRange(month2)
	if err != nil {
		return nil, err
	}

	var rows1, rows2 []supabase.Row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rows1, err = e.fetch(gctx, supabase.TableResorts, query.Filters{"activity_date": query.DateRange(r1.Start, r1.End)})
		return err
	})
	g.Go(func() (err error) {
		rows2, err = e.fetch(gctx, supabase.TableResorts, query.Filters{"activity_date": query.DateRange(r2.Start, r2.End)})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats1, _ := rollResorts(rows1)
	stats2, keys2 := rollResorts(rows2)

	low := []MonthlyComparisonEntry{}
	increased := []MonthlyComparisonEntry{}
	for _, name := range keys2 {
		m2 := stats2[name]
		m1 := stats1[name]
		delta := m2.Revenue - m1.Revenue
		entry := MonthlyComparisonEntry{
			ResortName:             name,
			Month1RevenueINR:       m1.Revenue,
			Month2RevenueINR:       m2.Revenue,
			RevenueDeltaINR:        delta,
			PercentageChange:       round1(analytics.PercentChange(m2.Revenue, m1.Revenue)),
			Region:                 m2.Region,
			RevenueDeltaFormatted:  analytics.FormatINR(delta),
			Month1RevenueFormatted: analytics.FormatINR(m1.Revenue),
			Month2RevenueFormatted: analytics.FormatINR(m2.Revenue),
		}
		switch {
		case delta < 0:
			low = append(low, entry)
		case delta > 0:
			increased = append(increased, entry)
		}
	}

	sort.SliceStable(low, func(i, j int) bool { return low[i].PercentageChange > low[j].PercentageChange })
	sort.SliceStable(increased, func(i, j int) bool { return increased[i].PercentageChange > increased[j].PercentageChange })

	summary := MonthlyComparisonSummary{
		TotalResortsWithDecline:  len(low),
		TotalResortsWithIncrease: len(increased),
	}
	if len(low) > 0 {
		summary.LargestDecline = &low[0]
	}
	if len(increased) > 0 {
		summary.LargestIncrease = &increased[0]
	}

	return &MonthlySalesComparisonResult{
		Month1:                    month1,
		Month2:                    month2,
		ResortsWithLowSales:       low,
		ResortsWithIncreasedSales: increased,
		Summary:                   summary,
	}, nil
}

// RevenueReasonsResult explains one resort's revenue move for a month.
type RevenueReasonsResult struct {
	ResortName             string              `json:"resort_name"`
	Month                  string              `json:"month"`
	RevenueComparison      RevenueComparison   `json:"revenue_comparison"`
	OccupancyComparison    OccupancyComparison `json:"occupancy_comparison"`
	IdentifiedReasons      []string            `json:"identified_reasons"`
	NegativeReasons        []string            `json:"negative_reasons"`
	PositiveReasons        []string            `json:"positive_reasons"`
	Events                 []EventSample       `json:"events"`
	PositiveEvents         []EventSample       `json:"positive_events"`
	NegativeFeedbackCount  int                 `json:"negative_feedback_count"`
	PositiveFeedbackCount  int                 `json:"positive_feedback_count"`
	NegativeFeedbackThemes []analytics.Keyword `json:"negative_feedback_themes"`
	PositiveFeedbackThemes []analytics.Keyword `json:"positive_feedback_themes"`
}

// RevenueComparison pairs the two months' revenue.
type RevenueComparison struct {
	PreviousMonth    float64 `json:"previous_month"`
	CurrentMonth     float64 `json:"current_month"`
	DeltaINR         float64 `json:"delta_inr"`
	PercentageChange float64 `json:"percentage_change"`
}

// OccupancyComparison pairs the two months' occupancy.
type OccupancyComparison struct {
	PreviousMonth float64 `json:"previous_month"`
	CurrentMonth  float64 `json:"current_month"`
	Delta         float64 `json:"delta"`
}

// ResortRevenueReasons gathers the plausible explanations for a single
// resort's revenue change: weather, competitor and local events,
// feedback from the surrounding window, and occupancy shifts.
func (e *Engine) ResortRevenueReasons(ctx context.Context, resortName, month string) (*RevenueReasonsResult, error) {
	curr, err := analytics.MonthRange(month)
	if err != nil {
		return nil, err
	}
	prevYm, _ := analytics.PreviousMonth(month)
	prev, _ := analytics.MonthRange(prevYm)

	var resortsCurr, resortsPrev []supabase.Row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		resortsCurr, err = e.fetch(gctx, supabase.TableResorts, query.Filters{
			"activity_date": query.DateRange(curr.Start, curr.End),
			"resort_name":   query.ILike(resortName),
		})
		return err
	})
	g.Go(func() (err error) {
		resortsPrev, err = e.fetch(gctx, supabase.TableResorts, query.Filters{
			"activity_date": query.DateRange(prev.Start, prev.End),
			"resort_name":   query.ILike(resortName),
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	roll := func(rows []supabase.Row) resortStats {
		var s resortStats
		for _, r := range rows {
			s.Revenue += r.Revenue()
			s.OccupancyAvg += r.Occupancy()
			s.MemberRooms += r.Num("member_rooms_booked")
			s.AvailableRooms += r.Num("total_rooms_available")
		}
		if len(rows) > 0 {
			s.OccupancyAvg /= float64(len(rows))
			s.Region = rows[0].Str("resort_region")
		}
		return s
	}
	currData := roll(resortsCurr)
	prevData := roll(resortsPrev)
	revenueDelta := currData.Revenue - prevData.Revenue

	region := currData.Region
	if region == "" {
		region = prevData.Region
	}
	eventFilters := query.Filters{"event_date": query.DateRange(curr.Start, curr.End)}
	if region != "" {
		eventFilters["impact_region"] = query.ILike(region)
	}
	events := e.enrichmentFetch(ctx, supabase.TableEvents, eventFilters)

	feedback := e.enrichmentFetch(ctx, supabase.TableFeedback, query.Filters{
		"feedback_date": query.DateRange(prev.Start, curr.End),
		"resort_name":   query.ILike(resortName),
	})
	negFb := filterRows(feedback, isLooseNegative)
	posFb := filterRows(feedback, isLoosePositive)

	var reasons, positiveReasons []string
	eventDetails := []EventSample{}
	positiveEventDetails := []EventSample{}

	var weather, competitor, local, positiveEvents []supabase.Row
	for _, ev := range events {
		switch ev.Str("event_type") {
		case "Major Weather":
			weather = append(weather, ev)
		case "Competitor Promo":
			competitor = append(competitor, ev)
		case "Local Event":
			local = append(local, ev)
		}
		if ev.Str("event_type") == "Local Event" || (ev.Has("relevance_score") && ev.Relevance() < 3) {
			positiveEvents = append(positiveEvents, ev)
		}
	}
	if len(weather) > 0 {
		reasons = append(reasons, "Weather events")
		for _, ev := range weather {
			eventDetails = append(eventDetails, EventSample{EventType: "Weather", Date: ev.Str("event_date"), Details: ev.EventDetails()})
		}
	}
	if len(competitor) > 0 {
		reasons = append(reasons, "Competitor promotions")
		for _, ev := range competitor {
			eventDetails = append(eventDetails, EventSample{EventType: "Competitor", Date: ev.Str("event_date"), CompetitorName: ev.Str("competitor_name"), Details: ev.EventDetails()})
		}
	}
	if len(local) > 0 && revenueDelta < 0 {
		reasons = append(reasons, "Local events")
		for _, ev := range local {
			eventDetails = append(eventDetails, EventSample{EventType: "Local Event", Date: ev.Str("event_date"), Details: ev.EventDetails()})
		}
	}
	if len(positiveEvents) > 0 && revenueDelta > 0 {
		positiveReasons = append(positiveReasons, "Positive local events")
		for _, ev := range positiveEvents {
			positiveEventDetails = append(positiveEventDetails, EventSample{EventType: "Local Event", Date: ev.Str("event_date"), Details: ev.EventDetails()})
		}
	}
	if len(negFb) > 0 && revenueDelta < 0 {
		reasons = append(reasons, "Negative feedback from previous period")
	}
	if len(posFb) > 0 && revenueDelta > 0 {
		positiveReasons = append(positiveReasons, "Positive feedback from previous period")
	}
	if currData.OccupancyAvg < prevData.OccupancyAvg-e.thresholds.OccupancyShiftPts {
		reasons = append(reasons, "Lower occupancy rate")
	}
	if currData.OccupancyAvg > prevData.OccupancyAvg+e.thresholds.OccupancyShiftPts {
		positiveReasons = append(positiveReasons, "Higher occupancy rate")
	}

	identified := positiveReasons
	if revenueDelta < 0 {
		identified = reasons
	}

	return &RevenueReasonsResult{
		ResortName: resortName,
		Month:      month,
		RevenueComparison: RevenueComparison{
			PreviousMonth:    prevData.Revenue,
			CurrentMonth:     currData.Revenue,
			DeltaINR:         revenueDelta,
			PercentageChange: round1(analytics.PercentChange(currData.Revenue, prevData.Revenue)),
		},
		OccupancyComparison: OccupancyComparison{
			PreviousMonth: prevData.OccupancyAvg,
			CurrentMonth:  currData.OccupancyAvg,
			Delta:         round1(currData.OccupancyAvg - prevData.OccupancyAvg),
		},
		IdentifiedReasons:      orEmpty(identified),
		NegativeReasons:        orEmpty(reasons),
		PositiveReasons:        orEmpty(positiveReasons),
		Events:                 eventDetails,
		PositiveEvents:         positiveEventDetails,
		NegativeFeedbackCount:  len(negFb),
		PositiveFeedbackCount:  len(posFb),
		NegativeFeedbackThemes: analytics.TopKeywords(feedbackTexts(negFb), 5),
		PositiveFeedbackThemes: analytics.TopKeywords(feedbackTexts(posFb), 5),
	}, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// CorrelationEntry ties one resort's decline to its prior feedback.
type CorrelationEntry struct {
	ResortName            string              `json:"resort_name"`
	RevenueDeclineINR     float64             `json:"revenue_decline_inr"`
	RevenueDeclinePct     float64             `json:"revenue_decline_pct"`
	NegativeFeedbackCount int                 `json:"negative_feedback_count"`
	FeedbackThemes        []analytics.Keyword `json:"feedback_themes"`
	CorrelationStrength   string              `json:"correlation_strength"`
}

// CorrelationResult lists decliners correlated with prior negative
// feedback, biggest decline first.
type CorrelationResult struct {
	Month                  string             `json:"month"`
	ResortsWithCorrelation []CorrelationEntry `json:"resorts_with_correlation"`
	Summary                CorrelationSummary `json:"summary"`
}

// CorrelationSummary points at the strongest correlation found.
type CorrelationSummary struct {
	TotalResorts         int               `json:"total_resorts"`
	StrongestCorrelation *CorrelationEntry `json:"strongest_correlation"`
}

// RevenueFeedbackCorrelation finds resorts whose revenue fell versus
// the previous month and whose previous month carried negative
// feedback, or whose decline exceeded the impact threshold even
// without recorded feedback.
func (e *Engine) RevenueFeedbackCorrelation(ctx context.Context, month string) (*CorrelationResult, error) {
	curr, err := analytics.MonthRange(month)
	if err != nil {
		return nil, err
	}
	prevYm, _ := analytics.PreviousMonth(month)
	prev, _ := analytics.MonthRange(prevYm)

	var resortsCurr, resortsPrev, feedback []supabase.Row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		resortsCurr, err = e.fetch(gctx, supabase.TableResorts, query.Filters{"activity_date": query.DateRange(curr.Start, curr.End)})
		return err
	})
	g.Go(func() (err error) {
		resortsPrev, err = e.fetch(gctx, supabase.TableResorts, query.Filters{"activity_date": query.DateRange(prev.Start, prev.End)})
		return err
	})
	g.Go(func() (err error) {
		feedback, err = e.fetch(gctx, supabase.TableFeedback, query.Filters{"feedback_date": query.DateRange(prev.Start, prev.End)})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	prevStats, _ := rollResorts(resortsPrev)
	currStats, currKeys := rollResorts(resortsCurr)

	negByResort := map[string][]supabase.Row{}
	for _, f := range feedback {
		if !isLooseNegative(f) {
			continue
		}
		name := f.Str("resort_name")
		if name == "" {
			name = "Unknown"
		}
		negByResort[name] = append(negByResort[name], f)
	}

	correlated := []CorrelationEntry{}
	for _, name := range currKeys {
		m2 := currStats[name]
		m1 := prevStats[name]
		delta := m2.Revenue - m1.Revenue
		pct := analytics.PercentChange(m2.Revenue, m1.Revenue)
		negFb := negByResort[name]
		if delta >= 0 || (len(negFb) == 0 && pct >= e.thresholds.DeclineImpactPct*100) {
			continue
		}
		correlated = append(correlated, CorrelationEntry{
			ResortName:            name,
			RevenueDeclineINR:     delta,
			RevenueDeclinePct:     round1(pct),
			NegativeFeedbackCount: len(negFb),
			FeedbackThemes:        analytics.TopKeywords(feedbackTexts(negFb), 5),
			CorrelationStrength:   correlationStrength(len(negFb)),
		})
	}

	sort.SliceStable(correlated, func(i, j int) bool {
		return correlated[i].RevenueDeclineINR < correlated[j].RevenueDeclineINR
	})

	summary := CorrelationSummary{TotalResorts: len(correlated)}
	if len(correlated) > 0 {
		summary.StrongestCorrelation = &correlated[0]
	}
	return &CorrelationResult{
		Month:                  month,
		ResortsWithCorrelation: correlated,
		Summary:                summary,
	}, nil
}

func correlationStrength(negatives int) string {
	switch {
	case negatives > 5:
		return "Strong"
	case negatives > 2:
		return "Moderate"
	case negatives > 0:
		return "Weak"
	default:
		return "Potential (significant revenue decline, no feedback recorded)"
	}
}

// SurgeForecastEntry is one resort admitted to the surge forecast.
type SurgeForecastEntry struct {
	ResortName    string               `json:"resort_name"`
	Region        string               `json:"region"`
	ExpectedSurge bool                 `json:"expected_surge"`
	Drivers       SurgeForecastDrivers `json:"drivers"`
}

// SurgeForecastDrivers carries the trend evidence behind an entry.
type SurgeForecastDrivers struct {
	TrendRevenuePct              float64  `json:"trend_revenue_pct"`
	TrendOccupancyDelta          float64  `json:"trend_occupancy_delta"`
	RecentNegativeFeedback       int      `json:"recent_negative_feedback"`
	NotableEventsInWindow        int      `json:"notable_events_in_forecast_window"`
	KeyDrivers                   []string `json:"key_drivers"`
}

// SurgeForecastResult ranks the admitted resorts by revenue trend.
type SurgeForecastResult struct {
	Month    string               `json:"month"`
	Forecast []SurgeForecastEntry `json:"forecast"`
	Summary  SurgeForecastSummary `json:"summary"`
}

// SurgeForecastSummary counts the forecast and names its top entry.
type SurgeForecastSummary struct {
	TotalResortsForecasted int                 `json:"total_resorts_forecasted"`
	TopForecasted          *SurgeForecastEntry `json:"top_forecasted"`
}

// SurgeForecast projects which resorts are likely to see a demand
// surge in the given month, from the trend across the two preceding
// months. When the most recent month has no data yet the comparison
// slides back one month so there is always a trend to read.
func (e *Engine) SurgeForecast(ctx context.Context, month string) (*SurgeForecastResult, error) {
	forecastWindow, err := analytics.MonthRange(month)
	if err != nil {
		return nil, err
	}
	prevYm, _ := analytics.PreviousMonth(month)
	prev2Ym, _ := analytics.PreviousMonth(prevYm)
	r1, _ := analytics.MonthRange(prev2Ym)
	r2, _ := analytics.MonthRange(prevYm)

	var res1, res2 []supabase.Row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		res1, err = e.fetch(gctx, supabase.TableResorts, query.Filters{"activity_date": query.DateRange(r1.Start, r1.End)})
		return err
	})
	g.Go(func() (err error) {
		res2, err = e.fetch(gctx, supabase.TableResorts, query.Filters{"activity_date": query.DateRange(r2.Start, r2.End)})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	olderData, recentData := res1, res2
	if len(res2) == 0 && len(res1) > 0 {
		prev3Ym, _ := analytics.PreviousMonth(prev2Ym)
		r0, _ := analytics.MonthRange(prev3Ym)
		older, err := e.fetch(ctx, supabase.TableResorts, query.Filters{"activity_date": query.DateRange(r0.Start, r0.End)})
		if err != nil {
			return nil, err
		}
		olderData, recentData = older, res1
	}

	older, _ := rollResorts(olderData)
	recent, recentKeys := rollResorts(recentData)

	events := e.enrichmentFetch(ctx, supabase.TableEvents, query.Filters{
		"event_date": query.DateRange(forecastWindow.Start, forecastWindow.End),
	})
	feedback := e.enrichmentFetch(ctx, supabase.TableFeedback, query.Filters{
		"feedback_date": query.DateRange(r2.Start, forecastWindow.Start),
	})

	evByRegion := analytics.GroupBy(events, func(r supabase.Row) string {
		if reg := r.Str("impact_region"); reg != "" {
			return reg
		}
		return "Unknown"
	})
	fbByResort := analytics.GroupBy(feedback, func(r supabase.Row) string {
		if name := r.Str("resort_name"); name != "" {
			return name
		}
		return "Unknown"
	})

	t := e.thresholds
	forecast := []SurgeForecastEntry{}
	for _, name := range recentKeys {
		newer := recent[name]
		old := older[name]
		trendRevPct := fractionChange(newer.Revenue, old.Revenue)
		trendOcc := newer.OccupancyAvg - old.OccupancyAvg
		region := regionOrUnknown(newer)

		evts := evByRegion.Groups[region]
		hasNegativeEvent := false
		for _, ev := range evts {
			if isAdverseEventType(ev.Str("event_type")) {
				hasNegativeEvent = true
				break
			}
		}

		fbs := fbByResort.Groups[name]
		negCount := len(filterRows(fbs, isNegativeFeedback))
		posCount := len(filterRows(fbs, isPositiveFeedback))

		hasPositiveTrend := trendRevPct > t.SurgePositiveRevPct ||
			trendOcc > t.SurgePositiveOccDelta ||
			(trendRevPct > 0 && trendOcc > 0)
		hasLowNegatives := negCount <= t.SurgeMaxNegatives
		hasMajorNegativeEvents := hasNegativeEvent &&
			(trendRevPct < t.MajorEventRevPct || trendOcc < t.MajorEventOccDelta)
		hasPositiveFeedback := posCount > negCount
		isStableWithLowNegatives := trendRevPct >= t.SurgeStableRevPct &&
			trendOcc >= t.SurgeStableOccDelta && negCount <= t.SurgeStableMaxNeg
		hasGoodSentiment := hasPositiveFeedback && negCount <= t.SurgeStableMaxNeg
		hasMinimalDecline := trendRevPct >= t.SurgeMinimalRevPct &&
			trendOcc >= t.SurgeMinimalOccDelta && negCount <= t.SurgeStableMaxNeg

		if !((hasPositiveTrend || isStableWithLowNegatives || hasGoodSentiment || hasMinimalDecline) &&
			hasLowNegatives && !hasMajorNegativeEvents) {
			continue
		}

		var drivers []string
		if trendRevPct > t.SurgePositiveRevPct {
			drivers = append(drivers, fmt.Sprintf("Revenue growth of %.1f%%", trendRevPct*100))
		}
		if trendOcc > t.SurgePositiveOccDelta {
			drivers = append(drivers, fmt.Sprintf("Occupancy increase of %.1f%%", trendOcc))
		}
		if trendRevPct >= t.SurgeStableRevPct && trendOcc >= t.SurgeStableOccDelta &&
			trendRevPct < t.SurgePositiveRevPct && trendOcc < t.SurgePositiveOccDelta {
			drivers = append(drivers, "Stable performance with low negatives")
		}
		if hasPositiveFeedback {
			drivers = append(drivers, fmt.Sprintf("More positive feedback (%d) than negative (%d)", posCount, negCount))
		}
		if negCount <= 2 {
			drivers = append(drivers, fmt.Sprintf("Very low negative feedback (%d)", negCount))
		} else if negCount <= t.SurgeStableMaxNeg {
			drivers = append(drivers, fmt.Sprintf("Low negative feedback (%d)", negCount))
		}
		if len(evts) == 0 {
			drivers = append(drivers, "No negative events forecasted")
		} else if !hasNegativeEvent {
			drivers = append(drivers, "No major negative events forecasted")
		}

		forecast = append(forecast, SurgeForecastEntry{
			ResortName:    name,
			Region:        region,
			ExpectedSurge: true,
			Drivers: SurgeForecastDrivers{
				TrendRevenuePct:        round1(trendRevPct * 100),
				TrendOccupancyDelta:    round1(trendOcc),
				RecentNegativeFeedback: negCount,
				NotableEventsInWindow:  len(evts),
				KeyDrivers:             drivers,
			},
		})
	}

	sort.SliceStable(forecast, func(i, j int) bool {
		return forecast[i].Drivers.TrendRevenuePct > forecast[j].Drivers.TrendRevenuePct
	})

	summary := SurgeForecastSummary{TotalResortsForecasted: len(forecast)}
	if len(forecast) > 0 {
		summary.TopForecasted = &forecast[0]
	}
	return &SurgeForecastResult{Month: month, Forecast: forecast, Summary: summary}, nil
}

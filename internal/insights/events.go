package insights

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"resort-insights-mcp/internal/analytics"
	"resort-insights-mcp/internal/query"
	"resort-insights-mcp/internal/supabase"
)

// isAdverseEventType reports whether the event type alone signals
// likely demand damage.
func isAdverseEventType(eventType string) bool {
	et := strings.ToLower(eventType)
	return strings.Contains(et, "weather") ||
		strings.Contains(et, "competitor") ||
		strings.Contains(et, "economic")
}

// ImpactedResort is one resort paired with the events in its region.
type ImpactedResort struct {
	ResortName      string        `json:"resort_name"`
	Region          string        `json:"region"`
	RevenuePrevINR  float64       `json:"revenue_prev_inr"`
	RevenueCurrINR  float64       `json:"revenue_curr_inr"`
	ChangePct       float64       `json:"change_pct"`
	OccupancyChange float64       `json:"occupancy_change"`
	Events          []EventSample `json:"events"`
}

// EventsImpactResult splits resorts in event regions into confirmed
// decliners and the rest.
type EventsImpactResult struct {
	Impacted            []ImpactedResort    `json:"impacted"`
	PotentiallyAffected []ImpactedResort    `json:"potentially_affected"`
	Summary             EventsImpactSummary `json:"summary"`
}

// EventsImpactSummary counts the classification.
type EventsImpactSummary struct {
	TotalEvents              int      `json:"total_events"`
	RegionsWithEvents        []string `json:"regions_with_events"`
	ConfirmedImpact          int      `json:"confirmed_impact"`
	PotentiallyAffectedCount int      `json:"potentially_affected_count"`
}

// EventsImpact relates negative events in a window to resort revenue
// against the equal-length window before it. Resorts in event regions
// whose revenue dropped past the impact threshold are confirmed
// impacted; the rest are potentially affected.
func (e *Engine) EventsImpact(ctx context.Context, startDate, endDate string) (*EventsImpactResult, error) {
	window := analytics.Window{Start: startDate, End: endDate}
	prevWindow, err := analytics.PreviousWindow(window)
	if err != nil {
		return nil, err
	}

	var events, resorts, resortsPrev []supabase.Row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		events, err = e.fetch(gctx, supabase.TableEvents, query.Filters{"event_date": query.DateRange(startDate, endDate)})
		return err
	})
	g.Go(func() (err error) {
		resorts, err = e.fetch(gctx, supabase.TableResorts, query.Filters{"activity_date": query.DateRange(startDate, endDate)})
		return err
	})
	g.Go(func() (err error) {
		resortsPrev, err = e.fetch(gctx, supabase.TableResorts, query.Filters{"activity_date": query.DateRange(prevWindow.Start, prevWindow.End)})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Keep events that look negative by type or high relevance. When
	// nothing matches, every event is treated as potentially negative
	// rather than reporting an empty impact.
	var negative []supabase.Row
	for _, ev := range events {
		if isAdverseEventType(ev.Str("event_type")) || ev.Relevance() > 5 {
			negative = append(negative, ev)
		}
	}
	finalEvents := negative
	if len(finalEvents) == 0 {
		finalEvents = events
	}

	byRegion := analytics.GroupBy(finalEvents, func(r supabase.Row) string {
		if reg := r.Str("impact_region"); reg != "" {
			return reg
		}
		return "Unknown"
	})

	currStats, currKeys := rollResorts(resorts)
	prevStats, _ := rollResorts(resortsPrev)

	impacted := []ImpactedResort{}
	potentially := []ImpactedResort{}
	for _, name := range currKeys {
		cur := currStats[name]
		prev := prevStats[name]
		region := regionOrUnknown(cur)
		evts := byRegion.Groups[region]
		if len(evts) == 0 {
			continue
		}

		samples := make([]EventSample, 0, len(evts))
		for _, ev := range evts {
			samples = append(samples, EventSample{
				Date:             ev.Str("event_date"),
				EventType:        ev.Str("event_type"),
				WeatherCondition: ev.Str("weather_condition"),
				CompetitorName:   ev.Str("competitor_name"),
				Details:          ev.EventDetails(),
				RelevanceScore:   ev["relevance_score"],
			})
		}
		entry := ImpactedResort{
			ResortName:      name,
			Region:          region,
			RevenuePrevINR:  prev.Revenue,
			RevenueCurrINR:  cur.Revenue,
			ChangePct:       round1(analytics.PercentChange(cur.Revenue, prev.Revenue)),
			OccupancyChange: round1(cur.OccupancyAvg - prev.OccupancyAvg),
			Events:          samples,
		}
		if fractionChange(cur.Revenue, prev.Revenue) < e.thresholds.DeclineImpactPct {
			impacted = append(impacted, entry)
		} else {
			potentially = append(potentially, entry)
		}
	}

	sort.SliceStable(impacted, func(i, j int) bool { return impacted[i].ChangePct < impacted[j].ChangePct })

	return &EventsImpactResult{
		Impacted:            impacted,
		PotentiallyAffected: potentially,
		Summary: EventsImpactSummary{
			TotalEvents:              len(finalEvents),
			RegionsWithEvents:        byRegion.Keys,
			ConfirmedImpact:          len(impacted),
			PotentiallyAffectedCount: len(potentially),
		},
	}, nil
}

// CompetitorImpactEntry is one resort hurt while competitor promos ran.
type CompetitorImpactEntry struct {
	ResortName       string        `json:"resort_name"`
	Region           string        `json:"region"`
	RevenuePrevINR   float64       `json:"revenue_prev_inr"`
	RevenueCurrINR   float64       `json:"revenue_curr_inr"`
	ChangePct        float64       `json:"change_pct"`
	CompetitorEvents []EventSample `json:"competitor_events"`
}

// CompetitorImpactResult lists resorts whose decline coincides with
// competitor promotions in their region.
type CompetitorImpactResult struct {
	Message  string                  `json:"message,omitempty"`
	Impacted []CompetitorImpactEntry `json:"impacted"`
}

// CompetitorImpact looks for "Competitor Promo" events and resorts in
// those regions whose revenue dropped past the impact threshold versus
// the previous equal-length window.
func (e *Engine) CompetitorImpact(ctx context.Context, startDate, endDate string) (*CompetitorImpactResult, error) {
	eventFilters := query.Filters{"event_type": query.Eq("Competitor Promo")}
	if startDate != "" || endDate != "" {
		eventFilters["event_date"] = query.DateRange(startDate, endDate)
	}
	events, err := e.fetch(ctx, supabase.TableEvents, eventFilters)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return &CompetitorImpactResult{Message: "No competitor events found", Impacted: []CompetitorImpactEntry{}}, nil
	}

	impacted, err := e.eventDeclineScan(ctx, events, startDate, endDate, func(ev supabase.Row) EventSample {
		return EventSample{
			Date:           ev.Str("event_date"),
			CompetitorName: ev.Str("competitor_name"),
			Details:        ev.EventDetails(),
			RelevanceScore: ev["relevance_score"],
		}
	})
	if err != nil {
		return nil, err
	}

	entries := make([]CompetitorImpactEntry, 0, len(impacted))
	for _, imp := range impacted {
		entries = append(entries, CompetitorImpactEntry{
			ResortName:       imp.ResortName,
			Region:           imp.Region,
			RevenuePrevINR:   imp.RevenuePrevINR,
			RevenueCurrINR:   imp.RevenueCurrINR,
			ChangePct:        imp.ChangePct,
			CompetitorEvents: imp.Events,
		})
	}
	return &CompetitorImpactResult{Impacted: entries}, nil
}

// WeatherImpactEntry is one resort hurt during weather events.
type WeatherImpactEntry struct {
	ResortName        string        `json:"resort_name"`
	Region            string        `json:"region"`
	RevenuePrevINR    float64       `json:"revenue_prev_inr"`
	RevenueCurrINR    float64       `json:"revenue_curr_inr"`
	RevenueChangePct  float64       `json:"revenue_change_pct"`
	OccupancyPrevPerc float64       `json:"occupancy_prev_perc"`
	OccupancyCurrPerc float64       `json:"occupancy_curr_perc"`
	OccupancyChange   float64       `json:"occupancy_change_perc"`
	WeatherEvents     []EventSample `json:"weather_events"`
}

// WeatherImpactResult lists resorts whose decline coincides with
// weather events in their region.
type WeatherImpactResult struct {
	Message  string               `json:"message,omitempty"`
	Impacted []WeatherImpactEntry `json:"impacted"`
}

// WeatherImpact finds weather events (by type or a populated weather
// condition) and resorts in those regions whose revenue dropped past
// the impact threshold.
func (e *Engine) WeatherImpact(ctx context.Context, startDate, endDate string) (*WeatherImpactResult, error) {
	eventFilters := query.Filters{}
	if startDate != "" || endDate != "" {
		eventFilters["event_date"] = query.DateRange(startDate, endDate)
	}
	all, err := e.fetch(ctx, supabase.TableEvents, eventFilters)
	if err != nil {
		return nil, err
	}

	var events []supabase.Row
	for _, ev := range all {
		if strings.Contains(strings.ToLower(ev.Str("event_type")), "weather") ||
			strings.TrimSpace(ev.Str("weather_condition")) != "" {
			events = append(events, ev)
		}
	}
	if len(events) == 0 {
		return &WeatherImpactResult{Message: "No weather events found", Impacted: []WeatherImpactEntry{}}, nil
	}

	impacted, err := e.eventDeclineScan(ctx, events, startDate, endDate, func(ev supabase.Row) EventSample {
		return EventSample{
			Date:             ev.Str("event_date"),
			WeatherCondition: ev.Str("weather_condition"),
			Details:          ev.EventDetails(),
			RelevanceScore:   ev["relevance_score"],
		}
	})
	if err != nil {
		return nil, err
	}

	entries := make([]WeatherImpactEntry, 0, len(impacted))
	for _, imp := range impacted {
		entries = append(entries, WeatherImpactEntry{
			ResortName:        imp.ResortName,
			Region:            imp.Region,
			RevenuePrevINR:    imp.RevenuePrevINR,
			RevenueCurrINR:    imp.RevenueCurrINR,
			RevenueChangePct:  imp.ChangePct,
			OccupancyPrevPerc: imp.occupancyPrev,
			OccupancyCurrPerc: imp.occupancyCurr,
			OccupancyChange:   imp.OccupancyChange,
			WeatherEvents:     imp.Events,
		})
	}
	return &WeatherImpactResult{Impacted: entries}, nil
}

type declineScanEntry struct {
	ImpactedResort
	occupancyPrev float64
	occupancyCurr float64
}

// eventDeclineScan is the shared shape of the competitor and weather
// scans: restrict resorts to the event regions, compare against the
// previous equal-length window, and keep decliners in regions that had
// events.
func (e *Engine) eventDeclineScan(ctx context.Context, events []supabase.Row, startDate, endDate string, sample func(supabase.Row) EventSample) ([]declineScanEntry, error) {
	byRegion := analytics.GroupBy(events, func(r supabase.Row) string {
		if reg := r.Str("impact_region"); reg != "" {
			return reg
		}
		return "Unknown"
	})
	var regions []string
	for _, k := range byRegion.Keys {
		if k != "Unknown" {
			regions = append(regions, k)
		}
	}

	resortFilters := query.Filters{}
	if startDate != "" || endDate != "" {
		resortFilters["activity_date"] = query.DateRange(startDate, endDate)
	}
	if len(regions) > 0 {
		resortFilters["resort_region"] = query.InStrings(regions)
	}

	// Missing bounds default to today so the previous-window math
	// still has a reference point.
	today := e.now().UTC().Format("2006-01-02")
	effStart, effEnd := startDate, endDate
	if effStart == "" {
		effStart = today
	}
	if effEnd == "" {
		effEnd = today
	}
	prevWindow, err := analytics.PreviousWindow(analytics.Window{Start: effStart, End: effEnd})
	if err != nil {
		return nil, err
	}
	prevFilters := query.Filters{"activity_date": query.DateRange(prevWindow.Start, prevWindow.End)}
	if len(regions) > 0 {
		prevFilters["resort_region"] = query.InStrings(regions)
	}

	var resorts, resortsPrev []supabase.Row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		resorts, err = e.fetch(gctx, supabase.TableResorts, resortFilters)
		return err
	})
	g.Go(func() (err error) {
		resortsPrev, err = e.fetch(gctx, supabase.TableResorts, prevFilters)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	currStats, currKeys := rollResorts(resorts)
	prevStats, _ := rollResorts(resortsPrev)

	var out []declineScanEntry
	for _, name := range currKeys {
		cur := currStats[name]
		prev := prevStats[name]
		region := regionOrUnknown(cur)
		evts := byRegion.Groups[region]
		if len(evts) == 0 {
			continue
		}
		if fractionChange(cur.Revenue, prev.Revenue) >= e.thresholds.DeclineImpactPct {
			continue
		}
		samples := make([]EventSample, 0, len(evts))
		for _, ev := range evts {
			samples = append(samples, sample(ev))
		}
		out = append(out, declineScanEntry{
			ImpactedResort: ImpactedResort{
				ResortName:      name,
				Region:          region,
				RevenuePrevINR:  prev.Revenue,
				RevenueCurrINR:  cur.Revenue,
				ChangePct:       round1(analytics.PercentChange(cur.Revenue, prev.Revenue)),
				OccupancyChange: round1(cur.OccupancyAvg - prev.OccupancyAvg),
				Events:          samples,
			},
			occupancyPrev: prev.OccupancyAvg,
			occupancyCurr: cur.OccupancyAvg,
		})
	}
	return out, nil
}

// MonthDecline pairs one month's drop with the events recorded in it.
type MonthDecline struct {
	Month             string        `json:"month"`
	RevenueDeclineINR float64       `json:"revenue_decline_inr"`
	RevenueDeclinePct float64       `json:"revenue_decline_pct"`
	Events            []EventSample `json:"events"`
}

// MonthEvents lists every event in a requested month.
type MonthEvents struct {
	Month       string        `json:"month"`
	Events      []EventSample `json:"events"`
	TotalEvents int           `json:"total_events"`
}

// EventDeclineResult walks a resort's full history for declines that
// coincide with regional events.
type EventDeclineResult struct {
	Message                  string              `json:"message,omitempty"`
	ResortName               string              `json:"resort_name,omitempty"`
	Region                   string              `json:"region,omitempty"`
	AnalysisPeriod           *analytics.Window   `json:"analysis_period,omitempty"`
	RevenueDeclinesWithEvent []MonthDecline      `json:"revenue_declines_with_events"`
	Summary                  EventDeclineSummary `json:"summary"`
	AllEventsForMonth        *MonthEvents        `json:"all_events_for_month,omitempty"`
}

// EventDeclineSummary totals the decline periods found.
type EventDeclineSummary struct {
	TotalDeclinePeriods int `json:"total_decline_periods"`
	TotalEvents         int `json:"total_events"`
}

// ResortEventDecline scans a resort's entire activity range month by
// month and pairs each revenue drop with the events recorded in the
// same month and region. An optional month also returns that month's
// full event list regardless of decline.
func (e *Engine) ResortEventDecline(ctx context.Context, resortName, month string) (*EventDeclineResult, error) {
	resorts, err := e.fetch(ctx, supabase.TableResorts, query.Filters{
		"resort_name": query.ILike(resortName),
	})
	if err != nil {
		return nil, err
	}
	if len(resorts) == 0 {
		return &EventDeclineResult{
			Message:                  fmt.Sprintf("Resort %q not found", resortName),
			RevenueDeclinesWithEvent: []MonthDecline{},
		}, nil
	}

	region := resorts[0].Str("resort_region")
	var minDate, maxDate string
	for _, r := range resorts {
		d := r.Str("activity_date")
		if d == "" {
			continue
		}
		if minDate == "" || d < minDate {
			minDate = d
		}
		if maxDate == "" || d > maxDate {
			maxDate = d
		}
	}
	if minDate == "" {
		return &EventDeclineResult{
			Message:                  "No activity dates found for resort",
			RevenueDeclinesWithEvent: []MonthDecline{},
		}, nil
	}

	eventFilters := query.Filters{"event_date": query.DateRange(minDate, maxDate)}
	if region != "" {
		eventFilters["impact_region"] = query.ILike(region)
	}
	events := e.enrichmentFetch(ctx, supabase.TableEvents, eventFilters)

	byMonth := analytics.GroupBy(resorts, func(r supabase.Row) string {
		d := r.Str("activity_date")
		if len(d) >= 7 {
			return d[:7]
		}
		return "Unknown"
	})
	months := append([]string(nil), byMonth.Keys...)
	sort.Strings(months)

	monthRevenue := func(m string) float64 {
		var sum float64
		for _, r := range byMonth.Groups[m] {
			sum += r.Revenue()
		}
		return sum
	}
	eventsIn := func(m string) []EventSample {
		var out []EventSample
		for _, ev := range events {
			if d := ev.Str("event_date"); len(d) >= 7 && d[:7] == m {
				out = append(out, eventSample(ev))
			}
		}
		return out
	}

	declines := []MonthDecline{}
	totalEvents := 0
	for i := 1; i < len(months); i++ {
		prevRev := monthRevenue(months[i-1])
		currRev := monthRevenue(months[i])
		delta := currRev - prevRev
		if delta >= 0 {
			continue
		}
		monthEvents := eventsIn(months[i])
		if len(monthEvents) == 0 {
			continue
		}
		declines = append(declines, MonthDecline{
			Month:             months[i],
			RevenueDeclineINR: delta,
			RevenueDeclinePct: round1(analytics.PercentChange(currRev, prevRev)),
			Events:            monthEvents,
		})
		totalEvents += len(monthEvents)
	}

	result := &EventDeclineResult{
		ResortName:               resortName,
		Region:                   region,
		AnalysisPeriod:           &analytics.Window{Start: minDate, End: maxDate},
		RevenueDeclinesWithEvent: declines,
		Summary: EventDeclineSummary{
			TotalDeclinePeriods: len(declines),
			TotalEvents:         totalEvents,
		},
	}
	if month != "" {
		monthEvents := eventsIn(month)
		if monthEvents == nil {
			monthEvents = []EventSample{}
		}
		result.AllEventsForMonth = &MonthEvents{
			Month:       month,
			Events:      monthEvents,
			TotalEvents: len(monthEvents),
		}
	}
	return result, nil
}

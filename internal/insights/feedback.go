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

// FeedbackDragEntry is one decliner with its preceding complaints.
type FeedbackDragEntry struct {
	ResortName            string              `json:"resort_name"`
	RevenuePrevINR        float64             `json:"revenue_prev_inr"`
	RevenueCurrINR        float64             `json:"revenue_curr_inr"`
	ChangePct             float64             `json:"change_pct"`
	NegativeFeedbackCount int                 `json:"negative_feedback_count"`
	Themes                []analytics.Keyword `json:"themes"`
}

// FeedbackDragResult lists resorts whose decline follows negative
// feedback in the prior two months.
type FeedbackDragResult struct {
	Impacted []FeedbackDragEntry `json:"impacted"`
}

// FeedbackDrag flags resorts that declined past the threshold and
// shows the negative feedback logged in the two months before the
// drop.
func (e *Engine) FeedbackDrag(ctx context.Context, month string) (*FeedbackDragResult, error) {
	curr, err := analytics.MonthRange(month)
	if err != nil {
		return nil, err
	}
	prevYm, _ := analytics.PreviousMonth(month)
	prev, _ := analytics.MonthRange(prevYm)
	prev2Ym, _ := analytics.PreviousMonth(prevYm)
	prev2, _ := analytics.MonthRange(prev2Ym)

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
		feedback, err = e.fetch(gctx, supabase.TableFeedback, query.Filters{"log_date": query.DateRange(prev2.Start, prev.End)})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	currStats, currKeys := rollResorts(resortsCurr)
	prevStats, _ := rollResorts(resortsPrev)
	fbByResort := analytics.GroupBy(feedback, func(r supabase.Row) string {
		if name := r.Str("resort_name"); name != "" {
			return name
		}
		return "Unknown"
	})

	impacted := []FeedbackDragEntry{}
	for _, name := range currKeys {
		cur := currStats[name]
		prevv := prevStats[name]
		dropPct := analytics.PercentChange(cur.Revenue, prevv.Revenue)
		if dropPct >= e.thresholds.DeclineImpactPct*100 {
			continue
		}
		neg := filterRows(fbByResort.Groups[name], isNegativeFeedback)
		impacted = append(impacted, FeedbackDragEntry{
			ResortName:            name,
			RevenuePrevINR:        prevv.Revenue,
			RevenueCurrINR:        cur.Revenue,
			ChangePct:             round1(dropPct),
			NegativeFeedbackCount: len(neg),
			Themes:                analytics.TopKeywords(feedbackTexts(neg), 6),
		})
	}
	return &FeedbackDragResult{Impacted: impacted}, nil
}

// FeedbackQuote is one verbatim feedback item.
type FeedbackQuote struct {
	Quote     string      `json:"quote"`
	NPSScore  interface{} `json:"nps_score,omitempty"`
	CSATScore interface{} `json:"csat_score,omitempty"`
	Platform  string      `json:"platform,omitempty"`
	IssueType string      `json:"issue_type,omitempty"`
	Resort    string      `json:"resort,omitempty"`
	Sentiment string      `json:"sentiment,omitempty"`
	Date      string      `json:"date,omitempty"`
}

// CountBreakdown is a grouped count with its share of the total.
type CountBreakdown struct {
	Key        string  `json:"key"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// FeedbackAnalysisResult is the full sentiment picture for one resort
// in a window, with same-window regional events attached.
type FeedbackAnalysisResult struct {
	ResortName    string                   `json:"resort_name"`
	DateRange     analytics.Window         `json:"date_range"`
	Message       string                   `json:"message,omitempty"`
	TotalFeedback int                      `json:"total_feedback"`
	Summary       *FeedbackAnalysisSummary `json:"summary,omitempty"`
	Themes        *FeedbackThemes          `json:"themes,omitempty"`
	Breakdown     *FeedbackBreakdown       `json:"breakdown,omitempty"`
	SampleQuotes  *FeedbackQuotes          `json:"sample_quotes,omitempty"`
	Events        []EventSample            `json:"events"`
	TotalEvents   int                      `json:"total_events"`
	EventsSummary *EventsByType            `json:"events_summary,omitempty"`
}

// FeedbackAnalysisSummary carries the sentiment split and averages.
type FeedbackAnalysisSummary struct {
	TotalFeedback      int     `json:"total_feedback"`
	PositiveCount      int     `json:"positive_count"`
	NegativeCount      int     `json:"negative_count"`
	NeutralCount       int     `json:"neutral_count"`
	PositivePercentage float64 `json:"positive_percentage"`
	NegativePercentage float64 `json:"negative_percentage"`
	AverageNPS         float64 `json:"average_nps"`
	AverageCSAT        float64 `json:"average_csat"`
}

// FeedbackThemes splits keyword themes by sentiment.
type FeedbackThemes struct {
	Overall        []analytics.Keyword `json:"overall"`
	PositiveThemes []analytics.Keyword `json:"positive_themes"`
	NegativeThemes []analytics.Keyword `json:"negative_themes"`
}

// FeedbackBreakdown groups counts by platform and issue type.
type FeedbackBreakdown struct {
	ByPlatform  []CountBreakdown `json:"by_platform"`
	ByIssueType []CountBreakdown `json:"by_issue_type"`
}

// FeedbackQuotes holds sample quotes per sentiment.
type FeedbackQuotes struct {
	Positive []FeedbackQuote `json:"positive"`
	Negative []FeedbackQuote `json:"negative"`
}

// EventsByType counts events per type.
type EventsByType struct {
	ByType []CountBreakdown `json:"by_type"`
}

// ResortFeedbackAnalysis breaks one resort's feedback down by
// sentiment, platform, and issue type, with sample quotes and regional
// events for the same window.
func (e *Engine) ResortFeedbackAnalysis(ctx context.Context, resortName, start, end string) (*FeedbackAnalysisResult, error) {
	window := analytics.Window{Start: start, End: end}
	feedback, err := e.fetch(ctx, supabase.TableFeedback, query.Filters{
		"resort_name":   query.ILike(resortName),
		"feedback_date": query.DateRange(start, end),
	})
	if err != nil {
		return nil, err
	}

	// Region lookup and events are enrichment: their failure leaves
	// the feedback analysis intact.
	var region string
	if resorts := e.enrichmentFetch(ctx, supabase.TableResorts, query.Filters{
		"resort_name": query.ILike(resortName),
	}); len(resorts) > 0 {
		region = resorts[0].Str("resort_region")
	}
	eventFilters := query.Filters{"event_date": query.DateRange(start, end)}
	if region != "" {
		eventFilters["impact_region"] = query.ILike(region)
	}
	events := e.enrichmentFetch(ctx, supabase.TableEvents, eventFilters)

	formatted := make([]EventSample, 0, len(events))
	for _, ev := range events {
		formatted = append(formatted, EventSample{
			EventType:        ev.Str("event_type"),
			Date:             ev.Str("event_date"),
			WeatherCondition: ev.Str("weather_condition"),
			CompetitorName:   ev.Str("competitor_name"),
			Details:          ev.EventDetails(),
			RelevanceScore:   ev["relevance_score"],
		})
	}

	if len(feedback) == 0 {
		return &FeedbackAnalysisResult{
			ResortName:    resortName,
			DateRange:     window,
			Message:       "No feedback found for this resort in the specified date range",
			TotalFeedback: 0,
			Events:        formatted,
			TotalEvents:   len(formatted),
		}, nil
	}

	total := len(feedback)
	positive := filterRows(feedback, isPositiveFeedback)
	negative := filterRows(feedback, isNegativeFeedback)
	neutralCount := 0
	for _, f := range feedback {
		if !isPositiveFeedback(f) && !isNegativeFeedback(f) {
			neutralCount++
		}
	}

	byPlatform := groupCount(feedback, total, func(r supabase.Row) string { return orUnknown(r.Str("platform")) })
	byIssueType := groupCount(feedback, total, func(r supabase.Row) string { return orUnknown(r.Str("issue_type_category")) })

	posQuotes := make([]FeedbackQuote, 0, 3)
	for i, f := range positive {
		if i == 3 {
			break
		}
		posQuotes = append(posQuotes, FeedbackQuote{
			Quote: f.FeedbackText(), NPSScore: f["nps_score"], CSATScore: f["csat_score"],
			Platform: f.Str("platform"), Date: f.Str("feedback_date"),
		})
	}
	negQuotes := make([]FeedbackQuote, 0, 5)
	for i, f := range negative {
		if i == 5 {
			break
		}
		negQuotes = append(negQuotes, FeedbackQuote{
			Quote: f.FeedbackText(), NPSScore: f["nps_score"], CSATScore: f["csat_score"],
			Platform: f.Str("platform"), IssueType: f.Str("issue_type_category"), Date: f.Str("feedback_date"),
		})
	}

	eventTypeCounts := analytics.GroupBy(events, func(r supabase.Row) string { return orUnknown(r.Str("event_type")) })
	byType := make([]CountBreakdown, 0, len(eventTypeCounts.Keys))
	for _, k := range eventTypeCounts.Keys {
		byType = append(byType, CountBreakdown{Key: k, Count: len(eventTypeCounts.Groups[k])})
	}

	return &FeedbackAnalysisResult{
		ResortName:    resortName,
		DateRange:     window,
		TotalFeedback: total,
		Summary: &FeedbackAnalysisSummary{
			TotalFeedback:      total,
			PositiveCount:      len(positive),
			NegativeCount:      len(negative),
			NeutralCount:       neutralCount,
			PositivePercentage: round1(float64(len(positive)) / float64(total) * 100),
			NegativePercentage: round1(float64(len(negative)) / float64(total) * 100),
			AverageNPS:         round2(averagePositive(feedback, "nps_score")),
			AverageCSAT:        round2(averagePositive(feedback, "csat_score")),
		},
		Themes: &FeedbackThemes{
			Overall:        analytics.TopKeywords(feedbackTexts(feedback), 10),
			PositiveThemes: analytics.TopKeywords(feedbackTexts(positive), 5),
			NegativeThemes: analytics.TopKeywords(feedbackTexts(negative), 5),
		},
		Breakdown:    &FeedbackBreakdown{ByPlatform: byPlatform, ByIssueType: byIssueType},
		SampleQuotes: &FeedbackQuotes{Positive: posQuotes, Negative: negQuotes},
		Events:       formatted,
		TotalEvents:  len(formatted),
		EventsSummary: &EventsByType{ByType: byType},
	}, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func groupCount(rows []supabase.Row, total int, keyFn func(supabase.Row) string) []CountBreakdown {
	g := analytics.GroupBy(rows, keyFn)
	out := make([]CountBreakdown, 0, len(g.Keys))
	for _, k := range g.Keys {
		n := len(g.Groups[k])
		pct := 0.0
		if total > 0 {
			pct = round1(float64(n) / float64(total) * 100)
		}
		out = append(out, CountBreakdown{Key: k, Count: n, Percentage: pct})
	}
	return out
}

// PlatformAnalysisEntry scores one feedback platform.
type PlatformAnalysisEntry struct {
	Platform           string           `json:"platform"`
	TotalFeedback      int              `json:"total_feedback"`
	AverageNPS         float64          `json:"average_nps"`
	AverageCSAT        float64          `json:"average_csat"`
	NegativeCount      int              `json:"negative_count"`
	NegativePercentage float64          `json:"negative_percentage"`
	IssueTypes         []CountBreakdown `json:"issue_types"`
}

// PlatformAnalysisResult ranks platforms worst-first by negative rate.
type PlatformAnalysisResult struct {
	Message          string                  `json:"message,omitempty"`
	PlatformAnalysis []PlatformAnalysisEntry `json:"platform_analysis"`
}

// PlatformIssueAnalysis compares feedback platforms on NPS, CSAT, and
// negative share.
func (e *Engine) PlatformIssueAnalysis(ctx context.Context, startDate, endDate string) (*PlatformAnalysisResult, error) {
	filters := query.Filters{}
	if startDate != "" || endDate != "" {
		filters["feedback_date"] = query.DateRange(startDate, endDate)
	}
	feedback, err := e.fetch(ctx, supabase.TableFeedback, filters)
	if err != nil {
		return nil, err
	}
	if len(feedback) == 0 {
		return &PlatformAnalysisResult{Message: "No feedback found", PlatformAnalysis: []PlatformAnalysisEntry{}}, nil
	}

	byPlatform := analytics.GroupBy(feedback, func(r supabase.Row) string { return orUnknown(r.Str("platform")) })
	entries := make([]PlatformAnalysisEntry, 0, len(byPlatform.Keys))
	for _, platform := range byPlatform.Keys {
		arr := byPlatform.Groups[platform]
		neg := len(filterRows(arr, isNegativeFeedback))
		issueCounts := analytics.GroupBy(arr, func(r supabase.Row) string { return orUnknown(r.Str("issue_type_category")) })
		issues := make([]CountBreakdown, 0, len(issueCounts.Keys))
		for _, k := range issueCounts.Keys {
			issues = append(issues, CountBreakdown{Key: k, Count: len(issueCounts.Groups[k])})
		}
		sort.SliceStable(issues, func(i, j int) bool { return issues[i].Count > issues[j].Count })

		entries = append(entries, PlatformAnalysisEntry{
			Platform:           platform,
			TotalFeedback:      len(arr),
			AverageNPS:         averagePositive(arr, "nps_score"),
			AverageCSAT:        averagePositive(arr, "csat_score"),
			NegativeCount:      neg,
			NegativePercentage: round1(float64(neg) / float64(len(arr)) * 100),
			IssueTypes:         issues,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].NegativePercentage > entries[j].NegativePercentage
	})
	return &PlatformAnalysisResult{PlatformAnalysis: entries}, nil
}

// IssueTypeEntry totals one issue category.
type IssueTypeEntry struct {
	IssueType     string  `json:"issue_type"`
	TotalCount    int     `json:"total_count"`
	Percentage    float64 `json:"percentage"`
	AverageNPS    float64 `json:"average_nps"`
	NegativeCount int     `json:"negative_count"`
}

// ResortIssueEntry breaks one resort's issues down by type.
type ResortIssueEntry struct {
	ResortName     string           `json:"resort_name"`
	TotalIssues    int              `json:"total_issues"`
	IssueBreakdown []CountBreakdown `json:"issue_breakdown"`
}

// IssueTypeTrendsResult pairs the global issue-type totals with
// per-resort breakdowns.
type IssueTypeTrendsResult struct {
	Message           string             `json:"message,omitempty"`
	IssueTypeAnalysis []IssueTypeEntry   `json:"issue_type_analysis"`
	ByResort          []ResortIssueEntry `json:"by_resort"`
}

// IssueTypeTrends totals feedback by issue category, overall and per
// resort.
func (e *Engine) IssueTypeTrends(ctx context.Context, resortName, startDate, endDate string) (*IssueTypeTrendsResult, error) {
	filters := query.Filters{}
	if resortName != "" {
		filters["resort_name"] = query.ILike(resortName)
	}
	if startDate != "" || endDate != "" {
		filters["feedback_date"] = query.DateRange(startDate, endDate)
	}
	feedback, err := e.fetch(ctx, supabase.TableFeedback, filters)
	if err != nil {
		return nil, err
	}
	if len(feedback) == 0 {
		return &IssueTypeTrendsResult{Message: "No feedback found", IssueTypeAnalysis: []IssueTypeEntry{}, ByResort: []ResortIssueEntry{}}, nil
	}

	byIssue := analytics.GroupBy(feedback, func(r supabase.Row) string { return orUnknown(r.Str("issue_type_category")) })
	issues := make([]IssueTypeEntry, 0, len(byIssue.Keys))
	for _, issue := range byIssue.Keys {
		arr := byIssue.Groups[issue]
		issues = append(issues, IssueTypeEntry{
			IssueType:     issue,
			TotalCount:    len(arr),
			Percentage:    round1(float64(len(arr)) / float64(len(feedback)) * 100),
			AverageNPS:    averagePositive(arr, "nps_score"),
			NegativeCount: len(filterRows(arr, isNegativeFeedback)),
		})
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].TotalCount > issues[j].TotalCount })

	byResort := analytics.GroupBy(feedback, func(r supabase.Row) string { return orUnknown(r.Str("resort_name")) })
	resorts := make([]ResortIssueEntry, 0, len(byResort.Keys))
	for _, name := range byResort.Keys {
		arr := byResort.Groups[name]
		breakdown := analytics.GroupBy(arr, func(r supabase.Row) string { return orUnknown(r.Str("issue_type_category")) })
		items := make([]CountBreakdown, 0, len(breakdown.Keys))
		for _, k := range breakdown.Keys {
			items = append(items, CountBreakdown{Key: k, Count: len(breakdown.Groups[k])})
		}
		sort.SliceStable(items, func(i, j int) bool { return items[i].Count > items[j].Count })
		resorts = append(resorts, ResortIssueEntry{ResortName: name, TotalIssues: len(arr), IssueBreakdown: items})
	}
	sort.SliceStable(resorts, func(i, j int) bool { return resorts[i].TotalIssues > resorts[j].TotalIssues })

	return &IssueTypeTrendsResult{IssueTypeAnalysis: issues, ByResort: resorts}, nil
}

// DemographicBucket is one demographic slice's share of feedback.
type DemographicBucket struct {
	Key        string  `json:"key"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// DemographicsResult buckets feedback by member demographics.
type DemographicsResult struct {
	Message       string                         `json:"message,omitempty"`
	Sentiment     string                         `json:"sentiment"`
	TotalFeedback int                            `json:"total_feedback"`
	Breakdown     map[string][]DemographicBucket `json:"breakdown"`
}

// Demographic dimensions available to FeedbackDemographics.
var demographicDimensions = []string{"gender", "member_region", "age_group"}

// FeedbackDemographics joins feedback to member records and buckets it
// by gender, home region, and age group. Members missing a dimension
// land in "Unknown".
func (e *Engine) FeedbackDemographics(ctx context.Context, sentiment, dimension, startDate, endDate string) (*DemographicsResult, error) {
	filters := query.Filters{}
	if sentiment != "" {
		filters["sentiment"] = query.ILike(sentiment)
	}
	if startDate != "" || endDate != "" {
		filters["feedback_date"] = query.DateRange(startDate, endDate)
	}
	feedback, err := e.fetch(ctx, supabase.TableFeedback, filters)
	if err != nil {
		return nil, err
	}
	if len(feedback) == 0 {
		return &DemographicsResult{
			Message:   "No feedback found matching criteria",
			Sentiment: sentimentLabel(sentiment),
			Breakdown: map[string][]DemographicBucket{},
		}, nil
	}

	var memberIDs []string
	seen := map[string]bool{}
	for _, f := range feedback {
		if id := f.Str("member_id_fk"); id != "" && !seen[id] {
			seen[id] = true
			memberIDs = append(memberIDs, id)
		}
	}
	var members []supabase.Row
	if len(memberIDs) > 0 {
		members, err = e.fetch(ctx, supabase.TableMembers, query.Filters{
			"member_id": query.InStrings(memberIDs),
		})
		if err != nil {
			return nil, err
		}
	}
	memberByID := make(map[string]supabase.Row, len(members))
	for _, m := range members {
		memberByID[m.Str("member_id")] = m
	}

	dims := demographicDimensions
	if dimension != "" {
		dims = []string{dimension}
	}

	total := len(feedback)
	breakdown := make(map[string][]DemographicBucket, len(dims))
	for _, dim := range dims {
		g := analytics.GroupBy(feedback, func(f supabase.Row) string {
			member, ok := memberByID[f.Str("member_id_fk")]
			if !ok {
				return "Unknown"
			}
			switch dim {
			case "gender":
				return orUnknown(member.Str("gender"))
			case "member_region":
				return orUnknown(member.MemberRegion())
			case "age_group":
				return orUnknown(member.Str("age_group"))
			default:
				return "Unknown"
			}
		})
		buckets := make([]DemographicBucket, 0, len(g.Keys))
		for _, k := range g.Keys {
			n := len(g.Groups[k])
			buckets = append(buckets, DemographicBucket{
				Key:        k,
				Count:      n,
				Percentage: round2(float64(n) / float64(total) * 100),
			})
		}
		sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Count > buckets[j].Count })
		breakdown[dim] = buckets
	}

	return &DemographicsResult{
		Sentiment:     sentimentLabel(sentiment),
		TotalFeedback: total,
		Breakdown:     breakdown,
	}, nil
}

func sentimentLabel(s string) string {
	if s == "" {
		return "all"
	}
	return s
}

// UnpaidMemberFeedback profiles one chronically unpaid member.
type UnpaidMemberFeedback struct {
	MemberID              string          `json:"member_id"`
	MemberName            string          `json:"member_name"`
	MembershipTier        string          `json:"membership_tier"`
	AnnualFeeStatus       string          `json:"annual_fee_status"`
	ASFFeeMissedYears     float64         `json:"annual_asf_fee_missed_years"`
	LastHolidayDate       string          `json:"last_holiday_date"`
	DateJoined            string          `json:"date_joined"`
	TotalFeedbackCount    int             `json:"total_feedback_count"`
	NegativeFeedbackCount int             `json:"negative_feedback_count"`
	NegativeFeedback      []FeedbackQuote `json:"negative_feedback"`
	AllFeedback           []FeedbackQuote `json:"all_feedback"`
}

// UnpaidASFResult joins chronic fee defaulters to their feedback.
type UnpaidASFResult struct {
	Message                     string                 `json:"message,omitempty"`
	DiagnosticInfo              map[string]interface{} `json:"diagnostic_info,omitempty"`
	TotalUnpaidMembers          int                    `json:"total_unpaid_members"`
	MembersWithFeedback         int                    `json:"members_with_feedback"`
	MembersWithNegativeFeedback int                    `json:"members_with_negative_feedback"`
	FilterCriteria              string                 `json:"filter_criteria,omitempty"`
	Members                     []UnpaidMemberFeedback `json:"members"`
}

// UnpaidASFFeedback finds members who have missed the annual service
// fee for more than two years and joins in everything they have said.
// When the filter matches nobody, diagnostics about the fee column are
// returned instead so the empty result is explainable.
func (e *Engine) UnpaidASFFeedback(ctx context.Context) (*UnpaidASFResult, error) {
	unpaid, err := e.fetch(ctx, supabase.TableMembers, query.Filters{
		"annual_asf_fee_missed_years": query.Gt(2),
	})
	if err != nil {
		return nil, err
	}

	if len(unpaid) == 0 {
		all := e.enrichmentFetch(ctx, supabase.TableMembers, query.Filters{})
		withField := 0
		var sampleValues []interface{}
		valSeen := map[string]bool{}
		for i, m := range all {
			if m.Has("annual_asf_fee_missed_years") {
				withField++
				if i < 50 {
					key := fmt.Sprintf("%v", m["annual_asf_fee_missed_years"])
					if !valSeen[key] && len(sampleValues) < 10 {
						valSeen[key] = true
						sampleValues = append(sampleValues, m["annual_asf_fee_missed_years"])
					}
				}
			}
		}
		return &UnpaidASFResult{
			Message: "No members found with unpaid ASF for 2+ years (annual_asf_fee_missed_years > 2)",
			DiagnosticInfo: map[string]interface{}{
				"total_members_checked":                    len(all),
				"members_with_asf_field":                   withField,
				"sample_asf_fee_missed_years_values":       sampleValues,
				"note":                                     "Filtering by annual_asf_fee_missed_years > 2. If you expected results, check if the column has values greater than 2.",
			},
			Members: []UnpaidMemberFeedback{},
		}, nil
	}

	ids := make([]string, 0, len(unpaid))
	for _, m := range unpaid {
		if id := m.Str("member_id"); id != "" {
			ids = append(ids, id)
		}
	}
	feedback, err := e.fetch(ctx, supabase.TableFeedback, query.Filters{
		"member_id_fk": query.InStrings(ids),
	})
	if err != nil {
		return nil, err
	}
	fbByMember := analytics.GroupBy(feedback, func(r supabase.Row) string { return orUnknown(r.Str("member_id_fk")) })

	quote := func(f supabase.Row) FeedbackQuote {
		return FeedbackQuote{
			Date:      f.Str("feedback_date"),
			Resort:    f.Str("resort_name"),
			NPSScore:  f["nps_score"],
			CSATScore: f["csat_score"],
			Sentiment: f.Str("sentiment"),
			Quote:     f.FeedbackText(),
		}
	}

	members := make([]UnpaidMemberFeedback, 0, len(unpaid))
	withFb, withNeg := 0, 0
	for _, m := range unpaid {
		memberFb := fbByMember.Groups[m.Str("member_id")]
		neg := filterRows(memberFb, isLooseNegative)
		negQuotes := make([]FeedbackQuote, 0, len(neg))
		for _, f := range neg {
			negQuotes = append(negQuotes, quote(f))
		}
		allQuotes := make([]FeedbackQuote, 0, len(memberFb))
		for _, f := range memberFb {
			allQuotes = append(allQuotes, quote(f))
		}
		name := strings.TrimSpace(m.Str("member_first_name") + " " + m.Str("member_last_name"))
		members = append(members, UnpaidMemberFeedback{
			MemberID:              m.Str("member_id"),
			MemberName:            name,
			MembershipTier:        m.Str("membership_tier"),
			AnnualFeeStatus:       m.Str("annual_fee_collection_status"),
			ASFFeeMissedYears:     m.Num("annual_asf_fee_missed_years"),
			LastHolidayDate:       m.Str("last_holiday_date"),
			DateJoined:            m.Str("date_joined"),
			TotalFeedbackCount:    len(memberFb),
			NegativeFeedbackCount: len(neg),
			NegativeFeedback:      negQuotes,
			AllFeedback:           allQuotes,
		})
		if len(memberFb) > 0 {
			withFb++
		}
		if len(neg) > 0 {
			withNeg++
		}
	}

	return &UnpaidASFResult{
		TotalUnpaidMembers:          len(members),
		MembersWithFeedback:         withFb,
		MembersWithNegativeFeedback: withNeg,
		FilterCriteria:              "annual_asf_fee_missed_years > 2",
		Members:                     members,
	}, nil
}

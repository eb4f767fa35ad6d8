package insights

import (
	"context"
	"sort"

	"resort-insights-mcp/internal/analytics"
	"resort-insights-mcp/internal/query"
	"resort-insights-mcp/internal/supabase"
)

// LTVStatistics summarizes the lifetime value distribution.
type LTVStatistics struct {
	TotalMembers int     `json:"total_members"`
	AverageLTV   float64 `json:"average_ltv"`
	MedianLTV    float64 `json:"median_ltv"`
	MinLTV       float64 `json:"min_ltv"`
	MaxLTV       float64 `json:"max_ltv"`
}

// LTVGroup is a lifetime value rollup for one region or tier.
type LTVGroup struct {
	Key         string  `json:"key"`
	MemberCount int     `json:"member_count"`
	AverageLTV  float64 `json:"average_ltv"`
	TotalLTV    float64 `json:"total_ltv"`
}

// AtRiskMember flags a member showing churn signals.
type AtRiskMember struct {
	MemberID        string   `json:"member_id"`
	MembershipTier  string   `json:"membership_tier"`
	LifetimeValue   float64  `json:"lifetime_value_inr"`
	IsActive        bool     `json:"is_active"`
	LastFeedbackNPS float64  `json:"last_feedback_nps"`
	FeeStatus       string   `json:"annual_fee_collection_status"`
	LastHolidayDate string   `json:"last_holiday_date"`
	RiskFactors     []string `json:"risk_factors"`
}

// LifetimeValueResult is the full member value analysis.
type LifetimeValueResult struct {
	Message       string         `json:"message,omitempty"`
	LTVStatistics *LTVStatistics `json:"ltv_statistics,omitempty"`
	ByRegion      []LTVGroup     `json:"by_region,omitempty"`
	ByTier        []LTVGroup     `json:"by_tier,omitempty"`
	HighestTier   *LTVGroup      `json:"highest_ltv_tier,omitempty"`
	LowestTier    *LTVGroup      `json:"lowest_ltv_tier,omitempty"`
	AtRiskMembers []AtRiskMember `json:"at_risk_members,omitempty"`
}

// MemberLifetimeValue analyzes lifetime value across the member base:
// distribution statistics, regional and tier rollups sorted by average
// value, and a capped at-risk list.
func (e *Engine) MemberLifetimeValue(ctx context.Context, region, tier, startDate, endDate string) (*LifetimeValueResult, error) {
	filters := query.Filters{}
	if region != "" {
		filters["home_region"] = query.ILike(region)
	}
	if tier != "" {
		filters["membership_tier"] = query.Eq(tier)
	}
	if startDate != "" || endDate != "" {
		filters["date_joined"] = query.DateRange(startDate, endDate)
	}
	members, err := e.fetch(ctx, supabase.TableMembers, filters)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return &LifetimeValueResult{Message: "No members found"}, nil
	}

	values := make([]float64, len(members))
	var sum float64
	min, max := members[0].LifetimeValue(), members[0].LifetimeValue()
	for i, m := range members {
		v := m.LifetimeValue()
		values[i] = v
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	stats := &LTVStatistics{
		TotalMembers: len(members),
		AverageLTV:   sum / float64(len(members)),
		MedianLTV:    analytics.Median(values),
		MinLTV:       min,
		MaxLTV:       max,
	}

	rollGroups := func(keyFn func(supabase.Row) string) []LTVGroup {
		g := analytics.GroupBy(members, keyFn)
		out := make([]LTVGroup, 0, len(g.Keys))
		for _, k := range g.Keys {
			arr := g.Groups[k]
			var total float64
			for _, m := range arr {
				total += m.LifetimeValue()
			}
			out = append(out, LTVGroup{
				Key:         k,
				MemberCount: len(arr),
				AverageLTV:  total / float64(len(arr)),
				TotalLTV:    total,
			})
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].AverageLTV > out[j].AverageLTV })
		return out
	}

	byRegion := rollGroups(func(m supabase.Row) string { return orUnknown(m.Str("home_region")) })
	byTier := rollGroups(func(m supabase.Row) string { return orUnknown(m.Str("membership_tier")) })

	var highest, lowest *LTVGroup
	if len(byTier) > 0 {
		highest = &byTier[0]
		lowest = &byTier[len(byTier)-1]
	}

	t := e.thresholds
	atRisk := []AtRiskMember{}
	for _, m := range members {
		ltv := m.LifetimeValue()
		isActive := m["is_active"] == true
		nps := m.Num("last_feedback_nps")
		feeStatus := m.Str("annual_fee_collection_status")
		daysSinceHoliday := e.daysSince(m.Str("last_holiday_date"))

		var factors []string
		if !isActive {
			factors = append(factors, "inactive")
		}
		if ltv < t.LowLTV {
			factors = append(factors, "low_ltv")
		}
		if nps < 6 {
			factors = append(factors, "poor_feedback")
		}
		if feeStatus == "Due" {
			factors = append(factors, "payment_due")
		}
		if daysSinceHoliday > t.StaleHolidayDays {
			factors = append(factors, "no_recent_holiday")
		}
		if len(factors) == 0 {
			continue
		}
		atRisk = append(atRisk, AtRiskMember{
			MemberID:        m.Str("member_id"),
			MembershipTier:  m.Str("membership_tier"),
			LifetimeValue:   ltv,
			IsActive:        isActive,
			LastFeedbackNPS: nps,
			FeeStatus:       feeStatus,
			LastHolidayDate: m.Str("last_holiday_date"),
			RiskFactors:     factors,
		})
		if len(atRisk) == 50 {
			break
		}
	}

	return &LifetimeValueResult{
		LTVStatistics: stats,
		ByRegion:      byRegion,
		ByTier:        byTier,
		HighestTier:   highest,
		LowestTier:    lowest,
		AtRiskMembers: atRisk,
	}, nil
}

// ChurnRiskMember is one member's weighted churn score.
type ChurnRiskMember struct {
	MemberID             string   `json:"member_id"`
	MembershipTier       string   `json:"membership_tier"`
	HomeRegion           string   `json:"home_region"`
	LifetimeValue        float64  `json:"lifetime_value_inr"`
	IsActive             bool     `json:"is_active"`
	LastFeedbackNPS      float64  `json:"last_feedback_nps"`
	FeeStatus            string   `json:"annual_fee_collection_status"`
	LastHolidayDate      string   `json:"last_holiday_date"`
	DaysSinceLastHoliday int      `json:"days_since_last_holiday"`
	RiskScore            int      `json:"risk_score"`
	RiskLevel            string   `json:"risk_level"`
	RiskFactors          []string `json:"risk_factors"`
}

// ChurnRiskSummary counts members per risk bucket.
type ChurnRiskSummary struct {
	TotalMembers int `json:"total_members"`
	HighRisk     int `json:"high_risk"`
	MediumRisk   int `json:"medium_risk"`
	LowRisk      int `json:"low_risk"`
}

// ChurnRiskResult ranks members by churn score, capped at 100 entries.
type ChurnRiskResult struct {
	Message       string            `json:"message,omitempty"`
	Summary       *ChurnRiskSummary `json:"summary,omitempty"`
	AtRiskMembers []ChurnRiskMember `json:"at_risk_members"`
}

// MemberChurnRisk scores every member on weighted churn signals:
// inactivity 30, low lifetime value 20, poor feedback 15, fee due 25,
// stale last holiday 10, long tenure with low value 10. Scores of 50+
// bucket high, 30+ medium, the rest low.
func (e *Engine) MemberChurnRisk(ctx context.Context, riskLevel string) (*ChurnRiskResult, error) {
	members, err := e.fetch(ctx, supabase.TableMembers, query.Filters{})
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return &ChurnRiskResult{Message: "No members found", AtRiskMembers: []ChurnRiskMember{}}, nil
	}

	t := e.thresholds
	scored := make([]ChurnRiskMember, 0, len(members))
	summary := &ChurnRiskSummary{TotalMembers: len(members)}
	for _, m := range members {
		ltv := m.LifetimeValue()
		isActive := m["is_active"] == true
		nps := m.Num("last_feedback_nps")
		feeStatus := m.Str("annual_fee_collection_status")
		daysSinceHoliday := e.daysSince(m.Str("last_holiday_date"))
		daysSinceJoined := 0
		if joined := m.Str("date_joined"); joined != "" {
			if d := e.daysSince(joined); d != 9999 {
				daysSinceJoined = d
			}
		}

		score := 0
		var factors []string
		if !isActive {
			score += 30
			factors = append(factors, "inactive")
		}
		if ltv < t.LowLTV {
			score += 20
			factors = append(factors, "low_ltv")
		}
		if nps > 0 && nps < 6 {
			score += 15
			factors = append(factors, "poor_feedback")
		}
		if feeStatus == "Due" {
			score += 25
			factors = append(factors, "payment_due")
		}
		if daysSinceHoliday > t.StaleHolidayDays {
			score += 10
			factors = append(factors, "no_recent_holiday")
		}
		if daysSinceJoined > t.EngagementDays && ltv < t.EngagementLTV {
			score += 10
			factors = append(factors, "low_engagement")
		}

		level := "low"
		switch {
		case score >= t.ChurnHighScore:
			level = "high"
		case score >= t.ChurnMediumScore:
			level = "medium"
		}
		switch level {
		case "high":
			summary.HighRisk++
		case "medium":
			summary.MediumRisk++
		default:
			summary.LowRisk++
		}

		if riskLevel != "" && level != riskLevel {
			continue
		}
		scored = append(scored, ChurnRiskMember{
			MemberID:             m.Str("member_id"),
			MembershipTier:       m.Str("membership_tier"),
			HomeRegion:           m.Str("home_region"),
			LifetimeValue:        ltv,
			IsActive:             isActive,
			LastFeedbackNPS:      nps,
			FeeStatus:            feeStatus,
			LastHolidayDate:      m.Str("last_holiday_date"),
			DaysSinceLastHoliday: daysSinceHoliday,
			RiskScore:            score,
			RiskLevel:            level,
			RiskFactors:          factors,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].RiskScore > scored[j].RiskScore })
	if len(scored) > 100 {
		scored = scored[:100]
	}
	return &ChurnRiskResult{Summary: summary, AtRiskMembers: scored}, nil
}

package insights

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"resort-insights-mcp/internal/analytics"
	"resort-insights-mcp/internal/query"
	"resort-insights-mcp/internal/supabase"
)

// TierAttractionEntry counts one resort's interactions from a tier.
type TierAttractionEntry struct {
	ResortName       string `json:"resort_name"`
	TierInteractions int    `json:"tier_interactions"`
}

// TierAttractionResult ranks resorts by tier engagement.
type TierAttractionResult struct {
	Tier    string                `json:"tier"`
	Ranking []TierAttractionEntry `json:"ranking"`
}

// tierFeedback fetches feedback for a window alongside the tier's
// member roster and keeps feedback attributable to that tier, either
// directly on the row or through the member join.
func (e *Engine) tierFeedback(ctx context.Context, tier, startDate, endDate string) ([]supabase.Row, error) {
	fbFilters := query.Filters{}
	if startDate != "" || endDate != "" {
		fbFilters["feedback_date"] = query.DateRange(startDate, endDate)
	}

	var feedback, members []supabase.Row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		feedback, err = e.fetch(gctx, supabase.TableFeedback, fbFilters)
		return err
	})
	g.Go(func() (err error) {
		members, err = e.fetch(gctx, supabase.TableMembers, query.Filters{
			"membership_tier": query.Eq(tier),
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tierMembers := make(map[string]bool, len(members))
	for _, m := range members {
		if id := m.Str("member_id"); id != "" {
			tierMembers[id] = true
		}
	}
	return filterRows(feedback, func(f supabase.Row) bool {
		return strings.EqualFold(f.Str("membership_tier"), tier) || tierMembers[f.Str("member_id_fk")]
	}), nil
}

// TierAttraction ranks resorts by how much feedback interaction they
// draw from the given membership tier. Feedback volume stands in for
// engagement since stays are not tracked per member.
func (e *Engine) TierAttraction(ctx context.Context, tier, startDate, endDate string) (*TierAttractionResult, error) {
	tierFb, err := e.tierFeedback(ctx, tier, startDate, endDate)
	if err != nil {
		return nil, err
	}

	byResort := analytics.GroupBy(tierFb, func(r supabase.Row) string { return orUnknown(r.Str("resort_name")) })
	ranking := make([]TierAttractionEntry, 0, len(byResort.Keys))
	for _, name := range byResort.Keys {
		ranking = append(ranking, TierAttractionEntry{
			ResortName:       name,
			TierInteractions: len(byResort.Groups[name]),
		})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].TierInteractions > ranking[j].TierInteractions
	})
	return &TierAttractionResult{Tier: tier, Ranking: ranking}, nil
}

// TierResortFeedback is one resort's complaint profile for a tier.
type TierResortFeedback struct {
	ResortName         string              `json:"resort_name"`
	TotalFeedback      int                 `json:"total_feedback,omitempty"`
	NegativeCount      int                 `json:"negative_count"`
	NegativePercentage float64             `json:"negative_percentage,omitempty"`
	SampleQuotes       []string            `json:"sample_quotes"`
	Themes             []analytics.Keyword `json:"themes"`
}

// TierFeedbackResult lists per-resort tier feedback, most complained
// about first.
type TierFeedbackResult struct {
	Tier    string               `json:"tier"`
	Resorts []TierResortFeedback `json:"resorts"`
}

// TierPoorFeedback surfaces the resorts drawing negative feedback from
// a tier, with sample quotes and themes. Rows that read positive are
// excluded before the negative rule applies.
func (e *Engine) TierPoorFeedback(ctx context.Context, tier, startDate, endDate string) (*TierFeedbackResult, error) {
	return e.tierFeedbackReport(ctx, tier, startDate, endDate, false)
}

// TierFeedback is the same per-resort view with totals and the
// negative share included.
func (e *Engine) TierFeedback(ctx context.Context, tier, startDate, endDate string) (*TierFeedbackResult, error) {
	return e.tierFeedbackReport(ctx, tier, startDate, endDate, true)
}

func (e *Engine) tierFeedbackReport(ctx context.Context, tier, startDate, endDate string, includeTotals bool) (*TierFeedbackResult, error) {
	tierFb, err := e.tierFeedback(ctx, tier, startDate, endDate)
	if err != nil {
		return nil, err
	}

	byResort := analytics.GroupBy(tierFb, func(r supabase.Row) string { return orUnknown(r.Str("resort_name")) })
	resorts := make([]TierResortFeedback, 0, len(byResort.Keys))
	for _, name := range byResort.Keys {
		arr := byResort.Groups[name]
		neg := filterRows(arr, isStrictNegative)

		quotes := make([]string, 0, 5)
		for i, f := range neg {
			if i == 5 {
				break
			}
			if q := strings.TrimSpace(f.FeedbackText()); q != "" {
				quotes = append(quotes, q)
			}
		}

		entry := TierResortFeedback{
			ResortName:    name,
			NegativeCount: len(neg),
			SampleQuotes:  quotes,
			Themes:        analytics.TopKeywords(feedbackTexts(neg), 8),
		}
		if includeTotals {
			entry.TotalFeedback = len(arr)
			if len(arr) > 0 {
				entry.NegativePercentage = round1(float64(len(neg)) / float64(len(arr)) * 100)
			}
		}
		resorts = append(resorts, entry)
	}
	sort.SliceStable(resorts, func(i, j int) bool { return resorts[i].NegativeCount > resorts[j].NegativeCount })
	return &TierFeedbackResult{Tier: tier, Resorts: resorts}, nil
}

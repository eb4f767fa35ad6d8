package insights

import (
	"strings"

	"resort-insights-mcp/internal/supabase"
)

// Feedback sentiment classification. Rows without scores read as 0,
// so the negative rule also catches unscored feedback.

func isNegativeFeedback(r supabase.Row) bool {
	if strings.ToLower(r.Str("sentiment")) == "negative" {
		return true
	}
	return r.Num("nps_score") <= 6 || r.Num("csat_score") <= 3
}

func isPositiveFeedback(r supabase.Row) bool {
	if strings.ToLower(r.Str("sentiment")) == "positive" {
		return true
	}
	return r.Num("nps_score") >= 7 || r.Num("csat_score") >= 4
}

// isStrictNegative excludes anything that reads positive before
// applying the negative rule. The tier reports use this so a row with
// a high CSAT but low NPS is not double counted as a complaint.
func isStrictNegative(r supabase.Row) bool {
	if isPositiveFeedback(r) {
		return false
	}
	return isNegativeFeedback(r)
}

// isLooseNegative is the broader rule used by the correlation and
// revenue-reason reports: NPS below 7 or a sentiment string containing
// "negative".
func isLooseNegative(r supabase.Row) bool {
	return r.Num("nps_score") < 7 ||
		strings.Contains(strings.ToLower(r.Str("sentiment")), "negative")
}

func isLoosePositive(r supabase.Row) bool {
	return r.Num("nps_score") >= 7 ||
		strings.Contains(strings.ToLower(r.Str("sentiment")), "positive")
}

func filterRows(rows []supabase.Row, keep func(supabase.Row) bool) []supabase.Row {
	var out []supabase.Row
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func feedbackTexts(rows []supabase.Row) []string {
	texts := make([]string, 0, len(rows))
	for _, r := range rows {
		if t := r.FeedbackText(); t != "" {
			texts = append(texts, t)
		}
	}
	return texts
}

func averagePositive(rows []supabase.Row, field string) float64 {
	var sum float64
	var n int
	for _, r := range rows {
		if v := r.Num(field); v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

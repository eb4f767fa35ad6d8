package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resort-insights-mcp/internal/apperrors"
	"resort-insights-mcp/internal/supabase"
)

func TestRollup(t *testing.T) {
	rows := []supabase.Row{
		{"nps": float64(10), "csat": float64(4)},
		{"nps": float64(20), "csat": "bad"},
	}

	stats := Rollup(rows, "nps", "csat")

	nps := stats["nps"]
	assert.Equal(t, float64(30), nps.Sum)
	assert.Equal(t, float64(15), nps.Avg)
	assert.Equal(t, float64(10), nps.Min)
	assert.Equal(t, float64(20), nps.Max)
	assert.Equal(t, 2, nps.Count)

	csat := stats["csat"]
	assert.Equal(t, float64(4), csat.Sum, "non-numeric counts as 0")
	assert.Equal(t, float64(2), csat.Avg)
	assert.Equal(t, float64(4), csat.Min, "non-numeric skipped for min")
	assert.Equal(t, float64(4), csat.Max)
}

func TestRollupEmpty(t *testing.T) {
	stats := Rollup(nil, "nps")
	assert.Equal(t, Stats{}, stats["nps"], "empty input yields all zeros")
}

func TestGroupByPreservesOrder(t *testing.T) {
	rows := []supabase.Row{
		{"region": "Goa"},
		{"region": "Kerala"},
		{"region": "Goa"},
		{"region": "Himachal"},
	}

	g := GroupBy(rows, func(r supabase.Row) string { return r.Str("region") })

	assert.Equal(t, []string{"Goa", "Kerala", "Himachal"}, g.Keys)
	assert.Len(t, g.Groups["Goa"], 2)
	assert.Len(t, g.Groups["Kerala"], 1)
}

func TestPercentChange(t *testing.T) {
	assert.Equal(t, float64(0), PercentChange(100, 0), "zero baseline yields 0")
	assert.InDelta(t, -10.0, PercentChange(450000, 500000), 1e-9)
	assert.InDelta(t, 50.0, PercentChange(150, 100), 1e-9)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, float64(0), Median(nil))
	assert.Equal(t, float64(5), Median([]float64{5}))
	assert.Equal(t, float64(15), Median([]float64{20, 10}))
	assert.Equal(t, float64(10), Median([]float64{30, 10, 5}))
}

func TestTopKeywords(t *testing.T) {
	texts := []string{
		"The pool was dirty and the pool area smelled",
		"Dirty rooms, slow service",
		"pool maintenance is bad",
	}

	got := TopKeywords(texts, 3)

	require.Len(t, got, 3)
	assert.Equal(t, Keyword{Word: "pool", Count: 3}, got[0])
	assert.Equal(t, Keyword{Word: "dirty", Count: 2}, got[1])
	// "area" appears once and was seen before other singletons.
	assert.Equal(t, Keyword{Word: "area", Count: 1}, got[2])
}

func TestTopKeywordsFiltersStopwordsAndShortWords(t *testing.T) {
	got := TopKeywords([]string{"it is an ok spa"}, 10)
	require.Len(t, got, 1)
	assert.Equal(t, "spa", got[0].Word, "stopwords and words under 3 letters dropped")
}

func TestTopKeywordsDeterministicTies(t *testing.T) {
	texts := []string{"alpha beta gamma"}
	first := TopKeywords(texts, 3)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, TopKeywords(texts, 3))
	}
	assert.Equal(t, "alpha", first[0].Word, "ties resolve in first-seen order")
}

func TestMonthRange(t *testing.T) {
	tests := []struct {
		month string
		start string
		end   string
	}{
		{"2024-02", "2024-02-01", "2024-02-29"}, // leap year
		{"2023-02", "2023-02-01", "2023-02-28"},
		{"2024-12", "2024-12-01", "2024-12-31"},
		{"2024-04", "2024-04-01", "2024-04-30"},
	}
	for _, tt := range tests {
		w, err := MonthRange(tt.month)
		require.NoError(t, err, tt.month)
		assert.Equal(t, Window{Start: tt.start, End: tt.end}, w, tt.month)
	}
}

func TestMonthRangeInvalid(t *testing.T) {
	for _, bad := range []string{"2024", "2024-13", "03-2024", "March 2024", ""} {
		_, err := MonthRange(bad)
		require.Error(t, err, bad)
		assert.True(t, apperrors.IsValidation(err), bad)
	}
}

func TestPreviousMonth(t *testing.T) {
	tests := []struct{ in, want string }{
		{"2024-03", "2024-02"},
		{"2024-01", "2023-12"}, // year wrap
		{"2024-12", "2024-11"},
	}
	for _, tt := range tests {
		got, err := PreviousMonth(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestPreviousWindow(t *testing.T) {
	prev, err := PreviousWindow(Window{Start: "2024-03-01", End: "2024-03-31"})
	require.NoError(t, err)
	assert.Equal(t, Window{Start: "2024-01-30", End: "2024-02-29"}, prev,
		"equal length window ending the day before start")

	prev, err = PreviousWindow(Window{Start: "2024-01-10", End: "2024-01-19"})
	require.NoError(t, err)
	assert.Equal(t, Window{Start: "2023-12-31", End: "2024-01-09"}, prev)
}

func TestFormatINR(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{25000000, "₹2.50 Cr"},
		{500000, "₹5.00 L"},
		{4500, "₹4.5 K"},
		{950, "₹950"},
		{-1200000, "₹-12.00 L"},
		{0, "₹0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatINR(tt.amount))
	}
}

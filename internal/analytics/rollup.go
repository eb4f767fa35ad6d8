// Package analytics holds the pure computation kernels shared by the
// insight engines: grouping, numeric rollups, keyword extraction,
// month window math, and currency formatting. Nothing here touches the
// network.
package analytics

import (
	"sort"
	"strconv"

	"resort-insights-mcp/internal/supabase"
)

// Stats is a per-field numeric rollup. Empty input yields the zero
// value for every component.
type Stats struct {
	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Rollup computes Stats for each named field across the rows.
// Non-numeric values count as 0 toward Sum and Avg but do not move
// Min or Max.
func Rollup(rows []supabase.Row, fields ...string) map[string]Stats {
	out := make(map[string]Stats, len(fields))
	for _, field := range fields {
		var s Stats
		seen := false
		for _, row := range rows {
			v, numeric := numericValue(row[field])
			s.Sum += v
			s.Count++
			if !numeric {
				continue
			}
			if !seen || v < s.Min {
				s.Min = v
			}
			if !seen || v > s.Max {
				s.Max = v
			}
			seen = true
		}
		if s.Count > 0 {
			s.Avg = s.Sum / float64(s.Count)
		}
		out[field] = s
	}
	return out
}

// Grouped preserves first-seen key order alongside the bucket map, so
// grouped output is deterministic.
type Grouped struct {
	Keys   []string
	Groups map[string][]supabase.Row
}

// GroupBy buckets rows by the key function.
func GroupBy(rows []supabase.Row, keyFn func(supabase.Row) string) Grouped {
	g := Grouped{Groups: make(map[string][]supabase.Row)}
	for _, row := range rows {
		key := keyFn(row)
		if _, ok := g.Groups[key]; !ok {
			g.Keys = append(g.Keys, key)
		}
		g.Groups[key] = append(g.Groups[key], row)
	}
	return g
}

// PercentChange returns the relative change in percent. A zero
// baseline yields 0, not infinity.
func PercentChange(curr, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return (curr - prev) / prev * 100
}

// Number coerces an arbitrary decoded JSON value to a float64, with 0
// for anything non-numeric.
func Number(v interface{}) float64 {
	n, _ := numericValue(v)
	return n
}

func numericValue(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Median returns the middle value of an unsorted sample, averaging the
// two central values for even lengths. Empty input yields 0.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

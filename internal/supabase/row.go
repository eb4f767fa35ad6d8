package supabase

import "strconv"

// Row is one record returned by the upstream. Values keep the shapes
// JSON decoding gives them (float64, string, bool, nil).
type Row map[string]interface{}

// Str returns the field as a string, or "" when absent or non-string.
func (r Row) Str(field string) string {
	if s, ok := r[field].(string); ok {
		return s
	}
	return ""
}

// Num returns the field as a float64. Strings holding numbers are
// parsed; anything else counts as 0 so aggregation over sparse rows
// never faults.
func (r Row) Num(field string) float64 {
	return toNumber(r[field])
}

// NumOK returns the field as a float64 and whether it held a numeric
// value at all. Missing fields and unparseable strings report false.
func (r Row) NumOK(field string) (float64, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return 0, false
	}
	switch x := v.(type) {
	case float64, float32, int, int64:
		return toNumber(x), true
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Has reports whether the field is present with a non-nil value.
func (r Row) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// NumAny resolves the first present field and returns it as a number.
// Tables carry the same quantity under different column names depending
// on export vintage.
func (r Row) NumAny(fields ...string) float64 {
	for _, f := range fields {
		if r.Has(f) {
			return toNumber(r[f])
		}
	}
	return 0
}

// StrAny resolves the first field present with a non-empty string.
func (r Row) StrAny(fields ...string) string {
	for _, f := range fields {
		if s, ok := r[f].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Column synonym accessors. These are the single place that knows which
// alternate column names each table vintage uses.

func (r Row) Revenue() float64           { return r.NumAny("total_revenue", "total_revenue_inr") }
func (r Row) Occupancy() float64         { return r.NumAny("occupied_percentage", "occupancy_rate_perc") }
func (r Row) AncillaryRevenue() float64  { return r.NumAny("activity_revenue", "ancillary_revenue_inr") }
func (r Row) RestaurantRevenue() float64 { return r.NumAny("restaurant_revenue", "restaurant_revenue_inr") }
func (r Row) LifetimeValue() float64     { return r.NumAny("lifetime_value", "lifetime_value_inr") }
func (r Row) Relevance() float64         { return r.NumAny("relevance_score", "event_relevance_score") }
func (r Row) FeedbackText() string {
	return r.StrAny("issue_details_text", "details_text", "feedback_text")
}
func (r Row) EventDetails() string {
	return r.StrAny("details_description", "event_details_description", "details")
}
func (r Row) MemberRegion() string { return r.StrAny("member_region", "home_region") }

func toNumber(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f
		}
	}
	return 0
}

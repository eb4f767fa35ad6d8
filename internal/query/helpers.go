package query

// Shorthand constructors for programmatically built filters.

// Eq filters on equality.
func Eq(v interface{}) FilterValue { return Op("eq", v) }

// Gt filters on strictly-greater-than.
func Gt(v interface{}) FilterValue { return Op("gt", v) }

// ILike filters on a case-insensitive pattern; bare values get
// wildcard-wrapped at compile time.
func ILike(v string) FilterValue { return Op("ilike", v) }

// In filters on list membership.
func In(values []interface{}) FilterValue { return Op("in", values) }

// InStrings filters on membership in a string list.
func InStrings(values []string) FilterValue {
	items := make([]interface{}, len(values))
	for i, v := range values {
		items[i] = v
	}
	return Op("in", items)
}

// DateRange bounds a date column inclusively. Empty ends are omitted,
// so open ranges work.
func DateRange(start, end string) FilterValue {
	pairs := map[string]interface{}{}
	if start != "" {
		pairs["gte"] = start
	}
	if end != "" {
		pairs["lte"] = end
	}
	return Range(pairs)
}

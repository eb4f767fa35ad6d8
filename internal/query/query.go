// Package query compiles caller-supplied filter objects into PostgREST
// predicate parameters (`field=operator.value`).
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"resort-insights-mcp/internal/apperrors"
)

// Params holds the compiled query string parameters. Repeated keys are
// significant: a range filter emits one predicate per bound under the
// same field name.
type Params = url.Values

// Allowed predicate operators.
var allowedOperators = map[string]bool{
	"eq": true, "neq": true,
	"gt": true, "gte": true,
	"lt": true, "lte": true,
	"like": true, "ilike": true,
	"is": true, "in": true,
}

// rangeKeys are the shorthand bound operators accepted inside a filter
// object without an explicit "operator" key. Order fixes the emitted
// predicate order.
var rangeKeys = []string{"gte", "gt", "lte", "lt"}

type filterKind int

const (
	kindLiteral filterKind = iota
	kindOperator
	kindRange
)

type bound struct {
	op    string
	value interface{}
}

// FilterValue is one parsed filter: a bare literal (equality), an
// explicit {operator, value} pair, or a range with one predicate per
// bound.
type FilterValue struct {
	kind    filterKind
	literal interface{}
	op      string
	value   interface{}
	bounds  []bound
}

// Filters maps field names to parsed filter values.
type Filters map[string]FilterValue

// Literal builds an equality filter value.
func Literal(v interface{}) FilterValue {
	return FilterValue{kind: kindLiteral, literal: v}
}

// Op builds an explicit operator filter value.
func Op(operator string, v interface{}) FilterValue {
	return FilterValue{kind: kindOperator, op: operator, value: v}
}

// Range builds a bounds filter from gte/lte style pairs.
func Range(pairs map[string]interface{}) FilterValue {
	fv := FilterValue{kind: kindRange}
	for _, k := range rangeKeys {
		if v, ok := pairs[k]; ok {
			fv.bounds = append(fv.bounds, bound{op: k, value: v})
		}
	}
	return fv
}

// ParseFilters interprets a raw filters argument. A top-level array is
// the most common caller mistake (an array of [field, op, value]
// triples); it is rejected with a message that shows the object shape
// expected instead.
func ParseFilters(raw interface{}) (Filters, error) {
	if raw == nil {
		return Filters{}, nil
	}
	switch v := raw.(type) {
	case []interface{}:
		return nil, apperrors.NewValidation(
			"filters must be an object mapping field names to values, not an array; " +
				`use {"status": "Active", "ltv": {"operator": "gte", "value": 100000}} ` +
				`instead of [["status", "eq", "Active"]]`)
	case map[string]interface{}:
		filters := make(Filters, len(v))
		for field, value := range v {
			fv, err := parseValue(field, value)
			if err != nil {
				return nil, err
			}
			filters[field] = fv
		}
		return filters, nil
	default:
		return nil, apperrors.NewValidation("filters must be an object, got %T", raw)
	}
}

func parseValue(field string, value interface{}) (FilterValue, error) {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return Literal(value), nil
	}

	if rawOp, ok := obj["operator"]; ok {
		op, _ := rawOp.(string)
		if op == "" {
			op = "eq"
		}
		op = strings.ToLower(op)
		if !allowedOperators[op] {
			return FilterValue{}, apperrors.NewValidation(
				"unsupported operator %q for field %q (allowed: eq, neq, gt, gte, lt, lte, like, ilike, is, in)",
				op, field)
		}
		return Op(op, obj["value"]), nil
	}

	for _, k := range rangeKeys {
		if _, ok := obj[k]; ok {
			return Range(obj), nil
		}
	}

	// Objects without recognized keys fall through as literals.
	return Literal(value), nil
}

// Compile renders the filters as PostgREST predicates. Fields are
// emitted in sorted order so the output is deterministic.
func (f Filters) Compile() Params {
	params := Params{}
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		fv := f[field]
		switch fv.kind {
		case kindLiteral:
			params.Add(field, "eq."+formatScalar(fv.literal))
		case kindOperator:
			params.Add(field, fv.op+"."+formatOperand(fv.op, fv.value))
		case kindRange:
			for _, b := range fv.bounds {
				params.Add(field, b.op+"."+formatScalar(b.value))
			}
		}
	}
	return params
}

func formatOperand(op string, value interface{}) string {
	switch op {
	case "in":
		return formatInList(value)
	case "like", "ilike":
		if s, ok := value.(string); ok {
			return wrapWildcards(s)
		}
	}
	return formatScalar(value)
}

// formatInList renders `("A","B")` style lists: strings quoted, numbers
// and booleans bare. A non-slice value becomes a single-element list.
func formatInList(value interface{}) string {
	items, ok := value.([]interface{})
	if !ok {
		items = []interface{}{value}
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if s, isStr := item.(string); isStr {
			parts = append(parts, `"`+s+`"`)
		} else {
			parts = append(parts, formatScalar(item))
		}
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// wrapWildcards surrounds a pattern with % unless the caller already
// supplied wildcards.
func wrapWildcards(s string) string {
	if strings.Contains(s, "%") {
		return s
	}
	return "%" + s + "%"
}

func formatScalar(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

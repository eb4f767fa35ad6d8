package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resort-insights-mcp/internal/apperrors"
)

func TestParseFiltersRejectsArray(t *testing.T) {
	_, err := ParseFilters([]interface{}{
		[]interface{}{"status", "eq", "Active"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "must be an object")
	assert.Contains(t, err.Error(), `"operator"`, "error should show the expected shape")
}

func TestParseFiltersNil(t *testing.T) {
	filters, err := ParseFilters(nil)
	require.NoError(t, err)
	assert.Empty(t, filters)
}

func TestParseFiltersUnknownOperator(t *testing.T) {
	_, err := ParseFilters(map[string]interface{}{
		"ltv": map[string]interface{}{"operator": "between", "value": 5},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "between")
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
		want map[string][]string
	}{
		{
			name: "literal becomes eq",
			raw:  map[string]interface{}{"membership_status": "Active"},
			want: map[string][]string{"membership_status": {"eq.Active"}},
		},
		{
			name: "numeric literal",
			raw:  map[string]interface{}{"nps": float64(7)},
			want: map[string][]string{"nps": {"eq.7"}},
		},
		{
			name: "explicit operator",
			raw: map[string]interface{}{
				"lifetime_value_inr": map[string]interface{}{"operator": "gte", "value": float64(100000)},
			},
			want: map[string][]string{"lifetime_value_inr": {"gte.100000"}},
		},
		{
			name: "missing operator defaults to eq",
			raw: map[string]interface{}{
				"tier": map[string]interface{}{"operator": "", "value": "Red"},
			},
			want: map[string][]string{"tier": {"eq.Red"}},
		},
		{
			name: "in list quotes strings",
			raw: map[string]interface{}{
				"region": map[string]interface{}{
					"operator": "in",
					"value":    []interface{}{"North Goa", "Kerala"},
				},
			},
			want: map[string][]string{"region": {`in.("North Goa","Kerala")`}},
		},
		{
			name: "in list leaves numbers bare",
			raw: map[string]interface{}{
				"member_id": map[string]interface{}{
					"operator": "in",
					"value":    []interface{}{float64(1), float64(2), float64(3)},
				},
			},
			want: map[string][]string{"member_id": {"in.(1,2,3)"}},
		},
		{
			name: "ilike wraps pattern",
			raw: map[string]interface{}{
				"resort_name": map[string]interface{}{"operator": "ilike", "value": "Goa"},
			},
			want: map[string][]string{"resort_name": {"ilike.%Goa%"}},
		},
		{
			name: "ilike wrap is idempotent",
			raw: map[string]interface{}{
				"resort_name": map[string]interface{}{"operator": "ilike", "value": "%Goa%"},
			},
			want: map[string][]string{"resort_name": {"ilike.%Goa%"}},
		},
		{
			name: "range emits repeated keys",
			raw: map[string]interface{}{
				"check_in_date": map[string]interface{}{"gte": "2024-01-01", "lte": "2024-01-31"},
			},
			want: map[string][]string{"check_in_date": {"gte.2024-01-01", "lte.2024-01-31"}},
		},
		{
			name: "is null",
			raw: map[string]interface{}{
				"cancelled_at": map[string]interface{}{"operator": "is", "value": nil},
			},
			want: map[string][]string{"cancelled_at": {"is.null"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters, err := ParseFilters(tt.raw)
			require.NoError(t, err)
			params := filters.Compile()
			assert.Equal(t, len(tt.want), len(params))
			for field, preds := range tt.want {
				assert.Equal(t, preds, params[field])
			}
		})
	}
}

func TestCompileDeterministicOrder(t *testing.T) {
	filters, err := ParseFilters(map[string]interface{}{
		"b_field": "x",
		"a_field": "y",
	})
	require.NoError(t, err)
	got := filters.Compile().Encode()
	assert.Equal(t, "a_field=eq.y&b_field=eq.x", got)
}

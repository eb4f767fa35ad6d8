package insights

import (
	"context"
	"strings"

	"resort-insights-mcp/internal/apperrors"
	"resort-insights-mcp/internal/query"
	"resort-insights-mcp/internal/supabase"
)

// AggregateResult summarizes a numeric field across matching rows.
type AggregateResult struct {
	Field string  `json:"field"`
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`
}

// ListResult carries raw rows plus their count.
type ListResult struct {
	Data  []supabase.Row `json:"data"`
	Count int            `json:"count"`
}

// CountResult is the matching row count alone.
type CountResult struct {
	Count int `json:"count"`
}

// AnalyzeData runs a count, list, or aggregate operation over one
// table. Aggregate needs a numeric field and skips rows where it is
// missing or non-numeric.
func (e *Engine) AnalyzeData(ctx context.Context, table, operation, field string, rawFilters interface{}) (interface{}, error) {
	if table == "" {
		return nil, apperrors.NewValidation("'table' parameter is required")
	}
	if !supabase.IsKnownTable(table) {
		return nil, apperrors.NewValidation("unknown table %q (known tables: %s)", table, strings.Join(supabase.KnownTables, ", "))
	}
	if operation == "" {
		return nil, apperrors.NewValidation("'operation' parameter is required (count, list, or aggregate)")
	}
	filters, err := query.ParseFilters(rawFilters)
	if err != nil {
		return nil, err
	}

	switch operation {
	case "count":
		n, err := e.store.Count(ctx, table, filters.Compile())
		if err != nil {
			return nil, err
		}
		return &CountResult{Count: n}, nil

	case "list":
		rows, err := e.fetch(ctx, table, filters)
		if err != nil {
			return nil, err
		}
		return &ListResult{Data: rows, Count: len(rows)}, nil

	case "aggregate":
		if field == "" {
			return nil, apperrors.NewValidation("Field is required for aggregate operation (use 'field' or 'column' parameter)")
		}
		rows, err := e.fetch(ctx, table, filters)
		if err != nil {
			return nil, err
		}
		values := make([]float64, 0, len(rows))
		for _, r := range rows {
			if v, ok := r.NumOK(field); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return nil, apperrors.NewValidation("No data to aggregate")
		}
		agg := &AggregateResult{Field: field, Count: len(values), Min: values[0], Max: values[0]}
		for _, v := range values {
			agg.Sum += v
			if v < agg.Min {
				agg.Min = v
			}
			if v > agg.Max {
				agg.Max = v
			}
		}
		agg.Avg = agg.Sum / float64(len(values))
		return agg, nil

	default:
		return nil, apperrors.NewValidation("unsupported operation %q (use count, list, or aggregate)", operation)
	}
}

// QueryTableArgs are the raw arguments a query_table call carries.
// Unsupported shapes (grouping, joins, column projections) are kept so
// they can be rejected with pointers to the tool that does support them.
type QueryTableArgs struct {
	Table   string      `mapstructure:"table"`
	TableNm string      `mapstructure:"table_name"`
	Filters interface{} `mapstructure:"filters"`
	GroupBy interface{} `mapstructure:"group_by"`
	Metrics interface{} `mapstructure:"metrics"`
	Join    interface{} `mapstructure:"join"`
	Columns interface{} `mapstructure:"columns"`
	Select  string      `mapstructure:"select"`
	Order   string      `mapstructure:"order"`
	Limit   int         `mapstructure:"limit"`
}

// QueryTable fetches raw rows from one table with filters, ordering,
// and a limit. Aggregation-style arguments are rejected with guidance
// toward the tools that handle them.
func (e *Engine) QueryTable(ctx context.Context, args QueryTableArgs) ([]supabase.Row, error) {
	table := args.Table
	if table == "" {
		table = args.TableNm
	}
	if table == "" {
		return nil, apperrors.NewValidation("'table' parameter is required (or 'table_name')")
	}
	if !supabase.IsKnownTable(table) {
		return nil, apperrors.NewValidation("unknown table %q (known tables: %s)", table, strings.Join(supabase.KnownTables, ", "))
	}

	if args.GroupBy != nil || args.Metrics != nil {
		if table == supabase.TableFeedback {
			return nil, apperrors.NewValidation(
				"query_table does not support group_by or metrics; for feedback breakdowns by gender, region, or age group use 'insights_feedback_demographics', or use 'analyze_data' with operation 'aggregate'")
		}
		return nil, apperrors.NewValidation(
			"query_table does not support group_by or metrics; use 'analyze_data' with operation 'aggregate' for aggregations")
	}
	if args.Join != nil {
		return nil, apperrors.NewValidation(
			"query_table does not support joins; query each table separately and combine results")
	}
	if args.Columns != nil {
		return nil, apperrors.NewValidation(
			"'columns' is not supported here. Use 'select' parameter in 'get_*' tools")
	}

	filters, err := query.ParseFilters(args.Filters)
	if err != nil {
		return nil, err
	}
	opts := supabase.Options{Order: args.Order, Select: args.Select}
	if args.Limit > 0 {
		opts.Limit = args.Limit
	}
	rows, err := e.store.Fetch(ctx, table, filters.Compile(), opts)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FetchTable backs the get_* tools: filters plus fetch options against
// a fixed table.
func (e *Engine) FetchTable(ctx context.Context, table string, rawFilters interface{}, opts supabase.Options) ([]supabase.Row, error) {
	if !supabase.IsKnownTable(table) {
		return nil, apperrors.NewValidation("unknown table %q", table)
	}
	filters, err := query.ParseFilters(rawFilters)
	if err != nil {
		return nil, err
	}
	return e.store.Fetch(ctx, table, filters.Compile(), opts)
}

// SearchEvents is a convenience for looking up recorded events by free
// text across type, region, and description.
func (e *Engine) SearchEvents(ctx context.Context, text, startDate, endDate string) ([]supabase.Row, error) {
	if text == "" {
		return nil, apperrors.NewValidation("'query' parameter is required")
	}
	filters := query.Filters{"event_type": query.ILike(text)}
	if startDate != "" || endDate != "" {
		filters["event_date"] = query.DateRange(startDate, endDate)
	}
	rows, err := e.fetch(ctx, supabase.TableEvents, filters)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return rows, nil
	}
	// No type match: retry against the affected region.
	filters["impact_region"] = query.ILike(text)
	delete(filters, "event_type")
	rows, err = e.fetch(ctx, supabase.TableEvents, filters)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

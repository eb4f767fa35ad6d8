// Package insights implements the analytical procedures exposed as
// tools: month-over-month revenue diagnostics, event and feedback
// impact analysis, member risk scoring, and performance rankings. Each
// procedure fetches from the row store, aggregates in memory, and
// returns a JSON-shaped result.
package insights

import (
	"context"
	"math"
	"time"

	"resort-insights-mcp/internal/analytics"
	"resort-insights-mcp/internal/logging"
	"resort-insights-mcp/internal/query"
	"resort-insights-mcp/internal/supabase"
)

// Store is the slice of the row store the engines need.
type Store interface {
	Fetch(ctx context.Context, table string, params query.Params, opts supabase.Options) ([]supabase.Row, error)
	Count(ctx context.Context, table string, params query.Params) (int, error)
}

// Thresholds are the tunable cut-offs the engines score against.
type Thresholds struct {
	// Revenue drop (fraction) that marks a resort as impacted by an
	// event or dragged by feedback.
	DeclineImpactPct float64

	// Surge forecast gates.
	SurgePositiveRevPct   float64
	SurgePositiveOccDelta float64
	SurgeMaxNegatives     int
	SurgeStableRevPct     float64
	SurgeStableOccDelta   float64
	SurgeStableMaxNeg     int
	SurgeMinimalRevPct    float64
	SurgeMinimalOccDelta  float64
	MajorEventRevPct      float64
	MajorEventOccDelta    float64

	// Churn scoring.
	LowLTV            float64
	EngagementLTV     float64
	StaleHolidayDays  int
	EngagementDays    int
	ChurnHighScore    int
	ChurnMediumScore  int
	OccupancyShiftPts float64
}

// DefaultThresholds returns the production cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DeclineImpactPct:      -0.05,
		SurgePositiveRevPct:   0.01,
		SurgePositiveOccDelta: 0.3,
		SurgeMaxNegatives:     8,
		SurgeStableRevPct:     -0.05,
		SurgeStableOccDelta:   -1,
		SurgeStableMaxNeg:     5,
		SurgeMinimalRevPct:    -0.10,
		SurgeMinimalOccDelta:  -2,
		MajorEventRevPct:      -0.05,
		MajorEventOccDelta:    -2,
		LowLTV:                300000,
		EngagementLTV:         500000,
		StaleHolidayDays:      180,
		EngagementDays:        365,
		ChurnHighScore:        50,
		ChurnMediumScore:      30,
		OccupancyShiftPts:     5,
	}
}

// Engine runs the analytical procedures against a Store.
type Engine struct {
	store      Store
	logger     logging.Logger
	thresholds Thresholds
	now        func() time.Time
}

// NewEngine builds an engine with default thresholds.
func NewEngine(store Store, logger logging.Logger) *Engine {
	return &Engine{
		store:      store,
		logger:     logger,
		thresholds: DefaultThresholds(),
		now:        time.Now,
	}
}

// Thresholds exposes the active cut-offs.
func (e *Engine) Thresholds() Thresholds { return e.thresholds }

func (e *Engine) fetch(ctx context.Context, table string, filters query.Filters) ([]supabase.Row, error) {
	return e.store.Fetch(ctx, table, filters.Compile(), supabase.Options{})
}

// enrichmentFetch is for secondary context (events, supplementary
// feedback): failures are logged and replaced with an empty set so the
// primary analysis still returns.
func (e *Engine) enrichmentFetch(ctx context.Context, table string, filters query.Filters) []supabase.Row {
	rows, err := e.fetch(ctx, table, filters)
	if err != nil {
		e.logger.Warn("enrichment fetch failed, continuing without it", "table", table, "error", err.Error())
		return nil
	}
	return rows
}

// resortStats is the per-resort rollup most engines start from.
type resortStats struct {
	Revenue        float64
	OccupancyAvg   float64
	MemberRooms    float64
	AvailableRooms float64
	Region         string
	Theme          string
}

// rollResorts aggregates resort activity rows by resort name,
// preserving first-seen order in the returned key slice.
func rollResorts(rows []supabase.Row) (map[string]resortStats, []string) {
	g := analytics.GroupBy(rows, func(r supabase.Row) string {
		if name := r.Str("resort_name"); name != "" {
			return name
		}
		return "Unknown"
	})
	out := make(map[string]resortStats, len(g.Keys))
	for _, name := range g.Keys {
		arr := g.Groups[name]
		var s resortStats
		for _, r := range arr {
			s.Revenue += r.Revenue()
			s.OccupancyAvg += r.Occupancy()
			s.MemberRooms += r.Num("member_rooms_booked")
			s.AvailableRooms += r.Num("total_rooms_available")
		}
		if len(arr) > 0 {
			s.OccupancyAvg /= float64(len(arr))
			s.Region = arr[0].Str("resort_region")
			s.Theme = arr[0].Str("resort_theme")
		}
		out[name] = s
	}
	return out, g.Keys
}

func regionOrUnknown(s resortStats) string {
	if s.Region == "" {
		return "Unknown"
	}
	return s.Region
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

// fraction change with a zero-safe baseline, as a fraction not percent.
func fractionChange(curr, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return (curr - prev) / prev
}

// daysSince returns whole days between then (a date string) and now.
// Missing or malformed dates read as 9999, far past every staleness
// threshold.
func (e *Engine) daysSince(date string) int {
	if date == "" {
		return 9999
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, date); err != nil {
			return 9999
		}
	}
	return int(e.now().UTC().Sub(t).Hours() / 24)
}

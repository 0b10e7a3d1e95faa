// Package measures renders per-aggregation CTEs and SELECT fragments,
// ported from compiler.py's _render_occupancy / _render_activity /
// _render_activity_rate / _render_dwell / _render_retention.
package measures

import (
	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
	"github.com/sitescope-io/cctv-analytics/internal/filter"
)

// Compilation holds the rendered SQL fragments for a single measure.
type Compilation struct {
	CTEs      []string
	SelectSQL string
}

// Compiler renders one measure's aggregation into CTEs plus a SELECT that
// projects (measure_id, bucket_start, value, coverage, raw_count) — or, for
// retention-shaped measures, (measure_id, bucket_start, lag_weeks, value,
// coverage, raw_count), and for demographic_count, (measure_id,
// bucket_start, demographic_group, value, coverage, raw_count).
type Compiler interface {
	Compile(measure chartspec.Measure, bucket chartspec.BucketSize, params *filter.ParamSet) (Compilation, error)
}

// Registry maps aggregations to their Compiler, built once at construction
// the way the teacher's provider.Registry maps provider names to
// implementations.
type Registry struct {
	compilers map[chartspec.Aggregation]Compiler
}

// NewRegistry registers every implemented aggregation.
func NewRegistry() *Registry {
	return &Registry{
		compilers: map[chartspec.Aggregation]Compiler{
			chartspec.AggOccupancyRecursion: occupancyCompiler{},
			chartspec.AggCount:              activityCompiler{aggregation: chartspec.AggCount},
			chartspec.AggActivityRate:       activityCompiler{aggregation: chartspec.AggActivityRate},
			chartspec.AggDwellMean:          dwellCompiler{aggregation: chartspec.AggDwellMean},
			chartspec.AggDwellP90:           dwellCompiler{aggregation: chartspec.AggDwellP90},
			chartspec.AggSessions:           dwellCompiler{aggregation: chartspec.AggSessions},
			chartspec.AggRetentionRate:      retentionCompiler{},
			chartspec.AggDemographicCount:   demographicCompiler{},
		},
	}
}

// For returns the Compiler registered for agg, if any.
func (r *Registry) For(agg chartspec.Aggregation) (Compiler, bool) {
	c, ok := r.compilers[agg]
	return c, ok
}

// TimeSeriesAggregations is the closed set of aggregations valid on
// composed_time/categorical/single_value charts.
var TimeSeriesAggregations = map[chartspec.Aggregation]bool{
	chartspec.AggOccupancyRecursion: true,
	chartspec.AggCount:              true,
	chartspec.AggActivityRate:       true,
	chartspec.AggDwellMean:          true,
	chartspec.AggDwellP90:           true,
	chartspec.AggSessions:           true,
	chartspec.AggDemographicCount:   true,
}

// RetentionAggregations is the closed set of aggregations valid on
// retention/heatmap charts.
var RetentionAggregations = map[chartspec.Aggregation]bool{
	chartspec.AggRetentionRate: true,
}

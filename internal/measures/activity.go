package measures

import (
	"fmt"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
	"github.com/sitescope-io/cctv-analytics/internal/filter"
)

type activityCompiler struct {
	aggregation chartspec.Aggregation
}

// activityCountsCTE renders the shared per-bucket event count join that
// both count and activity_rate select from, ported from compiler.py's
// _activity_counts_cte.
func activityCountsCTE(measure chartspec.Measure, params *filter.ParamSet) (name, sql string) {
	name = measure.ID + "_activity_counts"
	filterSQL := ""
	if len(measure.EventTypes) > 0 {
		values := make([]interface{}, len(measure.EventTypes))
		for i, v := range measure.EventTypes {
			values[i] = v
		}
		paramName := measure.ID + "_event_types"
		params.AddNamed(paramName, values)
		filterSQL = fmt.Sprintf(" AND scoped.event_type IN UNNEST(@%s)", paramName)
	}
	sql = fmt.Sprintf(`%s AS (
    SELECT
        calendar.bucket_start,
        calendar.bucket_seconds,
        calendar.window_seconds,
        COUNT(scoped.timestamp) AS event_count
    FROM calendar
    LEFT JOIN scoped
        ON scoped.timestamp >= calendar.bucket_start
        AND scoped.timestamp < calendar.bucket_end%s
    GROUP BY calendar.bucket_start, calendar.bucket_seconds, calendar.window_seconds
    ORDER BY calendar.bucket_start
)`, name, filterSQL)
	return name, sql
}

// Compile renders count (raw event_count per bucket) or activity_rate
// (events per minute), ported from compiler.py's _render_activity /
// _render_activity_rate.
func (c activityCompiler) Compile(measure chartspec.Measure, bucket chartspec.BucketSize, params *filter.ParamSet) (Compilation, error) {
	if bucket == chartspec.BucketRaw || bucket == "" {
		return Compilation{}, chartspec.NewValidationError("%s requires bucketed time series", c.aggregation)
	}
	countsName, countsSQL := activityCountsCTE(measure, params)

	if c.aggregation == chartspec.AggCount {
		seriesName := measure.ID + "_activity_series"
		series := fmt.Sprintf(`%s AS (
    SELECT
        bucket_start,
        event_count AS value,
        CASE
            WHEN bucket_seconds = 0 THEN 0.0
            WHEN event_count = 0 THEN 0.0
            ELSE SAFE_DIVIDE(window_seconds, bucket_seconds)
        END AS coverage,
        event_count AS raw_count
    FROM %s
)`, seriesName, countsName)
		selectSQL := fmt.Sprintf("SELECT '%s' AS measure_id, bucket_start, value, coverage, raw_count FROM %s", measure.ID, seriesName)
		return Compilation{CTEs: []string{countsSQL, series}, SelectSQL: selectSQL}, nil
	}

	seriesName := measure.ID + "_activity_rate_series"
	series := fmt.Sprintf(`%s AS (
    SELECT
        bucket_start,
        CASE
            WHEN window_seconds = 0 THEN NULL
            ELSE SAFE_DIVIDE(event_count * 60.0, window_seconds)
        END AS value,
        CASE
            WHEN bucket_seconds = 0 THEN 0.0
            WHEN event_count = 0 THEN 0.0
            ELSE SAFE_DIVIDE(window_seconds, bucket_seconds)
        END AS coverage,
        event_count AS raw_count
    FROM %s
)`, seriesName, countsName)
	selectSQL := fmt.Sprintf("SELECT '%s' AS measure_id, bucket_start, value, coverage, raw_count FROM %s", measure.ID, seriesName)
	return Compilation{CTEs: []string{countsSQL, series}, SelectSQL: selectSQL}, nil
}

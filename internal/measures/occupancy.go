package measures

import (
	"fmt"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
	"github.com/sitescope-io/cctv-analytics/internal/filter"
)

type occupancyCompiler struct{}

// Compile renders occupancy_recursion: a running sum of entrance/exit
// deltas clamped at zero, seeded-by-exit flagged, forward-filled across
// empty buckets. Ported from compiler.py's _render_occupancy.
func (occupancyCompiler) Compile(measure chartspec.Measure, bucket chartspec.BucketSize, _ *filter.ParamSet) (Compilation, error) {
	if bucket == chartspec.BucketRaw || bucket == "" {
		return Compilation{}, chartspec.NewValidationError("occupancy_recursion requires bucketed time series")
	}
	prefix := measure.ID + "_occupancy"

	ordered := fmt.Sprintf(`%s_ordered AS (
    SELECT
        timestamp,
        event_index,
        site_id,
        cam_id,
        event_type,
        IF(event_type = 1, 1, -1) AS delta,
        SUM(IF(event_type = 1, 1, -1)) OVER (
            PARTITION BY site_id, cam_id
            ORDER BY timestamp, event_index
        ) AS running_total
    FROM scoped
)`, prefix)

	clamped := fmt.Sprintf(`%s_clamped AS (
    SELECT
        *,
        GREATEST(running_total, 0) AS occupancy,
        running_total < 0 AS seeded_by_exit
    FROM %s_ordered
)`, prefix, prefix)

	bucketBounds := fmt.Sprintf(`%s_bucket_bounds AS (
    SELECT
        bucket_start,
        bucket_end,
        bucket_seconds,
        window_seconds
    FROM calendar
)`, prefix)

	buckets := fmt.Sprintf(`%s_buckets AS (
    SELECT
        bounds.bucket_start,
        bounds.bucket_end,
        bounds.bucket_seconds,
        bounds.window_seconds,
        COUNT(clamped.timestamp) AS event_count,
        LOGICAL_OR(clamped.seeded_by_exit) AS seeded_by_exit,
        ANY_VALUE(clamped.occupancy ORDER BY clamped.timestamp DESC, clamped.event_index DESC) AS occupancy_end
    FROM %s_bucket_bounds AS bounds
    LEFT JOIN %s_clamped AS clamped
        ON clamped.timestamp >= bounds.bucket_start
        AND clamped.timestamp < bounds.bucket_end
    GROUP BY bounds.bucket_start, bounds.bucket_end, bounds.bucket_seconds, bounds.window_seconds
    ORDER BY bounds.bucket_start
)`, prefix, prefix, prefix)

	filled := fmt.Sprintf(`%s_filled AS (
    SELECT
        bucket_start,
        bucket_seconds,
        window_seconds,
        event_count,
        seeded_by_exit,
        COALESCE(
            occupancy_end,
            LAST_VALUE(occupancy_end IGNORE NULLS) OVER (
                ORDER BY bucket_start
                ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW
            ),
            0
        ) AS value,
        occupancy_end IS NOT NULL AS has_events
    FROM %s_buckets
)`, prefix, prefix)

	series := fmt.Sprintf(`%s_series AS (
    SELECT
        bucket_start,
        value,
        CASE
            WHEN bucket_seconds = 0 THEN 0.0
            WHEN NOT has_events THEN 0.0
            WHEN seeded_by_exit THEN LEAST(0.5, SAFE_DIVIDE(window_seconds, bucket_seconds))
            ELSE SAFE_DIVIDE(window_seconds, bucket_seconds)
        END AS coverage,
        event_count AS raw_count
    FROM %s_filled
)`, prefix, prefix)

	selectSQL := fmt.Sprintf("SELECT '%s' AS measure_id, bucket_start, value, coverage, raw_count FROM %s_series", measure.ID, prefix)

	return Compilation{
		CTEs:      []string{ordered, clamped, bucketBounds, buckets, filled, series},
		SelectSQL: selectSQL,
	}, nil
}

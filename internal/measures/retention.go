package measures

import (
	"fmt"

	"github.com/sitescope-io/cctv-analytics/internal/calendar"
	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
	"github.com/sitescope-io/cctv-analytics/internal/filter"
)

type retentionCompiler struct{}

// Compile renders retention_rate: a cohort/lag matrix built from new-visit
// detection (a 30-minute gap since the previous entrance starts a new
// visit), ported from compiler.py's _render_retention.
func (retentionCompiler) Compile(measure chartspec.Measure, bucket chartspec.BucketSize, _ *filter.ParamSet) (Compilation, error) {
	cohortTrunc, err := calendar.RetentionCohortTrunc(bucket)
	if err != nil {
		return Compilation{}, err
	}
	lagExpr, err := calendar.RetentionLagExpression(bucket)
	if err != nil {
		return Compilation{}, err
	}
	prefix := measure.ID + "_retention"

	entrances := fmt.Sprintf(`%s_entrances AS (
    SELECT
        site_id,
        track_no,
        timestamp,
        LAG(timestamp) OVER (
            PARTITION BY site_id, track_no
            ORDER BY timestamp, event_index
        ) AS prev_timestamp
    FROM scoped
    WHERE event_type = 1
)`, prefix)

	visits := fmt.Sprintf(`%s_visits AS (
    SELECT
        site_id,
        track_no,
        timestamp AS visit_ts,
        %s AS cohort_week
    FROM %s_entrances
    WHERE prev_timestamp IS NULL
        OR TIMESTAMP_DIFF(timestamp, prev_timestamp, MINUTE) >= 30
)`, prefix, cohortTrunc, prefix)

	cohortSizes := fmt.Sprintf(`%s_cohort_sizes AS (
    SELECT
        cohort_week,
        COUNT(DISTINCT track_no) AS cohort_size
    FROM %s_visits
    GROUP BY cohort_week
)`, prefix, prefix)

	returns := fmt.Sprintf(`%s_returns AS (
    SELECT
        first.cohort_week,
        %s AS lag_weeks,
        later.track_no
    FROM %s_visits AS first
    JOIN %s_visits AS later
        ON first.site_id = later.site_id
        AND first.track_no = later.track_no
        AND later.visit_ts >= first.visit_ts
)`, prefix, lagExpr, prefix, prefix)

	counts := fmt.Sprintf(`%s_counts AS (
    SELECT
        cohort_week,
        lag_weeks,
        COUNT(DISTINCT track_no) AS returning
    FROM %s_returns
    WHERE lag_weeks BETWEEN 0 AND 52
    GROUP BY cohort_week, lag_weeks
)`, prefix, prefix)

	matrix := fmt.Sprintf(`%s_matrix AS (
    SELECT
        calendar.bucket_start,
        calendar.lag_weeks,
        IFNULL(counts.returning, 0) AS returning,
        IFNULL(sizes.cohort_size, 0) AS cohort_size
    FROM retention_calendar AS calendar
    LEFT JOIN %s_counts AS counts
        ON counts.cohort_week = calendar.bucket_start
        AND counts.lag_weeks = calendar.lag_weeks
    LEFT JOIN %s_cohort_sizes AS sizes
        ON sizes.cohort_week = calendar.bucket_start
)`, prefix, prefix, prefix)

	series := fmt.Sprintf(`%s_series AS (
    SELECT
        bucket_start,
        lag_weeks,
        CASE
            WHEN cohort_size = 0 THEN NULL
            ELSE SAFE_DIVIDE(returning, cohort_size)
        END AS value,
        CASE
            WHEN cohort_size = 0 THEN 0.0
            ELSE LEAST(SAFE_DIVIDE(cohort_size, %d), 1.0)
        END AS coverage,
        returning AS raw_count
    FROM %s_matrix
)`, prefix, calendar.RetentionMinCohort, prefix)

	selectSQL := fmt.Sprintf(
		"SELECT '%s' AS measure_id, bucket_start, lag_weeks, value, coverage, raw_count FROM %s_series",
		measure.ID, prefix,
	)

	return Compilation{
		CTEs:      []string{entrances, visits, cohortSizes, returns, counts, matrix, series},
		SelectSQL: selectSQL,
	}, nil
}

package measures

import (
	"fmt"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
	"github.com/sitescope-io/cctv-analytics/internal/filter"
)

type dwellCompiler struct {
	aggregation chartspec.Aggregation
}

// Compile renders dwell_mean, dwell_p90, or sessions, all sharing the same
// entrance/exit ROW_NUMBER pairing and session-duration clamp, ported from
// compiler.py's _render_dwell.
func (c dwellCompiler) Compile(measure chartspec.Measure, bucket chartspec.BucketSize, _ *filter.ParamSet) (Compilation, error) {
	if bucket == chartspec.BucketRaw || bucket == "" {
		return Compilation{}, chartspec.NewValidationError("%s requires bucketed time series", c.aggregation)
	}
	prefix := measure.ID + "_dwell"

	entrances := fmt.Sprintf(`%s_entrances AS (
    SELECT
        site_id,
        cam_id,
        track_no,
        timestamp AS entrance_ts,
        ROW_NUMBER() OVER (
            PARTITION BY site_id, cam_id, track_no
            ORDER BY timestamp, event_index
        ) AS rn
    FROM scoped
    WHERE event_type = 1
)`, prefix)

	exits := fmt.Sprintf(`%s_exits AS (
    SELECT
        site_id,
        cam_id,
        track_no,
        timestamp AS exit_ts,
        ROW_NUMBER() OVER (
            PARTITION BY site_id, cam_id, track_no
            ORDER BY timestamp, event_index
        ) AS rn
    FROM scoped
    WHERE event_type = 0
)`, prefix)

	sessions := fmt.Sprintf(`%s_sessions AS (
    SELECT
        e.site_id,
        e.cam_id,
        e.track_no,
        e.entrance_ts,
        x.exit_ts,
        TIMESTAMP_DIFF(x.exit_ts, e.entrance_ts, SECOND) / 60.0 AS dwell_minutes
    FROM %s_entrances AS e
    LEFT JOIN %s_exits AS x
        ON e.site_id = x.site_id
        AND e.cam_id = x.cam_id
        AND e.track_no = x.track_no
        AND e.rn = x.rn
    WHERE x.exit_ts IS NOT NULL
        AND TIMESTAMP_DIFF(x.exit_ts, e.entrance_ts, MINUTE) BETWEEN 0 AND 360
)`, prefix, prefix, prefix)

	bucketed := fmt.Sprintf(`%s_bucketed AS (
    SELECT
        calendar.bucket_start,
        calendar.bucket_seconds,
        calendar.window_seconds,
        COUNT(sessions.dwell_minutes) AS session_count,
        AVG(sessions.dwell_minutes) AS dwell_mean,
        APPROX_QUANTILES(sessions.dwell_minutes, 101)[OFFSET(90)] AS dwell_p90
    FROM calendar
    LEFT JOIN %s_sessions AS sessions
        ON sessions.entrance_ts >= calendar.bucket_start
        AND sessions.entrance_ts < calendar.bucket_end
    GROUP BY calendar.bucket_start, calendar.bucket_seconds, calendar.window_seconds
    ORDER BY calendar.bucket_start
)`, prefix, prefix)

	var valueColumn string
	switch c.aggregation {
	case chartspec.AggDwellMean:
		valueColumn = "dwell_mean"
	case chartspec.AggDwellP90:
		valueColumn = "dwell_p90"
	case chartspec.AggSessions:
		valueColumn = "session_count"
	}

	valueExpr := "session_count"
	if c.aggregation == chartspec.AggDwellMean || c.aggregation == chartspec.AggDwellP90 {
		valueExpr = fmt.Sprintf("CASE WHEN session_count = 0 THEN NULL ELSE %s END", valueColumn)
	}

	series := fmt.Sprintf(`%s_series AS (
    SELECT
        bucket_start,
        %s AS value,
        CASE
            WHEN bucket_seconds = 0 THEN 0.0
            WHEN session_count = 0 THEN 0.0
            ELSE SAFE_DIVIDE(window_seconds, bucket_seconds)
        END AS coverage,
        session_count AS raw_count
    FROM %s_bucketed
)`, prefix, valueExpr, prefix)

	selectSQL := fmt.Sprintf("SELECT '%s' AS measure_id, bucket_start, value, coverage, raw_count FROM %s_series", measure.ID, prefix)

	return Compilation{
		CTEs:      []string{entrances, exits, sessions, bucketed, series},
		SelectSQL: selectSQL,
	}, nil
}

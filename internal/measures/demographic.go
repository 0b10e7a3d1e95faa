package measures

import (
	"fmt"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
	"github.com/sitescope-io/cctv-analytics/internal/filter"
)

type demographicCompiler struct{}

// Compile renders demographic_count: per-bucket COUNT(*) grouped by the
// scoped view's already-COALESCEd sex/age_bucket columns. This resolves the
// spec's demographic_count Open Question (see DESIGN.md): each output row
// carries a `demographic_group` column of "sex/age_bucket", which the
// normaliser copies into each point's group label, the same way it labels
// retention points with their lag. All rows stay in one series.
func (demographicCompiler) Compile(measure chartspec.Measure, bucket chartspec.BucketSize, _ *filter.ParamSet) (Compilation, error) {
	if bucket == chartspec.BucketRaw || bucket == "" {
		return Compilation{}, chartspec.NewValidationError("demographic_count requires bucketed time series")
	}
	prefix := measure.ID + "_demographic"

	counts := fmt.Sprintf(`%s_counts AS (
    SELECT
        calendar.bucket_start,
        calendar.bucket_seconds,
        calendar.window_seconds,
        scoped.sex,
        scoped.age_bucket,
        COUNT(*) AS event_count
    FROM calendar
    JOIN scoped
        ON scoped.timestamp >= calendar.bucket_start
        AND scoped.timestamp < calendar.bucket_end
    GROUP BY calendar.bucket_start, calendar.bucket_seconds, calendar.window_seconds, scoped.sex, scoped.age_bucket
)`, prefix)

	series := fmt.Sprintf(`%s_series AS (
    SELECT
        bucket_start,
        CONCAT(sex, '/', age_bucket) AS demographic_group,
        event_count AS value,
        CASE
            WHEN bucket_seconds = 0 THEN 0.0
            WHEN event_count = 0 THEN 0.0
            ELSE SAFE_DIVIDE(window_seconds, bucket_seconds)
        END AS coverage,
        event_count AS raw_count
    FROM %s_counts
)`, prefix, prefix)

	selectSQL := fmt.Sprintf(
		"SELECT '%s' AS measure_id, bucket_start, demographic_group, value, coverage, raw_count FROM %s_series",
		measure.ID, prefix,
	)

	return Compilation{CTEs: []string{counts, series}, SelectSQL: selectSQL}, nil
}

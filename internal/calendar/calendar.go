// Package calendar renders the `calendar` and `retention_calendar` CTEs
// that every measure compiler joins against, ported from compiler.py's
// _render_calendar / _render_retention_calendar and their supporting bucket
// expression helpers.
package calendar

import (
	"fmt"
	"strings"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
)

// WindowBoundsCTE and RetentionWindowCTE name the inner CTEs nested inside
// calendar/retention_calendar. BigQuery reserves WINDOW as a keyword, so
// these use descriptive aliases instead.
const (
	WindowBoundsCTE    = "window_bounds"
	RetentionWindowCTE = "retention_window_bounds"
)

const retentionMinCohort = 100

func truncExpression(bucket chartspec.BucketSize) (string, error) {
	switch bucket {
	case chartspec.Bucket5Min:
		return "TIMESTAMP_TRUNC(@start_ts, MINUTE, 5)", nil
	case chartspec.Bucket15Min:
		return "TIMESTAMP_TRUNC(@start_ts, MINUTE, 15)", nil
	case chartspec.Bucket30Min:
		return "TIMESTAMP_TRUNC(@start_ts, MINUTE, 30)", nil
	case chartspec.BucketHour:
		return "TIMESTAMP_TRUNC(@start_ts, HOUR)", nil
	case chartspec.BucketDay:
		return "TIMESTAMP_TRUNC(@start_ts, DAY)", nil
	case chartspec.BucketWeek:
		return "TIMESTAMP_TRUNC(@start_ts, WEEK)", nil
	case chartspec.BucketMonth:
		return "TIMESTAMP_TRUNC(@start_ts, MONTH)", nil
	}
	return "", chartspec.NewValidationError("unsupported bucket for truncation: %s", bucket)
}

func intervalExpression(bucket chartspec.BucketSize) (string, error) {
	switch bucket {
	case chartspec.Bucket5Min:
		return "INTERVAL 5 MINUTE", nil
	case chartspec.Bucket15Min:
		return "INTERVAL 15 MINUTE", nil
	case chartspec.Bucket30Min:
		return "INTERVAL 30 MINUTE", nil
	case chartspec.BucketHour:
		return "INTERVAL 1 HOUR", nil
	case chartspec.BucketDay:
		return "INTERVAL 1 DAY", nil
	case chartspec.BucketWeek:
		return "INTERVAL 1 WEEK", nil
	case chartspec.BucketMonth:
		return "INTERVAL 1 MONTH", nil
	}
	return "", chartspec.NewValidationError("unsupported bucket for interval: %s", bucket)
}

// RetentionCohortTrunc returns the TIMESTAMP_TRUNC expression used to bucket
// a raw event timestamp into its cohort week/month.
func RetentionCohortTrunc(bucket chartspec.BucketSize) (string, error) {
	switch bucket {
	case chartspec.BucketWeek:
		return "TIMESTAMP_TRUNC(timestamp, WEEK(MONDAY))", nil
	case chartspec.BucketMonth:
		return "TIMESTAMP_TRUNC(timestamp, MONTH)", nil
	}
	return "", chartspec.NewValidationError("unsupported retention bucket: %s", bucket)
}

func retentionMaxLagExpr(bucket chartspec.BucketSize) (string, error) {
	switch bucket {
	case chartspec.BucketWeek:
		seconds, _ := chartspec.BucketWeek.Seconds()
		return fmt.Sprintf(
			"CAST(DIV(TIMESTAMP_DIFF(window_end, aligned_start, SECOND) + %d - 1, %d) AS INT64)",
			seconds, seconds,
		), nil
	case chartspec.BucketMonth:
		return "CAST(DATE_DIFF(DATE(window_end), DATE(aligned_start), MONTH) AS INT64)", nil
	}
	return "", chartspec.NewValidationError("unsupported retention bucket: %s", bucket)
}

// RetentionLagExpression returns the lag-index expression used when joining
// a cohort's first visit against a later visit.
func RetentionLagExpression(bucket chartspec.BucketSize) (string, error) {
	switch bucket {
	case chartspec.BucketWeek:
		return "CAST(FLOOR(TIMESTAMP_DIFF(later.visit_ts, first.visit_ts, DAY) / 7) AS INT64)", nil
	case chartspec.BucketMonth:
		return "CAST(DATE_DIFF(DATE(later.visit_ts), DATE(first.visit_ts), MONTH) AS INT64)", nil
	}
	return "", chartspec.NewValidationError("unsupported retention bucket: %s", bucket)
}

// RetentionMinCohort is the minimum cohort size used to scale retention
// coverage, matching compiler.py's _RETENTION_MIN_COHORT.
const RetentionMinCohort = retentionMinCohort

// Build renders the `calendar` CTE for a fixed-bucket time series query.
// RAW is rejected: a calendar requires a bucketed time series.
func Build(bucket chartspec.BucketSize) (string, error) {
	if bucket == chartspec.BucketRaw || bucket == "" {
		return "", chartspec.NewValidationError("calendar requires bucketed time series")
	}
	trunc, err := truncExpression(bucket)
	if err != nil {
		return "", err
	}
	interval, err := intervalExpression(bucket)
	if err != nil {
		return "", err
	}
	addExpr := fmt.Sprintf("TIMESTAMP_ADD(bucket_start, %s)", interval)

	var b strings.Builder
	fmt.Fprintf(&b, "calendar AS (\n")
	fmt.Fprintf(&b, "    WITH %s AS (\n", WindowBoundsCTE)
	fmt.Fprintf(&b, "        SELECT\n")
	fmt.Fprintf(&b, "            @start_ts AS window_start,\n")
	fmt.Fprintf(&b, "            @end_ts AS window_end,\n")
	fmt.Fprintf(&b, "            %s AS aligned_start\n", trunc)
	fmt.Fprintf(&b, "    )\n")
	fmt.Fprintf(&b, "    SELECT\n")
	fmt.Fprintf(&b, "        bucket_start,\n")
	fmt.Fprintf(&b, "        LEAST(%s, window_end) AS bucket_end,\n", addExpr)
	fmt.Fprintf(&b, "        GREATEST(\n")
	fmt.Fprintf(&b, "            TIMESTAMP_DIFF(LEAST(%s, window_end), bucket_start, SECOND),\n", addExpr)
	fmt.Fprintf(&b, "            0\n")
	fmt.Fprintf(&b, "        ) AS bucket_seconds,\n")
	fmt.Fprintf(&b, "        GREATEST(\n")
	fmt.Fprintf(&b, "            TIMESTAMP_DIFF(\n")
	fmt.Fprintf(&b, "                LEAST(%s, window_end),\n", addExpr)
	fmt.Fprintf(&b, "                GREATEST(bucket_start, window_start),\n")
	fmt.Fprintf(&b, "                SECOND\n")
	fmt.Fprintf(&b, "            ),\n")
	fmt.Fprintf(&b, "            0\n")
	fmt.Fprintf(&b, "        ) AS window_seconds\n")
	fmt.Fprintf(&b, "    FROM %s,\n", WindowBoundsCTE)
	fmt.Fprintf(&b, "    UNNEST(\n")
	fmt.Fprintf(&b, "        GENERATE_TIMESTAMP_ARRAY(\n")
	fmt.Fprintf(&b, "            aligned_start,\n")
	fmt.Fprintf(&b, "            window_end,\n")
	fmt.Fprintf(&b, "            %s\n", interval)
	fmt.Fprintf(&b, "        )\n")
	fmt.Fprintf(&b, "    ) AS bucket_start\n")
	fmt.Fprintf(&b, "    WHERE bucket_start < window_end\n")
	fmt.Fprintf(&b, ")")
	return b.String(), nil
}

// BuildRetentionCalendar renders the `retention_calendar` CTE used by
// retention/heatmap charts: the cross join of cohort starts and lag
// indices that every cohort's matrix joins against.
func BuildRetentionCalendar(bucket chartspec.BucketSize) (string, error) {
	var trunc string
	switch bucket {
	case chartspec.BucketWeek:
		trunc = "TIMESTAMP_TRUNC(@start_ts, WEEK(MONDAY))"
	case chartspec.BucketMonth:
		trunc = "TIMESTAMP_TRUNC(@start_ts, MONTH)"
	default:
		return "", chartspec.NewValidationError("unsupported retention bucket: %s", bucket)
	}
	interval, err := intervalExpression(bucket)
	if err != nil {
		return "", err
	}
	maxLag, err := retentionMaxLagExpr(bucket)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "retention_calendar AS (\n")
	fmt.Fprintf(&b, "    WITH %s AS (\n", RetentionWindowCTE)
	fmt.Fprintf(&b, "        SELECT\n")
	fmt.Fprintf(&b, "            %s AS aligned_start,\n", trunc)
	fmt.Fprintf(&b, "            @end_ts AS window_end,\n")
	fmt.Fprintf(&b, "            %s AS max_lag\n", maxLag)
	fmt.Fprintf(&b, "    )\n")
	fmt.Fprintf(&b, "    SELECT\n")
	fmt.Fprintf(&b, "        cohort_start AS bucket_start,\n")
	fmt.Fprintf(&b, "        lag_index AS lag_weeks\n")
	fmt.Fprintf(&b, "    FROM %s,\n", RetentionWindowCTE)
	fmt.Fprintf(&b, "    UNNEST(\n")
	fmt.Fprintf(&b, "        GENERATE_TIMESTAMP_ARRAY(\n")
	fmt.Fprintf(&b, "            aligned_start,\n")
	fmt.Fprintf(&b, "            window_end,\n")
	fmt.Fprintf(&b, "            %s\n", interval)
	fmt.Fprintf(&b, "        )\n")
	fmt.Fprintf(&b, "    ) AS cohort_start,\n")
	fmt.Fprintf(&b, "    UNNEST(GENERATE_ARRAY(0, GREATEST(%s, 0))) AS lag_index\n", "max_lag")
	fmt.Fprintf(&b, "    WHERE cohort_start < window_end\n")
	fmt.Fprintf(&b, ")")
	return b.String(), nil
}

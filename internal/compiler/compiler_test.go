package compiler

import (
	"strings"
	"testing"
	"time"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
)

func window() chartspec.TimeWindow {
	return chartspec.TimeWindow{
		From:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC),
		Bucket:   chartspec.Bucket5Min,
		Timezone: "UTC",
	}
}

func TestCompileTimeSeriesProducesOrderedSQL(t *testing.T) {
	c := New()
	spec := chartspec.ChartSpec{
		Dataset:   "events",
		ChartType: chartspec.ChartComposedTime,
		Measures: []chartspec.Measure{
			{ID: "occ", Aggregation: chartspec.AggOccupancyRecursion},
			{ID: "entries", Aggregation: chartspec.AggCount, EventTypes: []int{1}},
		},
		Dimensions: []chartspec.Dimension{{ID: "time", Column: "timestamp"}},
		TimeWindow: window(),
	}
	query, err := c.Compile(spec, chartspec.CompilerContext{TableName: "proj.ds.tbl", Timezone: "UTC"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.HasPrefix(query.SQL, "WITH") {
		t.Fatalf("expected SQL to start with WITH, got:\n%s", query.SQL)
	}
	if !strings.Contains(query.SQL, "ORDER BY bucket_start, measure_id") {
		t.Fatalf("expected time-series ORDER BY, got:\n%s", query.SQL)
	}
	if query.Params["start_ts"] != spec.TimeWindow.From {
		t.Fatalf("expected start_ts param bound to window.From")
	}
	if query.Measures["occ"] != chartspec.AggOccupancyRecursion {
		t.Fatalf("expected measure map to retain aggregation by id")
	}
}

func TestCompileRejectsUnsupportedChartType(t *testing.T) {
	c := New()
	spec := chartspec.ChartSpec{
		Dataset:    "events",
		ChartType:  "pie",
		Measures:   []chartspec.Measure{{ID: "m", Aggregation: chartspec.AggCount}},
		Dimensions: []chartspec.Dimension{{ID: "time", Column: "timestamp"}},
		TimeWindow: window(),
	}
	_, err := c.Compile(spec, chartspec.CompilerContext{TableName: "proj.ds.tbl"})
	if err == nil {
		t.Fatalf("expected validation error before chart-type check reaches the compiler")
	}
}

func TestCompileRejectsMeasureNotValidForChartShape(t *testing.T) {
	c := New()
	spec := chartspec.ChartSpec{
		Dataset:   "events",
		ChartType: chartspec.ChartComposedTime,
		Measures:  []chartspec.Measure{{ID: "ret", Aggregation: chartspec.AggRetentionRate}},
		Dimensions: []chartspec.Dimension{{ID: "time", Column: "timestamp"}},
		TimeWindow: window(),
	}
	_, err := c.Compile(spec, chartspec.CompilerContext{TableName: "proj.ds.tbl"})
	if err == nil {
		t.Fatalf("expected error: retention_rate is not valid on a composed_time chart")
	}
}

func TestCompileRetentionChartRequiresWeekOrMonthBucket(t *testing.T) {
	c := New()
	w := window()
	w.Bucket = chartspec.BucketHour
	spec := chartspec.ChartSpec{
		Dataset:    "events",
		ChartType:  chartspec.ChartRetention,
		Measures:   []chartspec.Measure{{ID: "ret", Aggregation: chartspec.AggRetentionRate}},
		Dimensions: []chartspec.Dimension{{ID: "time", Column: "timestamp"}},
		TimeWindow: w,
	}
	_, err := c.Compile(spec, chartspec.CompilerContext{TableName: "proj.ds.tbl"})
	if err == nil {
		t.Fatalf("expected error for HOUR bucket on retention chart")
	}
}

func TestCompileRetentionChartProducesLagOrderedSQL(t *testing.T) {
	c := New()
	w := window()
	w.Bucket = chartspec.BucketWeek
	spec := chartspec.ChartSpec{
		Dataset:    "events",
		ChartType:  chartspec.ChartRetention,
		Measures:   []chartspec.Measure{{ID: "ret", Aggregation: chartspec.AggRetentionRate}},
		Dimensions: []chartspec.Dimension{{ID: "time", Column: "timestamp"}},
		TimeWindow: w,
	}
	query, err := c.Compile(spec, chartspec.CompilerContext{TableName: "proj.ds.tbl"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(query.SQL, "ORDER BY bucket_start, lag_weeks, measure_id") {
		t.Fatalf("expected retention ORDER BY, got:\n%s", query.SQL)
	}
	if query.Bucket != chartspec.BucketWeek {
		t.Fatalf("expected bucket WEEK, got %s", query.Bucket)
	}
}

func TestCompileBindsFilterParamInScopedCTE(t *testing.T) {
	c := New()
	spec := chartspec.ChartSpec{
		Dataset:    "events",
		ChartType:  chartspec.ChartComposedTime,
		Measures:   []chartspec.Measure{{ID: "occ", Aggregation: chartspec.AggOccupancyRecursion}},
		Dimensions: []chartspec.Dimension{{ID: "time", Column: "timestamp"}},
		TimeWindow: window(),
		Filters: []chartspec.FilterGroup{
			{
				Logic: chartspec.LogicAND,
				Conditions: []chartspec.FilterEntry{
					{Condition: &chartspec.Condition{Field: "site_id", Op: chartspec.OpEquals, Value: "s1"}},
				},
			},
		},
	}
	query, err := c.Compile(spec, chartspec.CompilerContext{TableName: "proj.ds.tbl"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if query.Params["site_id_0"] != "s1" {
		t.Fatalf("expected filter param site_id_0=s1, got %v", query.Params)
	}
	if !strings.Contains(query.SQL, "AND (site_id = @site_id_0)") {
		t.Fatalf("expected filter clause in scoped CTE, got:\n%s", query.SQL)
	}
}

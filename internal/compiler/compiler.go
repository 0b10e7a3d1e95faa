// Package compiler ties the calendar, filter, measures, and sqlassembler
// packages together into the full spec-to-SQL translation, ported from
// compiler.py's SpecCompiler.compile / _compile_retention_chart.
package compiler

import (
	"fmt"

	"github.com/sitescope-io/cctv-analytics/internal/calendar"
	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
	"github.com/sitescope-io/cctv-analytics/internal/filter"
	"github.com/sitescope-io/cctv-analytics/internal/measures"
	"github.com/sitescope-io/cctv-analytics/internal/sqlassembler"
	"github.com/sitescope-io/cctv-analytics/internal/validate"
)

const unknownDimensionValue = "Unknown"

var supportedCharts = map[chartspec.ChartType]bool{
	chartspec.ChartComposedTime: true,
	chartspec.ChartCategorical:  true,
	chartspec.ChartSingleValue:  true,
	chartspec.ChartHeatmap:      true,
	chartspec.ChartRetention:    true,
}

// Compiler translates validated ChartSpecs into executable BigQuery SQL.
type Compiler struct {
	registry *measures.Registry
}

// New builds a Compiler with every aggregation compiler registered.
func New() *Compiler {
	return &Compiler{registry: measures.NewRegistry()}
}

// Compile validates spec and renders it to a CompiledQuery against ctx's
// resolved table.
func (c *Compiler) Compile(spec chartspec.ChartSpec, ctx chartspec.CompilerContext) (chartspec.CompiledQuery, error) {
	if err := validate.Spec(spec); err != nil {
		return chartspec.CompiledQuery{}, err
	}
	if !supportedCharts[spec.ChartType] {
		return chartspec.CompiledQuery{}, &chartspec.UnsupportedChartError{ChartType: spec.ChartType}
	}
	if spec.ChartType.IsRetentionShaped() {
		return c.compileRetentionChart(spec, ctx)
	}
	return c.compileTimeSeries(spec, ctx)
}

func (c *Compiler) compileTimeSeries(spec chartspec.ChartSpec, ctx chartspec.CompilerContext) (chartspec.CompiledQuery, error) {
	bucket := spec.TimeWindow.Bucket
	if bucket == "" {
		bucket = chartspec.BucketRaw
	}
	if !bucket.Valid() {
		return chartspec.CompiledQuery{}, chartspec.NewValidationError("unsupported bucket value: %s", bucket)
	}

	params := filter.NewParamSet(map[string]interface{}{
		"start_ts": spec.TimeWindow.From,
		"end_ts":   spec.TimeWindow.To,
	})

	filtersSQL, err := filter.Compile(spec.Filters, params)
	if err != nil {
		return chartspec.CompiledQuery{}, err
	}

	baseCTEs := []string{renderScoped(ctx.TableName, filtersSQL)}
	if bucket != chartspec.BucketRaw {
		cal, err := calendar.Build(bucket)
		if err != nil {
			return chartspec.CompiledQuery{}, err
		}
		baseCTEs = append(baseCTEs, cal)
	}

	var measureCTEs []sqlassembler.NamedCTE
	var selects []string
	measureMap := make(map[string]chartspec.Aggregation, len(spec.Measures))

	for _, measure := range spec.Measures {
		if !measures.TimeSeriesAggregations[measure.Aggregation] {
			return chartspec.CompiledQuery{}, &chartspec.UnsupportedMeasureError{Aggregation: measure.Aggregation}
		}
		compiler, ok := c.registry.For(measure.Aggregation)
		if !ok {
			return chartspec.CompiledQuery{}, &chartspec.UnsupportedMeasureError{Aggregation: measure.Aggregation}
		}
		compilation, err := compiler.Compile(measure, bucket, params)
		if err != nil {
			return chartspec.CompiledQuery{}, err
		}
		for _, fragment := range compilation.CTEs {
			measureCTEs = append(measureCTEs, sqlassembler.NamedCTE{
				Name: sqlassembler.NamedCTEName(fragment),
				SQL:  fragment,
			})
		}
		selects = append(selects, compilation.SelectSQL)
		measureMap[measure.ID] = measure.Aggregation
	}

	sql := sqlassembler.Assemble(baseCTEs, measureCTEs, selects, sqlassembler.DefaultOrderBy)
	return chartspec.CompiledQuery{
		SQL:      sql,
		Params:   params.Values(),
		Measures: measureMap,
		Bucket:   bucket,
	}, nil
}

func (c *Compiler) compileRetentionChart(spec chartspec.ChartSpec, ctx chartspec.CompilerContext) (chartspec.CompiledQuery, error) {
	bucket := spec.TimeWindow.Bucket
	if bucket == "" {
		bucket = chartspec.BucketWeek
	}
	if bucket != chartspec.BucketWeek && bucket != chartspec.BucketMonth {
		return chartspec.CompiledQuery{}, chartspec.NewValidationError("retention charts require WEEK or MONTH bucket")
	}

	params := filter.NewParamSet(map[string]interface{}{
		"start_ts": spec.TimeWindow.From,
		"end_ts":   spec.TimeWindow.To,
	})

	filtersSQL, err := filter.Compile(spec.Filters, params)
	if err != nil {
		return chartspec.CompiledQuery{}, err
	}

	retentionCalendar, err := calendar.BuildRetentionCalendar(bucket)
	if err != nil {
		return chartspec.CompiledQuery{}, err
	}
	baseCTEs := []string{renderScoped(ctx.TableName, filtersSQL), retentionCalendar}

	var measureCTEs []sqlassembler.NamedCTE
	var selects []string
	measureMap := make(map[string]chartspec.Aggregation, len(spec.Measures))

	for _, measure := range spec.Measures {
		if !measures.RetentionAggregations[measure.Aggregation] {
			return chartspec.CompiledQuery{}, &chartspec.UnsupportedMeasureError{Aggregation: measure.Aggregation}
		}
		compiler, ok := c.registry.For(measure.Aggregation)
		if !ok {
			return chartspec.CompiledQuery{}, &chartspec.UnsupportedMeasureError{Aggregation: measure.Aggregation}
		}
		compilation, err := compiler.Compile(measure, bucket, params)
		if err != nil {
			return chartspec.CompiledQuery{}, err
		}
		for _, fragment := range compilation.CTEs {
			measureCTEs = append(measureCTEs, sqlassembler.NamedCTE{
				Name: sqlassembler.NamedCTEName(fragment),
				SQL:  fragment,
			})
		}
		selects = append(selects, compilation.SelectSQL)
		measureMap[measure.ID] = measure.Aggregation
	}

	sql := sqlassembler.Assemble(baseCTEs, measureCTEs, selects, sqlassembler.RetentionOrderBy)
	return chartspec.CompiledQuery{
		SQL:      sql,
		Params:   params.Values(),
		Measures: measureMap,
		Bucket:   bucket,
	}, nil
}

func renderScoped(tableName, filtersSQL string) string {
	return fmt.Sprintf(`scoped AS (
    SELECT
        timestamp,
        event_type,
        IFNULL(index, 0) AS event_index,
        site_id,
        cam_id,
        track_no,
        COALESCE(sex, '%s') AS sex,
        COALESCE(age_bucket, '%s') AS age_bucket
    FROM `+"`%s`"+`
    WHERE timestamp BETWEEN @start_ts AND @end_ts%s
)`, unknownDimensionValue, unknownDimensionValue, tableName, filtersSQL)
}

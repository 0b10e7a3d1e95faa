// Package normalize converts a warehouse Frame into the chartspec.ChartResult
// wire shape, ported from engine.py's _normalise_time_series /
// _normalise_heatmap.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
)

var geometryByAggregation = map[chartspec.Aggregation]chartspec.Geometry{
	chartspec.AggOccupancyRecursion: chartspec.GeomArea,
	chartspec.AggCount:              chartspec.GeomColumn,
	chartspec.AggActivityRate:       chartspec.GeomLine,
	chartspec.AggDwellMean:          chartspec.GeomLine,
	chartspec.AggDwellP90:           chartspec.GeomLine,
	chartspec.AggSessions:           chartspec.GeomColumn,
	chartspec.AggRetentionRate:      chartspec.GeomHeatmap,
	chartspec.AggDemographicCount:   chartspec.GeomColumn,
}

var axisByAggregation = map[chartspec.Aggregation]chartspec.Axis{
	chartspec.AggOccupancyRecursion: chartspec.AxisY1,
	chartspec.AggCount:              chartspec.AxisY2,
	chartspec.AggActivityRate:       chartspec.AxisY2,
	chartspec.AggDwellMean:          chartspec.AxisY1,
	chartspec.AggDwellP90:           chartspec.AxisY1,
	chartspec.AggSessions:           chartspec.AxisY2,
}

var unitByAggregation = map[chartspec.Aggregation]string{
	chartspec.AggOccupancyRecursion: "people",
	chartspec.AggCount:              "events",
	chartspec.AggActivityRate:       "events/min",
	chartspec.AggDwellMean:          "minutes",
	chartspec.AggDwellP90:           "minutes",
	chartspec.AggSessions:           "sessions",
	chartspec.AggRetentionRate:      "rate",
	chartspec.AggDemographicCount:   "people",
}

// Normaliser converts Frames into ChartResults, pluggable on its surge
// detector so callers (and tests) can swap in a fixed/deterministic one.
type Normaliser struct {
	surges SurgeDetector
}

// New builds a Normaliser using the mean+stddev surge detector.
func New() *Normaliser {
	return &Normaliser{surges: MeanStdDevDetector{}}
}

// NewWithDetector builds a Normaliser with a custom SurgeDetector.
func NewWithDetector(detector SurgeDetector) *Normaliser {
	return &Normaliser{surges: detector}
}

func labelForSeries(measureID string, aggregation chartspec.Aggregation) string {
	source := measureID
	if source == "" {
		source = string(aggregation)
	}
	return titleCase(strings.ReplaceAll(source, "_", " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// measureOrder recovers the declaration order of measures lost by
// CompiledQuery.Measures (a map), mirroring the engine's need to iterate
// measures in spec order rather than Go's randomised map order.
func measureOrder(spec chartspec.ChartSpec) []string {
	order := make([]string, 0, len(spec.Measures))
	for _, m := range spec.Measures {
		order = append(order, m.ID)
	}
	return order
}

// TimeSeries normalises a fixed-bucket result frame (composed_time,
// categorical, single_value), ported from engine.py's
// _normalise_time_series.
func (n *Normaliser) TimeSeries(spec chartspec.ChartSpec, compiled chartspec.CompiledQuery, frame chartspec.Frame) (chartspec.ChartResult, error) {
	timezone := spec.TimeWindow.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	coverage, err := meanCoverageByBucket(frame)
	if err != nil {
		return chartspec.ChartResult{}, err
	}

	var series []chartspec.Series
	var allSurges []chartspec.Surge
	for _, measureID := range measureOrder(spec) {
		aggregation := compiled.Measures[measureID]
		points, err := pointsForMeasure(frame, measureID)
		if err != nil {
			return chartspec.ChartResult{}, err
		}
		s := chartspec.Series{
			ID:       measureID,
			Label:    labelForSeries(measureID, aggregation),
			Geometry: geometryOrDefault(aggregation, chartspec.GeomLine),
			Axis:     axisByAggregation[aggregation],
			Unit:     unitByAggregation[aggregation],
			Points:   points,
		}
		series = append(series, s)
		allSurges = append(allSurges, n.surges.Detect(measureID, points)...)
	}

	if len(spec.Dimensions) == 0 {
		return chartspec.ChartResult{}, chartspec.NewNormalisationError("spec has no dimensions to derive xDimension from")
	}
	dimension := spec.Dimensions[0]
	xType := chartspec.XTypeCategory
	if dimension.Bucket != nil || dimension.Column == "timestamp" {
		xType = chartspec.XTypeTime
	}
	var xBucket *chartspec.BucketSize
	if dimension.Bucket != nil {
		xBucket = dimension.Bucket
	} else if compiled.Bucket != chartspec.BucketRaw && compiled.Bucket != "" {
		b := compiled.Bucket
		xBucket = &b
	}

	result := chartspec.ChartResult{
		ChartType: spec.ChartType,
		XDimension: chartspec.XDimension{
			ID:       dimension.ID,
			Type:     xType,
			Bucket:   xBucket,
			Timezone: timezone,
		},
		Series: series,
		Meta: chartspec.Meta{
			Timezone: timezone,
			Coverage: coverage,
			Surges:   allSurges,
			Summary: chartspec.Summary{
				Points:   frame.Rows(),
				Measures: measureOrder(spec),
			},
		},
	}
	return result, nil
}

// Heatmap normalises a retention/cohort-matrix result frame, ported from
// engine.py's _normalise_heatmap.
func (n *Normaliser) Heatmap(spec chartspec.ChartSpec, compiled chartspec.CompiledQuery, frame chartspec.Frame) (chartspec.ChartResult, error) {
	timezone := spec.TimeWindow.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	coverage, err := meanCoverageByBucket(frame)
	if err != nil {
		return chartspec.ChartResult{}, err
	}

	lagUnit := "Week"
	if compiled.Bucket == chartspec.BucketMonth {
		lagUnit = "Month"
	}

	var series []chartspec.Series
	for _, measureID := range measureOrder(spec) {
		aggregation := compiled.Measures[measureID]
		points, err := pointsForRetentionMeasure(frame, measureID, lagUnit)
		if err != nil {
			return chartspec.ChartResult{}, err
		}
		series = append(series, chartspec.Series{
			ID:       measureID,
			Label:    labelForSeries(measureID, aggregation),
			Geometry: geometryOrDefault(aggregation, chartspec.GeomHeatmap),
			Unit:     unitByAggregation[aggregation],
			Points:   points,
		})
	}

	if len(spec.Dimensions) == 0 {
		return chartspec.ChartResult{}, chartspec.NewNormalisationError("spec has no dimensions to derive xDimension from")
	}
	dimension := spec.Dimensions[0]
	var xBucket *chartspec.BucketSize
	if dimension.Bucket != nil {
		xBucket = dimension.Bucket
	} else if compiled.Bucket != chartspec.BucketRaw && compiled.Bucket != "" {
		b := compiled.Bucket
		xBucket = &b
	}

	return chartspec.ChartResult{
		ChartType: spec.ChartType,
		XDimension: chartspec.XDimension{
			ID:       dimension.ID,
			Type:     chartspec.XTypeMatrix,
			Bucket:   xBucket,
			Timezone: timezone,
		},
		Series: series,
		Meta: chartspec.Meta{
			Timezone: timezone,
			Coverage: coverage,
			Surges:   nil,
			Summary: chartspec.Summary{
				Points:   frame.Rows(),
				Measures: measureOrder(spec),
			},
		},
	}, nil
}

func geometryOrDefault(aggregation chartspec.Aggregation, fallback chartspec.Geometry) chartspec.Geometry {
	if g, ok := geometryByAggregation[aggregation]; ok {
		return g
	}
	return fallback
}

func meanCoverageByBucket(frame chartspec.Frame) ([]chartspec.CoveragePoint, error) {
	if frame.Rows() == 0 {
		return nil, nil
	}
	sums := make(map[string]float64)
	counts := make(map[string]int)
	order := make([]string, 0)

	for row := 0; row < frame.Rows(); row++ {
		ts, ok := frame.Time(row, "bucket_start")
		if !ok {
			return nil, chartspec.NewNormalisationError("row %d missing bucket_start", row)
		}
		key := isoTime(ts)
		cov, ok := frame.Float64(row, "coverage")
		if !ok {
			continue
		}
		if _, seen := sums[key]; !seen {
			order = append(order, key)
		}
		sums[key] += cov
		counts[key]++
	}

	points := make([]chartspec.CoveragePoint, 0, len(order))
	for _, key := range order {
		points = append(points, chartspec.CoveragePoint{
			X:     key,
			Value: sums[key] / float64(counts[key]),
		})
	}
	return points, nil
}

func pointsForMeasure(frame chartspec.Frame, measureID string) ([]chartspec.Point, error) {
	var points []chartspec.Point
	for row := 0; row < frame.Rows(); row++ {
		id, ok := frame.String(row, "measure_id")
		if !ok || id != measureID {
			continue
		}
		ts, ok := frame.Time(row, "bucket_start")
		if !ok {
			return nil, chartspec.NewNormalisationError("measure %s row %d missing bucket_start", measureID, row)
		}
		point := chartspec.Point{X: isoTime(ts)}
		if v, ok := frame.Float64(row, "value"); ok {
			point.Y = &v
		}
		if cov, ok := frame.Float64(row, "coverage"); ok {
			point.Coverage = cov
		}
		if raw, ok := frame.Int64(row, "raw_count"); ok {
			point.RawCount = raw
		}
		if group, ok := frame.String(row, "demographic_group"); ok {
			point.Group = group
		}
		points = append(points, point)
	}
	return points, nil
}

func pointsForRetentionMeasure(frame chartspec.Frame, measureID, lagUnit string) ([]chartspec.Point, error) {
	var points []chartspec.Point
	for row := 0; row < frame.Rows(); row++ {
		id, ok := frame.String(row, "measure_id")
		if !ok || id != measureID {
			continue
		}
		ts, ok := frame.Time(row, "bucket_start")
		if !ok {
			return nil, chartspec.NewNormalisationError("measure %s row %d missing bucket_start", measureID, row)
		}
		lag, _ := frame.Int64(row, "lag_weeks")
		point := chartspec.Point{
			X:     isoTime(ts),
			Group: fmt.Sprintf("%s %d", lagUnit, lag),
		}
		if v, ok := frame.Float64(row, "value"); ok {
			point.Value = &v
		}
		if cov, ok := frame.Float64(row, "coverage"); ok {
			point.Coverage = cov
		}
		if raw, ok := frame.Int64(row, "raw_count"); ok {
			point.RawCount = raw
		}
		points = append(points, point)
	}
	return points, nil
}

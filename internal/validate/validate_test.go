package validate

import (
	"testing"
	"time"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
)

func validSpec() chartspec.ChartSpec {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	return chartspec.ChartSpec{
		Dataset:   "events",
		ChartType: chartspec.ChartComposedTime,
		Measures: []chartspec.Measure{
			{ID: "occ", Aggregation: chartspec.AggOccupancyRecursion},
		},
		Dimensions: []chartspec.Dimension{
			{ID: "time", Column: "timestamp"},
		},
		TimeWindow: chartspec.TimeWindow{From: from, To: to, Bucket: chartspec.Bucket5Min, Timezone: "UTC"},
	}
}

func TestSpecValid(t *testing.T) {
	if err := Spec(validSpec()); err != nil {
		t.Fatalf("expected valid spec, got %v", err)
	}
}

func TestSpecRejectsWrongDataset(t *testing.T) {
	spec := validSpec()
	spec.Dataset = "other"
	if err := Spec(spec); err == nil {
		t.Fatalf("expected error for non-events dataset")
	}
}

func TestSpecRejectsUnknownChartType(t *testing.T) {
	spec := validSpec()
	spec.ChartType = "pie"
	if err := Spec(spec); err == nil {
		t.Fatalf("expected error for unknown chart type")
	}
}

func TestSpecRequiresMeasures(t *testing.T) {
	spec := validSpec()
	spec.Measures = nil
	if err := Spec(spec); err == nil {
		t.Fatalf("expected error for empty measures")
	}
}

func TestSpecRejectsBadEventType(t *testing.T) {
	spec := validSpec()
	spec.Measures[0].EventTypes = []int{2}
	if err := Spec(spec); err == nil {
		t.Fatalf("expected error for invalid eventTypes entry")
	}
}

func TestSpecRejectsInvertedWindow(t *testing.T) {
	spec := validSpec()
	spec.TimeWindow.From, spec.TimeWindow.To = spec.TimeWindow.To, spec.TimeWindow.From
	if err := Spec(spec); err == nil {
		t.Fatalf("expected error for to <= from")
	}
}

func TestSpecValidatesNestedFilterGroups(t *testing.T) {
	spec := validSpec()
	spec.Filters = []chartspec.FilterGroup{
		{
			Logic: chartspec.LogicAND,
			Conditions: []chartspec.FilterEntry{
				{Condition: &chartspec.Condition{Field: "site_id", Op: chartspec.OpEquals, Value: "s1"}},
				{Group: &chartspec.FilterGroup{
					Logic: chartspec.LogicOR,
					Conditions: []chartspec.FilterEntry{
						{Condition: &chartspec.Condition{Field: "cam_id", Op: chartspec.OpIn, Value: []interface{}{"c1", "c2"}}},
					},
				}},
			},
		},
	}
	if err := Spec(spec); err != nil {
		t.Fatalf("expected nested filter groups to validate, got %v", err)
	}
}

func TestSpecRejectsBetweenWithWrongArity(t *testing.T) {
	spec := validSpec()
	spec.Filters = []chartspec.FilterGroup{
		{
			Logic: chartspec.LogicAND,
			Conditions: []chartspec.FilterEntry{
				{Condition: &chartspec.Condition{Field: "age", Op: chartspec.OpBetween, Value: []interface{}{18}}},
			},
		},
	}
	if err := Spec(spec); err == nil {
		t.Fatalf("expected error for between with wrong arity")
	}
}

func TestSpecRejectsFilterEntryWithBothConditionAndGroup(t *testing.T) {
	spec := validSpec()
	spec.Filters = []chartspec.FilterGroup{
		{
			Logic: chartspec.LogicAND,
			Conditions: []chartspec.FilterEntry{
				{
					Condition: &chartspec.Condition{Field: "site_id", Op: chartspec.OpEquals, Value: "s1"},
					Group:     &chartspec.FilterGroup{Logic: chartspec.LogicAND},
				},
			},
		},
	}
	if err := Spec(spec); err == nil {
		t.Fatalf("expected error for filter entry with both condition and group set")
	}
}

func validResult() chartspec.ChartResult {
	return chartspec.ChartResult{
		ChartType: chartspec.ChartComposedTime,
		XDimension: chartspec.XDimension{
			ID:   "time",
			Type: chartspec.XTypeTime,
		},
		Series: []chartspec.Series{
			{ID: "occ", Geometry: chartspec.GeomLine, Axis: chartspec.AxisY1, Points: []chartspec.Point{
				{X: "2024-01-01T00:00:00Z", Coverage: 1, RawCount: 10},
			}},
		},
		Meta: chartspec.Meta{Timezone: "UTC"},
	}
}

func TestResultValid(t *testing.T) {
	if err := Result(validResult()); err != nil {
		t.Fatalf("expected valid result, got %v", err)
	}
}

func TestResultRejectsCoverageOutOfRange(t *testing.T) {
	result := validResult()
	result.Series[0].Points[0].Coverage = 1.5
	if err := Result(result); err == nil {
		t.Fatalf("expected error for coverage out of [0,1]")
	}
}

func TestResultRejectsEmptySeries(t *testing.T) {
	result := validResult()
	result.Series = nil
	if err := Result(result); err == nil {
		t.Fatalf("expected error for empty series")
	}
}

func TestResultRejectsMissingTimezone(t *testing.T) {
	result := validResult()
	result.Meta.Timezone = ""
	if err := Result(result); err == nil {
		t.Fatalf("expected error for missing timezone")
	}
}

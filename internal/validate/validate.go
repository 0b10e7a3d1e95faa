// Package validate checks ChartSpec and ChartResult values against the
// analytics contract, mirroring contracts.py's validate_chart_spec /
// validate_chart_result.
package validate

import (
	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
)

// Spec validates a ChartSpec's structure and closed-enum fields. It never
// inspects tenancy (that is the TableRouter's job) and never touches the
// network.
func Spec(spec chartspec.ChartSpec) error {
	if spec.Dataset != "events" {
		return chartspec.NewValidationError("dataset must be 'events', got %q", spec.Dataset)
	}
	if !spec.ChartType.Valid() {
		return chartspec.NewValidationError("invalid chart type %q", spec.ChartType)
	}
	if len(spec.Measures) == 0 {
		return chartspec.NewValidationError("at least one measure is required")
	}
	for _, m := range spec.Measures {
		if m.ID == "" {
			return chartspec.NewValidationError("measure id is required")
		}
		if !m.Aggregation.Valid() {
			return chartspec.NewValidationError("invalid measure aggregation %q", m.Aggregation)
		}
		for _, ev := range m.EventTypes {
			if ev != 0 && ev != 1 {
				return chartspec.NewValidationError("measure %s: eventTypes must contain only 0/1, got %d", m.ID, ev)
			}
		}
	}
	if len(spec.Dimensions) == 0 {
		return chartspec.NewValidationError("at least one dimension is required")
	}
	for _, d := range spec.Dimensions {
		if d.ID == "" {
			return chartspec.NewValidationError("dimension id is required")
		}
		if d.Column == "" {
			return chartspec.NewValidationError("dimension column is required")
		}
		if d.Bucket != nil && !d.Bucket.Valid() {
			return chartspec.NewValidationError("dimension %s: invalid bucket %q", d.ID, *d.Bucket)
		}
	}
	for _, s := range spec.Splits {
		if s.ID == "" {
			return chartspec.NewValidationError("split id is required")
		}
		if s.Column == "" {
			return chartspec.NewValidationError("split column is required")
		}
	}
	for _, group := range spec.Filters {
		if err := validateFilterGroup(group); err != nil {
			return err
		}
	}
	if spec.TimeWindow.From.IsZero() {
		return chartspec.NewValidationError("timeWindow.from is required")
	}
	if spec.TimeWindow.To.IsZero() {
		return chartspec.NewValidationError("timeWindow.to is required")
	}
	if !spec.TimeWindow.To.After(spec.TimeWindow.From) {
		return chartspec.NewValidationError("timeWindow.to must be after timeWindow.from")
	}
	if spec.TimeWindow.Bucket != "" && !spec.TimeWindow.Bucket.Valid() {
		return chartspec.NewValidationError("invalid timeWindow bucket %q", spec.TimeWindow.Bucket)
	}
	if spec.Interactions != nil {
		for _, f := range spec.Interactions.Export {
			if !f.Valid() {
				return chartspec.NewValidationError("unsupported export type %q", f)
			}
		}
	}
	return nil
}

func validateFilterGroup(group chartspec.FilterGroup) error {
	if !group.Logic.Valid() {
		return chartspec.NewValidationError("invalid filter logic %q", group.Logic)
	}
	if len(group.Conditions) == 0 {
		return chartspec.NewValidationError("filter group requires conditions")
	}
	for _, entry := range group.Conditions {
		switch {
		case entry.Group != nil && entry.Condition != nil:
			return chartspec.NewValidationError("filter entry must be exactly one of condition or group")
		case entry.Group != nil:
			if err := validateFilterGroup(*entry.Group); err != nil {
				return err
			}
		case entry.Condition != nil:
			if err := validateFilterCondition(*entry.Condition); err != nil {
				return err
			}
		default:
			return chartspec.NewValidationError("filter entry must be exactly one of condition or group")
		}
	}
	return nil
}

func validateFilterCondition(cond chartspec.Condition) error {
	if cond.Field == "" {
		return chartspec.NewValidationError("filter condition field must be non-empty string")
	}
	if !cond.Op.Valid() {
		return chartspec.NewValidationError("unsupported filter operator %q", cond.Op)
	}
	if cond.Value == nil {
		return nil
	}
	switch v := cond.Value.(type) {
	case string, int, int64, float64, bool:
		// scalar, ok
	case []interface{}:
		for _, item := range v {
			switch item.(type) {
			case string, int, int64, float64:
			default:
				return chartspec.NewValidationError("filter condition %s: list values must be scalar", cond.Field)
			}
		}
		if cond.Op == chartspec.OpBetween && len(v) != 2 {
			return chartspec.NewValidationError("filter condition %s: between requires exactly 2 values", cond.Field)
		}
	default:
		return chartspec.NewValidationError("filter condition %s: value must be scalar or list", cond.Field)
	}
	return nil
}

// Result validates a ChartResult's structure and closed-enum fields,
// mirroring contracts.py's validate_chart_result.
func Result(result chartspec.ChartResult) error {
	if !result.ChartType.Valid() {
		return chartspec.NewValidationError("invalid chart result type %q", result.ChartType)
	}
	if result.XDimension.ID == "" {
		return chartspec.NewValidationError("xDimension id is required")
	}
	if !result.XDimension.Type.Valid() {
		return chartspec.NewValidationError("invalid xDimension type %q", result.XDimension.Type)
	}
	if len(result.Series) == 0 {
		return chartspec.NewValidationError("at least one series is required")
	}
	for _, series := range result.Series {
		if series.ID == "" {
			return chartspec.NewValidationError("series id is required")
		}
		if !series.Geometry.Valid() {
			return chartspec.NewValidationError("invalid series geometry %q", series.Geometry)
		}
		if series.Axis != "" && !series.Axis.Valid() {
			return chartspec.NewValidationError("invalid axis %q", series.Axis)
		}
		if err := validatePoints(series.Points); err != nil {
			return err
		}
	}
	if result.Meta.Timezone == "" {
		return chartspec.NewValidationError("meta.timezone is required")
	}
	for _, cp := range result.Meta.Coverage {
		if cp.Value < 0 || cp.Value > 1 {
			return chartspec.NewValidationError("coverage must be in [0,1], got %v", cp.Value)
		}
	}
	return nil
}

func validatePoints(points []chartspec.Point) error {
	for _, p := range points {
		if p.X == "" {
			return chartspec.NewValidationError("series point requires x value")
		}
		if p.Coverage < 0 || p.Coverage > 1 {
			return chartspec.NewValidationError("point coverage must be in [0,1], got %v", p.Coverage)
		}
		if p.RawCount < 0 {
			return chartspec.NewValidationError("point rawCount must be non-negative, got %d", p.RawCount)
		}
	}
	return nil
}

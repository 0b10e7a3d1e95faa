// Package filter compiles ChartSpec filter trees into BigQuery WHERE
// fragments, mirroring compiler.py's _build_filters / _compile_group /
// _compile_condition.
package filter

import (
	"fmt"
	"strings"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
)

// nullableDemographicFields are wrapped in COALESCE(field, 'Unknown') before
// operator application, matching both this compiler and the `scoped` view
// projection's own COALESCE on those columns.
var nullableDemographicFields = map[string]bool{
	"sex":        true,
	"age_bucket": true,
}

const unknownDimensionValue = "Unknown"

// Compile renders groups into a `\n    AND (...)` suffix appended after the
// base `WHERE timestamp BETWEEN @start_ts AND @end_ts` clause, accumulating
// bound parameters into params. An empty group list yields an empty string.
func Compile(groups []chartspec.FilterGroup, params *ParamSet) (string, error) {
	if len(groups) == 0 {
		return "", nil
	}
	var clauses []string
	for _, group := range groups {
		clause, err := compileGroup(group, params)
		if err != nil {
			return "", err
		}
		if clause != "" {
			clauses = append(clauses, clause)
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, clause := range clauses {
		b.WriteString("\n                AND (")
		b.WriteString(clause)
		b.WriteString(")")
	}
	return b.String(), nil
}

func compileGroup(group chartspec.FilterGroup, params *ParamSet) (string, error) {
	logic := group.Logic
	if logic == "" {
		logic = chartspec.LogicAND
	}
	var compiled []string
	for _, entry := range group.Conditions {
		switch {
		case entry.Group != nil:
			nested, err := compileGroup(*entry.Group, params)
			if err != nil {
				return "", err
			}
			if nested != "" {
				compiled = append(compiled, "("+nested+")")
			}
		case entry.Condition != nil:
			clause, err := compileCondition(*entry.Condition, params)
			if err != nil {
				return "", err
			}
			if clause != "" {
				compiled = append(compiled, clause)
			}
		}
	}
	if len(compiled) == 0 {
		return "", nil
	}
	return strings.Join(compiled, " "+string(logic)+" "), nil
}

func compileCondition(cond chartspec.Condition, params *ParamSet) (string, error) {
	fieldExpr := cond.Field
	if nullableDemographicFields[cond.Field] {
		fieldExpr = fmt.Sprintf("COALESCE(%s, '%s')", cond.Field, unknownDimensionValue)
	}

	switch cond.Op {
	case chartspec.OpEquals:
		name := params.Add(cond.Field, cond.Value)
		return fmt.Sprintf("%s = @%s", fieldExpr, name), nil
	case chartspec.OpNotEquals:
		name := params.Add(cond.Field, cond.Value)
		return fmt.Sprintf("%s != @%s", fieldExpr, name), nil
	case chartspec.OpIn:
		name := params.Add(cond.Field, cond.Value)
		return fmt.Sprintf("%s IN UNNEST(@%s)", fieldExpr, name), nil
	case chartspec.OpNotIn:
		name := params.Add(cond.Field, cond.Value)
		return fmt.Sprintf("%s NOT IN UNNEST(@%s)", fieldExpr, name), nil
	case chartspec.OpContains:
		name := params.Add(cond.Field, cond.Value)
		return fmt.Sprintf("STRPOS(CAST(%s AS STRING), @%s) > 0", fieldExpr, name), nil
	case chartspec.OpStartsWith:
		name := params.Add(cond.Field, cond.Value)
		return fmt.Sprintf("STARTS_WITH(CAST(%s AS STRING), @%s)", fieldExpr, name), nil
	case chartspec.OpEndsWith:
		name := params.Add(cond.Field, cond.Value)
		return fmt.Sprintf("ENDS_WITH(CAST(%s AS STRING), @%s)", fieldExpr, name), nil
	case chartspec.OpBetween:
		values, ok := cond.Value.([]interface{})
		if !ok || len(values) != 2 {
			return "", chartspec.NewValidationError("between requires exactly 2 values for field %q", cond.Field)
		}
		lowerName, upperName := params.AddPair(cond.Field, values[0], values[1])
		return fmt.Sprintf("%s BETWEEN @%s AND @%s", fieldExpr, lowerName, upperName), nil
	case chartspec.OpGTE:
		name := params.Add(cond.Field, cond.Value)
		return fmt.Sprintf("%s >= @%s", fieldExpr, name), nil
	case chartspec.OpLTE:
		name := params.Add(cond.Field, cond.Value)
		return fmt.Sprintf("%s <= @%s", fieldExpr, name), nil
	case chartspec.OpGT:
		name := params.Add(cond.Field, cond.Value)
		return fmt.Sprintf("%s > @%s", fieldExpr, name), nil
	case chartspec.OpLT:
		name := params.Add(cond.Field, cond.Value)
		return fmt.Sprintf("%s < @%s", fieldExpr, name), nil
	}
	return "", chartspec.NewValidationError("unsupported filter operator %q", cond.Op)
}

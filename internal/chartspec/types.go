// Package chartspec defines the ChartSpec/ChartResult data model shared by
// every stage of the analytics pipeline: validation, compilation, execution,
// and normalisation.
package chartspec

import (
	"encoding/json"
	"time"
)

// ChartType is the closed set of chart shapes the engine can produce.
type ChartType string

const (
	ChartComposedTime ChartType = "composed_time"
	ChartCategorical  ChartType = "categorical"
	ChartHeatmap      ChartType = "heatmap"
	ChartRetention    ChartType = "retention"
	ChartSingleValue  ChartType = "single_value"
)

// Valid reports whether c is one of the closed ChartType values.
func (c ChartType) Valid() bool {
	switch c {
	case ChartComposedTime, ChartCategorical, ChartHeatmap, ChartRetention, ChartSingleValue:
		return true
	}
	return false
}

// IsRetentionShaped reports whether this chart type uses the cohort/lag
// matrix code path instead of the flat time-series path.
func (c ChartType) IsRetentionShaped() bool {
	return c == ChartHeatmap || c == ChartRetention
}

// Aggregation is the closed set of measure aggregations the compiler knows
// how to render to SQL.
type Aggregation string

const (
	AggOccupancyRecursion Aggregation = "occupancy_recursion"
	AggCount              Aggregation = "count"
	AggActivityRate       Aggregation = "activity_rate"
	AggDwellMean          Aggregation = "dwell_mean"
	AggDwellP90           Aggregation = "dwell_p90"
	AggSessions           Aggregation = "sessions"
	AggRetentionRate      Aggregation = "retention_rate"
	AggDemographicCount   Aggregation = "demographic_count"
)

// Valid reports whether a is one of the closed Aggregation values.
func (a Aggregation) Valid() bool {
	switch a {
	case AggOccupancyRecursion, AggCount, AggActivityRate, AggDwellMean,
		AggDwellP90, AggSessions, AggRetentionRate, AggDemographicCount:
		return true
	}
	return false
}

// RequiresRetentionBucket reports whether this aggregation is only valid
// against a WEEK/MONTH bucketed retention calendar.
func (a Aggregation) RequiresRetentionBucket() bool {
	return a == AggRetentionRate
}

// BucketSize is the closed set of calendar bucket widths.
type BucketSize string

const (
	BucketRaw    BucketSize = "RAW"
	Bucket5Min   BucketSize = "5_MIN"
	Bucket15Min  BucketSize = "15_MIN"
	Bucket30Min  BucketSize = "30_MIN"
	BucketHour   BucketSize = "HOUR"
	BucketDay    BucketSize = "DAY"
	BucketWeek   BucketSize = "WEEK"
	BucketMonth  BucketSize = "MONTH"
)

// Valid reports whether b is one of the closed BucketSize values.
func (b BucketSize) Valid() bool {
	switch b {
	case BucketRaw, Bucket5Min, Bucket15Min, Bucket30Min, BucketHour, BucketDay, BucketWeek, BucketMonth:
		return true
	}
	return false
}

// Seconds returns the fixed-width duration of the bucket, or 0 for variable
// width buckets (DAY/WEEK/MONTH are calendar-aligned, not fixed-width in the
// Gregorian sense, but DAY/WEEK do have a fixed second count; MONTH does not).
func (b BucketSize) Seconds() (int64, bool) {
	switch b {
	case Bucket5Min:
		return 5 * 60, true
	case Bucket15Min:
		return 15 * 60, true
	case Bucket30Min:
		return 30 * 60, true
	case BucketHour:
		return 60 * 60, true
	case BucketDay:
		return 24 * 60 * 60, true
	case BucketWeek:
		return 7 * 24 * 60 * 60, true
	}
	return 0, false
}

// FilterLogic is the boolean combinator for a FilterGroup.
type FilterLogic string

const (
	LogicAND FilterLogic = "AND"
	LogicOR  FilterLogic = "OR"
)

func (l FilterLogic) Valid() bool {
	return l == LogicAND || l == LogicOR
}

// FilterOp is the closed set of leaf condition operators.
type FilterOp string

const (
	OpEquals     FilterOp = "equals"
	OpNotEquals  FilterOp = "not_equals"
	OpIn         FilterOp = "in"
	OpNotIn      FilterOp = "not_in"
	OpBetween    FilterOp = "between"
	OpGTE        FilterOp = "gte"
	OpLTE        FilterOp = "lte"
	OpGT         FilterOp = "gt"
	OpLT         FilterOp = "lt"
	OpContains   FilterOp = "contains"
	OpStartsWith FilterOp = "starts_with"
	OpEndsWith   FilterOp = "ends_with"
)

func (o FilterOp) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpIn, OpNotIn, OpBetween, OpGTE, OpLTE, OpGT, OpLT, OpContains, OpStartsWith, OpEndsWith:
		return true
	}
	return false
}

// Geometry is the closed set of series render shapes.
type Geometry string

const (
	GeomLine    Geometry = "line"
	GeomArea    Geometry = "area"
	GeomColumn  Geometry = "column"
	GeomBar     Geometry = "bar"
	GeomHeatmap Geometry = "heatmap"
	GeomScatter Geometry = "scatter"
	GeomMetric  Geometry = "metric"
)

func (g Geometry) Valid() bool {
	switch g {
	case GeomLine, GeomArea, GeomColumn, GeomBar, GeomHeatmap, GeomScatter, GeomMetric:
		return true
	}
	return false
}

// Axis is the closed set of Y axes a series may be plotted against.
type Axis string

const (
	AxisY1 Axis = "Y1"
	AxisY2 Axis = "Y2"
	AxisY3 Axis = "Y3"
)

func (a Axis) Valid() bool {
	return a == AxisY1 || a == AxisY2 || a == AxisY3
}

// XDimensionType is the closed set of x-axis shapes.
type XDimensionType string

const (
	XTypeTime     XDimensionType = "time"
	XTypeCategory XDimensionType = "category"
	XTypeMatrix   XDimensionType = "matrix"
	XTypeIndex    XDimensionType = "index"
)

func (t XDimensionType) Valid() bool {
	switch t {
	case XTypeTime, XTypeCategory, XTypeMatrix, XTypeIndex:
		return true
	}
	return false
}

// ExportFormat is the closed set of interaction export targets a spec may
// request. Rendering those exports is a UI concern and out of scope; only
// the enumeration is validated here.
type ExportFormat string

const (
	ExportPNG  ExportFormat = "png"
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

func (e ExportFormat) Valid() bool {
	switch e {
	case ExportPNG, ExportCSV, ExportXLSX:
		return true
	}
	return false
}

// Measure describes a single analytic aggregation requested by a ChartSpec.
type Measure struct {
	ID          string      `json:"id"`
	Aggregation Aggregation `json:"aggregation"`
	EventTypes  []int       `json:"eventTypes,omitempty"`
}

// Dimension describes a grouping axis, optionally bucketed over time.
type Dimension struct {
	ID     string      `json:"id"`
	Column string      `json:"column"`
	Bucket *BucketSize `json:"bucket,omitempty"`
}

// Split is structurally identical to Dimension; kept distinct because the
// spec treats splits as a separate ordered sequence with its own semantics
// upstream of this core (series faceting), even though this core does not
// yet render split-faceted output.
type Split struct {
	ID     string      `json:"id"`
	Column string      `json:"column"`
	Bucket *BucketSize `json:"bucket,omitempty"`
}

// TimeWindow bounds the analytic query and carries the requested bucket.
type TimeWindow struct {
	From     time.Time  `json:"from"`
	To       time.Time  `json:"to"`
	Bucket   BucketSize `json:"bucket"`
	Timezone string     `json:"timezone"`
}

// Condition is a single leaf filter predicate.
type Condition struct {
	Field string      `json:"field"`
	Op    FilterOp    `json:"op"`
	Value interface{} `json:"value"`
}

// FilterGroup is a nested AND/OR tree of conditions or nested groups.
// Conditions is a heterogeneous ordered sequence: each element is either a
// *Condition or a *FilterGroup, mirroring the source's dict-shaped nesting.
type FilterGroup struct {
	Logic      FilterLogic   `json:"logic"`
	Conditions []FilterEntry `json:"conditions"`
}

// FilterEntry is exactly one of Condition or Group (never both, never
// neither). UnmarshalJSON always sets exactly one; validate.Spec rejects
// entries built in code that break the invariant.
type FilterEntry struct {
	Condition *Condition
	Group     *FilterGroup
}

// UnmarshalJSON distinguishes a nested group from a leaf condition by
// probing for the group's "logic"/"conditions" keys, mirroring how the
// source's dict-shaped filter tree tells the two shapes apart.
func (e *FilterEntry) UnmarshalJSON(data []byte) error {
	var probe struct {
		Logic      *FilterLogic      `json:"logic"`
		Conditions []json.RawMessage `json:"conditions"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Logic != nil || probe.Conditions != nil {
		var group FilterGroup
		if err := json.Unmarshal(data, &group); err != nil {
			return err
		}
		e.Group = &group
		e.Condition = nil
		return nil
	}
	var cond Condition
	if err := json.Unmarshal(data, &cond); err != nil {
		return err
	}
	e.Condition = &cond
	e.Group = nil
	return nil
}

// MarshalJSON emits whichever of Group or Condition is set.
func (e FilterEntry) MarshalJSON() ([]byte, error) {
	if e.Group != nil {
		return json.Marshal(e.Group)
	}
	return json.Marshal(e.Condition)
}

// Interactions carries optional export-format hints; rendering is out of
// scope, only the enum is validated.
type Interactions struct {
	Export []ExportFormat `json:"export,omitempty"`
}

// ChartSpec is the immutable, caller-supplied description of an analytic
// query. Once constructed it is never mutated; the Engine owns all derived
// values for the lifetime of a request.
type ChartSpec struct {
	ID           string        `json:"id"`
	Dataset      string        `json:"dataset"`
	ChartType    ChartType     `json:"chartType"`
	Measures     []Measure     `json:"measures"`
	Dimensions   []Dimension   `json:"dimensions"`
	Splits       []Split       `json:"splits,omitempty"`
	TimeWindow   TimeWindow    `json:"timeWindow"`
	Filters      []FilterGroup `json:"filters,omitempty"`
	Interactions *Interactions `json:"interactions,omitempty"`
}

// CompilerContext carries the resolved tenancy the compiler needs but must
// never derive itself.
type CompilerContext struct {
	TableName string
	Timezone  string
}

// CompiledQuery is the SQL + bound parameters produced by the compiler.
type CompiledQuery struct {
	SQL      string
	Params   map[string]interface{}
	Measures map[string]Aggregation // measure id -> aggregation, declaration order lost here; order is recovered from the spec by the Normaliser
	Bucket   BucketSize
}

// Point is a single rendered series sample.
type Point struct {
	X        string   `json:"x"`
	Y        *float64 `json:"y,omitempty"`
	Value    *float64 `json:"value,omitempty"`
	Coverage float64  `json:"coverage"`
	RawCount int64    `json:"rawCount"`
	Group    string   `json:"group,omitempty"`
}

// Series is one measure's rendered output.
type Series struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Geometry Geometry `json:"geometry"`
	Axis     Axis    `json:"axis,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	Points   []Point `json:"data"`
}

// XDimension describes the shape of the chart's primary axis.
type XDimension struct {
	ID       string         `json:"id"`
	Type     XDimensionType `json:"type"`
	Bucket   *BucketSize    `json:"bucket,omitempty"`
	Timezone string         `json:"timezone,omitempty"`
}

// CoveragePoint is one bucket's mean coverage across all measures.
type CoveragePoint struct {
	X     string  `json:"x"`
	Value float64 `json:"value"`
}

// Surge flags a point whose value crossed the surge-detection threshold.
type Surge struct {
	Measure string  `json:"measure"`
	X       string  `json:"x"`
	Value   float64 `json:"value"`
}

// Summary carries a small free-form rollup of the result.
type Summary struct {
	Points   int      `json:"points"`
	Measures []string `json:"measures"`
}

// Meta carries cross-cutting result metadata.
type Meta struct {
	Timezone string          `json:"timezone"`
	Coverage []CoveragePoint `json:"coverage"`
	Surges   []Surge         `json:"surges"`
	Summary  Summary         `json:"summary"`
}

// ChartResult is the canonical output payload.
type ChartResult struct {
	ChartType  ChartType  `json:"chartType"`
	XDimension XDimension `json:"xDimension"`
	Series     []Series   `json:"series"`
	Meta       Meta       `json:"meta"`
}

package chartspec

import "fmt"

// ValidationError is raised by the Validator for a malformed ChartSpec or
// ChartResult. Never cached; surfaced to the caller as-is (spec.md §7).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Reason)
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// UnsupportedChartError is raised by the Compiler for a chart type outside
// the implemented set.
type UnsupportedChartError struct {
	ChartType ChartType
}

func (e *UnsupportedChartError) Error() string {
	return fmt.Sprintf("unsupported chart type: %s", e.ChartType)
}

// UnsupportedMeasureError is raised by the Compiler for an aggregation
// outside the implemented set, or a measure used against an incompatible
// bucket.
type UnsupportedMeasureError struct {
	Aggregation Aggregation
	Reason      string
}

func (e *UnsupportedMeasureError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported measure %s: %s", e.Aggregation, e.Reason)
	}
	return fmt.Sprintf("unsupported measure: %s", e.Aggregation)
}

// UnknownOrganisationError is raised by the TableRouter when an org has no
// configured table mapping.
type UnknownOrganisationError struct {
	Org string
}

func (e *UnknownOrganisationError) Error() string {
	return fmt.Sprintf("unknown organisation: %s", e.Org)
}

// MalformedTableNameError is raised by the TableRouter when a resolved table
// name is not a well-formed `project.dataset.table` triple.
type MalformedTableNameError struct {
	Org   string
	Table string
}

func (e *MalformedTableNameError) Error() string {
	return fmt.Sprintf("malformed table name for organisation %s: %q", e.Org, e.Table)
}

// ExecutorError wraps a warehouse execution failure. JobID, when available,
// correlates the failure with the upstream warehouse job for log
// correlation (spec.md §7). Never cached.
type ExecutorError struct {
	JobID string
	Err   error
}

func (e *ExecutorError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("executor error (job %s): %v", e.JobID, e.Err)
	}
	return fmt.Sprintf("executor error: %v", e.Err)
}

func (e *ExecutorError) Unwrap() error {
	return e.Err
}

// NormalisationError indicates an internal invariant violation in the
// Normaliser (e.g. a series missing its bucket column). This is a bug, not a
// caller input problem, and should fail loudly. Never cached.
type NormalisationError struct {
	Reason string
}

func (e *NormalisationError) Error() string {
	return fmt.Sprintf("normalisation invariant violated: %s", e.Reason)
}

// NewNormalisationError builds a NormalisationError with a formatted reason.
func NewNormalisationError(format string, args ...interface{}) *NormalisationError {
	return &NormalisationError{Reason: fmt.Sprintf(format, args...)}
}

// Package memframe provides an in-memory chartspec.Frame and a Warehouse
// backed by canned rows, used in tests and as the local/dev fallback wired
// by cmd/chartengine unless WAREHOUSE_BACKEND is "bigquery" (mirroring
// main.go's fallback from a ClickHouse analytics sink to a log sink when
// CLICKHOUSE_DSN is unset).
package memframe

import (
	"context"
	"time"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
)

// Frame is a row-oriented, in-memory chartspec.Frame.
type Frame struct {
	cols []string
	rows []map[string]interface{}
}

// New builds a Frame from column names and row maps. Row maps need not
// populate every column; missing or nil values read back as (_, false).
func New(cols []string, rows []map[string]interface{}) *Frame {
	return &Frame{cols: cols, rows: rows}
}

func (f *Frame) Columns() []string { return f.cols }
func (f *Frame) Rows() int         { return len(f.rows) }

func (f *Frame) value(row int, col string) (interface{}, bool) {
	if row < 0 || row >= len(f.rows) {
		return nil, false
	}
	v, ok := f.rows[row][col]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (f *Frame) String(row int, col string) (string, bool) {
	v, ok := f.value(row, col)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (f *Frame) Float64(row int, col string) (float64, bool) {
	v, ok := f.value(row, col)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func (f *Frame) Int64(row int, col string) (int64, bool) {
	v, ok := f.value(row, col)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

func (f *Frame) Time(row int, col string) (time.Time, bool) {
	v, ok := f.value(row, col)
	if !ok {
		return time.Time{}, false
	}
	t, ok := v.(time.Time)
	return t, ok
}

func (f *Frame) Bool(row int, col string) (bool, bool) {
	v, ok := f.value(row, col)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Warehouse serves a single canned Frame for every query, ignoring sql and
// params. Useful for local development and integration tests that exercise
// the engine's wiring without a live BigQuery project.
type Warehouse struct {
	frame chartspec.Frame
}

// NewWarehouse returns a Warehouse that always answers with frame.
func NewWarehouse(frame chartspec.Frame) *Warehouse {
	return &Warehouse{frame: frame}
}

func (w *Warehouse) Execute(ctx context.Context, sql string, params map[string]interface{}) (chartspec.Frame, error) {
	return w.frame, nil
}

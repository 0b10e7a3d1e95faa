package chartspec

import "time"

// Frame is the narrow row/column contract the Normaliser consumes. It
// deliberately hides the warehouse driver's native result type so the
// normaliser never depends on a specific client library (see
// internal/warehouse/bigquery and internal/warehouse/memframe).
type Frame interface {
	// Columns returns the column names present in the frame, in the order
	// the warehouse returned them.
	Columns() []string
	// Rows returns the number of rows in the frame.
	Rows() int
	// String returns the value at (row, col) as a string. ok is false if the
	// column does not exist or the value is NULL.
	String(row int, col string) (value string, ok bool)
	// Float64 returns the value at (row, col) as a float64.
	Float64(row int, col string) (value float64, ok bool)
	// Int64 returns the value at (row, col) as an int64.
	Int64(row int, col string) (value int64, ok bool)
	// Time returns the value at (row, col) as a time.Time.
	Time(row int, col string) (value time.Time, ok bool)
	// Bool returns the value at (row, col) as a bool.
	Bool(row int, col string) (value bool, ok bool)
}

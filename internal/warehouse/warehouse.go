// Package warehouse defines the capability the Engine executes compiled SQL
// against, decoupled from any concrete driver (see internal/warehouse/bigquery
// and internal/warehouse/memframe).
package warehouse

import (
	"context"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
)

// Warehouse executes a parameterised SQL statement and returns the result as
// a chartspec.Frame. Implementations own their own connection pooling and
// job correlation; callers treat Execute as a single blocking round trip.
type Warehouse interface {
	Execute(ctx context.Context, sql string, params map[string]interface{}) (chartspec.Frame, error)
}

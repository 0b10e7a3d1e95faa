// Package bigquery is the production Warehouse, executing compiled SQL
// against a real BigQuery project and materialising the result into a
// memframe.Frame.
package bigquery

import (
	"context"

	gbq "cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
	"github.com/sitescope-io/cctv-analytics/internal/warehouse/memframe"
)

// Client executes analytics SQL against a single BigQuery project.
type Client struct {
	bq *gbq.Client
}

// New dials BigQuery for projectID. The returned Client is safe for
// concurrent use across requests.
func New(ctx context.Context, projectID string) (*Client, error) {
	bq, err := gbq.NewClient(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "bigquery: client init")
	}
	return &Client{bq: bq}, nil
}

// Close releases the underlying BigQuery client.
func (c *Client) Close() error {
	return c.bq.Close()
}

// Execute runs sql with params bound as named query parameters and returns
// the full result set as a chartspec.Frame. Every failure is wrapped in a
// chartspec.ExecutorError carrying the job's correlation id for log
// correlation.
func (c *Client) Execute(ctx context.Context, sql string, params map[string]interface{}) (chartspec.Frame, error) {
	jobID := uuid.NewString()

	q := c.bq.Query(sql)
	q.Parameters = toQueryParameters(params)

	job, err := q.Run(ctx)
	if err != nil {
		return nil, &chartspec.ExecutorError{JobID: jobID, Err: errors.Wrap(err, "bigquery: run query")}
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, &chartspec.ExecutorError{JobID: jobID, Err: errors.Wrap(err, "bigquery: read results")}
	}

	return collect(it, jobID)
}

func toQueryParameters(params map[string]interface{}) []gbq.QueryParameter {
	out := make([]gbq.QueryParameter, 0, len(params))
	for name, value := range params {
		if value == nil {
			continue
		}
		out = append(out, gbq.QueryParameter{Name: name, Value: value})
	}
	return out
}

func collect(it *gbq.RowIterator, jobID string) (chartspec.Frame, error) {
	cols := make([]string, 0, len(it.Schema))
	for _, field := range it.Schema {
		cols = append(cols, field.Name)
	}

	var rows []map[string]interface{}
	for {
		var values []gbq.Value
		err := it.Next(&values)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &chartspec.ExecutorError{JobID: jobID, Err: errors.Wrap(err, "bigquery: iterate rows")}
		}

		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			if i < len(values) && values[i] != nil {
				row[col] = values[i]
			}
		}
		rows = append(rows, row)
	}

	return memframe.New(cols, rows), nil
}

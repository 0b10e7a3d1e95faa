// Package tenant resolves an organisation identifier to a fully-qualified
// warehouse table name, mirroring org_config.py's build_org_table_map /
// resolve_table_for_org / _qualify_table_name.
package tenant

import (
	"strings"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
)

// Router is an immutable org -> fully-qualified table mapping built once at
// construction. It never mutates after New returns.
type Router struct {
	tables map[string]string
}

// New builds a Router from an org -> table map. project and dataset qualify
// any table id that is not already in `project.dataset.table` form;
// internal/config hands over bare table ids, so this is where qualification
// happens. A bare id is left as-is when project or dataset is empty.
func New(tables map[string]string, project, dataset string) *Router {
	resolved := make(map[string]string, len(tables))
	for org, tableID := range tables {
		resolved[org] = qualify(tableID, project, dataset)
	}
	return &Router{tables: resolved}
}

func qualify(tableID, project, dataset string) string {
	if strings.Count(tableID, ".") == 2 {
		return tableID
	}
	if project == "" || dataset == "" {
		return tableID
	}
	return project + "." + dataset + "." + tableID
}

// Resolve returns the fully-qualified table name for org, or a typed error
// if org is unknown or its configured table name is malformed.
func (r *Router) Resolve(org string) (string, error) {
	table, ok := r.tables[org]
	if !ok {
		return "", &chartspec.UnknownOrganisationError{Org: org}
	}
	if strings.Count(table, ".") != 2 {
		return "", &chartspec.MalformedTableNameError{Org: org, Table: table}
	}
	return table, nil
}

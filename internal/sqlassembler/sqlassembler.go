// Package sqlassembler deduplicates measure CTEs and assembles the final
// `WITH ... SELECT * FROM final ORDER BY ...` statement, ported from
// compiler.py's _assemble_sql.
package sqlassembler

import "strings"

// NamedCTE is a single common table expression keyed by the name it
// defines, used to deduplicate CTEs that share a name. Measure CTE names
// are prefixed with the measure id, so two measures only share a CTE when
// they are declared with the same id.
type NamedCTE struct {
	Name string
	SQL  string
}

// DefaultOrderBy is used for fixed-bucket time-series queries.
const DefaultOrderBy = "bucket_start, measure_id"

// RetentionOrderBy is used for retention/heatmap queries.
const RetentionOrderBy = "bucket_start, lag_weeks, measure_id"

// Assemble combines baseCTEs (scoped + calendar) with measureCTEs
// (deduplicated by name, first-insertion order preserved) and the measures'
// SELECT statements into one `UNION ALL`-ed `final` CTE, then wraps the
// whole thing in a top-level `WITH ... SELECT * FROM final ORDER BY`.
func Assemble(baseCTEs []string, measureCTEs []NamedCTE, selects []string, orderBy string) string {
	entries := make([]string, 0, len(baseCTEs)+len(measureCTEs)+1)
	entries = append(entries, baseCTEs...)

	seen := make(map[string]struct{}, len(measureCTEs))
	for _, cte := range measureCTEs {
		if _, ok := seen[cte.Name]; ok {
			continue
		}
		seen[cte.Name] = struct{}{}
		entries = append(entries, cte.SQL)
	}

	unionSelects := strings.Join(selects, "\nUNION ALL\n")
	finalCTE := "final AS (\n" + unionSelects + "\n)"
	entries = append(entries, finalCTE)

	cteBlock := strings.Join(entries, ",\n")
	sql := "WITH\n" + cteBlock + "\nSELECT *\nFROM final\nORDER BY " + orderBy + "\n"

	lines := strings.Split(sql, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, "\n")
}

// NamedCTEName extracts the CTE name from a rendered `name AS (\n...` block,
// mirroring compiler.py's `fragment.split(" AS", 1)[0].strip()` used when
// populating its OrderedDict cte_registry.
func NamedCTEName(fragment string) string {
	idx := strings.Index(fragment, " AS")
	if idx < 0 {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(fragment[:idx])
}

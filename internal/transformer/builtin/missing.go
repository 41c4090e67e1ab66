// Package builtin contains the cleaning stages of the crash pipeline. Each
// stage is a transformer.Transformer built from the immutable column roles.
package builtin

import (
	"log"

	"crashwrangle/internal/config"
	"crashwrangle/internal/table"
)

// Missing remediates missing values:
//   - rows with a null in any present geolocation column are dropped;
//   - null injury cells become integer 0;
//   - a null primary contributing factor becomes Roles.Unknown.
//
// Absent columns are skipped.
type Missing struct {
	Roles config.Roles
}

func (Missing) Name() string { return "missing" }

// Apply returns a new table; in is left untouched.
func (m Missing) Apply(in *table.Table) *table.Table {
	geo := indexes(in, m.Roles.Geolocation)
	out := in.Filter(func(r []table.Value) bool {
		for _, i := range geo {
			if r[i].IsNull() {
				return false
			}
		}
		return true
	})
	if dropped := in.Len() - out.Len(); dropped > 0 {
		log.Printf("missing: dropped_geo=%d rows_left=%d", dropped, out.Len())
	}

	for _, i := range indexes(out, m.Roles.Injuries) {
		fillNull(out, i, table.Int(0))
	}
	if f := m.Roles.PrimaryFactor(); f != "" {
		if i, ok := out.Index(f); ok {
			fillNull(out, i, table.String(m.Roles.Unknown))
		}
	}
	return out
}

func fillNull(t *table.Table, col int, v table.Value) {
	for _, r := range t.Rows {
		if r[col].IsNull() {
			r[col] = v
		}
	}
}

// indexes resolves the present subset of names to column positions.
func indexes(t *table.Table, names []string) []int {
	present := t.Present(names)
	out := make([]int, len(present))
	for k, n := range present {
		out[k], _ = t.Index(n)
	}
	return out
}

// Package aggregate derives the year column and computes the grouped views of
// the cleaned crash table: per-borough and per-year counts, the year x
// borough pivot of distinct identifiers, and the injury correlation matrix.
//
// Every artifact is optional: when a prerequisite column is absent the
// corresponding Result field stays nil.
package aggregate

import (
	"log"
	"sort"

	"crashwrangle/internal/config"
	"crashwrangle/internal/table"
)

// Count is one row of a group-count report. Key is null for the null group.
type Count struct {
	Key table.Value
	N   int
}

// Counts is an ordered group-count report.
type Counts struct {
	// Label names the grouped column (the index header of the CSV file).
	Label string
	Rows  []Count
}

// Focus is the row count of the focus borough subset.
type Focus struct {
	Borough string
	N       int
}

// Cell is one pivot cell; OK is false when no row has that (year, borough).
type Cell struct {
	N  int
	OK bool
}

// Pivot is the year x borough matrix of distinct identifier counts.
type Pivot struct {
	Row, Col string // index and column labels, e.g. "YEAR" and "BOROUGH"
	Years    []int64
	Boroughs []string
	Cells    [][]Cell // [year][borough]
}

// Matrix is a square correlation matrix; undefined entries are NaN.
type Matrix struct {
	Columns []string
	Values  [][]float64
}

// Result holds every artifact Run could compute.
type Result struct {
	// Table is the input with the derived year column appended.
	Table *table.Table

	Focus       *Focus
	ByBorough   *Counts
	ByYear      *Counts
	Pivot       *Pivot
	Correlation *Matrix
}

// Run computes all artifacts over t. t is not modified.
func Run(t *table.Table, roles config.Roles) Result {
	out := DeriveYear(t, roles)
	res := Result{Table: out}

	if out.Has(roles.Borough) {
		f := FocusCount(out, roles.Borough, roles.Focus)
		res.Focus = &f
		log.Printf("aggregate: focus=%q rows=%d", f.Borough, f.N)

		c := GroupCount(out, roles.Borough)
		SortByCount(c.Rows)
		res.ByBorough = &c
	}
	if out.Has(roles.Year) {
		c := GroupCount(out, roles.Year)
		res.ByYear = &c
	}
	if out.Has(roles.Year) && out.Has(roles.Borough) && out.Has(roles.Identifier) {
		p := DistinctPivot(out, roles.Year, roles.Borough, roles.Identifier)
		res.Pivot = &p
	}
	if cols := out.Present(roles.Injuries); len(cols) > 0 {
		m := Correlation(out, cols)
		res.Correlation = &m
	}
	return res
}

// DeriveYear returns a clone of t with roles.Year holding the calendar year of
// roles.Date, or null where the date is null. Without a date column t is
// returned as is.
func DeriveYear(t *table.Table, roles config.Roles) *table.Table {
	di, ok := t.Index(roles.Date)
	if !ok || roles.Year == "" {
		return t
	}
	out := t.Clone()
	out.AddColumn(table.Column{Name: roles.Year, Type: table.TypeNullableInt}, func(r []table.Value) table.Value {
		if r[di].Kind != table.KindDate {
			return table.Null()
		}
		return table.Int(int64(r[di].Time.Year()))
	})
	return out
}

// FocusCount counts rows whose borough equals name exactly.
func FocusCount(t *table.Table, col, name string) Focus {
	f := Focus{Borough: name}
	i, ok := t.Index(col)
	if !ok {
		return f
	}
	for _, r := range t.Rows {
		if r[i].Kind == table.KindString && r[i].Str == name {
			f.N++
		}
	}
	return f
}

// GroupCount counts rows per distinct non-null value of col, ordered by key
// ascending (numbers numerically, strings lexically).
func GroupCount(t *table.Table, col string) Counts {
	c := Counts{Label: col}
	i, ok := t.Index(col)
	if !ok {
		return c
	}
	pos := map[string]int{}
	for _, r := range t.Rows {
		v := r[i]
		if v.IsNull() {
			continue
		}
		k := v.Text()
		if p, seen := pos[k]; seen {
			c.Rows[p].N++
			continue
		}
		pos[k] = len(c.Rows)
		c.Rows = append(c.Rows, Count{Key: v, N: 1})
	}
	sort.SliceStable(c.Rows, func(a, b int) bool { return keyLess(c.Rows[a].Key, c.Rows[b].Key) })
	return c
}

// SortByCount orders rows by descending count; ties keep ascending key order.
func SortByCount(rows []Count) {
	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].N != rows[b].N {
			return rows[a].N > rows[b].N
		}
		return keyLess(rows[a].Key, rows[b].Key)
	})
}

func keyLess(a, b table.Value) bool {
	an, aok := a.Number()
	bn, bok := b.Number()
	if aok && bok {
		return an < bn
	}
	if a.Kind == table.KindDate && b.Kind == table.KindDate {
		return a.Time.Before(b.Time)
	}
	return a.Text() < b.Text()
}

// DistinctPivot builds the rowCol x colCol matrix of distinct non-null id
// values. Rows with a null year or borough are excluded.
func DistinctPivot(t *table.Table, rowCol, colCol, idCol string) Pivot {
	p := Pivot{Row: rowCol, Col: colCol}
	ri, _ := t.Index(rowCol)
	ci, _ := t.Index(colCol)
	ii, _ := t.Index(idCol)

	type key struct {
		year    int64
		borough string
	}
	cells := map[key]map[string]struct{}{}
	years := map[int64]struct{}{}
	boroughs := map[string]struct{}{}
	for _, r := range t.Rows {
		y, b := r[ri], r[ci]
		if y.Kind != table.KindInt || b.IsNull() {
			continue
		}
		k := key{y.Int, b.Text()}
		ids, ok := cells[k]
		if !ok {
			ids = map[string]struct{}{}
			cells[k] = ids
		}
		if id := r[ii]; !id.IsNull() {
			ids[id.Text()] = struct{}{}
		}
		years[k.year] = struct{}{}
		boroughs[k.borough] = struct{}{}
	}

	for y := range years {
		p.Years = append(p.Years, y)
	}
	sort.Slice(p.Years, func(a, b int) bool { return p.Years[a] < p.Years[b] })
	for b := range boroughs {
		p.Boroughs = append(p.Boroughs, b)
	}
	sort.Strings(p.Boroughs)

	p.Cells = make([][]Cell, len(p.Years))
	for yi, y := range p.Years {
		p.Cells[yi] = make([]Cell, len(p.Boroughs))
		for bi, b := range p.Boroughs {
			if ids, ok := cells[key{y, b}]; ok {
				p.Cells[yi][bi] = Cell{N: len(ids), OK: true}
			}
		}
	}
	return p
}

// Package table defines the in-memory crash-record table that flows through
// every pipeline stage.
//
// A Table is an ordered list of columns plus rows of tagged cells. Each
// column carries its runtime representation (Type), so stages never have to
// guess whether "3" is a string, an integer, or a category level.
//
// Stages treat a Table as owned by whoever currently holds it; the
// transformers return a Clone rather than mutating the rows they were
// given.
package table

import (
	"fmt"
	"sort"
)

// Type is the runtime representation of a column.
type Type uint8

const (
	// TypeString is the raw representation produced by the loader.
	TypeString Type = iota
	// TypeInt holds integers with no nulls.
	TypeInt
	// TypeNullableInt holds integers or explicit nulls (zero != unknown).
	TypeNullableInt
	// TypeFloat holds float64 values or nulls.
	TypeFloat
	// TypeDate holds calendar dates or nulls.
	TypeDate
	// TypeTime holds times of day or nulls.
	TypeTime
	// TypeCategory holds a bounded set of string levels or nulls.
	TypeCategory
)

var typeNames = [...]string{
	TypeString:      "string",
	TypeInt:         "int64",
	TypeNullableInt: "Int64",
	TypeFloat:       "float64",
	TypeDate:        "date",
	TypeTime:        "time",
	TypeCategory:    "category",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// Textual reports whether cells of this type are strings.
func (t Type) Textual() bool { return t == TypeString || t == TypeCategory }

// Column describes one column of a Table.
type Column struct {
	Name string
	Type Type
	// Levels is the sorted category set for TypeCategory columns.
	Levels []string
}

// Table is an ordered sequence of rows sharing one column list.
type Table struct {
	Columns []Column
	Rows    [][]Value

	index map[string]int
}

// New returns an empty table with the given column names, all TypeString.
func New(names []string) *Table {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Type: TypeString}
	}
	return &Table{Columns: cols, index: buildIndex(cols)}
}

func buildIndex(cols []Column) map[string]int {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c.Name] = i
	}
	return idx
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the named column.
func (t *Table) Index(name string) (int, bool) {
	if t.index == nil {
		t.index = buildIndex(t.Columns)
	}
	i, ok := t.index[name]
	return i, ok
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.Index(name)
	return ok
}

// Present returns the subset of names that exist in the table, preserving the
// order of names. Every stage calls this before touching a role's columns so
// that absent columns are skipped explicitly.
func (t *Table) Present(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if t.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

// Column returns the column descriptor for name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.Index(name)
	if !ok {
		return Column{}, false
	}
	return t.Columns[i], true
}

// SetType updates the declared type of the named column.
func (t *Table) SetType(name string, typ Type) {
	if i, ok := t.Index(name); ok {
		t.Columns[i].Type = typ
		if typ != TypeCategory {
			t.Columns[i].Levels = nil
		}
	}
}

// AppendRow adds a row; it must have one cell per column.
func (t *Table) AppendRow(row []Value) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("table: row has %d cells, want %d", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// AddColumn appends a column and fills it per row with fill(row).
// If the column already exists its cells are replaced in place.
func (t *Table) AddColumn(col Column, fill func(row []Value) Value) {
	if i, ok := t.Index(col.Name); ok {
		t.Columns[i] = col
		for _, r := range t.Rows {
			r[i] = fill(r)
		}
		return
	}
	t.Columns = append(t.Columns, col)
	t.index[col.Name] = len(t.Columns) - 1
	for ri, r := range t.Rows {
		t.Rows[ri] = append(r, fill(r))
	}
}

// Get returns the cell at (row, column name). Missing columns yield Null.
func (t *Table) Get(row int, name string) Value {
	i, ok := t.Index(name)
	if !ok {
		return Null()
	}
	return t.Rows[row][i]
}

// Clone returns a deep copy of the table. Values are immutable, so copying
// the row slices is enough.
func (t *Table) Clone() *Table {
	cols := make([]Column, len(t.Columns))
	for i, c := range t.Columns {
		c.Levels = append([]string(nil), c.Levels...)
		cols[i] = c
	}
	rows := make([][]Value, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]Value(nil), r...)
	}
	return &Table{Columns: cols, Rows: rows, index: buildIndex(cols)}
}

// Head returns a table with at most n leading rows (sharing cells).
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	out := &Table{Columns: t.Columns, Rows: t.Rows[:n], index: buildIndex(t.Columns)}
	return out
}

// Filter returns a clone containing only rows for which keep returns true.
func (t *Table) Filter(keep func(row []Value) bool) *Table {
	out := t.Clone()
	rows := out.Rows[:0]
	for _, r := range out.Rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	out.Rows = rows
	return out
}

// NullCounts returns the number of null cells per column, in column order.
func (t *Table) NullCounts() []int {
	counts := make([]int, len(t.Columns))
	for _, r := range t.Rows {
		for i, v := range r {
			if v.IsNull() {
				counts[i]++
			}
		}
	}
	return counts
}

// Levels returns the sorted distinct non-null string values of a column.
func (t *Table) Levels(name string) []string {
	i, ok := t.Index(name)
	if !ok {
		return nil
	}
	seen := map[string]struct{}{}
	for _, r := range t.Rows {
		if r[i].Kind == KindString {
			seen[r[i].Str] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

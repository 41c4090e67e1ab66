package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"crashwrangle/internal/parser/csv"
	"crashwrangle/internal/table"
)

// Print writes a titled, column-aligned rendering of records to w.
func Print(w io.Writer, title string, records [][]string) {
	fmt.Fprintf(w, "\n[%s]\n", title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, rec := range records {
		fmt.Fprintln(tw, strings.Join(rec, "\t"))
	}
	tw.Flush()
}

// Inspect prints the loader's advisory overview: shape, column list, the
// first rows, and the columns with the most nulls.
func Inspect(w io.Writer, t *table.Table, meta csv.Meta, headRows, topNulls int) {
	fmt.Fprintf(w, "shape: (%d, %d)\n", meta.Rows, meta.Cols)
	fmt.Fprintf(w, "columns (%d): %s\n", len(meta.Columns), strings.Join(meta.Columns, ", "))
	Print(w, "HEAD", TableRecords(t.Head(headRows), NullConsole))

	type nc struct {
		name string
		n    int
	}
	counts := t.NullCounts()
	list := make([]nc, len(counts))
	for i, n := range counts {
		list[i] = nc{t.Columns[i].Name, n}
	}
	sort.SliceStable(list, func(a, b int) bool { return list[a].n > list[b].n })
	if len(list) > topNulls {
		list = list[:topNulls]
	}
	recs := [][]string{{"column", "nulls"}}
	for _, e := range list {
		recs = append(recs, []string{e.name, fmt.Sprint(e.n)})
	}
	Print(w, "NULLS", recs)
}

// Types prints each column's runtime type.
func Types(w io.Writer, t *table.Table) {
	recs := [][]string{{"column", "type"}}
	for _, c := range t.Columns {
		recs = append(recs, []string{c.Name, c.Type.String()})
	}
	Print(w, "TYPES", recs)
}

// Package report renders analysis results as tabular records and persists
// them as CSV artifacts or prints them to the console.
//
// Builders return [][]string with the header first, so the same records feed
// the CSV files, the console and the optional workbook.
package report

import (
	"strconv"

	"crashwrangle/internal/aggregate"
	"crashwrangle/internal/stats"
	"crashwrangle/internal/table"
)

// NullText is how a null cell renders in a set of records.
type NullText string

const (
	// NullCSV leaves null cells empty, as CSV artifacts do.
	NullCSV NullText = ""
	// NullConsole marks nulls explicitly in console output.
	NullConsole NullText = "<NA>"
)

func (n NullText) cell(v table.Value) string {
	if v.IsNull() {
		return string(n)
	}
	return v.Text()
}

// TableRecords renders every row of t under its header.
func TableRecords(t *table.Table, null NullText) [][]string {
	out := make([][]string, 0, t.Len()+1)
	out = append(out, t.Names())
	for _, r := range t.Rows {
		rec := make([]string, len(r))
		for i, v := range r {
			rec[i] = null.cell(v)
		}
		out = append(out, rec)
	}
	return out
}

// CountsRecords renders a group count as "<label>,count".
func CountsRecords(c *aggregate.Counts, null NullText) [][]string {
	out := [][]string{{c.Label, "count"}}
	for _, r := range c.Rows {
		out = append(out, []string{null.cell(r.Key), strconv.Itoa(r.N)})
	}
	return out
}

// PivotRecords renders the pivot with years down and boroughs across. Cells
// with no rows stay empty.
func PivotRecords(p *aggregate.Pivot) [][]string {
	header := append([]string{p.Row}, p.Boroughs...)
	out := [][]string{header}
	for yi, y := range p.Years {
		rec := make([]string, 0, len(p.Boroughs)+1)
		rec = append(rec, strconv.FormatInt(y, 10))
		for _, c := range p.Cells[yi] {
			if c.OK {
				rec = append(rec, strconv.Itoa(c.N))
			} else {
				rec = append(rec, "")
			}
		}
		out = append(out, rec)
	}
	return out
}

// MatrixRecords renders a square matrix with an empty corner cell. NaN is
// written empty.
func MatrixRecords(m *aggregate.Matrix) [][]string {
	out := [][]string{append([]string{""}, m.Columns...)}
	for i, c := range m.Columns {
		rec := []string{c}
		for _, v := range m.Values[i] {
			rec = append(rec, table.FormatFloat(v))
		}
		out = append(out, rec)
	}
	return out
}

// DescribeRecords renders summaries as one column per injury column and one
// row per statistic.
func DescribeRecords(ss []stats.Summary) [][]string {
	header := []string{""}
	vals := make([][]float64, len(ss))
	for i, s := range ss {
		header = append(header, s.Column)
		vals[i] = s.Values()
	}
	out := [][]string{header}
	for ri, name := range stats.DescribeRows {
		rec := []string{name}
		for i := range ss {
			rec = append(rec, table.FormatFloat(vals[i][ri]))
		}
		out = append(out, rec)
	}
	return out
}

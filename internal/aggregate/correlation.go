package aggregate

import (
	"math"

	"crashwrangle/internal/table"
)

// Correlation computes pairwise Pearson coefficients between cols. Each pair
// uses only the rows where both cells are numeric (pairwise-complete). A pair
// with fewer than two such rows, or with zero variance on either side, is NaN.
func Correlation(t *table.Table, cols []string) Matrix {
	idx := make([]int, len(cols))
	for k, c := range cols {
		idx[k], _ = t.Index(c)
	}
	m := Matrix{Columns: append([]string(nil), cols...), Values: make([][]float64, len(cols))}
	for a := range cols {
		m.Values[a] = make([]float64, len(cols))
	}
	for a := range cols {
		for b := a; b < len(cols); b++ {
			r := pearson(t.Rows, idx[a], idx[b])
			if a == b && !math.IsNaN(r) {
				r = 1
			}
			m.Values[a][b] = r
			m.Values[b][a] = r
		}
	}
	return m
}

func pearson(rows [][]table.Value, i, j int) float64 {
	var n, sx, sy float64
	for _, r := range rows {
		x, okx := r[i].Number()
		y, oky := r[j].Number()
		if !okx || !oky {
			continue
		}
		n++
		sx += x
		sy += y
	}
	if n < 2 {
		return math.NaN()
	}
	mx, my := sx/n, sy/n

	var sxy, sxx, syy float64
	for _, r := range rows {
		x, okx := r[i].Number()
		y, oky := r[j].Number()
		if !okx || !oky {
			continue
		}
		dx, dy := x-mx, y-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}
	r := sxy / math.Sqrt(sxx*syy)
	// clamp rounding drift
	return math.Max(-1, math.Min(1, r))
}

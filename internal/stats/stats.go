// Package stats produces the statistical summaries of the cleaned crash
// table: descriptive statistics over the injury columns, the primary injury
// mean, the contributing-factor ranking and the borough with most crashes.
package stats

import (
	"math"
	"sort"

	"crashwrangle/internal/aggregate"
	"crashwrangle/internal/config"
	"crashwrangle/internal/table"
)

// DescribeRows names the rows of a Describe table, in output order.
var DescribeRows = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Summary is the describe block of one numeric column. Undefined values are
// NaN.
type Summary struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Q50    float64
	Q75    float64
	Max    float64
}

// Values returns the summary in DescribeRows order.
func (s Summary) Values() []float64 {
	return []float64{float64(s.Count), s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max}
}

// Mean is the average of one column.
type Mean struct {
	Column string
	Value  float64
}

// Result holds every artifact Run could compute; absent prerequisites leave
// fields nil.
type Result struct {
	Describe []Summary
	Mean     *Mean

	// TopFactors ranks the primary contributing factor, nulls included.
	TopFactors *aggregate.Counts

	// Boroughs is the alphabetical borough grouping; MaxBorough its argmax.
	Boroughs   *aggregate.Counts
	MaxBorough string
}

// Run computes every summary over t with at most topN factor rows.
func Run(t *table.Table, roles config.Roles, topN int) Result {
	var res Result

	if cols := t.Present(roles.Injuries); len(cols) > 0 {
		for _, c := range cols {
			res.Describe = append(res.Describe, Describe(t, c))
		}
	}
	if p := roles.PrimaryInjury(); t.Has(p) {
		res.Mean = &Mean{Column: p, Value: Describe(t, p).Mean}
	}
	if f := roles.PrimaryFactor(); t.Has(f) {
		c := TopValues(t, f, topN)
		res.TopFactors = &c
	}
	if t.Has(roles.Borough) {
		c := aggregate.GroupCount(t, roles.Borough)
		res.Boroughs = &c
		res.MaxBorough = ArgMax(c)
	}
	return res
}

// Describe summarizes the numeric cells of col. Std uses n-1; quantiles
// interpolate linearly between closest ranks.
func Describe(t *table.Table, col string) Summary {
	s := Summary{Column: col}
	i, ok := t.Index(col)
	if !ok {
		return nanSummary(s)
	}
	xs := make([]float64, 0, t.Len())
	for _, r := range t.Rows {
		if f, ok := r[i].Number(); ok {
			xs = append(xs, f)
		}
	}
	s.Count = len(xs)
	if len(xs) == 0 {
		return nanSummary(s)
	}
	sort.Float64s(xs)

	var sum float64
	for _, x := range xs {
		sum += x
	}
	s.Mean = sum / float64(len(xs))

	s.Std = math.NaN()
	if len(xs) > 1 {
		var ss float64
		for _, x := range xs {
			d := x - s.Mean
			ss += d * d
		}
		s.Std = math.Sqrt(ss / float64(len(xs)-1))
	}
	s.Min = xs[0]
	s.Max = xs[len(xs)-1]
	s.Q25 = Quantile(xs, 0.25)
	s.Q50 = Quantile(xs, 0.50)
	s.Q75 = Quantile(xs, 0.75)
	return s
}

func nanSummary(s Summary) Summary {
	nan := math.NaN()
	s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
	return s
}

// Quantile returns the q-quantile of sorted xs with linear interpolation.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// TopValues counts every value of col, null included, and keeps the n most
// frequent. Ties keep first-occurrence order.
func TopValues(t *table.Table, col string, n int) aggregate.Counts {
	c := aggregate.Counts{Label: col}
	i, ok := t.Index(col)
	if !ok {
		return c
	}
	pos := map[string]int{}
	nullPos := -1
	for _, r := range t.Rows {
		v := r[i]
		if v.IsNull() {
			if nullPos < 0 {
				nullPos = len(c.Rows)
				c.Rows = append(c.Rows, aggregate.Count{Key: v})
			}
			c.Rows[nullPos].N++
			continue
		}
		k := v.Text()
		p, seen := pos[k]
		if !seen {
			p = len(c.Rows)
			pos[k] = p
			c.Rows = append(c.Rows, aggregate.Count{Key: v})
		}
		c.Rows[p].N++
	}
	sort.SliceStable(c.Rows, func(a, b int) bool { return c.Rows[a].N > c.Rows[b].N })
	if n >= 0 && len(c.Rows) > n {
		c.Rows = c.Rows[:n]
	}
	return c
}

// ArgMax returns the key with the highest count; the first such key wins.
func ArgMax(c aggregate.Counts) string {
	best, name := -1, ""
	for _, r := range c.Rows {
		if r.N > best {
			best, name = r.N, r.Key.Text()
		}
	}
	return name
}

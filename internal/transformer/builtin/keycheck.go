package builtin

import (
	"log"

	"github.com/zeebo/xxh3"

	"crashwrangle/internal/table"
)

// KeyReport summarizes identifier uniqueness.
type KeyReport struct {
	Column     string
	Rows       int
	Nulls      int
	Distinct   int
	Duplicates int      // rows whose identifier was already seen
	Examples   []string // up to MaxExamples duplicated identifiers, first-seen order
}

// KeyCheck reports duplicate identifiers. It never drops or alters rows:
// uniqueness is observed, not enforced.
type KeyCheck struct {
	Column      string
	MaxExamples int
}

func (KeyCheck) Name() string { return "keycheck" }

// Apply logs the report and returns in unchanged.
func (k KeyCheck) Apply(in *table.Table) *table.Table {
	rep := k.Check(in)
	if rep.Duplicates > 0 {
		log.Printf("keycheck: WARN column=%q duplicates=%d distinct=%d examples=%v",
			rep.Column, rep.Duplicates, rep.Distinct, rep.Examples)
	}
	return in
}

// Check hashes each identifier's text with xxh3 and counts repeats. Hash
// buckets keep the original strings, so colliding distinct keys are not
// miscounted.
func (k KeyCheck) Check(in *table.Table) KeyReport {
	rep := KeyReport{Column: k.Column, Rows: in.Len()}
	col, ok := in.Index(k.Column)
	if !ok {
		return rep
	}
	limit := k.MaxExamples
	if limit <= 0 {
		limit = 5
	}

	seen := make(map[uint64][]string, in.Len())
	reported := map[string]bool{}
	for _, r := range in.Rows {
		v := r[col]
		if v.IsNull() {
			rep.Nulls++
			continue
		}
		s := v.Text()
		h := xxh3.HashString(s)
		dup := false
		for _, prev := range seen[h] {
			if prev == s {
				dup = true
				break
			}
		}
		if !dup {
			seen[h] = append(seen[h], s)
			rep.Distinct++
			continue
		}
		rep.Duplicates++
		if !reported[s] && len(rep.Examples) < limit {
			reported[s] = true
			rep.Examples = append(rep.Examples, s)
		}
	}
	return rep
}

// Package transformer defines the table-to-table stage contract shared by the
// cleaning stages of the pipeline.
package transformer

import (
	"fmt"
	"time"

	"crashwrangle/internal/table"
)

// Transformer turns one table into the next. Implementations must not mutate
// the rows of the table they were given; they return a new logical table.
type Transformer interface {
	Apply(*table.Table) *table.Table
}

// Namer is implemented by transformers that report a stable stage name for
// logs and metrics.
type Namer interface{ Name() string }

// Name returns t's stage name, falling back to its Go type.
func Name(t Transformer) string {
	if n, ok := t.(Namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", t)
}

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs every transformer in order, feeding each the previous output.
func (c Chain) Apply(in *table.Table) *table.Table {
	return c.ApplyObserved(in, nil)
}

// Observer receives one call per stage with its row counts and duration.
type Observer func(stage string, rowsIn, rowsOut int, d time.Duration)

// ApplyObserved is Apply with a per-stage callback. A nil observer is allowed.
func (c Chain) ApplyObserved(in *table.Table, obs Observer) *table.Table {
	out := in
	for _, t := range c {
		start := time.Now()
		before := rowCount(out)
		out = t.Apply(out)
		if obs != nil {
			obs(Name(t), before, rowCount(out), time.Since(start))
		}
	}
	return out
}

func rowCount(t *table.Table) int {
	if t == nil {
		return 0
	}
	return t.Len()
}

package export

import (
	"errors"
	"fmt"
	"log"

	"crashwrangle/internal/table"
)

// ErrColumnarUnavailable is reported when no columnar writer is configured.
var ErrColumnarUnavailable = errors.New("columnar writer unavailable")

// ColumnarResult is the outcome of one best-effort columnar write.
type ColumnarResult struct {
	Artifact string // e.g. "raw", "clean"
	Path     string
	Err      error
}

// OK reports whether the file was written.
func (r ColumnarResult) OK() bool { return r.Err == nil }

// Probe runs w.WriteTable and converts every failure, panics included,
// into a warning. It never returns an error to the caller.
func Probe(w ColumnarWriter, artifact, path string, t *table.Table) (res ColumnarResult) {
	res = ColumnarResult{Artifact: artifact, Path: path}
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic: %v", r)
		}
		if res.Err != nil {
			log.Printf("WARN: skipping parquet (%s): %v", artifact, res.Err)
		}
	}()
	if w == nil {
		res.Err = ErrColumnarUnavailable
		return res
	}
	res.Err = w.WriteTable(path, t)
	return res
}

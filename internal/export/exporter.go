package export

import (
	"context"
	"log"
	"path/filepath"

	"crashwrangle/internal/parser/csv"
	"crashwrangle/internal/table"
)

// Export file names under the output directory.
const (
	RawJSONFile      = "collisions_raw.json"
	RawParquetFile   = "collisions_raw.parquet"
	CleanJSONFile    = "collisions_clean.json"
	CleanParquetFile = "collisions_clean.parquet"
)

// Exporter writes the raw and cleaned exports. JSON Lines output is
// mandatory; columnar output goes through Probe and only ever warns.
type Exporter struct {
	Dir      string
	Columnar ColumnarWriter

	// Source and LoadOpts re-read the original input for the raw export.
	Source   csv.Source
	LoadOpts csv.Options
}

// Result describes one export pair.
type Result struct {
	Rows     int
	JSON     string
	Columnar ColumnarResult
}

// Raw reloads the source, types it the way a plain CSV read would and
// writes the raw pair. Only a load or JSON failure is returned.
func (e *Exporter) Raw(ctx context.Context) (Result, error) {
	t, _, err := csv.Load(ctx, e.Source, e.LoadOpts)
	if err != nil {
		return Result{}, err
	}
	return e.write("raw", RawJSONFile, RawParquetFile, table.InferTypes(t))
}

// Clean writes the cleaned pair for t.
func (e *Exporter) Clean(t *table.Table) (Result, error) {
	return e.write("clean", CleanJSONFile, CleanParquetFile, t)
}

func (e *Exporter) write(artifact, jsonName, columnarName string, t *table.Table) (Result, error) {
	res := Result{Rows: t.Len(), JSON: filepath.Join(e.Dir, jsonName)}
	if err := WriteJSONLFile(res.JSON, t); err != nil {
		return res, err
	}
	res.Columnar = Probe(e.Columnar, artifact, filepath.Join(e.Dir, columnarName), t)
	log.Printf("export: artifact=%s rows=%d json=%s parquet_ok=%t", artifact, res.Rows, res.JSON, res.Columnar.OK())
	return res, nil
}

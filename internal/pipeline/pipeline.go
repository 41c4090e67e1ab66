// Package pipeline runs the crash-record wrangling stages end to end:
// load, clean (missing values, coercion, normalization), report, export and
// the optional database sink.
//
// Only a failing load, an unwritable output directory or a failing JSON
// export is fatal. Columnar export, the workbook and the database sink warn
// and let the run finish.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"crashwrangle/internal/aggregate"
	"crashwrangle/internal/config"
	"crashwrangle/internal/datasource"
	"crashwrangle/internal/export"
	"crashwrangle/internal/metrics"
	"crashwrangle/internal/parser/csv"
	"crashwrangle/internal/report"
	"crashwrangle/internal/stats"
	"crashwrangle/internal/storage"
	"crashwrangle/internal/table"
	"crashwrangle/internal/transformer"
	"crashwrangle/internal/transformer/builtin"
)

// Console listing sizes for the load overview.
const (
	inspectHeadRows = 3
	inspectTopNulls = 15
	progressEvery   = 100000
)

// Test seams; production values point at the real implementations.
var (
	newColumnarWriter = func() export.ColumnarWriter { return export.ParquetWriter{} }
	sinkFn            = storage.Sink
	writeWorkbook     = export.WorkbookWriter{}.Write
)

// Summary describes a finished run.
type Summary struct {
	RunID      string
	Loaded     int
	Cleaned    int
	DroppedGeo int
	Artifacts  []string // files written under the output directory
	Skipped    []string // best-effort artifacts that failed
	Sunk       int64
	Elapsed    time.Duration
}

// Run executes every stage for cfg, printing the advisory console report to
// stdout. The returned error is fatal: a *csv.LoadError for source problems
// or a wrapped I/O error for the output directory and JSON exports.
func Run(ctx context.Context, cfg *config.Config, stdout io.Writer) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: uuid.NewString()}
	roles := cfg.Roles
	job := cfg.Job

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return sum, fmt.Errorf("create outdir: %w", err)
	}
	log.Printf("pipeline: run_id=%s input=%s outdir=%s", sum.RunID, cfg.InputCSV, cfg.OutDir)

	// Loader
	src := datasource.New(cfg.InputCSV)
	opts := csv.Options{Verbose: cfg.Verbose, ProgressEvery: progressEvery}
	stepStart := time.Now()
	raw, meta, err := csv.Load(ctx, src, opts)
	metrics.RecordStep(job, "load", err, time.Since(stepStart))
	if err != nil {
		return sum, err
	}
	sum.Loaded = raw.Len()
	metrics.RecordRow(job, metrics.KindLoaded, int64(sum.Loaded))

	report.Inspect(stdout, raw, meta, inspectHeadRows, inspectTopNulls)
	if err := sum.write(cfg.OutDir, report.Artifact{
		Name:    report.SampleFile,
		Records: report.TableRecords(raw.Head(cfg.SampleRows), report.NullCSV),
	}); err != nil {
		return sum, err
	}

	// Cleaning stages
	chain := transformer.Chain{
		builtin.Missing{Roles: roles},
		builtin.Coerce{Roles: roles},
		builtin.Normalize{Roles: roles},
	}
	clean := chain.ApplyObserved(raw, func(stage string, in, out int, d time.Duration) {
		log.Printf("stage: name=%s rows_in=%d rows_out=%d took=%s", stage, in, out, d.Truncate(time.Microsecond))
		metrics.RecordStep(job, stage, nil, d)
		if stage == (builtin.Missing{}).Name() {
			sum.DroppedGeo = in - out
		}
	})
	sum.Cleaned = clean.Len()
	metrics.RecordRow(job, metrics.KindDroppedGeo, int64(sum.DroppedGeo))
	report.Types(stdout, clean)

	// Advisory checks
	builtin.KeyCheck{Column: roles.Identifier}.Apply(clean)
	if len(roles.Geolocation) == 2 {
		report.GeoCheck{Lat: roles.Geolocation[0], Lng: roles.Geolocation[1], Bounds: report.NYCBounds}.Check(clean).Log()
	}

	// Aggregator and StatisticsReporter
	agg, st, err := runReports(ctx, cfg, clean)
	if err != nil {
		return sum, err
	}
	arts := printReports(stdout, agg, st)
	if err := sum.write(cfg.OutDir, arts...); err != nil {
		return sum, err
	}

	if cfg.Workbook {
		path := filepath.Join(cfg.OutDir, export.WorkbookFile)
		if err := writeWorkbook(path, arts); err != nil {
			log.Printf("WARN: skipping workbook (%s): %v", export.WorkbookFile, err)
			sum.Skipped = append(sum.Skipped, export.WorkbookFile)
		} else {
			sum.Artifacts = append(sum.Artifacts, export.WorkbookFile)
		}
	}

	// Exporter; the clean export carries the derived year column.
	exp := &export.Exporter{Dir: cfg.OutDir, Columnar: newColumnarWriter(), Source: src, LoadOpts: opts}
	stepStart = time.Now()
	rawRes, err := exp.Raw(ctx)
	if err == nil {
		sum.recordExport(rawRes, export.RawJSONFile, export.RawParquetFile)
		var cleanRes export.Result
		cleanRes, err = exp.Clean(agg.Table)
		if err == nil {
			sum.recordExport(cleanRes, export.CleanJSONFile, export.CleanParquetFile)
			metrics.RecordRow(job, metrics.KindExported, int64(cleanRes.Rows))
		}
	}
	metrics.RecordStep(job, "export", err, time.Since(stepStart))
	if err != nil {
		return sum, err
	}

	if cfg.DBKind != "" {
		sum.Sunk = sink(ctx, cfg, agg.Table)
	}

	sum.Elapsed = time.Since(start)
	log.Printf("pipeline: done run_id=%s loaded=%d cleaned=%d dropped_geo=%d artifacts=%d skipped=%v elapsed=%s",
		sum.RunID, sum.Loaded, sum.Cleaned, sum.DroppedGeo, len(sum.Artifacts), sum.Skipped, sum.Elapsed.Truncate(time.Millisecond))
	return sum, nil
}

// runReports computes the aggregate and statistics results, concurrently
// when cfg.ParallelReports is set. Both only read clean.
func runReports(ctx context.Context, cfg *config.Config, clean *table.Table) (aggregate.Result, stats.Result, error) {
	var (
		agg aggregate.Result
		st  stats.Result
	)
	aggregateStep := func() error {
		t0 := time.Now()
		agg = aggregate.Run(clean, cfg.Roles)
		metrics.RecordStep(cfg.Job, "aggregate", nil, time.Since(t0))
		return nil
	}
	statsStep := func() error {
		t0 := time.Now()
		st = stats.Run(clean, cfg.Roles, cfg.TopN)
		metrics.RecordStep(cfg.Job, "stats", nil, time.Since(t0))
		return nil
	}

	if !cfg.ParallelReports {
		_ = aggregateStep()
		_ = statsStep()
		return agg, st, nil
	}
	g, _ := errgroup.WithContext(ctx)
	g.Go(aggregateStep)
	g.Go(statsStep)
	err := g.Wait()
	return agg, st, err
}

// printReports prints each computed result in a fixed order and returns the
// matching CSV artifacts.
func printReports(w io.Writer, agg aggregate.Result, st stats.Result) []report.Artifact {
	var arts []report.Artifact
	add := func(name, title string, csvRecs, console [][]string) {
		report.Print(w, title, console)
		arts = append(arts, report.Artifact{Name: name, Records: csvRecs})
	}

	if agg.Focus != nil {
		fmt.Fprintf(w, "\n[FOCUS]\n%s: %d\n", agg.Focus.Borough, agg.Focus.N)
	}
	if c := agg.ByBorough; c != nil {
		add(report.ByBoroughFile, "BY BOROUGH", report.CountsRecords(c, report.NullCSV), report.CountsRecords(c, report.NullConsole))
	}
	if c := agg.ByYear; c != nil {
		add(report.ByYearFile, "BY YEAR", report.CountsRecords(c, report.NullCSV), report.CountsRecords(c, report.NullConsole))
	}
	if p := agg.Pivot; p != nil {
		recs := report.PivotRecords(p)
		add(report.PivotFile, "PIVOT YEAR x BOROUGH", recs, recs)
	}
	if m := agg.Correlation; m != nil {
		recs := report.MatrixRecords(m)
		add(report.CorrelationFile, "INJURY CORRELATION", recs, recs)
	}

	if len(st.Describe) > 0 {
		recs := report.DescribeRecords(st.Describe)
		add(report.DescribeFile, "INJURY DESCRIBE", recs, recs)
	}
	if st.Mean != nil {
		fmt.Fprintf(w, "\n[MEAN]\n%s: %.4f\n", st.Mean.Column, st.Mean.Value)
	}
	if c := st.TopFactors; c != nil {
		add(report.TopFactorsFile, "TOP CONTRIBUTING FACTORS", report.CountsRecords(c, report.NullCSV), report.CountsRecords(c, report.NullConsole))
	}
	if c := st.Boroughs; c != nil {
		add(report.BoroughsFullFile, "BOROUGHS", report.CountsRecords(c, report.NullCSV), report.CountsRecords(c, report.NullConsole))
		if st.MaxBorough != "" {
			fmt.Fprintf(w, "\n[MAX BOROUGH]\n%s\n", st.MaxBorough)
		}
	}
	return arts
}

// sink loads t into the configured database. Failures are logged only.
func sink(ctx context.Context, cfg *config.Config, t *table.Table) int64 {
	t0 := time.Now()
	n, err := sinkFn(ctx, storage.Config{Kind: cfg.DBKind, DSN: cfg.DBDSN, Table: cfg.DBTable}, t, cfg.BatchSize)
	metrics.RecordStep(cfg.Job, "sink", err, time.Since(t0))
	if err != nil {
		log.Printf("WARN: skipping database sink (%s %s): %v", cfg.DBKind, cfg.DBTable, err)
		return n
	}
	metrics.RecordRow(cfg.Job, metrics.KindSunk, n)
	log.Printf("sink: kind=%s table=%s rows=%d", cfg.DBKind, cfg.DBTable, n)
	return n
}

func (s *Summary) write(dir string, arts ...report.Artifact) error {
	if err := report.WriteAll(dir, arts); err != nil {
		return err
	}
	for _, a := range arts {
		s.Artifacts = append(s.Artifacts, a.Name)
	}
	return nil
}

func (s *Summary) recordExport(r export.Result, jsonName, columnarName string) {
	s.Artifacts = append(s.Artifacts, jsonName)
	if r.Columnar.OK() {
		s.Artifacts = append(s.Artifacts, columnarName)
	} else {
		s.Skipped = append(s.Skipped, columnarName)
	}
}

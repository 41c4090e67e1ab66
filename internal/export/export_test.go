package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/xuri/excelize/v2"

	localfile "crashwrangle/internal/datasource/file"
	"crashwrangle/internal/report"
	"crashwrangle/internal/table"
)

var (
	crashDate = time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)
	crashTime = time.Date(0, 1, 1, 13, 5, 0, 0, time.UTC)
)

func cleanTable(t *testing.T) *table.Table {
	t.Helper()
	tb := table.New([]string{"UNIQUE KEY", "BOROUGH", "CRASH DATE", "CRASH TIME", "LATITUDE", "NOTE"})
	tb.SetType("UNIQUE KEY", table.TypeInt)
	tb.SetType("CRASH DATE", table.TypeDate)
	tb.SetType("CRASH TIME", table.TypeTime)
	tb.SetType("LATITUDE", table.TypeFloat)
	rows := [][]table.Value{
		{table.Int(1), table.String("Brooklyn"), table.Date(crashDate), table.TimeOfDay(crashTime), table.Float(40.6), table.String("a \"q\"\n")},
		{table.Int(2), table.Null(), table.Null(), table.Null(), table.Float(41), table.Null()},
	}
	for _, r := range rows {
		if err := tb.AppendRow(r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return tb
}

type failWriter struct{}

func (failWriter) WriteTable(string, *table.Table) error { return errors.New("disk full") }

type panicWriter struct{}

func (panicWriter) WriteTable(string, *table.Table) error { panic("codec missing") }

/*
Each row becomes one JSON object with keys in column order. Dates and times
are ISO strings, nulls are JSON null, and integral floats keep ".0".
*/
func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSONL(&buf, cleanTable(t)); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	want := `{"UNIQUE KEY":1,"BOROUGH":"Brooklyn","CRASH DATE":"2021-01-02","CRASH TIME":"13:05:00","LATITUDE":40.6,"NOTE":"a \"q\"\n"}` + "\n" +
		`{"UNIQUE KEY":2,"BOROUGH":null,"CRASH DATE":null,"CRASH TIME":null,"LATITUDE":41.0,"NOTE":null}` + "\n"
	if got := buf.String(); got != want {
		t.Fatalf("got\n%s\nwant\n%s", got, want)
	}
	for i, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if !json.Valid([]byte(line)) {
			t.Fatalf("line %d is not valid JSON: %s", i+1, line)
		}
	}
}

func TestAppendString(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain", `"plain"`},
		{`back\slash`, `"back\\slash"`},
		{"tab\there", `"tab\there"`},
		{"bell\x07", `"bell\u0007"`},
		{"caf\u00e9", "\"caf\u00e9\""},
		{"bad\xffbyte", "\"bad\ufffdbyte\""},
	}
	for _, c := range cases {
		got := string(appendString(nil, c.in))
		if got != c.want {
			t.Fatalf("appendString(%q) = %s; want %s", c.in, got, c.want)
		}
		var back string
		if err := json.Unmarshal([]byte(got), &back); err != nil {
			t.Fatalf("unmarshal %s: %v", got, err)
		}
	}
}

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), CleanParquetFile)
	tb := cleanTable(t)
	tb.SetType("BOROUGH", table.TypeCategory)
	if err := (ParquetWriter{}).WriteTable(path, tb); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		t.Fatalf("open parquet: %v", err)
	}
	defer pf.Close()
	rdr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		t.Fatalf("arrow reader: %v", err)
	}
	got, err := rdr.ReadTable(context.Background())
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	defer got.Release()

	if got.NumRows() != 2 {
		t.Fatalf("rows = %d; want 2", got.NumRows())
	}
	wantTypes := []arrow.DataType{
		arrow.PrimitiveTypes.Int64,
		arrow.BinaryTypes.String,
		arrow.FixedWidthTypes.Date32,
		arrow.FixedWidthTypes.Time64us,
		arrow.PrimitiveTypes.Float64,
		arrow.BinaryTypes.String,
	}
	for i, f := range got.Schema().Fields() {
		if !arrow.TypeEqual(f.Type, wantTypes[i]) {
			t.Fatalf("field %s type = %s; want %s", f.Name, f.Type, wantTypes[i])
		}
	}

	keys := got.Column(0).Data().Chunk(0).(*array.Int64)
	if keys.Value(0) != 1 || keys.Value(1) != 2 {
		t.Fatalf("keys = %v", keys)
	}
	boroughs := got.Column(1).Data().Chunk(0).(*array.String)
	if boroughs.Value(0) != "Brooklyn" || !boroughs.IsNull(1) {
		t.Fatalf("boroughs = %v", boroughs)
	}
	dates := got.Column(2).Data().Chunk(0).(*array.Date32)
	if dates.Value(0) != arrow.Date32FromTime(crashDate) || !dates.IsNull(1) {
		t.Fatalf("dates = %v", dates)
	}
	times := got.Column(3).Data().Chunk(0).(*array.Time64)
	if times.Value(0) != arrow.Time64(int64(13*3600+5*60)*1e6) {
		t.Fatalf("times = %v", times)
	}
}

/*
TestParquetWriter_FailureLeavesNoFile verifies a write that fails after bytes
hit the disk removes the partial file, so a skipped artifact is absent.
*/
func TestParquetWriter_FailureLeavesNoFile(t *testing.T) {
	orig := writeRowGroups
	t.Cleanup(func() { writeRowGroups = orig })
	writeRowGroups = func(w *pqarrow.FileWriter, tbl arrow.Table, chunk int64) error {
		if err := w.WriteTable(tbl, chunk); err != nil {
			return err
		}
		return errors.New("disk full")
	}

	path := filepath.Join(t.TempDir(), CleanParquetFile)
	err := (ParquetWriter{}).WriteTable(path, cleanTable(t))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v; want disk full", err)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("stat %s: %v; want not exist", path, statErr)
	}

	res := Probe(ParquetWriter{}, CleanParquetFile, path, cleanTable(t))
	if res.OK() || res.Err == nil {
		t.Fatalf("Probe = %+v; want failure", res)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("after Probe, stat %s: %v; want not exist", path, statErr)
	}
}

func TestProbe(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	tb := cleanTable(t)
	cases := []struct {
		name    string
		w       ColumnarWriter
		wantErr string
	}{
		{"nil writer", nil, ErrColumnarUnavailable.Error()},
		{"failing writer", failWriter{}, "disk full"},
		{"panicking writer", panicWriter{}, "panic: codec missing"},
	}
	for _, c := range cases {
		logs.Reset()
		res := Probe(c.w, "clean", "unused.parquet", tb)
		if res.OK() {
			t.Fatalf("%s: expected failure", c.name)
		}
		if !strings.Contains(res.Err.Error(), c.wantErr) {
			t.Fatalf("%s: err = %v; want %q", c.name, res.Err, c.wantErr)
		}
		if !strings.Contains(logs.String(), "WARN: skipping parquet (clean)") {
			t.Fatalf("%s: warning not logged: %q", c.name, logs.String())
		}
	}
	if res := Probe(nil, "raw", "", tb); !errors.Is(res.Err, ErrColumnarUnavailable) {
		t.Fatalf("nil writer err = %v; want ErrColumnarUnavailable", res.Err)
	}
}

/*
A failing columnar writer must not stop either JSON export.
*/
func TestExporter_DegradesGracefully(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.csv")
	if err := os.WriteFile(src, []byte("UNIQUE KEY,BOROUGH,N\n1,brooklyn,\n2,,3\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	e := &Exporter{Dir: dir, Columnar: failWriter{}, Source: localfile.NewLocal(src)}

	raw, err := e.Raw(context.Background())
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	if raw.Columnar.OK() || raw.Rows != 2 {
		t.Fatalf("raw result = %+v", raw)
	}
	b, err := os.ReadFile(filepath.Join(dir, RawJSONFile))
	if err != nil {
		t.Fatalf("read raw json: %v", err)
	}
	wantRaw := `{"UNIQUE KEY":1,"BOROUGH":"brooklyn","N":null}` + "\n" + `{"UNIQUE KEY":2,"BOROUGH":null,"N":3}` + "\n"
	if string(b) != wantRaw {
		t.Fatalf("raw json = %q; want %q", b, wantRaw)
	}

	clean, err := e.Clean(cleanTable(t))
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if clean.Columnar.OK() {
		t.Fatalf("clean columnar unexpectedly ok")
	}
	if _, err := os.Stat(filepath.Join(dir, CleanJSONFile)); err != nil {
		t.Fatalf("clean json missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, CleanParquetFile)); !os.IsNotExist(err) {
		t.Fatalf("clean parquet should not exist, stat err = %v", err)
	}
}

func TestExporter_RawMissingSource(t *testing.T) {
	dir := t.TempDir()
	e := &Exporter{Dir: dir, Columnar: ParquetWriter{}, Source: localfile.NewLocal(filepath.Join(dir, "gone.csv"))}
	if _, err := e.Raw(context.Background()); err == nil {
		t.Fatalf("expected error for missing source")
	}
}

func TestWorkbookWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), WorkbookFile)
	arts := []report.Artifact{
		{Name: report.ByBoroughFile, Records: [][]string{{"BOROUGH", "count"}, {"Brooklyn", "2"}, {"Queens", "1"}}},
		{Name: report.ByYearFile, Records: [][]string{{"YEAR", "count"}, {"2021", "3"}}},
	}
	if err := (WorkbookWriter{}).Write(path, arts); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if got, want := f.GetSheetList(), []string{"collisions_by_borough", "collisions_by_year"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("sheets = %v; want %v", got, want)
	}
	rows, err := f.GetRows("collisions_by_borough")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if !reflect.DeepEqual(rows, arts[0].Records) {
		t.Fatalf("rows = %v; want %v", rows, arts[0].Records)
	}
	if err := (WorkbookWriter{}).Write(path, nil); err == nil {
		t.Fatalf("expected error for empty workbook")
	}
}

func TestSheetName(t *testing.T) {
	if got := SheetName("a/b:c.csv"); got != "a_b_c" {
		t.Fatalf("SheetName = %q", got)
	}
	if got := SheetName(strings.Repeat("x", 40) + ".csv"); len(got) != 31 {
		t.Fatalf("len = %d; want 31", len(got))
	}
}

package export

import (
	"errors"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"crashwrangle/internal/table"
)

// ColumnarWriter persists a whole table to a columnar file.
type ColumnarWriter interface {
	WriteTable(path string, t *table.Table) error
}

// ParquetWriter writes Snappy-compressed parquet through arrow. The arrow
// schema is stored in the file metadata so readers recover exact types.
type ParquetWriter struct {
	// Alloc backs the arrow builders. nil means a Go allocator.
	Alloc memory.Allocator

	// RowGroup caps rows per row group. Zero means 64Ki.
	RowGroup int64
}

// ArrowType maps a column type onto its arrow counterpart.
func ArrowType(t table.Type) arrow.DataType {
	switch t {
	case table.TypeInt, table.TypeNullableInt:
		return arrow.PrimitiveTypes.Int64
	case table.TypeFloat:
		return arrow.PrimitiveTypes.Float64
	case table.TypeDate:
		return arrow.FixedWidthTypes.Date32
	case table.TypeTime:
		return arrow.FixedWidthTypes.Time64us
	default:
		return arrow.BinaryTypes.String
	}
}

// Schema derives the arrow schema for t. Every field is nullable.
func Schema(t *table.Table) *arrow.Schema {
	fields := make([]arrow.Field, len(t.Columns))
	for i, c := range t.Columns {
		fields[i] = arrow.Field{Name: c.Name, Type: ArrowType(c.Type), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// Record copies t into a single arrow record. The caller releases it.
func Record(mem memory.Allocator, t *table.Table) arrow.Record {
	b := array.NewRecordBuilder(mem, Schema(t))
	defer b.Release()
	for ci := range t.Columns {
		fb := b.Field(ci)
		for _, r := range t.Rows {
			appendCell(fb, r[ci])
		}
	}
	return b.NewRecord()
}

func appendCell(fb array.Builder, v table.Value) {
	if v.IsNull() {
		fb.AppendNull()
		return
	}
	switch b := fb.(type) {
	case *array.Int64Builder:
		switch {
		case v.Kind == table.KindInt:
			b.Append(v.Int)
		case v.Kind == table.KindFloat && v.Float == float64(int64(v.Float)):
			b.Append(int64(v.Float))
		default:
			b.AppendNull()
		}
	case *array.Float64Builder:
		if f, ok := v.Number(); ok {
			b.Append(f)
		} else {
			b.AppendNull()
		}
	case *array.Date32Builder:
		if v.Kind == table.KindDate {
			b.Append(arrow.Date32FromTime(v.Time))
		} else {
			b.AppendNull()
		}
	case *array.Time64Builder:
		if v.Kind == table.KindTime {
			h, m, s := v.Time.Clock()
			b.Append(arrow.Time64((int64(h)*3600 + int64(m)*60 + int64(s)) * 1e6))
		} else {
			b.AppendNull()
		}
	case *array.StringBuilder:
		b.Append(v.Text())
	default:
		fb.AppendNull()
	}
}

// writeRowGroups is swapped in tests to fail mid-file.
var writeRowGroups = func(w *pqarrow.FileWriter, tbl arrow.Table, chunk int64) error {
	return w.WriteTable(tbl, chunk)
}

// WriteTable writes t to path as parquet. On error no file is left at path.
func (p ParquetWriter) WriteTable(path string, t *table.Table) (err error) {
	mem := p.Alloc
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	chunk := p.RowGroup
	if chunk <= 0 {
		chunk = 64 * 1024
	}

	rec := Record(mem, t)
	defer rec.Release()
	tbl := array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
	defer tbl.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	// A failed write leaves no partial file behind. Runs after the close below.
	defer func() {
		if err != nil {
			os.Remove(path)
		}
	}()
	defer func() {
		// w.Close may already have closed f.
		if cerr := f.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	w, err := pqarrow.NewFileWriter(tbl.Schema(), f, props, arrowProps)
	if err != nil {
		return fmt.Errorf("parquet writer %s: %w", path, err)
	}
	if err := writeRowGroups(w, tbl, chunk); err != nil {
		w.Close()
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish parquet %s: %w", path, err)
	}
	return nil
}

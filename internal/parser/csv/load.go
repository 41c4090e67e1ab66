// Package csv loads a delimited crash-record file into a table.Table.
//
// Loading is strict: a ragged row, a duplicate header, or an empty file aborts
// the load with a *LoadError. Every cell is kept as a raw string; the empty
// field and the NA markers in Options.NAValues become an explicit null so
// later stages can tell "missing" from "0".
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"crashwrangle/internal/table"
)

// Source is anything that can be opened for reading, typically a
// *file.Local.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Options configures Load. The zero value reads comma-separated input.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// Name labels errors and logs when the source has no Path method.
	Name string

	// NAValues lists the exact cell values loaded as null in addition to the
	// empty field. nil means DefaultNAValues; an empty non-nil slice
	// disables NA markers.
	NAValues []string

	// Verbose logs progress every ProgressEvery rows.
	Verbose       bool
	ProgressEvery int
}

// DefaultNAValues are the missing-value markers common in CSV exports
// (the pandas read_csv default set). Matching is exact and case-sensitive.
var DefaultNAValues = []string{
	"#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

type naSet map[string]struct{}

func newNASet(values []string) naSet {
	if values == nil {
		values = DefaultNAValues
	}
	set := make(naSet, len(values)+1)
	set[""] = struct{}{}
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// value converts an NA marker to Null; all other cells stay raw strings.
func (s naSet) value(cell string) table.Value {
	if _, na := s[cell]; na {
		return table.Null()
	}
	return table.String(cell)
}

// Meta summarizes a completed load.
type Meta struct {
	Rows    int
	Cols    int
	Columns []string
}

// ctxCheckEvery bounds how often the read loop polls ctx.
const ctxCheckEvery = 4096

// Load opens src and reads the whole file into memory.
//
// Errors:
//   - open/read failures and context cancellation → *LoadError{Kind: KindIO}
//   - empty input, bad quoting, ragged rows, empty or duplicate header names →
//     *LoadError{Kind: KindParse}
func Load(ctx context.Context, src Source, opt Options) (*table.Table, Meta, error) {
	name := opt.Name
	if p, ok := src.(interface{ Path() string }); ok && name == "" {
		name = p.Path()
	}
	ioErr := func(line int, err error) error {
		return &LoadError{Kind: KindIO, Path: name, Line: line, Err: err}
	}
	parseErr := func(line int, err error) error {
		return &LoadError{Kind: KindParse, Path: name, Line: line, Err: err}
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return nil, Meta{}, ioErr(0, err)
	}
	defer rc.Close()

	cr := csv.NewReader(rc)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	// Every record must match the header width.
	cr.FieldsPerRecord = 0
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, Meta{}, parseErr(0, errors.New("empty file: no header row"))
	}
	if err != nil {
		return nil, Meta{}, classify(err, ioErr, parseErr)
	}
	names, err := normalizeHeaders(header)
	if err != nil {
		return nil, Meta{}, parseErr(1, err)
	}

	t := table.New(names)
	na := newNASet(opt.NAValues)
	every := opt.ProgressEvery
	if every <= 0 {
		every = 100_000
	}
	for n := 1; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, Meta{}, ioErr(0, err)
			}
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Meta{}, classify(err, ioErr, parseErr)
		}
		row := make([]table.Value, len(rec))
		for i, cell := range rec {
			row[i] = na.value(cell)
		}
		if err := t.AppendRow(row); err != nil {
			line, _ := cr.FieldPos(0)
			return nil, Meta{}, parseErr(line, err)
		}
		if opt.Verbose && n%every == 0 {
			log.Printf("loader: path=%s rows=%d", name, n)
		}
	}

	meta := Meta{Rows: t.Len(), Cols: len(names), Columns: t.Names()}
	return t, meta, nil
}

// classify maps encoding/csv syntax errors to KindParse and everything else
// (short reads, decompression failures) to KindIO.
func classify(err error, ioErr, parseErr func(int, error) error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		if errors.Is(pe.Err, csv.ErrFieldCount) || errors.Is(pe.Err, csv.ErrQuote) ||
			errors.Is(pe.Err, csv.ErrBareQuote) || errors.Is(pe.Err, csv.ErrTrailingComma) {
			return parseErr(pe.Line, pe.Err)
		}
		return ioErr(pe.Line, pe.Err)
	}
	return ioErr(0, err)
}

// normalizeHeaders copies the header row, strips a UTF-8 BOM from the first
// cell, and trims surrounding whitespace. Names are otherwise kept verbatim.
func normalizeHeaders(h []string) ([]string, error) {
	names := StripHeaderBOM(append([]string(nil), h...))
	seen := make(map[string]int, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, fmt.Errorf("header column %d is empty", i+1)
		}
		if j, dup := seen[n]; dup {
			return nil, fmt.Errorf("duplicate header %q (columns %d and %d)", n, j+1, i+1)
		}
		seen[n] = i
		names[i] = n
	}
	return names, nil
}

// Package export writes a table as line-delimited JSON records and, on a
// best-effort basis, as a columnar parquet file.
package export

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"sync"
	"unicode/utf8"

	"crashwrangle/internal/table"
)

// RowEncoder renders table rows as JSON objects without maps or reflection.
//
// Each `"name":` prefix is escaped once up front; rows are assembled in a
// pooled buffer.
type RowEncoder struct {
	prefixes [][]byte
	bufPool  sync.Pool
}

// NewRowEncoder precomputes key prefixes for the given column names.
func NewRowEncoder(names []string) *RowEncoder {
	pfx := make([][]byte, len(names))
	for i, n := range names {
		b := appendString(nil, n)
		pfx[i] = append(b, ':')
	}
	return &RowEncoder{prefixes: pfx, bufPool: sync.Pool{New: func() any { return new(bytes.Buffer) }}}
}

// AppendRow appends the JSON object for row to dst, without a newline.
func (e *RowEncoder) AppendRow(dst []byte, row []table.Value) []byte {
	buf := e.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	buf.WriteByte('{')
	var scratch [64]byte
	for i := range e.prefixes {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(e.prefixes[i])
		buf.Write(appendValue(scratch[:0], row[i]))
	}
	buf.WriteByte('}')
	dst = append(dst, buf.Bytes()...)
	e.bufPool.Put(buf)
	return dst
}

func appendValue(dst []byte, v table.Value) []byte {
	switch v.Kind {
	case table.KindString:
		return appendString(dst, v.Str)
	case table.KindInt:
		return strconv.AppendInt(dst, v.Int, 10)
	case table.KindFloat:
		if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
			return append(dst, "null"...)
		}
		return append(dst, table.FormatFloat(v.Float)...)
	case table.KindDate, table.KindTime:
		return appendString(dst, v.Text())
	}
	return append(dst, "null"...)
}

const hexDigits = "0123456789abcdef"

// appendString appends s as a JSON string literal. Invalid UTF-8 becomes
// U+FFFD; control characters use \u escapes.
func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c >= 0x20 && c != '"' && c != '\\' {
				i++
				continue
			}
			dst = append(dst, s[start:i]...)
			switch c {
			case '"', '\\':
				dst = append(dst, '\\', c)
			case '\n':
				dst = append(dst, '\\', 'n')
			case '\r':
				dst = append(dst, '\\', 'r')
			case '\t':
				dst = append(dst, '\\', 't')
			default:
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, s[start:i]...)
			dst = append(dst, "\ufffd"...)
			i += size
			start = i
			continue
		}
		i += size
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}

// WriteJSONL writes one JSON object per row of t, keys in column order.
func WriteJSONL(w io.Writer, t *table.Table) error {
	enc := NewRowEncoder(t.Names())
	bw := bufio.NewWriterSize(w, 1<<16)
	line := make([]byte, 0, 512)
	for _, r := range t.Rows {
		line = enc.AppendRow(line[:0], r)
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteJSONLFile writes t to path as JSON Lines.
func WriteJSONLFile(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSONL(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

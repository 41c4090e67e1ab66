package table

import (
	"math"
	"strconv"
	"time"
)

// Kind tags the payload carried by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindDate
	KindTime
)

// DateLayout and TimeLayout are the canonical text renderings of dates and
// times of day.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Value is one tagged table cell. The zero Value is Null.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Float float64

	// Time holds a date (UTC midnight) or a time of day on 0000-01-01.
	Time time.Time
}

func Null() Value { return Value{} }
func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func Date(t time.Time) Value { return Value{Kind: KindDate, Time: dateOnly(t)} }
func TimeOfDay(t time.Time) Value { return Value{Kind: KindTime, Time: clockOnly(t)} }

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clockOnly(t time.Time) time.Time {
	h, m, s := t.Clock()
	return time.Date(0, 1, 1, h, m, s, 0, time.UTC)
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Number returns v as a float64 for numeric kinds.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		if math.IsNaN(v.Float) {
			return 0, false
		}
		return v.Float, true
	}
	return 0, false
}

// Text renders v the way it is written to CSV artifacts. Null renders as "".
func (v Value) Text() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return FormatFloat(v.Float)
	case KindDate:
		return v.Time.Format(DateLayout)
	case KindTime:
		return v.Time.Format(TimeLayout)
	}
	return ""
}

// Display is Text with an explicit marker for null, used in console reports.
func (v Value) Display() string {
	if v.IsNull() {
		return "<NA>"
	}
	return v.Text()
}

// Equal compares two values by kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindString:
		return v.Str == o.Str
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return v.Float == o.Float || (math.IsNaN(v.Float) && math.IsNaN(o.Float))
	default:
		return v.Time.Equal(o.Time)
	}
}

// FormatFloat writes floats so integral values keep a trailing ".0"
// (e.g. "3.0"), matching the float rendering of the report files. NaN is "".
func FormatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !math.IsInf(f, 0) && f == math.Trunc(f) && math.Abs(f) < 1e15 {
		s += ".0"
	}
	return s
}

package builtin

import (
	"math"
	"strconv"
	"strings"
	"time"

	"crashwrangle/internal/config"
	"crashwrangle/internal/table"
)

// DateLayouts are tried in order when parsing the date column. Month and day
// may be one or two digits ("1/2/2021", "01/02/2021").
var DateLayouts = []string{
	"1/2/2006",
	"2006-01-02",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// TimeLayouts are tried in order when parsing the time column. Hours may be
// one or two digits ("2:39", "14:05"); a seconds field does not parse.
var TimeLayouts = []string{"15:04"}

// Coerce converts columns to their role's runtime type. Unparseable cells
// become null; Coerce never fails.
//
//	date        -> TypeDate
//	time        -> TypeTime
//	injuries    -> TypeNullableInt (integral floats accepted)
//	borough     -> TypeCategory
//	geolocation -> TypeFloat
//	identifier  -> TypeInt when every non-null value is an integer
type Coerce struct {
	Roles config.Roles
}

func (Coerce) Name() string { return "coerce" }

func (c Coerce) Apply(in *table.Table) *table.Table {
	out := in.Clone()

	if i, ok := out.Index(c.Roles.Date); ok {
		mapColumn(out, i, parseDate)
		out.SetType(c.Roles.Date, table.TypeDate)
	}
	if i, ok := out.Index(c.Roles.Time); ok {
		mapColumn(out, i, parseTime)
		out.SetType(c.Roles.Time, table.TypeTime)
	}
	for _, name := range out.Present(c.Roles.Injuries) {
		i, _ := out.Index(name)
		mapColumn(out, i, parseWhole)
		out.SetType(name, table.TypeNullableInt)
	}
	for _, name := range out.Present(c.Roles.Geolocation) {
		i, _ := out.Index(name)
		mapColumn(out, i, parseFloat)
		out.SetType(name, table.TypeFloat)
	}
	if i, ok := out.Index(c.Roles.Borough); ok {
		mapColumn(out, i, asText)
		out.SetType(c.Roles.Borough, table.TypeCategory)
		out.Columns[i].Levels = out.Levels(c.Roles.Borough)
	}
	if i, ok := out.Index(c.Roles.Identifier); ok {
		coerceIdentifier(out, i)
	}
	return out
}

func mapColumn(t *table.Table, col int, f func(table.Value) table.Value) {
	for _, r := range t.Rows {
		r[col] = f(r[col])
	}
}

func parseDate(v table.Value) table.Value {
	switch v.Kind {
	case table.KindDate:
		return v
	case table.KindString:
		s := strings.TrimSpace(v.Str)
		for _, layout := range DateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return table.Date(ts)
			}
		}
	}
	return table.Null()
}

func parseTime(v table.Value) table.Value {
	switch v.Kind {
	case table.KindTime:
		return v
	case table.KindString:
		s := strings.TrimSpace(v.Str)
		for _, layout := range TimeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return table.TimeOfDay(ts)
			}
		}
	}
	return table.Null()
}

// parseWhole accepts integers and integral floats ("2", "2.0"). Fractional or
// non-numeric cells become null.
func parseWhole(v table.Value) table.Value {
	switch v.Kind {
	case table.KindInt:
		return v
	case table.KindFloat:
		return wholeFloat(v.Float)
	case table.KindString:
		s := strings.TrimSpace(v.Str)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return table.Int(i)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return wholeFloat(f)
		}
	}
	return table.Null()
}

func wholeFloat(f float64) table.Value {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return table.Null()
	}
	return table.Int(int64(f))
}

func parseFloat(v table.Value) table.Value {
	switch v.Kind {
	case table.KindFloat:
		return v
	case table.KindInt:
		return table.Float(float64(v.Int))
	case table.KindString:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err == nil {
			return table.Float(f)
		}
	}
	return table.Null()
}

// asText keeps strings and renders any other non-null kind as text.
func asText(v table.Value) table.Value {
	if v.IsNull() || v.Kind == table.KindString {
		return v
	}
	return table.String(v.Text())
}

// coerceIdentifier converts the identifier column to integers only when every
// non-null cell parses; otherwise it is left as it is.
func coerceIdentifier(t *table.Table, col int) {
	vals := make([]table.Value, len(t.Rows))
	hasNull := false
	for k, r := range t.Rows {
		v := r[col]
		switch v.Kind {
		case table.KindNull:
			hasNull = true
			vals[k] = v
		case table.KindInt:
			vals[k] = v
		case table.KindString:
			i, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
			if err != nil {
				return
			}
			vals[k] = table.Int(i)
		default:
			return
		}
	}
	for k, r := range t.Rows {
		r[col] = vals[k]
	}
	typ := table.TypeInt
	if hasNull {
		typ = table.TypeNullableInt
	}
	t.Columns[col].Type = typ
}

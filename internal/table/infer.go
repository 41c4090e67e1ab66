package table

import (
	"strconv"
	"strings"
)

// InferTypes returns a clone of t in which every TypeString column whose
// non-null cells all parse as integers becomes TypeInt (TypeNullableInt when
// nulls are present), and otherwise as floats becomes TypeFloat. Columns with
// any non-numeric cell stay strings. This mirrors the typing a raw CSV read
// applies before anything else touches the data.
func InferTypes(t *Table) *Table {
	out := t.Clone()
	for ci, col := range out.Columns {
		if col.Type != TypeString {
			continue
		}
		typ := inferColumn(out.Rows, ci)
		if typ == TypeString {
			continue
		}
		for _, r := range out.Rows {
			r[ci] = parseAs(r[ci], typ)
		}
		out.Columns[ci].Type = typ
	}
	return out
}

func inferColumn(rows [][]Value, ci int) Type {
	allInt, allNum, hasNull, hasValue := true, true, false, false
	for _, r := range rows {
		v := r[ci]
		if v.IsNull() {
			hasNull = true
			continue
		}
		hasValue = true
		s := strings.TrimSpace(v.Str)
		if allInt && !isInt(s) {
			allInt = false
		}
		if !allInt && !isFloat(s) {
			allNum = false
			break
		}
	}
	switch {
	case !hasValue:
		return TypeString
	case allInt && hasNull:
		// A null forces floats at read time; keep the values integral but
		// nullable instead.
		return TypeNullableInt
	case allInt:
		return TypeInt
	case allNum:
		return TypeFloat
	}
	return TypeString
}

func parseAs(v Value, typ Type) Value {
	if v.IsNull() {
		return v
	}
	s := strings.TrimSpace(v.Str)
	switch typ {
	case TypeInt, TypeNullableInt:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Null()
		}
		return Int(i)
	case TypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Null()
		}
		return Float(f)
	}
	return v
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// isFloat accepts decimal or scientific notation; integers count as floats.
func isFloat(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

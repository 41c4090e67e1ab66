package builtin

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"crashwrangle/internal/config"
	"crashwrangle/internal/table"
)

// Normalize cleans free text:
//   - surrounding whitespace (including NBSP) is trimmed in every present
//     text-role column that is string or category typed;
//   - the borough is title-cased ("STATEN ISLAND" -> "Staten Island");
//   - cells exactly equal to Roles.Sentinel become null in every present
//     contributing-factor column. The match is literal and case-sensitive.
//
// Applying Normalize to its own output changes nothing.
type Normalize struct {
	Roles config.Roles
}

func (Normalize) Name() string { return "normalize" }

func (n Normalize) Apply(in *table.Table) *table.Table {
	out := in.Clone()

	for _, name := range out.Present(n.Roles.Text) {
		i, _ := out.Index(name)
		if !out.Columns[i].Type.Textual() {
			continue
		}
		mapColumn(out, i, trim)
	}

	if i, ok := out.Index(n.Roles.Borough); ok && out.Columns[i].Type.Textual() {
		// cases.Caser keeps state; one per call.
		title := cases.Title(language.Und)
		mapColumn(out, i, func(v table.Value) table.Value {
			if v.Kind != table.KindString {
				return v
			}
			return table.String(title.String(v.Str))
		})
	}

	if n.Roles.Sentinel != "" {
		for _, name := range out.Present(n.Roles.Factors) {
			i, _ := out.Index(name)
			mapColumn(out, i, func(v table.Value) table.Value {
				if v.Kind == table.KindString && v.Str == n.Roles.Sentinel {
					return table.Null()
				}
				return v
			})
		}
	}

	for i, col := range out.Columns {
		if col.Type == table.TypeCategory {
			out.Columns[i].Levels = out.Levels(col.Name)
		}
	}
	return out
}

func trim(v table.Value) table.Value {
	if v.Kind != table.KindString {
		return v
	}
	s := strings.TrimSpace(v.Str)
	if s == v.Str {
		return v
	}
	return table.String(s)
}

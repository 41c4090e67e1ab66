// Package ddl renders CREATE TABLE statements for the database sink.
//
// A TableDef is derived from a table.Table through a backend's type mapping
// (FromTable) and rendered through a Dialect, which owns identifier quoting
// and the "create if missing" wrapper.
package ddl

import (
	"fmt"
	"strings"

	"crashwrangle/internal/table"
)

// Dialect describes how a backend spells a CREATE TABLE statement.
type Dialect struct {
	// Name prefixes error messages, e.g. "sqlite".
	Name string

	// Quote quotes a single identifier. nil emits identifiers verbatim.
	Quote func(string) string

	// Wrap turns the quoted table name and the rendered column list into the
	// final statement. nil renders a plain CREATE TABLE.
	Wrap func(fqn, body string) string

	// ForcePKNotNull marks primary key columns NOT NULL even when nullable.
	ForcePKNotNull bool
}

// Generic is the dialect-free baseline: no quoting, no IF NOT EXISTS.
var Generic = Dialect{Name: "ddl"}

// QuoteFQN quotes each dot-separated segment of fqn, skipping empty ones.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.quote(p))
	}
	return strings.Join(out, ".")
}

func (d Dialect) quote(id string) string {
	if d.Quote == nil {
		return id
	}
	return d.Quote(id)
}

// BuildCreateTableSQL renders t. Each column becomes
//
//	<name> <type> [NOT NULL] [DEFAULT <expr>]
//
// and primary key columns are collected into a trailing PRIMARY KEY clause.
func (d Dialect) BuildCreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s: column %s missing SQLType", d.Name, name)
		}

		var sb strings.Builder
		sb.WriteString(d.quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || (c.PrimaryKey && d.ForcePKNotNull) {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	quoted := d.QuoteFQN(fqn)
	if d.Wrap != nil {
		return d.Wrap(quoted, strings.Join(cols, ",\n  ")), nil
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", quoted, strings.Join(cols, ",\n  ")), nil
}

// FromTable derives a table definition from t's columns. Every column is
// nullable; the sink never declares keys.
func FromTable(fqn string, t *table.Table, mapType func(table.Type) string) TableDef {
	cols := make([]ColumnDef, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = ColumnDef{Name: c.Name, SQLType: mapType(c.Type), Nullable: true}
	}
	return TableDef{FQN: fqn, Columns: cols}
}

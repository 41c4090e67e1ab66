package ddl

// ColumnDef describes one column of a table definition.
//
// Name is unquoted; renderers quote it for their dialect. Default is emitted
// as raw SQL.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the dotted table name (e.g. "schema.table") and an ordered
// list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

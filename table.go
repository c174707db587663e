package reviewdb

import "strings"

import "github.com/grafana/regexp"

// IDColumn is the generated primary key of every review table.
const IDColumn = "id"

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,47}$`)

// ValidName reports whether name can be used unquoted as a keyspace or table name.
func ValidName(name string) bool {
	return identifierPattern.MatchString(name)
}

// SystemKeyspace reports whether name belongs to the cluster itself, such as system or
// system_schema. Such keyspaces are never created, dropped or written to.
func SystemKeyspace(name string) bool {
	name = strings.ToLower(name)
	return name == "system" || strings.HasPrefix(name, "system_")
}

// A Table describes how review rows are stored. Every Table has the same columns; only the
// keyspace and name differ.
type Table struct {
	Keyspace   string
	Name       string
	Columns    []Column
	PrimaryKey []string
}

// ReviewTable returns the definition of the review table with the given keyspace and name.
func ReviewTable(keyspace, name string) *Table {
	cols := make([]Column, 0, len(recordColumns)+1)
	cols = append(cols, Column{Name: IDColumn, Type: "uuid"})
	cols = append(cols, recordColumns...)
	return &Table{
		Keyspace:   strings.ToLower(keyspace),
		Name:       strings.ToLower(name),
		Columns:    cols,
		PrimaryKey: []string{IDColumn},
	}
}

// Validate checks the keyspace and table names.
func (t *Table) Validate() error {
	if !ValidName(t.Keyspace) {
		return WrapError(ErrInvalidName, "keyspace "+quoteName(t.Keyspace), nil)
	}
	if SystemKeyspace(t.Keyspace) {
		return WrapError(ErrInvalidName, "reserved keyspace "+quoteName(t.Keyspace), nil)
	}
	if !ValidName(t.Name) {
		return WrapError(ErrInvalidName, "table "+quoteName(t.Name), nil)
	}
	return nil
}

// QualifiedName returns keyspace.table.
func (t *Table) QualifiedName() string {
	return t.Keyspace + "." + t.Name
}

// ColumnNames returns the names of all columns, primary key first.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// CreateStatement returns the CQL statement that creates this table.
func (t *Table) CreateStatement() CQL {
	var b CQLBuilder
	b.Append("CREATE TABLE IF NOT EXISTS " + t.QualifiedName() + " (")
	for _, col := range t.Columns {
		b.Append(col.Name + " " + col.Type + ", ")
	}
	b.Append("PRIMARY KEY (" + strings.Join(t.PrimaryKey, ", ") + "))")
	return b.CQL()
}

// DropStatement returns the CQL statement that drops this table.
func (t *Table) DropStatement() CQL {
	var b CQLBuilder
	return b.Append("DROP TABLE IF EXISTS ").Append(t.QualifiedName()).CQL()
}

func quoteName(name string) string {
	if len(name) > 64 {
		name = name[:64] + "..."
	}
	return "\"" + name + "\""
}

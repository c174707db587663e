package reviewdb

import "context"
import "sort"
import "strings"
import "time"

// SchemaDiff enumerates how a live table differs from the fixed review schema. It is a report
// only; nothing is ever applied to bring the live table in line.
type SchemaDiff struct {
	Table   string
	Missing []Column // columns of the fixed schema absent from the live table
	Altered []Column // columns present with another type; Type holds the expected type
	Extra   []Column // live columns the fixed schema doesn't know about
}

// Size returns the total number of differences.
func (d *SchemaDiff) Size() int {
	return len(d.Missing) + len(d.Altered) + len(d.Extra)
}

// String constructs a human-readable string describing the SchemaDiff in CQL.
func (d *SchemaDiff) String() string {
	if d.Size() == 0 {
		return "no diff"
	}
	changes := make([]string, 0, d.Size())
	for _, col := range d.Missing {
		changes = append(changes, "ALTER TABLE "+d.Table+" ADD "+col.Name+" "+col.Type)
	}
	for _, col := range d.Altered {
		changes = append(changes, "ALTER TABLE "+d.Table+" ALTER "+col.Name+" TYPE "+col.Type)
	}
	for _, col := range d.Extra {
		changes = append(changes, "-- unexpected column "+col.Name+" "+col.Type)
	}
	return strings.Join(changes, "\n")
}

// DiffTable compares the live columns of a table against the fixed review schema. A table that
// doesn't exist yields a diff with every column missing.
func (m *SchemaManager) DiffTable(ctx context.Context, keyspace, table string) (diff *SchemaDiff, err error) {
	defer m.metrics.instrument("diff_table", time.Now(), &err)
	t, err := reviewTable(keyspace, table)
	if err != nil {
		return nil, err
	}
	session, err := m.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer m.sessions.Release(session)

	live, err := liveColumns(ctx, session, t)
	if err != nil {
		return nil, err
	}
	return diffColumns(t, live), nil
}

func liveColumns(ctx context.Context, session Session, t *Table) (map[string]string, error) {
	q := session.Query(ctx, Select("column_name", "type").From("system_schema.columns").
		Where("keyspace_name = ?", t.Keyspace).Where("table_name = ?", t.Name).CQL())
	live := make(map[string]string)
	var name, typ string
	for q.Scan(&name, &typ) {
		live[name] = typ
	}
	if err := q.Close(); err != nil {
		return nil, wrapf(ErrSchemaOperation, err, "read columns of %s", t.QualifiedName())
	}
	return live, nil
}

func diffColumns(t *Table, live map[string]string) *SchemaDiff {
	diff := &SchemaDiff{Table: t.QualifiedName()}
	known := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		known[col.Name] = true
		typ, ok := live[col.Name]
		switch {
		case !ok:
			diff.Missing = append(diff.Missing, col)
		case !sameType(typ, col.Type):
			diff.Altered = append(diff.Altered, col)
		}
	}
	for name, typ := range live {
		if !known[name] {
			diff.Extra = append(diff.Extra, Column{Name: name, Type: typ})
		}
	}
	sort.Slice(diff.Extra, func(i, j int) bool { return diff.Extra[i].Name < diff.Extra[j].Name })
	return diff
}

// sameType treats varchar as an alias of text, as Cassandra does.
func sameType(live, expected string) bool {
	canon := func(s string) string {
		s = strings.ToLower(s)
		if s == "varchar" {
			return "text"
		}
		return s
	}
	return canon(live) == canon(expected)
}

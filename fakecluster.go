package reviewdb

import "bytes"
import "context"
import "errors"
import "fmt"
import "reflect"
import "sort"
import "strings"
import "sync"

import "github.com/gocql/gocql"

// FakeCluster is an in-memory imitation of a Cassandra cluster. This is great for unit testing,
// but beware that the fake implementation is quite rudimentary, incomplete, and probably
// inaccurate. It understands just enough CQL to serve this package: keyspace and table DDL,
// single-row inserts, and selects with equality filters. Statements are executed one at a time.
type FakeCluster struct {
	mu        sync.Mutex
	keyspaces map[string]*fakeKeyspace
	failures  []fakeFailure
	executed  []string
	open      int
}

type fakeFailure struct {
	match string
	err   error
}

// NewFakeCluster returns an empty FakeCluster. Only the system keyspaces exist.
func NewFakeCluster() *FakeCluster {
	c := &FakeCluster{keyspaces: make(map[string]*fakeKeyspace)}
	c.addKeyspace("system", nil)
	c.addKeyspace("system_schema", nil)
	return c
}

// FakeDialer returns a Dialer whose sessions all share one new FakeCluster.
func FakeDialer() Dialer {
	return NewFakeCluster()
}

// Dial opens a session onto the fake cluster.
func (c *FakeCluster) Dial(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open++
	return &fakeSession{cluster: c}, nil
}

// FailStatements makes every later statement whose text contains match fail with err.
func (c *FakeCluster) FailStatements(match string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, fakeFailure{match: match, err: err})
}

// ClearFailures removes every failure installed by FailStatements.
func (c *FakeCluster) ClearFailures() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = nil
}

// Executed returns the text of every statement executed so far, in order.
func (c *FakeCluster) Executed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.executed...)
}

// OpenSessions returns the number of sessions that have been dialed and not yet closed.
func (c *FakeCluster) OpenSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *FakeCluster) addKeyspace(name string, replication map[string]string) *fakeKeyspace {
	ks := &fakeKeyspace{replication: replication, tables: make(map[string]*fakeTable)}
	c.keyspaces[name] = ks
	return ks
}

func (c *FakeCluster) execute(stmt CQL) (resultSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text := stmt.String()
	for _, f := range c.failures {
		if strings.Contains(text, f.match) {
			return nil, f.err
		}
	}
	s := newStatement(text)
	if err := s.Compile(); err != nil {
		return nil, err
	}
	rs, err := s.Execute(c, stmt.params...)
	if err != nil {
		return nil, err
	}
	c.executed = append(c.executed, text)
	return rs, nil
}

func splitQualified(name string) (string, string, error) {
	i := strings.IndexByte(name, '.')
	if i < 0 {
		return "", "", errors.New("no keyspace has been specified for " + name)
	}
	return name[:i], name[i+1:], nil
}

func (c *FakeCluster) keyspace(name string) (*fakeKeyspace, error) {
	ks, ok := c.keyspaces[name]
	if !ok {
		return nil, errors.New("keyspace " + name + " does not exist")
	}
	return ks, nil
}

func (c *FakeCluster) table(qualified string) (*fakeTable, error) {
	ksname, tname, err := splitQualified(qualified)
	if err != nil {
		return nil, err
	}
	if ksname == "system_schema" {
		return c.catalog(tname)
	}
	ks, err := c.keyspace(ksname)
	if err != nil {
		return nil, err
	}
	t, ok := ks.tables[tname]
	if !ok {
		return nil, errors.New("unconfigured table " + tname)
	}
	return t, nil
}

// catalog materializes one of the system_schema tables from the current state.
func (c *FakeCluster) catalog(name string) (*fakeTable, error) {
	var t *fakeTable
	switch name {
	case "keyspaces":
		t = newFakeTable([]string{"keyspace_name"}, []string{"text"}, []string{"keyspace_name"})
		for ksname := range c.keyspaces {
			t.rows = append(t.rows, cellMap{"keyspace_name": literalValue(ksname)})
		}
	case "tables":
		t = newFakeTable([]string{"keyspace_name", "table_name"}, []string{"text", "text"},
			[]string{"keyspace_name", "table_name"})
		for ksname, ks := range c.keyspaces {
			for tname := range ks.tables {
				t.rows = append(t.rows, cellMap{
					"keyspace_name": literalValue(ksname),
					"table_name":    literalValue(tname),
				})
			}
		}
	case "columns":
		t = newFakeTable([]string{"keyspace_name", "table_name", "column_name", "type"},
			[]string{"text", "text", "text", "text"},
			[]string{"keyspace_name", "table_name", "column_name"})
		for ksname, ks := range c.keyspaces {
			for tname, table := range ks.tables {
				for i, col := range table.columns {
					t.rows = append(t.rows, cellMap{
						"keyspace_name": literalValue(ksname),
						"table_name":    literalValue(tname),
						"column_name":   literalValue(col),
						"type":          literalValue(table.types[i]),
					})
				}
			}
		}
	default:
		return nil, errors.New("unconfigured table " + name)
	}
	t.rows.sortBy(t.key)
	return t, nil
}

type fakeSession struct {
	cluster *FakeCluster
	closed  bool
}

func (s *fakeSession) Query(ctx context.Context, stmt CQL) Query {
	if s.closed {
		return &fakeQuery{err: ErrSessionClosed}
	}
	if err := ctx.Err(); err != nil {
		return &fakeQuery{err: err}
	}
	results, err := s.cluster.execute(stmt)
	return &fakeQuery{results: results, err: err}
}

func (s *fakeSession) Close() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	s.cluster.mu.Lock()
	s.cluster.open--
	s.cluster.mu.Unlock()
	return nil
}

type fakeQuery struct {
	results resultSet
	err     error
}

func (q *fakeQuery) Close() error {
	return q.err
}

func (q *fakeQuery) Exec() error {
	return q.err
}

func (q *fakeQuery) Scan(dests ...interface{}) bool {
	if q.err != nil || len(q.results) < 1 {
		return false
	}
	result := q.results[0]
	q.results = q.results[1:]
	if len(result.columns) != len(dests) {
		q.err = errors.New("number of destinations and number of result cols do not match")
		return false
	}
	for i, addr := range dests {
		val := result.row[result.columns[i]]
		if err := gocql.Unmarshal(val.info, val.bytes, addr); err != nil {
			q.err = err
			return false
		}
	}
	return true
}

type fakeKeyspace struct {
	replication map[string]string
	tables      map[string]*fakeTable
}

type fakeTable struct {
	columns []string
	types   []string
	key     []string
	rows    cellRows
}

func newFakeTable(columns, types, key []string) *fakeTable {
	return &fakeTable{columns: columns, types: types, key: key, rows: make(cellRows, 0)}
}

func (t *fakeTable) columnType(name string) (gocql.TypeInfo, bool) {
	for i, col := range t.columns {
		if col == name {
			return fakeTypes[t.types[i]], true
		}
	}
	return nil, false
}

func (t *fakeTable) isKey(name string) bool {
	for _, k := range t.key {
		if k == name {
			return true
		}
	}
	return false
}

func (t *fakeTable) get(keyvals []*cellValue) cellMap {
	for _, row := range t.rows {
		if row.match(t.key, keyvals) {
			return row
		}
	}
	return nil
}

// set upserts a row by its key. With cas, an existing row is left untouched and false is returned.
func (t *fakeTable) set(cells cellMap, cas bool) (bool, error) {
	values := cells.valuesOf(t.key...)
	for i, v := range values {
		if v == nil || v.bytes == nil {
			return false, errors.New("missing mandatory PRIMARY KEY part " + t.key[i])
		}
	}
	row := t.get(values)
	if row != nil {
		if cas {
			return false, nil
		}
	} else {
		row = make(cellMap)
		t.rows = append(t.rows, row)
	}
	for k, v := range cells {
		if v.bytes == nil {
			delete(row, k)
		} else {
			row[k] = v
		}
	}
	return true, nil
}

func (t *fakeTable) query(cols []string, where []comparison, binds valueList) (resultSet, error) {
	if len(cols) == 1 && cols[0] == "*" {
		cols = t.columns
	}
	types := make([]gocql.TypeInfo, len(cols))
	for i, col := range cols {
		ti, ok := t.columnType(col)
		if !ok {
			return nil, errors.New("undefined column name " + col)
		}
		types[i] = ti
	}
	rows := make(resultSet, 0)
	for _, row := range t.rows {
		rowOk := true
		for _, cmp := range where {
			ok, err := cmp.match(row, binds)
			if err != nil {
				return nil, err
			}
			if !ok {
				rowOk = false
				break
			}
		}
		if rowOk {
			rows = append(rows, row.selectColumns(cols, types))
		}
	}
	return rows, nil
}

// comparison is an equality filter from a WHERE clause.
type comparison struct {
	col string
	val pval
}

func (cmp *comparison) match(row cellMap, binds valueList) (bool, error) {
	left, ok := row[cmp.col]
	if !ok || left == nil {
		return false, nil
	}
	c, err := left.cmp(cmp.val.get(binds))
	if err != nil {
		return false, err
	}
	return c == 0, nil
}

type selectedRow struct {
	row     cellMap
	columns []string
}

type resultSet []selectedRow

type cellRows []cellMap

func (rows cellRows) sortBy(cols []string) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, col := range cols {
			vi, vj := rows[i][col], rows[j][col]
			if vi == nil || vj == nil {
				continue
			}
			if c := bytes.Compare(vi.bytes, vj.bytes); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// cellMap holds the stored cells of one row, keyed by column name. Unset columns are absent.
type cellMap map[string]*cellValue

func (m cellMap) valuesOf(keys ...string) []*cellValue {
	result := make([]*cellValue, len(keys))
	for i, k := range keys {
		result[i] = m[k]
	}
	return result
}

func (m cellMap) match(key []string, values []*cellValue) bool {
	if len(key) != len(values) {
		return false
	}
	for i, k := range key {
		v, ok := m[k]
		if !ok || v == nil || values[i] == nil {
			return false
		}
		if c, err := v.cmp(values[i]); err != nil || c != 0 {
			return false
		}
	}
	return true
}

// selectColumns copies the named cells. Absent cells come back as typed nulls.
func (m cellMap) selectColumns(cols []string, types []gocql.TypeInfo) selectedRow {
	srow := selectedRow{row: make(cellMap, len(cols)), columns: cols}
	for i, col := range cols {
		if v, ok := m[col]; ok {
			srow.row[col] = v
		} else {
			srow.row[col] = &cellValue{info: types[i]}
		}
	}
	return srow
}

type valueList []*cellValue

var (
	tiVarchar = gocql.NewNativeType(4, gocql.TypeVarchar, "")
	tiUUID    = gocql.NewNativeType(4, gocql.TypeUUID, "")
	tiBigInt  = gocql.NewNativeType(4, gocql.TypeBigInt, "")
	tiBoolean = gocql.NewNativeType(4, gocql.TypeBoolean, "")
)

var fakeTypes = map[string]gocql.TypeInfo{
	"text":    tiVarchar,
	"varchar": tiVarchar,
	"uuid":    tiUUID,
	"bigint":  tiBigInt,
	"boolean": tiBoolean,
}

// cellValue is a marshalled cell. A nil bytes slice is a null.
type cellValue struct {
	bytes []byte
	info  gocql.TypeInfo
}

func (v *cellValue) String() string {
	if v.bytes == nil {
		return "null"
	}
	var dest interface{}
	switch v.info.Type() {
	case gocql.TypeVarchar:
		dest = new(string)
	case gocql.TypeUUID:
		dest = new(gocql.UUID)
	case gocql.TypeBigInt:
		dest = new(int64)
	case gocql.TypeBoolean:
		dest = new(bool)
	default:
		return fmt.Sprintf("%x", v.bytes)
	}
	if err := gocql.Unmarshal(v.info, v.bytes, dest); err != nil {
		return "<error>"
	}
	return fmt.Sprint(reflect.ValueOf(dest).Elem().Interface())
}

func (v *cellValue) cmp(w *cellValue) (int, error) {
	if w == nil || w.info == nil || v.info.Type() != w.info.Type() {
		return 0, errors.New("different types are not comparable")
	}
	if v.info.Type() == gocql.TypeBigInt {
		var x, y int64
		if err := gocql.Unmarshal(v.info, v.bytes, &x); err != nil {
			return 0, err
		}
		if err := gocql.Unmarshal(w.info, w.bytes, &y); err != nil {
			return 0, err
		}
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	}
	return bytes.Compare(v.bytes, w.bytes), nil
}

// literalValue marshals a bound parameter or a literal from statement text.
func literalValue(val interface{}) *cellValue {
	var ti gocql.TypeInfo
	switch val.(type) {
	case *cellValue:
		return val.(*cellValue)
	case nil:
		return &cellValue{}
	case bool:
		ti = tiBoolean
	case int, int64:
		ti = tiBigInt
	case string:
		ti = tiVarchar
	case gocql.UUID:
		ti = tiUUID
	}
	if ti == nil {
		return nil
	}
	marshalled, err := gocql.Marshal(ti, val)
	if err != nil {
		return nil
	}
	return &cellValue{bytes: marshalled, info: ti}
}

type pval struct {
	value    *cellValue
	varIndex int
}

func (p pval) get(binds valueList) *cellValue {
	if p.value == nil {
		return binds[p.varIndex]
	}
	return p.value
}

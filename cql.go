package reviewdb

import "fmt"
import "strings"

var placeholderListString string

func init() {
	p := make([]string, 100)
	for i := 0; i < len(p); i++ {
		p[i] = "?"
	}
	placeholderListString = strings.Join(p, ", ")
}

func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return placeholderListString[:3*(n-1)+1]
}

// PreparedCQL is a string containing a CQL statement that may contain placeholders ('?').
type PreparedCQL string

// Bind returns a CQL value, associating a prepared CQL statement with values for its placeholders.
func (pcql PreparedCQL) Bind(params ...interface{}) CQL {
	return CQL{PreparedCQL: pcql, params: params}
}

// CQL is a PreparedCQL value associated with values for its placeholders. Values are always sent
// to the cluster as bound parameters and never spliced into the statement text.
type CQL struct {
	PreparedCQL
	params []interface{}
}

// String returns the prepared CQL string.
func (cql CQL) String() string {
	return string(cql.PreparedCQL)
}

// Params returns the values bound to the statement's placeholders.
func (cql CQL) Params() []interface{} {
	return cql.params
}

// CQLBuilder is a sequence of CQL values, which may be fragments of proper CQL bound with values
// for placeholders. This is for convenience of constructing CQL programmatically in a declarative
// fashion.
type CQLBuilder []CQL

func (b CQLBuilder) join(prefix, conn string) (result CQL) {
	if len(b) == 0 {
		return
	}
	terms := make([]string, len(b))
	np := 0
	for i, p := range b {
		terms[i] = string(p.PreparedCQL)
		np += len(p.params)
	}
	result.PreparedCQL = PreparedCQL(prefix + strings.Join(terms, conn))
	result.params = make([]interface{}, 0, np)
	for _, p := range b {
		result.params = append(result.params, p.params...)
	}
	return
}

// CQL combines all of the fragments of the builder into a single CQL value.
func (b CQLBuilder) CQL() CQL {
	return b.join("", "")
}

// Clear reinitializes the builder to an empty state.
func (b *CQLBuilder) Clear() *CQLBuilder {
	*b = make(CQLBuilder, 0)
	return b
}

// Append adds a CQL fragment to the end. Values for placeholders in the fragment may be given as
// additional arguments.
func (b *CQLBuilder) Append(term string, params ...interface{}) *CQLBuilder {
	if *b == nil {
		*b = make(CQLBuilder, 0)
	}
	*b = append(*b, CQL{PreparedCQL: PreparedCQL(term), params: params})
	return b
}

// AppendCQL adds a CQL value as a fragment to the end of the builder. If the given CQL has bound
// values for placeholders, they are included.
func (b *CQLBuilder) AppendCQL(cql CQL) *CQLBuilder {
	return b.Append(string(cql.PreparedCQL), cql.params...)
}

// SelectBuilder provides a declarative interface for building CQL SELECT statements.
type SelectBuilder struct {
	table          string
	cols           []string
	where          CQLBuilder
	limit          int
	allowFiltering bool
}

// Select initializes and returns a SelectBuilder for the given columns. With no columns, or a
// lone "*", every column is selected.
//
//	Select("product_name", "price").From("shop.products").Where("rating = ?", "5").Limit(1)
func Select(cols ...string) *SelectBuilder {
	sel := &SelectBuilder{cols: cols}
	if len(cols) == 1 && cols[0] == "*" {
		sel.cols = nil
	}
	return sel
}

// From gives the (possibly keyspace-qualified) table to select from.
func (sel *SelectBuilder) From(table string) *SelectBuilder {
	sel.table = table
	return sel
}

// Where specifies a term for the WHERE clause of the statement. If Where is called multiple times
// on a builder, the given terms will be combined with the AND operator.
func (sel *SelectBuilder) Where(term string, params ...interface{}) *SelectBuilder {
	sel.where.Append(term, params...)
	return sel
}

// Limit specifies a limit on the number of returned rows.
func (sel *SelectBuilder) Limit(limit int) *SelectBuilder {
	sel.limit = limit
	return sel
}

// AllowFiltering permits the WHERE clause to restrict non-key columns.
func (sel *SelectBuilder) AllowFiltering() *SelectBuilder {
	sel.allowFiltering = true
	return sel
}

// CQL compiles the built select statement.
func (sel *SelectBuilder) CQL() CQL {
	var b CQLBuilder
	b.Append("SELECT ")
	if len(sel.cols) == 0 {
		b.Append("*")
	} else {
		b.Append(strings.Join(sel.cols, ", "))
	}
	b.Append(" FROM ")
	b.Append(sel.table)
	if sel.where != nil {
		b.AppendCQL(sel.where.join(" WHERE ", " AND "))
	}
	if sel.limit != 0 {
		b.Append(fmt.Sprintf(" LIMIT %d", sel.limit))
	}
	if sel.allowFiltering {
		b.Append(" ALLOW FILTERING")
	}
	return b.CQL()
}

// InsertBuilder provides a declarative interface for building CQL INSERT statements.
type InsertBuilder struct {
	table  string
	keys   []string
	values []interface{}
	cas    bool
}

// InsertInto initializes and returns an InsertBuilder for declaring an insert statement on the
// given table.
//
//	InsertInto("shop.products").Keys("id", "product_name").Values(id, "Widget")
func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table, keys: make([]string, 0), values: make([]interface{}, 0)}
}

// Keys specifies the names of columns to insert.
func (ins *InsertBuilder) Keys(keys ...string) *InsertBuilder {
	ins.keys = append(ins.keys, keys...)
	return ins
}

// Values specifies the values of the inserted columns.
func (ins *InsertBuilder) Values(values ...interface{}) *InsertBuilder {
	ins.values = append(ins.values, values...)
	return ins
}

// IfNotExists turns this into a CAS statement by appending IF NOT EXISTS.
func (ins *InsertBuilder) IfNotExists() *InsertBuilder {
	ins.cas = true
	return ins
}

// CQL compiles the built insert statement.
func (ins *InsertBuilder) CQL() CQL {
	var b CQLBuilder
	b.Append("INSERT INTO ")
	b.Append(ins.table)
	b.Append(" (")
	b.Append(strings.Join(ins.keys, ", "))
	b.Append(") VALUES (")
	b.Append(placeholderList(len(ins.values)), ins.values...)
	b.Append(")")
	if ins.cas {
		b.Append(" IF NOT EXISTS")
	}
	return b.CQL()
}

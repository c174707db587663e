// Package frame converts review rows to and from Apache Arrow record batches, for reporting tools
// that work on tabular data.
package frame

import "context"
import "fmt"
import "strings"

import "github.com/apache/arrow-go/v18/arrow"
import "github.com/apache/arrow-go/v18/arrow/array"
import "github.com/apache/arrow-go/v18/arrow/memory"

import "github.com/logan/reviewdb"

// Schema is the layout of every exported frame: the content columns of the review schema, in
// order, as nullable strings. The generated id is not part of a frame.
var Schema = newSchema()

func newSchema() *arrow.Schema {
	cols := reviewdb.RecordColumns()
	fields := make([]arrow.Field, len(cols))
	for i, col := range cols {
		fields[i] = arrow.Field{Name: col.Name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// Source is satisfied by *reviewdb.Store.
type Source interface {
	FindAll(ctx context.Context, keyspace, table string) ([]reviewdb.Row, error)
}

// Sink is satisfied by *reviewdb.Store.
type Sink interface {
	InsertMany(ctx context.Context, keyspace, table string, records []reviewdb.Record) reviewdb.InsertResults
}

// Export reads every row of the table into a record batch with the layout of Schema. The caller
// must Release the result.
func Export(ctx context.Context, src Source, keyspace, table string) (arrow.RecordBatch, error) {
	rows, err := src.FindAll(ctx, keyspace, table)
	if err != nil {
		return nil, err
	}
	records := make([]reviewdb.Record, len(rows))
	for i, row := range rows {
		records[i] = row.Record
	}
	return Build(memory.NewGoAllocator(), records), nil
}

// Build lays out records as a record batch with the layout of Schema. Unset fields become nulls.
func Build(mem memory.Allocator, records []reviewdb.Record) arrow.RecordBatch {
	cols := reviewdb.RecordColumns()
	arrs := make([]arrow.Array, len(cols))
	for i, col := range cols {
		b := array.NewStringBuilder(mem)
		b.Reserve(len(records))
		for _, r := range records {
			if v, _ := r.Get(col.Name); v != nil {
				b.Append(*v)
			} else {
				b.AppendNull()
			}
		}
		arrs[i] = b.NewArray()
		b.Release()
	}
	rec := array.NewRecordBatch(Schema, arrs, int64(len(records)))
	for _, arr := range arrs {
		arr.Release()
	}
	return rec
}

// Records converts each row of a record batch into a Record. Columns are matched to the review
// schema by name, case-insensitively, in any order; columns may be missing. An id column is
// ignored, since every stored row gets a new one. Any other unknown column, or a column that
// isn't a string column, fails the whole conversion.
func Records(rec arrow.RecordBatch) ([]reviewdb.Record, error) {
	type source struct {
		name string
		arr  *array.String
	}
	var sources []source
	for i, field := range rec.Schema().Fields() {
		name := strings.ToLower(field.Name)
		if name == reviewdb.IDColumn {
			continue
		}
		if !reviewdb.IsRecordColumn(name) {
			return nil, reviewdb.WrapError(reviewdb.ErrConversion,
				fmt.Sprintf("unknown frame column %q", field.Name), reviewdb.ErrInvalidRecord)
		}
		arr, ok := rec.Column(i).(*array.String)
		if !ok {
			return nil, reviewdb.WrapError(reviewdb.ErrConversion,
				fmt.Sprintf("frame column %q has type %s, want utf8", field.Name, field.Type),
				reviewdb.ErrInvalidRecord)
		}
		sources = append(sources, source{name: name, arr: arr})
	}

	records := make([]reviewdb.Record, rec.NumRows())
	for _, src := range sources {
		for i := range records {
			if src.arr.IsNull(i) {
				continue
			}
			if err := records[i].Set(src.name, reviewdb.String(src.arr.Value(i))); err != nil {
				return nil, err
			}
		}
	}
	return records, nil
}

// Import stores every row of a record batch with InsertMany semantics: rows that fail are
// reported in the results and the others are still stored. A frame whose columns don't fit the
// review schema is rejected before anything is stored.
func Import(ctx context.Context, dst Sink, keyspace, table string, rec arrow.RecordBatch) (reviewdb.InsertResults, error) {
	records, err := Records(rec)
	if err != nil {
		return nil, err
	}
	return dst.InsertMany(ctx, keyspace, table, records), nil
}

package frame

import "io"

import "github.com/apache/arrow-go/v18/arrow"
import "github.com/apache/arrow-go/v18/arrow/csv"
import "github.com/apache/arrow-go/v18/arrow/memory"
import "github.com/pkg/errors"

// WriteCSV writes rec as CSV with a header row. Nulls are written as empty fields.
func WriteCSV(w io.Writer, rec arrow.RecordBatch) error {
	cw := csv.NewWriter(w, rec.Schema(), csv.WithHeader(true), csv.WithNullWriter(""))
	if err := cw.Write(rec); err != nil {
		return errors.Wrap(err, "write csv")
	}
	return errors.Wrap(cw.Flush(), "write csv")
}

// ReadCSV reads a CSV file with a header row and the columns of Schema, in order, into a single
// record batch. Empty fields read as nulls, so an empty string doesn't survive a trip through
// CSV. The caller must Release the result.
func ReadCSV(r io.Reader) (arrow.RecordBatch, error) {
	cr := csv.NewReader(r, Schema,
		csv.WithHeader(true),
		csv.WithNullReader(true, ""),
		csv.WithChunk(-1),
		csv.WithAllocator(memory.NewGoAllocator()))
	defer cr.Release()

	if !cr.Next() {
		if err := cr.Err(); err != nil {
			return nil, errors.Wrap(err, "read csv")
		}
		return Build(memory.NewGoAllocator(), nil), nil
	}
	rec := cr.Record()
	rec.Retain()
	if err := cr.Err(); err != nil {
		rec.Release()
		return nil, errors.Wrap(err, "read csv")
	}
	return rec, nil
}

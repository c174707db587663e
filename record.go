package reviewdb

import "fmt"
import "reflect"
import "sort"
import "strings"
import "unicode/utf8"

import "github.com/gocql/gocql"

// Record is one product review. Every field is optional; a nil field is left unset in the
// stored row.
type Record struct {
	ProductName     *string `cql:"product_name"`
	ProductSearched *string `cql:"product_searched"`
	Price           *string `cql:"price"`
	OfferDetails    *string `cql:"offer_details"`
	DiscountPercent *string `cql:"discount_percent"`
	EMI             *string `cql:"emi"`
	Rating          *string `cql:"rating"`
	Comment         *string `cql:"comment"`
	CustomerName    *string `cql:"customer_name"`
	ReviewAge       *string `cql:"review_age"`
}

// Row is a stored Record together with its generated id.
type Row struct {
	ID gocql.UUID
	Record
}

// String returns a pointer to s, for filling in Record fields.
func String(s string) *string {
	return &s
}

// A Column gives the name and data type of a column. The value of Type is a CQL data type.
type Column struct {
	Name string
	Type string
}

var (
	recordColumns    []Column
	recordFieldIndex map[string]int
)

func init() {
	recordColumns, recordFieldIndex = columnsFromStructType(reflect.TypeOf(Record{}))
}

func columnsFromStructType(structType reflect.Type) ([]Column, map[string]int) {
	cols := make([]Column, 0, structType.NumField())
	index := make(map[string]int, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		name := field.Tag.Get("cql")
		if name == "" || field.Type != reflect.TypeOf((*string)(nil)) {
			continue
		}
		cols = append(cols, Column{Name: name, Type: "text"})
		index[name] = i
	}
	return cols, index
}

// RecordColumns returns the ten content columns of the fixed schema, in schema order.
func RecordColumns() []Column {
	cols := make([]Column, len(recordColumns))
	copy(cols, recordColumns)
	return cols
}

// IsRecordColumn reports whether name is one of the ten content columns.
func IsRecordColumn(name string) bool {
	_, ok := recordFieldIndex[name]
	return ok
}

func (r *Record) field(name string) (reflect.Value, bool) {
	i, ok := recordFieldIndex[name]
	if !ok {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(r).Elem().Field(i), true
}

// Get returns the value of the named column, and false if the column is not part of the schema.
func (r *Record) Get(name string) (*string, bool) {
	f, ok := r.field(name)
	if !ok {
		return nil, false
	}
	return f.Interface().(*string), true
}

// Set assigns the named column. Assigning nil unsets it.
func (r *Record) Set(name string, value *string) error {
	f, ok := r.field(name)
	if !ok {
		return WrapError(ErrConversion, "unknown column "+name, ErrInvalidRecord)
	}
	f.Set(reflect.ValueOf(value))
	return nil
}

// ParseRecord builds a Record from a free-form column map. Keys that are not part of the fixed
// schema are rejected.
func ParseRecord(m map[string]string) (Record, error) {
	var r Record
	var unknown []string
	for k, v := range m {
		name := strings.ToLower(k)
		if err := r.Set(name, String(v)); err != nil {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Record{}, WrapError(ErrConversion,
			"unknown columns "+strings.Join(unknown, ", "), ErrInvalidRecord)
	}
	return r, nil
}

// Map returns the set columns of the record.
func (r Record) Map() map[string]string {
	m := make(map[string]string)
	for _, col := range recordColumns {
		if v, _ := r.Get(col.Name); v != nil {
			m[col.Name] = *v
		}
	}
	return m
}

// Validate checks that the record can be stored: at least one column must be set, and every set
// value must be valid UTF-8 text.
func (r Record) Validate() error {
	set := 0
	for _, col := range recordColumns {
		v, _ := r.Get(col.Name)
		if v == nil {
			continue
		}
		set++
		if !utf8.ValidString(*v) {
			return WrapError(ErrConversion,
				fmt.Sprintf("column %s is not valid UTF-8", col.Name), ErrInvalidRecord)
		}
	}
	if set == 0 {
		return WrapError(ErrConversion, "record has no values", ErrInvalidRecord)
	}
	return nil
}

// assigned returns the names and values of the set columns, in schema order.
func (r Record) assigned() ([]string, []interface{}) {
	var names []string
	var values []interface{}
	for _, col := range recordColumns {
		if v, _ := r.Get(col.Name); v != nil {
			names = append(names, col.Name)
			values = append(values, *v)
		}
	}
	return names, values
}

// pointers returns scan destinations for id followed by every content column.
func (row *Row) pointers() []interface{} {
	dest := make([]interface{}, 0, len(recordColumns)+1)
	dest = append(dest, &row.ID)
	v := reflect.ValueOf(&row.Record).Elem()
	for _, col := range recordColumns {
		dest = append(dest, v.Field(recordFieldIndex[col.Name]).Addr().Interface())
	}
	return dest
}

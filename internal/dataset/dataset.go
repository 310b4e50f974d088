// Package dataset provides the in-memory table that flows through the
// processing stages: an ordered set of typed columns and positional rows.
//
// Stages never mutate a Dataset they were handed. They Clone it and return
// the copy, so a caller can keep using its input after a stage runs.
package dataset

import (
	"math"
	"time"
)

// Kind is the type of a single cell or column.
type Kind uint8

const (
	Null Kind = iota
	Text
	Number
	Time
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Number:
		return "number"
	case Time:
		return "timestamp"
	default:
		return "null"
	}
}

// Value is one cell. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Time time.Time
}

// NullValue returns the null marker.
func NullValue() Value { return Value{} }

// TextValue wraps a string.
func TextValue(s string) Value { return Value{Kind: Text, Str: s} }

// NumberValue wraps a float. NaN is stored as null.
func NumberValue(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{Kind: Number, Num: f}
}

// TimeValue wraps a timestamp. The zero time is stored as null.
func TimeValue(t time.Time) Value {
	if t.IsZero() {
		return Value{}
	}
	return Value{Kind: Time, Time: t}
}

// IsNull reports whether the cell holds no value.
func (v Value) IsNull() bool { return v.Kind == Null }

// Column describes one column of a Dataset.
type Column struct {
	Name string
	Type Kind
}

// Dataset is a homogeneous table. Rows[i][j] belongs to Columns[j].
type Dataset struct {
	Name    string
	Columns []Column
	Rows    [][]Value
}

// New creates an empty dataset with the given columns.
func New(name string, columns ...Column) *Dataset {
	cols := make([]Column, len(columns))
	copy(cols, columns)
	return &Dataset{Name: name, Columns: cols}
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	out := &Dataset{
		Name:    d.Name,
		Columns: make([]Column, len(d.Columns)),
		Rows:    make([][]Value, len(d.Rows)),
	}
	copy(out.Columns, d.Columns)
	for i, row := range d.Rows {
		r := make([]Value, len(row))
		copy(r, row)
		out.Rows[i] = r
	}
	return out
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the first column named name, or -1.
func (d *Dataset) Index(name string) int {
	for i, c := range d.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether a column named name exists.
func (d *Dataset) Has(name string) bool { return d.Index(name) >= 0 }

// AppendRow adds a row. Short rows are padded with nulls and long rows
// are truncated to the column count.
func (d *Dataset) AppendRow(values ...Value) {
	row := make([]Value, len(d.Columns))
	copy(row, values)
	d.Rows = append(d.Rows, row)
}

// SetColumn replaces the values of the named column, or appends a new
// column when it does not exist yet. len(values) must equal Len().
func (d *Dataset) SetColumn(name string, typ Kind, values []Value) {
	idx := d.Index(name)
	if idx < 0 {
		d.Columns = append(d.Columns, Column{Name: name, Type: typ})
		for i := range d.Rows {
			d.Rows[i] = append(d.Rows[i], values[i])
		}
		return
	}
	d.Columns[idx].Type = typ
	for i := range d.Rows {
		d.Rows[i][idx] = values[i]
	}
}

// Numbers returns the non-null numeric values of a column, in row order.
func (d *Dataset) Numbers(name string) []float64 {
	idx := d.Index(name)
	if idx < 0 {
		return nil
	}
	return d.NumbersAt(idx)
}

// NumbersAt is Numbers for the column at position idx.
func (d *Dataset) NumbersAt(idx int) []float64 {
	out := make([]float64, 0, len(d.Rows))
	for _, row := range d.Rows {
		if row[idx].Kind == Number {
			out = append(out, row[idx].Num)
		}
	}
	return out
}

// NullCount returns the number of null cells in the column at idx.
func (d *Dataset) NullCount(idx int) int {
	n := 0
	for _, row := range d.Rows {
		if row[idx].IsNull() {
			n++
		}
	}
	return n
}

// Package frame holds a fully materialized columnar table: typed column
// slices with validity masks, bridged to Apache Arrow for parquet I/O.
package frame

import (
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"

	"demopipe/model"
)

// Column is one named, typed column. Implementations wrap a native slice
// plus an optional validity mask (nil mask means no nulls).
type Column interface {
	Name() string
	Len() int
	// TypeName is the canonical schema type string (arrow naming).
	TypeName() string
	Numeric() bool
	Null(i int) bool
	Value(i int) model.Value
	// MinMax scans non-null values; ok is false for non-numeric columns and
	// for columns with no non-null values.
	MinMax() (min, max model.Value, ok bool)

	arrowType() arrow.DataType
	appendTo(b array.Builder)
}

type columnBase struct {
	name  string
	valid []bool
}

func (c *columnBase) Name() string { return c.name }

func (c *columnBase) Null(i int) bool {
	return c.valid != nil && !c.valid[i]
}

// Int64Column holds signed 64-bit integers.
type Int64Column struct {
	columnBase
	values []int64
}

func NewInt64Column(name string, values []int64, valid []bool) *Int64Column {
	return &Int64Column{columnBase{name, valid}, values}
}

func (c *Int64Column) Len() int         { return len(c.values) }
func (c *Int64Column) TypeName() string { return arrow.PrimitiveTypes.Int64.String() }
func (c *Int64Column) Numeric() bool    { return true }

func (c *Int64Column) arrowType() arrow.DataType { return arrow.PrimitiveTypes.Int64 }

func (c *Int64Column) Value(i int) model.Value {
	if c.Null(i) {
		return model.NullValue()
	}
	return model.IntValue(c.values[i])
}

func (c *Int64Column) MinMax() (model.Value, model.Value, bool) {
	var mn, mx int64
	seen := false
	for i, v := range c.values {
		if c.Null(i) {
			continue
		}
		if !seen || v < mn {
			mn = v
		}
		if !seen || v > mx {
			mx = v
		}
		seen = true
	}
	if !seen {
		return model.NullValue(), model.NullValue(), false
	}
	return model.IntValue(mn), model.IntValue(mx), true
}

func (c *Int64Column) appendTo(b array.Builder) {
	b.(*array.Int64Builder).AppendValues(c.values, c.valid)
}

// Float64Column holds 64-bit floats.
type Float64Column struct {
	columnBase
	values []float64
}

func NewFloat64Column(name string, values []float64, valid []bool) *Float64Column {
	return &Float64Column{columnBase{name, valid}, values}
}

func (c *Float64Column) Len() int         { return len(c.values) }
func (c *Float64Column) TypeName() string { return arrow.PrimitiveTypes.Float64.String() }
func (c *Float64Column) Numeric() bool    { return true }

func (c *Float64Column) arrowType() arrow.DataType { return arrow.PrimitiveTypes.Float64 }

func (c *Float64Column) Value(i int) model.Value {
	if c.Null(i) {
		return model.NullValue()
	}
	return model.FloatValue(c.values[i])
}

func (c *Float64Column) MinMax() (model.Value, model.Value, bool) {
	var mn, mx float64
	seen := false
	for i, v := range c.values {
		if c.Null(i) {
			continue
		}
		if !seen || v < mn {
			mn = v
		}
		if !seen || v > mx {
			mx = v
		}
		seen = true
	}
	if !seen {
		return model.NullValue(), model.NullValue(), false
	}
	return model.FloatValue(mn), model.FloatValue(mx), true
}

func (c *Float64Column) appendTo(b array.Builder) {
	b.(*array.Float64Builder).AppendValues(c.values, c.valid)
}

// StringColumn holds UTF-8 strings.
type StringColumn struct {
	columnBase
	values []string
}

func NewStringColumn(name string, values []string, valid []bool) *StringColumn {
	return &StringColumn{columnBase{name, valid}, values}
}

func (c *StringColumn) Len() int         { return len(c.values) }
func (c *StringColumn) TypeName() string { return arrow.BinaryTypes.String.String() }
func (c *StringColumn) Numeric() bool    { return false }

func (c *StringColumn) arrowType() arrow.DataType { return arrow.BinaryTypes.String }

func (c *StringColumn) Value(i int) model.Value {
	if c.Null(i) {
		return model.NullValue()
	}
	return model.StringValue(c.values[i])
}

func (c *StringColumn) MinMax() (model.Value, model.Value, bool) {
	return model.NullValue(), model.NullValue(), false
}

func (c *StringColumn) appendTo(b array.Builder) {
	b.(*array.StringBuilder).AppendValues(c.values, c.valid)
}

// BoolColumn holds booleans.
type BoolColumn struct {
	columnBase
	values []bool
}

func NewBoolColumn(name string, values []bool, valid []bool) *BoolColumn {
	return &BoolColumn{columnBase{name, valid}, values}
}

func (c *BoolColumn) Len() int         { return len(c.values) }
func (c *BoolColumn) TypeName() string { return arrow.FixedWidthTypes.Boolean.String() }
func (c *BoolColumn) Numeric() bool    { return false }

func (c *BoolColumn) arrowType() arrow.DataType { return arrow.FixedWidthTypes.Boolean }

func (c *BoolColumn) Value(i int) model.Value {
	if c.Null(i) {
		return model.NullValue()
	}
	return model.BoolValue(c.values[i])
}

func (c *BoolColumn) MinMax() (model.Value, model.Value, bool) {
	return model.NullValue(), model.NullValue(), false
}

func (c *BoolColumn) appendTo(b array.Builder) {
	b.(*array.BooleanBuilder).AppendValues(c.values, c.valid)
}

// Frame is an ordered set of equal-length columns.
type Frame struct {
	cols   []Column
	byName map[string]int
}

func New(cols ...Column) (*Frame, error) {
	f := &Frame{byName: make(map[string]int, len(cols))}
	for _, c := range cols {
		if err := f.addColumn(c); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Frame) addColumn(c Column) error {
	if _, ok := f.byName[c.Name()]; ok {
		return fmt.Errorf("duplicate column %q", c.Name())
	}
	if len(f.cols) > 0 && c.Len() != f.cols[0].Len() {
		return fmt.Errorf("column %q has %d rows, expected %d", c.Name(), c.Len(), f.cols[0].Len())
	}
	f.byName[c.Name()] = len(f.cols)
	f.cols = append(f.cols, c)
	return nil
}

func (f *Frame) NumRows() int64 {
	if len(f.cols) == 0 {
		return 0
	}
	return int64(f.cols[0].Len())
}

func (f *Frame) Columns() []Column { return f.cols }

func (f *Frame) Column(name string) (Column, bool) {
	i, ok := f.byName[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// Schema maps column name to canonical type name, in no particular order.
func (f *Frame) Schema() map[string]string {
	out := make(map[string]string, len(f.cols))
	for _, c := range f.cols {
		out[c.Name()] = c.TypeName()
	}
	return out
}

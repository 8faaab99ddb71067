// Package columnar provides the typed in-memory table the parsing engine
// writes into. Columns are stored as flat typed slices with an explicit
// missing-value mask; string cells are copied out of the input buffer at
// append time, so the table outlives the parse.
package columnar

import (
	"fmt"

	"github.com/axiomdata/tabread/pkg/reader"
)

// Column is the base interface for typed column storage.
type Column interface {
	Type() reader.Type
	Len() int
	// Get returns the value at i, or nil for a missing cell.
	Get(i int) interface{}
	IsNA(i int) bool
	MemoryUsage() int64
}

// BoolColumn stores booleans.
type BoolColumn struct {
	values []bool
	na     []bool
}

func NewBoolColumn(capacity int) *BoolColumn {
	return &BoolColumn{
		values: make([]bool, 0, capacity),
		na:     make([]bool, 0, capacity),
	}
}

func (c *BoolColumn) Type() reader.Type { return reader.TypeBool }
func (c *BoolColumn) Len() int          { return len(c.values) }
func (c *BoolColumn) IsNA(i int) bool   { return c.na[i] }

func (c *BoolColumn) Get(i int) interface{} {
	if c.na[i] {
		return nil
	}
	return c.values[i]
}

func (c *BoolColumn) Append(v bool, missing bool) {
	c.values = append(c.values, v)
	c.na = append(c.na, missing)
}

func (c *BoolColumn) MemoryUsage() int64 {
	return int64(len(c.values)) * 2
}

// Int32Column stores 32-bit integers.
type Int32Column struct {
	values []int32
	na     []bool
}

func NewInt32Column(capacity int) *Int32Column {
	return &Int32Column{
		values: make([]int32, 0, capacity),
		na:     make([]bool, 0, capacity),
	}
}

func (c *Int32Column) Type() reader.Type { return reader.TypeInt32 }
func (c *Int32Column) Len() int          { return len(c.values) }
func (c *Int32Column) IsNA(i int) bool   { return c.na[i] }

func (c *Int32Column) Get(i int) interface{} {
	if c.na[i] {
		return nil
	}
	return c.values[i]
}

func (c *Int32Column) Append(v int32, missing bool) {
	c.values = append(c.values, v)
	c.na = append(c.na, missing)
}

func (c *Int32Column) MemoryUsage() int64 {
	return int64(len(c.values)) * 5
}

// Int64Column stores 64-bit integers.
type Int64Column struct {
	values []int64
	na     []bool
}

func NewInt64Column(capacity int) *Int64Column {
	return &Int64Column{
		values: make([]int64, 0, capacity),
		na:     make([]bool, 0, capacity),
	}
}

func (c *Int64Column) Type() reader.Type { return reader.TypeInt64 }
func (c *Int64Column) Len() int          { return len(c.values) }
func (c *Int64Column) IsNA(i int) bool   { return c.na[i] }

func (c *Int64Column) Get(i int) interface{} {
	if c.na[i] {
		return nil
	}
	return c.values[i]
}

func (c *Int64Column) Append(v int64, missing bool) {
	c.values = append(c.values, v)
	c.na = append(c.na, missing)
}

func (c *Int64Column) MemoryUsage() int64 {
	return int64(len(c.values)) * 9
}

// Float64Column stores doubles.
type Float64Column struct {
	values []float64
	na     []bool
}

func NewFloat64Column(capacity int) *Float64Column {
	return &Float64Column{
		values: make([]float64, 0, capacity),
		na:     make([]bool, 0, capacity),
	}
}

func (c *Float64Column) Type() reader.Type { return reader.TypeFloat64 }
func (c *Float64Column) Len() int          { return len(c.values) }
func (c *Float64Column) IsNA(i int) bool   { return c.na[i] }

func (c *Float64Column) Get(i int) interface{} {
	if c.na[i] {
		return nil
	}
	return c.values[i]
}

func (c *Float64Column) Append(v float64, missing bool) {
	c.values = append(c.values, v)
	c.na = append(c.na, missing)
}

func (c *Float64Column) MemoryUsage() int64 {
	return int64(len(c.values)) * 9
}

// StringColumn stores strings copied out of the input buffer.
type StringColumn struct {
	values []string
	na     []bool
	bytes  int64
}

func NewStringColumn(capacity int) *StringColumn {
	return &StringColumn{
		values: make([]string, 0, capacity),
		na:     make([]bool, 0, capacity),
	}
}

func (c *StringColumn) Type() reader.Type { return reader.TypeString }
func (c *StringColumn) Len() int          { return len(c.values) }
func (c *StringColumn) IsNA(i int) bool   { return c.na[i] }

func (c *StringColumn) Get(i int) interface{} {
	if c.na[i] {
		return nil
	}
	return c.values[i]
}

func (c *StringColumn) Append(v string, missing bool) {
	c.values = append(c.values, v)
	c.na = append(c.na, missing)
	c.bytes += int64(len(v))
}

func (c *StringColumn) MemoryUsage() int64 {
	return c.bytes + int64(len(c.values))*17
}

// newColumn creates a column of the given type.
func newColumn(t reader.Type, capacity int) (Column, error) {
	switch t {
	case reader.TypeBool:
		return NewBoolColumn(capacity), nil
	case reader.TypeInt32:
		return NewInt32Column(capacity), nil
	case reader.TypeInt64:
		return NewInt64Column(capacity), nil
	case reader.TypeFloat64:
		return NewFloat64Column(capacity), nil
	case reader.TypeString:
		return NewStringColumn(capacity), nil
	default:
		return nil, fmt.Errorf("unsupported column type %v", t)
	}
}

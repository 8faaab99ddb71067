package reader

import (
	"math"
)

// Type is the inferred storage type of a column. Types form a widening
// ladder: when a field fails to parse under a column's current type, the
// column is promoted to the next type and the field retried.
type Type int8

const (
	// TypeBool stores the configured boolean literal pair
	TypeBool Type = iota
	// TypeInt32 stores 32-bit signed integers
	TypeInt32
	// TypeInt64 stores 64-bit signed integers
	TypeInt64
	// TypeFloat64 stores IEEE 754 doubles
	TypeFloat64
	// TypeString stores zero-copy references into the input buffer
	TypeString

	numTypes = int(TypeString) + 1
)

func (t Type) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the supported column types.
func (t Type) Valid() bool {
	return t >= TypeBool && t <= TypeString
}

// Missing-value sentinels. The active variant of a Field64 is decided by
// the destination column's type, so each type carries its own sentinel.
// The integer sentinels are reserved: the parsers exclude MinInt32 and
// MinInt64 from the valid range so their literals widen the column.
const (
	naBool    = uint64(0x80)
	naInt32   = math.MinInt32
	naInt64   = math.MinInt64
	naStrLen  = int32(-1)
	naFloat64 = uint64(0x7ff00000000007a2) // quiet NaN with a private payload
)

// Field64 is a fixed 8-byte tagged value slot written by exactly one field
// parser call and read by exactly one consumer. It holds one of: missing,
// bool, int32, int64, float64, or a string reference (offset and length
// relative to the chunk anchor). The slot itself carries no tag: the
// consumer decides the variant from the column's currently-inferred type.
type Field64 uint64

// SetBool stores a boolean value.
func (f *Field64) SetBool(v bool) {
	if v {
		*f = 1
	} else {
		*f = 0
	}
}

// Bool returns the stored boolean.
func (f Field64) Bool() bool {
	return f == 1
}

// SetInt32 stores a 32-bit integer.
func (f *Field64) SetInt32(v int32) {
	*f = Field64(uint32(v))
}

// Int32 returns the stored 32-bit integer.
func (f Field64) Int32() int32 {
	return int32(uint32(f))
}

// SetInt64 stores a 64-bit integer.
func (f *Field64) SetInt64(v int64) {
	*f = Field64(uint64(v))
}

// Int64 returns the stored 64-bit integer.
func (f Field64) Int64() int64 {
	return int64(f)
}

// SetFloat64 stores a double.
func (f *Field64) SetFloat64(v float64) {
	*f = Field64(math.Float64bits(v))
}

// Float64 returns the stored double.
func (f Field64) Float64() float64 {
	return math.Float64frombits(uint64(f))
}

// SetStr stores a string reference: offset relative to the chunk anchor in
// the low 32 bits, length in the high 32 bits. Strings borrow from the
// input buffer and must be copied out before the buffer is released.
func (f *Field64) SetStr(offset uint32, length int32) {
	*f = Field64(uint64(offset) | uint64(uint32(length))<<32)
}

// Str returns the stored string reference.
func (f Field64) Str() (offset uint32, length int32) {
	return uint32(f), int32(uint32(f >> 32))
}

// SetNA stores the missing sentinel for the given type.
func (f *Field64) SetNA(t Type) {
	switch t {
	case TypeBool:
		*f = Field64(naBool)
	case TypeInt32:
		f.SetInt32(naInt32)
	case TypeInt64:
		f.SetInt64(naInt64)
	case TypeFloat64:
		*f = Field64(naFloat64)
	case TypeString:
		f.SetStr(0, naStrLen)
	}
}

// IsNA reports whether the slot holds the missing sentinel for the
// given type.
func (f Field64) IsNA(t Type) bool {
	switch t {
	case TypeBool:
		return uint64(f) == naBool
	case TypeInt32:
		return f.Int32() == naInt32
	case TypeInt64:
		return f.Int64() == naInt64
	case TypeFloat64:
		return uint64(f) == naFloat64
	case TypeString:
		_, length := f.Str()
		return length == naStrLen
	default:
		return false
	}
}

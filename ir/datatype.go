package ir

import (
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
)

// DataType is the element type of a tensor flowing along a connector
type DataType uint8

const (
	Float32 DataType = iota
	Float16
	BFloat16
	Float64
	Int8
	Uint8
	Int16
	Int32
	Int64
	Bool
)

var dataTypeNames = map[DataType]string{
	Float32:  "float32",
	Float16:  "float16",
	BFloat16: "bfloat16",
	Float64:  "float64",
	Int8:     "int8",
	Uint8:    "uint8",
	Int16:    "int16",
	Int32:    "int32",
	Int64:    "int64",
	Bool:     "bool",
}

var dataTypeSizes = map[DataType]int{
	Float32:  4,
	Float16:  2,
	BFloat16: 2,
	Float64:  8,
	Int8:     1,
	Uint8:    1,
	Int16:    2,
	Int32:    4,
	Int64:    8,
	Bool:     1,
}

// Size returns the number of bytes occupied by a single element of this type
func (t DataType) Size() int {
	size, ok := dataTypeSizes[t]
	if !ok {
		panic(fmt.Sprintf("unknown data type: %d", t))
	}
	return size
}

func (t DataType) String() string {
	name, ok := dataTypeNames[t]
	if !ok {
		return fmt.Sprintf("DataType(%d)", t)
	}
	return name
}

// ParseDataType resolves the lower-case name of a data type, e.g. "float32"
func ParseDataType(name string) (DataType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for dataType, dataTypeName := range dataTypeNames {
		if dataTypeName == name {
			return dataType, nil
		}
	}

	return 0, errors.Newf("unknown data type: %q", name)
}

func (t *DataType) UnmarshalText(text []byte) error {
	dataType, err := ParseDataType(string(text))
	if err != nil {
		return err
	}

	*t = dataType
	return nil
}

func (t DataType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// CheckShape returns an error if shape has a negative dimension or if a tensor of this type and shape
// holds more bytes than an int can count
func (t DataType) CheckShape(shape Shape) error {
	empty := false
	for axis, dim := range shape {
		if dim < 0 {
			return errors.Newf("shape %s has negative dimension %d on axis %d", shape, dim, axis)
		}
		empty = empty || dim == 0
	}
	if empty {
		return nil
	}

	limit := math.MaxInt / t.Size()
	elements := 1
	for _, dim := range shape {
		if elements > limit/dim {
			return errors.Newf("shape %s of %s overflows the addressable byte count", shape, t)
		}
		elements *= dim
	}

	return nil
}

// Shape is the extent of a tensor along each of its axes. A nil or empty shape is a scalar.
type Shape []int

// Elements returns the number of elements in a tensor of this shape
func (s Shape) Elements() int {
	elements := 1
	for _, dim := range s {
		elements *= dim
	}
	return elements
}

func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}

	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}

	return true
}

func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}

	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

func (s Shape) String() string {
	dims := make([]string, len(s))
	for i, dim := range s {
		dims[i] = fmt.Sprint(dim)
	}
	return "[" + strings.Join(dims, ",") + "]"
}

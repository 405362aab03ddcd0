package ir

import (
	"fmt"
	"strings"
)

// Type describes the type of a value. The analysis-relevant types are
// integers of explicit width and signedness, the machine-sized index type,
// and ranked tensors thereof.
type Type interface {
	String() string
	isType()
}

// IntType is a fixed-width integer type. Width 1 doubles as the boolean
// type.
type IntType struct {
	Width    uint
	Unsigned bool
}

func (t IntType) isType() {}

func (t IntType) String() string {
	if t.Unsigned {
		return fmt.Sprintf("ui%d", t.Width)
	}
	return fmt.Sprintf("i%d", t.Width)
}

// IndexType is the machine-sized index type. It is treated as a signed
// 64-bit integer for range purposes.
type IndexType struct{}

func (IndexType) isType()        {}
func (IndexType) String() string { return "index" }

// TensorType is a ranked tensor. Range analysis operates on the element
// type; the shape is carried for printing and shape-preserving ops.
type TensorType struct {
	Dims []int64
	Elem Type
}

func (t TensorType) isType() {}

func (t TensorType) String() string {
	var sb strings.Builder
	sb.WriteString("tensor<")
	for _, d := range t.Dims {
		fmt.Fprintf(&sb, "%d x ", d)
	}
	sb.WriteString(t.Elem.String())
	sb.WriteString(">")
	return sb.String()
}

var (
	Bool  = IntType{Width: 1}
	I32   = IntType{Width: 32}
	I64   = IntType{Width: 64}
	Index = IndexType{}
)

// StorageWidth returns the bit width used to model values of type t, or
// false if t is not integer-like. For tensors it is the element's width.
func StorageWidth(t Type) (uint, bool) {
	switch t := t.(type) {
	case IntType:
		return t.Width, true
	case IndexType:
		return 64, true
	case TensorType:
		return StorageWidth(t.Elem)
	default:
		return 0, false
	}
}

// IsUnsigned reports whether t is an unsigned integer type (element type,
// for tensors). Index and signless widths are treated as signed.
func IsUnsigned(t Type) bool {
	switch t := t.(type) {
	case IntType:
		return t.Unsigned
	case TensorType:
		return IsUnsigned(t.Elem)
	default:
		return false
	}
}

// ElemType returns the element type of a tensor, or t itself otherwise.
func ElemType(t Type) Type {
	if tt, ok := t.(TensorType); ok {
		return tt.Elem
	}
	return t
}

// Package value implements the runtime value domain: numbers, strings,
// booleans, and nil.
package value

import (
	"math"
	"strconv"
)

// Value is the interface for all runtime values.
// The sealed marker method restricts implementations to this package.
type Value interface {
	value() // sealed marker
	// String returns the canonical text form used by print.
	String() string
}

// Nil is the absence of a value.
type Nil struct{}

func (Nil) value() {}

func (Nil) String() string { return "nil" }

// Bool is a boolean value.
type Bool struct {
	Value bool
}

func (Bool) value() {}

func (b Bool) String() string { return strconv.FormatBool(b.Value) }

// Number is a 64-bit floating point value.
type Number struct {
	Value float64
}

func (Number) value() {}

func (n Number) String() string { return FormatNumber(n.Value) }

// String is a string value. Its canonical text form is quoted.
type String struct {
	Value string
}

func (String) value() {}

func (s String) String() string { return `"` + s.Value + `"` }

// NewNil creates a nil value.
func NewNil() Value {
	return Nil{}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return Bool{Value: b}
}

// NewNumber creates a numeric value.
func NewNumber(n float64) Value {
	return Number{Value: n}
}

// NewString creates a string value.
func NewString(s string) Value {
	return String{Value: s}
}

// FormatNumber renders n as the shortest decimal that round-trips, without
// an exponent. Infinities render as inf and -inf.
func FormatNumber(n float64) string {
	switch {
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	case math.IsNaN(n):
		return "NaN"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Truthy returns the boolean interpretation of v.
// nil and false are falsy; everything else, including 0 and "", is truthy.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Nil:
		return false
	case Bool:
		return val.Value
	default:
		return true
	}
}

// Equal reports whether a and b are the same kind and hold the same value.
// Values of different kinds are never equal.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av.Value == bv.Value
	case Number:
		bv, ok := b.(Number)
		return ok && av.Value == bv.Value
	case String:
		bv, ok := b.(String)
		return ok && av.Value == bv.Value
	}
	return false
}

// TypeName returns a short name for the kind of v.
func TypeName(v Value) string {
	switch v.(type) {
	case Nil:
		return "nil"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

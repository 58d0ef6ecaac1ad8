package value

import "errors"

// Operator errors. Their text is the message reported to the user.
var (
	ErrOperandNotNumber   = errors.New("operand must be a number")
	ErrOperandsNotNumbers = errors.New("operands must be numbers")
	ErrOperandsMismatch   = errors.New("operands must be both numbers or strings")
)

func numbers(a, b Value) (float64, float64, bool) {
	an, ok := a.(Number)
	if !ok {
		return 0, 0, false
	}
	bn, ok := b.(Number)
	if !ok {
		return 0, 0, false
	}
	return an.Value, bn.Value, true
}

// Negate returns -v. v must be a Number.
func Negate(v Value) (Value, error) {
	n, ok := v.(Number)
	if !ok {
		return nil, ErrOperandNotNumber
	}
	return NewNumber(-n.Value), nil
}

// Not returns the logical complement of v's truthiness.
func Not(v Value) Value {
	return NewBool(!Truthy(v))
}

// Add sums two numbers or concatenates two strings.
func Add(a, b Value) (Value, error) {
	if x, y, ok := numbers(a, b); ok {
		return NewNumber(x + y), nil
	}
	if as, ok := a.(String); ok {
		if bs, ok := b.(String); ok {
			return NewString(as.Value + bs.Value), nil
		}
	}
	return nil, ErrOperandsMismatch
}

// Sub returns a - b.
func Sub(a, b Value) (Value, error) {
	x, y, ok := numbers(a, b)
	if !ok {
		return nil, ErrOperandsNotNumbers
	}
	return NewNumber(x - y), nil
}

// Mul returns a * b.
func Mul(a, b Value) (Value, error) {
	x, y, ok := numbers(a, b)
	if !ok {
		return nil, ErrOperandsNotNumbers
	}
	return NewNumber(x * y), nil
}

// Div returns a / b. Division by zero follows IEEE 754 and yields an
// infinity or NaN rather than an error.
func Div(a, b Value) (Value, error) {
	x, y, ok := numbers(a, b)
	if !ok {
		return nil, ErrOperandsNotNumbers
	}
	return NewNumber(x / y), nil
}

// Compare applies a numeric comparison to a and b.
func Compare(a, b Value, cmp func(x, y float64) bool) (Value, error) {
	x, y, ok := numbers(a, b)
	if !ok {
		return nil, ErrOperandsNotNumbers
	}
	return NewBool(cmp(x, y)), nil
}

// Less returns a < b.
func Less(a, b Value) (Value, error) {
	return Compare(a, b, func(x, y float64) bool { return x < y })
}

// LessEqual returns a <= b.
func LessEqual(a, b Value) (Value, error) {
	return Compare(a, b, func(x, y float64) bool { return x <= y })
}

// Greater returns a > b.
func Greater(a, b Value) (Value, error) {
	return Compare(a, b, func(x, y float64) bool { return x > y })
}

// GreaterEqual returns a >= b.
func GreaterEqual(a, b Value) (Value, error) {
	return Compare(a, b, func(x, y float64) bool { return x >= y })
}

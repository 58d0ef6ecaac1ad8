package value

import (
	"encoding/json"
	"math"
)

// ToJSON marshals a Value to JSON bytes.
// Whole numbers are written without a decimal point. Non-finite numbers have
// no JSON form and are written as their canonical text.
func ToJSON(v Value) ([]byte, error) {
	return json.Marshal(ToRaw(v))
}

// ToRaw converts v into a plain Go value suitable for encoding/json.
func ToRaw(v Value) any {
	switch val := v.(type) {
	case nil, Nil:
		return nil
	case Bool:
		return val.Value
	case Number:
		if math.IsInf(val.Value, 0) || math.IsNaN(val.Value) {
			return FormatNumber(val.Value)
		}
		if val.Value == math.Trunc(val.Value) && math.Abs(val.Value) < 1<<53 {
			return int64(val.Value)
		}
		return val.Value
	case String:
		return val.Value
	}
	return nil
}

// ToJSONString is a convenience that returns a string.
func ToJSONString(v Value) string {
	b, err := ToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

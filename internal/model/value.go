package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// Value is a float64 that may be missing. The zero Value is missing.
type Value struct {
	V     float64
	Valid bool
}

// Missing is the missing Value.
var Missing = Value{}

// Some returns a present Value holding v.
func Some(v float64) Value {
	return Value{V: v, Valid: true}
}

// Finite returns the value and true only when it is present and neither NaN nor ±Inf.
func (v Value) Finite() (float64, bool) {
	if !v.Valid || math.IsNaN(v.V) || math.IsInf(v.V, 0) {
		return 0, false
	}
	return v.V, true
}

// Or returns the finite value or def.
func (v Value) Or(def float64) float64 {
	if f, ok := v.Finite(); ok {
		return f
	}
	return def
}

// MarshalJSON encodes missing and non-finite values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	f, ok := v.Finite()
	if !ok {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Missing
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

// Float is a float64 whose JSON form is null for NaN and ±Inf.
type Float float64

// MarshalJSON encodes NaN and ±Inf as null.
func (f Float) MarshalJSON() ([]byte, error) {
	x := float64(f)
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(x, 'g', -1, 64)), nil
}

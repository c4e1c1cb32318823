// Package value implements Royale's sample value type: a tagged union of a
// number or a string, with explicit (non-coercing) conversions between them.
package value

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type Kind uint8

const (
	Number Kind = iota
	String
)

// Value is a tagged union produced by sampling a ValueSpec. Conversions
// between the two variants are explicit and can fail.
type Value struct {
	kind Kind
	num  float64
	str  string
}

func NewNumber(f float64) Value { return Value{kind: Number, num: f} }
func NewString(s string) Value { return Value{kind: String, str: s} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNumber() bool { return v.kind == Number }
func (v Value) IsString() bool { return v.kind == String }

// Float64 extracts a numeric value. For a String value, it succeeds iff the
// string parses as a double.
func (v Value) Float64() (float64, error) {
	switch v.kind {
	case Number:
		return v.num, nil
	case String:
		f, err := strconv.ParseFloat(v.str, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v.str)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value: unknown kind")
	}
}

// Text extracts the string variant; it does not stringify a Number.
func (v Value) Text() (string, error) {
	if v.kind != String {
		return "", fmt.Errorf("value is not a string")
	}
	return v.str, nil
}

// String renders the value for display: numbers are formatted with the
// shortest round-tripping representation, strings are returned verbatim.
func (v Value) String() string {
	switch v.kind {
	case Number:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case String:
		return v.str
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Number:
		return json.Marshal(v.num)
	case String:
		return json.Marshal(v.str)
	default:
		return nil, fmt.Errorf("value: invalid kind")
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = NewNumber(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = NewString(s)
		return nil
	}
	return fmt.Errorf("value: %s is neither a number nor a string", data)
}

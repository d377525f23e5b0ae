package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ParsePositive converts a number or numeric string into a positive finite value.
// Anything else, including zero, negatives, NaN and blank strings, yields nil.
func ParsePositive(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case *float64:
		if n == nil {
			return nil
		}
		f = *n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if !isPositiveValue(f) {
		return nil
	}
	return &f
}

// FlexNumber is a JSON value that may arrive as a number or a numeric string.
// Decoding never fails on content: unusable values simply leave it unset.
type FlexNumber struct {
	value *float64
}

// NewFlexNumber wraps a known value
func NewFlexNumber(v float64) FlexNumber {
	return FlexNumber{value: ParsePositive(v)}
}

// UnmarshalJSON accepts numbers, numeric strings and null
func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		n.value = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			n.value = nil
			return nil
		}
		n.value = ParsePositive(s)
		return nil
	}
	n.value = ParsePositive(json.Number(string(data)))
	return nil
}

// MarshalJSON writes the value or null
func (n FlexNumber) MarshalJSON() ([]byte, error) {
	if n.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.value)
}

// Ptr returns the parsed value, or nil when absent or unusable
func (n FlexNumber) Ptr() *float64 {
	if n.value == nil {
		return nil
	}
	v := *n.value
	return &v
}

// IsSet reports whether a usable value was supplied
func (n FlexNumber) IsSet() bool {
	return n.value != nil
}

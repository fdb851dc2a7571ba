package common

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NormalizeValue coerces a decoded value into the property value shape:
// string, float64, bool, nil, or []any of those. Integers become float64,
// json.Number is parsed, and anything else is rendered as JSON text so that
// no information is lost.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool, float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = NormalizeValue(item)
		}
		return out
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil
		}
		return string(b)
	}
}

// IsBlank reports whether v is nil or a whitespace-only string.
func IsBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	}
	return false
}

// FormatScalar renders a scalar property value as a string. It reports false
// for nil, lists and non-scalar values.
func FormatScalar(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	case json.Number:
		return val.String(), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	}
	return "", false
}

// ParseNumber reports whether s is a plain decimal number and returns it.
// Integers with leading zeros ("007"), thousands separators, hex literals and
// the NaN/Inf spellings are not considered numeric.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	digits := strings.TrimLeft(s, "+-")
	if digits == "" {
		return 0, false
	}
	if len(digits) > 1 && digits[0] == '0' && digits[1] != '.' {
		return 0, false
	}
	for _, r := range digits {
		if (r < '0' || r > '9') && r != '.' && r != 'e' && r != 'E' && r != '-' && r != '+' {
			return 0, false
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToFloat extracts a float from a number or a numeric string.
func ToFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		return ParseNumber(val)
	}
	return 0, false
}

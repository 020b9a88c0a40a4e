package utils

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when a string must be read as a date
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00", // sqlite driver timestamps
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// ParseDuration safely parses duration string like "5m"
func ParseDuration(d string, fallback time.Duration) time.Duration {
	if d == "" {
		return fallback
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return fallback
	}
	return duration
}

// ParseValue turns a raw text cell into the most specific scalar it holds.
func ParseValue(s string) interface{} {
	// Trim whitespace first
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	// try int
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	// try float; "NaN" and "Inf" stay text
	if f, err := strconv.ParseFloat(s, 64); err == nil && finite(f) {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if t, ok := parseDateString(s); ok {
		return t
	}
	return s
}

// Numeric converts supported types to float64. ok is false when the value
// is missing, not a number, NaN or infinite.
func Numeric(v interface{}) (float64, bool) {
	f, ok := numeric(v)
	if !ok || !finite(f) {
		return 0, false
	}
	return f, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func numeric(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case []byte:
		return numeric(string(val))
	case bool:
		return 0, false
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() >= reflect.Int && rv.Kind() <= reflect.Float64 {
			return rv.Convert(reflect.TypeOf(float64(0))).Float(), true
		}
		return 0, false
	}
}

// Date reads a time.Time or a date-like string.
func Date(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false
		}
		return val, true
	case *time.Time:
		if val == nil || val.IsZero() {
			return time.Time{}, false
		}
		return *val, true
	case string:
		return parseDateString(strings.TrimSpace(val))
	case []byte:
		return parseDateString(strings.TrimSpace(string(val)))
	default:
		return time.Time{}, false
	}
}

// Bool reads a bool or a bool-like string ("true", "yes", "1").
func Bool(v interface{}) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case int:
		return val != 0, val == 0 || val == 1
	case int64:
		return val != 0, val == 0 || val == 1
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "yes", "y", "1":
			return true, true
		case "false", "no", "n", "0":
			return false, true
		}
	}
	return false, false
}

// IsEmpty reports whether a value counts as missing data.
func IsEmpty(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []byte:
		return len(strings.TrimSpace(string(val))) == 0
	case time.Time:
		return val.IsZero()
	case *time.Time:
		return val == nil || val.IsZero()
	default:
		return false
	}
}

// Text renders a scalar as the string used for grouping and display.
func Text(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format("2006-01-02")
	case *time.Time:
		if val == nil {
			return ""
		}
		return val.Format("2006-01-02")
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		if f, ok := Numeric(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return ""
	}
}

func parseDateString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package normalize

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Field returns the first candidate field present with a non-nil value.
func Field(rec map[string]any, names ...string) (any, bool) {
	if rec == nil {
		return nil, false
	}
	for _, name := range names {
		if v, ok := rec[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String resolves a field chain to a string. Absent fields yield "".
func String(rec map[string]any, names ...string) string {
	v, ok := Field(rec, names...)
	if !ok {
		return ""
	}
	if f, isFloat := v.(float64); isFloat && f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return cast.ToString(int64(f))
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

// Number resolves a field chain to a float64. Absent or unparsable values yield 0.
func Number(rec map[string]any, names ...string) float64 {
	v, _ := Field(rec, names...)
	return ToNumber(v)
}

// ToNumber coerces a decoded scalar to float64; anything unparsable becomes 0.
func ToNumber(v any) float64 {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Int resolves a field chain to an int, rounding half away from zero.
func Int(rec map[string]any, names ...string) int {
	return int(math.Round(Number(rec, names...)))
}

// Bool resolves a field chain to a bool. "true", "1", 1 and true are truthy.
func Bool(rec map[string]any, names ...string) bool {
	v, ok := Field(rec, names...)
	if !ok {
		return false
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false
	}
	return b
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time resolves a field chain to a time. Unknown layouts yield the zero time.
func Time(rec map[string]any, names ...string) time.Time {
	v, ok := Field(rec, names...)
	if !ok {
		return time.Time{}
	}
	s, isString := v.(string)
	if !isString {
		t, err := cast.ToTimeE(v)
		if err != nil {
			return time.Time{}
		}
		return t
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Percent resolves a field chain to a percentage in [0, 100].
func Percent(rec map[string]any, names ...string) int {
	return ClampPercent(Number(rec, names...))
}

// ClampPercent clamps v to [0, 100] and rounds to the nearest integer, half away from zero.
func ClampPercent(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

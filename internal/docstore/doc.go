package docstore

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Doc is a schemaless document body.
type Doc map[string]any

// Lookup resolves a dotted field path such as "points.abc".
func (d Doc) Lookup(path string) (any, bool) {
	var current any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func (d Doc) Has(path string) bool {
	_, ok := d.Lookup(path)
	return ok
}

func (d Doc) String(path string) string {
	v, _ := d.Lookup(path)
	s, _ := v.(string)
	return s
}

func (d Doc) Bool(path string) bool {
	v, _ := d.Lookup(path)
	b, _ := v.(bool)
	return b
}

func (d Doc) Int(path string) int {
	v, _ := d.Lookup(path)
	n, _ := toInt64(v)
	return int(n)
}

// Time reads a timestamp stored natively or as an RFC 3339 / date-only
// string. The zero time is returned for missing or unparseable values.
func (d Doc) Time(path string) time.Time {
	v, _ := d.Lookup(path)
	t, _ := toTime(v)
	return t
}

func (d Doc) Strings(path string) []string {
	v, _ := d.Lookup(path)
	items, ok := asSlice(v)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (d Doc) StringMap(path string) map[string]string {
	v, _ := d.Lookup(path)
	m, ok := asMap(v)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(m))
	for k, item := range m {
		if s, ok := item.(string); ok {
			out[k] = s
		}
	}
	return out
}

func (d Doc) IntMap(path string) map[string]int {
	v, _ := d.Lookup(path)
	m, ok := asMap(v)
	if !ok {
		return map[string]int{}
	}
	out := make(map[string]int, len(m))
	for k, item := range m {
		if n, ok := toInt64(item); ok {
			out[k] = int(n)
		}
	}
	return out
}

// Clone returns a deep copy of the document.
func (d Doc) Clone() Doc {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Doc:
		return Doc(cloneValue(map[string]any(t)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = item
		}
		return out
	case map[string]int:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = int64(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out
	case int:
		return int64(t)
	case int32:
		return int64(t)
	default:
		return v
	}
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Doc:
		return map[string]any(t), true
	case map[string]string:
		return cloneValue(t).(map[string]any), true
	case map[string]int:
		return cloneValue(t).(map[string]any), true
	default:
		return nil, false
	}
}

func asSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		return cloneValue(t).([]any), true
	default:
		return nil, false
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(math.Round(n)), true
	case float32:
		return int64(math.Round(float64(n))), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(math.Round(f)), true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		return ParseTime(t)
	}
	return time.Time{}, false
}

// ParseTime accepts RFC 3339 timestamps and bare dates (midnight UTC).
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

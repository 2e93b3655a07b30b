package docstore

import (
	"reflect"
	"sort"
	"strings"
	"time"
)

// Match reports whether doc satisfies every predicate.
func Match(doc Doc, filters []Predicate) bool {
	for _, p := range filters {
		if !matchOne(doc, p) {
			return false
		}
	}
	return true
}

func matchOne(doc Doc, p Predicate) bool {
	v, ok := doc.Lookup(p.Field)
	switch p.Op {
	case OpEqual:
		return ok && valuesEqual(v, p.Value)
	case OpNotEqual:
		return !valuesEqual(v, p.Value)
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		if !ok {
			return false
		}
		c, comparable := compareValues(v, p.Value)
		if !comparable {
			return false
		}
		switch p.Op {
		case OpLess:
			return c < 0
		case OpLessEqual:
			return c <= 0
		case OpGreater:
			return c > 0
		default:
			return c >= 0
		}
	case OpArrayContains:
		items, isSlice := asSlice(v)
		return isSlice && containsValue(items, p.Value)
	case OpIn:
		return ok && containsValue(InValues(p.Value), v)
	}
	return false
}

func containsValue(items []any, v any) bool {
	for _, item := range items {
		if valuesEqual(item, v) {
			return true
		}
	}
	return false
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat64(a); ok {
		fb, ok := toFloat64(b)
		return ok && fa == fb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := toTime(b)
		return ok && ta.Equal(tb)
	}
	if tb, ok := b.(time.Time); ok {
		ta, ok := toTime(a)
		return ok && ta.Equal(tb)
	}
	if sa, ok := asSlice(a); ok {
		sb, ok := asSlice(b)
		if !ok || len(sa) != len(sb) {
			return false
		}
		for i := range sa {
			if !valuesEqual(sa[i], sb[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders numbers, strings, timestamps and booleans. The second
// result is false when the values are not mutually comparable.
func compareValues(a, b any) (int, bool) {
	if fa, ok := toFloat64(a); ok {
		fb, ok := toFloat64(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	_, aIsTime := a.(time.Time)
	_, bIsTime := b.(time.Time)
	if aIsTime || bIsTime {
		ta, okA := toTime(a)
		tb, okB := toTime(b)
		if !okA || !okB {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}
	if ba, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case ba == bb:
			return 0, true
		case !ba:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// SortSnapshots orders rows by the given orders, then by id. Missing or
// incomparable values sort first.
func SortSnapshots(rows []Snapshot, orders []Order) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range orders {
			a, okA := rows[i].Data.Lookup(o.Field)
			b, okB := rows[j].Data.Lookup(o.Field)
			c := 0
			switch {
			case !okA && !okB:
			case !okA:
				c = -1
			case !okB:
				c = 1
			default:
				c, _ = compareValues(a, b)
			}
			if o.Direction == Desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return rows[i].ID < rows[j].ID
	})
}

// Apply filters, sorts and limits rows in memory according to q.
func Apply(rows []Snapshot, q Query) []Snapshot {
	out := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		if Match(row.Data, q.Filters) {
			out = append(out, row)
		}
	}
	SortSnapshots(out, q.Orders)
	if q.Max > 0 && len(out) > q.Max {
		out = out[:q.Max]
	}
	return out
}

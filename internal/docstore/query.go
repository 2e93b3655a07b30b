package docstore

import (
	"fmt"
	"regexp"
)

type Op string

const (
	OpEqual         Op = "=="
	OpNotEqual      Op = "!="
	OpLess          Op = "<"
	OpLessEqual     Op = "<="
	OpGreater       Op = ">"
	OpGreaterEqual  Op = ">="
	OpArrayContains Op = "array-contains"
	OpIn            Op = "in"
)

type Direction int

const (
	Asc Direction = iota
	Desc
)

// Predicate tests a single field. A missing field compares as nil, so
// OpNotEqual matches documents that lack the field entirely.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

type Order struct {
	Field     string
	Direction Direction
}

// Query is a conjunction of predicates over one collection. Builder methods
// return copies, so a base query can be shared.
type Query struct {
	Collection string
	Filters    []Predicate
	Orders     []Order
	Max        int
}

func Collection(name string) Query {
	return Query{Collection: name}
}

func Where(field string, op Op, value any) Predicate {
	return Predicate{Field: field, Op: op, Value: value}
}

func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(append([]Predicate(nil), q.Filters...), Where(field, op, value))
	return q
}

func (q Query) OrderBy(field string, dir Direction) Query {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Field: field, Direction: dir})
	return q
}

func (q Query) Limit(n int) Query {
	q.Max = n
	return q
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+(\.[A-Za-z0-9_\-]+)*$`)

// ValidField reports whether path is safe to use as a dotted field path.
func ValidField(path string) bool {
	return fieldPattern.MatchString(path)
}

func (q Query) Validate() error {
	if q.Collection == "" || !ValidField(q.Collection) {
		return fmt.Errorf("%w: bad collection %q", ErrInvalidQuery, q.Collection)
	}
	for _, p := range q.Filters {
		if !ValidField(p.Field) {
			return fmt.Errorf("%w: bad field %q", ErrInvalidQuery, p.Field)
		}
		switch p.Op {
		case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpArrayContains:
		case OpIn:
			if _, ok := inValues(p.Value); !ok {
				return fmt.Errorf("%w: %q needs a list value", ErrInvalidQuery, OpIn)
			}
		default:
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, p.Op)
		}
	}
	for _, o := range q.Orders {
		if !ValidField(o.Field) {
			return fmt.Errorf("%w: bad order field %q", ErrInvalidQuery, o.Field)
		}
	}
	if q.Max < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	return nil
}

// inValues flattens the value of an OpIn predicate.
func inValues(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

// InValues exposes the flattened list of an OpIn predicate to store
// implementations.
func InValues(v any) []any {
	values, _ := inValues(v)
	return values
}

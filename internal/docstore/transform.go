package docstore

import (
	"fmt"
	"strings"
	"time"
)

// Transform is a field value that the store resolves at write time instead
// of storing literally.
type Transform interface {
	transform()
}

type ServerTimestampTransform struct{}

type IncrementTransform struct {
	Delta int64
}

type ArrayUnionTransform struct {
	Values []any
}

type ArrayRemoveTransform struct {
	Values []any
}

type DeleteFieldTransform struct{}

func (ServerTimestampTransform) transform() {}
func (IncrementTransform) transform()       {}
func (ArrayUnionTransform) transform()      {}
func (ArrayRemoveTransform) transform()     {}
func (DeleteFieldTransform) transform()     {}

var (
	// ServerTimestamp resolves to the store's write time.
	ServerTimestamp Transform = ServerTimestampTransform{}
	DeleteField     Transform = DeleteFieldTransform{}
)

func Increment(delta int64) Transform {
	return IncrementTransform{Delta: delta}
}

// ArrayUnion adds each value that is not already present.
func ArrayUnion(values ...any) Transform {
	return ArrayUnionTransform{Values: values}
}

func ArrayRemove(values ...any) Transform {
	return ArrayRemoveTransform{Values: values}
}

// ApplyPatch returns a copy of current with every patch entry applied.
// Patch keys are dotted paths; intermediate maps are created as needed.
func ApplyPatch(current, patch Doc, now time.Time) (Doc, error) {
	out := current.Clone()
	if out == nil {
		out = Doc{}
	}
	for path, value := range patch {
		if !ValidField(path) {
			return nil, fmt.Errorf("%w: bad field %q", ErrInvalidQuery, path)
		}
		existing, _ := out.Lookup(path)
		switch t := value.(type) {
		case ServerTimestampTransform:
			setPath(out, path, now)
		case IncrementTransform:
			base, _ := toInt64(existing)
			setPath(out, path, base+t.Delta)
		case ArrayUnionTransform:
			items, _ := asSlice(existing)
			merged := append([]any(nil), items...)
			for _, v := range t.Values {
				if !containsValue(merged, v) {
					merged = append(merged, cloneValue(v))
				}
			}
			setPath(out, path, merged)
		case ArrayRemoveTransform:
			items, _ := asSlice(existing)
			kept := make([]any, 0, len(items))
			for _, item := range items {
				if !containsValue(t.Values, item) {
					kept = append(kept, item)
				}
			}
			setPath(out, path, kept)
		case DeleteFieldTransform:
			deletePath(out, path)
		default:
			setPath(out, path, cloneValue(value))
		}
	}
	return out, nil
}

// Resolve materializes transforms for a freshly created document.
func Resolve(data Doc, now time.Time) (Doc, error) {
	return ApplyPatch(nil, data, now)
}

func setPath(d Doc, path string, value any) {
	parts := strings.Split(path, ".")
	m := map[string]any(d)
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(m[part])
		if !ok {
			next = map[string]any{}
		}
		m[part] = next
		m = next
	}
	m[parts[len(parts)-1]] = value
}

func deletePath(d Doc, path string) {
	parts := strings.Split(path, ".")
	m := map[string]any(d)
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(m[part])
		if !ok {
			return
		}
		m = next
	}
	delete(m, parts[len(parts)-1])
}

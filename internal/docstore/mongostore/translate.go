package mongostore

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dimitrije/teamboard/internal/docstore"
)

var operators = map[docstore.Op]string{
	docstore.OpEqual:        "$eq",
	docstore.OpNotEqual:     "$ne",
	docstore.OpLess:         "$lt",
	docstore.OpLessEqual:    "$lte",
	docstore.OpGreater:      "$gt",
	docstore.OpGreaterEqual: "$gte",
	docstore.OpIn:           "$in",
}

// filterFor translates every predicate into a Mongo filter. Used where the
// filter is the authority, as in conditional updates.
func filterFor(id string, where []docstore.Predicate) bson.M {
	filter := bson.M{"_id": id}
	if len(where) == 0 {
		return filter
	}
	clauses := make(bson.A, 0, len(where))
	for _, p := range where {
		clauses = append(clauses, clause(p))
	}
	filter["$and"] = clauses
	return filter
}

// narrowingFilter keeps only predicates whose Mongo semantics agree with the
// in-process evaluator, so the result is a superset of the true answer.
func narrowingFilter(filters []docstore.Predicate) bson.M {
	clauses := bson.A{}
	for _, p := range filters {
		if p.Op != docstore.OpEqual && p.Op != docstore.OpArrayContains && p.Op != docstore.OpIn {
			continue
		}
		if !plainValue(p.Value) {
			continue
		}
		clauses = append(clauses, clause(p))
	}
	if len(clauses) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": clauses}
}

func plainValue(v any) bool {
	switch t := v.(type) {
	case string:
		_, isTime := docstore.ParseTime(t)
		return !isTime
	case bool, int, int64:
		return true
	case []string:
		for _, s := range t {
			if !plainValue(s) {
				return false
			}
		}
		return true
	}
	return false
}

func clause(p docstore.Predicate) bson.M {
	if p.Op == docstore.OpArrayContains {
		return bson.M{p.Field: bson.M{"$elemMatch": bson.M{"$eq": p.Value}}}
	}
	value := p.Value
	if p.Op == docstore.OpIn {
		value = bson.A(docstore.InValues(p.Value))
	}
	return bson.M{p.Field: bson.M{operators[p.Op]: value}}
}

// updateFor maps a patch onto Mongo update operators.
func updateFor(patch docstore.Doc) (bson.M, error) {
	update := bson.M{}
	add := func(op, field string, value any) {
		section, ok := update[op].(bson.M)
		if !ok {
			section = bson.M{}
			update[op] = section
		}
		section[field] = value
	}

	for field, value := range patch {
		if !docstore.ValidField(field) {
			return nil, fmt.Errorf("%w: bad field %q", docstore.ErrInvalidQuery, field)
		}
		switch t := value.(type) {
		case docstore.ServerTimestampTransform:
			add("$currentDate", field, true)
		case docstore.IncrementTransform:
			add("$inc", field, t.Delta)
		case docstore.ArrayUnionTransform:
			add("$addToSet", field, bson.M{"$each": bson.A(t.Values)})
		case docstore.ArrayRemoveTransform:
			add("$pull", field, bson.M{"$in": bson.A(t.Values)})
		case docstore.DeleteFieldTransform:
			add("$unset", field, "")
		default:
			add("$set", field, value)
		}
	}
	return update, nil
}

// normalize converts decoded BSON values into the plain Go shapes that the
// rest of the system reads through docstore.Doc.
func normalize(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	case primitive.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case primitive.M:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case int32:
		return int64(t)
	case primitive.ObjectID:
		return t.Hex()
	default:
		return v
	}
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, item := range m {
		out[k] = normalize(item)
	}
	return out
}

// toSnapshot splits the _id off a raw Mongo document.
func toSnapshot(raw bson.M) docstore.Snapshot {
	data := normalizeMap(raw)
	id := fmt.Sprint(data["_id"])
	delete(data, "_id")
	return docstore.Snapshot{ID: id, Data: docstore.Doc(data)}
}

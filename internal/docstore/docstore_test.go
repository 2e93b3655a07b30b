package docstore

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoc_Getters(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	doc := Doc{
		"title":    "Launch",
		"done":     true,
		"points":   map[string]any{"p1": int64(30), "p2": float64(5)},
		"members":  []any{"u1", "u2"},
		"roles":    map[string]any{"u1": "Leader"},
		"progress": float64(50),
		"created":  created,
		"deadline": "2026-03-02",
	}

	assert.Equal(t, "Launch", doc.String("title"))
	assert.True(t, doc.Bool("done"))
	assert.Equal(t, 50, doc.Int("progress"))
	assert.Equal(t, 30, doc.Int("points.p1"))
	assert.Equal(t, map[string]int{"p1": 30, "p2": 5}, doc.IntMap("points"))
	assert.Equal(t, []string{"u1", "u2"}, doc.Strings("members"))
	assert.Equal(t, map[string]string{"u1": "Leader"}, doc.StringMap("roles"))
	assert.True(t, doc.Time("created").Equal(created))
	assert.True(t, doc.Time("deadline").Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
	assert.True(t, doc.Time("missing").IsZero())
	assert.True(t, doc.Has("points.p2"))
	assert.False(t, doc.Has("points.p3"))
	assert.Empty(t, doc.String("missing"))
}

func TestDoc_IntFromJSONNumber(t *testing.T) {
	doc := Doc{"cheers": json.Number("7")}
	assert.Equal(t, 7, doc.Int("cheers"))
}

func TestDoc_CloneIsDeep(t *testing.T) {
	original := Doc{"members": []any{"u1"}, "roles": map[string]any{"u1": "Leader"}}
	clone := original.Clone()

	clone["members"] = append(clone["members"].([]any), "u2")
	clone["roles"].(map[string]any)["u2"] = "Contributor"

	assert.Len(t, original["members"], 1)
	assert.Len(t, original["roles"], 1)
}

func TestApplyPatch_Transforms(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	current := Doc{
		"members": []any{"u1"},
		"points":  map[string]any{"p1": int64(10)},
		"title":   "Old",
		"stale":   "x",
	}

	next, err := ApplyPatch(current, Doc{
		"title":      "New",
		"members":    ArrayUnion("u1", "u2"),
		"points.p1":  Increment(15),
		"points.p2":  Increment(5),
		"roles.u2":   "Contributor",
		"stale":      DeleteField,
		"updatedAt":  ServerTimestamp,
		"nested.a.b": "deep",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "New", next.String("title"))
	assert.Equal(t, []string{"u1", "u2"}, next.Strings("members"))
	assert.Equal(t, 25, next.Int("points.p1"))
	assert.Equal(t, 5, next.Int("points.p2"))
	assert.Equal(t, "Contributor", next.String("roles.u2"))
	assert.False(t, next.Has("stale"))
	assert.True(t, next.Time("updatedAt").Equal(now))
	assert.Equal(t, "deep", next.String("nested.a.b"))

	// current is untouched
	assert.Equal(t, "Old", current.String("title"))
	assert.Equal(t, 10, current.Int("points.p1"))
}

func TestApplyPatch_ArrayRemove(t *testing.T) {
	next, err := ApplyPatch(Doc{"projects": []any{"p1", "p2", "p3"}}, Doc{"projects": ArrayRemove("p2", "p9")}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p3"}, next.Strings("projects"))
}

func TestApplyPatch_RejectsBadPath(t *testing.T) {
	_, err := ApplyPatch(Doc{}, Doc{"bad path": 1}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestMatch(t *testing.T) {
	deadline := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	doc := Doc{
		"projectId": "p1",
		"members":   []any{"u1", "u2"},
		"points":    int64(20),
		"deadline":  deadline,
		"status":    "To Do",
	}

	tests := []struct {
		name   string
		filter Predicate
		want   bool
	}{
		{"equal", Where("projectId", OpEqual, "p1"), true},
		{"equal mismatch", Where("projectId", OpEqual, "p2"), false},
		{"equal missing", Where("nope", OpEqual, "p1"), false},
		{"not equal", Where("status", OpNotEqual, "Done"), true},
		{"not equal missing field", Where("awarded", OpNotEqual, true), true},
		{"less numeric across types", Where("points", OpLess, 25.5), true},
		{"greater equal", Where("points", OpGreaterEqual, 20), true},
		{"greater", Where("points", OpGreater, 20), false},
		{"time vs string", Where("deadline", OpLessEqual, "2026-01-02"), true},
		{"array contains", Where("members", OpArrayContains, "u2"), true},
		{"array contains missing", Where("members", OpArrayContains, "u3"), false},
		{"in", Where("status", OpIn, []string{"Done", "To Do"}), true},
		{"in miss", Where("status", OpIn, []string{"Done"}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(doc, []Predicate{tt.filter}))
		})
	}
}

func TestApply_SortsFiltersAndLimits(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []Snapshot{
		{ID: "a", Data: Doc{"projectId": "p1", "createdAt": t1}},
		{ID: "b", Data: Doc{"projectId": "p1", "createdAt": t1.Add(time.Hour)}},
		{ID: "c", Data: Doc{"projectId": "p2", "createdAt": t1.Add(2 * time.Hour)}},
		{ID: "d", Data: Doc{"projectId": "p1", "createdAt": t1.Add(3 * time.Hour)}},
	}

	q := Collection("tasks").Where("projectId", OpEqual, "p1").OrderBy("createdAt", Desc)
	got := Apply(rows, q)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"d", "b", "a"}, ids(got))

	got = Apply(rows, q.Limit(2))
	assert.Equal(t, []string{"d", "b"}, ids(got))

	got = Apply(rows, Collection("tasks").OrderBy("createdAt", Asc))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(got))
}

func TestQuery_BuilderDoesNotAlias(t *testing.T) {
	base := Collection("tasks").Where("projectId", OpEqual, "p1")
	a := base.Where("status", OpEqual, "Done")
	b := base.Where("status", OpEqual, "To Do")

	assert.Len(t, base.Filters, 1)
	assert.Equal(t, "Done", a.Filters[1].Value)
	assert.Equal(t, "To Do", b.Filters[1].Value)
}

func TestQuery_Validate(t *testing.T) {
	assert.NoError(t, Collection("tasks").Where("points.p-1", OpEqual, 1).Validate())
	assert.ErrorIs(t, Collection("").Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, Collection("tasks").Where("a;drop", OpEqual, 1).Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, Collection("tasks").Where("a", Op("~"), 1).Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, Collection("tasks").Where("a", OpIn, "x").Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, Collection("tasks").Limit(-1).Validate(), ErrInvalidQuery)
}

func TestParseTime(t *testing.T) {
	_, ok := ParseTime("")
	assert.False(t, ok)

	ts, ok := ParseTime("2026-02-03T04:05:06Z")
	require.True(t, ok)
	assert.Equal(t, 4, ts.Hour())

	_, ok = ParseTime("not a date")
	assert.False(t, ok)
	assert.False(t, errors.Is(nil, ErrNotFound))
}

func ids(rows []Snapshot) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

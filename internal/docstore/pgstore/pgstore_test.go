package pgstore

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimitrije/teamboard/internal/database"
	"github.com/dimitrije/teamboard/internal/docstore"
)

func setupStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s := New(&database.DB{Pool: mock}, logger)
	t.Cleanup(s.Close)
	return s, mock
}

func TestStore_Get(t *testing.T) {
	s, mock := setupStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT data FROM documents WHERE collection = .+ AND id = `).
		WithArgs("tasks", "t1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"title":"Draft deck","points":10,"createdAt":"2026-01-02T03:04:05.000000000Z"}`)))

	snap, err := s.Get(ctx, "tasks", "t1")

	require.NoError(t, err)
	assert.Equal(t, "t1", snap.ID)
	assert.Equal(t, "Draft deck", snap.Data.String("title"))
	assert.Equal(t, 10, snap.Data.Int("points"))
	assert.Equal(t, 2026, snap.Data.Time("createdAt").Year())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_NotFound(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectQuery(`SELECT data FROM documents`).
		WithArgs("tasks", "missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), "tasks", "missing")

	assert.ErrorIs(t, err, docstore.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Create(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectExec(`INSERT INTO documents \(collection,id,data\) VALUES`).
		WithArgs("activities", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.Create(context.Background(), "activities", docstore.Doc{
		"action":    "added a task",
		"timestamp": docstore.ServerTimestamp,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Set_Upserts(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectExec(`INSERT INTO documents .+ ON CONFLICT \(collection, id\) DO UPDATE`).
		WithArgs("moods", "p1_u1", `{"mood":"Focused"}`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.Set(context.Background(), "moods", "p1_u1", docstore.Doc{"mood": "Focused"})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Update_AppliesPatchUnderLock(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT data FROM documents WHERE .+ FOR UPDATE`).
		WithArgs("projects", "p1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"members":["u1"],"roles":{"u1":"Leader"}}`)))
	mock.ExpectExec(`UPDATE documents SET data = .+, updated_at = NOW\(\) WHERE collection = .+ AND id = `).
		WithArgs(`{"members":["u1","u2"],"roles":{"u1":"Leader","u2":"Contributor"}}`, "projects", "p1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := s.Update(context.Background(), "projects", "p1", docstore.Doc{
		"members":  docstore.ArrayUnion("u2"),
		"roles.u2": "Contributor",
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Update_NotFound(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT data FROM documents WHERE .+ FOR UPDATE`).
		WithArgs("projects", "gone").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := s.Update(context.Background(), "projects", "gone", docstore.Doc{"title": "x"})

	assert.ErrorIs(t, err, docstore.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateWhere_GuardFails(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT data FROM documents WHERE .+ FOR UPDATE`).
		WithArgs("tasks", "t1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow([]byte(`{"awarded":true}`)))
	mock.ExpectRollback()

	applied, err := s.UpdateWhere(context.Background(), "tasks", "t1",
		[]docstore.Predicate{docstore.Where("awarded", docstore.OpNotEqual, true)},
		docstore.Doc{"awarded": true})

	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Increment(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT data FROM documents WHERE .+ FOR UPDATE`).
		WithArgs("shoutouts", "s1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow([]byte(`{"cheers":4}`)))
	mock.ExpectExec(`UPDATE documents SET data`).
		WithArgs(`{"cheers":5}`, "shoutouts", "s1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := s.Increment(context.Background(), "shoutouts", "s1", "cheers", 1)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Delete(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectExec(`DELETE FROM documents WHERE collection = .+ AND id = `).
		WithArgs("comments", "c1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.Delete(context.Background(), "comments", "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Delete_Error(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectExec(`DELETE FROM documents`).
		WithArgs("comments", "c1").
		WillReturnError(errors.New("connection refused"))

	err := s.Delete(context.Background(), "comments", "c1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete comments/c1")
}

func TestStore_Query_PushesDownContainment(t *testing.T) {
	s, mock := setupStore(t)

	rows := pgxmock.NewRows([]string{"id", "data"}).
		AddRow("t1", []byte(`{"projectId":"p1","status":"Done","createdAt":"2026-01-01T00:00:00.000000000Z"}`)).
		AddRow("t2", []byte(`{"projectId":"p1","status":"To Do","createdAt":"2026-01-02T00:00:00.000000000Z"}`))

	mock.ExpectQuery(`SELECT id, data FROM documents WHERE collection = \$1 AND data @> \$2::jsonb`).
		WithArgs("tasks", `{"projectId":"p1"}`).
		WillReturnRows(rows)

	got, err := s.Query(context.Background(), docstore.Collection("tasks").
		Where("projectId", docstore.OpEqual, "p1").
		OrderBy("createdAt", docstore.Desc))

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t2", got[0].ID)
	assert.Equal(t, "t1", got[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Query_EvaluatesRemainingFiltersInProcess(t *testing.T) {
	s, mock := setupStore(t)

	rows := pgxmock.NewRows([]string{"id", "data"}).
		AddRow("t1", []byte(`{"assignedTo":"u1","status":"Done"}`)).
		AddRow("t2", []byte(`{"assignedTo":"u1","status":"In Progress"}`))

	mock.ExpectQuery(`SELECT id, data FROM documents WHERE collection = \$1 AND data @> \$2::jsonb`).
		WithArgs("tasks", `{"assignedTo":"u1"}`).
		WillReturnRows(rows)

	got, err := s.Query(context.Background(), docstore.Collection("tasks").
		Where("assignedTo", docstore.OpEqual, "u1").
		Where("status", docstore.OpNotEqual, "Done"))

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t2", got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Query_Invalid(t *testing.T) {
	s, _ := setupStore(t)

	_, err := s.Query(context.Background(), docstore.Collection("tasks").Where("x'; drop", docstore.OpEqual, 1))
	assert.ErrorIs(t, err, docstore.ErrInvalidQuery)
}

func TestContainment(t *testing.T) {
	tests := []struct {
		name string
		p    docstore.Predicate
		want string
		ok   bool
	}{
		{"equal string", docstore.Where("projectId", docstore.OpEqual, "p1"), `{"projectId":"p1"}`, true},
		{"array contains", docstore.Where("members", docstore.OpArrayContains, "u1"), `{"members":["u1"]}`, true},
		{"nested path", docstore.Where("points.p1", docstore.OpEqual, 10), `{"points":{"p1":10}}`, true},
		{"bool", docstore.Where("awarded", docstore.OpEqual, true), `{"awarded":true}`, true},
		{"inequality", docstore.Where("status", docstore.OpNotEqual, "Done"), "", false},
		{"date string", docstore.Where("deadline", docstore.OpEqual, "2026-01-02"), "", false},
		{"float", docstore.Where("progress", docstore.OpEqual, 1.5), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, ok := containment(tt.p)
			assert.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			sql, args, err := cond.ToSql()
			require.NoError(t, err)
			assert.Equal(t, "data @> ?::jsonb", sql)
			assert.Equal(t, []any{tt.want}, args)
		})
	}
}

func TestCodec_TimesSortLexically(t *testing.T) {
	early, err := encode(docstore.Doc{"at": mustTime(t, "2026-01-02T03:04:05Z")})
	require.NoError(t, err)
	late, err := encode(docstore.Doc{"at": mustTime(t, "2026-01-02T03:04:05.5Z")})
	require.NoError(t, err)

	assert.Equal(t, `{"at":"2026-01-02T03:04:05.000000000Z"}`, early)
	assert.Less(t, early, late)
}

func mustTime(t *testing.T, s string) any {
	t.Helper()
	ts, ok := docstore.ParseTime(s)
	require.True(t, ok)
	return ts
}

package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/dimitrije/teamboard/internal/docstore/memstore"
	"github.com/dimitrije/teamboard/internal/models"
)

// testEnv wires every service onto one in-memory store.
type testEnv struct {
	store       *memstore.Store
	hook        *logtest.Hook
	mailer      *fakeMailer
	users       *UserService
	projects    *ProjectService
	membership  *MembershipService
	activity    *ActivityService
	aggregation *AggregationService
	tasks       *TaskService
	comments    *CommentService
	shoutouts   *ShoutoutService
	moods       *MoodService
	cascade     *CascadeService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memstore.New()
	t.Cleanup(store.Close)
	store.SetClock(steppingClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	env := &testEnv{store: store, hook: hook, mailer: &fakeMailer{}}
	env.users = NewUserService(store, logger)
	env.projects = NewProjectService(store, logger)
	env.activity = NewActivityService(store, logger)
	env.aggregation = NewAggregationService(store, logger)
	env.membership = NewMembershipService(store, env.projects, env.users, env.activity, env.mailer, "http://app.test/", logger)
	env.tasks = NewTaskService(store, env.activity, env.aggregation, logger)
	env.comments = NewCommentService(store, env.activity, env.users, logger)
	env.shoutouts = NewShoutoutService(store, logger)
	env.moods = NewMoodService(store)
	env.cascade = NewCascadeService(store, logger)
	return env
}

// steppingClock returns a clock that advances one second per call, so
// server timestamps are strictly increasing.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func (e *testEnv) user(t *testing.T, uid, name, email string) Actor {
	t.Helper()
	_, err := e.users.EnsureUser(context.Background(), uid, name, email)
	require.NoError(t, err)
	return Actor{UID: uid, Name: name}
}

func (e *testEnv) project(t *testing.T, creator Actor, title string) *models.Project {
	t.Helper()
	p, err := e.projects.Create(context.Background(), creator, ProjectInput{Title: title})
	require.NoError(t, err)
	return p
}

func (e *testEnv) getUser(t *testing.T, uid string) *models.User {
	t.Helper()
	u, err := e.users.GetByID(context.Background(), uid)
	require.NoError(t, err)
	return u
}

type sentInvite struct {
	to, project, inviter, code, url string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentInvite
	err  error
}

func (m *fakeMailer) SendProjectInvite(to, projectTitle, inviterName, inviteCode, joinURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentInvite{to, projectTitle, inviterName, inviteCode, joinURL})
	return nil
}

func intPtr(v int) *int { return &v }

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	var zero T
	return zero
}

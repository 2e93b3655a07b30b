package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/dimitrije/teamboard/internal/docstore/memstore"
	"github.com/dimitrije/teamboard/internal/middleware"
	"github.com/dimitrije/teamboard/internal/services"
)

func newTestJWTService() *services.JWTService {
	return services.NewJWTService("test-secret-key", 15*time.Minute, 24*time.Hour)
}

func generateTestToken(t *testing.T, jwtSvc *services.JWTService, uid, email string) string {
	t.Helper()
	pair, err := jwtSvc.GenerateTokenPair(uid, email)
	require.NoError(t, err)
	return pair.AccessToken
}

// apiEnv serves the full protected API over an in-memory store.
type apiEnv struct {
	store *memstore.Store
	hook  *logtest.Hook
	jwt   *services.JWTService
	users *services.UserService
	tasks *services.TaskService
	app   http.Handler
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	store := memstore.New()
	t.Cleanup(store.Close)

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	jwtSvc := newTestJWTService()
	users := services.NewUserService(store, logger)
	projects := services.NewProjectService(store, logger)
	activity := services.NewActivityService(store, logger)
	aggregation := services.NewAggregationService(store, logger)
	membership := services.NewMembershipService(store, projects, users, activity, nil, "http://app.test", logger)
	tasks := services.NewTaskService(store, activity, aggregation, logger)
	comments := services.NewCommentService(store, activity, users, logger)
	shoutouts := services.NewShoutoutService(store, logger)
	moods := services.NewMoodService(store)
	cascade := services.NewCascadeService(store, logger)

	userHandler := NewUserHandler(users, logger)
	projectHandler := NewProjectHandler(users, projects, membership, cascade, aggregation, activity, logger)
	taskHandler := NewTaskHandler(users, projects, tasks, aggregation, logger)
	socialHandler := NewSocialHandler(users, projects, tasks, comments, shoutouts, moods, logger)
	eventsHandler := NewEventsHandler(users, projects, membership, tasks, aggregation, activity, comments, shoutouts, moods, logger)

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(jwtSvc))

	app.Get("/users/me", userHandler.GetMe)
	app.Patch("/users/me", userHandler.UpdateMe)
	app.Post("/users/lookup", userHandler.Lookup)
	app.Get("/users/me/alerts", taskHandler.DeadlineAlerts)

	app.Get("/projects", projectHandler.List)
	app.Post("/projects", projectHandler.Create)
	app.Post("/join", projectHandler.Join)
	app.Get("/projects/:projectId", projectHandler.Get)
	app.Patch("/projects/:projectId", projectHandler.Update)
	app.Delete("/projects/:projectId", projectHandler.Delete)
	app.Post("/projects/:projectId/invites", projectHandler.Invite)
	app.Get("/projects/:projectId/leaderboard", projectHandler.Leaderboard)
	app.Get("/projects/:projectId/progress", projectHandler.Progress)
	app.Get("/projects/:projectId/activity", projectHandler.Activity)

	app.Get("/projects/:projectId/tasks", taskHandler.List)
	app.Post("/projects/:projectId/tasks", taskHandler.Create)
	app.Get("/projects/:projectId/export", taskHandler.ExportCSV)
	app.Get("/tasks/:taskId", taskHandler.Get)
	app.Patch("/tasks/:taskId/status", taskHandler.ChangeStatus)

	app.Get("/tasks/:taskId/comments", socialHandler.ListComments)
	app.Post("/tasks/:taskId/comments", socialHandler.AddComment)
	app.Patch("/comments/:commentId", socialHandler.EditComment)
	app.Delete("/comments/:commentId", socialHandler.DeleteComment)

	app.Get("/projects/:projectId/shoutouts", socialHandler.ListShoutouts)
	app.Post("/projects/:projectId/shoutouts", socialHandler.AddShoutout)
	app.Patch("/shoutouts/:shoutoutId", socialHandler.UpdateShoutout)
	app.Delete("/shoutouts/:shoutoutId", socialHandler.DeleteShoutout)
	app.Post("/shoutouts/:shoutoutId/cheer", socialHandler.Cheer)

	app.Get("/projects/:projectId/moods", socialHandler.ListMoods)
	app.Post("/projects/:projectId/moods", socialHandler.SetMood)
	app.Delete("/projects/:projectId/moods", socialHandler.DeleteMood)

	app.Get("/events/:topic", eventsHandler.Stream)

	return &apiEnv{store: store, hook: hook, jwt: jwtSvc, users: users, tasks: tasks, app: app}
}

// login creates the user document and returns a bearer token for it.
func (e *apiEnv) login(t *testing.T, uid, name, email string) string {
	t.Helper()
	_, err := e.users.EnsureUser(context.Background(), uid, name, email)
	require.NoError(t, err)
	return generateTestToken(t, e.jwt, uid, email)
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.app.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type projectBody struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Members    []string `json:"members"`
	InviteCode string   `json:"invite_code"`
	CreatedBy  string   `json:"created_by"`
	Progress   int      `json:"progress"`
	Role       string   `json:"role"`
}

type taskBody struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id"`
	Title      string `json:"title"`
	AssignedTo string `json:"assigned_to"`
	Status     string `json:"status"`
	Points     int    `json:"points"`
	Awarded    bool   `json:"awarded"`
}

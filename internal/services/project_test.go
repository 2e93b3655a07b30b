package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimitrije/teamboard/internal/docstore/memstore"
	"github.com/dimitrije/teamboard/internal/models"
)

func TestProjectService_Create(t *testing.T) {
	env := newEnv(t)
	ana := env.user(t, "u1", "Ana", "ana@example.com")

	p, err := env.projects.Create(context.Background(), ana, ProjectInput{Title: " Launch ", Description: "Q3"})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Launch", p.Title)
	assert.Equal(t, []string{"u1"}, p.Members)
	assert.Equal(t, map[string]string{"u1": models.RoleLeader}, p.Roles)
	assert.Equal(t, "u1", p.CreatedBy)
	assert.Len(t, p.InviteCode, 8)
	assert.Equal(t, 0, p.Progress)
	assert.False(t, p.CreatedAt.IsZero())

	assert.Equal(t, []string{p.ID}, env.getUser(t, "u1").Projects)
}

func TestProjectService_Create_RequiresTitle(t *testing.T) {
	env := newEnv(t)
	ana := env.user(t, "u1", "Ana", "ana@example.com")

	_, err := env.projects.Create(context.Background(), ana, ProjectInput{Title: "  "})

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, env.store.Count(models.CollectionProjects))
}

func TestProjectService_Create_LinkFailureLeavesProject(t *testing.T) {
	env := newEnv(t)
	ana := env.user(t, "u1", "Ana", "ana@example.com")
	env.store.InjectFault(func(op memstore.Operation, collection, id string) error {
		if op == memstore.OpUpdate && collection == models.CollectionUsers {
			return errors.New("unavailable")
		}
		return nil
	})

	p, err := env.projects.Create(context.Background(), ana, ProjectInput{Title: "Launch"})
	require.NoError(t, err)

	assert.Empty(t, env.getUser(t, "u1").Projects)
	entry := env.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "link creator", entry.Data["stage"])

	// the creator still finds the project through the createdBy query
	projects, err := env.projects.ListForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, p.ID, projects[0].ID)
}

func TestProjectService_Create_StoreFailure(t *testing.T) {
	env := newEnv(t)
	ana := env.user(t, "u1", "Ana", "ana@example.com")
	boom := errors.New("unavailable")
	env.store.InjectFault(func(op memstore.Operation, collection, id string) error {
		if op == memstore.OpCreate {
			return boom
		}
		return nil
	})

	_, err := env.projects.Create(context.Background(), ana, ProjectInput{Title: "Launch"})

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, env.getUser(t, "u1").Projects)
}

func TestProjectService_Update(t *testing.T) {
	env := newEnv(t)
	ana := env.user(t, "u1", "Ana", "ana@example.com")
	p := env.project(t, ana, "Launch")
	ctx := context.Background()

	title := "Launch v2"
	updated, err := env.projects.Update(ctx, p.ID, ProjectUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Launch v2", updated.Title)
	assert.Equal(t, p.InviteCode, updated.InviteCode)
	assert.Equal(t, p.Members, updated.Members)

	blank := ""
	_, err = env.projects.Update(ctx, p.ID, ProjectUpdate{Title: &blank})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.projects.Update(ctx, "missing", ProjectUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectService_RequireRoles(t *testing.T) {
	env := newEnv(t)
	ana := env.user(t, "u1", "Ana", "ana@example.com")
	bo := env.user(t, "u2", "Bo", "bo@example.com")
	env.user(t, "u3", "Cy", "cy@example.com")
	p := env.project(t, ana, "Launch")
	ctx := context.Background()
	_, err := env.membership.JoinByCode(ctx, bo, p.InviteCode)
	require.NoError(t, err)

	_, err = env.projects.RequireLeader(ctx, p.ID, "u1")
	assert.NoError(t, err)

	_, err = env.projects.RequireMember(ctx, p.ID, "u2")
	assert.NoError(t, err)
	_, err = env.projects.RequireLeader(ctx, p.ID, "u2")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.projects.RequireMember(ctx, p.ID, "u3")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.projects.RequireMember(ctx, "missing", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectService_SubscribeProject(t *testing.T) {
	env := newEnv(t)
	ana := env.user(t, "u1", "Ana", "ana@example.com")
	p := env.project(t, ana, "Launch")
	ctx := context.Background()

	deliveries := make(chan *models.Project, 16)
	unsub, err := env.projects.SubscribeProject(ctx, p.ID, func(p *models.Project, err error) {
		assert.NoError(t, err)
		deliveries <- p
	})
	require.NoError(t, err)
	defer unsub()

	first := receive(t, deliveries)
	require.NotNil(t, first)
	assert.Equal(t, "Launch", first.Title)

	title := "Renamed"
	_, err = env.projects.Update(ctx, p.ID, ProjectUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", receive(t, deliveries).Title)

	require.NoError(t, env.cascade.DeleteProject(ctx, p.ID))
	assert.Nil(t, receive(t, deliveries))
}

func TestNewInviteCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := NewInviteCode()
		assert.Len(t, code, 8)
		assert.NotContains(t, code, "-")
		seen[code] = true
	}
	assert.Greater(t, len(seen), 95)
}

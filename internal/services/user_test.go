package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimitrije/teamboard/internal/models"
	"github.com/dimitrije/teamboard/internal/oauth"
)

func TestUserService_EnsureUser_CreatesOnlyIfAbsent(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	created, err := env.users.EnsureUser(ctx, "u1", "Ana", "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana", created.Name)

	require.NoError(t, env.store.Update(ctx, models.CollectionUsers, "u1", map[string]any{"projects": []any{"p1"}}))

	again, err := env.users.EnsureUser(ctx, "u1", "Other", "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana", again.Name)
	assert.Equal(t, "ana@example.com", again.Email)
	assert.Equal(t, []string{"p1"}, again.Projects)
}

func TestUserService_FindOrCreateFromOAuth(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	info := &oauth.UserInfo{ID: "g-1", Provider: "google", Email: "ana@example.com", Name: "Ana", AvatarURL: "https://img/ana.png"}

	user, err := env.users.FindOrCreateFromOAuth(ctx, info)
	require.NoError(t, err)
	assert.Equal(t, info.UID(), user.UID)
	assert.Equal(t, "Ana", user.Name)

	info.Email = "ana@new.example.com"
	user, err = env.users.FindOrCreateFromOAuth(ctx, info)
	require.NoError(t, err)
	assert.Equal(t, info.UID(), user.UID)

	stored := env.getUser(t, info.UID())
	assert.Equal(t, "ana@new.example.com", stored.Email)
	assert.Equal(t, "https://img/ana.png", stored.Avatar)
}

func TestUserService_GetByEmail(t *testing.T) {
	env := newEnv(t)
	env.user(t, "u1", "Ana", "ana@example.com")

	u, err := env.users.GetByEmail(context.Background(), " ana@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UID)

	_, err = env.users.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_GetByIDs_SkipsMissingAndDuplicates(t *testing.T) {
	env := newEnv(t)
	env.user(t, "u1", "Ana", "ana@example.com")
	env.user(t, "u2", "Bo", "bo@example.com")

	users, err := env.users.GetByIDs(context.Background(), []string{"u2", "missing", "u1", "u2", ""})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u2", users[0].UID)
	assert.Equal(t, "u1", users[1].UID)
}

func TestUserService_UpdateProfile(t *testing.T) {
	env := newEnv(t)
	env.user(t, "u1", "Ana", "ana@example.com")
	ctx := context.Background()

	name, role := "Ana B", "Designer"
	u, err := env.users.UpdateProfile(ctx, "u1", ProfileUpdate{Name: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "Ana B", u.Name)
	assert.Equal(t, "Designer", u.Role)
	assert.Equal(t, "ana@example.com", u.Email)

	empty := "  "
	_, err = env.users.UpdateProfile(ctx, "u1", ProfileUpdate{Name: &empty})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.users.UpdateProfile(ctx, "ghost", ProfileUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

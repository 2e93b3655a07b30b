package storage

import (
	"context"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimitrije/teamboard/internal/config"
	"github.com/dimitrije/teamboard/internal/docstore"
)

func TestOpen_Memory(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	cfg := &config.Config{Store: config.StoreConfig{Driver: config.StoreMemory}}

	store, release, err := Open(context.Background(), cfg, log)
	require.NoError(t, err)
	defer release()

	ctx := context.Background()
	id, err := store.Create(ctx, "projects", docstore.Doc{"title": "Launch"})
	require.NoError(t, err)

	snap, err := store.Get(ctx, "projects", id)
	require.NoError(t, err)
	assert.Equal(t, "Launch", snap.Data["title"])

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "document store ready", hook.LastEntry().Message)
}

func TestOpen_UnknownDriver(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	cfg := &config.Config{Store: config.StoreConfig{Driver: "cassandra"}}

	_, _, err := Open(context.Background(), cfg, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cassandra")
}

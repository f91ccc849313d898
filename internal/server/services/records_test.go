package services

import (
	"context"
	"testing"
	"time"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/farmdeck/farmsync/internal/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordsService_CRUD(t *testing.T) {
	ctx := context.Background()
	env := newMemEnv(t)

	rec, created, err := env.records.Create(ctx, "t1", "u1", "paddocks", api.Record{"name": "Home"})
	require.NoError(t, err)
	assert.True(t, created)
	id := rec.ID()
	_, err = uuid.Parse(id)
	require.NoError(t, err, "server generates a UUID when none is given")

	again, created, err := env.records.Create(ctx, "t1", "u1", "paddocks", api.Record{"id": id, "name": "Other"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Home", again["name"])

	rec, err = env.records.Update(ctx, "t1", "u1", "paddocks", id, api.Record{"crop_type": "oats"})
	require.NoError(t, err)
	assert.Equal(t, "oats", rec["crop_type"])

	_, err = env.records.Update(ctx, "t1", "u1", "paddocks", id, api.Record{"id": uuid.NewString()})
	assert.ErrorIs(t, err, common.ErrValidation)

	rec, err = env.records.Upsert(ctx, "t1", "u1", "paddocks", id, api.Record{"name": "Replaced"})
	require.NoError(t, err)
	assert.NotContains(t, rec, "crop_type")

	list, err := env.records.List(ctx, "t1", "paddocks")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, env.records.Delete(ctx, "t1", "u1", "paddocks", id))
	require.NoError(t, env.records.Delete(ctx, "t1", "u1", "paddocks", id), "delete is idempotent")

	_, err = env.records.Get(ctx, "t1", "paddocks", id)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	pull, err := env.sync.Pull(ctx, "t1", time.Time{})
	require.NoError(t, err)
	assert.Len(t, pull.Changes, 3, "create, update and upsert are journaled")
	assert.Len(t, pull.Tombstones, 1)
}

func TestRecordsService_UnknownEntity(t *testing.T) {
	ctx := context.Background()
	env := newMemEnv(t)

	_, err := env.records.List(ctx, "t1", "tractors")
	assert.ErrorIs(t, err, common.ErrUnknownEntity)
	_, _, err = env.records.Create(ctx, "t1", "u1", "tractors", api.Record{})
	assert.ErrorIs(t, err, common.ErrUnknownEntity)
	assert.ErrorIs(t, env.records.Delete(ctx, "t1", "u1", "tractors", "x"), common.ErrUnknownEntity)
}

func TestRecordsService_CreateDoesNotMutateInput(t *testing.T) {
	env := newMemEnv(t)
	in := api.Record{"name": "Home"}

	_, _, err := env.records.Create(context.Background(), "t1", "u1", "paddocks", in)
	require.NoError(t, err)
	assert.NotContains(t, in, "id")
}

package configentry

import (
	"context"
	"testing"

	"metastore/internal/errs"
	"metastore/internal/model"
	"metastore/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateThenReadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entry, err := Create(ctx, s, "ACME", "connection", "primary-db", model.ObjectTypeResource, "obj-1", nil, nil, "SQL_SERVER")
	require.NoError(t, err)
	assert.Equal(t, int32(1), entry.ConfigVersion)

	read, err := Read(ctx, s, "ACME", "connection", "primary-db")
	require.NoError(t, err)
	assert.Equal(t, "obj-1", read.ObjectID)
	assert.False(t, read.Deleted)
}

func TestCreateAgainstLiveKeyIsDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := Create(ctx, s, "ACME", "connection", "primary-db", model.ObjectTypeResource, "obj-1", nil, nil, "")
	require.NoError(t, err)

	_, err = Create(ctx, s, "ACME", "connection", "primary-db", model.ObjectTypeResource, "obj-2", nil, nil, "")
	require.Error(t, err)
	assert.Equal(t, errs.Duplicate, errs.KindOf(err))
}

func TestDeleteThenCreateBumpsVersionAndClearsTombstone(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := Create(ctx, s, "ACME", "connection", "primary-db", model.ObjectTypeResource, "obj-1", nil, nil, "")
	require.NoError(t, err)

	_, err = Delete(ctx, s, "ACME", "connection", "primary-db")
	require.NoError(t, err)

	deleted, err := Read(ctx, s, "ACME", "connection", "primary-db")
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)
	assert.Equal(t, int32(2), deleted.ConfigVersion)

	recreated, err := Create(ctx, s, "ACME", "connection", "primary-db", model.ObjectTypeResource, "obj-3", nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, int32(3), recreated.ConfigVersion)
	assert.False(t, recreated.Deleted)
}

func TestUpdateRequiresLivePriorEntry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := Update(ctx, s, "ACME", "connection", "never-created", model.ObjectTypeResource, "obj-1", nil, nil, "")
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))

	_, err = Create(ctx, s, "ACME", "connection", "primary-db", model.ObjectTypeResource, "obj-1", nil, nil, "")
	require.NoError(t, err)
	_, err = Delete(ctx, s, "ACME", "connection", "primary-db")
	require.NoError(t, err)

	_, err = Update(ctx, s, "ACME", "connection", "primary-db", model.ObjectTypeResource, "obj-2", nil, nil, "")
	require.Error(t, err, "updating a tombstoned key must fail, not silently revive it")
}

func TestDeleteRequiresLivePriorEntry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := Delete(ctx, s, "ACME", "connection", "never-created")
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestListExcludesTombstonesByDefault(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := Create(ctx, s, "ACME", "connection", "a", model.ObjectTypeResource, "obj-a", nil, nil, "")
	require.NoError(t, err)
	_, err = Create(ctx, s, "ACME", "connection", "b", model.ObjectTypeResource, "obj-b", nil, nil, "")
	require.NoError(t, err)
	_, err = Delete(ctx, s, "ACME", "connection", "b")
	require.NoError(t, err)

	live, err := List(ctx, s, "ACME", "connection", false, nil, nil)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "a", live[0].ConfigKey)

	all, err := List(ctx, s, "ACME", "connection", true, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReadBatchPreservesOrderAndFailsOnFirstError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := Create(ctx, s, "ACME", "connection", "a", model.ObjectTypeResource, "obj-a", nil, nil, "")
	require.NoError(t, err)
	_, err = Create(ctx, s, "ACME", "connection", "b", model.ObjectTypeResource, "obj-b", nil, nil, "")
	require.NoError(t, err)

	entries, err := ReadBatch(ctx, s, "ACME", []Key{{ConfigClass: "connection", ConfigKey: "a"}, {ConfigClass: "connection", ConfigKey: "b"}})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].ConfigKey)
	assert.Equal(t, "b", entries[1].ConfigKey)

	_, err = ReadBatch(ctx, s, "ACME", []Key{{ConfigClass: "connection", ConfigKey: "a"}, {ConfigClass: "connection", ConfigKey: "missing"}})
	require.Error(t, err)
}

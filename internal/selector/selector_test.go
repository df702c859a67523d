package selector

import (
	"context"
	"testing"
	"time"

	"metastore/internal/model"
	"metastore/internal/store"
	"metastore/internal/types"

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

func latestSelector(objectID string) model.TagSelector {
	return model.TagSelector{
		ObjectType: model.ObjectTypeData, ObjectID: objectID,
		LatestObject: true, LatestTag: true,
	}
}

func TestResolveLatestAfterMultipleVersions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{}, nil)
	require.NoError(t, err)
	_, err = s.SaveNewVersion(ctx, "ACME", created.Header.ObjectID, model.Definition{}, nil)
	require.NoError(t, err)
	_, err = s.SaveNewTag(ctx, "ACME", created.Header.ObjectID, 2, map[string]types.Value{"x": types.NewInt(1)})
	require.NoError(t, err)

	resolved, err := Resolve(ctx, s, "ACME", latestSelector(created.Header.ObjectID))
	require.NoError(t, err)
	assert.Equal(t, int32(2), resolved.ObjectVersion)
	assert.Equal(t, int32(2), resolved.TagVersion)
}

func TestResolveExplicitVersion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{}, nil)
	require.NoError(t, err)
	_, err = s.SaveNewVersion(ctx, "ACME", created.Header.ObjectID, model.Definition{}, nil)
	require.NoError(t, err)

	v1 := int32(1)
	sel := model.TagSelector{
		ObjectType: model.ObjectTypeData, ObjectID: created.Header.ObjectID,
		ObjectVersion: &v1, LatestTag: true,
	}
	resolved, err := Resolve(ctx, s, "ACME", sel)
	require.NoError(t, err)
	assert.Equal(t, int32(1), resolved.ObjectVersion)
}

func TestResolveUnknownExplicitVersionIsNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{}, nil)
	require.NoError(t, err)

	missing := int32(99)
	sel := model.TagSelector{
		ObjectType: model.ObjectTypeData, ObjectID: created.Header.ObjectID,
		ObjectVersion: &missing, LatestTag: true,
	}
	_, err = Resolve(ctx, s, "ACME", sel)
	require.Error(t, err)
}

func TestResolveAsOfIsInclusiveOnLowerBound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{}, nil)
	require.NoError(t, err)
	firstTS := created.Header.ObjectTimestamp

	sel := model.TagSelector{
		ObjectType: model.ObjectTypeData, ObjectID: created.Header.ObjectID,
		ObjectAsOf: &firstTS, LatestTag: true,
	}
	resolved, err := Resolve(ctx, s, "ACME", sel)
	require.NoError(t, err)
	assert.Equal(t, int32(1), resolved.ObjectVersion)
}

func TestResolveAsOfBeforeEarliestRowIsNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{}, nil)
	require.NoError(t, err)
	before := created.Header.ObjectTimestamp.Add(-time.Hour)

	sel := model.TagSelector{
		ObjectType: model.ObjectTypeData, ObjectID: created.Header.ObjectID,
		ObjectAsOf: &before, LatestTag: true,
	}
	_, err = Resolve(ctx, s, "ACME", sel)
	require.Error(t, err)
}

func TestResolveWrongTypeSelector(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{}, nil)
	require.NoError(t, err)

	sel := latestSelector(created.Header.ObjectID)
	sel.ObjectType = model.ObjectTypeModel
	_, err = Resolve(ctx, s, "ACME", sel)
	require.Error(t, err)
}

func TestResolveBatchPreservesOrderAndFailsOnFirstError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{}, nil)
	require.NoError(t, err)
	b, err := s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{}, nil)
	require.NoError(t, err)

	sels := []model.TagSelector{latestSelector(a.Header.ObjectID), latestSelector(b.Header.ObjectID)}
	resolved, err := ResolveBatch(ctx, s, "ACME", sels)
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, a.Header.ObjectID, resolved[0].ObjectID)
	assert.Equal(t, b.Header.ObjectID, resolved[1].ObjectID)

	badSels := []model.TagSelector{latestSelector(a.Header.ObjectID), latestSelector("00000000-0000-0000-0000-000000000000")}
	_, err = ResolveBatch(ctx, s, "ACME", badSels)
	require.Error(t, err)
}

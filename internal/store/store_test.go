package store

import (
	"context"
	"testing"
	"time"

	"metastore/internal/model"
	"metastore/internal/search"
	"metastore/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveNewObjectThenLoadTag(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tag, err := s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{SchemaType: "table", Bytes: []byte("x")},
		map[string]types.Value{"owner": types.NewString("alice")})
	require.NoError(t, err)
	assert.Equal(t, int32(1), tag.Header.ObjectVersion)
	assert.Equal(t, int32(1), tag.Header.TagVersion)
	assert.True(t, tag.Header.IsLatestObject)
	assert.True(t, tag.Header.IsLatestTag)

	loaded, err := s.LoadTag(ctx, "ACME", tag.Header.ObjectID, 1, 1, true)
	require.NoError(t, err)
	assert.Equal(t, "table", loaded.Definition.SchemaType)
	assert.True(t, loaded.Attributes["owner"].Equal(types.NewString("alice")))
}

func TestSaveNewVersionFlipsLatestFlag(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{SchemaType: "t"}, nil)
	require.NoError(t, err)

	_, err = s.SaveNewVersion(ctx, "ACME", created.Header.ObjectID, model.Definition{SchemaType: "t"}, nil)
	require.NoError(t, err)

	v1, err := s.LoadTag(ctx, "ACME", created.Header.ObjectID, 1, 1, false)
	require.NoError(t, err)
	assert.False(t, v1.Header.IsLatestObject)

	v2, err := s.LoadTag(ctx, "ACME", created.Header.ObjectID, 2, 1, false)
	require.NoError(t, err)
	assert.True(t, v2.Header.IsLatestObject)
}

func TestSaveNewVersionAgainstUnknownObjectIsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.SaveNewVersion(context.Background(), "ACME", "00000000-0000-0000-0000-000000000000", model.Definition{}, nil)
	require.Error(t, err)
}

func TestPreallocateThenSave(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.PreallocateObjectID(ctx, "ACME", model.ObjectTypeFile)
	require.NoError(t, err)

	tag, err := s.SavePreallocated(ctx, "ACME", id, model.Definition{SchemaType: "f"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), tag.Header.ObjectVersion)

	_, err = s.SavePreallocated(ctx, "ACME", id, model.Definition{SchemaType: "f"}, nil)
	require.Error(t, err, "saving a second time against the same preallocated id must fail")
}

func TestSaveNewTagDensity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{}, map[string]types.Value{"a": types.NewInt(1)})
	require.NoError(t, err)

	h, err := s.SaveNewTag(ctx, "ACME", created.Header.ObjectID, 1, map[string]types.Value{"a": types.NewInt(2)})
	require.NoError(t, err)
	assert.Equal(t, int32(2), h.TagVersion)

	history, err := s.TagHistory(ctx, "ACME", created.Header.ObjectID, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].IsLatestTag)
	assert.True(t, history[1].IsLatestTag)
}

func TestSearchFindsLatestVersionByDefault(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report, err := s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{},
		map[string]types.Value{"dataset_class": types.NewString("sales_report")})
	require.NoError(t, err)
	_, err = s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{},
		map[string]types.Value{"dataset_class": types.NewString("other")})
	require.NoError(t, err)

	expr := search.Term{AttrName: "dataset_class", AttrType: types.STRING, Operator: search.EQ, Value: types.NewString("sales_report")}
	results, err := s.Search(ctx, "ACME", model.ObjectTypeData, expr, SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, report.Header.ObjectID, results[0].Header.ObjectID)
	assert.Nil(t, results[0].Definition)
}

func TestSearchPriorVersionsIncludesSupersededVersions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{},
		map[string]types.Value{"status": types.NewString("draft")})
	require.NoError(t, err)
	_, err = s.SaveNewVersion(ctx, "ACME", created.Header.ObjectID, model.Definition{},
		map[string]types.Value{"status": types.NewString("final")})
	require.NoError(t, err)

	expr := search.Term{AttrName: "status", AttrType: types.STRING, Operator: search.EQ, Value: types.NewString("draft")}

	latestOnly, err := s.Search(ctx, "ACME", model.ObjectTypeData, expr, SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, latestOnly, "draft was superseded, so the latest-only search must not find it")

	withPrior, err := s.Search(ctx, "ACME", model.ObjectTypeData, expr, SearchOptions{PriorVersions: true})
	require.NoError(t, err)
	require.Len(t, withPrior, 1)
}

func TestSaveBatchRollsBackOnFailure(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{}, nil)
	require.NoError(t, err)

	ops := []BatchOp{
		{Kind: BatchNewTag, ObjectID: created.Header.ObjectID, ObjectVersion: 1, Attributes: map[string]types.Value{"x": types.NewInt(1)}, Raw: []byte("op1")},
		{Kind: BatchNewTag, ObjectID: created.Header.ObjectID, ObjectVersion: 99, Attributes: map[string]types.Value{"x": types.NewInt(2)}, Raw: []byte("op2")},
	}
	_, err = s.SaveBatch(ctx, "ACME", ops)
	require.Error(t, err)

	history, err := s.TagHistory(ctx, "ACME", created.Header.ObjectID, 1)
	require.NoError(t, err)
	require.Len(t, history, 1, "the first op's tag must not survive once the batch fails")
}

func TestSaveBatchRejectsReplayedFingerprint(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{}, nil)
	require.NoError(t, err)

	ops := []BatchOp{
		{Kind: BatchNewTag, ObjectID: created.Header.ObjectID, ObjectVersion: 1, Attributes: map[string]types.Value{"x": types.NewInt(1)}, Raw: []byte("same")},
	}
	_, err = s.SaveBatch(ctx, "ACME", ops)
	require.NoError(t, err)

	_, err = s.SaveBatch(ctx, "ACME", ops)
	require.Error(t, err, "resubmitting the identical batch must not apply it twice")
}

func TestObjectHistoryOrdersOldestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.SaveNewObject(ctx, "ACME", model.ObjectTypeData, model.Definition{}, nil)
	require.NoError(t, err)
	time.Sleep(time.Microsecond)
	_, err = s.SaveNewVersion(ctx, "ACME", created.Header.ObjectID, model.Definition{}, nil)
	require.NoError(t, err)

	history, err := s.ObjectHistory(ctx, "ACME", created.Header.ObjectID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int32(1), history[0].ObjectVersion)
	assert.Equal(t, int32(2), history[1].ObjectVersion)
}

package service

import (
	"context"
	"testing"

	"metastore/internal/configentry"
	"metastore/internal/errs"
	"metastore/internal/model"
	"metastore/internal/notify"
	"metastore/internal/search"
	"metastore/internal/store"
	"metastore/internal/tagupdate"
	"metastore/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, notify.LogNotifier{})
}

var publicCaller = Caller{Trusted: false, UserID: "u1", UserName: "alice"}
var trustedCaller = Caller{Trusted: true, UserID: "svc", UserName: "system"}

func createAttrUpdate(name, value string) tagupdate.Update {
	return tagupdate.Update{Operation: tagupdate.OpCreateAttr, AttrName: name, Value: types.NewString(value)}
}

func TestCreateObjectInjectsAuditAttrsAndAppliedUpdates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tag, err := svc.CreateObject(ctx, "ACME", publicCaller, model.ObjectTypeData,
		model.Definition{SchemaType: "csv"}, []tagupdate.Update{createAttrUpdate("dataset_class", "GOLD")})
	require.NoError(t, err)

	assert.Equal(t, "GOLD", tag.Attributes["dataset_class"].Scalar.Str)
	assert.Equal(t, "u1", tag.Attributes["trac_create_user_id"].Scalar.Str)
	assert.Equal(t, "alice", tag.Attributes["trac_create_user_name"].Scalar.Str)
	assert.Equal(t, tag.Attributes["trac_create_time"], tag.Attributes["trac_update_time"])
	assert.Equal(t, int32(1), tag.Header.ObjectVersion)
	assert.Equal(t, int32(1), tag.Header.TagVersion)
}

func TestCreateObjectRejectsReservedAttrFromPublicCaller(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateObject(ctx, "ACME", publicCaller, model.ObjectTypeData,
		model.Definition{}, []tagupdate.Update{createAttrUpdate("trac_custom_marker", "x")})
	require.Error(t, err)
	assert.Equal(t, errs.PermissionDenied, errs.KindOf(err))
}

func TestCreateObjectAllowsReservedAttrFromTrustedCaller(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tag, err := svc.CreateObject(ctx, "ACME", trustedCaller, model.ObjectTypeData,
		model.Definition{}, []tagupdate.Update{createAttrUpdate("trac_custom_marker", "x")})
	require.NoError(t, err)
	assert.Equal(t, "x", tag.Attributes["trac_custom_marker"].Scalar.Str)
}

func TestCreateObjectRejectsRestrictedTypeFromPublicCaller(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateObject(ctx, "ACME", publicCaller, model.ObjectTypeResource, model.Definition{}, nil)
	require.Error(t, err)
	assert.Equal(t, errs.PermissionDenied, errs.KindOf(err))
}

func TestCreateObjectAllowsRestrictedTypeFromTrustedCaller(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateObject(ctx, "ACME", trustedCaller, model.ObjectTypeResource, model.Definition{}, nil)
	require.NoError(t, err)
}

func TestUpdateObjectInheritsCreateAttrsAndRefreshesUpdateAttrs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateObject(ctx, "ACME", publicCaller, model.ObjectTypeData,
		model.Definition{SchemaType: "csv"}, []tagupdate.Update{createAttrUpdate("dataset_class", "BRONZE")})
	require.NoError(t, err)
	createTime := created.Attributes["trac_create_time"]

	updated, err := svc.UpdateObject(ctx, "ACME", publicCaller, created.Header.ObjectID, model.ObjectTypeData,
		model.Definition{SchemaType: "csv"}, []tagupdate.Update{
			{Operation: tagupdate.OpReplaceAttr, AttrName: "dataset_class", Value: types.NewString("GOLD")},
		})
	require.NoError(t, err)

	assert.Equal(t, int32(2), updated.Header.ObjectVersion)
	assert.Equal(t, "GOLD", updated.Attributes["dataset_class"].Scalar.Str)
	assert.Equal(t, createTime, updated.Attributes["trac_create_time"], "create attrs propagate from V1")
	assert.Equal(t, "u1", updated.Attributes["trac_update_user_id"].Scalar.Str)
}

func TestUpdateObjectWrongTypeAgainstStoredIsWrongType(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateObject(ctx, "ACME", publicCaller, model.ObjectTypeData, model.Definition{}, nil)
	require.NoError(t, err)

	_, err = svc.UpdateObject(ctx, "ACME", publicCaller, created.Header.ObjectID, model.ObjectTypeModel, model.Definition{}, nil)
	require.Error(t, err)
	assert.Equal(t, errs.WrongType, errs.KindOf(err))
}

func TestUpdateTagAppendsOverInheritedAttributes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateObject(ctx, "ACME", publicCaller, model.ObjectTypeData, model.Definition{},
		[]tagupdate.Update{{Operation: tagupdate.OpCreateAttr, AttrName: "tags", Value: types.NewString("a")}})
	require.NoError(t, err)

	sel := model.TagSelector{ObjectType: model.ObjectTypeData, ObjectID: created.Header.ObjectID, LatestObject: true, LatestTag: true}
	updated, err := svc.UpdateTag(ctx, "ACME", publicCaller, sel, []tagupdate.Update{
		{Operation: tagupdate.OpAppendAttr, AttrName: "tags", Value: types.NewString("b")},
	})
	require.NoError(t, err)

	assert.Equal(t, int32(2), updated.Header.TagVersion)
	assert.True(t, updated.Attributes["tags"].IsArray)
	assert.Len(t, updated.Attributes["tags"].Elements, 2)
}

func TestPreallocateIDRequiresTrustedCaller(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.PreallocateID(ctx, "ACME", publicCaller, model.ObjectTypeData)
	require.Error(t, err)
	assert.Equal(t, errs.PermissionDenied, errs.KindOf(err))

	id, err := svc.PreallocateID(ctx, "ACME", trustedCaller, model.ObjectTypeData)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestCreatePreallocatedObjectRejectsTypeMismatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.PreallocateID(ctx, "ACME", trustedCaller, model.ObjectTypeData)
	require.NoError(t, err)

	_, err = svc.CreatePreallocatedObject(ctx, "ACME", trustedCaller, id, model.ObjectTypeModel, model.Definition{}, nil)
	require.Error(t, err)
	assert.Equal(t, errs.WrongType, errs.KindOf(err))

	tag, err := svc.CreatePreallocatedObject(ctx, "ACME", trustedCaller, id, model.ObjectTypeData, model.Definition{}, nil)
	require.NoError(t, err)
	assert.Equal(t, id, tag.Header.ObjectID)
}

func TestReadObjectAndReadBatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateObject(ctx, "ACME", publicCaller, model.ObjectTypeData, model.Definition{}, nil)
	require.NoError(t, err)
	b, err := svc.CreateObject(ctx, "ACME", publicCaller, model.ObjectTypeData, model.Definition{}, nil)
	require.NoError(t, err)

	sel := func(id string) model.TagSelector {
		return model.TagSelector{ObjectType: model.ObjectTypeData, ObjectID: id, LatestObject: true, LatestTag: true}
	}

	read, err := svc.ReadObject(ctx, "ACME", sel(a.Header.ObjectID))
	require.NoError(t, err)
	assert.Equal(t, a.Header.ObjectID, read.Header.ObjectID)

	batch, err := svc.ReadBatch(ctx, "ACME", []model.TagSelector{sel(a.Header.ObjectID), sel(b.Header.ObjectID)})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, a.Header.ObjectID, batch[0].Header.ObjectID)
	assert.Equal(t, b.Header.ObjectID, batch[1].Header.ObjectID)
}

func TestWriteBatchCommitsAllOrNothing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := BatchRequest{
		CreateObjects: []CreateObjectBatchItem{
			{ObjectType: model.ObjectTypeData, Definition: model.Definition{}, Updates: []tagupdate.Update{createAttrUpdate("a", "1")}},
		},
		NewVersions: []NewVersionBatchItem{
			{ObjectID: "00000000-0000-0000-0000-000000000000", ObjectType: model.ObjectTypeData, Definition: model.Definition{}},
		},
	}

	_, err := svc.WriteBatch(ctx, "ACME", publicCaller, req)
	require.Error(t, err, "the second item references an object that was never saved")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestWriteBatchCreateObjectsAndNewTagsCommitTogether(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateObject(ctx, "ACME", publicCaller, model.ObjectTypeData, model.Definition{}, nil)
	require.NoError(t, err)

	req := BatchRequest{
		CreateObjects: []CreateObjectBatchItem{
			{ObjectType: model.ObjectTypeData, Definition: model.Definition{}, Updates: []tagupdate.Update{createAttrUpdate("a", "1")}},
		},
		NewTags: []NewTagBatchItem{
			{
				Selector: model.TagSelector{ObjectType: model.ObjectTypeData, ObjectID: created.Header.ObjectID, LatestObject: true, LatestTag: true},
				Updates:  []tagupdate.Update{createAttrUpdate("b", "2")},
			},
		},
	}

	result, err := svc.WriteBatch(ctx, "ACME", publicCaller, req)
	require.NoError(t, err)
	require.Len(t, result.Objects, 1)
	require.Len(t, result.Tags, 1)
	assert.Equal(t, int32(2), result.Tags[0].TagVersion)
}

func TestWriteBatchConfigEntriesRequireTrustedCaller(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := BatchRequest{
		ConfigEntries: []ConfigEntryBatchItem{
			{ConfigClass: "connection", ConfigKey: "primary", ObjectType: model.ObjectTypeResource, ObjectID: "obj-1"},
		},
	}

	_, err := svc.WriteBatch(ctx, "ACME", publicCaller, req)
	require.Error(t, err)
	assert.Equal(t, errs.PermissionDenied, errs.KindOf(err))

	result, err := svc.WriteBatch(ctx, "ACME", trustedCaller, req)
	require.NoError(t, err)
	require.Len(t, result.ConfigEntries, 1)
	assert.Equal(t, int32(1), result.ConfigEntries[0].ConfigVersion)
}

func TestSearchFindsCreatedObject(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateObject(ctx, "ACME", publicCaller, model.ObjectTypeData, model.Definition{},
		[]tagupdate.Update{createAttrUpdate("dataset_class", "GOLD")})
	require.NoError(t, err)

	expr := search.Term{AttrName: "dataset_class", AttrType: types.STRING, Operator: search.EQ, Value: types.NewString("GOLD")}
	found, err := svc.Search(ctx, "ACME", model.ObjectTypeData, expr, store.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created.Header.ObjectID, found[0].Header.ObjectID)

	miss := search.Term{AttrName: "dataset_class", AttrType: types.STRING, Operator: search.EQ, Value: types.NewString("BRONZE")}
	none, err := svc.Search(ctx, "ACME", model.ObjectTypeData, miss, store.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestConfigEntryServiceMethodsRequireTrustedCaller(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateConfigObject(ctx, "ACME", publicCaller, "connection", "primary", model.ObjectTypeResource, "obj-1", nil, nil, "")
	require.Error(t, err)
	assert.Equal(t, errs.PermissionDenied, errs.KindOf(err))

	entry, err := svc.CreateConfigObject(ctx, "ACME", trustedCaller, "connection", "primary", model.ObjectTypeResource, "obj-1", nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), entry.ConfigVersion)

	read, err := svc.ReadConfigObject(ctx, "ACME", trustedCaller, "connection", "primary")
	require.NoError(t, err)
	assert.Equal(t, "obj-1", read.ObjectID)

	batch, err := svc.ReadConfigBatch(ctx, "ACME", trustedCaller, []configentry.Key{{ConfigClass: "connection", ConfigKey: "primary"}})
	require.NoError(t, err)
	require.Len(t, batch, 1)

	deleted, err := svc.DeleteConfigObject(ctx, "ACME", trustedCaller, "connection", "primary")
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)

	list, err := svc.ListConfigEntries(ctx, "ACME", trustedCaller, "connection", true, nil, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

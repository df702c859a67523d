package model

import (
	"testing"
	"time"

	"metastore/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestValidateObjectType(t *testing.T) {
	assert.NoError(t, ValidateObjectType(ObjectTypeData))
	assert.NoError(t, ValidateObjectType(ObjectTypeResource))
	assert.Error(t, ValidateObjectType(ObjectType("BOGUS")))
}

func TestPublicObjectTypesExcludesTrustedOnly(t *testing.T) {
	assert.True(t, PublicObjectTypes[ObjectTypeData])
	assert.False(t, PublicObjectTypes[ObjectTypeResource])
	assert.False(t, PublicObjectTypes[ObjectTypeConfig])
}

func TestTagCloneIsIndependentOfSource(t *testing.T) {
	original := Tag{
		Header:     Header{ObjectID: "obj-1"},
		Attributes: map[string]types.Value{"x": types.NewString("a")},
	}
	clone := original.Clone()
	clone.Attributes["x"] = types.NewString("b")
	clone.Attributes["y"] = types.NewString("new")

	assert.Equal(t, "a", original.Attributes["x"].Scalar.Str)
	_, ok := original.Attributes["y"]
	assert.False(t, ok)
}

func TestTagSelectorValidate(t *testing.T) {
	v1 := int32(1)
	now := time.Now()

	valid := TagSelector{ObjectType: ObjectTypeData, ObjectID: "obj-1", LatestObject: true, LatestTag: true}
	assert.NoError(t, valid.Validate())

	missingID := TagSelector{ObjectType: ObjectTypeData, LatestObject: true, LatestTag: true}
	assert.Error(t, missingID.Validate())

	badType := TagSelector{ObjectType: "BOGUS", ObjectID: "obj-1", LatestObject: true, LatestTag: true}
	assert.Error(t, badType.Validate())

	ambiguousObjectMode := TagSelector{
		ObjectType: ObjectTypeData, ObjectID: "obj-1",
		ObjectVersion: &v1, LatestObject: true, LatestTag: true,
	}
	assert.Error(t, ambiguousObjectMode.Validate())

	noTagMode := TagSelector{ObjectType: ObjectTypeData, ObjectID: "obj-1", LatestObject: true}
	assert.Error(t, noTagMode.Validate())

	fullySpecified := TagSelector{
		ObjectType: ObjectTypeData, ObjectID: "obj-1",
		ObjectAsOf: &now, TagVersion: &v1,
	}
	assert.NoError(t, fullySpecified.Validate())
}

package tagupdate

import (
	"testing"

	"metastore/internal/errs"
	"metastore/internal/model"
	"metastore/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyTag() model.Tag {
	return model.Tag{Attributes: map[string]types.Value{}}
}

func TestCreateThenDeleteIsNoOp(t *testing.T) {
	start := emptyTag()
	result, err := Apply(start, []Update{
		{Operation: OpCreateAttr, AttrName: "rodent_type", Value: types.NewString("bilge_rat")},
		{Operation: OpDeleteAttr, AttrName: "rodent_type"},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Attributes)
}

func TestAppendAppendEqualsAppendCombined(t *testing.T) {
	start := emptyTag()
	start.Attributes["classes"] = types.StringArray("pii")

	left, err := Apply(start, []Update{
		{Operation: OpAppendAttr, AttrName: "classes", Value: types.NewString("confidential")},
		{Operation: OpAppendAttr, AttrName: "classes", Value: types.NewString("internal")},
	})
	require.NoError(t, err)

	right, err := Apply(start, []Update{
		{Operation: OpAppendAttr, AttrName: "classes", Value: types.StringArray("confidential", "internal")},
	})
	require.NoError(t, err)

	assert.True(t, left.Attributes["classes"].Equal(right.Attributes["classes"]))
}

func TestCreateOnExistingAttributeIsBadUpdate(t *testing.T) {
	start := emptyTag()
	start.Attributes["x"] = types.NewInt(1)
	_, err := Apply(start, []Update{{Operation: OpCreateAttr, AttrName: "x", Value: types.NewInt(2)}})
	require.Error(t, err)
	assert.Equal(t, errs.BadUpdate, errs.KindOf(err))
}

func TestDeleteThenCreateLeavesNewValue(t *testing.T) {
	start := emptyTag()
	start.Attributes["x"] = types.NewInt(1)
	result, err := Apply(start, []Update{
		{Operation: OpDeleteAttr, AttrName: "x"},
		{Operation: OpCreateAttr, AttrName: "x", Value: types.NewInt(2)},
	})
	require.NoError(t, err)
	assert.True(t, result.Attributes["x"].Equal(types.NewInt(2)))
}

func TestWholeBatchRejectedOnFailure(t *testing.T) {
	start := emptyTag()
	start.Attributes["x"] = types.NewInt(1)
	_, err := Apply(start, []Update{
		{Operation: OpCreateAttr, AttrName: "y", Value: types.NewInt(9)},
		{Operation: OpCreateAttr, AttrName: "x", Value: types.NewInt(2)}, // fails: x exists
	})
	require.Error(t, err)
}

func TestDefaultOperationIsCreateOrReplace(t *testing.T) {
	start := emptyTag()
	result, err := Apply(start, []Update{{AttrName: "x", Value: types.NewInt(5)}})
	require.NoError(t, err)
	assert.True(t, result.Attributes["x"].Equal(types.NewInt(5)))

	result2, err := Apply(result, []Update{{AttrName: "x", Value: types.NewInt(6)}})
	require.NoError(t, err)
	assert.True(t, result2.Attributes["x"].Equal(types.NewInt(6)))
}

func TestClearAllAttrPreservesReservedAttrs(t *testing.T) {
	start := emptyTag()
	start.Attributes["x"] = types.NewInt(1)
	start.Attributes["trac_create_time"] = types.NewString("2024-01-01T00:00:00Z")
	result, err := Apply(start, []Update{{Operation: OpClearAllAttr}})
	require.NoError(t, err)
	_, hasX := result.Attributes["x"]
	assert.False(t, hasX)
	_, hasReserved := result.Attributes["trac_create_time"]
	assert.True(t, hasReserved)
}

func TestReplaceRequiresCompatibleType(t *testing.T) {
	start := emptyTag()
	start.Attributes["x"] = types.NewInt(1)
	_, err := Apply(start, []Update{{Operation: OpReplaceAttr, AttrName: "x", Value: types.NewString("nope")}})
	require.Error(t, err)
}

func TestAppendRequiresSameElementType(t *testing.T) {
	start := emptyTag()
	start.Attributes["x"] = types.StringArray("a")
	_, err := Apply(start, []Update{{Operation: OpAppendAttr, AttrName: "x", Value: types.NewInt(1)}})
	require.Error(t, err)
}

func TestCreateOrAppendBehavesAsCreateWhenAbsent(t *testing.T) {
	start := emptyTag()
	result, err := Apply(start, []Update{{Operation: OpCreateOrAppendAttr, AttrName: "x", Value: types.NewInt(1)}})
	require.NoError(t, err)
	assert.True(t, result.Attributes["x"].Equal(types.NewInt(1)))
}

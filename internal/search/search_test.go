package search

import (
	"testing"
	"time"

	"metastore/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attrs(pairs ...interface{}) map[string]types.Value {
	m := make(map[string]types.Value)
	for i := 0; i < len(pairs); i += 2 {
		m[pairs[i].(string)] = pairs[i+1].(types.Value)
	}
	return m
}

func TestSearchScenarioFromSpecSection8(t *testing.T) {
	y2000 := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	universe := map[RowID]map[string]types.Value{
		"t1": attrs(
			"dataset_class", types.NewString("sales_report"),
			"record_date", types.NewDate(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)),
			"data_classification", types.StringArray("public"),
		),
		"t2": attrs(
			"dataset_class", types.NewString("sales_report"),
			"record_date", types.NewDate(time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)),
			"data_classification", types.StringArray("public"),
		),
		"t3": attrs(
			"dataset_class", types.NewString("sales_report"),
			"record_date", types.NewDate(time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)),
			"data_classification", types.StringArray("pii"),
		),
		"t4": attrs(
			"dataset_class", types.NewString("other"),
			"record_date", types.NewDate(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)),
			"data_classification", types.StringArray("public"),
		),
	}

	expr := Logical{Op: AND, Children: []Expression{
		Term{AttrName: "dataset_class", AttrType: types.STRING, Operator: EQ, Value: types.NewString("sales_report")},
		Logical{Op: OR, Children: []Expression{
			Term{AttrName: "record_date", AttrType: types.DATE, Operator: LT, Value: types.NewDate(y2000)},
			Logical{Op: NOT, Children: []Expression{
				Term{AttrName: "data_classification", AttrType: types.STRING, Operator: IN, Value: types.StringArray("pii", "confidential")},
			}},
		}},
	}}

	matched, err := Evaluate(expr, universe)
	require.NoError(t, err)
	assert.Equal(t, map[RowID]struct{}{"t1": {}, "t2": {}}, matched)
}

func TestNotEqualsUniverseMinusChild(t *testing.T) {
	universe := map[RowID]map[string]types.Value{
		"a": attrs("x", types.NewInt(1)),
		"b": attrs("x", types.NewInt(2)),
		"c": attrs(), // missing attribute entirely
	}
	term := Term{AttrName: "x", AttrType: types.INTEGER, Operator: EQ, Value: types.NewInt(1)}
	eq, err := Evaluate(term, universe)
	require.NoError(t, err)

	not := Logical{Op: NOT, Children: []Expression{term}}
	notResult, err := Evaluate(not, universe)
	require.NoError(t, err)

	union := make(map[RowID]struct{})
	for id := range eq {
		union[id] = struct{}{}
	}
	for id := range notResult {
		union[id] = struct{}{}
	}
	assert.Len(t, union, len(universe), "NOT(E) and E must partition the universe")
	for id := range eq {
		_, inNot := notResult[id]
		assert.False(t, inNot)
	}
}

func TestNEMatchesMissingAndWrongType(t *testing.T) {
	universe := map[RowID]map[string]types.Value{
		"missing":   attrs(),
		"wrongtype": attrs("x", types.NewString("1")),
		"equal":     attrs("x", types.NewInt(1)),
		"different": attrs("x", types.NewInt(2)),
	}
	term := Term{AttrName: "x", AttrType: types.INTEGER, Operator: NE, Value: types.NewInt(1)}
	matched, err := Evaluate(term, universe)
	require.NoError(t, err)
	assert.Contains(t, matched, RowID("missing"))
	assert.Contains(t, matched, RowID("wrongtype"))
	assert.Contains(t, matched, RowID("different"))
	assert.NotContains(t, matched, RowID("equal"))
}

func TestOrderedOperatorNeverMatchesMultiValued(t *testing.T) {
	universe := map[RowID]map[string]types.Value{
		"arr": attrs("n", types.IntArray(1, 2, 3)),
	}
	term := Term{AttrName: "n", AttrType: types.INTEGER, Operator: GT, Value: types.NewInt(0)}
	matched, err := Evaluate(term, universe)
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestINForbiddenForBoolean(t *testing.T) {
	term := Term{AttrName: "flag", AttrType: types.BOOLEAN, Operator: IN, Value: types.Value{Type: types.BOOLEAN, IsArray: true}}
	err := Validate(term)
	assert.Error(t, err)
}

func TestValidateRejectsOrderedOperatorOnUnorderedType(t *testing.T) {
	term := Term{AttrName: "name", AttrType: types.STRING, Operator: GT, Value: types.NewString("a")}
	assert.Error(t, Validate(term))
}

func TestValidateRejectsNotWithoutExactlyOneChild(t *testing.T) {
	assert.Error(t, Validate(Logical{Op: NOT, Children: []Expression{}}))
	assert.Error(t, Validate(Logical{Op: AND, Children: []Expression{}}))
}

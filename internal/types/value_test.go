package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalEncodingRoundTrip(t *testing.T) {
	cases := []Value{
		NewBool(true),
		NewInt(-42),
		NewFloat(3.25),
		NewString("bilge_rat"),
		IntArray(1, 2, 3),
		StringArray("pii", "confidential"),
		NewDate(time.Date(2024, 1, 15, 23, 59, 59, 0, time.UTC)),
		NewDateTime(time.Date(2024, 1, 15, 10, 30, 45, 123456000, time.UTC)),
	}
	dec, err := ParseDecimal("-12.340")
	require.NoError(t, err)
	cases = append(cases, NewDecimalValue(dec))

	for _, v := range cases {
		encoded := Encode(v)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.True(t, v.Equal(decoded), "round trip mismatch for %+v", v)
		assert.Equal(t, encoded, Encode(decoded), "re-encoding should be identical")
	}
}

func TestIntegerArrayNormalizedRegardlessOfOrigin(t *testing.T) {
	a, err := NewArray(INTEGER, []Scalar{{Int: 1}, {Int: 2}})
	require.NoError(t, err)
	b := IntArray(1, 2)
	assert.Equal(t, Encode(a), Encode(b))
}

func TestDateTimeTruncatedToMicroseconds(t *testing.T) {
	withNanos := time.Date(2024, 3, 1, 0, 0, 0, 123456789, time.UTC)
	v := NewDateTime(withNanos)
	got, err := v.AsTime()
	require.NoError(t, err)
	assert.Equal(t, int64(123456000), int64(got.Nanosecond()))
}

func TestDecimalPreservesScaleForEquality(t *testing.T) {
	a, _ := ParseDecimal("1.5")
	b, _ := ParseDecimal("1.50")
	assert.False(t, EqualDecimal(a, b), "differing scale means not Equal")
	assert.Equal(t, 0, CompareDecimal(a, b), "but numerically equal for ordering")
}

func TestBooleanArrayForbidden(t *testing.T) {
	_, err := NewArray(BOOLEAN, []Scalar{{Bool: true}})
	assert.Error(t, err)
}

func TestCompareRejectsArraysAndUnorderedTypes(t *testing.T) {
	_, err := Compare(IntArray(1), IntArray(2))
	assert.Error(t, err)

	_, err = Compare(NewString("a"), NewString("b"))
	assert.Error(t, err)

	got, err := Compare(NewInt(1), NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, -1, got)
}

func TestElementEqualsAnyOnMultiValuedAttribute(t *testing.T) {
	arr := StringArray("pii", "confidential")
	assert.True(t, ElementEqualsAny(arr, NewString("pii")))
	assert.False(t, ElementEqualsAny(arr, NewString("public")))
}

func TestIntersectsAnyForIn(t *testing.T) {
	stored := NewString("confidential")
	ok, err := IntersectsAny(stored, StringArray("pii", "confidential"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IntersectsAny(stored, StringArray("pii"))
	require.NoError(t, err)
	assert.False(t, ok)
}

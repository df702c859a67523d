package types

import (
	"fmt"
	"time"
)

// Scalar is a single typed element. Exactly one of the fields matching
// Type is meaningful; the others are zero. Scalar never appears outside a
// Value, which also carries the BasicType.
type Scalar struct {
	Bool     bool
	Int      int64
	Float    float64
	Str      string
	Decimal  Decimal
	DateDays int32 // DATE: days since Unix epoch, UTC
	DateTime int64 // DATETIME: microseconds since Unix epoch, UTC
}

// Value is a typed attribute value: either a single scalar of Type, or an
// ordered array of scalars of Type. BOOLEAN arrays are never constructed
// (rejected by NewArray) per spec.md section 3.1.
type Value struct {
	Type     BasicType
	IsArray  bool
	Scalar   Scalar   // meaningful when !IsArray
	Elements []Scalar // meaningful when IsArray
}

func NewBool(b bool) Value     { return Value{Type: BOOLEAN, Scalar: Scalar{Bool: b}} }
func NewInt(i int64) Value     { return Value{Type: INTEGER, Scalar: Scalar{Int: i}} }
func NewFloat(f float64) Value { return Value{Type: FLOAT, Scalar: Scalar{Float: f}} }
func NewString(s string) Value { return Value{Type: STRING, Scalar: Scalar{Str: s}} }
func NewDecimalValue(d Decimal) Value {
	return Value{Type: DECIMAL, Scalar: Scalar{Decimal: d}}
}

// NewDate builds a DATE value from a UTC calendar day (the time component
// of t is discarded).
func NewDate(t time.Time) Value {
	t = t.UTC()
	days := t.Truncate(24 * time.Hour).Unix() / 86400
	return Value{Type: DATE, Scalar: Scalar{DateDays: int32(days)}}
}

// NewDateTime builds a DATETIME value truncated to microsecond precision,
// per spec.md section 4.1.
func NewDateTime(t time.Time) Value {
	return Value{Type: DATETIME, Scalar: Scalar{DateTime: t.UTC().UnixMicro()}}
}

// AsTime converts a DATE or DATETIME value back to a time.Time in UTC.
func (v Value) AsTime() (time.Time, error) {
	switch v.Type {
	case DATE:
		return time.Unix(int64(v.Scalar.DateDays)*86400, 0).UTC(), nil
	case DATETIME:
		return time.UnixMicro(v.Scalar.DateTime).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("value of type %s has no time representation", v.Type)
	}
}

// NewArray builds an array value of the given element type. BOOLEAN is
// rejected (spec.md section 3.1: "BOOLEAN arrays are forbidden").
func NewArray(elemType BasicType, elements []Scalar) (Value, error) {
	if !elemType.ArrayAllowed() {
		return Value{}, fmt.Errorf("%s arrays are not permitted", elemType)
	}
	cp := make([]Scalar, len(elements))
	copy(cp, elements)
	return Value{Type: elemType, IsArray: true, Elements: cp}, nil
}

// IntArray is a convenience constructor over raw int64s.
func IntArray(ints ...int64) Value {
	elems := make([]Scalar, len(ints))
	for i, n := range ints {
		elems[i] = Scalar{Int: n}
	}
	v, _ := NewArray(INTEGER, elems)
	return v
}

// StringArray is a convenience constructor over raw strings.
func StringArray(strs ...string) Value {
	elems := make([]Scalar, len(strs))
	for i, s := range strs {
		elems[i] = Scalar{Str: s}
	}
	v, _ := NewArray(STRING, elems)
	return v
}

// scalarAt returns the i'th element as a Value-shaped Scalar regardless of
// whether v is itself scalar or array (index 0 for scalars).
func (v Value) scalarAt(i int) Scalar {
	if v.IsArray {
		return v.Elements[i]
	}
	return v.Scalar
}

// Len returns 1 for scalars and the element count for arrays.
func (v Value) Len() int {
	if v.IsArray {
		return len(v.Elements)
	}
	return 1
}

// scalarEqual compares two scalars of the same BasicType for equality.
func scalarEqual(t BasicType, a, b Scalar) bool {
	switch t {
	case BOOLEAN:
		return a.Bool == b.Bool
	case INTEGER:
		return a.Int == b.Int
	case FLOAT:
		return a.Float == b.Float
	case STRING:
		return a.Str == b.Str
	case DECIMAL:
		return EqualDecimal(a.Decimal, b.Decimal)
	case DATE:
		return a.DateDays == b.DateDays
	case DATETIME:
		return a.DateTime == b.DateTime
	default:
		return false
	}
}

// scalarCompare orders two scalars of the same ordered BasicType, returning
// -1, 0 or 1.
func scalarCompare(t BasicType, a, b Scalar) (int, error) {
	switch t {
	case INTEGER:
		switch {
		case a.Int < b.Int:
			return -1, nil
		case a.Int > b.Int:
			return 1, nil
		default:
			return 0, nil
		}
	case FLOAT:
		switch {
		case a.Float < b.Float:
			return -1, nil
		case a.Float > b.Float:
			return 1, nil
		default:
			return 0, nil
		}
	case DECIMAL:
		return CompareDecimal(a.Decimal, b.Decimal), nil
	case DATE:
		switch {
		case a.DateDays < b.DateDays:
			return -1, nil
		case a.DateDays > b.DateDays:
			return 1, nil
		default:
			return 0, nil
		}
	case DATETIME:
		switch {
		case a.DateTime < b.DateTime:
			return -1, nil
		case a.DateTime > b.DateTime:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, fmt.Errorf("%s does not support ordering", t)
	}
}

// Equal reports whether v and w are the same logical value: same BasicType,
// same array-ness, and elementwise-equal content. This is the EQ semantics
// for a single stored attribute value against a single search value — the
// multi-valued "any element matches" rule lives in the search package.
func (v Value) Equal(w Value) bool {
	if v.Type != w.Type || v.IsArray != w.IsArray {
		return false
	}
	if !v.IsArray {
		return scalarEqual(v.Type, v.Scalar, w.Scalar)
	}
	if len(v.Elements) != len(w.Elements) {
		return false
	}
	for i := range v.Elements {
		if !scalarEqual(v.Type, v.Elements[i], w.Elements[i]) {
			return false
		}
	}
	return true
}

// Compare orders two scalar values of the same ordered BasicType. It
// returns an error for array values or unordered types.
func Compare(v, w Value) (int, error) {
	if v.IsArray || w.IsArray {
		return 0, fmt.Errorf("ordered comparison is undefined for array values")
	}
	if v.Type != w.Type {
		return 0, fmt.Errorf("cannot compare %s with %s", v.Type, w.Type)
	}
	if !v.Type.IsOrdered() {
		return 0, fmt.Errorf("%s does not support ordering", v.Type)
	}
	return scalarCompare(v.Type, v.Scalar, w.Scalar)
}

// Package types implements the typed value model of spec.md section 4.1:
// a closed BasicType enum, a Value sum type covering scalars and
// homogeneous arrays, canonical byte encoding, and a total order over the
// comparable basic types.
package types

import "fmt"

// BasicType is the closed set of attribute/value element types.
type BasicType int

const (
	BOOLEAN BasicType = iota
	INTEGER
	FLOAT
	STRING
	DECIMAL
	DATE
	DATETIME
)

func (t BasicType) String() string {
	switch t {
	case BOOLEAN:
		return "BOOLEAN"
	case INTEGER:
		return "INTEGER"
	case FLOAT:
		return "FLOAT"
	case STRING:
		return "STRING"
	case DECIMAL:
		return "DECIMAL"
	case DATE:
		return "DATE"
	case DATETIME:
		return "DATETIME"
	default:
		return fmt.Sprintf("BasicType(%d)", int(t))
	}
}

// ParseBasicType maps a canonical name back to a BasicType.
func ParseBasicType(s string) (BasicType, error) {
	switch s {
	case "BOOLEAN":
		return BOOLEAN, nil
	case "INTEGER":
		return INTEGER, nil
	case "FLOAT":
		return FLOAT, nil
	case "STRING":
		return STRING, nil
	case "DECIMAL":
		return DECIMAL, nil
	case "DATE":
		return DATE, nil
	case "DATETIME":
		return DATETIME, nil
	default:
		return 0, fmt.Errorf("unknown basic type: %q", s)
	}
}

// IsOrdered reports whether BasicType supports GT/GE/LT/LE comparisons.
// All of INTEGER, FLOAT, DECIMAL, DATE, DATETIME are ordered; BOOLEAN and
// STRING are not ordered operators in this model (STRING equality only,
// per the term semantics of spec.md section 4.5 — ordering over strings is
// not part of the specified search surface).
func (t BasicType) IsOrdered() bool {
	switch t {
	case INTEGER, FLOAT, DECIMAL, DATE, DATETIME:
		return true
	default:
		return false
	}
}

// ArrayAllowed reports whether BasicType may appear in an array attribute.
// BOOLEAN arrays are explicitly forbidden by spec.md section 3.1.
func (t BasicType) ArrayAllowed() bool {
	return t != BOOLEAN
}

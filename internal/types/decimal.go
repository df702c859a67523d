package types

import (
	"fmt"
	"math/big"
	"strings"
)

// Decimal is an arbitrary-precision fixed-scale number: value == Unscaled *
// 10^-Scale. It preserves the scale the caller supplied (e.g. "1.50" keeps
// two fractional digits rather than normalizing to "1.5"), per spec.md
// section 4.1 ("decimal preserves scale").
type Decimal struct {
	Unscaled *big.Int
	Scale    int32
}

// ParseDecimal parses a base-10 literal such as "-12.340" into a Decimal
// preserving the number of fractional digits written.
func ParseDecimal(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Decimal{}, fmt.Errorf("empty decimal literal")
	}
	neg := false
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		s = s[1:]
	}
	intPart, fracPart := s, ""
	if idx := strings.IndexByte(s, '.'); idx != -1 {
		intPart, fracPart = s[:idx], s[idx+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	digits := intPart + fracPart
	unscaled, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Decimal{}, fmt.Errorf("invalid decimal literal: %q", s)
	}
	if neg {
		unscaled.Neg(unscaled)
	}
	return Decimal{Unscaled: unscaled, Scale: int32(len(fracPart))}, nil
}

// String renders the decimal back to its base-10 literal form at its
// current scale.
func (d Decimal) String() string {
	if d.Unscaled == nil {
		d.Unscaled = big.NewInt(0)
	}
	neg := d.Unscaled.Sign() < 0
	digits := new(big.Int).Abs(d.Unscaled).String()
	if d.Scale <= 0 {
		if neg {
			return "-" + digits
		}
		return digits
	}
	for int32(len(digits)) <= d.Scale {
		digits = "0" + digits
	}
	split := int32(len(digits)) - d.Scale
	out := digits[:split] + "." + digits[split:]
	if neg {
		return "-" + out
	}
	return out
}

// rescale returns a copy of d expressed at the target scale (>= d.Scale).
func (d Decimal) rescale(scale int32) Decimal {
	if scale <= d.Scale {
		return d
	}
	factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale-d.Scale)), nil)
	return Decimal{Unscaled: new(big.Int).Mul(d.Unscaled, factor), Scale: scale}
}

// CompareDecimal returns -1, 0 or 1 comparing a and b numerically,
// regardless of their stored scales.
func CompareDecimal(a, b Decimal) int {
	scale := a.Scale
	if b.Scale > scale {
		scale = b.Scale
	}
	ra, rb := a.rescale(scale), b.rescale(scale)
	return ra.Unscaled.Cmp(rb.Unscaled)
}

// EqualDecimal reports exact equality: same scale and same unscaled value.
// Scale is part of a decimal's canonical identity (section 4.1, "decimal
// preserves scale"), so 1.5 and 1.50 are ordered as equal (CompareDecimal
// == 0) but are not Equal values for EQ/NE term matching.
func EqualDecimal(a, b Decimal) bool {
	if a.Scale != b.Scale {
		return false
	}
	au, bu := a.Unscaled, b.Unscaled
	if au == nil {
		au = new(big.Int)
	}
	if bu == nil {
		bu = new(big.Int)
	}
	return au.Cmp(bu) == 0
}

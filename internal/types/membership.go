package types

import "fmt"

// ElementEqualsAny reports whether any element of stored equals target
// (both scalars of the same BasicType). This is the EQ rule of spec.md
// section 4.5: "EQ matches if any stored element of the attribute equals
// value ... For a multi-valued attribute, one matching element is
// sufficient."
func ElementEqualsAny(stored Value, target Value) bool {
	if stored.Type != target.Type || target.IsArray {
		return false
	}
	n := stored.Len()
	for i := 0; i < n; i++ {
		if scalarEqual(stored.Type, stored.scalarAt(i), target.Scalar) {
			return true
		}
	}
	return false
}

// IntersectsAny reports whether any element of stored equals any element
// of search (spec.md section 4.5's IN rule). search must itself be an
// array of scalars; BOOLEAN is rejected by the caller (search package)
// before reaching here.
func IntersectsAny(stored Value, search Value) (bool, error) {
	if !search.IsArray {
		return false, fmt.Errorf("IN requires an array search value")
	}
	if stored.Type != search.Type {
		return false, nil
	}
	n := stored.Len()
	for i := 0; i < n; i++ {
		se := stored.scalarAt(i)
		for _, target := range search.Elements {
			if scalarEqual(stored.Type, se, target) {
				return true, nil
			}
		}
	}
	return false, nil
}

package search

import "metastore/internal/types"

// matchTerm implements spec.md section 4.5's per-term semantics against a
// single candidate row's attribute map.
func matchTerm(t Term, attrs map[string]types.Value) (bool, error) {
	stored, present := attrs[t.AttrName]

	switch t.Operator {
	case EQ:
		return matchEQ(stored, present, t), nil
	case NE:
		// "NE matches whenever EQ does not" — this includes missing
		// attributes and attributes of a different type, by direct
		// negation of the EQ predicate (spec.md section 4.5).
		return !matchEQ(stored, present, t), nil
	case GT, GE, LT, LE:
		return matchOrdered(stored, present, t)
	case IN:
		return matchIN(stored, present, t)
	default:
		return false, nil
	}
}

func matchEQ(stored types.Value, present bool, t Term) bool {
	if !present || stored.Type != t.AttrType {
		return false
	}
	return types.ElementEqualsAny(stored, t.Value)
}

func matchOrdered(stored types.Value, present bool, t Term) (bool, error) {
	if !present || stored.Type != t.AttrType {
		return false, nil
	}
	if stored.IsArray {
		// "Against a multi-valued attribute, ordered operators never
		// match (ordering a set against a point is undefined)."
		return false, nil
	}
	cmp, err := types.Compare(stored, t.Value)
	if err != nil {
		return false, err
	}
	switch t.Operator {
	case GT:
		return cmp > 0, nil
	case GE:
		return cmp >= 0, nil
	case LT:
		return cmp < 0, nil
	case LE:
		return cmp <= 0, nil
	}
	return false, nil
}

func matchIN(stored types.Value, present bool, t Term) (bool, error) {
	if !present || stored.Type != t.AttrType {
		return false, nil
	}
	return types.IntersectsAny(stored, t.Value)
}

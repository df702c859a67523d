package search

import (
	"fmt"

	"metastore/internal/types"
)

// RowID identifies a row in the candidate universe passed to Evaluate. The
// caller (internal/store) assigns these; search treats them opaquely.
type RowID string

// Evaluate runs expr against universe and returns the set of RowIDs that
// match, implementing the AND=intersect, OR=union, NOT=universe-minus-child
// set algebra of spec.md section 4.5. universe maps a RowID to that row's
// attribute set.
func Evaluate(expr Expression, universe map[RowID]map[string]types.Value) (map[RowID]struct{}, error) {
	if err := Validate(expr); err != nil {
		return nil, err
	}
	return evaluate(expr, universe)
}

func evaluate(expr Expression, universe map[RowID]map[string]types.Value) (map[RowID]struct{}, error) {
	switch e := expr.(type) {
	case Term:
		matched := make(map[RowID]struct{})
		for id, attrs := range universe {
			ok, err := matchTerm(e, attrs)
			if err != nil {
				return nil, fmt.Errorf("evaluating term %s: %w", e.AttrName, err)
			}
			if ok {
				matched[id] = struct{}{}
			}
		}
		return matched, nil

	case Logical:
		switch e.Op {
		case AND:
			result, err := evaluate(e.Children[0], universe)
			if err != nil {
				return nil, err
			}
			for _, child := range e.Children[1:] {
				next, err := evaluate(child, universe)
				if err != nil {
					return nil, err
				}
				result = intersect(result, next)
			}
			return result, nil

		case OR:
			result := make(map[RowID]struct{})
			for _, child := range e.Children {
				next, err := evaluate(child, universe)
				if err != nil {
					return nil, err
				}
				for id := range next {
					result[id] = struct{}{}
				}
			}
			return result, nil

		case NOT:
			child, err := evaluate(e.Children[0], universe)
			if err != nil {
				return nil, err
			}
			result := make(map[RowID]struct{})
			for id := range universe {
				if _, excluded := child[id]; !excluded {
					result[id] = struct{}{}
				}
			}
			return result, nil

		default:
			return nil, fmt.Errorf("unknown logical operator %q", e.Op)
		}

	default:
		return nil, fmt.Errorf("unknown expression node %T", expr)
	}
}

func intersect(a, b map[RowID]struct{}) map[RowID]struct{} {
	result := make(map[RowID]struct{})
	for id := range a {
		if _, ok := b[id]; ok {
			result[id] = struct{}{}
		}
	}
	return result
}

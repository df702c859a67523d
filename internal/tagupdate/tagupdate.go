// Package tagupdate implements the pure tag-update mini-language of
// spec.md section 4.2: apply an ordered list of attribute mutations to a
// tag, yielding a new tag or a BadUpdate error with no partial effect.
//
// Apply has no suspension points and performs no I/O, per spec.md section
// 5 ("no suspension point exists inside pure helpers").
package tagupdate

import (
	"fmt"

	"metastore/internal/errs"
	"metastore/internal/idutil"
	"metastore/internal/model"
	"metastore/internal/types"
)

// Op is one of the seven tag-update operations of spec.md section 4.2.
type Op int

const (
	// OpUnspecified defaults to CREATE_OR_REPLACE, per spec.md section 4.2
	// ("A missing operation field defaults to CREATE_OR_REPLACE").
	OpUnspecified Op = iota
	OpCreateAttr
	OpReplaceAttr
	OpAppendAttr
	OpDeleteAttr
	OpClearAllAttr
	OpCreateOrReplaceAttr
	OpCreateOrAppendAttr
)

// Update is a single entry in the mutation list.
type Update struct {
	Operation Op
	AttrName  string // unused for OpClearAllAttr
	Value     types.Value
}

// Apply runs updates left-to-right against tag, returning a new Tag with a
// fresh attribute map. On the first precondition failure the whole list is
// rejected and tag is returned unmodified alongside a *errs.Error of kind
// BadUpdate.
func Apply(tag model.Tag, updates []Update) (model.Tag, error) {
	working := tag.Clone()
	if working.Attributes == nil {
		working.Attributes = make(map[string]types.Value)
	}
	for i, u := range updates {
		if err := applyOne(working.Attributes, u); err != nil {
			return tag, fmt.Errorf("update %d (%s): %w", i, u.AttrName, err)
		}
	}
	return working, nil
}

func applyOne(attrs map[string]types.Value, u Update) error {
	op := u.Operation
	if op == OpUnspecified {
		op = OpCreateOrReplaceAttr
	}

	if op == OpClearAllAttr {
		for name := range attrs {
			if !idutil.IsReservedAttrName(name) {
				delete(attrs, name)
			}
		}
		return nil
	}

	if err := idutil.ValidateAttrName(u.AttrName); err != nil {
		return errs.Wrap(errs.BadUpdate, err, "invalid attribute name")
	}

	existing, present := attrs[u.AttrName]

	switch op {
	case OpCreateAttr:
		if present {
			return errs.New(errs.BadUpdate, "attribute %q already exists", u.AttrName)
		}
		attrs[u.AttrName] = normalize(u.Value)

	case OpReplaceAttr:
		if !present {
			return errs.New(errs.BadUpdate, "attribute %q does not exist", u.AttrName)
		}
		if !replaceCompatible(existing, u.Value) {
			return errs.New(errs.BadUpdate, "attribute %q: replacement type is incompatible", u.AttrName)
		}
		attrs[u.AttrName] = normalize(u.Value)

	case OpAppendAttr:
		if !present {
			return errs.New(errs.BadUpdate, "attribute %q does not exist", u.AttrName)
		}
		merged, err := appendValue(existing, u.Value)
		if err != nil {
			return errs.Wrap(errs.BadUpdate, err, "attribute %q", u.AttrName)
		}
		attrs[u.AttrName] = merged

	case OpDeleteAttr:
		if !present {
			return errs.New(errs.BadUpdate, "attribute %q does not exist", u.AttrName)
		}
		delete(attrs, u.AttrName)

	case OpCreateOrReplaceAttr:
		if present && !replaceCompatible(existing, u.Value) {
			return errs.New(errs.BadUpdate, "attribute %q: replacement type is incompatible", u.AttrName)
		}
		attrs[u.AttrName] = normalize(u.Value)

	case OpCreateOrAppendAttr:
		if !present {
			attrs[u.AttrName] = normalize(u.Value)
			return nil
		}
		merged, err := appendValue(existing, u.Value)
		if err != nil {
			return errs.Wrap(errs.BadUpdate, err, "attribute %q", u.AttrName)
		}
		attrs[u.AttrName] = merged

	default:
		return errs.New(errs.BadUpdate, "unknown update operation %d", int(op))
	}
	return nil
}

// normalize re-encodes a value through the canonical codec so that, after
// every operation, equal values are stored identically regardless of how
// the caller constructed them (spec.md section 4.2, "After every operation,
// values are normalized").
func normalize(v types.Value) types.Value {
	decoded, err := types.Decode(types.Encode(v))
	if err != nil {
		// Encode/Decode are total over well-formed Values constructed via
		// this package's constructors; a failure here means v was built by
		// hand with an inconsistent Type/IsArray combination upstream.
		return v
	}
	return decoded
}

// replaceCompatible implements the REPLACE_ATTR precondition: "new type
// equals old type OR both are arrays of same element type OR scalar<->
// scalar of same basic type". Scalar<->array of the SAME basic type is
// also permitted by this reading (a scalar is just a single-element array
// of its basic type becoming an array, or vice versa) as long as the basic
// element type matches.
func replaceCompatible(old, incoming types.Value) bool {
	return old.Type == incoming.Type
}

// appendValue implements APPEND_ATTR: "new value's element type equals
// existing element type; existing becomes array if scalar".
func appendValue(old, add types.Value) (types.Value, error) {
	if old.Type != add.Type {
		return types.Value{}, fmt.Errorf("element type mismatch: existing is %s, appended is %s", old.Type, add.Type)
	}
	var base []types.Scalar
	if old.IsArray {
		base = append(base, old.Elements...)
	} else {
		base = append(base, old.Scalar)
	}
	if add.IsArray {
		base = append(base, add.Elements...)
	} else {
		base = append(base, add.Scalar)
	}
	merged, err := types.NewArray(old.Type, base)
	if err != nil {
		return types.Value{}, err
	}
	return merged, nil
}

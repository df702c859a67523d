package api

import (
	"fmt"
	"time"

	"metastore/internal/model"
	"metastore/internal/tagupdate"
	"metastore/internal/types"
)

// wireValue is the JSON wire shape of a types.Value: a closed type tag
// plus either a scalar or an array of scalars, both carried as plain JSON
// values (strings for STRING/DECIMAL/DATE/DATETIME, numbers for
// INTEGER/FLOAT, bool for BOOLEAN). DATE/DATETIME use RFC3339.
type wireValue struct {
	Type    string      `json:"type"`
	Value   interface{} `json:"value,omitempty"`
	Array   []interface{} `json:"array,omitempty"`
	IsArray bool        `json:"isArray,omitempty"`
}

func scalarToJSON(basicType types.BasicType, s types.Scalar) (interface{}, error) {
	switch basicType {
	case types.BOOLEAN:
		return s.Bool, nil
	case types.INTEGER:
		return s.Int, nil
	case types.FLOAT:
		return s.Float, nil
	case types.STRING:
		return s.Str, nil
	case types.DECIMAL:
		return s.Decimal.String(), nil
	case types.DATE:
		v := types.Value{Type: types.DATE, Scalar: s}
		t, err := v.AsTime()
		if err != nil {
			return nil, err
		}
		return t.Format("2006-01-02"), nil
	case types.DATETIME:
		v := types.Value{Type: types.DATETIME, Scalar: s}
		t, err := v.AsTime()
		if err != nil {
			return nil, err
		}
		return t.Format(time.RFC3339Nano), nil
	default:
		return nil, fmt.Errorf("unsupported basic type %s", basicType)
	}
}

func jsonToScalar(basicType types.BasicType, raw interface{}) (types.Scalar, error) {
	switch basicType {
	case types.BOOLEAN:
		b, ok := raw.(bool)
		if !ok {
			return types.Scalar{}, fmt.Errorf("expected bool for BOOLEAN value")
		}
		return types.Scalar{Bool: b}, nil
	case types.INTEGER:
		f, ok := raw.(float64)
		if !ok {
			return types.Scalar{}, fmt.Errorf("expected number for INTEGER value")
		}
		return types.Scalar{Int: int64(f)}, nil
	case types.FLOAT:
		f, ok := raw.(float64)
		if !ok {
			return types.Scalar{}, fmt.Errorf("expected number for FLOAT value")
		}
		return types.Scalar{Float: f}, nil
	case types.STRING:
		s, ok := raw.(string)
		if !ok {
			return types.Scalar{}, fmt.Errorf("expected string for STRING value")
		}
		return types.Scalar{Str: s}, nil
	case types.DECIMAL:
		s, ok := raw.(string)
		if !ok {
			return types.Scalar{}, fmt.Errorf("expected string for DECIMAL value")
		}
		d, err := types.ParseDecimal(s)
		if err != nil {
			return types.Scalar{}, err
		}
		return types.Scalar{Decimal: d}, nil
	case types.DATE:
		s, ok := raw.(string)
		if !ok {
			return types.Scalar{}, fmt.Errorf("expected string for DATE value")
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return types.Scalar{}, err
		}
		return types.NewDate(t).Scalar, nil
	case types.DATETIME:
		s, ok := raw.(string)
		if !ok {
			return types.Scalar{}, fmt.Errorf("expected string for DATETIME value")
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return types.Scalar{}, err
		}
		return types.NewDateTime(t).Scalar, nil
	default:
		return types.Scalar{}, fmt.Errorf("unsupported basic type %s", basicType)
	}
}

func valueToWire(v types.Value) (wireValue, error) {
	w := wireValue{Type: v.Type.String(), IsArray: v.IsArray}
	if !v.IsArray {
		val, err := scalarToJSON(v.Type, v.Scalar)
		if err != nil {
			return wireValue{}, err
		}
		w.Value = val
		return w, nil
	}
	w.Array = make([]interface{}, len(v.Elements))
	for i, s := range v.Elements {
		val, err := scalarToJSON(v.Type, s)
		if err != nil {
			return wireValue{}, err
		}
		w.Array[i] = val
	}
	return w, nil
}

func wireToValue(w wireValue) (types.Value, error) {
	basicType, err := types.ParseBasicType(w.Type)
	if err != nil {
		return types.Value{}, err
	}
	if !w.IsArray {
		s, err := jsonToScalar(basicType, w.Value)
		if err != nil {
			return types.Value{}, err
		}
		return types.Value{Type: basicType, Scalar: s}, nil
	}
	elems := make([]types.Scalar, len(w.Array))
	for i, raw := range w.Array {
		s, err := jsonToScalar(basicType, raw)
		if err != nil {
			return types.Value{}, err
		}
		elems[i] = s
	}
	return types.NewArray(basicType, elems)
}

// attributesToWire converts a tag's attribute map to its JSON wire shape.
func attributesToWire(attrs map[string]types.Value) (map[string]wireValue, error) {
	out := make(map[string]wireValue, len(attrs))
	for name, v := range attrs {
		wv, err := valueToWire(v)
		if err != nil {
			return nil, fmt.Errorf("encoding attribute %q: %w", name, err)
		}
		out[name] = wv
	}
	return out, nil
}

// wireTag is the JSON response shape for a model.Tag.
type wireTag struct {
	ObjectType      model.ObjectType     `json:"objectType"`
	ObjectID        string               `json:"objectId"`
	ObjectVersion   int32                `json:"objectVersion"`
	ObjectTimestamp time.Time            `json:"objectTimestamp"`
	TagVersion      int32                `json:"tagVersion"`
	TagTimestamp    time.Time            `json:"tagTimestamp"`
	IsLatestObject  bool                 `json:"isLatestObject"`
	IsLatestTag     bool                 `json:"isLatestTag"`
	Definition      *wireDefinition      `json:"definition,omitempty"`
	Attributes      map[string]wireValue `json:"attributes"`
}

type wireDefinition struct {
	SchemaType string `json:"schemaType"`
	Bytes      []byte `json:"bytes,omitempty"`
}

func tagToWire(t model.Tag) (wireTag, error) {
	attrs, err := attributesToWire(t.Attributes)
	if err != nil {
		return wireTag{}, err
	}
	wt := wireTag{
		ObjectType:      t.Header.ObjectType,
		ObjectID:        t.Header.ObjectID,
		ObjectVersion:   t.Header.ObjectVersion,
		ObjectTimestamp: t.Header.ObjectTimestamp,
		TagVersion:      t.Header.TagVersion,
		TagTimestamp:    t.Header.TagTimestamp,
		IsLatestObject:  t.Header.IsLatestObject,
		IsLatestTag:     t.Header.IsLatestTag,
		Attributes:      attrs,
	}
	if t.Definition != nil {
		wt.Definition = &wireDefinition{SchemaType: t.Definition.SchemaType, Bytes: t.Definition.Bytes}
	}
	return wt, nil
}

// wireUpdate is the JSON wire shape of a tagupdate.Update.
type wireUpdate struct {
	Operation string    `json:"operation"`
	AttrName  string    `json:"attrName"`
	Value     wireValue `json:"value,omitempty"`
}

var operationNames = map[string]tagupdate.Op{
	"CREATE_ATTR":            tagupdate.OpCreateAttr,
	"REPLACE_ATTR":           tagupdate.OpReplaceAttr,
	"APPEND_ATTR":            tagupdate.OpAppendAttr,
	"DELETE_ATTR":            tagupdate.OpDeleteAttr,
	"CLEAR_ALL_ATTR":         tagupdate.OpClearAllAttr,
	"CREATE_OR_REPLACE_ATTR": tagupdate.OpCreateOrReplaceAttr,
	"CREATE_OR_APPEND_ATTR":  tagupdate.OpCreateOrAppendAttr,
	"":                       tagupdate.OpUnspecified,
}

func wireToUpdate(w wireUpdate) (tagupdate.Update, error) {
	op, ok := operationNames[w.Operation]
	if !ok {
		return tagupdate.Update{}, fmt.Errorf("unknown update operation %q", w.Operation)
	}
	u := tagupdate.Update{Operation: op, AttrName: w.AttrName}
	if op == tagupdate.OpClearAllAttr {
		return u, nil
	}
	v, err := wireToValue(w.Value)
	if err != nil {
		return tagupdate.Update{}, fmt.Errorf("attribute %q: %w", w.AttrName, err)
	}
	u.Value = v
	return u, nil
}

func wireToUpdates(ws []wireUpdate) ([]tagupdate.Update, error) {
	out := make([]tagupdate.Update, len(ws))
	for i, w := range ws {
		u, err := wireToUpdate(w)
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}

// wireConfigEntry is the JSON response shape for a model.ConfigEntry.
type wireConfigEntry struct {
	ConfigClass     string     `json:"configClass"`
	ConfigKey       string     `json:"configKey"`
	ConfigVersion   int32      `json:"configVersion"`
	ConfigTimestamp time.Time  `json:"configTimestamp"`
	IsLatest        bool       `json:"isLatest"`
	Deleted         bool       `json:"deleted"`
	ObjectType      model.ObjectType `json:"objectType,omitempty"`
	ObjectID        string     `json:"objectId,omitempty"`
	ObjectVersion   *int32     `json:"objectVersion,omitempty"`
	ObjectAsOf      *time.Time `json:"objectAsOf,omitempty"`
	ResourceSubType string     `json:"resourceSubType,omitempty"`
}

func configEntryToWire(e model.ConfigEntry) wireConfigEntry {
	return wireConfigEntry{
		ConfigClass: e.ConfigClass, ConfigKey: e.ConfigKey, ConfigVersion: e.ConfigVersion,
		ConfigTimestamp: e.ConfigTimestamp, IsLatest: e.IsLatest, Deleted: e.Deleted,
		ObjectType: e.ObjectType, ObjectID: e.ObjectID, ObjectVersion: e.ObjectVersion,
		ObjectAsOf: e.ObjectAsOf, ResourceSubType: e.ResourceSubType,
	}
}

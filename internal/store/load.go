package store

import (
	"context"
	"database/sql"

	"metastore/internal/errs"
	"metastore/internal/model"
	"metastore/internal/types"
)

// Snapshot is a generic (version, timestamp) point in one of the two
// dense monotonic sequences (object versions or tag versions) that
// internal/selector resolves a TagSelector's explicit/as-of/latest modes
// against. Both sequences share the same resolution algorithm (spec.md
// section 4.3), so the store exposes them uniformly rather than
// duplicating the lookup for each.
type Snapshot struct {
	Version   int32
	Timestamp types.TimeMicros
}

// ObjectType returns the fixed object_type stored for objectID, used by
// internal/selector to check a TagSelector's claimed type against the
// stored one.
func (s *Store) ObjectType(ctx context.Context, tenant, objectID string) (model.ObjectType, error) {
	var ot string
	err := s.db.QueryRowContext(ctx, `SELECT object_type FROM object WHERE tenant = ? AND object_id = ?`,
		tenant, objectID).Scan(&ot)
	if err == sql.ErrNoRows {
		return "", errs.New(errs.NotFound, "object %s not found", objectID)
	}
	if err != nil {
		return "", errs.Wrap(errs.Unexpected, err, "loading object type")
	}
	return model.ObjectType(ot), nil
}

// ObjectVersions returns every object_version snapshot for objectID in
// ascending version order.
func (s *Store) ObjectVersions(ctx context.Context, tenant, objectID string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT object_version, object_timestamp FROM object_version
		WHERE tenant = ? AND object_id = ? ORDER BY object_version ASC`, tenant, objectID)
	if err != nil {
		return nil, errs.Wrap(errs.Unexpected, err, "loading object versions")
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var v int32
		var ts int64
		if err := rows.Scan(&v, &ts); err != nil {
			return nil, errs.Wrap(errs.Unexpected, err, "scanning object version")
		}
		out = append(out, Snapshot{Version: v, Timestamp: types.TimeMicros(ts)})
	}
	if len(out) == 0 {
		return nil, errs.New(errs.NotFound, "object %s not found", objectID)
	}
	return out, nil
}

// TagVersions returns every tag_version snapshot for (objectID,
// objectVersion) in ascending version order.
func (s *Store) TagVersions(ctx context.Context, tenant, objectID string, objectVersion int32) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag_version, tag_timestamp FROM tag
		WHERE tenant = ? AND object_id = ? AND object_version = ? ORDER BY tag_version ASC`,
		tenant, objectID, objectVersion)
	if err != nil {
		return nil, errs.Wrap(errs.Unexpected, err, "loading tag versions")
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var v int32
		var ts int64
		if err := rows.Scan(&v, &ts); err != nil {
			return nil, errs.Wrap(errs.Unexpected, err, "scanning tag version")
		}
		out = append(out, Snapshot{Version: v, Timestamp: types.TimeMicros(ts)})
	}
	if len(out) == 0 {
		return nil, errs.New(errs.NotFound, "object %s version %d has no tags", objectID, objectVersion)
	}
	return out, nil
}

// LoadTag loads the single tag identified by objectVersion/tagVersion,
// already resolved by internal/selector from a TagSelector. includeDef
// controls whether the version's definition bytes are fetched (search
// results never need them; point reads of a tag usually do).
func (s *Store) LoadTag(ctx context.Context, tenant, objectID string, objectVersion, tagVersion int32, includeDef bool) (model.Tag, error) {
	var ot string
	var objectTS int64
	var isLatestObject int
	err := s.db.QueryRowContext(ctx, `SELECT o.object_type, ov.object_timestamp, ov.is_latest_object
		FROM object o JOIN object_version ov ON ov.tenant = o.tenant AND ov.object_id = o.object_id
		WHERE o.tenant = ? AND o.object_id = ? AND ov.object_version = ?`,
		tenant, objectID, objectVersion).Scan(&ot, &objectTS, &isLatestObject)
	if err == sql.ErrNoRows {
		return model.Tag{}, errs.New(errs.NotFound, "object %s version %d not found", objectID, objectVersion)
	}
	if err != nil {
		return model.Tag{}, errs.Wrap(errs.Unexpected, err, "loading object version")
	}

	var tagTS int64
	var isLatestTag int
	err = s.db.QueryRowContext(ctx, `SELECT tag_timestamp, is_latest_tag FROM tag
		WHERE tenant = ? AND object_id = ? AND object_version = ? AND tag_version = ?`,
		tenant, objectID, objectVersion, tagVersion).Scan(&tagTS, &isLatestTag)
	if err == sql.ErrNoRows {
		return model.Tag{}, errs.New(errs.NotFound, "object %s version %d tag %d not found", objectID, objectVersion, tagVersion)
	}
	if err != nil {
		return model.Tag{}, errs.Wrap(errs.Unexpected, err, "loading tag")
	}

	attrs, err := loadAttrs(ctx, s.db, tenant, objectID, objectVersion, tagVersion)
	if err != nil {
		return model.Tag{}, err
	}

	tag := model.Tag{
		Header: model.Header{
			ObjectType:      model.ObjectType(ot),
			ObjectID:        objectID,
			ObjectVersion:   objectVersion,
			ObjectTimestamp: types.TimeMicros(objectTS).Time(),
			TagVersion:      tagVersion,
			TagTimestamp:    types.TimeMicros(tagTS).Time(),
			IsLatestObject:  isLatestObject == 1,
			IsLatestTag:     isLatestTag == 1,
		},
		Attributes: attrs,
	}

	if includeDef {
		var schemaType string
		var defBytes []byte
		err := s.db.QueryRowContext(ctx, `SELECT definition_type, definition_bytes FROM object_version
			WHERE tenant = ? AND object_id = ? AND object_version = ?`, tenant, objectID, objectVersion).Scan(&schemaType, &defBytes)
		if err != nil {
			return model.Tag{}, errs.Wrap(errs.Unexpected, err, "loading definition")
		}
		tag.Definition = &model.Definition{SchemaType: schemaType, Bytes: defBytes}
	}

	return tag, nil
}

// LoadTags loads a batch of tags, preserving the order of sels, for the
// batch read path of spec.md section 4.2.
func (s *Store) LoadTags(ctx context.Context, tenant string, sels []ResolvedSelector, includeDef bool) ([]model.Tag, error) {
	out := make([]model.Tag, len(sels))
	for i, sel := range sels {
		tag, err := s.LoadTag(ctx, tenant, sel.ObjectID, sel.ObjectVersion, sel.TagVersion, includeDef)
		if err != nil {
			return nil, err
		}
		out[i] = tag
	}
	return out, nil
}

// ResolvedSelector is the (object_id, object_version, tag_version) triple
// internal/selector produces after resolving a model.TagSelector.
type ResolvedSelector struct {
	ObjectID      string
	ObjectVersion int32
	TagVersion    int32
}

// ObjectHistory returns every version's header for objectID, oldest first.
func (s *Store) ObjectHistory(ctx context.Context, tenant, objectID string) ([]model.Header, error) {
	var ot string
	if err := s.db.QueryRowContext(ctx, `SELECT object_type FROM object WHERE tenant = ? AND object_id = ?`,
		tenant, objectID).Scan(&ot); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.New(errs.NotFound, "object %s not found", objectID)
		}
		return nil, errs.Wrap(errs.Unexpected, err, "loading object")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT object_version, object_timestamp, is_latest_object
		FROM object_version WHERE tenant = ? AND object_id = ? ORDER BY object_version ASC`, tenant, objectID)
	if err != nil {
		return nil, errs.Wrap(errs.Unexpected, err, "loading object history")
	}
	defer rows.Close()

	var out []model.Header
	for rows.Next() {
		var v int32
		var ts int64
		var isLatest int
		if err := rows.Scan(&v, &ts, &isLatest); err != nil {
			return nil, errs.Wrap(errs.Unexpected, err, "scanning object history")
		}
		out = append(out, model.Header{
			ObjectType: model.ObjectType(ot), ObjectID: objectID,
			ObjectVersion: v, ObjectTimestamp: types.TimeMicros(ts).Time(),
			IsLatestObject: isLatest == 1,
		})
	}
	return out, nil
}

// TagHistory returns every tag's header for (objectID, objectVersion),
// oldest first.
func (s *Store) TagHistory(ctx context.Context, tenant, objectID string, objectVersion int32) ([]model.Header, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag_version, tag_timestamp, is_latest_tag
		FROM tag WHERE tenant = ? AND object_id = ? AND object_version = ? ORDER BY tag_version ASC`,
		tenant, objectID, objectVersion)
	if err != nil {
		return nil, errs.Wrap(errs.Unexpected, err, "loading tag history")
	}
	defer rows.Close()

	var out []model.Header
	for rows.Next() {
		var v int32
		var ts int64
		var isLatest int
		if err := rows.Scan(&v, &ts, &isLatest); err != nil {
			return nil, errs.Wrap(errs.Unexpected, err, "scanning tag history")
		}
		out = append(out, model.Header{
			ObjectID: objectID, ObjectVersion: objectVersion,
			TagVersion: v, TagTimestamp: types.TimeMicros(ts).Time(),
			IsLatestTag: isLatest == 1,
		})
	}
	if len(out) == 0 {
		return nil, errs.New(errs.NotFound, "object %s version %d has no tags", objectID, objectVersion)
	}
	return out, nil
}

// loadAttrs reconstructs the attribute map for one tag from its normalized
// tag_attr rows, regrouping elements back into scalar or array Values.
func loadAttrs(ctx context.Context, db *sql.DB, tenant, objectID string, objectVersion, tagVersion int32) (map[string]types.Value, error) {
	rows, err := db.QueryContext(ctx, `SELECT attr_name, element_index, element_type, is_array, element_value
		FROM tag_attr WHERE tenant = ? AND object_id = ? AND object_version = ? AND tag_version = ?
		ORDER BY attr_name, element_index`, tenant, objectID, objectVersion, tagVersion)
	if err != nil {
		return nil, errs.Wrap(errs.Unexpected, err, "loading attributes")
	}
	defer rows.Close()

	type partial struct {
		basicType string
		isArray   bool
		elements  []types.Scalar
	}
	byName := make(map[string]*partial)
	var order []string

	for rows.Next() {
		var name, basicType string
		var index int
		var isArray int
		var encoded []byte
		if err := rows.Scan(&name, &index, &basicType, &isArray, &encoded); err != nil {
			return nil, errs.Wrap(errs.Unexpected, err, "scanning attribute")
		}
		decoded, err := types.Decode(encoded)
		if err != nil {
			return nil, errs.Wrap(errs.Unexpected, err, "decoding attribute %s", name)
		}
		p, ok := byName[name]
		if !ok {
			p = &partial{basicType: basicType, isArray: isArray == 1}
			byName[name] = p
			order = append(order, name)
		}
		p.elements = append(p.elements, decoded.Scalar)
	}

	attrs := make(map[string]types.Value, len(order))
	for _, name := range order {
		p := byName[name]
		bt, err := types.ParseBasicType(p.basicType)
		if err != nil {
			return nil, errs.Wrap(errs.Unexpected, err, "parsing stored type for attribute %s", name)
		}
		if p.isArray {
			v, err := types.NewArray(bt, p.elements)
			if err != nil {
				return nil, errs.Wrap(errs.Unexpected, err, "rebuilding array attribute %s", name)
			}
			attrs[name] = v
		} else {
			attrs[name] = types.Value{Type: bt, Scalar: p.elements[0]}
		}
	}
	return attrs, nil
}

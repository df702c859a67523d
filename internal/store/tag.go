package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"metastore/internal/errs"
	"metastore/internal/types"
)

// insertTag writes one immutable tag row plus its normalized attribute
// rows (one row per element, per spec.md section 4.4's "Attribute storage
// is normalized"). isLatest is always true at insert time.
func insertTag(tx *sql.Tx, tenant, objectID string, objectVersion, tagVersion int32, ts time.Time, isLatest bool, attrs map[string]types.Value) error {
	_, err := tx.Exec(`INSERT INTO tag (tenant, object_id, object_version, tag_version, tag_timestamp, is_latest_tag)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tenant, objectID, objectVersion, tagVersion, ts.UnixMicro(), boolToInt(isLatest))
	if err != nil {
		return fmt.Errorf("inserting tag: %w", err)
	}

	// Deterministic attribute insert order keeps the table's natural scan
	// order stable across writers; it has no semantic meaning.
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := attrs[name]
		n := v.Len()
		for i := 0; i < n; i++ {
			elem := elementValue(v, i)
			encoded := types.Encode(elem)
			if _, err := tx.Exec(`INSERT INTO tag_attr
				(tenant, object_id, object_version, tag_version, attr_name, element_index, element_type, is_array, element_value)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				tenant, objectID, objectVersion, tagVersion, name, i, v.Type.String(), boolToInt(v.IsArray), encoded); err != nil {
				return fmt.Errorf("inserting tag_attr %s: %w", name, err)
			}
		}
	}
	return nil
}

// elementValue returns a single-element Value wrapping v's i'th element,
// regardless of whether v is itself scalar or array. Each stored row
// carries one canonically encoded scalar.
func elementValue(v types.Value, i int) types.Value {
	if !v.IsArray {
		return v
	}
	return types.Value{Type: v.Type, IsArray: false, Scalar: v.Elements[i]}
}

// SaveNewTag appends the next dense tag_version against (objectID,
// objectVersion), flipping is_latest_tag off the prior tag. attrs is the
// full resulting attribute set after internal/tagupdate.Apply, not a
// delta.
func (s *Store) SaveNewTag(ctx context.Context, tenant, objectID string, objectVersion int32, attrs map[string]types.Value) (Header, error) {
	s.locks.Lock(tenant, objectID)
	defer s.locks.Unlock(tenant, objectID)

	now := nowMicros()
	var nextTag int32
	var h Header
	err := withRetry(ctx, func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()

		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM object_version WHERE tenant = ? AND object_id = ? AND object_version = ?`,
			tenant, objectID, objectVersion).Scan(&exists); err != nil {
			return fmt.Errorf("checking version existence: %w", err)
		}
		if exists == 0 {
			return errs.New(errs.NotFound, "object %s version %d not found", objectID, objectVersion)
		}

		var latest sql.NullInt64
		if err := tx.QueryRow(`SELECT MAX(tag_version) FROM tag WHERE tenant = ? AND object_id = ? AND object_version = ?`,
			tenant, objectID, objectVersion).Scan(&latest); err != nil {
			return fmt.Errorf("loading latest tag version: %w", err)
		}
		if !latest.Valid {
			return errs.New(errs.NotFound, "object %s version %d has no tags", objectID, objectVersion)
		}
		nextTag = int32(latest.Int64) + 1

		if _, err := tx.Exec(`UPDATE tag SET is_latest_tag = 0 WHERE tenant = ? AND object_id = ? AND object_version = ? AND tag_version = ?`,
			tenant, objectID, objectVersion, latest.Int64); err != nil {
			return fmt.Errorf("clearing prior latest tag flag: %w", err)
		}
		if err := insertTag(tx, tenant, objectID, objectVersion, nextTag, now, true, attrs); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing: %w", err)
		}

		h = Header{ObjectID: objectID, ObjectVersion: objectVersion, TagVersion: nextTag, TagTimestamp: now, IsLatestTag: true}
		return nil
	})
	if err != nil {
		return Header{}, asStoreErr(err)
	}
	return h, nil
}

// Header is the minimal version/tag identity returned by write paths that
// do not need to reconstruct the full model.Tag (the caller already has
// the attribute set it just wrote).
type Header struct {
	ObjectID      string
	ObjectVersion int32
	TagVersion    int32
	TagTimestamp  time.Time
	IsLatestTag   bool

	// ConfigClass/ConfigKey/ConfigVersion are set instead of the object
	// fields above when this Header reports a BatchConfigEntry or
	// BatchConfigTombstone result.
	ConfigClass   string
	ConfigKey     string
	ConfigVersion int32
}

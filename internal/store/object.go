package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"metastore/internal/errs"
	"metastore/internal/idutil"
	"metastore/internal/model"
	"metastore/internal/types"
)

// nowMicros returns the current instant truncated to microsecond
// resolution, matching the storage precision of every timestamp column
// (spec.md section 4.1/9).
func nowMicros() time.Time {
	return types.TruncateMicros(time.Now())
}

// SaveNewObject creates a brand new object: object row, its first version
// (object_version = 1), and that version's first tag (tag_version = 1).
// Both sequences start dense at 1 per spec.md section 3.1.
func (s *Store) SaveNewObject(ctx context.Context, tenant string, objectType model.ObjectType, def model.Definition, attrs map[string]types.Value) (model.Tag, error) {
	if err := model.ValidateObjectType(objectType); err != nil {
		return model.Tag{}, errs.Wrap(errs.InvalidRequest, err, "invalid object type")
	}
	objectID := idutil.NewObjectID()

	s.locks.Lock(tenant, objectID)
	defer s.locks.Unlock(tenant, objectID)

	now := nowMicros()
	var result model.Tag
	err := withRetry(ctx, func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`INSERT INTO object (tenant, object_id, object_type, created_at) VALUES (?, ?, ?, ?)`,
			tenant, objectID, string(objectType), now.UnixMicro()); err != nil {
			return fmt.Errorf("inserting object: %w", err)
		}
		if err := insertVersion(tx, tenant, objectID, 1, now, def, true); err != nil {
			return err
		}
		if err := insertTag(tx, tenant, objectID, 1, 1, now, true, attrs); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing: %w", err)
		}

		result = model.Tag{
			Header: model.Header{
				ObjectType: objectType, ObjectID: objectID,
				ObjectVersion: 1, ObjectTimestamp: now,
				TagVersion: 1, TagTimestamp: now,
				IsLatestObject: true, IsLatestTag: true,
			},
			Definition: &def,
			Attributes: attrs,
		}
		return nil
	})
	if err != nil {
		return model.Tag{}, asStoreErr(err)
	}
	return result, nil
}

// PreallocateObjectID reserves an object_id and object_type for a future
// SavePreallocated call, without creating any version, per spec.md section
// 4.2's preallocation flow used by large multi-step client uploads.
func (s *Store) PreallocateObjectID(ctx context.Context, tenant string, objectType model.ObjectType) (string, error) {
	if err := model.ValidateObjectType(objectType); err != nil {
		return "", errs.Wrap(errs.InvalidRequest, err, "invalid object type")
	}
	objectID := idutil.NewObjectID()
	now := nowMicros()

	err := withRetry(ctx, func() error {
		_, err := s.db.Exec(`INSERT INTO object (tenant, object_id, object_type, created_at) VALUES (?, ?, ?, ?)`,
			tenant, objectID, string(objectType), now.UnixMicro())
		return err
	})
	if err != nil {
		return "", errs.Wrap(errs.Unexpected, err, "preallocating object id")
	}
	return objectID, nil
}

// SavePreallocated creates the first version and tag for an object_id that
// was reserved with PreallocateObjectID. Saving against an object_id that
// already has a version, or that was never preallocated, is a Duplicate /
// NotFound respectively.
func (s *Store) SavePreallocated(ctx context.Context, tenant, objectID string, def model.Definition, attrs map[string]types.Value) (model.Tag, error) {
	s.locks.Lock(tenant, objectID)
	defer s.locks.Unlock(tenant, objectID)

	now := nowMicros()
	var objectType model.ObjectType
	var result model.Tag
	err := withRetry(ctx, func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()

		var ot string
		err = tx.QueryRow(`SELECT object_type FROM object WHERE tenant = ? AND object_id = ?`, tenant, objectID).Scan(&ot)
		if err == sql.ErrNoRows {
			return errs.New(errs.NotFound, "object %s was not preallocated", objectID)
		}
		if err != nil {
			return fmt.Errorf("loading preallocated object: %w", err)
		}
		objectType = model.ObjectType(ot)

		var existing int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM object_version WHERE tenant = ? AND object_id = ?`, tenant, objectID).Scan(&existing); err != nil {
			return fmt.Errorf("checking existing versions: %w", err)
		}
		if existing > 0 {
			return errs.New(errs.Duplicate, "object %s already has a version", objectID)
		}

		if err := insertVersion(tx, tenant, objectID, 1, now, def, true); err != nil {
			return err
		}
		if err := insertTag(tx, tenant, objectID, 1, 1, now, true, attrs); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing: %w", err)
		}

		result = model.Tag{
			Header: model.Header{
				ObjectType: objectType, ObjectID: objectID,
				ObjectVersion: 1, ObjectTimestamp: now,
				TagVersion: 1, TagTimestamp: now,
				IsLatestObject: true, IsLatestTag: true,
			},
			Definition: &def,
			Attributes: attrs,
		}
		return nil
	})
	if err != nil {
		return model.Tag{}, asStoreErr(err)
	}
	return result, nil
}

// SaveNewVersion appends the next dense object_version for objectID,
// flipping is_latest_object off the prior version, and creates that
// version's first tag (tag_version = 1). The prior latest version's attrs
// are never copied forward: a new version starts with exactly attrs.
func (s *Store) SaveNewVersion(ctx context.Context, tenant, objectID string, def model.Definition, attrs map[string]types.Value) (model.Tag, error) {
	s.locks.Lock(tenant, objectID)
	defer s.locks.Unlock(tenant, objectID)

	now := nowMicros()
	var objectType model.ObjectType
	var nextVersion int32
	var result model.Tag
	err := withRetry(ctx, func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()

		var ot string
		if err := tx.QueryRow(`SELECT object_type FROM object WHERE tenant = ? AND object_id = ?`, tenant, objectID).Scan(&ot); err != nil {
			if err == sql.ErrNoRows {
				return errs.New(errs.NotFound, "object %s not found", objectID)
			}
			return fmt.Errorf("loading object: %w", err)
		}
		objectType = model.ObjectType(ot)

		var latest sql.NullInt64
		if err := tx.QueryRow(`SELECT MAX(object_version) FROM object_version WHERE tenant = ? AND object_id = ?`, tenant, objectID).Scan(&latest); err != nil {
			return fmt.Errorf("loading latest version: %w", err)
		}
		if !latest.Valid {
			return errs.New(errs.NotFound, "object %s has no versions", objectID)
		}
		nextVersion = int32(latest.Int64) + 1

		if _, err := tx.Exec(`UPDATE object_version SET is_latest_object = 0 WHERE tenant = ? AND object_id = ? AND object_version = ?`,
			tenant, objectID, latest.Int64); err != nil {
			return fmt.Errorf("clearing prior latest flag: %w", err)
		}
		if err := insertVersion(tx, tenant, objectID, nextVersion, now, def, true); err != nil {
			return err
		}
		if err := insertTag(tx, tenant, objectID, nextVersion, 1, now, true, attrs); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing: %w", err)
		}

		result = model.Tag{
			Header: model.Header{
				ObjectType: objectType, ObjectID: objectID,
				ObjectVersion: nextVersion, ObjectTimestamp: now,
				TagVersion: 1, TagTimestamp: now,
				IsLatestObject: true, IsLatestTag: true,
			},
			Definition: &def,
			Attributes: attrs,
		}
		return nil
	})
	if err != nil {
		return model.Tag{}, asStoreErr(err)
	}
	return result, nil
}

// insertVersion writes one immutable object_version row. isLatest is
// always true at insert time; later callers flip older rows to false.
func insertVersion(tx *sql.Tx, tenant, objectID string, version int32, ts time.Time, def model.Definition, isLatest bool) error {
	defBytes := def.Bytes
	if defBytes == nil {
		// A nil slice binds as NULL; definition_bytes is NOT NULL.
		defBytes = []byte{}
	}
	_, err := tx.Exec(`INSERT INTO object_version
		(tenant, object_id, object_version, object_timestamp, definition_type, definition_bytes, is_latest_object)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tenant, objectID, version, ts.UnixMicro(), def.SchemaType, defBytes, boolToInt(isLatest))
	if err != nil {
		return fmt.Errorf("inserting object_version: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// asStoreErr recovers the *errs.Error kind from err even when it has been
// wrapped with extra context (e.g. "operation 3: %w") on its way out of a
// withRetry closure, and defaults to Unexpected for anything else.
func asStoreErr(err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return e
	}
	return errs.Wrap(errs.Unexpected, err, "store operation failed")
}

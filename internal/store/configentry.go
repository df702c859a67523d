package store

import (
	"context"
	"database/sql"
	"fmt"

	"metastore/internal/errs"
	"metastore/internal/model"
	"metastore/internal/types"
)

// LoadLatestConfigEntry returns the latest version of (configClass,
// configKey), or (zero value, false, nil) if the key has never been
// written. The returned entry may itself be a deletion tombstone; callers
// decide what "latest" state means for their operation.
func (s *Store) LoadLatestConfigEntry(ctx context.Context, tenant, configClass, configKey string) (model.ConfigEntry, bool, error) {
	e, ok, err := scanConfigEntry(s.db.QueryRowContext(ctx, `SELECT config_class, config_key, config_version,
		config_timestamp, is_latest_config, config_deleted, object_type, object_id, object_version, object_as_of, resource_sub_type
		FROM config_entry WHERE tenant = ? AND config_class = ? AND config_key = ? AND is_latest_config = 1`,
		tenant, configClass, configKey))
	if err != nil {
		return model.ConfigEntry{}, false, errs.Wrap(errs.Unexpected, err, "loading config entry")
	}
	return e, ok, nil
}

// LoadConfigEntryVersion returns one specific version of (configClass,
// configKey).
func (s *Store) LoadConfigEntryVersion(ctx context.Context, tenant, configClass, configKey string, version int32) (model.ConfigEntry, bool, error) {
	e, ok, err := scanConfigEntry(s.db.QueryRowContext(ctx, `SELECT config_class, config_key, config_version,
		config_timestamp, is_latest_config, config_deleted, object_type, object_id, object_version, object_as_of, resource_sub_type
		FROM config_entry WHERE tenant = ? AND config_class = ? AND config_key = ? AND config_version = ?`,
		tenant, configClass, configKey, version))
	if err != nil {
		return model.ConfigEntry{}, false, errs.Wrap(errs.Unexpected, err, "loading config entry version")
	}
	return e, ok, nil
}

// InsertConfigEntryVersion appends entry as the next version for its
// (config_class, config_key), flipping off the prior latest flag in the
// same transaction. version must already be set to the correct next
// dense version by the caller (internal/configentry owns that policy).
func (s *Store) InsertConfigEntryVersion(ctx context.Context, tenant string, entry model.ConfigEntry) error {
	return withRetry(ctx, func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()

		if entry.ConfigVersion > 1 {
			if _, err := tx.Exec(`UPDATE config_entry SET is_latest_config = 0
				WHERE tenant = ? AND config_class = ? AND config_key = ? AND config_version = ?`,
				tenant, entry.ConfigClass, entry.ConfigKey, entry.ConfigVersion-1); err != nil {
				return fmt.Errorf("clearing prior latest config entry: %w", err)
			}
		}

		var objectVersion, objectAsOf interface{}
		if entry.ObjectVersion != nil {
			objectVersion = *entry.ObjectVersion
		}
		if entry.ObjectAsOf != nil {
			objectAsOf = types.MicrosSinceEpoch(*entry.ObjectAsOf)
		}

		if _, err := tx.Exec(`INSERT INTO config_entry
			(tenant, config_class, config_key, config_version, config_timestamp, is_latest_config, config_deleted,
			 object_type, object_id, object_version, object_as_of, resource_sub_type)
			VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?, ?)`,
			tenant, entry.ConfigClass, entry.ConfigKey, entry.ConfigVersion, types.MicrosSinceEpoch(entry.ConfigTimestamp),
			boolToInt(entry.Deleted), string(entry.ObjectType), entry.ObjectID, objectVersion, objectAsOf, entry.ResourceSubType); err != nil {
			return fmt.Errorf("inserting config entry: %w", err)
		}

		return tx.Commit()
	})
}

// ListConfigEntries returns every key's latest entry within configClass,
// optionally filtered by deletion state, object type and resource
// sub-type, per spec.md section 4.6's listConfigEntries contract.
func (s *Store) ListConfigEntries(ctx context.Context, tenant, configClass string, includeDeleted bool, objectType *model.ObjectType, resourceSubType *string) ([]model.ConfigEntry, error) {
	query := `SELECT config_class, config_key, config_version, config_timestamp, is_latest_config, config_deleted,
		object_type, object_id, object_version, object_as_of, resource_sub_type
		FROM config_entry WHERE tenant = ? AND config_class = ? AND is_latest_config = 1`
	args := []interface{}{tenant, configClass}
	if !includeDeleted {
		query += ` AND config_deleted = 0`
	}
	if objectType != nil {
		query += ` AND object_type = ?`
		args = append(args, string(*objectType))
	}
	if resourceSubType != nil {
		query += ` AND resource_sub_type = ?`
		args = append(args, *resourceSubType)
	}
	query += ` ORDER BY config_key ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.Unexpected, err, "listing config entries")
	}
	defer rows.Close()

	var out []model.ConfigEntry
	for rows.Next() {
		e, err := scanConfigEntryRow(rows)
		if err != nil {
			return nil, errs.Wrap(errs.Unexpected, err, "scanning config entry")
		}
		out = append(out, e)
	}
	return out, nil
}

func scanConfigEntry(row *sql.Row) (model.ConfigEntry, bool, error) {
	var e model.ConfigEntry
	var ts int64
	var isLatest, deleted int
	var objectVersion sql.NullInt64
	var objectAsOf sql.NullInt64
	var objectID, objectType, resourceSubType sql.NullString

	err := row.Scan(&e.ConfigClass, &e.ConfigKey, &e.ConfigVersion, &ts, &isLatest, &deleted,
		&objectType, &objectID, &objectVersion, &objectAsOf, &resourceSubType)
	if err == sql.ErrNoRows {
		return model.ConfigEntry{}, false, nil
	}
	if err != nil {
		return model.ConfigEntry{}, false, err
	}
	fillConfigEntry(&e, ts, isLatest, deleted, objectType, objectID, objectVersion, objectAsOf, resourceSubType)
	return e, true, nil
}

func scanConfigEntryRow(rows *sql.Rows) (model.ConfigEntry, error) {
	var e model.ConfigEntry
	var ts int64
	var isLatest, deleted int
	var objectVersion sql.NullInt64
	var objectAsOf sql.NullInt64
	var objectID, objectType, resourceSubType sql.NullString

	err := rows.Scan(&e.ConfigClass, &e.ConfigKey, &e.ConfigVersion, &ts, &isLatest, &deleted,
		&objectType, &objectID, &objectVersion, &objectAsOf, &resourceSubType)
	if err != nil {
		return model.ConfigEntry{}, err
	}
	fillConfigEntry(&e, ts, isLatest, deleted, objectType, objectID, objectVersion, objectAsOf, resourceSubType)
	return e, nil
}

func fillConfigEntry(e *model.ConfigEntry, ts int64, isLatest, deleted int, objectType, objectID sql.NullString, objectVersion, objectAsOf sql.NullInt64, resourceSubType sql.NullString) {
	e.ConfigTimestamp = types.TimeMicros(ts).Time()
	e.IsLatest = isLatest == 1
	e.Deleted = deleted == 1
	e.ObjectType = model.ObjectType(objectType.String)
	e.ObjectID = objectID.String
	e.ResourceSubType = resourceSubType.String
	if objectVersion.Valid {
		v := int32(objectVersion.Int64)
		e.ObjectVersion = &v
	}
	if objectAsOf.Valid {
		t := types.TimeMicros(objectAsOf.Int64).Time()
		e.ObjectAsOf = &t
	}
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"metastore/internal/errs"
	"metastore/internal/model"
	"metastore/internal/types"
)

// BatchOpKind selects which object/version/tag operation a BatchOp
// performs, per spec.md section 4.4's batch write protocol.
type BatchOpKind int

const (
	BatchPreallocate BatchOpKind = iota
	BatchCreateObject
	BatchNewVersion
	BatchNewTag
	BatchConfigEntry
	BatchConfigTombstone
)

// BatchOp is one operation inside a batch write. Raw is the operation's
// canonical serialized form as the caller received it, used only to
// derive the batch's idempotency fingerprint; the store never interprets
// it otherwise. The ConfigClass/ConfigKey/ConfigObject* fields are only
// meaningful for BatchConfigEntry and BatchConfigTombstone.
type BatchOp struct {
	Kind          BatchOpKind
	ObjectType    model.ObjectType
	ObjectID      string
	ObjectVersion int32
	Definition    model.Definition
	Attributes    map[string]types.Value
	Raw           []byte

	ConfigClass           string
	ConfigKey             string
	ConfigObjectType      model.ObjectType
	ConfigObjectID        string
	ConfigObjectVersion   *int32
	ConfigObjectAsOf      *time.Time
	ConfigResourceSubType string
}

// SaveBatch applies every op in order inside a single transaction: if any
// op fails, the entire batch is rolled back and no partial effect is
// visible, per spec.md section 4.4 ("a batch either commits in full or
// has no effect"). A batch whose fingerprint was already committed for
// this tenant is rejected as a Duplicate rather than reapplied, so a
// client's network-failure retry of an identical batch is safe.
func (s *Store) SaveBatch(ctx context.Context, tenant string, ops []BatchOp) ([]Header, error) {
	if len(ops) == 0 {
		return nil, errs.New(errs.InvalidRequest, "batch must contain at least one operation")
	}

	raws := make([][]byte, len(ops))
	for i, op := range ops {
		raws[i] = op.Raw
	}
	fingerprint := batchFingerprint(tenant, raws)

	ids := affectedObjectIDs(ops)
	for _, id := range ids {
		s.locks.Lock(tenant, id)
	}
	defer func() {
		for _, id := range ids {
			s.locks.Unlock(tenant, id)
		}
	}()

	now := nowMicros()
	var results []Header
	err := withRetry(ctx, func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()

		alreadyCommitted, err := checkAndRecordFingerprint(tx, tenant, fingerprint, now.UnixMicro())
		if err != nil {
			return err
		}
		if alreadyCommitted {
			return errs.New(errs.Duplicate, "batch already committed")
		}

		results = nil
		for i, op := range ops {
			h, err := applyBatchOp(tx, tenant, op, now)
			if err != nil {
				return fmt.Errorf("operation %d: %w", i, err)
			}
			results = append(results, h)
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, asStoreErr(err)
	}
	return results, nil
}

func applyBatchOp(tx *sql.Tx, tenant string, op BatchOp, ts time.Time) (Header, error) {
	switch op.Kind {
	case BatchPreallocate:
		if err := model.ValidateObjectType(op.ObjectType); err != nil {
			return Header{}, errs.Wrap(errs.InvalidRequest, err, "invalid object type")
		}
		if _, err := tx.Exec(`INSERT INTO object (tenant, object_id, object_type, created_at) VALUES (?, ?, ?, ?)`,
			tenant, op.ObjectID, string(op.ObjectType), ts.UnixMicro()); err != nil {
			return Header{}, fmt.Errorf("preallocating object: %w", err)
		}
		return Header{ObjectID: op.ObjectID}, nil

	case BatchConfigEntry:
		entry, err := applyBatchConfigUpsert(tx, tenant, op, ts, false)
		if err != nil {
			return Header{}, err
		}
		return Header{ConfigClass: entry.ConfigClass, ConfigKey: entry.ConfigKey, ConfigVersion: entry.ConfigVersion}, nil

	case BatchConfigTombstone:
		entry, err := applyBatchConfigUpsert(tx, tenant, op, ts, true)
		if err != nil {
			return Header{}, err
		}
		return Header{ConfigClass: entry.ConfigClass, ConfigKey: entry.ConfigKey, ConfigVersion: entry.ConfigVersion}, nil

	case BatchCreateObject:
		if err := model.ValidateObjectType(op.ObjectType); err != nil {
			return Header{}, errs.Wrap(errs.InvalidRequest, err, "invalid object type")
		}
		if _, err := tx.Exec(`INSERT INTO object (tenant, object_id, object_type, created_at) VALUES (?, ?, ?, ?)`,
			tenant, op.ObjectID, string(op.ObjectType), ts.UnixMicro()); err != nil {
			return Header{}, fmt.Errorf("inserting object: %w", err)
		}
		if err := insertVersion(tx, tenant, op.ObjectID, 1, ts, op.Definition, true); err != nil {
			return Header{}, err
		}
		if err := insertTag(tx, tenant, op.ObjectID, 1, 1, ts, true, op.Attributes); err != nil {
			return Header{}, err
		}
		return Header{ObjectID: op.ObjectID, ObjectVersion: 1, TagVersion: 1, TagTimestamp: ts, IsLatestTag: true}, nil

	case BatchNewVersion:
		var latest sql.NullInt64
		if err := tx.QueryRow(`SELECT MAX(object_version) FROM object_version WHERE tenant = ? AND object_id = ?`,
			tenant, op.ObjectID).Scan(&latest); err != nil {
			return Header{}, fmt.Errorf("loading latest version: %w", err)
		}
		if !latest.Valid {
			return Header{}, errs.New(errs.NotFound, "object %s not found", op.ObjectID)
		}
		next := int32(latest.Int64) + 1
		if _, err := tx.Exec(`UPDATE object_version SET is_latest_object = 0 WHERE tenant = ? AND object_id = ? AND object_version = ?`,
			tenant, op.ObjectID, latest.Int64); err != nil {
			return Header{}, fmt.Errorf("clearing prior latest flag: %w", err)
		}
		if err := insertVersion(tx, tenant, op.ObjectID, next, ts, op.Definition, true); err != nil {
			return Header{}, err
		}
		if err := insertTag(tx, tenant, op.ObjectID, next, 1, ts, true, op.Attributes); err != nil {
			return Header{}, err
		}
		return Header{ObjectID: op.ObjectID, ObjectVersion: next, TagVersion: 1, TagTimestamp: ts, IsLatestTag: true}, nil

	case BatchNewTag:
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM object_version WHERE tenant = ? AND object_id = ? AND object_version = ?`,
			tenant, op.ObjectID, op.ObjectVersion).Scan(&exists); err != nil {
			return Header{}, fmt.Errorf("checking version existence: %w", err)
		}
		if exists == 0 {
			return Header{}, errs.New(errs.NotFound, "object %s version %d not found", op.ObjectID, op.ObjectVersion)
		}
		var latest sql.NullInt64
		if err := tx.QueryRow(`SELECT MAX(tag_version) FROM tag WHERE tenant = ? AND object_id = ? AND object_version = ?`,
			tenant, op.ObjectID, op.ObjectVersion).Scan(&latest); err != nil {
			return Header{}, fmt.Errorf("loading latest tag version: %w", err)
		}
		if !latest.Valid {
			return Header{}, errs.New(errs.NotFound, "object %s version %d has no tags", op.ObjectID, op.ObjectVersion)
		}
		next := int32(latest.Int64) + 1
		if _, err := tx.Exec(`UPDATE tag SET is_latest_tag = 0 WHERE tenant = ? AND object_id = ? AND object_version = ? AND tag_version = ?`,
			tenant, op.ObjectID, op.ObjectVersion, latest.Int64); err != nil {
			return Header{}, fmt.Errorf("clearing prior latest tag flag: %w", err)
		}
		if err := insertTag(tx, tenant, op.ObjectID, op.ObjectVersion, next, ts, true, op.Attributes); err != nil {
			return Header{}, err
		}
		return Header{ObjectID: op.ObjectID, ObjectVersion: op.ObjectVersion, TagVersion: next, TagTimestamp: ts, IsLatestTag: true}, nil

	default:
		return Header{}, errs.New(errs.InvalidRequest, "unknown batch operation kind %d", op.Kind)
	}
}

// applyBatchConfigUpsert applies one config-entry change inside an
// in-flight batch transaction, mirroring internal/configentry's
// create/update/delete state machine but reading the prior latest entry
// through tx rather than a fresh connection, so the decision is made
// against the batch's own in-flight view. tombstone selects delete
// semantics (requires a live prior entry) versus create-or-update
// semantics (create if absent or tombstoned, update if live).
func applyBatchConfigUpsert(tx *sql.Tx, tenant string, op BatchOp, ts time.Time, tombstone bool) (model.ConfigEntry, error) {
	var priorVersion int32
	var priorDeleted int
	err := tx.QueryRow(`SELECT config_version, config_deleted FROM config_entry
		WHERE tenant = ? AND config_class = ? AND config_key = ? AND is_latest_config = 1`,
		tenant, op.ConfigClass, op.ConfigKey).Scan(&priorVersion, &priorDeleted)
	hasPrior := err == nil
	if err != nil && err != sql.ErrNoRows {
		return model.ConfigEntry{}, fmt.Errorf("loading prior config entry: %w", err)
	}

	if tombstone && (!hasPrior || priorDeleted == 1) {
		return model.ConfigEntry{}, errs.New(errs.NotFound, "config entry %s/%s has no live version to delete", op.ConfigClass, op.ConfigKey)
	}

	nextVersion := int32(1)
	if hasPrior {
		nextVersion = priorVersion + 1
		if _, err := tx.Exec(`UPDATE config_entry SET is_latest_config = 0
			WHERE tenant = ? AND config_class = ? AND config_key = ? AND config_version = ?`,
			tenant, op.ConfigClass, op.ConfigKey, priorVersion); err != nil {
			return model.ConfigEntry{}, fmt.Errorf("clearing prior latest config entry: %w", err)
		}
	}

	var objectVersion, objectAsOf interface{}
	if op.ConfigObjectVersion != nil {
		objectVersion = *op.ConfigObjectVersion
	}
	if op.ConfigObjectAsOf != nil {
		objectAsOf = types.MicrosSinceEpoch(*op.ConfigObjectAsOf)
	}

	if _, err := tx.Exec(`INSERT INTO config_entry
		(tenant, config_class, config_key, config_version, config_timestamp, is_latest_config, config_deleted,
		 object_type, object_id, object_version, object_as_of, resource_sub_type)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?, ?)`,
		tenant, op.ConfigClass, op.ConfigKey, nextVersion, ts.UnixMicro(), boolToInt(tombstone),
		string(op.ConfigObjectType), op.ConfigObjectID, objectVersion, objectAsOf, op.ConfigResourceSubType); err != nil {
		return model.ConfigEntry{}, fmt.Errorf("inserting config entry: %w", err)
	}

	return model.ConfigEntry{
		ConfigClass: op.ConfigClass, ConfigKey: op.ConfigKey, ConfigVersion: nextVersion,
		ConfigTimestamp: ts, IsLatest: true, Deleted: tombstone,
		ObjectType: op.ConfigObjectType, ObjectID: op.ConfigObjectID,
		ObjectVersion: op.ConfigObjectVersion, ObjectAsOf: op.ConfigObjectAsOf,
		ResourceSubType: op.ConfigResourceSubType,
	}, nil
}

func affectedObjectIDs(ops []BatchOp) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, op := range ops {
		if op.ObjectID == "" || seen[op.ObjectID] {
			continue
		}
		seen[op.ObjectID] = true
		ids = append(ids, op.ObjectID)
	}
	sort.Strings(ids)
	return ids
}

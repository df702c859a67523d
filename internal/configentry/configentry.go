// Package configentry implements spec.md section 4.6's config-entry CRUD
// contracts: a keyed (config_class, config_key) directory of selectors
// onto the generic object model, with deletion tombstones and monotonic
// entry versions. internal/store owns the config_entry table's raw
// persistence; this package owns the create/update/delete state machine
// layered on top of it.
package configentry

import (
	"context"
	"time"

	"metastore/internal/errs"
	"metastore/internal/model"
	"metastore/internal/store"
	"metastore/internal/types"
)

// Create inserts the first version of (configClass, configKey), or, if
// the key's latest entry is a deletion tombstone, bumps config_version
// and clears the deleted flag. Creating against a live (non-deleted) key
// fails Duplicate (mapped to AlreadyExists at the API boundary).
func Create(ctx context.Context, s *store.Store, tenant, configClass, configKey string, objectType model.ObjectType, objectID string, objectVersion *int32, objectAsOf *time.Time, resourceSubType string) (model.ConfigEntry, error) {
	if err := model.ValidateObjectType(objectType); err != nil {
		return model.ConfigEntry{}, errs.Wrap(errs.InvalidRequest, err, "invalid object type")
	}

	existing, ok, err := s.LoadLatestConfigEntry(ctx, tenant, configClass, configKey)
	if err != nil {
		return model.ConfigEntry{}, err
	}
	if ok && !existing.Deleted {
		return model.ConfigEntry{}, errs.New(errs.Duplicate, "config entry %s/%s already exists", configClass, configKey)
	}

	nextVersion := int32(1)
	if ok {
		nextVersion = existing.ConfigVersion + 1
	}

	entry := model.ConfigEntry{
		ConfigClass: configClass, ConfigKey: configKey, ConfigVersion: nextVersion,
		ConfigTimestamp: types.TruncateMicros(time.Now()), IsLatest: true, Deleted: false,
		ObjectType: objectType, ObjectID: objectID, ObjectVersion: objectVersion, ObjectAsOf: objectAsOf,
		ResourceSubType: resourceSubType,
	}
	if err := s.InsertConfigEntryVersion(ctx, tenant, entry); err != nil {
		return model.ConfigEntry{}, err
	}
	return entry, nil
}

// Update appends a new live entry version over the current pointer.
// Requires the key's latest entry to exist and be live; otherwise
// NotFound.
func Update(ctx context.Context, s *store.Store, tenant, configClass, configKey string, objectType model.ObjectType, objectID string, objectVersion *int32, objectAsOf *time.Time, resourceSubType string) (model.ConfigEntry, error) {
	existing, ok, err := s.LoadLatestConfigEntry(ctx, tenant, configClass, configKey)
	if err != nil {
		return model.ConfigEntry{}, err
	}
	if !ok || existing.Deleted {
		return model.ConfigEntry{}, errs.New(errs.NotFound, "config entry %s/%s has no live version to update", configClass, configKey)
	}

	entry := model.ConfigEntry{
		ConfigClass: configClass, ConfigKey: configKey, ConfigVersion: existing.ConfigVersion + 1,
		ConfigTimestamp: types.TruncateMicros(time.Now()), IsLatest: true, Deleted: false,
		ObjectType: objectType, ObjectID: objectID, ObjectVersion: objectVersion, ObjectAsOf: objectAsOf,
		ResourceSubType: resourceSubType,
	}
	if err := s.InsertConfigEntryVersion(ctx, tenant, entry); err != nil {
		return model.ConfigEntry{}, err
	}
	return entry, nil
}

// Delete writes a tombstone version over the current pointer. Requires a
// live prior entry; otherwise NotFound. Tombstones are never garbage
// collected: a subsequent Create is the only way to revive the key.
func Delete(ctx context.Context, s *store.Store, tenant, configClass, configKey string) (model.ConfigEntry, error) {
	existing, ok, err := s.LoadLatestConfigEntry(ctx, tenant, configClass, configKey)
	if err != nil {
		return model.ConfigEntry{}, err
	}
	if !ok || existing.Deleted {
		return model.ConfigEntry{}, errs.New(errs.NotFound, "config entry %s/%s has no live version to delete", configClass, configKey)
	}

	entry := existing
	entry.ConfigVersion = existing.ConfigVersion + 1
	entry.ConfigTimestamp = types.TruncateMicros(time.Now())
	entry.IsLatest = true
	entry.Deleted = true
	if err := s.InsertConfigEntryVersion(ctx, tenant, entry); err != nil {
		return model.ConfigEntry{}, err
	}
	return entry, nil
}

// Read returns the latest entry for (configClass, configKey), tombstone
// or not; callers that want to exclude tombstones check Deleted
// themselves (list filtering is the only place spec.md section 4.6
// defaults to hiding them).
func Read(ctx context.Context, s *store.Store, tenant, configClass, configKey string) (model.ConfigEntry, error) {
	entry, ok, err := s.LoadLatestConfigEntry(ctx, tenant, configClass, configKey)
	if err != nil {
		return model.ConfigEntry{}, err
	}
	if !ok {
		return model.ConfigEntry{}, errs.New(errs.NotFound, "config entry %s/%s not found", configClass, configKey)
	}
	return entry, nil
}

// ReadBatch resolves a batch of (configClass, configKey) reads, preserving
// order, failing the whole batch on the first error, mirroring
// internal/selector's batch resolution contract.
func ReadBatch(ctx context.Context, s *store.Store, tenant string, keys []Key) ([]model.ConfigEntry, error) {
	out := make([]model.ConfigEntry, len(keys))
	for i, k := range keys {
		e, err := Read(ctx, s, tenant, k.ConfigClass, k.ConfigKey)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// Key identifies one config entry for ReadBatch.
type Key struct {
	ConfigClass string
	ConfigKey   string
}

// List returns every live (or, with includeDeleted, every) entry within
// configClass, optionally filtered by object type and resource sub-type.
func List(ctx context.Context, s *store.Store, tenant, configClass string, includeDeleted bool, objectType *model.ObjectType, resourceSubType *string) ([]model.ConfigEntry, error) {
	return s.ListConfigEntries(ctx, tenant, configClass, includeDeleted, objectType, resourceSubType)
}

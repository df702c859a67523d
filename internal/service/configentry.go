package service

import (
	"context"
	"time"

	"metastore/internal/configentry"
	"metastore/internal/errs"
	"metastore/internal/model"
)

// requireTrusted is the config-admin gate: every method in this file
// implements one of spec.md section 6.1's "Config admin" RPCs, which the
// surface groups separately from both public and trusted object writes
// and which this implementation treats as trusted-only end to end.
func requireTrusted(caller Caller) error {
	if !caller.Trusted {
		return errs.New(errs.PermissionDenied, "config entry administration requires a trusted caller")
	}
	return nil
}

// CreateConfigObject implements spec.md section 4.6's createConfigObject.
func (svc *Service) CreateConfigObject(ctx context.Context, tenant string, caller Caller, configClass, configKey string, objectType model.ObjectType, objectID string, objectVersion *int32, objectAsOf *time.Time, resourceSubType string) (model.ConfigEntry, error) {
	if err := requireTrusted(caller); err != nil {
		return model.ConfigEntry{}, err
	}
	return configentry.Create(ctx, svc.store, tenant, configClass, configKey, objectType, objectID, objectVersion, objectAsOf, resourceSubType)
}

// UpdateConfigObject implements spec.md section 4.6's updateConfigObject.
func (svc *Service) UpdateConfigObject(ctx context.Context, tenant string, caller Caller, configClass, configKey string, objectType model.ObjectType, objectID string, objectVersion *int32, objectAsOf *time.Time, resourceSubType string) (model.ConfigEntry, error) {
	if err := requireTrusted(caller); err != nil {
		return model.ConfigEntry{}, err
	}
	return configentry.Update(ctx, svc.store, tenant, configClass, configKey, objectType, objectID, objectVersion, objectAsOf, resourceSubType)
}

// DeleteConfigObject implements spec.md section 4.6's deleteConfigObject.
func (svc *Service) DeleteConfigObject(ctx context.Context, tenant string, caller Caller, configClass, configKey string) (model.ConfigEntry, error) {
	if err := requireTrusted(caller); err != nil {
		return model.ConfigEntry{}, err
	}
	return configentry.Delete(ctx, svc.store, tenant, configClass, configKey)
}

// ReadConfigObject implements spec.md section 4.6's readConfigObject.
func (svc *Service) ReadConfigObject(ctx context.Context, tenant string, caller Caller, configClass, configKey string) (model.ConfigEntry, error) {
	if err := requireTrusted(caller); err != nil {
		return model.ConfigEntry{}, err
	}
	return configentry.Read(ctx, svc.store, tenant, configClass, configKey)
}

// ReadConfigBatch implements spec.md section 4.6's readConfigBatch.
func (svc *Service) ReadConfigBatch(ctx context.Context, tenant string, caller Caller, keys []configentry.Key) ([]model.ConfigEntry, error) {
	if err := requireTrusted(caller); err != nil {
		return nil, err
	}
	return configentry.ReadBatch(ctx, svc.store, tenant, keys)
}

// ListConfigEntries implements spec.md section 4.6's listConfigEntries.
func (svc *Service) ListConfigEntries(ctx context.Context, tenant string, caller Caller, configClass string, includeDeleted bool, objectType *model.ObjectType, resourceSubType *string) ([]model.ConfigEntry, error) {
	if err := requireTrusted(caller); err != nil {
		return nil, err
	}
	return configentry.List(ctx, svc.store, tenant, configClass, includeDeleted, objectType, resourceSubType)
}

package service

import (
	"context"
	"time"

	"metastore/internal/errs"
	"metastore/internal/model"
	"metastore/internal/selector"
	"metastore/internal/tagupdate"
	"metastore/internal/types"
)

// CreateObject implements spec.md section 4.6's createObject: materializes
// a tag from (objectType, definition, tagUpdates), applying updates
// starting from an empty tag, injecting audit attributes, then delegating
// to the store's saveNewObject. objectType must be one of the public
// object types unless caller is trusted.
func (svc *Service) CreateObject(ctx context.Context, tenant string, caller Caller, objectType model.ObjectType, def model.Definition, updates []tagupdate.Update) (model.Tag, error) {
	if err := checkObjectTypeAllowed(objectType, caller); err != nil {
		return model.Tag{}, err
	}

	working := model.Tag{Attributes: map[string]types.Value{}}
	built, err := applyTagUpdates(working, updates, caller)
	if err != nil {
		return model.Tag{}, err
	}
	injectCreateAttrs(built.Attributes, caller, time.Now())

	result, err := svc.store.SaveNewObject(ctx, tenant, objectType, def, built.Attributes)
	if err != nil {
		return model.Tag{}, err
	}
	svc.notifyWrite(tenant, result.Header)
	return result, nil
}

// PreallocateID implements spec.md section 4.4's preallocateObjectId,
// reserving (object_id, object_type) for a later CreatePreallocatedObject.
// Restricted to trusted callers per spec.md section 6.1.
func (svc *Service) PreallocateID(ctx context.Context, tenant string, caller Caller, objectType model.ObjectType) (string, error) {
	if !caller.Trusted {
		return "", errs.New(errs.PermissionDenied, "preallocateId requires a trusted caller")
	}
	if err := model.ValidateObjectType(objectType); err != nil {
		return "", errs.Wrap(errs.InvalidRequest, err, "invalid object type")
	}
	return svc.store.PreallocateObjectID(ctx, tenant, objectType)
}

// CreatePreallocatedObject implements spec.md section 4.4's
// savePreallocated: attaches version 1 to a previously preallocated
// object_id. Restricted to trusted callers per spec.md section 6.1. A
// mismatch between requestType and the type the ID was preallocated with
// is FailedPrecondition (errs.WrongType), checked here rather than left to
// the store, so the error surfaces before any write is attempted.
func (svc *Service) CreatePreallocatedObject(ctx context.Context, tenant string, caller Caller, objectID string, requestType model.ObjectType, def model.Definition, updates []tagupdate.Update) (model.Tag, error) {
	if !caller.Trusted {
		return model.Tag{}, errs.New(errs.PermissionDenied, "createPreallocatedObject requires a trusted caller")
	}
	if err := model.ValidateObjectType(requestType); err != nil {
		return model.Tag{}, errs.Wrap(errs.InvalidRequest, err, "invalid object type")
	}

	storedType, err := svc.store.ObjectType(ctx, tenant, objectID)
	if err != nil {
		return model.Tag{}, err
	}
	if storedType != requestType {
		return model.Tag{}, errs.New(errs.WrongType, "object %s was preallocated as %s, request specified %s", objectID, storedType, requestType)
	}

	working := model.Tag{Attributes: map[string]types.Value{}}
	built, err := applyTagUpdates(working, updates, caller)
	if err != nil {
		return model.Tag{}, err
	}
	injectCreateAttrs(built.Attributes, caller, time.Now())

	result, err := svc.store.SavePreallocated(ctx, tenant, objectID, def, built.Attributes)
	if err != nil {
		return model.Tag{}, err
	}
	svc.notifyWrite(tenant, result.Header)
	return result, nil
}

// currentTagFor loads the latest tag of the latest version of objectID,
// the inheritance base for both UpdateObject and WriteBatch's new-version
// items.
func (svc *Service) currentTagFor(ctx context.Context, tenant string, objectType model.ObjectType, objectID string) (model.Tag, error) {
	resolved, err := selector.Resolve(ctx, svc.store, tenant, model.TagSelector{
		ObjectType: objectType, ObjectID: objectID, LatestObject: true, LatestTag: true,
	})
	if err != nil {
		return model.Tag{}, err
	}
	return svc.store.LoadTag(ctx, tenant, objectID, resolved.ObjectVersion, resolved.TagVersion, true)
}

// UpdateObject implements spec.md section 4.6's updateObject: resolves the
// object's current latest version, verifies the request's claimed type
// against what is stored, applies tag updates over the inherited attribute
// set, and calls saveNewVersion. Create audit attrs propagate from the
// inherited tag; update audit attrs are refreshed to the current request.
func (svc *Service) UpdateObject(ctx context.Context, tenant string, caller Caller, objectID string, objectType model.ObjectType, def model.Definition, updates []tagupdate.Update) (model.Tag, error) {
	if err := checkObjectTypeAllowed(objectType, caller); err != nil {
		return model.Tag{}, err
	}

	storedType, err := svc.store.ObjectType(ctx, tenant, objectID)
	if err != nil {
		return model.Tag{}, err
	}
	if storedType != objectType {
		return model.Tag{}, errs.New(errs.WrongType, "object %s has type %s, request specified %s", objectID, storedType, objectType)
	}

	prior, err := svc.currentTagFor(ctx, tenant, objectType, objectID)
	if err != nil {
		return model.Tag{}, err
	}

	built, err := applyTagUpdates(prior, updates, caller)
	if err != nil {
		return model.Tag{}, err
	}
	injectUpdateAttrs(built.Attributes, caller, time.Now())

	result, err := svc.store.SaveNewVersion(ctx, tenant, objectID, def, built.Attributes)
	if err != nil {
		return model.Tag{}, err
	}
	svc.notifyWrite(tenant, result.Header)
	return result, nil
}

// UpdateTag implements spec.md section 4.6's updateTag: resolves sel to a
// concrete object version and tag, applies tag updates over the inherited
// attribute set of the tag sel resolves to, and calls saveNewTag.
func (svc *Service) UpdateTag(ctx context.Context, tenant string, caller Caller, sel model.TagSelector, updates []tagupdate.Update) (model.Tag, error) {
	if err := checkObjectTypeAllowed(sel.ObjectType, caller); err != nil {
		return model.Tag{}, err
	}

	resolved, err := selector.Resolve(ctx, svc.store, tenant, sel)
	if err != nil {
		return model.Tag{}, err
	}
	prior, err := svc.store.LoadTag(ctx, tenant, sel.ObjectID, resolved.ObjectVersion, resolved.TagVersion, true)
	if err != nil {
		return model.Tag{}, err
	}

	built, err := applyTagUpdates(prior, updates, caller)
	if err != nil {
		return model.Tag{}, err
	}
	injectUpdateAttrs(built.Attributes, caller, time.Now())

	h, err := svc.store.SaveNewTag(ctx, tenant, sel.ObjectID, resolved.ObjectVersion, built.Attributes)
	if err != nil {
		return model.Tag{}, err
	}
	result, err := svc.store.LoadTag(ctx, tenant, sel.ObjectID, h.ObjectVersion, h.TagVersion, true)
	if err != nil {
		return model.Tag{}, err
	}
	svc.notifyWrite(tenant, result.Header)
	return result, nil
}

// ReadObject implements spec.md section 4.6's readObject: resolve sel,
// load the full tag including its definition.
func (svc *Service) ReadObject(ctx context.Context, tenant string, sel model.TagSelector) (model.Tag, error) {
	resolved, err := selector.Resolve(ctx, svc.store, tenant, sel)
	if err != nil {
		return model.Tag{}, err
	}
	return svc.store.LoadTag(ctx, tenant, sel.ObjectID, resolved.ObjectVersion, resolved.TagVersion, true)
}

// ReadBatch implements spec.md section 4.6's readBatch: resolve every
// selector concurrently, preserving order, failing the whole batch on the
// first element error.
func (svc *Service) ReadBatch(ctx context.Context, tenant string, sels []model.TagSelector) ([]model.Tag, error) {
	resolved, err := selector.ResolveBatch(ctx, svc.store, tenant, sels)
	if err != nil {
		return nil, err
	}
	return svc.store.LoadTags(ctx, tenant, resolved, true)
}

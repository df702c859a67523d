package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"metastore/internal/errs"
	"metastore/internal/idutil"
	"metastore/internal/model"
	"metastore/internal/selector"
	"metastore/internal/store"
	"metastore/internal/tagupdate"
	"metastore/internal/types"
)

// PreallocateBatchItem reserves a fresh object_id of ObjectType inside the
// batch's transaction, for later use by a createPreallocatedObject call
// outside this batch.
type PreallocateBatchItem struct {
	ObjectType model.ObjectType
}

// CreateObjectBatchItem is a batched createObject.
type CreateObjectBatchItem struct {
	ObjectType model.ObjectType
	Definition model.Definition
	Updates    []tagupdate.Update
}

// NewVersionBatchItem is a batched updateObject.
type NewVersionBatchItem struct {
	ObjectID   string
	ObjectType model.ObjectType
	Definition model.Definition
	Updates    []tagupdate.Update
}

// NewTagBatchItem is a batched updateTag.
type NewTagBatchItem struct {
	Selector model.TagSelector
	Updates  []tagupdate.Update
}

// ConfigEntryBatchItem is a batched create-or-update config entry write.
type ConfigEntryBatchItem struct {
	ConfigClass     string
	ConfigKey       string
	ObjectType      model.ObjectType
	ObjectID        string
	ObjectVersion   *int32
	ObjectAsOf      *time.Time
	ResourceSubType string
}

// ConfigTombstoneBatchItem is a batched deleteConfigObject.
type ConfigTombstoneBatchItem struct {
	ConfigClass string
	ConfigKey   string
}

// BatchRequest is the bundle accepted by WriteBatch, per spec.md section
// 4.4's saveBatchUpdate: "any combination of preallocate, createObjects,
// newVersions, newTags, configEntries, tombstones".
type BatchRequest struct {
	Preallocate   []PreallocateBatchItem
	CreateObjects []CreateObjectBatchItem
	NewVersions   []NewVersionBatchItem
	NewTags       []NewTagBatchItem
	ConfigEntries []ConfigEntryBatchItem
	Tombstones    []ConfigTombstoneBatchItem
}

// BatchResult reports the outcome of each item, in the same grouping
// order as the request (PreallocatedIDs, then Objects for both
// CreateObjects and NewVersions, then Tags, then ConfigEntries).
type BatchResult struct {
	PreallocatedIDs []string
	Objects         []model.Header
	Tags            []model.Header
	ConfigEntries   []model.ConfigEntry
}

// WriteBatch implements spec.md section 4.6's writeBatch: every item
// across every bucket commits atomically in one store.SaveBatch
// transaction, or none do. Policy checks (trust boundary, reserved
// attres, object-type restriction) run against every item before any op
// reaches the store, so a policy violation anywhere in the bundle aborts
// the whole batch before a single row is touched.
func (svc *Service) WriteBatch(ctx context.Context, tenant string, caller Caller, req BatchRequest) (BatchResult, error) {
	if len(req.Preallocate) > 0 && !caller.Trusted {
		return BatchResult{}, errs.New(errs.PermissionDenied, "preallocate requires a trusted caller")
	}
	if (len(req.ConfigEntries) > 0 || len(req.Tombstones) > 0) && !caller.Trusted {
		return BatchResult{}, errs.New(errs.PermissionDenied, "config entry writes require a trusted caller")
	}

	now := time.Now()
	var ops []store.BatchOp
	preallocIDs := make([]string, 0, len(req.Preallocate))

	for _, item := range req.Preallocate {
		if err := model.ValidateObjectType(item.ObjectType); err != nil {
			return BatchResult{}, errs.Wrap(errs.InvalidRequest, err, "invalid object type")
		}
		id := idutil.NewObjectID()
		preallocIDs = append(preallocIDs, id)
		ops = append(ops, store.BatchOp{Kind: store.BatchPreallocate, ObjectType: item.ObjectType, ObjectID: id})
	}

	for _, item := range req.CreateObjects {
		if err := checkObjectTypeAllowed(item.ObjectType, caller); err != nil {
			return BatchResult{}, err
		}
		working := model.Tag{Attributes: map[string]types.Value{}}
		built, err := applyTagUpdates(working, item.Updates, caller)
		if err != nil {
			return BatchResult{}, err
		}
		injectCreateAttrs(built.Attributes, caller, now)
		ops = append(ops, store.BatchOp{
			Kind: store.BatchCreateObject, ObjectType: item.ObjectType, ObjectID: idutil.NewObjectID(),
			Definition: item.Definition, Attributes: built.Attributes,
		})
	}

	for _, item := range req.NewVersions {
		if err := checkObjectTypeAllowed(item.ObjectType, caller); err != nil {
			return BatchResult{}, err
		}
		storedType, err := svc.store.ObjectType(ctx, tenant, item.ObjectID)
		if err != nil {
			return BatchResult{}, err
		}
		if storedType != item.ObjectType {
			return BatchResult{}, errs.New(errs.WrongType, "object %s has type %s, request specified %s", item.ObjectID, storedType, item.ObjectType)
		}
		prior, err := svc.currentTagFor(ctx, tenant, item.ObjectType, item.ObjectID)
		if err != nil {
			return BatchResult{}, err
		}
		built, err := applyTagUpdates(prior, item.Updates, caller)
		if err != nil {
			return BatchResult{}, err
		}
		injectUpdateAttrs(built.Attributes, caller, now)
		ops = append(ops, store.BatchOp{
			Kind: store.BatchNewVersion, ObjectType: item.ObjectType, ObjectID: item.ObjectID,
			Definition: item.Definition, Attributes: built.Attributes,
		})
	}

	for _, item := range req.NewTags {
		if err := checkObjectTypeAllowed(item.Selector.ObjectType, caller); err != nil {
			return BatchResult{}, err
		}
		resolved, err := selector.Resolve(ctx, svc.store, tenant, item.Selector)
		if err != nil {
			return BatchResult{}, err
		}
		prior, err := svc.store.LoadTag(ctx, tenant, item.Selector.ObjectID, resolved.ObjectVersion, resolved.TagVersion, false)
		if err != nil {
			return BatchResult{}, err
		}
		built, err := applyTagUpdates(prior, item.Updates, caller)
		if err != nil {
			return BatchResult{}, err
		}
		injectUpdateAttrs(built.Attributes, caller, now)
		ops = append(ops, store.BatchOp{
			Kind: store.BatchNewTag, ObjectID: item.Selector.ObjectID, ObjectVersion: resolved.ObjectVersion,
			Attributes: built.Attributes,
		})
	}

	for _, item := range req.ConfigEntries {
		if err := model.ValidateObjectType(item.ObjectType); err != nil {
			return BatchResult{}, errs.Wrap(errs.InvalidRequest, err, "invalid object type")
		}
		ops = append(ops, store.BatchOp{
			Kind: store.BatchConfigEntry, ConfigClass: item.ConfigClass, ConfigKey: item.ConfigKey,
			ConfigObjectType: item.ObjectType, ConfigObjectID: item.ObjectID,
			ConfigObjectVersion: item.ObjectVersion, ConfigObjectAsOf: item.ObjectAsOf,
			ConfigResourceSubType: item.ResourceSubType,
		})
	}

	for _, item := range req.Tombstones {
		ops = append(ops, store.BatchOp{Kind: store.BatchConfigTombstone, ConfigClass: item.ConfigClass, ConfigKey: item.ConfigKey})
	}

	if len(ops) == 0 {
		return BatchResult{}, errs.New(errs.InvalidRequest, "batch must contain at least one operation")
	}
	for i := range ops {
		ops[i].Raw = canonicalizeBatchOp(ops[i])
	}

	headers, err := svc.store.SaveBatch(ctx, tenant, ops)
	if err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{PreallocatedIDs: preallocIDs}
	var toNotify []model.Header
	for i, h := range headers {
		if ops[i].Kind == store.BatchConfigEntry || ops[i].Kind == store.BatchConfigTombstone {
			result.ConfigEntries = append(result.ConfigEntries, model.ConfigEntry{
				ConfigClass: h.ConfigClass, ConfigKey: h.ConfigKey, ConfigVersion: h.ConfigVersion,
				ConfigTimestamp: now, IsLatest: true, Deleted: ops[i].Kind == store.BatchConfigTombstone,
			})
			continue
		}
		if ops[i].Kind == store.BatchPreallocate {
			continue
		}
		mh := model.Header{
			ObjectType: ops[i].ObjectType, ObjectID: h.ObjectID, ObjectVersion: h.ObjectVersion,
			ObjectTimestamp: h.TagTimestamp, TagVersion: h.TagVersion, TagTimestamp: h.TagTimestamp,
			IsLatestObject: true, IsLatestTag: h.IsLatestTag,
		}
		if ops[i].Kind == store.BatchCreateObject || ops[i].Kind == store.BatchNewVersion {
			result.Objects = append(result.Objects, mh)
		} else {
			result.Tags = append(result.Tags, mh)
		}
		toNotify = append(toNotify, mh)
	}
	svc.notifyWrite(tenant, toNotify...)
	return result, nil
}

// canonicalizeBatchOp produces a deterministic byte representation of op's
// effect, used only as idempotency fingerprint input (internal/store
// hashes it with blake2b); it is never parsed back.
func canonicalizeBatchOp(op store.BatchOp) []byte {
	names := make([]string, 0, len(op.Attributes))
	for name := range op.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	buf := fmt.Sprintf("kind=%d|objType=%s|objID=%s|objVer=%d|defType=%s|configClass=%s|configKey=%s|configObjType=%s|configObjID=%s",
		op.Kind, op.ObjectType, op.ObjectID, op.ObjectVersion, op.Definition.SchemaType,
		op.ConfigClass, op.ConfigKey, op.ConfigObjectType, op.ConfigObjectID)
	out := []byte(buf)
	out = append(out, op.Definition.Bytes...)
	for _, name := range names {
		out = append(out, []byte("|attr:"+name+"=")...)
		out = append(out, types.Encode(op.Attributes[name])...)
	}
	return out
}

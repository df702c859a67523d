// Package service implements spec.md section 4.6's RPC-facing contracts:
// request validation, the trust-boundary gate, audit-attribute
// enrichment, and orchestration of internal/tagupdate, internal/selector,
// internal/store and internal/notify. The api package reaches object and
// config-entry operations through a Service; internal/configentry also
// works against internal/store directly.
package service

import (
	"time"

	"metastore/internal/errs"
	"metastore/internal/idutil"
	"metastore/internal/model"
	"metastore/internal/notify"
	"metastore/internal/store"
	"metastore/internal/tagupdate"
	"metastore/internal/types"
)

const (
	attrCreateTime     = "trac_create_time"
	attrCreateUserID   = "trac_create_user_id"
	attrCreateUserName = "trac_create_user_name"
	attrUpdateTime     = "trac_update_time"
	attrUpdateUserID   = "trac_update_user_id"
	attrUpdateUserName = "trac_update_user_name"
)

// Caller identifies who is making a request: the requesting user (for
// audit attrs) and whether the call arrived across the trusted boundary
// (spec.md section 6.1's distinction between public and trusted writes).
type Caller struct {
	Trusted  bool
	UserID   string
	UserName string
}

// Service is the RPC entry point set of spec.md section 4.6.
type Service struct {
	store    *store.Store
	notifier notify.Notifier
}

// New builds a Service over an opened Store. notifier may be nil, in
// which case write notifications are skipped entirely.
func New(s *store.Store, notifier notify.Notifier) *Service {
	return &Service{store: s, notifier: notifier}
}

// injectCreateAttrs stamps both the create and update audit attributes
// onto a brand new tag's attribute set, per spec.md section 4.4: "On
// new-version save, create attrs propagate from V1; update attrs reflect
// the current request" — at creation time both sets are identical.
func injectCreateAttrs(attrs map[string]types.Value, caller Caller, now time.Time) {
	ts := types.NewDateTime(now)
	attrs[attrCreateTime] = ts
	attrs[attrCreateUserID] = types.NewString(caller.UserID)
	attrs[attrCreateUserName] = types.NewString(caller.UserName)
	attrs[attrUpdateTime] = ts
	attrs[attrUpdateUserID] = types.NewString(caller.UserID)
	attrs[attrUpdateUserName] = types.NewString(caller.UserName)
}

// injectUpdateAttrs refreshes only the update audit attributes, leaving
// any inherited create attributes untouched.
func injectUpdateAttrs(attrs map[string]types.Value, caller Caller, now time.Time) {
	attrs[attrUpdateTime] = types.NewDateTime(now)
	attrs[attrUpdateUserID] = types.NewString(caller.UserID)
	attrs[attrUpdateUserName] = types.NewString(caller.UserName)
}

// applyTagUpdates validates attribute-name grammar and the trust
// boundary for every update before delegating to internal/tagupdate.Apply,
// so a rejected update never reaches the pure update engine.
func applyTagUpdates(tag model.Tag, updates []tagupdate.Update, caller Caller) (model.Tag, error) {
	for _, u := range updates {
		if u.Operation == tagupdate.OpClearAllAttr {
			continue
		}
		if err := idutil.ValidateAttrName(u.AttrName); err != nil {
			return model.Tag{}, errs.Wrap(errs.InvalidRequest, err, "invalid attribute name %q", u.AttrName)
		}
		if idutil.IsReservedAttrName(u.AttrName) && !caller.Trusted {
			return model.Tag{}, errs.New(errs.PermissionDenied, "attribute %q is reserved and may only be set by a trusted caller", u.AttrName)
		}
	}
	result, err := tagupdate.Apply(tag, updates)
	if err != nil {
		return model.Tag{}, err
	}
	return result, nil
}

func checkObjectTypeAllowed(objectType model.ObjectType, caller Caller) error {
	if err := model.ValidateObjectType(objectType); err != nil {
		return errs.Wrap(errs.InvalidRequest, err, "invalid object type")
	}
	if !caller.Trusted && !model.PublicObjectTypes[objectType] {
		return errs.New(errs.PermissionDenied, "object type %s is restricted to trusted callers", objectType)
	}
	return nil
}

func (svc *Service) notifyWrite(tenant string, headers ...model.Header) {
	if svc.notifier == nil {
		return
	}
	svc.notifier.NotifyBatchCommitted(tenant, headers)
}

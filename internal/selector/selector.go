// Package selector implements spec.md section 4.3's TagSelector resolution
// algorithm: turning a selector's explicit/as-of/latest choice for both
// the object-version and tag-version axes into a concrete
// (object_id, object_version, tag_version) triple.
package selector

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"metastore/internal/errs"
	"metastore/internal/idutil"
	"metastore/internal/model"
	"metastore/internal/store"
)

// Resolve implements the four-step algorithm of spec.md section 4.3
// against a single selector.
func Resolve(ctx context.Context, s *store.Store, tenant string, sel model.TagSelector) (store.ResolvedSelector, error) {
	if err := sel.Validate(); err != nil {
		return store.ResolvedSelector{}, errs.Wrap(errs.InvalidRequest, err, "invalid selector")
	}
	if err := idutil.ValidateObjectID(sel.ObjectID); err != nil {
		return store.ResolvedSelector{}, errs.Wrap(errs.InvalidRequest, err, "invalid object id")
	}

	storedType, err := s.ObjectType(ctx, tenant, sel.ObjectID)
	if err != nil {
		return store.ResolvedSelector{}, err
	}
	if storedType != sel.ObjectType {
		return store.ResolvedSelector{}, errs.New(errs.WrongType, "object %s has type %s, selector specified %s", sel.ObjectID, storedType, sel.ObjectType)
	}

	objectVersions, err := s.ObjectVersions(ctx, tenant, sel.ObjectID)
	if err != nil {
		return store.ResolvedSelector{}, err
	}
	objectVersion, err := pick(objectVersions, sel.ObjectVersion, sel.ObjectAsOf, sel.LatestObject)
	if err != nil {
		return store.ResolvedSelector{}, err
	}

	tagVersions, err := s.TagVersions(ctx, tenant, sel.ObjectID, objectVersion)
	if err != nil {
		return store.ResolvedSelector{}, err
	}
	tagVersion, err := pick(tagVersions, sel.TagVersion, sel.TagAsOf, sel.LatestTag)
	if err != nil {
		return store.ResolvedSelector{}, err
	}

	return store.ResolvedSelector{ObjectID: sel.ObjectID, ObjectVersion: objectVersion, TagVersion: tagVersion}, nil
}

// ResolveBatch resolves every selector in sels concurrently, preserving
// input order in the result, and fails the whole batch with the first
// element error encountered (spec.md section 4.3: "on any element error,
// the whole batch fails with that error").
func ResolveBatch(ctx context.Context, s *store.Store, tenant string, sels []model.TagSelector) ([]store.ResolvedSelector, error) {
	results := make([]store.ResolvedSelector, len(sels))
	g, gctx := errgroup.WithContext(ctx)
	for i, sel := range sels {
		i, sel := i, sel
		g.Go(func() error {
			r, err := Resolve(gctx, s, tenant, sel)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// pick applies the explicit/as-of/latest three-way rule of spec.md section
// 4.3 against a dense, ascending-by-version snapshot list. Exactly one of
// explicit/asOf/latest is set, enforced by TagSelector.Validate before
// pick is ever called.
func pick(snapshots []store.Snapshot, explicit *int32, asOf *time.Time, latest bool) (int32, error) {
	switch {
	case explicit != nil:
		for _, snap := range snapshots {
			if snap.Version == *explicit {
				return snap.Version, nil
			}
		}
		return 0, errs.New(errs.NotFound, "version %d not found", *explicit)

	case asOf != nil:
		// Inclusive lower bound: a timestamp exactly equal to a row's
		// timestamp matches that row (spec.md section 4.3).
		cutoff := *asOf
		best := int32(-1)
		var bestTS time.Time
		for _, snap := range snapshots {
			ts := snap.Timestamp.Time()
			if ts.After(cutoff) {
				continue
			}
			if best == -1 || ts.After(bestTS) {
				best = snap.Version
				bestTS = ts
			}
		}
		if best == -1 {
			return 0, errs.New(errs.NotFound, "no version exists as of %s", cutoff)
		}
		return best, nil

	case latest:
		// The version sequence is dense and monotonic and the store only
		// ever advances is_latest_object/is_latest_tag to the newest row,
		// so "latest" is exactly the maximum version present.
		best := int32(-1)
		for _, snap := range snapshots {
			if snap.Version > best {
				best = snap.Version
			}
		}
		return best, nil

	default:
		return 0, errs.New(errs.InvalidRequest, "no selector mode specified")
	}
}

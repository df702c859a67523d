package service

import (
	"context"

	"metastore/internal/model"
	"metastore/internal/search"
	"metastore/internal/store"
)

// Search implements spec.md section 4.6's search contract: no trust
// restriction applies (search is a public metadata operation per
// spec.md section 6.1), so it is a thin pass-through to the store's
// executor.
func (svc *Service) Search(ctx context.Context, tenant string, objectType model.ObjectType, expr search.Expression, opts store.SearchOptions) ([]model.Tag, error) {
	return svc.store.Search(ctx, tenant, objectType, expr, opts)
}

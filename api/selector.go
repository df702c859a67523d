package api

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"metastore/internal/model"
)

// parseSelector builds a model.TagSelector from query parameters shared by
// every read/update route: object_type, object_id, object_version,
// object_as_of, latest_object, tag_version, tag_as_of, latest_tag.
func parseSelector(q url.Values) (model.TagSelector, error) {
	sel := model.TagSelector{
		ObjectType: model.ObjectType(q.Get("object_type")),
		ObjectID:   q.Get("object_id"),
	}

	switch {
	case q.Get("object_version") != "":
		v, err := strconv.ParseInt(q.Get("object_version"), 10, 32)
		if err != nil {
			return sel, fmt.Errorf("invalid object_version: %w", err)
		}
		v32 := int32(v)
		sel.ObjectVersion = &v32
	case q.Get("object_as_of") != "":
		t, err := time.Parse(time.RFC3339Nano, q.Get("object_as_of"))
		if err != nil {
			return sel, fmt.Errorf("invalid object_as_of: %w", err)
		}
		sel.ObjectAsOf = &t
	default:
		sel.LatestObject = true
	}

	switch {
	case q.Get("tag_version") != "":
		v, err := strconv.ParseInt(q.Get("tag_version"), 10, 32)
		if err != nil {
			return sel, fmt.Errorf("invalid tag_version: %w", err)
		}
		v32 := int32(v)
		sel.TagVersion = &v32
	case q.Get("tag_as_of") != "":
		t, err := time.Parse(time.RFC3339Nano, q.Get("tag_as_of"))
		if err != nil {
			return sel, fmt.Errorf("invalid tag_as_of: %w", err)
		}
		sel.TagAsOf = &t
	default:
		sel.LatestTag = true
	}

	return sel, nil
}

// Package model defines the shared domain entities of spec.md section 3:
// objects, versions, tags, attributes, headers and selectors. These types
// are passed between internal/store, internal/selector, internal/search,
// internal/tagupdate, internal/configentry and internal/service.
package model

import (
	"fmt"
	"time"

	"metastore/internal/types"
)

// ObjectType is the fixed, enumerated type of an object (spec.md section
// 3.1).
type ObjectType string

const (
	ObjectTypeData     ObjectType = "DATA"
	ObjectTypeModel    ObjectType = "MODEL"
	ObjectTypeFlow     ObjectType = "FLOW"
	ObjectTypeJob      ObjectType = "JOB"
	ObjectTypeFile     ObjectType = "FILE"
	ObjectTypeStorage  ObjectType = "STORAGE"
	ObjectTypeSchema   ObjectType = "SCHEMA"
	ObjectTypeCustom   ObjectType = "CUSTOM"
	ObjectTypeConfig   ObjectType = "CONFIG"
	ObjectTypeResource ObjectType = "RESOURCE"
)

var validObjectTypes = map[ObjectType]bool{
	ObjectTypeData: true, ObjectTypeModel: true, ObjectTypeFlow: true,
	ObjectTypeJob: true, ObjectTypeFile: true, ObjectTypeStorage: true,
	ObjectTypeSchema: true, ObjectTypeCustom: true, ObjectTypeConfig: true,
	ObjectTypeResource: true,
}

// ValidateObjectType checks ot against the closed enumeration.
func ValidateObjectType(ot ObjectType) error {
	if !validObjectTypes[ot] {
		return fmt.Errorf("unknown object type %q", ot)
	}
	return nil
}

// PublicObjectTypes are the object types creatable via public (non-trusted)
// write endpoints, per spec.md section 6.1 ("Public writes (restricted
// object types)"). RESOURCE and CONFIG are server/admin concepts and are
// trusted-only; every other type is open to public callers.
var PublicObjectTypes = map[ObjectType]bool{
	ObjectTypeData: true, ObjectTypeModel: true, ObjectTypeFlow: true,
	ObjectTypeJob: true, ObjectTypeFile: true, ObjectTypeStorage: true,
	ObjectTypeSchema: true, ObjectTypeCustom: true,
}

// Header is the projection described in spec.md section 3.1.
type Header struct {
	ObjectType      ObjectType
	ObjectID        string
	ObjectVersion   int32
	ObjectTimestamp time.Time
	TagVersion      int32
	TagTimestamp    time.Time
	IsLatestObject  bool
	IsLatestTag     bool
}

// Definition is a version's opaque content payload: bytes plus a type tag
// naming the payload's domain-specific schema. Validating the contents of
// Definition is out of scope (spec.md section 1).
type Definition struct {
	SchemaType string
	Bytes      []byte
}

// Tag is the full persisted unit: a header, the version's definition (nil
// when only the tag, not the version, was loaded), and the tag's attribute
// map.
type Tag struct {
	Header     Header
	Definition *Definition
	Attributes map[string]types.Value
}

// Clone returns a deep-enough copy of t suitable for building a new tag
// version from an inherited attribute set (internal/tagupdate mutates the
// returned map freely without aliasing t's).
func (t Tag) Clone() Tag {
	attrs := make(map[string]types.Value, len(t.Attributes))
	for k, v := range t.Attributes {
		attrs[k] = v
	}
	return Tag{Header: t.Header, Definition: t.Definition, Attributes: attrs}
}

// ConfigEntry is the directory-lookup row of spec.md section 3.1's
// config-entry subsystem: a mutable (config_class, config_key) pointer
// onto an immutable underlying object version. Entry versions are
// themselves monotonic and dense, mirroring object/tag versioning.
type ConfigEntry struct {
	ConfigClass     string
	ConfigKey       string
	ConfigVersion   int32
	ConfigTimestamp time.Time
	IsLatest        bool
	Deleted         bool

	ObjectType      ObjectType
	ObjectID        string
	ObjectVersion   *int32
	ObjectAsOf      *time.Time
	ResourceSubType string
}

// TagSelector is the query-by-identity type of spec.md section 3.1: always
// ObjectType + ObjectID, plus one of {explicit ObjectVersion, ObjectAsOf,
// LatestObject} and one of {explicit TagVersion, TagAsOf, LatestTag}.
type TagSelector struct {
	ObjectType ObjectType
	ObjectID   string

	ObjectVersion *int32
	ObjectAsOf    *time.Time
	LatestObject  bool

	TagVersion *int32
	TagAsOf    *time.Time
	LatestTag  bool
}

// Validate checks structural well-formedness: object type/id present, and
// exactly one object-version selector mode and one tag-version selector
// mode chosen.
func (s TagSelector) Validate() error {
	if err := ValidateObjectType(s.ObjectType); err != nil {
		return err
	}
	if s.ObjectID == "" {
		return fmt.Errorf("object id is required")
	}
	objectModes := 0
	if s.ObjectVersion != nil {
		objectModes++
	}
	if s.ObjectAsOf != nil {
		objectModes++
	}
	if s.LatestObject {
		objectModes++
	}
	if objectModes != 1 {
		return fmt.Errorf("exactly one of object_version, object_as_of, latest_object is required, got %d", objectModes)
	}
	tagModes := 0
	if s.TagVersion != nil {
		tagModes++
	}
	if s.TagAsOf != nil {
		tagModes++
	}
	if s.LatestTag {
		tagModes++
	}
	if tagModes != 1 {
		return fmt.Errorf("exactly one of tag_version, tag_as_of, latest_tag is required, got %d", tagModes)
	}
	return nil
}

// Package idutil implements the identifier and name grammars of spec.md
// section 6.2: object UUIDs, tenant codes, attribute names, resource keys
// and application codes.
package idutil

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

var (
	tenantCodeRE  = regexp.MustCompile(`^[A-Z][A-Z0-9_]{0,31}$`)
	attrNameRE    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.]*$`)
	resourceKeyRE = regexp.MustCompile(`^[A-Z][A-Z0-9_]{0,63}$`)
	appCodeRE     = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
)

// ReservedAttrPrefix is the prefix reserved for trusted (server-originated)
// attribute names, per spec.md section 3.2 invariant 7.
const ReservedAttrPrefix = "trac_"

// NewObjectID generates a fresh canonical 36-character UUID for a new
// object.
func NewObjectID() string {
	return uuid.New().String()
}

// ValidateObjectID checks that id is a canonical 36-character UUID string.
func ValidateObjectID(id string) error {
	if len(id) != 36 {
		return fmt.Errorf("invalid object id %q: not a canonical 36-character UUID", id)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid object id %q: %w", id, err)
	}
	return nil
}

// ValidateTenantCode checks the tenant code grammar [A-Z][A-Z0-9_]{0,31}.
func ValidateTenantCode(code string) error {
	if !tenantCodeRE.MatchString(code) {
		return fmt.Errorf("invalid tenant code %q", code)
	}
	return nil
}

// ValidateAttrName checks the attribute name grammar
// [A-Za-z][A-Za-z0-9_.]*. It does not check the reserved-prefix policy —
// that is an authorization decision made by internal/service, not a
// grammar check.
func ValidateAttrName(name string) error {
	if !attrNameRE.MatchString(name) {
		return fmt.Errorf("invalid attribute name %q", name)
	}
	return nil
}

// IsReservedAttrName reports whether name carries the reserved trac_
// prefix.
func IsReservedAttrName(name string) bool {
	return len(name) >= len(ReservedAttrPrefix) && name[:len(ReservedAttrPrefix)] == ReservedAttrPrefix
}

// ValidateResourceKey checks the resource key grammar [A-Z][A-Z0-9_]{0,63}.
func ValidateResourceKey(key string) error {
	if !resourceKeyRE.MatchString(key) {
		return fmt.Errorf("invalid resource key %q", key)
	}
	return nil
}

// ValidateApplicationCode checks the application code grammar
// [a-z][a-z0-9-]*.
func ValidateApplicationCode(code string) error {
	if !appCodeRE.MatchString(code) {
		return fmt.Errorf("invalid application code %q", code)
	}
	return nil
}

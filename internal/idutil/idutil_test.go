package idutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateObjectID(t *testing.T) {
	assert.NoError(t, ValidateObjectID(NewObjectID()))
	assert.Error(t, ValidateObjectID("not-a-uuid"))
}

func TestValidateTenantCode(t *testing.T) {
	assert.NoError(t, ValidateTenantCode("ACME"))
	assert.NoError(t, ValidateTenantCode("ACME_01"))
	assert.Error(t, ValidateTenantCode("acme"))
	assert.Error(t, ValidateTenantCode(""))
}

func TestValidateAttrName(t *testing.T) {
	assert.NoError(t, ValidateAttrName("rodent_type"))
	assert.NoError(t, ValidateAttrName("dataset.class"))
	assert.Error(t, ValidateAttrName("1leading_digit"))
	assert.Error(t, ValidateAttrName("bad name"))
}

func TestIsReservedAttrName(t *testing.T) {
	assert.True(t, IsReservedAttrName("trac_create_time"))
	assert.False(t, IsReservedAttrName("rodent_type"))
}

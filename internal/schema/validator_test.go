package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requiredStringSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"drone_id": map[string]interface{}{"type": "string"},
		},
		"required": []string{"drone_id"},
	}
}

func TestValidator_NilSchemaAlwaysPasses(t *testing.T) {
	v := NewValidator()
	err := v.Validate("anything", nil, map[string]interface{}{})
	assert.NoError(t, err)
}

func TestValidator_MissingRequiredFieldFails(t *testing.T) {
	v := NewValidator()
	err := v.Validate("connect_drone", requiredStringSchema(), map[string]interface{}{})
	require.Error(t, err)
}

func TestValidator_ValidArgsPass(t *testing.T) {
	v := NewValidator()
	err := v.Validate("connect_drone", requiredStringSchema(), map[string]interface{}{"drone_id": "d1"})
	assert.NoError(t, err)
}

func TestValidator_WrongTypeFails(t *testing.T) {
	v := NewValidator()
	err := v.Validate("connect_drone", requiredStringSchema(), map[string]interface{}{"drone_id": 123})
	require.Error(t, err)
}

func TestValidator_CachesCompiledSchemaAcrossCalls(t *testing.T) {
	v := NewValidator()
	sch := requiredStringSchema()
	require.NoError(t, v.Validate("connect_drone", sch, map[string]interface{}{"drone_id": "d1"}))
	require.NoError(t, v.Validate("connect_drone", sch, map[string]interface{}{"drone_id": "d2"}))
	_, ok := v.cache["connect_drone"]
	assert.True(t, ok)
}

package scripthost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopCallback(*Params) Param { return VoidParam() }

func TestNewScriptFnMetadataBindingDerivation(t *testing.T) {
	cases := []struct {
		name        string
		wantBinding BindingKind
		wantClass   string
		wantMethod  string
	}{
		{"log", BindingFree, "", "log"},
		{"Vec3::length", BindingStatic, "Vec3", "length"},
		{"Entity:position", BindingInstance, "Entity", "position"},
	}
	for _, c := range cases {
		m, err := newScriptFnMetadata(c.name, "core", noopCallback, "")
		require.NoError(t, err)
		assert.Equal(t, c.wantBinding, m.Binding, c.name)
		assert.Equal(t, c.wantClass, m.ClassName, c.name)
		assert.Equal(t, c.wantMethod, m.MethodName, c.name)
	}
}

func TestNewScriptFnMetadataRejectsNilCallback(t *testing.T) {
	_, err := newScriptFnMetadata("log", "core", nil, "")
	assert.Error(t, err)
}

func TestNewScriptFnMetadataRejectsEmptyMethodName(t *testing.T) {
	_, err := newScriptFnMetadata("Entity:", "core", noopCallback, "")
	assert.Error(t, err)
}

func TestEffectiveParamsPrependsSelfForInstanceBindings(t *testing.T) {
	m, err := newScriptFnMetadata("Entity:setPosition", "core", noopCallback, "")
	require.NoError(t, err)
	m.Params = []ScriptFnParameter{{Name: "pos", Type: DataTypeVec3}}

	eff := m.EffectiveParams()
	require.Len(t, eff, 2)
	assert.Equal(t, "self", eff[0].Name)
	assert.Equal(t, DataTypeObject, eff[0].Type)
	assert.Equal(t, "pos", eff[1].Name)
}

func TestEffectiveParamsUnchangedForFreeAndStaticBindings(t *testing.T) {
	m, err := newScriptFnMetadata("Vec3::length", "core", noopCallback, "")
	require.NoError(t, err)
	m.Params = []ScriptFnParameter{{Name: "v", Type: DataTypeVec3}}
	assert.Len(t, m.EffectiveParams(), 1)
}

func TestInternalName(t *testing.T) {
	free, _ := newScriptFnMetadata("log", "core", noopCallback, "")
	assert.Equal(t, "_core_log", free.InternalName())

	method, _ := newScriptFnMetadata("Entity:setPosition", "movement", noopCallback, "")
	assert.Equal(t, "_movement_entity_set_position", method.InternalName())
}

func TestIsWasmSimple(t *testing.T) {
	simple, _ := newScriptFnMetadata("add", "core", noopCallback, "")
	simple.Params = []ScriptFnParameter{{Name: "a", Type: DataTypeI32}, {Name: "b", Type: DataTypeI32}}
	simple.Return = DataTypeI32
	assert.True(t, simple.IsWasmSimple())

	aggregateFn, _ := newScriptFnMetadata("spawn", "core", noopCallback, "")
	aggregateFn.Params = []ScriptFnParameter{{Name: "at", Type: DataTypeVec3}}
	aggregateFn.Return = DataTypeObject
	assert.False(t, aggregateFn.IsWasmSimple())
}

package scripthost

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpSpecsWritesOneFilePerCapability(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register("log", "core", noopCallback, "logs a message").
		Param(DataTypeExtString, "msg").
		Done())
	require.NoError(t, b.Register("Entity:setPosition", "movement", noopCallback, "").
		Param(DataTypeVec3, "pos").
		Done())

	host, err := b.Build()
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, host.DumpSpecs(dir))

	for _, capability := range []string{"core", "movement"} {
		path := filepath.Join(dir, capability+".json")
		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var fns []specFnJSON
		require.NoError(t, json.Unmarshal(data, &fns))
		assert.NotEmpty(t, fns)
	}
}

func TestDumpSpecsIncludesEffectiveParamsAndDoc(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register("Entity:setPosition", "movement", noopCallback, "moves the entity").
		Param(DataTypeVec3, "pos").
		Done())
	host, err := b.Build()
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, host.DumpSpecs(dir))

	data, err := os.ReadFile(filepath.Join(dir, "movement.json"))
	require.NoError(t, err)

	var fns []specFnJSON
	require.NoError(t, json.Unmarshal(data, &fns))
	require.Len(t, fns, 1)
	assert.Equal(t, "moves the entity", fns[0].Doc)
	require.Len(t, fns[0].Params, 2, "the implicit self receiver must be included")
	assert.Equal(t, "self", fns[0].Params[0].Name)
	assert.Equal(t, "pos", fns[0].Params[1].Name)
}

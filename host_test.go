package scripthost

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine is a minimal Engine stub letting host_test.go drive Host.CallFn
// without a real wazero/Lua engine underneath.
type fakeEngine struct {
	fn       func(params *Params, ret DataType) Param
	fnExists bool
}

func (e *fakeEngine) LoadScript([]byte, *EngineDataState, map[string]*ScriptFnMetadata) error {
	return nil
}

func (e *fakeEngine) CallFn(key FnKey, params *Params, ret DataType) Param {
	return e.fn(params, ret)
}

func (e *fakeEngine) GetFnKey(name string) (FnKey, bool) {
	if !e.fnExists {
		return 0, false
	}
	return FnKey(0), true
}

func (e *fakeEngine) FastCallUpdate(float32) error      { return nil }
func (e *fakeEngine) FastCallFixedUpdate(float32) error { return nil }
func (e *fakeEngine) APIVersions() map[string]Semver    { return nil }
func (e *fakeEngine) Close() error                      { return nil }

func buildTestHost(t *testing.T, engine Engine) *Host {
	t.Helper()
	b := NewBuilder()
	require.NoError(t, b.Register("noop", "core", noopCallback, "").Done())
	host, err := b.Build()
	require.NoError(t, err)
	host.Engine = engine
	return host
}

func TestHostCallFnMissingExportReturnsHostError(t *testing.T) {
	host := buildTestHost(t, &fakeEngine{fnExists: false})
	result := host.CallFn("noop", &Params{}, DataTypeVoid)
	assert.True(t, result.IsErr())
}

func TestHostCallFnClearsQueuesAfterCall(t *testing.T) {
	host := buildTestHost(t, &fakeEngine{
		fnExists: true,
		fn: func(params *Params, ret DataType) Param {
			return VoidParam()
		},
	})
	host.CallFn("noop", &Params{}, DataTypeVoid)
	assert.Equal(t, 0, host.state.Strings.Len())
	assert.Equal(t, 0, host.state.Floats.Len())
	assert.Equal(t, 0, host.state.Buffers.Len())
}

func TestHostCallFnLogsWhenEngineLeavesQueuesNonEmpty(t *testing.T) {
	var logged string
	host := buildTestHost(t, &fakeEngine{
		fnExists: true,
		fn: func(params *Params, ret DataType) Param {
			// A well-behaved engine drains every queue it pushes to before
			// returning; this one forgets to, simulating a buggy adapter.
			return VoidParam()
		},
	})
	host.hooks.LogCritical = func(msg string) { logged = msg }
	host.state.Strings.Push("leaked")

	host.CallFn("noop", &Params{}, DataTypeVoid)

	assert.NotEmpty(t, logged)
	assert.Equal(t, 0, host.state.Strings.Len(), "the leaked entry must still be cleared")
}

func TestHostRegisterAndResolveObjectRoundTrip(t *testing.T) {
	host := buildTestHost(t, &fakeEngine{})
	var x int
	ptr := unsafe.Pointer(&x)

	p := host.RegisterObject(ptr)
	assert.False(t, p.IsErr())

	got, ok := host.ResolveObject(p)
	assert.True(t, ok)
	assert.Equal(t, ptr, got)

	// Registering the same pointer again returns the same handle.
	p2 := host.RegisterObject(ptr)
	assert.Equal(t, p, p2)
}

func TestHostRegisterObjectNilMapsToNullHandle(t *testing.T) {
	host := buildTestHost(t, &fakeEngine{})

	p := host.RegisterObject(nil)
	handle, ok := p.Object()
	require.True(t, ok)
	assert.Equal(t, NullHandle, handle)

	got, ok := host.ResolveObject(p)
	assert.True(t, ok, "NullHandle resolves successfully to nil")
	assert.Nil(t, got)
}

func TestHostResolveObjectRejectsNonObjectParam(t *testing.T) {
	host := buildTestHost(t, &fakeEngine{})
	_, ok := host.ResolveObject(I32Param(3))
	assert.False(t, ok)
}

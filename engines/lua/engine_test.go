package lua

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scripthost "github.com/scripthost/scripthost-go"
)

func newLoadedEngine(t *testing.T, source string, fns map[string]*scripthost.ScriptFnMetadata) (*Engine, *scripthost.EngineDataState) {
	t.Helper()
	state := scripthost.NewEngineDataState()
	state.SetActiveCapabilities([]string{"core"})

	e := New()
	require.NoError(t, e.LoadScript([]byte(source), state, fns))
	t.Cleanup(func() { _ = e.Close() })
	return e, state
}

func TestEngineCallFnRoundTripsScalars(t *testing.T) {
	e, _ := newLoadedEngine(t, `
		function add(a, b)
			return a + b
		end
	`, nil)

	key, ok := e.GetFnKey("add")
	require.True(t, ok)

	params := scripthost.NewParams().Push(scripthost.I32Param(2)).Push(scripthost.I32Param(3))
	result := e.CallFn(key, params, scripthost.DataTypeI32)

	v, ok := result.I32()
	require.True(t, ok)
	assert.Equal(t, int32(5), v)
}

func TestEngineGetFnKeyMissingExport(t *testing.T) {
	e, _ := newLoadedEngine(t, `x = 1`, nil)
	_, ok := e.GetFnKey("doesNotExist")
	assert.False(t, ok)
}

func TestEngineFastCallUpdateIsNoOpWithoutExport(t *testing.T) {
	e, _ := newLoadedEngine(t, `x = 1`, nil)
	assert.False(t, e.hasOnUpdate)
	assert.NoError(t, e.FastCallUpdate(0.016))
}

func TestEngineFastCallUpdateInvokesExport(t *testing.T) {
	e, _ := newLoadedEngine(t, `
		lastDelta = nil
		function on_update(dt)
			lastDelta = dt
		end
	`, nil)
	assert.True(t, e.hasOnUpdate)
	require.NoError(t, e.FastCallUpdate(0.5))
}

func TestEngineHostCallbackRoundTripsFreeFunction(t *testing.T) {
	var gotMsg string
	fns := map[string]*scripthost.ScriptFnMetadata{
		"log": {
			Name:       "log",
			Capability: "core",
			Binding:    scripthost.BindingFree,
			MethodName: "log",
			Params:     []scripthost.ScriptFnParameter{{Name: "msg", Type: scripthost.DataTypeExtString}},
			Return:     scripthost.DataTypeVoid,
			Callback: func(params *scripthost.Params) scripthost.Param {
				p, _ := params.Get(0)
				gotMsg, _ = p.String()
				return scripthost.VoidParam()
			},
		},
	}

	e, _ := newLoadedEngine(t, `
		local host_api = require("host_api")
		function run()
			host_api.log("hello from guest")
		end
	`, fns)

	key, ok := e.GetFnKey("run")
	require.True(t, ok)
	e.CallFn(key, scripthost.NewParams(), scripthost.DataTypeVoid)

	assert.Equal(t, "hello from guest", gotMsg)
}

func TestEngineHostCallbackRefusedWhenCapabilityInactive(t *testing.T) {
	var called bool
	fns := map[string]*scripthost.ScriptFnMetadata{
		"restricted": {
			Name:       "restricted",
			Capability: "admin",
			Binding:    scripthost.BindingFree,
			MethodName: "restricted",
			Return:     scripthost.DataTypeVoid,
			Callback: func(*scripthost.Params) scripthost.Param {
				called = true
				return scripthost.VoidParam()
			},
		},
	}

	state := scripthost.NewEngineDataState()
	state.SetActiveCapabilities([]string{"core"}) // "admin" is not active

	e := New()
	require.NoError(t, e.LoadScript([]byte(`
		local host_api = require("host_api")
		function run()
			host_api.restricted()
		end
	`), state, fns))
	t.Cleanup(func() { _ = e.Close() })

	key, ok := e.GetFnKey("run")
	require.True(t, ok)
	e.CallFn(key, scripthost.NewParams(), scripthost.DataTypeVoid)

	assert.False(t, called, "a callback under an inactive capability must never run")
}

func TestEngineInstanceMethodReceivesSelfHandle(t *testing.T) {
	var gotHandle uint64
	fns := map[string]*scripthost.ScriptFnMetadata{
		"Entity:ping": {
			Name:       "Entity:ping",
			Capability: "core",
			Binding:    scripthost.BindingInstance,
			ClassName:  "Entity",
			MethodName: "ping",
			Return:     scripthost.DataTypeVoid,
			Callback: func(params *scripthost.Params) scripthost.Param {
				self, _ := params.Get(0)
				gotHandle, _ = self.Object()
				return scripthost.VoidParam()
			},
		},
	}

	e, _ := newLoadedEngine(t, `
		local host_api = require("host_api")
		function run()
			local e = host_api.Entity.new(42)
			e:ping()
		end
	`, fns)

	key, ok := e.GetFnKey("run")
	require.True(t, ok)
	e.CallFn(key, scripthost.NewParams(), scripthost.DataTypeVoid)

	assert.Equal(t, uint64(42), gotHandle)
}

func TestEngineSandboxHidesOSAndIO(t *testing.T) {
	e := New()
	state := scripthost.NewEngineDataState()
	state.SetActiveCapabilities([]string{"core"})
	err := e.LoadScript([]byte(`
		if os ~= nil or io ~= nil then
			error("expected os/io to be shadowed")
		end
	`), state, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
}

func TestEngineSandboxRequireRejectsUnknownModule(t *testing.T) {
	e := New()
	state := scripthost.NewEngineDataState()
	state.SetActiveCapabilities([]string{"core"})
	err := e.LoadScript([]byte(`require("os")`), state, nil)
	assert.Error(t, err)
}

func TestEngineSandboxRequireResolvesHostAPI(t *testing.T) {
	e, _ := newLoadedEngine(t, `
		resolved_api = require("host_api")
	`, nil)
	e.pushExport("resolved_api")
	assert.True(t, e.L.IsTable(-1), "expected host_api table")
	e.L.Pop(1)
}

func TestEngineVec3RoundTripsThroughTable(t *testing.T) {
	var gotX, gotY, gotZ float32
	fns := map[string]*scripthost.ScriptFnMetadata{
		"move": {
			Name:       "move",
			Capability: "core",
			Binding:    scripthost.BindingFree,
			MethodName: "move",
			Params:     []scripthost.ScriptFnParameter{{Name: "delta", Type: scripthost.DataTypeVec3}},
			Return:     scripthost.DataTypeVoid,
			Callback: func(params *scripthost.Params) scripthost.Param {
				p, _ := params.Get(0)
				gotX, gotY, gotZ, _ = p.Vec3()
				return scripthost.VoidParam()
			},
		},
	}

	e, _ := newLoadedEngine(t, `
		local host_api = require("host_api")
		function run()
			host_api.move({x = 1, y = 2, z = 3})
		end
	`, fns)

	key, ok := e.GetFnKey("run")
	require.True(t, ok)
	e.CallFn(key, scripthost.NewParams(), scripthost.DataTypeVoid)

	assert.Equal(t, float32(1), gotX)
	assert.Equal(t, float32(2), gotY)
	assert.Equal(t, float32(3), gotZ)
}

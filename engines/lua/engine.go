// Package lua adapts the Lua guest runtime to the Engine interface
// defined in the root scripthost module, using github.com/aarzilli/golua
// (a cgo binding to the Lua 5.1 C API). It is a separate Go module so
// embedders who only need the Wasm guest language never pull in cgo.
package lua

import (
	"fmt"
	"sync"

	lua "github.com/aarzilli/golua/lua"

	scripthost "github.com/scripthost/scripthost-go"
)

const (
	exportOnUpdate      = "on_update"
	exportOnFixedUpdate = "on_fixed_update"

	// hostAPITableName is the single module name require() resolves inside
	// a guest's sandboxed environment.
	hostAPITableName = "host_api"
)

// Engine runs a single loaded Lua script at a time, against one
// *lua.State. Not safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	L     *lua.State
	state *scripthost.EngineDataState
	fns   map[string]*scripthost.ScriptFnMetadata

	// envRef is a registry reference to the sandboxed environment table the
	// guest chunk runs under. Every top-level name the guest declares (its
	// exported functions, on_update/on_fixed_update, its own locals-turned-
	// globals) lives in this table rather than in the real _G, so lookups
	// after load go through pushExport instead of GetGlobal.
	envRef int

	exports  scripthost.KeyVec[string]
	fnByName map[string]scripthost.FnKey

	hasOnUpdate, hasOnFixedUpdate bool
	apiVersions                   map[string]scripthost.Semver
}

// New returns an Engine with no script loaded yet.
func New() *Engine {
	return &Engine{fnByName: make(map[string]scripthost.FnKey)}
}

// LoadScript implements scripthost.Engine. It opens a fresh Lua state
// (discarding any previous one), builds a host_api table holding every
// capability function per its binding convention, then runs source
// inside a sandboxed environment table that shadows the real globals:
// only math and host_api are reachable, and require is restricted to
// resolving "host_api". The guest's own top-level declarations (its
// exports, on_update, on_fixed_update, `_<capability>_semver`) land in
// that environment table rather than the real _G, so every later lookup
// goes through pushExport instead of GetGlobal.
func (e *Engine) LoadScript(source []byte, state *scripthost.EngineDataState, fns map[string]*scripthost.ScriptFnMetadata) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.L != nil {
		if e.envRef != 0 {
			e.L.Unref(lua.LUA_REGISTRYINDEX, e.envRef)
		}
		e.L.Close()
	}

	L := lua.NewState()
	L.OpenLibs()

	e.state = state
	e.fns = fns

	L.NewTable()
	apiIdx := L.GetTop()
	e.bindFunctions(L, fns, apiIdx)

	L.NewTable()
	envIdx := L.GetTop()

	L.PushValue(apiIdx)
	L.SetField(envIdx, hostAPITableName)
	L.Remove(apiIdx)
	envIdx = L.GetTop()

	L.GetGlobal("math")
	L.SetField(envIdx, "math")

	L.PushValue(envIdx)
	envRef := L.Ref(lua.LUA_REGISTRYINDEX)

	L.PushGoFunction(func(L *lua.State) int {
		name := L.ToString(1)
		if name != hostAPITableName {
			L.PushString(fmt.Sprintf("module '%s' not found", name))
			L.Error()
			return 0
		}
		L.RawGeti(lua.LUA_REGISTRYINDEX, envRef)
		L.GetField(-1, hostAPITableName)
		L.Remove(-2)
		return 1
	})
	L.SetField(envIdx, "require")

	status := L.LoadString(string(source))
	if status != 0 {
		msg := L.ToString(-1)
		L.Pop(2)
		L.Unref(lua.LUA_REGISTRYINDEX, envRef)
		L.Close()
		return fmt.Errorf("loading guest script: %s", msg)
	}

	L.PushValue(envIdx)
	L.SetfEnv(-2)

	if err := L.Call(0, 0); err != nil {
		L.Pop(1)
		L.Unref(lua.LUA_REGISTRYINDEX, envRef)
		L.Close()
		return fmt.Errorf("running guest script: %w", err)
	}
	L.Pop(1) // env table, still reachable via envRef

	e.L = L
	e.envRef = envRef
	e.exports.Clear()
	e.fnByName = make(map[string]scripthost.FnKey)
	e.apiVersions = make(map[string]scripthost.Semver)

	e.pushExport(exportOnUpdate)
	e.hasOnUpdate = L.IsFunction(-1)
	L.Pop(1)

	e.pushExport(exportOnFixedUpdate)
	e.hasOnFixedUpdate = L.IsFunction(-1)
	L.Pop(1)

	e.probeSemverExports(fns)
	return nil
}

// pushExport pushes the named top-level declaration from the guest's
// sandboxed environment table onto the stack (nil if it was never set),
// the env-table equivalent of GetGlobal for a script run under a custom
// environment.
func (e *Engine) pushExport(name string) {
	e.L.RawGeti(lua.LUA_REGISTRYINDEX, e.envRef)
	e.L.GetField(-1, name)
	e.L.Remove(-2)
}

func (e *Engine) probeSemverExports(fns map[string]*scripthost.ScriptFnMetadata) {
	seen := map[string]struct{}{}
	for _, m := range fns {
		if _, ok := seen[m.Capability]; ok {
			continue
		}
		seen[m.Capability] = struct{}{}
		name := "_" + m.Capability + "_semver"
		e.pushExport(name)
		if !e.L.IsFunction(-1) {
			e.L.Pop(1)
			continue
		}
		if err := e.L.Call(0, 1); err != nil {
			continue
		}
		bits := e.L.ToInteger(-1)
		e.L.Pop(1)
		e.apiVersions[m.Capability] = scripthost.PackedSemver(uint64(bits))
	}
}

// bindFunctions registers every capability function, under the host_api
// table at apiIdx, by its derived binding: a free function becomes a
// plain entry; a "Class::method" registration becomes Class.method on a
// Class table nested in host_api; "Class:method" becomes Class:method on
// the same table. Every such class table also gets a generated
// Class.new(handle) constructor that wraps a handle into a table with an
// opaqu field and that class table as its own __index metatable.
func (e *Engine) bindFunctions(L *lua.State, fns map[string]*scripthost.ScriptFnMetadata, apiIdx int) {
	classes := map[string]bool{}

	for name, meta := range fns {
		meta := meta
		goFn := func(L *lua.State) int {
			return e.invokeBoundFunction(L, meta)
		}

		switch meta.Binding {
		case scripthost.BindingFree:
			L.PushGoFunction(goFn)
			L.SetField(apiIdx, name)
		case scripthost.BindingStatic, scripthost.BindingInstance:
			e.ensureClassTable(L, apiIdx, meta.ClassName, classes)
			L.GetField(apiIdx, meta.ClassName)
			L.PushGoFunction(goFn)
			L.SetField(-2, meta.MethodName)
			L.Pop(1)
		}
	}

	for className := range classes {
		e.installConstructor(L, apiIdx, className)
	}
}

func (e *Engine) ensureClassTable(L *lua.State, apiIdx int, className string, classes map[string]bool) {
	if classes[className] {
		return
	}
	classes[className] = true
	L.NewTable()
	L.SetField(apiIdx, className)
}

// installConstructor adds `ClassName.new(handle)` returning a table
// `{opaqu = handle}` whose metatable's __index is the class table
// itself, so `obj:method(...)` resolves through it. The constructor
// closure re-resolves the class table through the sandbox's envRef at
// call time rather than capturing a stack index, since the stack
// position apiIdx/className were bound at is long gone by then.
func (e *Engine) installConstructor(L *lua.State, apiIdx int, className string) {
	L.GetField(apiIdx, className)
	classIdx := L.GetTop()
	L.PushGoFunction(func(L *lua.State) int {
		handle := L.ToInteger(1)
		L.NewTable()
		L.PushInteger(int64(handle))
		L.SetField(-2, "opaqu")

		L.NewTable() // metatable
		e.L.RawGeti(lua.LUA_REGISTRYINDEX, e.envRef)
		e.L.GetField(-1, hostAPITableName)
		e.L.GetField(-1, className)
		e.L.Remove(-2)
		e.L.Remove(-2)
		L.SetField(-2, "__index")
		L.SetMetaTable(-2)
		return 1
	})
	L.SetField(classIdx, "new")
	L.Pop(1)
}

// invokeBoundFunction is the Go-side trampoline every registered
// function runs under when Lua calls it. It gates on the active
// capability set, reads arguments off the Lua stack (an implicit
// receiver table first for instance methods), calls the registered
// callback, and pushes its result. A panic in the callback is recovered
// so it does not unwind into the Lua VM; the call then returns nil to the
// guest, and the panic is neither logged nor reported as an error.
func (e *Engine) invokeBoundFunction(L *lua.State, meta *scripthost.ScriptFnMetadata) (nret int) {
	defer func() {
		if r := recover(); r != nil {
			L.PushNil()
			nret = 1
		}
	}()

	if !e.state.CapabilityActive(meta.Capability) {
		pushLuaParam(L, scripthost.HostErrorParam(fmt.Sprintf("capability %q is not active", meta.Capability)))
		return 1
	}

	params, err := readLuaParams(L, meta)
	if err != nil {
		pushLuaParam(L, scripthost.HostErrorParam(err.Error()))
		return 1
	}

	result := meta.Callback(params)
	pushLuaParam(L, result)
	return 1
}

// readLuaParams reads meta's effective parameter list off the Lua
// argument stack (1-indexed), in order. An instance method's implicit
// "self" parameter is read from its table's opaqu field.
func readLuaParams(L *lua.State, meta *scripthost.ScriptFnMetadata) (*scripthost.Params, error) {
	params := scripthost.NewParamsOfSize(len(meta.EffectiveParams()))
	i := 1
	for _, p := range meta.EffectiveParams() {
		switch {
		case p.Type == scripthost.DataTypeObject && p.Name == "self":
			L.GetField(i, "opaqu")
			h := L.ToInteger(-1)
			L.Pop(1)
			params.Push(scripthost.ObjectParam(uint64(h)))
		case p.Type == scripthost.DataTypeBool:
			params.Push(scripthost.BoolParam(L.ToBoolean(i)))
		case p.Type == scripthost.DataTypeI32:
			params.Push(scripthost.I32Param(int32(L.ToInteger(i))))
		case p.Type == scripthost.DataTypeI64:
			params.Push(scripthost.I64Param(int64(L.ToInteger(i))))
		case p.Type == scripthost.DataTypeU32:
			params.Push(scripthost.U32Param(uint32(L.ToInteger(i))))
		case p.Type == scripthost.DataTypeU64:
			params.Push(scripthost.U64Param(uint64(L.ToInteger(i))))
		case p.Type == scripthost.DataTypeI8:
			params.Push(scripthost.I8Param(int8(L.ToInteger(i))))
		case p.Type == scripthost.DataTypeI16:
			params.Push(scripthost.I16Param(int16(L.ToInteger(i))))
		case p.Type == scripthost.DataTypeU8:
			params.Push(scripthost.U8Param(uint8(L.ToInteger(i))))
		case p.Type == scripthost.DataTypeU16:
			params.Push(scripthost.U16Param(uint16(L.ToInteger(i))))
		case p.Type == scripthost.DataTypeF32:
			params.Push(scripthost.F32Param(float32(L.ToNumber(i))))
		case p.Type == scripthost.DataTypeF64:
			params.Push(scripthost.F64Param(L.ToNumber(i)))
		case p.Type.IsString() || p.Type.IsError():
			params.Push(scripthost.ExtStringParam(L.ToString(i)))
		case p.Type == scripthost.DataTypeVec2, p.Type == scripthost.DataTypeVec3,
			p.Type == scripthost.DataTypeVec4, p.Type == scripthost.DataTypeQuat:
			params.Push(readVecTable(L, i, p.Type))
		case p.Type == scripthost.DataTypeObject:
			h := L.ToInteger(i)
			params.Push(scripthost.ObjectParam(uint64(h)))
		default:
			return nil, fmt.Errorf("parameter %q has a type this Lua adapter doesn't marshal: %s", p.Name, p.Type)
		}
		i++
	}
	return params, nil
}

func readVecTable(L *lua.State, idx int, dt scripthost.DataType) scripthost.Param {
	comp := func(field string) float32 {
		L.GetField(idx, field)
		v := float32(L.ToNumber(-1))
		L.Pop(1)
		return v
	}
	switch dt {
	case scripthost.DataTypeVec2:
		return scripthost.Vec2Param(comp("x"), comp("y"))
	case scripthost.DataTypeVec3:
		return scripthost.Vec3Param(comp("x"), comp("y"), comp("z"))
	case scripthost.DataTypeVec4:
		return scripthost.Vec4Param(comp("x"), comp("y"), comp("z"), comp("w"))
	case scripthost.DataTypeQuat:
		return scripthost.QuatParam(comp("x"), comp("y"), comp("z"), comp("w"))
	default:
		return scripthost.VoidParam()
	}
}

func pushLuaParam(L *lua.State, p scripthost.Param) {
	switch p.Type {
	case scripthost.DataTypeVoid:
		L.PushNil()
	case scripthost.DataTypeBool:
		v, _ := p.Bool()
		L.PushBoolean(v)
	case scripthost.DataTypeI32:
		v, _ := p.I32()
		L.PushInteger(int64(v))
	case scripthost.DataTypeU32:
		v, _ := p.U32()
		L.PushInteger(int64(v))
	case scripthost.DataTypeI8:
		v, _ := p.I8()
		L.PushInteger(int64(v))
	case scripthost.DataTypeI16:
		v, _ := p.I16()
		L.PushInteger(int64(v))
	case scripthost.DataTypeU8:
		v, _ := p.U8()
		L.PushInteger(int64(v))
	case scripthost.DataTypeU16:
		v, _ := p.U16()
		L.PushInteger(int64(v))
	case scripthost.DataTypeI64:
		v, _ := p.I64()
		L.PushInteger(v)
	case scripthost.DataTypeU64:
		v, _ := p.U64()
		L.PushInteger(int64(v))
	case scripthost.DataTypeF32:
		v, _ := p.F32()
		L.PushNumber(float64(v))
	case scripthost.DataTypeF64:
		v, _ := p.F64()
		L.PushNumber(v)
	case scripthost.DataTypeHostString, scripthost.DataTypeExtString,
		scripthost.DataTypeHostError, scripthost.DataTypeExtError:
		s, _ := p.String()
		L.PushString(s)
	case scripthost.DataTypeObject:
		h, _ := p.Object()
		L.PushInteger(int64(h))
	case scripthost.DataTypeVec2:
		x, y, _ := p.Vec2()
		pushVecTable(L, map[string]float32{"x": x, "y": y})
	case scripthost.DataTypeVec3:
		x, y, z, _ := p.Vec3()
		pushVecTable(L, map[string]float32{"x": x, "y": y, "z": z})
	case scripthost.DataTypeVec4:
		x, y, z, w, _ := p.Vec4()
		pushVecTable(L, map[string]float32{"x": x, "y": y, "z": z, "w": w})
	case scripthost.DataTypeQuat:
		x, y, z, w, _ := p.Quat()
		pushVecTable(L, map[string]float32{"x": x, "y": y, "z": z, "w": w})
	case scripthost.DataTypeU32Buffer:
		buf, _ := p.U32Buffer()
		L.CreateTable(len(buf), 0)
		for i, v := range buf {
			L.PushInteger(int64(v))
			L.RawSeti(-2, i+1)
		}
	default:
		L.PushNil()
	}
}

func pushVecTable(L *lua.State, fields map[string]float32) {
	L.CreateTable(0, len(fields))
	for k, v := range fields {
		L.PushNumber(float64(v))
		L.SetField(-2, k)
	}
}

// GetFnKey implements scripthost.Engine.
func (e *Engine) GetFnKey(name string) (scripthost.FnKey, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if key, ok := e.fnByName[name]; ok {
		return key, true
	}
	if e.L == nil {
		return 0, false
	}
	e.pushExport(name)
	found := e.L.IsFunction(-1)
	e.L.Pop(1)
	if !found {
		return 0, false
	}
	key := e.exports.Push(name)
	e.fnByName[name] = key
	return key, true
}

// CallFn implements scripthost.Engine.
func (e *Engine) CallFn(key scripthost.FnKey, params *scripthost.Params, ret scripthost.DataType) scripthost.Param {
	e.mu.Lock()
	defer e.mu.Unlock()

	name, ok := e.exports.Get(key)
	if !ok {
		return scripthost.HostErrorParam("unknown function key")
	}

	e.pushExport(name)
	n := 0
	for _, p := range params.All() {
		pushLuaParam(e.L, p)
		n++
	}

	if err := e.L.Call(n, 1); err != nil {
		return scripthost.HostErrorParam(fmt.Sprintf("guest call failed: %v", err))
	}
	defer e.L.Pop(1)

	return readLuaReturn(e.L, ret)
}

func readLuaReturn(L *lua.State, ret scripthost.DataType) scripthost.Param {
	switch {
	case ret == scripthost.DataTypeVoid:
		return scripthost.VoidParam()
	case ret == scripthost.DataTypeBool:
		return scripthost.BoolParam(L.ToBoolean(-1))
	case ret == scripthost.DataTypeI32:
		return scripthost.I32Param(int32(L.ToInteger(-1)))
	case ret == scripthost.DataTypeI64:
		return scripthost.I64Param(int64(L.ToInteger(-1)))
	case ret == scripthost.DataTypeU32:
		return scripthost.U32Param(uint32(L.ToInteger(-1)))
	case ret == scripthost.DataTypeU64:
		return scripthost.U64Param(uint64(L.ToInteger(-1)))
	case ret == scripthost.DataTypeI8:
		return scripthost.I8Param(int8(L.ToInteger(-1)))
	case ret == scripthost.DataTypeI16:
		return scripthost.I16Param(int16(L.ToInteger(-1)))
	case ret == scripthost.DataTypeU8:
		return scripthost.U8Param(uint8(L.ToInteger(-1)))
	case ret == scripthost.DataTypeU16:
		return scripthost.U16Param(uint16(L.ToInteger(-1)))
	case ret == scripthost.DataTypeF32:
		return scripthost.F32Param(float32(L.ToNumber(-1)))
	case ret == scripthost.DataTypeF64:
		return scripthost.F64Param(L.ToNumber(-1))
	case ret.IsString():
		return scripthost.HostStringParam(L.ToString(-1))
	case ret.IsError():
		if L.IsNil(-1) {
			return scripthost.VoidParam()
		}
		return scripthost.HostErrorParam(L.ToString(-1))
	case ret == scripthost.DataTypeObject:
		return scripthost.ObjectParam(uint64(L.ToInteger(-1)))
	case ret == scripthost.DataTypeVec2, ret == scripthost.DataTypeVec3,
		ret == scripthost.DataTypeVec4, ret == scripthost.DataTypeQuat:
		return readVecTable(L, -1, ret)
	default:
		return scripthost.VoidParam()
	}
}

// FastCallUpdate implements scripthost.Engine.
func (e *Engine) FastCallUpdate(deltaTime float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasOnUpdate {
		return nil
	}
	e.pushExport(exportOnUpdate)
	e.L.PushNumber(float64(deltaTime))
	if err := e.L.Call(1, 0); err != nil {
		return fmt.Errorf("on_update failed: %w", err)
	}
	return nil
}

// FastCallFixedUpdate implements scripthost.Engine.
func (e *Engine) FastCallFixedUpdate(deltaTime float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasOnFixedUpdate {
		return nil
	}
	e.pushExport(exportOnFixedUpdate)
	e.L.PushNumber(float64(deltaTime))
	if err := e.L.Call(1, 0); err != nil {
		return fmt.Errorf("on_fixed_update failed: %w", err)
	}
	return nil
}

// APIVersions implements scripthost.Engine.
func (e *Engine) APIVersions() map[string]scripthost.Semver {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]scripthost.Semver, len(e.apiVersions))
	for k, v := range e.apiVersions {
		out[k] = v
	}
	return out
}

// Close implements scripthost.Engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.L == nil {
		return nil
	}
	if e.envRef != 0 {
		e.L.Unref(lua.LUA_REGISTRYINDEX, e.envRef)
	}
	e.L.Close()
	e.L = nil
	return nil
}

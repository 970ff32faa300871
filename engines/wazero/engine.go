// Package wazero adapts the WebAssembly guest runtime to the Engine
// interface defined in the root scripthost module, using
// github.com/tetratelabs/wazero. It is a separate Go module so embedders
// who only need the Lua guest language never pull in wazero.
package wazero

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	scripthost "github.com/scripthost/scripthost-go"
)

const (
	exportMemory      = "memory"
	exportOnUpdate      = "on_update"
	exportOnFixedUpdate = "on_fixed_update"
	semverSuffix        = "_semver"
)

// Engine runs a single compiled Wasm module at a time. It is not safe for
// concurrent use, matching the single-threaded cooperative model the
// whole protocol assumes.
type Engine struct {
	mu sync.Mutex

	runtime wazero.Runtime
	module  api.Module
	env     api.Module

	state *scripthost.EngineDataState
	fns   map[string]*scripthost.ScriptFnMetadata

	exports  scripthost.KeyVec[api.Function]
	fnByName map[string]scripthost.FnKey

	onUpdate      api.Function
	onFixedUpdate api.Function
	apiVersions   map[string]scripthost.Semver
}

// New returns an Engine with no script loaded yet.
func New() *Engine {
	return &Engine{fnByName: make(map[string]scripthost.FnKey)}
}

// LoadScript implements scripthost.Engine.
func (e *Engine) LoadScript(source []byte, state *scripthost.EngineDataState, fns map[string]*scripthost.ScriptFnMetadata) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx := context.Background()
	if e.runtime != nil {
		_ = e.runtime.Close(ctx)
	}

	// No threads, no WASI process-level escape hatches: this module only
	// ever talks to the guest through the typed call protocol.
	cfg := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(256). // 16 MiB ceiling; ample for the seed scenarios this protocol targets
		WithCloseOnContextDone(true)
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	e.state = state
	e.fns = fns

	env, err := e.buildHostModule(ctx, rt, fns)
	if err != nil {
		_ = rt.Close(ctx)
		return fmt.Errorf("building host import module: %w", err)
	}

	compiled, err := rt.CompileModule(ctx, source)
	if err != nil {
		_ = rt.Close(ctx)
		return fmt.Errorf("compiling guest module: %w", err)
	}

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		_ = rt.Close(ctx)
		return fmt.Errorf("instantiating guest module: %w", err)
	}

	if mod.ExportedMemory(exportMemory) == nil {
		_ = mod.Close(ctx)
		_ = rt.Close(ctx)
		return fmt.Errorf("guest module does not export %q", exportMemory)
	}

	e.runtime = rt
	e.env = env
	e.module = mod
	e.exports.Clear()
	e.fnByName = make(map[string]scripthost.FnKey)
	e.apiVersions = make(map[string]scripthost.Semver)
	e.onUpdate = mod.ExportedFunction(exportOnUpdate)
	e.onFixedUpdate = mod.ExportedFunction(exportOnFixedUpdate)

	e.probeSemverExports(ctx, fns)
	return nil
}

// probeSemverExports calls every `_<capability>_semver` export the guest
// happens to define, for each capability any function was registered
// under, and records the result.
func (e *Engine) probeSemverExports(ctx context.Context, fns map[string]*scripthost.ScriptFnMetadata) {
	seen := map[string]struct{}{}
	for _, m := range fns {
		if _, ok := seen[m.Capability]; ok {
			continue
		}
		seen[m.Capability] = struct{}{}
		exportName := "_" + m.Capability + semverSuffix
		fn := e.module.ExportedFunction(exportName)
		if fn == nil {
			continue
		}
		results, err := fn.Call(ctx)
		if err != nil || len(results) != 1 {
			continue
		}
		e.apiVersions[m.Capability] = scripthost.PackedSemver(results[0])
	}
}

// GetFnKey implements scripthost.Engine.
func (e *Engine) GetFnKey(name string) (scripthost.FnKey, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if key, ok := e.fnByName[name]; ok {
		return key, true
	}
	if e.module == nil {
		return 0, false
	}
	fn := e.module.ExportedFunction(name)
	if fn == nil {
		return 0, false
	}
	key := e.exports.Push(fn)
	e.fnByName[name] = key
	return key, true
}

// CallFn implements scripthost.Engine.
func (e *Engine) CallFn(key scripthost.FnKey, params *scripthost.Params, ret scripthost.DataType) scripthost.Param {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn, ok := e.exports.Get(key)
	if !ok {
		return scripthost.HostErrorParam("unknown function key")
	}

	args, err := e.marshalArgs(params)
	if err != nil {
		return scripthost.HostErrorParam(err.Error())
	}

	defer func() {
		if r := recover(); r != nil {
			e.state.ClearFrameQueues()
		}
	}()

	results, err := fn.Call(context.Background(), args...)
	if err != nil {
		return scripthost.HostErrorParam(fmt.Sprintf("guest call failed: %v", err))
	}
	return e.unmarshalResult(results, ret)
}

// marshalArgs encodes params (scalars direct, strings as ptr/len against
// guest memory, aggregates pre-pushed to the bulk queues) into raw Wasm
// call arguments.
func (e *Engine) marshalArgs(params *scripthost.Params) ([]uint64, error) {
	var args []uint64
	for _, p := range params.All() {
		switch {
		case p.Type.IsSimple():
			args = append(args, scalarToRaw(p))
		case p.Type.IsString() || p.Type.IsError():
			s, _ := p.String()
			ptr, err := e.writeGuestString(s)
			if err != nil {
				return nil, err
			}
			args = append(args, uint64(ptr), uint64(len(s)))
		case p.Type.Aggregate():
			if buf, ok := p.U32Buffer(); ok {
				e.state.Buffers.Push(buf)
				e.state.Floats.PushU32Len(uint32(len(buf)))
			} else {
				e.state.Floats.PushN(p.FloatComponents())
			}
		case p.Type == scripthost.DataTypeObject:
			h, _ := p.Object()
			args = append(args, h)
		}
	}
	return args, nil
}

// writeGuestString writes s plus a trailing NUL into guest linear memory
// at a fixed scratch offset (64KiB) and returns that offset. It does not
// allocate: no guest allocator is called, and nothing in the guest
// reserves that region.
//
// TODO(scripthost): once a guest-exported allocator convention is
// standardized, call it instead of writing into a fixed scratch offset.
func (e *Engine) writeGuestString(s string) (uint32, error) {
	mem := e.module.Memory()
	const scratchOffset = 1 << 16 // 64KiB in; below this is guest-owned
	if !mem.Write(scratchOffset, append([]byte(s), 0)) {
		return 0, fmt.Errorf("writing %d-byte string into guest memory out of range", len(s))
	}
	return scratchOffset, nil
}

func scalarToRaw(p scripthost.Param) uint64 {
	switch p.Type {
	case scripthost.DataTypeBool:
		v, _ := p.Bool()
		if v {
			return 1
		}
		return 0
	case scripthost.DataTypeI32:
		v, _ := p.I32()
		return api.EncodeI32(v)
	case scripthost.DataTypeU32:
		v, _ := p.U32()
		return uint64(v)
	case scripthost.DataTypeI8:
		v, _ := p.I8()
		return api.EncodeI32(int32(v))
	case scripthost.DataTypeI16:
		v, _ := p.I16()
		return api.EncodeI32(int32(v))
	case scripthost.DataTypeU8:
		v, _ := p.U8()
		return uint64(v)
	case scripthost.DataTypeU16:
		v, _ := p.U16()
		return uint64(v)
	case scripthost.DataTypeI64:
		v, _ := p.I64()
		return api.EncodeI64(v)
	case scripthost.DataTypeU64:
		v, _ := p.U64()
		return v
	case scripthost.DataTypeF32:
		v, _ := p.F32()
		return api.EncodeF32(v)
	case scripthost.DataTypeF64:
		v, _ := p.F64()
		return api.EncodeF64(v)
	default:
		return 0
	}
}

func (e *Engine) unmarshalResult(results []uint64, ret scripthost.DataType) scripthost.Param {
	switch {
	case ret == scripthost.DataTypeVoid:
		return scripthost.VoidParam()
	case ret.IsSimple():
		return rawToScalar(results[0], ret)
	case ret.IsString() || ret.IsError():
		length := uint32(results[0])
		s, ok := e.state.Strings.Pop()
		if !ok || uint32(len(s)) != length {
			return scripthost.HostErrorParam("guest return string cache mismatch")
		}
		if ret == scripthost.DataTypeHostError || ret == scripthost.DataTypeExtError {
			return scripthost.HostErrorParam(s)
		}
		return scripthost.HostStringParam(s)
	case ret.Aggregate():
		if ret == scripthost.DataTypeU32Buffer {
			n, ok := e.state.Floats.PopU32Len()
			if !ok {
				return scripthost.HostErrorParam("missing u32 buffer length")
			}
			buf, ok := e.state.Buffers.Pop()
			if !ok || uint32(len(buf)) != n {
				return scripthost.HostErrorParam("u32 buffer queue mismatch")
			}
			return scripthost.U32BufferParam(buf)
		}
		width := ret.FloatWidth()
		vals, ok := e.state.Floats.PopN(width)
		if !ok {
			return scripthost.HostErrorParam("float queue underflow")
		}
		return floatsToParam(ret, vals)
	case ret == scripthost.DataTypeObject:
		return scripthost.ObjectParam(results[0])
	default:
		return scripthost.VoidParam()
	}
}

func rawToScalar(raw uint64, dt scripthost.DataType) scripthost.Param {
	switch dt {
	case scripthost.DataTypeBool:
		return scripthost.BoolParam(raw != 0)
	case scripthost.DataTypeI32:
		return scripthost.I32Param(api.DecodeI32(raw))
	case scripthost.DataTypeU32:
		return scripthost.U32Param(uint32(raw))
	case scripthost.DataTypeI8:
		return scripthost.I8Param(int8(api.DecodeI32(raw)))
	case scripthost.DataTypeI16:
		return scripthost.I16Param(int16(api.DecodeI32(raw)))
	case scripthost.DataTypeU8:
		return scripthost.U8Param(uint8(raw))
	case scripthost.DataTypeU16:
		return scripthost.U16Param(uint16(raw))
	case scripthost.DataTypeI64:
		return scripthost.I64Param(int64(raw))
	case scripthost.DataTypeU64:
		return scripthost.U64Param(raw)
	case scripthost.DataTypeF32:
		return scripthost.F32Param(api.DecodeF32(raw))
	case scripthost.DataTypeF64:
		return scripthost.F64Param(api.DecodeF64(raw))
	default:
		return scripthost.VoidParam()
	}
}

func floatsToParam(dt scripthost.DataType, vals []float32) scripthost.Param {
	switch dt {
	case scripthost.DataTypeVec2:
		return scripthost.Vec2Param(vals[0], vals[1])
	case scripthost.DataTypeVec3:
		return scripthost.Vec3Param(vals[0], vals[1], vals[2])
	case scripthost.DataTypeVec4:
		return scripthost.Vec4Param(vals[0], vals[1], vals[2], vals[3])
	case scripthost.DataTypeQuat:
		return scripthost.QuatParam(vals[0], vals[1], vals[2], vals[3])
	case scripthost.DataTypeMat4:
		var cols [16]float32
		copy(cols[:], vals)
		return scripthost.Mat4Param(cols)
	default:
		return scripthost.VoidParam()
	}
}

// FastCallUpdate implements scripthost.Engine.
func (e *Engine) FastCallUpdate(deltaTime float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.onUpdate == nil {
		return nil
	}
	_, err := e.onUpdate.Call(context.Background(), api.EncodeF32(deltaTime))
	return err
}

// FastCallFixedUpdate implements scripthost.Engine.
func (e *Engine) FastCallFixedUpdate(deltaTime float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.onFixedUpdate == nil {
		return nil
	}
	_, err := e.onFixedUpdate.Call(context.Background(), api.EncodeF32(deltaTime))
	return err
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
	if e.runtime == nil {
		return nil
	}
	err := e.runtime.Close(context.Background())
	e.runtime = nil
	e.module = nil
	e.env = nil
	return err
}

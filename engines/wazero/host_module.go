package wazero

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	scripthost "github.com/scripthost/scripthost-go"
)

// buildHostModule exports one Wasm function per registered capability
// function, named by its internal binding convention (metadata.go in the
// root module), plus the utility imports guests use to move bulk values
// across the boundary.
func (e *Engine) buildHostModule(ctx context.Context, rt wazero.Runtime, fns map[string]*scripthost.ScriptFnMetadata) (api.Module, error) {
	builder := rt.NewHostModuleBuilder("env")

	for _, meta := range fns {
		meta := meta
		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				e.invokeBoundFunction(mod, meta, stack)
			}), paramValueTypes(meta), resultValueTypes(meta)).
			Export(meta.InternalName())
	}

	builder = builder.NewFunctionBuilder().
		WithFunc(e.hostStrcpy).
		Export("_host_strcpy")
	builder = builder.NewFunctionBuilder().
		WithFunc(e.hostBufcpy).
		Export("_host_bufcpy")
	builder = builder.NewFunctionBuilder().
		WithFunc(e.hostF32Enqueue).
		Export("_host_f32_enqueue")
	builder = builder.NewFunctionBuilder().
		WithFunc(e.hostF32Dequeue).
		Export("_host_f32_dequeue")
	builder = builder.NewFunctionBuilder().
		WithFunc(e.hostU32Enqueue).
		Export("_host_u32_enqueue")
	builder = builder.NewFunctionBuilder().
		WithFunc(e.hostU32Dequeue).
		Export("_host_u32_dequeue")

	return builder.Instantiate(ctx)
}

// invokeBoundFunction is the trampoline every registered function is
// exported under. It gates on the active capability set, reconstructs
// Params from the incoming stack plus guest memory and the bulk queues,
// calls the registered callback, and writes the result back onto stack.
// A panic in the callback is recovered so it does not unwind across the
// guest/host boundary; the results are then zeroed, and the panic is
// neither logged nor reported to the guest as an error.
func (e *Engine) invokeBoundFunction(mod api.Module, meta *scripthost.ScriptFnMetadata, stack []uint64) {
	defer func() {
		if r := recover(); r != nil {
			e.zeroResults(meta, stack)
		}
	}()

	if !e.state.CapabilityActive(meta.Capability) {
		e.writeErrorResult(meta, stack, fmt.Sprintf("capability %q is not active", meta.Capability))
		return
	}

	params, err := e.readBoundParams(mod, meta, stack)
	if err != nil {
		e.writeErrorResult(meta, stack, err.Error())
		return
	}

	result := meta.Callback(params)
	e.writeBoundResult(meta, stack, result)
}

// readBoundParams consumes stack in EffectiveParams order: one raw slot
// for scalars, a (ptr,len) pair read out of guest memory for strings, and
// a drain of the bulk queues for aggregates, matching the layout
// convert.go's slotsFor declared for the guest's own import signature.
func (e *Engine) readBoundParams(mod api.Module, meta *scripthost.ScriptFnMetadata, stack []uint64) (*scripthost.Params, error) {
	params := scripthost.NewParamsOfSize(len(meta.EffectiveParams()))
	i := 0
	mem := mod.Memory()

	for _, p := range meta.EffectiveParams() {
		switch {
		case p.Type.IsSimple():
			params.Push(rawToScalar(stack[i], p.Type))
			i++
		case p.Type.IsString() || p.Type.IsError():
			ptr, length := uint32(stack[i]), uint32(stack[i+1])
			i += 2
			buf, ok := mem.Read(ptr, length)
			if !ok {
				return nil, fmt.Errorf("reading %d-byte string argument out of range", length)
			}
			if p.Type.IsError() {
				params.Push(scripthost.ExtErrorParam(string(buf)))
			} else {
				params.Push(scripthost.ExtStringParam(string(buf)))
			}
		case p.Type.Aggregate():
			if p.Type == scripthost.DataTypeU32Buffer {
				n, ok := e.state.Floats.PopU32Len()
				if !ok {
					return nil, fmt.Errorf("missing u32 buffer length for parameter %q", p.Name)
				}
				buf, ok := e.state.Buffers.Pop()
				if !ok || uint32(len(buf)) != n {
					return nil, fmt.Errorf("u32 buffer queue mismatch for parameter %q", p.Name)
				}
				params.Push(scripthost.U32BufferParam(buf))
			} else {
				vals, ok := e.state.Floats.PopN(p.Type.FloatWidth())
				if !ok {
					return nil, fmt.Errorf("float queue underflow for parameter %q", p.Name)
				}
				params.Push(floatsToParam(p.Type, vals))
			}
		case p.Type == scripthost.DataTypeObject:
			params.Push(scripthost.ObjectParam(stack[i]))
			i++
		}
	}
	return params, nil
}

func (e *Engine) writeBoundResult(meta *scripthost.ScriptFnMetadata, stack []uint64, result scripthost.Param) {
	switch {
	case meta.Return == scripthost.DataTypeVoid:
	case meta.Return.IsSimple():
		stack[0] = scalarToRaw(result)
	case meta.Return.IsString() || meta.Return.IsError():
		s, _ := result.String()
		e.state.Strings.Push(s)
		stack[0] = uint64(len(s))
	case meta.Return.Aggregate():
		if meta.Return == scripthost.DataTypeU32Buffer {
			buf, _ := result.U32Buffer()
			e.state.Buffers.Push(buf)
			e.state.Floats.PushU32Len(uint32(len(buf)))
		} else {
			e.state.Floats.PushN(result.FloatComponents())
		}
	case meta.Return == scripthost.DataTypeObject:
		h, _ := result.Object()
		stack[0] = h
	}
}

func (e *Engine) writeErrorResult(meta *scripthost.ScriptFnMetadata, stack []uint64, msg string) {
	if meta.Return.IsError() {
		e.writeBoundResult(meta, stack, scripthost.HostErrorParam(msg))
		return
	}
	e.zeroResults(meta, stack)
}

func (e *Engine) zeroResults(meta *scripthost.ScriptFnMetadata, stack []uint64) {
	for i := range stack {
		stack[i] = 0
	}
	_ = meta
}

// hostStrcpy implements `_host_strcpy(ptr, len) -> i32`: copies the front
// of the host string cache into guest memory at ptr, failing closed (no
// write, returns 0) if the cached string's length doesn't match len.
func (e *Engine) hostStrcpy(ctx context.Context, mod api.Module, ptr, length uint32) uint32 {
	s, ok := e.state.Strings.Pop()
	if !ok || uint32(len(s)) != length {
		return 0
	}
	if !mod.Memory().Write(ptr, []byte(s)) {
		return 0
	}
	return 1
}

// hostBufcpy implements `_host_bufcpy(ptr, len) -> i32`: copies the front
// of the host u32 buffer queue into guest memory at ptr as little-endian
// u32 words.
func (e *Engine) hostBufcpy(ctx context.Context, mod api.Module, ptr, length uint32) uint32 {
	buf, ok := e.state.Buffers.Pop()
	if !ok || uint32(len(buf)) != length {
		return 0
	}
	for i, v := range buf {
		if !mod.Memory().WriteUint32Le(ptr+uint32(i*4), v) {
			return 0
		}
	}
	return 1
}

func (e *Engine) hostF32Enqueue(ctx context.Context, mod api.Module, v float32) {
	e.state.Floats.Push(v)
}

func (e *Engine) hostF32Dequeue(ctx context.Context, mod api.Module) float32 {
	v, _ := e.state.Floats.Pop()
	return v
}

func (e *Engine) hostU32Enqueue(ctx context.Context, mod api.Module, ptr, length uint32) {
	buf, ok := mod.Memory().Read(ptr, length*4)
	if !ok {
		return
	}
	out := make([]uint32, length)
	for i := range out {
		out[i] = uint32(buf[i*4]) | uint32(buf[i*4+1])<<8 | uint32(buf[i*4+2])<<16 | uint32(buf[i*4+3])<<24
	}
	e.state.Buffers.Push(out)
}

func (e *Engine) hostU32Dequeue(ctx context.Context, mod api.Module, ptr uint32) uint32 {
	buf, ok := e.state.Buffers.Pop()
	if !ok {
		return 0
	}
	for i, v := range buf {
		mod.Memory().WriteUint32Le(ptr+uint32(i*4), v)
	}
	return uint32(len(buf))
}

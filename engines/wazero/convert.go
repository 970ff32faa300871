package wazero

import (
	"github.com/tetratelabs/wazero/api"

	scripthost "github.com/scripthost/scripthost-go"
)

// slotsFor returns the Wasm value-type slots a parameter or return of dt
// occupies in a bound function's own signature. Scalars take one slot of
// the matching type. Strings/errors take two i32 slots (pointer, length)
// on the way in, since the guest already owns the bytes and the host only
// needs to read them — but a single i32 length slot on the way out, since
// the returned bytes are host-owned and ride the string cache instead
// (see queue.go in the root module). Aggregate float/buffer types take no
// slots at all in either direction: the guest enqueues/dequeues them
// through the utility imports around the call instead, because Wasm's
// calling convention has no vector or buffer slot kind.
func slotsFor(dt scripthost.DataType, forReturn bool) []api.ValueType {
	switch {
	case dt == scripthost.DataTypeVoid:
		return nil
	case dt.IsSimple():
		return []api.ValueType{valueTypeOf(dt)}
	case dt.IsString() || dt.IsError():
		if forReturn {
			return []api.ValueType{api.ValueTypeI32} // length; bytes fetched via _host_strcpy
		}
		return []api.ValueType{api.ValueTypeI32, api.ValueTypeI32} // ptr, len
	case dt.Aggregate():
		return nil // entirely queue-transported
	case dt == scripthost.DataTypeObject:
		return []api.ValueType{api.ValueTypeI64}
	default:
		return nil
	}
}

func valueTypeOf(dt scripthost.DataType) api.ValueType {
	switch dt {
	case scripthost.DataTypeBool, scripthost.DataTypeI32, scripthost.DataTypeU32,
		scripthost.DataTypeI8, scripthost.DataTypeI16, scripthost.DataTypeU8, scripthost.DataTypeU16:
		return api.ValueTypeI32
	case scripthost.DataTypeI64, scripthost.DataTypeU64:
		return api.ValueTypeI64
	case scripthost.DataTypeF32:
		return api.ValueTypeF32
	case scripthost.DataTypeF64:
		return api.ValueTypeF64
	default:
		return api.ValueTypeI32
	}
}

// paramValueTypes/resultValueTypes build the full Wasm signature for a
// bound function, in registration order (EffectiveParams already
// prepends the implicit receiver for instance methods).
func paramValueTypes(m *scripthost.ScriptFnMetadata) []api.ValueType {
	var out []api.ValueType
	for _, p := range m.EffectiveParams() {
		out = append(out, slotsFor(p.Type, false)...)
	}
	return out
}

func resultValueTypes(m *scripthost.ScriptFnMetadata) []api.ValueType {
	return slotsFor(m.Return, true)
}

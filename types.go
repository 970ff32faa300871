package scripthost

// DataType identifies the shape of a value crossing the host/guest
// boundary. The numeric values are part of the wire protocol used by both
// engine adapters and must never be reassigned once shipped.
type DataType uint32

const (
	DataTypeVoid DataType = iota
	DataTypeBool
	DataTypeI32
	DataTypeU32
	DataTypeI64
	DataTypeU64
	DataTypeF32
	DataTypeF64
	DataTypeVec2
	DataTypeVec3
	DataTypeVec4
	DataTypeQuat
	DataTypeMat4
	// DataTypeHostString is a string owned by this module: the guest reads
	// it once through the string cache queue and never frees it itself.
	DataTypeHostString
	// DataTypeExtString is a string the guest allocated; FreeFfiParam must
	// call the registered ExternalFreeFunc on it exactly once.
	DataTypeExtString
	DataTypeHostError
	DataTypeExtError
	// DataTypeU32Buffer is a []uint32 transported through the bulk u32
	// queue; its length is additionally punned through the f32 queue (see
	// queue.go) to fit a guest calling convention that only has f32 slots
	// left for length words.
	DataTypeU32Buffer
	// DataTypeObject is an opaque handle resolved through the pointer
	// registry; it carries no Go type information across the boundary.
	DataTypeObject

	// DataTypeI8, DataTypeI16, DataTypeU8, DataTypeU16 are narrow integer
	// scalars. They have no narrower Wasm value type of their own: the
	// guest calling convention widens all four to a single Wasm I32 slot
	// (see engines/wazero/convert.go), matching the narrowing/widening the
	// guest's own FFI layer is expected to do at its end.
	DataTypeI8
	DataTypeI16
	DataTypeU8
	DataTypeU16
)

func (t DataType) String() string {
	switch t {
	case DataTypeVoid:
		return "void"
	case DataTypeBool:
		return "bool"
	case DataTypeI32:
		return "i32"
	case DataTypeU32:
		return "u32"
	case DataTypeI64:
		return "i64"
	case DataTypeU64:
		return "u64"
	case DataTypeF32:
		return "f32"
	case DataTypeF64:
		return "f64"
	case DataTypeVec2:
		return "vec2"
	case DataTypeVec3:
		return "vec3"
	case DataTypeVec4:
		return "vec4"
	case DataTypeQuat:
		return "quat"
	case DataTypeMat4:
		return "mat4"
	case DataTypeHostString, DataTypeExtString:
		return "string"
	case DataTypeHostError, DataTypeExtError:
		return "error"
	case DataTypeU32Buffer:
		return "u32buffer"
	case DataTypeObject:
		return "object"
	case DataTypeI8:
		return "i8"
	case DataTypeI16:
		return "i16"
	case DataTypeU8:
		return "u8"
	case DataTypeU16:
		return "u16"
	default:
		return "unknown"
	}
}

// IsSimple reports whether t has a scalar wire representation that maps
// directly onto a single Wasm value slot, i.e. it needs neither the bulk
// queues nor the pointer registry to cross the boundary. The Wasm adapter
// uses it to pick the one-slot scalar encoding for a value; it has no
// typed fast path, so every call takes the same dispatch route.
func (t DataType) IsSimple() bool {
	switch t {
	case DataTypeBool, DataTypeI32, DataTypeU32, DataTypeI64, DataTypeU64, DataTypeF32, DataTypeF64,
		DataTypeI8, DataTypeI16, DataTypeU8, DataTypeU16:
		return true
	default:
		return false
	}
}

// IsError reports whether t is one of the two error-carrying variants.
func (t DataType) IsError() bool {
	return t == DataTypeHostError || t == DataTypeExtError
}

// IsString reports whether t is one of the two string-carrying variants.
func (t DataType) IsString() bool {
	return t == DataTypeHostString || t == DataTypeExtString
}

// Aggregate reports whether t needs a bulk queue (f32 for vectors/matrices,
// u32 for buffers) rather than a single scalar slot.
func (t DataType) Aggregate() bool {
	switch t {
	case DataTypeVec2, DataTypeVec3, DataTypeVec4, DataTypeQuat, DataTypeMat4, DataTypeU32Buffer:
		return true
	default:
		return false
	}
}

// IsValidParamType reports whether t may be used as a parameter type in a
// function registration. Void and the two error variants carry no
// parameter-position meaning: a guest never passes in a void, and errors
// are return-only (HostError/ExtError are raised by a callback's own
// result, not handed in as an argument).
func (t DataType) IsValidParamType() bool {
	switch t {
	case DataTypeVoid, DataTypeHostError, DataTypeExtError:
		return false
	default:
		return true
	}
}

// IsValidReturnType reports whether t may be used as a function's
// declared return type. Every DataType qualifies, including Void (no
// return value) and the error variants (a function whose declared
// return channel doubles as its error channel).
func (t DataType) IsValidReturnType() bool {
	return true
}

// FloatWidth returns how many f32 slots an aggregate float type occupies in
// the bulk f32 queue, or 0 if t isn't one. Exported for engine adapters in
// other modules that need to drain exactly that many queue entries.
func (t DataType) FloatWidth() int { return t.floatWidth() }

// floatWidth returns how many f32 slots an aggregate float type occupies in
// the bulk f32 queue, or 0 if t isn't one.
func (t DataType) floatWidth() int {
	switch t {
	case DataTypeVec2:
		return 2
	case DataTypeVec3:
		return 3
	case DataTypeVec4, DataTypeQuat:
		return 4
	case DataTypeMat4:
		return 16
	default:
		return 0
	}
}

package scripthost

import "fmt"

// StringOwner marks which side of the boundary is responsible for
// releasing a string/error payload carried by an FfiParam.
type StringOwner int

const (
	// OwnerHost means this module allocated the string; it is never
	// handed to ExternalFreeFunc.
	OwnerHost StringOwner = iota
	// OwnerExternal means the guest allocated the string; FreeFfiParam
	// must invoke ExternalFreeFunc on it exactly once.
	OwnerExternal
)

// ExternalFreeFunc releases a guest-owned string. It corresponds to the
// single `free_string` hook a real cgo/FFI boundary would need; this
// module has no such boundary of its own (see SPEC_FULL.md §3), so the
// hook exists purely to preserve the free-exactly-once contract for
// callers that do sit on top of one.
type ExternalFreeFunc func(s string)

// FfiParam is the boundary-encoded form of a Param: a flat, tagged struct
// matching the bit-stable shape described in SPEC_FULL.md §3/§4.1, using
// Go-native fields instead of a C union since nothing in this module's
// scope crosses an actual cgo boundary.
type FfiParam struct {
	Type     DataType
	Bool     bool
	I32      int32
	U32      uint32
	I64      int64
	U64      uint64
	F32      float32
	F64      float64
	Vec      [16]float32
	Str      string
	StrOwner StringOwner
	Buf      []uint32
	Obj      uint64
}

// FfiParamArray is the boundary-encoded form of Params.
type FfiParamArray struct {
	Values []FfiParam
}

// EncodeParam converts a Param to its boundary-encoded form.
func EncodeParam(p Param) FfiParam {
	f := FfiParam{Type: p.Type}
	switch p.Type {
	case DataTypeBool:
		f.Bool, _ = p.Bool()
	case DataTypeI32:
		f.I32, _ = p.I32()
	case DataTypeU32:
		f.U32, _ = p.U32()
	case DataTypeI64:
		f.I64, _ = p.I64()
	case DataTypeU64:
		f.U64, _ = p.U64()
	case DataTypeF32:
		f.F32, _ = p.F32()
	case DataTypeF64:
		f.F64, _ = p.F64()
	case DataTypeI8, DataTypeI16:
		f.I32 = p.i32
	case DataTypeU8, DataTypeU16:
		f.U32 = p.u32
	case DataTypeVec2, DataTypeVec3, DataTypeVec4, DataTypeQuat, DataTypeMat4:
		f.Vec = p.vec
	case DataTypeHostString, DataTypeHostError:
		f.Str, _ = p.String()
		f.StrOwner = OwnerHost
	case DataTypeExtString, DataTypeExtError:
		f.Str, _ = p.String()
		f.StrOwner = OwnerExternal
	case DataTypeU32Buffer:
		f.Buf, _ = p.U32Buffer()
	case DataTypeObject:
		f.Obj, _ = p.Object()
	case DataTypeVoid:
	}
	return f
}

// DecodeParam converts a boundary-encoded FfiParam back to a Param.
func DecodeParam(f FfiParam) Param {
	switch f.Type {
	case DataTypeBool:
		return BoolParam(f.Bool)
	case DataTypeI32:
		return I32Param(f.I32)
	case DataTypeU32:
		return U32Param(f.U32)
	case DataTypeI64:
		return I64Param(f.I64)
	case DataTypeU64:
		return U64Param(f.U64)
	case DataTypeF32:
		return F32Param(f.F32)
	case DataTypeF64:
		return F64Param(f.F64)
	case DataTypeI8:
		return I8Param(int8(f.I32))
	case DataTypeI16:
		return I16Param(int16(f.I32))
	case DataTypeU8:
		return U8Param(uint8(f.U32))
	case DataTypeU16:
		return U16Param(uint16(f.U32))
	case DataTypeVec2:
		return Vec2Param(f.Vec[0], f.Vec[1])
	case DataTypeVec3:
		return Vec3Param(f.Vec[0], f.Vec[1], f.Vec[2])
	case DataTypeVec4:
		return Vec4Param(f.Vec[0], f.Vec[1], f.Vec[2], f.Vec[3])
	case DataTypeQuat:
		return QuatParam(f.Vec[0], f.Vec[1], f.Vec[2], f.Vec[3])
	case DataTypeMat4:
		return Mat4Param(f.Vec)
	case DataTypeHostString:
		return HostStringParam(f.Str)
	case DataTypeExtString:
		return ExtStringParam(f.Str)
	case DataTypeHostError:
		return HostErrorParam(f.Str)
	case DataTypeExtError:
		return ExtErrorParam(f.Str)
	case DataTypeU32Buffer:
		return U32BufferParam(f.Buf)
	case DataTypeObject:
		return ObjectParam(f.Obj)
	default:
		return VoidParam()
	}
}

// FreeFfiParam releases any externally-owned payload in f by invoking
// free exactly once. Safe to call on every FfiParam regardless of
// ownership; it's a no-op for host-owned and non-string values. Calling
// it twice on the same externally-owned value is a caller bug, matching
// the free-exactly-once discipline of the boundary it stands in for.
func FreeFfiParam(f FfiParam, free ExternalFreeFunc) {
	if free == nil {
		return
	}
	if f.StrOwner == OwnerExternal && (f.Type == DataTypeExtString || f.Type == DataTypeExtError) {
		free(f.Str)
	}
}

// ToFfiParamArray encodes an ordered slice of Params.
func ToFfiParamArray(params []Param) FfiParamArray {
	out := FfiParamArray{Values: make([]FfiParam, len(params))}
	for i, p := range params {
		out.Values[i] = EncodeParam(p)
	}
	return out
}

// ToParams decodes a FfiParamArray back into a Params value.
func (a FfiParamArray) ToParams() *Params {
	p := NewParamsOfSize(len(a.Values))
	for _, f := range a.Values {
		p.Push(DecodeParam(f))
	}
	return p
}

func (f FfiParam) String() string {
	if f.Type.IsString() || f.Type.IsError() {
		return fmt.Sprintf("FfiParam(%s, %q, owner=%v)", f.Type, f.Str, f.StrOwner)
	}
	return fmt.Sprintf("FfiParam(%s)", f.Type)
}

package scripthost

import "fmt"

// Param is a single tagged value crossing the host/guest boundary. Go has
// no native tagged union, so this is a flat struct whose active field is
// selected by Type; callers are expected to use the constructors and
// accessors below rather than poke the fields directly.
type Param struct {
	Type DataType

	b   bool
	i32 int32
	u32 uint32
	i64 int64
	u64 uint64
	f32 float32
	f64 float64
	// vec holds the float components of Vec2/Vec3/Vec4/Quat/Mat4, sized to
	// the widest case (Mat4, column-major, 16 floats).
	vec [16]float32
	str string
	buf []uint32
	obj uint64 // opaque pointer-registry handle
}

func VoidParam() Param                      { return Param{Type: DataTypeVoid} }
func BoolParam(v bool) Param                { return Param{Type: DataTypeBool, b: v} }
func I32Param(v int32) Param                { return Param{Type: DataTypeI32, i32: v} }
func U32Param(v uint32) Param                { return Param{Type: DataTypeU32, u32: v} }
func I64Param(v int64) Param                { return Param{Type: DataTypeI64, i64: v} }
func U64Param(v uint64) Param                { return Param{Type: DataTypeU64, u64: v} }
func F32Param(v float32) Param              { return Param{Type: DataTypeF32, f32: v} }
func F64Param(v float64) Param              { return Param{Type: DataTypeF64, f64: v} }
func ObjectParam(handle uint64) Param       { return Param{Type: DataTypeObject, obj: handle} }
func I8Param(v int8) Param                  { return Param{Type: DataTypeI8, i32: int32(v)} }
func I16Param(v int16) Param                { return Param{Type: DataTypeI16, i32: int32(v)} }
func U8Param(v uint8) Param                 { return Param{Type: DataTypeU8, u32: uint32(v)} }
func U16Param(v uint16) Param               { return Param{Type: DataTypeU16, u32: uint32(v)} }
func U32BufferParam(buf []uint32) Param     { return Param{Type: DataTypeU32Buffer, buf: buf} }

// HostStringParam builds a string owned by this module (the host core).
func HostStringParam(v string) Param { return Param{Type: DataTypeHostString, str: v} }

// ExtStringParam builds a string the guest allocated and still owns.
func ExtStringParam(v string) Param { return Param{Type: DataTypeExtString, str: v} }

// HostErrorParam builds an error message owned by this module.
func HostErrorParam(msg string) Param { return Param{Type: DataTypeHostError, str: msg} }

// ExtErrorParam builds an error message the guest allocated and still owns.
func ExtErrorParam(msg string) Param { return Param{Type: DataTypeExtError, str: msg} }

func Vec2Param(x, y float32) Param {
	p := Param{Type: DataTypeVec2}
	p.vec[0], p.vec[1] = x, y
	return p
}

func Vec3Param(x, y, z float32) Param {
	p := Param{Type: DataTypeVec3}
	p.vec[0], p.vec[1], p.vec[2] = x, y, z
	return p
}

func Vec4Param(x, y, z, w float32) Param {
	p := Param{Type: DataTypeVec4}
	p.vec[0], p.vec[1], p.vec[2], p.vec[3] = x, y, z, w
	return p
}

func QuatParam(x, y, z, w float32) Param {
	p := Param{Type: DataTypeQuat}
	p.vec[0], p.vec[1], p.vec[2], p.vec[3] = x, y, z, w
	return p
}

// Mat4Param takes 16 column-major floats, matching the column-major
// from_cols_array convention carried over from the original math library
// this protocol was built against (see SPEC_FULL.md §4, unchanged quirk).
func Mat4Param(cols [16]float32) Param {
	p := Param{Type: DataTypeMat4}
	p.vec = cols
	return p
}

// IsErr reports whether p carries either error variant.
func (p Param) IsErr() bool { return p.Type.IsError() }

// Bool returns p's value and whether Type was DataTypeBool.
func (p Param) Bool() (bool, bool) { return p.b, p.Type == DataTypeBool }

func (p Param) I32() (int32, bool) { return p.i32, p.Type == DataTypeI32 }
func (p Param) U32() (uint32, bool) { return p.u32, p.Type == DataTypeU32 }
func (p Param) I64() (int64, bool) { return p.i64, p.Type == DataTypeI64 }
func (p Param) U64() (uint64, bool) { return p.u64, p.Type == DataTypeU64 }
func (p Param) F32() (float32, bool) { return p.f32, p.Type == DataTypeF32 }
func (p Param) F64() (float64, bool) { return p.f64, p.Type == DataTypeF64 }

func (p Param) I8() (int8, bool)   { return int8(p.i32), p.Type == DataTypeI8 }
func (p Param) I16() (int16, bool) { return int16(p.i32), p.Type == DataTypeI16 }
func (p Param) U8() (uint8, bool)  { return uint8(p.u32), p.Type == DataTypeU8 }
func (p Param) U16() (uint16, bool) { return uint16(p.u32), p.Type == DataTypeU16 }

// String returns the string payload for any of the four string/error
// variants, and whether Type was one of them.
func (p Param) String() (string, bool) {
	ok := p.Type.IsString() || p.Type.IsError()
	return p.str, ok
}

func (p Param) Object() (uint64, bool) { return p.obj, p.Type == DataTypeObject }

func (p Param) U32Buffer() ([]uint32, bool) { return p.buf, p.Type == DataTypeU32Buffer }

func (p Param) Vec2() (x, y float32, ok bool) {
	if p.Type != DataTypeVec2 {
		return 0, 0, false
	}
	return p.vec[0], p.vec[1], true
}

func (p Param) Vec3() (x, y, z float32, ok bool) {
	if p.Type != DataTypeVec3 {
		return 0, 0, 0, false
	}
	return p.vec[0], p.vec[1], p.vec[2], true
}

func (p Param) Vec4() (x, y, z, w float32, ok bool) {
	if p.Type != DataTypeVec4 {
		return 0, 0, 0, 0, false
	}
	return p.vec[0], p.vec[1], p.vec[2], p.vec[3], true
}

func (p Param) Quat() (x, y, z, w float32, ok bool) {
	if p.Type != DataTypeQuat {
		return 0, 0, 0, 0, false
	}
	return p.vec[0], p.vec[1], p.vec[2], p.vec[3], true
}

func (p Param) Mat4() (cols [16]float32, ok bool) {
	if p.Type != DataTypeMat4 {
		return [16]float32{}, false
	}
	return p.vec, true
}

// FloatComponents returns the active aggregate's float payload sized to
// Type.FloatWidth(), regardless of which of Vec2/Vec3/Vec4/Quat/Mat4 is
// active. Engine adapters use this instead of Mat4 to push/pull the bulk
// f32 queue, since Mat4 only returns a payload when Type is exactly
// DataTypeMat4 and would otherwise hand back 16 zeroed floats.
func (p Param) FloatComponents() []float32 {
	return p.vec[:p.Type.FloatWidth()]
}

// GoString implements fmt.GoStringer for readable test failure output.
func (p Param) GoString() string {
	switch p.Type {
	case DataTypeVoid:
		return "Param(void)"
	case DataTypeHostString, DataTypeExtString, DataTypeHostError, DataTypeExtError:
		return fmt.Sprintf("Param(%s, %q)", p.Type, p.str)
	default:
		return fmt.Sprintf("Param(%s)", p.Type)
	}
}

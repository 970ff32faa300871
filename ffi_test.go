package scripthost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeParamRoundTrip(t *testing.T) {
	cases := []Param{
		VoidParam(),
		BoolParam(true),
		I32Param(-1),
		U32Param(1),
		I64Param(-2),
		U64Param(2),
		F32Param(1.5),
		F64Param(2.5),
		Vec2Param(1, 2),
		Vec3Param(1, 2, 3),
		Vec4Param(1, 2, 3, 4),
		QuatParam(0, 0, 0, 1),
		Mat4Param([16]float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}),
		HostStringParam("host"),
		ExtStringParam("ext"),
		HostErrorParam("host-err"),
		ExtErrorParam("ext-err"),
		U32BufferParam([]uint32{1, 2, 3}),
		ObjectParam(7),
	}
	for _, p := range cases {
		f := EncodeParam(p)
		got := DecodeParam(f)
		assert.Equal(t, p, got, p.GoString())
	}
}

func TestFreeFfiParamOnlyFreesExternalOwnership(t *testing.T) {
	var freed []string
	free := func(s string) { freed = append(freed, s) }

	hostOwned := EncodeParam(HostStringParam("host"))
	FreeFfiParam(hostOwned, free)
	assert.Empty(t, freed)

	externalOwned := EncodeParam(ExtStringParam("ext"))
	FreeFfiParam(externalOwned, free)
	assert.Equal(t, []string{"ext"}, freed)
}

func TestFreeFfiParamNilFreeFuncIsNoOp(t *testing.T) {
	externalOwned := EncodeParam(ExtStringParam("ext"))
	assert.NotPanics(t, func() { FreeFfiParam(externalOwned, nil) })
}

func TestToFfiParamArrayAndBack(t *testing.T) {
	params := NewParams().Push(I32Param(1)).Push(HostStringParam("x"))
	arr := ToFfiParamArray(params.All())
	assert.Len(t, arr.Values, 2)

	back := arr.ToParams()
	assert.Equal(t, params.All(), back.All())
}

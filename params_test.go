package scripthost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsPushGetSet(t *testing.T) {
	p := NewParams()
	assert.Equal(t, 0, p.Len())

	p.Push(I32Param(1)).Push(I32Param(2))
	assert.Equal(t, 2, p.Len())

	v, ok := p.Get(0)
	assert.True(t, ok)
	iv, _ := v.I32()
	assert.Equal(t, int32(1), iv)

	_, ok = p.Get(5)
	assert.False(t, ok)

	p.Set(1, I32Param(99))
	v, _ = p.Get(1)
	iv, _ = v.I32()
	assert.Equal(t, int32(99), iv)

	// Out-of-range Set is a no-op, not a panic.
	p.Set(10, I32Param(0))
	assert.Equal(t, 2, p.Len())
}

func TestParamsOfSizePreallocatesWithoutPopulating(t *testing.T) {
	p := NewParamsOfSize(4)
	assert.Equal(t, 0, p.Len())
	p.Push(VoidParam())
	assert.Equal(t, 1, p.Len())
}

func TestParamsAll(t *testing.T) {
	p := NewParams()
	p.Push(I32Param(1)).Push(I32Param(2))
	all := p.All()
	assert.Len(t, all, 2)
}

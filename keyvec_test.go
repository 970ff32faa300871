package scripthost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyVecPushGetSet(t *testing.T) {
	var kv KeyVec[string]

	k0 := kv.Push("a")
	k1 := kv.Push("b")
	assert.Equal(t, FnKey(0), k0)
	assert.Equal(t, FnKey(1), k1)

	v, ok := kv.Get(k0)
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = kv.Get(FnKey(99))
	assert.False(t, ok)

	kv.Set(k1, "c")
	v, _ = kv.Get(k1)
	assert.Equal(t, "c", v)

	assert.Equal(t, 2, kv.Len())
}

func TestKeyVecClearResetsKeysFromZero(t *testing.T) {
	var kv KeyVec[int]
	kv.Push(1)
	kv.Push(2)
	kv.Clear()
	assert.Equal(t, 0, kv.Len())

	k := kv.Push(3)
	assert.Equal(t, FnKey(0), k, "keys must restart at 0 after Clear")
}

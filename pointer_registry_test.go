package scripthost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointerRegistryGetOrInsertIsStable(t *testing.T) {
	var reg PointerRegistry[string]

	h1 := reg.GetOrInsert("a")
	h2 := reg.GetOrInsert("a")
	assert.Equal(t, h1, h2, "registering the same key twice must return the same handle")

	h3 := reg.GetOrInsert("b")
	assert.NotEqual(t, h1, h3)
	assert.Equal(t, 2, reg.Len())
}

func TestPointerRegistryResolve(t *testing.T) {
	var reg PointerRegistry[string]
	h := reg.GetOrInsert("a")

	key, ok := reg.Resolve(h)
	assert.True(t, ok)
	assert.Equal(t, "a", key)

	zero, ok := reg.Resolve(NullHandle)
	assert.True(t, ok, "NullHandle always resolves to the zero value")
	assert.Equal(t, "", zero)

	_, ok = reg.Resolve(12345)
	assert.False(t, ok)
}

func TestPointerRegistryZeroKeyMapsToNullHandle(t *testing.T) {
	var reg PointerRegistry[string]

	h := reg.GetOrInsert("")
	assert.Equal(t, NullHandle, h)
	assert.Equal(t, 0, reg.Len(), "the zero key must not consume a slot")
}

func TestPointerRegistryRemoveInvalidatesStaleHandles(t *testing.T) {
	var reg PointerRegistry[string]
	h := reg.GetOrInsert("a")

	assert.True(t, reg.Remove(h))
	assert.False(t, reg.Remove(h), "removing twice must fail the second time")

	_, ok := reg.Resolve(h)
	assert.False(t, ok, "a handle must not resolve after its slot is removed")

	assert.Equal(t, 0, reg.Len())
}

func TestPointerRegistryGenerationGuardsAgainstSlotReuse(t *testing.T) {
	var reg PointerRegistry[string]

	h1 := reg.GetOrInsert("a")
	reg.Remove(h1)

	h2 := reg.GetOrInsert("b")

	// "b" is very likely to reuse "a"'s freed slot index; its handle must
	// still differ because the generation was bumped on removal.
	assert.NotEqual(t, h1, h2)

	_, ok := reg.Resolve(h1)
	assert.False(t, ok)

	key, ok := reg.Resolve(h2)
	assert.True(t, ok)
	assert.Equal(t, "b", key)
}

package scripthost

// FnKey is a compact integer handle into a KeyVec, used to cache a
// resolved guest export (a Wasm function instance or a Lua closure)
// across repeated CallFn invocations without a name lookup each time.
type FnKey uint32

// KeyVec is a grow-only dense array keyed by a compact integer, cleared in
// one shot whenever a script is (re)loaded. It exists instead of a map
// because keys are always handed out densely from 0 by Push, so a plain
// slice indexed by key is both simpler and faster than hashing.
type KeyVec[V any] struct {
	items []V
}

// Push appends v and returns the key it was stored under.
func (kv *KeyVec[V]) Push(v V) FnKey {
	k := FnKey(len(kv.items))
	kv.items = append(kv.items, v)
	return k
}

// Get returns the value at k, or the zero value and false if k is out of
// range.
func (kv *KeyVec[V]) Get(k FnKey) (V, bool) {
	if int(k) < 0 || int(k) >= len(kv.items) {
		var zero V
		return zero, false
	}
	return kv.items[k], true
}

// Set overwrites the value at k. It is a no-op if k is out of range.
func (kv *KeyVec[V]) Set(k FnKey, v V) {
	if int(k) < 0 || int(k) >= len(kv.items) {
		return
	}
	kv.items[k] = v
}

// Clear empties the vector; the next Push starts again from key 0. Called
// whenever a new script is loaded, since cached keys only make sense
// against the export table of the script that produced them.
func (kv *KeyVec[V]) Clear() { kv.items = kv.items[:0] }

// Len returns the number of stored entries.
func (kv *KeyVec[V]) Len() int { return len(kv.items) }

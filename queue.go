package scripthost

import "math"

// StringCache is a single-threaded FIFO of strings awaiting a guest-side
// fetch. Wasm's flat calling convention can't hand back a string in one
// call, so the host pushes the string here and the guest turns around and
// pulls it through a utility import within the same host-callback frame.
type StringCache struct {
	q []string
}

func (c *StringCache) Push(s string) { c.q = append(c.q, s) }

func (c *StringCache) Pop() (string, bool) {
	if len(c.q) == 0 {
		return "", false
	}
	s := c.q[0]
	c.q = c.q[1:]
	return s, true
}

func (c *StringCache) Clear() { c.q = c.q[:0] }

// Len reports how many strings are still queued.
func (c *StringCache) Len() int { return len(c.q) }

// F32Queue is a single-threaded FIFO of float32 words backing Vec2/Vec3/
// Vec4/Quat/Mat4 transport, and also the length field of a u32 buffer
// (see PushU32Len/PopU32Len) since the Wasm trampoline has no spare scalar
// slot left for it once the buffer's own queue is in play — the length is
// bit-punned through an f32 slot via math.Float32bits/Float32frombits
// rather than added as a second out-of-band parameter.
type F32Queue struct {
	q []float32
}

func (f *F32Queue) Push(v float32) { f.q = append(f.q, v) }

func (f *F32Queue) Pop() (float32, bool) {
	if len(f.q) == 0 {
		return 0, false
	}
	v := f.q[0]
	f.q = f.q[1:]
	return v, true
}

func (f *F32Queue) PushN(vs []float32) {
	f.q = append(f.q, vs...)
}

// PopN pops exactly n values in order, or returns false if fewer than n
// remain.
func (f *F32Queue) PopN(n int) ([]float32, bool) {
	if len(f.q) < n {
		return nil, false
	}
	out := append([]float32(nil), f.q[:n]...)
	f.q = f.q[n:]
	return out, true
}

// PushU32Len enqueues a u32 length by reinterpreting its bits as an f32,
// so it can ride the same queue used for vector components.
func (f *F32Queue) PushU32Len(n uint32) { f.Push(math.Float32frombits(n)) }

// PopU32Len dequeues a length previously pushed with PushU32Len.
func (f *F32Queue) PopU32Len() (uint32, bool) {
	v, ok := f.Pop()
	if !ok {
		return 0, false
	}
	return math.Float32bits(v), true
}

func (f *F32Queue) Clear() { f.q = f.q[:0] }

// Len reports how many f32 words are still queued.
func (f *F32Queue) Len() int { return len(f.q) }

// U32BufferQueue is a single-threaded FIFO of []uint32 buffers. Its
// companion length word travels separately through F32Queue.
type U32BufferQueue struct {
	q [][]uint32
}

func (b *U32BufferQueue) Push(buf []uint32) { b.q = append(b.q, buf) }

func (b *U32BufferQueue) Pop() ([]uint32, bool) {
	if len(b.q) == 0 {
		return nil, false
	}
	v := b.q[0]
	b.q = b.q[1:]
	return v, true
}

func (b *U32BufferQueue) Clear() { b.q = b.q[:0] }

// Len reports how many buffers are still queued.
func (b *U32BufferQueue) Len() int { return len(b.q) }

package rs485

import "go.uber.org/atomic"

// DefaultRingSize is the declared size of the RX and TX rings. One slot is
// always kept free, so DefaultRingSize-1 bytes can be buffered.
const DefaultRingSize = 255

// Ring is a fixed-capacity single-producer/single-consumer byte queue.
//
// Storage is indexed 1..size; slot 0 is never used. Both indices walk the
// ring backward (decrement with wrap from 1 to size). head == tail means
// empty and the slot before tail is never filled, so the producer only
// stores head and the consumer only stores tail. No shared counter exists.
type Ring struct {
	buf  []byte
	size uint32
	head atomic.Uint32
	tail atomic.Uint32
}

// NewRing returns a ring with the given declared size. Sizes below 2 are
// raised to 2 (one usable slot).
func NewRing(size int) *Ring {
	if size < 2 {
		size = 2
	}
	r := &Ring{
		buf:  make([]byte, size+1),
		size: uint32(size),
	}
	r.Reset()
	return r
}

// Size returns the declared size of the ring.
func (r *Ring) Size() int { return int(r.size) }

// Cap returns how many bytes the ring can hold at once.
func (r *Ring) Cap() int { return int(r.size) - 1 }

// Reset empties the ring. It must not race with Push or Pop.
func (r *Ring) Reset() {
	r.head.Store(1)
	r.tail.Store(1)
}

// next returns the index after i.
func (r *Ring) next(i uint32) uint32 {
	if i--; i == 0 {
		return r.size
	}
	return i
}

// Push stores b and reports whether it fit. A full ring is left unchanged
// and the byte is dropped. Producer side only.
func (r *Ring) Push(b byte) bool {
	h := r.next(r.head.Load())
	if h == r.tail.Load() {
		return false
	}
	r.buf[h] = b    // 1) write data
	r.head.Store(h) // 2) publish
	return true
}

// Pop removes the oldest byte. Consumer side only.
func (r *Ring) Pop() (byte, bool) {
	t := r.tail.Load()
	if t == r.head.Load() {
		return 0, false
	}
	t = r.next(t)
	b := r.buf[t]   // 1) read element
	r.tail.Store(t) // 2) publish consumption
	return b, true
}

// Empty reports whether the ring holds no bytes.
func (r *Ring) Empty() bool {
	return r.head.Load() == r.tail.Load()
}

// Full reports whether the next Push would be rejected.
func (r *Ring) Full() bool {
	return r.next(r.head.Load()) == r.tail.Load()
}

// Used returns the number of buffered bytes.
func (r *Ring) Used() int {
	h, t := r.head.Load(), r.tail.Load()
	// indices descend, so tail is "ahead" of head by the used count
	if t >= h {
		return int(t - h)
	}
	return int(t + r.size - h)
}

// Free returns the number of bytes that can be pushed before the ring is full.
func (r *Ring) Free() int { return r.Cap() - r.Used() }

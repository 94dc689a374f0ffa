// Package ringbuf provides a lock-free, single-producer single-consumer (SPSC)
// ring buffer for model.Quote, used to hand archived quotes from the trading
// loop to the SQLite batch writer without blocking the loop.
package ringbuf

import (
	"sync/atomic"

	"ganaka-trader/internal/model"
)

const cacheLine = 64

// Ring is a lock-free SPSC ring buffer for Quote values.
// Size is always a power of two.
type Ring struct {
	buf  []model.Quote
	mask uint64

	_pad0 [cacheLine]byte
	head  atomic.Uint64 // written by producer
	_pad1 [cacheLine]byte
	tail  atomic.Uint64 // written by consumer
	_pad2 [cacheLine]byte

	overflow atomic.Uint64
}

// New creates a ring buffer. capacity is rounded up to the next power of two,
// minimum 2.
func New(capacity int) *Ring {
	size := max(nextPow2(capacity), 2)
	return &Ring{
		buf:  make([]model.Quote, size),
		mask: uint64(size - 1),
	}
}

// Push appends a quote. Returns false, and counts an overflow, when full.
// Producer side only.
func (r *Ring) Push(q model.Quote) bool {
	head := r.head.Load()
	if head-r.tail.Load() >= uint64(len(r.buf)) {
		r.overflow.Add(1)
		return false
	}
	r.buf[head&r.mask] = q
	r.head.Store(head + 1)
	return true
}

// Pop retrieves the oldest quote, or false when empty. Consumer side only.
func (r *Ring) Pop() (model.Quote, bool) {
	tail := r.tail.Load()
	if tail >= r.head.Load() {
		return model.Quote{}, false
	}
	q := r.buf[tail&r.mask]
	r.buf[tail&r.mask] = model.Quote{}
	r.tail.Store(tail + 1)
	return q, true
}

// Drain pops up to len(dst) quotes into dst and returns how many were read.
// Consumer side only.
func (r *Ring) Drain(dst []model.Quote) int {
	n := 0
	for n < len(dst) {
		q, ok := r.Pop()
		if !ok {
			break
		}
		dst[n] = q
		n++
	}
	return n
}

// Len returns the current number of items in the buffer.
func (r *Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Cap returns the buffer capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Overflow returns the total number of pushes rejected because the buffer
// was full.
func (r *Ring) Overflow() uint64 {
	return r.overflow.Load()
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

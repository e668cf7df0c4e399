// Package pool recycles short-lived buffers of the command-line matcher and
// the middleware loggers to keep allocations off the hot path.
package pool

import (
	"math/bits"
	"sync"
	"sync/atomic"
)

// Pool is a type-safe wrapper around sync.Pool. An optional reset function
// runs on every object handed out by Get.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(*T)
	gets  atomic.Int64
	puts  atomic.Int64
}

// NewPool creates a pool that allocates with factory.
func NewPool[T any](factory func() *T) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{New: func() any { return factory() }},
	}
}

// NewPoolWithReset creates a pool whose objects are reset before reuse.
func NewPoolWithReset[T any](factory func() *T, reset func(*T)) *Pool[T] {
	p := NewPool(factory)
	p.reset = reset
	return p
}

// Get returns a pooled or freshly allocated object.
func (p *Pool[T]) Get() *T {
	p.gets.Add(1)
	obj := p.pool.Get().(*T)
	if p.reset != nil {
		p.reset(obj)
	}
	return obj
}

// Put returns obj to the pool. Nil is ignored.
func (p *Pool[T]) Put(obj *T) {
	if obj == nil {
		return
	}
	p.puts.Add(1)
	p.pool.Put(obj)
}

// Stats returns how many objects were handed out and returned.
func (p *Pool[T]) Stats() (gets, puts int64) {
	return p.gets.Load(), p.puts.Load()
}

const (
	minBufferShift = 6  // 64 bytes
	maxBufferShift = 12 // 4 KiB
)

// BufferPool hands out byte buffers from power-of-two size classes between
// 64 bytes and 4 KiB. Larger requests are allocated and never pooled.
type BufferPool struct {
	classes [maxBufferShift - minBufferShift + 1]*Pool[[]byte]
}

// NewBufferPool creates an empty buffer pool.
func NewBufferPool() *BufferPool {
	bp := &BufferPool{}
	for i := range bp.classes {
		size := 1 << (i + minBufferShift)
		bp.classes[i] = NewPoolWithReset(
			func() *[]byte {
				buf := make([]byte, 0, size)
				return &buf
			},
			func(buf *[]byte) { *buf = (*buf)[:0] },
		)
	}
	return bp
}

// class returns the size class able to hold n bytes, or -1.
func class(n int) int {
	if n <= 1<<minBufferShift {
		return 0
	}
	shift := bits.Len(uint(n - 1))
	if shift > maxBufferShift {
		return -1
	}
	return shift - minBufferShift
}

// Get returns an empty buffer with capacity of at least n.
func (bp *BufferPool) Get(n int) *[]byte {
	c := class(n)
	if c < 0 {
		buf := make([]byte, 0, n)
		return &buf
	}
	return bp.classes[c].Get()
}

// Put returns buf to the class matching its capacity. Buffers that grew
// beyond the largest class are dropped.
func (bp *BufferPool) Put(buf *[]byte) {
	if buf == nil {
		return
	}
	capacity := cap(*buf)
	if capacity < 1<<minBufferShift || capacity > 1<<maxBufferShift {
		return
	}
	// a buffer belongs to the largest class it can fully serve
	c := bits.Len(uint(capacity)) - 1 - minBufferShift
	bp.classes[c].Put(buf)
}

var (
	buffers = NewBufferPool()
	strings = NewPoolWithReset(
		func() *[]string {
			s := make([]string, 0, 8)
			return &s
		},
		func(s *[]string) {
			clear(*s)
			*s = (*s)[:0]
		},
	)
)

// GetBuffer returns an empty buffer from the shared pool.
func GetBuffer(n int) *[]byte { return buffers.Get(n) }

// PutBuffer returns a buffer to the shared pool.
func PutBuffer(buf *[]byte) { buffers.Put(buf) }

// GetStrings returns an empty string slice from the shared pool.
func GetStrings() *[]string { return strings.Get() }

// PutStrings returns a string slice to the shared pool. The caller must not
// keep references to its elements' backing array.
func PutStrings(s *[]string) { strings.Put(s) }

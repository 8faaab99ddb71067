// Package pool provides unified object pooling for tabread.
// It offers generic type-safe pooling with automatic reset functionality,
// reducing garbage collection pressure on the hot parsing path. Workers
// recycle their value buffers and row-offset scratch through these pools
// between chunks.
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with statistics tracking and automatic reset.
// The pool is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		hits      int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
// The new function is called when the pool is empty; the reset function is
// called before returning an object to the pool.
func New[T any](new func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   new,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return new()
	}
	return p
}

// Get retrieves an object from the pool, creating one if the pool is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	obj := p.pool.Get().(T)
	atomic.AddInt64(&p.stats.hits, 1)
	return obj
}

// Put returns an object to the pool for reuse, resetting it first if a
// reset function was provided.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns current pool statistics.
func (p *Pool[T]) Stats() (allocated, inUse, hits int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.hits)
}

// Global pools shared by the parsing workers.
var (
	// IntSlicePool provides pooling for row-offset scratch slices.
	IntSlicePool = New(
		func() []int {
			return make([]int, 0, 1024)
		},
		func(s []int) {},
	)

	// ByteSlicePool provides pooling for general-purpose byte slices.
	ByteSlicePool = New(
		func() []byte {
			return make([]byte, 0, 4096)
		},
		func(b []byte) {},
	)
)

// GetIntSlice retrieves a zero-length int slice from the global pool.
func GetIntSlice() []int {
	s := IntSlicePool.Get()
	return s[:0]
}

// PutIntSlice returns an int slice to the global pool.
func PutIntSlice(s []int) {
	IntSlicePool.Put(s)
}

// GetByteSlice retrieves a zero-length byte slice from the global pool.
func GetByteSlice() []byte {
	b := ByteSlicePool.Get()
	return b[:0]
}

// PutByteSlice returns a byte slice to the global pool.
func PutByteSlice(b []byte) {
	ByteSlicePool.Put(b)
}

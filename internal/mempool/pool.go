// Package mempool pools the per-pixel scratch buffers of region detection.
// Masks and label maps are the size of the image, so reusing them keeps
// batch runs from churning the garbage collector.
package mempool

import (
	"sync"
)

var (
	boolPools sync.Map // key: size class (int), value: *sync.Pool
	intPools  sync.Map // key: size class (int), value: *sync.Pool
)

// sizeClass rounds n up to the next multiple of 1024 to reduce churn.
func sizeClass(n int) int {
	const step = 1024
	if n <= step {
		return step
	}
	return (n + step - 1) / step * step
}

func poolFor[T any](pools *sync.Map, cls int) *sync.Pool {
	p, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	return p.(*sync.Pool) //nolint:forcetypeassert // only *sync.Pool is stored
}

// get returns a zeroed slice of length n from pools.
func get[T any](pools *sync.Map, n int) []T {
	if n < 0 {
		n = 0
	}
	cls := sizeClass(n)
	buf, ok := poolFor[T](pools, cls).Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}

func put[T any](pools *sync.Map, buf []T) {
	if cap(buf) == 0 {
		return
	}
	// Buffers are filed under the class their capacity fills completely.
	cls := sizeClass(cap(buf))
	if cls != cap(buf) {
		return
	}
	poolFor[T](pools, cls).Put(buf[:cap(buf)]) //nolint:staticcheck // slices are small headers
}

// GetBool returns a zeroed []bool of length n. Return it with PutBool.
func GetBool(n int) []bool { return get[bool](&boolPools, n) }

// PutBool returns a buffer to the pool. It is safe to pass a nil slice.
func PutBool(buf []bool) { put(&boolPools, buf) }

// GetInt returns a zeroed []int of length n. Return it with PutInt.
func GetInt(n int) []int { return get[int](&intPools, n) }

// PutInt returns a buffer to the pool. It is safe to pass a nil slice.
func PutInt(buf []int) { put(&intPools, buf) }

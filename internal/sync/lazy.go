// Package sync provides thread-safe synchronization primitives.
package sync

import (
	"context"
	"sync"
	"sync/atomic"
)

// Lazy holds a value that is built on first use and rebuilt on the next use
// after Invalidate.
//
// A failed build leaves the Lazy unbuilt, so the next Get retries. Get and
// Invalidate are safe for concurrent use; builds never run concurrently.
//
// Example usage:
//
//	mirror := NewLazy(func(ctx context.Context) (*Mirror, error) {
//		return loadMirror(ctx, db)
//	})
//
//	m, err := mirror.Get(ctx) // builds
//	m, err = mirror.Get(ctx)  // cached
//
//	db.Ingest(more, opts)
//	mirror.Invalidate()
//	m, err = mirror.Get(ctx) // builds again
type Lazy[T any] struct {
	m     sync.Mutex
	val   atomic.Pointer[T]
	build func(ctx context.Context) (T, error)
	count atomic.Int64
}

// NewLazy returns a Lazy that builds its value with build.
func NewLazy[T any](build func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{build: build}
}

// Get returns the current value, building it first if needed.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	// Fast path: already built
	if p := l.val.Load(); p != nil {
		return *p, nil
	}

	// Slow path: acquire lock and double-check
	l.m.Lock()
	defer l.m.Unlock()

	if p := l.val.Load(); p != nil {
		return *p, nil
	}

	v, err := l.build(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	l.count.Add(1)
	l.val.Store(&v)
	return v, nil
}

// Invalidate makes the next Get rebuild the value. If a build is in
// progress, Invalidate waits for it to finish first.
func (l *Lazy[T]) Invalidate() {
	l.m.Lock()
	defer l.m.Unlock()
	l.val.Store(nil)
}

// Reset makes the next Get rebuild the value, like Invalidate, and then runs
// release while still holding the build lock. Anything the build function
// writes can be torn down in release without racing a concurrent Get.
func (l *Lazy[T]) Reset(release func()) {
	l.m.Lock()
	defer l.m.Unlock()
	l.val.Store(nil)
	if release != nil {
		release()
	}
}

// Peek returns the current value without building it.
func (l *Lazy[T]) Peek() (T, bool) {
	if p := l.val.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

// Built reports whether a value is currently held.
func (l *Lazy[T]) Built() bool {
	return l.val.Load() != nil
}

// Builds returns how many successful builds have run.
func (l *Lazy[T]) Builds() int64 {
	return l.count.Load()
}

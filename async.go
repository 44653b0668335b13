/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import (
	"context"
	"sync"
)

// Future is the pending result of an AsyncFile operation.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func resolved[T any](val T, err error) *Future[T] {
	f := newFuture[T]()
	f.val, f.err = val, err
	close(f.done)
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await waits for the result or for ctx to end. Giving up on the wait does
// not cancel the operation; cancel the context it was submitted with for that.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AsyncFile runs File operations on a dedicated goroutine, one at a time and
// in submission order, and hands back Futures. Callers keep working while a
// fetch is outstanding and collect the result when they need it.
//
// Cancelling an operation's context aborts its outstanding fetch. Sectors
// fetched by an aborted read are discarded, never partially stored.
type AsyncFile struct {
	f *File

	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	stopped bool
	closing *Future[struct{}]
}

// NewAsync returns an unopened AsyncFile.
func NewAsync(url string, opts ...Option) *AsyncFile {
	a := &AsyncFile{f: New(url, opts...)}
	a.cond = sync.NewCond(&a.mu)
	go a.loop()
	return a
}

// OpenAsync returns an AsyncFile that has already been probed.
func OpenAsync(ctx context.Context, url string, opts ...Option) (*AsyncFile, error) {
	a := NewAsync(url, opts...)
	if _, err := a.Open(ctx).Await(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// loop runs queued operations until Close has been submitted and drained.
func (a *AsyncFile) loop() {
	for {
		a.mu.Lock()
		for len(a.pending) == 0 && !a.stopped {
			a.cond.Wait()
		}
		if len(a.pending) == 0 {
			a.mu.Unlock()
			return
		}
		op := a.pending[0]
		a.pending[0] = nil
		a.pending = a.pending[1:]
		a.mu.Unlock()
		op()
	}
}

// enqueue appends op without waiting for the worker. Callers hold a.mu.
func (a *AsyncFile) enqueue(op func()) {
	a.pending = append(a.pending, op)
	a.cond.Signal()
}

func submit[T any](a *AsyncFile, ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		var zero T
		return resolved(zero, ErrClosed)
	}
	fut := newFuture[T]()
	a.enqueue(func() {
		if err := ctx.Err(); err != nil {
			fut.err = err
		} else {
			fut.val, fut.err = fn(ctx)
		}
		close(fut.done)
	})
	return fut
}

// Open probes the resource.
func (a *AsyncFile) Open(ctx context.Context) *Future[struct{}] {
	return submit(a, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.f.Open(ctx)
	})
}

// Close runs after every operation submitted before it. Later submissions
// fail with ErrClosed; repeated calls return the same Future.
func (a *AsyncFile) Close() *Future[struct{}] {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return a.closing
	}
	fut := newFuture[struct{}]()
	a.enqueue(func() {
		fut.err = a.f.Close()
		close(fut.done)
	})
	a.stopped = true
	a.closing = fut
	return fut
}

// Flush drops every cached sector.
func (a *AsyncFile) Flush(ctx context.Context) *Future[struct{}] {
	return submit(a, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.f.flush(ctx)
	})
}

// ReadN reads up to n bytes from the cursor; see File.ReadN.
func (a *AsyncFile) ReadN(ctx context.Context, n int64) *Future[[]byte] {
	return a.ReadNLimited(ctx, n, -1)
}

// ReadNLimited reads with a raw fetch budget; see File.ReadNLimited.
func (a *AsyncFile) ReadNLimited(ctx context.Context, n int64, maxFetches int) *Future[[]byte] {
	return submit(a, ctx, func(ctx context.Context) ([]byte, error) {
		return a.f.ReadNLimited(ctx, n, maxFetches)
	})
}

// Read1 returns what is cached plus at most one fresh fetch.
func (a *AsyncFile) Read1(ctx context.Context, n int64) *Future[[]byte] {
	return a.ReadNLimited(ctx, n, 1)
}

// Peek is Read1 without moving the cursor.
func (a *AsyncFile) Peek(ctx context.Context, n int64) *Future[[]byte] {
	return submit(a, ctx, func(ctx context.Context) ([]byte, error) {
		return a.f.Peek(ctx, n)
	})
}

// ReadInto fills p from the cursor. p must not be touched until the Future is done.
func (a *AsyncFile) ReadInto(ctx context.Context, p []byte) *Future[int] {
	return a.ReadIntoLimited(ctx, p, -1)
}

// ReadIntoLimited is ReadInto with a raw fetch budget.
func (a *AsyncFile) ReadIntoLimited(ctx context.Context, p []byte, maxFetches int) *Future[int] {
	return submit(a, ctx, func(ctx context.Context) (int, error) {
		return a.f.ReadLimited(ctx, p, maxFetches)
	})
}

// Seek sets the cursor; see File.Seek.
func (a *AsyncFile) Seek(ctx context.Context, offset int64, whence int) *Future[int64] {
	return submit(a, ctx, func(ctx context.Context) (int64, error) {
		return a.f.seek(ctx, offset, whence)
	})
}

// Tell returns the cursor.
func (a *AsyncFile) Tell(ctx context.Context) *Future[int64] {
	return submit(a, ctx, a.f.tell)
}

// ReadLine reads through the next '\n'; see File.ReadLine.
func (a *AsyncFile) ReadLine(ctx context.Context) *Future[[]byte] {
	return a.ReadLineLimited(ctx, -1)
}

// ReadLineLimited is ReadLine with a raw fetch budget; see File.ReadLineLimited.
func (a *AsyncFile) ReadLineLimited(ctx context.Context, maxFetches int) *Future[[]byte] {
	return submit(a, ctx, func(ctx context.Context) ([]byte, error) {
		return a.f.ReadLineLimited(ctx, maxFetches)
	})
}

// ReadLines reads every remaining line.
func (a *AsyncFile) ReadLines(ctx context.Context) *Future[[][]byte] {
	return submit(a, ctx, a.f.ReadLines)
}

// Write fails with ErrClosed once Close was submitted and with ErrUnsupported otherwise.
func (a *AsyncFile) Write([]byte) *Future[int] {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return resolved(0, ErrClosed)
	}
	return resolved(0, ErrUnsupported)
}

func (a *AsyncFile) Readable() bool { return true }
func (a *AsyncFile) Writable() bool { return false }
func (a *AsyncFile) Seekable() bool { return true }

// URL returns the resource URL.
func (a *AsyncFile) URL() string { return a.f.URL() }

func (a *AsyncFile) String() string { return a.f.String() }

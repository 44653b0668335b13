/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// File presents a remote resource that supports byte-range requests as a
// read-only, seekable file. With a positive sector size, fetched bytes are
// cached in aligned sectors and later reads of the same region cost nothing.
//
// A File is meant for a single owner. Its methods are serialized internally,
// but interleaving reads from several goroutines still races on the cursor.
type File struct {
	url           string
	opts          options
	transport     Transport
	ownsTransport bool

	mu     sync.Mutex
	eng    *engine
	store  SectorStore
	meta   Metadata
	cursor int64
	opened bool
	closed bool
	broken error // sticky protocol error from the probe
}

// New returns an unopened File for url. The resource is probed by Open, or
// lazily by the first operation that needs it.
func New(url string, opts ...Option) *File {
	f := &File{url: url, opts: buildOptions(opts)}
	if f.opts.transport != nil {
		f.transport = f.opts.transport
	} else {
		f.transport = f.opts.httpTransport()
		f.ownsTransport = true
	}
	return f
}

// Open opens a remote resource as a seekable, readable file.
// It mirrors os.Open in spirit: the resource is opened read-only
// and must be closed when no longer needed.
func Open(ctx context.Context, url string, opts ...Option) (*File, error) {
	f := New(url, opts...)
	if err := f.Open(ctx); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Open probes the resource. It is a no-op on an open File and fails with
// ErrClosed after Close.
func (f *File) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ensureOpen(ctx)
}

func (f *File) ensureOpen(ctx context.Context) error {
	switch {
	case f.closed:
		return ErrClosed
	case f.broken != nil:
		return f.broken
	case f.opened:
		return nil
	}

	meta, err := f.transport.Probe(ctx, f.url)
	if err != nil {
		return err
	}
	if meta.Length < 0 {
		f.broken = protocolError("server does not report content length")
		return f.broken
	}
	if !meta.SupportsRanges() {
		f.broken = protocolError("server does not accept 'Range' headers")
		return f.broken
	}

	eng := &engine{
		url:       f.url,
		transport: f.transport,
		length:    meta.Length,
		logger:    f.opts.log(),
		metrics:   f.opts.metrics,
	}
	if f.opts.conditional {
		eng.ifMatch = &meta
	}
	if f.opts.sectorSize > 0 {
		store, err := f.opts.store(meta.Length, f.opts.sectorSize)
		if err != nil {
			return fmt.Errorf("httpio: sector store: %w", err)
		}
		f.store = store
		eng.cache = NewSectorCache(store, f.opts.sectorSize)
	}

	f.meta, f.eng, f.opened = meta, eng, true
	f.opts.log().Debug("open", "url", f.url, "length", meta.Length, "sector_size", f.opts.sectorSize)
	return nil
}

// Close drops the cache and releases the transport. It is safe to call more than once.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true

	var errs []error
	if f.eng != nil && f.eng.cache != nil {
		f.eng.cache.Clear()
	}
	if c, ok := f.store.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := f.transport.(io.Closer); ok && f.ownsTransport {
		errs = append(errs, c.Close())
	}
	f.opts.log().Debug("close", "url", f.url)
	return errors.Join(errs...)
}

// Flush drops every cached sector. The cursor is unchanged.
func (f *File) Flush() error {
	return f.flush(context.Background())
}

func (f *File) flush(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureOpen(ctx); err != nil {
		return err
	}
	f.eng.flush()
	return nil
}

// remaining clamps a requested size to what is left after off.
// A non-positive request means everything remaining.
func (f *File) remaining(off, n int64) int64 {
	left := f.meta.Length - off
	if n < 1 || n > left {
		return left
	}
	return n
}

// ReadN reads up to n bytes from the cursor and advances it. A non-positive n
// reads everything remaining. At end of resource it returns an empty slice.
func (f *File) ReadN(ctx context.Context, n int64) ([]byte, error) {
	return f.ReadNLimited(ctx, n, -1)
}

// ReadNLimited is ReadN issuing at most maxFetches raw fetches (negative means
// unlimited). The result may be shorter than requested: it ends at the last
// sector contiguously available from the cursor.
func (f *File) ReadNLimited(ctx context.Context, n int64, maxFetches int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readN(ctx, n, maxFetches, true)
}

// Read1 returns what is cached from the cursor plus at most one fresh fetch.
func (f *File) Read1(ctx context.Context, n int64) ([]byte, error) {
	return f.ReadNLimited(ctx, n, 1)
}

// Peek is Read1 without moving the cursor.
func (f *File) Peek(ctx context.Context, n int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readN(ctx, n, 1, false)
}

func (f *File) readN(ctx context.Context, n int64, maxFetches int, advance bool) ([]byte, error) {
	if err := f.ensureOpen(ctx); err != nil {
		return nil, err
	}
	size := f.remaining(f.cursor, n)
	buf := make([]byte, 0, size)
	got, _, err := f.eng.span(ctx, f.cursor, size, maxFetches, func(b []byte) {
		buf = append(buf, b...)
	})
	if err != nil {
		return nil, err
	}
	if advance {
		f.cursor += got
	}
	return buf, nil
}

// Read implements io.Reader. It fills p from the cursor and advances it.
func (f *File) Read(p []byte) (int, error) {
	return f.ReadLimited(context.Background(), p, -1)
}

// ReadContext is Read with a context.
func (f *File) ReadContext(ctx context.Context, p []byte) (int, error) {
	return f.ReadLimited(ctx, p, -1)
}

// ReadLimited is ReadContext issuing at most maxFetches raw fetches.
// It returns 0, io.EOF only when the cursor is at end of resource.
func (f *File) ReadLimited(ctx context.Context, p []byte, maxFetches int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readInto(ctx, p, maxFetches)
}

func (f *File) readInto(ctx context.Context, p []byte, maxFetches int) (int, error) {
	if err := f.ensureOpen(ctx); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if f.cursor >= f.meta.Length {
		return 0, io.EOF
	}
	size := f.remaining(f.cursor, int64(len(p)))
	n := 0
	got, _, err := f.eng.span(ctx, f.cursor, size, maxFetches, func(b []byte) {
		n += copy(p[n:], b)
	})
	if err != nil {
		return 0, err
	}
	f.cursor += got
	return n, nil
}

// ReadAt implements io.ReaderAt through the sector cache. The cursor is unchanged.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.ReadAtContext(context.Background(), p, off)
}

// ReadAtContext is ReadAt with a context.
func (f *File) ReadAtContext(ctx context.Context, p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureOpen(ctx); err != nil {
		return 0, err
	}
	if off < 0 {
		return 0, fmt.Errorf("%w: offset=%d", ErrInvalidArgument, off)
	}
	if off >= f.meta.Length {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	size := min(int64(len(p)), f.meta.Length-off)
	n := 0
	if _, _, err := f.eng.span(ctx, off, size, -1, func(b []byte) {
		n += copy(p[n:], b)
	}); err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Seek implements io.Seeker. The resulting offset must lie in [0, Size()];
// otherwise it fails with ErrInvalidArgument and the cursor is unchanged.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	return f.seek(context.Background(), offset, whence)
}

func (f *File) seek(ctx context.Context, offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureOpen(ctx); err != nil {
		return 0, err
	}

	var newOff int64
	switch whence {
	case io.SeekStart:
		newOff = offset
	case io.SeekCurrent:
		newOff = f.cursor + offset
	case io.SeekEnd:
		newOff = f.meta.Length + offset
	default:
		return 0, fmt.Errorf("%w: whence=%d", ErrInvalidArgument, whence)
	}

	if newOff < 0 || newOff > f.meta.Length {
		return 0, fmt.Errorf("%w: cursor=%d", ErrInvalidArgument, newOff)
	}
	f.cursor = newOff
	return f.cursor, nil
}

// Tell returns the cursor.
func (f *File) Tell() (int64, error) {
	return f.tell(context.Background())
}

func (f *File) tell(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureOpen(ctx); err != nil {
		return 0, err
	}
	return f.cursor, nil
}

// Write fails with ErrClosed after Close and with ErrUnsupported otherwise.
func (f *File) Write([]byte) (int, error) {
	if f.Closed() {
		return 0, ErrClosed
	}
	return 0, ErrUnsupported
}

func (f *File) Readable() bool { return true }
func (f *File) Writable() bool { return false }
func (f *File) Seekable() bool { return true }

// Size returns the resource length, or -1 before a successful probe.
func (f *File) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.opened {
		return -1
	}
	return f.meta.Length
}

// Metadata returns what the probe reported.
func (f *File) Metadata() Metadata {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meta
}

// Cache returns the sector cache, or nil if caching is disabled or the File
// is not open yet.
func (f *File) Cache() *SectorCache {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eng == nil {
		return nil
	}
	return f.eng.cache
}

// SectorSize returns the configured sector size; NoCache when disabled.
func (f *File) SectorSize() int64 { return f.opts.sectorSize }

// URL returns the resource URL.
func (f *File) URL() string { return f.url }

// Closed reports whether Close was called.
func (f *File) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *File) String() string {
	status := "open"
	if f.Closed() {
		status = "closed"
	}
	return fmt.Sprintf("<%s File %q>", status, f.url)
}

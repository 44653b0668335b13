/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// randomBytes returns size deterministic pseudo-random bytes.
func randomBytes(size int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(r.Uint32())
	}
	return data
}

// fixture is a Range-capable HTTP server over an in-memory resource.
type fixture struct {
	*httptest.Server
	data []byte

	noLength bool
	noRanges bool

	heads atomic.Int64
	gets  atomic.Int64

	// GET number failAfter+1 and later answer 500 when failAfter > 0.
	failAfter atomic.Int64

	mu   sync.Mutex
	etag string
}

func newFixture(t *testing.T, size int, setup ...func(*fixture)) *fixture {
	t.Helper()
	f := &fixture{data: randomBytes(size, uint64(size)), etag: `"v1"`}
	for _, fn := range setup {
		fn(f)
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fixture) setETag(etag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.etag = etag
}

func (f *fixture) currentETag() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.etag
}

func (f *fixture) serve(w http.ResponseWriter, r *http.Request) {
	etag := f.currentETag()
	switch r.Method {
	case http.MethodHead:
		f.heads.Add(1)
		if !f.noLength {
			w.Header().Set("Content-Length", fmt.Sprintf("%d", len(f.data)))
		}
		if !f.noRanges {
			w.Header().Set("Accept-Ranges", "bytes")
		}
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		n := f.gets.Add(1)
		if limit := f.failAfter.Load(); limit > 0 && n > limit {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if im := r.Header.Get("If-Match"); im != "" && im != etag {
			http.Error(w, "changed", http.StatusPreconditionFailed)
			return
		}
		var start, end int
		if n, _ := fmt.Sscanf(r.Header.Get("Range"), "bytes=%d-%d", &start, &end); n != 2 {
			http.Error(w, "Bad Range", http.StatusBadRequest)
			return
		}
		if start < 0 || end >= len(f.data) || start > end {
			http.Error(w, "Invalid Range", http.StatusRequestedRangeNotSatisfiable)
			return
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(f.data)))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(f.data[start : end+1])
	default:
		http.Error(w, "unsupported method", http.StatusMethodNotAllowed)
	}
}

// fakeTransport serves data directly and records every fetch.
type fakeTransport struct {
	data []byte
	meta Metadata

	mu       sync.Mutex
	probes   int
	requests []RangeRequest
	fetchErr error
}

func newFakeTransport(data []byte) *fakeTransport {
	return &fakeTransport{
		data: data,
		meta: Metadata{Length: int64(len(data)), AcceptRanges: "bytes"},
	}
}

func (t *fakeTransport) Probe(context.Context, string) (Metadata, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.probes++
	return t.meta, nil
}

func (t *fakeTransport) FetchRange(ctx context.Context, rr RangeRequest) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, rr)
	if t.fetchErr != nil {
		return nil, t.fetchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]byte(nil), t.data[rr.Start:rr.End]...), nil
}

// spans returns the [start, end) pairs fetched so far.
func (t *fakeTransport) spans() [][2]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][2]int64, 0, len(t.requests))
	for _, rr := range t.requests {
		out = append(out, [2]int64{rr.Start, rr.End})
	}
	return out
}

func (t *fakeTransport) fetches() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

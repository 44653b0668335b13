/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import (
	"context"
	"fmt"
	"io"
	"time"
)

// engine turns byte-range reads into sector fetches. It holds no cursor;
// callers pass the offset and advance their own position by what was emitted.
type engine struct {
	url       string
	transport Transport
	cache     *SectorCache // nil when caching is disabled
	length    int64
	ifMatch   *Metadata
	logger    Logger
	metrics   Metrics
}

type fetchedRun struct {
	first int64
	data  []byte
}

// span reads [off, off+size) and passes the bytes to emit in order.
// size must already be clamped to the resource length.
//
// With caching, missing sectors are grouped into maximal runs and each run
// costs one raw fetch. When maxFetches >= 0 no more than maxFetches fetches are
// issued, and only the sectors contiguously available from the first one are
// emitted. Fetched runs are stored only after every fetch succeeded, and
// nothing is emitted on error.
func (e *engine) span(ctx context.Context, off, size int64, maxFetches int, emit func([]byte)) (n int64, fetches int, err error) {
	if size <= 0 {
		return 0, 0, nil
	}

	if e.cache == nil {
		data, err := e.fetch(ctx, off, off+size)
		if err != nil {
			return 0, 1, err
		}
		emit(data)
		return int64(len(data)), 1, nil
	}

	ss := e.cache.SectorSize()
	sector0, offset0 := off/ss, off%ss
	last := off + size - 1
	sector1, offset1 := last/ss+1, last%ss+1

	runs := e.cache.MissingRuns(sector0, sector1)
	misses := 0
	for _, r := range runs {
		misses += int(r.Len())
	}
	e.metrics.ObserveSectors(int(sector1-sector0)-misses, misses)

	var pending []fetchedRun
	for _, r := range runs {
		if maxFetches >= 0 && fetches >= maxFetches {
			break
		}
		data, err := e.fetch(ctx, r.First*ss, min(r.End*ss, e.length))
		fetches++
		if err != nil {
			return 0, fetches, err
		}
		pending = append(pending, fetchedRun{first: r.First, data: data})
	}
	for _, p := range pending {
		e.cache.Absorb(p.first, p.data)
	}

	for idx := sector0; idx < sector1; idx++ {
		data, ok := e.cache.Sector(idx)
		if !ok {
			break
		}
		lo, hi := int64(0), int64(len(data))
		if idx == sector0 {
			lo = offset0
		}
		if idx == sector1-1 {
			hi = min(hi, offset1)
		}
		if lo >= hi {
			break
		}
		emit(data[lo:hi])
		n += hi - lo
	}
	return n, fetches, nil
}

func (e *engine) fetch(ctx context.Context, start, end int64) ([]byte, error) {
	e.logger.Debug("fetch", "url", e.url, "start", start, "end", end)

	t0 := time.Now()
	data, err := e.transport.FetchRange(ctx, RangeRequest{URL: e.url, Start: start, End: end, IfMatch: e.ifMatch})
	if err == nil && int64(len(data)) != end-start {
		err = &TransportError{
			Op:  "fetch",
			URL: e.url,
			Err: fmt.Errorf("got %d bytes for range %d-%d: %w", len(data), start, end-1, io.ErrUnexpectedEOF),
		}
	}
	e.metrics.ObserveFetch(int64(len(data)), time.Since(t0), err)
	if err != nil {
		e.logger.Error("fetch failed", "url", e.url, "start", start, "end", end, "err", err)
		return nil, err
	}
	return data, nil
}

// flush drops every cached sector.
func (e *engine) flush() {
	if e.cache != nil {
		e.cache.Clear()
	}
	e.metrics.ObserveFlush()
	e.logger.Debug("flush", "url", e.url)
}

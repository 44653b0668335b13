/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import "sync"

// MemorySectors is a simple in-memory SectorStore.
type MemorySectors struct {
	mu sync.Mutex
	m  map[int64][]byte
}

func NewMemorySectors() *MemorySectors {
	return &MemorySectors{m: make(map[int64][]byte)}
}

func (c *MemorySectors) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[int64][]byte)
}

func (c *MemorySectors) Get(sector int64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[sector]
	return v, ok
}

func (c *MemorySectors) Put(sector int64, v []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[sector] = v
}

func (c *MemorySectors) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Run is a half-open span of sector indices [First, End).
type Run struct {
	First int64
	End   int64
}

// Len returns the number of sectors in the run.
func (r Run) Len() int64 { return r.End - r.First }

// SectorCache maps sector indices to sector contents for one resource.
// Entries are created on demand and only removed wholesale by Clear.
type SectorCache struct {
	store      SectorStore
	sectorSize int64
}

// NewSectorCache returns a cache of sectorSize-byte sectors kept in store.
// A nil store uses MemorySectors.
func NewSectorCache(store SectorStore, sectorSize int64) *SectorCache {
	if store == nil {
		store = NewMemorySectors()
	}
	return &SectorCache{store: store, sectorSize: sectorSize}
}

// SectorSize returns the sector size in bytes.
func (c *SectorCache) SectorSize() int64 { return c.sectorSize }

// Store returns the backing store.
func (c *SectorCache) Store() SectorStore { return c.store }

// Sector returns the cached bytes of sector idx.
func (c *SectorCache) Sector(idx int64) ([]byte, bool) { return c.store.Get(idx) }

// Has reports whether sector idx is cached.
func (c *SectorCache) Has(idx int64) bool {
	_, ok := c.store.Get(idx)
	return ok
}

// Len returns the number of cached sectors.
func (c *SectorCache) Len() int { return c.store.Len() }

// Clear drops every cached sector.
func (c *SectorCache) Clear() { c.store.Clear() }

// MissingRuns returns the maximal runs of consecutive uncached sectors in
// [first, end), in ascending order.
func (c *SectorCache) MissingRuns(first, end int64) []Run {
	var runs []Run
	for idx := first; idx < end; idx++ {
		if c.Has(idx) {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].End == idx {
			runs[n-1].End++
		} else {
			runs = append(runs, Run{First: idx, End: idx + 1})
		}
	}
	return runs
}

// Absorb splits run, which starts at sector start, into sector-sized entries
// and stores them, overwriting any previous entry. Only the final piece may be
// shorter than the sector size. It returns the number of sectors stored.
func (c *SectorCache) Absorb(start int64, run []byte) int {
	n := 0
	for off := 0; off < len(run); off += int(c.sectorSize) {
		end := min(off+int(c.sectorSize), len(run))
		c.store.Put(start+int64(n), run[off:end:end])
		n++
	}
	return n
}

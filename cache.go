/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

// SectorStore holds sector contents keyed by sector index.
// Implementations must be safe for concurrent use.
type SectorStore interface {
	Clear()
	Get(sector int64) ([]byte, bool)
	Put(sector int64, data []byte)
	Len() int
}

// StoreFactory builds a SectorStore once the resource length is known.
type StoreFactory func(length, sectorSize int64) (SectorStore, error)

// MemoryStore is the default StoreFactory.
func MemoryStore(_, _ int64) (SectorStore, error) {
	return NewMemorySectors(), nil
}

// MmapStore backs sectors with an anonymous memory mapping sized to the resource.
// Empty resources fall back to a memory store.
func MmapStore(length, sectorSize int64) (SectorStore, error) {
	if length == 0 {
		return NewMemorySectors(), nil
	}
	return NewMmapSectors(length, sectorSize)
}

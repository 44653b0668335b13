/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// MmapSectors is a SectorStore backed by an anonymous memory mapping the size
// of the whole resource. A bitset tracks which sectors hold valid data.
type MmapSectors struct {
	data       []byte
	length     int64
	sectorSize int64
	numSectors int64
	valid      *bitset
	mu         sync.RWMutex
}

// NewMmapSectors maps length bytes split into sectors of sectorSize.
// The final sector may be shorter than sectorSize.
func NewMmapSectors(length, sectorSize int64) (*MmapSectors, error) {
	if sectorSize <= 0 || length <= 0 {
		return nil, fmt.Errorf("httpio: invalid mmap sizes: length=%d sector=%d", length, sectorSize)
	}

	data, err := unix.Mmap(-1, 0, int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, os.NewSyscallError("mmap", err)
	}

	n := (length + sectorSize - 1) / sectorSize
	return &MmapSectors{
		data:       data,
		length:     length,
		sectorSize: sectorSize,
		numSectors: n,
		valid:      newBitset(n),
	}, nil
}

func (c *MmapSectors) bounds(sector int64) (start, end int64) {
	start = sector * c.sectorSize
	end = min(start+c.sectorSize, c.length)
	return start, end
}

// Clear invalidates all sectors but keeps the mapping.
func (c *MmapSectors) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid.reset()
}

// Get returns the sector if valid. The slice aliases the mapping.
func (c *MmapSectors) Get(sector int64) ([]byte, bool) {
	if sector < 0 || sector >= c.numSectors {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || !c.valid.get(sector) {
		return nil, false
	}
	start, end := c.bounds(sector)
	return c.data[start:end:end], true
}

// Put copies data into the sector's slot and marks it valid.
// Data of the wrong size for the sector is ignored.
func (c *MmapSectors) Put(sector int64, data []byte) {
	if sector < 0 || sector >= c.numSectors {
		return
	}
	start, end := c.bounds(sector)
	if int64(len(data)) != end-start {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		return
	}
	copy(c.data[start:end], data)
	c.valid.set(sector)
}

// Len returns the number of valid sectors.
func (c *MmapSectors) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.valid.count()
}

// Close unmaps the memory. The store is empty afterwards.
func (c *MmapSectors) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		return nil
	}
	err := unix.Munmap(c.data)
	c.data = nil
	c.valid.reset()
	if err != nil {
		return os.NewSyscallError("munmap", err)
	}
	return nil
}

// NumSectors returns the number of sector slots.
func (c *MmapSectors) NumSectors() int64 { return c.numSectors }

// SectorSize returns the sector size.
func (c *MmapSectors) SectorSize() int64 { return c.sectorSize }

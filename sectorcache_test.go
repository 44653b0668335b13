/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySectorsBasicOps(t *testing.T) {
	c := NewMemorySectors()

	c.Put(1, []byte("abc"))
	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "abc", string(v))
	assert.Equal(t, 1, c.Len())

	_, ok = c.Get(2)
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok = c.Get(1)
	assert.False(t, ok)
}

func TestMemorySectorsConcurrentAccess(t *testing.T) {
	c := NewMemorySectors()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(i int64) {
			defer wg.Done()
			c.Put(i, []byte{byte(i)})
			_, _ = c.Get(i)
		}(int64(i))
	}
	wg.Wait()
	assert.Equal(t, 16, c.Len())
}

func TestSectorCacheNilStoreUsesMemory(t *testing.T) {
	c := NewSectorCache(nil, 8)
	assert.IsType(t, &MemorySectors{}, c.Store())
	assert.Equal(t, int64(8), c.SectorSize())
}

func TestSectorCacheMissingRuns(t *testing.T) {
	c := NewSectorCache(nil, 10)
	for _, idx := range []int64{1, 3, 4, 8} {
		c.Store().Put(idx, make([]byte, 10))
	}

	assert.Equal(t, []Run{{0, 1}, {2, 3}, {5, 8}, {9, 12}}, c.MissingRuns(0, 12))
	assert.Equal(t, []Run{{5, 8}}, c.MissingRuns(3, 9))
	assert.Empty(t, c.MissingRuns(3, 5))
	assert.Empty(t, c.MissingRuns(4, 4))

	runs := c.MissingRuns(0, 12)
	var total int64
	for _, r := range runs {
		total += r.Len()
	}
	assert.Equal(t, int64(12-4), total)
}

func TestSectorCacheAbsorb(t *testing.T) {
	c := NewSectorCache(nil, 4)

	n := c.Absorb(2, []byte("abcdefghij"))
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, c.Len())

	for idx, want := range map[int64]string{2: "abcd", 3: "efgh", 4: "ij"} {
		got, ok := c.Sector(idx)
		require.True(t, ok, "sector %d", idx)
		assert.Equal(t, want, string(got))
	}
	assert.False(t, c.Has(5))
	assert.True(t, c.Has(4))

	c.Absorb(3, []byte("WXYZ"))
	got, _ := c.Sector(3)
	assert.Equal(t, "WXYZ", string(got), "absorb overwrites")

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestSectorCacheAbsorbDoesNotShareCapacity(t *testing.T) {
	c := NewSectorCache(nil, 4)
	c.Absorb(0, []byte("abcdefgh"))

	first, _ := c.Sector(0)
	_ = append(first, 'X')
	second, _ := c.Sector(1)
	assert.Equal(t, "efgh", string(second))
}

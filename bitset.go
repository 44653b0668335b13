/* SPDX-License-Identifier: BSD-2-Clause */

package httpio

import "math/bits"

type bitset struct {
	bits []uint64
}

func newBitset(n int64) *bitset {
	return &bitset{bits: make([]uint64, (n+63)/64)}
}

func (b *bitset) set(i int64) {
	b.bits[i/64] |= 1 << (i % 64)
}

func (b *bitset) get(i int64) bool {
	return (b.bits[i/64]>>(i%64))&1 != 0
}

func (b *bitset) reset() {
	clear(b.bits)
}

func (b *bitset) count() int {
	n := 0
	for _, w := range b.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

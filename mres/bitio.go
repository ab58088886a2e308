package mres

import (
	"io"

	"github.com/bits-and-blooms/bitset"
)

// packBits stores the first n bits of b, one bit per sample, LSB first.
func packBits(b *bitset.BitSet, n uint) []byte {
	out := make([]byte, (n+7)/8)
	for i, ok := b.NextSet(0); ok && i < n; i, ok = b.NextSet(i + 1) {
		out[i>>3] |= 1 << (i & 7)
	}
	return out
}

func unpackBits(data []byte, n uint) (*bitset.BitSet, error) {
	if uint(len(data)) < (n+7)/8 {
		return nil, io.ErrUnexpectedEOF
	}
	b := bitset.New(n)
	for i := uint(0); i < n; i++ {
		if data[i>>3]&(1<<(i&7)) != 0 {
			b.Set(i)
		}
	}
	return b, nil
}

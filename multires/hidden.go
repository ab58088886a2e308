package multires

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// HiddenBitmap marks hidden grid samples, row-major y*side+x.
type HiddenBitmap = bitset.BitSet

// NewHiddenBitmap returns a bitmap sized for level with every sample set to hidden.
func NewHiddenBitmap(level int, hidden bool) *HiddenBitmap {
	area := GridArea(level)
	b := bitset.New(uint(area))
	if hidden {
		for i := 0; i < area; i++ {
			b.Set(uint(i))
		}
	}
	return b
}

// UpsampleHidden expands lo (at loLevel) to hiLevel. Every low sample is written
// into the ±offset neighbourhood around its position on the fine lattice. When
// prev (at hiLevel) is given it is the starting point and only the samples that
// disagree with the low value are rewritten. Panics when loLevel > hiLevel.
func UpsampleHidden(lo *HiddenBitmap, loLevel, hiLevel int, prev *HiddenBitmap) *HiddenBitmap {
	if loLevel > hiLevel {
		panic(fmt.Sprintf("multires: upsample hidden from level %d to lower level %d", loLevel, hiLevel))
	}
	if loLevel == hiLevel {
		return lo.Clone()
	}

	hiSize := GridSize(hiLevel)
	loSize := GridSize(loLevel)
	var subd *HiddenBitmap
	if prev != nil {
		subd = prev.Clone()
	} else {
		subd = bitset.New(uint(hiSize * hiSize))
	}
	factor := mustFactor(loLevel, hiLevel)
	offset := 1 << (hiLevel - loLevel - 1)

	for yl := 0; yl < loSize; yl++ {
		for xl := 0; xl < loSize; xl++ {
			loVal := lo.Test(uint(yl*loSize + xl))

			for yo := -offset; yo <= offset; yo++ {
				yh := yl*factor + yo
				if yh < 0 || yh >= hiSize {
					continue
				}
				for xo := -offset; xo <= offset; xo++ {
					xh := xl*factor + xo
					if xh < 0 || xh >= hiSize {
						continue
					}
					ndx := uint(yh*hiSize + xh)
					if prev == nil || prev.Test(ndx) != loVal {
						subd.SetTo(ndx, loVal)
					}
				}
			}
		}
	}
	return subd
}

// DownsampleHidden point-samples hi (at hiLevel) down to loLevel. Information
// between lattice samples is lost.
func DownsampleHidden(hi *HiddenBitmap, hiLevel, loLevel int) *HiddenBitmap {
	if loLevel > hiLevel {
		panic(fmt.Sprintf("multires: downsample hidden from level %d to higher level %d", hiLevel, loLevel))
	}
	newSize := GridSize(loLevel)
	oldSize := GridSize(hiLevel)
	factor := mustFactor(loLevel, hiLevel)
	out := bitset.New(uint(newSize * newSize))
	for y := 0; y < newSize; y++ {
		for x := 0; x < newSize; x++ {
			out.SetTo(uint(y*newSize+x), hi.Test(uint(factor*y*oldSize+x*factor)))
		}
	}
	return out
}

// SubdivideHidden upsamples d.Hidden in place when the grid is below newLevel.
// d.Level must describe the current resolution of d.Hidden.
func SubdivideHidden(d *Disps, newLevel int) {
	if d.Hidden == nil || d.Level >= newLevel {
		return
	}
	d.Hidden = UpsampleHidden(d.Hidden, d.Level, newLevel, nil)
}

// Package subdiv builds evaluation cages: per face-corner grids of positions,
// normals and paint-mask samples derived from a base mesh at a given level.
package subdiv

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"gonum.org/v1/gonum/spatial/r3"
)

// Elem is one grid sample.
type Elem struct {
	Co   r3.Vec
	No   r3.Vec
	Mask float32
}

// Key describes the layout shared by every grid of a cage.
type Key struct {
	Level    int
	GridSize int
	GridArea int
	HasMask  bool
}

// Side returns the grid side length at a level (1 + 2^(level-1)).
func Side(level int) int {
	if level < 1 {
		return 0
	}
	return 1<<(level-1) + 1
}

// Cage is a transient subdivided surface organised as one square grid per mesh loop.
// Grid g belongs to the poly p with offsets[p] <= g < offsets[p]+polyLen[p].
type Cage struct {
	key     Key
	grids   [][]Elem
	offsets []int
	polyLen []int
	faceNo  []r3.Vec

	// Hidden holds one bitmap per grid at the cage level; nil means nothing hidden.
	Hidden []*bitset.BitSet
}

// NewCage allocates an empty cage for polys with the given corner counts.
func NewCage(level int, polyLen []int, withMask bool) (*Cage, error) {
	if level < 1 {
		return nil, fmt.Errorf("subdiv: cage level %d has no grids", level)
	}
	side := Side(level)
	c := &Cage{
		key:     Key{Level: level, GridSize: side, GridArea: side * side, HasMask: withMask},
		offsets: make([]int, len(polyLen)),
		polyLen: append([]int(nil), polyLen...),
		faceNo:  make([]r3.Vec, len(polyLen)),
	}
	n := 0
	for p, l := range polyLen {
		c.offsets[p] = n
		n += l
	}
	c.grids = make([][]Elem, n)
	for g := range c.grids {
		c.grids[g] = make([]Elem, side*side)
	}
	c.Hidden = make([]*bitset.BitSet, n)
	return c, nil
}

func (c *Cage) GridData() [][]Elem { return c.grids }
func (c *Cage) GridSize() int      { return c.key.GridSize }
func (c *Cage) GridOffset() []int  { return c.offsets }
func (c *Cage) GridKey() Key       { return c.key }
func (c *Cage) NumGrids() int      { return len(c.grids) }
func (c *Cage) NumFaces() int      { return len(c.offsets) }
func (c *Cage) Level() int         { return c.key.Level }

// FaceLen is the number of grids (corners) of face p.
func (c *Cage) FaceLen(p int) int { return c.polyLen[p] }

// At returns the sample (x, y) of grid g.
func (c *Cage) At(g, x, y int) *Elem {
	return &c.grids[g][y*c.key.GridSize+x]
}

// CopyGrids returns a deep copy of the grid samples, typically kept as a reference basis.
func (c *Cage) CopyGrids() [][]Elem {
	out := make([][]Elem, len(c.grids))
	for g, grid := range c.grids {
		out[g] = append([]Elem(nil), grid...)
	}
	return out
}

// Clone returns an independent copy of the cage including hidden state.
func (c *Cage) Clone() *Cage {
	d := &Cage{
		key:     c.key,
		grids:   c.CopyGrids(),
		offsets: append([]int(nil), c.offsets...),
		polyLen: append([]int(nil), c.polyLen...),
		faceNo:  append([]r3.Vec(nil), c.faceNo...),
		Hidden:  make([]*bitset.BitSet, len(c.Hidden)),
	}
	for g, h := range c.Hidden {
		if h != nil {
			d.Hidden[g] = h.Clone()
		}
	}
	return d
}

// UpdateNormals recomputes per-sample normals from the grid tangents.
// Degenerate samples fall back to the face normal.
func (c *Cage) UpdateNormals() {
	n := c.key.GridSize
	for p, off := range c.offsets {
		for s := 0; s < c.polyLen[p]; s++ {
			grid := c.grids[off+s]
			for y := 0; y < n; y++ {
				for x := 0; x < n; x++ {
					tu := diff(grid, n, x, y, 0)
					tv := diff(grid, n, x, y, 1)
					no := r3.Cross(tu, tv)
					if r3.Norm(no) < 1e-12 {
						no = c.faceNo[p]
					} else {
						no = r3.Unit(no)
					}
					grid[y*n+x].No = no
				}
			}
		}
	}
}

// diff is a one-sided difference along axis, forward on the low border.
func diff(grid []Elem, n, x, y, axis int) r3.Vec {
	if axis == 0 {
		if x == 0 {
			return r3.Sub(grid[y*n+x+1].Co, grid[y*n+x].Co)
		}
		return r3.Sub(grid[y*n+x].Co, grid[y*n+x-1].Co)
	}
	if y == 0 {
		return r3.Sub(grid[(y+1)*n+x].Co, grid[y*n+x].Co)
	}
	return r3.Sub(grid[y*n+x].Co, grid[(y-1)*n+x].Co)
}

// CopyGrid copies samples between grids of different resolution. Coarse to fine
// writes the coarse samples at stride into dst and leaves the rest untouched; fine
// to coarse point-samples src at stride.
func CopyGrid(dst, src []Elem, dstSize, srcSize int) {
	if dstSize > srcSize {
		skip := (dstSize - 1) / (srcSize - 1)
		j := 0
		for y := 0; y < srcSize; y++ {
			for x := 0; x < srcSize; x++ {
				dst[y*skip*dstSize+x*skip] = src[j]
				j++
			}
		}
		return
	}
	skip := (srcSize - 1) / (dstSize - 1)
	j := 0
	for y := 0; y < dstSize; y++ {
		for x := 0; x < dstSize; x++ {
			dst[j] = src[y*skip*srcSize+x*skip]
			j++
		}
	}
}

// CopyCageGrids writes every grid of src into the matching grid of dst.
func CopyCageGrids(dst, src *Cage) error {
	if dst.NumGrids() != src.NumGrids() {
		return fmt.Errorf("subdiv: copy between cages with %d and %d grids", dst.NumGrids(), src.NumGrids())
	}
	for g := range dst.grids {
		CopyGrid(dst.grids[g], src.grids[g], dst.key.GridSize, src.key.GridSize)
	}
	return nil
}

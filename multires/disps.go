package multires

import (
	"github.com/voxelsplace/multires/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Disps is the displacement grid of one mesh loop. Disps is nil while the grid is
// unallocated; otherwise len(Disps) == TotDisp == GridArea(Level).
type Disps struct {
	Disps   []r3.Vec
	TotDisp int
	Level   int
	Hidden  *HiddenBitmap
}

// Allocated reports whether the grid holds vectors matching its metadata.
func (d *Disps) Allocated() bool {
	return d.Disps != nil && len(d.Disps) == d.TotDisp
}

// reallocate replaces the vectors with a zeroed grid at level. A hidden bitmap
// recorded at an earlier level follows the new resolution.
func (d *Disps) reallocate(level int) {
	if d.Level != 0 && d.Hidden != nil {
		switch {
		case d.Level < level:
			SubdivideHidden(d, level)
		case d.Level > level:
			d.Hidden = DownsampleHidden(d.Hidden, d.Level, level)
		}
	}
	d.Disps = make([]r3.Vec, GridArea(level))
	d.TotDisp = len(d.Disps)
	d.Level = level
}

// Layer is the per-loop displacement custom data of a mesh.
type Layer struct {
	Disps []Disps
	// Masks is nil when the mesh has no paint-mask layer.
	Masks []GridPaintMask
	// External is set when the vectors are paged from an ExternalSource.
	External *ExternalRef
}

// NewLayer returns an empty layer for numLoops loops.
func NewLayer(numLoops int) *Layer {
	return &Layer{Disps: make([]Disps, numLoops)}
}

// InitHidden creates a layer for m. Loops of faces that touch a hidden vertex get
// a fully hidden bitmap sized for level; all others get none.
func InitHidden(m *mesh.Mesh, level int) *Layer {
	l := NewLayer(m.NumLoops())
	for _, p := range m.Polys {
		hide := false
		for j := 0; j < p.TotLoop; j++ {
			if m.Verts[m.Loops[p.LoopStart+j].V].Hidden {
				hide = true
				break
			}
		}
		if !hide {
			continue
		}
		for j := 0; j < p.TotLoop; j++ {
			l.Disps[p.LoopStart+j].Hidden = NewHiddenBitmap(level, true)
		}
	}
	return l
}

// Reallocate gives every grid fresh zeroed vectors at level.
func (l *Layer) Reallocate(level int) {
	for i := range l.Disps {
		l.Disps[i].reallocate(level)
	}
}

// reallocateMissing reallocates only grids that are unallocated or sized for
// another level. Returns the number of grids touched.
func (l *Layer) reallocateMissing(level int) int {
	n := 0
	area := GridArea(level)
	for i := range l.Disps {
		d := &l.Disps[i]
		if d.Disps == nil || len(d.Disps) != area {
			d.reallocate(level)
			n++
		}
	}
	return n
}

// SetTotDisps rewrites the level metadata of every grid without touching vectors.
func (l *Layer) SetTotDisps(level int) {
	area := GridArea(level)
	for i := range l.Disps {
		l.Disps[i].TotDisp = area
		l.Disps[i].Level = level
	}
}

// EnsureMasks adds a paint-mask layer if the layer has none.
func (l *Layer) EnsureMasks() {
	if l.Masks == nil {
		l.Masks = make([]GridPaintMask, len(l.Disps))
	}
}

// HiddenCount is the number of hidden samples across all grids.
func (l *Layer) HiddenCount() int {
	n := 0
	for i := range l.Disps {
		if h := l.Disps[i].Hidden; h != nil {
			n += int(h.Count())
		}
	}
	return n
}

// LevelsFromDisps recovers the stored level from the first allocated grid's
// sample count. Returns 0 when nothing is allocated or the count is unknown.
func LevelsFromDisps(m *mesh.Mesh, l *Layer) int {
	if l == nil {
		return 0
	}
	for _, p := range m.Polys {
		for j := 0; j < p.TotLoop; j++ {
			d := &l.Disps[p.LoopStart+j]
			if d.TotDisp == 0 {
				continue
			}
			level, ok := LevelFromArea(d.TotDisp)
			if !ok {
				Logger().Warn("multires: unknown grid area", "loop", p.LoopStart+j, "totdisp", d.TotDisp)
				return 0
			}
			return level
		}
	}
	return 0
}

// MDispCorners is the number of corner grids packed into d, derived from TotDisp.
func MDispCorners(d *Disps) int {
	for lvl := MaxLevels; lvl > 0; lvl-- {
		side := 1<<(lvl-1) + 1
		if d.TotDisp%(side*side) == 0 {
			return d.TotDisp / (side * side)
		}
	}
	return 0
}

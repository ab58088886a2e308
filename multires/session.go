package multires

import (
	"math"

	"github.com/voxelsplace/multires/subdiv"
	"gonum.org/v1/gonum/spatial/r3"
)

// ModifiedFlags records what a sculpt stroke changed in the session cage.
type ModifiedFlags uint8

const (
	CoordsModified ModifiedFlags = 1 << iota
	HiddenModified
)

// SculptSession is the state of an object being sculpted: the displaced cage at
// the sculpt level and a lazily built per-grid bounds index over it.
type SculptSession struct {
	Grids *subdiv.Cage
	Dirty ModifiedFlags
	// Rebuilds counts how often the bounds index was torn down.
	Rebuilds int

	bounds []r3.Box
}

// Bounds returns the per-grid bounding boxes, building them on first use.
func (ss *SculptSession) Bounds() []r3.Box {
	if ss.bounds != nil || ss.Grids == nil {
		return ss.bounds
	}
	ss.bounds = make([]r3.Box, ss.Grids.NumGrids())
	for g, grid := range ss.Grids.GridData() {
		b := r3.Box{
			Min: r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
			Max: r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
		}
		for _, e := range grid {
			b.Min = r3.Vec{X: math.Min(b.Min.X, e.Co.X), Y: math.Min(b.Min.Y, e.Co.Y), Z: math.Min(b.Min.Z, e.Co.Z)}
			b.Max = r3.Vec{X: math.Max(b.Max.X, e.Co.X), Y: math.Max(b.Max.Y, e.Co.Y), Z: math.Max(b.Max.Z, e.Co.Z)}
		}
		ss.bounds[g] = b
	}
	return ss.bounds
}

// GridsNear returns the grids whose bounds contain p within radius.
func (ss *SculptSession) GridsNear(p r3.Vec, radius float64) []int {
	var out []int
	for g, b := range ss.Bounds() {
		if p.X+radius < b.Min.X || p.X-radius > b.Max.X ||
			p.Y+radius < b.Min.Y || p.Y-radius > b.Max.Y ||
			p.Z+radius < b.Min.Z || p.Z-radius > b.Max.Z {
			continue
		}
		out = append(out, g)
	}
	return out
}

func (ss *SculptSession) invalidate() {
	ss.bounds = nil
	ss.Rebuilds++
}

// MarkModified flags the sculpt cage of ob as changed.
func MarkModified(ob *Object, flags ModifiedFlags) {
	if ob == nil || ob.Sculpt == nil || ob.Sculpt.Grids == nil {
		return
	}
	ob.Sculpt.Dirty |= flags
}

// BeginSculpt enters sculpt mode and builds the session cage at the sculpt level.
func (o *Orchestrator) BeginSculpt(ob *Object) error {
	ob.Mode = ModeSculpt
	cage, err := o.Evaluate(ob, EvalContext{IgnoreSimplify: true})
	if err != nil {
		return err
	}
	ob.Sculpt = &SculptSession{Grids: cage}
	return nil
}

// EndSculpt flushes pending edits and leaves sculpt mode.
func (o *Orchestrator) EndSculpt(ob *Object) error {
	err := o.FlushSculptUpdates(ob)
	ob.Sculpt = nil
	ob.Mode = ModeObject
	return err
}

// FlushSculptUpdates writes dirty sculpt state back into the displacement layer.
func (o *Orchestrator) FlushSculptUpdates(ob *Object) error {
	if ob == nil || ob.Sculpt == nil || ob.Sculpt.Grids == nil || ob.Modifier == nil {
		return nil
	}
	ss := ob.Sculpt
	if ss.Dirty == 0 {
		return nil
	}
	if ss.Dirty&CoordsModified != 0 {
		if err := o.UpdateDisplacements(ob, ss.Grids); err != nil {
			return err
		}
	}
	if ss.Dirty&HiddenModified != 0 {
		o.UpdateHidden(ob, ss.Grids)
	}
	ss.Dirty = 0
	return nil
}

// ForceSculptRebuild flushes the session and drops its bounds index.
func (o *Orchestrator) ForceSculptRebuild(ob *Object) error {
	err := o.FlushSculptUpdates(ob)
	if ob == nil || ob.Sculpt == nil {
		return err
	}
	ob.Sculpt.invalidate()
	return err
}

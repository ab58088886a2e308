package multires

import (
	"fmt"
	"log/slog"

	"github.com/voxelsplace/multires/subdiv"
	"gonum.org/v1/gonum/spatial/r3"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for level transitions. Defaults to Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithSubdivider replaces the cage subdivider. Defaults to subdiv.Simple.
func WithSubdivider(s subdiv.Subdivider) Option {
	return func(o *Orchestrator) { o.subdivider = s }
}

// WithWorkers bounds the number of concurrent evaluator tasks.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) { o.eval.Workers = n }
}

// WithMinFacesPerTask sets the smallest per-task face count.
func WithMinFacesPerTask(n int) Option {
	return func(o *Orchestrator) { o.eval.MinFacesPerTask = n }
}

// WithExternalSource sets where external displacement layers are read from.
func WithExternalSource(src ExternalSource) Option {
	return func(o *Orchestrator) { o.external = src }
}

// Orchestrator drives level transitions of multires objects. Every operation runs
// to completion on the calling goroutine; only the per-face evaluation fans out.
type Orchestrator struct {
	subdivider subdiv.Subdivider
	eval       *Evaluator
	external   ExternalSource
	log        *slog.Logger
}

// New returns an Orchestrator with the simple subdivider and default evaluator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		subdivider: subdiv.Simple{},
		eval:       &Evaluator{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.log != nil {
		return o.log
	}
	return Logger()
}

// Evaluator exposes the displacement evaluator used by o.
func (o *Orchestrator) Evaluator() *Evaluator { return o.eval }

// AddModifier gives ob a multires modifier if it has none.
func AddModifier(ob *Object) *Modifier {
	if ob.Modifier == nil {
		ob.Modifier = &Modifier{}
	}
	return ob.Modifier
}

func layerAllocated(l *Layer) bool {
	for i := range l.Disps {
		if l.Disps[i].Disps != nil {
			return true
		}
	}
	return false
}

// SubdivideOneLevel adds one level to ob.
func (o *Orchestrator) SubdivideOneLevel(ob *Object) error {
	if ob.Modifier == nil {
		return nil
	}
	return o.SubdivideToLevel(ob, ob.Modifier.TotLvl+1)
}

// SubdivideToLevel raises the stored level of ob to totlvl. Existing detail is
// carried over by refining the displaced cage at the current level and capturing
// it against the undisplaced cage at the new level. Levels above MaxLevels and
// meshes without faces are ignored.
func (o *Orchestrator) SubdivideToLevel(ob *Object, totlvl int) error {
	mmd := ob.Modifier
	if mmd == nil {
		return nil
	}
	lvl := mmd.TotLvl
	if totlvl > MaxLevels || len(ob.Mesh.Polys) == 0 {
		o.logger().Debug("multires: subdivide ignored", "object", ob.Name, "level", totlvl, "faces", len(ob.Mesh.Polys))
		return nil
	}
	if totlvl <= lvl {
		return nil
	}

	if err := o.ForceSculptRebuild(ob); err != nil {
		return err
	}
	if ob.Layer == nil {
		ob.Layer = InitHidden(ob.Mesh, totlvl)
	} else if lvl != 0 {
		if err := o.EnsureExternalRead(MeshTarget{ob}, lvl); err != nil {
			return fmt.Errorf("subdivide: %w", err)
		}
	}

	if lvl != 0 && layerAllocated(ob.Layer) {
		hasMask := ob.Layer.Masks != nil
		high, err := o.subdivider.Subdivide(ob.Mesh, totlvl, hasMask)
		if err != nil {
			return fmt.Errorf("subdivide: %w", err)
		}
		ref := high.CopyGrids()

		low, err := o.displacedCage(ob, lvl, lvl, hasMask)
		if err != nil {
			return fmt.Errorf("subdivide: %w", err)
		}
		if err := subdiv.CopyCageGrids(high, low); err != nil {
			return fmt.Errorf("subdivide: %w", err)
		}
		if err := o.subdivider.Refine(high, lvl); err != nil {
			return fmt.Errorf("subdivide: %w", err)
		}

		ob.Layer.Reallocate(totlvl)
		if err := o.eval.Run(high, MeshTarget{ob}, CalcDisplacements, ref, totlvl); err != nil {
			return fmt.Errorf("subdivide: %w", err)
		}
	} else {
		ob.Layer.Reallocate(totlvl)
	}

	SetTotLevel(ob, mmd, totlvl)
	levelTransitions.WithLabelValues("subdivide").Inc()
	o.logger().Debug("multires: subdivided", "object", ob.Name, "from", lvl, "to", totlvl, "grids", len(ob.Layer.Disps))
	return o.refreshSession(ob)
}

// displacedCage builds the cage of ob at lvl with the displacement stored at
// totlvl applied.
func (o *Orchestrator) displacedCage(ob *Object, lvl, totlvl int, withMask bool) (*subdiv.Cage, error) {
	cage, err := o.subdivider.Subdivide(ob.Mesh, lvl, withMask)
	if err != nil {
		return nil, err
	}
	if ob.Layer == nil {
		return cage, nil
	}
	if err := o.EnsureExternalRead(MeshTarget{ob}, totlvl); err != nil {
		return nil, err
	}
	if err := o.eval.Run(cage, MeshTarget{ob}, ApplyDisplacements, nil, totlvl); err != nil {
		return nil, err
	}
	return cage, nil
}

// Evaluate builds the displaced surface of ob at the level ctx selects, with the
// stored hidden state brought down to that level. Returns nil at level 0.
func (o *Orchestrator) Evaluate(ob *Object, ctx EvalContext) (*subdiv.Cage, error) {
	mmd := ob.Modifier
	if mmd == nil {
		return nil, nil
	}
	lvl := GetLevel(ob, mmd, ctx)
	if lvl == 0 {
		return nil, nil
	}
	withMask := ob.Layer != nil && ob.Layer.Masks != nil
	cage, err := o.displacedCage(ob, lvl, mmd.TotLvl, withMask)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", ob.Name, err)
	}
	if ob.Layer != nil {
		outputHidden(cage, ob, lvl)
	}
	return cage, nil
}

func outputHidden(cage *subdiv.Cage, ob *Object, lvl int) {
	offsets := cage.GridOffset()
	for p, poly := range ob.Mesh.Polys {
		for s := 0; s < poly.TotLoop; s++ {
			d := &ob.Layer.Disps[poly.LoopStart+s]
			if d.Hidden == nil || d.Level == 0 {
				continue
			}
			g := offsets[p] + s
			if d.Level >= lvl {
				cage.Hidden[g] = DownsampleHidden(d.Hidden, d.Level, lvl)
			} else {
				cage.Hidden[g] = UpsampleHidden(d.Hidden, d.Level, lvl, nil)
			}
		}
	}
}

// refreshSession rebuilds the sculpt cage after the stored levels changed.
func (o *Orchestrator) refreshSession(ob *Object) error {
	if ob.Sculpt == nil {
		return nil
	}
	ob.Sculpt.invalidate()
	cage, err := o.Evaluate(ob, EvalContext{IgnoreSimplify: true})
	if err != nil {
		return err
	}
	ob.Sculpt.Grids = cage
	ob.Sculpt.Dirty = 0
	return nil
}

// DeleteHigherLevels drops every level above lvl. Displacements, hidden bitmaps
// and paint masks are point-sampled down; lvl 0 removes the layer.
func (o *Orchestrator) DeleteHigherLevels(ob *Object, lvl int) error {
	mmd := ob.Modifier
	if mmd == nil {
		return nil
	}
	if lvl < 0 || lvl > MaxLevels {
		return fmt.Errorf("delete higher than %d: %w", lvl, ErrLevelOutOfRange)
	}
	totlvl := mmd.TotLvl
	if lvl >= totlvl {
		return nil
	}
	l := ob.Layer
	if l != nil {
		l.SetTotDisps(totlvl)
		if err := o.EnsureExternalRead(MeshTarget{ob}, totlvl); err != nil {
			return err
		}
	}
	if err := o.ForceSculptRebuild(ob); err != nil {
		return err
	}

	if l != nil && totlvl > lvl {
		if lvl > 0 {
			o.downsampleLayer(ob, totlvl, lvl)
		} else {
			CustomDataDelete(MeshTarget{ob})
		}
	}

	SetTotLevel(ob, mmd, lvl)
	levelTransitions.WithLabelValues("delete_higher").Inc()
	o.logger().Debug("multires: deleted higher levels", "object", ob.Name, "from", totlvl, "to", lvl)
	return o.refreshSession(ob)
}

func (o *Orchestrator) downsampleLayer(ob *Object, totlvl, lvl int) {
	l := ob.Layer
	nsize, hsize := GridSize(lvl), GridSize(totlvl)
	area := GridArea(lvl)
	for _, poly := range ob.Mesh.Polys {
		for j := 0; j < poly.TotLoop; j++ {
			g := poly.LoopStart + j
			d := &l.Disps[g]
			disps := make([]r3.Vec, area)
			if len(d.Disps) == hsize*hsize {
				CopyGrid(disps, d.Disps, nsize, hsize)
			}
			if d.Hidden != nil && d.Hidden.Len() == uint(hsize*hsize) {
				d.Hidden = DownsampleHidden(d.Hidden, totlvl, lvl)
			}
			d.Disps = disps
			d.TotDisp = area
			d.Level = lvl
			if l.Masks != nil {
				l.Masks[g].downsample(lvl)
			}
		}
	}
}

// DeleteLevels deletes every level above the one ob currently displays.
func (o *Orchestrator) DeleteLevels(ob *Object) error {
	mmd := ob.Modifier
	if mmd == nil {
		return nil
	}
	lvl := GetLevel(ob, mmd, EvalContext{IgnoreSimplify: true})
	if ob.Layer != nil && mmd.TotLvl > lvl {
		return o.DeleteHigherLevels(ob, lvl)
	}
	SetTotLevel(ob, mmd, lvl)
	return nil
}

// SyncLevelsEx brings dst to the total level of src.
func (o *Orchestrator) SyncLevelsEx(dst *Object, src *Modifier) error {
	mmd := dst.Modifier
	if mmd == nil || src.TotLvl == mmd.TotLvl {
		return nil
	}
	if src.TotLvl > mmd.TotLvl {
		return o.SubdivideToLevel(dst, src.TotLvl)
	}
	return o.DeleteHigherLevels(dst, src.TotLvl)
}

// SyncLevels matches the levels of dst to src. A source without a modifier loses
// any stray displacement layer, since it cannot be resampled without levels.
func (o *Orchestrator) SyncLevels(src, dst *Object) error {
	if src.Modifier == nil {
		CustomDataDelete(MeshTarget{src})
		return nil
	}
	return o.SyncLevelsEx(dst, src.Modifier)
}

// PrepareJoin readies ob to be merged into to: levels are synced to to's and the
// displacements are rescaled by scale(ob)·scale(to)⁻¹.
func (o *Orchestrator) PrepareJoin(ob, to *Object) error {
	if err := o.SyncLevels(to, ob); err != nil {
		return err
	}
	tinv, ok := ScaleMat(to.Scale).Inverse()
	if !ok {
		o.logger().Warn("multires: join target has a degenerate scale", "object", to.Name)
		return nil
	}
	return o.ScaleDisplacement(ob, ScaleMat(ob.Scale).Mul(tinv))
}

// ApplyObjectScale scales the displacements of ob by its object scale.
func (o *Orchestrator) ApplyObjectScale(ob *Object) error {
	return o.ScaleDisplacement(ob, ScaleMat(ob.Scale))
}

// ScaleDisplacement multiplies every stored vector by the scale of smat.
// Non-uniform matrices are reduced to the same scalar approximation. A live
// sculpt session is flushed first and rebuilt from the scaled layer.
func (o *Orchestrator) ScaleDisplacement(ob *Object, smat Mat3) error {
	mmd := ob.Modifier
	if mmd == nil || mmd.TotLvl == 0 {
		return nil
	}
	if err := o.ForceSculptRebuild(ob); err != nil {
		return err
	}
	if err := o.EnsureExternalRead(MeshTarget{ob}, mmd.TotLvl); err != nil {
		return err
	}
	if ob.Layer == nil {
		return nil
	}
	scale := smat.ToScale()
	if !smat.IsUniformScaled() {
		o.logger().Debug("multires: non-uniform scale approximated", "object", ob.Name, "scale", scale)
	}
	applyUniformScale(ob.Layer, scale)
	return o.refreshSession(ob)
}

func applyUniformScale(l *Layer, scale float64) {
	for i := range l.Disps {
		for j := range l.Disps[i].Disps {
			l.Disps[i].Disps[j] = r3.Scale(scale, l.Disps[i].Disps[j])
		}
	}
}

// TopologyChanged gives loops added by a topology edit a zeroed grid sized like
// the existing ones.
func (o *Orchestrator) TopologyChanged(ob *Object) error {
	l := ob.Layer
	if l == nil {
		return nil
	}
	if l.External != nil {
		if err := o.readExternal(l); err != nil {
			return err
		}
	}

	n := ob.Mesh.NumLoops()
	switch {
	case len(l.Disps) < n:
		l.Disps = append(l.Disps, make([]Disps, n-len(l.Disps))...)
	case len(l.Disps) > n:
		l.Disps = l.Disps[:n]
	}
	if l.Masks != nil {
		switch {
		case len(l.Masks) < n:
			l.Masks = append(l.Masks, make([]GridPaintMask, n-len(l.Masks))...)
		case len(l.Masks) > n:
			l.Masks = l.Masks[:n]
		}
	}

	grid := 0
	for i := range l.Disps {
		if l.Disps[i].TotDisp != 0 {
			grid = l.Disps[i].TotDisp
			break
		}
	}
	if grid == 0 {
		return nil
	}
	level, _ := LevelFromArea(grid)
	for i := range l.Disps {
		d := &l.Disps[i]
		if d.TotDisp == 0 || d.Disps == nil {
			d.TotDisp = grid
			d.Level = level
			d.Disps = make([]r3.Vec, grid)
		}
	}
	return nil
}

package multires

import (
	"fmt"

	"github.com/voxelsplace/multires/subdiv"
	"gonum.org/v1/gonum/spatial/r3"
)

// UpdateDisplacements captures an edited cage of ob back into its displacement
// layer. A cage below the stored level contributes its difference to the
// displaced cage at its own level, refined up and added on top of the stored
// detail. A cage at the stored level is captured directly against a fresh
// undisplaced reference.
func (o *Orchestrator) UpdateDisplacements(ob *Object, edited *subdiv.Cage) error {
	mmd := ob.Modifier
	l := ob.Layer
	if mmd == nil || l == nil || edited == nil {
		return nil
	}
	totlvl := mmd.TotLvl
	l.SetTotDisps(totlvl)
	if err := o.EnsureExternalRead(MeshTarget{ob}, totlvl); err != nil {
		return err
	}
	hasMask := l.Masks != nil
	lvl := edited.Level()

	if lvl < totlvl {
		high, err := o.subdivider.Subdivide(ob.Mesh, totlvl, hasMask)
		if err != nil {
			return fmt.Errorf("update displacements: %w", err)
		}
		ref := high.CopyGrids()

		low, err := o.displacedCage(ob, lvl, totlvl, hasMask)
		if err != nil {
			return fmt.Errorf("update displacements: %w", err)
		}
		if low.NumGrids() != edited.NumGrids() {
			return fmt.Errorf("update displacements: edited cage has %d grids, mesh has %d", edited.NumGrids(), low.NumGrids())
		}

		lowGrids, editGrids, highGrids := low.GridData(), edited.GridData(), high.GridData()
		diff := make([]subdiv.Elem, low.GridKey().GridArea)
		for g := range highGrids {
			for j := range diff {
				diff[j] = subdiv.Elem{Co: r3.Sub(editGrids[g][j].Co, lowGrids[g][j].Co)}
				if hasMask && edited.GridKey().HasMask {
					diff[j].Mask = editGrids[g][j].Mask - lowGrids[g][j].Mask
				}
			}
			subdiv.CopyGrid(highGrids[g], diff, high.GridSize(), low.GridSize())
		}

		if err := o.subdivider.Refine(high, lvl); err != nil {
			return fmt.Errorf("update displacements: %w", err)
		}
		if err := o.eval.Run(high, MeshTarget{ob}, AddDisplacements, ref, totlvl); err != nil {
			return fmt.Errorf("update displacements: %w", err)
		}
	} else {
		ref, err := o.subdivider.Subdivide(ob.Mesh, totlvl, hasMask)
		if err != nil {
			return fmt.Errorf("update displacements: %w", err)
		}
		if err := o.eval.Run(edited, MeshTarget{ob}, CalcDisplacements, ref.GridData(), totlvl); err != nil {
			return fmt.Errorf("update displacements: %w", err)
		}
	}
	levelTransitions.WithLabelValues("update").Inc()
	return nil
}

// UpdateHidden writes the per-grid hidden state of cage into the stored bitmaps
// at the total level. Grids the cage no longer hides lose their bitmap.
func (o *Orchestrator) UpdateHidden(ob *Object, cage *subdiv.Cage) {
	mmd := ob.Modifier
	l := ob.Layer
	if mmd == nil || l == nil || cage == nil {
		return
	}
	lvl, totlvl := cage.Level(), mmd.TotLvl
	offsets := cage.GridOffset()
	area := uint(GridArea(totlvl))

	for p, poly := range ob.Mesh.Polys {
		for s := 0; s < poly.TotLoop; s++ {
			d := &l.Disps[poly.LoopStart+s]
			gh := cage.Hidden[offsets[p]+s]
			switch {
			case gh == nil:
				d.Hidden = nil
			default:
				var prev *HiddenBitmap
				if d.Hidden != nil && d.Hidden.Len() == area {
					prev = d.Hidden
				}
				d.Hidden = UpsampleHidden(gh, lvl, totlvl, prev)
			}
		}
	}
}

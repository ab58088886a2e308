package multires

import (
	"fmt"

	"github.com/voxelsplace/multires/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Target names the backing that owns a displacement layer: the object's mesh
// or an edit mesh. Implemented by MeshTarget and EditTarget only.
type Target interface {
	baseMesh() *mesh.Mesh
	layer() *Layer
	setLayer(*Layer)
}

// MeshTarget is the regular object-data backing.
type MeshTarget struct{ Object *Object }

// EditTarget is the edit-mode backing with its own loop data.
type EditTarget struct{ Edit *EditMesh }

func (t MeshTarget) baseMesh() *mesh.Mesh { return t.Object.Mesh }
func (t MeshTarget) layer() *Layer        { return t.Object.Layer }
func (t MeshTarget) setLayer(l *Layer)    { t.Object.Layer = l }

func (t EditTarget) baseMesh() *mesh.Mesh { return t.Edit.Mesh }
func (t EditTarget) layer() *Layer        { return t.Edit.Layer }
func (t EditTarget) setLayer(l *Layer)    { t.Edit.Layer = l }

// EditMesh is the in-place editing representation of an object's mesh.
type EditMesh struct {
	Mesh  *mesh.Mesh
	Layer *Layer
}

// BeginEdit copies the object's mesh and layer into a new edit mesh.
func BeginEdit(ob *Object) *EditMesh {
	em := &EditMesh{Mesh: ob.Mesh.Clone()}
	if ob.Layer != nil {
		em.Layer = ob.Layer.Clone()
	}
	ob.Edit = em
	ob.Mode = ModeEdit
	return em
}

// EndEdit writes the edit mesh back to the object.
func EndEdit(ob *Object) {
	if ob.Edit == nil {
		return
	}
	ob.Mesh = ob.Edit.Mesh
	ob.Layer = ob.Edit.Layer
	ob.Edit = nil
	ob.Mode = ModeObject
}

// CustomDataDelete removes the displacement and paint-mask layers from t.
func CustomDataDelete(t Target) {
	t.setLayer(nil)
}

func levelsFromTarget(t Target) int {
	return LevelsFromDisps(t.baseMesh(), t.layer())
}

// Clone deep-copies the layer.
func (l *Layer) Clone() *Layer {
	c := &Layer{Disps: make([]Disps, len(l.Disps))}
	for i, d := range l.Disps {
		c.Disps[i] = Disps{TotDisp: d.TotDisp, Level: d.Level}
		if d.Disps != nil {
			c.Disps[i].Disps = append([]r3.Vec(nil), d.Disps...)
		}
		if d.Hidden != nil {
			c.Disps[i].Hidden = d.Hidden.Clone()
		}
	}
	if l.Masks != nil {
		c.Masks = make([]GridPaintMask, len(l.Masks))
		for i, m := range l.Masks {
			c.Masks[i] = GridPaintMask{Level: m.Level, Data: append([]float32(nil), m.Data...)}
		}
	}
	if l.External != nil {
		ext := *l.External
		c.External = &ext
	}
	return c
}

// Space is the coordinate space edit-mesh displacements are expressed in.
type Space uint8

const (
	SpaceTangent Space = iota
	SpaceAbsolute
)

func (s Space) String() string {
	if s == SpaceAbsolute {
		return "absolute"
	}
	return "tangent"
}

// SpaceSet converts the edit mesh displacements of ob between tangent space and
// absolute object-space positions at the modifier's total level. Topology edits
// can then interpolate absolute positions and convert back. Missing grids are
// allocated first.
func (o *Orchestrator) SpaceSet(ob *Object, em *EditMesh, space Space) error {
	mmd := ob.Modifier
	if em == nil || len(em.Mesh.Polys) == 0 || em.Layer == nil || mmd == nil || mmd.TotLvl == 0 {
		return nil
	}
	totlvl := mmd.TotLvl
	cage, err := o.subdivider.Subdivide(em.Mesh, totlvl, false)
	if err != nil {
		return fmt.Errorf("space set: %w", err)
	}
	em.Layer.reallocateMissing(totlvl)

	n := cage.GridSize()
	grids := cage.GridData()
	offsets := cage.GridOffset()
	polys := em.Mesh.Polys
	return o.eval.forEachFace(len(polys), func(p int) {
		for s := 0; s < polys[p].TotLoop; s++ {
			grid := grids[offsets[p]+s]
			data := em.Layer.Disps[polys[p].LoopStart+s].Disps
			for y := 0; y < n; y++ {
				for x := 0; x < n; x++ {
					i := y*n + x
					mat := tangentMatrix(grid, n, x, y)
					switch space {
					case SpaceAbsolute:
						data[i] = r3.Add(mat.MulVec(data[i]), grid[i].Co)
					case SpaceTangent:
						inv, ok := mat.Inverse()
						if !ok {
							data[i] = r3.Vec{}
							continue
						}
						data[i] = inv.MulVec(r3.Sub(data[i], grid[i].Co))
					}
				}
			}
		}
	})
}

package multires

import (
	"fmt"

	"github.com/voxelsplace/multires/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// LegacyFace is a face of a legacy level. Triangles have V[3] < 0. Mid is the
// vertex created at the face centre by the next level.
type LegacyFace struct {
	V     [4]int
	Mid   int
	Flag  uint8
	MatNr uint16
}

func (f *LegacyFace) verts() []int {
	if f.V[3] < 0 {
		return f.V[:3]
	}
	return f.V[:]
}

// LegacyEdge is an edge of a legacy level. Mid is the vertex created at its
// midpoint by the next level.
type LegacyEdge struct {
	V   [2]int
	Mid int
}

// LegacyLevel is one level of the old nested hierarchy. Levels share the vertex
// array of LegacyMultires; level k uses its first TotVert entries.
type LegacyLevel struct {
	Faces   []LegacyFace
	Edges   []LegacyEdge
	TotVert int
	// Colors is optional, four RGBA corners per face. Only the base level's are kept.
	Colors [][4][4]uint8
}

// LegacyMultires is the pre-displacement multires format: every level stored
// as explicit geometry, finest positions in Verts.
type LegacyMultires struct {
	Levels []LegacyLevel
	Verts  []r3.Vec
}

func (lm *LegacyMultires) numLoops() int {
	n := 0
	for i := range lm.Levels[0].Faces {
		n += len(lm.Levels[0].Faces[i].verts())
	}
	return n
}

// Validate checks level counts and index ranges.
func (lm *LegacyMultires) Validate() error {
	if len(lm.Levels) == 0 {
		return &LegacyError{What: "no levels"}
	}
	if len(lm.Levels)-1 > MaxLevels {
		return &LegacyError{Level: len(lm.Levels) - 1, What: "too many levels"}
	}
	if len(lm.Levels[0].Faces) == 0 {
		return &LegacyError{What: "no faces"}
	}
	prev := 0
	for k := range lm.Levels {
		lvl := &lm.Levels[k]
		if lvl.TotVert < prev || lvl.TotVert > len(lm.Verts) {
			return &LegacyError{Level: k, What: fmt.Sprintf("%d vertices", lvl.TotVert)}
		}
		prev = lvl.TotVert
		if lvl.Colors != nil && len(lvl.Colors) != len(lvl.Faces) {
			return &LegacyError{Level: k, What: "color count does not match faces"}
		}

		// mids point into the next level's vertices
		limit := lvl.TotVert
		if k+1 < len(lm.Levels) {
			limit = lm.Levels[k+1].TotVert
		}
		last := k == len(lm.Levels)-1
		for i := range lvl.Faces {
			f := &lvl.Faces[i]
			if k > 0 && f.V[3] < 0 {
				return &LegacyError{Level: k, What: fmt.Sprintf("face %d is a triangle", i)}
			}
			for _, v := range f.verts() {
				if v < 0 || v >= lvl.TotVert {
					return &LegacyError{Level: k, What: fmt.Sprintf("face %d references vertex %d", i, v)}
				}
			}
			if !last && (f.Mid < 0 || f.Mid >= limit) {
				return &LegacyError{Level: k, What: fmt.Sprintf("face %d mid %d", i, f.Mid)}
			}
		}
		for i, e := range lvl.Edges {
			if e.V[0] < 0 || e.V[0] >= lvl.TotVert || e.V[1] < 0 || e.V[1] >= lvl.TotVert {
				return &LegacyError{Level: k, What: fmt.Sprintf("edge %d out of range", i)}
			}
			if !last && (e.Mid < 0 || e.Mid >= limit) {
				return &LegacyError{Level: k, What: fmt.Sprintf("edge %d mid %d", i, e.Mid)}
			}
		}
	}
	return nil
}

// baseMesh turns level 0 into a mesh with face flags and loop colours copied.
func (lm *LegacyMultires) baseMesh() *mesh.Mesh {
	lvl := &lm.Levels[0]
	m := &mesh.Mesh{Verts: make([]mesh.Vert, lvl.TotVert)}
	for i := range m.Verts {
		m.Verts[i].Co = lm.Verts[i]
	}
	for i := range lvl.Faces {
		f := &lvl.Faces[i]
		p := m.AddPoly(f.verts()...)
		m.Polys[p].Flag = f.Flag
		m.Polys[p].MatNr = f.MatNr
		if lvl.Colors != nil {
			for s := range f.verts() {
				m.LoopColors = append(m.LoopColors, lvl.Colors[i][s])
			}
		}
	}
	m.BuildEdges()
	return m
}

// LoadOld converts a legacy hierarchy into ob: the base level becomes the mesh,
// one level is added per recorded level above it, and the finest legacy
// positions are captured as displacements. On error ob is left untouched.
func (o *Orchestrator) LoadOld(ob *Object, lm *LegacyMultires) error {
	if err := lm.Validate(); err != nil {
		return err
	}
	var remap [][]int
	if len(lm.Levels) > 1 {
		var err error
		if remap, err = buildRemap(lm); err != nil {
			return err
		}
	}

	work := &Object{Name: ob.Name, Mesh: lm.baseMesh(), Scale: ob.Scale}
	mmd := AddModifier(work)
	for i := 1; i < len(lm.Levels); i++ {
		if err := o.SubdivideOneLevel(work); err != nil {
			return fmt.Errorf("load legacy: %w", err)
		}
	}
	mmd.Lvl = mmd.TotLvl
	mmd.SculptLvl = mmd.TotLvl
	mmd.RenderLvl = mmd.TotLvl

	if totlvl := mmd.TotLvl; totlvl > 0 {
		cage, err := o.displacedCage(work, totlvl, totlvl, false)
		if err != nil {
			return fmt.Errorf("load legacy: %w", err)
		}
		if cage.NumGrids() != len(remap) {
			return &LegacyError{Level: totlvl, What: fmt.Sprintf("%d grids for %d corners", cage.NumGrids(), len(remap))}
		}
		for g, grid := range cage.GridData() {
			for i := range grid {
				grid[i].Co = lm.Verts[remap[g][i]]
			}
		}
		cage.UpdateNormals()
		if err := o.UpdateDisplacements(work, cage); err != nil {
			return fmt.Errorf("load legacy: %w", err)
		}
	}

	ob.Mesh, ob.Layer, ob.Modifier = work.Mesh, work.Layer, work.Modifier
	ob.Sculpt = nil
	legacyConversions.Inc()
	o.logger().Info("multires: converted legacy hierarchy", "object", ob.Name, "levels", mmd.TotLvl, "grids", len(remap))
	return nil
}

package api

import (
	"bytes"
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/voxelsplace/multires/mesh"
	"github.com/voxelsplace/multires/multires"
	"github.com/voxelsplace/multires/subdiv"
	"gonum.org/v1/gonum/spatial/r3"
)

// surface is a triangle soup ready for glTF accessors.
type surface struct {
	positions [][3]float32
	normals   [][3]float32
	colors    [][4]float32
	indices   []uint32
}

func vec32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

// maskColor shades masked samples red; unmasked samples stay white.
func maskColor(m float32) [4]float32 {
	return [4]float32{1, 1 - m, 1 - m, 1}
}

func hiddenAt(h *bitset.BitSet, i int) bool {
	return h != nil && h.Test(uint(i))
}

// cageSurface emits every grid sample and two triangles per grid cell. A cell
// with any hidden corner is skipped.
func cageSurface(c *subdiv.Cage) *surface {
	n := c.GridSize()
	s := &surface{}
	for g, grid := range c.GridData() {
		base := uint32(len(s.positions))
		for _, el := range grid {
			s.positions = append(s.positions, vec32(el.Co))
			s.normals = append(s.normals, vec32(el.No))
			s.colors = append(s.colors, maskColor(el.Mask))
		}
		hidden := c.Hidden[g]
		for y := 0; y < n-1; y++ {
			for x := 0; x < n-1; x++ {
				a, b := y*n+x, y*n+x+1
				cc, d := (y+1)*n+x+1, (y+1)*n+x
				if hiddenAt(hidden, a) || hiddenAt(hidden, b) || hiddenAt(hidden, cc) || hiddenAt(hidden, d) {
					continue
				}
				s.indices = append(s.indices,
					base+uint32(a), base+uint32(b), base+uint32(cc),
					base+uint32(a), base+uint32(cc), base+uint32(d))
			}
		}
	}
	return s
}

// meshSurface fans the base polygons; used when no level is evaluated.
func meshSurface(m *mesh.Mesh) *surface {
	s := &surface{}
	for p := range m.Polys {
		no := vec32(m.Normal(p))
		base := uint32(len(s.positions))
		verts := m.PolyVerts(p)
		for _, v := range verts {
			s.positions = append(s.positions, vec32(m.Verts[v].Co))
			s.normals = append(s.normals, no)
			s.colors = append(s.colors, maskColor(0))
		}
		for i := 1; i+1 < len(verts); i++ {
			s.indices = append(s.indices, base, base+uint32(i), base+uint32(i+1))
		}
	}
	return s
}

// ExportGLB evaluates the displaced surface at the level ctx selects and
// returns it as a binary glTF. The paint mask is written as vertex colour.
func (e *Engine) ExportGLB(data []byte, ctx multires.EvalContext) ([]byte, error) {
	ob, err := e.Load(data)
	if err != nil {
		return nil, err
	}
	cage, err := e.orch.Evaluate(ob, ctx)
	if err != nil {
		return nil, err
	}
	var s *surface
	if cage != nil {
		cage.UpdateNormals()
		s = cageSurface(cage)
	} else {
		s = meshSurface(ob.Mesh)
	}
	if len(s.indices) == 0 {
		return nil, fmt.Errorf("api: %q has no visible faces", ob.Name)
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = e.generator
	posAccessor := modeler.WritePosition(doc, s.positions)
	normalAccessor := modeler.WriteNormal(doc, s.normals)
	colorAccessor := modeler.WriteColor(doc, s.colors)
	indicesAccessor := modeler.WriteIndices(doc, s.indices)
	prim := &gltf.Primitive{
		Attributes: map[string]uint32{
			gltf.POSITION: uint32(posAccessor),
			gltf.NORMAL:   uint32(normalAccessor),
			gltf.COLOR_0:  uint32(colorAccessor),
		},
		Indices: gltf.Index(uint32(indicesAccessor)),
	}
	pbr := &gltf.PBRMetallicRoughness{BaseColorFactor: &[4]float32{1, 1, 1, 1}, MetallicFactor: gltf.Float(0), RoughnessFactor: gltf.Float(1)}
	doc.Materials = []*gltf.Material{{PBRMetallicRoughness: pbr, AlphaMode: gltf.AlphaOpaque}}
	prim.Material = gltf.Index(0)
	doc.Meshes = []*gltf.Mesh{{Name: ob.Name, Primitives: []*gltf.Primitive{prim}}}
	doc.Nodes = []*gltf.Node{{Name: ob.Name, Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(0))

	var out bytes.Buffer
	enc := gltf.NewEncoder(&out)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

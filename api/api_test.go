package api

import (
	"bytes"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxelsplace/multires/mesh"
	"github.com/voxelsplace/multires/mres"
	"github.com/voxelsplace/multires/multires"
	"gonum.org/v1/gonum/spatial/r3"
)

func planeBytes(t *testing.T, e *Engine, levels int) []byte {
	t.Helper()
	ob := multires.NewObject("plane", mesh.NewPlane(2))
	multires.AddModifier(ob)
	data, err := e.Save(ob)
	require.NoError(t, err)
	if levels > 0 {
		data, err = e.Subdivide(data, levels)
		require.NoError(t, err)
	}
	return data
}

func decodeGLB(t *testing.T, data []byte) *gltf.Document {
	t.Helper()
	doc := new(gltf.Document)
	require.NoError(t, gltf.NewDecoder(bytes.NewReader(data)).Decode(doc))
	return doc
}

func TestGenCubeAndSubdivide(t *testing.T) {
	e := NewEngine(nil)
	data, err := e.GenCube(2)
	require.NoError(t, err)

	info, err := e.Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, 8, info.Verts)
	assert.Equal(t, 6, info.Faces)
	require.NotNil(t, info.Modifier)
	assert.Equal(t, 0, info.Modifier.TotLvl)

	data, err = e.Subdivide(data, 3)
	require.NoError(t, err)
	info, err = e.Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Modifier.TotLvl)
	assert.Equal(t, 3, info.StoredLevel)
	assert.Contains(t, info.String(), "total 3")

	_, err = e.GenCube(0)
	assert.Error(t, err)
}

func TestCompressionOption(t *testing.T) {
	e := NewEngine(nil, WithCompression(mres.CompZlib))
	data, err := e.GenCube(1)
	require.NoError(t, err)
	info, err := e.Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, mres.CompZlib, info.Compression)
}

func TestDeleteHigher(t *testing.T) {
	e := NewEngine(nil)
	data, err := e.DeleteHigher(planeBytes(t, e, 3), 1)
	require.NoError(t, err)
	info, err := e.Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Modifier.TotLvl)
}

func TestSculptNoiseAndScale(t *testing.T) {
	e := NewEngine(nil)
	data, err := e.SculptNoise(planeBytes(t, e, 2), 0.1, 42)
	require.NoError(t, err)

	ob, err := e.Load(data)
	require.NoError(t, err)
	var before float64
	for _, d := range ob.Layer.Disps {
		for _, v := range d.Disps {
			before += r3.Norm(v)
		}
	}
	assert.Greater(t, before, 0.0)

	data, err = e.Scale(data, r3.Vec{X: 2, Y: 2, Z: 2})
	require.NoError(t, err)
	ob, err = e.Load(data)
	require.NoError(t, err)
	var after float64
	for _, d := range ob.Layer.Disps {
		for _, v := range d.Disps {
			after += r3.Norm(v)
		}
	}
	assert.InDelta(t, 2*before, after, 1e-4)

	_, err = e.SculptNoise(planeBytes(t, e, 0), 0.1, 1)
	assert.Error(t, err)
}

func TestHide(t *testing.T) {
	e := NewEngine(nil)
	data, err := e.Subdivide(mustCube(t, e), 2)
	require.NoError(t, err)
	data, err = e.Hide(data, 1)
	require.NoError(t, err)

	info, err := e.Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, 4*multires.GridArea(2), info.Hidden)

	ob, err := e.Load(data)
	require.NoError(t, err)
	for _, v := range ob.Mesh.PolyVerts(1) {
		assert.True(t, ob.Mesh.Verts[v].Hidden)
	}

	_, err = e.Hide(data, 6)
	assert.ErrorIs(t, err, ErrFaceOutOfRange)
}

func mustCube(t *testing.T, e *Engine) []byte {
	t.Helper()
	data, err := e.GenCube(2)
	require.NoError(t, err)
	return data
}

func TestJoin(t *testing.T) {
	e := NewEngine(nil)
	dst := planeBytes(t, e, 2)
	src := mustCube(t, e)

	data, err := e.Join(dst, src)
	require.NoError(t, err)
	ob, err := e.Load(data)
	require.NoError(t, err)
	require.NoError(t, ob.Mesh.Validate())
	assert.Len(t, ob.Mesh.Polys, 7)
	require.Len(t, ob.Layer.Disps, 4+24)
	for i, d := range ob.Layer.Disps {
		assert.Equal(t, 2, d.Level, "loop %d", i)
		assert.Len(t, d.Disps, multires.GridArea(2), "loop %d", i)
	}
	assert.Equal(t, 2, ob.Modifier.TotLvl)
}

func TestExportGLB(t *testing.T) {
	e := NewEngine(nil, WithGenerator("test"))
	out, err := e.ExportGLB(planeBytes(t, e, 2), multires.EvalContext{})
	require.NoError(t, err)

	doc := decodeGLB(t, out)
	assert.Equal(t, "test", doc.Asset.Generator)
	require.Len(t, doc.Meshes, 1)
	prim := doc.Meshes[0].Primitives[0]
	assert.Equal(t, uint32(4*9), doc.Accessors[prim.Attributes[gltf.POSITION]].Count)
	assert.Equal(t, uint32(4*4*6), doc.Accessors[*prim.Indices].Count)
	assert.Contains(t, prim.Attributes, gltf.COLOR_0)
}

func TestExportSkipsHiddenCells(t *testing.T) {
	e := NewEngine(nil)
	data, err := e.Subdivide(mustCube(t, e), 2)
	require.NoError(t, err)
	full, err := e.ExportGLB(data, multires.EvalContext{})
	require.NoError(t, err)
	data, err = e.Hide(data, 0)
	require.NoError(t, err)
	hidden, err := e.ExportGLB(data, multires.EvalContext{})
	require.NoError(t, err)

	count := func(doc *gltf.Document) uint32 {
		return doc.Accessors[*doc.Meshes[0].Primitives[0].Indices].Count
	}
	assert.Equal(t, count(decodeGLB(t, full))-4*4*6, count(decodeGLB(t, hidden)))
}

func TestExportBaseMesh(t *testing.T) {
	e := NewEngine(nil)
	out, err := e.ExportGLB(mustCube(t, e), multires.EvalContext{})
	require.NoError(t, err)
	doc := decodeGLB(t, out)
	assert.Equal(t, uint32(6*2*3), doc.Accessors[*doc.Meshes[0].Primitives[0].Indices].Count)
}

type memSource map[string][][]r3.Vec

func (m memSource) ReadDisplacements(name string) ([][]r3.Vec, error) { return m[name], nil }

func (m memSource) WriteDisplacements(name string, disps [][]r3.Vec) error {
	m[name] = disps
	return nil
}

func TestExternalize(t *testing.T) {
	src := memSource{}
	e := NewEngine(multires.New(multires.WithExternalSource(src)))
	data, err := e.SculptNoise(planeBytes(t, e, 2), 0.1, 7)
	require.NoError(t, err)
	ext, err := e.Externalize(data, "plane.mdx")
	require.NoError(t, err)
	assert.Contains(t, src, "plane.mdx")
	assert.Less(t, len(ext), len(data))

	info, err := e.Inspect(ext)
	require.NoError(t, err)
	assert.Equal(t, "plane.mdx", info.External)

	a, err := e.ExportGLB(data, multires.EvalContext{})
	require.NoError(t, err)
	b, err := e.ExportGLB(ext, multires.EvalContext{})
	require.NoError(t, err)
	assert.Equal(t, len(a), len(b))
}

func TestLoadConvertsLegacy(t *testing.T) {
	lm := &multires.LegacyMultires{
		Verts: []r3.Vec{{X: 0}, {X: 1}, {X: 1, Y: 1}, {Y: 1}},
		Levels: []multires.LegacyLevel{{
			TotVert: 4,
			Faces:   []multires.LegacyFace{{V: [4]int{0, 1, 2, 3}}},
			Edges: []multires.LegacyEdge{
				{V: [2]int{0, 1}}, {V: [2]int{1, 2}}, {V: [2]int{2, 3}}, {V: [2]int{0, 3}},
			},
		}},
	}
	data, err := mres.EncodeLegacy("old", lm, mres.CompNone)
	require.NoError(t, err)

	e := NewEngine(nil)
	ob, err := e.Load(data)
	require.NoError(t, err)
	assert.Equal(t, "old", ob.Name)
	assert.Len(t, ob.Mesh.Polys, 1)

	info, err := e.Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, mres.VersionLegacy, info.Version)
}

package multires

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxelsplace/multires/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestSubdivideFromZeroAllocatesZeroGrids(t *testing.T) {
	o := New()
	ob := NewObject("cube", mesh.NewCube(2))
	AddModifier(ob)

	require.NoError(t, o.SubdivideOneLevel(ob))
	require.NoError(t, o.SubdivideOneLevel(ob))

	mmd := ob.Modifier
	assert.Equal(t, 2, mmd.TotLvl)
	assert.Equal(t, 2, mmd.Lvl)
	assert.Equal(t, 2, mmd.SculptLvl)
	assert.Equal(t, 2, mmd.RenderLvl)
	require.Len(t, ob.Layer.Disps, 24)
	for i, d := range ob.Layer.Disps {
		assert.Equal(t, GridArea(2), d.TotDisp, "loop %d", i)
		assert.Equal(t, 2, d.Level)
		for _, v := range d.Disps {
			assert.Equal(t, r3.Vec{}, v)
		}
	}

	got, err := o.Evaluate(ob, EvalContext{})
	require.NoError(t, err)
	want := undisplaced(t, ob.Mesh, 2)
	for g := range want.GridData() {
		for i := range want.GridData()[g] {
			vecNear(t, want.GridData()[g][i].Co, got.GridData()[g][i].Co)
		}
	}
}

func TestSubdivideIgnoresInvalidRequests(t *testing.T) {
	o := New()
	ob := subdividedObject(t, o, mesh.NewPlane(2), 2)

	require.NoError(t, o.SubdivideToLevel(ob, MaxLevels+1))
	assert.Equal(t, 2, ob.Modifier.TotLvl)

	require.NoError(t, o.SubdivideToLevel(ob, 1))
	assert.Equal(t, 2, ob.Modifier.TotLvl)

	empty := NewObject("empty", &mesh.Mesh{})
	AddModifier(empty)
	require.NoError(t, o.SubdivideOneLevel(empty))
	assert.Zero(t, empty.Modifier.TotLvl)
	assert.Nil(t, empty.Layer)
}

func TestSubdivideCarriesDetail(t *testing.T) {
	o := New()
	ob := subdividedObject(t, o, mesh.NewPlane(2), 2)
	fillDisps(ob, func(int, int) r3.Vec { return r3.Vec{Z: 0.5} })

	require.NoError(t, o.SubdivideOneLevel(ob))
	require.Equal(t, 3, ob.Modifier.TotLvl)
	for _, d := range ob.Layer.Disps {
		require.Len(t, d.Disps, GridArea(3))
		for _, v := range d.Disps {
			vecNear(t, r3.Vec{Z: 0.5}, v)
		}
	}

	cage, err := o.Evaluate(ob, EvalContext{})
	require.NoError(t, err)
	assert.Equal(t, 3, cage.Level())
	for _, grid := range cage.GridData() {
		for _, e := range grid {
			assert.InDelta(t, 0.5, e.Co.Z, 1e-9)
		}
	}
}

func TestEvaluateAtLevelZero(t *testing.T) {
	o := New()
	ob := NewObject("plane", mesh.NewPlane(2))
	cage, err := o.Evaluate(ob, EvalContext{})
	require.NoError(t, err)
	assert.Nil(t, cage)

	AddModifier(ob)
	cage, err = o.Evaluate(ob, EvalContext{})
	require.NoError(t, err)
	assert.Nil(t, cage)
}

func TestGetLevel(t *testing.T) {
	ob := NewObject("plane", mesh.NewPlane(2))
	mmd := &Modifier{TotLvl: 4, Lvl: 3, SculptLvl: 2, RenderLvl: 4}

	assert.Equal(t, 3, GetLevel(ob, mmd, EvalContext{}))
	assert.Equal(t, 4, GetLevel(ob, mmd, EvalContext{Render: true}))
	assert.Equal(t, 1, GetLevel(ob, mmd, EvalContext{Render: true, UseSimplify: true, Simplify: 1}))
	assert.Equal(t, 1, GetLevel(ob, mmd, EvalContext{UseSimplify: true, Simplify: 1}))
	assert.Equal(t, 3, GetLevel(ob, mmd, EvalContext{UseSimplify: true, Simplify: 1, IgnoreSimplify: true}))

	ob.Mode = ModeSculpt
	assert.Equal(t, 2, GetLevel(ob, mmd, EvalContext{UseSimplify: true, Simplify: 1}))
}

func TestSetTotLevel(t *testing.T) {
	ob := NewObject("plane", mesh.NewPlane(2))
	mmd := &Modifier{TotLvl: 4, Lvl: 1, SculptLvl: 3, RenderLvl: 0}

	SetTotLevel(ob, mmd, 2)
	assert.Equal(t, Modifier{TotLvl: 2, Lvl: 2, SculptLvl: 2, RenderLvl: 2}, *mmd)

	SetTotLevel(ob, mmd, 5)
	assert.Equal(t, Modifier{TotLvl: 5, Lvl: 5, SculptLvl: 5, RenderLvl: 5}, *mmd)

	ob.Mode = ModeSculpt
	mmd.Lvl = 1
	SetTotLevel(ob, mmd, 6)
	assert.Equal(t, 1, mmd.Lvl)
	assert.Equal(t, 6, mmd.SculptLvl)
}

func TestDeleteHigherLevelsPointSamples(t *testing.T) {
	o := New()
	ob := subdividedObject(t, o, mesh.NewPlane(2), 3)
	fillDisps(ob, func(loop, i int) r3.Vec { return r3.Vec{X: float64(loop), Y: float64(i)} })

	require.NoError(t, o.DeleteHigherLevels(ob, 1))
	assert.Equal(t, 1, ob.Modifier.TotLvl)
	assert.Equal(t, 1, ob.Modifier.Lvl)
	for loop, d := range ob.Layer.Disps {
		assert.Equal(t, GridArea(1), d.TotDisp)
		assert.Equal(t, 1, d.Level)
		assert.Equal(t, []r3.Vec{
			{X: float64(loop), Y: 0},
			{X: float64(loop), Y: 4},
			{X: float64(loop), Y: 20},
			{X: float64(loop), Y: 24},
		}, d.Disps)
	}
}

func TestDeleteHigherLevelsEdges(t *testing.T) {
	o := New()
	ob := subdividedObject(t, o, mesh.NewPlane(2), 2)

	assert.ErrorIs(t, o.DeleteHigherLevels(ob, MaxLevels+1), ErrLevelOutOfRange)
	assert.ErrorIs(t, o.DeleteHigherLevels(ob, -1), ErrLevelOutOfRange)

	require.NoError(t, o.DeleteHigherLevels(ob, 2))
	assert.Equal(t, 2, ob.Modifier.TotLvl)

	require.NoError(t, o.DeleteHigherLevels(ob, 0))
	assert.Zero(t, ob.Modifier.TotLvl)
	assert.Nil(t, ob.Layer)
}

func TestDeleteHigherLevelsCarriesHiddenAndMasks(t *testing.T) {
	o := New()
	ob := subdividedObject(t, o, mesh.NewPlane(2), 3)
	ob.Layer.Disps[0].Hidden = NewHiddenBitmap(3, false)
	ob.Layer.Disps[0].Hidden.Set(24)
	ob.Layer.EnsureMasks()
	ob.Layer.Masks[0] = GridPaintMask{Level: 3, Data: make([]float32, GridArea(3))}
	ob.Layer.Masks[0].Data[24] = 0.75

	require.NoError(t, o.DeleteHigherLevels(ob, 2))
	h := ob.Layer.Disps[0].Hidden
	require.NotNil(t, h)
	assert.Equal(t, uint(GridArea(2)), h.Len())
	assert.True(t, h.Test(8))
	assert.Equal(t, uint(1), h.Count())
	assert.Equal(t, 2, ob.Layer.Masks[0].Level)
	assert.Equal(t, float32(0.75), ob.Layer.Masks[0].Data[8])
}

func TestDeleteLevelsUsesDisplayLevel(t *testing.T) {
	o := New()
	ob := subdividedObject(t, o, mesh.NewPlane(2), 3)
	ob.Modifier.Lvl = 1
	require.NoError(t, o.DeleteLevels(ob))
	assert.Equal(t, 1, ob.Modifier.TotLvl)
	assert.Equal(t, GridArea(1), ob.Layer.Disps[0].TotDisp)
}

func TestInitHiddenFromVertexFlags(t *testing.T) {
	m := mesh.NewCube(2)
	m.Verts[0].Hidden = true
	o := New()
	ob := NewObject("cube", m)
	AddModifier(ob)
	require.NoError(t, o.SubdivideToLevel(ob, 2))

	// vertex 0 touches three faces of four loops each
	assert.Equal(t, 3*4*GridArea(2), ob.Layer.HiddenCount())
	for p, poly := range m.Polys {
		touches := false
		for _, v := range m.PolyVerts(p) {
			touches = touches || v == 0
		}
		for s := 0; s < poly.TotLoop; s++ {
			assert.Equal(t, touches, ob.Layer.Disps[poly.LoopStart+s].Hidden != nil, "poly %d", p)
		}
	}

	ob.Modifier.Lvl = 1
	cage, err := o.Evaluate(ob, EvalContext{})
	require.NoError(t, err)
	hidden := 0
	for _, h := range cage.Hidden {
		if h != nil {
			assert.Equal(t, uint(GridArea(1)), h.Count())
			hidden++
		}
	}
	assert.Equal(t, 12, hidden)
}

func TestScaleDisplacement(t *testing.T) {
	o := New()
	ob := subdividedObject(t, o, mesh.NewCube(2), 2)
	fillDisps(ob, func(loop, i int) r3.Vec { return r3.Vec{X: 1, Y: float64(i), Z: -0.5} })

	require.NoError(t, o.ScaleDisplacement(ob, ScaleMat(r3.Vec{X: 2, Y: 2, Z: 2})))
	for _, d := range ob.Layer.Disps {
		for i, v := range d.Disps {
			vecNear(t, r3.Vec{X: 2, Y: 2 * float64(i), Z: -1}, v)
		}
	}

	ob.Scale = r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	require.NoError(t, o.ApplyObjectScale(ob))
	vecNear(t, r3.Vec{X: 1, Y: 1, Z: -0.5}, ob.Layer.Disps[3].Disps[1])
}

func TestScaleDisplacementRefreshesSculptSession(t *testing.T) {
	o := New()
	ob := subdividedObject(t, o, mesh.NewPlane(2), 2)
	require.NoError(t, o.BeginSculpt(ob))
	ob.Sculpt.Grids.At(2, 1, 1).Co.Z -= 0.4
	MarkModified(ob, CoordsModified)
	ob.Sculpt.Bounds()
	rebuilds := ob.Sculpt.Rebuilds

	require.NoError(t, o.ScaleDisplacement(ob, ScaleMat(r3.Vec{X: 2, Y: 2, Z: 2})))
	vecNear(t, r3.Vec{Z: -0.8}, ob.Layer.Disps[2].Disps[4])
	assert.Zero(t, ob.Sculpt.Dirty)
	assert.Greater(t, ob.Sculpt.Rebuilds, rebuilds)
	assert.InDelta(t, -0.8, ob.Sculpt.Grids.At(2, 1, 1).Co.Z, 1e-9)
	assert.InDelta(t, -0.8, ob.Sculpt.Bounds()[2].Min.Z, 1e-9)

	MarkModified(ob, CoordsModified)
	require.NoError(t, o.EndSculpt(ob))
	vecNear(t, r3.Vec{Z: -0.8}, ob.Layer.Disps[2].Disps[4])
}

func TestSyncLevels(t *testing.T) {
	o := New()
	src := subdividedObject(t, o, mesh.NewPlane(2), 3)
	dst := subdividedObject(t, o, mesh.NewCube(2), 1)

	require.NoError(t, o.SyncLevels(src, dst))
	assert.Equal(t, 3, dst.Modifier.TotLvl)
	assert.Equal(t, GridArea(3), dst.Layer.Disps[0].TotDisp)

	require.NoError(t, o.SyncLevelsEx(dst, &Modifier{TotLvl: 2}))
	assert.Equal(t, 2, dst.Modifier.TotLvl)

	stray := NewObject("stray", mesh.NewPlane(2))
	stray.Layer = NewLayer(4)
	require.NoError(t, o.SyncLevels(stray, dst))
	assert.Nil(t, stray.Layer)
	assert.Equal(t, 2, dst.Modifier.TotLvl)
}

func TestPrepareJoinRescales(t *testing.T) {
	o := New()
	to := subdividedObject(t, o, mesh.NewPlane(2), 2)
	to.Scale = r3.Vec{X: 2, Y: 2, Z: 2}
	ob := subdividedObject(t, o, mesh.NewPlane(2), 1)
	ob.Scale = r3.Vec{X: 4, Y: 4, Z: 4}

	require.NoError(t, o.PrepareJoin(ob, to))
	require.Equal(t, 2, ob.Modifier.TotLvl)
	fillDisps(ob, func(int, int) r3.Vec { return r3.Vec{Z: 1} })

	// a second join only rescales: 4/2
	require.NoError(t, o.PrepareJoin(ob, to))
	vecNear(t, r3.Vec{Z: 2}, ob.Layer.Disps[0].Disps[0])
}

func TestTopologyChangedGrowsLayer(t *testing.T) {
	o := New()
	ob := subdividedObject(t, o, mesh.NewPlane(2), 2)
	m := ob.Mesh
	a := m.AddVert(r3.Vec{X: 2, Y: -1})
	b := m.AddVert(r3.Vec{X: 2, Y: 1})
	m.AddPoly(1, a, b, 2)
	m.BuildEdges()

	require.NoError(t, o.TopologyChanged(ob))
	require.Len(t, ob.Layer.Disps, 8)
	for _, d := range ob.Layer.Disps[4:] {
		assert.Equal(t, GridArea(2), d.TotDisp)
		assert.Equal(t, 2, d.Level)
		assert.Len(t, d.Disps, GridArea(2))
	}

	m.Polys = m.Polys[:1]
	m.Loops = m.Loops[:4]
	require.NoError(t, o.TopologyChanged(ob))
	assert.Len(t, ob.Layer.Disps, 4)
}

func TestLevelsFromDisps(t *testing.T) {
	o := New()
	ob := subdividedObject(t, o, mesh.NewPlane(2), 3)
	assert.Equal(t, 3, LevelsFromDisps(ob.Mesh, ob.Layer))
	assert.Zero(t, LevelsFromDisps(ob.Mesh, nil))

	mmd := &Modifier{TotLvl: 5, Lvl: 5, SculptLvl: 4, RenderLvl: 5}
	SetLevelsFromDisps(mmd, MeshTarget{ob})
	assert.Equal(t, Modifier{TotLvl: 3, Lvl: 3, SculptLvl: 3, RenderLvl: 3}, *mmd)

	ob.Layer.Disps[0].TotDisp = 7
	assert.Zero(t, LevelsFromDisps(ob.Mesh, ob.Layer))
}

func TestMDispCorners(t *testing.T) {
	assert.Equal(t, 4, MDispCorners(&Disps{TotDisp: 4 * GridArea(2)}))
	assert.Equal(t, 1, MDispCorners(&Disps{TotDisp: GridArea(3)}))
	assert.Equal(t, 3, MDispCorners(&Disps{TotDisp: 3 * GridArea(4)}))
	assert.Zero(t, MDispCorners(&Disps{}))
}

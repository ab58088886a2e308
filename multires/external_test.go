package multires

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxelsplace/multires/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestExternalizeAndReload(t *testing.T) {
	src := newMemSource()
	o := New(WithExternalSource(src))
	ob := subdividedObject(t, o, mesh.NewPlane(2), 2)
	fillDisps(ob, func(loop, i int) r3.Vec { return r3.Vec{X: float64(loop), Z: float64(i)} })

	require.NoError(t, o.Externalize(ob, "plane.mdx"))
	require.NotNil(t, ob.Layer.External)
	assert.True(t, ob.Layer.External.InMemory)
	require.Len(t, src.data["plane.mdx"], 4)

	fillDisps(ob, func(int, int) r3.Vec { return r3.Vec{Y: 100} })
	require.NoError(t, o.ForceExternalReload(ob))
	assert.Equal(t, 1, src.reads)
	vecNear(t, r3.Vec{X: 3, Z: 8}, ob.Layer.Disps[3].Disps[8])
}

func TestEnsureExternalReadStampsLevel(t *testing.T) {
	src := newMemSource()
	o := New(WithExternalSource(src))
	ob := subdividedObject(t, o, mesh.NewPlane(2), 2)
	fillDisps(ob, func(int, int) r3.Vec { return r3.Vec{Z: 1} })
	require.NoError(t, o.Externalize(ob, "a"))

	// a freshly loaded layer knows neither its vectors nor its level
	for i := range ob.Layer.Disps {
		ob.Layer.Disps[i] = Disps{}
	}
	ob.Layer.External.InMemory = false

	require.NoError(t, o.EnsureExternalRead(MeshTarget{ob}, 2))
	for _, d := range ob.Layer.Disps {
		assert.Equal(t, 2, d.Level)
		assert.Equal(t, GridArea(2), d.TotDisp)
		require.Len(t, d.Disps, GridArea(2))
		vecNear(t, r3.Vec{Z: 1}, d.Disps[0])
	}

	// already in memory: no second read
	require.NoError(t, o.EnsureExternalRead(MeshTarget{ob}, 2))
	assert.Equal(t, 1, src.reads)
}

func TestEnsureExternalReadMismatchedLevel(t *testing.T) {
	src := newMemSource()
	o := New(WithExternalSource(src))
	ob := subdividedObject(t, o, mesh.NewPlane(2), 2)
	require.NoError(t, o.Externalize(ob, "a"))
	ob.Layer.External.InMemory = false

	require.NoError(t, o.EnsureExternalRead(MeshTarget{ob}, 3))
	for _, d := range ob.Layer.Disps {
		assert.Len(t, d.Disps, GridArea(3))
		assert.Equal(t, 3, d.Level)
	}
}

func TestExternalWithoutSource(t *testing.T) {
	o := New()
	ob := subdividedObject(t, o, mesh.NewPlane(2), 1)
	assert.ErrorIs(t, o.Externalize(ob, "a"), ErrNoExternalSource)

	ob.Layer.External = &ExternalRef{Name: "a"}
	assert.ErrorIs(t, o.EnsureExternalRead(MeshTarget{ob}, 1), ErrNoExternalSource)

	_, err := o.Evaluate(ob, EvalContext{})
	assert.ErrorIs(t, err, ErrNoExternalSource)

	bare := NewObject("bare", mesh.NewPlane(2))
	assert.ErrorIs(t, o.Externalize(bare, "a"), ErrNoLayer)
}

func TestExternalReadGridCountMismatch(t *testing.T) {
	src := newMemSource()
	src.data["short"] = [][]r3.Vec{{}}
	o := New(WithExternalSource(src))
	ob := subdividedObject(t, o, mesh.NewPlane(2), 1)
	ob.Layer.External = &ExternalRef{Name: "short"}
	assert.Error(t, o.EnsureExternalRead(MeshTarget{ob}, 1))
}

func TestSpaceSetRoundTrip(t *testing.T) {
	o := New()
	ob := subdividedObject(t, o, mesh.NewPlane(2), 2)
	fillDisps(ob, func(loop, i int) r3.Vec { return r3.Vec{X: 0.1 * float64(loop), Z: 0.5} })

	em := BeginEdit(ob)
	assert.Equal(t, ModeEdit, ob.Mode)
	require.NoError(t, o.SpaceSet(ob, em, SpaceAbsolute))

	cage := undisplaced(t, em.Mesh, 2)
	for g, grid := range cage.GridData() {
		for i := range grid {
			// loop g's tangent X is one of the grid axes, unit length
			got := em.Layer.Disps[g].Disps[i]
			assert.InDelta(t, 0.5, got.Z, 1e-9)
			assert.InDelta(t, 0.1*float64(g), r3.Norm(r3.Sub(r3.Vec{X: got.X, Y: got.Y}, grid[i].Co)), 1e-9)
		}
	}

	require.NoError(t, o.SpaceSet(ob, em, SpaceTangent))
	EndEdit(ob)
	assert.Nil(t, ob.Edit)
	for loop, d := range ob.Layer.Disps {
		for _, v := range d.Disps {
			vecNear(t, r3.Vec{X: 0.1 * float64(loop), Z: 0.5}, v)
		}
	}
}

func TestBeginEditCopiesLayer(t *testing.T) {
	o := New()
	ob := subdividedObject(t, o, mesh.NewPlane(2), 1)
	em := BeginEdit(ob)
	em.Layer.Disps[0].Disps[0] = r3.Vec{X: 1}
	assert.Equal(t, r3.Vec{}, ob.Layer.Disps[0].Disps[0])

	CustomDataDelete(EditTarget{em})
	assert.Nil(t, em.Layer)
	assert.NotNil(t, ob.Layer)
}

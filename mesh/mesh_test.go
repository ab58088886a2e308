package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestCubeTopology(t *testing.T) {
	m := NewCube(2)
	require.NoError(t, m.Validate())
	assert.Len(t, m.Verts, 8)
	assert.Len(t, m.Polys, 6)
	assert.Len(t, m.Loops, 24)
	assert.Len(t, m.Edges, 12)
	for _, l := range m.Loops {
		assert.GreaterOrEqual(t, l.E, 0)
	}
}

func TestCubeNormalsPointOutwards(t *testing.T) {
	m := NewCube(2)
	for p := range m.Polys {
		n := m.Normal(p)
		c := m.Center(p)
		assert.InDelta(t, 1.0, r3.Dot(n, r3.Unit(c)), 1e-9, "poly %d", p)
	}
}

func TestPlaneNormal(t *testing.T) {
	m := NewPlane(2)
	n := m.Normal(0)
	assert.InDelta(t, 1.0, n.Z, 1e-12)
}

func TestValidateRejectsBadLoopStart(t *testing.T) {
	m := NewPlane(1)
	m.Polys[0].LoopStart = 1
	assert.Error(t, m.Validate())
}

func TestCloneIsDeep(t *testing.T) {
	m := NewPlane(1)
	c := m.Clone()
	c.Verts[0].Co.X = 42
	assert.NotEqual(t, 42.0, m.Verts[0].Co.X)
}

func TestAppendOffsetsIndices(t *testing.T) {
	m := NewPlane(2)
	m.LoopColors = make([][4]uint8, m.NumLoops())
	o := NewTriangle(1)
	m.Append(o)
	require.NoError(t, m.Validate())
	assert.Len(t, m.Polys, 2)
	assert.Equal(t, 4, m.Polys[1].LoopStart)
	assert.Equal(t, []int{4, 5, 6}, m.PolyVerts(1))
	assert.Equal(t, 4+1, m.Loops[5].E)
	assert.Nil(t, m.LoopColors)

	c := NewPlane(1)
	c.LoopColors = make([][4]uint8, c.NumLoops())
	c.LoopColors[0] = [4]uint8{1, 1, 1, 1}
	var empty Mesh
	empty.Append(c)
	assert.Equal(t, c.LoopColors, empty.LoopColors)
}

package multires

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxelsplace/multires/mesh"
	"github.com/voxelsplace/multires/subdiv"
	"gonum.org/v1/gonum/spatial/r3"
)

func vecNear(t *testing.T, want, got r3.Vec, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, 0, r3.Norm(r3.Sub(want, got)), 1e-9, msgAndArgs...)
}

// subdividedObject returns a modifier-carrying object raised to level.
func subdividedObject(t *testing.T, o *Orchestrator, m *mesh.Mesh, level int) *Object {
	t.Helper()
	ob := NewObject("test", m)
	AddModifier(ob)
	require.NoError(t, o.SubdivideToLevel(ob, level))
	require.Equal(t, level, ob.Modifier.TotLvl)
	return ob
}

// fillDisps sets every stored vector of ob to fn(loop, sample).
func fillDisps(ob *Object, fn func(loop, i int) r3.Vec) {
	for loop := range ob.Layer.Disps {
		for i := range ob.Layer.Disps[loop].Disps {
			ob.Layer.Disps[loop].Disps[i] = fn(loop, i)
		}
	}
}

func nan() float64 { return math.NaN() }

func undisplaced(t *testing.T, m *mesh.Mesh, level int) *subdiv.Cage {
	t.Helper()
	c, err := subdiv.Simple{}.Subdivide(m, level, false)
	require.NoError(t, err)
	return c
}

// memSource is an in-memory ExternalSource.
type memSource struct {
	data  map[string][][]r3.Vec
	reads int
}

func newMemSource() *memSource {
	return &memSource{data: map[string][][]r3.Vec{}}
}

func (s *memSource) ReadDisplacements(name string) ([][]r3.Vec, error) {
	s.reads++
	vecs, ok := s.data[name]
	if !ok {
		return nil, assert.AnError
	}
	out := make([][]r3.Vec, len(vecs))
	for i := range vecs {
		out[i] = append([]r3.Vec(nil), vecs[i]...)
	}
	return out, nil
}

func (s *memSource) WriteDisplacements(name string, disps [][]r3.Vec) error {
	out := make([][]r3.Vec, len(disps))
	for i := range disps {
		out[i] = append([]r3.Vec(nil), disps[i]...)
	}
	s.data[name] = out
	return nil
}

package subdiv

import (
	"errors"
	"fmt"

	"github.com/voxelsplace/multires/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

var ErrNoFaces = errors.New("subdiv: mesh has no faces")

// Subdivider produces evaluation cages from a base mesh.
type Subdivider interface {
	// Subdivide builds a fresh cage of m at level.
	Subdivide(m *mesh.Mesh, level int, withMask bool) (*Cage, error)
	// Refine recomputes every sample of c that does not sit on the fromLevel
	// lattice from the lattice samples, then updates normals.
	Refine(c *Cage, fromLevel int) error
}

// Simple splits every face into corner quads and fills each grid bilinearly.
// Sample (0,0) is the face centre, (n-1,n-1) the corner vertex, x runs towards
// the previous edge midpoint and y towards the next one.
type Simple struct{}

var _ Subdivider = Simple{}

func (Simple) Subdivide(m *mesh.Mesh, level int, withMask bool) (*Cage, error) {
	if len(m.Polys) == 0 {
		return nil, ErrNoFaces
	}
	polyLen := make([]int, len(m.Polys))
	for p, poly := range m.Polys {
		polyLen[p] = poly.TotLoop
	}
	c, err := NewCage(level, polyLen, withMask)
	if err != nil {
		return nil, err
	}

	n := c.key.GridSize
	for p := range m.Polys {
		verts := m.PolyVerts(p)
		centre := m.Center(p)
		c.faceNo[p] = m.Normal(p)
		k := len(verts)
		for s := range verts {
			v := m.Verts[verts[s]].Co
			prev := m.Verts[verts[(s+k-1)%k]].Co
			next := m.Verts[verts[(s+1)%k]].Co
			ePrev := r3.Scale(0.5, r3.Add(prev, v))
			eNext := r3.Scale(0.5, r3.Add(v, next))

			grid := c.grids[c.offsets[p]+s]
			for y := 0; y < n; y++ {
				fv := float64(y) / float64(n-1)
				for x := 0; x < n; x++ {
					fu := float64(x) / float64(n-1)
					grid[y*n+x].Co = bilinear(centre, ePrev, v, eNext, fu, fv)
				}
			}
		}
	}
	c.UpdateNormals()
	return c, nil
}

// bilinear evaluates the patch with corners c00, c10, c11, c01.
func bilinear(c00, c10, c11, c01 r3.Vec, u, v float64) r3.Vec {
	p := r3.Scale((1-u)*(1-v), c00)
	p = r3.Add(p, r3.Scale(u*(1-v), c10))
	p = r3.Add(p, r3.Scale(u*v, c11))
	return r3.Add(p, r3.Scale((1-u)*v, c01))
}

func (Simple) Refine(c *Cage, fromLevel int) error {
	n := c.key.GridSize
	if fromLevel < 1 || fromLevel > c.key.Level {
		return fmt.Errorf("subdiv: refine from level %d on a level %d cage", fromLevel, c.key.Level)
	}
	if fromLevel == c.key.Level {
		c.UpdateNormals()
		return nil
	}
	step := (n - 1) / (Side(fromLevel) - 1)
	for _, grid := range c.grids {
		for y := 0; y < n; y++ {
			y0 := y / step * step
			if y0 == n-1 {
				y0 -= step
			}
			fv := float64(y-y0) / float64(step)
			for x := 0; x < n; x++ {
				if x%step == 0 && y%step == 0 {
					continue
				}
				x0 := x / step * step
				if x0 == n-1 {
					x0 -= step
				}
				fu := float64(x-x0) / float64(step)
				a := grid[y0*n+x0]
				b := grid[y0*n+x0+step]
				d := grid[(y0+step)*n+x0+step]
				e := grid[(y0+step)*n+x0]
				grid[y*n+x].Co = bilinear(a.Co, b.Co, d.Co, e.Co, fu, fv)
				grid[y*n+x].Mask = float32((1-fu)*(1-fv))*a.Mask + float32(fu*(1-fv))*b.Mask +
					float32(fu*fv)*d.Mask + float32((1-fu)*fv)*e.Mask
			}
		}
	}
	c.UpdateNormals()
	return nil
}

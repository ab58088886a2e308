package multires

import (
	"math"

	"github.com/voxelsplace/multires/subdiv"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mat3 is a 3x3 matrix stored as columns.
type Mat3 [3]r3.Vec

// Identity3 is the identity matrix.
var Identity3 = Mat3{{X: 1}, {Y: 1}, {Z: 1}}

// ScaleMat returns diag(s.X, s.Y, s.Z).
func ScaleMat(s r3.Vec) Mat3 {
	return Mat3{{X: s.X}, {Y: s.Y}, {Z: s.Z}}
}

func (m Mat3) MulVec(v r3.Vec) r3.Vec {
	r := r3.Scale(v.X, m[0])
	r = r3.Add(r, r3.Scale(v.Y, m[1]))
	return r3.Add(r, r3.Scale(v.Z, m[2]))
}

// Mul returns m·n.
func (m Mat3) Mul(n Mat3) Mat3 {
	return Mat3{m.MulVec(n[0]), m.MulVec(n[1]), m.MulVec(n[2])}
}

// Row returns row i.
func (m Mat3) Row(i int) r3.Vec {
	switch i {
	case 0:
		return r3.Vec{X: m[0].X, Y: m[1].X, Z: m[2].X}
	case 1:
		return r3.Vec{X: m[0].Y, Y: m[1].Y, Z: m[2].Y}
	default:
		return r3.Vec{X: m[0].Z, Y: m[1].Z, Z: m[2].Z}
	}
}

func (m Mat3) Det() float64 {
	return r3.Dot(m[0], r3.Cross(m[1], m[2]))
}

// Inverse uses the adjugate. ok is false for (near) singular matrices.
func (m Mat3) Inverse() (Mat3, bool) {
	det := m.Det()
	if math.Abs(det) < 1e-12 {
		return Mat3{}, false
	}
	// rows of the inverse are the cross products of column pairs
	r0 := r3.Scale(1/det, r3.Cross(m[1], m[2]))
	r1 := r3.Scale(1/det, r3.Cross(m[2], m[0]))
	r2 := r3.Scale(1/det, r3.Cross(m[0], m[1]))
	return Mat3{
		{X: r0.X, Y: r1.X, Z: r2.X},
		{X: r0.Y, Y: r1.Y, Z: r2.Y},
		{X: r0.Z, Y: r1.Z, Z: r2.Z},
	}, true
}

// IsUniformScaled reports whether m is a rotation times a uniform scale.
func (m Mat3) IsUniformScaled() bool {
	const eps = 1e-7
	c0, c1, c2 := r3.Dot(m[0], m[0]), r3.Dot(m[1], m[1]), r3.Dot(m[2], m[2])
	r0, r1, r2 := m.Row(0), m.Row(1), m.Row(2)
	l0, l1, l2 := r3.Dot(r0, r0), r3.Dot(r1, r1), r3.Dot(r2, r2)
	return math.Abs(c0-c1) < eps && math.Abs(c1-c2) < eps &&
		math.Abs(l0-l1) < eps && math.Abs(l1-l2) < eps &&
		math.Abs(c0-l0) < eps
}

// ToScale is the length of m applied to the unit diagonal.
func (m Mat3) ToScale() float64 {
	d := 1 / math.Sqrt(3)
	return r3.Norm(m.MulVec(r3.Vec{X: d, Y: d, Z: d}))
}

// gridTangent is a backward difference along axis, forward on the x == 0 / y == 0 border.
func gridTangent(grid []subdiv.Elem, size, x, y, axis int) r3.Vec {
	if axis == 0 {
		if x == 0 {
			return r3.Sub(grid[y*size+x+1].Co, grid[y*size+x].Co)
		}
		return r3.Sub(grid[y*size+x].Co, grid[y*size+x-1].Co)
	}
	if y == 0 {
		return r3.Sub(grid[(y+1)*size+x].Co, grid[y*size+x].Co)
	}
	return r3.Sub(grid[y*size+x].Co, grid[(y-1)*size+x].Co)
}

// tangentMatrix builds the basis [unit(tU), unit(tV), N] at sample (x, y).
func tangentMatrix(grid []subdiv.Elem, size, x, y int) Mat3 {
	return Mat3{
		unitOrZero(gridTangent(grid, size, x, y, 0)),
		unitOrZero(gridTangent(grid, size, x, y, 1)),
		grid[y*size+x].No,
	}
}

func unitOrZero(v r3.Vec) r3.Vec {
	if r3.Norm(v) == 0 {
		return v
	}
	return r3.Unit(v)
}

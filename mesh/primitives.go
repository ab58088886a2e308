package mesh

import "gonum.org/v1/gonum/spatial/r3"

// NewPlane returns a single quad of the given edge length on the XY plane, facing +Z.
func NewPlane(size float64) *Mesh {
	h := size / 2
	m := &Mesh{}
	a := m.AddVert(r3.Vec{X: -h, Y: -h})
	b := m.AddVert(r3.Vec{X: h, Y: -h})
	c := m.AddVert(r3.Vec{X: h, Y: h})
	d := m.AddVert(r3.Vec{X: -h, Y: h})
	m.AddPoly(a, b, c, d)
	m.BuildEdges()
	return m
}

// NewCube returns an axis-aligned cube centred at the origin with outward facing quads.
func NewCube(size float64) *Mesh {
	h := size / 2
	m := &Mesh{}
	for i := 0; i < 8; i++ {
		co := r3.Vec{X: -h, Y: -h, Z: -h}
		if i&1 != 0 {
			co.X = h
		}
		if i&2 != 0 {
			co.Y = h
		}
		if i&4 != 0 {
			co.Z = h
		}
		m.AddVert(co)
	}
	m.AddPoly(0, 2, 3, 1) // -Z
	m.AddPoly(4, 5, 7, 6) // +Z
	m.AddPoly(0, 1, 5, 4) // -Y
	m.AddPoly(2, 6, 7, 3) // +Y
	m.AddPoly(0, 4, 6, 2) // -X
	m.AddPoly(1, 3, 7, 5) // +X
	m.BuildEdges()
	return m
}

// NewTriangle returns a single triangle on the XY plane, facing +Z.
func NewTriangle(size float64) *Mesh {
	m := &Mesh{}
	a := m.AddVert(r3.Vec{X: 0, Y: 0})
	b := m.AddVert(r3.Vec{X: size, Y: 0})
	c := m.AddVert(r3.Vec{X: 0, Y: size})
	m.AddPoly(a, b, c)
	m.BuildEdges()
	return m
}

package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vert is a base mesh vertex. Hidden mirrors the sculpt hide flag.
type Vert struct {
	Co     r3.Vec
	Hidden bool
}

type Edge struct {
	V [2]int
}

// Poly references TotLoop consecutive loops starting at LoopStart.
type Poly struct {
	LoopStart int
	TotLoop   int
	Flag      uint8
	MatNr     uint16
}

// Loop is a face corner: the vertex it sits on and the edge leaving it.
type Loop struct {
	V int
	E int
}

// Mesh is the coarse control cage that multires displacement is stored against.
type Mesh struct {
	Verts []Vert
	Edges []Edge
	Polys []Poly
	Loops []Loop
	// LoopColors is optional, one RGBA per loop.
	LoopColors [][4]uint8
}

func (m *Mesh) NumLoops() int { return len(m.Loops) }

// PolyVerts returns the vertex indices of poly p in winding order.
func (m *Mesh) PolyVerts(p int) []int {
	poly := m.Polys[p]
	out := make([]int, poly.TotLoop)
	for i := range out {
		out[i] = m.Loops[poly.LoopStart+i].V
	}
	return out
}

// AddVert appends a vertex and returns its index.
func (m *Mesh) AddVert(co r3.Vec) int {
	m.Verts = append(m.Verts, Vert{Co: co})
	return len(m.Verts) - 1
}

// AddPoly appends a face over the given vertices. Edges are resolved later by BuildEdges.
func (m *Mesh) AddPoly(verts ...int) int {
	start := len(m.Loops)
	for _, v := range verts {
		m.Loops = append(m.Loops, Loop{V: v, E: -1})
	}
	m.Polys = append(m.Polys, Poly{LoopStart: start, TotLoop: len(verts)})
	return len(m.Polys) - 1
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// BuildEdges (re)creates the edge list from the polys and assigns Loop.E.
func (m *Mesh) BuildEdges() {
	index := make(map[[2]int]int, len(m.Loops))
	m.Edges = m.Edges[:0]
	for _, p := range m.Polys {
		for i := 0; i < p.TotLoop; i++ {
			l := &m.Loops[p.LoopStart+i]
			next := m.Loops[p.LoopStart+(i+1)%p.TotLoop].V
			k := edgeKey(l.V, next)
			e, ok := index[k]
			if !ok {
				e = len(m.Edges)
				m.Edges = append(m.Edges, Edge{V: k})
				index[k] = e
			}
			l.E = e
		}
	}
}

// Validate checks index ranges and loop bookkeeping.
func (m *Mesh) Validate() error {
	next := 0
	for i, p := range m.Polys {
		if p.TotLoop < 3 {
			return fmt.Errorf("poly %d has %d loops", i, p.TotLoop)
		}
		if p.LoopStart != next {
			return fmt.Errorf("poly %d starts at loop %d, expected %d", i, p.LoopStart, next)
		}
		next += p.TotLoop
	}
	if next != len(m.Loops) {
		return fmt.Errorf("polys cover %d loops, mesh has %d", next, len(m.Loops))
	}
	for i, l := range m.Loops {
		if l.V < 0 || l.V >= len(m.Verts) {
			return fmt.Errorf("loop %d references vertex %d", i, l.V)
		}
	}
	if m.LoopColors != nil && len(m.LoopColors) != len(m.Loops) {
		return fmt.Errorf("loop colors: %d entries for %d loops", len(m.LoopColors), len(m.Loops))
	}
	return nil
}

// Center is the average of the poly's vertex positions.
func (m *Mesh) Center(p int) r3.Vec {
	poly := m.Polys[p]
	var c r3.Vec
	for i := 0; i < poly.TotLoop; i++ {
		c = r3.Add(c, m.Verts[m.Loops[poly.LoopStart+i].V].Co)
	}
	return r3.Scale(1/float64(poly.TotLoop), c)
}

// Normal is the Newell normal of poly p, unit length or zero for degenerate faces.
func (m *Mesh) Normal(p int) r3.Vec {
	poly := m.Polys[p]
	var n r3.Vec
	for i := 0; i < poly.TotLoop; i++ {
		a := m.Verts[m.Loops[poly.LoopStart+i].V].Co
		b := m.Verts[m.Loops[poly.LoopStart+(i+1)%poly.TotLoop].V].Co
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	if r3.Norm(n) == 0 {
		return n
	}
	return r3.Unit(n)
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Verts: append([]Vert(nil), m.Verts...),
		Edges: append([]Edge(nil), m.Edges...),
		Polys: append([]Poly(nil), m.Polys...),
		Loops: append([]Loop(nil), m.Loops...),
	}
	if m.LoopColors != nil {
		c.LoopColors = append([][4]uint8(nil), m.LoopColors...)
	}
	return c
}

// Append adds the geometry of o after that of m. Loop colours are kept only
// when both meshes carry them or m is empty.
func (m *Mesh) Append(o *Mesh) {
	vOff, eOff, lOff := len(m.Verts), len(m.Edges), len(m.Loops)
	hadColors := m.LoopColors != nil || lOff == 0
	m.Verts = append(m.Verts, o.Verts...)
	for _, e := range o.Edges {
		m.Edges = append(m.Edges, Edge{V: [2]int{e.V[0] + vOff, e.V[1] + vOff}})
	}
	for _, p := range o.Polys {
		p.LoopStart += lOff
		m.Polys = append(m.Polys, p)
	}
	for _, l := range o.Loops {
		l.V += vOff
		if l.E >= 0 {
			l.E += eOff
		}
		m.Loops = append(m.Loops, l)
	}
	if hadColors && o.LoopColors != nil {
		m.LoopColors = append(m.LoopColors, o.LoopColors...)
	} else {
		m.LoopColors = nil
	}
}

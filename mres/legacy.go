package mres

import (
	"fmt"

	"github.com/voxelsplace/multires/multires"
	"gonum.org/v1/gonum/spatial/r3"
)

// EncodeLegacy serialises a pre-displacement hierarchy as a version 1 file.
// Only kept so old files can be produced for conversion tests and tooling.
func EncodeLegacy(name string, lm *multires.LegacyMultires, comp Compression) ([]byte, error) {
	var e encoder
	e.str(name)
	e.uvar(len(lm.Verts))
	for _, v := range lm.Verts {
		e.f64(v.X)
		e.f64(v.Y)
		e.f64(v.Z)
	}
	e.uvar(len(lm.Levels))
	for k := range lm.Levels {
		lvl := &lm.Levels[k]
		e.uvar(lvl.TotVert)
		e.uvar(len(lvl.Faces))
		for _, f := range lvl.Faces {
			for _, v := range f.V {
				e.i32(v)
			}
			e.i32(f.Mid)
			e.u8(f.Flag)
			e.u16(f.MatNr)
		}
		e.uvar(len(lvl.Edges))
		for _, ed := range lvl.Edges {
			e.i32(ed.V[0])
			e.i32(ed.V[1])
			e.i32(ed.Mid)
		}
		e.bool(lvl.Colors != nil)
		for _, c := range lvl.Colors {
			for _, corner := range c {
				e.buf = append(e.buf, corner[:]...)
			}
		}
	}
	return wrap(VersionLegacy, e.buf, comp)
}

func decodeLegacy(d *decoder) (string, *multires.LegacyMultires, error) {
	name := d.str()
	lm := &multires.LegacyMultires{Verts: make([]r3.Vec, d.count(24))}
	for i := range lm.Verts {
		lm.Verts[i] = r3.Vec{X: d.f64(), Y: d.f64(), Z: d.f64()}
	}
	lm.Levels = make([]multires.LegacyLevel, d.count(3))
	for k := range lm.Levels {
		lvl := &lm.Levels[k]
		lvl.TotVert = d.uvar()
		lvl.Faces = make([]multires.LegacyFace, d.count(23))
		for i := range lvl.Faces {
			f := &lvl.Faces[i]
			for j := range f.V {
				f.V[j] = d.i32()
			}
			f.Mid = d.i32()
			f.Flag = d.u8()
			f.MatNr = d.u16()
		}
		lvl.Edges = make([]multires.LegacyEdge, d.count(12))
		for i := range lvl.Edges {
			lvl.Edges[i] = multires.LegacyEdge{V: [2]int{d.i32(), d.i32()}, Mid: d.i32()}
		}
		if d.bool() {
			lvl.Colors = make([][4][4]uint8, len(lvl.Faces))
			for i := range lvl.Colors {
				for c := range lvl.Colors[i] {
					copy(lvl.Colors[i][c][:], d.take(4))
				}
			}
		}
	}
	if d.err != nil {
		return "", nil, fmt.Errorf("mres: decode legacy: %w", d.err)
	}
	return name, lm, nil
}

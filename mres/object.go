package mres

import (
	"fmt"
	"os"

	"github.com/voxelsplace/multires/mesh"
	"github.com/voxelsplace/multires/multires"
	"gonum.org/v1/gonum/spatial/r3"
)

// Document is a decoded .mres file. Exactly one of Object and Legacy is set,
// depending on Version.
type Document struct {
	Version     uint8
	Compression Compression
	Object      *multires.Object
	// Legacy holds a version 1 hierarchy; LegacyName is the object name stored with it.
	Legacy     *multires.LegacyMultires
	LegacyName string
}

// Encode serialises ob as a version 2 file. External layers store only their
// reference; their vectors live in the external source.
func Encode(ob *multires.Object, comp Compression) ([]byte, error) {
	if ob.Mesh == nil {
		return nil, fmt.Errorf("mres: object %q has no mesh", ob.Name)
	}
	var e encoder
	e.str(ob.Name)
	e.f64(ob.Scale.X)
	e.f64(ob.Scale.Y)
	e.f64(ob.Scale.Z)
	encodeMesh(&e, ob.Mesh)

	e.bool(ob.Modifier != nil)
	if mmd := ob.Modifier; mmd != nil {
		e.u8(uint8(mmd.TotLvl))
		e.u8(uint8(mmd.Lvl))
		e.u8(uint8(mmd.SculptLvl))
		e.u8(uint8(mmd.RenderLvl))
		e.bool(mmd.Simple)
	}

	e.bool(ob.Layer != nil)
	if l := ob.Layer; l != nil {
		if len(l.Disps) != ob.Mesh.NumLoops() {
			return nil, fmt.Errorf("mres: layer has %d grids for %d loops", len(l.Disps), ob.Mesh.NumLoops())
		}
		encodeLayer(&e, l)
	}
	return wrap(VersionObject, e.buf, comp)
}

func encodeMesh(e *encoder, m *mesh.Mesh) {
	e.uvar(len(m.Verts))
	for _, v := range m.Verts {
		e.f64(v.Co.X)
		e.f64(v.Co.Y)
		e.f64(v.Co.Z)
		e.bool(v.Hidden)
	}
	e.uvar(len(m.Edges))
	for _, ed := range m.Edges {
		e.uvar(ed.V[0])
		e.uvar(ed.V[1])
	}
	e.uvar(len(m.Polys))
	for _, p := range m.Polys {
		e.uvar(p.TotLoop)
		e.u8(p.Flag)
		e.u16(p.MatNr)
	}
	e.uvar(len(m.Loops))
	for _, l := range m.Loops {
		e.uvar(l.V)
		e.uvar(l.E + 1)
	}
	e.bool(m.LoopColors != nil)
	for _, c := range m.LoopColors {
		e.buf = append(e.buf, c[:]...)
	}
}

func encodeLayer(e *encoder, l *multires.Layer) {
	external := ""
	if l.External != nil {
		external = l.External.Name
	}
	e.str(external)
	e.uvar(len(l.Disps))
	for i := range l.Disps {
		d := &l.Disps[i]
		e.u8(uint8(d.Level))
		e.uvar(d.TotDisp)
		if external == "" {
			e.uvar(len(d.Disps))
			for _, v := range d.Disps {
				e.f32(v.X)
				e.f32(v.Y)
				e.f32(v.Z)
			}
		}
		e.bool(d.Hidden != nil)
		if d.Hidden != nil {
			n := d.Hidden.Len()
			e.uvar(int(n))
			e.blob(packBits(d.Hidden, n))
		}
	}
	e.bool(l.Masks != nil)
	for _, m := range l.Masks {
		e.u8(uint8(m.Level))
		e.uvar(len(m.Data))
		for _, v := range m.Data {
			e.f32(float64(v))
		}
	}
}

// Decode parses a .mres file of either version.
func Decode(data []byte) (*Document, error) {
	version, comp, content, err := unwrap(data)
	if err != nil {
		return nil, err
	}
	doc := &Document{Version: version, Compression: comp}
	d := &decoder{src: content}
	switch version {
	case VersionObject:
		doc.Object, err = decodeObject(d)
	case VersionLegacy:
		doc.LegacyName, doc.Legacy, err = decodeLegacy(d)
	default:
		return nil, fmt.Errorf("%w: %d", ErrVersion, version)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeObject(d *decoder) (*multires.Object, error) {
	ob := &multires.Object{Name: d.str()}
	ob.Scale = r3.Vec{X: d.f64(), Y: d.f64(), Z: d.f64()}
	ob.Mesh = decodeMesh(d)
	if d.err != nil {
		return nil, fmt.Errorf("mres: decode mesh: %w", d.err)
	}
	if err := ob.Mesh.Validate(); err != nil {
		return nil, fmt.Errorf("mres: decode mesh: %w", err)
	}

	if d.bool() {
		ob.Modifier = &multires.Modifier{
			TotLvl:    int(d.u8()),
			Lvl:       int(d.u8()),
			SculptLvl: int(d.u8()),
			RenderLvl: int(d.u8()),
			Simple:    d.bool(),
		}
		mmd := ob.Modifier
		if mmd.TotLvl > multires.MaxLevels {
			return nil, fmt.Errorf("mres: level %d: %w", mmd.TotLvl, multires.ErrLevelOutOfRange)
		}
		// display levels never exceed the stored one
		mmd.Lvl = min(mmd.Lvl, mmd.TotLvl)
		mmd.SculptLvl = min(mmd.SculptLvl, mmd.TotLvl)
		mmd.RenderLvl = min(mmd.RenderLvl, mmd.TotLvl)
	}
	if d.bool() {
		l, err := decodeLayer(d)
		if err != nil {
			return nil, err
		}
		if len(l.Disps) != ob.Mesh.NumLoops() {
			return nil, fmt.Errorf("mres: layer has %d grids for %d loops", len(l.Disps), ob.Mesh.NumLoops())
		}
		ob.Layer = l
	}
	if d.err != nil {
		return nil, fmt.Errorf("mres: decode object: %w", d.err)
	}
	return ob, nil
}

func decodeMesh(d *decoder) *mesh.Mesh {
	m := &mesh.Mesh{}
	m.Verts = make([]mesh.Vert, d.count(25))
	for i := range m.Verts {
		m.Verts[i] = mesh.Vert{Co: r3.Vec{X: d.f64(), Y: d.f64(), Z: d.f64()}, Hidden: d.bool()}
	}
	m.Edges = make([]mesh.Edge, d.count(2))
	for i := range m.Edges {
		m.Edges[i].V = [2]int{d.uvar(), d.uvar()}
	}
	m.Polys = make([]mesh.Poly, d.count(4))
	start := 0
	for i := range m.Polys {
		p := mesh.Poly{LoopStart: start, TotLoop: d.uvar(), Flag: d.u8(), MatNr: d.u16()}
		start += p.TotLoop
		m.Polys[i] = p
	}
	m.Loops = make([]mesh.Loop, d.count(2))
	for i := range m.Loops {
		m.Loops[i] = mesh.Loop{V: d.uvar(), E: d.uvar() - 1}
	}
	if d.bool() {
		m.LoopColors = make([][4]uint8, len(m.Loops))
		for i := range m.LoopColors {
			copy(m.LoopColors[i][:], d.take(4))
		}
	}
	return m
}

func decodeLayer(d *decoder) (*multires.Layer, error) {
	l := &multires.Layer{}
	if name := d.str(); name != "" {
		l.External = &multires.ExternalRef{Name: name}
	}
	l.Disps = make([]multires.Disps, d.count(3))
	for i := range l.Disps {
		g := &l.Disps[i]
		g.Level = int(d.u8())
		g.TotDisp = d.uvar()
		if g.Level > multires.MaxLevels {
			return nil, fmt.Errorf("mres: grid %d level %d: %w", i, g.Level, multires.ErrLevelOutOfRange)
		}
		if l.External == nil {
			if n := d.count(12); n > 0 {
				g.Disps = make([]r3.Vec, n)
				for j := range g.Disps {
					g.Disps[j] = r3.Vec{X: d.f32(), Y: d.f32(), Z: d.f32()}
				}
			}
		}
		if d.bool() {
			n := uint(d.uvar())
			packed := d.blob()
			if d.err != nil {
				break
			}
			h, err := unpackBits(packed, n)
			if err != nil {
				return nil, fmt.Errorf("mres: grid %d hidden: %w", i, err)
			}
			g.Hidden = h
		}
	}
	if d.bool() {
		l.Masks = make([]multires.GridPaintMask, len(l.Disps))
		for i := range l.Masks {
			l.Masks[i].Level = int(d.u8())
			if n := d.count(4); n > 0 {
				l.Masks[i].Data = make([]float32, n)
				for j := range l.Masks[i].Data {
					l.Masks[i].Data[j] = float32(d.f32())
				}
			}
		}
	}
	if d.err != nil {
		return nil, fmt.Errorf("mres: decode layer: %w", d.err)
	}
	return l, nil
}

// ReadFile decodes the .mres file at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// WriteFile encodes ob to path.
func WriteFile(path string, ob *multires.Object, comp Compression) error {
	data, err := Encode(ob, comp)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

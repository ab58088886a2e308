// Package api exposes the multires operations on encoded .mres bytes, for the
// CLI and the wasm bindings.
package api

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/voxelsplace/multires/mesh"
	"github.com/voxelsplace/multires/mres"
	"github.com/voxelsplace/multires/multires"
	"gonum.org/v1/gonum/spatial/r3"
)

var ErrFaceOutOfRange = errors.New("api: face index out of range")

// Engine runs operations on .mres documents and re-encodes the result.
type Engine struct {
	orch      *multires.Orchestrator
	comp      mres.Compression
	generator string
}

type Option func(*Engine)

// WithCompression sets the codec of the files the engine writes.
func WithCompression(c mres.Compression) Option {
	return func(e *Engine) { e.comp = c }
}

// WithGenerator sets the glTF asset generator string.
func WithGenerator(g string) Option {
	return func(e *Engine) { e.generator = g }
}

// NewEngine wraps o. A nil orchestrator gets a default one.
func NewEngine(o *multires.Orchestrator, opts ...Option) *Engine {
	if o == nil {
		o = multires.New()
	}
	e := &Engine{orch: o, comp: mres.CompZstd, generator: "multires"}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Orchestrator() *multires.Orchestrator { return e.orch }

// Load decodes data. Legacy documents are converted on the way in.
func (e *Engine) Load(data []byte) (*multires.Object, error) {
	doc, err := mres.Decode(data)
	if err != nil {
		return nil, err
	}
	if doc.Legacy == nil {
		return doc.Object, nil
	}
	ob := multires.NewObject(doc.LegacyName, &mesh.Mesh{})
	if err := e.orch.LoadOld(ob, doc.Legacy); err != nil {
		return nil, err
	}
	return ob, nil
}

// Save encodes ob with the engine's codec. An external layer held in memory is
// written back to its source first, since the document only keeps the name.
func (e *Engine) Save(ob *multires.Object) ([]byte, error) {
	if l := ob.Layer; l != nil && l.External != nil && l.External.InMemory {
		if err := e.orch.Externalize(ob, l.External.Name); err != nil {
			return nil, err
		}
	}
	return mres.Encode(ob, e.comp)
}

func (e *Engine) edit(data []byte, fn func(ob *multires.Object) error) ([]byte, error) {
	ob, err := e.Load(data)
	if err != nil {
		return nil, err
	}
	if err := fn(ob); err != nil {
		return nil, err
	}
	return e.Save(ob)
}

// GenCube returns a cube object with an empty multires modifier.
func (e *Engine) GenCube(size float64) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("api: cube size must be positive, got %g", size)
	}
	ob := multires.NewObject("cube", mesh.NewCube(size))
	multires.AddModifier(ob)
	return e.Save(ob)
}

// Subdivide adds levels one at a time. Requests past the level cap stop silently.
func (e *Engine) Subdivide(data []byte, levels int) ([]byte, error) {
	return e.edit(data, func(ob *multires.Object) error {
		if ob.Modifier == nil {
			multires.AddModifier(ob)
		}
		for i := 0; i < levels; i++ {
			if err := e.orch.SubdivideOneLevel(ob); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Engine) DeleteHigher(data []byte, lvl int) ([]byte, error) {
	return e.edit(data, func(ob *multires.Object) error {
		return e.orch.DeleteHigherLevels(ob, lvl)
	})
}

func (e *Engine) Scale(data []byte, s r3.Vec) ([]byte, error) {
	return e.edit(data, func(ob *multires.Object) error {
		return e.orch.ScaleDisplacement(ob, multires.ScaleMat(s))
	})
}

// SculptNoise moves every sample of the sculpt cage along its normal by a
// random amount in [-amp, amp] and captures the result as displacement.
func (e *Engine) SculptNoise(data []byte, amp float64, seed int64) ([]byte, error) {
	return e.edit(data, func(ob *multires.Object) error {
		if ob.Modifier == nil || ob.Modifier.TotLvl == 0 {
			return fmt.Errorf("api: %q has no multires levels to sculpt", ob.Name)
		}
		if err := e.beginSculpt(ob); err != nil {
			return err
		}
		r := rand.New(rand.NewSource(seed))
		for _, grid := range ob.Sculpt.Grids.GridData() {
			for i := range grid {
				d := amp * (2*r.Float64() - 1)
				grid[i].Co = r3.Add(grid[i].Co, r3.Scale(d, grid[i].No))
			}
		}
		multires.MarkModified(ob, multires.CoordsModified)
		return e.orch.EndSculpt(ob)
	})
}

func (e *Engine) beginSculpt(ob *multires.Object) error {
	if err := e.orch.BeginSculpt(ob); err != nil {
		return err
	}
	if ob.Sculpt.Grids == nil {
		ob.Sculpt = nil
		return fmt.Errorf("api: %q has sculpt level 0", ob.Name)
	}
	return nil
}

// Join merges src into dst after syncing levels and rescaling src's
// displacement into dst's object space.
func (e *Engine) Join(dstData, srcData []byte) ([]byte, error) {
	dst, err := e.Load(dstData)
	if err != nil {
		return nil, err
	}
	src, err := e.Load(srcData)
	if err != nil {
		return nil, err
	}
	if dst.Modifier == nil && src.Modifier != nil {
		multires.AddModifier(dst)
	}
	if err := e.orch.PrepareJoin(src, dst); err != nil {
		return nil, err
	}
	if dst.Modifier != nil {
		for _, ob := range []*multires.Object{dst, src} {
			if err := e.orch.EnsureExternalRead(multires.MeshTarget{Object: ob}, dst.Modifier.TotLvl); err != nil {
				return nil, err
			}
		}
	}

	dstLoops := dst.Mesh.NumLoops()
	dst.Mesh.Append(src.Mesh)
	if dst.Layer != nil || src.Layer != nil {
		if dst.Layer == nil {
			dst.Layer = multires.NewLayer(dstLoops)
		}
		srcLayer := src.Layer
		if srcLayer == nil {
			srcLayer = multires.NewLayer(src.Mesh.NumLoops())
		}
		if dst.Layer.Masks != nil || srcLayer.Masks != nil {
			dst.Layer.EnsureMasks()
			srcLayer.EnsureMasks()
			dst.Layer.Masks = append(dst.Layer.Masks, srcLayer.Masks...)
		}
		dst.Layer.Disps = append(dst.Layer.Disps, srcLayer.Disps...)
		dst.Layer.External = nil
		if err := e.orch.TopologyChanged(dst); err != nil {
			return nil, err
		}
	}
	return e.Save(dst)
}

// Hide hides the vertices of face and the grids of its corners.
func (e *Engine) Hide(data []byte, face int) ([]byte, error) {
	return e.edit(data, func(ob *multires.Object) error {
		if face < 0 || face >= len(ob.Mesh.Polys) {
			return fmt.Errorf("%w: %d of %d", ErrFaceOutOfRange, face, len(ob.Mesh.Polys))
		}
		for _, v := range ob.Mesh.PolyVerts(face) {
			ob.Mesh.Verts[v].Hidden = true
		}
		if ob.Modifier == nil || ob.Modifier.TotLvl == 0 {
			return nil
		}
		if ob.Layer == nil {
			ob.Layer = multires.InitHidden(ob.Mesh, ob.Modifier.TotLvl)
			return nil
		}
		if err := e.beginSculpt(ob); err != nil {
			return err
		}
		cage := ob.Sculpt.Grids
		off := cage.GridOffset()[face]
		for s := 0; s < cage.FaceLen(face); s++ {
			cage.Hidden[off+s] = multires.NewHiddenBitmap(cage.Level(), true)
		}
		multires.MarkModified(ob, multires.HiddenModified)
		return e.orch.EndSculpt(ob)
	})
}

// Externalize moves the displacement vectors to the orchestrator's external
// source under name. The returned document keeps only the reference.
func (e *Engine) Externalize(data []byte, name string) ([]byte, error) {
	return e.edit(data, func(ob *multires.Object) error {
		return e.orch.Externalize(ob, name)
	})
}

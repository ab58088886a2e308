package multires

import (
	"runtime"
	"sync/atomic"

	"github.com/voxelsplace/multires/subdiv"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// DispOp selects the direction of a displacement pass.
type DispOp uint8

const (
	// ApplyDisplacements writes ref + basis·disp into the cage.
	ApplyDisplacements DispOp = iota
	// CalcDisplacements stores basis⁻¹·(cage - ref).
	CalcDisplacements
	// AddDisplacements adds basis⁻¹·cage to the stored displacement.
	AddDisplacements
)

func (op DispOp) String() string {
	switch op {
	case ApplyDisplacements:
		return "apply"
	case CalcDisplacements:
		return "calc"
	case AddDisplacements:
		return "add"
	default:
		return "unknown"
	}
}

// DefaultMinFacesPerTask is the smallest number of faces handed to one task.
const DefaultMinFacesPerTask = 16

// Evaluator converts between cage coordinates and tangent-space displacement.
// Faces are processed in parallel; each task owns the grids of its faces.
type Evaluator struct {
	// Workers bounds concurrent tasks; <= 0 means GOMAXPROCS.
	Workers int
	// MinFacesPerTask; <= 0 means DefaultMinFacesPerTask.
	MinFacesPerTask int
}

func (e *Evaluator) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (e *Evaluator) minFaces() int {
	if e.MinFacesPerTask > 0 {
		return e.MinFacesPerTask
	}
	return DefaultMinFacesPerTask
}

// forEachFace calls fn for every face index, fanning out over chunks of at least
// minFaces faces. Small inputs run on the calling goroutine.
func (e *Evaluator) forEachFace(n int, fn func(p int)) error {
	workers := e.workers()
	chunk := e.minFaces()
	if n <= chunk || workers == 1 {
		for p := 0; p < n; p++ {
			fn(p)
		}
		return nil
	}
	if per := (n + workers - 1) / workers; per > chunk {
		chunk = per
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < n; start += chunk {
		lo, hi := start, min(start+chunk, n)
		g.Go(func() error {
			for p := lo; p < hi; p++ {
				fn(p)
			}
			return nil
		})
	}
	return g.Wait()
}

// Run performs op over every face of cage against the displacement layer of t.
// ref is the reference basis grid set (same layout as cage); nil uses a copy of
// the cage itself. totlvl is the level the layer is stored at. A missing layer
// is created for CalcDisplacements and makes other ops a no-op.
func (e *Evaluator) Run(cage *subdiv.Cage, t Target, op DispOp, ref [][]subdiv.Elem, totlvl int) error {
	m := t.baseMesh()
	l := t.layer()
	if l == nil {
		if op != CalcDisplacements {
			return nil
		}
		l = NewLayer(m.NumLoops())
		t.setLayer(l)
	}

	key := cage.GridKey()
	gridSize := key.GridSize
	dSkip, err := Factor(key.Level, totlvl)
	if err != nil {
		return err
	}
	dGridSize := GridSize(totlvl)
	if ref == nil {
		ref = cage.CopyGrids()
	}

	// allocation happens here, never inside the tasks
	if n := l.reallocateMissing(totlvl); n > 0 {
		Logger().Debug("multires: allocated missing grids", "grids", n, "level", totlvl)
	}
	var masks []GridPaintMask
	if key.HasMask && l.Masks != nil {
		masks = l.Masks
		for i := range masks {
			if masks[i].Level < key.Level {
				masks[i].Level = key.Level
				masks[i].Data = nil
			}
			if len(masks[i].Data) != GridArea(masks[i].Level) {
				masks[i].Data = make([]float32, GridArea(masks[i].Level))
			}
		}
	}

	var singular atomic.Int64
	grids := cage.GridData()
	offsets := cage.GridOffset()

	err = e.forEachFace(len(m.Polys), func(p int) {
		poly := m.Polys[p]
		for s := 0; s < poly.TotLoop; s++ {
			gIndex := offsets[p] + s
			loop := poly.LoopStart + s
			grid, subgrid := grids[gIndex], ref[gIndex]
			data := l.Disps[loop].Disps
			var gpm *GridPaintMask
			if masks != nil {
				gpm = &masks[loop]
			}

			for y := 0; y < gridSize; y++ {
				for x := 0; x < gridSize; x++ {
					el := &grid[y*gridSize+x]
					sco := subgrid[y*gridSize+x].Co
					di := dGridSize*y*dSkip + x*dSkip
					mat := tangentMatrix(subgrid, gridSize, x, y)

					switch op {
					case ApplyDisplacements:
						el.Co = r3.Add(sco, mat.MulVec(data[di]))
					case CalcDisplacements:
						inv, ok := mat.Inverse()
						if !ok {
							data[di] = r3.Vec{}
							singular.Add(1)
							break
						}
						data[di] = inv.MulVec(r3.Sub(el.Co, sco))
					case AddDisplacements:
						inv, ok := mat.Inverse()
						if !ok {
							singular.Add(1)
							break
						}
						data[di] = r3.Add(data[di], inv.MulVec(el.Co))
					}

					if gpm == nil {
						continue
					}
					switch op {
					case ApplyDisplacements:
						el.Mask = gpm.Sample(key.Level, x, y)
					case CalcDisplacements:
						gpm.Data[gpm.index(key.Level, x, y)] = min(max(el.Mask, 0), 1)
					case AddDisplacements:
						gpm.Data[gpm.index(key.Level, x, y)] += el.Mask
					}
				}
			}
		}
	})
	if err != nil {
		return err
	}

	facesEvaluated.WithLabelValues(op.String()).Add(float64(len(m.Polys)))
	if n := singular.Load(); n > 0 {
		singularBases.Add(float64(n))
		Logger().Warn("multires: singular tangent basis", "op", op.String(), "samples", n)
	}
	return nil
}

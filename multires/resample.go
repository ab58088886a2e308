package multires

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// CopyGrid copies displacement vectors between grids of different sizes.
// Coarse to fine writes only the lattice samples of dst; the samples in between
// are left for a refinement pass. Fine to coarse point-samples at the stride.
func CopyGrid(dst, src []r3.Vec, dstSize, srcSize int) {
	if dstSize > srcSize {
		skip := (dstSize - 1) / (srcSize - 1)
		j := 0
		for y := 0; y < srcSize; y++ {
			for x := 0; x < srcSize; x++ {
				dst[y*skip*dstSize+x*skip] = src[j]
				j++
			}
		}
		return
	}
	skip := (srcSize - 1) / (dstSize - 1)
	j := 0
	for y := 0; y < dstSize; y++ {
		for x := 0; x < dstSize; x++ {
			dst[j] = src[y*skip*srcSize+x*skip]
			j++
		}
	}
}

// BilinearSample reads disps (side x side) at fractional (u, v), clamped to the grid.
// NaN coordinates yield the zero vector.
func BilinearSample(disps []r3.Vec, side int, u, v float64) r3.Vec {
	if len(disps) == 0 || math.IsNaN(u) || math.IsNaN(v) {
		return r3.Vec{}
	}
	max := float64(side - 1)
	u = math.Min(math.Max(u, 0), max)
	v = math.Min(math.Max(v, 0), max)

	x, y := int(math.Floor(u)), int(math.Floor(v))
	x2, y2 := x+1, y+1
	if x2 >= side {
		x2 = side - 1
	}
	if y2 >= side {
		y2 = side - 1
	}
	ur, vr := u-float64(x), v-float64(y)

	top := r3.Add(r3.Scale(1-ur, disps[y*side+x]), r3.Scale(ur, disps[y*side+x2]))
	bot := r3.Add(r3.Scale(1-ur, disps[y2*side+x]), r3.Scale(ur, disps[y2*side+x2]))
	return r3.Add(r3.Scale(1-vr, top), r3.Scale(vr, bot))
}

// GridPaintMask is a per-loop sculpt mask stored at its own level.
type GridPaintMask struct {
	Data  []float32
	Level int
}

// Sample returns the mask value for sample (x, y) of a grid at level.
// The mask must be stored at level or above.
func (m *GridPaintMask) Sample(level, x, y int) float32 {
	return m.Data[m.index(level, x, y)]
}

func (m *GridPaintMask) index(level, x, y int) int {
	f := mustFactor(level, m.Level)
	return (y*f)*GridSize(m.Level) + x*f
}

// downsample point-samples the mask down to level; no-op when already at or below it.
func (m *GridPaintMask) downsample(level int) {
	if level >= m.Level || m.Data == nil {
		return
	}
	side := GridSize(level)
	data := make([]float32, side*side)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			data[y*side+x] = m.Sample(level, x, y)
		}
	}
	m.Data = data
	m.Level = level
}

package multires

import (
	"fmt"

	"github.com/voxelsplace/multires/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// LoadOld250 converts per-face displacement grids, one square grid per poly of
// m covering the whole face, into a per-loop layer. Each corner grid is
// resampled out of the face grid at half its resolution and its vectors are
// turned into the corner's frame. Polys with no grid get unallocated loops.
func LoadOld250(m *mesh.Mesh, faceDisps [][]r3.Vec) (*Layer, error) {
	if len(faceDisps) != len(m.Polys) {
		return nil, &LegacyError{What: fmt.Sprintf("%d face grids for %d faces", len(faceDisps), len(m.Polys))}
	}
	l := NewLayer(m.NumLoops())
	for p, poly := range m.Polys {
		disps := faceDisps[p]
		if len(disps) == 0 {
			continue
		}
		if poly.TotLoop != 3 && poly.TotLoop != 4 {
			return nil, &LegacyError{What: fmt.Sprintf("face %d has %d corners", p, poly.TotLoop)}
		}
		oldlvl, ok := LevelFromArea(len(disps))
		if !ok || oldlvl < 2 {
			return nil, &LegacyError{What: fmt.Sprintf("face %d has %d displacements", p, len(disps))}
		}
		newlvl := oldlvl - 1
		oldside, newside := GridSize(oldlvl), GridSize(newlvl)
		offset := float64(oldside)*0.5 - 0.5

		for s := 0; s < poly.TotLoop; s++ {
			out := make([]r3.Vec, newside*newside)
			for y := 0; y < newside; y++ {
				for x := 0; x < newside; x++ {
					u, v := faceToCorner250(s, offset, float64(x), float64(y))
					d := BilinearSample(disps, oldside, u, v)
					switch s {
					case 0:
						d.X, d.Y = -d.Y, -d.X
					case 1:
						d.Y = -d.Y
					case 2:
						d.X, d.Y = d.Y, d.X
					case 3:
						d.X = -d.X
					}
					out[y*newside+x] = d
				}
			}
			l.Disps[poly.LoopStart+s] = Disps{Disps: out, TotDisp: len(out), Level: newlvl}
		}
	}
	return l, nil
}

// faceToCorner250 maps sample (x, y) of corner grid s to face grid coordinates.
func faceToCorner250(s int, offset, x, y float64) (u, v float64) {
	switch s {
	case 1:
		return offset + x, offset - y
	case 2:
		return offset + y, offset + x
	case 3:
		return offset - x, offset + y
	default:
		return offset - y, offset - x
	}
}

// RotFaceToCorner finds the corner grid and its coordinates for a face UV
// (u, v in 0..faceSide-1) on a quad or triangle. Other polygons report false.
func RotFaceToCorner(polyLen, faceSide int, u, v float64) (s int, x, y float64, ok bool) {
	offset := float64(faceSide)*0.5 - 0.5
	switch polyLen {
	case 4:
		switch {
		case u <= offset && v <= offset:
			return 0, offset - v, offset - u, true
		case u > offset && v <= offset:
			return 1, u - offset, offset - v, true
		case u > offset && v > offset:
			return 2, v - offset, u - offset, true
		default:
			return 3, offset - u, v - offset, true
		}
	case 3:
		gridSize := float64(int(offset))
		span := float64(faceSide - 1)
		w := span - u - v
		var w1, w2 float64
		switch {
		case u >= v && u >= w:
			s, w1, w2 = 0, w, v
		case v >= u && v >= w:
			s, w1, w2 = 1, u, w
		default:
			s, w1, w2 = 2, v, u
		}
		w1 /= span
		w2 /= span
		x = (1 - (2*w1)/(1-w2)) * gridSize
		y = (1 - (2*w2)/(1-w1)) * gridSize
		return s, x, y, true
	}
	return 0, 0, 0, false
}

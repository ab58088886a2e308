package mres

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/voxelsplace/multires/multires"
	"gonum.org/v1/gonum/spatial/r3"
)

const mdxMagic = "MDX1"

// MarshalMDX encodes per-loop displacement vectors as an external .mdx file.
// The file carries no level information.
func MarshalMDX(disps [][]r3.Vec) []byte {
	e := encoder{buf: []byte(mdxMagic)}
	e.uvar(len(disps))
	for _, grid := range disps {
		e.uvar(len(grid))
		for _, v := range grid {
			e.f32(v.X)
			e.f32(v.Y)
			e.f32(v.Z)
		}
	}
	return e.buf
}

// UnmarshalMDX decodes an .mdx file.
func UnmarshalMDX(data []byte) ([][]r3.Vec, error) {
	if len(data) < len(mdxMagic) || string(data[:len(mdxMagic)]) != mdxMagic {
		return nil, ErrBadMagic
	}
	d := &decoder{src: data, pos: len(mdxMagic)}
	out := make([][]r3.Vec, d.count(1))
	for i := range out {
		if n := d.count(12); n > 0 {
			out[i] = make([]r3.Vec, n)
			for j := range out[i] {
				out[i][j] = r3.Vec{X: d.f32(), Y: d.f32(), Z: d.f32()}
			}
		}
	}
	if d.err != nil {
		return nil, fmt.Errorf("mres: decode mdx: %w", d.err)
	}
	return out, nil
}

// Dir is an ExternalSource keeping one .mdx file per layer name in a directory.
type Dir struct {
	Path string
}

var _ multires.ExternalSource = Dir{}

func (s Dir) file(name string) string {
	return filepath.Join(s.Path, filepath.Base(name))
}

func (s Dir) ReadDisplacements(name string) ([][]r3.Vec, error) {
	data, err := os.ReadFile(s.file(name))
	if err != nil {
		return nil, err
	}
	return UnmarshalMDX(data)
}

func (s Dir) WriteDisplacements(name string, disps [][]r3.Vec) error {
	if err := os.MkdirAll(s.Path, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.file(name), MarshalMDX(disps), 0644)
}

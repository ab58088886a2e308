package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/voxelsplace/multires/api"
	"github.com/voxelsplace/multires/config"
	"github.com/voxelsplace/multires/multires"
	"gonum.org/v1/gonum/spatial/r3"
)

// RunGenCube writes a cube of the given edge length with an empty modifier.
func RunGenCube(cfg *config.Config, size float64, outPath string) error {
	e, closer, err := openEngine(cfg, filepath.Dir(outPath))
	if err != nil {
		return err
	}
	defer closer()
	out, err := e.GenCube(size)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, out, 0644)
}

func RunSubdivide(cfg *config.Config, inPath string, levels int, outPath string) error {
	return transform(cfg, inPath, outPath, func(e *api.Engine, data []byte) ([]byte, error) {
		return e.Subdivide(data, levels)
	})
}

func RunDeleteHigher(cfg *config.Config, inPath string, level int, outPath string) error {
	return transform(cfg, inPath, outPath, func(e *api.Engine, data []byte) ([]byte, error) {
		return e.DeleteHigher(data, level)
	})
}

func RunScale(cfg *config.Config, inPath string, s r3.Vec, outPath string) error {
	return transform(cfg, inPath, outPath, func(e *api.Engine, data []byte) ([]byte, error) {
		return e.Scale(data, s)
	})
}

func RunHide(cfg *config.Config, inPath string, face int, outPath string) error {
	return transform(cfg, inPath, outPath, func(e *api.Engine, data []byte) ([]byte, error) {
		return e.Hide(data, face)
	})
}

// RunJoin merges srcPath into dstPath and writes the joined object.
func RunJoin(cfg *config.Config, dstPath, srcPath, outPath string) error {
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	return transform(cfg, dstPath, outPath, func(e *api.Engine, data []byte) ([]byte, error) {
		return e.Join(data, src)
	})
}

// RunExport writes the displaced surface of inPath as a .glb.
func RunExport(cfg *config.Config, inPath, outPath string, render bool) error {
	return transform(cfg, inPath, outPath, func(e *api.Engine, data []byte) ([]byte, error) {
		return e.ExportGLB(data, multires.EvalContext{Render: render})
	})
}

// RunExternalize moves the displacement of inPath into mdxPath and writes the
// referencing object to outPath. With a configured store the vectors go there
// under the base name of mdxPath instead.
func RunExternalize(cfg *config.Config, inPath, outPath, mdxPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	e, closer, err := openEngine(cfg, filepath.Dir(mdxPath))
	if err != nil {
		return err
	}
	defer closer()
	out, err := e.Externalize(data, filepath.Base(mdxPath))
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, out, 0644)
}

// RunInfo returns a human readable summary of inPath.
func RunInfo(cfg *config.Config, inPath string) (string, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return "", err
	}
	e, closer, err := openEngine(cfg, filepath.Dir(inPath))
	if err != nil {
		return "", err
	}
	defer closer()
	info, err := e.Inspect(data)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(info.String(), "\n"), nil
}

// RunConvert rewrites inPath in the current format; legacy files are converted.
func RunConvert(cfg *config.Config, inPath, outPath string) error {
	return transform(cfg, inPath, outPath, func(e *api.Engine, data []byte) ([]byte, error) {
		ob, err := e.Load(data)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", inPath, err)
		}
		return e.Save(ob)
	})
}

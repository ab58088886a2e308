package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxelsplace/multires/config"
	"github.com/voxelsplace/multires/mres"
	"github.com/voxelsplace/multires/multires"
	"gonum.org/v1/gonum/spatial/r3"
)

func cubeFile(t *testing.T, cfg *config.Config, dir string, levels int) string {
	t.Helper()
	path := filepath.Join(dir, "cube.mres")
	require.NoError(t, RunGenCube(cfg, 2, path))
	if levels > 0 {
		require.NoError(t, RunSubdivide(cfg, path, levels, path))
	}
	return path
}

func TestCommandChain(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	path := cubeFile(t, cfg, dir, 2)

	noisy := filepath.Join(dir, "noisy.mres")
	require.NoError(t, RunSculptNoiseSeed(cfg, path, 0.05, 3, noisy))
	scaled := filepath.Join(dir, "scaled.mres")
	require.NoError(t, RunScale(cfg, noisy, r3.Vec{X: 3, Y: 3, Z: 3}, scaled))
	hidden := filepath.Join(dir, "hidden.mres")
	require.NoError(t, RunHide(cfg, scaled, 2, hidden))
	lower := filepath.Join(dir, "lower.mres")
	require.NoError(t, RunDeleteHigher(cfg, hidden, 1, lower))

	out, err := RunInfo(cfg, lower)
	require.NoError(t, err)
	assert.Contains(t, out, "total 1")
	assert.Contains(t, out, "zstd")

	glb := filepath.Join(dir, "cube.glb")
	require.NoError(t, RunExport(cfg, lower, glb, false))
	data, err := os.ReadFile(glb)
	require.NoError(t, err)
	assert.Equal(t, "glTF", string(data[:4]))
}

func TestJoinFiles(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	a := cubeFile(t, cfg, dir, 1)
	b := filepath.Join(dir, "b.mres")
	require.NoError(t, RunGenCube(cfg, 1, b))

	out := filepath.Join(dir, "joined.mres")
	require.NoError(t, RunJoin(cfg, a, b, out))
	info, err := RunInfo(cfg, out)
	require.NoError(t, err)
	assert.Contains(t, info, "16 verts, 12 faces, 48 loops")
}

func TestExternalizeToMDX(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	path := cubeFile(t, cfg, dir, 2)
	require.NoError(t, RunSculptNoiseSeed(cfg, path, 0.1, 9, path))

	ext := filepath.Join(dir, "ext.mres")
	mdx := filepath.Join(dir, "cube.mdx")
	require.NoError(t, RunExternalize(cfg, path, ext, mdx))
	assert.FileExists(t, mdx)

	info, err := RunInfo(cfg, ext)
	require.NoError(t, err)
	assert.Contains(t, info, "external:    cube.mdx")

	require.NoError(t, RunExport(cfg, ext, filepath.Join(dir, "ext.glb"), true))
}

func TestExternalizeToStore(t *testing.T) {
	cfg := config.Default()
	cfg.StoreDir = filepath.Join(t.TempDir(), "db")
	cfg.Compression = "zlib"
	dir := t.TempDir()
	path := cubeFile(t, cfg, dir, 1)

	ext := filepath.Join(dir, "ext.mres")
	require.NoError(t, RunExternalize(cfg, path, ext, filepath.Join(dir, "cube.mdx")))
	assert.NoFileExists(t, filepath.Join(dir, "cube.mdx"))

	converted := filepath.Join(dir, "back.mres")
	require.NoError(t, RunSubdivide(cfg, ext, 1, converted))
	info, err := RunInfo(cfg, converted)
	require.NoError(t, err)
	assert.Contains(t, info, "total 2")
}

func TestConvertLegacy(t *testing.T) {
	lm := &multires.LegacyMultires{
		Verts: []r3.Vec{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}},
		Levels: []multires.LegacyLevel{{
			TotVert: 4,
			Faces:   []multires.LegacyFace{{V: [4]int{0, 1, 2, 3}}},
			Edges: []multires.LegacyEdge{
				{V: [2]int{0, 1}}, {V: [2]int{1, 2}}, {V: [2]int{2, 3}}, {V: [2]int{0, 3}},
			},
		}},
	}
	data, err := mres.EncodeLegacy("quad", lm, mres.CompNone)
	require.NoError(t, err)
	dir := t.TempDir()
	in := filepath.Join(dir, "old.mres")
	require.NoError(t, os.WriteFile(in, data, 0644))

	out := filepath.Join(dir, "new.mres")
	require.NoError(t, RunConvert(nil, in, out))
	doc, err := mres.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, mres.VersionObject, doc.Version)
	assert.Equal(t, "quad", doc.Object.Name)
}

func TestBadInputs(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	assert.Error(t, RunSubdivide(cfg, filepath.Join(dir, "missing.mres"), 1, filepath.Join(dir, "x.mres")))

	cfg.Compression = "lz4"
	assert.Error(t, RunGenCube(cfg, 1, filepath.Join(dir, "x.mres")))
}

func TestNoiseSeedIsDeterministic(t *testing.T) {
	assert.Equal(t, noiseSeed(1, 0), noiseSeed(1, 0))
	assert.NotEqual(t, noiseSeed(1, 0), noiseSeed(1, 1))
	assert.GreaterOrEqual(t, noiseSeed(^uint64(0), 3), int64(0))
}

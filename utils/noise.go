package utils

import (
	"time"

	"github.com/voxelsplace/multires/api"
	"github.com/voxelsplace/multires/config"
)

// noiseSeed derives a per-run seed using a Weyl-like progression (unsigned math).
func noiseSeed(base uint64, i int) int64 {
	const weyl = uint64(0x9e3779b97f4a7c15)
	seed := base ^ (uint64(i)+1)*weyl
	return int64(seed & 0x7fffffffffffffff)
}

// RunSculptNoise perturbs the sculpt-level surface of inPath along its normals
// by up to amp and captures the result as displacement.
func RunSculptNoise(cfg *config.Config, inPath string, amp float64, outPath string) error {
	return RunSculptNoiseSeed(cfg, inPath, amp, noiseSeed(uint64(time.Now().UnixNano()), 0), outPath)
}

// RunSculptNoiseSeed is RunSculptNoise with a fixed seed.
func RunSculptNoiseSeed(cfg *config.Config, inPath string, amp float64, seed int64, outPath string) error {
	if amp < 0 {
		amp = -amp
	}
	return transform(cfg, inPath, outPath, func(e *api.Engine, data []byte) ([]byte, error) {
		return e.SculptNoise(data, amp, seed)
	})
}

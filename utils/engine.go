package utils

import (
	"os"
	"path/filepath"

	"github.com/voxelsplace/multires/api"
	"github.com/voxelsplace/multires/config"
	"github.com/voxelsplace/multires/mres"
	"github.com/voxelsplace/multires/multires"
	"github.com/voxelsplace/multires/store"
)

// openEngine builds an engine from cfg. External layers come from the badger
// store when StoreDir is set, otherwise from .mdx files in dir. The returned
// func releases the store.
func openEngine(cfg *config.Config, dir string) (*api.Engine, func() error, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	comp, err := mres.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, nil, err
	}

	var src multires.ExternalSource = mres.Dir{Path: dir}
	closer := func() error { return nil }
	if cfg.StoreDir != "" {
		s, err := store.Open(cfg.StoreDir)
		if err != nil {
			return nil, nil, err
		}
		src, closer = s, s.Close
	}

	o := multires.New(
		multires.WithLogger(multires.Logger()),
		multires.WithWorkers(cfg.GetWorkers()),
		multires.WithMinFacesPerTask(cfg.GetMinFacesPerTask()),
		multires.WithExternalSource(src),
	)
	e := api.NewEngine(o, api.WithCompression(comp), api.WithGenerator(cfg.Export.Generator))
	return e, closer, nil
}

// transform reads inPath, applies fn and writes the result to outPath.
func transform(cfg *config.Config, inPath, outPath string, fn func(e *api.Engine, data []byte) ([]byte, error)) (err error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	e, closer, err := openEngine(cfg, filepath.Dir(inPath))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closer(); err == nil {
			err = cerr
		}
	}()
	out, err := fn(e, data)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, out, 0644)
}

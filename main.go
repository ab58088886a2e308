//go:build !(js && wasm)

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/voxelsplace/multires/config"
	"github.com/voxelsplace/multires/multires"
	"github.com/voxelsplace/multires/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

func usage() {
	fmt.Println("Usage: multires <command> [args] [-metrics]")
	fmt.Println("Commands:")
	fmt.Println("  gencube <size> <out.mres>                      (base cube with an empty multires modifier)")
	fmt.Println("  subdivide <in.mres> <levels> <out.mres>        (add levels, carrying existing detail)")
	fmt.Println("  delhigher <in.mres> <level> <out.mres>         (drop every level above <level>)")
	fmt.Println("  scale <in.mres> <sx> <sy> <sz> <out.mres>      (scale stored displacement)")
	fmt.Println("  sculptnoise <in.mres> <amp> <out.mres>         (random sculpt at the sculpt level)")
	fmt.Println("  join <dst.mres> <src.mres> <out.mres>          (merge src into dst, syncing levels)")
	fmt.Println("  hide <in.mres> <face> <out.mres>               (hide a base face and its grids)")
	fmt.Println("  export <in.mres> <out.glb>                     (displaced surface as binary glTF)")
	fmt.Println("  externalize <in.mres> <out.mres> <out.mdx>     (move displacement to an external file)")
	fmt.Println("  convert <in.mres> <out.mres>                   (rewrite in the current format, converting legacy files)")
	fmt.Println("  info <in.mres>                                 (levels, grids, hidden counts)")
	fmt.Println("Environment: MULTIRES_CONFIG (YAML config path), MULTIRES_WORKERS")
}

func fail(err error) {
	fmt.Println("Error:", err)
	os.Exit(1)
}

func need(args []string, n int) {
	if len(args) != n {
		usage()
		os.Exit(1)
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		fail(err)
	}
	return v
}

func parseInt(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		fail(err)
	}
	return v
}

// printMetrics dumps the multires counters of the default registry.
func printMetrics() {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		fail(err)
	}
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER || !strings.HasPrefix(mf.GetName(), "multires_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, lp := range m.GetLabel() {
				name += fmt.Sprintf("{%s=%q}", lp.GetName(), lp.GetValue())
			}
			fmt.Printf("%s %g\n", name, m.GetCounter().GetValue())
		}
	}
}

func main() {
	args := os.Args
	metrics := false
	if n := len(args); n > 1 && args[n-1] == "-metrics" {
		metrics = true
		args = args[:n-1]
	}
	if len(args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load("")
	if err != nil {
		fail(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	multires.SetLogger(logger)

	switch args[1] {
	case "gencube":
		need(args, 4)
		if err := utils.RunGenCube(cfg, parseFloat(args[2]), args[3]); err != nil {
			fail(err)
		}
	case "subdivide":
		need(args, 5)
		if err := utils.RunSubdivide(cfg, args[2], parseInt(args[3]), args[4]); err != nil {
			fail(err)
		}
	case "delhigher":
		need(args, 5)
		if err := utils.RunDeleteHigher(cfg, args[2], parseInt(args[3]), args[4]); err != nil {
			fail(err)
		}
	case "scale":
		need(args, 7)
		s := r3.Vec{X: parseFloat(args[3]), Y: parseFloat(args[4]), Z: parseFloat(args[5])}
		if err := utils.RunScale(cfg, args[2], s, args[6]); err != nil {
			fail(err)
		}
	case "sculptnoise":
		need(args, 5)
		if err := utils.RunSculptNoise(cfg, args[2], parseFloat(args[3]), args[4]); err != nil {
			fail(err)
		}
	case "join":
		need(args, 5)
		if err := utils.RunJoin(cfg, args[2], args[3], args[4]); err != nil {
			fail(err)
		}
	case "hide":
		need(args, 5)
		if err := utils.RunHide(cfg, args[2], parseInt(args[3]), args[4]); err != nil {
			fail(err)
		}
	case "export":
		need(args, 4)
		if err := utils.RunExport(cfg, args[2], args[3], false); err != nil {
			fail(err)
		}
	case "externalize":
		need(args, 5)
		if err := utils.RunExternalize(cfg, args[2], args[3], args[4]); err != nil {
			fail(err)
		}
	case "convert":
		need(args, 4)
		if err := utils.RunConvert(cfg, args[2], args[3]); err != nil {
			fail(err)
		}
	case "info":
		need(args, 3)
		out, err := utils.RunInfo(cfg, args[2])
		if err != nil {
			fail(err)
		}
		fmt.Println(out)
	default:
		usage()
		os.Exit(1)
	}

	if metrics {
		printMetrics()
	}
	fmt.Println("Operation completed!")
}

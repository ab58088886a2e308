//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/voxelsplace/multires/api"
	"github.com/voxelsplace/multires/multires"
)

var engine = api.NewEngine(multires.New())

func bytesArg(v js.Value) []byte {
	buf := make([]byte, v.Get("length").Int())
	js.CopyBytesToGo(buf, v)
	return buf
}

func toJS(out []byte, err error) any {
	if err != nil {
		return js.ValueOf(err.Error())
	}
	uint8arr := js.Global().Get("Uint8Array").New(len(out))
	js.CopyBytesToJS(uint8arr, out)
	return uint8arr
}

func genCube(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("missing cube size")
	}
	return toJS(engine.GenCube(args[0].Float()))
}

func subdivide(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf("missing mres bytes or level count")
	}
	return toJS(engine.Subdivide(bytesArg(args[0]), args[1].Int()))
}

func deleteHigher(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf("missing mres bytes or level")
	}
	return toJS(engine.DeleteHigher(bytesArg(args[0]), args[1].Int()))
}

func sculptNoise(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return js.ValueOf("missing mres bytes, amplitude or seed")
	}
	return toJS(engine.SculptNoise(bytesArg(args[0]), args[1].Float(), int64(args[2].Int())))
}

func mres2glb(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("missing mres bytes")
	}
	ctx := multires.EvalContext{}
	if len(args) > 1 {
		ctx.Render = args[1].Truthy()
	}
	return toJS(engine.ExportGLB(bytesArg(args[0]), ctx))
}

func mresInfo(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("missing mres bytes")
	}
	info, err := engine.Inspect(bytesArg(args[0]))
	if err != nil {
		return js.ValueOf(err.Error())
	}
	return js.ValueOf(info.String())
}

func main() {
	js.Global().Set("genCube", js.FuncOf(genCube))
	js.Global().Set("subdivide", js.FuncOf(subdivide))
	js.Global().Set("deleteHigher", js.FuncOf(deleteHigher))
	js.Global().Set("sculptNoise", js.FuncOf(sculptNoise))
	js.Global().Set("mres2glb", js.FuncOf(mres2glb))
	js.Global().Set("mresInfo", js.FuncOf(mresInfo))
	select {}
}

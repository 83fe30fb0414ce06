//go:build wasip1

// Command wasm is the reactor module a host loads to render dot grids.
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o dotgrid.wasm ./wasm
//
// Handles are offsets into the module's linear memory, so the host writes
// grids and palettes straight into the regions returned by alloc.
package main

import (
	"dotgrid/abi"
	"dotgrid/bridge"
	"dotgrid/session"
)

// init_canvas and generate_image_with_offset share one persistent canvas;
// generate_image always starts from a fresh one.
var core = abi.New(session.Options{Persistent: true})

func main() {}

//go:wasmexport alloc
func alloc(size uint32) uint32 {
	return uint32(core.Alloc(size))
}

//go:wasmexport dealloc
func dealloc(ptr, size uint32) {
	core.Dealloc(bridge.Handle(ptr), size)
}

//go:wasmexport init_canvas
func initCanvas(width, height uint32) {
	core.InitCanvas(width, height)
}

//go:wasmexport generate_image_with_offset
func generateImageWithOffset(gridPtr, gridLen, gridSize, dotSize, colorsPtr, colorsLen, offsetX, offsetY uint32) {
	core.GenerateImageWithOffset(bridge.Handle(gridPtr), gridLen, gridSize, dotSize, bridge.Handle(colorsPtr), colorsLen, offsetX, offsetY)
}

//go:wasmexport generate_image
func generateImage(gridPtr, gridLen, gridSize, dotSize, colorsPtr, colorsLen, canvasWidth, canvasHeight, offsetX, offsetY uint32) {
	core.GenerateImage(bridge.Handle(gridPtr), gridLen, gridSize, dotSize, bridge.Handle(colorsPtr), colorsLen, canvasWidth, canvasHeight, offsetX, offsetY)
}

//go:wasmexport get_image_size
func getImageSize() uint32 {
	return core.GetImageSize()
}

//go:wasmexport get_image_data
func getImageData(ptr, maxSize uint32) uint32 {
	return core.GetImageData(bridge.Handle(ptr), maxSize)
}

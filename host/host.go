// Package host drives the wasm build of the renderer through wazero, doing
// what a browser or worker host does: copy the grid and palette into the
// module's linear memory, run the composition, then copy the PNG back out.
package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"dotgrid/session"
)

var (
	// ErrMissingExport is returned by Load for modules that lack one of the
	// renderer's exports.
	ErrMissingExport = errors.New("host: missing export")

	// ErrNoImage is returned by Render when the module staged nothing.
	ErrNoImage = errors.New("host: module produced no image")

	// ErrUnsupportedJob is returned by Render for values the 32-bit
	// boundary cannot carry.
	ErrUnsupportedJob = errors.New("host: job does not fit the module boundary")
)

var exports = []string{
	"alloc",
	"dealloc",
	"init_canvas",
	"generate_image",
	"generate_image_with_offset",
	"get_image_size",
	"get_image_data",
}

// Module is an instantiated renderer. Calls are serialized; a module has a
// single linear memory and staging slot.
type Module struct {
	mu  sync.Mutex
	rt  wazero.Runtime
	mod api.Module
	fn  map[string]api.Function
}

// Load compiles and instantiates a renderer module built for wasip1 as a
// reactor.
func Load(ctx context.Context, wasm []byte) (*Module, error) {
	rt := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("could not instantiate WASI: %w", err)
	}

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("could not compile module: %w", err)
	}

	for _, name := range exports {
		if _, ok := compiled.ExportedFunctions()[name]; !ok {
			rt.Close(ctx)
			return nil, fmt.Errorf("%w: %s", ErrMissingExport, name)
		}
	}

	cfg := wazero.NewModuleConfig().
		WithName("dotgrid").
		WithStartFunctions("_initialize")
	mod, err := rt.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("could not instantiate module: %w", err)
	}

	m := &Module{rt: rt, mod: mod, fn: make(map[string]api.Function, len(exports))}
	for _, name := range exports {
		m.fn[name] = mod.ExportedFunction(name)
	}
	return m, nil
}

// Close releases the module and its runtime.
func (m *Module) Close(ctx context.Context) error {
	return m.rt.Close(ctx)
}

// checkJob rejects jobs the module would refuse. The boundary reports no
// errors, and a refused job would leave the previous image staged.
func checkJob(job session.Composite) error {
	if err := job.Validate(); err != nil {
		return err
	}
	for _, v := range []int{job.DotSize, job.OffsetX, job.OffsetY} {
		if v < math.MinInt32 || v > math.MaxInt32 {
			return fmt.Errorf("%w: %d does not fit the module boundary", ErrUnsupportedJob, v)
		}
	}
	if uint64(len(job.Grid)) > math.MaxUint32 || uint64(len(job.Palette)) > math.MaxUint32 {
		return fmt.Errorf("%w: grid of %d bytes, palette of %d bytes", ErrUnsupportedJob, len(job.Grid), len(job.Palette))
	}
	return nil
}

// Render runs one stateless composition inside the module and returns the
// PNG it staged. Jobs are checked before they cross the boundary.
func (m *Module) Render(ctx context.Context, job session.Composite) ([]byte, error) {
	if err := checkJob(job); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	gridPtr, err := m.write(ctx, job.Grid)
	if err != nil {
		return nil, fmt.Errorf("could not pass grid: %w", err)
	}
	defer m.free(ctx, gridPtr, len(job.Grid))

	palPtr, err := m.write(ctx, job.Palette)
	if err != nil {
		return nil, fmt.Errorf("could not pass palette: %w", err)
	}
	defer m.free(ctx, palPtr, len(job.Palette))

	if _, err := m.call(ctx, "generate_image",
		api.EncodeU32(gridPtr), api.EncodeU32(uint32(len(job.Grid))),
		api.EncodeU32(uint32(job.GridSize)), api.EncodeU32(uint32(job.DotSize)),
		api.EncodeU32(palPtr), api.EncodeU32(uint32(len(job.Palette))),
		api.EncodeU32(uint32(job.Width)), api.EncodeU32(uint32(job.Height)),
		api.EncodeI32(int32(job.OffsetX)), api.EncodeI32(int32(job.OffsetY)),
	); err != nil {
		return nil, err
	}

	return m.image(ctx)
}

func (m *Module) image(ctx context.Context) ([]byte, error) {
	size, err := m.call(ctx, "get_image_size")
	if err != nil {
		return nil, err
	} else if size == 0 {
		return nil, ErrNoImage
	}

	outPtr, err := m.call(ctx, "alloc", api.EncodeU32(size))
	if err != nil {
		return nil, err
	}
	defer m.free(ctx, outPtr, int(size))

	n, err := m.call(ctx, "get_image_data", api.EncodeU32(outPtr), api.EncodeU32(size))
	if err != nil {
		return nil, err
	}

	data, ok := m.mod.Memory().Read(outPtr, n)
	if !ok {
		return nil, fmt.Errorf("could not read %d image bytes at %#x", n, outPtr)
	}
	return bytes.Clone(data), nil
}

func (m *Module) write(ctx context.Context, b []byte) (uint32, error) {
	ptr, err := m.call(ctx, "alloc", api.EncodeU32(uint32(len(b))))
	if err != nil {
		return 0, err
	} else if ptr == 0 {
		return 0, fmt.Errorf("module could not allocate %d bytes", len(b))
	}
	if !m.mod.Memory().Write(ptr, b) {
		m.free(ctx, ptr, len(b))
		return 0, fmt.Errorf("could not write %d bytes at %#x", len(b), ptr)
	}
	return ptr, nil
}

func (m *Module) free(ctx context.Context, ptr uint32, size int) {
	if _, err := m.call(ctx, "dealloc", api.EncodeU32(ptr), api.EncodeU32(uint32(size))); err != nil {
		session.Logger().Warn("could not release module memory", "ptr", ptr, "size", size, "error", err)
	}
}

func (m *Module) call(ctx context.Context, name string, params ...uint64) (uint32, error) {
	res, err := m.fn[name].Call(ctx, params...)
	if err != nil {
		return 0, fmt.Errorf("could not call %s: %w", name, err)
	}
	if len(res) == 0 {
		return 0, nil
	}
	return api.DecodeU32(res[0]), nil
}

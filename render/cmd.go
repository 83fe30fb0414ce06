package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/alecthomas/kong"

	"dotgrid/codec"
	"dotgrid/config"
	"dotgrid/host"
	"dotgrid/palette"
	"dotgrid/parallel"
	"dotgrid/sharecode"
)

type CLICmd struct {
	Codes    []string `arg:"" optional:"" help:"Share codes to render"`
	GridFile []string `help:"Raw grid file, one palette index byte per cell" type:"existingfile"`
	Dest     string   `help:"Destination folder for rendered images" default:"."`
	Prefix   string   `help:"File name prefix for images rendered from share codes" default:"dotgrid"`
	Preview  bool     `help:"Print a sixel preview of every image to stdout" default:"false"`
	Wasm     string   `help:"Render through this wasm core instead of in-process" type:"existingfile"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	if len(c.Codes) == 0 && len(c.GridFile) == 0 {
		return fmt.Errorf("nothing to render, give share codes or --grid-file")
	}

	destDir, err := filepath.Abs(c.Dest)
	if err != nil {
		return fmt.Errorf("invalid destination path %q: %w", c.Dest, err)
	}
	c.Dest = destDir

	return nil
}

// NewEngine returns the wasm core at wasmPath, or the in-process renderer
// when wasmPath is empty. The returned function releases the engine.
func NewEngine(ctx context.Context, wasmPath string, layout config.LayoutConfig) (Engine, func(), error) {
	if wasmPath == "" {
		opts, err := layout.SessionOptions()
		if err != nil {
			return nil, nil, err
		}
		return Native{Options: opts}, func() {}, nil
	}

	// The core always starts from a transparent canvas.
	bg, err := layout.BackgroundColor()
	if err != nil {
		return nil, nil, err
	}
	if _, _, _, a := bg.RGBA(); a != 0 {
		return nil, nil, fmt.Errorf("%w: background %q", ErrUnsupportedLayout, layout.Background)
	}

	wasm, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read wasm core %q: %w", wasmPath, err)
	}
	mod, err := host.Load(ctx, wasm)
	if err != nil {
		return nil, nil, fmt.Errorf("could not load wasm core %q: %w", wasmPath, err)
	}
	slog.Info("using wasm core", "file", wasmPath)
	return mod, func() { mod.Close(ctx) }, nil
}

type item struct {
	name   string
	source string
	cells  func() ([]byte, error)
}

func (c *CLICmd) items() []item {
	var items []item
	for i, code := range c.Codes {
		items = append(items, item{
			name:   fmt.Sprintf("%s-%03d.png", c.Prefix, i),
			source: code,
			cells:  func() ([]byte, error) { return sharecode.Decode(code) },
		})
	}
	for _, path := range c.GridFile {
		base := filepath.Base(path)
		items = append(items, item{
			name:   strings.TrimSuffix(base, filepath.Ext(base)) + ".png",
			source: path,
			cells: func() ([]byte, error) {
				b, err := os.ReadFile(path)
				if err != nil {
					return nil, fmt.Errorf("could not read grid file: %w", err)
				}
				return b, nil
			},
		})
	}
	return items
}

func (c *CLICmd) Run(ctx context.Context, cfg *config.Config, pal palette.Palette, worker parallel.WorkerFunc, wait parallel.WaitFunc) error {
	if err := os.MkdirAll(c.Dest, 0o755); err != nil {
		return fmt.Errorf("unable to create destination folder %q: %w", c.Dest, err)
	}

	eng, release, err := NewEngine(ctx, c.Wasm, cfg.Layout)
	if err != nil {
		return err
	}
	defer release()

	preview := &previewer{out: os.Stdout}

	var renderedCount, errCount atomic.Uint64
	for _, it := range c.items() {
		worker(func() {
			logger := slog.Default().With("source", it.source, "file", it.name)

			cells, err := it.cells()
			if err != nil {
				errCount.Add(1)
				logger.Error("could not read grid", "error", err)
				return
			}

			job, err := Job(cfg.Layout, pal, cells)
			if err != nil {
				errCount.Add(1)
				logger.Error("could not lay out grid", "error", err)
				return
			}

			data, err := eng.Render(ctx, job)
			if err != nil {
				errCount.Add(1)
				logger.Error("could not render image", "error", err)
				return
			}

			if err := WriteFile(c.Dest, it.name, data); err != nil {
				errCount.Add(1)
				logger.Error("could not save image", "dir", c.Dest, "error", err)
				return
			}

			if c.Preview {
				img, err := codec.Decode(data)
				if err == nil {
					err = preview.show(it.name, img)
				}
				if err != nil {
					logger.Warn("could not show preview", "error", err)
				}
			}
			renderedCount.Add(1)
		})
	}

	wait(true)

	rendered := renderedCount.Load()
	errors := errCount.Load()
	slog.Info("stats", "rendered", rendered, "errors", errors,
		"total", rendered+errors)

	if errors > 0 {
		return fmt.Errorf("error rendering %d grids", errors)
	}
	return nil
}

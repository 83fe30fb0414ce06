package trace

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/alecthomas/kong"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"dotgrid/config"
	"dotgrid/palette"
	"dotgrid/parallel"
	"dotgrid/sharecode"
	"dotgrid/watch"
)

type CLICmd struct {
	Images []string `arg:"" help:"Pictures to trace" type:"existingfile"`
	Crop   bool     `help:"Trace the largest centered square instead of fitting the whole picture" default:"false"`
	Dither bool     `help:"Apply Floyd-Steinberg dithering" default:"false"`
	Dots   string   `help:"Also write every share code to <image>.dots in this folder" type:"path"`

	out io.Writer `kong:"-"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	if c.Dots != "" {
		if info, err := os.Stat(c.Dots); err != nil {
			return fmt.Errorf("invalid dots path %q: %w", c.Dots, err)
		} else if !info.IsDir() {
			return fmt.Errorf("invalid dots path %q: not a directory", c.Dots)
		}
	}
	return nil
}

// Decode reads and decodes the picture at path.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode image: %w", err)
	}
	return img, nil
}

func (c *CLICmd) Run(ctx context.Context, cfg *config.Config, pal palette.Palette, worker parallel.WorkerFunc, wait parallel.WaitFunc) error {
	out := c.out
	if out == nil {
		out = os.Stdout
	}

	tracer := NewTracer(pal, Options{
		GridSize: cfg.Layout.GridSize,
		Crop:     c.Crop,
		Dither:   c.Dither,
	})

	codes := make([]string, len(c.Images))
	var tracedCount, errCount atomic.Uint64
	for i, path := range c.Images {
		worker(func() {
			logger := slog.Default().With("file", path)
			if ctx.Err() != nil {
				errCount.Add(1)
				return
			}

			img, err := Decode(path)
			if err != nil {
				errCount.Add(1)
				logger.Error("could not read image", "error", err)
				return
			}

			code, err := sharecode.Encode(tracer.Trace(logger, img))
			if err != nil {
				errCount.Add(1)
				logger.Error("could not encode grid", "error", err)
				return
			}

			if c.Dots != "" {
				base := filepath.Base(path)
				name := strings.TrimSuffix(base, filepath.Ext(base)) + watch.DotsExt
				if err := os.WriteFile(filepath.Join(c.Dots, name), []byte(code+"\n"), 0o644); err != nil {
					errCount.Add(1)
					logger.Error("could not save share code", "dir", c.Dots, "error", err)
					return
				}
			}

			codes[i] = code
			tracedCount.Add(1)
		})
	}

	wait(true)

	for i, code := range codes {
		if code != "" {
			fmt.Fprintf(out, "%s\t%s\n", c.Images[i], code)
		}
	}

	traced := tracedCount.Load()
	errors := errCount.Load()
	slog.Info("stats", "traced", traced, "errors", errors,
		"total", traced+errors)

	if errors > 0 {
		return fmt.Errorf("error tracing %d images", errors)
	}
	return nil
}

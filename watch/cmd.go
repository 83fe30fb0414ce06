package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"dotgrid/config"
	"dotgrid/palette"
	"dotgrid/render"
)

type CLICmd struct {
	Dir  string `arg:"" optional:"" help:"Folder to watch (default from config)"`
	Poll int    `help:"Also rescan every N seconds, for filesystems without change events (default from config)"`
	Wasm string `help:"Render through this wasm core instead of in-process" type:"existingfile"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	if c.Poll < 0 {
		return fmt.Errorf("invalid poll interval: %d", c.Poll)
	}
	if c.Dir == "" {
		return nil
	}
	dir, err := filepath.Abs(c.Dir)
	var info os.FileInfo
	if err == nil {
		if info, err = os.Stat(dir); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return fmt.Errorf("invalid watch path %q: %w", c.Dir, err)
	}
	c.Dir = dir
	return nil
}

func (c *CLICmd) Run(ctx context.Context, cfg *config.Config, pal palette.Palette) error {
	if c.Dir != "" {
		cfg.Watch.Dir = c.Dir
	}
	if c.Poll > 0 {
		cfg.Watch.PollInterval = c.Poll
	}

	eng, release, err := render.NewEngine(ctx, c.Wasm, cfg.Layout)
	if err != nil {
		return err
	}
	defer release()

	w := &Watcher{
		Dir:      cfg.Watch.Dir,
		Layout:   cfg.Layout,
		Palette:  pal,
		Engine:   eng,
		Debounce: cfg.Watch.Debounce(),
		Poll:     cfg.Watch.PollDuration(),
	}
	return w.Run(ctx)
}

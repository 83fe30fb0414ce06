// Package config loads the optional dotgrid.toml file.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"dotgrid/palette"
	"dotgrid/session"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "dotgrid.toml"

type LayoutConfig struct {
	CanvasWidth  int    `toml:"canvas_width"`
	CanvasHeight int    `toml:"canvas_height"`
	GridSize     int    `toml:"grid_size"`
	DotSize      int    `toml:"dot_size"`
	Background   string `toml:"background"`
	Persistent   bool   `toml:"persistent"`
	Derived      bool   `toml:"derived"`
	Center       bool   `toml:"center"`
	OffsetX      int    `toml:"offset_x"` // used when center is false
	OffsetY      int    `toml:"offset_y"`
	Workers      int    `toml:"workers"`
}

// Offsets returns the top-left corner of the drawing. Centered layouts
// split the free space evenly, rounding down.
func (l LayoutConfig) Offsets() (x, y int) {
	if !l.Center {
		return l.OffsetX, l.OffsetY
	}
	span := l.GridSize * l.DotSize
	return floorHalf(l.CanvasWidth - span), floorHalf(l.CanvasHeight - span)
}

func floorHalf(n int) int {
	if n < 0 {
		return -((-n + 1) / 2)
	}
	return n / 2
}

// BackgroundColor parses Background.
func (l LayoutConfig) BackgroundColor() (color.Color, error) {
	if l.Background == "" {
		return color.Transparent, nil
	}
	c, err := palette.ParseHex(l.Background)
	if err != nil {
		return nil, fmt.Errorf("invalid layout background: %w", err)
	}
	return c, nil
}

// SessionOptions translates the layout into session options.
func (l LayoutConfig) SessionOptions() (session.Options, error) {
	bg, err := l.BackgroundColor()
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		Persistent: l.Persistent,
		Background: bg,
		Dimensions: session.Dimensions{Derived: l.Derived},
		Workers:    l.Workers,
	}, nil
}

func (l LayoutConfig) validate() error {
	switch {
	case l.GridSize <= 0:
		return fmt.Errorf("invalid grid_size: %d", l.GridSize)
	case l.DotSize < 0:
		return fmt.Errorf("invalid dot_size: %d", l.DotSize)
	case !l.Derived && (l.CanvasWidth <= 0 || l.CanvasHeight <= 0):
		return fmt.Errorf("invalid canvas size: %dx%d", l.CanvasWidth, l.CanvasHeight)
	}
	_, err := l.BackgroundColor()
	return err
}

type PaletteConfig struct {
	Name string `toml:"name"` // builtin name or RIFF .pal path
}

type ServerConfig struct {
	Listen      string `toml:"listen"`
	StoreDir    string `toml:"store_dir"`
	CacheMaxAge int    `toml:"cache_max_age"` // seconds
	PublicURL   string `toml:"public_url"`
}

type WatchConfig struct {
	Dir          string `toml:"dir"`
	PollInterval int    `toml:"poll_interval"` // seconds, 0 = events only
	DebounceMS   int    `toml:"debounce_ms"`
}

func (w WatchConfig) PollDuration() time.Duration {
	return time.Duration(w.PollInterval) * time.Second
}

func (w WatchConfig) Debounce() time.Duration {
	if w.DebounceMS > 0 {
		return time.Duration(w.DebounceMS) * time.Millisecond
	}
	return 500 * time.Millisecond
}

type Config struct {
	Layout  LayoutConfig  `toml:"layout"`
	Palette PaletteConfig `toml:"palette"`
	Server  ServerConfig  `toml:"server"`
	Watch   WatchConfig   `toml:"watch"`
}

// Default returns the built-in configuration: a 16x16 grid of 8 pixel dots
// centered on a 300x157 transparent canvas.
func Default() *Config {
	return &Config{
		Layout: LayoutConfig{
			CanvasWidth:  300,
			CanvasHeight: 157,
			GridSize:     16,
			DotSize:      8,
			Background:   "#00000000",
			Center:       true,
			Workers:      1,
		},
		Palette: PaletteConfig{
			Name: "pixelpainter",
		},
		Server: ServerConfig{
			Listen:      ":8080",
			StoreDir:    "images",
			CacheMaxAge: 3600,
		},
		Watch: WatchConfig{
			Dir:        ".",
			DebounceMS: 500,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("parsing config %s: unknown key %q", path, undec[0].String())
	}

	if err := cfg.Layout.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

package config

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dotgrid.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != *Default() {
		t.Errorf("Load(absent) = %+v, want defaults", cfg)
	}
}

func TestDefaultOffsetsCenterTheGrid(t *testing.T) {
	x, y := Default().Layout.Offsets()
	if x != 86 || y != 14 {
		t.Errorf("Offsets = %d, %d; want 86, 14", x, y)
	}
}

func TestOffsets(t *testing.T) {
	for _, tc := range []struct {
		name   string
		layout LayoutConfig
		x, y   int
	}{
		{"explicit", LayoutConfig{OffsetX: 3, OffsetY: -4}, 3, -4},
		{"odd slack", LayoutConfig{Center: true, CanvasWidth: 11, CanvasHeight: 10, GridSize: 2, DotSize: 4}, 1, 1},
		{"grid larger than canvas", LayoutConfig{Center: true, CanvasWidth: 5, CanvasHeight: 8, GridSize: 2, DotSize: 4}, -2, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if x, y := tc.layout.Offsets(); x != tc.x || y != tc.y {
				t.Errorf("Offsets = %d, %d; want %d, %d", x, y, tc.x, tc.y)
			}
		})
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[layout]
canvas_width = 64
canvas_height = 64
background = "#fff"
persistent = true

[palette]
name = "vga16"

[watch]
poll_interval = 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Layout.CanvasWidth != 64 || cfg.Layout.GridSize != 16 {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Palette.Name != "vga16" {
		t.Errorf("palette = %q", cfg.Palette.Name)
	}
	if cfg.Watch.PollDuration() != 2*time.Second || cfg.Watch.Debounce() != 500*time.Millisecond {
		t.Errorf("watch = %+v", cfg.Watch)
	}
	if cfg.Server.Listen != ":8080" {
		t.Errorf("server defaults lost: %+v", cfg.Server)
	}

	opts, err := cfg.Layout.SessionOptions()
	if err != nil {
		t.Fatal(err)
	}
	if !opts.Persistent || opts.Background != (color.NRGBA{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("session options = %+v", opts)
	}
}

func TestLoadErrors(t *testing.T) {
	for name, body := range map[string]string{
		"syntax":         "[layout\n",
		"unknown key":    "[layout]\nwidth = 3\n",
		"bad background": "[layout]\nbackground = \"#12\"\n",
		"bad grid size":  "[layout]\ngrid_size = 0\n",
		"bad canvas":     "[layout]\ncanvas_width = -1\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, body)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load succeeded")
			}
			if !strings.Contains(err.Error(), path) {
				t.Errorf("error %q does not name the file", err)
			}
		})
	}
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"dotgrid/config"
	"dotgrid/palette"
	"dotgrid/parallel"
	"dotgrid/render"
	"dotgrid/server"
	"dotgrid/session"
	"dotgrid/trace"
	"dotgrid/watch"
)

type cli struct {
	Config      string `help:"Configuration file, defaults are used when missing" default:"${config_path}" type:"path"`
	PaletteName string `name:"palette" help:"Palette name (${palettes}) or RIFF PAL file (default from config)"`
	Workers     int    `help:"Parallel jobs for batch commands, 0 for one per CPU" default:"0"`
	LogLevel    string `help:"Log level" enum:"debug,info,warn,error" default:"info"`

	Render  render.CLICmd  `cmd:"" help:"Render share codes or raw grid files to PNG"`
	Trace   trace.CLICmd   `cmd:"" help:"Trace pictures into share codes"`
	Serve   server.CLICmd  `cmd:"" help:"Serve OGP images over HTTP"`
	Watch   watch.CLICmd   `cmd:"" help:"Render .dots files whenever they change"`
	Palette palette.CLICmd `cmd:"" help:"List or export palettes"`
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("dotgrid"),
		kong.Description("Render pixel grids to PNG."),
		kong.UsageOnError(),
		kong.Vars{
			"config_path": config.DefaultPath,
			"palettes":    strings.Join(palette.Names(), ", "),
		},
	)

	var level slog.Level
	kctx.FatalIfErrorf(level.UnmarshalText([]byte(c.LogLevel)))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	session.SetLogger(logger)

	cfg, err := config.Load(c.Config)
	kctx.FatalIfErrorf(err)
	if c.PaletteName != "" {
		cfg.Palette.Name = c.PaletteName
	}
	pal, err := palette.Load(cfg.Palette.Name)
	kctx.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))

	slog.Debug("running", "command", kctx.Command(), "config", c.Config, "palette", cfg.Palette.Name)

	pool := parallel.Start(c.Workers)
	err = kctx.Run(cfg, pal, pool.Do, pool.Wait)
	stop()
	kctx.FatalIfErrorf(err)
}

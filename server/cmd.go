package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"

	"dotgrid/config"
	"dotgrid/palette"
	"dotgrid/render"
)

type CLICmd struct {
	Listen   string `help:"Address to listen on (default from config)"`
	StoreDir string `help:"Folder for uploaded images (default from config)"`
	Memory   bool   `help:"Keep uploaded images in memory instead of a folder" default:"false"`
	Wasm     string `help:"Render through this wasm core instead of in-process" type:"existingfile"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	if c.StoreDir != "" {
		dir, err := filepath.Abs(c.StoreDir)
		if err != nil {
			return fmt.Errorf("invalid store path %q: %w", c.StoreDir, err)
		}
		c.StoreDir = dir
	}
	return nil
}

func (c *CLICmd) Run(ctx context.Context, cfg *config.Config, pal palette.Palette) error {
	if c.Listen != "" {
		cfg.Server.Listen = c.Listen
	}
	if c.StoreDir != "" {
		cfg.Server.StoreDir = c.StoreDir
	}

	var store Store
	if c.Memory {
		store = &MemStore{}
	} else {
		if err := os.MkdirAll(cfg.Server.StoreDir, 0o755); err != nil {
			return fmt.Errorf("unable to create store folder %q: %w", cfg.Server.StoreDir, err)
		}
		store = DirStore{Dir: cfg.Server.StoreDir}
	}

	eng, release, err := render.NewEngine(ctx, c.Wasm, cfg.Layout)
	if err != nil {
		return err
	}
	defer release()

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           New(cfg, pal, eng, store).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr, "store", cfg.Server.StoreDir, "memory", c.Memory)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("could not shut down: %w", err)
	}
	if err := <-errChan; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

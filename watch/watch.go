// Package watch keeps PNG renders of share code files up to date.
//
// Every <name>.dots file in the watched folder holds one share code and is
// rendered to <name>.png beside it whenever it changes. Removing the .dots
// file removes its render.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"dotgrid/config"
	"dotgrid/palette"
	"dotgrid/render"
)

// DotsExt is the extension of watched share code files.
const DotsExt = ".dots"

type Watcher struct {
	Dir      string
	Layout   config.LayoutConfig
	Palette  palette.Palette
	Engine   render.Engine
	Debounce time.Duration
	// Poll, when positive, also rescans Dir at this interval for
	// filesystems that do not deliver events.
	Poll    time.Duration
	Workers int

	locks *pathLocker
	sem   chan struct{}
}

func isDots(path string) bool {
	return strings.EqualFold(filepath.Ext(path), DotsExt)
}

func outputPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + ".png"
}

// upToDate reports whether out exists and is not older than src.
func upToDate(src, out string) bool {
	si, err := os.Stat(src)
	if err != nil {
		return false
	}
	oi, err := os.Stat(out)
	if err != nil {
		return false
	}
	return !oi.ModTime().Before(si.ModTime())
}

// Run renders stale files, then follows changes until ctx is done. Renders
// in flight are finished before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("could not watch %q: %w", w.Dir, err)
	}

	workers := w.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	w.locks = newPathLocker()
	w.sem = make(chan struct{}, workers)

	slog.Info("watching", "dir", w.Dir, "debounce", w.Debounce, "poll", w.Poll)

	db := newDebouncer(w.Debounce, func(path string) {
		w.update(ctx, path)
	})
	defer db.stop()

	w.initialScan(ctx)

	if w.Poll > 0 {
		go w.pollLoop(ctx, db.trigger)
	}

	w.eventLoop(ctx, fw, db)
	slog.Info("waiting for in-flight renders")
	return nil
}

// update renders path when it exists and removes its output otherwise.
func (w *Watcher) update(ctx context.Context, path string) {
	w.sem <- struct{}{}
	defer func() { <-w.sem }()

	w.locks.Lock(path)
	defer w.locks.Unlock(path)

	logger := slog.Default().With("file", path)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		w.remove(logger, path)
		return
	}

	start := time.Now()
	if err := w.render(ctx, path); err != nil {
		logger.Error("could not render", "error", err)
		return
	}
	logger.Info("rendered", "output", filepath.Base(outputPath(path)), "duration", time.Since(start))
}

func (w *Watcher) render(ctx context.Context, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read share code: %w", err)
	}
	data, err := render.RenderCode(ctx, w.Engine, w.Layout, w.Palette, strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	out := outputPath(path)
	return render.WriteFile(filepath.Dir(out), filepath.Base(out), data)
}

func (w *Watcher) remove(logger *slog.Logger, path string) {
	out := outputPath(path)
	if err := os.Remove(out); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Error("could not remove render", "output", out, "error", err)
		}
		return
	}
	logger.Info("removed", "output", filepath.Base(out))
}

func (w *Watcher) dotsFiles() []string {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		slog.Error("could not read folder", "dir", w.Dir, "error", err)
		return nil
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && isDots(e.Name()) {
			files = append(files, filepath.Join(w.Dir, e.Name()))
		}
	}
	return files
}

func (w *Watcher) initialScan(ctx context.Context) {
	done := make(chan struct{})
	pending := 0
	for _, path := range w.dotsFiles() {
		if upToDate(path, outputPath(path)) {
			continue
		}
		pending++
		go func() {
			w.update(ctx, path)
			done <- struct{}{}
		}()
	}
	for range pending {
		<-done
	}
}

func (w *Watcher) eventLoop(ctx context.Context, fw *fsnotify.Watcher, db *debouncer) {
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !isDots(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			db.trigger(ev.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// pollLoop rescans the folder for changed, new or missing renders.
func (w *Watcher) pollLoop(ctx context.Context, onChanged func(path string)) {
	mtimes := make(map[string]time.Time)

	ticker := time.NewTicker(w.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		seen := make(map[string]bool)
		for _, path := range w.dotsFiles() {
			seen[path] = true
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			mt := info.ModTime()
			if prev, ok := mtimes[path]; !ok || !mt.Equal(prev) {
				mtimes[path] = mt
				if !upToDate(path, outputPath(path)) {
					onChanged(path)
				}
				continue
			}
			if _, err := os.Stat(outputPath(path)); err != nil {
				onChanged(path)
			}
		}

		for path := range mtimes {
			if !seen[path] {
				delete(mtimes, path)
				onChanged(path)
			}
		}
	}
}

package render

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-sixel"
)

// WriteFile stores data as destDir/name. The bytes go to a temporary file
// in the same directory which is renamed over the destination, so readers
// never see a partial image.
func WriteFile(destDir, name string, data []byte) (err error) {
	outFile, err := os.CreateTemp(destDir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("could not create temporary destination %q: %w", name, err)
	}
	canRename := false
	defer func() {
		if defErr := outFile.Sync(); defErr != nil && err == nil {
			err = fmt.Errorf("could not flush temporary destination %q: %w", name, defErr)
		}
		if defErr := outFile.Close(); defErr != nil && err == nil {
			err = fmt.Errorf("could not close temporary destination %q: %w", name, defErr)
		}

		if canRename && err == nil {
			if defErr := os.Rename(outFile.Name(), filepath.Join(destDir, name)); defErr != nil {
				err = fmt.Errorf("could not rename destination file %q: %w", name, defErr)
			}
		}
		if err != nil {
			os.Remove(outFile.Name())
		}
	}()

	if err = outFile.Chmod(0o644); err != nil {
		return fmt.Errorf("could not set mode of %q: %w", name, err)
	}
	if _, err = outFile.Write(data); err != nil {
		return fmt.Errorf("could not write destination %q: %w", name, err)
	}

	canRename = true
	return err
}

// previewer prints images as sixel graphics, one at a time.
type previewer struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *previewer) show(label string, img image.Image) error {
	var buf bytes.Buffer
	enc := sixel.NewEncoder(&buf)
	enc.Dither = false
	if err := enc.Encode(img); err != nil {
		return fmt.Errorf("could not encode sixel preview: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := fmt.Fprintf(p.out, "%s\n%s\n", label, buf.Bytes()); err != nil {
		return fmt.Errorf("could not write preview: %w", err)
	}
	return nil
}

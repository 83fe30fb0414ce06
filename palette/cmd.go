package palette

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"
)

type CLICmd struct {
	List   ListCmd   `cmd:"" help:"List builtin palettes"`
	Export ExportCmd `cmd:"" help:"Write the selected palette as a RIFF PAL file"`
}

type ListCmd struct {
	out io.Writer `kong:"-"`
}

func (c *ListCmd) Run() error {
	out := c.out
	if out == nil {
		out = os.Stdout
	}
	for _, name := range Names() {
		if _, err := fmt.Fprintf(out, "%s\t%d colors\n", name, builtins[name]().Len()); err != nil {
			return err
		}
	}
	return nil
}

type ExportCmd struct {
	Out string `arg:"" help:"Destination .pal file" type:"path"`
}

func (c *ExportCmd) Validate() error {
	if !strings.HasSuffix(strings.ToLower(c.Out), ".pal") {
		return fmt.Errorf("destination %q must have a .pal extension", c.Out)
	}
	return nil
}

// Run exports pal, the palette selected by the root --palette flag or the
// config file.
func (c *ExportCmd) Run(pal Palette) (err error) {
	f, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("could not create palette file %q: %w", c.Out, err)
	}
	defer func() {
		if defErr := f.Close(); defErr != nil && err == nil {
			err = fmt.Errorf("could not close palette file %q: %w", c.Out, defErr)
		}
	}()

	if _, err = WriteTo(f, []color.Palette{pal.Colors()}); err != nil {
		return fmt.Errorf("could not export palette to %q: %w", c.Out, err)
	}
	return nil
}

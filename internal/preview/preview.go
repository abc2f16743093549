// Package preview mirrors frames to the terminal.
package preview

import (
	"fmt"
	"image"
	"io"
	"os"

	"periph.io/x/conn/v3/display"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/matrixwidgets/internal/matrix"
)

// Console draws each frame row by row with a one-line ANSI strip.
type Console struct {
	row display.Drawer
	out io.Writer
}

func New() *Console {
	return &Console{row: screen.New(matrix.Width), out: os.Stdout}
}

func (c *Console) DrawFrame(f matrix.Frame) error {
	img := f.Image()
	for y := 0; y < matrix.Height; y++ {
		if err := c.row.Draw(c.row.Bounds(), img, image.Pt(0, y)); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "\n")
	}
	fmt.Fprintf(c.out, "\n")
	return nil
}

package render

import (
	"image"

	"periph.io/x/conn/v3/display"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/coreman2200/matrixwidgets/internal/matrix"
)

// Bilevel draws frames on d as 1-bit images; every lit cell is on at full
// brightness.
func Bilevel(d display.Drawer) Sink {
	return SinkFunc(func(f matrix.Frame) error {
		return d.Draw(d.Bounds(), Bits(f), image.Point{})
	})
}

// Bits converts f to a 1-bit image, lighting every nonzero cell.
func Bits(f matrix.Frame) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(matrix.Bounds())
	b := f.Bool(1)
	for y := range b {
		for x := range b[y] {
			if b[y][x] {
				img.SetBit(x, y, image1bit.On)
			}
		}
	}
	return img
}

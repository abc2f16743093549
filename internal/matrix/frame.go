package matrix

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

const (
	// Width is the number of LED columns on one module.
	Width = 9
	// Height is the number of LED rows on one module.
	Height = 34
)

// ErrOutOfBounds is returned when a bitmap does not fit the frame at the
// requested origin.
var ErrOutOfBounds = errors.New("overlay out of bounds")

// Frame is the full display surface, row-major: Frame[y][x].
// 0 is off and 255 is full brightness.
type Frame [Height][Width]uint8

// Columns is a Frame transposed into the device's column-major order.
type Columns [Width][Height]uint8

// BoolFrame is an on/off frame used by the fast draw path.
type BoolFrame [Height][Width]bool

// Shape is a widget footprint in cells.
type Shape struct {
	Width  int
	Height int
}

func (s Shape) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// Cells returns Width*Height.
func (s Shape) Cells() int { return s.Width * s.Height }

// Bitmap is a row-major brightness buffer of len Shape.Cells().
type Bitmap []uint8

// Overlay copies bmp into f with its top-left corner at (x, y).
// Later overlays win over earlier ones; nothing is blended.
// A bitmap that would leave the frame is rejected and f is returned as-is.
func Overlay(f Frame, bmp Bitmap, s Shape, x, y int) (Frame, error) {
	if len(bmp) != s.Cells() {
		return f, fmt.Errorf("bitmap has %d cells, shape %s wants %d: %w", len(bmp), s, s.Cells(), ErrOutOfBounds)
	}
	if err := Fits(s, x, y); err != nil {
		return f, err
	}

	out := f
	for row := 0; row < s.Height; row++ {
		for col := 0; col < s.Width; col++ {
			out[y+row][x+col] = bmp[row*s.Width+col]
		}
	}
	return out, nil
}

// Fits reports ErrOutOfBounds unless a shape placed at (x, y) lies wholly
// inside the frame.
func Fits(s Shape, x, y int) error {
	if x < 0 || y < 0 || s.Width < 0 || s.Height < 0 || x+s.Width > Width || y+s.Height > Height {
		return fmt.Errorf("shape %s at (%d,%d) exceeds %dx%d frame: %w", s, x, y, Width, Height, ErrOutOfBounds)
	}
	return nil
}

// Transpose switches rows and columns.
func (f Frame) Transpose() Columns {
	var out Columns
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			out[x][y] = f[y][x]
		}
	}
	return out
}

// Transpose switches columns back into rows.
func (c Columns) Transpose() Frame {
	var out Frame
	for x := 0; x < Width; x++ {
		for y := 0; y < Height; y++ {
			out[y][x] = c[x][y]
		}
	}
	return out
}

// Bool lights every cell whose brightness is at least threshold.
func (f Frame) Bool(threshold uint8) BoolFrame {
	var out BoolFrame
	for y := range f {
		for x := range f[y] {
			out[y][x] = f[y][x] >= threshold
		}
	}
	return out
}

// Bounds is the frame rectangle in image coordinates.
func Bounds() image.Rectangle {
	return image.Rect(0, 0, Width, Height)
}

// Image renders the frame as a grayscale image.
func (f Frame) Image() *image.Gray {
	im := image.NewGray(Bounds())
	for y := range f {
		for x := range f[y] {
			im.SetGray(x, y, color.Gray{Y: f[y][x]})
		}
	}
	return im
}

// FromImage samples src starting at sp into a frame. Pixels outside src stay off.
func FromImage(src image.Image, sp image.Point) Frame {
	var f Frame
	b := src.Bounds()
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			p := image.Pt(sp.X+x, sp.Y+y)
			if !p.In(b) {
				continue
			}
			f[y][x] = color.GrayModel.Convert(src.At(p.X, p.Y)).(color.Gray).Y
		}
	}
	return f
}

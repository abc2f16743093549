package preview

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/matrixwidgets/internal/matrix"
)

// strip records the gray value of each pixel it is asked to draw.
type strip struct {
	rows [][]uint8
}

func (s *strip) String() string            { return "strip" }
func (s *strip) Halt() error               { return nil }
func (s *strip) ColorModel() color.Model   { return color.GrayModel }
func (s *strip) Bounds() image.Rectangle   { return image.Rect(0, 0, matrix.Width, 1) }
func (s *strip) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	var row []uint8
	for x := r.Min.X; x < r.Max.X; x++ {
		row = append(row, color.GrayModel.Convert(src.At(sp.X+x, sp.Y)).(color.Gray).Y)
	}
	s.rows = append(s.rows, row)
	return nil
}

func TestConsoleDrawsEveryRow(t *testing.T) {
	var f matrix.Frame
	f[0][0] = 120
	f[33][8] = 68

	s := &strip{}
	var out bytes.Buffer
	c := &Console{row: s, out: &out}
	require.NoError(t, c.DrawFrame(f))

	require.Len(t, s.rows, matrix.Height)
	assert.Equal(t, uint8(120), s.rows[0][0])
	assert.Equal(t, uint8(68), s.rows[33][8])
	assert.Equal(t, matrix.Height+1, strings.Count(out.String(), "\n"))
}

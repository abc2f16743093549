package widget

import (
	"math"

	"github.com/coreman2200/matrixwidgets/internal/matrix"
)

// CPUSource reports utilization percentages, one per logical core.
type CPUSource interface {
	Usage() ([]float64, error)
}

// MaxCPURows caps the per-core layout so it leaves room for other widgets.
const MaxCPURows = 16

const (
	mergedSize = 8
	barWidth   = 9
)

// CPU draws usage bars. Per-core mode has one horizontal bar per core with a
// partially lit leading cell; merged mode averages core pairs into eight
// vertical bars quantized to 10% steps.
type CPU struct {
	src    CPUSource
	merge  bool
	shape  matrix.Shape
	usage  []float64
	loaded bool
}

func NewCPU(src CPUSource, cores int, merge bool) *CPU {
	c := &CPU{src: src, merge: merge}
	if merge {
		c.shape = matrix.Shape{Width: mergedSize, Height: mergedSize}
	} else {
		rows := cores
		if rows > MaxCPURows {
			rows = MaxCPURows
		}
		if rows < 1 {
			rows = 1
		}
		c.shape = matrix.Shape{Width: barWidth, Height: rows}
	}
	return c
}

func (c *CPU) Name() string { return "cpu" }

func (c *CPU) Shape() matrix.Shape { return c.shape }

func (c *CPU) Update() error {
	u, err := c.src.Usage()
	if err != nil {
		return unavailable("cpu", err)
	}
	c.usage = append([]float64(nil), u...)
	c.loaded = true
	return nil
}

func (c *CPU) Render() (matrix.Bitmap, matrix.Shape) {
	if !c.loaded {
		return nil, c.shape
	}
	if c.merge {
		return c.renderMerged(), c.shape
	}
	return c.renderPerCore(), c.shape
}

func (c *CPU) renderPerCore() matrix.Bitmap {
	w := c.shape.Width
	bmp := make(matrix.Bitmap, c.shape.Cells())
	for y := 0; y < c.shape.Height && y < len(c.usage); y++ {
		fill := clampPercent(c.usage[y]) / 100 * float64(w)
		whole := int(fill)
		for x := 0; x < whole; x++ {
			bmp[y*w+x] = FullOn
		}
		if whole < w {
			bmp[y*w+whole] = uint8(math.Round((fill - float64(whole)) * float64(FullOn)))
		}
	}
	return bmp
}

func (c *CPU) renderMerged() matrix.Bitmap {
	bmp := make(matrix.Bitmap, c.shape.Cells())
	for col := 0; col < mergedSize && 2*col < len(c.usage); col++ {
		pair := c.usage[2*col:min(2*col+2, len(c.usage))]
		sum := 0
		for _, u := range pair {
			sum += int(math.Round(clampPercent(u)))
		}
		avg := sum / len(pair)
		for row := 0; row < mergedSize; row++ {
			if avg >= (mergedSize-1-row)*10 {
				bmp[row*mergedSize+col] = FullOn
			}
		}
	}
	return bmp
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

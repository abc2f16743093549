package widget

import (
	"time"

	"github.com/coreman2200/matrixwidgets/internal/matrix"
)

const (
	glyphWidth  = 3
	glyphHeight = 5
	clockWidth  = 9
)

var digits = [10]matrix.Bitmap{
	sprite(".#.", "#.#", "#.#", "#.#", ".#."),
	sprite("..#", ".+#", "..#", "..#", "..#"),
	sprite("###", "..#", "###", "#..", "###"),
	sprite("###", "..#", "##.", "..#", "###"),
	sprite("#.#", "#.#", "###", "..#", "..#"),
	sprite("###", "#..", "###", "..#", "###"),
	sprite(".#+", "#..", "###", "#.#", "###"),
	sprite("###", "+.#", "..#", ".#.", ".#."),
	sprite("###", "#.#", "###", "#.#", "###"),
	sprite("###", "#.#", "###", "..#", "+#."),
}

// Clock shows the 24h hour above the minute, separated by a blank row.
type Clock struct {
	now     func() time.Time
	t       time.Time
	updated bool
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

func (c *Clock) Name() string { return "clock" }

func (c *Clock) Shape() matrix.Shape {
	return matrix.Shape{Width: clockWidth, Height: 2*glyphHeight + 1}
}

func (c *Clock) Update() error {
	c.t = c.now()
	c.updated = true
	return nil
}

func (c *Clock) Render() (matrix.Bitmap, matrix.Shape) {
	s := c.Shape()
	if !c.updated {
		return nil, s
	}
	bmp := make(matrix.Bitmap, 0, s.Cells())
	bmp = append(bmp, number(c.t.Hour())...)
	bmp = append(bmp, make(matrix.Bitmap, clockWidth)...)
	bmp = append(bmp, number(c.t.Minute())...)
	return bmp, s
}

// number lays out a two digit value: tens in columns 1-3, units in 5-7.
func number(n int) matrix.Bitmap {
	out := make(matrix.Bitmap, clockWidth*glyphHeight)
	tens, units := digits[(n/10)%10], digits[n%10]
	for row := 0; row < glyphHeight; row++ {
		for col := 0; col < glyphWidth; col++ {
			out[row*clockWidth+1+col] = tens[row*glyphWidth+col]
			out[row*clockWidth+5+col] = units[row*glyphWidth+col]
		}
	}
	return out
}

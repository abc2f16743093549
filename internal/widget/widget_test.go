package widget

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/matrixwidgets/internal/matrix"
)

type fakeBattery struct {
	r   BatteryReading
	err error
}

func (f *fakeBattery) Battery() (BatteryReading, error) { return f.r, f.err }

type fakeCPU struct {
	u   []float64
	err error
}

func (f *fakeCPU) Usage() ([]float64, error) { return f.u, f.err }

// lit counts dim cells in rows 1-2 of the battery interior, per row.
func litSegments(bmp matrix.Bitmap, row int) int {
	n := 0
	for col := 1; col <= 6; col++ {
		if bmp[row*9+col] == DimOn {
			n++
		}
	}
	return n
}

var BatteryFill = []struct {
	Percent float64
	Expect  int
}{
	{0, 0},
	{8, 0},
	{9, 1},
	{50, 3},
	{75, 5},
	{99, 6},
	{100, 6},
}

func TestBatteryFill(t *testing.T) {
	for _, v := range BatteryFill {
		t.Run("Percent"+strconv.FormatFloat(v.Percent, 'f', -1, 64), func(t *testing.T) {
			b := NewBattery(&fakeBattery{r: BatteryReading{Percent: v.Percent}})
			require.NoError(t, b.Update())
			bmp, s := b.Render()
			assert.Equal(t, matrix.Shape{Width: 9, Height: 4}, s)
			require.Len(t, bmp, 36)
			assert.Equal(t, v.Expect, b.Segments())
			assert.Equal(t, v.Expect, litSegments(bmp, 1))
			assert.Equal(t, v.Expect, litSegments(bmp, 2))
		})
	}
}

func TestBatteryOutline(t *testing.T) {
	b := NewBattery(&fakeBattery{})
	require.NoError(t, b.Update())
	bmp, _ := b.Render()
	assert.Equal(t, matrix.Bitmap{
		FullOn, FullOn, FullOn, FullOn, FullOn, FullOn, FullOn, FullOn, Off,
		FullOn, Off, Off, Off, Off, Off, Off, FullOn, FullOn,
		FullOn, Off, Off, Off, Off, Off, Off, FullOn, FullOn,
		FullOn, FullOn, FullOn, FullOn, FullOn, FullOn, FullOn, FullOn, Off,
	}, bmp)
}

func TestBatteryChargingBlinks(t *testing.T) {
	src := &fakeBattery{r: BatteryReading{Percent: 50, Charging: true}}
	b := NewBattery(src)

	var seen []uint8
	for i := 0; i < 4; i++ {
		require.NoError(t, b.Update())
		bmp, _ := b.Render()
		seen = append(seen, bmp[9+3])
		assert.Equal(t, bmp[9+3], bmp[18+3])
	}
	assert.Equal(t, []uint8{Off, DimOn, Off, DimOn}, seen)
}

func TestBatteryFullSuppressesBlink(t *testing.T) {
	b := NewBattery(&fakeBattery{r: BatteryReading{Percent: 100, Charging: true}})
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Update())
		bmp, _ := b.Render()
		assert.Equal(t, 6, litSegments(bmp, 1))
	}
}

func TestBatteryEmptyChargingBlinksFirstSegment(t *testing.T) {
	b := NewBattery(&fakeBattery{r: BatteryReading{Percent: 2, Charging: true}})
	require.NoError(t, b.Update())
	require.NoError(t, b.Update())
	bmp, _ := b.Render()
	assert.Equal(t, FullOn, bmp[9], "border untouched")
	assert.Equal(t, DimOn, bmp[10])
}

func TestBatteryErrorKeepsLastState(t *testing.T) {
	src := &fakeBattery{}
	b := NewBattery(src)

	src.err = errors.New("no battery")
	assert.ErrorIs(t, b.Update(), ErrTelemetryUnavailable)
	bmp, _ := b.Render()
	assert.Nil(t, bmp, "nothing to show before the first reading")

	src.err = nil
	src.r = BatteryReading{Percent: 50}
	require.NoError(t, b.Update())
	before, _ := b.Render()

	src.err = errors.New("gone")
	assert.ErrorIs(t, b.Update(), ErrTelemetryUnavailable)
	after, _ := b.Render()
	assert.Equal(t, before, after)
}

func TestCPUPerCoreShape(t *testing.T) {
	assert.Equal(t, matrix.Shape{Width: 9, Height: 4}, NewCPU(&fakeCPU{}, 4, false).Shape())
	assert.Equal(t, matrix.Shape{Width: 9, Height: MaxCPURows}, NewCPU(&fakeCPU{}, 32, false).Shape())
	assert.Equal(t, matrix.Shape{Width: 8, Height: 8}, NewCPU(&fakeCPU{}, 12, true).Shape())
}

func TestCPUPerCoreBars(t *testing.T) {
	src := &fakeCPU{u: []float64{0, 100, 50, 110}}
	c := NewCPU(src, 4, false)
	require.NoError(t, c.Update())
	bmp, s := c.Render()
	require.Len(t, bmp, s.Cells())

	row := func(y int) []uint8 { return bmp[y*9 : y*9+9] }
	assert.Equal(t, []uint8{0, 0, 0, 0, 0, 0, 0, 0, 0}, row(0))
	assert.Equal(t, []uint8{120, 120, 120, 120, 120, 120, 120, 120, 120}, row(1))
	// 4.5 cells: four full, half brightness on the fifth
	assert.Equal(t, []uint8{120, 120, 120, 120, 60, 0, 0, 0, 0}, row(2))
	assert.Equal(t, row(1), row(3), "clamped to 100%")
}

func TestCPUSnapshotIsOwned(t *testing.T) {
	src := &fakeCPU{u: []float64{100}}
	c := NewCPU(src, 1, false)
	require.NoError(t, c.Update())
	src.u[0] = 0
	bmp, _ := c.Render()
	assert.Equal(t, FullOn, bmp[8])
}

func TestCPUMerged(t *testing.T) {
	src := &fakeCPU{u: []float64{10, 30, 75, 75, 0, 0, 100}}
	c := NewCPU(src, 7, true)
	require.NoError(t, c.Update())
	bmp, s := c.Render()
	require.Equal(t, 64, len(bmp))

	height := func(col int) int {
		n := 0
		for row := 0; row < s.Height; row++ {
			if bmp[row*s.Width+col] == FullOn {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 3, height(0)) // avg 20 -> rows for 0,10,20
	assert.Equal(t, 8, height(1)) // avg 75 -> all 8 levels (0..70)
	assert.Equal(t, 1, height(2)) // idle still lights the bottom
	assert.Equal(t, 8, height(3)) // odd core alone
	assert.Equal(t, 0, height(4)) // no cores left
	assert.Equal(t, FullOn, bmp[7*8+0], "bars grow from the bottom")
	assert.Equal(t, Off, bmp[0*8+0])
}

func TestCPUError(t *testing.T) {
	c := NewCPU(&fakeCPU{err: errors.New("proc")}, 2, false)
	assert.ErrorIs(t, c.Update(), ErrTelemetryUnavailable)
	bmp, _ := c.Render()
	assert.Nil(t, bmp)
}

func TestClockRender(t *testing.T) {
	now := time.Date(2024, 3, 9, 13, 7, 0, 0, time.Local)
	c := NewClock(func() time.Time { return now })
	require.NoError(t, c.Update())
	bmp, s := c.Render()
	assert.Equal(t, matrix.Shape{Width: 9, Height: 11}, s)
	require.Len(t, bmp, 99)

	glyphAt := func(row0, col0 int) matrix.Bitmap {
		var g matrix.Bitmap
		for r := 0; r < 5; r++ {
			g = append(g, bmp[(row0+r)*9+col0:(row0+r)*9+col0+3]...)
		}
		return g
	}
	assert.Equal(t, digits[1], glyphAt(0, 1))
	assert.Equal(t, digits[3], glyphAt(0, 5))
	assert.Equal(t, digits[0], glyphAt(6, 1))
	assert.Equal(t, digits[7], glyphAt(6, 5))

	for _, col := range []int{0, 4, 8} {
		for row := 0; row < 11; row++ {
			assert.Equal(t, Off, bmp[row*9+col], "spacer column %d row %d", col, row)
		}
	}
	assert.Equal(t, make(matrix.Bitmap, 9), bmp[45:54], "separator row")
}

func TestDigitGlyphs(t *testing.T) {
	for i, d := range digits {
		assert.Len(t, d, 15, "digit %d", i)
	}
	assert.Equal(t, matrix.Bitmap{Off, FullOn, Off, FullOn, Off, FullOn, FullOn, Off, FullOn, FullOn, Off, FullOn, Off, FullOn, Off}, digits[0])
}

func TestRegistry(t *testing.T) {
	reg := Builtin()
	var names []string
	for _, e := range reg.List() {
		names = append(names, e.Name)
		assert.NotEmpty(t, e.Description)
	}
	assert.Equal(t, []string{"battery", "cpu", "clock"}, names)

	src := Sources{Battery: &fakeBattery{}, CPU: &fakeCPU{}, Cores: 8}
	for _, n := range names {
		w, err := reg.Build(n, src)
		require.NoError(t, err)
		assert.Equal(t, n, w.Name())
	}
	_, err := reg.Build("weather", src)
	assert.Error(t, err)
	_, err = reg.Build("battery", Sources{})
	assert.Error(t, err)
}

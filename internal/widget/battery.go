package widget

import (
	"math"

	"github.com/coreman2200/matrixwidgets/internal/matrix"
)

// BatteryReading is the state of the first system battery.
type BatteryReading struct {
	Percent  float64
	Charging bool
}

type BatterySource interface {
	Battery() (BatteryReading, error)
}

const batterySegments = 6

var batteryOutline = sprite(
	"########.",
	"#......##",
	"#......##",
	"########.",
)

// Battery draws a battery outline filled in six segments. While charging
// below 99% the last lit segment blinks.
type Battery struct {
	src     BatterySource
	reading BatteryReading
	blink   bool
	next    bool
	updated bool
}

func NewBattery(src BatterySource) *Battery { return &Battery{src: src} }

func (b *Battery) Name() string { return "battery" }

func (b *Battery) Shape() matrix.Shape { return matrix.Shape{Width: 9, Height: 4} }

func (b *Battery) Update() error {
	r, err := b.src.Battery()
	if err != nil {
		return unavailable("battery", err)
	}
	b.reading = r
	b.updated = true
	if b.charging() {
		b.blink = b.next
		b.next = !b.next
	}
	return nil
}

func (b *Battery) charging() bool {
	return b.reading.Charging && b.reading.Percent < 99
}

// Segments is the number of lit segments for the last reading.
func (b *Battery) Segments() int {
	n := int(math.Round(b.reading.Percent * batterySegments / 100))
	if n < 0 {
		return 0
	}
	if n > batterySegments {
		return batterySegments
	}
	return n
}

func (b *Battery) Render() (matrix.Bitmap, matrix.Shape) {
	s := b.Shape()
	if !b.updated {
		return nil, s
	}
	bmp := append(matrix.Bitmap(nil), batteryOutline...)
	n := b.Segments()
	for i := 1; i <= n; i++ {
		bmp[s.Width+i] = DimOn
		bmp[2*s.Width+i] = DimOn
	}
	if b.charging() {
		col := n
		if col < 1 {
			col = 1
		}
		v := Off
		if b.blink {
			v = DimOn
		}
		bmp[s.Width+col] = v
		bmp[2*s.Width+col] = v
	}
	return bmp, s
}

// Package widget renders system telemetry into small brightness bitmaps.
package widget

import (
	"errors"
	"fmt"

	"github.com/coreman2200/matrixwidgets/internal/matrix"
)

// Brightness levels used by the built-in widgets.
const (
	FullOn uint8 = 120
	DimOn  uint8 = 68
	Off    uint8 = 0
)

// ErrTelemetryUnavailable wraps any failure to read a system data source.
var ErrTelemetryUnavailable = errors.New("telemetry unavailable")

// Widget is refreshed once per tick and then rendered.
type Widget interface {
	Name() string
	// Update pulls fresh state. On error the previous state is kept.
	Update() error
	// Render returns the current bitmap and its shape. The bitmap is nil
	// until the first successful Update.
	Render() (matrix.Bitmap, matrix.Shape)
}

func unavailable(source string, err error) error {
	return fmt.Errorf("%s: %v: %w", source, err, ErrTelemetryUnavailable)
}

// sprite builds a bitmap from rows of '#' (full), '+' (dim) and '.' (off).
func sprite(rows ...string) matrix.Bitmap {
	var out matrix.Bitmap
	for _, r := range rows {
		for _, c := range r {
			switch c {
			case '#':
				out = append(out, FullOn)
			case '+':
				out = append(out, DimOn)
			default:
				out = append(out, Off)
			}
		}
	}
	return out
}

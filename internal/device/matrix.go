// Package device is the command API for one LED matrix module.
package device

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"periph.io/x/conn/v3/display"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/coreman2200/matrixwidgets/internal/matrix"
	"github.com/coreman2200/matrixwidgets/internal/protocol"
	"github.com/coreman2200/matrixwidgets/internal/transport"
)

// VersionTimeout bounds the wait for a firmware version reply.
const VersionTimeout = 5 * time.Second

// Matrix is an open module. It is not safe for concurrent use.
type Matrix struct {
	conn transport.Conn
	Info transport.PortInfo
}

var _ display.Drawer = (*Matrix)(nil)

// New wraps an already open link.
func New(conn transport.Conn, info transport.PortInfo) *Matrix {
	return &Matrix{conn: conn, Info: info}
}

// Open connects to a detected module.
func Open(info transport.PortInfo) (*Matrix, error) {
	c, err := transport.Open(info.Name)
	if err != nil {
		return nil, err
	}
	return New(c, info), nil
}

func (m *Matrix) send(cmd []byte) error {
	if err := m.conn.Write(cmd); err != nil {
		return fmt.Errorf("%s: %w", protocol.Opcode(cmd[len(protocol.Sync)]), err)
	}
	return nil
}

// SetBrightness scales every LED, 0 off to 255 full.
func (m *Matrix) SetBrightness(v uint8) error { return m.send(protocol.Brightness(v)) }

// Pattern shows one of the firmware's built-in patterns.
func (m *Matrix) Pattern(p protocol.Pattern, args ...byte) error {
	return m.send(protocol.ShowPattern(p, args...))
}

// Bootloader reboots the module into firmware update mode. The port goes away.
func (m *Matrix) Bootloader() error { return m.send(protocol.Bootloader()) }

func (m *Matrix) Sleep() error { return m.send(protocol.Sleep(true)) }

func (m *Matrix) Wake() error { return m.send(protocol.Sleep(false)) }

func (m *Matrix) Animate(on bool) error { return m.send(protocol.Animate(on)) }

func (m *Matrix) Panic() error { return m.send(protocol.Panic()) }

// DrawBool draws an on/off frame in a single command.
func (m *Matrix) DrawBool(b matrix.BoolFrame) error { return m.send(protocol.DrawBool(b)) }

// SetColumn stages one column; nothing shows until CommitColumns.
func (m *Matrix) SetColumn(col uint8, vals [matrix.Height]uint8) error {
	if int(col) >= matrix.Width {
		return fmt.Errorf("column %d out of range", col)
	}
	return m.send(protocol.SetColumn(col, vals))
}

func (m *Matrix) CommitColumns() error { return m.send(protocol.CommitColumns()) }

// DrawFrame sends f with per-pixel brightness, column by column.
func (m *Matrix) DrawFrame(f matrix.Frame) error {
	for _, cmd := range protocol.DrawFrame(f) {
		if err := m.send(cmd); err != nil {
			return err
		}
	}
	return nil
}

// FirmwareVersion asks the module for its version. ok is false when the
// module did not answer in time or sent too little.
func (m *Matrix) FirmwareVersion() (v protocol.Version, ok bool, err error) {
	if err := m.send(protocol.FirmwareVersion()); err != nil {
		return protocol.Version{}, false, err
	}
	reply, err := m.conn.ReadExact(protocol.VersionReplySize, VersionTimeout)
	switch {
	case err == nil, errors.Is(err, transport.ErrShortRead):
	case errors.Is(err, transport.ErrTimeout):
		return protocol.Version{}, false, nil
	default:
		return protocol.Version{}, false, fmt.Errorf("version: %w", err)
	}
	v, ok = protocol.DecodeVersion(reply)
	return v, ok, nil
}

func (m *Matrix) Close() error { return m.conn.Close() }

// display.Drawer

func (m *Matrix) String() string { return m.Info.String() }

// Halt blanks the display.
func (m *Matrix) Halt() error { return m.DrawFrame(matrix.Frame{}) }

func (m *Matrix) ColorModel() color.Model { return color.GrayModel }

func (m *Matrix) Bounds() image.Rectangle { return matrix.Bounds() }

// Draw sends src to the module. Bilevel images take the single-command
// on/off path; anything else is converted to gray and drawn per pixel.
// Only full-frame draws are supported.
func (m *Matrix) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if r != m.Bounds() {
		return fmt.Errorf("partial draw %v not supported, use %v", r, m.Bounds())
	}
	if bits, ok := src.(*image1bit.VerticalLSB); ok {
		var b matrix.BoolFrame
		for y := 0; y < matrix.Height; y++ {
			for x := 0; x < matrix.Width; x++ {
				p := image.Pt(sp.X+x, sp.Y+y)
				b[y][x] = p.In(bits.Bounds()) && bool(bits.BitAt(p.X, p.Y))
			}
		}
		return m.DrawBool(b)
	}
	return m.DrawFrame(matrix.FromImage(src, sp))
}

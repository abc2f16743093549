// Package protocol builds command frames for the LED matrix firmware and
// decodes its replies. Nothing here touches I/O.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coreman2200/matrixwidgets/internal/matrix"
)

// Every command starts with this marker.
var Sync = [2]byte{0x32, 0xAC}

type Opcode byte

const (
	OpBrightness      Opcode = 0x00
	OpPattern         Opcode = 0x01
	OpBootloader      Opcode = 0x02
	OpSleep           Opcode = 0x03
	OpAnimate         Opcode = 0x04
	OpPanic           Opcode = 0x05
	OpDrawBool        Opcode = 0x06
	OpSetColumn       Opcode = 0x07
	OpCommitColumns   Opcode = 0x08
	OpFirmwareVersion Opcode = 0x20
)

func (o Opcode) String() string {
	switch o {
	case OpBrightness:
		return "brightness"
	case OpPattern:
		return "pattern"
	case OpBootloader:
		return "bootloader"
	case OpSleep:
		return "sleep"
	case OpAnimate:
		return "animate"
	case OpPanic:
		return "panic"
	case OpDrawBool:
		return "draw"
	case OpSetColumn:
		return "set-column"
	case OpCommitColumns:
		return "commit-columns"
	case OpFirmwareVersion:
		return "version"
	}
	return fmt.Sprintf("opcode(0x%02x)", byte(o))
}

// Pattern ids understood by the Pattern command.
type Pattern byte

const (
	PatternPercentage     Pattern = 0x00
	PatternGradient       Pattern = 0x01
	PatternDoubleGradient Pattern = 0x02
	PatternLotusSideways  Pattern = 0x03
	PatternZigZag         Pattern = 0x04
	PatternFullBrightness Pattern = 0x05
	PatternPanic          Pattern = 0x06
	PatternLotusTopDown   Pattern = 0x07
)

var patternNames = map[string]Pattern{
	"percentage":      PatternPercentage,
	"gradient":        PatternGradient,
	"double-gradient": PatternDoubleGradient,
	"lotus-sideways":  PatternLotusSideways,
	"zigzag":          PatternZigZag,
	"full-brightness": PatternFullBrightness,
	"panic":           PatternPanic,
	"lotus-top-down":  PatternLotusTopDown,
}

// ParsePattern reads a pattern name such as "zigzag" or "percentage:40"
// into its id and arguments. Only percentage takes an argument, 0-100.
func ParsePattern(s string) (Pattern, []byte, error) {
	name, arg, hasArg := strings.Cut(s, ":")
	p, ok := patternNames[name]
	if !ok {
		return 0, nil, fmt.Errorf("unknown pattern %q", name)
	}
	if p != PatternPercentage {
		if hasArg {
			return 0, nil, fmt.Errorf("pattern %s takes no argument", name)
		}
		return p, nil, nil
	}
	if !hasArg {
		return 0, nil, fmt.Errorf("pattern percentage needs a value, e.g. percentage:50")
	}
	v, err := strconv.Atoi(arg)
	if err != nil || v < 0 || v > 100 {
		return 0, nil, fmt.Errorf("percentage %q outside 0-100", arg)
	}
	return p, []byte{byte(v)}, nil
}

const (
	// BoolFrameSize is ceil(34*9/8).
	BoolFrameSize = (matrix.Width*matrix.Height + 7) / 8
	// ColumnCommandSize is sync + opcode + column index + one byte per row.
	ColumnCommandSize = len(Sync) + 2 + matrix.Height
)

// Command frames op with its parameters.
func Command(op Opcode, params ...byte) []byte {
	buf := make([]byte, 0, len(Sync)+1+len(params))
	buf = append(buf, Sync[:]...)
	buf = append(buf, byte(op))
	return append(buf, params...)
}

func Brightness(v uint8) []byte { return Command(OpBrightness, v) }

// ShowPattern displays a built-in pattern. Only PatternPercentage takes an argument.
func ShowPattern(p Pattern, args ...byte) []byte {
	return Command(OpPattern, append([]byte{byte(p)}, args...)...)
}

func Bootloader() []byte { return Command(OpBootloader) }

// Sleep puts the module to sleep (true) or wakes it (false).
func Sleep(asleep bool) []byte { return Command(OpSleep, boolByte(asleep)) }

func Animate(on bool) []byte { return Command(OpAnimate, boolByte(on)) }

func Panic() []byte { return Command(OpPanic) }

func FirmwareVersion() []byte { return Command(OpFirmwareVersion) }

func DrawBool(b matrix.BoolFrame) []byte {
	enc := EncodeBool(b)
	return Command(OpDrawBool, enc[:]...)
}

func SetColumn(col uint8, vals [matrix.Height]uint8) []byte {
	buf := make([]byte, 0, ColumnCommandSize)
	buf = append(buf, Sync[:]...)
	buf = append(buf, byte(OpSetColumn), col)
	return append(buf, vals[:]...)
}

func CommitColumns() []byte { return Command(OpCommitColumns) }

// DrawFrame returns the command sequence for the per-pixel path: one
// SetColumn per column, left to right, then a single CommitColumns.
func DrawFrame(f matrix.Frame) [][]byte {
	cols := f.Transpose()
	out := make([][]byte, 0, matrix.Width+1)
	for i := range cols {
		out = append(out, SetColumn(uint8(i), cols[i]))
	}
	return append(out, CommitColumns())
}

// EncodeBool packs b one bit per LED, least significant bit first, scanning
// row by row. Bit i = row*9+col lands in byte i/8.
func EncodeBool(b matrix.BoolFrame) [BoolFrameSize]byte {
	var out [BoolFrameSize]byte
	i := 0
	for y := range b {
		for x := range b[y] {
			if b[y][x] {
				out[i/8] |= 1 << (i % 8)
			}
			i++
		}
	}
	return out
}

// DecodeBool is the inverse of EncodeBool.
func DecodeBool(buf [BoolFrameSize]byte) matrix.BoolFrame {
	var out matrix.BoolFrame
	i := 0
	for y := range out {
		for x := range out[y] {
			out[y][x] = buf[i/8]&(1<<(i%8)) != 0
			i++
		}
	}
	return out
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

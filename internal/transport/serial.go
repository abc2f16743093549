// Package transport owns the serial link to a matrix module.
package transport

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"go.bug.st/serial"
)

const (
	BaudRate = 115200
	// PollInterval is how long a single read waits for bytes.
	PollInterval = 10 * time.Millisecond
)

var (
	ErrNotFound         = errors.New("serial port not found")
	ErrPermissionDenied = errors.New("serial port permission denied")
	ErrBusy             = errors.New("serial port busy")
	ErrTimeout          = errors.New("serial read timed out")
	ErrShortRead        = errors.New("serial short read")
	ErrIO               = errors.New("serial i/o failure")
)

// Conn is what the device layer needs from a link.
type Conn interface {
	// Write sends all of b and flushes it.
	Write(b []byte) error
	// ReadExact reads count bytes, waiting up to timeout for the first one.
	ReadExact(count int, timeout time.Duration) ([]byte, error)
	Close() error
	String() string
}

// port is the subset of serial.Port used here.
type port interface {
	io.ReadWriteCloser
	Drain() error
	SetReadTimeout(t time.Duration) error
}

// Serial is a Conn over a USB CDC serial port.
type Serial struct {
	name string
	p    port
	now  func() time.Time
}

var openPort = func(name string, mode *serial.Mode) (port, error) {
	return serial.Open(name, mode)
}

// Open connects to the named port at 115200 8N1.
func Open(name string) (*Serial, error) {
	p, err := openPort(name, &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, classifyOpen(err))
	}
	if err := p.SetReadTimeout(PollInterval); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("open %s: set read timeout: %v: %w", name, err, ErrIO)
	}
	return newSerial(name, p), nil
}

func newSerial(name string, p port) *Serial {
	return &Serial{name: name, p: p, now: time.Now}
}

func classifyOpen(err error) error {
	var pe *serial.PortError
	if errors.As(err, &pe) {
		switch pe.Code() {
		case serial.PortNotFound, serial.InvalidSerialPort:
			return fmt.Errorf("%v: %w", err, ErrNotFound)
		case serial.PermissionDenied:
			return fmt.Errorf("%v: %w", err, ErrPermissionDenied)
		case serial.PortBusy:
			return fmt.Errorf("%v: %w", err, ErrBusy)
		}
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%v: %w", err, ErrNotFound)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%v: %w", err, ErrPermissionDenied)
	}
	return fmt.Errorf("%v: %w", err, ErrIO)
}

func (s *Serial) String() string { return s.name }

// Write sends b in full then drains the output buffer. A short write is fatal.
func (s *Serial) Write(b []byte) error {
	n, err := s.p.Write(b)
	if err != nil {
		return fmt.Errorf("write %s: %v: %w", s.name, err, ErrIO)
	}
	if n != len(b) {
		return fmt.Errorf("write %s: %d of %d bytes: %w: %w", s.name, n, len(b), io.ErrShortWrite, ErrIO)
	}
	if err := s.p.Drain(); err != nil {
		return fmt.Errorf("flush %s: %v: %w", s.name, err, ErrIO)
	}
	return nil
}

// ReadExact polls every PollInterval until the first byte arrives or timeout
// passes. Once data flows it keeps reading until count bytes are in or a poll
// comes back empty. Fewer than count bytes returns what was read along with
// ErrShortRead.
func (s *Serial) ReadExact(count int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, count)
	deadline := s.now().Add(timeout)
	got := 0
	for got < count {
		n, err := s.p.Read(buf[got:])
		if err != nil {
			return buf[:got], fmt.Errorf("read %s: %v: %w", s.name, err, ErrIO)
		}
		if n == 0 {
			if got > 0 {
				break
			}
			if s.now().After(deadline) {
				return nil, fmt.Errorf("read %s after %s: %w", s.name, timeout, ErrTimeout)
			}
			continue
		}
		got += n
	}
	if got < count {
		return buf[:got], fmt.Errorf("read %s: %d of %d bytes: %w", s.name, got, count, ErrShortRead)
	}
	return buf, nil
}

func (s *Serial) Close() error {
	if err := s.p.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.name, err)
	}
	return nil
}

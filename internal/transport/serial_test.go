package transport

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// fakePort replays queued read chunks; an empty queue reads as a poll timeout.
type fakePort struct {
	written  bytes.Buffer
	chunks   [][]byte
	drains   int
	short    bool
	writeErr error
	readErr  error
	closed   bool
	clock    *fakeClock
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (f *fakePort) Read(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.chunks) == 0 {
		f.clock.t = f.clock.t.Add(PollInterval)
		return 0, nil
	}
	n := copy(p, f.chunks[0])
	if n < len(f.chunks[0]) {
		f.chunks[0] = f.chunks[0][n:]
	} else {
		f.chunks = f.chunks[1:]
	}
	return n, nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	if f.short {
		p = p[:len(p)/2]
	}
	return f.written.Write(p)
}

func (f *fakePort) Drain() error                       { f.drains++; return nil }
func (f *fakePort) SetReadTimeout(time.Duration) error { return nil }
func (f *fakePort) Close() error                       { f.closed = true; return nil }

func newFake(chunks ...[]byte) (*Serial, *fakePort) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	p := &fakePort{chunks: chunks, clock: clk}
	s := newSerial("/dev/ttyTEST", p)
	s.now = clk.now
	return s, p
}

func TestWriteFlushes(t *testing.T) {
	s, p := newFake()
	require.NoError(t, s.Write([]byte{0x32, 0xAC, 0x08}))
	assert.Equal(t, []byte{0x32, 0xAC, 0x08}, p.written.Bytes())
	assert.Equal(t, 1, p.drains)
}

func TestWriteShortIsFatal(t *testing.T) {
	s, p := newFake()
	p.short = true
	err := s.Write([]byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.Zero(t, p.drains)
}

func TestWriteError(t *testing.T) {
	s, p := newFake()
	p.writeErr = errors.New("unplugged")
	assert.ErrorIs(t, s.Write([]byte{1}), ErrIO)
}

func TestReadExactFull(t *testing.T) {
	s, _ := newFake([]byte{1, 2}, []byte{3})
	b, err := s.ReadExact(3, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
}

func TestReadExactShort(t *testing.T) {
	s, _ := newFake([]byte{1, 2, 0})
	b, err := s.ReadExact(32, 5*time.Second)
	assert.ErrorIs(t, err, ErrShortRead)
	assert.Equal(t, []byte{1, 2, 0}, b, "short reads are not padded")
}

func TestReadExactTimeout(t *testing.T) {
	s, p := newFake()
	start := p.clock.t
	b, err := s.ReadExact(3, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Nil(t, b)
	assert.True(t, p.clock.t.Sub(start) > 50*time.Millisecond)
}

func TestReadExactError(t *testing.T) {
	s, p := newFake()
	p.readErr = errors.New("gone")
	_, err := s.ReadExact(3, time.Second)
	assert.ErrorIs(t, err, ErrIO)
}

func TestClassifyOpen(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{&serial.PortError{}, ErrBusy}, // zero code is PortBusy
		{fs.ErrNotExist, ErrNotFound},
		{fs.ErrPermission, ErrPermissionDenied},
		{errors.New("weird"), ErrIO},
	}
	for _, c := range cases {
		assert.ErrorIs(t, classifyOpen(c.err), c.want)
	}
}

func TestOpenMapsErrors(t *testing.T) {
	orig := openPort
	defer func() { openPort = orig }()

	openPort = func(name string, mode *serial.Mode) (port, error) {
		assert.Equal(t, BaudRate, mode.BaudRate)
		return nil, fs.ErrNotExist
	}
	_, err := Open("/dev/ttyACM9")
	assert.ErrorIs(t, err, ErrNotFound)

	fp := &fakePort{clock: &fakeClock{}}
	openPort = func(string, *serial.Mode) (port, error) { return fp, nil }
	s, err := Open("/dev/ttyACM0")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", s.String())
	require.NoError(t, s.Close())
	assert.True(t, fp.closed)
}

func TestDetectFiltersByID(t *testing.T) {
	orig := listPorts
	defer func() { listPorts = orig }()

	listPorts = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/ttyS0"},
			{Name: "/dev/ttyACM0", IsUSB: true, VID: "32ac", PID: "0020", SerialNumber: "FRAKDEBZ0100000000"},
			{Name: "/dev/ttyACM1", IsUSB: true, VID: "2341", PID: "0043"},
			{Name: "/dev/ttyACM2", IsUSB: true, VID: "32AC", PID: "0x0020"},
			{Name: "/dev/ttyACM3", IsUSB: true, VID: "32ac", PID: "0012"},
		}, nil
	}
	got, err := Detect()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/dev/ttyACM0", got[0].Name)
	assert.Equal(t, "/dev/ttyACM0 (FRAKDEBZ0100000000)", got[0].String())
	assert.Equal(t, "/dev/ttyACM2", got[1].Name)
}

func TestDetectError(t *testing.T) {
	orig := listPorts
	defer func() { listPorts = orig }()
	listPorts = func() ([]*enumerator.PortDetails, error) { return nil, errors.New("no sysfs") }
	_, err := Detect()
	assert.Error(t, err)
}

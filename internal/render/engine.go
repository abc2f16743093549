// Package render composes widgets into frames and pushes them to the display.
package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/matrixwidgets/internal/matrix"
	"github.com/coreman2200/matrixwidgets/internal/widget"
)

// Sink receives every composed frame (a module, the console preview, ...).
type Sink interface {
	DrawFrame(matrix.Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(matrix.Frame) error

func (f SinkFunc) DrawFrame(fr matrix.Frame) error { return f(fr) }

// Placement pins a widget's top-left corner to (X, Y).
type Placement struct {
	Widget widget.Widget
	X, Y   int
}

// Engine refreshes its widgets, overlays them onto a blank frame and writes
// the result to every sink.
type Engine struct {
	Layout []Placement
	Sinks  []Sink

	frame  matrix.Frame
	frames int

	// placements whose last overlay failed; warned about once
	rejected map[int]bool

	// metrics (last durations in ms)
	Last struct {
		UpdateMS float64
		DrawMS   float64
		TotalMS  float64
	}
}

func NewEngine(layout []Placement, sinks ...Sink) (*Engine, error) {
	if len(sinks) == 0 {
		return nil, errors.New("no sinks")
	}
	return &Engine{Layout: layout, Sinks: sinks, rejected: map[int]bool{}}, nil
}

// Frame returns the most recently composed frame.
func (e *Engine) Frame() matrix.Frame { return e.frame }

// Frames counts frames sent since the engine was created.
func (e *Engine) Frames() int { return e.frames }

// Compose updates every widget and overlays the ones that have something
// to show. Widget failures are logged and never abort the frame.
func (e *Engine) Compose() matrix.Frame {
	var f matrix.Frame
	for i, p := range e.Layout {
		name := p.Widget.Name()
		if err := p.Widget.Update(); err != nil {
			log.Warn().Err(err).Str("widget", name).Msg("update failed; keeping last state")
		}
		bmp, shape := p.Widget.Render()
		if bmp == nil {
			continue
		}
		next, err := matrix.Overlay(f, bmp, shape, p.X, p.Y)
		if err != nil {
			if !e.rejected[i] {
				log.Warn().Err(err).Str("widget", name).Int("x", p.X).Int("y", p.Y).Msg("skipping widget")
				e.rejected[i] = true
			}
			continue
		}
		delete(e.rejected, i)
		f = next
	}
	return f
}

// RenderOnce composes one frame and writes it out. Sink errors are returned.
func (e *Engine) RenderOnce() error {
	start := time.Now()
	f := e.Compose()
	e.Last.UpdateMS = float64(time.Since(start).Microseconds()) / 1000.0

	drawStart := time.Now()
	for _, s := range e.Sinks {
		if err := s.DrawFrame(f); err != nil {
			return fmt.Errorf("draw: %w", err)
		}
	}
	e.Last.DrawMS = float64(time.Since(drawStart).Microseconds()) / 1000.0
	e.Last.TotalMS = float64(time.Since(start).Microseconds()) / 1000.0

	e.frame = f
	e.frames++
	return nil
}

// Run renders at rate until ctx is done or a sink fails. The first frame is
// drawn immediately; each following wait subtracts the time the previous
// frame took.
func (e *Engine) Run(ctx context.Context, rate physic.Frequency) error {
	if rate <= 0 {
		return fmt.Errorf("invalid refresh rate %s", rate)
	}
	period := rate.Period()
	timer := time.NewTimer(0)
	defer timer.Stop()

	warned := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		t := time.Now()
		if err := e.RenderOnce(); err != nil {
			return err
		}
		delta := period - time.Since(t)
		if delta < 0 {
			if !warned {
				log.Warn().Str("rate", rate.String()).Float64("frame_ms", e.Last.TotalMS).Msg("refresh rate not attainable; rendering as fast as possible")
				warned = true
			}
			delta = 0
		}
		timer.Reset(delta)
	}
}

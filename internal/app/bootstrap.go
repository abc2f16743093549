// Package app wires detected modules, widgets and the refresh loop together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/matrixwidgets/internal/config"
	"github.com/coreman2200/matrixwidgets/internal/device"
	"github.com/coreman2200/matrixwidgets/internal/matrix"
	"github.com/coreman2200/matrixwidgets/internal/preview"
	"github.com/coreman2200/matrixwidgets/internal/protocol"
	"github.com/coreman2200/matrixwidgets/internal/render"
	"github.com/coreman2200/matrixwidgets/internal/telemetry"
	"github.com/coreman2200/matrixwidgets/internal/transport"
	"github.com/coreman2200/matrixwidgets/internal/widget"
)

var (
	ErrNoDevices   = errors.New("no modules found")
	ErrRateTooHigh = config.ErrRateTooHigh
)

// Module is the part of *device.Matrix the app drives.
type Module interface {
	display.Drawer
	DrawFrame(matrix.Frame) error
	SetBrightness(uint8) error
	Pattern(protocol.Pattern, ...byte) error
	Sleep() error
	Wake() error
	Animate(bool) error
	Panic() error
	Bootloader() error
	FirmwareVersion() (protocol.Version, bool, error)
	Close() error
}

// Deps are the hardware and host hooks; tests swap them for fakes.
type Deps struct {
	Detect   func() ([]transport.PortInfo, error)
	Open     func(transport.PortInfo) (Module, error)
	Sources  func() widget.Sources
	Registry *widget.Registry
	Preview  func() render.Sink
}

func DefaultDeps() Deps {
	return Deps{
		Detect: transport.Detect,
		Open: func(p transport.PortInfo) (Module, error) {
			m, err := device.Open(p)
			if err != nil {
				return nil, err
			}
			return m, nil
		},
		Sources:  hostSources,
		Registry: widget.Builtin(),
		Preview:  func() render.Sink { return preview.New() },
	}
}

func hostSources() widget.Sources {
	cores, err := telemetry.Cores()
	if err != nil {
		log.Warn().Err(err).Msg("cpu count unavailable; assuming one core")
		cores = 1
	}
	return widget.Sources{
		Battery: telemetry.Battery{},
		CPU:     telemetry.CPU{},
		Cores:   cores,
		Now:     time.Now,
	}
}

type App struct {
	Primary Module
	Engine  *render.Engine
	Rate    physic.Frequency
}

// Start validates cfg, finds the modules, blanks the secondary one and
// builds the refresh engine. Nothing is written to any module when cfg is
// invalid or no module is found.
func Start(cfg *config.Config, d Deps) (*App, error) {
	if err := Validate(cfg, d.Registry); err != nil {
		return nil, err
	}
	layout, err := buildLayout(cfg, d)
	if err != nil {
		return nil, err
	}

	primary, secondary, err := discover(cfg, d)
	if err != nil {
		return nil, err
	}

	m, err := d.Open(primary)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", primary.Name, err)
	}
	log.Info().Str("port", primary.Name).Str("serial", primary.SerialNumber).Msg("primary module")

	if secondary != nil {
		if err := blank(d, *secondary); err != nil {
			m.Close()
			return nil, err
		}
	}

	if cfg.Brightness > 0 {
		if err := m.SetBrightness(uint8(cfg.Brightness)); err != nil {
			m.Close()
			return nil, err
		}
	}

	var primarySink render.Sink = m
	if cfg.DrawMode == config.DrawBool {
		primarySink = render.Bilevel(m)
	}
	sinks := []render.Sink{primarySink}
	if cfg.Preview && d.Preview != nil {
		sinks = append(sinks, d.Preview())
	}
	eng, err := render.NewEngine(layout, sinks...)
	if err != nil {
		m.Close()
		return nil, err
	}
	return &App{Primary: m, Engine: eng, Rate: cfg.Rate()}, nil
}

// buildLayout instantiates the configured widgets and checks that each one
// fits the frame where it is placed.
func buildLayout(cfg *config.Config, d Deps) ([]render.Placement, error) {
	src := d.Sources()
	src.MergeCPU = cfg.CPUMergeThreads
	var layout []render.Placement
	for _, p := range cfg.Widgets {
		w, err := d.Registry.Build(p.Name, src)
		if err != nil {
			return nil, err
		}
		_, shape := w.Render()
		if err := matrix.Fits(shape, p.X, p.Y); err != nil {
			return nil, fmt.Errorf("widget %s: %w", p.Name, err)
		}
		layout = append(layout, render.Placement{Widget: w, X: p.X, Y: p.Y})
	}
	return layout, nil
}

// Validate checks cfg against the widgets in reg.
func Validate(cfg *config.Config, reg *widget.Registry) error {
	return cfg.Validate(func(name string) bool { _, ok := reg.Get(name); return ok })
}

func discover(cfg *config.Config, d Deps) (transport.PortInfo, *transport.PortInfo, error) {
	if cfg.Port != "" {
		var secondary *transport.PortInfo
		if cfg.SecondaryPort != "" {
			secondary = &transport.PortInfo{Name: cfg.SecondaryPort}
		}
		return transport.PortInfo{Name: cfg.Port}, secondary, nil
	}

	ports, err := d.Detect()
	if err != nil {
		return transport.PortInfo{}, nil, fmt.Errorf("detect: %w", err)
	}
	switch len(ports) {
	case 0:
		return transport.PortInfo{}, nil, ErrNoDevices
	case 1:
		return ports[0], nil, nil
	}
	if len(ports) > 2 {
		log.Warn().Int("found", len(ports)).Msg("only the first two modules are used")
	}
	return ports[0], &ports[1], nil
}

// blank clears the secondary module once so it does not show stale content.
func blank(d Deps, p transport.PortInfo) error {
	m, err := d.Open(p)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.Name, err)
	}
	defer m.Close()
	if err := m.Halt(); err != nil {
		return fmt.Errorf("blank %s: %w", p.Name, err)
	}
	log.Info().Str("port", p.Name).Msg("secondary module blanked")
	return nil
}

// Exec opens the primary module, and the secondary one when there is one,
// runs cmd on each and closes them again.
func Exec(cfg *config.Config, d Deps, name string, cmd func(Module) error) error {
	primary, secondary, err := discover(cfg, d)
	if err != nil {
		return err
	}
	targets := []transport.PortInfo{primary}
	if secondary != nil {
		targets = append(targets, *secondary)
	}
	for _, p := range targets {
		m, err := d.Open(p)
		if err != nil {
			return fmt.Errorf("open %s: %w", p.Name, err)
		}
		err = cmd(m)
		m.Close()
		if err != nil {
			return fmt.Errorf("%s %s: %w", name, p.Name, err)
		}
		log.Info().Str("port", p.Name).Str("command", name).Msg("sent")
	}
	return nil
}

// Run drives the primary module until ctx is done or a write fails.
func (a *App) Run(ctx context.Context) error {
	log.Info().Str("rate", a.Rate.String()).Int("widgets", len(a.Engine.Layout)).Msg("refresh loop starting")
	return a.Engine.Run(ctx, a.Rate)
}

func (a *App) Close() error { return a.Primary.Close() }

// ListModules prints each detected module with its firmware version.
func ListModules(w io.Writer, d Deps) error {
	ports, err := d.Detect()
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	if len(ports) == 0 {
		return ErrNoDevices
	}
	for _, p := range ports {
		version := "unknown"
		m, err := d.Open(p)
		if err != nil {
			version = fmt.Sprintf("unavailable (%v)", err)
		} else {
			v, ok, err := m.FirmwareVersion()
			switch {
			case err != nil:
				log.Debug().Err(err).Str("port", p.Name).Msg("version query failed")
			case ok:
				version = v.String()
			}
			m.Close()
		}
		fmt.Fprintf(w, "%s\tserial %s\tfirmware %s\n", p.Name, p.SerialNumber, version)
	}
	return nil
}

// ListWidgets prints the registered widgets and what they show.
func ListWidgets(w io.Writer, reg *widget.Registry) {
	for _, e := range reg.List() {
		fmt.Fprintf(w, "%s: %s\n", e.Name, e.Description)
	}
}

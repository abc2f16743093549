package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

// MaxRefreshHz is the fastest rate the per-pixel path can sustain: every
// frame costs ten serial commands.
const MaxRefreshHz = 5.0

var ErrRateTooHigh = errors.New("refresh rate too high")

// Draw modes. Gray sends per-pixel brightness; bool sends a single on/off
// command per frame.
const (
	DrawGray = "gray"
	DrawBool = "bool"
)

// Placement puts a widget's top-left corner at (X, Y) on the frame.
type Placement struct {
	Name string `yaml:"name"`
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
}

type Config struct {
	RefreshHz       float64     `yaml:"refresh_hz"`
	Brightness      int         `yaml:"brightness,omitempty"` // 0 leaves the module's setting alone
	CPUMergeThreads bool        `yaml:"cpu_merge_threads"`
	Port            string      `yaml:"port,omitempty"`           // e.g. /dev/ttyACM0; skips USB detection
	SecondaryPort   string      `yaml:"secondary_port,omitempty"` // blanked once at startup
	Preview         bool        `yaml:"preview"`
	DrawMode        string      `yaml:"draw_mode"`
	Widgets         []Placement `yaml:"widgets"`
}

// Default is the stock layout: battery on top, cpu bars, clock at the bottom.
func Default() *Config {
	return &Config{
		RefreshHz: 0.5,
		DrawMode:  DrawGray,
		Widgets: []Placement{
			{Name: "battery", X: 0, Y: 0},
			{Name: "cpu", X: 0, Y: 5},
			{Name: "clock", X: 0, Y: 23},
		},
	}
}

// Rate returns RefreshHz as a frequency.
func (c *Config) Rate() physic.Frequency {
	return physic.Frequency(c.RefreshHz * float64(physic.Hertz))
}

// Validate checks values that do not depend on the attached hardware.
// known reports whether a widget name exists.
func (c *Config) Validate(known func(string) bool) error {
	if c.RefreshHz <= 0 {
		return fmt.Errorf("refresh rate must be positive, got %v Hz", c.RefreshHz)
	}
	if c.RefreshHz > MaxRefreshHz {
		return fmt.Errorf("%v Hz exceeds %v Hz: %w", c.RefreshHz, MaxRefreshHz, ErrRateTooHigh)
	}
	switch c.DrawMode {
	case "", DrawGray, DrawBool:
	default:
		return fmt.Errorf("draw mode %q, want %s or %s", c.DrawMode, DrawGray, DrawBool)
	}
	if c.Brightness < 0 || c.Brightness > 255 {
		return fmt.Errorf("brightness %d outside 0-255", c.Brightness)
	}
	for _, w := range c.Widgets {
		if known != nil && !known(w.Name) {
			return fmt.Errorf("unknown widget %q", w.Name)
		}
	}
	return nil
}

// Load reads a YAML config on top of Default.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

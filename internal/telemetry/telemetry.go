// Package telemetry reads live battery and CPU state from the host.
package telemetry

import (
	"errors"
	"fmt"

	"github.com/distatus/battery"
	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/coreman2200/matrixwidgets/internal/widget"
)

var (
	getBattery = battery.Get
	cpuPercent = cpu.Percent
	cpuCounts  = cpu.Counts
)

// Battery reads the first battery the OS reports.
type Battery struct{}

func (Battery) Battery() (widget.BatteryReading, error) {
	b, err := getBattery(0)
	if err != nil && !usablePartial(err) {
		return widget.BatteryReading{}, err
	}
	if b == nil {
		return widget.BatteryReading{}, errors.New("no battery found")
	}
	if b.Full <= 0 {
		return widget.BatteryReading{}, fmt.Errorf("battery reports full capacity %v", b.Full)
	}
	return widget.BatteryReading{
		Percent:  b.Current / b.Full * 100,
		Charging: b.State.Raw == battery.Charging,
	}, nil
}

// usablePartial accepts a partial read as long as charge and state came through.
func usablePartial(err error) bool {
	var p battery.ErrPartial
	if !errors.As(err, &p) {
		return false
	}
	return p.Current == nil && p.Full == nil && p.State == nil
}

// CPU reports per-core utilization since the previous call.
type CPU struct{}

func (CPU) Usage() ([]float64, error) {
	u, err := cpuPercent(0, true)
	if err != nil {
		return nil, err
	}
	if len(u) == 0 {
		return nil, errors.New("no cpu usage reported")
	}
	return u, nil
}

// Cores returns the logical core count and primes the usage counters so the
// first Usage call has a baseline.
func Cores() (int, error) {
	n, err := cpuCounts(true)
	if err != nil {
		return 0, fmt.Errorf("count cpus: %w", err)
	}
	if _, err := cpuPercent(0, true); err != nil {
		return 0, fmt.Errorf("sample cpus: %w", err)
	}
	return n, nil
}

package widget

import (
	"fmt"
	"time"
)

// Sources bundles the live data providers handed to widget factories.
type Sources struct {
	Battery  BatterySource
	CPU      CPUSource
	Cores    int
	MergeCPU bool
	Now      func() time.Time
}

type Factory func(Sources) (Widget, error)

type Entry struct {
	Name        string
	Description string
	New         Factory
}

// Registry maps widget names to factories, keeping registration order.
type Registry struct {
	m     map[string]Entry
	order []string
}

func NewRegistry() *Registry { return &Registry{m: map[string]Entry{}} }

func (r *Registry) Register(e Entry) {
	if e.New == nil || e.Name == "" {
		return
	}
	if _, ok := r.m[e.Name]; !ok {
		r.order = append(r.order, e.Name)
	}
	r.m[e.Name] = e
}

func (r *Registry) Get(name string) (Entry, bool) { e, ok := r.m[name]; return e, ok }

func (r *Registry) List() []Entry {
	out := make([]Entry, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.m[n])
	}
	return out
}

// Build instantiates the named widget.
func (r *Registry) Build(name string, src Sources) (Widget, error) {
	e, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown widget %q", name)
	}
	return e.New(src)
}

// Builtin returns a registry with the battery, cpu and clock widgets.
func Builtin() *Registry {
	reg := NewRegistry()
	reg.Register(Entry{
		Name:        "battery",
		Description: "A 9x4 widget in the shape of a battery, with an internal bar indicating remaining capacity. The last segment blinks while charging.",
		New: func(s Sources) (Widget, error) {
			if s.Battery == nil {
				return nil, fmt.Errorf("battery: no source")
			}
			return NewBattery(s.Battery), nil
		},
	})
	reg.Register(Entry{
		Name:        "cpu",
		Description: fmt.Sprintf("A 9xN widget where each row of LEDs is a bar showing the usage of one core (up to %d cores), or an 8x8 widget of paired-core columns in merged mode.", MaxCPURows),
		New: func(s Sources) (Widget, error) {
			if s.CPU == nil {
				return nil, fmt.Errorf("cpu: no source")
			}
			return NewCPU(s.CPU, s.Cores, s.MergeCPU), nil
		},
	})
	reg.Register(Entry{
		Name:        "clock",
		Description: "A 9x11 widget that displays the system time in 24hr format.",
		New: func(s Sources) (Widget, error) {
			return NewClock(s.Now), nil
		},
	})
	return reg
}

package sim_test

import (
	"github.com/plus3/skirmish/sim"
)

// markerProps configures a marker drawn from a pool.
type markerProps struct {
	Label string
	Value int
}

// marker is a minimal component with observable fields, used to verify
// pooling and attachment behavior.
type marker struct {
	sim.ComponentBase
	Label string
	Value int
}

func newMarker() sim.Poolable { return &marker{} }

func (m *marker) Name() string { return "marker" }

func (m *marker) Reset() {
	m.ResetBase()
	m.Label = ""
	m.Value = 0
}

func (m *marker) Recreate(props any) {
	if props == nil {
		return
	}
	p := props.(markerProps)
	m.Label = p.Label
	m.Value = p.Value
}

// tag is a second component name for multi-component queries.
type tag struct {
	sim.ComponentBase
	Kind string
}

func newTag() sim.Poolable { return &tag{} }

func (t *tag) Name() string { return "tag" }

func (t *tag) Reset() {
	t.ResetBase()
	t.Kind = ""
}

func (t *tag) Recreate(props any) {
	if props == nil {
		return
	}
	t.Kind = props.(string)
}

// recordingSystem appends its name to a shared journal on every
// invocation, which is how the scheduler tests observe ordering.
type recordingSystem struct {
	sim.SystemBase
	name     string
	kind     sim.SystemKind
	priority int
	journal  *[]string
	gate     func() bool
	onUpdate func(dt float64)
}

func (s *recordingSystem) Name() string         { return s.name }
func (s *recordingSystem) Kind() sim.SystemKind { return s.kind }
func (s *recordingSystem) Priority() int        { return s.priority }

func (s *recordingSystem) CanInvoke() bool {
	if s.gate == nil {
		return true
	}
	return s.gate()
}

func (s *recordingSystem) Update(dt float64) {
	if s.journal != nil {
		*s.journal = append(*s.journal, s.name)
	}
	if s.onUpdate != nil {
		s.onUpdate(dt)
	}
}

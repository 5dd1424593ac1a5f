package sim

import (
	"fmt"
	"sort"
	"time"
)

// SchedulerStats provides statistics about system execution.
type SchedulerStats struct {
	SystemCount     int
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStats struct {
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

// AddSystem registers a system, binds the world back-reference, and slots
// it into the priority order. System names are exclusive; registering two
// systems under one name is a logic bug and panics.
func (w *World) AddSystem(s System) {
	name := s.Name()
	if _, dup := w.systems[name]; dup {
		panic(fmt.Sprintf("system %q already registered", name))
	}
	if binder, ok := s.(worldBinder); ok {
		binder.bindWorld(w)
	}
	w.systems[name] = s
	w.stats[name] = &systemStats{minDuration: time.Duration(1<<63 - 1)}

	w.systemOrder = append(w.systemOrder, s)
	sort.SliceStable(w.systemOrder, func(i, j int) bool {
		return w.systemOrder[i].Priority() < w.systemOrder[j].Priority()
	})
}

// System returns the registered system with the given name.
func (w *World) System(name string) (System, bool) {
	s, ok := w.systems[name]
	return s, ok
}

// UpdateLogic runs all logic (and both-kind) systems for one fixed tick,
// in ascending priority order.
func (w *World) UpdateLogic(dt float64) {
	w.runPass(KindLogic, dt)
}

// UpdateRender runs all render (and both-kind) systems for one render
// frame, in ascending priority order.
func (w *World) UpdateRender(dt float64) {
	w.runPass(KindRender, dt)
}

func (w *World) runPass(pass SystemKind, dt float64) {
	w.inPass = true

	for _, s := range w.systemOrder {
		if !s.Kind().matches(pass) {
			continue
		}

		// The invoke gap accumulates every tick, including skipped ones.
		ready := true
		if t, ok := s.(throttled); ok {
			ready = t.due(dt)
		}
		if !ready {
			continue
		}
		if gate, ok := s.(invokeGater); ok && !gate.CanInvoke() {
			continue
		}

		start := time.Now()
		s.Update(dt)
		w.recordStats(s.Name(), time.Since(start))
	}

	w.inPass = false
	w.flush()
}

func (w *World) recordStats(name string, duration time.Duration) {
	stats := w.stats[name]
	stats.executionCount++
	stats.lastDuration = duration
	stats.totalDuration += duration
	if duration < stats.minDuration {
		stats.minDuration = duration
	}
	if duration > stats.maxDuration {
		stats.maxDuration = duration
	}
}

// Stats returns a snapshot of per-system execution statistics, in the
// current priority order.
func (w *World) Stats() *SchedulerStats {
	out := &SchedulerStats{
		SystemCount: len(w.systemOrder),
		Systems:     make([]SystemStats, 0, len(w.systemOrder)),
	}
	for _, s := range w.systemOrder {
		internal := w.stats[s.Name()]
		avg := time.Duration(0)
		if internal.executionCount > 0 {
			avg = internal.totalDuration / time.Duration(internal.executionCount)
		}
		out.Systems = append(out.Systems, SystemStats{
			Name:           s.Name(),
			ExecutionCount: internal.executionCount,
			MinDuration:    internal.minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avg,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		})
		out.TotalExecutions += internal.executionCount
	}
	return out
}

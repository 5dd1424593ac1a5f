package sim

// SystemKind tags which scheduler passes invoke a system.
type SystemKind uint8

const (
	KindLogic SystemKind = iota
	KindRender
	KindBoth
)

func (k SystemKind) matches(pass SystemKind) bool {
	return k == pass || k == KindBoth
}

// System is a named, prioritized unit of per-frame behavior. Systems run
// single-threaded in ascending priority order within their pass; they hold
// a non-owning World reference (via SystemBase) rather than receiving it
// per call.
type System interface {
	Name() string
	Kind() SystemKind
	Priority() int
	Update(dt float64)
}

// invokeGater is optionally implemented by systems that gate their own
// invocation (frame-rate-dependent throttling, warm-up, ...). Returning
// false skips the system for the tick.
type invokeGater interface {
	CanInvoke() bool
}

// worldBinder is implemented by SystemBase; the World binds itself to a
// system at registration time.
type worldBinder interface {
	bindWorld(w *World)
}

// SystemBase carries the world back-reference and throttling state shared
// by systems. Embed it and set Interval for a minimum time gap between
// invocations (zero runs every tick). Skippable marks the system as safe
// to drop under performance pressure.
type SystemBase struct {
	World     *World
	Interval  float64
	Skippable bool

	elapsed float64
}

func (b *SystemBase) bindWorld(w *World) {
	b.World = w
}

// due accumulates dt and reports whether the configured invoke gap has
// elapsed. The remainder carries over so a slightly-long frame does not
// shift the cadence.
func (b *SystemBase) due(dt float64) bool {
	if b.Interval <= 0 {
		return true
	}
	b.elapsed += dt
	if b.elapsed < b.Interval {
		return false
	}
	b.elapsed -= b.Interval
	return true
}

// throttled is the scheduler-side view of SystemBase's invoke gap.
type throttled interface {
	due(dt float64) bool
}

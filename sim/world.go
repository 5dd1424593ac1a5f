package sim

import (
	"fmt"

	"github.com/kamstrup/intmap"
	"go.uber.org/zap"
)

// World owns the live entity set and the system registry for one
// simulation instance. Everything it touches runs on a single goroutine
// (update passes, queries, pools), so there is no locking here;
// determinism within a tick comes from strict system ordering. The only
// concurrent piece of the core, collision offload, talks to the World
// exclusively through snapshots and reconciliation (see CollisionSystem).
type World struct {
	log   *zap.Logger
	pools *PoolManager

	entities map[string]*Entity
	ordered  []*Entity
	byNum    *intmap.Map[uint32, *Entity]
	nextNum  uint32
	freeNums []uint32

	componentFactories map[string]func() Component

	systems     map[string]System
	systemOrder []System
	stats       map[string]*systemStats

	onAdded   []func(*Entity)
	onRemoved []func(*Entity)

	inPass          bool
	pendingAdds     []*Entity
	pendingRemovals []*Entity
}

// NewWorld creates a world backed by the given pool manager. Both
// arguments may be nil; a world without pools falls back to direct
// allocation everywhere.
func NewWorld(pools *PoolManager, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	if pools == nil {
		pools = NewPoolManager(log)
	}
	return &World{
		log:                log,
		pools:              pools,
		entities:           make(map[string]*Entity),
		byNum:              intmap.New[uint32, *Entity](256),
		componentFactories: make(map[string]func() Component),
		systems:            make(map[string]System),
		stats:              make(map[string]*systemStats),
	}
}

// Pools exposes the world's pool manager.
func (w *World) Pools() *PoolManager {
	return w.pools
}

// OnEntityAdded subscribes to entity additions. Callbacks fire
// synchronously on the simulation goroutine, after the entity is visible
// in the live set.
func (w *World) OnEntityAdded(fn func(*Entity)) {
	w.onAdded = append(w.onAdded, fn)
}

// OnEntityRemoved subscribes to entity removals. Callbacks fire at mark
// time, while the entity's final state is still fully readable.
func (w *World) OnEntityRemoved(fn func(*Entity)) {
	w.onRemoved = append(w.onRemoved, fn)
}

// RegisterComponent registers a fresh-allocation constructor used when
// CreateComponent finds no pool for the name.
func (w *World) RegisterComponent(name string, factory func() Component) {
	if _, exists := w.componentFactories[name]; exists {
		w.log.Warn("component factory already registered", zap.String("component", name))
		return
	}
	w.componentFactories[name] = factory
}

// CreateEntity returns a ready-for-use entity of the given type, drawn
// from the type's pool when one is registered and freshly constructed
// otherwise. The entity is not yet added to the world.
func (w *World) CreateEntity(etype EntityType) *Entity {
	if e := w.pools.AcquireEntity(string(etype), EntityProps{Type: etype, Active: true}); e != nil {
		return e
	}
	return NewEntity(etype)
}

// CreateComponent returns a ready-for-use component, pool-backed when a
// pool exists for the name and freshly constructed from the registered
// factory otherwise. A name with neither pool nor factory returns nil
// with a warning; that is a degraded state, not a fatal one.
func (w *World) CreateComponent(name string, props any) Component {
	if c := w.pools.AcquireComponent(name, props); c != nil {
		return c
	}
	factory, ok := w.componentFactories[name]
	if !ok {
		w.log.Warn("no pool or factory for component", zap.String("component", name))
		return nil
	}
	c := factory()
	c.Recreate(props)
	return c
}

// AddEntity puts an entity into the live set and fires the added event.
// During an update pass the add is deferred: the entity becomes visible to
// queries only in the next pass, so in-flight queries keep a consistent
// snapshot. Adding an entity that is not detached panics.
func (w *World) AddEntity(e *Entity) {
	if e.state != StateDetached {
		panic(fmt.Sprintf("entity %s: add in state %d", e.id, e.state))
	}
	if w.inPass {
		w.pendingAdds = append(w.pendingAdds, e)
		return
	}
	w.commitAdd(e)
}

func (w *World) commitAdd(e *Entity) {
	if _, dup := w.entities[e.id]; dup {
		panic(fmt.Sprintf("entity %s: already in world", e.id))
	}
	e.num = w.claimNum()
	e.state = StateLive
	w.entities[e.id] = e
	w.ordered = append(w.ordered, e)
	w.byNum.Put(e.num, e)
	for _, fn := range w.onAdded {
		fn(e)
	}
}

func (w *World) claimNum() uint32 {
	if n := len(w.freeNums); n > 0 {
		num := w.freeNums[n-1]
		w.freeNums = w.freeNums[:n-1]
		return num
	}
	w.nextNum++
	return w.nextNum
}

// RemoveEntity begins the two-phase removal: the entity transitions to
// PendingRemoval and the removed event fires now, while final state is
// still readable; physical detachment and recycling happen at the end of
// the current update pass (immediately when called outside one). Removing
// an entity that is not live is a no-op.
func (w *World) RemoveEntity(e *Entity) {
	if e == nil || e.state != StateLive {
		return
	}
	e.state = StatePendingRemoval
	for _, fn := range w.onRemoved {
		fn(e)
	}
	w.pendingRemovals = append(w.pendingRemovals, e)
	if !w.inPass {
		w.flush()
	}
}

// flush commits the structural changes deferred during a pass: removals
// first (components and entity back to their pools), then the adds, which
// become visible to the next pass.
func (w *World) flush() {
	if len(w.pendingRemovals) > 0 {
		for _, e := range w.pendingRemovals {
			w.recycle(e)
		}
		w.pendingRemovals = w.pendingRemovals[:0]
		w.compactOrdered()
	}

	for _, e := range w.pendingAdds {
		w.commitAdd(e)
	}
	w.pendingAdds = w.pendingAdds[:0]
}

func (w *World) recycle(e *Entity) {
	poolName := string(e.etype)

	for _, name := range e.ComponentNames() {
		c := e.Detach(name)
		w.pools.ReleaseComponent(c)
	}

	delete(w.entities, e.id)
	w.byNum.Del(e.num)
	w.freeNums = append(w.freeNums, e.num)
	e.state = StateRecycled
	w.pools.ReleaseEntity(poolName, e)
}

// compactOrdered drops recycled entries while preserving insertion order,
// which is what keeps per-pass iteration deterministic.
func (w *World) compactOrdered() {
	live := w.ordered[:0]
	for _, e := range w.ordered {
		if e.state == StateLive || e.state == StatePendingRemoval {
			live = append(live, e)
		}
	}
	for i := len(live); i < len(w.ordered); i++ {
		w.ordered[i] = nil
	}
	w.ordered = live
}

// Entity looks up a live (or pending-removal) entity by string id.
func (w *World) Entity(id string) (*Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// ByNumericID looks up an entity by its dense numeric id.
func (w *World) ByNumericID(num uint32) (*Entity, bool) {
	return w.byNum.Get(num)
}

// EntityCount returns the number of entities visible to queries.
func (w *World) EntityCount() int {
	return len(w.entities)
}

// EntitiesWith returns the entities carrying every named component, in
// insertion order. Entities marked for removal remain visible until the
// end of the pass.
func (w *World) EntitiesWith(names ...string) []*Entity {
	var out []*Entity
	for _, e := range w.ordered {
		if e.Has(names...) {
			out = append(out, e)
		}
	}
	return out
}

// EntitiesByType returns the entities with the given classification tag.
func (w *World) EntitiesByType(etype EntityType) []*Entity {
	var out []*Entity
	for _, e := range w.ordered {
		if e.etype == etype {
			out = append(out, e)
		}
	}
	return out
}

// EntitiesBy returns the entities matching an arbitrary predicate.
func (w *World) EntitiesBy(pred func(*Entity) bool) []*Entity {
	var out []*Entity
	for _, e := range w.ordered {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

package sim

import (
	"fmt"

	"go.uber.org/zap"
)

// Factory constructs one fresh pool instance.
type Factory func() Poolable

// Pool is a bounded free-list of reusable instances. Reset is deferred:
// Put enqueues an instance as-is, and the wipe happens on the next Get, so
// instances that are never reacquired within a frame cost nothing.
type Pool struct {
	name        string
	factory     Factory
	idle        []Poolable
	idleSet     map[Poolable]struct{}
	constructed int
	maxSize     int
	grow        bool
	log         *zap.Logger
}

// PoolStats is a point-in-time snapshot of a pool's occupancy.
type PoolStats struct {
	Name        string
	Idle        int
	Outstanding int
	Constructed int
	MaxSize     int
}

// NewPool creates a pool and pre-constructs initialSize idle instances.
// When grow is false, Get denies allocation beyond maxSize.
func NewPool(name string, factory Factory, initialSize, maxSize int, grow bool, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	if maxSize < initialSize {
		maxSize = initialSize
	}
	p := &Pool{
		name:    name,
		factory: factory,
		idle:    make([]Poolable, 0, initialSize),
		idleSet: make(map[Poolable]struct{}, initialSize),
		maxSize: maxSize,
		grow:    grow,
		log:     log,
	}
	for i := 0; i < initialSize; i++ {
		obj := factory()
		p.constructed++
		p.idle = append(p.idle, obj)
		p.idleSet[obj] = struct{}{}
	}
	return p
}

// Get hands out an instance ready for use: an idle one, reset and
// re-initialized from props, or a fresh construction when the free-list is
// empty and the bound allows it. Returns nil when the pool is exhausted
// and growth is disabled.
func (p *Pool) Get(props any) Poolable {
	if n := len(p.idle); n > 0 {
		obj := p.idle[n-1]
		p.idle = p.idle[:n-1]
		delete(p.idleSet, obj)
		obj.Reset()
		obj.Recreate(props)
		return obj
	}

	if p.constructed >= p.maxSize && !p.grow {
		p.log.Warn("pool exhausted",
			zap.String("pool", p.name),
			zap.Int("max_size", p.maxSize))
		return nil
	}

	obj := p.factory()
	p.constructed++
	obj.Recreate(props)
	return obj
}

// Put returns an instance to the free-list without resetting it. The
// caller must drop every reference first; returning the same instance
// twice is a double-free and panics.
func (p *Pool) Put(obj Poolable) {
	if obj == nil {
		return
	}
	if _, dup := p.idleSet[obj]; dup {
		panic(fmt.Sprintf("pool %s: instance returned twice", p.name))
	}
	p.idle = append(p.idle, obj)
	p.idleSet[obj] = struct{}{}
}

// Stats reports the pool's current occupancy.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Name:        p.name,
		Idle:        len(p.idle),
		Outstanding: p.constructed - len(p.idle),
		Constructed: p.constructed,
		MaxSize:     p.maxSize,
	}
}

// PoolManager maps type identifiers to pools, one registry for entity
// factories and one for component constructors. It exclusively owns all
// idle instances; ownership of an instance transfers to the caller on Get
// and back on Put. Construct one per simulation instance and pass it in;
// there is deliberately no package-level manager.
type PoolManager struct {
	entityPools    map[string]*Pool
	componentPools map[string]*Pool
	log            *zap.Logger
}

// NewPoolManager creates an empty manager. A nil logger is replaced with a
// no-op one.
func NewPoolManager(log *zap.Logger) *PoolManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &PoolManager{
		entityPools:    make(map[string]*Pool),
		componentPools: make(map[string]*Pool),
		log:            log,
	}
}

// CreateEntityPool registers a bounded free-list of entities under a
// factory name. Redundant registration is a no-op with a warning, since
// multiple subsystems may attempt lazy registration of the same pool.
func (m *PoolManager) CreateEntityPool(name string, factory Factory, initialSize, maxSize int, grow bool) {
	if _, exists := m.entityPools[name]; exists {
		m.log.Warn("entity pool already registered", zap.String("pool", name))
		return
	}
	m.entityPools[name] = NewPool(name, factory, initialSize, maxSize, grow, m.log)
}

// CreateComponentPool registers a bounded free-list of components under
// the component name. Redundant registration is a no-op with a warning.
func (m *PoolManager) CreateComponentPool(name string, factory Factory, initialSize, maxSize int, grow bool) {
	if _, exists := m.componentPools[name]; exists {
		m.log.Warn("component pool already registered", zap.String("pool", name))
		return
	}
	m.componentPools[name] = NewPool(name, factory, initialSize, maxSize, grow, m.log)
}

// HasEntityPool reports whether a pool is registered for the factory name.
func (m *PoolManager) HasEntityPool(name string) bool {
	_, ok := m.entityPools[name]
	return ok
}

// HasComponentPool reports whether a pool is registered for the component name.
func (m *PoolManager) HasComponentPool(name string) bool {
	_, ok := m.componentPools[name]
	return ok
}

// AcquireEntity draws from the named entity pool. Returns nil when no pool
// is registered or the pool denies allocation; callers fall back to direct
// construction.
func (m *PoolManager) AcquireEntity(name string, props any) *Entity {
	pool, ok := m.entityPools[name]
	if !ok {
		m.log.Debug("no entity pool registered", zap.String("pool", name))
		return nil
	}
	obj := pool.Get(props)
	if obj == nil {
		return nil
	}
	return obj.(*Entity)
}

// AcquireComponent draws from the named component pool. Returns nil when
// no pool is registered or the pool denies allocation.
func (m *PoolManager) AcquireComponent(name string, props any) Component {
	pool, ok := m.componentPools[name]
	if !ok {
		m.log.Debug("no component pool registered", zap.String("pool", name))
		return nil
	}
	obj := pool.Get(props)
	if obj == nil {
		return nil
	}
	return obj.(Component)
}

// ReleaseEntity returns an entity to its pool. Without a registered pool
// this is a no-op: the instance is simply left to the garbage collector.
func (m *PoolManager) ReleaseEntity(name string, e *Entity) {
	pool, ok := m.entityPools[name]
	if !ok {
		return
	}
	pool.Put(e)
}

// ReleaseComponent returns a component to its pool, a no-op when the pool
// does not exist.
func (m *PoolManager) ReleaseComponent(c Component) {
	pool, ok := m.componentPools[c.Name()]
	if !ok {
		return
	}
	pool.Put(c)
}

// Stats reports occupancy for every registered pool.
func (m *PoolManager) Stats() []PoolStats {
	stats := make([]PoolStats, 0, len(m.entityPools)+len(m.componentPools))
	for _, p := range m.entityPools {
		stats = append(stats, p.Stats())
	}
	for _, p := range m.componentPools {
		stats = append(stats, p.Stats())
	}
	return stats
}

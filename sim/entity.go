package sim

import (
	"fmt"

	"github.com/google/uuid"
)

// EntityType classifies entities for query filtering ("enemy", "pickup", ...).
type EntityType string

// EntityState tracks where an entity is in its lifecycle. Transitions are
// performed only by the World: Detached → Live on add, Live →
// PendingRemoval on remove, PendingRemoval → Recycled at the end of the
// update pass. No system ever observes a half-removed entity.
type EntityState uint8

const (
	StateDetached EntityState = iota
	StateLive
	StatePendingRemoval
	StateRecycled
)

// Entity is a poolable identity: a stable string id, a dense numeric id
// for cheap pairing and keying, and a name-keyed component map.
type Entity struct {
	id         string
	num        uint32
	etype      EntityType
	state      EntityState
	active     bool
	components map[string]Component
}

// EntityProps configures an entity drawn from a pool.
type EntityProps struct {
	Type   EntityType
	Active bool
}

// NewEntity constructs a detached entity of the given type with a fresh
// string id. The numeric id is assigned by the World on add.
func NewEntity(etype EntityType) *Entity {
	return &Entity{
		id:         uuid.NewString(),
		etype:      etype,
		active:     true,
		components: make(map[string]Component),
	}
}

func (e *Entity) ID() string {
	return e.id
}

// NumericID is unique among currently live entities. It may be reused
// after the entity is recycled, never before.
func (e *Entity) NumericID() uint32 {
	return e.num
}

func (e *Entity) Type() EntityType {
	return e.etype
}

func (e *Entity) State() EntityState {
	return e.state
}

func (e *Entity) Active() bool {
	return e.active
}

func (e *Entity) SetActive(active bool) {
	e.active = active
}

// MarkedForRemoval reports whether the entity is in the removal window:
// already notified, still visible to in-flight queries, not yet recycled.
func (e *Entity) MarkedForRemoval() bool {
	return e.state == StatePendingRemoval
}

// Attach adds a component under its name and records the owner
// association. Attaching a second component under the same name, or a
// component that already has an owner, is a logic bug in the caller and
// panics.
func (e *Entity) Attach(c Component) {
	name := c.Name()
	if _, exists := e.components[name]; exists {
		panic(fmt.Sprintf("entity %s: duplicate component %q", e.id, name))
	}
	anchor, ok := c.(componentAnchor)
	if !ok {
		panic(fmt.Sprintf("component %q does not embed ComponentBase", name))
	}
	if owner := anchor.Owner(); owner != "" {
		panic(fmt.Sprintf("component %q already attached to entity %s", name, owner))
	}
	anchor.attach(e.id)
	e.components[name] = c
}

// Detach removes the named component and clears its owner association.
// Returns nil when the component is not present.
func (e *Entity) Detach(name string) Component {
	c, ok := e.components[name]
	if !ok {
		return nil
	}
	c.(componentAnchor).detach()
	delete(e.components, name)
	return c
}

// Component returns the named component. A missing component is a violated
// precondition of the caller's declared dependency set and panics; use
// Find for optional lookups.
func (e *Entity) Component(name string) Component {
	c, ok := e.components[name]
	if !ok {
		panic(fmt.Sprintf("entity %s (%s): missing required component %q", e.id, e.etype, name))
	}
	return c
}

// Find returns the named component without the presence precondition.
func (e *Entity) Find(name string) (Component, bool) {
	c, ok := e.components[name]
	return c, ok
}

// Has reports whether every named component is present.
func (e *Entity) Has(names ...string) bool {
	for _, name := range names {
		if _, ok := e.components[name]; !ok {
			return false
		}
	}
	return true
}

// ComponentNames returns the names of all attached components.
func (e *Entity) ComponentNames() []string {
	names := make([]string, 0, len(e.components))
	for name := range e.components {
		names = append(names, name)
	}
	return names
}

// Reset wipes the entity for pool recycling. Any remaining components are
// detached; the string id is regenerated so a stale handle to the previous
// occupant can never resolve to the new one.
func (e *Entity) Reset() {
	for name, c := range e.components {
		c.(componentAnchor).detach()
		delete(e.components, name)
	}
	e.id = ""
	e.num = 0
	e.etype = ""
	e.active = false
	e.state = StateDetached
}

// Recreate re-initializes a reset entity from EntityProps. A nil props
// yields an active entity with an empty type.
func (e *Entity) Recreate(props any) {
	e.id = uuid.NewString()
	e.active = true
	if e.components == nil {
		e.components = make(map[string]Component)
	}
	if props == nil {
		return
	}
	p, ok := props.(EntityProps)
	if !ok {
		panic(fmt.Sprintf("entity recreate: want EntityProps, got %T", props))
	}
	e.etype = p.Type
	e.active = p.Active
}

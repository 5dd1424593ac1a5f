package sim

// Poolable is the capability every pooled object implements. Reset wipes
// all mutable state back to documented defaults and never runs domain
// logic; Recreate applies caller-supplied configuration to a freshly reset
// instance. Splitting the two keeps data from one logical occupant of a
// pool slot from leaking into the next.
type Poolable interface {
	Reset()
	Recreate(props any)
}

// Component is a poolable unit of entity state. Name is both the key in
// the owning entity's component map and the lookup key across the world.
type Component interface {
	Poolable
	Name() string
}

// ComponentBase carries the bookkeeping shared by all components: the
// enabled flag and the owner association. The owner is held as an entity id
// string resolved through the World, never as a pointer, so a component can
// never keep a recycled entity alive.
type ComponentBase struct {
	owner   string
	enabled bool
}

// Owner returns the id of the owning entity, or "" when detached.
func (b *ComponentBase) Owner() string {
	return b.owner
}

func (b *ComponentBase) Enabled() bool {
	return b.enabled
}

func (b *ComponentBase) SetEnabled(enabled bool) {
	b.enabled = enabled
}

// ResetBase clears the shared fields. Concrete components call this from
// their own Reset.
func (b *ComponentBase) ResetBase() {
	b.owner = ""
	b.enabled = false
}

func (b *ComponentBase) attach(owner string) {
	b.owner = owner
	b.enabled = true
}

func (b *ComponentBase) detach() {
	b.owner = ""
}

// componentAnchor is implemented by ComponentBase so the entity can manage
// the owner association without knowing concrete component types.
type componentAnchor interface {
	Owner() string
	attach(owner string)
	detach()
}

package sim

import (
	"fmt"

	"github.com/plus3/skirmish/collision"
	"github.com/plus3/skirmish/geom"
)

// Component names used as map and pool keys.
const (
	TransformName = "transform"
	BodyName      = "body"
	ColliderName  = "collider"
)

// Sleep thresholds: a body whose speed stays below the velocity threshold
// for at least the time threshold is put to sleep and exempted from
// narrow-phase work until it moves again.
const (
	SleepVelocityThreshold = 0.5
	SleepTimeThreshold     = 1.0
)

// Transform is the spatial state every collaborator reads: position,
// rotation and scale.
type Transform struct {
	ComponentBase
	Pos      geom.Vec2
	Rotation float64
	Scale    float64
}

type TransformProps struct {
	X, Y     float64
	Rotation float64
	Scale    float64
}

func NewTransform() Component { return &Transform{} }

func (t *Transform) Name() string { return TransformName }

func (t *Transform) Reset() {
	t.ResetBase()
	t.Pos = geom.Vec2{}
	t.Rotation = 0
	t.Scale = 0
}

func (t *Transform) Recreate(props any) {
	t.Scale = 1
	if props == nil {
		return
	}
	p, ok := props.(TransformProps)
	if !ok {
		panic(fmt.Sprintf("transform recreate: want TransformProps, got %T", props))
	}
	t.Pos = geom.V(p.X, p.Y)
	t.Rotation = p.Rotation
	if p.Scale != 0 {
		t.Scale = p.Scale
	}
}

// Body carries the physics state the movement and collision subsystems
// share: velocity, bounding size and the sleep state.
type Body struct {
	ComponentBase
	Vel      geom.Vec2
	Size     geom.Vec2
	Mass     float64
	Sleeping bool

	stillFor float64
}

type BodyProps struct {
	VX, VY float64
	W, H   float64
	Mass   float64
}

func NewBody() Component { return &Body{} }

func (b *Body) Name() string { return BodyName }

func (b *Body) Reset() {
	b.ResetBase()
	b.Vel = geom.Vec2{}
	b.Size = geom.Vec2{}
	b.Mass = 0
	b.Sleeping = false
	b.stillFor = 0
}

func (b *Body) Recreate(props any) {
	b.Mass = 1
	if props == nil {
		return
	}
	p, ok := props.(BodyProps)
	if !ok {
		panic(fmt.Sprintf("body recreate: want BodyProps, got %T", props))
	}
	b.Vel = geom.V(p.VX, p.VY)
	b.Size = geom.V(p.W, p.H)
	if p.Mass != 0 {
		b.Mass = p.Mass
	}
}

// UpdateSleep advances the sleep timer for one tick. Any movement above
// the velocity threshold wakes the body immediately.
func (b *Body) UpdateSleep(dt float64) {
	if b.Vel.LenSq() >= SleepVelocityThreshold*SleepVelocityThreshold {
		b.Sleeping = false
		b.stillFor = 0
		return
	}
	b.stillFor += dt
	if b.stillFor >= SleepTimeThreshold {
		b.Sleeping = true
	}
}

// Wake clears the sleep state, for use when an external impulse lands on
// a sleeping body.
func (b *Body) Wake() {
	b.Sleeping = false
	b.stillFor = 0
}

// Collider opts an entity into collision detection and names its shape.
type Collider struct {
	ComponentBase
	Shape collision.Shape
	Mode  collision.Mode
	// LaserDir and LaserLen describe the beam for ShapeLaser; the beam
	// width comes from the body size.
	LaserDir geom.Vec2
	LaserLen float64
}

type ColliderProps struct {
	Shape    collision.Shape
	Mode     collision.Mode
	LaserDir geom.Vec2
	LaserLen float64
}

func NewCollider() Component { return &Collider{} }

func (c *Collider) Name() string { return ColliderName }

func (c *Collider) Reset() {
	c.ResetBase()
	c.Shape = collision.ShapeCircle
	c.Mode = collision.ModeBodies
	c.LaserDir = geom.Vec2{}
	c.LaserLen = 0
}

func (c *Collider) Recreate(props any) {
	if props == nil {
		return
	}
	p, ok := props.(ColliderProps)
	if !ok {
		panic(fmt.Sprintf("collider recreate: want ColliderProps, got %T", props))
	}
	c.Shape = p.Shape
	c.Mode = p.Mode
	c.LaserDir = p.LaserDir
	c.LaserLen = p.LaserLen
}

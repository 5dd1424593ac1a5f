package collision

import "github.com/plus3/skirmish/geom"

// Shape identifies the footprint geometry of a collision participant.
type Shape uint8

const (
	ShapeCircle Shape = iota
	ShapeRect
	ShapeLaser
)

// Mode selects how candidate pairs in a task are tested.
type Mode uint8

const (
	// ModeBodies tests every pair as circles, with rects padded to their
	// bounding circle.
	ModeBodies Mode = iota
	// ModeLaser tests each pair as a directed capsule (the laser) against
	// the other participant's bounding circle.
	ModeLaser
)

// Record is the immutable snapshot of one entity taken at dispatch time.
// It carries only what the narrow phase needs, never live references.
type Record struct {
	ID       string
	Num      uint32
	Pos      geom.Vec2
	Size     geom.Vec2 // bounding width/height; lasers use X as length, Y as beam width
	Dir      geom.Vec2 // laser direction, unit length; zero for other shapes
	Shape    Shape
	Type     string
	Sleeping bool
}

// Pair names two snapshot records by numeric id.
type Pair struct {
	A, B uint32
}

// Key builds an order-independent key for an entity pair. Key(a, b) and
// Key(b, a) always collapse to the same value, which is what lets a
// dispatch deduplicate reversed candidate entries.
func Key(a, b uint32) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

// Task is one batch of candidate pairs submitted to the workers. Tasks are
// immutable after submission; the worker never sees simulation state beyond
// the snapshot records inside.
type Task struct {
	ID      uint64
	Mode    Mode
	Records map[uint32]Record
	Pairs   []Pair
}

// Contact is one resolved narrow-phase hit. Normal points from B toward A.
type Contact struct {
	A, B        uint32
	AID, BID    string
	Normal      geom.Vec2
	Penetration float64
}

// Result correlates a worker reply with its originating task. Exactly one
// of Contacts or Err is meaningful.
type Result struct {
	TaskID   uint64
	Contacts []Contact
	Err      error
}

package collision

import (
	"github.com/plus3/skirmish/geom"

	"github.com/kamstrup/intmap"
)

// Detect runs the narrow phase over every candidate pair in the task and
// returns the resolved contacts. Each unordered pair is tested at most once
// no matter how often (or in which order) it appears in the candidate list,
// and a pair whose participants are both asleep is skipped outright.
func Detect(t *Task) []Contact {
	if len(t.Pairs) == 0 {
		return nil
	}

	var contacts []Contact
	tested := intmap.New[uint64, bool](len(t.Pairs))
	for _, p := range t.Pairs {
		key := Key(p.A, p.B)
		if _, done := tested.Get(key); done {
			continue
		}
		tested.Put(key, true)

		a, okA := t.Records[p.A]
		b, okB := t.Records[p.B]
		if !okA || !okB {
			continue
		}
		if a.Sleeping && b.Sleeping {
			continue
		}

		if c, hit := testPair(t.Mode, a, b); hit {
			contacts = append(contacts, c)
		}
	}

	return contacts
}

// testPair dispatches to the shape-specific test. The returned contact's
// normal always points from b toward a.
func testPair(mode Mode, a, b Record) (Contact, bool) {
	var (
		normal geom.Vec2
		depth  float64
		hit    bool
	)

	switch {
	case mode == ModeLaser && a.Shape == ShapeLaser:
		normal, depth, hit = laserCircle(a, b)
	case mode == ModeLaser && b.Shape == ShapeLaser:
		normal, depth, hit = laserCircle(b, a)
		normal = normal.Scale(-1)
	case a.Shape == ShapeCircle && b.Shape == ShapeRect:
		normal, depth, hit = circleRect(a, b)
	case a.Shape == ShapeRect && b.Shape == ShapeCircle:
		normal, depth, hit = circleRect(b, a)
		normal = normal.Scale(-1)
	default:
		// Circle-circle, and rect-rect as padded circles.
		normal, depth, hit = circleCircle(a.Pos, boundingRadius(a), b.Pos, boundingRadius(b))
	}

	if !hit {
		return Contact{}, false
	}
	return Contact{
		A:           a.Num,
		B:           b.Num,
		AID:         a.ID,
		BID:         b.ID,
		Normal:      normal,
		Penetration: depth,
	}, true
}

// boundingRadius is the padded-circle radius used when a shape is tested
// as a circle.
func boundingRadius(r Record) float64 {
	switch r.Shape {
	case ShapeRect:
		if r.Size.X > r.Size.Y {
			return r.Size.X / 2
		}
		return r.Size.Y / 2
	case ShapeLaser:
		return r.Size.Y / 2
	default:
		return r.Size.X / 2
	}
}

// circleCircle tests two circles. The normal points from b toward a.
func circleCircle(pa geom.Vec2, ra float64, pb geom.Vec2, rb float64) (geom.Vec2, float64, bool) {
	delta := pa.Sub(pb)
	r := ra + rb
	distSq := delta.LenSq()
	if distSq >= r*r {
		return geom.Vec2{}, 0, false
	}
	if distSq == 0 {
		// Coincident centers: pick a canonical direction.
		return geom.V(1, 0), r, true
	}
	dist := delta.Len()
	return delta.Scale(1 / dist), r - dist, true
}

// circleRect tests the circle against the rect's exact extents using the
// closest point on the rect to the circle center. The normal points from
// the rect toward the circle.
func circleRect(circle, rect Record) (geom.Vec2, float64, bool) {
	hx, hy := rect.Size.X/2, rect.Size.Y/2
	closest := geom.V(
		geom.Clamp(circle.Pos.X, rect.Pos.X-hx, rect.Pos.X+hx),
		geom.Clamp(circle.Pos.Y, rect.Pos.Y-hy, rect.Pos.Y+hy),
	)

	r := boundingRadius(circle)
	delta := circle.Pos.Sub(closest)
	distSq := delta.LenSq()
	if distSq >= r*r {
		return geom.Vec2{}, 0, false
	}
	if distSq == 0 {
		// Center inside the rect; degrade to padded circles for a usable normal.
		return circleCircle(circle.Pos, r, rect.Pos, boundingRadius(rect))
	}
	dist := delta.Len()
	return delta.Scale(1 / dist), r - dist, true
}

// laserCircle tests a target against the laser's directed capsule: the
// target center is projected onto the beam axis, clamped to the beam
// length, and the closest beam point is tested as a circle of the beam's
// half width. The normal points from the target toward the laser.
func laserCircle(laser, target Record) (geom.Vec2, float64, bool) {
	dir := laser.Dir.Normalize()
	if dir == (geom.Vec2{}) {
		dir = geom.V(1, 0)
	}

	t := geom.Clamp(target.Pos.Sub(laser.Pos).Dot(dir), 0, laser.Size.X)
	closest := laser.Pos.Add(dir.Scale(t))

	return circleCircle(closest, laser.Size.Y/2, target.Pos, boundingRadius(target))
}

package sim

import "github.com/plus3/skirmish/geom"

// SpatialIndexSystem rebuilds the spatial grid from live transforms. The
// rebuild is throttled by Interval rather than run every tick: consumers
// of the grid (pickup magnetism, AI targeting, broad-phase pairing)
// tolerate positions up to one refresh interval stale, and the amortized
// rebuild cost is what keeps large worlds cheap.
type SpatialIndexSystem struct {
	SystemBase
	Grid *SpatialGrid

	priority int
}

// DefaultGridRefresh is the rebuild interval in seconds. Positions in the
// grid are never staler than this bound.
const DefaultGridRefresh = 0.1

// NewSpatialIndexSystem creates the rebuild system. It should be
// prioritized after movement so the grid reflects this cycle's positions.
func NewSpatialIndexSystem(grid *SpatialGrid, priority int) *SpatialIndexSystem {
	s := &SpatialIndexSystem{Grid: grid, priority: priority}
	s.Interval = DefaultGridRefresh
	return s
}

func (s *SpatialIndexSystem) Name() string     { return "spatial-index" }
func (s *SpatialIndexSystem) Kind() SystemKind { return KindLogic }
func (s *SpatialIndexSystem) Priority() int    { return s.priority }

func (s *SpatialIndexSystem) Update(dt float64) {
	s.Grid.Clear()
	for _, e := range s.World.EntitiesWith(TransformName) {
		if !e.Active() {
			continue
		}
		t := e.Component(TransformName).(*Transform)

		var size geom.Vec2
		if c, ok := e.Find(BodyName); ok {
			size = c.(*Body).Size
		}
		s.Grid.Insert(e.NumericID(), t.Pos, e.Type(), size)
	}
	s.Grid.UpdateFrame()
}

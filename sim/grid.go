package sim

import (
	"math"

	"github.com/kamstrup/intmap"

	"github.com/plus3/skirmish/geom"
)

const (
	// DefaultCellSize is the grid cell edge before any viewport adaptation.
	DefaultCellSize = 100.0

	minCellSize = 32.0
	// gridDensity is the target number of cells across the larger viewport
	// axis; UpdateMaxCell keeps cell density roughly uniform regardless of
	// world size.
	gridDensity = 12.0
)

// SpatialGrid is a uniform-cell partitioning of entity positions used for
// broad-phase candidate pairing and proximity queries. It is rebuilt from
// scratch each refresh cycle (clear + reinsert), never incrementally
// maintained, and is only ever touched from the simulation goroutine.
// Construct one per simulation instance and hand it to the systems that
// need it.
type SpatialGrid struct {
	cellSize float64
	cells    *intmap.Map[uint64, []uint32]
	typed    map[EntityType]*intmap.Map[uint64, []uint32]

	generation uint64
	memo       map[nearbyKey][]uint32
}

type nearbyKey struct {
	cx, cy int32
	rcells int32
	qtype  EntityType
}

// NewSpatialGrid creates a grid with the given cell size (<= 0 uses
// DefaultCellSize).
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &SpatialGrid{
		cellSize: cellSize,
		cells:    intmap.New[uint64, []uint32](256),
		typed:    make(map[EntityType]*intmap.Map[uint64, []uint32]),
		memo:     make(map[nearbyKey][]uint32),
	}
}

// RegisterQueryType adds a secondary index holding only entities of the
// given type, so hot queries (pickup magnetism, AI targeting) skip
// irrelevant entities. Must be registered before the next rebuild.
func (g *SpatialGrid) RegisterQueryType(etype EntityType) {
	if _, exists := g.typed[etype]; exists {
		return
	}
	g.typed[etype] = intmap.New[uint64, []uint32](64)
}

// CellSize returns the current cell edge length.
func (g *SpatialGrid) CellSize() float64 {
	return g.cellSize
}

// Generation returns the counter advanced by UpdateFrame; consumers that
// memoize query results key them by this value.
func (g *SpatialGrid) Generation() uint64 {
	return g.generation
}

// UpdateFrame advances the generation counter, invalidating every
// memoized query result.
func (g *SpatialGrid) UpdateFrame() {
	g.generation++
	clear(g.memo)
}

// UpdateMaxCell adapts the cell size to the visible play area. A changed
// cell size empties the grid; the next rebuild repopulates it.
func (g *SpatialGrid) UpdateMaxCell(viewportW, viewportH float64) {
	span := math.Max(viewportW, viewportH)
	if span <= 0 {
		return
	}
	size := math.Max(minCellSize, span/gridDensity)
	if size == g.cellSize {
		return
	}
	g.cellSize = size
	g.Clear()
}

// Clear resets all cells and memoized results.
func (g *SpatialGrid) Clear() {
	g.cells.Clear()
	for _, idx := range g.typed {
		idx.Clear()
	}
	clear(g.memo)
}

func (g *SpatialGrid) cellCoord(v float64) int32 {
	return int32(math.Floor(v / g.cellSize))
}

func cellKey(cx, cy int32) uint64 {
	return uint64(uint32(cx))<<32 | uint64(uint32(cy))
}

// Insert places an entity id into every cell its bounding footprint
// overlaps. A zero size occupies the single cell under the position.
func (g *SpatialGrid) Insert(num uint32, pos geom.Vec2, etype EntityType, size geom.Vec2) {
	hx, hy := size.X/2, size.Y/2
	cx0 := g.cellCoord(pos.X - hx)
	cx1 := g.cellCoord(pos.X + hx)
	cy0 := g.cellCoord(pos.Y - hy)
	cy1 := g.cellCoord(pos.Y + hy)

	typedIdx := g.typed[etype]

	for cx := cx0; cx <= cx1; cx++ {
		for cy := cy0; cy <= cy1; cy++ {
			key := cellKey(cx, cy)
			appendCell(g.cells, key, num)
			if typedIdx != nil {
				appendCell(typedIdx, key, num)
			}
		}
	}
}

func appendCell(cells *intmap.Map[uint64, []uint32], key uint64, num uint32) {
	ids, _ := cells.Get(key)
	cells.Put(key, append(ids, num))
}

// Nearby returns the deduplicated entity ids from every cell intersecting
// a disc of the given radius around pos. The result is a superset of the
// entities truly within the radius; cell-granularity false positives are
// the caller's to filter. Passing a registered query type restricts the
// scan to that type's secondary index; an unregistered type falls back to
// the full index.
func (g *SpatialGrid) Nearby(pos geom.Vec2, radius float64, qtype EntityType) []uint32 {
	index := g.cells
	if qtype != "" {
		if typedIdx, ok := g.typed[qtype]; ok {
			index = typedIdx
		}
	}

	cx := g.cellCoord(pos.X)
	cy := g.cellCoord(pos.Y)
	rcells := int32(math.Ceil(radius / g.cellSize))

	// Results are cell-granular, so queries landing in the same cell with
	// the same radius share one memoized answer until the next rebuild.
	key := nearbyKey{cx: cx, cy: cy, rcells: rcells, qtype: qtype}
	if cached, ok := g.memo[key]; ok {
		return append([]uint32(nil), cached...)
	}

	var out []uint32
	seen := make(map[uint32]struct{})
	for x := cx - rcells; x <= cx+rcells; x++ {
		for y := cy - rcells; y <= cy+rcells; y++ {
			ids, ok := index.Get(cellKey(x, y))
			if !ok {
				continue
			}
			for _, id := range ids {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}

	// Callers own the returned slice; the memoized copy is never handed
	// out directly, so appends or sorts on a result cannot poison later
	// queries in the same rebuild cycle.
	g.memo[key] = out
	return append([]uint32(nil), out...)
}

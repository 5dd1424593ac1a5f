package sim

import (
	"github.com/kamstrup/intmap"
	"go.uber.org/zap"

	"github.com/plus3/skirmish/collision"
)

// maxPairsPerTask bounds the batch size of one worker dispatch so large
// broad-phase sets spread across the pool instead of serializing on one
// worker.
const maxPairsPerTask = 256

// CollisionSystem is the orchestrator side of the collision offload. Each
// invocation it first reconciles results that have arrived since the last
// tick, then gathers broad-phase candidate pairs from the spatial grid,
// snapshots the participants, and fires the batches at the workers without
// waiting. Contacts therefore land one or more ticks after the state they
// were computed from; consumers read them via DrainContacts and must
// tolerate that bounded lag.
type CollisionSystem struct {
	SystemBase
	grid    *SpatialGrid
	workers *collision.Workers
	log     *zap.Logger

	nextTaskID uint64
	inflight   *intmap.Map[uint64, int]
	contacts   []collision.Contact
	dropped    uint64
}

// NewCollisionSystem wires the orchestrator to a grid and a running worker
// pool. Priority should place it after the spatial index rebuild.
func NewCollisionSystem(grid *SpatialGrid, workers *collision.Workers, log *zap.Logger) *CollisionSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &CollisionSystem{
		grid:     grid,
		workers:  workers,
		log:      log,
		inflight: intmap.New[uint64, int](32),
	}
}

func (s *CollisionSystem) Name() string     { return "collision" }
func (s *CollisionSystem) Kind() SystemKind { return KindLogic }
func (s *CollisionSystem) Priority() int    { return 300 }

func (s *CollisionSystem) Update(dt float64) {
	s.reconcile()
	s.dispatch()
}

// reconcile drains every result the workers have finished so far, without
// blocking on the ones still in flight. Contacts whose entities left the
// live set between dispatch and result are discarded silently; a failed
// task is logged with its id and dropped without affecting the others.
func (s *CollisionSystem) reconcile() {
	for {
		select {
		case res := <-s.workers.Results():
			if _, known := s.inflight.Get(res.TaskID); !known {
				// A result for a task this system never dispatched (or a
				// world already torn down) is treated as cancelled.
				continue
			}
			s.inflight.Del(res.TaskID)

			if res.Err != nil {
				s.log.Warn("collision task failed",
					zap.Uint64("task_id", res.TaskID),
					zap.Error(res.Err))
				continue
			}
			for _, c := range res.Contacts {
				// Aliveness is checked by string id: numeric ids are
				// recycled, so a freed one may already name a new entity
				// by the time the result lands.
				a, ok := s.World.Entity(c.AID)
				if !ok || a.NumericID() != c.A {
					continue
				}
				b, ok := s.World.Entity(c.BID)
				if !ok || b.NumericID() != c.B {
					continue
				}
				s.contacts = append(s.contacts, c)
			}
		default:
			return
		}
	}
}

// dispatch runs the broad phase over the grid and submits one task per
// batch of candidate pairs. Submission never blocks; when the worker queue
// is full the batch is dropped and regenerated from fresh positions next
// invocation.
func (s *CollisionSystem) dispatch() {
	participants := s.World.EntitiesWith(TransformName, BodyName, ColliderName)
	if len(participants) < 2 {
		return
	}

	records := make(map[uint32]collision.Record, len(participants))
	mode := collision.ModeBodies
	for _, e := range participants {
		if !e.Active() {
			continue
		}
		rec := snapshot(e)
		records[rec.Num] = rec
		if rec.Shape == collision.ShapeLaser {
			mode = collision.ModeLaser
		}
	}

	// Pair every participant against its grid neighborhood: same and
	// adjacent cells only, which is the entire point of the broad phase.
	paired := intmap.New[uint64, bool](len(records))
	var pairs []collision.Pair
	reach := s.grid.CellSize()
	for _, e := range participants {
		a := e.NumericID()
		if _, ok := records[a]; !ok {
			continue
		}
		t := e.Component(TransformName).(*Transform)
		for _, b := range s.grid.Nearby(t.Pos, reach, "") {
			if a == b {
				continue
			}
			if _, ok := records[b]; !ok {
				continue
			}
			key := collision.Key(a, b)
			if _, dup := paired.Get(key); dup {
				continue
			}
			paired.Put(key, true)
			pairs = append(pairs, collision.Pair{A: a, B: b})
		}
	}

	for start := 0; start < len(pairs); start += maxPairsPerTask {
		end := min(start+maxPairsPerTask, len(pairs))
		s.nextTaskID++
		task := &collision.Task{
			ID:      s.nextTaskID,
			Mode:    mode,
			Records: records,
			Pairs:   pairs[start:end],
		}
		if !s.workers.Submit(task) {
			s.dropped++
			s.log.Debug("collision queue full, dropping batch",
				zap.Uint64("task_id", task.ID),
				zap.Int("pairs", end-start))
			continue
		}
		s.inflight.Put(task.ID, end-start)
	}
}

// snapshot reduces an entity to the immutable record the worker sees: no
// component graph, no live references, just what the narrow phase needs.
func snapshot(e *Entity) collision.Record {
	t := e.Component(TransformName).(*Transform)
	body := e.Component(BodyName).(*Body)
	col := e.Component(ColliderName).(*Collider)

	rec := collision.Record{
		ID:       e.ID(),
		Num:      e.NumericID(),
		Pos:      t.Pos,
		Size:     body.Size,
		Shape:    col.Shape,
		Type:     string(e.Type()),
		Sleeping: body.Sleeping,
	}
	if col.Shape == collision.ShapeLaser {
		rec.Dir = col.LaserDir
		rec.Size.X = col.LaserLen
	}
	return rec
}

// DrainContacts returns contacts reconciled so far and clears the buffer.
// Resolution is the consumer's job; the core only detects.
func (s *CollisionSystem) DrainContacts() []collision.Contact {
	out := s.contacts
	s.contacts = nil
	return out
}

// InFlight returns the number of dispatched tasks not yet reconciled.
func (s *CollisionSystem) InFlight() int {
	return s.inflight.Len()
}

// DroppedTasks returns how many batches were discarded because the worker
// queue was full at dispatch time.
func (s *CollisionSystem) DroppedTasks() uint64 {
	return s.dropped
}

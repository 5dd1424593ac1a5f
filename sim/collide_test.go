package sim_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/skirmish/collision"
	"github.com/plus3/skirmish/sim"
)

type collisionFixture struct {
	world   *sim.World
	grid    *sim.SpatialGrid
	workers *collision.Workers
	system  *sim.CollisionSystem
	cancel  context.CancelFunc
}

func newCollisionFixture(t *testing.T) *collisionFixture {
	t.Helper()

	world := newTestWorld()
	world.RegisterComponent(sim.TransformName, sim.NewTransform)
	world.RegisterComponent(sim.BodyName, sim.NewBody)
	world.RegisterComponent(sim.ColliderName, sim.NewCollider)

	grid := sim.NewSpatialGrid(100)
	workers := collision.NewWorkers(1, 16)
	ctx, cancel := context.WithCancel(context.Background())
	workers.Start(ctx)
	t.Cleanup(func() {
		cancel()
		workers.Wait()
	})

	system := sim.NewCollisionSystem(grid, workers, nil)

	idx := sim.NewSpatialIndexSystem(grid, 200)
	idx.Interval = 0
	world.AddSystem(sim.NewMovementSystem())
	world.AddSystem(idx)
	world.AddSystem(system)

	return &collisionFixture{world: world, grid: grid, workers: workers, system: system, cancel: cancel}
}

func (f *collisionFixture) spawnCircle(t *testing.T, x, y, diameter float64) *sim.Entity {
	t.Helper()
	e := f.world.CreateEntity("drone")
	e.Attach(f.world.CreateComponent(sim.TransformName, sim.TransformProps{X: x, Y: y}))
	e.Attach(f.world.CreateComponent(sim.BodyName, sim.BodyProps{W: diameter, H: diameter}))
	e.Attach(f.world.CreateComponent(sim.ColliderName, sim.ColliderProps{Shape: collision.ShapeCircle}))
	f.world.AddEntity(e)
	return e
}

// tickUntil runs logic passes until the condition holds or the deadline
// expires. Contact resolution is asynchronous by design, typically one
// tick behind detection.
func (f *collisionFixture) tickUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached before deadline")
		}
		f.world.UpdateLogic(0.016)
		time.Sleep(time.Millisecond)
	}
}

func TestCollisionRoundTrip(t *testing.T) {
	f := newCollisionFixture(t)

	a := f.spawnCircle(t, 0, 0, 10)
	b := f.spawnCircle(t, 5, 0, 10)

	var contacts []collision.Contact
	f.tickUntil(t, func() bool {
		contacts = append(contacts, f.system.DrainContacts()...)
		return len(contacts) > 0
	})

	c := contacts[0]
	got := map[uint32]bool{c.A: true, c.B: true}
	assert.True(t, got[a.NumericID()])
	assert.True(t, got[b.NumericID()])
	assert.Greater(t, c.Penetration, 0.0)
}

func TestDistantEntitiesNeverCollide(t *testing.T) {
	f := newCollisionFixture(t)

	f.spawnCircle(t, 0, 0, 10)
	f.spawnCircle(t, 5000, 5000, 10)

	for i := 0; i < 20; i++ {
		f.world.UpdateLogic(0.016)
		time.Sleep(time.Millisecond)
	}
	assert.Empty(t, f.system.DrainContacts())
}

func TestStaleResultsForRemovedEntitiesAreDiscarded(t *testing.T) {
	f := newCollisionFixture(t)

	a := f.spawnCircle(t, 0, 0, 10)
	b := f.spawnCircle(t, 5, 0, 10)

	// One pass dispatches the overlapping pair...
	f.world.UpdateLogic(0.016)
	require.Greater(t, f.system.InFlight(), 0)

	// ...and both participants disappear before the result lands.
	f.world.RemoveEntity(a)
	f.world.RemoveEntity(b)

	f.tickUntil(t, func() bool {
		return f.system.InFlight() == 0
	})
	assert.Empty(t, f.system.DrainContacts())
}

func TestStaleResultsNotAttributedToRecycledNumericIDs(t *testing.T) {
	f := newCollisionFixture(t)

	a := f.spawnCircle(t, 0, 0, 10)
	b := f.spawnCircle(t, 5, 0, 10)
	aNum, bNum := a.NumericID(), b.NumericID()

	// Dispatch the overlapping pair, then remove both participants while
	// the result is still in flight.
	f.world.UpdateLogic(0.016)
	require.Greater(t, f.system.InFlight(), 0)
	f.world.RemoveEntity(a)
	f.world.RemoveEntity(b)

	// Two far-apart replacements claim the freed numeric ids. The stale
	// contact must not be reconciled onto them.
	c := f.spawnCircle(t, 1000, 1000, 10)
	d := f.spawnCircle(t, -1000, -1000, 10)
	reused := map[uint32]bool{c.NumericID(): true, d.NumericID(): true}
	require.True(t, reused[aNum])
	require.True(t, reused[bNum])

	f.tickUntil(t, func() bool {
		return f.system.InFlight() == 0
	})
	assert.Empty(t, f.system.DrainContacts())
}

func TestDroppedBatchesAreCounted(t *testing.T) {
	world := newTestWorld()
	world.RegisterComponent(sim.TransformName, sim.NewTransform)
	world.RegisterComponent(sim.BodyName, sim.NewBody)
	world.RegisterComponent(sim.ColliderName, sim.NewCollider)

	grid := sim.NewSpatialGrid(100)
	// Never started, so the one-slot queue fills on the first dispatch
	// and stays full.
	workers := collision.NewWorkers(1, 1)
	system := sim.NewCollisionSystem(grid, workers, nil)

	idx := sim.NewSpatialIndexSystem(grid, 200)
	idx.Interval = 0
	world.AddSystem(idx)
	world.AddSystem(system)

	f := &collisionFixture{world: world, grid: grid, workers: workers, system: system}
	f.spawnCircle(t, 0, 0, 10)
	f.spawnCircle(t, 5, 0, 10)

	world.UpdateLogic(0.016)
	assert.Equal(t, uint64(0), system.DroppedTasks())

	world.UpdateLogic(0.016)
	assert.Equal(t, uint64(1), system.DroppedTasks())
}

func TestSleepingPairProducesNoContacts(t *testing.T) {
	f := newCollisionFixture(t)

	a := f.spawnCircle(t, 0, 0, 10)
	b := f.spawnCircle(t, 5, 0, 10)
	a.Component(sim.BodyName).(*sim.Body).Sleeping = true
	b.Component(sim.BodyName).(*sim.Body).Sleeping = true

	for i := 0; i < 20; i++ {
		f.world.UpdateLogic(0.016)
		time.Sleep(time.Millisecond)
	}
	assert.Empty(t, f.system.DrainContacts())
}

package sim

// MovementSystem integrates body velocity into the transform each logic
// tick and advances the sleep state. It carries no game rules; anything
// that steers entities does so by writing velocities before this runs.
type MovementSystem struct {
	SystemBase
}

func NewMovementSystem() *MovementSystem {
	return &MovementSystem{}
}

func (s *MovementSystem) Name() string     { return "movement" }
func (s *MovementSystem) Kind() SystemKind { return KindLogic }
func (s *MovementSystem) Priority() int    { return 100 }

func (s *MovementSystem) Update(dt float64) {
	for _, e := range s.World.EntitiesWith(TransformName, BodyName) {
		if !e.Active() {
			continue
		}
		t := e.Component(TransformName).(*Transform)
		body := e.Component(BodyName).(*Body)

		t.Pos = t.Pos.Add(body.Vel.Scale(dt))
		body.UpdateSleep(dt)
	}
}

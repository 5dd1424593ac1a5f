package collision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/skirmish/collision"
	"github.com/plus3/skirmish/geom"
)

func circleRecord(num uint32, x, y, diameter float64) collision.Record {
	return collision.Record{
		ID:    string(rune('a' + num)),
		Num:   num,
		Pos:   geom.V(x, y),
		Size:  geom.V(diameter, diameter),
		Shape: collision.ShapeCircle,
	}
}

func TestPairKeyIsOrderIndependent(t *testing.T) {
	tests := []struct {
		a, b uint32
	}{
		{1, 2},
		{2, 1},
		{0, 0xFFFFFFFF},
		{7, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, collision.Key(tt.a, tt.b), collision.Key(tt.b, tt.a))
	}
	assert.NotEqual(t, collision.Key(1, 2), collision.Key(1, 3))
}

func TestCircleCircleContact(t *testing.T) {
	// Entity A at (0,0) size [10,10], entity B at (5,0) size [10,10]:
	// overlapping circles of radius 5, centers 5 apart.
	task := &collision.Task{
		ID:   1,
		Mode: collision.ModeBodies,
		Records: map[uint32]collision.Record{
			1: circleRecord(1, 0, 0, 10),
			2: circleRecord(2, 5, 0, 10),
		},
		Pairs: []collision.Pair{{A: 1, B: 2}},
	}

	contacts := collision.Detect(task)
	require.Len(t, contacts, 1)

	c := contacts[0]
	assert.Equal(t, uint32(1), c.A)
	assert.Equal(t, uint32(2), c.B)
	assert.Greater(t, c.Penetration, 0.0)
	assert.InDelta(t, 5.0, c.Penetration, 1e-9)
	// Normal points from B toward A.
	assert.InDelta(t, -1.0, c.Normal.X, 1e-9)
	assert.InDelta(t, 0.0, c.Normal.Y, 1e-9)
}

func TestSeparatedCirclesProduceNoContact(t *testing.T) {
	task := &collision.Task{
		ID:   1,
		Mode: collision.ModeBodies,
		Records: map[uint32]collision.Record{
			1: circleRecord(1, 0, 0, 10),
			2: circleRecord(2, 20, 0, 10),
		},
		Pairs: []collision.Pair{{A: 1, B: 2}},
	}

	assert.Empty(t, collision.Detect(task))
}

func TestPairTestedAtMostOncePerDispatch(t *testing.T) {
	hits := 0
	task := &collision.Task{
		ID:   1,
		Mode: collision.ModeBodies,
		Records: map[uint32]collision.Record{
			1: circleRecord(1, 0, 0, 10),
			2: circleRecord(2, 5, 0, 10),
		},
		// Duplicates and a reversed entry of the same unordered pair.
		Pairs: []collision.Pair{
			{A: 1, B: 2},
			{A: 1, B: 2},
			{A: 2, B: 1},
		},
	}

	contacts := collision.Detect(task)
	for range contacts {
		hits++
	}
	assert.Equal(t, 1, hits)
}

func TestBothSleepingPairIsSkipped(t *testing.T) {
	a := circleRecord(1, 0, 0, 10)
	a.Sleeping = true
	b := circleRecord(2, 5, 0, 10)
	b.Sleeping = true

	task := &collision.Task{
		ID:      1,
		Mode:    collision.ModeBodies,
		Records: map[uint32]collision.Record{1: a, 2: b},
		Pairs:   []collision.Pair{{A: 1, B: 2}},
	}

	assert.Empty(t, collision.Detect(task))
}

func TestOneAwakeParticipantIsStillTested(t *testing.T) {
	a := circleRecord(1, 0, 0, 10)
	a.Sleeping = true
	b := circleRecord(2, 5, 0, 10)

	task := &collision.Task{
		ID:      1,
		Mode:    collision.ModeBodies,
		Records: map[uint32]collision.Record{1: a, 2: b},
		Pairs:   []collision.Pair{{A: 1, B: 2}},
	}

	assert.Len(t, collision.Detect(task), 1)
}

func TestMissingRecordIsSkipped(t *testing.T) {
	task := &collision.Task{
		ID:      1,
		Mode:    collision.ModeBodies,
		Records: map[uint32]collision.Record{1: circleRecord(1, 0, 0, 10)},
		Pairs:   []collision.Pair{{A: 1, B: 99}},
	}

	assert.Empty(t, collision.Detect(task))
}

func TestCircleRectContact(t *testing.T) {
	rect := collision.Record{
		ID: "r", Num: 2,
		Pos:   geom.V(20, 0),
		Size:  geom.V(20, 40),
		Shape: collision.ShapeRect,
	}

	t.Run("overlapping edge", func(t *testing.T) {
		task := &collision.Task{
			ID:   1,
			Mode: collision.ModeBodies,
			Records: map[uint32]collision.Record{
				1: circleRecord(1, 4, 0, 14), // radius 7, rect edge at x=10
				2: rect,
			},
			Pairs: []collision.Pair{{A: 1, B: 2}},
		}

		contacts := collision.Detect(task)
		require.Len(t, contacts, 1)

		c := contacts[0]
		assert.InDelta(t, 1.0, c.Penetration, 1e-9)
		assert.InDelta(t, -1.0, c.Normal.X, 1e-9)
	})

	t.Run("rect listed first flips the normal", func(t *testing.T) {
		task := &collision.Task{
			ID:   1,
			Mode: collision.ModeBodies,
			Records: map[uint32]collision.Record{
				1: circleRecord(1, 4, 0, 14),
				2: rect,
			},
			Pairs: []collision.Pair{{A: 2, B: 1}},
		}

		contacts := collision.Detect(task)
		require.Len(t, contacts, 1)
		assert.InDelta(t, 1.0, contacts[0].Normal.X, 1e-9)
	})

	t.Run("clear of the rect", func(t *testing.T) {
		task := &collision.Task{
			ID:   1,
			Mode: collision.ModeBodies,
			Records: map[uint32]collision.Record{
				1: circleRecord(1, -20, 0, 14),
				2: rect,
			},
			Pairs: []collision.Pair{{A: 1, B: 2}},
		}

		assert.Empty(t, collision.Detect(task))
	})
}

func TestRectRectTestedAsPaddedCircles(t *testing.T) {
	a := collision.Record{ID: "a", Num: 1, Pos: geom.V(0, 0), Size: geom.V(10, 10), Shape: collision.ShapeRect}
	b := collision.Record{ID: "b", Num: 2, Pos: geom.V(8, 0), Size: geom.V(10, 10), Shape: collision.ShapeRect}

	task := &collision.Task{
		ID:      1,
		Mode:    collision.ModeBodies,
		Records: map[uint32]collision.Record{1: a, 2: b},
		Pairs:   []collision.Pair{{A: 1, B: 2}},
	}

	contacts := collision.Detect(task)
	require.Len(t, contacts, 1)
	// Bounding radii 5+5 against 8 of separation.
	assert.InDelta(t, 2.0, contacts[0].Penetration, 1e-9)
}

func TestLaserCapsule(t *testing.T) {
	laser := collision.Record{
		ID: "l", Num: 1,
		Pos:   geom.V(0, 0),
		Dir:   geom.V(1, 0),
		Size:  geom.V(100, 4), // length 100, beam width 4
		Shape: collision.ShapeLaser,
	}

	t.Run("target on the beam", func(t *testing.T) {
		task := &collision.Task{
			ID:   1,
			Mode: collision.ModeLaser,
			Records: map[uint32]collision.Record{
				1: laser,
				2: circleRecord(2, 60, 3, 10),
			},
			Pairs: []collision.Pair{{A: 1, B: 2}},
		}

		contacts := collision.Detect(task)
		require.Len(t, contacts, 1)

		c := contacts[0]
		// Beam half width 2 + target radius 5 against 3 of separation.
		assert.InDelta(t, 4.0, c.Penetration, 1e-9)
		// Normal points from the target toward the laser axis.
		assert.InDelta(t, -1.0, c.Normal.Y, 1e-9)
	})

	t.Run("target beyond the beam length", func(t *testing.T) {
		task := &collision.Task{
			ID:   1,
			Mode: collision.ModeLaser,
			Records: map[uint32]collision.Record{
				1: laser,
				2: circleRecord(2, 160, 0, 10),
			},
			Pairs: []collision.Pair{{A: 1, B: 2}},
		}

		assert.Empty(t, collision.Detect(task))
	})

	t.Run("target behind the origin", func(t *testing.T) {
		task := &collision.Task{
			ID:   1,
			Mode: collision.ModeLaser,
			Records: map[uint32]collision.Record{
				1: laser,
				2: circleRecord(2, -20, 0, 10),
			},
			Pairs: []collision.Pair{{A: 1, B: 2}},
		}

		assert.Empty(t, collision.Detect(task))
	})
}

func TestCoincidentCentersGetCanonicalNormal(t *testing.T) {
	task := &collision.Task{
		ID:   1,
		Mode: collision.ModeBodies,
		Records: map[uint32]collision.Record{
			1: circleRecord(1, 10, 10, 10),
			2: circleRecord(2, 10, 10, 10),
		},
		Pairs: []collision.Pair{{A: 1, B: 2}},
	}

	contacts := collision.Detect(task)
	require.Len(t, contacts, 1)
	assert.Equal(t, geom.V(1, 0), contacts[0].Normal)
	assert.InDelta(t, 10.0, contacts[0].Penetration, 1e-9)
}

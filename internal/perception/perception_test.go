package perception

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/race-engine/internal/geom"
	"github.com/cxd309/race-engine/internal/graph"
	"github.com/cxd309/race-engine/internal/horse"
	"github.com/cxd309/race-engine/internal/track"
)

func newSensor(t *testing.T, cfg Config) *Sensor {
	t.Helper()
	tr, err := track.OvalForLength(1000, 30)
	require.NoError(t, err)
	g, err := graph.NewGrid(tr, graph.DefaultConfig())
	require.NoError(t, err)
	return NewSensor(tr, g, cfg)
}

func newHorse(t *testing.T, id string, pos geom.Vector2D, distance float64) *horse.SimHorse {
	t.Helper()
	h, err := horse.NewSimHorse(horse.Horse{ID: id, MaxSpeed: 3, MaxAcceleration: 0.2, MaxStamina: 100}, pos, 0, 0)
	require.NoError(t, err)
	h.Distance = distance
	return h
}

func TestPerceiveRaysOnStraight(t *testing.T) {
	s := newSensor(t, Config{})
	self := newHorse(t, "self", geom.Vec(100, 15), 100)

	snap := s.Perceive(self, nil)
	require.True(t, snap.HasHit)
	assert.Len(t, snap.Hits, 5)
	assert.InDelta(t, 15, snap.Closest.Distance, 1e-9)
	assert.InDelta(t, 15, snap.MinWallDistance(), 1e-9)

	// The forward ray runs down the straight and meets the next corner's outer edge.
	assert.Equal(t, 0.0, snap.Farthest.Angle)
	assert.Equal(t, 1, snap.Farthest.Segment)
	assert.Equal(t, BoundaryOuter, snap.Farthest.Boundary)
	assert.Greater(t, snap.Farthest.Distance, 150.0)
	assert.Less(t, geom.AngleDiff(0, snap.FarTangent.Angle()), 0.0, "corner turns right")

	assert.Equal(t, 5, snap.Lane)
	assert.InDelta(t, 15, snap.Offset, 1e-9)
	assert.InDelta(t, 0.1, snap.Progress, 1e-12)
	assert.Equal(t, geom.Vec(1, 0), snap.Tangent)
	assert.True(t, snap.CourseEffect.IsZero())
}

func TestPerceiveFineAvoidanceRays(t *testing.T) {
	s := newSensor(t, Config{FineAvoidance: true})
	assert.Len(t, s.Rays(), 7)
	snap := s.Perceive(newHorse(t, "self", geom.Vec(100, 15), 100), nil)
	assert.Len(t, snap.Hits, 7)
}

func TestPerceiveSectorsAndRank(t *testing.T) {
	s := newSensor(t, Config{})
	self := newHorse(t, "self", geom.Vec(100, 15), 100)
	field := []horse.Snapshot{
		self.Snapshot(),
		{ID: "front", Pos: geom.Vec(110, 15), Distance: 110, Lane: 5, Speed: 2},
		{ID: "left", Pos: geom.Vec(100, 25), Distance: 100, Lane: 8},
		{ID: "front-right", Pos: geom.Vec(108, 8), Distance: 108, Lane: 2},
		{ID: "behind", Pos: geom.Vec(90, 15), Distance: 90, Lane: 5},
		{ID: "done", Pos: geom.Vec(105, 15), Distance: 105, Finished: true},
		{ID: "far", Pos: geom.Vec(240, 15), Distance: 240},
	}

	snap := s.Perceive(self, field)
	assert.Equal(t, 5, snap.Rank)

	front := snap.Sector(SectorFront)
	require.True(t, front.Present)
	assert.Equal(t, "front", front.ID)
	assert.InDelta(t, 10, front.Distance, 1e-9)
	assert.Equal(t, 2.0, front.Speed)

	assert.Equal(t, "left", snap.Sector(SectorLeft).ID)
	assert.Equal(t, "front-right", snap.Sector(SectorFrontRight).ID)
	assert.False(t, snap.Sector(SectorRight).Present)
	assert.False(t, snap.Sector(SectorFrontLeft).Present)

	ids := map[horse.ID]Sector{}
	for _, n := range snap.Neighbors {
		ids[n.ID] = n.Sector
	}
	assert.Equal(t, map[horse.ID]Sector{
		"front":       SectorFront,
		"left":        SectorLeft,
		"front-right": SectorFrontRight,
		"behind":      SectorBehind,
	}, ids, "self, finished and out-of-range horses are not sensed")
}

func TestSectorOf(t *testing.T) {
	cases := map[float64]Sector{
		0:   SectorFront,
		20:  SectorFront,
		-20: SectorFront,
		30:  SectorFrontLeft,
		-60: SectorFrontRight,
		90:  SectorLeft,
		-90: SectorRight,
		170: SectorBehind,
	}
	for deg, want := range cases {
		assert.Equal(t, want, SectorOf(geom.Radians(deg)), "%v°", deg)
	}
	assert.Equal(t, "front_left", SectorFrontLeft.String())
	assert.Equal(t, "behind", SectorBehind.String())
}

func TestPerceiveOnCornerHasCourseEffect(t *testing.T) {
	s := newSensor(t, Config{})
	tr := s.track
	c := tr.Segment(1)
	pos := c.PointAt(0.5, 10)
	self := newHorse(t, "self", pos, 375)
	self.Segment = 1
	self.Speed = 2
	self.Heading = c.TangentAt(pos).Angle()

	snap := s.Perceive(self, nil)
	assert.Equal(t, 3, snap.Lane)
	assert.InDelta(t, 10, snap.Offset, 1e-9)
	assert.False(t, snap.CourseEffect.IsZero())
	assert.True(t, snap.HasHit)
	assert.False(t, math.IsInf(snap.MinWallDistance(), 1))
}
